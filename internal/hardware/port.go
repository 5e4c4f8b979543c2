package hardware

import (
	"fmt"
	"sync"

	"github.com/tarm/serial"
	"github.com/wfunc/park-gate/internal/config"
)

// Port 总线端口抽象，真实实现为串口，测试中可用模拟端口替换
type Port interface {
	Write(p []byte) (int, error)
	Read(p []byte) (int, error)
	IsOpen() bool
	Reopen() error
	Close() error
}

// SerialPort 基于串口的总线端口
type SerialPort struct {
	cfg  *config.SerialConfig
	port *serial.Port
	mu   sync.Mutex
}

// NewSerialPort 创建并打开串口端口
func NewSerialPort(cfg *config.SerialConfig) (*SerialPort, error) {
	p := &SerialPort{cfg: cfg}
	if err := p.Reopen(); err != nil {
		return nil, err
	}
	return p, nil
}

// Reopen 重新打开串口
func (p *SerialPort) Reopen() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.port != nil {
		p.port.Close()
		p.port = nil
	}

	// 解析校验位
	parity := serial.ParityNone
	switch p.cfg.Parity {
	case "O", "odd":
		parity = serial.ParityOdd
	case "E", "even":
		parity = serial.ParityEven
	}

	port, err := serial.OpenPort(&serial.Config{
		Name:        p.cfg.Port,
		Baud:        p.cfg.BaudRate,
		Size:        byte(p.cfg.DataBits),
		Parity:      parity,
		StopBits:    serial.StopBits(p.cfg.StopBits),
		ReadTimeout: p.cfg.ReadTimeout,
	})
	if err != nil {
		return fmt.Errorf("open serial port %s: %w", p.cfg.Port, err)
	}

	p.port = port
	return nil
}

// IsOpen 检查串口是否已打开
func (p *SerialPort) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.port != nil
}

// Write 写入串口
func (p *SerialPort) Write(buf []byte) (int, error) {
	p.mu.Lock()
	port := p.port
	p.mu.Unlock()

	if port == nil {
		return 0, fmt.Errorf("serial port not open")
	}
	n, err := port.Write(buf)
	if err != nil {
		p.markClosed()
	}
	return n, err
}

// Read 从串口读取
func (p *SerialPort) Read(buf []byte) (int, error) {
	p.mu.Lock()
	port := p.port
	p.mu.Unlock()

	if port == nil {
		return 0, fmt.Errorf("serial port not open")
	}
	return port.Read(buf)
}

// Close 关闭串口
func (p *SerialPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.port == nil {
		return nil
	}
	err := p.port.Close()
	p.port = nil
	return err
}

// markClosed 写入失败后标记端口已断开，等待守卫重开
func (p *SerialPort) markClosed() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.port != nil {
		p.port.Close()
		p.port = nil
	}
}

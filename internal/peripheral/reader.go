package peripheral

import (
	"context"
	"net"
	"regexp"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wfunc/park-gate/internal/config"
	"github.com/wfunc/park-gate/internal/logger"
)

// barPattern 收银台扫码枪的帧格式：分号开头，问号结尾，中间为条码数字
var barPattern = regexp.MustCompile(`;(\d+)\?(\r\n)?`)

// minBarLen 低于此长度的条码视为误读，静默丢弃
const minBarLen = 10

// Handler 收到一个完整条码后的回调
type Handler interface {
	HandleBar(ctx context.Context, bar string)
}

// Reader 收银台扫码枪连接。
//
// 断线或读失败后按固定间隔无限重连，对上层不可见；
// 数据按字节流累积，用帧格式切分出完整条码后逐个投递。
type Reader struct {
	cfg     *config.PeripheralConfig
	handler Handler
	log     *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewReader 创建扫码枪连接
func NewReader(cfg *config.PeripheralConfig, handler Handler) *Reader {
	return &Reader{
		cfg:     cfg,
		handler: handler,
		log:     logger.GetModuleLogger("peripheral"),
	}
}

// Start 启动连接协程，断线自动重连
func (r *Reader) Start() {
	r.once.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		r.cancel = cancel
		r.wg.Add(1)
		go r.run(ctx)
	})
}

// Stop 关闭连接并等待协程退出
func (r *Reader) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	r.wg.Wait()
}

func (r *Reader) run(ctx context.Context) {
	defer r.wg.Done()
	dialer := &net.Dialer{}
	for {
		if ctx.Err() != nil {
			return
		}
		conn, err := dialer.DialContext(ctx, r.cfg.Network, r.cfg.Address)
		if err != nil {
			r.log.Debug("连接扫码枪失败，稍后重试",
				zap.String("address", r.cfg.Address), zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(r.cfg.ReconnectInterval):
			}
			continue
		}

		r.log.Info("扫码枪已连接", zap.String("address", r.cfg.Address))
		r.consume(ctx, conn)

		select {
		case <-ctx.Done():
			return
		case <-time.After(r.cfg.ReconnectInterval):
		}
	}
}

// consume 读取单个连接直到出错或被取消
func (r *Reader) consume(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	var buf []byte
	chunk := make([]byte, 128)
	for {
		n, err := conn.Read(chunk)
		if err != nil {
			if ctx.Err() == nil {
				r.log.Warn("扫码枪连接中断", zap.Error(err))
			}
			return
		}
		buf = append(buf, chunk[:n]...)

		last := 0
		for _, match := range barPattern.FindAllSubmatchIndex(buf, -1) {
			last = match[1]
			bar := string(buf[match[2]:match[3]])
			if len(bar) < minBarLen {
				continue
			}
			r.handler.HandleBar(ctx, bar)
		}
		buf = buf[last:]
	}
}

package hardware

import (
	"sync"
	"time"

	"github.com/wfunc/park-gate/internal/errors"
	"github.com/wfunc/park-gate/internal/logger"
	"go.uber.org/zap"
)

// SetState 命令的重试次数
const stateTryCount = 3

// 守卫重开失败后的退避时长
const unavailableSleep = time.Second

// OpenEventRecorder 开闸事件记录回调。SetState 成功后携带原因码上报，
// 由计费侧决定是否落库（关闸命令不生成事件）。
type OpenEventRecorder interface {
	RecordOpenEvent(addr uint8, reason byte, command byte) error
}

// Terminal 车道终端网络句柄。
//
// 所有原语共用同一个总线端口；互斥锁保证一次请求/应答事务只有单一持有者，
// 不同车道任务与操作员命令在事务粒度上交错执行。
type Terminal struct {
	port          Port
	log           *zap.Logger
	mu            sync.Mutex // 事务级单一持有者守卫
	retryTimes    int
	retryInterval time.Duration
}

// NewTerminal 创建终端网络句柄
func NewTerminal(port Port, retryTimes int, retryInterval time.Duration) *Terminal {
	if retryTimes <= 0 {
		retryTimes = 1
	}
	return &Terminal{
		port:          port,
		log:           logger.GetModuleLogger("serial"),
		retryTimes:    retryTimes,
		retryInterval: retryInterval,
	}
}

// Close 关闭底层端口
func (t *Terminal) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.port.Close()
}

// guard 命令前置守卫：端口未打开时尝试重开一次，
// 失败则短暂休眠并返回"终端不可用"，不会阻塞等待。
func (t *Terminal) guard() error {
	if t.port.IsOpen() {
		return nil
	}
	if err := t.port.Reopen(); err != nil {
		time.Sleep(unavailableSleep)
		return errors.Wrap(err, errors.ErrTerminalUnavailable)
	}
	return nil
}

// transact 执行一次请求/应答事务。wantLen 为期望的应答数据区长度，
// 0 表示该命令无应答（广播命令）。
func (t *Terminal) transact(addr byte, cmd byte, data []byte, wantLen int) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.guard(); err != nil {
		return nil, err
	}

	req := (&Frame{Addr: addr, Command: cmd, Data: data}).Encode()

	var lastErr error
	for attempt := 0; attempt < t.retryTimes; attempt++ {
		if attempt > 0 {
			time.Sleep(t.retryInterval)
		}

		if _, err := t.port.Write(req); err != nil {
			lastErr = errors.Wrap(err, errors.ErrSerialPortWrite)
			continue
		}

		// 广播命令无应答
		if addr == BroadcastAddr || wantLen == 0 {
			return nil, nil
		}

		resp, err := t.readFrame()
		if err != nil {
			lastErr = err
			continue
		}
		if resp.Command == CmdNak {
			lastErr = errors.Newf(errors.ErrCommandFailed, "终端 %d 拒绝命令 0x%02X", addr, cmd)
			continue
		}
		if resp.Addr != addr || (resp.Command != cmd && resp.Command != CmdAck) {
			lastErr = errors.Newf(errors.ErrInvalidResponse,
				"期望 addr=%d cmd=0x%02X，收到 addr=%d cmd=0x%02X", addr, cmd, resp.Addr, resp.Command)
			continue
		}
		if len(resp.Data) < wantLen {
			lastErr = errors.Newf(errors.ErrInvalidResponse, "应答数据区过短: %d < %d", len(resp.Data), wantLen)
			continue
		}
		return resp.Data, nil
	}
	return nil, lastErr
}

// readFrame 从端口读取并解析一帧完整应答
func (t *Terminal) readFrame() (*Frame, error) {
	buf := make([]byte, 0, 64)
	chunk := make([]byte, 64)

	// 先凑齐帧头4字节，确定数据区长度后再读满整帧
	need := 4
	for len(buf) < need {
		n, err := t.port.Read(chunk)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrSerialPortRead)
		}
		if n == 0 {
			return nil, errors.New(errors.ErrSerialTimeout)
		}
		buf = append(buf, chunk[:n]...)
		if len(buf) >= 4 {
			need = MinFrameLen + int(buf[3])
		}
	}

	return DecodeFrame(buf[:need])
}

// GetEntries 读取通行计数与状态位
func (t *Terminal) GetEntries(addr uint8) (*EntryReport, error) {
	data, err := t.transact(addr, CmdGetEntries, nil, EntryReportLen)
	if err != nil {
		return nil, err
	}
	return DecodeEntryReport(data)
}

// ResetEntries 清零终端侧的通行计数。计数是增量语义，
// 读取后必须显式清零，否则下个周期会重复消费。
func (t *Terminal) ResetEntries(addr uint8) error {
	_, err := t.transact(addr, CmdResetEntries, nil, 0)
	return err
}

// SetState 设置道闸状态。最多重试3次，仅在成功后上报开闸事件。
func (t *Terminal) SetState(addr uint8, state StateCommand, recorder OpenEventRecorder) error {
	var lastErr error
	for i := 0; i < stateTryCount; i++ {
		_, err := t.transact(addr, CmdSetState, state.Encode(), 0)
		if err == nil {
			t.log.Info("道闸状态已设置",
				zap.Uint8("addr", addr),
				zap.String("state", state.String()))
			if recorder != nil {
				if rerr := recorder.RecordOpenEvent(addr, state.Reason, state.Command); rerr != nil {
					t.log.Warn("开闸事件记录失败", zap.Uint8("addr", addr), zap.Error(rerr))
				}
			}
			return nil
		}
		lastErr = err
	}
	t.log.Error("道闸状态设置失败",
		zap.Uint8("addr", addr),
		zap.String("state", state.String()),
		zap.Error(lastErr))
	return lastErr
}

// SetCounters 下发剩余车位数，addr 为 0xFF 时广播给所有车道
func (t *Terminal) SetCounters(addr uint8, freePlaces uint16) error {
	counter := PlaceCounter{FreePlaces: freePlaces}
	_, err := t.transact(addr, CmdSetCounters, counter.Encode(), 0)
	return err
}

// GetReaders 读取刷卡读头事件快照
func (t *Terminal) GetReaders(addr uint8) (*ReaderPair, error) {
	data, err := t.transact(addr, CmdGetReaders, nil, ReaderPairLen)
	if err != nil {
		return nil, err
	}
	return DecodeReaderPair(data)
}

// AckReaders 确认已消费的读头事件
func (t *Terminal) AckReaders(addr uint8) error {
	_, err := t.transact(addr, CmdAckReaders, nil, 0)
	return err
}

// GetBarcode 读取条码读头事件
func (t *Terminal) GetBarcode(addr uint8) (*BarcodeEvent, error) {
	data, err := t.transact(addr, CmdGetBarcode, nil, BarcodeEventLen)
	if err != nil {
		return nil, err
	}
	return DecodeBarcodeEvent(data)
}

// SetStrings 下发费率名称与票据文本
func (t *Terminal) SetStrings(addr uint8, strings *DisplayStrings) error {
	_, err := t.transact(addr, CmdSetStrings, strings.Encode(), 0)
	return err
}

// SetTime 用当前系统时刻校准终端时钟
func (t *Terminal) SetTime(addr uint8) error {
	_, err := t.transact(addr, CmdSetTime, NewClockSetting(time.Now()).Encode(), 0)
	return err
}

// ShowMessage 在顾客显示屏显示消息
func (t *Terminal) ShowMessage(addr uint8, message string, style byte) error {
	_, err := t.transact(addr, CmdShowMessage, EncodeMessage(message, style), 0)
	return err
}

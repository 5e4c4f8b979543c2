package mainloop

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wfunc/park-gate/internal/billing"
	"github.com/wfunc/park-gate/internal/config"
	"github.com/wfunc/park-gate/internal/hardware"
	"github.com/wfunc/park-gate/internal/logger"
	"github.com/wfunc/park-gate/internal/tariff"
)

// 顾客显示屏消息样式
const (
	messageStyleDefault byte = 15
	messageStyleTest    byte = 5
)

// Store 主循环依赖的计费与计数持久化能力
type Store interface {
	billing.Store
	hardware.OpenEventRecorder

	FindTicketByBar(ctx context.Context, bar string) (*billing.Ticket, error)
	FindCardBySerial(ctx context.Context, serial string) (*billing.Card, error)
	ActiveTariffs(ctx context.Context) ([]*tariff.Tariff, error)
	FreePlaces(ctx context.Context) (free, total int, err error)
	AdjustFreePlaces(ctx context.Context, delta int) (int, error)
}

// Notifier 操作员通知出口，投递后即忘
type Notifier interface {
	Notify(title, message string)
}

// StateSink 车道状态与空位数的展示出口
type StateSink interface {
	LaneState(addr uint8, active bool)
	FreePlaces(free int)
}

// NopNotifier 丢弃所有通知
type NopNotifier struct{}

func (NopNotifier) Notify(title, message string) {}

// NopSink 丢弃所有状态更新
type NopSink struct{}

func (NopSink) LaneState(addr uint8, active bool) {}
func (NopSink) FreePlaces(free int)               {}

// Mainloop 车道设备主循环。
//
// 每个车道地址一个轮询协程，依次执行通行计数、刷卡读头、
// （奇数地址加上）条码读头三类处理；操作员命令经由命令队列
// 注入，与轮询协程共用同一个终端句柄。终端内部的互斥锁保证
// 一次请求/应答事务不会被其他协程打断。
type Mainloop struct {
	terminal *hardware.Terminal
	store    Store
	notifier Notifier
	sink     StateSink
	cfg      *config.TerminalConfig
	log      *zap.Logger

	commands chan func(*hardware.Terminal)
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	started  bool
	stopOnce sync.Once

	mu         sync.RWMutex
	tariffs    []*tariff.Tariff
	checkLines []string
}

// New 创建主循环，notifier 与 sink 传 nil 时使用空实现
func New(terminal *hardware.Terminal, store Store, cfg *config.TerminalConfig, checkLines []string, notifier Notifier, sink StateSink) *Mainloop {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if sink == nil {
		sink = NopSink{}
	}
	lines := make([]string, len(checkLines))
	copy(lines, checkLines)
	return &Mainloop{
		terminal:   terminal,
		store:      store,
		notifier:   notifier,
		sink:       sink,
		cfg:        cfg,
		log:        logger.GetModuleLogger("mainloop"),
		commands:   make(chan func(*hardware.Terminal), 16),
		checkLines: lines,
	}
}

// Start 启动所有车道轮询协程、命令消费协程与费率刷新协程
func (m *Mainloop) Start(ctx context.Context) error {
	if m.started {
		return fmt.Errorf("主循环已启动")
	}
	if len(m.cfg.Addresses) == 0 {
		return fmt.Errorf("未配置车道地址")
	}

	if err := m.RefreshTariffs(ctx); err != nil {
		m.log.Warn("启动时加载费率失败，显示文本暂缺费率名称", zap.Error(err))
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.started = true

	for _, addr := range m.cfg.Addresses {
		m.wg.Add(1)
		go m.laneLoop(loopCtx, uint8(addr))
	}
	m.wg.Add(1)
	go m.commandLoop(loopCtx)
	if m.cfg.TariffRefresh > 0 {
		m.wg.Add(1)
		go m.refreshLoop(loopCtx)
	}

	m.log.Info("设备主循环已启动", zap.Ints("addresses", m.cfg.Addresses))
	return nil
}

// Stop 投递停止哨兵并等待所有协程退出，终端句柄随之关闭
func (m *Mainloop) Stop() {
	if !m.started {
		return
	}
	m.stopOnce.Do(func() {
		m.commands <- nil
	})
	m.wg.Wait()
	if err := m.terminal.Close(); err != nil {
		m.log.Warn("关闭终端失败", zap.Error(err))
	}
	m.log.Info("设备主循环已停止")
}

// commandLoop 消费命令队列。收到 nil 哨兵时终止所有车道协程。
func (m *Mainloop) commandLoop(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-m.commands:
			if cmd == nil {
				m.cancel()
				return
			}
			cmd(m.terminal)
		}
	}
}

// laneLoop 单车道轮询。连续失败超过阈值后标记为不活动并拉长轮询间隔。
func (m *Mainloop) laneLoop(ctx context.Context, addr uint8) {
	defer m.wg.Done()

	processors := []func(context.Context, uint8) bool{m.processEntries, m.processReaders}
	if addr%2 == 1 {
		processors = append(processors, m.processBarcode)
	}

	failure := 0
	for {
		for _, process := range processors {
			if ctx.Err() != nil {
				return
			}
			if process(ctx, addr) {
				failure = 0
			} else {
				failure++
			}

			// 每个处理器之后暂停并上报状态，保持总线轮询节奏均匀
			active := failure <= m.cfg.FailureThreshold
			m.sink.LaneState(addr, active)

			interval := m.cfg.PollInterval
			if !active {
				interval = m.cfg.DegradedInterval
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(interval):
			}
		}
	}
}

// refreshLoop 周期性重载启用费率并下发显示文本
func (m *Mainloop) refreshLoop(ctx context.Context) {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.TariffRefresh)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.RefreshTariffs(ctx); err != nil {
				m.log.Warn("刷新费率失败", zap.Error(err))
			}
		}
	}
}

// RefreshTariffs 重载启用费率，供显示文本与收费侧使用
func (m *Mainloop) RefreshTariffs(ctx context.Context) error {
	tariffs, err := m.store.ActiveTariffs(ctx)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.tariffs = tariffs
	m.mu.Unlock()
	return nil
}

// Tariffs 返回最近一次加载的启用费率
func (m *Mainloop) Tariffs() []*tariff.Tariff {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*tariff.Tariff, len(m.tariffs))
	copy(out, m.tariffs)
	return out
}

// displayStrings 组装费率名称与票据文本
func (m *Mainloop) displayStrings() *hardware.DisplayStrings {
	m.mu.RLock()
	defer m.mu.RUnlock()

	strings := &hardware.DisplayStrings{}
	for i, t := range m.tariffs {
		if i >= hardware.DisplayStringMax {
			break
		}
		strings.TariffNames[i] = t.Title
	}
	for i, line := range m.checkLines {
		if i >= hardware.DisplayStringMax {
			break
		}
		strings.CheckLines[i] = line
	}
	return strings
}

// Submit 向命令队列投递一个操作员命令，主循环未启动或已满时返回 false
func (m *Mainloop) Submit(cmd func(*hardware.Terminal)) bool {
	if cmd == nil {
		return false
	}
	select {
	case m.commands <- cmd:
		return true
	default:
		return false
	}
}

// TestDisplay 在所有车道的顾客显示屏上滚动显示测试消息
func (m *Mainloop) TestDisplay(message string) bool {
	return m.Submit(func(t *hardware.Terminal) {
		if err := t.ShowMessage(hardware.BroadcastAddr, message, messageStyleTest); err != nil {
			m.log.Warn("测试显示失败", zap.Error(err))
		}
	})
}

// PushConfig 向指定车道重新下发时钟、显示文本与空位数
func (m *Mainloop) PushConfig(addr uint8) bool {
	return m.Submit(func(t *hardware.Terminal) {
		if err := t.SetTime(addr); err != nil {
			m.log.Warn("校准时钟失败", zap.Uint8("addr", addr), zap.Error(err))
		}
		if err := t.SetStrings(addr, m.displayStrings()); err != nil {
			m.log.Warn("下发显示文本失败", zap.Uint8("addr", addr), zap.Error(err))
		}
		free, _, err := m.store.FreePlaces(context.Background())
		if err != nil {
			m.log.Error("读取空位数失败", zap.Error(err))
			return
		}
		if err := t.SetCounters(addr, clampCounter(free)); err != nil {
			m.log.Warn("下发空位数失败", zap.Uint8("addr", addr), zap.Error(err))
		}
	})
}

// OpenLane 操作员手动开闸
func (m *Mainloop) OpenLane(addr uint8) bool {
	return m.Submit(func(t *hardware.Terminal) {
		state := hardware.StateCommand{Reason: hardware.ReasonManual, Command: hardware.GateInOpen}
		if err := t.SetState(addr, state, m.store); err != nil {
			m.log.Error("手动开闸失败", zap.Uint8("addr", addr), zap.Error(err))
			m.notifier.Notify("道闸", fmt.Sprintf("%d号车道手动开闸失败", addr))
		}
	})
}

// CloseLane 操作员手动关闸
func (m *Mainloop) CloseLane(addr uint8) bool {
	return m.Submit(func(t *hardware.Terminal) {
		state := hardware.StateCommand{Reason: hardware.ReasonManual, Command: hardware.GateInClose}
		if err := t.SetState(addr, state, m.store); err != nil {
			m.log.Error("手动关闸失败", zap.Uint8("addr", addr), zap.Error(err))
			m.notifier.Notify("道闸", fmt.Sprintf("%d号车道手动关闸失败", addr))
		}
	})
}

// clampCounter 空位数压入16位计数器范围
func clampCounter(free int) uint16 {
	if free < 0 {
		return 0
	}
	if free > 0xFFFF {
		return 0xFFFF
	}
	return uint16(free)
}

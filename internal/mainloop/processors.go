package mainloop

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wfunc/park-gate/internal/billing"
	"github.com/wfunc/park-gate/internal/hardware"
)

// 顾客显示屏提示语
const (
	msgAccessGranted = "允许通行，欢迎光临。"
	msgAccessDenied  = "禁止通行。"
)

// processEntries 处理单车道的通行计数与状态位。
//
// 终端侧报告过期的配置项会在本轮补发；进出差额非零时更新共享
// 空位数并向全部车道广播，否则仅在终端未显示最新值时单播。
// 通行事件按先出后进的顺序逐条留档。
func (m *Mainloop) processEntries(ctx context.Context, addr uint8) bool {
	report, err := m.terminal.GetEntries(addr)
	if err != nil {
		m.log.Debug("读取通行计数失败", zap.Uint8("addr", addr), zap.Error(err))
		return false
	}
	if err := m.terminal.ResetEntries(addr); err != nil {
		m.log.Warn("清零通行计数失败", zap.Uint8("addr", addr), zap.Error(err))
	}

	if !report.TimeFresh {
		if err := m.terminal.SetTime(addr); err != nil {
			m.log.Warn("校准时钟失败", zap.Uint8("addr", addr), zap.Error(err))
		}
	}
	if !report.MessageFresh {
		if err := m.terminal.SetStrings(addr, m.displayStrings()); err != nil {
			m.log.Warn("下发显示文本失败", zap.Uint8("addr", addr), zap.Error(err))
		}
	}
	if report.PaperOut {
		m.notifier.Notify("终端告警", fmt.Sprintf("%d号车道打印纸已用尽", addr))
	}

	diff := int(report.OutCount) - int(report.InCount)
	if diff != 0 {
		free, err := m.store.AdjustFreePlaces(ctx, diff)
		if err != nil {
			m.log.Error("更新空位数失败", zap.Uint8("addr", addr), zap.Error(err))
		} else {
			if err := m.terminal.SetCounters(hardware.BroadcastAddr, clampCounter(free)); err != nil {
				m.log.Warn("广播空位数失败", zap.Error(err))
			}
			m.sink.FreePlaces(free)
		}
	} else if !report.PlacesFresh {
		free, _, err := m.store.FreePlaces(ctx)
		if err != nil {
			m.log.Error("读取空位数失败", zap.Error(err))
		} else if err := m.terminal.SetCounters(addr, clampCounter(free)); err != nil {
			m.log.Warn("下发空位数失败", zap.Uint8("addr", addr), zap.Error(err))
		}
	}

	for i := 0; i < int(report.OutCount); i++ {
		if err := m.store.RecordPassEvent(ctx, addr, false, ""); err != nil {
			m.log.Error("通行事件留档失败", zap.Uint8("addr", addr), zap.Error(err))
		}
	}
	for i := 0; i < int(report.InCount); i++ {
		if err := m.store.RecordPassEvent(ctx, addr, true, ""); err != nil {
			m.log.Error("通行事件留档失败", zap.Uint8("addr", addr), zap.Error(err))
		}
	}
	return true
}

// processReaders 处理单车道的刷卡读头事件。
// 奇数地址为出口车道，取出方向读头，否则取入方向读头。
func (m *Mainloop) processReaders(ctx context.Context, addr uint8) bool {
	pair, err := m.terminal.GetReaders(addr)
	if err != nil {
		m.log.Debug("读取刷卡事件失败", zap.Uint8("addr", addr), zap.Error(err))
		return false
	}
	if err := m.terminal.AckReaders(addr); err != nil {
		m.log.Warn("确认刷卡事件失败", zap.Uint8("addr", addr), zap.Error(err))
	}

	event := pair.In
	direction := billing.DirectionIn
	if addr%2 == 1 {
		event = pair.Out
		direction = billing.DirectionOut
	}
	m.handleCardEvent(ctx, addr, direction, &event)
	return true
}

func (m *Mainloop) handleCardEvent(ctx context.Context, addr uint8, direction int, event *hardware.ReaderEvent) {
	switch event.Status {
	case hardware.CardRead:
		if int(event.Elapsed) >= m.cfg.CardTimeout {
			return
		}
		card := m.lookupCard(ctx, addr, event.Serial)
		if card == nil {
			m.showMessage(addr, msgAccessDenied)
			return
		}
		m.notifier.Notify("刷卡", fmt.Sprintf("卡片 %s\n%s", card.Serial, card.FullName()))
		switch card.Check(direction) {
		case billing.AccessGranted:
			m.notifier.Notify("刷卡", fmt.Sprintf("%d号车道放行卡片 %s", addr, card.Serial))
			state := hardware.StateCommand{Reason: hardware.ReasonManual, Command: hardware.GateInOpen}
			if err := m.terminal.SetState(addr, state, m.store); err != nil {
				m.log.Error("开闸失败", zap.Uint8("addr", addr), zap.Error(err))
				return
			}
			m.showMessage(addr, msgAccessGranted)
		case billing.AccessUnknown:
			m.notifier.Notify("刷卡", fmt.Sprintf("卡片 %s 有效期缺失，无法判定", card.Serial))
			m.showMessage(addr, msgAccessDenied)
		default:
			m.showMessage(addr, msgAccessDenied)
		}
	case hardware.CardIn:
		if card := m.lookupCard(ctx, addr, event.Serial); card != nil {
			if err := card.Moved(ctx, m.store, addr, true); err != nil {
				m.log.Error("卡片入场留档失败", zap.String("serial", card.Serial), zap.Error(err))
			}
		}
	case hardware.CardOut:
		if card := m.lookupCard(ctx, addr, event.Serial); card != nil {
			if err := card.Moved(ctx, m.store, addr, false); err != nil {
				m.log.Error("卡片出场留档失败", zap.String("serial", card.Serial), zap.Error(err))
			}
		}
	}
}

// lookupCard 解析卡片序列号，未登记或读库失败返回 nil 并通知操作员
func (m *Mainloop) lookupCard(ctx context.Context, addr uint8, serial string) *billing.Card {
	if serial == "" {
		return nil
	}
	card, err := m.store.FindCardBySerial(ctx, serial)
	if err != nil {
		m.log.Error("查询卡片失败", zap.String("serial", serial), zap.Error(err))
		return nil
	}
	if card == nil {
		m.notifier.Notify("刷卡", fmt.Sprintf("%d号车道出现未登记卡片 %s", addr, serial))
		return nil
	}
	return card
}

// processBarcode 处理出口车道的条码读头事件。
// 新读到的条码校验通过即开闸；离场事件在较长的时限内补记出场。
func (m *Mainloop) processBarcode(ctx context.Context, addr uint8) bool {
	event, err := m.terminal.GetBarcode(addr)
	if err != nil {
		m.log.Debug("读取条码事件失败", zap.Uint8("addr", addr), zap.Error(err))
		return false
	}

	switch event.Status {
	case hardware.BarRead:
		if int(event.Elapsed) >= m.cfg.BarcodeTimeout {
			return true
		}
		ticket := m.lookupTicket(ctx, addr, event.Code)
		if ticket == nil {
			m.showMessage(addr, msgAccessDenied)
			return true
		}
		if !ticket.Check() {
			m.notifier.Notify("验票", fmt.Sprintf("停车票 %s 未付费或已超时", ticket.Bar))
			m.showMessage(addr, msgAccessDenied)
			return true
		}
		state := hardware.StateCommand{Reason: hardware.ReasonTicket, Command: hardware.GateOutOpen}
		if err := m.terminal.SetState(addr, state, m.store); err != nil {
			m.log.Error("开闸失败", zap.Uint8("addr", addr), zap.Error(err))
			return true
		}
		m.showMessage(addr, "一路顺风，欢迎再次光临。")
	case hardware.BarLeft:
		if int(event.Elapsed) >= m.cfg.LeaveTimeout {
			return true
		}
		ticket := m.lookupTicket(ctx, addr, event.Code)
		if ticket == nil || !ticket.Check() {
			return true
		}
		if err := ticket.Out(ctx, m.store); err != nil {
			m.log.Error("停车票离场留档失败", zap.String("bar", ticket.Bar), zap.Error(err))
		}
	}
	return true
}

// lookupTicket 解析条码，未登记或读库失败返回 nil 并通知操作员
func (m *Mainloop) lookupTicket(ctx context.Context, addr uint8, bar string) *billing.Ticket {
	if bar == "" {
		return nil
	}
	ticket, err := m.store.FindTicketByBar(ctx, bar)
	if err != nil {
		m.log.Error("查询停车票失败", zap.String("bar", bar), zap.Error(err))
		return nil
	}
	if ticket == nil {
		m.notifier.Notify("验票", fmt.Sprintf("%d号车道出现未登记条码 %s", addr, bar))
		return nil
	}
	return ticket
}

func (m *Mainloop) showMessage(addr uint8, message string) {
	if err := m.terminal.ShowMessage(addr, message, messageStyleDefault); err != nil {
		m.log.Warn("显示消息失败", zap.Uint8("addr", addr), zap.Error(err))
	}
}

package websocket

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/wfunc/park-gate/internal/billing"
)

// LaneStatePayload 车道状态推送
type LaneStatePayload struct {
	Addr   uint8 `json:"addr"`
	Active bool  `json:"active"`
}

// FreePlacesPayload 空位数推送
type FreePlacesPayload struct {
	Free int `json:"free"`
}

// NotificationPayload 操作员通知推送
type NotificationPayload struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// PayablePayload 收银台扫码后的可计费停车票推送
type PayablePayload struct {
	Bar             string     `json:"bar"`
	Status          int        `json:"status"`
	TimeIn          time.Time  `json:"time_in"`
	TimePaid        *time.Time `json:"time_paid,omitempty"`
	TariffID        int        `json:"tariff_id,omitempty"`
	TariffSum       int        `json:"tariff_sum"`
	TariffSumExcess int        `json:"tariff_sum_excess"`
}

// LaneState 广播车道活动状态，供设备主循环回调
func (h *Hub) LaneState(addr uint8, active bool) {
	h.push(MessageTypeLaneState, &LaneStatePayload{Addr: addr, Active: active})
}

// FreePlaces 广播最新空位数，供设备主循环回调
func (h *Hub) FreePlaces(free int) {
	h.push(MessageTypeFreePlaces, &FreePlacesPayload{Free: free})
}

// Notify 广播操作员通知，供设备主循环与收银侧回调
func (h *Hub) Notify(title, message string) {
	h.push(MessageTypeNotification, &NotificationPayload{Title: title, Message: message})
}

// PushPayable 广播收银台扫出的停车票
func (h *Hub) PushPayable(ticket *billing.Ticket) {
	h.push(MessageTypePayable, &PayablePayload{
		Bar:             ticket.Bar,
		Status:          ticket.Status,
		TimeIn:          ticket.TimeIn,
		TimePaid:        ticket.TimePaid,
		TariffID:        ticket.TariffID,
		TariffSum:       ticket.TariffSum,
		TariffSumExcess: ticket.TariffSumExcess,
	})
}

func (h *Hub) push(msgType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("序列化推送消息失败", zap.String("type", msgType), zap.Error(err))
		return
	}
	msg := &Message{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
	select {
	case h.broadcast <- msg:
	default:
		// 广播通道拥塞时丢弃推送，不阻塞设备主循环
		h.logger.Warn("广播通道已满，推送被丢弃", zap.String("type", msgType))
	}
}

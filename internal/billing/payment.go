// Package billing 停车票与卡片的生命周期与准入/付费状态机。
// 由设备轮询在每次读头事件时调用，产出放行/拒绝决定与付费结果。
package billing

import (
	"context"
	"time"

	"github.com/wfunc/park-gate/internal/errors"
)

// PaymentRecord 一笔已执行付费的留档字段
type PaymentRecord struct {
	Kind     string // 付费种类："ticket"、"excess"、"card"、"once"
	TariffID int
	Ref      string // 票条码或卡序列号，一次性付费为空
	Cost     int
	Units    int
	Begin    time.Time
	End      time.Time
	Price    int
}

// Store 计费持久化协作方。只依赖请求/应答契约，存储实现不在此关心。
type Store interface {
	// 首次付费：写入费率与已付截止时刻并升位到已付状态
	UpdateTicketPaid(ctx context.Context, bar string, tariffID, cost, price int, paidUntil time.Time) error
	// 超时补缴：累加补缴金额并更新补缴时刻，状态位不变
	UpdateTicketExcessPaid(ctx context.Context, bar string, price int, paidUntil time.Time) error
	UpdateTicketOut(ctx context.Context, bar string, timeOut time.Time) error

	// 卡片续期：写入新有效期窗口与费率信息
	UpdateCardWindow(ctx context.Context, serial string, begin, end time.Time, tariffID, cost, price int) error
	UpdateCardMoved(ctx context.Context, serial string, inside bool, at time.Time) error

	RecordPassEvent(ctx context.Context, addr uint8, inside bool, ref string) error
	RecordPayment(ctx context.Context, rec *PaymentRecord) error
}

// Payment 一次费率套用的结果：可执行则携带价格与落库动作，
// 不可执行则只携带解释文本。
type Payment interface {
	Enabled() bool
	Price() int
	Explanation() string
	Execute(ctx context.Context, store Store) error
}

// disabledPayment 不可执行的付费结果
type disabledPayment struct {
	explanation string
}

func (p *disabledPayment) Enabled() bool       { return false }
func (p *disabledPayment) Price() int          { return 0 }
func (p *disabledPayment) Explanation() string { return p.explanation }

func (p *disabledPayment) Execute(context.Context, Store) error {
	return errors.New(errors.ErrPaymentDisabled)
}

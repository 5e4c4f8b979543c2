package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/wfunc/park-gate/internal/errors"
	"github.com/wfunc/park-gate/internal/tariff"
)

// 票状态。位只增不减：已付保留入场位，离场保留全部历史位。
// 位值本身是数据源约定，作为不透明标志整体比较。
const (
	TicketIn   = 1  // 0b0001 已入场
	TicketPaid = 5  // 0b0101 已付费
	TicketOut  = 15 // 0b1111 已离场
)

// ExcessInterval 付费后的离场宽限期，超过后需要补缴
const ExcessInterval = 15 * time.Minute

// Ticket 纸质停车票
type Ticket struct {
	ID              int
	Bar             string
	TariffID        int
	TariffPrice     int
	TariffSum       int
	TariffSumExcess int
	TimeIn          time.Time
	TimeOut         *time.Time
	TimePaid        *time.Time
	TimeExcessPaid  *time.Time
	Status          int

	// Payments 本轮出示期间产出的付费结果，供审计与撤销；新一轮出示前清空
	Payments []Payment

	// Clock 为测试注入的时钟，空则使用系统时钟
	Clock func() time.Time
}

func (t *Ticket) now() time.Time {
	if t.Clock != nil {
		return t.Clock()
	}
	return time.Now()
}

// ParseBar 从条码前10位解析入场时刻（月日时分秒）。
// 条码不含年份：先按今年解析，得到未来时刻或非法日期时回退到去年。
func ParseBar(bar string, now time.Time) (time.Time, error) {
	if len(bar) < 10 {
		return time.Time{}, errors.Newf(errors.ErrBarcodeMalformed, "条码过短: %q", bar)
	}
	stamp := bar[:10]

	parse := func(year int) (time.Time, error) {
		return time.ParseInLocation("20060102150405", fmt.Sprintf("%04d%s", year, stamp), now.Location())
	}

	at, err := parse(now.Year())
	if err == nil && !at.After(now) {
		return at, nil
	}
	// 今年解析失败或得到未来时刻：按去年（如2月29日或跨年停车）
	at, err = parse(now.Year() - 1)
	if err != nil {
		return time.Time{}, errors.Newf(errors.ErrBarcodeMalformed, "非法条码时间戳: %q", stamp)
	}
	return at, nil
}

// Pay 以给定费率对票计费
func (t *Ticket) Pay(calc tariff.Calculator) Payment {
	cfg := calc.Tariff()
	if cfg.Type != tariff.TypeFixed && cfg.Type != tariff.TypeDynamic {
		return t.keep(&disabledPayment{explanation: fmt.Sprintf("停车票 %s 不适用此费率", t.Bar)})
	}

	now := t.now()
	switch t.Status {
	case TicketIn:
		return t.keep(newTicketPayment(t, calc, t.TimeIn, now))

	case TicketPaid:
		base := t.TimePaid
		if t.TimeExcessPaid != nil {
			base = t.TimeExcessPaid
		}
		if base == nil {
			break
		}
		if now.Sub(*base) > ExcessInterval {
			return t.keep(newTicketPayment(t, calc, *base, now))
		}
		return t.keep(&disabledPayment{explanation: fmt.Sprintf("停车票 %s 已付费", t.Bar)})

	case TicketOut:
		return t.keep(&disabledPayment{explanation: fmt.Sprintf("停车票 %s 已离场", t.Bar)})
	}

	return t.keep(&disabledPayment{explanation: fmt.Sprintf("停车票 %s 状态异常，无法计费", t.Bar)})
}

// Check 判断当前是否可放行离场：
// 已付费且仍在宽限期内为真，其余情况一律不放行。
func (t *Ticket) Check() bool {
	if t.Status != TicketPaid {
		return false
	}
	now := t.now()
	if t.TimePaid != nil && now.Sub(*t.TimePaid) < ExcessInterval {
		return true
	}
	if t.TimeExcessPaid != nil && now.Sub(*t.TimeExcessPaid) < ExcessInterval {
		return true
	}
	return false
}

// Out 标记车辆已离场
func (t *Ticket) Out(ctx context.Context, store Store) error {
	return store.UpdateTicketOut(ctx, t.Bar, t.now())
}

func (t *Ticket) keep(p Payment) Payment {
	t.Payments = append(t.Payments, p)
	return p
}

// ticketPayment 票的可执行付费：首缴或超时补缴
type ticketPayment struct {
	ticket *Ticket
	calc   tariff.Calculator
	result *tariff.Result
	base   time.Time
	now    time.Time
	first  bool // 是否为首次付费
}

func newTicketPayment(t *Ticket, calc tariff.Calculator, base, now time.Time) Payment {
	return &ticketPayment{
		ticket: t,
		calc:   calc,
		result: calc.Calc(base, now),
		base:   base,
		now:    now,
		first:  t.Status == TicketIn,
	}
}

func (p *ticketPayment) Enabled() bool {
	return true
}

func (p *ticketPayment) Price() int {
	return p.result.Price
}

// PaidUntil 已付截止时刻
func (p *ticketPayment) PaidUntil() time.Time {
	return p.base.Add(p.result.PaidTime)
}

func (p *ticketPayment) Explanation() string {
	if p.first {
		return fmt.Sprintf("停车票 %s 付费。\n入场时间: %s。\n%s",
			p.ticket.Bar, p.ticket.TimeIn.Format("2006-01-02 15:04:05"), p.result)
	}
	return fmt.Sprintf("停车票 %s 补缴。\n上次付费: %s。\n%s",
		p.ticket.Bar, p.base.Format("2006-01-02 15:04:05"), p.result)
}

func (p *ticketPayment) Execute(ctx context.Context, store Store) error {
	cfg := p.calc.Tariff()
	if p.first {
		if err := store.UpdateTicketPaid(ctx, p.ticket.Bar, cfg.ID, p.result.Cost, p.result.Price, p.PaidUntil()); err != nil {
			return err
		}
	} else {
		if err := store.UpdateTicketExcessPaid(ctx, p.ticket.Bar, p.result.Price, p.PaidUntil()); err != nil {
			return err
		}
	}

	kind := "ticket"
	if !p.first {
		kind = "excess"
	}
	return store.RecordPayment(ctx, &PaymentRecord{
		Kind:     kind,
		TariffID: cfg.ID,
		Ref:      p.ticket.Bar,
		Cost:     p.result.Cost,
		Units:    p.result.Units,
		Begin:    p.ticket.TimeIn,
		End:      p.now,
		Price:    p.result.Price,
	})
}

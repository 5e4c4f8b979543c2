package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wfunc/park-gate/internal/tariff"
)

// 卡片类型
const (
	CardStaff   = 0 // 员工卡
	CardOnce    = 1 // 临时卡
	CardClient  = 2 // 月租卡
	CardCashier = 3 // 收银卡
	CardAdmin   = 4 // 管理卡
)

// 卡片状态，互斥，成功通行后翻转为场外/场内
const (
	CardAllowed = 1
	CardLost    = 2
	CardExpired = 3
	CardDenied  = 4
	CardOutside = 5
	CardInside  = 6
)

// 通行方向
const (
	DirectionIn  = 0
	DirectionOut = 1
)

// allowedStatus 按方向索引的放行状态集：入场要求场外，出场要求场内
var allowedStatus = [2][]int{
	{CardAllowed, CardOutside},
	{CardAllowed, CardInside},
}

// Access 准入判定的三态结果。
// 日期缺失或无法解析时为"无法判定"，与明确拒绝是不同含义：
// 拒绝放行并通知操作员，但不做惩罚性处理。
type Access int

const (
	AccessDenied  Access = iota // 明确拒绝
	AccessUnknown               // 无法判定
	AccessGranted               // 允许通行
)

// Card 通行卡片
type Card struct {
	ID      int
	Type    int
	Serial  string
	DateReg *time.Time // 有效期起点，nil 表示缺失或无法解析
	DateEnd *time.Time // 有效期终点
	DateIn  *time.Time
	DateOut *time.Time

	DriverName    string
	DriverSurname string
	DriverPatron  string
	DriverPhone   string
	PlateNumber   string
	VehicleModel  string
	VehicleColor  string

	Status      int
	TariffID    int
	TariffPrice int
	TariffSum   int

	// Payments 本轮出示期间产出的付费结果，新一轮出示前清空
	Payments []Payment

	// Clock 为测试注入的时钟，空则使用系统时钟
	Clock func() time.Time
}

func (c *Card) now() time.Time {
	if c.Clock != nil {
		return c.Clock()
	}
	return time.Now()
}

// FullName 驾驶人全名
func (c *Card) FullName() string {
	parts := []string{c.DriverSurname, c.DriverName, c.DriverPatron}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// Check 判定卡片能否沿给定方向通行
func (c *Card) Check(direction int) Access {
	if c.Type != CardStaff && c.Type != CardClient {
		return AccessDenied
	}
	if !containsInt(allowedStatus[direction], c.Status) {
		return AccessDenied
	}
	if c.Type != CardOnce && c.Type != CardClient {
		return AccessDenied
	}

	if c.DateReg == nil || c.DateEnd == nil {
		return AccessUnknown
	}

	today := dateOnly(c.now())
	if !today.Before(dateOnly(*c.DateReg)) && !today.After(dateOnly(*c.DateEnd)) {
		return AccessGranted
	}
	return AccessDenied
}

// Pay 以给定费率为卡片续期，仅储值与包月费率可执行
func (c *Card) Pay(calc tariff.Calculator) Payment {
	cfg := calc.Tariff()
	if cfg.Type != tariff.TypePrepaid && cfg.Type != tariff.TypeSubscription {
		return c.keep(&disabledPayment{
			explanation: fmt.Sprintf("卡片 %s\n%s。\n不适用此费率。", c.Serial, c.FullName()),
		})
	}
	if c.DateReg == nil || c.DateEnd == nil {
		return c.keep(&disabledPayment{
			explanation: fmt.Sprintf("卡片 %s\n有效期缺失，无法续期。", c.Serial),
		})
	}

	result := calc.Calc(*c.DateReg, *c.DateEnd)
	if result == nil {
		return c.keep(&disabledPayment{
			explanation: fmt.Sprintf("卡片 %s\n%s。\n当前无需续期。", c.Serial, c.FullName()),
		})
	}
	return c.keep(&cardPayment{card: c, calc: calc, result: result})
}

// Moved 车辆通过后翻转卡片状态并留档通行事件
func (c *Card) Moved(ctx context.Context, store Store, addr uint8, inside bool) error {
	if err := store.UpdateCardMoved(ctx, c.Serial, inside, c.now()); err != nil {
		return err
	}
	if inside {
		c.Status = CardInside
	} else {
		c.Status = CardOutside
	}
	return store.RecordPassEvent(ctx, addr, inside, c.Serial)
}

func (c *Card) keep(p Payment) Payment {
	c.Payments = append(c.Payments, p)
	return p
}

// cardPayment 卡片续期付费
type cardPayment struct {
	card   *Card
	calc   tariff.Calculator
	result *tariff.Result
}

func (p *cardPayment) Enabled() bool {
	return true
}

func (p *cardPayment) Price() int {
	return p.result.Price
}

func (p *cardPayment) Explanation() string {
	return fmt.Sprintf("卡片 %s\n%s。\n新有效期 %s 至 %s\n应付: %d",
		p.card.Serial, p.card.FullName(),
		p.result.Begin.Format("2006-01-02"), p.result.End.Format("2006-01-02"), p.result.Price)
}

func (p *cardPayment) Execute(ctx context.Context, store Store) error {
	cfg := p.calc.Tariff()
	if err := store.UpdateCardWindow(ctx, p.card.Serial,
		p.result.Begin, p.result.End, cfg.ID, p.result.Cost, p.result.Price); err != nil {
		return err
	}
	return store.RecordPayment(ctx, &PaymentRecord{
		Kind:     "card",
		TariffID: cfg.ID,
		Ref:      p.card.Serial,
		Cost:     p.result.Cost,
		Units:    p.result.Units,
		Begin:    p.result.Begin,
		End:      p.result.End,
		Price:    p.result.Price,
	})
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func containsInt(set []int, v int) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

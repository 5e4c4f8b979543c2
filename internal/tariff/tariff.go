// Package tariff 费率计算引擎。
//
// 五种费率方案共用同一个计算契约，每种方案有各自的计费单位、舍入与封顶规则。
// 所有计算都是 (开始, 结束, 费率配置) 的纯函数，日历类方案额外注入时钟。
package tariff

import (
	"strconv"
	"strings"
	"time"

	"github.com/wfunc/park-gate/internal/errors"
)

// 费率类型
const (
	TypeFixed        = 1 // 固定单价
	TypeDynamic      = 2 // 分时单价（24小时价格表循环）
	TypeOnce         = 3 // 一次性收费
	TypePrepaid      = 5 // 储值（按日补足到月末）
	TypeSubscription = 6 // 包月（按日历月续期）
)

// 计费单位
const (
	IntervalHourly  = 1
	IntervalDaily   = 2
	IntervalMonthly = 3
)

// DynamicTableLen 分时费率价格表的固定长度
const DynamicTableLen = 24

// DefaultGrace 默认免费时长
const DefaultGrace = 15 * time.Minute

var divisors = map[int]int64{
	IntervalHourly:  60 * 60,
	IntervalDaily:   60 * 60 * 24,
	IntervalMonthly: 60 * 60 * 24 * 30,
}

// ZeroTime 按日计费的每日结算时刻
type ZeroTime struct {
	Hour   int
	Minute int
}

// Tariff 费率配置。加载后不可变，周期性从数据源整体重载。
type Tariff struct {
	ID       int
	Title    string
	Type     int
	Interval int

	// Cost 为标量单价；分时费率改用 CostTable
	Cost      int
	CostTable []int

	ZeroTime  *ZeroTime
	MaxPerDay *int
	Grace     time.Duration
	Note      string
}

// Fields 费率的原始字段形式，来源于数据源的一行记录
type Fields struct {
	ID        int
	Title     string
	Type      int
	Interval  int
	Cost      string // 标量，或空格分隔的24个分时单价
	ZeroTime  string // "HH:MM"，空串表示未配置
	MaxPerDay string // 空串表示不封顶
	FreeTime  int    // 免费秒数，负数表示采用默认值
	Note      string
}

// New 解析并校验费率配置。
// 配置错误立即返回，调用方应将该费率从生效集合中剔除而不是中断轮询。
func New(f Fields) (*Tariff, error) {
	t := &Tariff{
		ID:       f.ID,
		Title:    f.Title,
		Type:     f.Type,
		Interval: f.Interval,
		Note:     f.Note,
	}

	switch f.Type {
	case TypeFixed, TypeDynamic, TypeOnce, TypePrepaid, TypeSubscription:
	default:
		return nil, errors.Newf(errors.ErrTariffType, "未知费率类型: %d", f.Type)
	}

	if _, ok := divisors[f.Interval]; !ok {
		return nil, errors.Newf(errors.ErrTariffInterval, "未知计费单位: %d", f.Interval)
	}
	// 分时费率按小时循环取价，其他计费单位无法与价格表对齐
	if f.Type == TypeDynamic && f.Interval != IntervalHourly {
		return nil, errors.Newf(errors.ErrTariffInterval, "分时费率仅支持按小时计费，当前: %d", f.Interval)
	}

	if err := t.parseCost(f.Cost); err != nil {
		return nil, err
	}
	if err := t.parseZeroTime(f.ZeroTime); err != nil {
		return nil, err
	}
	if f.MaxPerDay != "" {
		cap, err := strconv.Atoi(f.MaxPerDay)
		if err != nil {
			return nil, errors.Newf(errors.ErrTariffCost, "非法日封顶价: %q", f.MaxPerDay)
		}
		t.MaxPerDay = &cap
	}

	if f.FreeTime < 0 {
		t.Grace = DefaultGrace
	} else {
		t.Grace = time.Duration(f.FreeTime) * time.Second
	}
	return t, nil
}

func (t *Tariff) parseCost(raw string) error {
	if t.Type == TypeDynamic {
		parts := strings.Fields(raw)
		if len(parts) != DynamicTableLen {
			return errors.Newf(errors.ErrTariffCost, "分时价格表应有%d项，实际%d项", DynamicTableLen, len(parts))
		}
		t.CostTable = make([]int, DynamicTableLen)
		for i, p := range parts {
			c, err := strconv.Atoi(p)
			if err != nil {
				return errors.Newf(errors.ErrTariffCost, "非法分时单价: %q", p)
			}
			t.CostTable[i] = c
		}
		return nil
	}

	c, err := strconv.Atoi(raw)
	if err != nil {
		return errors.Newf(errors.ErrTariffCost, "非法单价: %q", raw)
	}
	t.Cost = c
	return nil
}

func (t *Tariff) parseZeroTime(raw string) error {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ":")
	if len(parts) != 2 {
		return errors.Newf(errors.ErrTariffZeroTime, "非法结算时刻: %q", raw)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return errors.Newf(errors.ErrTariffZeroTime, "非法结算时刻: %q", raw)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return errors.Newf(errors.ErrTariffZeroTime, "非法结算时刻: %q", raw)
	}
	t.ZeroTime = &ZeroTime{Hour: hour, Minute: minute}
	return nil
}

// Calculator 费率计算契约。
// begin/end 对时长类方案是停车时段，对日历类方案是卡片当前有效期窗口；
// 不可续期或无需付费时返回 nil 结果。
type Calculator interface {
	Tariff() *Tariff
	Calc(begin, end time.Time) *Result
}

// NewCalculator 按费率类型构造计算器。
// 日历类方案用 now 取"今天"，传 nil 则使用系统时钟。
func NewCalculator(t *Tariff, now func() time.Time) (Calculator, error) {
	if now == nil {
		now = time.Now
	}
	switch t.Type {
	case TypeFixed:
		return &Fixed{tariff: t}, nil
	case TypeDynamic:
		return &Dynamic{tariff: t}, nil
	case TypeOnce:
		return &Once{tariff: t}, nil
	case TypePrepaid:
		return &Prepaid{tariff: t, now: now}, nil
	case TypeSubscription:
		return &Subscription{tariff: t, now: now}, nil
	default:
		return nil, errors.Newf(errors.ErrTariffType, "未知费率类型: %d", t.Type)
	}
}

// paidSpan 付费单位覆盖的时长：免费时长加整单位时长
func paidSpan(units int, interval int, grace time.Duration) time.Duration {
	if units == 0 {
		return grace
	}
	return grace + time.Duration(units)*time.Duration(divisors[interval])*time.Second
}

// calcUnits 公共计费单位算法：未超免费时长为0，
// 否则对超出部分按计费单位向上取整。
func calcUnits(begin, end time.Time, grace time.Duration, divisor int64) int {
	seconds := int64(end.Sub(begin) / time.Second)
	graceSeconds := int64(grace / time.Second)
	if seconds < graceSeconds {
		return 0
	}
	billable := seconds - graceSeconds
	units := billable / divisor
	if billable%divisor != 0 {
		units++
	}
	return int(units)
}

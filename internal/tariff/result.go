package tariff

import (
	"fmt"
	"time"
)

// Result 一次费率计算的输出，生成后不再修改
type Result struct {
	// 已停时长拆解
	Days    int
	Hours   int
	Minutes int

	Units int // 计费单位数
	Cost  int // 计算时采用的单价
	Price int // 应付金额

	// PaidTime 本次付费覆盖的时长，含免费时长。
	// 已付截止时刻 = 计费起点 + PaidTime，不早于计费终点。
	PaidTime time.Duration

	// 本次计算覆盖的已付时段
	Begin time.Time
	End   time.Time
}

// newResult 按标量单价构造结果，必要时应用日封顶
func newResult(begin, end time.Time, units, cost int, maxPerDay *int) *Result {
	r := &Result{Units: units, Cost: cost, Begin: begin, End: end}
	r.fillBreakdown(end.Sub(begin))

	r.Price = units * cost
	if maxPerDay != nil && r.Price > *maxPerDay {
		costPerDay := min(*maxPerDay, cost*24)
		r.Price = costPerDay*(units/24) + min((units%24)*cost, *maxPerDay)
	}
	return r
}

// fillBreakdown 把时长拆为天/时/分，天为向下取整，余数保持非负
func (r *Result) fillBreakdown(delta time.Duration) {
	seconds := int64(delta / time.Second)
	days := seconds / 86400
	if seconds%86400 < 0 {
		days--
	}
	rem := seconds - days*86400

	r.Days = int(days)
	r.Hours = int(rem / 3600)
	r.Minutes = int(rem % 3600 / 60)
}

func (r *Result) String() string {
	return fmt.Sprintf("停车 %d天%d时%d分，计费单位 %d，应付 %d", r.Days, r.Hours, r.Minutes, r.Units, r.Price)
}

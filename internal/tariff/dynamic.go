package tariff

import "time"

// Dynamic 分时单价费率：单价按24小时价格表以计费单位序号循环取用，
// 只支持按小时计费。
type Dynamic struct {
	tariff *Tariff
}

func (d *Dynamic) Tariff() *Tariff {
	return d.tariff
}

func (d *Dynamic) Calc(begin, end time.Time) *Result {
	t := d.tariff
	units := calcUnits(begin, end, t.Grace, divisors[IntervalHourly])

	r := &Result{Units: units, Begin: begin, End: end}
	r.fillBreakdown(end.Sub(begin))
	r.PaidTime = paidSpan(units, IntervalHourly, t.Grace)
	r.Price = d.tableSum(units)

	if t.MaxPerDay != nil && r.Price > *t.MaxPerDay {
		costPerDay := min(*t.MaxPerDay, d.tableSum(DynamicTableLen))
		r.Price = costPerDay*(units/24) + min(d.tableSum(units%24), *t.MaxPerDay)
	}
	return r
}

// tableSum 前 units 个计费单位的价格之和，价格表循环取用
func (d *Dynamic) tableSum(units int) int {
	sum := 0
	for u := 0; u < units; u++ {
		sum += d.tariff.CostTable[u%DynamicTableLen]
	}
	return sum
}

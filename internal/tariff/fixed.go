package tariff

import "time"

// Fixed 固定单价费率：应付 = 计费单位数 × 单价。
// 按日计费且配置了每日结算时刻时，以结算时刻为界重新对齐计费边界。
type Fixed struct {
	tariff *Tariff
}

func (f *Fixed) Tariff() *Tariff {
	return f.tariff
}

func (f *Fixed) Calc(begin, end time.Time) *Result {
	t := f.tariff
	if t.Interval == IntervalDaily && t.ZeroTime != nil {
		return f.calcWithPivot(begin, end)
	}
	return f.plain(begin, end)
}

func (f *Fixed) plain(begin, end time.Time) *Result {
	t := f.tariff
	units := calcUnits(begin, end, t.Grace, divisors[t.Interval])
	// 日封顶仅对按小时计费有意义
	var cap *int
	if t.Interval == IntervalHourly {
		cap = t.MaxPerDay
	}
	r := newResult(begin, end, units, t.Cost, cap)
	r.PaidTime = paidSpan(units, t.Interval, t.Grace)
	return r
}

// calcWithPivot 以入场后最近的结算时刻为界：
// 界后部分正常计费，界前零头只有超过免费时长才多算一个单位。
func (f *Fixed) calcWithPivot(begin, end time.Time) *Result {
	t := f.tariff
	pivot := time.Date(begin.Year(), begin.Month(), begin.Day(),
		t.ZeroTime.Hour, t.ZeroTime.Minute, 0, 0, begin.Location())
	if pivot.Before(begin) {
		pivot = pivot.AddDate(0, 0, 1)
	}
	if pivot.After(end) {
		return f.plain(begin, end)
	}

	units := calcUnits(pivot, end, t.Grace, divisors[t.Interval])
	if pivot.Sub(begin) > t.Grace {
		units++
	}
	r := newResult(begin, end, units, t.Cost, nil)
	r.PaidTime = paidSpan(units, t.Interval, t.Grace)
	return r
}

package tariff

import "time"

// Once 一次性收费：与停车时长无关，恒为配置单价
type Once struct {
	tariff *Tariff
}

func (o *Once) Tariff() *Tariff {
	return o.tariff
}

func (o *Once) Calc(begin, end time.Time) *Result {
	r := &Result{Units: 1, Cost: o.tariff.Cost, Price: o.tariff.Cost, Begin: begin, End: end}
	r.fillBreakdown(end.Sub(begin))
	r.PaidTime = end.Sub(begin)
	return r
}

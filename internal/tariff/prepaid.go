package tariff

import "time"

// Prepaid 储值费率：按日补足有效期到本月末。
// begin/end 为卡片当前有效期窗口，返回的结果携带新窗口。
type Prepaid struct {
	tariff *Tariff
	now    func() time.Time
}

func (p *Prepaid) Tariff() *Tariff {
	return p.tariff
}

func (p *Prepaid) Calc(begin, end time.Time) *Result {
	today := dateOf(p.now())
	begin, end = dateOf(begin), dateOf(end)
	monthTail := monthEnd(today)

	// 窗口已失效：从今天起补到月末
	if today.After(end) || today.Before(begin) {
		return p.topUp(today, today, monthTail)
	}

	// 已补足到月末，本月无需再付
	if !end.Before(monthTail) {
		return nil
	}

	// 从当前到期日补到月末，补缴天数含月末当天
	return p.topUp(begin, end, monthTail)
}

// topUp 补缴 [from, monthTail] 的天数，新窗口为 [begin, monthTail]。
// from 与 monthTail 必定同月，按日号差计天不受夏令时影响。
func (p *Prepaid) topUp(begin, from, monthTail time.Time) *Result {
	units := monthTail.Day() - from.Day() + 1
	r := &Result{
		Units: units,
		Cost:  p.tariff.Cost,
		Price: units * p.tariff.Cost,
		Begin: begin,
		End:   monthTail,
	}
	r.fillBreakdown(monthTail.Sub(begin))
	r.PaidTime = monthTail.Sub(begin)
	return r
}

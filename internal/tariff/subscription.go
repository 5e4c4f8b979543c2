package tariff

import "time"

// Subscription 包月费率：按日历月续期。
// begin/end 为卡片当前有效期窗口，返回的结果携带新窗口。
type Subscription struct {
	tariff *Tariff
	now    func() time.Time
}

func (s *Subscription) Tariff() *Tariff {
	return s.tariff
}

func (s *Subscription) Calc(begin, end time.Time) *Result {
	today := dateOf(s.now())
	begin, end = dateOf(begin), dateOf(end)

	// 窗口已失效：重置为本月整月
	if today.After(end) || today.Before(begin) {
		return s.renew(monthStart(today), monthEnd(today))
	}

	// 窗口有效且止于月末：续入下一个整月
	if end.Equal(monthEnd(end)) {
		next := end.AddDate(0, 0, 1)
		return s.renew(next, monthEnd(next))
	}

	// 窗口有效但止于月中，当前不可续期
	return nil
}

func (s *Subscription) renew(begin, end time.Time) *Result {
	r := &Result{Units: 1, Cost: s.tariff.Cost, Price: s.tariff.Cost, Begin: begin, End: end}
	r.fillBreakdown(end.Sub(begin))
	r.PaidTime = end.Sub(begin)
	return r
}

// dateOf 抹去时分秒，只保留日期
func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// monthStart 当月第一天
func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// monthEnd 当月最后一天
func monthEnd(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location())
}

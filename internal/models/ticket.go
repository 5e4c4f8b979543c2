package models

import "time"

// Ticket 纸质停车票表。状态位只增不减：1入场 5已付 15离场。
type Ticket struct {
	BaseModel
	Bar             string     `gorm:"uniqueIndex;size:32;not null" json:"bar"`
	TariffID        int        `json:"tariff_id"`
	TariffPrice     int        `json:"tariff_price"`
	TariffSum       int        `json:"tariff_sum"`        // 首缴金额
	TariffSumExcess int        `json:"tariff_sum_excess"` // 补缴累计金额
	TimeIn          time.Time  `gorm:"not null;index" json:"time_in"`
	TimeOut         *time.Time `json:"time_out,omitempty"`
	TimePaid        *time.Time `json:"time_paid,omitempty"`        // 首缴时已付截止时刻
	TimeExcessPaid  *time.Time `json:"time_excess_paid,omitempty"` // 最近一次补缴的已付截止时刻
	Status          int        `gorm:"not null;default:1" json:"status"`
}

// TableName 指定Ticket表名
func (Ticket) TableName() string {
	return "tickets"
}

package models

import "time"

// PassEvent 车辆通行事件
type PassEvent struct {
	BaseModel
	Addr   uint8     `gorm:"index;not null" json:"addr"`
	Inside bool      `gorm:"not null" json:"inside"`
	Ref    string    `gorm:"size:32" json:"ref"` // 卡序列号或票条码，传感器计数事件为空
	At     time.Time `gorm:"index;not null" json:"at"`
}

// TableName 指定PassEvent表名
func (PassEvent) TableName() string {
	return "pass_events"
}

// GateEvent 开关闸事件，仅命令下发成功后留档
type GateEvent struct {
	BaseModel
	Addr    uint8     `gorm:"index;not null" json:"addr"`
	Reason  int       `gorm:"not null" json:"reason"`
	Command int       `gorm:"not null" json:"command"`
	At      time.Time `gorm:"index;not null" json:"at"`
}

// TableName 指定GateEvent表名
func (GateEvent) TableName() string {
	return "gate_events"
}

// Payment 付费留档表
type Payment struct {
	BaseModel
	Kind     string    `gorm:"size:16;not null;index" json:"kind"` // ticket / excess / card / once
	TariffID int       `gorm:"index" json:"tariff_id"`
	Ref      string    `gorm:"size:32;index" json:"ref"`
	Cost     int       `json:"cost"`
	Units    int       `json:"units"`
	Begin    time.Time `json:"begin"`
	End      time.Time `json:"end"`
	Price    int       `gorm:"not null" json:"price"`
}

// TableName 指定Payment表名
func (Payment) TableName() string {
	return "payments"
}

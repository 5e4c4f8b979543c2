package models

import "time"

// Card 通行卡片表
type Card struct {
	BaseModel
	Type    int        `gorm:"not null" json:"type"` // 0员工 1临时 2月租 3收银 4管理
	Serial  string     `gorm:"uniqueIndex;size:32;not null" json:"serial"`
	DateReg *time.Time `json:"date_reg,omitempty"` // 有效期起点
	DateEnd *time.Time `json:"date_end,omitempty"` // 有效期终点
	DateIn  *time.Time `json:"date_in,omitempty"`  // 最近一次入场
	DateOut *time.Time `json:"date_out,omitempty"` // 最近一次出场

	DriverName    string `gorm:"size:50" json:"driver_name"`
	DriverSurname string `gorm:"size:50" json:"driver_surname"`
	DriverPatron  string `gorm:"size:50" json:"driver_patron"`
	DriverPhone   string `gorm:"size:20" json:"driver_phone"`
	PlateNumber   string `gorm:"size:20" json:"plate_number"`
	VehicleModel  string `gorm:"size:50" json:"vehicle_model"`
	VehicleColor  string `gorm:"size:20" json:"vehicle_color"`

	Status      int `gorm:"not null;default:1" json:"status"` // 1允许 2挂失 3过期 4拒绝 5场外 6场内
	TariffID    int `json:"tariff_id"`
	TariffPrice int `json:"tariff_price"` // 最近一次续期单价
	TariffSum   int `json:"tariff_sum"`   // 最近一次续期金额
}

// TableName 指定Card表名
func (Card) TableName() string {
	return "cards"
}

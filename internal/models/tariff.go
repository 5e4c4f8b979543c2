package models

// Tariff 费率配置表。原始字段形式存储，加载时解析校验，
// 解析失败的费率从生效集合剔除。
type Tariff struct {
	BaseModel
	Title    string `gorm:"size:100;not null" json:"title"`
	Type     int    `gorm:"not null" json:"type"`     // 1固定 2分时 3一次性 5储值 6包月
	Interval int    `gorm:"not null" json:"interval"` // 1小时 2日 3月
	Cost     string `gorm:"size:255;not null" json:"cost"`
	ZeroTime string `gorm:"size:5" json:"zero_time"`    // "HH:MM"，空串未配置
	MaxPerDay string `gorm:"size:16" json:"max_per_day"` // 空串不封顶
	FreeTime int    `gorm:"default:-1" json:"free_time"` // 免费秒数，负数取默认
	Note     string `gorm:"size:255" json:"note"`
	Enabled  bool   `gorm:"default:true" json:"enabled"`
}

// TableName 指定Tariff表名
func (Tariff) TableName() string {
	return "tariffs"
}

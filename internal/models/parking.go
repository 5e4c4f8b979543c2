package models

// LotState 场区状态，单行表
type LotState struct {
	BaseModel
	TotalPlaces int `gorm:"not null" json:"total_places"`
	FreePlaces  int `gorm:"not null" json:"free_places"`
}

// TableName 指定LotState表名
func (LotState) TableName() string {
	return "lot_state"
}

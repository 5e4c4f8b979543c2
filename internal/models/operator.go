package models

import "time"

// Operator 操作员账号表
type Operator struct {
	BaseModel
	Username    string     `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Password    string     `gorm:"size:255;not null" json:"-"`
	Role        string     `gorm:"size:20;default:'operator'" json:"role"` // operator, admin
	Status      string     `gorm:"size:20;default:'active'" json:"status"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	LastLoginIP string     `gorm:"size:50" json:"last_login_ip"`
}

// TableName 指定Operator表名
func (Operator) TableName() string {
	return "operators"
}

// IsActive 检查账号是否可用
func (o *Operator) IsActive() bool {
	return o.Status == "active"
}

// IsAdmin 检查是否为管理员
func (o *Operator) IsAdmin() bool {
	return o.Role == "admin"
}

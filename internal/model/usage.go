package model

import "time"

// UsageCounter 每日请求计数（每个日期一行）
type UsageCounter struct {
	ID            uint      `gorm:"primaryKey" json:"-"`
	Date          string    `gorm:"size:10;uniqueIndex;not null" json:"date"` // YYYY-MM-DD，业务时区
	RequestCount  int       `gorm:"not null;default:0" json:"request_count"`
	LastRequestAt time.Time `json:"last_request_at"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (UsageCounter) TableName() string {
	return "usage_counters"
}

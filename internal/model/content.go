package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Event 活动
type Event struct {
	ID            string     `gorm:"primaryKey;size:36" json:"id"`
	Title         string     `gorm:"size:255;not null" json:"title"`
	TitleRu       string     `gorm:"size:255" json:"title_ru"`
	Description   string     `gorm:"type:text" json:"description"`
	DescriptionRu string     `gorm:"type:text" json:"description_ru"`
	StartDatetime time.Time  `gorm:"index;not null" json:"start_datetime"`
	EndDatetime   *time.Time `json:"end_datetime,omitempty"`
	Location      string     `gorm:"size:255" json:"location"`
	LocationRu    string     `gorm:"size:255" json:"location_ru"`
	EventType     string     `gorm:"size:32;default:general" json:"event_type"`
	Status        string     `gorm:"size:20;default:published" json:"status"`
	CreatedBy     string     `gorm:"size:64" json:"created_by"`
	SourceSession string     `gorm:"size:36;index" json:"source_session,omitempty"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// BeforeCreate GORM 钩子，创建前生成 UUID
func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	return nil
}

// TableName 指定表名
func (Event) TableName() string {
	return "events"
}

// UrgentMessage 紧急通知
type UrgentMessage struct {
	ID            string     `gorm:"primaryKey;size:36" json:"id"`
	Title         string     `gorm:"size:255;not null" json:"title"`
	TitleRu       string     `gorm:"size:255" json:"title_ru"`
	Description   string     `gorm:"type:text;not null" json:"description"`
	DescriptionRu string     `gorm:"type:text" json:"description_ru"`
	MessageType   string     `gorm:"size:20;default:info" json:"message_type"` // info, warning, danger, success
	StartDate     *time.Time `json:"start_date,omitempty"`
	EndDate       *time.Time `json:"end_date,omitempty"`
	IsActive      bool       `gorm:"default:true;index" json:"is_active"`
	CreatedBy     string     `gorm:"size:64" json:"created_by"`
	SourceSession string     `gorm:"size:36;index" json:"source_session,omitempty"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// BeforeCreate GORM 钩子，创建前生成 UUID
func (m *UrgentMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}

// TableName 指定表名
func (UrgentMessage) TableName() string {
	return "urgent_messages"
}

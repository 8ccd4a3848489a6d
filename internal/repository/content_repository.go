package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ashwinyue/committee-assistant/internal/model"
)

// ContentRepository 活动与紧急通知的写入
type ContentRepository struct {
	db *gorm.DB
}

// NewContentRepository 创建内容仓库
func NewContentRepository(db *gorm.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

// CreateEvent 创建活动
func (r *ContentRepository) CreateEvent(ctx context.Context, event *model.Event) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// CreateUrgentMessage 创建紧急通知
func (r *ContentRepository) CreateUrgentMessage(ctx context.Context, msg *model.UrgentMessage) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

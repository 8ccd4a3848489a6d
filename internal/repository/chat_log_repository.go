package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ashwinyue/committee-assistant/internal/model"
)

// ChatLogRepository 助手日志数据访问（只追加）
type ChatLogRepository struct {
	db *gorm.DB
}

// NewChatLogRepository 创建日志仓库
func NewChatLogRepository(db *gorm.DB) *ChatLogRepository {
	return &ChatLogRepository{db: db}
}

// Create 写入一条日志
func (r *ChatLogRepository) Create(ctx context.Context, entry *model.ChatLogEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// List 按时间倒序列出日志，sessionID 为空时不过滤
func (r *ChatLogRepository) List(ctx context.Context, sessionID string, offset, limit int) ([]*model.ChatLogEntry, error) {
	var entries []*model.ChatLogEntry
	query := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Offset(offset).Limit(limit)
	if sessionID != "" {
		query = query.Where("session_id = ?", sessionID)
	}
	err := query.Find(&entries).Error
	return entries, err
}

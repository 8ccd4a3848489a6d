package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/ashwinyue/committee-assistant/internal/model"
)

// incrementSQL 单语句插入或自增，返回自增后的计数
const incrementSQL = `
INSERT INTO usage_counters (date, request_count, last_request_at, created_at, updated_at)
VALUES (?, 1, ?, ?, ?)
ON CONFLICT (date) DO UPDATE
SET request_count = usage_counters.request_count + 1,
    last_request_at = EXCLUDED.last_request_at,
    updated_at = EXCLUDED.updated_at
RETURNING request_count`

// UsageRepository 每日用量计数
type UsageRepository struct {
	db *gorm.DB
}

// NewUsageRepository 创建用量仓库
func NewUsageRepository(db *gorm.DB) *UsageRepository {
	return &UsageRepository{db: db}
}

// Count 读取某日计数，无记录时返回 0
func (r *UsageRepository) Count(ctx context.Context, date string) (int, error) {
	var counter model.UsageCounter
	err := r.db.WithContext(ctx).Where("date = ?", date).First(&counter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return counter.RequestCount, nil
}

// Increment 原子自增某日计数
func (r *UsageRepository) Increment(ctx context.Context, date string, at time.Time) (int, error) {
	var count int
	err := r.db.WithContext(ctx).Raw(incrementSQL, date, at, at, at).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

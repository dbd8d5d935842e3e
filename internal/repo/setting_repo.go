// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Setting
// model (process-wide keyed configuration).
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-agent-bridge/internal/domain"
)

// Well-known setting keys read by the webhook dispatcher.
const (
	SettingKeyAgentURL   = "URL_AGENT"       // external automation webhook
	SettingKeyAnswerHost = "URL_ANSWER_HOST" // public host for callback URLs
)

// GetSettingByKey fetches a setting by its unique key, or ErrNotFound.
func GetSettingByKey(ctx context.Context, db *gorm.DB, key string) (*domain.Setting, error) {
	var s domain.Setting
	if err := db.WithContext(ctx).First(&s, "key = ?", key).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// GetSettingByID fetches a setting by primary key.
func GetSettingByID(ctx context.Context, db *gorm.DB, id uint) (*domain.Setting, error) {
	var s domain.Setting
	if err := db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// SettingExists reports whether a setting with the key already exists.
func SettingExists(ctx context.Context, db *gorm.DB, key string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Setting{}).Where("key = ?", key).Count(&n).Error
	return n > 0, err
}

// ListSettings returns all settings ordered by key.
func ListSettings(ctx context.Context, db *gorm.DB) ([]domain.Setting, error) {
	var out []domain.Setting
	err := db.WithContext(ctx).Order("key asc").Find(&out).Error
	return out, err
}

// CreateSetting inserts a new setting row.
func CreateSetting(ctx context.Context, db *gorm.DB, s *domain.Setting) error {
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(s).Error
}

// SaveSetting persists all fields of an existing setting row.
func SaveSetting(ctx context.Context, db *gorm.DB, s *domain.Setting) error {
	s.UpdatedAt = time.Now().UTC()
	return db.WithContext(ctx).Save(s).Error
}

// DeleteSetting removes a setting by id. Returns ErrNotFound when absent.
func DeleteSetting(ctx context.Context, db *gorm.DB, id uint) error {
	res := db.WithContext(ctx).Delete(&domain.Setting{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

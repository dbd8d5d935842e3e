// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the append-only
// Communication model.
package repo

import (
	"context"
	"encoding/json"
	"errors"

	"gorm.io/gorm"

	"github.com/tbourn/go-agent-bridge/internal/domain"
)

// CreateCommunication appends one communication row for a session. CreatedAt
// is backfilled by the model's BeforeCreate hook when zero, so no row ever
// persists without a timestamp.
func CreateCommunication(ctx context.Context, db *gorm.DB, sessionID string, message json.RawMessage) (*domain.Communication, error) {
	c := &domain.Communication{
		SessionID: sessionID,
		Message:   message,
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// LatestCommunication returns the most recent communication for a session,
// defined as the row with the highest id (ids are monotonic; timestamps may
// collide or be backfilled). Returns (nil, nil) when the session has no
// communications: an empty session is an expected state, not an error.
func LatestCommunication(ctx context.Context, db *gorm.DB, sessionID string) (*domain.Communication, error) {
	var c domain.Communication
	err := db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id desc").
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCommunications returns the full history of a session in insertion
// order (ascending id). Empty slice when the session has none.
func ListCommunications(ctx context.Context, db *gorm.DB, sessionID string) ([]domain.Communication, error) {
	var out []domain.Communication
	err := db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id asc").
		Find(&out).Error
	return out, err
}

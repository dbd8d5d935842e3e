// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User model,
// including the joined lookups used by the session resolver.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-agent-bridge/internal/domain"
)

// GetUserByClientCode fetches the user identified by (username, client_code)
// via a join on clients. Returns ErrNotFound when no such pairing exists.
func GetUserByClientCode(ctx context.Context, db *gorm.DB, username, clientCode string) (*domain.User, error) {
	var u domain.User
	err := db.WithContext(ctx).
		Joins("JOIN clients ON clients.id = users.client_id").
		Where("users.username = ? AND clients.client_code = ?", username, clientCode).
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByUsername fetches a user by username within a single client.
func GetUserByUsername(ctx context.Context, db *gorm.DB, username string, clientID uint) (*domain.User, error) {
	var u domain.User
	err := db.WithContext(ctx).
		Where("username = ? AND client_id = ?", username, clientID).
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserBySession fetches the user owning the given session token, or
// ErrNotFound when no user holds it.
func GetUserBySession(ctx context.Context, db *gorm.DB, sessionID string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).First(&u, "session_id = ?", sessionID).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByID fetches a user by primary key with its client preloaded.
func GetUserByID(ctx context.Context, db *gorm.DB, id uint) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Preload("Client").First(&u, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUsers returns all users with their client preloaded, ordered by id.
func ListUsers(ctx context.Context, db *gorm.DB) ([]domain.User, error) {
	var out []domain.User
	err := db.WithContext(ctx).Preload("Client").Order("id asc").Find(&out).Error
	return out, err
}

// ListUsersByClient returns all users belonging to clientID.
func ListUsersByClient(ctx context.Context, db *gorm.DB, clientID uint) ([]domain.User, error) {
	var out []domain.User
	err := db.WithContext(ctx).
		Preload("Client").
		Where("client_id = ?", clientID).
		Order("id asc").
		Find(&out).Error
	return out, err
}

// UserExists reports whether a user with username already exists under
// clientID (per-client uniqueness check).
func UserExists(ctx context.Context, db *gorm.DB, username string, clientID uint) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.User{}).
		Where("username = ? AND client_id = ?", username, clientID).
		Count(&n).Error
	return n > 0, err
}

// CreateUser inserts a new user row.
func CreateUser(ctx context.Context, db *gorm.DB, u *domain.User) error {
	if u.Status == "" {
		u.Status = domain.StatusActive
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(u).Error
}

// SaveUser persists all fields of an existing user row. The preloaded Client
// association is omitted so saving a moved user never touches client rows.
func SaveUser(ctx context.Context, db *gorm.DB, u *domain.User) error {
	return db.WithContext(ctx).Omit("Client").Save(u).Error
}

// AssignSession sets the session token of an existing user. Returns
// ErrNotFound when the user row is gone.
func AssignSession(ctx context.Context, db *gorm.DB, userID uint, sessionID string) error {
	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", userID).
		Update("session_id", sessionID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteUser removes a user by id. Returns ErrNotFound when absent.
func DeleteUser(ctx context.Context, db *gorm.DB, id uint) error {
	res := db.WithContext(ctx).Delete(&domain.User{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

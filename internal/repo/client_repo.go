// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Client
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a client is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated; translation into stable service
//     errors happens one layer up.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-agent-bridge/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// GetClientByID fetches a client by primary key, or ErrNotFound if missing.
func GetClientByID(ctx context.Context, db *gorm.DB, id uint) (*domain.Client, error) {
	var c domain.Client
	if err := db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// GetClientByCode fetches a client by its unique client_code regardless of
// status, or ErrNotFound if missing.
func GetClientByCode(ctx context.Context, db *gorm.DB, code string) (*domain.Client, error) {
	var c domain.Client
	if err := db.WithContext(ctx).First(&c, "client_code = ?", code).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// GetActiveClientByCode fetches a client by code, restricted to active
// status. Used by the session resolver so inactive tenants reject new
// sessions with the same not-found outcome as unknown codes.
func GetActiveClientByCode(ctx context.Context, db *gorm.DB, code string) (*domain.Client, error) {
	var c domain.Client
	err := db.WithContext(ctx).
		Where("client_code = ? AND status = ?", code, domain.StatusActive).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ClientExistsByCode reports whether any client already uses the code.
func ClientExistsByCode(ctx context.Context, db *gorm.DB, code string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Client{}).Where("client_code = ?", code).Count(&n).Error
	return n > 0, err
}

// ClientExistsByName reports whether a different client (excluding excludeID,
// pass 0 to exclude none) already uses the name.
func ClientExistsByName(ctx context.Context, db *gorm.DB, name string, excludeID uint) (bool, error) {
	var n int64
	q := db.WithContext(ctx).Model(&domain.Client{}).Where("name = ?", name)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	err := q.Count(&n).Error
	return n > 0, err
}

// ListClients returns all clients ordered by id.
func ListClients(ctx context.Context, db *gorm.DB) ([]domain.Client, error) {
	var out []domain.Client
	err := db.WithContext(ctx).Order("id asc").Find(&out).Error
	return out, err
}

// CreateClient inserts a new client row.
func CreateClient(ctx context.Context, db *gorm.DB, c *domain.Client) error {
	if c.Status == "" {
		c.Status = domain.StatusActive
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(c).Error
}

// SaveClient persists all fields of an existing client row.
func SaveClient(ctx context.Context, db *gorm.DB, c *domain.Client) error {
	return db.WithContext(ctx).Save(c).Error
}

// UpdateClientStatus updates the status of the client identified by
// client_code. Returns ErrNotFound when no row matched.
func UpdateClientStatus(ctx context.Context, db *gorm.DB, code, status string) (*domain.Client, error) {
	var c domain.Client
	if err := db.WithContext(ctx).First(&c, "client_code = ?", code).Error; err != nil {
		return nil, err
	}
	c.Status = status
	if err := db.WithContext(ctx).Save(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// DeleteClient removes a client by id. Returns ErrNotFound when the row does
// not exist; referential-integrity violations (users or attributes still
// referencing the client) surface as the raw driver error.
func DeleteClient(ctx context.Context, db *gorm.DB, id uint) error {
	res := db.WithContext(ctx).Delete(&domain.Client{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Package handlers defines the HTTP-layer error codes used across all API
// endpoints.
//
// Codes are lowercase snake_case and stable: clients branch on them for
// programmatic error handling, supplementing the HTTP status. Handlers select
// the most specific matching code and pass it to fail() with the status and a
// human-readable message.
package handlers

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Product catalog proxy:
	ErrCodeBadGateway        = "bad_gateway"
	ErrCodeUpstreamMalformed = "upstream_malformed"
)

// isNotFound reports whether err is a GORM record miss.
func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// isDuplicate reports whether err is a unique-constraint violation. GORM
// normalizes most drivers to ErrDuplicatedKey; the message check covers the
// sqlite and postgres texts that slip through.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}

// isFKViolation reports whether err is a foreign-key restriction, i.e. a
// delete blocked by dependent rows.
func isFKViolation(err error) bool {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "foreign key constraint") ||
		strings.Contains(msg, "violates foreign key")
}

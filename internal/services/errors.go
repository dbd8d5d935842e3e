// Package services defines the business logic for session resolution,
// attribute resolution, webhook dispatch, and the product catalog. This file
// centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer;
// translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import "errors"

var (
	// ErrClientNotFound indicates that no active client matches the given
	// client code. Inactive clients are indistinguishable from unknown ones
	// on the bridge surface.
	ErrClientNotFound = errors.New("client not found")

	// ErrSessionNotFound indicates that no user owns the given session token.
	ErrSessionNotFound = errors.New("session not found")

	// ErrUserNotFound indicates that the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrProductUpstream is returned when the configured product API could
	// not be reached (transport error or timeout).
	ErrProductUpstream = errors.New("product api unavailable")

	// ErrProductMalformed is returned when the product API answered with a
	// body that does not parse as a product list.
	ErrProductMalformed = errors.New("product api returned malformed data")

	// ErrNoProductSource is returned when a client has neither a product API
	// nor a static product list configured.
	ErrNoProductSource = errors.New("no product source configured")
)

// Package services – SessionService
//
// This file implements the SessionService, which owns the find-or-create
// lifecycle of users and their session tokens. Given a human-facing client
// code and a username it resolves (or lazily creates) the user bound to that
// tenant and guarantees the user holds a durable session token. It also
// resolves session tokens back to their owning user and client for the
// answer and satellite read paths.
//
// Observability: public methods are OpenTelemetry-instrumented; spans carry
// the client code or user id involved.
package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-agent-bridge/internal/domain"
	"github.com/tbourn/go-agent-bridge/internal/repo"
)

// SessionService resolves (clientCode, username) pairs to users and session
// tokens, creating both lazily on first contact.
type SessionService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// NewSessionService constructs a SessionService.
func NewSessionService(db *gorm.DB) *SessionService {
	return &SessionService{DB: db}
}

// Resolve finds or creates the user identified by (clientCode, username) and
// guarantees the returned user carries a session token.
//
// Semantics:
//   - An existing (username, client_code) pairing is fetched, never
//     recreated: repeat calls return the same user id and token.
//   - A miss requires an *active* client with that code; unknown or inactive
//     codes yield ErrClientNotFound and no user row is written.
//   - User creation and token assignment happen in one transaction, so no
//     reader ever observes a committed user without a token.
//   - Existing users that predate token assignment get one lazily.
func (s *SessionService) Resolve(ctx context.Context, clientCode, username string) (*domain.User, *domain.Client, error) {
	tr := otel.Tracer("services/SessionService")
	ctx, span := tr.Start(ctx, "Resolve",
		trace.WithAttributes(
			attribute.String("client.code", clientCode),
			attribute.String("user.name", username),
		),
	)
	defer span.End()

	user, err := repo.GetUserByClientCode(ctx, s.DB, username, clientCode)
	switch {
	case err == nil:
		client, cerr := repo.GetClientByID(ctx, s.DB, user.ClientID)
		if cerr != nil {
			return nil, nil, cerr
		}
		if user.SessionID == nil || *user.SessionID == "" {
			token := uuid.NewString()
			if aerr := repo.AssignSession(ctx, s.DB, user.ID, token); aerr != nil {
				return nil, nil, aerr
			}
			user.SessionID = &token
		}
		return user, client, nil

	case errors.Is(err, gorm.ErrRecordNotFound):
		client, cerr := repo.GetActiveClientByCode(ctx, s.DB, clientCode)
		if cerr != nil {
			if errors.Is(cerr, gorm.ErrRecordNotFound) {
				return nil, nil, ErrClientNotFound
			}
			return nil, nil, cerr
		}

		token := uuid.NewString()
		u := &domain.User{
			Username:  username,
			ClientID:  client.ID,
			SessionID: &token,
		}
		txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return repo.CreateUser(ctx, tx, u)
		})
		if txErr != nil {
			return nil, nil, txErr
		}
		return u, client, nil

	default:
		return nil, nil, err
	}
}

// ResolveSession maps a session token to its owning user and client.
// Returns ErrSessionNotFound when no user holds the token.
func (s *SessionService) ResolveSession(ctx context.Context, sessionID string) (*domain.User, *domain.Client, error) {
	tr := otel.Tracer("services/SessionService")
	ctx, span := tr.Start(ctx, "ResolveSession")
	defer span.End()

	user, err := repo.GetUserBySession(ctx, s.DB, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrSessionNotFound
		}
		return nil, nil, err
	}
	client, err := repo.GetClientByID(ctx, s.DB, user.ClientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrClientNotFound
		}
		return nil, nil, err
	}
	return user, client, nil
}

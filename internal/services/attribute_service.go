// Package services – AttributeService
//
// This file implements the AttributeService, which flattens a client's
// configured attributes (the attribute-template join) into plain key→value
// maps consumed by the rules endpoint and the webhook payload builders.
package services

import (
	"context"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-agent-bridge/internal/repo"
)

// AttributeService resolves a client's configuration view. Read-only.
type AttributeService struct {
	// DB is the GORM handle used for queries.
	DB *gorm.DB
}

// NewAttributeService constructs an AttributeService.
func NewAttributeService(db *gorm.DB) *AttributeService {
	return &AttributeService{DB: db}
}

// ResolveByDescription returns the client's attributes keyed by template
// description. Descriptions are not guaranteed unique, so a later row
// silently wins on collision. A client with zero attributes yields an empty
// map, never an error.
func (s *AttributeService) ResolveByDescription(ctx context.Context, clientID uint) (map[string]string, error) {
	return s.resolve(ctx, clientID, func(v repo.AttributeValue) string { return v.TemplateDescription })
}

// ResolveByKey returns the client's attributes keyed by template key.
// Template keys are unique, so no collisions are possible on this variant.
func (s *AttributeService) ResolveByKey(ctx context.Context, clientID uint) (map[string]string, error) {
	return s.resolve(ctx, clientID, func(v repo.AttributeValue) string { return v.TemplateKey })
}

func (s *AttributeService) resolve(ctx context.Context, clientID uint, keyOf func(repo.AttributeValue) string) (map[string]string, error) {
	tr := otel.Tracer("services/AttributeService")
	ctx, span := tr.Start(ctx, "Resolve",
		trace.WithAttributes(attribute.Int64("client.id", int64(clientID))),
	)
	defer span.End()

	rows, err := repo.ListClientAttributeValues(ctx, s.DB, clientID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, v := range rows {
		out[keyOf(v)] = v.Value
	}
	return out, nil
}

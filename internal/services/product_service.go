// Package services – ProductService
//
// This file implements the ProductService, which resolves a client's product
// catalog. Unlike webhook dispatch, this path's response *is* the product
// data, so upstream failures are translated into distinct caller-visible
// errors instead of being swallowed.
package services

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-agent-bridge/internal/domain"
)

// ProductService fetches product identifiers for a client, preferring the
// client's external product API and falling back to its static list.
type ProductService struct {
	// HTTP is the outbound client; its Timeout bounds every proxy call.
	HTTP *http.Client
}

// NewProductService constructs a ProductService with a timeout-bounded client.
func NewProductService(timeout time.Duration) *ProductService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ProductService{HTTP: &http.Client{Timeout: timeout}}
}

// Catalog returns the client's product identifiers.
//
// Source precedence:
//  1. product_api configured: GET it and decode a JSON string array.
//     Transport errors and timeouts yield ErrProductUpstream; a response
//     that does not decode yields ErrProductMalformed.
//  2. product_list configured: comma-split, trimmed, empties dropped.
//  3. Neither: ErrNoProductSource.
func (s *ProductService) Catalog(ctx context.Context, client *domain.Client) ([]string, error) {
	if client.ProductAPI != "" {
		return s.fetch(ctx, client.ProductAPI)
	}
	if strings.TrimSpace(client.ProductList) != "" {
		return splitProductList(client.ProductList), nil
	}
	return nil, ErrNoProductSource
}

func (s *ProductService) fetch(ctx context.Context, url string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, ErrProductUpstream
	}
	resp, err := s.HTTP.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("url", url).Msg("product api unreachable")
		return nil, ErrProductUpstream
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Warn().Int("status", resp.StatusCode).Str("url", url).Msg("product api error status")
		return nil, ErrProductUpstream
	}

	var products []string
	if err := json.NewDecoder(resp.Body).Decode(&products); err != nil {
		log.Warn().Err(err).Str("url", url).Msg("product api returned malformed body")
		return nil, ErrProductMalformed
	}
	return products, nil
}

// splitProductList parses the static comma-separated fallback catalog.
func splitProductList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

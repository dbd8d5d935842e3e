// Package services – WebhookService
//
// This file implements the WebhookService, which bridges user questions to
// the externally configured automation webhook. Dispatch is fire-and-forget:
// the question-intake caller has already answered its own HTTP request by the
// time the POST happens, so every failure here is logged and swallowed.
//
// The webhook URL and the service's public host are read from the settings
// table on every dispatch (not from the environment), so operators can repoint
// the automation tool without a restart.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-agent-bridge/internal/config"
	"github.com/tbourn/go-agent-bridge/internal/domain"
	"github.com/tbourn/go-agent-bridge/internal/repo"
)

// webhookDispatches counts outbound webhook attempts by outcome
// (ok, error, skipped).
var webhookDispatches = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "webhook_dispatches_total",
		Help: "Total number of outbound webhook dispatch attempts.",
	},
	[]string{"outcome"},
)

func init() {
	prometheus.MustRegister(webhookDispatches)
}

// WebhookPayload is the JSON body posted to the external webhook. The *_ep
// fields are fully qualified callback URLs pointing back at this service;
// the external agent calls them to deliver answers and to look up client
// context while composing one.
type WebhookPayload struct {
	SessionID string `json:"session_id"`
	Prompt    string `json:"prompt"`
	AnswerEP  string `json:"answer_ep"`
	ClientEP  string `json:"client_ep,omitempty"`
	RuleEP    string `json:"rule_ep,omitempty"`
	ProductEP string `json:"product_ep,omitempty"`
}

// WebhookService posts user prompts to the external automation webhook.
type WebhookService struct {
	// DB is the GORM handle used to read settings.
	DB *gorm.DB
	// HTTP is the outbound client; its Timeout bounds every dispatch.
	HTTP *http.Client
	// Bridge supplies the endpoint paths and public port interpolated into
	// callback URLs.
	Bridge config.BridgeConfig
}

// NewWebhookService constructs a WebhookService with a timeout-bounded client.
func NewWebhookService(db *gorm.DB, bridge config.BridgeConfig, timeout time.Duration) *WebhookService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookService{
		DB:     db,
		HTTP:   &http.Client{Timeout: timeout},
		Bridge: bridge,
	}
}

// Dispatch posts the user's prompt to the configured webhook. It never
// returns an error: a missing webhook setting is a silent no-op, and network
// or upstream failures are logged at warn level and dropped. Callers invoke
// it from a detached goroutine with a background context.
func (s *WebhookService) Dispatch(ctx context.Context, user *domain.User, client *domain.Client, prompt string) {
	webhook, err := repo.GetSettingByKey(ctx, s.DB, repo.SettingKeyAgentURL)
	if err != nil || webhook.Value == "" {
		webhookDispatches.WithLabelValues("skipped").Inc()
		log.Debug().Str("client_code", client.ClientCode).Msg("webhook dispatch skipped: no agent URL configured")
		return
	}

	host := ""
	if hostSetting, herr := repo.GetSettingByKey(ctx, s.DB, repo.SettingKeyAnswerHost); herr == nil {
		host = hostSetting.Value
	}

	sessionID := ""
	if user.SessionID != nil {
		sessionID = *user.SessionID
	}

	payload := WebhookPayload{
		SessionID: sessionID,
		Prompt:    prompt,
		AnswerEP:  s.callbackURL(host, s.Bridge.AnswerPath),
		ClientEP:  s.callbackURL(host, s.Bridge.ClientPath),
		RuleEP:    s.callbackURL(host, s.Bridge.RulesPath),
		ProductEP: s.callbackURL(host, s.Bridge.ProductsPath),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		log.Warn().Err(err).Msg("webhook dispatch: marshal payload")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhook.Value, bytes.NewReader(body))
	if err != nil {
		log.Warn().Err(err).Str("url", webhook.Value).Msg("webhook dispatch: build request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.HTTP.Do(req)
	if err != nil {
		webhookDispatches.WithLabelValues("error").Inc()
		log.Warn().Err(err).Str("url", webhook.Value).Msg("webhook dispatch failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		webhookDispatches.WithLabelValues("error").Inc()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		log.Warn().
			Int("status", resp.StatusCode).
			Str("url", webhook.Value).
			Str("body", string(respBody)).
			Msg("webhook dispatch: non-2xx response")
		return
	}
	webhookDispatches.WithLabelValues("ok").Inc()
}

// callbackURL joins the public host setting, the advertised port, and an
// endpoint path into the URL handed to the external agent.
func (s *WebhookService) callbackURL(host, path string) string {
	if host == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s%s", host, s.Bridge.PublicPort, path)
}

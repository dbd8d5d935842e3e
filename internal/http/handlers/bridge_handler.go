// Bridge HTTP handlers.
//
// This file exposes the endpoints the external automation agent and the chat
// widget talk to:
//   - GET /question   (user prompt intake; kicks off webhook dispatch)
//   - GET /answer     (agent signals a stored reply; pushed over WebSocket)
//   - GET /client     (client description for the agent's prompt context)
//   - GET /rules      (client attribute map for the agent's prompt context)
//   - GET /products   (client product catalog, proxied or static)
//   - GET /ws/:user_id (WebSocket upgrade for live notifications)
//
// Handlers are transport-thin: they validate input, call application
// services, and translate results into HTTP responses. Side effects that must
// not delay the response (webhook dispatch, notification pings) run in
// detached goroutines with a background context; their failures are logged,
// never surfaced.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-agent-bridge/internal/domain"
	"github.com/tbourn/go-agent-bridge/internal/http/middleware"
	"github.com/tbourn/go-agent-bridge/internal/repo"
	"github.com/tbourn/go-agent-bridge/internal/services"
	"github.com/tbourn/go-agent-bridge/internal/ws"
)

// newMessagePing is the opaque payload pushed to a user's socket when their
// prompt has been accepted.
const newMessagePing = "new_message"

// BridgeHandlers groups the agent-facing endpoints. All dependencies are
// injected by the router.
type BridgeHandlers struct {
	DB         *gorm.DB
	Sessions   *services.SessionService
	Attributes *services.AttributeService
	Webhooks   *services.WebhookService
	Products   *services.ProductService
	Registry   *ws.Registry
}

// NewBridgeHandlers constructs a BridgeHandlers bound to the given services.
func NewBridgeHandlers(db *gorm.DB, sessions *services.SessionService, attrs *services.AttributeService, webhooks *services.WebhookService, products *services.ProductService, registry *ws.Registry) *BridgeHandlers {
	return &BridgeHandlers{
		DB:         db,
		Sessions:   sessions,
		Attributes: attrs,
		Webhooks:   webhooks,
		Products:   products,
		Registry:   registry,
	}
}

// StatusResponse is the minimal acknowledgement body of the intake endpoints.
type StatusResponse struct {
	Status string `json:"status" example:"message received"`
}

// Notification is the JSON frame pushed over the WebSocket when the agent
// reports a new answer.
type Notification struct {
	ID        uint            `json:"id"`
	SessionID string          `json:"session_id"`
	Message   json.RawMessage `json:"message"`
	CreatedAt time.Time       `json:"created_at"`
}

// Question godoc
// @ID          bridgeQuestion
// @Summary     Accept a user prompt
// @Description Resolves (or creates) the user's session, pings the user's live connection, and forwards the prompt to the configured automation webhook. The webhook call is fire-and-forget; this endpoint acknowledges immediately.
// @Tags        Bridge
// @Produce     json
//
// @Param       username     query  string  true  "End-user identifier within the client"
// @Param       client_code  query  string  true  "Tenant client code"
// @Param       text         query  string  true  "The user's prompt"
//
// @Success     200  {object}  handlers.StatusResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Missing parameters"
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown or inactive client"
// @Router      /question [get]
func (h *BridgeHandlers) Question(c *gin.Context) {
	username := strings.TrimSpace(c.Query("username"))
	clientCode := strings.TrimSpace(c.Query("client_code"))
	text := c.Query("text")

	if username == "" || clientCode == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "username and client_code are required")
		return
	}

	user, client, err := h.Sessions.Resolve(c.Request.Context(), clientCode, username)
	if err != nil {
		if errors.Is(err, services.ErrClientNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "client not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	// The response must not wait on the webhook or the socket. Both side
	// effects detach with a background context; the request context dies as
	// soon as this handler returns.
	userID := user.ID
	go func() {
		h.Registry.Send(userID, []byte(newMessagePing))
	}()
	go h.Webhooks.Dispatch(context.Background(), user, client, text)

	ok(c, http.StatusOK, StatusResponse{Status: "message received"})
}

// Answer godoc
// @ID          bridgeAnswer
// @Summary     Notify a user of a new answer
// @Description Called by the automation agent after it stored its reply as a communication. Pushes the latest communication for the session to the user's live connection. Delivery is best-effort: an absent connection still yields a 200.
// @Tags        Bridge
// @Produce     json
//
// @Param       session_id  query  string  true  "Session token"
//
// @Success     200  {object}  handlers.StatusResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Missing session_id"
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown session"
// @Router      /answer [get]
func (h *BridgeHandlers) Answer(c *gin.Context) {
	sessionID := strings.TrimSpace(c.Query("session_id"))
	if sessionID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "session_id is required")
		return
	}

	user, _, err := h.Sessions.ResolveSession(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "session not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	comm, err := repo.LatestCommunication(c.Request.Context(), h.DB, sessionID)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	if comm == nil {
		ok(c, http.StatusOK, StatusResponse{Status: "no new message to send"})
		return
	}

	createdAt := comm.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	frame, err := json.Marshal(Notification{
		ID:        comm.ID,
		SessionID: comm.SessionID,
		Message:   comm.Message,
		CreatedAt: createdAt,
	})
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	if !h.Registry.Send(user.ID, frame) {
		middleware.LoggerFrom(c).Debug().
			Uint("user_id", user.ID).
			Msg("notification dropped: no live connection")
	}
	ok(c, http.StatusOK, StatusResponse{Status: "notification sent"})
}

// ClientContext godoc
// @ID          bridgeClient
// @Summary     Client description for a session
// @Description Returns the description of the client owning the session. The agent uses it as prompt context.
// @Tags        Bridge
// @Produce     json
//
// @Param       session_id  query  string  true  "Session token"
//
// @Success     200  {object}  map[string]string
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown session"
// @Router      /client [get]
func (h *BridgeHandlers) ClientContext(c *gin.Context) {
	_, client, done := h.resolveSessionParam(c)
	if done {
		return
	}
	ok(c, http.StatusOK, gin.H{"description": client.Description})
}

// Rules godoc
// @ID          bridgeRules
// @Summary     Client attribute map for a session
// @Description Returns the owning client's attributes keyed by template description. A client with no attributes yields an empty object.
// @Tags        Bridge
// @Produce     json
//
// @Param       session_id  query  string  true  "Session token"
//
// @Success     200  {object}  map[string]string
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown session"
// @Router      /rules [get]
func (h *BridgeHandlers) Rules(c *gin.Context) {
	_, client, done := h.resolveSessionParam(c)
	if done {
		return
	}
	rules, err := h.Attributes.ResolveByDescription(c.Request.Context(), client.ID)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, rules)
}

// ProductCatalog godoc
// @ID          bridgeProducts
// @Summary     Client product catalog for a session
// @Description Returns the owning client's product identifiers, proxied from its product API or parsed from its static list.
// @Tags        Bridge
// @Produce     json
//
// @Param       session_id  query  string  true  "Session token"
//
// @Success     200  {array}   string
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown session or no product source"
// @Failure     500  {object}  handlers.ErrorResponse  "Product API returned a malformed body"
// @Failure     502  {object}  handlers.ErrorResponse  "Product API unreachable"
// @Router      /products [get]
func (h *BridgeHandlers) ProductCatalog(c *gin.Context) {
	_, client, done := h.resolveSessionParam(c)
	if done {
		return
	}
	products, err := h.Products.Catalog(c.Request.Context(), client)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNoProductSource):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "client has no product source configured")
		case errors.Is(err, services.ErrProductUpstream):
			fail(c, http.StatusBadGateway, ErrCodeBadGateway, "product API unreachable")
		case errors.Is(err, services.ErrProductMalformed):
			fail(c, http.StatusInternalServerError, ErrCodeUpstreamMalformed, "product API returned a malformed body")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, products)
}

// Connect godoc
// @ID          bridgeConnect
// @Summary     Open the live notification socket
// @Description Upgrades the request to a WebSocket and registers it as the user's live connection. A reconnect replaces the previous connection.
// @Tags        Bridge
//
// @Param       user_id  path  int  true  "User id"
//
// @Success     101  {string}  string  "Switching Protocols"
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid user id"
// @Router      /ws/{user_id} [get]
func (h *BridgeHandlers) Connect(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid user id")
		return
	}
	h.Registry.Serve(c, uint(userID))
}

// resolveSessionParam maps the session_id query parameter to its user and
// client, writing the error response itself. done is true when a response has
// been written and the caller must return.
func (h *BridgeHandlers) resolveSessionParam(c *gin.Context) (*domain.User, *domain.Client, bool) {
	sessionID := strings.TrimSpace(c.Query("session_id"))
	if sessionID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "session_id is required")
		return nil, nil, true
	}
	user, client, err := h.Sessions.ResolveSession(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "session not found")
		} else {
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return nil, nil, true
	}
	return user, client, false
}

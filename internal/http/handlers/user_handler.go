// User HTTP handlers.
//
// REST endpoints for end users under /api:
//   - GET    /users            (list, client-enriched)
//   - GET    /users/session    (find-or-create by client_code+username)
//   - GET    /users/:id        (get)
//   - POST   /users            (create)
//   - PUT    /users/:id        (update)
//   - DELETE /users/:id        (delete; blocked by dependent rows)
//
// Plus GET /clients/:id/users, which lists a tenant's users by client code.
//
// The /users/session endpoint is the operator-facing twin of the bridge's
// /question intake: same find-or-create semantics (shared via the session
// service), but it also returns the session's communication history.
package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-agent-bridge/internal/domain"
	"github.com/tbourn/go-agent-bridge/internal/repo"
	"github.com/tbourn/go-agent-bridge/internal/services"
)

// UserHandlers groups the user CRUD endpoints.
type UserHandlers struct {
	DB       *gorm.DB
	Sessions *services.SessionService
}

// NewUserHandlers constructs a UserHandlers.
func NewUserHandlers(db *gorm.DB, sessions *services.SessionService) *UserHandlers {
	return &UserHandlers{DB: db, Sessions: sessions}
}

// CreateUserRequest is the JSON payload for creating a user.
type CreateUserRequest struct {
	Username string `json:"username" binding:"required,min=1,max=255"`
	ClientID uint   `json:"client_id" binding:"required"`
	Status   string `json:"status"`
}

// UpdateUserRequest is the JSON payload for updating a user. Nil fields are
// left untouched.
type UpdateUserRequest struct {
	Username *string `json:"username"`
	ClientID *uint   `json:"client_id"`
	Status   *string `json:"status"`
}

// UserResponse is a user enriched with its client's code and name.
type UserResponse struct {
	ID         uint      `json:"id"`
	Username   string    `json:"username"`
	ClientID   uint      `json:"client_id"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	SessionID  *string   `json:"session_id,omitempty"`
	ClientCode string    `json:"client_code,omitempty"`
	ClientName string    `json:"client_name,omitempty"`
}

// UserSessionResponse is the find-or-create result of /users/session: the
// resolved user, its tenant, and the session's communication history.
type UserSessionResponse struct {
	UserID         uint                   `json:"user_id"`
	Username       string                 `json:"username"`
	SessionID      *string                `json:"session_id"`
	ClientID       uint                   `json:"client_id"`
	ClientCode     string                 `json:"client_code"`
	ClientName     string                 `json:"client_name"`
	Communications []domain.Communication `json:"communications"`
}

func userResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:         u.ID,
		Username:   u.Username,
		ClientID:   u.ClientID,
		Status:     u.Status,
		CreatedAt:  u.CreatedAt,
		SessionID:  u.SessionID,
		ClientCode: u.Client.ClientCode,
		ClientName: u.Client.Name,
	}
}

// ListUsers godoc
// @ID          listUsers
// @Summary     List users
// @Tags        Users
// @Produce     json
// @Success     200  {array}   handlers.UserResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /users [get]
func (h *UserHandlers) ListUsers(c *gin.Context) {
	users, err := repo.ListUsers(c.Request.Context(), h.DB)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, userResponse(&users[i]))
	}
	ok(c, http.StatusOK, out)
}

// GetUserSession godoc
// @ID          getUserSession
// @Summary     Resolve (or create) a user session
// @Description Finds or creates the user for the given client code and username, guarantees a session token, and returns the session's communication history in ascending order.
// @Tags        Users
// @Produce     json
// @Param       client_code  query  string  true  "Tenant client code"
// @Param       username     query  string  true  "End-user identifier"
// @Success     200  {object}  handlers.UserSessionResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown or inactive client"
// @Router      /users/session [get]
func (h *UserHandlers) GetUserSession(c *gin.Context) {
	clientCode := strings.TrimSpace(c.Query("client_code"))
	username := strings.TrimSpace(c.Query("username"))
	if clientCode == "" || username == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "client_code and username are required")
		return
	}
	ctx := c.Request.Context()

	user, client, err := h.Sessions.Resolve(ctx, clientCode, username)
	if err != nil {
		if errors.Is(err, services.ErrClientNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "client not found or inactive")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	comms := []domain.Communication{}
	if user.SessionID != nil {
		comms, err = repo.ListCommunications(ctx, h.DB, *user.SessionID)
		if err != nil {
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
			return
		}
	}

	ok(c, http.StatusOK, UserSessionResponse{
		UserID:         user.ID,
		Username:       user.Username,
		SessionID:      user.SessionID,
		ClientID:       user.ClientID,
		ClientCode:     client.ClientCode,
		ClientName:     client.Name,
		Communications: comms,
	})
}

// ListUsersForClient godoc
// @ID          listUsersForClient
// @Summary     List a client's users
// @Tags        Users
// @Produce     json
// @Param       id  path  string  true  "Client code"
// @Success     200  {array}   handlers.UserResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /clients/{id}/users [get]
func (h *UserHandlers) ListUsersForClient(c *gin.Context) {
	clientCode := c.Param("id")
	ctx := c.Request.Context()

	client, err := repo.GetClientByCode(ctx, h.DB, clientCode)
	if err != nil {
		if isNotFound(err) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "client not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	users, err := repo.ListUsersByClient(ctx, h.DB, client.ID)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, userResponse(&users[i]))
	}
	ok(c, http.StatusOK, out)
}

// GetUser godoc
// @ID          getUser
// @Summary     Get a user by id
// @Tags        Users
// @Produce     json
// @Param       id  path  int  true  "User id"
// @Success     200  {object}  handlers.UserResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /users/{id} [get]
func (h *UserHandlers) GetUser(c *gin.Context) {
	id, bad := pathID(c)
	if bad {
		return
	}
	user, err := repo.GetUserByID(c.Request.Context(), h.DB, id)
	if err != nil {
		if isNotFound(err) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, userResponse(user))
}

// CreateUser godoc
// @ID          createUser
// @Summary     Create a user
// @Tags        Users
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.CreateUserRequest  true  "User payload"
// @Success     201  {object}  handlers.UserResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Unknown client"
// @Failure     409  {object}  handlers.ErrorResponse  "Username taken for this client"
// @Router      /users [post]
func (h *UserHandlers) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	ctx := c.Request.Context()

	if _, err := repo.GetClientByID(ctx, h.DB, req.ClientID); err != nil {
		if isNotFound(err) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "client not found for the given client_id")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	if exists, err := repo.UserExists(ctx, h.DB, req.Username, req.ClientID); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	} else if exists {
		fail(c, http.StatusConflict, ErrCodeConflict, "user with this username already exists for this client")
		return
	}

	user := &domain.User{
		Username: strings.TrimSpace(req.Username),
		ClientID: req.ClientID,
		Status:   req.Status,
	}
	if err := repo.CreateUser(ctx, h.DB, user); err != nil {
		if isDuplicate(err) {
			fail(c, http.StatusConflict, ErrCodeConflict, "user already exists")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	created, err := repo.GetUserByID(ctx, h.DB, user.ID)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusCreated, userResponse(created))
}

// UpdateUser godoc
// @ID          updateUser
// @Summary     Update a user
// @Description Applies the non-nil fields. Moving a user to another client or renaming it is rejected when it would collide with an existing (client, username) pair.
// @Tags        Users
// @Accept      json
// @Produce     json
// @Param       id    path  int                         true  "User id"
// @Param       body  body  handlers.UpdateUserRequest  true  "Update payload"
// @Success     200  {object}  handlers.UserResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Failure     409  {object}  handlers.ErrorResponse  "Username taken"
// @Router      /users/{id} [put]
func (h *UserHandlers) UpdateUser(c *gin.Context) {
	id, bad := pathID(c)
	if bad {
		return
	}
	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	ctx := c.Request.Context()

	user, err := repo.GetUserByID(ctx, h.DB, id)
	if err != nil {
		if isNotFound(err) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	targetName := user.Username
	if req.Username != nil {
		targetName = strings.TrimSpace(*req.Username)
	}
	targetClient := user.ClientID
	if req.ClientID != nil {
		targetClient = *req.ClientID
	}

	if targetClient != user.ClientID {
		if _, cerr := repo.GetClientByID(ctx, h.DB, targetClient); cerr != nil {
			if isNotFound(cerr) {
				fail(c, http.StatusBadRequest, ErrCodeBadRequest, "client not found for the given client_id")
				return
			}
			fail(c, http.StatusInternalServerError, ErrCodeInternal, cerr.Error())
			return
		}
	}
	if targetName != user.Username || targetClient != user.ClientID {
		other, gerr := repo.GetUserByUsername(ctx, h.DB, targetName, targetClient)
		if gerr != nil && !isNotFound(gerr) {
			fail(c, http.StatusInternalServerError, ErrCodeInternal, gerr.Error())
			return
		}
		if gerr == nil && other.ID != user.ID {
			fail(c, http.StatusConflict, ErrCodeConflict, "user with this username already exists for the target client")
			return
		}
	}

	user.Username = targetName
	user.ClientID = targetClient
	if req.Status != nil {
		user.Status = *req.Status
	}
	if err := repo.SaveUser(ctx, h.DB, user); err != nil {
		if isDuplicate(err) {
			fail(c, http.StatusConflict, ErrCodeConflict, "user already exists")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	updated, err := repo.GetUserByID(ctx, h.DB, user.ID)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, userResponse(updated))
}

// DeleteUser godoc
// @ID          deleteUser
// @Summary     Delete a user
// @Tags        Users
// @Param       id  path  int  true  "User id"
// @Success     204  {string}  string  "No Content"
// @Failure     404  {object}  handlers.ErrorResponse
// @Failure     409  {object}  handlers.ErrorResponse  "User still referenced"
// @Router      /users/{id} [delete]
func (h *UserHandlers) DeleteUser(c *gin.Context) {
	id, bad := pathID(c)
	if bad {
		return
	}
	if err := repo.DeleteUser(c.Request.Context(), h.DB, id); err != nil {
		switch {
		case isNotFound(err):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
		case isFKViolation(err):
			fail(c, http.StatusConflict, ErrCodeConflict, "user is still referenced")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	noContent(c)
}

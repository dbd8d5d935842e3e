// Setting HTTP handlers.
//
// REST endpoints for process-wide settings under /api. Settings are plain
// key/value rows; the webhook dispatcher reads URL_AGENT and URL_ANSWER_HOST
// from here at dispatch time, so edits take effect without a restart.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-agent-bridge/internal/domain"
	"github.com/tbourn/go-agent-bridge/internal/repo"
)

// SettingHandlers groups the setting CRUD endpoints.
type SettingHandlers struct {
	DB *gorm.DB
}

// NewSettingHandlers constructs a SettingHandlers.
func NewSettingHandlers(db *gorm.DB) *SettingHandlers {
	return &SettingHandlers{DB: db}
}

// CreateSettingRequest is the JSON payload for creating a setting.
type CreateSettingRequest struct {
	Key         string `json:"key" binding:"required,min=1,max=64"`
	Value       string `json:"value" binding:"required"`
	Description string `json:"description"`
}

// UpdateSettingRequest is the JSON payload for updating a setting. Nil fields
// are left untouched; the key itself is immutable.
type UpdateSettingRequest struct {
	Value       *string `json:"value"`
	Description *string `json:"description"`
}

// ListSettings godoc
// @ID          listSettings
// @Summary     List settings
// @Tags        Settings
// @Produce     json
// @Success     200  {array}   domain.Setting
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /settings [get]
func (h *SettingHandlers) ListSettings(c *gin.Context) {
	settings, err := repo.ListSettings(c.Request.Context(), h.DB)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, settings)
}

// GetSetting godoc
// @ID          getSetting
// @Summary     Get a setting by id
// @Tags        Settings
// @Produce     json
// @Param       id  path  int  true  "Setting id"
// @Success     200  {object}  domain.Setting
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /settings/{id} [get]
func (h *SettingHandlers) GetSetting(c *gin.Context) {
	id, bad := pathID(c)
	if bad {
		return
	}
	setting, err := repo.GetSettingByID(c.Request.Context(), h.DB, id)
	if err != nil {
		if isNotFound(err) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "setting not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, setting)
}

// CreateSetting godoc
// @ID          createSetting
// @Summary     Create a setting
// @Tags        Settings
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.CreateSettingRequest  true  "Setting payload"
// @Success     201  {object}  domain.Setting
// @Failure     409  {object}  handlers.ErrorResponse  "Duplicate key"
// @Router      /settings [post]
func (h *SettingHandlers) CreateSetting(c *gin.Context) {
	var req CreateSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	ctx := c.Request.Context()

	if exists, err := repo.SettingExists(ctx, h.DB, req.Key); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	} else if exists {
		fail(c, http.StatusConflict, ErrCodeConflict, "setting with this key already exists")
		return
	}

	setting := &domain.Setting{
		Key:         strings.TrimSpace(req.Key),
		Value:       req.Value,
		Description: req.Description,
	}
	if err := repo.CreateSetting(ctx, h.DB, setting); err != nil {
		if isDuplicate(err) {
			fail(c, http.StatusConflict, ErrCodeConflict, "setting already exists")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusCreated, setting)
}

// UpdateSetting godoc
// @ID          updateSetting
// @Summary     Update a setting
// @Tags        Settings
// @Accept      json
// @Produce     json
// @Param       id    path  int                            true  "Setting id"
// @Param       body  body  handlers.UpdateSettingRequest  true  "Update payload"
// @Success     200  {object}  domain.Setting
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /settings/{id} [put]
func (h *SettingHandlers) UpdateSetting(c *gin.Context) {
	id, bad := pathID(c)
	if bad {
		return
	}
	var req UpdateSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	ctx := c.Request.Context()

	setting, err := repo.GetSettingByID(ctx, h.DB, id)
	if err != nil {
		if isNotFound(err) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "setting not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	if req.Value != nil {
		setting.Value = *req.Value
	}
	if req.Description != nil {
		setting.Description = *req.Description
	}
	if err := repo.SaveSetting(ctx, h.DB, setting); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, setting)
}

// DeleteSetting godoc
// @ID          deleteSetting
// @Summary     Delete a setting
// @Tags        Settings
// @Param       id  path  int  true  "Setting id"
// @Success     204  {string}  string  "No Content"
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /settings/{id} [delete]
func (h *SettingHandlers) DeleteSetting(c *gin.Context) {
	id, bad := pathID(c)
	if bad {
		return
	}
	if err := repo.DeleteSetting(c.Request.Context(), h.DB, id); err != nil {
		if isNotFound(err) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "setting not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}

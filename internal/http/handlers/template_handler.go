// Template HTTP handlers.
//
// REST endpoints for attribute templates under /api. Templates define the
// schema of configurable per-client attributes; concrete values are managed
// through the attribute endpoints.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-agent-bridge/internal/domain"
	"github.com/tbourn/go-agent-bridge/internal/repo"
)

// TemplateHandlers groups the template CRUD endpoints.
type TemplateHandlers struct {
	DB *gorm.DB
}

// NewTemplateHandlers constructs a TemplateHandlers.
func NewTemplateHandlers(db *gorm.DB) *TemplateHandlers {
	return &TemplateHandlers{DB: db}
}

// CreateTemplateRequest is the JSON payload for creating a template.
type CreateTemplateRequest struct {
	Key         string `json:"key" binding:"required,min=1,max=64"`
	Description string `json:"description"`
	DataType    string `json:"data_type"`
}

// UpdateTemplateRequest is the JSON payload for updating a template. Nil
// fields are left untouched; the key itself is immutable.
type UpdateTemplateRequest struct {
	Description *string `json:"description"`
	DataType    *string `json:"data_type"`
	Status      *string `json:"status"`
}

// ListTemplates godoc
// @ID          listTemplates
// @Summary     List templates
// @Tags        Templates
// @Produce     json
// @Success     200  {array}   domain.Template
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /templates [get]
func (h *TemplateHandlers) ListTemplates(c *gin.Context) {
	templates, err := repo.ListTemplates(c.Request.Context(), h.DB)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, templates)
}

// GetTemplate godoc
// @ID          getTemplate
// @Summary     Get a template by id
// @Tags        Templates
// @Produce     json
// @Param       id  path  int  true  "Template id"
// @Success     200  {object}  domain.Template
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /templates/{id} [get]
func (h *TemplateHandlers) GetTemplate(c *gin.Context) {
	id, bad := pathID(c)
	if bad {
		return
	}
	tpl, err := repo.GetTemplateByID(c.Request.Context(), h.DB, id)
	if err != nil {
		if isNotFound(err) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "template not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, tpl)
}

// CreateTemplate godoc
// @ID          createTemplate
// @Summary     Create a template
// @Tags        Templates
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.CreateTemplateRequest  true  "Template payload"
// @Success     201  {object}  domain.Template
// @Failure     409  {object}  handlers.ErrorResponse  "Duplicate key"
// @Router      /templates [post]
func (h *TemplateHandlers) CreateTemplate(c *gin.Context) {
	var req CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	ctx := c.Request.Context()

	if exists, err := repo.TemplateExists(ctx, h.DB, req.Key); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	} else if exists {
		fail(c, http.StatusConflict, ErrCodeConflict, "template with this key already exists")
		return
	}

	tpl := &domain.Template{
		Key:         strings.TrimSpace(req.Key),
		Description: req.Description,
		DataType:    req.DataType,
	}
	if err := repo.CreateTemplate(ctx, h.DB, tpl); err != nil {
		if isDuplicate(err) {
			fail(c, http.StatusConflict, ErrCodeConflict, "template already exists")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusCreated, tpl)
}

// UpdateTemplate godoc
// @ID          updateTemplate
// @Summary     Update a template
// @Tags        Templates
// @Accept      json
// @Produce     json
// @Param       id    path  int                             true  "Template id"
// @Param       body  body  handlers.UpdateTemplateRequest  true  "Update payload"
// @Success     200  {object}  domain.Template
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /templates/{id} [put]
func (h *TemplateHandlers) UpdateTemplate(c *gin.Context) {
	id, bad := pathID(c)
	if bad {
		return
	}
	var req UpdateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	ctx := c.Request.Context()

	tpl, err := repo.GetTemplateByID(ctx, h.DB, id)
	if err != nil {
		if isNotFound(err) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "template not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	if req.Description != nil {
		tpl.Description = *req.Description
	}
	if req.DataType != nil {
		tpl.DataType = *req.DataType
	}
	if req.Status != nil {
		tpl.Status = *req.Status
	}
	if err := repo.SaveTemplate(ctx, h.DB, tpl); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, tpl)
}

// UpdateTemplateStatus godoc
// @ID          updateTemplateStatus
// @Summary     Update a template's status
// @Tags        Templates
// @Accept      json
// @Produce     json
// @Param       id    path  int                           true  "Template id"
// @Param       body  body  handlers.StatusUpdateRequest  true  "Status payload"
// @Success     200  {object}  domain.Template
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /templates/{id}/status [put]
func (h *TemplateHandlers) UpdateTemplateStatus(c *gin.Context) {
	id, bad := pathID(c)
	if bad {
		return
	}
	var req StatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	ctx := c.Request.Context()

	tpl, err := repo.GetTemplateByID(ctx, h.DB, id)
	if err != nil {
		if isNotFound(err) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "template not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	tpl.Status = req.Status
	if err := repo.SaveTemplate(ctx, h.DB, tpl); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, tpl)
}

// DeleteTemplate godoc
// @ID          deleteTemplate
// @Summary     Delete a template
// @Tags        Templates
// @Param       id  path  int  true  "Template id"
// @Success     204  {string}  string  "No Content"
// @Failure     404  {object}  handlers.ErrorResponse
// @Failure     409  {object}  handlers.ErrorResponse  "Template still referenced"
// @Router      /templates/{id} [delete]
func (h *TemplateHandlers) DeleteTemplate(c *gin.Context) {
	id, bad := pathID(c)
	if bad {
		return
	}
	if err := repo.DeleteTemplate(c.Request.Context(), h.DB, id); err != nil {
		switch {
		case isNotFound(err):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "template not found")
		case isFKViolation(err):
			fail(c, http.StatusConflict, ErrCodeConflict, "template is still referenced by attributes")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	noContent(c)
}

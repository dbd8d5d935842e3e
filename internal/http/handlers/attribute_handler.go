// Attribute HTTP handlers.
//
// REST endpoints for client attribute values under /api. An attribute binds
// one template to one client with a concrete value; at most one attribute may
// exist per (client, template) pair.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-agent-bridge/internal/domain"
	"github.com/tbourn/go-agent-bridge/internal/repo"
)

// AttributeHandlers groups the attribute CRUD endpoints.
type AttributeHandlers struct {
	DB *gorm.DB
}

// NewAttributeHandlers constructs an AttributeHandlers.
func NewAttributeHandlers(db *gorm.DB) *AttributeHandlers {
	return &AttributeHandlers{DB: db}
}

// CreateAttributeRequest is the JSON payload for creating an attribute.
type CreateAttributeRequest struct {
	ClientID   uint   `json:"client_id" binding:"required"`
	TemplateID uint   `json:"template_id" binding:"required"`
	Value      string `json:"value" binding:"required"`
}

// UpdateAttributeRequest is the JSON payload for updating an attribute. Only
// the value is mutable; rebinding an attribute to another client or template
// means deleting and recreating it.
type UpdateAttributeRequest struct {
	Value string `json:"value" binding:"required"`
}

// AttributeResponse is an attribute enriched with its client and template.
type AttributeResponse struct {
	ID          uint   `json:"id"`
	ClientID    uint   `json:"client_id"`
	TemplateID  uint   `json:"template_id"`
	Value       string `json:"value"`
	ClientName  string `json:"client_name,omitempty"`
	TemplateKey string `json:"template_key,omitempty"`
}

func attributeResponse(a *domain.Attribute) AttributeResponse {
	return AttributeResponse{
		ID:          a.ID,
		ClientID:    a.ClientID,
		TemplateID:  a.TemplateID,
		Value:       a.Value,
		ClientName:  a.Client.Name,
		TemplateKey: a.Template.Key,
	}
}

// ListAttributes godoc
// @ID          listAttributes
// @Summary     List attributes
// @Tags        Attributes
// @Produce     json
// @Success     200  {array}   handlers.AttributeResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /attributes [get]
func (h *AttributeHandlers) ListAttributes(c *gin.Context) {
	attrs, err := repo.ListAttributes(c.Request.Context(), h.DB)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	out := make([]AttributeResponse, 0, len(attrs))
	for i := range attrs {
		out = append(out, attributeResponse(&attrs[i]))
	}
	ok(c, http.StatusOK, out)
}

// GetAttribute godoc
// @ID          getAttribute
// @Summary     Get an attribute by id
// @Tags        Attributes
// @Produce     json
// @Param       id  path  int  true  "Attribute id"
// @Success     200  {object}  handlers.AttributeResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /attributes/{id} [get]
func (h *AttributeHandlers) GetAttribute(c *gin.Context) {
	id, bad := pathID(c)
	if bad {
		return
	}
	attr, err := repo.GetAttributeByID(c.Request.Context(), h.DB, id)
	if err != nil {
		if isNotFound(err) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "attribute not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, attributeResponse(attr))
}

// CreateAttribute godoc
// @ID          createAttribute
// @Summary     Create an attribute
// @Description Binds a template to a client with a value. The client and template must exist, and the (client, template) pair must not already be bound.
// @Tags        Attributes
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.CreateAttributeRequest  true  "Attribute payload"
// @Success     201  {object}  handlers.AttributeResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Unknown client or template"
// @Failure     409  {object}  handlers.ErrorResponse  "Pair already bound"
// @Router      /attributes [post]
func (h *AttributeHandlers) CreateAttribute(c *gin.Context) {
	var req CreateAttributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	ctx := c.Request.Context()

	if _, err := repo.GetClientByID(ctx, h.DB, req.ClientID); err != nil {
		if isNotFound(err) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "client not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	if _, err := repo.GetTemplateByID(ctx, h.DB, req.TemplateID); err != nil {
		if isNotFound(err) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "template not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	if _, err := repo.GetAttributeByPair(ctx, h.DB, req.ClientID, req.TemplateID); err == nil {
		fail(c, http.StatusConflict, ErrCodeConflict, "attribute already exists for this client and template")
		return
	} else if !isNotFound(err) {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	attr := &domain.Attribute{
		ClientID:   req.ClientID,
		TemplateID: req.TemplateID,
		Value:      req.Value,
	}
	if err := repo.CreateAttribute(ctx, h.DB, attr); err != nil {
		if isDuplicate(err) {
			fail(c, http.StatusConflict, ErrCodeConflict, "attribute already exists for this client and template")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	created, err := repo.GetAttributeByID(ctx, h.DB, attr.ID)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusCreated, attributeResponse(created))
}

// UpdateAttribute godoc
// @ID          updateAttribute
// @Summary     Update an attribute's value
// @Tags        Attributes
// @Accept      json
// @Produce     json
// @Param       id    path  int                              true  "Attribute id"
// @Param       body  body  handlers.UpdateAttributeRequest  true  "Update payload"
// @Success     200  {object}  handlers.AttributeResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /attributes/{id} [put]
func (h *AttributeHandlers) UpdateAttribute(c *gin.Context) {
	id, bad := pathID(c)
	if bad {
		return
	}
	var req UpdateAttributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	ctx := c.Request.Context()

	if err := repo.UpdateAttributeValue(ctx, h.DB, id, req.Value); err != nil {
		if isNotFound(err) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "attribute not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	updated, err := repo.GetAttributeByID(ctx, h.DB, id)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, attributeResponse(updated))
}

// DeleteAttribute godoc
// @ID          deleteAttribute
// @Summary     Delete an attribute
// @Tags        Attributes
// @Param       id  path  int  true  "Attribute id"
// @Success     204  {string}  string  "No Content"
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /attributes/{id} [delete]
func (h *AttributeHandlers) DeleteAttribute(c *gin.Context) {
	id, bad := pathID(c)
	if bad {
		return
	}
	if err := repo.DeleteAttribute(c.Request.Context(), h.DB, id); err != nil {
		if isNotFound(err) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "attribute not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}

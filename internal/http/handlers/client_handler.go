// Client HTTP handlers.
//
// REST endpoints for tenant clients under /api:
//   - GET    /clients                  (list)
//   - POST   /clients                  (create, with inline attribute values)
//   - GET    /clients/:id              (get)
//   - PUT    /clients/:id              (update, attribute upsert semantics)
//   - DELETE /clients/:id              (delete; blocked by dependent rows)
//   - GET    /clients/:id/attributes   (template_key → value rows)
//   - PUT    /clients/:id/status       (:id is the client_code here)
//   - GET    /clients/:id/users        (:id is the client_code here)
//
// The status and users routes address the client by its human-facing code,
// matching how operator tooling identifies tenants; the rest use the numeric
// id. The router reuses the :id segment for both because Gin requires a
// single wildcard name per position.
package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-agent-bridge/internal/domain"
	"github.com/tbourn/go-agent-bridge/internal/repo"
)

// ClientHandlers groups the client CRUD endpoints.
type ClientHandlers struct {
	DB *gorm.DB
}

// NewClientHandlers constructs a ClientHandlers.
func NewClientHandlers(db *gorm.DB) *ClientHandlers {
	return &ClientHandlers{DB: db}
}

// CreateClientRequest is the JSON payload for creating a client. Attributes
// maps template keys to initial values; keys without a matching template and
// empty values are skipped.
type CreateClientRequest struct {
	ClientCode  string            `json:"client_code" binding:"required,min=1,max=64"`
	Name        string            `json:"name" binding:"required,min=1,max=255"`
	Description string            `json:"description"`
	ProductAPI  string            `json:"product_api"`
	ProductList string            `json:"product_list"`
	Attributes  map[string]string `json:"attributes"`
}

// UpdateClientRequest is the JSON payload for updating a client. Nil fields
// are left untouched. A non-nil Attributes map is applied with upsert
// semantics: empty value deletes the attribute, otherwise create-or-update.
type UpdateClientRequest struct {
	Name        *string            `json:"name"`
	Description *string            `json:"description"`
	Status      *string            `json:"status"`
	ProductAPI  *string            `json:"product_api"`
	ProductList *string            `json:"product_list"`
	Attributes  *map[string]string `json:"attributes"`
}

// StatusUpdateRequest carries a bare status value.
type StatusUpdateRequest struct {
	Status string `json:"status" binding:"required,min=1,max=32"`
}

// ListClients godoc
// @ID          listClients
// @Summary     List clients
// @Tags        Clients
// @Produce     json
// @Success     200  {array}   domain.Client
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /clients [get]
func (h *ClientHandlers) ListClients(c *gin.Context) {
	clients, err := repo.ListClients(c.Request.Context(), h.DB)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, clients)
}

// GetClient godoc
// @ID          getClient
// @Summary     Get a client by id
// @Tags        Clients
// @Produce     json
// @Param       id  path  int  true  "Client id"
// @Success     200  {object}  domain.Client
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /clients/{id} [get]
func (h *ClientHandlers) GetClient(c *gin.Context) {
	id, bad := pathID(c)
	if bad {
		return
	}
	client, err := repo.GetClientByID(c.Request.Context(), h.DB, id)
	if err != nil {
		if isNotFound(err) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "client not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, client)
}

// CreateClient godoc
// @ID          createClient
// @Summary     Create a client
// @Description Creates a client plus its initial attribute values in one transaction. Attribute map keys must match existing template keys; unknown keys and empty values are skipped.
// @Tags        Clients
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.CreateClientRequest  true  "Client payload"
// @Success     201  {object}  domain.Client
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     409  {object}  handlers.ErrorResponse  "Duplicate code or name"
// @Router      /clients [post]
func (h *ClientHandlers) CreateClient(c *gin.Context) {
	var req CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	ctx := c.Request.Context()

	if exists, err := repo.ClientExistsByCode(ctx, h.DB, req.ClientCode); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	} else if exists {
		fail(c, http.StatusConflict, ErrCodeConflict, "client with this code already exists")
		return
	}
	if exists, err := repo.ClientExistsByName(ctx, h.DB, req.Name, 0); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	} else if exists {
		fail(c, http.StatusConflict, ErrCodeConflict, "client with this name already exists")
		return
	}

	client := &domain.Client{
		ClientCode:  strings.TrimSpace(req.ClientCode),
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		ProductAPI:  req.ProductAPI,
		ProductList: req.ProductList,
	}

	txErr := h.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.CreateClient(ctx, tx, client); err != nil {
			return err
		}
		return applyAttributeValues(ctx, tx, client.ID, req.Attributes)
	})
	if txErr != nil {
		if isDuplicate(txErr) {
			fail(c, http.StatusConflict, ErrCodeConflict, "client already exists")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, txErr.Error())
		return
	}
	ok(c, http.StatusCreated, client)
}

// UpdateClient godoc
// @ID          updateClient
// @Summary     Update a client
// @Description Applies the non-nil fields and, when the attribute map is present, upserts or deletes attribute values in the same transaction.
// @Tags        Clients
// @Accept      json
// @Produce     json
// @Param       id    path  int                            true  "Client id"
// @Param       body  body  handlers.UpdateClientRequest  true  "Update payload"
// @Success     200  {object}  domain.Client
// @Failure     404  {object}  handlers.ErrorResponse
// @Failure     409  {object}  handlers.ErrorResponse  "Duplicate name"
// @Router      /clients/{id} [put]
func (h *ClientHandlers) UpdateClient(c *gin.Context) {
	id, bad := pathID(c)
	if bad {
		return
	}
	var req UpdateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	ctx := c.Request.Context()

	client, err := repo.GetClientByID(ctx, h.DB, id)
	if err != nil {
		if isNotFound(err) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "client not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	if req.Name != nil && *req.Name != client.Name {
		if exists, nerr := repo.ClientExistsByName(ctx, h.DB, *req.Name, client.ID); nerr != nil {
			fail(c, http.StatusInternalServerError, ErrCodeInternal, nerr.Error())
			return
		} else if exists {
			fail(c, http.StatusConflict, ErrCodeConflict, "client with this name already exists")
			return
		}
		client.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		client.Description = *req.Description
	}
	if req.Status != nil {
		client.Status = *req.Status
	}
	if req.ProductAPI != nil {
		client.ProductAPI = *req.ProductAPI
	}
	if req.ProductList != nil {
		client.ProductList = *req.ProductList
	}

	txErr := h.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.SaveClient(ctx, tx, client); err != nil {
			return err
		}
		if req.Attributes != nil {
			return upsertAttributeValues(ctx, tx, client.ID, *req.Attributes)
		}
		return nil
	})
	if txErr != nil {
		if isDuplicate(txErr) {
			fail(c, http.StatusConflict, ErrCodeConflict, "client already exists")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, txErr.Error())
		return
	}
	ok(c, http.StatusOK, client)
}

// UpdateClientStatus godoc
// @ID          updateClientStatus
// @Summary     Update a client's status by client code
// @Tags        Clients
// @Accept      json
// @Produce     json
// @Param       id    path  string                        true  "Client code"
// @Param       body  body  handlers.StatusUpdateRequest  true  "Status payload"
// @Success     200  {object}  domain.Client
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /clients/{id}/status [put]
func (h *ClientHandlers) UpdateClientStatus(c *gin.Context) {
	clientCode := c.Param("id")
	var req StatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	client, err := repo.UpdateClientStatus(c.Request.Context(), h.DB, clientCode, req.Status)
	if err != nil {
		if isNotFound(err) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "client not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, client)
}

// DeleteClient godoc
// @ID          deleteClient
// @Summary     Delete a client
// @Tags        Clients
// @Param       id  path  int  true  "Client id"
// @Success     204  {string}  string  "No Content"
// @Failure     404  {object}  handlers.ErrorResponse
// @Failure     409  {object}  handlers.ErrorResponse  "Client still referenced"
// @Router      /clients/{id} [delete]
func (h *ClientHandlers) DeleteClient(c *gin.Context) {
	id, bad := pathID(c)
	if bad {
		return
	}
	if err := repo.DeleteClient(c.Request.Context(), h.DB, id); err != nil {
		switch {
		case isNotFound(err):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "client not found")
		case isFKViolation(err):
			fail(c, http.StatusConflict, ErrCodeConflict, "client is still referenced by users or attributes")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	noContent(c)
}

// ClientAttributeRow is one (template_key, value) pair of a client.
type ClientAttributeRow struct {
	TemplateKey string `json:"template_key"`
	Value       string `json:"value"`
}

// GetClientAttributes godoc
// @ID          getClientAttributes
// @Summary     List a client's attribute values
// @Tags        Clients
// @Produce     json
// @Param       id  path  int  true  "Client id"
// @Success     200  {array}   handlers.ClientAttributeRow
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /clients/{id}/attributes [get]
func (h *ClientHandlers) GetClientAttributes(c *gin.Context) {
	id, bad := pathID(c)
	if bad {
		return
	}
	ctx := c.Request.Context()

	if _, err := repo.GetClientByID(ctx, h.DB, id); err != nil {
		if isNotFound(err) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "client not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	values, err := repo.ListClientAttributeValues(ctx, h.DB, id)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	rows := make([]ClientAttributeRow, 0, len(values))
	for _, v := range values {
		rows = append(rows, ClientAttributeRow{TemplateKey: v.TemplateKey, Value: v.Value})
	}
	ok(c, http.StatusOK, rows)
}

// applyAttributeValues creates attribute rows for the given template-key map
// during client creation. Unknown keys and empty values are skipped.
func applyAttributeValues(ctx context.Context, tx *gorm.DB, clientID uint, attrs map[string]string) error {
	if len(attrs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(attrs))
	for k, v := range attrs {
		if v != "" {
			keys = append(keys, k)
		}
	}
	templates, err := repo.GetTemplatesByKeys(ctx, tx, keys)
	if err != nil {
		return err
	}
	for key, value := range attrs {
		tpl, found := templates[key]
		if !found || value == "" {
			continue
		}
		attr := &domain.Attribute{ClientID: clientID, TemplateID: tpl.ID, Value: value}
		if err := repo.CreateAttribute(ctx, tx, attr); err != nil {
			return err
		}
	}
	return nil
}

// upsertAttributeValues applies update semantics to the template-key map:
// empty value deletes the client's attribute, a non-empty value updates the
// existing row or creates a new one. Unknown template keys are skipped.
func upsertAttributeValues(ctx context.Context, tx *gorm.DB, clientID uint, attrs map[string]string) error {
	if len(attrs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	templates, err := repo.GetTemplatesByKeys(ctx, tx, keys)
	if err != nil {
		return err
	}
	for key, value := range attrs {
		tpl, found := templates[key]
		if !found {
			continue
		}
		existing, gerr := repo.GetAttributeByPair(ctx, tx, clientID, tpl.ID)
		switch {
		case gerr == nil && value == "":
			if derr := repo.DeleteAttribute(ctx, tx, existing.ID); derr != nil {
				return derr
			}
		case gerr == nil:
			if uerr := repo.UpdateAttributeValue(ctx, tx, existing.ID, value); uerr != nil {
				return uerr
			}
		case isNotFound(gerr) && value != "":
			attr := &domain.Attribute{ClientID: clientID, TemplateID: tpl.ID, Value: value}
			if cerr := repo.CreateAttribute(ctx, tx, attr); cerr != nil {
				return cerr
			}
		case isNotFound(gerr):
			// Absent attribute deleted again: nothing to do.
		default:
			return gerr
		}
	}
	return nil
}

// pathID parses the :id path segment as an unsigned integer. On failure it
// writes the 400 response and reports bad=true.
func pathID(c *gin.Context) (id uint, bad bool) {
	v, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid id")
		return 0, true
	}
	return uint(v), false
}

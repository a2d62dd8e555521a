package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusops/uniops-api/internal/models"
	"github.com/campusops/uniops-api/internal/service"
	appErrors "github.com/campusops/uniops-api/pkg/errors"
	"github.com/campusops/uniops-api/pkg/response"
)

type attributeService interface {
	List(ctx context.Context, entityType, entityID string) ([]models.EntityAttribute, error)
	Get(ctx context.Context, entityType, entityID, key string) (*models.EntityAttribute, error)
	Set(ctx context.Context, entityType, entityID string, req service.SetAttributeRequest) (*models.EntityAttribute, error)
	Delete(ctx context.Context, entityType, entityID, key string) error
}

// AttributeHandler exposes the extension-attribute store for any entity.
type AttributeHandler struct {
	attributes attributeService
}

// NewAttributeHandler constructs AttributeHandler.
func NewAttributeHandler(attributes attributeService) *AttributeHandler {
	return &AttributeHandler{attributes: attributes}
}

// List godoc
// @Summary List extension attributes on an entity
// @Tags Attributes
// @Produce json
// @Param entity path string true "Entity type"
// @Param id path string true "Entity ID"
// @Success 200 {object} response.Envelope
// @Router /attributes/{entity}/{id} [get]
func (h *AttributeHandler) List(c *gin.Context) {
	attributes, err := h.attributes.List(c.Request.Context(), c.Param("entity"), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, attributes, nil)
}

// Get godoc
// @Summary Get one extension attribute
// @Tags Attributes
// @Produce json
// @Param entity path string true "Entity type"
// @Param id path string true "Entity ID"
// @Param key path string true "Attribute key"
// @Success 200 {object} response.Envelope
// @Router /attributes/{entity}/{id}/{key} [get]
func (h *AttributeHandler) Get(c *gin.Context) {
	attribute, err := h.attributes.Get(c.Request.Context(), c.Param("entity"), c.Param("id"), c.Param("key"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, attribute, nil)
}

// Set godoc
// @Summary Upsert one extension attribute
// @Tags Attributes
// @Accept json
// @Produce json
// @Param entity path string true "Entity type"
// @Param id path string true "Entity ID"
// @Param payload body service.SetAttributeRequest true "Attribute payload"
// @Success 200 {object} response.Envelope
// @Router /attributes/{entity}/{id} [put]
func (h *AttributeHandler) Set(c *gin.Context) {
	var req service.SetAttributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	attribute, err := h.attributes.Set(c.Request.Context(), c.Param("entity"), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, attribute, nil)
}

// Delete godoc
// @Summary Delete one extension attribute
// @Tags Attributes
// @Param entity path string true "Entity type"
// @Param id path string true "Entity ID"
// @Param key path string true "Attribute key"
// @Success 204
// @Router /attributes/{entity}/{id}/{key} [delete]
func (h *AttributeHandler) Delete(c *gin.Context) {
	if err := h.attributes.Delete(c.Request.Context(), c.Param("entity"), c.Param("id"), c.Param("key")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

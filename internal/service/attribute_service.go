package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campusops/uniops-api/internal/models"
	appErrors "github.com/campusops/uniops-api/pkg/errors"
)

type attributeStore interface {
	ListByEntity(ctx context.Context, entityType, entityID string) ([]models.EntityAttribute, error)
	Get(ctx context.Context, entityType, entityID, key string) (*models.EntityAttribute, error)
	Set(ctx context.Context, attribute *models.EntityAttribute) error
	Delete(ctx context.Context, entityType, entityID, key string) error
}

// SetAttributeRequest writes one typed extension attribute on any entity.
type SetAttributeRequest struct {
	Key   string  `json:"key" validate:"required"`
	Kind  string  `json:"kind" validate:"required,oneof=string number boolean date"`
	Value *string `json:"value"`
}

// AttributeService exposes the extension-attribute store for arbitrary
// entity kinds. Per-entity sugar (student records) layers on top of it.
type AttributeService struct {
	repo      attributeStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttributeService constructs AttributeService.
func NewAttributeService(repo attributeStore, validate *validator.Validate, logger *zap.Logger) *AttributeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttributeService{repo: repo, validator: validate, logger: logger}
}

var allowedEntityTypes = map[string]bool{
	"student":  true,
	"course":   true,
	"facility": true,
	"booking":  true,
}

func checkEntityType(entityType string) error {
	if !allowedEntityTypes[entityType] {
		return appErrors.Clone(appErrors.ErrValidation, "unknown entity type")
	}
	return nil
}

// List returns every extension attribute attached to one entity.
func (s *AttributeService) List(ctx context.Context, entityType, entityID string) ([]models.EntityAttribute, error) {
	if err := checkEntityType(entityType); err != nil {
		return nil, err
	}
	attributes, err := s.repo.ListByEntity(ctx, entityType, entityID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attributes")
	}
	return attributes, nil
}

// Get returns one attribute by key.
func (s *AttributeService) Get(ctx context.Context, entityType, entityID, key string) (*models.EntityAttribute, error) {
	if err := checkEntityType(entityType); err != nil {
		return nil, err
	}
	attribute, err := s.repo.Get(ctx, entityType, entityID, key)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attribute not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attribute")
	}
	return attribute, nil
}

// Set upserts one typed attribute on an entity.
func (s *AttributeService) Set(ctx context.Context, entityType, entityID string, req SetAttributeRequest) (*models.EntityAttribute, error) {
	if err := checkEntityType(entityType); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attribute payload")
	}
	attribute := &models.EntityAttribute{
		EntityType: entityType,
		EntityID:   entityID,
		Key:        req.Key,
		Kind:       models.AttributeKind(req.Kind),
		Value:      req.Value,
	}
	if err := s.repo.Set(ctx, attribute); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store attribute")
	}
	return attribute, nil
}

// Delete removes one attribute by key.
func (s *AttributeService) Delete(ctx context.Context, entityType, entityID, key string) error {
	if err := checkEntityType(entityType); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, entityType, entityID, key); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "attribute not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete attribute")
	}
	return nil
}

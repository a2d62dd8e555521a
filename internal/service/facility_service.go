package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campusops/uniops-api/internal/models"
	appErrors "github.com/campusops/uniops-api/pkg/errors"
)

type facilityStore interface {
	List(ctx context.Context) ([]models.Facility, error)
	FindByID(ctx context.Context, id string) (*models.Facility, error)
	Create(ctx context.Context, facility *models.Facility) error
}

// CreateFacilityRequest registers a bookable campus space.
type CreateFacilityRequest struct {
	Name         string  `json:"name" validate:"required"`
	FacilityType string  `json:"facility_type" validate:"required"`
	Building     string  `json:"building" validate:"required"`
	Floor        *string `json:"floor"`
	Capacity     int     `json:"capacity" validate:"gte=0"`
}

// FacilityService manages the facility catalog.
type FacilityService struct {
	repo      facilityStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewFacilityService constructs FacilityService.
func NewFacilityService(repo facilityStore, validate *validator.Validate, logger *zap.Logger) *FacilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FacilityService{repo: repo, validator: validate, logger: logger}
}

// List returns all facilities.
func (s *FacilityService) List(ctx context.Context) ([]models.Facility, error) {
	facilities, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list facilities")
	}
	return facilities, nil
}

// Get returns a facility by id.
func (s *FacilityService) Get(ctx context.Context, id string) (*models.Facility, error) {
	facility, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "facility not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load facility")
	}
	return facility, nil
}

// Create registers a new facility.
func (s *FacilityService) Create(ctx context.Context, req CreateFacilityRequest) (*models.Facility, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid facility payload")
	}
	facility := &models.Facility{
		Name:         req.Name,
		FacilityType: req.FacilityType,
		Building:     req.Building,
		Floor:        req.Floor,
		Capacity:     req.Capacity,
	}
	if err := s.repo.Create(ctx, facility); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create facility")
	}
	s.logger.Info("facility created", zap.String("facility_id", facility.ID), zap.String("name", facility.Name))
	return facility, nil
}

package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campusops/uniops-api/internal/models"
	"github.com/campusops/uniops-api/internal/repository"
	"github.com/campusops/uniops-api/pkg/config"
	appErrors "github.com/campusops/uniops-api/pkg/errors"
)

type bookingStore interface {
	WithFacilityLock(ctx context.Context, facilityID string, fn func(ctx context.Context, tx repository.ReservationTx) error) error
	List(ctx context.Context, filter models.BookingFilter) ([]models.BookingDetail, error)
	FindDetailByID(ctx context.Context, id string) (*models.BookingDetail, error)
}

// CreateBookingRequest reserves a facility for a time window on a date.
// Times are zero-padded HH:MM, interpreted as a half-open interval.
type CreateBookingRequest struct {
	FacilityID  string `json:"facility_id" validate:"required"`
	Purpose     string `json:"purpose" validate:"required"`
	BookingDate string `json:"booking_date" validate:"required,datetime=2006-01-02"`
	StartTime   string `json:"start_time" validate:"required,datetime=15:04"`
	EndTime     string `json:"end_time" validate:"required,datetime=15:04"`
}

// BookingService serialises facility reservations and detects clashes.
type BookingService struct {
	repo      bookingStore
	cfg       config.BookingConfig
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBookingService constructs BookingService.
func NewBookingService(repo bookingStore, cfg config.BookingConfig, validate *validator.Validate, logger *zap.Logger) *BookingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingService{repo: repo, cfg: cfg, validator: validate, logger: logger}
}

// List returns bookings filtered by facility and date.
func (s *BookingService) List(ctx context.Context, filter models.BookingFilter) ([]models.BookingDetail, error) {
	bookings, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list bookings")
	}
	return bookings, nil
}

// Get returns one booking with facility and requester context.
func (s *BookingService) Get(ctx context.Context, id string) (*models.BookingDetail, error) {
	booking, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}
	return booking, nil
}

// Create reserves the facility for the requested window. The conflict check
// and insert run in one transaction holding the facility row lock, so two
// concurrent requests for the same space serialise. A window starting exactly
// where an existing booking ends does not clash with it.
func (s *BookingService) Create(ctx context.Context, bookedBy string, req CreateBookingRequest) (*models.Booking, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}
	if req.EndTime <= req.StartTime {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end time must be after start time")
	}

	booking := &models.Booking{
		FacilityID:  req.FacilityID,
		BookedBy:    bookedBy,
		Purpose:     req.Purpose,
		BookingDate: req.BookingDate,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Status:      models.BookingStatus(s.cfg.DefaultStatus),
	}

	err := s.repo.WithFacilityLock(ctx, req.FacilityID, func(ctx context.Context, tx repository.ReservationTx) error {
		conflict, err := tx.HasConflict(ctx, req.FacilityID, req.BookingDate, req.StartTime, req.EndTime)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check booking conflicts")
		}
		if conflict {
			return appErrors.Clone(appErrors.ErrConflict, "facility is already booked for this time window")
		}
		return tx.Insert(ctx, booking)
	})
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "facility not found")
		}
		if appErr := asAppError(err); appErr != nil {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create booking")
	}

	s.logger.Info("booking created",
		zap.String("booking_id", booking.ID),
		zap.String("facility_id", booking.FacilityID),
		zap.String("date", booking.BookingDate))
	return booking, nil
}

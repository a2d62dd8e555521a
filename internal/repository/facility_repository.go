package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusops/uniops-api/internal/models"
)

const facilityColumns = "id, name, facility_type, building, floor, capacity, status, created_at"

// FacilityRepository handles persistence of facilities.
type FacilityRepository struct {
	db *sqlx.DB
}

// NewFacilityRepository constructs the repository.
func NewFacilityRepository(db *sqlx.DB) *FacilityRepository {
	return &FacilityRepository{db: db}
}

// List returns all facilities ordered by building and name.
func (r *FacilityRepository) List(ctx context.Context) ([]models.Facility, error) {
	query := fmt.Sprintf("SELECT %s FROM facilities ORDER BY building, name", facilityColumns)
	var facilities []models.Facility
	if err := r.db.SelectContext(ctx, &facilities, query); err != nil {
		return nil, fmt.Errorf("list facilities: %w", err)
	}
	return facilities, nil
}

// FindByID returns a facility by its ID.
func (r *FacilityRepository) FindByID(ctx context.Context, id string) (*models.Facility, error) {
	query := fmt.Sprintf("SELECT %s FROM facilities WHERE id = $1", facilityColumns)
	var facility models.Facility
	if err := r.db.GetContext(ctx, &facility, query, id); err != nil {
		return nil, err
	}
	return &facility, nil
}

// Create persists a new facility record.
func (r *FacilityRepository) Create(ctx context.Context, facility *models.Facility) error {
	if facility.ID == "" {
		facility.ID = uuid.NewString()
	}
	facility.CreatedAt = time.Now().UTC()
	if facility.Status == "" {
		facility.Status = "available"
	}
	const query = `INSERT INTO facilities (id, name, facility_type, building, floor, capacity, status, created_at)
        VALUES (:id, :name, :facility_type, :building, :floor, :capacity, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, facility); err != nil {
		return fmt.Errorf("create facility: %w", err)
	}
	return nil
}

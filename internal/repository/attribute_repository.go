package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusops/uniops-api/internal/models"
)

const attributeColumns = "id, entity_type, entity_id, attribute_key, data_type, value_text, created_at, updated_at"

// AttributeRepository stores ad-hoc extension attributes keyed by entity.
// Values are kept as text alongside their declared kind; callers interpret
// the kind when reading.
type AttributeRepository struct {
	db *sqlx.DB
}

// NewAttributeRepository constructs the repository.
func NewAttributeRepository(db *sqlx.DB) *AttributeRepository {
	return &AttributeRepository{db: db}
}

// ListByEntity returns all attributes attached to an entity.
func (r *AttributeRepository) ListByEntity(ctx context.Context, entityType, entityID string) ([]models.EntityAttribute, error) {
	query := fmt.Sprintf("SELECT %s FROM entity_attributes WHERE entity_type = $1 AND entity_id = $2 ORDER BY attribute_key", attributeColumns)
	var attributes []models.EntityAttribute
	if err := r.db.SelectContext(ctx, &attributes, query, entityType, entityID); err != nil {
		return nil, fmt.Errorf("list entity attributes: %w", err)
	}
	return attributes, nil
}

// Get returns a single attribute by key.
func (r *AttributeRepository) Get(ctx context.Context, entityType, entityID, key string) (*models.EntityAttribute, error) {
	query := fmt.Sprintf("SELECT %s FROM entity_attributes WHERE entity_type = $1 AND entity_id = $2 AND attribute_key = $3", attributeColumns)
	var attribute models.EntityAttribute
	if err := r.db.GetContext(ctx, &attribute, query, entityType, entityID, key); err != nil {
		return nil, err
	}
	return &attribute, nil
}

// Set inserts or rewrites the attribute value for the key.
func (r *AttributeRepository) Set(ctx context.Context, attribute *models.EntityAttribute) error {
	if attribute.ID == "" {
		attribute.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	attribute.CreatedAt = now
	attribute.UpdatedAt = now
	const query = `INSERT INTO entity_attributes (id, entity_type, entity_id, attribute_key, data_type, value_text, created_at, updated_at)
        VALUES (:id, :entity_type, :entity_id, :attribute_key, :data_type, :value_text, :created_at, :updated_at)
        ON CONFLICT (entity_type, entity_id, attribute_key)
        DO UPDATE SET data_type = EXCLUDED.data_type, value_text = EXCLUDED.value_text, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, attribute); err != nil {
		return fmt.Errorf("set entity attribute: %w", err)
	}
	return nil
}

// Delete removes the attribute for the key.
func (r *AttributeRepository) Delete(ctx context.Context, entityType, entityID, key string) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM entity_attributes WHERE entity_type = $1 AND entity_id = $2 AND attribute_key = $3",
		entityType, entityID, key)
	if err != nil {
		return fmt.Errorf("delete entity attribute: %w", err)
	}
	return requireRowAffected(result, "attribute")
}

package models

import "time"

// AttributeKind declares how an extension attribute value is typed.
type AttributeKind string

const (
	AttributeKindString  AttributeKind = "string"
	AttributeKindNumber  AttributeKind = "number"
	AttributeKindBoolean AttributeKind = "boolean"
	AttributeKindDate    AttributeKind = "date"
)

// EntityAttribute is an ad-hoc key/value extension on a stored entity.
// Values are persisted in the column matching their declared kind.
type EntityAttribute struct {
	ID         string        `db:"id" json:"id"`
	EntityType string        `db:"entity_type" json:"entity_type"`
	EntityID   string        `db:"entity_id" json:"entity_id"`
	Key        string        `db:"attribute_key" json:"key"`
	Kind       AttributeKind `db:"data_type" json:"kind"`
	Value      *string       `db:"value_text" json:"value,omitempty"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time     `db:"updated_at" json:"updated_at"`
}

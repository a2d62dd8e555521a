package models

import "time"

// Facility represents a bookable campus space.
type Facility struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	FacilityType string    `db:"facility_type" json:"facility_type"`
	Building     string    `db:"building" json:"building"`
	Floor        *string   `db:"floor" json:"floor,omitempty"`
	Capacity     int       `db:"capacity" json:"capacity"`
	Status       string    `db:"status" json:"status"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

package models

import "time"

// BookingStatus represents the lifecycle of a facility booking.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Booking reserves a facility for a half-open [start, end) interval on a
// single date. Times are zero-padded HH:MM strings so string comparison
// matches chronological order.
type Booking struct {
	ID          string        `db:"id" json:"id"`
	FacilityID  string        `db:"facility_id" json:"facility_id"`
	BookedBy    string        `db:"booked_by" json:"booked_by"`
	Purpose     string        `db:"purpose" json:"purpose"`
	BookingDate string        `db:"booking_date" json:"booking_date"`
	StartTime   string        `db:"start_time" json:"start_time"`
	EndTime     string        `db:"end_time" json:"end_time"`
	Status      BookingStatus `db:"status" json:"status"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
}

// BookingDetail enriches Booking with facility and requester names.
type BookingDetail struct {
	Booking
	FacilityName string `db:"facility_name" json:"facility_name"`
	BookedByName string `db:"booked_by_name" json:"booked_by_name"`
}

// BookingFilter provides filters for listing bookings.
type BookingFilter struct {
	FacilityID string
	Date       string
}

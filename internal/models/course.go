package models

import "time"

// Course represents an offered course section. Code is unique and stored
// upper-case.
type Course struct {
	ID               string    `db:"id" json:"id"`
	Code             string    `db:"code" json:"code"`
	Title            string    `db:"title" json:"title"`
	Instructor       string    `db:"instructor" json:"instructor"`
	Credits          int       `db:"credits" json:"credits"`
	Capacity         int       `db:"capacity" json:"capacity"`
	CourseType       string    `db:"course_type" json:"course_type"`
	Department       *string   `db:"department" json:"department,omitempty"`
	ScheduleDay      string    `db:"schedule_day" json:"schedule_day"`
	ScheduleTime     string    `db:"schedule_time" json:"schedule_time"`
	ScheduleLocation string    `db:"schedule_location" json:"schedule_location"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// CourseFilter captures list filters for courses.
type CourseFilter struct {
	Search     string
	Department string
	CourseType string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

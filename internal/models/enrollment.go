package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses. Only enrolled and waitlisted count against the
// student's course and credit quota.
const (
	EnrollmentStatusEnrolled   EnrollmentStatus = "enrolled"
	EnrollmentStatusWaitlisted EnrollmentStatus = "waitlisted"
	EnrollmentStatusDropped    EnrollmentStatus = "dropped"
	EnrollmentStatusCompleted  EnrollmentStatus = "completed"
)

// ActiveEnrollmentStatuses are the statuses that consume load quota.
var ActiveEnrollmentStatuses = []EnrollmentStatus{
	EnrollmentStatusEnrolled,
	EnrollmentStatusWaitlisted,
}

// Enrollment links a student to a course. At most one row exists per
// (student_id, course_id) pair regardless of status history.
type Enrollment struct {
	ID            string           `db:"id" json:"id"`
	StudentID     string           `db:"student_id" json:"student_id"`
	CourseID      string           `db:"course_id" json:"course_id"`
	Status        EnrollmentStatus `db:"status" json:"status"`
	GradeLetter   *string          `db:"grade_letter" json:"grade,omitempty"`
	GradePoints   *float64         `db:"grade_points" json:"grade_points,omitempty"`
	GradeReleased bool             `db:"grade_released" json:"grade_published"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time        `db:"updated_at" json:"updated_at"`
}

// EnrollmentDetail enriches Enrollment with student and course info.
type EnrollmentDetail struct {
	Enrollment
	StudentName string `db:"student_name" json:"student_name"`
	CourseCode  string `db:"course_code" json:"course_code"`
	CourseTitle string `db:"course_title" json:"course_title"`
	Credits     int    `db:"credits" json:"credits"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentID string
	CourseID  string
	Status    EnrollmentStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// StudentLoad aggregates a student's active enrollments.
type StudentLoad struct {
	CourseCount int `db:"course_count" json:"course_count"`
	CreditTotal int `db:"credit_total" json:"credit_total"`
}

// GradeSummary aggregates published grade points for GPA derivation.
type GradeSummary struct {
	TotalPoints  float64 `db:"total_points"`
	TotalCredits float64 `db:"total_credits"`
}

// Auto-enrollment skip reasons.
const (
	SkipReasonAlreadyEnrolled  = "already-enrolled"
	SkipReasonLimitsExceeded   = "limits-exceeded"
	SkipReasonNoDefaultCourses = "no-default-courses"
)

// SkippedEnrollment records why a default course was not assigned.
type SkippedEnrollment struct {
	CourseID string `json:"course_id"`
	Reason   string `json:"reason"`
}

// AutoEnrollResult summarises a default-course assignment pass.
type AutoEnrollResult struct {
	Created []Enrollment        `json:"created"`
	Skipped []SkippedEnrollment `json:"skipped"`
}

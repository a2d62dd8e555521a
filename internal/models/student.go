package models

import "time"

// StudentStatus tracks academic standing.
type StudentStatus string

const (
	StudentStatusActive    StudentStatus = "active"
	StudentStatusProbation StudentStatus = "probation"
	StudentStatusSuspended StudentStatus = "suspended"
	StudentStatusGraduated StudentStatus = "graduated"
)

// Student represents a learner registered at the university.
// GPA is derived from published grades and owned by the GPA engine; no other
// writer updates it.
type Student struct {
	ID        string        `db:"id" json:"id"`
	Name      string        `db:"name" json:"name"`
	Email     string        `db:"email" json:"email"`
	Major     string        `db:"major" json:"major"`
	Year      int           `db:"year" json:"year"`
	Status    StudentStatus `db:"status" json:"status"`
	GPA       *float64      `db:"gpa" json:"gpa"`
	Advisor   string        `db:"advisor" json:"advisor"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	Major     string
	Status    StudentStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Transcript bundles a student with their enrollment history and fresh GPA.
type Transcript struct {
	Student        Student            `json:"student"`
	GPA            *float64           `json:"gpa"`
	Enrollments    []EnrollmentDetail `json:"enrollments"`
	CreditTotal    int                `json:"credit_total"`
	BelowCreditMin bool               `json:"below_credit_min"`
}

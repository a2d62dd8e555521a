package models

// DashboardTotals carries headline counters for the operations dashboard.
type DashboardTotals struct {
	Students          int `db:"students" json:"students"`
	ActiveStudents    int `db:"active_students" json:"active_students"`
	ProbationStudents int `db:"probation_students" json:"probation_students"`
	Courses           int `db:"courses" json:"courses"`
	Enrollments       int `db:"enrollments" json:"enrollments"`
}

// CourseEnrollmentStat ranks a course by active headcount.
type CourseEnrollmentStat struct {
	CourseID   string `db:"course_id" json:"course_id"`
	Code       string `db:"code" json:"code"`
	Title      string `db:"title" json:"title"`
	Instructor string `db:"instructor" json:"instructor"`
	Capacity   int    `db:"capacity" json:"capacity"`
	Enrolled   int    `db:"enrolled" json:"enrolled"`
	Waitlisted int    `db:"waitlisted" json:"waitlisted"`
}

// GPADistribution summarises the spread of cached student GPAs.
type GPADistribution struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	P25    float64 `json:"p25"`
	P75    float64 `json:"p75"`
}

// DashboardSummary is the cached dashboard payload.
type DashboardSummary struct {
	Totals     DashboardTotals        `json:"totals"`
	TopCourses []CourseEnrollmentStat `json:"top_courses"`
	GPA        *GPADistribution       `json:"gpa,omitempty"`
}

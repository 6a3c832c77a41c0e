package models

import "time"

// Student is the learner profile owned by exactly one user account.
type Student struct {
	ID             string     `db:"id" json:"id"`
	UserID         string     `db:"user_id" json:"user_id"`
	CourseLabel    string     `db:"course_label" json:"course_label"`
	Status         string     `db:"status" json:"status"`
	EnrollmentDate *time.Time `db:"enrollment_date" json:"enrollment_date,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// StudentDetail joins the owning user account for listings.
type StudentDetail struct {
	Student
	FullName string `db:"full_name" json:"full_name"`
	Email    string `db:"email" json:"email"`
	Phone    string `db:"phone" json:"phone"`
	Active   bool   `db:"active" json:"active"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	BatchID   string
	Status    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

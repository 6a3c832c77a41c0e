package models

import "time"

// Teacher is the instructor profile owned by exactly one user account.
type Teacher struct {
	ID            string    `db:"id" json:"id"`
	UserID        string    `db:"user_id" json:"user_id"`
	Subject       string    `db:"subject" json:"subject"`
	Qualification string    `db:"qualification" json:"qualification"`
	Experience    string    `db:"experience" json:"experience"`
	Status        string    `db:"status" json:"status"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// TeacherDetail joins the owning user account for listings.
type TeacherDetail struct {
	Teacher
	FullName string `db:"full_name" json:"full_name"`
	Email    string `db:"email" json:"email"`
	Phone    string `db:"phone" json:"phone"`
	Active   bool   `db:"active" json:"active"`
}

// TeacherFilter encapsulates allowed search parameters for listing teachers.
type TeacherFilter struct {
	Search    string
	Status    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

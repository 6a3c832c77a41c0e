package models

import "time"

// Batch is a scheduled class grouping under one course and at most one
// teacher. Timing is a free-text schedule label ("10:00-11:00"); conflicts
// are detected by exact string equality on it.
type Batch struct {
	ID          string     `db:"id" json:"id"`
	Name        string     `db:"name" json:"name"`
	Code        string     `db:"code" json:"code"`
	CourseID    string     `db:"course_id" json:"course_id"`
	TeacherID   *string    `db:"teacher_id" json:"teacher_id,omitempty"`
	Timing      string     `db:"timing" json:"timing"`
	Days        string     `db:"days" json:"days"`
	MaxStudents int        `db:"max_students" json:"max_students"`
	StartDate   *time.Time `db:"start_date" json:"start_date,omitempty"`
	EndDate     *time.Time `db:"end_date" json:"end_date,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// BatchDetail joins course and teacher context for listings.
type BatchDetail struct {
	Batch
	CourseName  string  `db:"course_name" json:"course_name"`
	TeacherName *string `db:"teacher_name" json:"teacher_name,omitempty"`
}

// BatchFilter encapsulates allowed search parameters for listing batches.
type BatchFilter struct {
	CourseID  string
	TeacherID string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Enrollment is one row of the batch_students association set. The pair is
// the primary key; membership is always resolved through id lookups rather
// than object back-references.
type Enrollment struct {
	BatchID    string    `db:"batch_id" json:"batch_id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	EnrolledAt time.Time `db:"enrolled_at" json:"enrolled_at"`
}

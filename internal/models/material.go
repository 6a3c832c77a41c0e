package models

import "time"

// StudyMaterial is a file reference published by a teacher, optionally
// scoped to a course.
type StudyMaterial struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	FileURL     string    `db:"file_url" json:"file_url"`
	FileType    string    `db:"file_type" json:"file_type"`
	FileSize    int64     `db:"file_size" json:"file_size"`
	CourseID    *string   `db:"course_id" json:"course_id,omitempty"`
	TeacherID   string    `db:"teacher_id" json:"teacher_id"`
	Public      bool      `db:"public" json:"public"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// StudyMaterialDetail joins course and teacher context.
type StudyMaterialDetail struct {
	StudyMaterial
	CourseName  string `db:"course_name" json:"course_name"`
	TeacherName string `db:"teacher_name" json:"teacher_name"`
}

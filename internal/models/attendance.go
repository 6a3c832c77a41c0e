package models

import "time"

// Attendance records presence for one student in one batch on one date.
// One row per (student, batch, date); re-marking overwrites.
type Attendance struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	BatchID   string    `db:"batch_id" json:"batch_id"`
	Date      time.Time `db:"date" json:"date"`
	Present   bool      `db:"present" json:"present"`
	Remarks   string    `db:"remarks" json:"remarks"`
	MarkedBy  string    `db:"marked_by" json:"marked_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// AttendanceDetail joins student and batch context.
type AttendanceDetail struct {
	Attendance
	StudentName string `db:"student_name" json:"student_name"`
	BatchName   string `db:"batch_name" json:"batch_name"`
}

// AttendanceFilter narrows attendance queries. Policy decides which fields
// callers are allowed to set.
type AttendanceFilter struct {
	StudentID string
	BatchID   string
	BatchIDs  []string
	From      *time.Time
	To        *time.Time
}

// BatchAttendanceSummary aggregates presence per batch for a student.
type BatchAttendanceSummary struct {
	BatchID    string  `db:"batch_id" json:"batch_id"`
	BatchName  string  `db:"batch_name" json:"batch_name"`
	Total      int     `db:"total" json:"total_classes"`
	Present    int     `db:"present" json:"attended"`
	Percentage float64 `json:"percentage"`
}

// StudentAttendanceReport is one row of the admin attendance summary.
type StudentAttendanceReport struct {
	StudentID   string  `db:"student_id" json:"student_id"`
	StudentName string  `db:"student_name" json:"student_name"`
	CourseLabel string  `db:"course_label" json:"course_label"`
	Total       int     `db:"total" json:"total_classes"`
	Present     int     `db:"present" json:"present_count"`
	Percentage  float64 `json:"attendance_percentage"`
}

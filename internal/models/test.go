package models

import "time"

// Test belongs to one teacher and optionally one course.
type Test struct {
	ID              string     `db:"id" json:"id"`
	Title           string     `db:"title" json:"title"`
	Description     string     `db:"description" json:"description"`
	CourseID        *string    `db:"course_id" json:"course_id,omitempty"`
	TeacherID       string     `db:"teacher_id" json:"teacher_id"`
	TotalMarks      int        `db:"total_marks" json:"total_marks"`
	PassingMarks    int        `db:"passing_marks" json:"passing_marks"`
	DurationMinutes int        `db:"duration_minutes" json:"duration_minutes"`
	TestDate        *time.Time `db:"test_date" json:"test_date,omitempty"`
	Published       bool       `db:"published" json:"published"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}

// TestResult links one test to one student; unique per (test, student).
// A row with a nil EvaluatedAt is submitted but not yet evaluated.
type TestResult struct {
	ID            string     `db:"id" json:"id"`
	TestID        string     `db:"test_id" json:"test_id"`
	StudentID     string     `db:"student_id" json:"student_id"`
	MarksObtained int        `db:"marks_obtained" json:"marks_obtained"`
	Percentage    int        `db:"percentage" json:"percentage"`
	Remarks       string     `db:"remarks" json:"remarks"`
	SubmittedAt   *time.Time `db:"submitted_at" json:"submitted_at,omitempty"`
	EvaluatedAt   *time.Time `db:"evaluated_at" json:"evaluated_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// TestResultDetail joins test and student context for result listings.
type TestResultDetail struct {
	TestResult
	TestTitle   string  `db:"test_title" json:"test_title"`
	TotalMarks  int     `db:"total_marks" json:"total_marks"`
	CourseID    *string `db:"course_id" json:"course_id,omitempty"`
	StudentName string  `db:"student_name" json:"student_name"`
}

// TestMarksReport is one row of the admin marks summary, aggregated per test.
type TestMarksReport struct {
	TestID            string  `db:"test_id" json:"test_id"`
	TestTitle         string  `db:"test_title" json:"test_title"`
	CourseName        string  `db:"course_name" json:"course_name"`
	TeacherName       string  `db:"teacher_name" json:"teacher_name"`
	TotalMarks        int     `db:"total_marks" json:"total_marks"`
	Attempts          int     `db:"attempts" json:"attempts"`
	AveragePercentage float64 `db:"avg_percentage" json:"average_percentage"`
	PassCount         int     `db:"pass_count" json:"pass_count"`
}

// AvailableTest is a published test seen from a student's perspective.
type AvailableTest struct {
	Test
	CourseName  string     `db:"course_name" json:"course_name"`
	TeacherName string     `db:"teacher_name" json:"teacher_name"`
	Completed   bool       `json:"is_completed"`
	Marks       *int       `json:"marks_obtained,omitempty"`
	Percentage  *int       `json:"percentage,omitempty"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
}

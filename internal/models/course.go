package models

import "time"

// Course is a catalog entry; batches, tests and materials hang off it.
type Course struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Category    string    `db:"category" json:"category"`
	Duration    string    `db:"duration" json:"duration"`
	MonthlyFee  string    `db:"monthly_fee" json:"monthly_fee"`
	YearlyFee   string    `db:"yearly_fee" json:"yearly_fee"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

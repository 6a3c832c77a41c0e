package models

import "time"

// Notification audiences. "all" reaches every role.
const (
	AudienceAll      = "all"
	AudienceAdmin    = "admin"
	AudienceTeachers = "teachers"
	AudienceStudents = "students"
)

// Notification is a broadcast message owned by its creator.
type Notification struct {
	ID        string     `db:"id" json:"id"`
	Title     string     `db:"title" json:"title"`
	Message   string     `db:"message" json:"message"`
	Audience  string     `db:"audience" json:"audience"`
	Active    bool       `db:"active" json:"active"`
	ExpiresAt *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	CreatedBy string     `db:"created_by" json:"created_by"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// NotificationDetail joins creator context.
type NotificationDetail struct {
	Notification
	CreatorName  string `db:"creator_name" json:"creator_name"`
	CreatorEmail string `db:"creator_email" json:"creator_email"`
}

package models

import (
	"time"

	"github.com/lib/pq"
)

// Exam is a stored exam of the current session.
type Exam struct {
	ID          string         `db:"id" json:"id"`
	Title       string         `db:"title" json:"title"`
	Duration    int            `db:"duration" json:"duration"`
	Students    int            `db:"students" json:"students"`
	Departments pq.StringArray `db:"departments" json:"departments"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

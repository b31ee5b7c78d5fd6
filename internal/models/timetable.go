package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// TimetableStatus represents lifecycle phases for stored timetables.
type TimetableStatus string

const (
	TimetableStatusDraft     TimetableStatus = "DRAFT"
	TimetableStatusPublished TimetableStatus = "PUBLISHED"
	TimetableStatusArchived  TimetableStatus = "ARCHIVED"
)

// Timetable is a versioned, saved generation result.
type Timetable struct {
	ID        string          `db:"id" json:"id"`
	Label     string          `db:"label" json:"label"`
	Version   int             `db:"version" json:"version"`
	Status    TimetableStatus `db:"status" json:"status"`
	Meta      types.JSONText  `db:"meta" json:"meta"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// TimetableEntry is one stored assignment of a timetable.
type TimetableEntry struct {
	ID          string    `db:"id" json:"id"`
	TimetableID string    `db:"timetable_id" json:"timetable_id"`
	ExamID      string    `db:"exam_id" json:"exam_id"`
	RoomID      string    `db:"room_id" json:"room_id"`
	RoomName    string    `db:"room_name" json:"room_name"`
	Ordinal     int       `db:"ordinal" json:"ordinal"`
	Span        int       `db:"span" json:"span"`
	DayLabel    string    `db:"day_label" json:"day_label"`
	SlotLabel   string    `db:"slot_label" json:"slot_label"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// TimetableFilter narrows timetable listings.
type TimetableFilter struct {
	Label    string
	Status   TimetableStatus
	Page     int
	PageSize int
}

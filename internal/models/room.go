package models

import (
	"time"

	"github.com/lib/pq"
)

// RoomDaytime mirrors the daytime restriction column.
type RoomDaytime string

const (
	RoomDaytimeAny       RoomDaytime = ""
	RoomDaytimeMorning   RoomDaytime = "MORNING_ONLY"
	RoomDaytimeAfternoon RoomDaytime = "AFTERNOON_ONLY"
)

// Room is a stored exam room with its usage restrictions.
type Room struct {
	ID           string         `db:"id" json:"id"`
	Name         string         `db:"name" json:"name"`
	Capacity     int            `db:"capacity" json:"capacity"`
	Availability int            `db:"availability" json:"availability"`
	Daytime      RoomDaytime    `db:"daytime_restriction" json:"daytime_restriction"`
	SpecificDays pq.StringArray `db:"specific_days" json:"specific_days"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

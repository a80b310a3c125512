package types

import "time"

// AccessEvent is a recorded attempt to enter an area with a badge.
// ID is assigned once by the event store and never reused.
type AccessEvent struct {
	ID            int64     `json:"id"`
	BadgeID       string    `json:"badge_id"`
	AreaName      string    `json:"area_name"`
	Timestamp     time.Time `json:"timestamp"`
	AccessGranted bool      `json:"access_granted"`
}

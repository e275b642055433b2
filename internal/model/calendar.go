package model

import "time"

// CalendarEvent is a family calendar entry. Creation is gated by the
// family policy's calendar_create_roles.
type CalendarEvent struct {
	ID        string    `json:"id"`
	FamilyID  string    `json:"family_id"`
	Title     string    `json:"title"`
	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

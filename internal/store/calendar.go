package store

import (
	"database/sql"
	"fmt"

	"github.com/fernwood/hearth/internal/database"
	"github.com/fernwood/hearth/internal/model"
)

type CalendarStore struct {
	db *sql.DB
}

func NewCalendarStore(db *sql.DB) *CalendarStore {
	return &CalendarStore{db: db}
}

const calendarCols = `id, family_id, title, starts_at, ends_at, created_by, created_at`

func scanCalendarEvent(scanner interface{ Scan(...any) error }) (*model.CalendarEvent, error) {
	var e model.CalendarEvent
	err := scanner.Scan(&e.ID, &e.FamilyID, &e.Title, &e.StartsAt, &e.EndsAt, &e.CreatedBy, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Insert writes a new event within the caller's transaction, so the event
// and its audit entry commit together.
func (s *CalendarStore) Insert(q database.DBTX, e *model.CalendarEvent) error {
	_, err := q.Exec(
		`INSERT INTO calendar_events (id, family_id, title, starts_at, ends_at, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.FamilyID, e.Title, e.StartsAt, e.EndsAt, e.CreatedBy, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert calendar event: %w", err)
	}
	return nil
}

func (s *CalendarStore) List(familyID string) ([]model.CalendarEvent, error) {
	rows, err := s.db.Query(
		`SELECT `+calendarCols+` FROM calendar_events WHERE family_id = ? ORDER BY starts_at ASC`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list calendar events: %w", err)
	}
	defer rows.Close()

	var events []model.CalendarEvent
	for rows.Next() {
		e, err := scanCalendarEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan calendar event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// Package calendar gates family calendar entries on the policy's
// calendar_create_roles list.
package calendar

import (
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fernwood/hearth/internal/apperror"
	"github.com/fernwood/hearth/internal/authz"
	"github.com/fernwood/hearth/internal/model"
	"github.com/fernwood/hearth/internal/store"
)

type Service struct {
	db       *sql.DB
	gate     *authz.Gate
	families *store.FamilyStore
	events   *store.CalendarStore
	audits   *store.AuditStore
	now      func() time.Time
}

func NewService(db *sql.DB, gate *authz.Gate, families *store.FamilyStore, events *store.CalendarStore, audits *store.AuditStore) *Service {
	return &Service{
		db:       db,
		gate:     gate,
		families: families,
		events:   events,
		audits:   audits,
		now:      time.Now,
	}
}

// SetClock overrides the service clock, for tests.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Create adds a calendar entry if the caller's role is in the family
// policy's creation list.
func (s *Service) Create(actorUID, familyID, title string, startsAt, endsAt time.Time) (*model.CalendarEvent, error) {
	role, err := s.gate.RoleOf(familyID, actorUID)
	if err != nil {
		if apperror.Is(err, apperror.NotFound) {
			return nil, apperror.New(apperror.PermissionDenied, "not a member of this family")
		}
		return nil, err
	}

	family, err := s.families.GetByID(familyID)
	if err != nil {
		return nil, err
	}
	if family == nil {
		return nil, apperror.New(apperror.NotFound, "family not found")
	}
	if !family.Policy.MayCreateCalendarEvents(role) {
		return nil, apperror.New(apperror.PermissionDenied, "role %s may not create calendar entries", role)
	}

	if strings.TrimSpace(title) == "" {
		return nil, apperror.New(apperror.InvalidArgument, "title is required")
	}
	if !endsAt.After(startsAt) {
		return nil, apperror.New(apperror.InvalidArgument, "ends_at must be after starts_at")
	}

	now := s.now().UTC()
	event := &model.CalendarEvent{
		ID:        uuid.NewString(),
		FamilyID:  familyID,
		Title:     strings.TrimSpace(title),
		StartsAt:  startsAt.UTC(),
		EndsAt:    endsAt.UTC(),
		CreatedBy: actorUID,
		CreatedAt: now,
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.events.Insert(tx, event); err != nil {
		return nil, err
	}
	if err := s.audits.Append(tx, &model.AuditEntry{
		ID:        uuid.NewString(),
		FamilyID:  familyID,
		Action:    model.AuditCalendarEventAdded,
		ActorUID:  actorUID,
		Metadata:  map[string]any{"event_id": event.ID, "title": event.Title},
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return event, nil
}

// List returns the family's calendar entries ordered by start time.
func (s *Service) List(actorUID, familyID string) ([]model.CalendarEvent, error) {
	if _, err := s.gate.RoleOf(familyID, actorUID); err != nil {
		return nil, err
	}
	return s.events.List(familyID)
}

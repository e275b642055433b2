// Package ledger exposes the append-only allowance ledger: manual entries
// by parental roles, paginated history, and derived balances.
package ledger

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/fernwood/hearth/internal/apperror"
	"github.com/fernwood/hearth/internal/authz"
	"github.com/fernwood/hearth/internal/model"
	"github.com/fernwood/hearth/internal/store"
)

const defaultPageSize = 50

type Service struct {
	db      *sql.DB
	gate    *authz.Gate
	members *store.MemberStore
	entries *store.LedgerStore
	audits  *store.AuditStore
	now     func() time.Time
}

func NewService(db *sql.DB, gate *authz.Gate, members *store.MemberStore, entries *store.LedgerStore, audits *store.AuditStore) *Service {
	return &Service{
		db:      db,
		gate:    gate,
		members: members,
		entries: entries,
		audits:  audits,
		now:     time.Now,
	}
}

// SetClock overrides the service clock, for tests.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// AddManualEntry appends a parent-initiated credit or debit. The entry and
// its audit record commit together.
func (s *Service) AddManualEntry(actorUID, familyID, memberUID string, amountCents *int64, points *int, entryType model.EntryType, description string) (*model.LedgerEntry, error) {
	if _, err := s.gate.RequireRole(familyID, actorUID, model.RoleParent, model.RoleCoParent); err != nil {
		return nil, err
	}
	if _, ok := model.ParseEntryType(string(entryType)); !ok {
		return nil, apperror.New(apperror.InvalidArgument, "invalid entry type %q", entryType)
	}
	if amountCents == nil && points == nil {
		return nil, apperror.New(apperror.InvalidArgument, "at least one of amount_cents or points is required")
	}
	if amountCents != nil && *amountCents <= 0 {
		return nil, apperror.New(apperror.InvalidArgument, "amount_cents must be positive")
	}
	if points != nil && *points <= 0 {
		return nil, apperror.New(apperror.InvalidArgument, "points must be positive")
	}

	member, err := s.members.Get(familyID, memberUID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, apperror.New(apperror.NotFound, "member not found")
	}

	now := s.now().UTC()
	entry := &model.LedgerEntry{
		ID:          uuid.NewString(),
		FamilyID:    familyID,
		MemberUID:   memberUID,
		AmountCents: amountCents,
		Points:      points,
		Type:        entryType,
		Source:      model.SourceManual,
		Description: description,
		EntryDate:   now,
		CreatedBy:   actorUID,
		CreatedAt:   now,
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.entries.Insert(tx, entry); err != nil {
		return nil, err
	}

	metadata := map[string]any{
		"entry_id": entry.ID,
		"type":     string(entryType),
	}
	if amountCents != nil {
		metadata["amount_cents"] = *amountCents
	}
	if points != nil {
		metadata["points"] = *points
	}
	if err := s.audits.Append(tx, &model.AuditEntry{
		ID:        uuid.NewString(),
		FamilyID:  familyID,
		Action:    model.AuditLedgerEntryCreated,
		ActorUID:  actorUID,
		TargetUID: &memberUID,
		Metadata:  metadata,
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return entry, nil
}

// Balance folds the member's full entry history, regardless of how the
// listing is paginated.
func (s *Service) Balance(actorUID, familyID, memberUID string) (*model.Balance, error) {
	if _, err := s.gate.RoleOf(familyID, actorUID); err != nil {
		return nil, err
	}
	member, err := s.members.Get(familyID, memberUID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, apperror.New(apperror.NotFound, "member not found")
	}
	return s.entries.ComputeBalance(familyID, memberUID)
}

// History lists entries newest first.
func (s *Service) History(actorUID, familyID, memberUID string, limit, offset int) ([]model.LedgerEntry, error) {
	if _, err := s.gate.RoleOf(familyID, actorUID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return s.entries.ListByMember(familyID, memberUID, limit, offset)
}

package store

import (
	"database/sql"
	"fmt"

	"github.com/fernwood/hearth/internal/database"
	"github.com/fernwood/hearth/internal/model"
)

// LedgerStore is append-only: there is no update or delete path.
// Corrections are compensating entries.
type LedgerStore struct {
	db *sql.DB
}

func NewLedgerStore(db *sql.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

const ledgerCols = `id, family_id, member_uid, amount_cents, points, type, source, source_id, description, entry_date, created_by, created_at`

func scanLedgerEntry(scanner interface{ Scan(...any) error }) (*model.LedgerEntry, error) {
	var e model.LedgerEntry
	var amount, points sql.NullInt64
	var entryType, source string
	var sourceID sql.NullString

	err := scanner.Scan(
		&e.ID, &e.FamilyID, &e.MemberUID, &amount, &points, &entryType,
		&source, &sourceID, &e.Description, &e.EntryDate, &e.CreatedBy, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Type = model.EntryType(entryType)
	e.Source = model.EntrySource(source)
	if amount.Valid {
		a := amount.Int64
		e.AmountCents = &a
	}
	if points.Valid {
		p := int(points.Int64)
		e.Points = &p
	}
	if sourceID.Valid {
		e.SourceID = &sourceID.String
	}
	return &e, nil
}

// Insert appends one entry within the caller's transaction.
func (s *LedgerStore) Insert(q database.DBTX, e *model.LedgerEntry) error {
	var amount, points sql.NullInt64
	if e.AmountCents != nil {
		amount = sql.NullInt64{Int64: *e.AmountCents, Valid: true}
	}
	if e.Points != nil {
		points = sql.NullInt64{Int64: int64(*e.Points), Valid: true}
	}
	var sourceID sql.NullString
	if e.SourceID != nil {
		sourceID = sql.NullString{String: *e.SourceID, Valid: true}
	}

	_, err := q.Exec(
		`INSERT INTO allowance_ledger (id, family_id, member_uid, amount_cents, points, type, source, source_id, description, entry_date, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.FamilyID, e.MemberUID, amount, points, string(e.Type),
		string(e.Source), sourceID, e.Description, e.EntryDate, e.CreatedBy, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// ListByMember returns entries newest first. Pagination only affects the
// listing; balances always sum the full history.
func (s *LedgerStore) ListByMember(familyID, memberUID string, limit, offset int) ([]model.LedgerEntry, error) {
	rows, err := s.db.Query(
		`SELECT `+ledgerCols+` FROM allowance_ledger WHERE family_id = ? AND member_uid = ? ORDER BY entry_date DESC, created_at DESC LIMIT ? OFFSET ?`,
		familyID, memberUID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []model.LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// ComputeBalance folds the member's full entry history: credits add,
// debits subtract, independently for cents and points.
func (s *LedgerStore) ComputeBalance(familyID, memberUID string) (*model.Balance, error) {
	b := &model.Balance{MemberUID: memberUID}
	err := s.db.QueryRow(
		`SELECT
			COALESCE(SUM(CASE WHEN type = 'credit' THEN COALESCE(amount_cents, 0) ELSE -COALESCE(amount_cents, 0) END), 0),
			COALESCE(SUM(CASE WHEN type = 'credit' THEN COALESCE(points, 0) ELSE -COALESCE(points, 0) END), 0)
		 FROM allowance_ledger WHERE family_id = ? AND member_uid = ?`,
		familyID, memberUID,
	).Scan(&b.AmountCents, &b.Points)
	if err != nil {
		return nil, fmt.Errorf("compute balance: %w", err)
	}
	return b, nil
}

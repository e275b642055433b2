package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/fernwood/hearth/internal/database"
	"github.com/fernwood/hearth/internal/model"
)

type CompletionStore struct {
	db *sql.DB
}

func NewCompletionStore(db *sql.DB) *CompletionStore {
	return &CompletionStore{db: db}
}

const completionCols = `id, family_id, task_id, member_uid, completed_at, period_key, status, approved_by, approved_at, rejected_at, rejection_reason, points_awarded, amount_awarded`

func scanCompletion(scanner interface{ Scan(...any) error }) (*model.TaskCompletion, error) {
	var c model.TaskCompletion
	var status string
	var approvedBy, rejectionReason sql.NullString
	var approvedAt, rejectedAt sql.NullTime
	var points, amount sql.NullInt64

	err := scanner.Scan(
		&c.ID, &c.FamilyID, &c.TaskID, &c.MemberUID, &c.CompletedAt,
		&c.PeriodKey, &status, &approvedBy, &approvedAt, &rejectedAt,
		&rejectionReason, &points, &amount,
	)
	if err != nil {
		return nil, err
	}

	c.Status = model.CompletionStatus(status)
	if approvedBy.Valid {
		c.ApprovedBy = &approvedBy.String
	}
	if approvedAt.Valid {
		c.ApprovedAt = &approvedAt.Time
	}
	if rejectedAt.Valid {
		c.RejectedAt = &rejectedAt.Time
	}
	if rejectionReason.Valid {
		c.RejectionReason = &rejectionReason.String
	}
	if points.Valid {
		p := int(points.Int64)
		c.PointsAwarded = &p
	}
	if amount.Valid {
		a := amount.Int64
		c.AmountAwarded = &a
	}
	return &c, nil
}

// Insert writes a new completion row within the caller's transaction.
func (s *CompletionStore) Insert(q database.DBTX, c *model.TaskCompletion) error {
	var approvedBy sql.NullString
	var approvedAt sql.NullTime
	if c.ApprovedBy != nil {
		approvedBy = sql.NullString{String: *c.ApprovedBy, Valid: true}
	}
	if c.ApprovedAt != nil {
		approvedAt = sql.NullTime{Time: *c.ApprovedAt, Valid: true}
	}
	var points, amount sql.NullInt64
	if c.PointsAwarded != nil {
		points = sql.NullInt64{Int64: int64(*c.PointsAwarded), Valid: true}
	}
	if c.AmountAwarded != nil {
		amount = sql.NullInt64{Int64: *c.AmountAwarded, Valid: true}
	}

	_, err := q.Exec(
		`INSERT INTO task_completions (id, family_id, task_id, member_uid, completed_at, period_key, status, approved_by, approved_at, points_awarded, amount_awarded)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.FamilyID, c.TaskID, c.MemberUID, c.CompletedAt, c.PeriodKey,
		string(c.Status), approvedBy, approvedAt, points, amount,
	)
	if err != nil {
		return fmt.Errorf("insert completion: %w", err)
	}
	return nil
}

func (s *CompletionStore) GetByID(id string) (*model.TaskCompletion, error) {
	row := s.db.QueryRow(`SELECT `+completionCols+` FROM task_completions WHERE id = ?`, id)
	c, err := scanCompletion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get completion: %w", err)
	}
	return c, nil
}

// CountApprovedForPeriod counts approved completions for the same
// (task, member, period). Run inside the approval transaction so the
// read-check-write is atomic; the partial unique index backstops it.
func (s *CompletionStore) CountApprovedForPeriod(q database.DBTX, taskID, memberUID, periodKey string) (int, error) {
	var n int
	err := q.QueryRow(
		`SELECT COUNT(*) FROM task_completions WHERE task_id = ? AND member_uid = ? AND period_key = ? AND status = 'approved'`,
		taskID, memberUID, periodKey,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count approved for period: %w", err)
	}
	return n, nil
}

// MarkApproved moves a pending completion to approved within the caller's
// transaction.
func (s *CompletionStore) MarkApproved(q database.DBTX, id, approvedBy string, at time.Time, points *int, amountCents *int64) error {
	var p, a sql.NullInt64
	if points != nil {
		p = sql.NullInt64{Int64: int64(*points), Valid: true}
	}
	if amountCents != nil {
		a = sql.NullInt64{Int64: *amountCents, Valid: true}
	}

	_, err := q.Exec(
		`UPDATE task_completions SET status = 'approved', approved_by = ?, approved_at = ?, points_awarded = ?, amount_awarded = ? WHERE id = ?`,
		approvedBy, at, p, a, id,
	)
	if err != nil {
		return fmt.Errorf("mark approved: %w", err)
	}
	return nil
}

// MarkRejected moves a pending completion to rejected within the caller's
// transaction.
func (s *CompletionStore) MarkRejected(q database.DBTX, id string, at time.Time, reason string) error {
	var r sql.NullString
	if reason != "" {
		r = sql.NullString{String: reason, Valid: true}
	}

	_, err := q.Exec(
		`UPDATE task_completions SET status = 'rejected', rejected_at = ?, rejection_reason = ? WHERE id = ?`,
		at, r, id,
	)
	if err != nil {
		return fmt.Errorf("mark rejected: %w", err)
	}
	return nil
}

func (s *CompletionStore) ListByStatus(familyID string, status model.CompletionStatus) ([]model.TaskCompletion, error) {
	rows, err := s.db.Query(
		`SELECT `+completionCols+` FROM task_completions WHERE family_id = ? AND status = ? ORDER BY completed_at DESC`,
		familyID, string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	defer rows.Close()

	var completions []model.TaskCompletion
	for rows.Next() {
		c, err := scanCompletion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		completions = append(completions, *c)
	}
	return completions, rows.Err()
}

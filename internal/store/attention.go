package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/fernwood/hearth/internal/database"
	"github.com/fernwood/hearth/internal/model"
)

type AttentionStore struct {
	db *sql.DB
}

func NewAttentionStore(db *sql.DB) *AttentionStore {
	return &AttentionStore{db: db}
}

const attentionCols = `id, family_id, target_uid, triggered_by, intensity, duration_sec, message, status, rate_key, created_at, expires_at, ack_at, cancelled_at`

func scanAttention(scanner interface{ Scan(...any) error }) (*model.AttentionRequest, error) {
	var r model.AttentionRequest
	var intensity, status string
	var ackAt, cancelledAt sql.NullTime

	err := scanner.Scan(
		&r.ID, &r.FamilyID, &r.TargetUID, &r.TriggeredBy, &intensity,
		&r.DurationSec, &r.Message, &status, &r.RateKey, &r.CreatedAt,
		&r.ExpiresAt, &ackAt, &cancelledAt,
	)
	if err != nil {
		return nil, err
	}

	r.Intensity = model.Intensity(intensity)
	r.Status = model.AttentionStatus(status)
	if ackAt.Valid {
		r.AckAt = &ackAt.Time
	}
	if cancelledAt.Valid {
		r.CancelledAt = &cancelledAt.Time
	}
	return &r, nil
}

// Insert writes a new request row within the caller's transaction.
func (s *AttentionStore) Insert(q database.DBTX, r *model.AttentionRequest) error {
	_, err := q.Exec(
		`INSERT INTO attention_requests (id, family_id, target_uid, triggered_by, intensity, duration_sec, message, status, rate_key, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.FamilyID, r.TargetUID, r.TriggeredBy, string(r.Intensity),
		r.DurationSec, r.Message, string(r.Status), r.RateKey, r.CreatedAt, r.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert attention request: %w", err)
	}
	return nil
}

func (s *AttentionStore) GetByID(id string) (*model.AttentionRequest, error) {
	row := s.db.QueryRow(`SELECT `+attentionCols+` FROM attention_requests WHERE id = ?`, id)
	r, err := scanAttention(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get attention request: %w", err)
	}
	return r, nil
}

// CountByRateKey counts an actor's requests in one rate bucket. Run inside
// the send transaction so the count and the insert are atomic.
func (s *AttentionStore) CountByRateKey(q database.DBTX, familyID, actorUID, rateKey string) (int, error) {
	var n int
	err := q.QueryRow(
		`SELECT COUNT(*) FROM attention_requests WHERE family_id = ? AND triggered_by = ? AND rate_key = ?`,
		familyID, actorUID, rateKey,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count by rate key: %w", err)
	}
	return n, nil
}

// MarkAcknowledged transitions active -> acknowledged within the caller's
// transaction. The status guard in the WHERE clause keeps concurrent acks
// from writing twice.
func (s *AttentionStore) MarkAcknowledged(q database.DBTX, id string, at time.Time) (bool, error) {
	res, err := q.Exec(
		`UPDATE attention_requests SET status = 'acknowledged', ack_at = ? WHERE id = ? AND status = 'active'`,
		at, id,
	)
	if err != nil {
		return false, fmt.Errorf("mark acknowledged: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// MarkCancelled transitions active -> cancelled within the caller's
// transaction.
func (s *AttentionStore) MarkCancelled(q database.DBTX, id string, at time.Time) (bool, error) {
	res, err := q.Exec(
		`UPDATE attention_requests SET status = 'cancelled', cancelled_at = ? WHERE id = ? AND status = 'active'`,
		at, id,
	)
	if err != nil {
		return false, fmt.Errorf("mark cancelled: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// MarkFailed records a dispatch failure. Runs after the send transaction
// committed, so the request remains for audit even when delivery failed.
func (s *AttentionStore) MarkFailed(id string) error {
	_, err := s.db.Exec(
		`UPDATE attention_requests SET status = 'failed' WHERE id = ? AND status = 'active'`,
		id,
	)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

func (s *AttentionStore) ListByFamily(familyID string) ([]model.AttentionRequest, error) {
	rows, err := s.db.Query(
		`SELECT `+attentionCols+` FROM attention_requests WHERE family_id = ? ORDER BY created_at DESC`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list attention requests: %w", err)
	}
	defer rows.Close()

	var requests []model.AttentionRequest
	for rows.Next() {
		r, err := scanAttention(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attention request: %w", err)
		}
		requests = append(requests, *r)
	}
	return requests, rows.Err()
}

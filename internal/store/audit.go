package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/fernwood/hearth/internal/database"
	"github.com/fernwood/hearth/internal/model"
)

// AuditStore is append-only. Entries are written in the same transaction
// as the effect they record and are never consulted for control decisions.
type AuditStore struct {
	db *sql.DB
}

func NewAuditStore(db *sql.DB) *AuditStore {
	return &AuditStore{db: db}
}

const auditCols = `id, family_id, action, actor_uid, target_uid, metadata, created_at`

// Append writes one entry within the caller's transaction. An error here
// must abort the whole privileged operation.
func (s *AuditStore) Append(q database.DBTX, e *model.AuditEntry) error {
	var metadata sql.NullString
	if len(e.Metadata) > 0 {
		data, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("marshal audit metadata: %w", err)
		}
		metadata = sql.NullString{String: string(data), Valid: true}
	}
	var target sql.NullString
	if e.TargetUID != nil {
		target = sql.NullString{String: *e.TargetUID, Valid: true}
	}

	_, err := q.Exec(
		`INSERT INTO audit_log (id, family_id, action, actor_uid, target_uid, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.FamilyID, string(e.Action), e.ActorUID, target, metadata, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// ListByFamily returns entries newest first, for traceability reads only.
func (s *AuditStore) ListByFamily(familyID string, limit int) ([]model.AuditEntry, error) {
	rows, err := s.db.Query(
		`SELECT `+auditCols+` FROM audit_log WHERE family_id = ? ORDER BY created_at DESC LIMIT ?`,
		familyID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		var action string
		var target, metadata sql.NullString

		if err := rows.Scan(&e.ID, &e.FamilyID, &action, &e.ActorUID, &target, &metadata, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Action = model.AuditAction(action)
		if target.Valid {
			e.TargetUID = &target.String
		}
		if metadata.Valid {
			if err := json.Unmarshal([]byte(metadata.String), &e.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal audit metadata: %w", err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

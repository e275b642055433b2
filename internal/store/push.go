package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fernwood/hearth/internal/model"
)

type PushStore struct {
	db *sql.DB
}

func NewPushStore(db *sql.DB) *PushStore {
	return &PushStore{db: db}
}

const pushCols = `id, family_id, member_uid, endpoint, p256dh_key, auth_key, device_name, created_at`

func scanPushEndpoint(scanner interface{ Scan(...any) error }) (*model.PushEndpoint, error) {
	var p model.PushEndpoint
	err := scanner.Scan(&p.ID, &p.FamilyID, &p.MemberUID, &p.Endpoint, &p.P256dhKey, &p.AuthKey, &p.DeviceName, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create registers a device endpoint. Re-registering the same endpoint URL
// replaces its keys instead of duplicating the row.
func (s *PushStore) Create(familyID, memberUID, endpoint, p256dh, authKey, deviceName string, now time.Time) (*model.PushEndpoint, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO push_endpoints (id, family_id, member_uid, endpoint, p256dh_key, auth_key, device_name, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(endpoint) DO UPDATE SET member_uid = excluded.member_uid, p256dh_key = excluded.p256dh_key, auth_key = excluded.auth_key, device_name = excluded.device_name`,
		id, familyID, memberUID, endpoint, p256dh, authKey, deviceName, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert push endpoint: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+pushCols+` FROM push_endpoints WHERE endpoint = ?`, endpoint)
	return scanPushEndpoint(row)
}

func (s *PushStore) ListByMember(familyID, memberUID string) ([]model.PushEndpoint, error) {
	rows, err := s.db.Query(
		`SELECT `+pushCols+` FROM push_endpoints WHERE family_id = ? AND member_uid = ? ORDER BY created_at ASC`,
		familyID, memberUID,
	)
	if err != nil {
		return nil, fmt.Errorf("list push endpoints: %w", err)
	}
	defer rows.Close()

	var endpoints []model.PushEndpoint
	for rows.Next() {
		p, err := scanPushEndpoint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan push endpoint: %w", err)
		}
		endpoints = append(endpoints, *p)
	}
	return endpoints, rows.Err()
}

func (s *PushStore) Delete(familyID, id string) error {
	_, err := s.db.Exec(`DELETE FROM push_endpoints WHERE family_id = ? AND id = ?`, familyID, id)
	if err != nil {
		return fmt.Errorf("delete push endpoint: %w", err)
	}
	return nil
}

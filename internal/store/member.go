package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/fernwood/hearth/internal/database"
	"github.com/fernwood/hearth/internal/model"
)

type MemberStore struct {
	db *sql.DB
}

func NewMemberStore(db *sql.DB) *MemberStore {
	return &MemberStore{db: db}
}

const memberCols = `family_id, uid, name, role, birth_year, pin_hash, from_role, to_role, promoted_by, transition_method, transition_note, promoted_at, created_at, updated_at`

func scanMember(scanner interface{ Scan(...any) error }) (*model.Member, error) {
	var m model.Member
	var role string
	var birthYear sql.NullInt64
	var pinHash, fromRole, toRole, promotedBy, method, note sql.NullString
	var promotedAt sql.NullTime

	err := scanner.Scan(
		&m.FamilyID, &m.UID, &m.Name, &role, &birthYear, &pinHash,
		&fromRole, &toRole, &promotedBy, &method, &note, &promotedAt,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	r, ok := model.ParseRole(role)
	if !ok {
		return nil, fmt.Errorf("member %s: invalid stored role %q", m.UID, role)
	}
	m.Role = r
	m.HasPIN = pinHash.Valid && pinHash.String != ""
	if birthYear.Valid {
		y := int(birthYear.Int64)
		m.BirthYear = &y
	}
	if toRole.Valid && promotedAt.Valid {
		from, _ := model.ParseRole(fromRole.String)
		to, _ := model.ParseRole(toRole.String)
		m.LastTransition = &model.RoleTransition{
			FromRole:   from,
			ToRole:     to,
			PromotedBy: promotedBy.String,
			Method:     model.TransitionMethod(method.String),
			Note:       note.String,
			PromotedAt: promotedAt.Time,
		}
	}
	return &m, nil
}

func (s *MemberStore) Create(familyID, uid, name string, role model.Role, birthYear *int, now time.Time) (*model.Member, error) {
	var by sql.NullInt64
	if birthYear != nil {
		by = sql.NullInt64{Int64: int64(*birthYear), Valid: true}
	}

	_, err := s.db.Exec(
		`INSERT INTO members (family_id, uid, name, role, birth_year, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		familyID, uid, name, string(role), by, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert member: %w", err)
	}
	return s.Get(familyID, uid)
}

func (s *MemberStore) Get(familyID, uid string) (*model.Member, error) {
	row := s.db.QueryRow(`SELECT `+memberCols+` FROM members WHERE family_id = ? AND uid = ?`, familyID, uid)
	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

func (s *MemberStore) List(familyID string) ([]model.Member, error) {
	rows, err := s.db.Query(`SELECT `+memberCols+` FROM members WHERE family_id = ? ORDER BY created_at ASC, uid ASC`, familyID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []model.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

// UpdateRole writes the new role and transition metadata. Takes a DBTX so
// the role change and its audit entry commit together.
func (s *MemberStore) UpdateRole(q database.DBTX, familyID, uid string, t model.RoleTransition) error {
	var note sql.NullString
	if t.Note != "" {
		note = sql.NullString{String: t.Note, Valid: true}
	}

	_, err := q.Exec(
		`UPDATE members SET role = ?, from_role = ?, to_role = ?, promoted_by = ?, transition_method = ?, transition_note = ?, promoted_at = ?, updated_at = ?
		 WHERE family_id = ? AND uid = ?`,
		string(t.ToRole), string(t.FromRole), string(t.ToRole), t.PromotedBy,
		string(t.Method), note, t.PromotedAt, t.PromotedAt, familyID, uid,
	)
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	return nil
}

func (s *MemberStore) SetPIN(familyID, uid, pinHash string, now time.Time) error {
	_, err := s.db.Exec(
		`UPDATE members SET pin_hash = ?, updated_at = ? WHERE family_id = ? AND uid = ?`,
		pinHash, now, familyID, uid,
	)
	if err != nil {
		return fmt.Errorf("set pin: %w", err)
	}
	return nil
}

// GetPINHash returns the stored bcrypt hash, or "" when no PIN is set.
func (s *MemberStore) GetPINHash(familyID, uid string) (string, error) {
	var hash sql.NullString
	err := s.db.QueryRow(`SELECT pin_hash FROM members WHERE family_id = ? AND uid = ?`, familyID, uid).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get pin hash: %w", err)
	}
	return hash.String, nil
}

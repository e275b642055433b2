package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fernwood/hearth/internal/database"
	"github.com/fernwood/hearth/internal/model"
)

type FamilyStore struct {
	db *sql.DB
}

func NewFamilyStore(db *sql.DB) *FamilyStore {
	return &FamilyStore{db: db}
}

const familyCols = `id, name, teen_age, adult_age, allow_manual_promotion, allow_teen_role, calendar_create_roles, created_at, updated_at`

func scanFamily(scanner interface{ Scan(...any) error }) (*model.Family, error) {
	var f model.Family
	var manual, teen int
	var calendarRoles string

	err := scanner.Scan(
		&f.ID, &f.Name, &f.Policy.TeenAge, &f.Policy.AdultAge,
		&manual, &teen, &calendarRoles, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	f.Policy.AllowManualPromotion = manual != 0
	f.Policy.AllowTeenRole = teen != 0
	roles, err := parseRoleList(calendarRoles)
	if err != nil {
		return nil, fmt.Errorf("family %s: %w", f.ID, err)
	}
	f.Policy.CalendarCreateRoles = roles
	return &f, nil
}

// parseRoleList decodes the stored comma-joined role list, rejecting
// anything outside the role enum at the store boundary.
func parseRoleList(s string) ([]model.Role, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	roles := make([]model.Role, 0, len(parts))
	for _, p := range parts {
		r, ok := model.ParseRole(strings.TrimSpace(p))
		if !ok {
			return nil, fmt.Errorf("invalid role %q in role list", p)
		}
		roles = append(roles, r)
	}
	return roles, nil
}

func joinRoleList(roles []model.Role) string {
	parts := make([]string, len(roles))
	for i, r := range roles {
		parts[i] = string(r)
	}
	return strings.Join(parts, ",")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *FamilyStore) Create(name string, now time.Time) (*model.Family, error) {
	id := uuid.NewString()
	p := model.DefaultPolicy()

	_, err := s.db.Exec(
		`INSERT INTO families (id, name, teen_age, adult_age, allow_manual_promotion, allow_teen_role, calendar_create_roles, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, name, p.TeenAge, p.AdultAge, boolToInt(p.AllowManualPromotion),
		boolToInt(p.AllowTeenRole), joinRoleList(p.CalendarCreateRoles), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert family: %w", err)
	}
	return s.GetByID(id)
}

func (s *FamilyStore) GetByID(id string) (*model.Family, error) {
	row := s.db.QueryRow(`SELECT `+familyCols+` FROM families WHERE id = ?`, id)
	f, err := scanFamily(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get family: %w", err)
	}
	return f, nil
}

// UpdatePolicy writes the full policy. It takes a DBTX so the policy write
// and its audit entry commit together.
func (s *FamilyStore) UpdatePolicy(q database.DBTX, familyID string, p model.Policy, now time.Time) error {
	_, err := q.Exec(
		`UPDATE families SET teen_age = ?, adult_age = ?, allow_manual_promotion = ?, allow_teen_role = ?, calendar_create_roles = ?, updated_at = ? WHERE id = ?`,
		p.TeenAge, p.AdultAge, boolToInt(p.AllowManualPromotion),
		boolToInt(p.AllowTeenRole), joinRoleList(p.CalendarCreateRoles), now, familyID,
	)
	if err != nil {
		return fmt.Errorf("update policy: %w", err)
	}
	return nil
}

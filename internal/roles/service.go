// Package roles validates and applies family role changes and policy
// updates, enforcing the parental hierarchy.
package roles

import (
	"database/sql"
	"log/slog"
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
	members  *store.MemberStore
	audits   *store.AuditStore
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(db *sql.DB, gate *authz.Gate, families *store.FamilyStore, members *store.MemberStore, audits *store.AuditStore, logger *slog.Logger) *Service {
	return &Service{
		db:       db,
		gate:     gate,
		families: families,
		members:  members,
		audits:   audits,
		logger:   logger,
		now:      time.Now,
	}
}

// SetClock overrides the service clock, for tests.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// ChangeRole applies a role transition to the target member. Only parental
// roles may change roles at all; only PARENT may touch a member who holds
// a parental role.
func (s *Service) ChangeRole(actorUID, familyID, targetUID string, newRole model.Role, method model.TransitionMethod, note string) (*model.Member, error) {
	if _, ok := model.ParseRole(string(newRole)); !ok {
		return nil, apperror.New(apperror.InvalidArgument, "invalid role %q", newRole)
	}
	if _, ok := model.ParseTransitionMethod(string(method)); !ok {
		return nil, apperror.New(apperror.InvalidArgument, "invalid transition method %q", method)
	}

	actorRole, err := s.gate.RequireRole(familyID, actorUID, model.RoleParent, model.RoleCoParent)
	if err != nil {
		return nil, err
	}

	family, err := s.families.GetByID(familyID)
	if err != nil {
		return nil, err
	}
	if family == nil {
		return nil, apperror.New(apperror.NotFound, "family not found")
	}
	if method == model.TransitionManual && !family.Policy.AllowManualPromotion {
		return nil, apperror.New(apperror.FailedPrecondition, "manual promotion is disabled for this family")
	}
	if newRole == model.RoleTeen && !family.Policy.AllowTeenRole {
		return nil, apperror.New(apperror.InvalidArgument, "teen role is disabled for this family")
	}

	target, err := s.members.Get(familyID, targetUID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, apperror.New(apperror.NotFound, "target member not found")
	}
	if !authz.CanManageRole(actorRole, target.Role) {
		return nil, apperror.New(apperror.PermissionDenied, "role %s may not change a member holding %s", actorRole, target.Role)
	}

	now := s.now().UTC()
	transition := model.RoleTransition{
		FromRole:   target.Role,
		ToRole:     newRole,
		PromotedBy: actorUID,
		Method:     method,
		Note:       note,
		PromotedAt: now,
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.members.UpdateRole(tx, familyID, targetUID, transition); err != nil {
		return nil, err
	}
	if err := s.audits.Append(tx, &model.AuditEntry{
		ID:        uuid.NewString(),
		FamilyID:  familyID,
		Action:    model.AuditMemberRoleChanged,
		ActorUID:  actorUID,
		TargetUID: &targetUID,
		Metadata: map[string]any{
			"from_role": string(transition.FromRole),
			"to_role":   string(transition.ToRole),
			"method":    string(method),
			"note":      note,
		},
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("role changed", "family_id", familyID, "target_uid", targetUID, "from", transition.FromRole, "to", newRole, "method", method)
	return s.members.Get(familyID, targetUID)
}

// UpdatePolicy merges a partial policy update. Stricter than role changes:
// only PARENT may update policy.
func (s *Service) UpdatePolicy(actorUID, familyID string, patch model.PolicyPatch) (*model.Family, error) {
	if _, err := s.gate.RequireRole(familyID, actorUID, model.RoleParent); err != nil {
		return nil, err
	}

	family, err := s.families.GetByID(familyID)
	if err != nil {
		return nil, err
	}
	if family == nil {
		return nil, apperror.New(apperror.NotFound, "family not found")
	}

	before := family.Policy
	after := patch.Apply(before)
	if after.TeenAge <= 0 || after.AdultAge <= after.TeenAge {
		return nil, apperror.New(apperror.InvalidArgument, "age thresholds must satisfy 0 < teen_age < adult_age")
	}

	now := s.now().UTC()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.families.UpdatePolicy(tx, familyID, after, now); err != nil {
		return nil, err
	}
	if err := s.audits.Append(tx, &model.AuditEntry{
		ID:       uuid.NewString(),
		FamilyID: familyID,
		Action:   model.AuditFamilyPolicyUpdated,
		ActorUID: actorUID,
		Metadata: map[string]any{
			"before": policySnapshot(before),
			"after":  policySnapshot(after),
		},
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return s.families.GetByID(familyID)
}

func policySnapshot(p model.Policy) map[string]any {
	roles := make([]string, len(p.CalendarCreateRoles))
	for i, r := range p.CalendarCreateRoles {
		roles[i] = string(r)
	}
	return map[string]any{
		"teen_age":               p.TeenAge,
		"adult_age":              p.AdultAge,
		"allow_manual_promotion": p.AllowManualPromotion,
		"allow_teen_role":        p.AllowTeenRole,
		"calendar_create_roles":  roles,
	}
}

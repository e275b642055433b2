package roles

import (
	"database/sql"
	"log/slog"
	"testing"
	"time"

	"github.com/fernwood/hearth/internal/apperror"
	"github.com/fernwood/hearth/internal/authz"
	"github.com/fernwood/hearth/internal/database"
	"github.com/fernwood/hearth/internal/model"
	"github.com/fernwood/hearth/internal/store"
)

type rolesFixture struct {
	db       *sql.DB
	svc      *Service
	families *store.FamilyStore
	members  *store.MemberStore
	audits   *store.AuditStore
	familyID string
	now      time.Time
}

func setupRoles(t *testing.T) *rolesFixture {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	families := store.NewFamilyStore(db)
	members := store.NewMemberStore(db)
	audits := store.NewAuditStore(db)

	family, err := families.Create("Test Family", now)
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	for uid, role := range map[string]model.Role{
		"parent":   model.RoleParent,
		"coparent": model.RoleCoParent,
		"adult":    model.RoleAdultMember,
		"kid":      model.RoleChild,
	} {
		if _, err := members.Create(family.ID, uid, uid, role, nil, now); err != nil {
			t.Fatalf("create member %s: %v", uid, err)
		}
	}

	svc := NewService(db, authz.NewGate(members), families, members, audits, slog.Default())
	svc.SetClock(func() time.Time { return now })

	return &rolesFixture{
		db:       db,
		svc:      svc,
		families: families,
		members:  members,
		audits:   audits,
		familyID: family.ID,
		now:      now,
	}
}

func TestChangeRoleRecordsTransition(t *testing.T) {
	f := setupRoles(t)

	member, err := f.svc.ChangeRole("parent", f.familyID, "kid", model.RoleTeen, model.TransitionManual, "birthday")
	if err != nil {
		t.Fatalf("change role: %v", err)
	}
	if member.Role != model.RoleTeen {
		t.Errorf("role = %s, want TEEN", member.Role)
	}
	tr := member.LastTransition
	if tr == nil {
		t.Fatal("expected transition metadata")
	}
	if tr.FromRole != model.RoleChild || tr.ToRole != model.RoleTeen {
		t.Errorf("transition %s -> %s, want CHILD -> TEEN", tr.FromRole, tr.ToRole)
	}
	if tr.PromotedBy != "parent" || tr.Method != model.TransitionManual {
		t.Errorf("promoted_by = %s method = %s", tr.PromotedBy, tr.Method)
	}

	// Audit entry carries the from/to pair.
	audits, err := f.audits.ListByFamily(f.familyID, 10)
	if err != nil {
		t.Fatalf("list audits: %v", err)
	}
	if len(audits) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(audits))
	}
	a := audits[0]
	if a.Action != model.AuditMemberRoleChanged {
		t.Errorf("action = %s", a.Action)
	}
	if a.Metadata["from_role"] != "CHILD" || a.Metadata["to_role"] != "TEEN" {
		t.Errorf("metadata = %v", a.Metadata)
	}
}

func TestChangeRoleEscalationGuard(t *testing.T) {
	f := setupRoles(t)

	// CO_PARENT may not touch a parental member.
	_, err := f.svc.ChangeRole("coparent", f.familyID, "parent", model.RoleAdultMember, model.TransitionManual, "")
	if !apperror.Is(err, apperror.PermissionDenied) {
		t.Errorf("expected PermissionDenied, got %v", err)
	}

	// But may manage non-parental members.
	if _, err := f.svc.ChangeRole("coparent", f.familyID, "kid", model.RoleTeen, model.TransitionManual, ""); err != nil {
		t.Errorf("coparent managing kid: %v", err)
	}
}

func TestChangeRoleNonParentalActor(t *testing.T) {
	f := setupRoles(t)

	_, err := f.svc.ChangeRole("adult", f.familyID, "kid", model.RoleTeen, model.TransitionManual, "")
	if !apperror.Is(err, apperror.PermissionDenied) {
		t.Errorf("expected PermissionDenied, got %v", err)
	}
}

func TestChangeRoleInvalidInput(t *testing.T) {
	f := setupRoles(t)

	if _, err := f.svc.ChangeRole("parent", f.familyID, "kid", "WIZARD", model.TransitionManual, ""); !apperror.Is(err, apperror.InvalidArgument) {
		t.Errorf("expected InvalidArgument for bad role, got %v", err)
	}
	if _, err := f.svc.ChangeRole("parent", f.familyID, "kid", model.RoleTeen, "VIBES", ""); !apperror.Is(err, apperror.InvalidArgument) {
		t.Errorf("expected InvalidArgument for bad method, got %v", err)
	}
	if _, err := f.svc.ChangeRole("parent", f.familyID, "ghost", model.RoleTeen, model.TransitionManual, ""); !apperror.Is(err, apperror.NotFound) {
		t.Errorf("expected NotFound for unknown target, got %v", err)
	}
}

func TestChangeRolePolicyGates(t *testing.T) {
	f := setupRoles(t)

	off := false
	if _, err := f.svc.UpdatePolicy("parent", f.familyID, model.PolicyPatch{AllowManualPromotion: &off, AllowTeenRole: &off}); err != nil {
		t.Fatalf("update policy: %v", err)
	}

	// Manual promotion disabled: the operation is valid but the family
	// state forbids it.
	_, err := f.svc.ChangeRole("parent", f.familyID, "kid", model.RoleAdultMember, model.TransitionManual, "")
	if !apperror.Is(err, apperror.FailedPrecondition) {
		t.Errorf("expected FailedPrecondition, got %v", err)
	}

	// Teen role disabled: TEEN is not a valid value for this family.
	_, err = f.svc.ChangeRole("parent", f.familyID, "kid", model.RoleTeen, model.TransitionAgePolicy, "")
	if !apperror.Is(err, apperror.InvalidArgument) {
		t.Errorf("expected InvalidArgument, got %v", err)
	}
}

func TestUpdatePolicyParentOnly(t *testing.T) {
	f := setupRoles(t)

	teen := 12
	if _, err := f.svc.UpdatePolicy("coparent", f.familyID, model.PolicyPatch{TeenAge: &teen}); !apperror.Is(err, apperror.PermissionDenied) {
		t.Errorf("expected PermissionDenied for coparent, got %v", err)
	}

	family, err := f.svc.UpdatePolicy("parent", f.familyID, model.PolicyPatch{TeenAge: &teen})
	if err != nil {
		t.Fatalf("update policy: %v", err)
	}
	if family.Policy.TeenAge != 12 {
		t.Errorf("teen age = %d, want 12", family.Policy.TeenAge)
	}
	// Untouched fields keep their values.
	if family.Policy.AdultAge != model.DefaultPolicy().AdultAge {
		t.Errorf("adult age = %d, want default", family.Policy.AdultAge)
	}
}

func TestUpdatePolicyInvalidThresholds(t *testing.T) {
	f := setupRoles(t)

	teen := 20
	adult := 18
	_, err := f.svc.UpdatePolicy("parent", f.familyID, model.PolicyPatch{TeenAge: &teen, AdultAge: &adult})
	if !apperror.Is(err, apperror.InvalidArgument) {
		t.Errorf("expected InvalidArgument, got %v", err)
	}
}

package authz

import (
	"testing"
	"time"

	"github.com/fernwood/hearth/internal/apperror"
	"github.com/fernwood/hearth/internal/database"
	"github.com/fernwood/hearth/internal/model"
	"github.com/fernwood/hearth/internal/store"
)

func setupGate(t *testing.T) (*Gate, string) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	families := store.NewFamilyStore(db)
	members := store.NewMemberStore(db)

	family, err := families.Create("Test Family", now)
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	seed := []struct {
		uid  string
		role model.Role
	}{
		{"parent", model.RoleParent},
		{"coparent", model.RoleCoParent},
		{"kid", model.RoleChild},
	}
	for _, m := range seed {
		if _, err := members.Create(family.ID, m.uid, m.uid, m.role, nil, now); err != nil {
			t.Fatalf("create member %s: %v", m.uid, err)
		}
	}
	return NewGate(members), family.ID
}

func TestRoleOf(t *testing.T) {
	gate, familyID := setupGate(t)

	role, err := gate.RoleOf(familyID, "kid")
	if err != nil {
		t.Fatalf("role of kid: %v", err)
	}
	if role != model.RoleChild {
		t.Errorf("role = %s, want %s", role, model.RoleChild)
	}
}

func TestRoleOfEmptyUID(t *testing.T) {
	gate, familyID := setupGate(t)

	_, err := gate.RoleOf(familyID, "")
	if !apperror.Is(err, apperror.Unauthenticated) {
		t.Errorf("expected Unauthenticated, got %v", err)
	}
}

func TestRoleOfUnknownMember(t *testing.T) {
	gate, familyID := setupGate(t)

	_, err := gate.RoleOf(familyID, "stranger")
	if !apperror.Is(err, apperror.NotFound) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestRequireRole(t *testing.T) {
	gate, familyID := setupGate(t)

	if _, err := gate.RequireRole(familyID, "parent", model.RoleParent, model.RoleCoParent); err != nil {
		t.Errorf("parent should pass: %v", err)
	}
	if _, err := gate.RequireRole(familyID, "kid", model.RoleParent, model.RoleCoParent); !apperror.Is(err, apperror.PermissionDenied) {
		t.Errorf("expected PermissionDenied for kid, got %v", err)
	}
}

func TestRequireRoleMasksMissingMembership(t *testing.T) {
	gate, familyID := setupGate(t)

	// Non-members get PermissionDenied, not NotFound.
	_, err := gate.RequireRole(familyID, "stranger", model.RoleParent)
	if !apperror.Is(err, apperror.PermissionDenied) {
		t.Errorf("expected PermissionDenied, got %v", err)
	}
}

func TestCanManageRole(t *testing.T) {
	all := []model.Role{
		model.RoleParent, model.RoleCoParent, model.RoleAdultMember,
		model.RoleTeen, model.RoleChild, model.RoleViewer,
	}

	// PARENT manages everyone.
	for _, target := range all {
		if !CanManageRole(model.RoleParent, target) {
			t.Errorf("PARENT should manage %s", target)
		}
	}

	// CO_PARENT manages everyone except parental roles.
	for _, target := range all {
		want := !target.Parental()
		if got := CanManageRole(model.RoleCoParent, target); got != want {
			t.Errorf("CanManageRole(CO_PARENT, %s) = %v, want %v", target, got, want)
		}
	}

	// Nobody else manages anyone.
	for _, manager := range []model.Role{model.RoleAdultMember, model.RoleTeen, model.RoleChild, model.RoleViewer} {
		for _, target := range all {
			if CanManageRole(manager, target) {
				t.Errorf("%s should not manage %s", manager, target)
			}
		}
	}
}

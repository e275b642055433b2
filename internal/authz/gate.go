// Package authz resolves a caller's role within a family and evaluates
// permission predicates. Pure lookups; every privileged workflow calls it
// before any mutation.
package authz

import (
	"github.com/fernwood/hearth/internal/apperror"
	"github.com/fernwood/hearth/internal/model"
	"github.com/fernwood/hearth/internal/store"
)

type Gate struct {
	members *store.MemberStore
}

func NewGate(members *store.MemberStore) *Gate {
	return &Gate{members: members}
}

// RoleOf resolves the caller's membership role.
func (g *Gate) RoleOf(familyID, uid string) (model.Role, error) {
	if uid == "" {
		return "", apperror.New(apperror.Unauthenticated, "caller identity required")
	}
	m, err := g.members.Get(familyID, uid)
	if err != nil {
		return "", err
	}
	if m == nil {
		return "", apperror.New(apperror.NotFound, "member %s not found in family", uid)
	}
	return m.Role, nil
}

// RequireRole resolves the caller's role and checks it against the allowed
// set. A missing membership surfaces as PermissionDenied, not NotFound, so
// outsiders cannot probe family composition.
func (g *Gate) RequireRole(familyID, uid string, allowed ...model.Role) (model.Role, error) {
	role, err := g.RoleOf(familyID, uid)
	if err != nil {
		if apperror.Is(err, apperror.NotFound) {
			return "", apperror.New(apperror.PermissionDenied, "not a member of this family")
		}
		return "", err
	}
	for _, a := range allowed {
		if role == a {
			return role, nil
		}
	}
	return "", apperror.New(apperror.PermissionDenied, "role %s not permitted", role)
}

// CanManageRole reports whether a manager role may change a member holding
// the target role. Parental roles manage everyone below them; only PARENT
// may touch parental roles. The switch is exhaustive over the role enum so
// adding a role is a compile-surface change, not a silent default.
func CanManageRole(manager, target model.Role) bool {
	switch manager {
	case model.RoleParent:
		return true
	case model.RoleCoParent:
		switch target {
		case model.RoleParent, model.RoleCoParent:
			return false
		case model.RoleAdultMember, model.RoleTeen, model.RoleChild, model.RoleViewer:
			return true
		}
		return false
	case model.RoleAdultMember, model.RoleTeen, model.RoleChild, model.RoleViewer:
		return false
	}
	return false
}

package model

import "time"

// Role is a member's position in the family hierarchy. The set is closed:
// permission predicates switch exhaustively over these values.
type Role string

const (
	RoleParent      Role = "PARENT"
	RoleCoParent    Role = "CO_PARENT"
	RoleAdultMember Role = "ADULT_MEMBER"
	RoleTeen        Role = "TEEN"
	RoleChild       Role = "CHILD"
	RoleViewer      Role = "VIEWER"
)

// ParseRole validates a role string from the wire.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleParent, RoleCoParent, RoleAdultMember, RoleTeen, RoleChild, RoleViewer:
		return Role(s), true
	}
	return "", false
}

// Parental reports whether the role may approve, reject, manage roles,
// and send attention requests.
func (r Role) Parental() bool {
	return r == RoleParent || r == RoleCoParent
}

// AgeGroup is derived from birth year and the family policy thresholds.
type AgeGroup string

const (
	AgeGroupChild AgeGroup = "child"
	AgeGroupTeen  AgeGroup = "teen"
	AgeGroupAdult AgeGroup = "adult"
)

// TransitionMethod records how a role change was initiated.
type TransitionMethod string

const (
	TransitionAgePolicy TransitionMethod = "AGE_POLICY"
	TransitionManual    TransitionMethod = "MANUAL"
)

// ParseTransitionMethod validates a transition method string from the wire.
func ParseTransitionMethod(s string) (TransitionMethod, bool) {
	switch TransitionMethod(s) {
	case TransitionAgePolicy, TransitionManual:
		return TransitionMethod(s), true
	}
	return "", false
}

// Member is a person's membership in a family, keyed by (family_id, uid).
type Member struct {
	FamilyID  string    `json:"family_id"`
	UID       string    `json:"uid"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	BirthYear *int      `json:"birth_year,omitempty"`
	HasPIN    bool      `json:"has_pin"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Transition metadata from the most recent role change, if any.
	LastTransition *RoleTransition `json:"last_transition,omitempty"`
}

// RoleTransition is the metadata stamped onto a member by a role change.
type RoleTransition struct {
	FromRole   Role             `json:"from_role"`
	ToRole     Role             `json:"to_role"`
	PromotedBy string           `json:"promoted_by"`
	Method     TransitionMethod `json:"method"`
	Note       string           `json:"note,omitempty"`
	PromotedAt time.Time        `json:"promoted_at"`
}

// AgeGroupFor derives the member's age group from the policy thresholds.
// Age is computed at year granularity. Members without a birth year are
// treated as adults.
func (m *Member) AgeGroupFor(p Policy, now time.Time) AgeGroup {
	if m.BirthYear == nil {
		return AgeGroupAdult
	}
	age := now.Year() - *m.BirthYear
	switch {
	case age < p.TeenAge:
		return AgeGroupChild
	case age < p.AdultAge:
		return AgeGroupTeen
	default:
		return AgeGroupAdult
	}
}

// IsMinor reports whether the member is below the policy's adult age.
func (m *Member) IsMinor(p Policy, now time.Time) bool {
	return m.AgeGroupFor(p, now) != AgeGroupAdult
}

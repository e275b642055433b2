package model

import "time"

// Policy holds a family's configurable constraints. Mutated only through
// the role service's policy update, never piecemeal.
type Policy struct {
	TeenAge              int    `json:"teen_age"`
	AdultAge             int    `json:"adult_age"`
	AllowManualPromotion bool   `json:"allow_manual_promotion"`
	AllowTeenRole        bool   `json:"allow_teen_role"`
	CalendarCreateRoles  []Role `json:"calendar_create_roles"`
}

// DefaultPolicy is applied when a family is created.
func DefaultPolicy() Policy {
	return Policy{
		TeenAge:              13,
		AdultAge:             18,
		AllowManualPromotion: true,
		AllowTeenRole:        true,
		CalendarCreateRoles:  []Role{RoleParent, RoleCoParent, RoleAdultMember},
	}
}

// MayCreateCalendarEvents reports whether the role is in the policy's
// calendar creation list.
func (p Policy) MayCreateCalendarEvents(r Role) bool {
	for _, allowed := range p.CalendarCreateRoles {
		if allowed == r {
			return true
		}
	}
	return false
}

type Family struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Policy    Policy    `json:"policy"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PolicyPatch is a partial policy update; nil fields are left unchanged.
type PolicyPatch struct {
	TeenAge              *int    `json:"teen_age,omitempty"`
	AdultAge             *int    `json:"adult_age,omitempty"`
	AllowManualPromotion *bool   `json:"allow_manual_promotion,omitempty"`
	AllowTeenRole        *bool   `json:"allow_teen_role,omitempty"`
	CalendarCreateRoles  *[]Role `json:"calendar_create_roles,omitempty"`
}

// Apply merges the patch into a copy of p and returns it.
func (patch PolicyPatch) Apply(p Policy) Policy {
	if patch.TeenAge != nil {
		p.TeenAge = *patch.TeenAge
	}
	if patch.AdultAge != nil {
		p.AdultAge = *patch.AdultAge
	}
	if patch.AllowManualPromotion != nil {
		p.AllowManualPromotion = *patch.AllowManualPromotion
	}
	if patch.AllowTeenRole != nil {
		p.AllowTeenRole = *patch.AllowTeenRole
	}
	if patch.CalendarCreateRoles != nil {
		p.CalendarCreateRoles = *patch.CalendarCreateRoles
	}
	return p
}

package model

import "time"

// Session is an authenticated member's login session, identified by an
// opaque token carried in a cookie.
type Session struct {
	ID        string    `json:"id"`
	Token     string    `json:"-"`
	FamilyID  string    `json:"family_id"`
	MemberUID string    `json:"member_uid"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

package model

import "time"

// PushEndpoint is a member's registered Web Push subscription. A member may
// register several devices; attention requests fan out to all of them.
type PushEndpoint struct {
	ID         string    `json:"id"`
	FamilyID   string    `json:"family_id"`
	MemberUID  string    `json:"member_uid"`
	Endpoint   string    `json:"endpoint"`
	P256dhKey  string    `json:"p256dh_key"`
	AuthKey    string    `json:"auth_key"`
	DeviceName string    `json:"device_name"`
	CreatedAt  time.Time `json:"created_at"`
}

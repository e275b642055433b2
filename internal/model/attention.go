package model

import "time"

// AttentionStatus is the attention-request state machine:
// active -> {acknowledged, cancelled, expired, failed}, terminal reached
// exactly once. Expiry is evaluated lazily on read.
type AttentionStatus string

const (
	AttentionActive       AttentionStatus = "active"
	AttentionAcknowledged AttentionStatus = "acknowledged"
	AttentionCancelled    AttentionStatus = "cancelled"
	AttentionExpired      AttentionStatus = "expired"
	AttentionFailed       AttentionStatus = "failed"
)

// Intensity controls how the target device rings.
type Intensity string

const (
	IntensityNormal Intensity = "normal"
	IntensityLoud   Intensity = "loud"
)

// ParseIntensity validates an intensity string from the wire.
func ParseIntensity(s string) (Intensity, bool) {
	switch Intensity(s) {
	case IntensityNormal, IntensityLoud:
		return Intensity(s), true
	}
	return "", false
}

// AttentionDurations are the permitted ring lengths in seconds.
var AttentionDurations = map[int]bool{15: true, 30: true, 60: true}

type AttentionRequest struct {
	ID          string          `json:"id"`
	FamilyID    string          `json:"family_id"`
	TargetUID   string          `json:"target_uid"`
	TriggeredBy string          `json:"triggered_by"`
	Intensity   Intensity       `json:"intensity"`
	DurationSec int             `json:"duration_sec"`
	Message     string          `json:"message,omitempty"`
	Status      AttentionStatus `json:"status"`
	RateKey     string          `json:"rate_key"`
	CreatedAt   time.Time       `json:"created_at"`
	ExpiresAt   time.Time       `json:"expires_at"`
	AckAt       *time.Time      `json:"ack_at,omitempty"`
	CancelledAt *time.Time      `json:"cancelled_at,omitempty"`
}

// EffectiveStatus treats a still-active request past its expiry as expired.
// The stored status is never flipped proactively.
func (r *AttentionRequest) EffectiveStatus(now time.Time) AttentionStatus {
	if r.Status == AttentionActive && now.After(r.ExpiresAt) {
		return AttentionExpired
	}
	return r.Status
}

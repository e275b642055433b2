package model

import (
	"testing"
	"time"
)

func TestEffectiveStatus(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	req := &AttentionRequest{
		Status:    AttentionActive,
		ExpiresAt: created.Add(30 * time.Second),
	}

	if got := req.EffectiveStatus(created.Add(10 * time.Second)); got != AttentionActive {
		t.Errorf("before expiry = %s, want active", got)
	}
	if got := req.EffectiveStatus(created.Add(31 * time.Second)); got != AttentionExpired {
		t.Errorf("after expiry = %s, want expired", got)
	}

	// Terminal statuses are never overridden by the clock.
	req.Status = AttentionAcknowledged
	if got := req.EffectiveStatus(created.Add(time.Hour)); got != AttentionAcknowledged {
		t.Errorf("acknowledged after expiry = %s, want acknowledged", got)
	}
}

func TestAttentionDurations(t *testing.T) {
	for _, d := range []int{15, 30, 60} {
		if !AttentionDurations[d] {
			t.Errorf("%d should be a valid duration", d)
		}
	}
	for _, d := range []int{0, 10, 45, 120} {
		if AttentionDurations[d] {
			t.Errorf("%d should not be a valid duration", d)
		}
	}
}

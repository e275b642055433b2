package model

import "time"

// Frequency is a task's recurrence schedule.
type Frequency string

const (
	FrequencyOneTime Frequency = "one_time"
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// ParseFrequency validates a frequency string from the wire.
func ParseFrequency(s string) (Frequency, bool) {
	switch Frequency(s) {
	case FrequencyOneTime, FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return Frequency(s), true
	}
	return "", false
}

// Task is a rewarded obligation. At least one of Points/AmountCents must be
// set. Once referenced by completions only the listed fields may change.
type Task struct {
	ID               string    `json:"id"`
	FamilyID         string    `json:"family_id"`
	Title            string    `json:"title"`
	Frequency        Frequency `json:"frequency"`
	Points           *int      `json:"points,omitempty"`
	AmountCents      *int64    `json:"amount_cents,omitempty"`
	RequiresApproval bool      `json:"requires_approval"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// HasReward reports whether the task grants anything on approval.
func (t *Task) HasReward() bool {
	return t.Points != nil || t.AmountCents != nil
}

// CompletionStatus is the task-completion state machine:
// pending_approval -> {approved, rejected}, both terminal.
type CompletionStatus string

const (
	CompletionPending  CompletionStatus = "pending_approval"
	CompletionApproved CompletionStatus = "approved"
	CompletionRejected CompletionStatus = "rejected"
)

type TaskCompletion struct {
	ID              string           `json:"id"`
	FamilyID        string           `json:"family_id"`
	TaskID          string           `json:"task_id"`
	MemberUID       string           `json:"member_uid"`
	CompletedAt     time.Time        `json:"completed_at"`
	PeriodKey       string           `json:"period_key"`
	Status          CompletionStatus `json:"status"`
	ApprovedBy      *string          `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time       `json:"approved_at,omitempty"`
	RejectedAt      *time.Time       `json:"rejected_at,omitempty"`
	RejectionReason *string          `json:"rejection_reason,omitempty"`
	PointsAwarded   *int             `json:"points_awarded,omitempty"`
	AmountAwarded   *int64           `json:"amount_awarded,omitempty"`
}

package model

import "time"

// AuditAction identifies the privileged operation an audit entry records.
type AuditAction string

const (
	AuditMemberRoleChanged   AuditAction = "MEMBER_ROLE_CHANGED"
	AuditFamilyPolicyUpdated AuditAction = "FAMILY_POLICY_UPDATED"
	AuditCompletionApproved  AuditAction = "TASK_COMPLETION_APPROVED"
	AuditCompletionRejected  AuditAction = "TASK_COMPLETION_REJECTED"
	AuditLedgerEntryCreated  AuditAction = "ALLOWANCE_LEDGER_ENTRY_CREATED"
	AuditAttentionSent       AuditAction = "ATTENTION_SENT"
	AuditAttentionAck        AuditAction = "ATTENTION_ACK"
	AuditAttentionCancelled  AuditAction = "ATTENTION_CANCELLED"
	AuditCalendarEventAdded  AuditAction = "CALENDAR_EVENT_CREATED"
)

// AuditEntry is one row of the append-only audit log, written in the same
// transaction as the effect it records. Entries are never queried for
// control decisions.
type AuditEntry struct {
	ID        string         `json:"id"`
	FamilyID  string         `json:"family_id"`
	Action    AuditAction    `json:"action"`
	ActorUID  string         `json:"actor_uid"`
	TargetUID *string        `json:"target_uid,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

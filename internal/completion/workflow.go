// Package completion implements the task-completion state machine:
// pending_approval -> {approved, rejected}. Approval recomputes the period
// key server-side, blocks duplicate rewards for the same period, credits
// the allowance ledger, and audits — all in one transaction.
package completion

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fernwood/hearth/internal/apperror"
	"github.com/fernwood/hearth/internal/authz"
	"github.com/fernwood/hearth/internal/database"
	"github.com/fernwood/hearth/internal/model"
	"github.com/fernwood/hearth/internal/store"
)

type Workflow struct {
	db          *sql.DB
	gate        *authz.Gate
	tasks       *store.TaskStore
	completions *store.CompletionStore
	ledger      *store.LedgerStore
	audits      *store.AuditStore
	logger      *slog.Logger
	now         func() time.Time
}

func NewWorkflow(db *sql.DB, gate *authz.Gate, tasks *store.TaskStore, completions *store.CompletionStore, ledger *store.LedgerStore, audits *store.AuditStore, logger *slog.Logger) *Workflow {
	return &Workflow{
		db:          db,
		gate:        gate,
		tasks:       tasks,
		completions: completions,
		ledger:      ledger,
		audits:      audits,
		logger:      logger,
		now:         time.Now,
	}
}

// SetClock overrides the workflow's clock, for tests.
func (w *Workflow) SetClock(now func() time.Time) { w.now = now }

// Create records the caller completing a task. Tasks that do not require
// approval are created directly in approved state, credited, and audited
// in the same step.
func (w *Workflow) Create(actorUID, familyID, taskID string) (*model.TaskCompletion, error) {
	if _, err := w.gate.RoleOf(familyID, actorUID); err != nil {
		return nil, err
	}

	task, err := w.tasks.GetByID(taskID)
	if err != nil {
		return nil, err
	}
	if task == nil || task.FamilyID != familyID {
		return nil, apperror.New(apperror.NotFound, "task not found")
	}
	if !task.IsActive {
		return nil, apperror.New(apperror.FailedPrecondition, "task is not active")
	}

	now := w.now().UTC()
	c := &model.TaskCompletion{
		ID:          uuid.NewString(),
		FamilyID:    familyID,
		TaskID:      task.ID,
		MemberUID:   actorUID,
		CompletedAt: now,
		PeriodKey:   PeriodKey(task.Frequency, now),
		Status:      model.CompletionPending,
	}

	if task.RequiresApproval {
		if err := w.completions.Insert(w.db, c); err != nil {
			return nil, err
		}
		return c, nil
	}

	// Auto-approved: completion, ledger credit, and audit entry are one
	// transaction, same as an explicit approval.
	c.Status = model.CompletionApproved
	c.ApprovedBy = &actorUID
	c.ApprovedAt = &now
	c.PointsAwarded = task.Points
	c.AmountAwarded = task.AmountCents

	tx, err := w.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	n, err := w.completions.CountApprovedForPeriod(tx, task.ID, actorUID, c.PeriodKey)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, apperror.New(apperror.AlreadyExists, "task already completed for period %s", c.PeriodKey)
	}
	if err := w.completions.Insert(tx, c); err != nil {
		return nil, err
	}
	if err := w.credit(tx, task, c, actorUID, now); err != nil {
		return nil, err
	}
	if err := w.auditApproved(tx, c, actorUID, now); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return c, nil
}

// Approve moves a pending completion to approved. The period key is
// recomputed server-side from the task's current schedule and the stored
// completion time; a mismatch with the stored key aborts the approval.
func (w *Workflow) Approve(actorUID, familyID, completionID string) (*model.TaskCompletion, error) {
	if _, err := w.gate.RequireRole(familyID, actorUID, model.RoleParent, model.RoleCoParent); err != nil {
		return nil, err
	}

	c, err := w.completions.GetByID(completionID)
	if err != nil {
		return nil, err
	}
	if c == nil || c.FamilyID != familyID {
		return nil, apperror.New(apperror.NotFound, "completion not found")
	}
	if c.Status != model.CompletionPending {
		return nil, apperror.New(apperror.FailedPrecondition, "completion is %s, not pending approval", c.Status)
	}

	task, err := w.tasks.GetByID(c.TaskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, apperror.New(apperror.NotFound, "task not found")
	}

	// The server-derived key is authoritative; a stored key that disagrees
	// means a tampered or clock-skewed client wrote it.
	serverKey := PeriodKey(task.Frequency, c.CompletedAt)
	if serverKey != c.PeriodKey {
		return nil, apperror.New(apperror.FailedPrecondition, "period key mismatch: stored %s, derived %s", c.PeriodKey, serverKey)
	}

	now := w.now().UTC()

	tx, err := w.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	n, err := w.completions.CountApprovedForPeriod(tx, c.TaskID, c.MemberUID, serverKey)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, apperror.New(apperror.AlreadyExists, "an approved completion already exists for period %s", serverKey)
	}

	if err := w.completions.MarkApproved(tx, c.ID, actorUID, now, task.Points, task.AmountCents); err != nil {
		return nil, err
	}
	c.Status = model.CompletionApproved
	c.ApprovedBy = &actorUID
	c.ApprovedAt = &now
	c.PointsAwarded = task.Points
	c.AmountAwarded = task.AmountCents

	if err := w.credit(tx, task, c, actorUID, now); err != nil {
		return nil, err
	}
	if err := w.auditApproved(tx, c, actorUID, now); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	w.logger.Info("completion approved", "completion_id", c.ID, "task_id", c.TaskID, "member_uid", c.MemberUID, "period_key", serverKey)
	return c, nil
}

// Reject moves a pending completion to rejected.
func (w *Workflow) Reject(actorUID, familyID, completionID, reason string) (*model.TaskCompletion, error) {
	if _, err := w.gate.RequireRole(familyID, actorUID, model.RoleParent, model.RoleCoParent); err != nil {
		return nil, err
	}

	c, err := w.completions.GetByID(completionID)
	if err != nil {
		return nil, err
	}
	if c == nil || c.FamilyID != familyID {
		return nil, apperror.New(apperror.NotFound, "completion not found")
	}
	if c.Status != model.CompletionPending {
		return nil, apperror.New(apperror.FailedPrecondition, "completion is %s, not pending approval", c.Status)
	}

	now := w.now().UTC()

	tx, err := w.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := w.completions.MarkRejected(tx, c.ID, now, reason); err != nil {
		return nil, err
	}
	if err := w.audits.Append(tx, &model.AuditEntry{
		ID:        uuid.NewString(),
		FamilyID:  familyID,
		Action:    model.AuditCompletionRejected,
		ActorUID:  actorUID,
		TargetUID: &c.MemberUID,
		Metadata: map[string]any{
			"completion_id": c.ID,
			"task_id":       c.TaskID,
			"reason":        reason,
		},
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	c.Status = model.CompletionRejected
	c.RejectedAt = &now
	if reason != "" {
		c.RejectionReason = &reason
	}
	return c, nil
}

// ListPending returns completions awaiting approval for the family.
func (w *Workflow) ListPending(familyID string) ([]model.TaskCompletion, error) {
	return w.completions.ListByStatus(familyID, model.CompletionPending)
}

// credit appends exactly one ledger credit for a rewarded task.
func (w *Workflow) credit(q database.DBTX, task *model.Task, c *model.TaskCompletion, actorUID string, now time.Time) error {
	if !task.HasReward() {
		return nil
	}
	return w.ledger.Insert(q, &model.LedgerEntry{
		ID:          uuid.NewString(),
		FamilyID:    c.FamilyID,
		MemberUID:   c.MemberUID,
		AmountCents: task.AmountCents,
		Points:      task.Points,
		Type:        model.EntryCredit,
		Source:      model.SourceTaskCompletion,
		SourceID:    &c.ID,
		Description: task.Title,
		EntryDate:   now,
		CreatedBy:   actorUID,
		CreatedAt:   now,
	})
}

func (w *Workflow) auditApproved(q database.DBTX, c *model.TaskCompletion, actorUID string, now time.Time) error {
	metadata := map[string]any{
		"completion_id": c.ID,
		"task_id":       c.TaskID,
		"period_key":    c.PeriodKey,
	}
	if c.PointsAwarded != nil {
		metadata["points"] = *c.PointsAwarded
	}
	if c.AmountAwarded != nil {
		metadata["amount_cents"] = *c.AmountAwarded
	}
	return w.audits.Append(q, &model.AuditEntry{
		ID:        uuid.NewString(),
		FamilyID:  c.FamilyID,
		Action:    model.AuditCompletionApproved,
		ActorUID:  actorUID,
		TargetUID: &c.MemberUID,
		Metadata:  metadata,
		CreatedAt: now,
	})
}

// Package attention implements the rate-limited, time-bounded "ring"
// request lifecycle: active -> {acknowledged, cancelled, expired, failed}.
package attention

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fernwood/hearth/internal/apperror"
	"github.com/fernwood/hearth/internal/authz"
	"github.com/fernwood/hearth/internal/model"
	"github.com/fernwood/hearth/internal/store"
)

const (
	// RateWindow buckets requests per (family, actor); RateLimit is the
	// maximum per bucket.
	RateWindow = 10 * time.Minute
	RateLimit  = 3
)

// Dispatcher delivers the ring to the target's devices. Implemented by the
// push service; faked in tests.
type Dispatcher interface {
	Dispatch(ctx context.Context, endpoints []model.PushEndpoint, req *model.AttentionRequest) error
}

type Service struct {
	db         *sql.DB
	gate       *authz.Gate
	members    *store.MemberStore
	endpoints  *store.PushStore
	requests   *store.AttentionStore
	audits     *store.AuditStore
	dispatcher Dispatcher
	logger     *slog.Logger
	now        func() time.Time
}

func NewService(db *sql.DB, gate *authz.Gate, members *store.MemberStore, endpoints *store.PushStore, requests *store.AttentionStore, audits *store.AuditStore, dispatcher Dispatcher, logger *slog.Logger) *Service {
	return &Service{
		db:         db,
		gate:       gate,
		members:    members,
		endpoints:  endpoints,
		requests:   requests,
		audits:     audits,
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// SetClock overrides the service clock, for tests.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// RateKey returns the 10-minute bucket the given instant falls in.
func RateKey(at time.Time) string {
	return at.UTC().Truncate(RateWindow).Format("2006-01-02T15:04")
}

// AckResult distinguishes a fresh acknowledgement from an idempotent
// repeat.
type AckResult struct {
	Request             *model.AttentionRequest `json:"request"`
	AlreadyAcknowledged bool                    `json:"already_acknowledged"`
}

// CancelResult mirrors AckResult for cancellation.
type CancelResult struct {
	Request          *model.AttentionRequest `json:"request"`
	AlreadyCancelled bool                    `json:"already_cancelled"`
}

// Send creates an attention request and delivers it best-effort. The
// rate-limit count, the request row, and the audit entry are one
// transaction; dispatch happens after commit and a failure there marks the
// request failed instead of erroring the call.
func (s *Service) Send(ctx context.Context, actorUID, familyID, targetUID string, intensity model.Intensity, durationSec int, message string) (*model.AttentionRequest, error) {
	if _, err := s.gate.RequireRole(familyID, actorUID, model.RoleParent, model.RoleCoParent); err != nil {
		return nil, err
	}
	if _, ok := model.ParseIntensity(string(intensity)); !ok {
		return nil, apperror.New(apperror.InvalidArgument, "invalid intensity %q", intensity)
	}
	if !model.AttentionDurations[durationSec] {
		return nil, apperror.New(apperror.InvalidArgument, "duration must be 15, 30 or 60 seconds")
	}

	target, err := s.members.Get(familyID, targetUID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, apperror.New(apperror.NotFound, "target member not found")
	}

	endpoints, err := s.endpoints.ListByMember(familyID, targetUID)
	if err != nil {
		return nil, err
	}
	if len(endpoints) == 0 {
		return nil, apperror.New(apperror.FailedPrecondition, "target has no registered notification endpoint")
	}

	now := s.now().UTC()
	req := &model.AttentionRequest{
		ID:          uuid.NewString(),
		FamilyID:    familyID,
		TargetUID:   targetUID,
		TriggeredBy: actorUID,
		Intensity:   intensity,
		DurationSec: durationSec,
		Message:     message,
		Status:      model.AttentionActive,
		RateKey:     RateKey(now),
		CreatedAt:   now,
		ExpiresAt:   now.Add(time.Duration(durationSec) * time.Second),
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	n, err := s.requests.CountByRateKey(tx, familyID, actorUID, req.RateKey)
	if err != nil {
		return nil, err
	}
	if n >= RateLimit {
		return nil, apperror.New(apperror.ResourceExhausted, "max %d attention requests per %s", RateLimit, RateWindow)
	}

	if err := s.requests.Insert(tx, req); err != nil {
		return nil, err
	}
	if err := s.audits.Append(tx, &model.AuditEntry{
		ID:        uuid.NewString(),
		FamilyID:  familyID,
		Action:    model.AuditAttentionSent,
		ActorUID:  actorUID,
		TargetUID: &targetUID,
		Metadata: map[string]any{
			"request_id":   req.ID,
			"intensity":    string(intensity),
			"duration_sec": durationSec,
		},
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	if err := s.dispatcher.Dispatch(ctx, endpoints, req); err != nil {
		s.logger.Warn("attention dispatch failed", "request_id", req.ID, "error", err)
		if err := s.requests.MarkFailed(req.ID); err != nil {
			s.logger.Error("mark attention failed", "request_id", req.ID, "error", err)
		} else {
			req.Status = model.AttentionFailed
		}
	}

	return req, nil
}

// Ack acknowledges a request. Only the target may acknowledge. Repeating a
// successful ack is a no-op success, never an error, so client retries are
// safe.
func (s *Service) Ack(actorUID, familyID, requestID string) (*AckResult, error) {
	req, err := s.loadInFamily(familyID, requestID)
	if err != nil {
		return nil, err
	}
	if req.TargetUID != actorUID {
		return nil, apperror.New(apperror.PermissionDenied, "only the target may acknowledge")
	}
	if req.Status == model.AttentionAcknowledged {
		return &AckResult{Request: req, AlreadyAcknowledged: true}, nil
	}

	now := s.now().UTC()
	if st := req.EffectiveStatus(now); st != model.AttentionActive {
		return nil, apperror.New(apperror.FailedPrecondition, "request is %s", st)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	updated, err := s.requests.MarkAcknowledged(tx, requestID, now)
	if err != nil {
		return nil, err
	}
	if !updated {
		// Lost a concurrent race; the request already left active state.
		tx.Rollback()
		req, err = s.loadInFamily(familyID, requestID)
		if err != nil {
			return nil, err
		}
		if req.Status == model.AttentionAcknowledged {
			return &AckResult{Request: req, AlreadyAcknowledged: true}, nil
		}
		return nil, apperror.New(apperror.FailedPrecondition, "request is %s", req.Status)
	}

	if err := s.audits.Append(tx, &model.AuditEntry{
		ID:        uuid.NewString(),
		FamilyID:  familyID,
		Action:    model.AuditAttentionAck,
		ActorUID:  actorUID,
		TargetUID: &req.TargetUID,
		Metadata:  map[string]any{"request_id": requestID},
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	req.Status = model.AttentionAcknowledged
	req.AckAt = &now
	return &AckResult{Request: req}, nil
}

// Cancel withdraws an active request. Parental roles only; idempotent the
// same way as Ack.
func (s *Service) Cancel(actorUID, familyID, requestID string) (*CancelResult, error) {
	if _, err := s.gate.RequireRole(familyID, actorUID, model.RoleParent, model.RoleCoParent); err != nil {
		return nil, err
	}

	req, err := s.loadInFamily(familyID, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status == model.AttentionCancelled {
		return &CancelResult{Request: req, AlreadyCancelled: true}, nil
	}

	now := s.now().UTC()
	if st := req.EffectiveStatus(now); st != model.AttentionActive {
		return nil, apperror.New(apperror.FailedPrecondition, "request is %s", st)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	updated, err := s.requests.MarkCancelled(tx, requestID, now)
	if err != nil {
		return nil, err
	}
	if !updated {
		tx.Rollback()
		req, err = s.loadInFamily(familyID, requestID)
		if err != nil {
			return nil, err
		}
		if req.Status == model.AttentionCancelled {
			return &CancelResult{Request: req, AlreadyCancelled: true}, nil
		}
		return nil, apperror.New(apperror.FailedPrecondition, "request is %s", req.Status)
	}

	if err := s.audits.Append(tx, &model.AuditEntry{
		ID:        uuid.NewString(),
		FamilyID:  familyID,
		Action:    model.AuditAttentionCancelled,
		ActorUID:  actorUID,
		TargetUID: &req.TargetUID,
		Metadata:  map[string]any{"request_id": requestID},
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	req.Status = model.AttentionCancelled
	req.CancelledAt = &now
	return &CancelResult{Request: req}, nil
}

// List returns the family's requests with lazy expiry applied: an active
// request past its deadline reads as expired, though the stored status is
// never flipped.
func (s *Service) List(actorUID, familyID string) ([]model.AttentionRequest, error) {
	if _, err := s.gate.RoleOf(familyID, actorUID); err != nil {
		return nil, err
	}
	requests, err := s.requests.ListByFamily(familyID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	for i := range requests {
		requests[i].Status = requests[i].EffectiveStatus(now)
	}
	return requests, nil
}

func (s *Service) loadInFamily(familyID, requestID string) (*model.AttentionRequest, error) {
	req, err := s.requests.GetByID(requestID)
	if err != nil {
		return nil, err
	}
	if req == nil || req.FamilyID != familyID {
		return nil, apperror.New(apperror.NotFound, "attention request not found")
	}
	return req, nil
}

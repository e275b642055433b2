package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/fernwood/hearth/internal/auth"
	"github.com/fernwood/hearth/internal/authz"
	"github.com/fernwood/hearth/internal/completion"
	"github.com/fernwood/hearth/internal/model"
	"github.com/fernwood/hearth/internal/store"
	"github.com/fernwood/hearth/internal/websocket"
)

type TaskHandler struct {
	workflow *completion.Workflow
	gate     *authz.Gate
	tasks    *store.TaskStore
	hub      *websocket.Hub
	logger   *slog.Logger
}

func NewTaskHandler(workflow *completion.Workflow, gate *authz.Gate, tasks *store.TaskStore, hub *websocket.Hub, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{workflow: workflow, gate: gate, tasks: tasks, hub: hub, logger: logger}
}

type taskRequest struct {
	Title            string `json:"title"`
	Frequency        string `json:"frequency"`
	Points           *int   `json:"points"`
	AmountCents      *int64 `json:"amount_cents"`
	RequiresApproval *bool  `json:"requires_approval"`
	IsActive         *bool  `json:"is_active"`
}

func (req *taskRequest) validate() (model.Frequency, string) {
	if req.Title == "" {
		return "", "title is required"
	}
	freq, ok := model.ParseFrequency(req.Frequency)
	if !ok {
		return "", "invalid frequency"
	}
	if req.Points != nil && *req.Points <= 0 {
		return "", "points must be positive"
	}
	if req.AmountCents != nil && *req.AmountCents <= 0 {
		return "", "amount_cents must be positive"
	}
	return freq, ""
}

// List returns all tasks for the caller's family.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	tasks, err := h.tasks.List(ac.FamilyID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// Create adds a task. Parental roles only.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	if _, err := h.gate.RequireRole(ac.FamilyID, ac.UID, model.RoleParent, model.RoleCoParent); err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	freq, msg := req.validate()
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	requiresApproval := true
	if req.RequiresApproval != nil {
		requiresApproval = *req.RequiresApproval
	}

	task, err := h.tasks.Create(ac.FamilyID, req.Title, freq, req.Points, req.AmountCents, requiresApproval, time.Now().UTC())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.hub.Broadcast(websocket.NewMessage("task", "created", task.ID, ac.FamilyID))
	writeJSON(w, http.StatusCreated, task)
}

// Update replaces a task's mutable fields. Parental roles only.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	id := r.PathValue("id")

	if _, err := h.gate.RequireRole(ac.FamilyID, ac.UID, model.RoleParent, model.RoleCoParent); err != nil {
		writeError(w, h.logger, err)
		return
	}

	existing, err := h.tasks.GetByID(id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if existing == nil || existing.FamilyID != ac.FamilyID {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
		return
	}

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	freq, msg := req.validate()
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	requiresApproval := existing.RequiresApproval
	if req.RequiresApproval != nil {
		requiresApproval = *req.RequiresApproval
	}
	isActive := existing.IsActive
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	task, err := h.tasks.Update(id, req.Title, freq, req.Points, req.AmountCents, requiresApproval, isActive, time.Now().UTC())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.hub.Broadcast(websocket.NewMessage("task", "updated", task.ID, ac.FamilyID))
	writeJSON(w, http.StatusOK, task)
}

type createCompletionRequest struct {
	TaskID string `json:"task_id"`
}

// CreateCompletion records that the caller finished a task.
func (h *TaskHandler) CreateCompletion(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var req createCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	c, err := h.workflow.Create(ac.UID, ac.FamilyID, req.TaskID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.hub.Broadcast(websocket.NewMessage("completion", string(c.Status), c.ID, ac.FamilyID))
	writeJSON(w, http.StatusCreated, c)
}

// ListPending returns completions awaiting approval.
func (h *TaskHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	pending, err := h.workflow.ListPending(ac.FamilyID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, pending)
}

// Approve marks a pending completion approved and credits the reward.
func (h *TaskHandler) Approve(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	id := r.PathValue("id")

	c, err := h.workflow.Approve(ac.UID, ac.FamilyID, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.hub.Broadcast(websocket.NewMessage("completion", "approved", c.ID, ac.FamilyID))
	writeJSON(w, http.StatusOK, c)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// Reject marks a pending completion rejected. No ledger entry is written.
func (h *TaskHandler) Reject(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	id := r.PathValue("id")

	var req rejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	c, err := h.workflow.Reject(ac.UID, ac.FamilyID, id, req.Reason)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.hub.Broadcast(websocket.NewMessage("completion", "rejected", c.ID, ac.FamilyID))
	writeJSON(w, http.StatusOK, c)
}

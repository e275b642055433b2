package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/fernwood/hearth/internal/auth"
	"github.com/fernwood/hearth/internal/model"
	"github.com/fernwood/hearth/internal/roles"
	"github.com/fernwood/hearth/internal/store"
	"github.com/fernwood/hearth/internal/websocket"
)

type MemberHandler struct {
	roleSvc  *roles.Service
	members  *store.MemberStore
	families *store.FamilyStore
	hub      *websocket.Hub
	logger   *slog.Logger
}

func NewMemberHandler(roleSvc *roles.Service, members *store.MemberStore, families *store.FamilyStore, hub *websocket.Hub, logger *slog.Logger) *MemberHandler {
	return &MemberHandler{roleSvc: roleSvc, members: members, families: families, hub: hub, logger: logger}
}

type memberView struct {
	model.Member
	AgeGroup model.AgeGroup `json:"age_group"`
	IsMinor  bool           `json:"is_minor"`
}

// List returns the family's members with derived age groups.
func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	family, err := h.families.GetByID(ac.FamilyID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if family == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "family not found"})
		return
	}
	members, err := h.members.List(ac.FamilyID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	now := time.Now().UTC()
	views := make([]memberView, 0, len(members))
	for _, m := range members {
		views = append(views, memberView{
			Member:   m,
			AgeGroup: m.AgeGroupFor(family.Policy, now),
			IsMinor:  m.IsMinor(family.Policy, now),
		})
	}
	writeJSON(w, http.StatusOK, views)
}

type changeRoleRequest struct {
	TargetUID string `json:"target_uid"`
	NewRole   string `json:"new_role"`
	Method    string `json:"method"`
	Note      string `json:"note"`
}

// ChangeRole applies a role transition to a member.
func (h *MemberHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var req changeRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	member, err := h.roleSvc.ChangeRole(ac.UID, ac.FamilyID, req.TargetUID, model.Role(req.NewRole), model.TransitionMethod(req.Method), req.Note)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.hub.Broadcast(websocket.NewMessage("member", "role_changed", member.UID, ac.FamilyID))
	writeJSON(w, http.StatusOK, member)
}

// UpdatePolicy merges a partial family policy update.
func (h *MemberHandler) UpdatePolicy(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var patch model.PolicyPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if patch.CalendarCreateRoles != nil {
		for _, role := range *patch.CalendarCreateRoles {
			if _, ok := model.ParseRole(string(role)); !ok {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid role in calendar_create_roles"})
				return
			}
		}
	}

	family, err := h.roleSvc.UpdatePolicy(ac.UID, ac.FamilyID, patch)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.hub.Broadcast(websocket.NewMessage("family", "policy_updated", family.ID, ac.FamilyID))
	writeJSON(w, http.StatusOK, family)
}

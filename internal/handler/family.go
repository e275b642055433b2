package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/fernwood/hearth/internal/auth"
	"github.com/fernwood/hearth/internal/authz"
	"github.com/fernwood/hearth/internal/model"
	"github.com/fernwood/hearth/internal/store"
)

type FamilyHandler struct {
	gate     *authz.Gate
	families *store.FamilyStore
	members  *store.MemberStore
	audits   *store.AuditStore
	logger   *slog.Logger
}

func NewFamilyHandler(gate *authz.Gate, families *store.FamilyStore, members *store.MemberStore, audits *store.AuditStore, logger *slog.Logger) *FamilyHandler {
	return &FamilyHandler{gate: gate, families: families, members: members, audits: audits, logger: logger}
}

type setupRequest struct {
	FamilyName string `json:"family_name"`
	ParentName string `json:"parent_name"`
	PIN        string `json:"pin"`
}

type setupResponse struct {
	Family *model.Family `json:"family"`
	Parent *model.Member `json:"parent"`
}

// Setup creates a family and its first PARENT member in one call. This is
// the only unauthenticated write; everything after it goes through login.
func (h *FamilyHandler) Setup(w http.ResponseWriter, r *http.Request) {
	var req setupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.FamilyName == "" || req.ParentName == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "family_name and parent_name are required"})
		return
	}
	if len(req.PIN) < 4 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "pin must be at least 4 digits"})
		return
	}

	now := time.Now().UTC()
	family, err := h.families.Create(req.FamilyName, now)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	parent, err := h.members.Create(family.ID, uuid.NewString(), req.ParentName, model.RoleParent, nil, now)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.PIN), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.members.SetPIN(family.ID, parent.UID, string(hash), now); err != nil {
		writeError(w, h.logger, err)
		return
	}
	parent.HasPIN = true

	writeJSON(w, http.StatusCreated, setupResponse{Family: family, Parent: parent})
}

type addMemberRequest struct {
	Name      string `json:"name"`
	Role      string `json:"role"`
	BirthYear *int   `json:"birth_year"`
	PIN       string `json:"pin"`
}

// AddMember creates a member in the caller's family. Parental roles only,
// and nobody may mint a second PARENT this way.
func (h *FamilyHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	actorRole, err := h.gate.RequireRole(ac.FamilyID, ac.UID, model.RoleParent, model.RoleCoParent)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req addMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	role, ok := model.ParseRole(req.Role)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid role"})
		return
	}
	if !authz.CanManageRole(actorRole, role) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "cannot create a member with that role"})
		return
	}

	now := time.Now().UTC()
	member, err := h.members.Create(ac.FamilyID, uuid.NewString(), req.Name, role, req.BirthYear, now)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if req.PIN != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.PIN), bcrypt.DefaultCost)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		if err := h.members.SetPIN(ac.FamilyID, member.UID, string(hash), now); err != nil {
			writeError(w, h.logger, err)
			return
		}
		member.HasPIN = true
	}

	writeJSON(w, http.StatusCreated, member)
}

// AuditLog returns the family's most recent audit entries, newest first.
// Parental roles only.
func (h *FamilyHandler) AuditLog(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	if _, err := h.gate.RequireRole(ac.FamilyID, ac.UID, model.RoleParent, model.RoleCoParent); err != nil {
		writeError(w, h.logger, err)
		return
	}

	entries, err := h.audits.ListByFamily(ac.FamilyID, 100)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

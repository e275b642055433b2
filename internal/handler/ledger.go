package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/fernwood/hearth/internal/auth"
	"github.com/fernwood/hearth/internal/ledger"
	"github.com/fernwood/hearth/internal/model"
	"github.com/fernwood/hearth/internal/websocket"
)

type LedgerHandler struct {
	svc    *ledger.Service
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewLedgerHandler(svc *ledger.Service, hub *websocket.Hub, logger *slog.Logger) *LedgerHandler {
	return &LedgerHandler{svc: svc, hub: hub, logger: logger}
}

type manualEntryRequest struct {
	MemberUID   string `json:"member_uid"`
	AmountCents *int64 `json:"amount_cents"`
	Points      *int   `json:"points"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// AddEntry appends a manual credit or debit to a member's ledger.
func (h *LedgerHandler) AddEntry(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var req manualEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	entry, err := h.svc.AddManualEntry(ac.UID, ac.FamilyID, req.MemberUID, req.AmountCents, req.Points, model.EntryType(req.Type), req.Description)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.hub.Broadcast(websocket.NewMessage("ledger", "entry_created", entry.ID, ac.FamilyID))
	writeJSON(w, http.StatusCreated, entry)
}

// Balance returns a member's derived balance.
func (h *LedgerHandler) Balance(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	memberUID := r.PathValue("uid")

	balance, err := h.svc.Balance(ac.UID, ac.FamilyID, memberUID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

// History returns a member's ledger entries, newest first.
func (h *LedgerHandler) History(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	memberUID := r.URL.Query().Get("member_uid")
	if memberUID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "member_uid is required"})
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	entries, err := h.svc.History(ac.UID, ac.FamilyID, memberUID, limit, offset)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

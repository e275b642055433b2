package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/fernwood/hearth/internal/attention"
	"github.com/fernwood/hearth/internal/auth"
	"github.com/fernwood/hearth/internal/model"
	"github.com/fernwood/hearth/internal/websocket"
)

type AttentionHandler struct {
	svc    *attention.Service
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewAttentionHandler(svc *attention.Service, hub *websocket.Hub, logger *slog.Logger) *AttentionHandler {
	return &AttentionHandler{svc: svc, hub: hub, logger: logger}
}

type sendAttentionRequest struct {
	TargetUID   string `json:"target_uid"`
	Intensity   string `json:"intensity"`
	DurationSec int    `json:"duration_sec"`
	Message     string `json:"message"`
}

// Send creates an attention request and dispatches it to the target's
// devices.
func (h *AttentionHandler) Send(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var req sendAttentionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	ar, err := h.svc.Send(r.Context(), ac.UID, ac.FamilyID, req.TargetUID, model.Intensity(req.Intensity), req.DurationSec, req.Message)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.hub.Broadcast(websocket.NewMessage("attention", "sent", ar.ID, ac.FamilyID))
	writeJSON(w, http.StatusCreated, ar)
}

// Ack acknowledges an attention request. Only the target may acknowledge;
// repeat acknowledgements succeed without effect.
func (h *AttentionHandler) Ack(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	id := r.PathValue("id")

	res, err := h.svc.Ack(ac.UID, ac.FamilyID, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if !res.AlreadyAcknowledged {
		h.hub.Broadcast(websocket.NewMessage("attention", "acknowledged", res.Request.ID, ac.FamilyID))
	}
	writeJSON(w, http.StatusOK, res)
}

// Cancel withdraws an active attention request.
func (h *AttentionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	id := r.PathValue("id")

	res, err := h.svc.Cancel(ac.UID, ac.FamilyID, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if !res.AlreadyCancelled {
		h.hub.Broadcast(websocket.NewMessage("attention", "cancelled", res.Request.ID, ac.FamilyID))
	}
	writeJSON(w, http.StatusOK, res)
}

// List returns the family's attention requests with lazy expiry applied.
// ?active=1 narrows to requests still ringing.
func (h *AttentionHandler) List(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	requests, err := h.svc.List(ac.UID, ac.FamilyID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if r.URL.Query().Get("active") == "1" {
		active := requests[:0]
		for _, req := range requests {
			if req.Status == model.AttentionActive {
				active = append(active, req)
			}
		}
		requests = active
	}
	writeJSON(w, http.StatusOK, requests)
}

package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/fernwood/hearth/internal/auth"
	"github.com/fernwood/hearth/internal/push"
	"github.com/fernwood/hearth/internal/store"
)

type PushHandler struct {
	endpoints *store.PushStore
	svc       *push.Service
	logger    *slog.Logger
}

func NewPushHandler(endpoints *store.PushStore, svc *push.Service, logger *slog.Logger) *PushHandler {
	return &PushHandler{endpoints: endpoints, svc: svc, logger: logger}
}

type subscribeRequest struct {
	Endpoint   string `json:"endpoint"`
	P256dhKey  string `json:"p256dh_key"`
	AuthKey    string `json:"auth_key"`
	DeviceName string `json:"device_name"`
}

// Subscribe registers (or refreshes) a Web Push endpoint for the caller.
func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.Endpoint == "" || req.P256dhKey == "" || req.AuthKey == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "endpoint, p256dh_key and auth_key are required"})
		return
	}

	ep, err := h.endpoints.Create(ac.FamilyID, ac.UID, req.Endpoint, req.P256dhKey, req.AuthKey, req.DeviceName, time.Now().UTC())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, ep)
}

// Unsubscribe removes one of the caller's registered endpoints.
func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	id := r.PathValue("id")

	if err := h.endpoints.Delete(ac.FamilyID, id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// VAPIDKey returns the server's public VAPID key for client subscription.
func (h *PushHandler) VAPIDKey(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"public_key": h.svc.VAPIDPublicKey()})
}

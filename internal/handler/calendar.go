package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/fernwood/hearth/internal/auth"
	"github.com/fernwood/hearth/internal/calendar"
	"github.com/fernwood/hearth/internal/websocket"
)

type CalendarHandler struct {
	svc    *calendar.Service
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewCalendarHandler(svc *calendar.Service, hub *websocket.Hub, logger *slog.Logger) *CalendarHandler {
	return &CalendarHandler{svc: svc, hub: hub, logger: logger}
}

type createEventRequest struct {
	Title    string    `json:"title"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
}

// Create adds a calendar event if the caller's role passes the family
// policy gate.
func (h *CalendarHandler) Create(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var req createEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	event, err := h.svc.Create(ac.UID, ac.FamilyID, req.Title, req.StartsAt, req.EndsAt)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.hub.Broadcast(websocket.NewMessage("calendar", "event_created", event.ID, ac.FamilyID))
	writeJSON(w, http.StatusCreated, event)
}

// List returns the family's calendar events.
func (h *CalendarHandler) List(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	events, err := h.svc.List(ac.UID, ac.FamilyID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

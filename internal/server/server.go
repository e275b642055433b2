// Package server wires stores, services, and handlers into the HTTP API.
package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/fernwood/hearth/internal/attention"
	"github.com/fernwood/hearth/internal/authz"
	"github.com/fernwood/hearth/internal/calendar"
	"github.com/fernwood/hearth/internal/completion"
	"github.com/fernwood/hearth/internal/handler"
	"github.com/fernwood/hearth/internal/ledger"
	"github.com/fernwood/hearth/internal/middleware"
	"github.com/fernwood/hearth/internal/push"
	"github.com/fernwood/hearth/internal/roles"
	"github.com/fernwood/hearth/internal/store"
	ws "github.com/fernwood/hearth/internal/websocket"
)

type Server struct {
	db          *sql.DB
	hub         *ws.Hub
	authH       *handler.AuthHandler
	familyH     *handler.FamilyHandler
	memberH     *handler.MemberHandler
	taskH       *handler.TaskHandler
	ledgerH     *handler.LedgerHandler
	attentionH  *handler.AttentionHandler
	calendarH   *handler.CalendarHandler
	pushH       *handler.PushHandler
	sessions    *store.SessionStore
	members     *store.MemberStore
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

func New(db *sql.DB, pushCfg push.Config, sessionTTL time.Duration, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	families := store.NewFamilyStore(db)
	members := store.NewMemberStore(db)
	sessions := store.NewSessionStore(db)
	tasks := store.NewTaskStore(db)
	completions := store.NewCompletionStore(db)
	entries := store.NewLedgerStore(db)
	requests := store.NewAttentionStore(db)
	endpoints := store.NewPushStore(db)
	events := store.NewCalendarStore(db)
	audits := store.NewAuditStore(db)

	gate := authz.NewGate(members)
	pushSvc := push.NewService(pushCfg, logger.With("component", "push"))

	workflow := completion.NewWorkflow(db, gate, tasks, completions, entries, audits, logger.With("component", "completion"))
	roleSvc := roles.NewService(db, gate, families, members, audits, logger.With("component", "roles"))
	ledgerSvc := ledger.NewService(db, gate, members, entries, audits)
	attentionSvc := attention.NewService(db, gate, members, endpoints, requests, audits, pushSvc, logger.With("component", "attention"))
	calendarSvc := calendar.NewService(db, gate, families, events, audits)

	return &Server{
		db:          db,
		hub:         hub,
		authH:       handler.NewAuthHandler(members, sessions, sessionTTL, logger.With("component", "auth")),
		familyH:     handler.NewFamilyHandler(gate, families, members, audits, logger.With("component", "family")),
		memberH:     handler.NewMemberHandler(roleSvc, members, families, hub, logger.With("component", "member")),
		taskH:       handler.NewTaskHandler(workflow, gate, tasks, hub, logger.With("component", "task")),
		ledgerH:     handler.NewLedgerHandler(ledgerSvc, hub, logger.With("component", "ledger")),
		attentionH:  handler.NewAttentionHandler(attentionSvc, hub, logger.With("component", "attention_handler")),
		calendarH:   handler.NewCalendarHandler(calendarSvc, hub, logger.With("component", "calendar")),
		pushH:       handler.NewPushHandler(endpoints, pushSvc, logger.With("component", "push_handler")),
		sessions:    sessions,
		members:     members,
		rateLimiter: middleware.NewRateLimiter(),
		logger:      logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessions
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes
	outerMux.HandleFunc("POST /login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("POST /setup", s.rateLimitedHandler(s.familyH.Setup))
	outerMux.HandleFunc("GET /health", s.healthCheck)

	// Protected routes behind RequireAuth
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessions, s.members)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /logout", s.authH.Logout)

	// Members and family policy
	mux.HandleFunc("GET /api/members", s.memberH.List)
	mux.HandleFunc("POST /api/members", s.familyH.AddMember)
	mux.HandleFunc("POST /api/members/role", s.memberH.ChangeRole)
	mux.HandleFunc("GET /api/members/{uid}/balance", s.ledgerH.Balance)
	mux.HandleFunc("PUT /api/family/policy", s.memberH.UpdatePolicy)
	mux.HandleFunc("GET /api/audit", s.familyH.AuditLog)

	// Tasks and completions
	mux.HandleFunc("GET /api/tasks", s.taskH.List)
	mux.HandleFunc("POST /api/tasks", s.taskH.Create)
	mux.HandleFunc("PUT /api/tasks/{id}", s.taskH.Update)
	mux.HandleFunc("POST /api/completions", s.taskH.CreateCompletion)
	mux.HandleFunc("GET /api/completions", s.taskH.ListPending)
	mux.HandleFunc("POST /api/completions/{id}/approve", s.taskH.Approve)
	mux.HandleFunc("POST /api/completions/{id}/reject", s.taskH.Reject)

	// Allowance ledger
	mux.HandleFunc("POST /api/ledger", s.ledgerH.AddEntry)
	mux.HandleFunc("GET /api/ledger", s.ledgerH.History)

	// Attention requests
	mux.HandleFunc("POST /api/attention", s.attentionH.Send)
	mux.HandleFunc("GET /api/attention", s.attentionH.List)
	mux.HandleFunc("POST /api/attention/{id}/ack", s.attentionH.Ack)
	mux.HandleFunc("POST /api/attention/{id}/cancel", s.attentionH.Cancel)

	// Calendar
	mux.HandleFunc("POST /api/events", s.calendarH.Create)
	mux.HandleFunc("GET /api/events", s.calendarH.List)

	// Push endpoints
	mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDKey)
	mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)

	// Live updates
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))
}

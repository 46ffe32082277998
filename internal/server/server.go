package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/mhutchens/chorebank/internal/backup"
	"github.com/mhutchens/chorebank/internal/chore"
	"github.com/mhutchens/chorebank/internal/handler"
	"github.com/mhutchens/chorebank/internal/middleware"
	"github.com/mhutchens/chorebank/internal/push"
	"github.com/mhutchens/chorebank/internal/store"
	ws "github.com/mhutchens/chorebank/internal/websocket"
)

type Server struct {
	db            *sql.DB
	hub           *ws.Hub
	authH         *handler.AuthHandler
	memberH       *handler.MemberHandler
	choreH        *handler.ChoreHandler
	ledgerH       *handler.LedgerHandler
	activityH     *handler.ActivityHandler
	pushH         *handler.PushHandler
	backupH       *handler.BackupHandler
	sessionStore  *store.SessionStore
	userStore     *store.UserStore
	rateLimiter   *middleware.RateLimiter
	backupManager *backup.Manager
	logger        *slog.Logger
}

func New(db *sql.DB, backupCfg backup.Config, pushCfg push.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	familyStore := store.NewFamilyStore(db)
	sessionStore := store.NewSessionStore(db)
	templateStore := store.NewTemplateStore(db)
	ledgerStore := store.NewLedgerStore(db)
	activityStore := store.NewActivityStore(db)
	pushStore := store.NewPushStore(db)

	lifecycle := chore.NewLifecycle(db, logger.With("component", "lifecycle"))

	backupLogger := logger.With("component", "backup")
	backupMgr := backup.NewManager(backupCfg, db, backupLogger, func(s backup.Status) {
		backupLogger.Info("backup status", "state", s.State, "in_progress", s.InProgress, "error", s.Error)
	})

	var pushSvc *push.Service
	var notifier *push.Notifier
	var pushH *handler.PushHandler
	if pushCfg.VAPIDPublicKey != "" && pushCfg.VAPIDPrivateKey != "" {
		pushSvc = push.NewService(pushCfg.VAPIDPublicKey, pushCfg.VAPIDPrivateKey)
		notifier = push.NewNotifier(pushSvc, pushStore, logger.With("component", "push"))
		pushH = handler.NewPushHandler(pushSvc, pushStore, logger.With("component", "push_handler"))
	}

	return &Server{
		db:            db,
		hub:           hub,
		authH:         handler.NewAuthHandler(userStore, familyStore, sessionStore, logger.With("component", "auth")),
		memberH:       handler.NewMemberHandler(userStore, logger.With("component", "member")),
		choreH:        handler.NewChoreHandler(lifecycle, templateStore, hub, notifier, logger.With("component", "chore")),
		ledgerH:       handler.NewLedgerHandler(ledgerStore, userStore, logger.With("component", "ledger")),
		activityH:     handler.NewActivityHandler(activityStore, logger.With("component", "activity")),
		pushH:         pushH,
		backupH:       handler.NewBackupHandler(backupMgr, logger.With("component", "backup_handler")),
		sessionStore:  sessionStore,
		userStore:     userStore,
		rateLimiter:   middleware.NewRateLimiter(),
		backupManager: backupMgr,
		logger:        logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// BackupManager returns the backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /api/auth/setup", s.rateLimitedHandler(s.authH.Setup))
	outerMux.HandleFunc("POST /api/auth/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes, wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.userStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
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
	mux.HandleFunc("POST /api/auth/logout", s.authH.Logout)
	mux.HandleFunc("GET /api/auth/me", s.authH.Me)

	// Family member routes
	mux.HandleFunc("GET /api/members", s.memberH.List)
	mux.Handle("POST /api/members", middleware.RequireParent(http.HandlerFunc(s.memberH.Create)))
	mux.Handle("PUT /api/members/{id}", middleware.RequireParent(http.HandlerFunc(s.memberH.Update)))
	mux.Handle("DELETE /api/members/{id}", middleware.RequireParent(http.HandlerFunc(s.memberH.Delete)))
	mux.Handle("POST /api/members/{id}/pin", middleware.RequireParent(http.HandlerFunc(s.memberH.SetPIN)))
	mux.Handle("DELETE /api/members/{id}/pin", middleware.RequireParent(http.HandlerFunc(s.memberH.ClearPIN)))

	// Chore routes. Role checks live in the lifecycle; the router only
	// requires a session.
	mux.HandleFunc("GET /api/chores", s.choreH.List)
	mux.HandleFunc("POST /api/chores", s.choreH.Create)
	mux.HandleFunc("GET /api/chores/available", s.choreH.Available)
	mux.HandleFunc("GET /api/chores/pending", s.choreH.Pending)
	mux.HandleFunc("GET /api/chores/{id}", s.choreH.Get)
	mux.HandleFunc("PUT /api/chores/{id}", s.choreH.Update)
	mux.HandleFunc("DELETE /api/chores/{id}", s.choreH.Delete)
	mux.HandleFunc("POST /api/chores/{id}/disable", s.choreH.Disable)
	mux.HandleFunc("POST /api/chores/{id}/enable", s.choreH.Enable)
	mux.HandleFunc("POST /api/chores/{id}/complete", s.choreH.Complete)
	mux.HandleFunc("POST /api/assignments/{id}/approve", s.choreH.Approve)
	mux.HandleFunc("POST /api/assignments/{id}/reject", s.choreH.Reject)

	// Ledger and activity routes
	mux.HandleFunc("GET /api/ledger/balances", s.ledgerH.Balances)
	mux.HandleFunc("GET /api/ledger/children/{id}", s.ledgerH.History)
	mux.HandleFunc("GET /api/activity", s.activityH.Feed)

	// Push notification routes
	if s.pushH != nil {
		mux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDKey)
		mux.HandleFunc("POST /api/push/subscriptions", s.pushH.Subscribe)
		mux.HandleFunc("GET /api/push/subscriptions", s.pushH.List)
		mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)
	}

	// Backup routes
	mux.Handle("GET /api/backup/status", middleware.RequireParent(http.HandlerFunc(s.backupH.Status)))
	mux.Handle("POST /api/backup/run", middleware.RequireParent(http.HandlerFunc(s.backupH.Run)))

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))
}

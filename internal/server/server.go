package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/vitaltrack/internal/config"
	"github.com/dukerupert/vitaltrack/internal/email"
	"github.com/dukerupert/vitaltrack/internal/handler"
	"github.com/dukerupert/vitaltrack/internal/middleware"
	"github.com/dukerupert/vitaltrack/internal/store"
	"github.com/dukerupert/vitaltrack/internal/sync"
	ws "github.com/dukerupert/vitaltrack/internal/websocket"
)

type Server struct {
	db          *sql.DB
	hub         *ws.Hub
	authH       *handler.AuthHandler
	categoryH   *handler.CategoryHandler
	itemH       *handler.ItemHandler
	orderH      *handler.OrderHandler
	syncH       *handler.SyncHandler
	activityH   *handler.ActivityHandler
	userStore   *store.UserStore
	rateLimiter *middleware.RateLimiter
	jwtSecret   string
	logger      *slog.Logger
}

func New(cfg *config.Config, db *sql.DB, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	categoryStore := store.NewCategoryStore(db)
	itemStore := store.NewItemStore(db)
	orderStore := store.NewOrderStore(db)
	activityStore := store.NewActivityStore(db)

	emailClient := email.NewClient(cfg.Email.ServerToken, cfg.Email.FromEmail, cfg.Server.BaseURL)
	engine := sync.NewEngine(db, logger.With("component", "sync"))

	return &Server{
		db:  db,
		hub: hub,
		authH: handler.NewAuthHandler(userStore, activityStore, emailClient,
			logger.With("component", "auth"), cfg.JWT.Secret, cfg.JWT.Expiration),
		categoryH: handler.NewCategoryHandler(categoryStore, itemStore, hub,
			logger.With("component", "category")),
		itemH: handler.NewItemHandler(itemStore, categoryStore, activityStore, hub,
			logger.With("component", "item")),
		orderH: handler.NewOrderHandler(db, orderStore, itemStore, activityStore, hub,
			logger.With("component", "order")),
		syncH:       handler.NewSyncHandler(engine, hub, logger.With("component", "sync_handler")),
		activityH:   handler.NewActivityHandler(activityStore, logger.With("component", "activity")),
		userStore:   userStore,
		rateLimiter: middleware.NewRateLimiter(),
		jwtSecret:   cfg.JWT.Secret,
		logger:      logger,
	}
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /api/v1/auth/register", s.rateLimitedHandler(s.authH.Register))
	outerMux.HandleFunc("POST /api/v1/auth/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /api/v1/auth/verify", s.authH.Verify)
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes, wrapped with RequireAuth middleware.
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.jwtSecret, s.userStore)
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
	mux.HandleFunc("GET /api/v1/auth/me", s.authH.Me)

	// Sync routes
	mux.HandleFunc("POST /api/v1/sync/push", s.syncH.Push)
	mux.HandleFunc("GET /api/v1/sync/pull", s.syncH.Pull)
	mux.HandleFunc("POST /api/v1/sync/full", s.syncH.Full)

	// Category routes
	mux.HandleFunc("GET /api/v1/categories", s.categoryH.List)
	mux.HandleFunc("POST /api/v1/categories", s.categoryH.Create)
	mux.HandleFunc("GET /api/v1/categories/{id}", s.categoryH.Get)
	mux.HandleFunc("PUT /api/v1/categories/{id}", s.categoryH.Update)
	mux.HandleFunc("DELETE /api/v1/categories/{id}", s.categoryH.Delete)

	// Item routes
	mux.HandleFunc("GET /api/v1/items", s.itemH.List)
	mux.HandleFunc("POST /api/v1/items", s.itemH.Create)
	mux.HandleFunc("GET /api/v1/items/{id}", s.itemH.Get)
	mux.HandleFunc("PUT /api/v1/items/{id}", s.itemH.Update)
	mux.HandleFunc("DELETE /api/v1/items/{id}", s.itemH.Delete)
	mux.HandleFunc("POST /api/v1/items/{id}/stock", s.itemH.AdjustStock)

	// Order routes
	mux.HandleFunc("GET /api/v1/orders", s.orderH.List)
	mux.HandleFunc("POST /api/v1/orders", s.orderH.Create)
	mux.HandleFunc("GET /api/v1/orders/{id}", s.orderH.Get)
	mux.HandleFunc("PATCH /api/v1/orders/{id}/status", s.orderH.UpdateStatus)
	mux.HandleFunc("POST /api/v1/orders/{id}/apply", s.orderH.Apply)
	mux.HandleFunc("DELETE /api/v1/orders/{id}", s.orderH.Delete)

	// Activity routes
	mux.HandleFunc("GET /api/v1/activity", s.activityH.List)

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))
}

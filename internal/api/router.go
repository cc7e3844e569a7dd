package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/draftroom/internal/api/handler"
	"github.com/mcoot/draftroom/internal/api/middleware"
	"github.com/mcoot/draftroom/internal/api/response"
	basemiddleware "github.com/mcoot/draftroom/internal/middleware"
	"github.com/mcoot/draftroom/internal/services/auth"
	"github.com/mcoot/draftroom/internal/services/session"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger         *slog.Logger
	AuthService    *auth.Service
	SessionManager *session.Manager
	// Websocket serves GET /api/v1/ws; the route is omitted when nil
	Websocket http.Handler
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	draftHandler := handler.NewDraftHandler(cfg.SessionManager, cfg.Logger)

	// Create middleware
	authMiddleware := middleware.Auth(cfg.AuthService)
	loggingMiddleware := basemiddleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(basemiddleware.RequestID)
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	// Public routes
	api.HandleFunc("/health", healthHandler(cfg.SessionManager)).Methods(http.MethodGet)
	api.HandleFunc("/templates", handler.ListTemplates).Methods(http.MethodGet)
	api.HandleFunc("/drafts/{id}", draftHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/drafts/{id}/events", draftHandler.Events).Methods(http.MethodGet)

	// Anonymous connections are allowed; the handler resolves identity itself
	if cfg.Websocket != nil {
		api.Handle("/ws", cfg.Websocket).Methods(http.MethodGet)
	}

	// Draft mutations (all require auth)
	drafts := api.PathPrefix("/drafts").Subrouter()
	drafts.Use(authMiddleware)
	drafts.HandleFunc("", draftHandler.Create).Methods(http.MethodPost)
	drafts.HandleFunc("/{id}/actions", draftHandler.SubmitAction).Methods(http.MethodPost)
	drafts.HandleFunc("/{id}/teams/{team}/members/{user_id}", draftHandler.AssignMember).Methods(http.MethodPut)
	drafts.HandleFunc("/{id}/members/{user_id}/team", draftHandler.UnassignMember).Methods(http.MethodDelete)
	drafts.HandleFunc("/{id}/teams/{team}/ready", draftHandler.SetReady).Methods(http.MethodPut)

	return r
}

func healthHandler(sessions *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		response.JSON(w, http.StatusOK, response.Health{Status: "ok", LiveSessions: sessions.LiveCount()})
	}
}

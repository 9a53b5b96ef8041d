package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/susu3304/tallybot/internal/approval"
	"github.com/susu3304/tallybot/internal/config"
	"github.com/susu3304/tallybot/internal/ledger"
)

type API struct {
	router    *mux.Router
	engine    *ledger.Engine
	coord     *approval.Coordinator
	config    *config.Config
	jwtSecret []byte
	logger    *slog.Logger
	server    *http.Server
}

func New(cfg *config.Config, engine *ledger.Engine, coord *approval.Coordinator, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	api := &API{
		router:    mux.NewRouter(),
		engine:    engine,
		coord:     coord,
		config:    cfg,
		jwtSecret: []byte(cfg.JWTSecret),
		logger:    logger,
	}

	api.setupRoutes()
	return api
}

func (a *API) setupRoutes() {
	// Public endpoints
	a.router.HandleFunc("/healthz", a.handleHealth).Methods("GET")

	// Protected endpoints; the token subject is the acting identity.
	protected := a.router.PathPrefix("/api").Subrouter()
	protected.Use(a.authMiddleware)

	protected.HandleFunc("/entities", a.handleCreateEntity).Methods("POST")
	protected.HandleFunc("/entities/{id}", a.handleGetEntity).Methods("GET")
	protected.HandleFunc("/entities/{id}/actions", a.handleApplyAction).Methods("POST")
	protected.HandleFunc("/approvals/{request_id}", a.handleResolve).Methods("POST")
}

// Handler returns the router wrapped with CORS.
func (a *API) Handler() http.Handler {
	origins := a.config.CORSOrigins
	corsOptions := cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		// Credentials are only allowed with an explicit origin list.
		AllowCredentials: !(len(origins) == 1 && origins[0] == "*"),
	}
	return cors.New(corsOptions).Handler(a.router)
}

func (a *API) Start() error {
	a.server = &http.Server{
		Addr:              a.config.WebBind,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	a.logger.Info("API server listening", "addr", "http://"+a.config.WebBind)
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *API) Shutdown(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

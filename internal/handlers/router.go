package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/envoice/envoicego/internal/config"
	"github.com/envoice/envoicego/internal/database"
	"github.com/envoice/envoicego/internal/middleware"
	"github.com/envoice/envoicego/internal/pipeline"
	"github.com/envoice/envoicego/internal/services/lafactura"
	"github.com/envoice/envoicego/internal/store"
)

// Router wraps the mux router with the service dependencies
type Router struct {
	*mux.Router
	db      *database.DB
	store   *store.Store
	cfg     *config.Config
	runner  *pipeline.Runner
	signing *lafactura.Client
}

// NewRouter creates the HTTP router with all routes
func NewRouter(db *database.DB, st *store.Store, cfg *config.Config, runner *pipeline.Runner, signing *lafactura.Client) *Router {
	r := &Router{
		Router:  mux.NewRouter(),
		db:      db,
		store:   st,
		cfg:     cfg,
		runner:  runner,
		signing: signing,
	}

	// Health check endpoint
	r.HandleFunc("/health", r.healthCheck).Methods("GET")

	// Auth routes
	auth := r.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/login", r.login).Methods("POST")

	// API routes (protected)
	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.Auth(cfg.JWTSecret))
	api.HandleFunc("/status", r.getStatus).Methods("GET")
	api.HandleFunc("/run", r.triggerRunAll).Methods("POST")
	api.HandleFunc("/run/{kind}", r.triggerRunKind).Methods("POST")

	return r
}

// healthCheck returns the health status of the API
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// getStatus reports database health, signing-service reachability and the
// latest pipeline runs
func (r *Router) getStatus(w http.ResponseWriter, req *http.Request) {
	dbStatus := "ok"
	if sqlDB, err := r.db.DB.DB(); err != nil || sqlDB.Ping() != nil {
		dbStatus = "unreachable"
	}

	signingStatus := r.probeSigning(req.Context())

	runs, err := r.store.RecentRuns(20)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to load run history")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"database":   dbStatus,
		"signing":    signingStatus,
		"recentRuns": runs,
	})
}

// probeSigning checks the signing service with the first active account's
// credentials. No accounts means nothing to probe.
func (r *Router) probeSigning(ctx context.Context) string {
	accounts, err := r.store.ActiveAccounts()
	if err != nil || len(accounts) == 0 {
		return "unknown"
	}

	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	creds := lafactura.Credentials{
		Username: accounts[0].LaFacturaUser,
		Password: accounts[0].LaFacturaPass,
	}
	if _, err := r.signing.ActiveRanges(probeCtx, creds); err != nil {
		return "unreachable"
	}
	return "ok"
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

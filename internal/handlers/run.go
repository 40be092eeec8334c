package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/envoice/envoicego/internal/models"
	"github.com/envoice/envoicego/internal/pipeline"
)

// triggerRunAll starts a full pipeline pass in the background
func (r *Router) triggerRunAll(w http.ResponseWriter, req *http.Request) {
	go func() {
		if err := r.runner.RunAll(context.Background()); err != nil {
			log.Printf("❌ Manual run failed: %v", err)
		}
	}()

	respondJSON(w, http.StatusAccepted, map[string]string{
		"status": "started",
	})
}

// triggerRunKind starts a pipeline pass for one document kind
func (r *Router) triggerRunKind(w http.ResponseWriter, req *http.Request) {
	kind := models.DocumentKind(mux.Vars(req)["kind"])
	if !kind.Valid() {
		respondError(w, http.StatusBadRequest, "Unknown document kind")
		return
	}

	go func(runner *pipeline.Runner, kind models.DocumentKind) {
		if err := runner.RunKind(context.Background(), kind); err != nil {
			log.Printf("❌ Manual %s run failed: %v", kind, err)
		}
	}(r.runner, kind)

	respondJSON(w, http.StatusAccepted, map[string]string{
		"status": "started",
		"kind":   string(kind),
	})
}

package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"satquery/internal/logging"
	"satquery/internal/utils"
)

// SpeciesCounter reports how many species the registry serves.
type SpeciesCounter interface {
	Len() int
}

type healthchecker interface {
	handleHealthz(w http.ResponseWriter, r *http.Request)
}

type healthcheckerImpl struct {
	db      *sql.DB
	species SpeciesCounter
}

func NewHealthchecker(db *sql.DB, species SpeciesCounter) healthchecker {
	return &healthcheckerImpl{db: db, species: species}
}

func (h *healthcheckerImpl) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	var ok int
	if err := h.db.QueryRowContext(ctx, `SELECT 1`).Scan(&ok); err != nil {
		logging.FromContext(r.Context()).Error("failed to check database connectivity", "error", err)
		utils.WriteError(w, http.StatusServiceUnavailable, "failed to check database connectivity")
		return
	}

	n := 0
	if h.species != nil {
		n = h.species.Len()
	}
	if n == 0 {
		utils.WriteError(w, http.StatusServiceUnavailable, "no species loaded")
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok", "species": n})
}

func registerHealthcheck(mux *http.ServeMux, db *sql.DB, species SpeciesCounter) {
	healthchecker := NewHealthchecker(db, species)
	mux.HandleFunc("GET /healthz", healthchecker.handleHealthz)
}

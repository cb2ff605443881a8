package httpapi

import (
	"database/sql"
	"net/http"

	"satquery/internal/metrics"
)

// NewMux registers the operational routes; features add their own.
func NewMux(db *sql.DB, species SpeciesCounter, m *metrics.Metrics) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, db, species)
	mux.Handle("GET /metrics", m.Handler())
	return mux
}

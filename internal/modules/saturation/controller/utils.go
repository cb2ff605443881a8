package controller

import (
	"net/http"
	"strings"

	"satquery/internal/logging"
	"satquery/internal/modules/saturation/service"
	"satquery/internal/modules/saturation/types"
	"satquery/internal/utils"
)

const maxRequestBody = 64 << 10

// chart page defaults; pressure and volume do not appear on a T-s chart
var defaultChartUnits = types.Units{
	Temperature: "K",
	Pressure:    "Pa",
	Matter:      "kg",
	Energy:      "kJ",
	Volume:      "m3",
}

// parseChartQuery reads species and the unit overrides uT, uM and uE. An
// empty species means the first registered one.
func parseChartQuery(r *http.Request) (string, types.Units) {
	q := r.URL.Query()
	units := defaultChartUnits
	if s := strings.TrimSpace(q.Get("uT")); s != "" {
		units.Temperature = s
	}
	if s := strings.TrimSpace(q.Get("uM")); s != "" {
		units.Matter = s
	}
	if s := strings.TrimSpace(q.Get("uE")); s != "" {
		units.Energy = s
	}
	return strings.TrimSpace(q.Get("species")), units
}

func entropyUnit(u types.Units) string {
	return u.Energy + "/" + u.Matter + "/" + u.Temperature
}

// writeServiceError maps err onto its status and writes the JSON error body.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := service.StatusFor(err)
	logger := logging.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error("saturation query failed", "error", err)
	} else {
		logger.Debug("saturation query rejected", "status", status, "error", err)
	}
	utils.WriteError(w, status, err.Error())
}

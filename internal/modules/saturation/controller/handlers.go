package controller

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"satquery/internal/logging"
	"satquery/internal/modules/saturation/service"
	"satquery/internal/modules/saturation/views"
	"satquery/internal/utils"
)

func (c *saturationControllerImpl) handleSat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.WriteError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		utils.WriteError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	req, err := service.DecodeRequest(body)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp, err := c.service.Query(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, resp)
}

func (c *saturationControllerImpl) handleSpecies(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, c.service.Species())
}

func (c *saturationControllerImpl) handleUnits(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, c.service.Units())
}

func (c *saturationControllerImpl) handleChart(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	species := c.service.Species()
	selectedID, units := parseChartQuery(r)
	if selectedID == "" && len(species) > 0 {
		selectedID = species[0].ID
	}

	opts := make([]views.SpeciesOption, 0, len(species))
	for _, s := range species {
		opts = append(opts, views.SpeciesOption{ID: s.ID, Name: s.Name})
	}
	page := &views.ChartPage{
		Species:         opts,
		SelectedID:      selectedID,
		Units:           units,
		TemperatureUnit: units.Temperature,
		EntropyUnit:     entropyUnit(units),
	}

	status := http.StatusOK
	if selectedID != "" {
		chart, err := c.service.Chart(r.Context(), selectedID, units)
		if err != nil {
			status = service.StatusFor(err)
			page.Error = err.Error()
			logger.Debug("chart: query failed", "species", selectedID, "error", err)
		} else {
			page.Plot = views.NewPlot(chart)
		}
	}

	var buf bytes.Buffer
	if err := views.RenderChart(&buf, page); err != nil {
		logger.Error("chart template render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		logger.Error("chart: write response failed", "error", err)
	}
}

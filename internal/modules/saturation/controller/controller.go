package controller

import (
	"net/http"

	"satquery/internal/modules/saturation/service"
)

type SaturationController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type saturationControllerImpl struct {
	service service.SaturationService
}

func NewSaturationController(svc service.SaturationService) SaturationController {
	return &saturationControllerImpl{service: svc}
}

func (c *saturationControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /sat", c.handleSat)
	mux.HandleFunc("GET /api/v1/species", c.handleSpecies)
	mux.HandleFunc("GET /api/v1/units", c.handleUnits)
	mux.HandleFunc("GET /chart", c.handleChart)
}

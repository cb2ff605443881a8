package saturation

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"satquery/internal/metrics"
	"satquery/internal/modules/saturation/controller"
	"satquery/internal/modules/saturation/repository"
	"satquery/internal/modules/saturation/service"
	"satquery/internal/modules/saturation/views"
	"satquery/internal/thermo"
)

// Catalog is the species catalog loaded from the database together with the
// registry built from it.
type Catalog struct {
	Constants []thermo.Constants
	Registry  *thermo.Registry
}

// LoadCatalog reads every species row and builds the property registry.
func LoadCatalog(ctx context.Context, db *sql.DB) (*Catalog, error) {
	constants, err := repository.NewRepository(db).ListSpecies(ctx)
	if err != nil {
		return nil, fmt.Errorf("load species: %w", err)
	}
	registry, err := thermo.RegistryFromConstants(constants)
	if err != nil {
		return nil, fmt.Errorf("build registry: %w", err)
	}
	return &Catalog{Constants: constants, Registry: registry}, nil
}

// RegisterFeature wires the saturation routes onto mux and returns the
// service so other transports can share it.
func RegisterFeature(mux *http.ServeMux, catalog *Catalog, m *metrics.Metrics) (service.SaturationService, error) {
	if err := views.LoadTemplates(); err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	svc, err := service.NewSaturationService(catalog.Registry, catalog.Constants, m)
	if err != nil {
		return nil, err
	}
	m.SetSpeciesLoaded(catalog.Registry.Len())

	controller.NewSaturationController(svc).RegisterRoutes(mux)
	return svc, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"satquery/internal/metrics"
	"satquery/internal/modules/saturation/types"
	"satquery/internal/thermo"
	"satquery/internal/thermo/unit"
)

type SaturationService interface {
	// Query evaluates a /sat request: the two phase records and the chart.
	Query(ctx context.Context, req types.Request) (types.Response, error)
	// Chart samples the saturation dome of one species.
	Chart(ctx context.Context, speciesID string, units types.Units) (types.ChartData, error)
	Species() []types.SpeciesInfo
	Units() map[string][]string
	// HandleMessage answers one MQTT request payload with a Reply.
	HandleMessage(ctx context.Context, payload []byte) []byte
}

type saturationServiceImpl struct {
	registry *thermo.Registry
	metrics  *metrics.Metrics
	species  []types.SpeciesInfo
}

// NewSaturationService builds the service over a loaded registry. catalog
// supplies the model names reported by Species; triple and critical points
// are evaluated once here, which also warms each species' reference state.
func NewSaturationService(registry *thermo.Registry, catalog []thermo.Constants, m *metrics.Metrics) (SaturationService, error) {
	if registry == nil {
		return nil, fmt.Errorf("saturation service: nil registry")
	}
	models := make(map[string]string, len(catalog))
	for _, c := range catalog {
		models[c.ID] = c.Model
	}

	si := unit.SI()
	infos := make([]types.SpeciesInfo, 0, registry.Len())
	for _, id := range registry.IDs() {
		src, err := registry.Get(id)
		if err != nil {
			return nil, err
		}
		tt, pt, err := src.Triple(si)
		if err != nil {
			return nil, fmt.Errorf("saturation service: %w", err)
		}
		tc, pc, err := src.Critical(si)
		if err != nil {
			return nil, fmt.Errorf("saturation service: %w", err)
		}
		infos = append(infos, types.SpeciesInfo{
			ID:        id,
			Name:      src.Name(),
			Model:     models[id],
			MolarMass: src.MolarMass(),
			TripleT:   tt,
			TripleP:   pt,
			CriticalT: tc,
			CriticalP: pc,
		})
	}

	return &saturationServiceImpl{registry: registry, metrics: m, species: infos}, nil
}

func (s *saturationServiceImpl) Query(ctx context.Context, req types.Request) (types.Response, error) {
	start := time.Now()
	q, err := Interpret(req)
	if err != nil {
		s.metrics.ObserveQuery("unknown", "unknown", outcome(err), time.Since(start))
		return types.Response{}, err
	}

	resp, err := s.evaluate(ctx, q)
	label := q.Species
	if errors.Is(err, thermo.ErrSpeciesNotFound) {
		// keep label cardinality bounded by the catalog
		label = "unknown"
	}
	s.metrics.ObserveQuery(label, string(q.Mode), outcome(err), time.Since(start))
	return resp, err
}

func (s *saturationServiceImpl) evaluate(ctx context.Context, q Query) (types.Response, error) {
	src, err := s.registry.Get(q.Species)
	if err != nil {
		return types.Response{}, err
	}

	var records []types.PhaseRecord
	switch q.Mode {
	case ModePressure:
		records, err = BuildFromPressure(src, q.Value, q.Units)
	case ModeTemperature:
		records, err = BuildFromTemperature(src, q.Value, q.Units)
	default:
		err = fmt.Errorf("%w: unknown mode %q", ErrMalformedRequest, q.Mode)
	}
	if err != nil {
		return types.Response{}, err
	}
	if err := ctx.Err(); err != nil {
		return types.Response{}, err
	}

	chart, err := BuildChartData(src, q.Units)
	if err != nil {
		return types.Response{}, err
	}
	return types.Response{Values: records, ChartData: chart}, nil
}

func (s *saturationServiceImpl) Chart(ctx context.Context, speciesID string, units types.Units) (types.ChartData, error) {
	system, err := unit.New(units.Temperature, units.Pressure, units.Matter, units.Energy, units.Volume)
	if err != nil {
		return types.ChartData{}, err
	}
	src, err := s.registry.Get(speciesID)
	if err != nil {
		return types.ChartData{}, err
	}
	if err := ctx.Err(); err != nil {
		return types.ChartData{}, err
	}
	return BuildChartData(src, system)
}

func (s *saturationServiceImpl) Species() []types.SpeciesInfo {
	out := make([]types.SpeciesInfo, len(s.species))
	copy(out, s.species)
	return out
}

func (s *saturationServiceImpl) Units() map[string][]string {
	codes := unit.Codes()
	out := make(map[string][]string, len(codes))
	for dim, c := range codes {
		out[string(dim)] = c
	}
	return out
}

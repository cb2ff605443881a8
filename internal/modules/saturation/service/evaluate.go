package service

import (
	"fmt"
	"math"

	"github.com/cpmech/gosl/utl"

	"satquery/internal/modules/saturation/types"
	"satquery/internal/thermo"
	"satquery/internal/thermo/unit"
)

const (
	// ChartPoints is the number of samples on the saturation dome.
	ChartPoints = 100

	// chartOffset keeps the samples off the triple and critical points,
	// as a fraction of Tc - Tt.
	chartOffset = 1e-5
)

// BuildFromPressure evaluates both phases at saturation pressure p. The
// records carry t = Ts(p) and the p given.
func BuildFromPressure(src thermo.SaturationPropertySource, p float64, u unit.System) ([]types.PhaseRecord, error) {
	t, err := src.Ts(p, u)
	if err != nil {
		return nil, err
	}
	return buildRecords(src, thermo.AtPressure(p), t, p, u)
}

// BuildFromTemperature evaluates both phases at saturation temperature t.
// The records carry the t given and p = Ps(t).
func BuildFromTemperature(src thermo.SaturationPropertySource, t float64, u unit.System) ([]types.PhaseRecord, error) {
	p, err := src.Ps(t, u)
	if err != nil {
		return nil, err
	}
	return buildRecords(src, thermo.AtTemperature(t), t, p, u)
}

func buildRecords(src thermo.SaturationPropertySource, at thermo.Point, t, p float64, u unit.System) ([]types.PhaseRecord, error) {
	e, err := src.Es(at, u)
	if err != nil {
		return nil, err
	}
	h, err := src.Hs(at, u)
	if err != nil {
		return nil, err
	}
	s, err := src.Ss(at, u)
	if err != nil {
		return nil, err
	}
	d, err := src.Ds(at, u)
	if err != nil {
		return nil, err
	}
	if d.Liquid == 0 || d.Vapor == 0 {
		return nil, fmt.Errorf("%w: %s at t=%g p=%g", thermo.ErrZeroDensity, src.ID(), t, p)
	}

	records := []types.PhaseRecord{
		{Phase: types.PhaseGas, E: e.Vapor, H: h.Vapor, S: s.Vapor, V: 1 / d.Vapor, T: t, P: p},
		{Phase: types.PhaseFluid, E: e.Liquid, H: h.Liquid, S: s.Liquid, V: 1 / d.Liquid, T: t, P: p},
	}
	for _, r := range records {
		if !finite(r.E, r.H, r.S, r.V, r.T, r.P) {
			return nil, fmt.Errorf("%w: non-finite %s properties for %s", thermo.ErrNoConvergence, r.Phase, src.ID())
		}
	}
	return records, nil
}

// BuildChartData samples saturation entropy of both phases at ChartPoints
// temperatures spaced evenly strictly inside (Tt, Tc).
func BuildChartData(src thermo.SaturationPropertySource, u unit.System) (types.ChartData, error) {
	tt, _, err := src.Triple(u)
	if err != nil {
		return types.ChartData{}, err
	}
	tc, _, err := src.Critical(u)
	if err != nil {
		return types.ChartData{}, err
	}
	off := (tc - tt) * chartOffset
	temps := utl.LinSpace(tt+off, tc-off, ChartPoints)

	liquid, vapor, err := src.SsCurve(temps, u)
	if err != nil {
		return types.ChartData{}, err
	}
	if !finite(liquid...) || !finite(vapor...) {
		return types.ChartData{}, fmt.Errorf("%w: non-finite entropy curve for %s", thermo.ErrNoConvergence, src.ID())
	}
	return types.ChartData{TempValues: temps, SatLiquid: liquid, SatVapor: vapor}, nil
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

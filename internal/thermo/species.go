package thermo

import (
	"fmt"
	"math"

	"satquery/internal/thermo/unit"
)

const (
	ModelIAPWS        = "iapws"
	ModelPengRobinson = "peng-robinson"
)

// Constants describe a species as stored in the catalog. SI units: K, Pa,
// kg/kmol. Cp holds the ideal-gas cp/R polynomial used by peng-robinson.
type Constants struct {
	ID        string
	Name      string
	Model     string
	MolarMass float64
	TripleT   float64
	CriticalT float64
	CriticalP float64
	Acentric  float64
	Cp        [5]float64
}

func (c Constants) validate() error {
	if c.ID == "" {
		return fmt.Errorf("species: empty id")
	}
	if !(c.MolarMass > 0) {
		return fmt.Errorf("species %s: molar mass must be positive", c.ID)
	}
	if c.Model == ModelPengRobinson {
		if !(c.TripleT > 0) || !(c.CriticalT > c.TripleT) {
			return fmt.Errorf("species %s: need 0 < triple T < critical T", c.ID)
		}
		if !(c.CriticalP > 0) {
			return fmt.Errorf("species %s: critical pressure must be positive", c.ID)
		}
	}
	return nil
}

// state is a saturation state in SI mass units: K, Pa, kg/m3, J/kg, J/(kg·K).
// Enthalpy and entropy include the model's reference offsets.
type state struct {
	T, P   float64
	DL, DV float64
	HL, HV float64
	SL, SV float64
}

type model interface {
	triple() (float64, float64, error)
	critical() (float64, float64)
	molarMass() float64
	pressure(t float64) (float64, error)
	saturation(t float64) (state, error)
}

// Species adapts a model to SaturationPropertySource.
type Species struct {
	id    string
	name  string
	model model
}

var _ SaturationPropertySource = (*Species)(nil)

func NewSpecies(c Constants) (*Species, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	var m model
	switch c.Model {
	case ModelIAPWS:
		m = iapwsWater{}
	case ModelPengRobinson:
		m = newPengRobinson(c)
	default:
		return nil, fmt.Errorf("species %s: unknown model %q", c.ID, c.Model)
	}
	return &Species{id: c.ID, name: c.Name, model: m}, nil
}

func (s *Species) ID() string { return s.id }

func (s *Species) Name() string { return s.name }

func (s *Species) MolarMass() float64 { return s.model.molarMass() }

func (s *Species) Triple(u unit.System) (float64, float64, error) {
	t, p, err := s.model.triple()
	if err != nil {
		return 0, 0, fmt.Errorf("%s: %w", s.id, err)
	}
	return u.TemperatureFromK(t), u.PressureFromPa(p), nil
}

func (s *Species) Critical(u unit.System) (float64, float64, error) {
	t, p := s.model.critical()
	return u.TemperatureFromK(t), u.PressureFromPa(p), nil
}

// rangeTolerance absorbs round-off from unit conversions at the bounds.
const rangeTolerance = 1e-9

// clampTemperature checks t (K) against [Tt, Tc].
func (s *Species) clampTemperature(t float64) (float64, error) {
	tt, _, err := s.model.triple()
	if err != nil {
		return 0, err
	}
	tc, _ := s.model.critical()
	if math.IsNaN(t) || t < tt*(1-rangeTolerance) || t > tc*(1+rangeTolerance) {
		return 0, fmt.Errorf("%w: %s temperature %g K not in [%g, %g] K", ErrOutOfRange, s.id, t, tt, tc)
	}
	return math.Min(math.Max(t, tt), tc), nil
}

// saturationTemperature inverts the saturation pressure curve; p in Pa.
func (s *Species) saturationTemperature(p float64) (float64, error) {
	tt, pt, err := s.model.triple()
	if err != nil {
		return 0, err
	}
	tc, pc := s.model.critical()
	if math.IsNaN(p) || p < pt*(1-rangeTolerance) || p > pc*(1+rangeTolerance) {
		return 0, fmt.Errorf("%w: %s pressure %g Pa not in [%g, %g] Pa", ErrOutOfRange, s.id, p, pt, pc)
	}
	p = math.Min(math.Max(p, pt), pc)
	if p == pt {
		return tt, nil
	}
	if p == pc {
		return tc, nil
	}

	lnp := math.Log(p)
	var evalErr error
	f := func(t float64) float64 {
		ps, err := s.model.pressure(t)
		if err != nil {
			evalErr = err
			return math.NaN()
		}
		return math.Log(ps) - lnp
	}
	t, err := brent(f, tt, tc, 1e-12*tc, 200)
	if evalErr != nil {
		return 0, evalErr
	}
	if err != nil {
		return 0, fmt.Errorf("%s: saturation temperature at %g Pa: %w", s.id, p, err)
	}
	return t, nil
}

// stateAt resolves a Point in the caller's units to a saturation state.
func (s *Species) stateAt(at Point, u unit.System) (state, error) {
	var t float64
	if at.IsPressure() {
		var err error
		t, err = s.saturationTemperature(u.PressureToPa(at.Value()))
		if err != nil {
			return state{}, err
		}
	} else {
		var err error
		t, err = s.clampTemperature(u.TemperatureToK(at.Value()))
		if err != nil {
			return state{}, err
		}
	}
	st, err := s.model.saturation(t)
	if err != nil {
		return state{}, fmt.Errorf("%s: %w", s.id, err)
	}
	return st, nil
}

func (s *Species) Ts(p float64, u unit.System) (float64, error) {
	t, err := s.saturationTemperature(u.PressureToPa(p))
	if err != nil {
		return 0, err
	}
	return u.TemperatureFromK(t), nil
}

func (s *Species) Ps(t float64, u unit.System) (float64, error) {
	tk, err := s.clampTemperature(u.TemperatureToK(t))
	if err != nil {
		return 0, err
	}
	p, err := s.model.pressure(tk)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", s.id, err)
	}
	return u.PressureFromPa(p), nil
}

func (s *Species) Es(at Point, u unit.System) (Pair, error) {
	st, err := s.stateAt(at, u)
	if err != nil {
		return Pair{}, err
	}
	mw := s.MolarMass()
	return Pair{
		Liquid: u.SpecificEnergyFromSI(st.HL-st.P/st.DL, mw),
		Vapor:  u.SpecificEnergyFromSI(st.HV-st.P/st.DV, mw),
	}, nil
}

func (s *Species) Hs(at Point, u unit.System) (Pair, error) {
	st, err := s.stateAt(at, u)
	if err != nil {
		return Pair{}, err
	}
	mw := s.MolarMass()
	return Pair{
		Liquid: u.SpecificEnergyFromSI(st.HL, mw),
		Vapor:  u.SpecificEnergyFromSI(st.HV, mw),
	}, nil
}

func (s *Species) Ss(at Point, u unit.System) (Pair, error) {
	st, err := s.stateAt(at, u)
	if err != nil {
		return Pair{}, err
	}
	mw := s.MolarMass()
	return Pair{
		Liquid: u.SpecificEntropyFromSI(st.SL, mw),
		Vapor:  u.SpecificEntropyFromSI(st.SV, mw),
	}, nil
}

func (s *Species) Ds(at Point, u unit.System) (Pair, error) {
	st, err := s.stateAt(at, u)
	if err != nil {
		return Pair{}, err
	}
	mw := s.MolarMass()
	return Pair{
		Liquid: u.DensityFromSI(st.DL, mw),
		Vapor:  u.DensityFromSI(st.DV, mw),
	}, nil
}

// SsCurve evaluates saturation entropy at every temperature in t.
func (s *Species) SsCurve(t []float64, u unit.System) ([]float64, []float64, error) {
	liquid := make([]float64, len(t))
	vapor := make([]float64, len(t))
	for i, ti := range t {
		pair, err := s.Ss(AtTemperature(ti), u)
		if err != nil {
			return nil, nil, fmt.Errorf("entropy curve point %d: %w", i, err)
		}
		liquid[i], vapor[i] = pair.Liquid, pair.Vapor
	}
	return liquid, vapor, nil
}

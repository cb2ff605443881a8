// Package unit converts between SI values and the unit system chosen by a
// caller. A System is a plain value: it is built once per query and handed to
// every property evaluation, so no unit state is shared between queries.
package unit

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed units.yaml
var unitsYAML []byte

type Dimension string

const (
	Temperature Dimension = "temperature"
	Pressure    Dimension = "pressure"
	Matter      Dimension = "matter"
	Energy      Dimension = "energy"
	Volume      Dimension = "volume"
)

// Dimensions lists the five dimensions in the order of the request fields
// uT, up, uM, uE, uV.
var Dimensions = []Dimension{Temperature, Pressure, Matter, Energy, Volume}

var ErrUnknownUnit = errors.New("unknown unit")

type definition struct {
	Scale  float64 `yaml:"scale"`
	Offset float64 `yaml:"offset"`
	Molar  bool    `yaml:"molar"`
}

type catalog map[Dimension]map[string]definition

var defaultCatalog = mustParseCatalog(unitsYAML)

func parseCatalog(data []byte) (catalog, error) {
	var c catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse unit catalog: %w", err)
	}
	for _, dim := range Dimensions {
		defs, ok := c[dim]
		if !ok || len(defs) == 0 {
			return nil, fmt.Errorf("unit catalog: no units for %s", dim)
		}
		for code, d := range defs {
			if d.Scale <= 0 || math.IsNaN(d.Scale) || math.IsInf(d.Scale, 0) {
				return nil, fmt.Errorf("unit catalog: %s %q: scale must be positive", dim, code)
			}
		}
	}
	return c, nil
}

func mustParseCatalog(data []byte) catalog {
	c, err := parseCatalog(data)
	if err != nil {
		panic(err)
	}
	return c
}

// Codes returns the accepted unit codes per dimension, sorted.
func Codes() map[Dimension][]string {
	out := make(map[Dimension][]string, len(defaultCatalog))
	for dim, defs := range defaultCatalog {
		codes := make([]string, 0, len(defs))
		for code := range defs {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		out[dim] = codes
	}
	return out
}

// System is a fully specified set of units, one per dimension.
type System struct {
	temperature, pressure, matter, energy, volume string

	t, p, m, e, v definition
}

// New resolves the five unit codes. Every illegal code is reported; the
// returned error wraps ErrUnknownUnit.
func New(temperature, pressure, matter, energy, volume string) (System, error) {
	s := System{
		temperature: temperature,
		pressure:    pressure,
		matter:      matter,
		energy:      energy,
		volume:      volume,
	}

	var errs []error
	lookup := func(dim Dimension, code string, dst *definition) {
		d, ok := defaultCatalog[dim][code]
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s %q", ErrUnknownUnit, dim, code))
			return
		}
		*dst = d
	}
	lookup(Temperature, temperature, &s.t)
	lookup(Pressure, pressure, &s.p)
	lookup(Matter, matter, &s.m)
	lookup(Energy, energy, &s.e)
	lookup(Volume, volume, &s.v)

	if len(errs) > 0 {
		return System{}, errors.Join(errs...)
	}
	return s, nil
}

// MustNew is New for unit codes known to be valid at compile time.
func MustNew(temperature, pressure, matter, energy, volume string) System {
	s, err := New(temperature, pressure, matter, energy, volume)
	if err != nil {
		panic(err)
	}
	return s
}

// SI is K, Pa, kg, J, m3.
func SI() System {
	return MustNew("K", "Pa", "kg", "J", "m3")
}

// Code returns the unit code in use for dim.
func (s System) Code(dim Dimension) string {
	switch dim {
	case Temperature:
		return s.temperature
	case Pressure:
		return s.pressure
	case Matter:
		return s.matter
	case Energy:
		return s.energy
	case Volume:
		return s.volume
	}
	return ""
}

func (s System) String() string {
	return fmt.Sprintf("T=%s p=%s M=%s E=%s V=%s", s.temperature, s.pressure, s.matter, s.energy, s.volume)
}

func (s System) TemperatureToK(t float64) float64 {
	return t*s.t.Scale + s.t.Offset
}

func (s System) TemperatureFromK(k float64) float64 {
	return (k - s.t.Offset) / s.t.Scale
}

func (s System) PressureToPa(p float64) float64 {
	return p * s.p.Scale
}

func (s System) PressureFromPa(pa float64) float64 {
	return pa / s.p.Scale
}

// kgPerMatter is the mass of one matter unit; molar units need the molar
// mass in kg/kmol.
func (s System) kgPerMatter(molarMass float64) float64 {
	if s.m.Molar {
		return s.m.Scale * molarMass
	}
	return s.m.Scale
}

// SpecificEnergyFromSI converts J/kg to energy per matter (e, h).
func (s System) SpecificEnergyFromSI(jPerKg, molarMass float64) float64 {
	return jPerKg * s.kgPerMatter(molarMass) / s.e.Scale
}

// SpecificEntropyFromSI converts J/(kg·K) to energy per matter per degree.
// Temperature offsets do not apply to intervals.
func (s System) SpecificEntropyFromSI(jPerKgK, molarMass float64) float64 {
	return jPerKgK * s.kgPerMatter(molarMass) / s.e.Scale * s.t.Scale
}

// DensityFromSI converts kg/m3 to matter per volume.
func (s System) DensityFromSI(kgPerM3, molarMass float64) float64 {
	return kgPerM3 / s.kgPerMatter(molarMass) * s.v.Scale
}

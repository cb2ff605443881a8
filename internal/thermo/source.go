// Package thermo is the saturation property backend: a registry of species
// and, per species, saturation evaluators for pressure, temperature, internal
// energy, enthalpy, entropy and density, each returning the liquid and vapor
// branch. Units are never global; every call takes the unit.System to use.
package thermo

import (
	"errors"

	"satquery/internal/thermo/unit"
)

var (
	ErrSpeciesNotFound = errors.New("species not found")
	ErrOutOfRange      = errors.New("outside saturation range")
	ErrNoConvergence   = errors.New("saturation solver did not converge")
	ErrZeroDensity     = errors.New("zero density")
)

// Pair holds a saturation property on the liquid and vapor branches.
type Pair struct {
	Liquid float64
	Vapor  float64
}

type variable int

const (
	byTemperature variable = iota
	byPressure
)

// Point is the independent variable of a single-point saturation query,
// expressed in the caller's units.
type Point struct {
	kind  variable
	value float64
}

func AtTemperature(t float64) Point { return Point{kind: byTemperature, value: t} }

func AtPressure(p float64) Point { return Point{kind: byPressure, value: p} }

func (pt Point) IsPressure() bool { return pt.kind == byPressure }

func (pt Point) Value() float64 { return pt.value }

// SaturationPropertySource is what the service needs from a species.
// Single-point operations take a Point and return a Pair; SsCurve is the
// batched form used for chart data.
type SaturationPropertySource interface {
	ID() string
	Name() string
	MolarMass() float64

	// Triple and Critical return (temperature, pressure).
	Triple(u unit.System) (float64, float64, error)
	Critical(u unit.System) (float64, float64, error)

	Ts(p float64, u unit.System) (float64, error)
	Ps(t float64, u unit.System) (float64, error)

	Es(at Point, u unit.System) (Pair, error)
	Hs(at Point, u unit.System) (Pair, error)
	Ss(at Point, u unit.System) (Pair, error)
	Ds(at Point, u unit.System) (Pair, error)

	SsCurve(t []float64, u unit.System) (liquid []float64, vapor []float64, err error)
}

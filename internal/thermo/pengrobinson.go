package thermo

import (
	"fmt"
	"math"
	"sync"
)

// gasConstant is the molar gas constant in J/(kmol·K).
const gasConstant = 8314.462618

const (
	idealRefT = 298.15
	idealRefP = 101325.0

	// critical volume of the Peng-Robinson fluid, in units of b
	prCriticalVolume = 3.9513730
)

var (
	sqrt2         = math.Sqrt2
	prLogConstant = 2 * math.Sqrt2
)

// pengRobinson models a species with the Peng-Robinson cubic equation of
// state and an ideal-gas heat capacity cp/R = a0 + a1·T + a2·T² + a3·T³ + a4·T⁴.
// Saturated liquid at the triple point is the reference (u = s = 0).
type pengRobinson struct {
	tripleT   float64
	criticalT float64
	criticalP float64
	omega     float64
	mw        float64
	cp        [5]float64

	ac    float64
	b     float64
	kappa float64

	once    sync.Once
	tripleP float64
	refH    float64
	refS    float64
	refErr  error
}

func newPengRobinson(c Constants) *pengRobinson {
	return &pengRobinson{
		tripleT:   c.TripleT,
		criticalT: c.CriticalT,
		criticalP: c.CriticalP,
		omega:     c.Acentric,
		mw:        c.MolarMass,
		cp:        c.Cp,
		ac:        0.45723553 * gasConstant * gasConstant * c.CriticalT * c.CriticalT / c.CriticalP,
		b:         0.07779607 * gasConstant * c.CriticalT / c.CriticalP,
		kappa:     0.37464 + 1.54226*c.Acentric - 0.26992*c.Acentric*c.Acentric,
	}
}

func (m *pengRobinson) molarMass() float64 { return m.mw }

func (m *pengRobinson) critical() (float64, float64) { return m.criticalT, m.criticalP }

func (m *pengRobinson) triple() (float64, float64, error) {
	if err := m.reference(); err != nil {
		return 0, 0, err
	}
	return m.tripleT, m.tripleP, nil
}

// reference computes the triple point pressure and the enthalpy/entropy
// offsets once; they depend only on the species constants.
func (m *pengRobinson) reference() error {
	m.once.Do(func() {
		raw, err := m.rawSaturation(m.tripleT)
		if err != nil {
			m.refErr = fmt.Errorf("triple point: %w", err)
			return
		}
		m.tripleP = raw.P
		m.refH = raw.HL - raw.P/raw.DL
		m.refS = raw.SL
	})
	return m.refErr
}

// attraction returns a(T) and da/dT.
func (m *pengRobinson) attraction(t float64) (float64, float64) {
	sq := math.Sqrt(t / m.criticalT)
	g := 1 + m.kappa*(1-sq)
	return m.ac * g * g, -m.ac * m.kappa * g / math.Sqrt(t*m.criticalT)
}

// compressibility returns the physical roots (Z > B) of the cubic at (t, p).
func (m *pengRobinson) compressibility(t, p float64) (roots []float64, a, dadt, bigA, bigB float64) {
	a, dadt = m.attraction(t)
	rt := gasConstant * t
	bigA = a * p / (rt * rt)
	bigB = m.b * p / rt
	all := cubicRoots(-(1 - bigB), bigA-3*bigB*bigB-2*bigB, -(bigA*bigB - bigB*bigB - bigB*bigB*bigB))
	for _, z := range all {
		if z > bigB {
			roots = append(roots, z)
		}
	}
	return roots, a, dadt, bigA, bigB
}

func prLogTerm(z, bigB float64) float64 {
	return math.Log((z + (1+sqrt2)*bigB) / (z + (1-sqrt2)*bigB))
}

func lnFugacityCoefficient(z, bigA, bigB float64) float64 {
	return z - 1 - math.Log(z-bigB) - bigA/(prLogConstant*bigB)*prLogTerm(z, bigB)
}

// phaseBalance is ln φL − ln φV at (t, e^lnp). When only one phase exists
// the sign tells which side of the saturation pressure lnp lies on.
func (m *pengRobinson) phaseBalance(t, lnp float64) float64 {
	p := math.Exp(lnp)
	roots, _, _, bigA, bigB := m.compressibility(t, p)
	switch len(roots) {
	case 0:
		return math.NaN()
	case 1:
		v := roots[0] * gasConstant * t / p
		if v < prCriticalVolume*m.b {
			return -1
		}
		return 1
	}
	zl, zv := roots[0], roots[len(roots)-1]
	return lnFugacityCoefficient(zl, bigA, bigB) - lnFugacityCoefficient(zv, bigA, bigB)
}

func (m *pengRobinson) saturationPressure(t float64) (float64, error) {
	if t >= m.criticalT {
		return m.criticalP, nil
	}
	lo := math.Log(m.criticalP) - 60
	hi := math.Log(m.criticalP)
	lnp, err := brent(func(x float64) float64 { return m.phaseBalance(t, x) }, lo, hi, 1e-13, 300)
	if err != nil {
		return 0, fmt.Errorf("saturation pressure at %g K: %w", t, err)
	}
	return math.Exp(lnp), nil
}

func (m *pengRobinson) pressure(t float64) (float64, error) {
	return m.saturationPressure(t)
}

// idealGas returns h and s of the ideal gas in J/kmol and J/(kmol·K),
// relative to (idealRefT, idealRefP).
func (m *pengRobinson) idealGas(t, p float64) (float64, float64) {
	c := m.cp
	h := c[0] * (t - idealRefT)
	s := c[0] * math.Log(t/idealRefT)
	tk, t0k := t, idealRefT
	for k := 1; k < len(c); k++ {
		tk *= t
		t0k *= idealRefT
		h += c[k] * (tk - t0k) / float64(k+1)
		s += c[k] * (tk/t - t0k/idealRefT) / float64(k)
	}
	return gasConstant * h, gasConstant*s - gasConstant*math.Log(p/idealRefP)
}

// phase returns density, h and s (per kg, without reference offsets) of
// the phase with compressibility z.
func (m *pengRobinson) phase(t, p, z, a, dadt, bigB, hIG, sIG float64) (float64, float64, float64) {
	logTerm := prLogTerm(z, bigB)
	hDep := gasConstant*t*(z-1) + (t*dadt-a)/(prLogConstant*m.b)*logTerm
	sDep := gasConstant*math.Log(z-bigB) + dadt/(prLogConstant*m.b)*logTerm
	rho := p * m.mw / (z * gasConstant * t)
	return rho, (hIG + hDep) / m.mw, (sIG + sDep) / m.mw
}

func (m *pengRobinson) rawSaturation(t float64) (state, error) {
	p, err := m.saturationPressure(t)
	if err != nil {
		return state{}, err
	}
	roots, a, dadt, _, bigB := m.compressibility(t, p)
	if len(roots) == 0 {
		return state{}, fmt.Errorf("%w: no physical root at %g K", ErrNoConvergence, t)
	}
	hIG, sIG := m.idealGas(t, p)
	zl, zv := roots[0], roots[len(roots)-1]

	out := state{T: t, P: p}
	out.DL, out.HL, out.SL = m.phase(t, p, zl, a, dadt, bigB, hIG, sIG)
	out.DV, out.HV, out.SV = m.phase(t, p, zv, a, dadt, bigB, hIG, sIG)
	return out, nil
}

func (m *pengRobinson) saturation(t float64) (state, error) {
	if err := m.reference(); err != nil {
		return state{}, err
	}
	out, err := m.rawSaturation(t)
	if err != nil {
		return state{}, err
	}
	out.HL -= m.refH
	out.HV -= m.refH
	out.SL -= m.refS
	out.SV -= m.refS
	return out, nil
}

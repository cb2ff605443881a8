package thermo

import "math"

// Water saturation from the IAPWS supplementary release on saturation
// properties of ordinary water substance (1992): vapour pressure, saturated
// densities and the auxiliary functions alpha and phi. Reference state is
// that of IAPWS-95 (u' = s' = 0 at the triple point).
const (
	waterCriticalT   = 647.096
	waterCriticalP   = 22.064e6
	waterCriticalRho = 322.0
	waterTripleT     = 273.16
	waterTripleP     = 611.655
	waterMolarMass   = 18.015268

	waterAlpha0 = 1000.0
	waterPhi0   = waterAlpha0 / waterCriticalT
)

var (
	iapwsA = [6]float64{-7.85951783, 1.84408259, -11.7866497, 22.6807411, -15.9618719, 1.80122502}
	iapwsB = [6]float64{1.99274064, 1.09965342, -0.510839303, -1.75493479, -45.5170352, -6.74694450e5}
	iapwsC = [6]float64{-2.03150240, -2.68302940, -5.38626492, -17.2991605, -44.7586581, -63.9201063}
	iapwsD = [5]float64{-5.65134998e-8, 2690.66631, 127.287297, -135.003439, 0.981825814}
)

const (
	iapwsDAlpha = -1135.905627715
	iapwsDPhi   = 2319.5246
)

type iapwsWater struct{}

func (iapwsWater) triple() (float64, float64, error) { return waterTripleT, waterTripleP, nil }

func (iapwsWater) critical() (float64, float64) { return waterCriticalT, waterCriticalP }

func (iapwsWater) molarMass() float64 { return waterMolarMass }

// lnPressureRatio returns ln(p/pc) and d(ln p)/dT at t.
func (iapwsWater) lnPressureRatio(t float64) (float64, float64) {
	tau := 1 - t/waterCriticalT
	a := iapwsA
	f := a[0]*tau + a[1]*math.Pow(tau, 1.5) + a[2]*math.Pow(tau, 3) +
		a[3]*math.Pow(tau, 3.5) + a[4]*math.Pow(tau, 4) + a[5]*math.Pow(tau, 7.5)
	df := a[0] + 1.5*a[1]*math.Sqrt(tau) + 3*a[2]*tau*tau +
		3.5*a[3]*math.Pow(tau, 2.5) + 4*a[4]*tau*tau*tau + 7.5*a[5]*math.Pow(tau, 6.5)
	ln := waterCriticalT / t * f
	return ln, -(ln + df) / t
}

func (w iapwsWater) pressure(t float64) (float64, error) {
	ln, _ := w.lnPressureRatio(t)
	return waterCriticalP * math.Exp(ln), nil
}

func (w iapwsWater) saturation(t float64) (state, error) {
	tau := 1 - t/waterCriticalT
	theta := t / waterCriticalT

	ln, dln := w.lnPressureRatio(t)
	p := waterCriticalP * math.Exp(ln)
	dpdt := p * dln

	b := iapwsB
	rhoL := waterCriticalRho * (1 + b[0]*math.Cbrt(tau) + b[1]*math.Pow(tau, 2.0/3) +
		b[2]*math.Pow(tau, 5.0/3) + b[3]*math.Pow(tau, 16.0/3) +
		b[4]*math.Pow(tau, 43.0/3) + b[5]*math.Pow(tau, 110.0/3))

	c := iapwsC
	rhoV := waterCriticalRho * math.Exp(c[0]*math.Pow(tau, 2.0/6)+c[1]*math.Pow(tau, 4.0/6)+
		c[2]*math.Pow(tau, 8.0/6)+c[3]*math.Pow(tau, 18.0/6)+
		c[4]*math.Pow(tau, 37.0/6)+c[5]*math.Pow(tau, 71.0/6))

	d := iapwsD
	alpha := waterAlpha0 * (iapwsDAlpha + d[0]*math.Pow(theta, -19) + d[1]*theta +
		d[2]*math.Pow(theta, 4.5) + d[3]*math.Pow(theta, 5) + d[4]*math.Pow(theta, 54.5))
	phi := waterPhi0 * (iapwsDPhi + 19.0/20*d[0]*math.Pow(theta, -20) + d[1]*math.Log(theta) +
		9.0/7*d[2]*math.Pow(theta, 3.5) + 5.0/4*d[3]*math.Pow(theta, 4) +
		109.0/107*d[4]*math.Pow(theta, 53.5))

	return state{
		T:  t,
		P:  p,
		DL: rhoL,
		DV: rhoV,
		HL: alpha + t/rhoL*dpdt,
		HV: alpha + t/rhoV*dpdt,
		SL: phi + dpdt/rhoL,
		SV: phi + dpdt/rhoV,
	}, nil
}

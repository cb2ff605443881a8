package thermo

import (
	"fmt"
	"math"
)

const machineEps = 2.220446049250313e-16

// brent finds a root of f in [a, b]. f(a) and f(b) must differ in sign.
// f only needs to change sign once in the bracket; it may be discontinuous.
func brent(f func(float64) float64, a, b, tol float64, maxIter int) (float64, error) {
	fa, fb := f(a), f(b)
	if fa == 0 {
		return a, nil
	}
	if fb == 0 {
		return b, nil
	}
	if math.IsNaN(fa) || math.IsNaN(fb) || (fa > 0) == (fb > 0) {
		return 0, fmt.Errorf("%w: root not bracketed in [%g, %g]", ErrNoConvergence, a, b)
	}

	c, fc := b, fb
	var d, e float64
	for i := 0; i < maxIter; i++ {
		if (fb > 0) == (fc > 0) {
			c, fc = a, fa
			d = b - a
			e = d
		}
		if math.Abs(fc) < math.Abs(fb) {
			a, b, c = b, c, b
			fa, fb, fc = fb, fc, fb
		}

		tol1 := 2*machineEps*math.Abs(b) + 0.5*tol
		xm := 0.5 * (c - b)
		if math.Abs(xm) <= tol1 || fb == 0 {
			return b, nil
		}

		if math.Abs(e) >= tol1 && math.Abs(fa) > math.Abs(fb) {
			s := fb / fa
			var p, q float64
			if a == c {
				p = 2 * xm * s
				q = 1 - s
			} else {
				q = fa / fc
				r := fb / fc
				p = s * (2*xm*q*(q-r) - (b-a)*(r-1))
				q = (q - 1) * (r - 1) * (s - 1)
			}
			if p > 0 {
				q = -q
			}
			p = math.Abs(p)
			min1 := 3*xm*q - math.Abs(tol1*q)
			min2 := math.Abs(e * q)
			if 2*p < math.Min(min1, min2) {
				e = d
				d = p / q
			} else {
				d = xm
				e = d
			}
		} else {
			d = xm
			e = d
		}

		a, fa = b, fb
		if math.Abs(d) > tol1 {
			b += d
		} else {
			b += math.Copysign(tol1, xm)
		}
		fb = f(b)
		if math.IsNaN(fb) {
			return 0, fmt.Errorf("%w: NaN at %g", ErrNoConvergence, b)
		}
	}
	return 0, fmt.Errorf("%w: %d iterations", ErrNoConvergence, maxIter)
}

// cubicRoots returns the real roots of z³ + c2·z² + c1·z + c0 = 0 in
// ascending order, each polished with a few Newton steps.
func cubicRoots(c2, c1, c0 float64) []float64 {
	q := (c2*c2 - 3*c1) / 9
	r := (2*c2*c2*c2 - 9*c2*c1 + 27*c0) / 54
	shift := c2 / 3

	var roots []float64
	q3 := q * q * q
	if r*r < q3 {
		cosArg := r / math.Sqrt(q3)
		cosArg = math.Max(-1, math.Min(1, cosArg))
		theta := math.Acos(cosArg)
		sq := -2 * math.Sqrt(q)
		roots = []float64{
			sq*math.Cos(theta/3) - shift,
			sq*math.Cos((theta+2*math.Pi)/3) - shift,
			sq*math.Cos((theta-2*math.Pi)/3) - shift,
		}
	} else {
		a := -math.Copysign(math.Cbrt(math.Abs(r)+math.Sqrt(r*r-q3)), r)
		var b float64
		if a != 0 {
			b = q / a
		}
		roots = []float64{a + b - shift}
	}

	poly := func(z float64) float64 { return ((z+c2)*z+c1)*z + c0 }
	for i, z := range roots {
		f := poly(z)
		for k := 0; k < 3 && f != 0; k++ {
			df := (3*z+2*c2)*z + c1
			if df == 0 {
				break
			}
			next := z - f/df
			fn := poly(next)
			if math.Abs(fn) >= math.Abs(f) {
				break
			}
			z, f = next, fn
		}
		roots[i] = z
	}

	// insertion sort, at most three entries
	for i := 1; i < len(roots); i++ {
		for j := i; j > 0 && roots[j] < roots[j-1]; j-- {
			roots[j], roots[j-1] = roots[j-1], roots[j]
		}
	}
	return roots
}

package ldrb

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// parallelTol is the relative length below which the apicobasal gradient,
// once projected off the transmural direction, is treated as parallel to it
const parallelTol = 1.e-8

// Basis is the unrotated local frame. (C, L, T) is right handed.
type Basis struct {
	L r3.Vec // Longitudinal, apicobasal gradient direction
	T r3.Vec // Transmural, endocardium to epicardium
	C r3.Vec // Circumferential, L x T
}

// Fallback holds the substitute directions used when a gradient at a point
// cannot define the frame
type Fallback struct {
	Long       r3.Vec  // Long axis of the point's region
	Transmural r3.Vec  // Substitute transmural direction at the point
	Tol        float64 // Gradient magnitude at or below which a gradient is degenerate
}

// BuildFrame builds the orthonormal basis from the apicobasal and transmural
// gradients: T first, then L orthogonalized against T, then C = L x T.
func BuildFrame(gradAB, gradT r3.Vec, fb Fallback) (b Basis, kinds []DegenerateKind) {
	long := fb.Long
	if !(r3.Norm(long) > 0) {
		long = r3.Vec{Z: 1}
	}

	if !usable(gradT, fb.Tol) {
		kinds = append(kinds, DegenerateTransmural)
		gradT = fb.Transmural
		if !usable(gradT, 0) || isParallel(gradT, long) {
			gradT = leastAligned(long)
		}
	}
	b.T = r3.Unit(gradT)

	if !usable(gradAB, fb.Tol) {
		kinds = append(kinds, DegenerateLongitudinal)
		gradAB = long
	}
	l := reject(gradAB, b.T)
	if !(r3.Norm(l) > parallelTol*r3.Norm(gradAB)) {
		kinds = append(kinds, DegenerateParallel)
		if l = reject(long, b.T); !(r3.Norm(l) > parallelTol*r3.Norm(long)) {
			l = reject(leastAligned(b.T), b.T)
		}
	}
	b.L = r3.Unit(l)
	b.C = r3.Unit(r3.Cross(b.L, b.T))
	b.L = r3.Cross(b.T, b.C)
	return
}

func usable(v r3.Vec, tol float64) bool {
	n := r3.Norm(v)
	return n > tol && !math.IsInf(n, 0) && !math.IsNaN(n)
}

// reject removes the component of v along the unit vector u
func reject(v, u r3.Vec) r3.Vec {
	return r3.Sub(v, r3.Scale(r3.Dot(v, u), u))
}

func isParallel(a, b r3.Vec) bool {
	return r3.Norm(r3.Cross(a, b)) <= parallelTol*r3.Norm(a)*r3.Norm(b)
}

// leastAligned returns the coordinate axis with the smallest component of v
func leastAligned(v r3.Vec) r3.Vec {
	ax, ay, az := math.Abs(v.X), math.Abs(v.Y), math.Abs(v.Z)
	switch {
	case ax <= ay && ax <= az:
		return r3.Vec{X: 1}
	case ay <= az:
		return r3.Vec{Y: 1}
	default:
		return r3.Vec{Z: 1}
	}
}

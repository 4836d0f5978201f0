package ldrb

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Frame is the fiber, sheet and sheet-normal triple at one point
type Frame struct {
	Fiber, Sheet, Normal r3.Vec
}

// Orient rotates the basis by the helix angle alpha about T, giving the fiber
// in the C-L plane, then tilts the sheet out of that plane by rotating beta
// about the fiber. Angles are in degrees.
//
//	fiber  = cos(a) C + sin(a) L
//	sheet  = cos(b) (-sin(a) C + cos(a) L) - sin(b) T
//	normal = sin(b) (-sin(a) C + cos(a) L) + cos(b) T
func Orient(b Basis, alphaDeg, betaDeg float64) (f Frame) {
	var (
		alpha = alphaDeg * math.Pi / 180
		beta  = betaDeg * math.Pi / 180
		helix = r3.NewRotation(alpha, b.T)
	)
	f.Fiber = r3.Unit(helix.Rotate(b.C))
	inPlane := r3.Unit(helix.Rotate(b.L))
	tilt := r3.NewRotation(-beta, f.Fiber)
	f.Sheet = r3.Unit(tilt.Rotate(inPlane))
	f.Normal = r3.Unit(r3.Cross(f.Fiber, f.Sheet))
	return
}

// Orthonormality returns the largest deviation of the frame from an
// orthonormal right handed triple
func (f Frame) Orthonormality() (dev float64) {
	for _, d := range []float64{
		math.Abs(r3.Norm(f.Fiber) - 1),
		math.Abs(r3.Norm(f.Sheet) - 1),
		math.Abs(r3.Norm(f.Normal) - 1),
		math.Abs(r3.Dot(f.Fiber, f.Sheet)),
		math.Abs(r3.Dot(f.Fiber, f.Normal)),
		math.Abs(r3.Dot(f.Sheet, f.Normal)),
		r3.Norm(r3.Sub(r3.Cross(f.Fiber, f.Sheet), f.Normal)),
	} {
		if !(d <= dev) {
			dev = d
		}
	}
	return
}

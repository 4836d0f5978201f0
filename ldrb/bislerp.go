package ldrb

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// FrameToQuat returns the unit quaternion of the rotation whose matrix has
// columns fiber, sheet and normal
func FrameToQuat(f Frame) (q quat.Number) {
	var (
		m00, m01, m02 = f.Fiber.X, f.Sheet.X, f.Normal.X
		m10, m11, m12 = f.Fiber.Y, f.Sheet.Y, f.Normal.Y
		m20, m21, m22 = f.Fiber.Z, f.Sheet.Z, f.Normal.Z
		trace         = m00 + m11 + m22
	)
	// Branch on the largest of the four squared components for stability
	switch {
	case trace > 0:
		s := 2 * math.Sqrt(trace+1)
		q = quat.Number{Real: s / 4, Imag: (m21 - m12) / s, Jmag: (m02 - m20) / s, Kmag: (m10 - m01) / s}
	case m00 > m11 && m00 > m22:
		s := 2 * math.Sqrt(1+m00-m11-m22)
		q = quat.Number{Real: (m21 - m12) / s, Imag: s / 4, Jmag: (m01 + m10) / s, Kmag: (m02 + m20) / s}
	case m11 > m22:
		s := 2 * math.Sqrt(1+m11-m00-m22)
		q = quat.Number{Real: (m02 - m20) / s, Imag: (m01 + m10) / s, Jmag: s / 4, Kmag: (m12 + m21) / s}
	default:
		s := 2 * math.Sqrt(1+m22-m00-m11)
		q = quat.Number{Real: (m10 - m01) / s, Imag: (m02 + m20) / s, Jmag: (m12 + m21) / s, Kmag: s / 4}
	}
	return quat.Scale(1/quat.Abs(q), q)
}

// QuatToFrame rotates the coordinate axes by q
func QuatToFrame(q quat.Number) (f Frame) {
	rot := r3.Rotation(quat.Scale(1/quat.Abs(q), q))
	f.Fiber = r3.Unit(rot.Rotate(r3.Vec{X: 1}))
	f.Sheet = r3.Unit(reject(rot.Rotate(r3.Vec{Y: 1}), f.Fiber))
	f.Normal = r3.Cross(f.Fiber, f.Sheet)
	return
}

func qdot(a, b quat.Number) float64 {
	return a.Real*b.Real + a.Imag*b.Imag + a.Jmag*b.Jmag + a.Kmag*b.Kmag
}

// Slerp interpolates between unit quaternions along the shorter arc, t = 0
// gives qa and t = 1 gives qb up to sign
func Slerp(qa, qb quat.Number, t float64) quat.Number {
	dot := qdot(qa, qb)
	if dot < 0 {
		qb, dot = quat.Scale(-1, qb), -dot
	}
	if dot > 1-1.e-9 {
		// Nearly parallel, the normalized chord is accurate to roundoff
		q := quat.Add(quat.Scale(1-t, qa), quat.Scale(t, qb))
		return quat.Scale(1/quat.Abs(q), q)
	}
	var (
		theta = math.Acos(dot)
		sin   = math.Sin(theta)
		q     = quat.Add(quat.Scale(math.Sin((1-t)*theta)/sin, qa), quat.Scale(math.Sin(t*theta)/sin, qb))
	)
	return quat.Scale(1/quat.Abs(q), q)
}

var (
	quatI = quat.Number{Imag: 1}
	quatJ = quat.Number{Jmag: 1}
	quatK = quat.Number{Kmag: 1}
)

// Bislerp blends two frames, t = 0 gives a and t = 1 gives b. The frames are
// only defined up to a half turn about each of their axes, so a is first
// replaced by the equivalent frame closest to b. Interpolation then takes the
// shorter arc.
func Bislerp(a, b Frame, t float64) Frame {
	var (
		qa    = FrameToQuat(a)
		qb    = FrameToQuat(b)
		best  quat.Number
		maxAb = -1.
	)
	for _, cand := range []quat.Number{qa, quat.Mul(qa, quatI), quat.Mul(qa, quatJ), quat.Mul(qa, quatK)} {
		if d := math.Abs(qdot(cand, qb)); d > maxAb {
			best, maxAb = cand, d
		}
	}
	if maxAb > 1-1.e-12 {
		return b
	}
	return QuatToFrame(Slerp(best, qb, t))
}

package ldrb

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/goldrb/mesh"
)

// Sample is everything the rule engine needs at one element or vertex
type Sample struct {
	Region        mesh.Region
	Biventricular bool
	T             float64 // Transmural depth, epi field
	LV, RV        float64 // Endocardial coordinates, biventricular only
	GradAB        r3.Vec
	GradT         r3.Vec
	GradLV        r3.Vec
	GradRV        r3.Vec
}

// Blend is the ventricular coordinate, 0 in the LV wall and 1 in the RV wall
func (s Sample) Blend() float64 {
	return blend(s.LV, s.RV)
}

func blend(lv, rv float64) float64 {
	if sum := lv + rv; sum > 0 {
		return rv / sum
	}
	return 0.5
}

// Rule holds the angle sets applied at one point. A univentricular point only
// uses LV.
type Rule struct {
	LV, RV, Septum Angles
}

// septalWeight is 1 midway between the endocardia and 0 at either of them
func septalWeight(b float64) float64 {
	return math.Max(0, 1-math.Abs(2*b-1))
}

// Mix interpolates two angle sets, w = 0 gives a and w = 1 gives b
func (a Angles) Mix(b Angles, w float64) Angles {
	lerp := func(x, y float64) float64 { return x + w*(y-x) }
	return Angles{
		AlphaEndo: lerp(a.AlphaEndo, b.AlphaEndo),
		AlphaEpi:  lerp(a.AlphaEpi, b.AlphaEpi),
		BetaEndo:  lerp(a.BetaEndo, b.BetaEndo),
		BetaEpi:   lerp(a.BetaEpi, b.BetaEpi),
	}
}

// SystemAt evaluates the fiber, sheet and normal at one sample. A
// univentricular sample uses the transmural gradient directly. A
// biventricular sample builds one frame for each ventricle whose endocardial
// coordinate exceeds tol, pointing away from that endocardium and rotated by
// that ventricle's angles, and blends them with Bislerp. Both ventricle
// angle sets lean towards the septal set as the blend coordinate approaches
// 0.5, so the result depends only on the fields and never on region tags.
func SystemAt(s Sample, rule Rule, fb Fallback, tol float64) (f Frame, kinds []DegenerateKind) {
	orient := func(gradT r3.Vec, ang Angles) Frame {
		b, k := BuildFrame(s.GradAB, gradT, fb)
		kinds = appendKinds(kinds, k)
		alpha, beta := ang.At(s.T)
		return Orient(b, alpha, beta)
	}
	if !s.Biventricular {
		f = orient(s.GradT, rule.LV)
		return
	}

	var (
		b      = s.Blend()
		w      = septalWeight(b)
		lvRule = rule.LV.Mix(rule.Septum, w)
		rvRule = rule.RV.Mix(rule.Septum, w)
	)
	haveLV, haveRV := s.LV > tol, s.RV > tol
	switch {
	case haveLV && haveRV:
		f = Bislerp(orient(r3.Scale(-1, s.GradLV), lvRule), orient(r3.Scale(-1, s.GradRV), rvRule), b)
	case haveLV:
		f = orient(r3.Scale(-1, s.GradLV), lvRule)
	case haveRV:
		f = orient(r3.Scale(-1, s.GradRV), rvRule)
	default:
		f = orient(s.GradT, lvRule.Mix(rvRule, b))
	}
	return
}

func appendKinds(kinds, add []DegenerateKind) []DegenerateKind {
outer:
	for _, k := range add {
		for _, have := range kinds {
			if have == k {
				continue outer
			}
		}
		kinds = append(kinds, k)
	}
	return kinds
}

package ldrb

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	xHat = r3.Vec{X: 1}
	yHat = r3.Vec{Y: 1}
	zHat = r3.Vec{Z: 1}
)

func assertVec(t *testing.T, want, got r3.Vec, delta float64, msgAndArgs ...interface{}) {
	t.Helper()
	assert.InDeltaSlice(t, []float64{want.X, want.Y, want.Z}, []float64{got.X, got.Y, got.Z}, delta, msgAndArgs...)
}

func randomVec(rng *rand.Rand) r3.Vec {
	return r3.Vec{X: rng.NormFloat64(), Y: rng.NormFloat64(), Z: rng.NormFloat64()}
}

func TestBuildFrame(t *testing.T) {
	fb := Fallback{Long: zHat, Transmural: yHat, Tol: 1.e-10}
	{ // Axis aligned gradients, unnormalized
		b, kinds := BuildFrame(r3.Vec{Z: 2}, r3.Vec{X: 3}, fb)
		assert.Empty(t, kinds)
		assertVec(t, xHat, b.T, 1.e-14)
		assertVec(t, zHat, b.L, 1.e-14)
		assertVec(t, yHat, b.C, 1.e-14)
	}
	{ // L is orthogonalized against T, never the reverse
		b, kinds := BuildFrame(r3.Vec{X: 1, Z: 1}, r3.Vec{X: 1}, fb)
		assert.Empty(t, kinds)
		assertVec(t, xHat, b.T, 1.e-14)
		assertVec(t, zHat, b.L, 1.e-14)
	}
	{ // Flat transmural field
		b, kinds := BuildFrame(zHat, r3.Vec{}, fb)
		assert.Equal(t, []DegenerateKind{DegenerateTransmural}, kinds)
		assertVec(t, yHat, b.T, 1.e-14)
		assertVec(t, zHat, b.L, 1.e-14)
	}
	{ // Gradients aligned with each other
		b, kinds := BuildFrame(r3.Vec{X: 1}, r3.Vec{X: 2}, fb)
		assert.Equal(t, []DegenerateKind{DegenerateParallel}, kinds)
		assertVec(t, zHat, b.L, 1.e-14)
	}
	{ // Nothing usable at all, including the fallback
		b, kinds := BuildFrame(r3.Vec{}, r3.Vec{X: math.NaN()}, Fallback{Tol: 1.e-10})
		assert.Equal(t, []DegenerateKind{DegenerateTransmural, DegenerateLongitudinal}, kinds)
		assertVec(t, xHat, b.T, 1.e-14)
		assertVec(t, zHat, b.L, 1.e-14)
	}
	{ // Arbitrary gradients give a right handed orthonormal basis
		rng := rand.New(rand.NewSource(7))
		for i := 0; i < 200; i++ {
			b, _ := BuildFrame(randomVec(rng), randomVec(rng), fb)
			for _, v := range []r3.Vec{b.L, b.T, b.C} {
				assert.InDelta(t, 1., r3.Norm(v), 1.e-12)
			}
			assert.InDelta(t, 0., r3.Dot(b.L, b.T), 1.e-12)
			assert.InDelta(t, 0., r3.Dot(b.L, b.C), 1.e-12)
			assertVec(t, b.T, r3.Cross(b.C, b.L), 1.e-12)
		}
	}
}

func TestOrient(t *testing.T) {
	b := Basis{L: zHat, T: xHat, C: yHat}
	{ // Helix only: the fiber stays tangent, the normal is transmural
		f := Orient(b, 30, 0)
		s, c := math.Sincos(math.Pi / 6)
		assertVec(t, r3.Vec{Y: c, Z: s}, f.Fiber, 1.e-12)
		assertVec(t, r3.Vec{Y: -s, Z: c}, f.Sheet, 1.e-12)
		assertVec(t, xHat, f.Normal, 1.e-12)
	}
	{ // Helix and transverse angles
		var (
			sa, ca = math.Sincos(-50 * math.Pi / 180)
			sb, cb = math.Sincos(25 * math.Pi / 180)
			g      = r3.Vec{Y: -sa, Z: ca}
			f      = Orient(b, -50, 25)
		)
		assertVec(t, r3.Vec{Y: ca, Z: sa}, f.Fiber, 1.e-12)
		assertVec(t, r3.Sub(r3.Scale(cb, g), r3.Scale(sb, xHat)), f.Sheet, 1.e-12)
		assertVec(t, r3.Add(r3.Scale(sb, g), r3.Scale(cb, xHat)), f.Normal, 1.e-12)
	}
	{
		rng := rand.New(rand.NewSource(11))
		fb := Fallback{Long: zHat, Transmural: xHat, Tol: 1.e-10}
		for i := 0; i < 200; i++ {
			basis, _ := BuildFrame(randomVec(rng), randomVec(rng), fb)
			f := Orient(basis, 360*rng.Float64()-180, 360*rng.Float64()-180)
			assert.True(t, f.Orthonormality() < 1.e-10)
		}
	}
}

func TestAngles(t *testing.T) {
	a := Angles{AlphaEndo: 60, AlphaEpi: -60, BetaEndo: -20, BetaEpi: 40}
	alpha, beta := a.At(0)
	assert.Equal(t, 60., alpha)
	assert.Equal(t, -20., beta)
	alpha, beta = a.At(1)
	assert.Equal(t, -60., alpha)
	assert.Equal(t, 40., beta)
	alpha, beta = a.At(0.25)
	assert.InDelta(t, 30., alpha, 1.e-12)
	assert.InDelta(t, -5., beta, 1.e-12)

	constant := Angles{AlphaEndo: 25, AlphaEpi: 25, BetaEndo: -10, BetaEpi: -10}
	for _, depth := range []float64{0, 0.1, 0.5, 0.9, 1} {
		alpha, beta = constant.At(depth)
		assert.Equal(t, 25., alpha)
		assert.Equal(t, -10., beta)
	}

	// The wall surfaces get exactly the endocardial and epicardial rules
	fb := Fallback{Long: zHat, Transmural: xHat, Tol: 1.e-10}
	basis, _ := BuildFrame(zHat, xHat, fb)
	for _, tc := range []struct {
		depth       float64
		alpha, beta float64
	}{{0, a.AlphaEndo, a.BetaEndo}, {1, a.AlphaEpi, a.BetaEpi}} {
		f, kinds := SystemAt(Sample{T: tc.depth, GradAB: zHat, GradT: xHat}, Rule{LV: a}, fb, 1.e-3)
		assert.Empty(t, kinds)
		assert.Equal(t, Orient(basis, tc.alpha, tc.beta), f)
	}
}

func TestQuaternionFrames(t *testing.T) {
	frames := []Frame{
		{Fiber: xHat, Sheet: yHat, Normal: zHat},
		{Fiber: xHat, Sheet: r3.Vec{Y: -1}, Normal: r3.Vec{Z: -1}}, // Half turn about x
		{Fiber: r3.Vec{X: -1}, Sheet: yHat, Normal: r3.Vec{Z: -1}}, // Half turn about y
		{Fiber: r3.Vec{X: -1}, Sheet: r3.Vec{Y: -1}, Normal: zHat}, // Half turn about z
		Orient(Basis{L: zHat, T: xHat, C: yHat}, 70, -40),
	}
	for i, f := range frames {
		q := FrameToQuat(f)
		assert.InDelta(t, 1., quat.Abs(q), 1.e-12)
		back := QuatToFrame(q)
		assertVec(t, f.Fiber, back.Fiber, 1.e-12, "frame %d", i)
		assertVec(t, f.Sheet, back.Sheet, 1.e-12, "frame %d", i)
		assertVec(t, f.Normal, back.Normal, 1.e-12, "frame %d", i)
	}
}

func angleBetween(a, b r3.Vec) float64 {
	return math.Acos(math.Max(-1, math.Min(1, r3.Dot(r3.Unit(a), r3.Unit(b)))))
}

func TestSlerp(t *testing.T) {
	var (
		qa = FrameToQuat(Orient(Basis{L: zHat, T: xHat, C: yHat}, 10, 0))
		qb = FrameToQuat(Orient(Basis{L: zHat, T: xHat, C: yHat}, 80, 30))
	)
	// q and -q are the same rotation
	assert.InDelta(t, 1., math.Abs(qdot(qa, Slerp(qa, qb, 0))), 1.e-12)
	assert.InDelta(t, 1., math.Abs(qdot(qb, Slerp(qa, qb, 1))), 1.e-12)
	// The sign of an endpoint does not change the path
	mid := Slerp(qa, qb, 0.3)
	assert.InDelta(t, 0., quat.Abs(quat.Sub(mid, Slerp(qa, quat.Scale(-1, qb), 0.3))), 1.e-12)
	assert.InDelta(t, 1., quat.Abs(mid), 1.e-12)
}

func TestBislerp(t *testing.T) {
	var (
		lvBasis = Basis{L: zHat, T: xHat, C: yHat}
		// Seen from the other ventricle the wall points the other way
		rvBasis = Basis{L: zHat, T: r3.Vec{X: -1}, C: r3.Vec{Y: -1}}
		a       = Orient(lvBasis, 40, -65)
		b       = Orient(rvBasis, -50, 25)
	)
	{ // Identical frames
		assert.Equal(t, a, Bislerp(a, a, 0.4))
	}
	{ // End points reproduce the inputs, up to the sign of the fiber axis
		start := Bislerp(a, b, 0)
		assert.InDelta(t, 1., math.Abs(r3.Dot(start.Fiber, a.Fiber)), 1.e-9)
		end := Bislerp(a, b, 1)
		assertVec(t, b.Fiber, end.Fiber, 1.e-9)
		assertVec(t, b.Sheet, end.Sheet, 1.e-9)
	}
	{ // Continuity: the fiber turns at a bounded rate with no flips
		const n = 200
		prev := Bislerp(a, b, 0)
		for i := 1; i <= n; i++ {
			f := Bislerp(a, b, float64(i)/n)
			assert.True(t, f.Orthonormality() < 1.e-10)
			step := angleBetween(prev.Fiber, f.Fiber)
			assert.True(t, step <= 2*math.Pi/3/n+1.e-9, "step %d turned %g rad", i, step)
			prev = f
		}
	}
	{ // Frames differing by a half turn about the fiber blend without rotating
		flipped := Frame{Fiber: a.Fiber, Sheet: r3.Scale(-1, a.Sheet), Normal: r3.Scale(-1, a.Normal)}
		f := Bislerp(a, flipped, 0.5)
		require.True(t, f.Orthonormality() < 1.e-10)
		assertVec(t, flipped.Fiber, f.Fiber, 1.e-9)
	}
}

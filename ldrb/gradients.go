package ldrb

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/goldrb/laplace"
	"github.com/notargets/goldrb/mesh"
	"github.com/notargets/goldrb/utils"
)

// evaluation holds the points where frames are computed: element centroids
// for DG_0, vertices for CG_1
type evaluation struct {
	space  Space
	m      *mesh.Mesh
	geo    []mesh.TetGeometry
	nte    [][]int
	pd     int
	Pos    []r3.Vec
	Weight []float64 // Element volume, or the lumped volume at a vertex
}

func newEvaluation(m *mesh.Mesh, space Space, parallelDegree int) (ev *evaluation) {
	ev = &evaluation{space: space, m: m, geo: m.Geometry(), pd: parallelDegree}
	switch space {
	case DG0:
		ev.Pos = make([]r3.Vec, m.NumElements)
		ev.Weight = make([]float64, m.NumElements)
		for k, g := range ev.geo {
			ev.Pos[k], ev.Weight[k] = g.Centroid, g.Volume
		}
	case CG1:
		ev.nte = m.NodeToElements()
		ev.Pos = m.Vertices
		ev.Weight = make([]float64, m.NumVertices)
		for k, verts := range m.EtoV {
			for _, v := range verts {
				ev.Weight[v] += ev.geo[k].Volume / 4
			}
		}
	}
	return
}

// Len is the number of evaluation points
func (ev *evaluation) Len() int { return len(ev.Pos) }

// Values samples f at the evaluation points
func (ev *evaluation) Values(f laplace.Field) (vals []float64) {
	if ev.space == CG1 {
		vals = make([]float64, len(f.Values))
		copy(vals, f.Values)
		return
	}
	vals = make([]float64, ev.m.NumElements)
	for k, verts := range ev.m.EtoV {
		for _, v := range verts {
			vals[k] += f.Values[v] / 4
		}
	}
	return
}

// Gradients returns the gradient of f at the evaluation points. Element
// gradients are constant; vertex gradients are the volume weighted average
// of the gradients of the surrounding elements.
func (ev *evaluation) Gradients(f laplace.Field) (grads []r3.Vec, err error) {
	elemGrad := make([]r3.Vec, ev.m.NumElements)
	err = utils.NewPartitionMap(ev.pd, ev.m.NumElements).ForEachBucket(func(bn, kMin, kMax int) error {
		for k := kMin; k < kMax; k++ {
			g := ev.geo[k]
			if g.Degenerate() {
				continue
			}
			for i, v := range ev.m.EtoV[k] {
				elemGrad[k] = r3.Add(elemGrad[k], r3.Scale(f.Values[v], g.Grad[i]))
			}
		}
		return nil
	})
	if err != nil || ev.space == DG0 {
		grads = elemGrad
		return
	}

	grads = make([]r3.Vec, ev.m.NumVertices)
	err = utils.NewPartitionMap(ev.pd, ev.m.NumVertices).ForEachBucket(func(bn, vMin, vMax int) error {
		for v := vMin; v < vMax; v++ {
			var (
				sum r3.Vec
				vol float64
			)
			for _, k := range ev.nte[v] {
				sum = r3.Add(sum, r3.Scale(ev.geo[k].Volume, elemGrad[k]))
				vol += ev.geo[k].Volume
			}
			if vol > 0 {
				grads[v] = r3.Scale(1/vol, sum)
			}
		}
		return nil
	})
	return
}

// regionAxes are the per-region directions the fallback policy draws on
type regionAxes struct {
	Long       r3.Vec // Unit long axis
	Centroid   r3.Vec
	Transmural r3.Vec // Mean transmural direction, zero when undefined
}

type fallbackPolicy struct {
	axes  map[mesh.Region]regionAxes
	scale float64
	tol   float64
}

// newFallbackPolicy derives the region axes from the weighted mean of the
// unit gradients over the points where they are not degenerate. A region
// with no usable apicobasal gradient takes the mesh-wide long axis, or z.
func newFallbackPolicy(ev *evaluation, regions []mesh.Region, gradAB, gradT []r3.Vec, tol float64) (fp *fallbackPolicy) {
	type accum struct {
		long, transmural, centroid r3.Vec
		weight                     float64
		count                      int
	}
	var (
		acc    = make(map[mesh.Region]*accum)
		global accum
	)
	for i, r := range regions {
		a := acc[r]
		if a == nil {
			a = &accum{}
			acc[r] = a
		}
		w := ev.Weight[i]
		a.centroid = r3.Add(a.centroid, r3.Scale(w, ev.Pos[i]))
		a.weight += w
		a.count++
		if usable(gradAB[i], tol) {
			u := r3.Scale(w, r3.Unit(gradAB[i]))
			a.long, global.long = r3.Add(a.long, u), r3.Add(global.long, u)
		}
		if usable(gradT[i], tol) {
			a.transmural = r3.Add(a.transmural, r3.Scale(w, r3.Unit(gradT[i])))
		}
	}

	lo, hi := ev.m.BoundingBox()
	fp = &fallbackPolicy{
		axes:  make(map[mesh.Region]regionAxes),
		scale: r3.Norm(r3.Sub(hi, lo)),
		tol:   tol,
	}
	globalLong := r3.Vec{Z: 1}
	if r3.Norm(global.long) > 1.e-12 {
		globalLong = r3.Unit(global.long)
	}
	for r, a := range acc {
		ax := regionAxes{Long: globalLong}
		if r3.Norm(a.long) > 1.e-12 {
			ax.Long = r3.Unit(a.long)
		}
		if r3.Norm(a.transmural) > 1.e-12 {
			ax.Transmural = r3.Unit(a.transmural)
		}
		if a.weight > 0 {
			ax.Centroid = r3.Scale(1/a.weight, a.centroid)
		} else {
			ax.Centroid = meanPosition(ev.Pos, regions, r)
		}
		fp.axes[r] = ax
	}
	return
}

func meanPosition(pos []r3.Vec, regions []mesh.Region, r mesh.Region) (c r3.Vec) {
	var n int
	for i, ri := range regions {
		if ri == r {
			c = r3.Add(c, pos[i])
			n++
		}
	}
	if n != 0 {
		c = r3.Scale(1/float64(n), c)
	}
	return
}

// At returns the fallback for a point: the transmural substitute is the
// radial direction from the region centroid with its long axis component
// removed, or the region's mean transmural direction on the axis itself
func (fp *fallbackPolicy) At(r mesh.Region, pos r3.Vec) (fb Fallback) {
	ax := fp.axes[r]
	fb.Long, fb.Tol = ax.Long, fp.tol
	radial := reject(r3.Sub(pos, ax.Centroid), ax.Long)
	if n := r3.Norm(radial); n > 1.e-9*fp.scale && !math.IsNaN(n) {
		fb.Transmural = r3.Scale(1/n, radial)
	} else {
		fb.Transmural = ax.Transmural
	}
	return
}

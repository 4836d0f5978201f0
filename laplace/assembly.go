package laplace

import (
	"github.com/notargets/goldrb/mesh"
	"github.com/notargets/goldrb/utils"
)

// system is the linear system restricted to the free (non-Dirichlet) nodes
type system struct {
	K       utils.CSR
	RHS     []float64
	FreeIdx []int // Mesh vertex -> free unknown, -1 for Dirichlet or unused
	Free    []int // Free unknown -> mesh vertex
}

// assemble builds the P1 stiffness system for -div(grad u) = source with the
// Dirichlet values in fixed eliminated onto the right hand side. Natural
// (zero flux) conditions hold everywhere else.
func assemble(m *mesh.Mesh, geo []mesh.TetGeometry, fixed map[int]float64,
	used []bool, source float64) (sys system) {
	sys.FreeIdx = make([]int, m.NumVertices)
	for v := range sys.FreeIdx {
		if _, isFixed := fixed[v]; isFixed || !used[v] {
			sys.FreeIdx[v] = -1
			continue
		}
		sys.FreeIdx[v] = len(sys.Free)
		sys.Free = append(sys.Free, v)
	}

	nFree := len(sys.Free)
	if nFree == 0 {
		return
	}
	K := utils.NewDOK(nFree, nFree)
	sys.RHS = make([]float64, nFree)
	for k, verts := range m.EtoV {
		g := geo[k]
		if g.Degenerate() {
			continue
		}
		for i := 0; i < 4; i++ {
			fi := sys.FreeIdx[verts[i]]
			if fi < 0 {
				continue
			}
			sys.RHS[fi] += source * g.Volume / 4
			for j := 0; j < 4; j++ {
				kij := g.Volume * (g.Grad[i].X*g.Grad[j].X + g.Grad[i].Y*g.Grad[j].Y + g.Grad[i].Z*g.Grad[j].Z)
				if fj := sys.FreeIdx[verts[j]]; fj >= 0 {
					K.AddTo(fi, fj, kij)
				} else {
					sys.RHS[fi] -= kij * fixed[verts[j]]
				}
			}
		}
	}
	K.SetReadOnly("stiffness")
	sys.K = K.ToCSR()
	return
}

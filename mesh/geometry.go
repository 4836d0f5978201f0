package mesh

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// TetGeometry holds the P1 geometric factors of one tetrahedron
type TetGeometry struct {
	Volume   float64 // Unsigned volume
	Centroid r3.Vec
	Grad     [4]r3.Vec // Gradients of the barycentric (P1 shape) functions
}

// Degenerate reports whether the element has (numerically) zero volume
func (g TetGeometry) Degenerate() bool {
	return g.Volume == 0 || math.IsNaN(g.Volume)
}

// TetGeometry computes volume, centroid and shape function gradients of
// element k. For J = [x1-x0, x2-x0, x3-x0] the rows of J^-1 are the
// gradients of the last three barycentric coordinates.
func (m *Mesh) TetGeometry(k int) (g TetGeometry) {
	var (
		v          = m.EtoV[k]
		x0, x1     = m.Vertices[v[0]], m.Vertices[v[1]]
		x2, x3     = m.Vertices[v[2]], m.Vertices[v[3]]
		a, b, c    = r3.Sub(x1, x0), r3.Sub(x2, x0), r3.Sub(x3, x0)
		bc, ca, ab = r3.Cross(b, c), r3.Cross(c, a), r3.Cross(a, b)
		det        = r3.Dot(a, bc)
	)
	g.Centroid = r3.Scale(0.25, r3.Add(r3.Add(x0, x1), r3.Add(x2, x3)))
	scale := math.Max(r3.Norm(a), math.Max(r3.Norm(b), r3.Norm(c)))
	if math.Abs(det) <= 1.e-14*scale*scale*scale {
		return
	}
	g.Volume = math.Abs(det) / 6
	g.Grad[1] = r3.Scale(1/det, bc)
	g.Grad[2] = r3.Scale(1/det, ca)
	g.Grad[3] = r3.Scale(1/det, ab)
	g.Grad[0] = r3.Scale(-1, r3.Add(r3.Add(g.Grad[1], g.Grad[2]), g.Grad[3]))
	return
}

// Geometry computes TetGeometry for every element
func (m *Mesh) Geometry() (geo []TetGeometry) {
	geo = make([]TetGeometry, m.NumElements)
	for k := range geo {
		geo[k] = m.TetGeometry(k)
	}
	return
}

// NodeToElements returns, for every vertex, the elements that contain it
func (m *Mesh) NodeToElements() (nte [][]int) {
	nte = make([][]int, m.NumVertices)
	for k, verts := range m.EtoV {
		for _, v := range verts {
			nte[v] = append(nte[v], k)
		}
	}
	return
}

// ConnectedComponents labels vertices by the connected component of the
// element graph they belong to. Vertices referenced by no element get -1.
// The number of components is returned alongside.
func (m *Mesh) ConnectedComponents() (label []int, count int) {
	parent := make([]int, m.NumVertices)
	for i := range parent {
		parent[i] = i
	}
	var find func(i int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	used := make([]bool, m.NumVertices)
	for _, verts := range m.EtoV {
		r0 := find(verts[0])
		used[verts[0]] = true
		for _, v := range verts[1:] {
			used[v] = true
			if r := find(v); r != r0 {
				parent[r] = r0
			}
		}
	}
	label = make([]int, m.NumVertices)
	ids := make(map[int]int)
	for i := range label {
		if !used[i] {
			label[i] = -1
			continue
		}
		root := find(i)
		id, ok := ids[root]
		if !ok {
			id = count
			ids[root] = id
			count++
		}
		label[i] = id
	}
	return
}

// BoundingBox returns the minimum and maximum vertex coordinates
func (m *Mesh) BoundingBox() (min, max r3.Vec) {
	min = r3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	max = r3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for _, x := range m.Vertices {
		min = r3.Vec{X: math.Min(min.X, x.X), Y: math.Min(min.Y, x.Y), Z: math.Min(min.Z, x.Z)}
		max = r3.Vec{X: math.Max(max.X, x.X), Y: math.Max(max.Y, x.Y), Z: math.Max(max.Z, x.Z)}
	}
	return
}

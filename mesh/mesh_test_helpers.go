package mesh

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// BoxSide names the six faces of an axis aligned box
type BoxSide int

const (
	XMin BoxSide = iota
	XMax
	YMin
	YMax
	ZMin
	ZMax
)

// MarkerTags are the physical tags written for each marker, matching
// DefaultTagMap with apex = 50
var MarkerTags = map[Marker]int{Base: 10, EndoRV: 20, EndoLV: 30, Epi: 40, Apex: 50}

// NewBoxMesh builds a structured mesh of the box [lo, hi] with nx*ny*nz hex
// cells, each split into six tetrahedra around its main diagonal. Boundary
// facets on a side get sides[side] (unlisted sides stay unmarked). When
// region is non-nil it tags every cell from its centroid.
func NewBoxMesh(nx, ny, nz int, lo, hi r3.Vec, sides map[BoxSide]Marker,
	region func(centroid r3.Vec) Region) (m *Mesh) {
	m = NewMesh()
	var (
		dx  = (hi.X - lo.X) / float64(nx)
		dy  = (hi.Y - lo.Y) / float64(ny)
		dz  = (hi.Z - lo.Z) / float64(nz)
		vid = func(i, j, k int) int { return i + (nx+1)*(j+(ny+1)*k) }
	)
	for k := 0; k <= nz; k++ {
		for j := 0; j <= ny; j++ {
			for i := 0; i <= nx; i++ {
				m.Vertices = append(m.Vertices, r3.Vec{
					X: lo.X + float64(i)*dx,
					Y: lo.Y + float64(j)*dy,
					Z: lo.Z + float64(k)*dz,
				})
			}
		}
	}
	m.NumVertices = len(m.Vertices)

	// Kuhn subdivision: one tet per ordering of the axes, walking from the
	// cell origin to the opposite corner
	perms := [6][3]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}
	for k := 0; k < nz; k++ {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				for _, p := range perms {
					var (
						c     = [3]int{i, j, k}
						verts [4]int
					)
					verts[0] = vid(c[0], c[1], c[2])
					for s, axis := range p {
						c[axis]++
						verts[s+1] = vid(c[0], c[1], c[2])
					}
					m.AddElement(verts, RegionNone, 0)
				}
			}
		}
	}
	m.BuildConnectivity()

	if region != nil {
		for e := range m.EtoV {
			r := region(m.TetGeometry(e).Centroid)
			m.Regions[e] = r
			m.ElementTags[e] = int(r)
		}
	}

	tol := 1.e-9 * math.Max(hi.X-lo.X, math.Max(hi.Y-lo.Y, hi.Z-lo.Z))
	on := func(f Facet, coord func(r3.Vec) float64, val float64) bool {
		for _, v := range f.Vertices {
			if math.Abs(coord(m.Vertices[v])-val) > tol {
				return false
			}
		}
		return true
	}
	var (
		getX = func(v r3.Vec) float64 { return v.X }
		getY = func(v r3.Vec) float64 { return v.Y }
		getZ = func(v r3.Vec) float64 { return v.Z }
	)
	for i, f := range m.Facets {
		var side BoxSide
		switch {
		case on(f, getX, lo.X):
			side = XMin
		case on(f, getX, hi.X):
			side = XMax
		case on(f, getY, lo.Y):
			side = YMin
		case on(f, getY, hi.Y):
			side = YMax
		case on(f, getZ, lo.Z):
			side = ZMin
		default:
			side = ZMax
		}
		if mk, ok := sides[side]; ok {
			m.MarkSurface(f.Vertices, mk, MarkerTags[mk])
			m.Facets[i].Marker = mk
			m.Facets[i].Tag = MarkerTags[mk]
		}
	}
	return
}

// Merge concatenates meshes that share no vertices into a single mesh
func Merge(meshes ...*Mesh) (m *Mesh) {
	m = NewMesh()
	for _, part := range meshes {
		offset := len(m.Vertices)
		m.Vertices = append(m.Vertices, part.Vertices...)
		for e, v := range part.EtoV {
			m.AddElement([4]int{v[0] + offset, v[1] + offset, v[2] + offset, v[3] + offset},
				part.Regions[e], part.ElementTags[e])
		}
		for key, mk := range part.SurfaceMarkers {
			m.MarkSurface([3]int{key[0] + offset, key[1] + offset, key[2] + offset},
				mk, part.SurfaceTags[key])
		}
		for tag, name := range part.BoundaryTags {
			m.BoundaryTags[tag] = name
		}
	}
	m.NumVertices = len(m.Vertices)
	m.BuildConnectivity()
	return
}

package mesh

import (
	"fmt"
	"io"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
)

// Marker identifies the anatomical surface a boundary facet belongs to
type Marker int

const (
	MarkerNone Marker = iota
	EndoLV
	EndoRV
	Epi
	Base
	Apex
)

var markerStrings = [...]string{"None", "EndoLV", "EndoRV", "Epi", "Base", "Apex"}

func (m Marker) String() string {
	if m < 0 || int(m) >= len(markerStrings) {
		return fmt.Sprintf("Marker(%d)", int(m))
	}
	return markerStrings[m]
}

// Region tags a cell as left ventricle, right ventricle or septum
type Region int

const (
	RegionNone Region = iota
	LV
	RV
	Septum
)

// Regions lists the tagged regions in a fixed order
var Regions = []Region{LV, RV, Septum}

var regionStrings = [...]string{"None", "LV", "RV", "Septum"}

func (r Region) String() string {
	if r < 0 || int(r) >= len(regionStrings) {
		return fmt.Sprintf("Region(%d)", int(r))
	}
	return regionStrings[r]
}

// Facet is a boundary triangle of the volume mesh
type Facet struct {
	Vertices [3]int // Sorted vertex indices
	Element  int    // Owning element
	LocalID  int    // Local face ID within element
	Marker   Marker
	Tag      int // Physical tag from the mesh file, 0 when unmarked
}

// Mesh is a tetrahedral mesh of the ventricular myocardium. It is read-only
// once BuildConnectivity has run.
type Mesh struct {
	// Geometry
	Vertices []r3.Vec // Vertex coordinates [nvertices]

	// Element data
	EtoV        [][4]int // Element to vertex connectivity [nelems][4]
	Regions     []Region // Region tag for each element
	ElementTags []int    // Physical tag for each element

	// Connectivity (built during initialization)
	EToE [][4]int // Element to element connectivity, -1 on the boundary

	// Boundary data
	Facets       []Facet
	BoundaryTags map[int]string // Physical names by tag

	// Surface triangles read from file, keyed by sorted vertices, used to
	// attach markers to boundary facets
	SurfaceMarkers map[[3]int]Marker
	SurfaceTags    map[[3]int]int

	// Mesh statistics
	NumElements int
	NumVertices int
}

// NewMesh creates an empty mesh
func NewMesh() *Mesh {
	return &Mesh{
		BoundaryTags:   make(map[int]string),
		SurfaceMarkers: make(map[[3]int]Marker),
		SurfaceTags:    make(map[[3]int]int),
	}
}

// AddElement appends a tetrahedron
func (m *Mesh) AddElement(verts [4]int, region Region, tag int) {
	m.EtoV = append(m.EtoV, verts)
	m.Regions = append(m.Regions, region)
	m.ElementTags = append(m.ElementTags, tag)
	m.NumElements = len(m.EtoV)
}

// MarkSurface records a marked surface triangle. Markers are attached to the
// boundary facets when BuildConnectivity runs.
func (m *Mesh) MarkSurface(verts [3]int, marker Marker, tag int) {
	key := SortedKey(verts)
	m.SurfaceMarkers[key] = marker
	m.SurfaceTags[key] = tag
}

// SortedKey returns the face vertices in ascending order
func SortedKey(verts [3]int) [3]int {
	s := verts[:]
	sorted := make([]int, 3)
	copy(sorted, s)
	sort.Ints(sorted)
	return [3]int{sorted[0], sorted[1], sorted[2]}
}

// GetTetFaces returns the four faces of a tetrahedron in local face order
func GetTetFaces(v [4]int) [4][3]int {
	return [4][3]int{
		{v[0], v[2], v[1]}, // Face 0
		{v[0], v[1], v[3]}, // Face 1
		{v[1], v[2], v[3]}, // Face 2
		{v[0], v[3], v[2]}, // Face 3
	}
}

// BuildConnectivity builds element-to-element connectivity and collects the
// boundary facets with their markers
func (m *Mesh) BuildConnectivity() {
	type owner struct{ elem, local int }
	var (
		faceOwner = make(map[[3]int]owner, 2*m.NumElements)
	)
	m.NumElements = len(m.EtoV)
	m.NumVertices = len(m.Vertices)
	m.EToE = make([][4]int, m.NumElements)
	for k := range m.EToE {
		m.EToE[k] = [4]int{-1, -1, -1, -1}
	}

	for k, verts := range m.EtoV {
		for local, fv := range GetTetFaces(verts) {
			key := SortedKey(fv)
			if o, exists := faceOwner[key]; exists {
				m.EToE[k][local] = o.elem
				m.EToE[o.elem][o.local] = k
				delete(faceOwner, key)
				continue
			}
			faceOwner[key] = owner{k, local}
		}
	}

	// Whatever is left in faceOwner has a single owner: the boundary
	m.Facets = m.Facets[:0]
	for k, verts := range m.EtoV {
		for local, fv := range GetTetFaces(verts) {
			key := SortedKey(fv)
			if o, ok := faceOwner[key]; !ok || o.elem != k || o.local != local {
				continue
			}
			m.Facets = append(m.Facets, Facet{
				Vertices: key,
				Element:  k,
				LocalID:  local,
				Marker:   m.SurfaceMarkers[key],
				Tag:      m.SurfaceTags[key],
			})
		}
	}
}

// HasMarker reports whether any boundary facet carries the marker
func (m *Mesh) HasMarker(marker Marker) bool {
	for _, f := range m.Facets {
		if f.Marker == marker {
			return true
		}
	}
	return false
}

// UnmarkedFacets returns the number of boundary facets without a marker
func (m *Mesh) UnmarkedFacets() (n int) {
	for _, f := range m.Facets {
		if f.Marker == MarkerNone {
			n++
		}
	}
	return
}

// MarkedNodes returns the sorted vertex indices touching facets with the marker
func (m *Mesh) MarkedNodes(marker Marker) (nodes []int) {
	seen := make(map[int]bool)
	for _, f := range m.Facets {
		if f.Marker != marker {
			continue
		}
		for _, v := range f.Vertices {
			if !seen[v] {
				seen[v] = true
				nodes = append(nodes, v)
			}
		}
	}
	sort.Ints(nodes)
	return
}

// PresentRegions returns the tagged regions that occur in the mesh
func (m *Mesh) PresentRegions() (present []Region) {
	var found [4]bool
	for _, r := range m.Regions {
		found[r] = true
	}
	for _, r := range Regions {
		if found[r] {
			present = append(present, r)
		}
	}
	return
}

// PrintStatistics writes mesh statistics
func (m *Mesh) PrintStatistics(w io.Writer) {
	fmt.Fprintf(w, "Mesh Statistics:\n")
	fmt.Fprintf(w, "  Vertices: %d\n", m.NumVertices)
	fmt.Fprintf(w, "  Elements: %d\n", m.NumElements)
	fmt.Fprintf(w, "  Boundary facets: %d\n", len(m.Facets))

	markerCounts := make(map[Marker]int)
	for _, f := range m.Facets {
		markerCounts[f.Marker]++
	}
	fmt.Fprintf(w, "  Boundary markers:\n")
	for mk := MarkerNone; mk <= Apex; mk++ {
		if markerCounts[mk] != 0 {
			fmt.Fprintf(w, "    %s: %d\n", mk, markerCounts[mk])
		}
	}

	regionCounts := make(map[Region]int)
	for _, r := range m.Regions {
		regionCounts[r]++
	}
	fmt.Fprintf(w, "  Regions:\n")
	for r := RegionNone; r <= Septum; r++ {
		if regionCounts[r] != 0 {
			fmt.Fprintf(w, "    %s: %d\n", r, regionCounts[r])
		}
	}
}

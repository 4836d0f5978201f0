package mesh

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func unitBox(n int, sides map[BoxSide]Marker) *Mesh {
	return NewBoxMesh(n, n, n, r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1}, sides, nil)
}

// TestBuildConnectivity_TwoTets checks reciprocal neighbours through the
// single shared face
func TestBuildConnectivity_TwoTets(t *testing.T) {
	mesh := NewMesh()
	mesh.Vertices = []r3.Vec{
		{X: 0, Y: 0, Z: 0}, // 0
		{X: 1, Y: 0, Z: 0}, // 1
		{X: 0, Y: 1, Z: 0}, // 2
		{X: 0, Y: 0, Z: 1}, // 3
		{X: 1, Y: 1, Z: 1}, // 4
	}
	mesh.AddElement([4]int{0, 1, 2, 3}, LV, 1)
	mesh.AddElement([4]int{1, 2, 3, 4}, RV, 2) // shares face {1,2,3}
	mesh.MarkSurface([3]int{2, 1, 0}, Base, 10)
	mesh.BuildConnectivity()

	require.Len(t, mesh.EToE, 2)
	shared := 0
	for f := 0; f < 4; f++ {
		if mesh.EToE[0][f] == 1 {
			shared++
		}
		if mesh.EToE[1][f] == 0 {
			shared++
		}
	}
	assert.Equal(t, 2, shared)
	// Two tets sharing one face have 6 boundary faces
	assert.Len(t, mesh.Facets, 6)
	assert.True(t, mesh.HasMarker(Base))
	assert.False(t, mesh.HasMarker(Epi))
	assert.Equal(t, 5, mesh.UnmarkedFacets())
	assert.Equal(t, []int{0, 1, 2}, mesh.MarkedNodes(Base))
	assert.Equal(t, []Region{LV, RV}, mesh.PresentRegions())
}

func TestBoxMesh_Counts(t *testing.T) {
	var (
		nx, ny, nz = 3, 2, 4
		sides      = map[BoxSide]Marker{XMin: EndoLV, XMax: Epi, ZMax: Base}
	)
	m := NewBoxMesh(nx, ny, nz, r3.Vec{}, r3.Vec{X: 1, Y: 2, Z: 3}, sides, nil)
	assert.Equal(t, (nx+1)*(ny+1)*(nz+1), m.NumVertices)
	assert.Equal(t, 6*nx*ny*nz, m.NumElements)
	assert.Equal(t, 4*(nx*ny+ny*nz+nx*nz), len(m.Facets))

	counts := make(map[Marker]int)
	for _, f := range m.Facets {
		counts[f.Marker]++
	}
	want := map[Marker]int{
		EndoLV:     2 * ny * nz,
		Epi:        2 * ny * nz,
		Base:       2 * nx * ny,
		MarkerNone: 2*nx*ny + 4*nx*nz,
	}
	if diff := cmp.Diff(want, counts); diff != "" {
		t.Errorf("marker counts mismatch (-want +got):\n%s", diff)
	}

	// Every interior face is seen from both sides
	for k := range m.EToE {
		for f, nbr := range m.EToE[k] {
			if nbr < 0 {
				continue
			}
			found := false
			for _, back := range m.EToE[nbr] {
				if back == k {
					found = true
				}
			}
			assert.True(t, found, "element %d face %d neighbour %d not reciprocal", k, f, nbr)
		}
	}
}

func TestTetGeometry(t *testing.T) {
	m := NewBoxMesh(2, 3, 2, r3.Vec{X: -1}, r3.Vec{X: 1, Y: 1.5, Z: 0.5}, nil, nil)
	var total float64
	linear := func(x r3.Vec) float64 { return 2*x.X - 3*x.Y + 0.5*x.Z + 7 }
	for k := 0; k < m.NumElements; k++ {
		g := m.TetGeometry(k)
		require.False(t, g.Degenerate())
		total += g.Volume
		// P1 gradients reproduce linear functions exactly
		var grad r3.Vec
		for i, v := range m.EtoV[k] {
			grad = r3.Add(grad, r3.Scale(linear(m.Vertices[v]), g.Grad[i]))
		}
		assert.InDelta(t, 2, grad.X, 1.e-12)
		assert.InDelta(t, -3, grad.Y, 1.e-12)
		assert.InDelta(t, 0.5, grad.Z, 1.e-12)
	}
	assert.InDelta(t, 2*1.5*0.5, total, 1.e-12)

	flat := NewMesh()
	flat.Vertices = []r3.Vec{{}, {X: 1}, {Y: 1}, {X: 1, Y: 1}}
	flat.AddElement([4]int{0, 1, 2, 3}, RegionNone, 0)
	flat.BuildConnectivity()
	assert.True(t, flat.TetGeometry(0).Degenerate())
}

func TestConnectedComponents(t *testing.T) {
	a := unitBox(2, map[BoxSide]Marker{XMin: EndoLV})
	b := NewBoxMesh(1, 1, 1, r3.Vec{X: 5}, r3.Vec{X: 6, Y: 1, Z: 1}, nil, nil)
	m := Merge(a, b)
	label, count := m.ConnectedComponents()
	assert.Equal(t, 2, count)
	for v := 0; v < a.NumVertices; v++ {
		assert.Equal(t, 0, label[v])
	}
	for v := a.NumVertices; v < m.NumVertices; v++ {
		assert.Equal(t, 1, label[v])
	}
	// Markers survive the merge
	assert.Equal(t, a.MarkedNodes(EndoLV), m.MarkedNodes(EndoLV))
	assert.Equal(t, a.NumElements+b.NumElements, m.NumElements)

	nte := m.NodeToElements()
	for v, elems := range nte {
		for _, k := range elems {
			assert.Contains(t, m.EtoV[k][:], v)
		}
	}
}

func TestGmsh_RoundTrip(t *testing.T) {
	sides := map[BoxSide]Marker{XMin: EndoLV, XMax: Epi, ZMax: Base, YMin: EndoRV}
	m := unitBox(2, sides)
	var buf bytes.Buffer
	require.NoError(t, m.WriteGmsh(&buf))

	back, err := ReadGmshFrom(&buf, DefaultTagMap())
	require.NoError(t, err)
	assert.Equal(t, m.NumVertices, back.NumVertices)
	assert.Equal(t, m.NumElements, back.NumElements)
	assert.Equal(t, len(m.Facets), len(back.Facets))
	for _, mk := range []Marker{EndoLV, EndoRV, Epi, Base} {
		assert.Equal(t, m.MarkedNodes(mk), back.MarkedNodes(mk), mk.String())
	}
	for i := range m.Vertices {
		assert.InDelta(t, 0, r3.Norm(r3.Sub(m.Vertices[i], back.Vertices[i])), 1.e-15)
	}
}

func TestGmsh_PhysicalNames(t *testing.T) {
	msh := `$MeshFormat
2.2 0 8
$EndMeshFormat
$PhysicalNames
3
2 7 "apex"
2 8 "lv"
3 3 "septum"
$EndPhysicalNames
$Nodes
5
1 0 0 0
2 1 0 0
3 0 1 0
4 0 0 1
5 1 1 1
$EndNodes
$Elements
5
1 15 2 0 1 1
2 2 2 7 1 1 2 3
3 2 2 8 1 2 3 5
4 4 2 3 1 1 2 3 4
5 4 2 99 1 2 3 4 5
$EndElements
$NodeData
1
"ignored"
$EndNodeData
`
	m, err := ReadGmshFrom(strings.NewReader(msh), TagMap{Regions: map[int]Region{99: RV}})
	require.NoError(t, err)
	assert.Equal(t, 2, m.NumElements)
	assert.Equal(t, []Region{Septum, RV}, m.Regions)
	assert.Equal(t, []int{3, 99}, m.ElementTags)
	assert.Equal(t, []int{0, 1, 2}, m.MarkedNodes(Apex))
	assert.Equal(t, []int{1, 2, 4}, m.MarkedNodes(EndoLV))
	assert.Equal(t, "septum", m.BoundaryTags[3])

	_, err = ReadGmshFrom(strings.NewReader("$MeshFormat\n4.1 0 8\n$EndMeshFormat\n"), DefaultTagMap())
	assert.Error(t, err)
	_, err = ReadGmshFrom(strings.NewReader("$MeshFormat\n2.2 0 8\n$EndMeshFormat\n"), DefaultTagMap())
	assert.Error(t, err)
}

func TestWriteGmshVectorData(t *testing.T) {
	m := unitBox(1, nil)
	vecs := make([]r3.Vec, m.NumElements)
	for i := range vecs {
		vecs[i] = r3.Vec{X: 1}
	}
	var buf bytes.Buffer
	require.NoError(t, m.WriteGmshVectorData(&buf, "fiber", vecs, true))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "$ElementData\n"))
	assert.Contains(t, out, "\"fiber\"")
	assert.Equal(t, m.NumElements+10, strings.Count(out, "\n"))

	assert.Error(t, m.WriteGmshVectorData(&buf, "fiber", vecs, false))

	buf.Reset()
	require.NoError(t, m.WriteGmshScalarData(&buf, "epi", make([]float64, m.NumVertices)))
	assert.Equal(t, m.NumVertices+10, strings.Count(buf.String(), "\n"))
	assert.Error(t, m.WriteGmshScalarData(&buf, "epi", nil))

	var stats bytes.Buffer
	m.PrintStatistics(&stats)
	assert.Contains(t, stats.String(), "Elements: 6")
	assert.False(t, math.IsNaN(m.TetGeometry(0).Volume))
}

func TestLabelStrings(t *testing.T) {
	assert.Equal(t, "EndoRV", EndoRV.String())
	assert.Equal(t, "Apex", Apex.String())
	assert.Equal(t, "Septum", Septum.String())
	assert.Equal(t, "None", RegionNone.String())
	// Values outside the enumeration do not panic
	assert.Equal(t, "Marker(17)", Marker(17).String())
	assert.Equal(t, "Marker(-1)", Marker(-1).String())
	assert.Equal(t, "Region(9)", Region(9).String())
}

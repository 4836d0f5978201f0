package mesh

import (
	"bufio"
	"fmt"
	"io"

	"gonum.org/v1/gonum/spatial/r3"
)

// WriteGmsh writes the mesh in Gmsh 2.2 ASCII format. Tetrahedra are numbered
// 1..NumElements so that element data blocks can refer to them directly,
// boundary facets follow with their physical tags.
func (m *Mesh) WriteGmsh(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "$MeshFormat\n2.2 0 8\n$EndMeshFormat\n")

	fmt.Fprintf(bw, "$Nodes\n%d\n", m.NumVertices)
	for i, x := range m.Vertices {
		fmt.Fprintf(bw, "%d %.16g %.16g %.16g\n", i+1, x.X, x.Y, x.Z)
	}
	fmt.Fprintf(bw, "$EndNodes\n")

	fmt.Fprintf(bw, "$Elements\n%d\n", m.NumElements+len(m.Facets))
	for k, v := range m.EtoV {
		tag := m.ElementTags[k]
		fmt.Fprintf(bw, "%d %d 2 %d %d %d %d %d %d\n", k+1, gmshTet, tag, tag,
			v[0]+1, v[1]+1, v[2]+1, v[3]+1)
	}
	for i, f := range m.Facets {
		fmt.Fprintf(bw, "%d %d 2 %d %d %d %d %d\n", m.NumElements+i+1, gmshTriangle,
			f.Tag, f.Tag, f.Vertices[0]+1, f.Vertices[1]+1, f.Vertices[2]+1)
	}
	fmt.Fprintf(bw, "$EndElements\n")
	return bw.Flush()
}

// WriteGmshVectorData appends a three component data view named name. When
// perElement is true the vectors are written as $ElementData indexed by
// tetrahedron, otherwise as $NodeData indexed by vertex.
func (m *Mesh) WriteGmshVectorData(w io.Writer, name string, vectors []r3.Vec, perElement bool) error {
	var (
		section = "NodeData"
		want    = m.NumVertices
	)
	if perElement {
		section, want = "ElementData", m.NumElements
	}
	if len(vectors) != want {
		return fmt.Errorf("%s %q: expected %d vectors, got %d", section, name, want, len(vectors))
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "$%s\n1\n\"%s\"\n1\n0.0\n3\n0\n3\n%d\n", section, name, len(vectors))
	for i, v := range vectors {
		fmt.Fprintf(bw, "%d %.16g %.16g %.16g\n", i+1, v.X, v.Y, v.Z)
	}
	fmt.Fprintf(bw, "$End%s\n", section)
	return bw.Flush()
}

// WriteGmshScalarData appends a per vertex scalar view named name
func (m *Mesh) WriteGmshScalarData(w io.Writer, name string, values []float64) error {
	if len(values) != m.NumVertices {
		return fmt.Errorf("NodeData %q: expected %d values, got %d", name, m.NumVertices, len(values))
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "$NodeData\n1\n\"%s\"\n1\n0.0\n3\n0\n1\n%d\n", name, len(values))
	for i, v := range values {
		fmt.Fprintf(bw, "%d %.16g\n", i+1, v)
	}
	fmt.Fprintf(bw, "$EndNodeData\n")
	return bw.Flush()
}

package mesh

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// Gmsh 2.2 element types used by the reader
const (
	gmshTriangle = 2
	gmshTet      = 4
)

// TagMap translates physical tags of a mesh file into boundary markers and
// cell regions
type TagMap struct {
	Markers map[int]Marker
	Regions map[int]Region
}

// DefaultTagMap returns the conventional boundary tags
// base = 10, rv = 20, lv = 30, epi = 40. Cells are left untagged.
func DefaultTagMap() TagMap {
	return TagMap{
		Markers: map[int]Marker{10: Base, 20: EndoRV, 30: EndoLV, 40: Epi},
		Regions: map[int]Region{},
	}
}

var (
	markerNames = map[string]Marker{
		"base": Base, "rv": EndoRV, "lv": EndoLV, "epi": Epi, "apex": Apex,
		"endo_lv": EndoLV, "endo_rv": EndoRV,
	}
	regionNames = map[string]Region{
		"lv": LV, "rv": RV, "septum": Septum,
	}
)

// ParseMarker resolves a conventional surface name, case insensitive
func ParseMarker(name string) (mk Marker, ok bool) {
	mk, ok = markerNames[strings.ToLower(name)]
	return
}

// ParseRegion resolves a conventional region name, case insensitive
func ParseRegion(name string) (r Region, ok bool) {
	r, ok = regionNames[strings.ToLower(name)]
	return
}

// ReadGmsh reads a Gmsh 2.2 ASCII file. Tetrahedra become cells, triangles
// become marked surface facets. Physical tags missing from tm are resolved
// through the $PhysicalNames section when the names are conventional
// ("lv", "rv", "epi", "base", "apex", "septum").
func ReadGmsh(filename string, tm TagMap) (*Mesh, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadGmshFrom(file, tm)
}

// ReadGmshFrom reads Gmsh 2.2 ASCII from r
func ReadGmshFrom(r io.Reader, tm TagMap) (*Mesh, error) {
	var (
		mesh    = NewMesh()
		nodeIdx = make(map[int]int)
		names   = make(map[int]string)
	)
	scanner := bufio.NewScanner(r)

	// Increase scanner buffer for large files
	const maxScanTokenSize = 1024 * 1024 * 10 // 10MB
	buf := make([]byte, maxScanTokenSize)
	scanner.Buffer(buf, maxScanTokenSize)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "$MeshFormat":
			if err := readMeshFormat(scanner); err != nil {
				return nil, err
			}

		case "$PhysicalNames":
			if err := readPhysicalNames(scanner, names); err != nil {
				return nil, err
			}

		case "$Nodes":
			if err := readNodes(scanner, mesh, nodeIdx); err != nil {
				return nil, err
			}

		case "$Elements":
			if err := readElements(scanner, mesh, nodeIdx, resolveTags(tm, names)); err != nil {
				return nil, err
			}

		default:
			if strings.HasPrefix(line, "$") && !strings.HasPrefix(line, "$End") {
				if err := skipSection(scanner, "$End"+line[1:]); err != nil {
					return nil, err
				}
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanner error: %w", err)
	}
	if mesh.NumElements == 0 {
		return nil, fmt.Errorf("no tetrahedral elements found")
	}

	for tag, name := range names {
		mesh.BoundaryTags[tag] = name
	}
	mesh.BuildConnectivity()
	return mesh, nil
}

// resolveTags merges the caller's tag map with the physical names
func resolveTags(tm TagMap, names map[int]string) (out TagMap) {
	out = TagMap{
		Markers: make(map[int]Marker),
		Regions: make(map[int]Region),
	}
	for tag, name := range names {
		key := strings.ToLower(name)
		if mk, ok := markerNames[key]; ok {
			out.Markers[tag] = mk
		}
		if rg, ok := regionNames[key]; ok {
			out.Regions[tag] = rg
		}
	}
	for tag, mk := range tm.Markers {
		out.Markers[tag] = mk
	}
	for tag, rg := range tm.Regions {
		out.Regions[tag] = rg
	}
	return
}

// readMeshFormat reads the MeshFormat section, only version 2.x ASCII is accepted
func readMeshFormat(scanner *bufio.Scanner) error {
	if !scanner.Scan() {
		return fmt.Errorf("unexpected EOF in MeshFormat")
	}

	parts := strings.Fields(scanner.Text())
	if len(parts) < 3 {
		return fmt.Errorf("invalid MeshFormat line")
	}
	if !strings.HasPrefix(parts[0], "2") {
		return fmt.Errorf("unsupported Gmsh version: %s", parts[0])
	}
	if parts[1] != "0" {
		return fmt.Errorf("binary Gmsh files are not supported")
	}

	return skipSection(scanner, "$EndMeshFormat")
}

// readPhysicalNames reads physical entity names
func readPhysicalNames(scanner *bufio.Scanner, names map[int]string) error {
	if !scanner.Scan() {
		return fmt.Errorf("unexpected EOF in PhysicalNames")
	}

	numPhysical, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil {
		return fmt.Errorf("invalid number of physical names: %w", err)
	}

	for i := 0; i < numPhysical; i++ {
		if !scanner.Scan() {
			return fmt.Errorf("unexpected EOF in PhysicalNames")
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			return fmt.Errorf("invalid physical name entry")
		}

		tag, err := strconv.Atoi(fields[1])
		if err != nil {
			return fmt.Errorf("invalid physical tag: %w", err)
		}
		names[tag] = strings.Trim(strings.Join(fields[2:], " "), "\"")
	}

	return skipSection(scanner, "$EndPhysicalNames")
}

// readNodes reads the Nodes section
func readNodes(scanner *bufio.Scanner, mesh *Mesh, nodeIdx map[int]int) error {
	if !scanner.Scan() {
		return fmt.Errorf("unexpected EOF in Nodes")
	}

	numNodes, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil {
		return fmt.Errorf("invalid number of nodes: %w", err)
	}

	for i := 0; i < numNodes; i++ {
		if !scanner.Scan() {
			return fmt.Errorf("unexpected EOF in Nodes at node %d", i)
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 {
			return fmt.Errorf("invalid node entry at line %d", i+1)
		}

		nodeID, err := strconv.Atoi(fields[0])
		if err != nil {
			return fmt.Errorf("invalid node ID: %w", err)
		}

		var coords [3]float64
		for j := 0; j < 3; j++ {
			coords[j], err = strconv.ParseFloat(fields[j+1], 64)
			if err != nil {
				return fmt.Errorf("invalid coordinate: %w", err)
			}
		}

		nodeIdx[nodeID] = len(mesh.Vertices)
		mesh.Vertices = append(mesh.Vertices, r3.Vec{X: coords[0], Y: coords[1], Z: coords[2]})
	}
	mesh.NumVertices = len(mesh.Vertices)

	return skipSection(scanner, "$EndNodes")
}

// readElements reads the Elements section, keeping tetrahedra and triangles
func readElements(scanner *bufio.Scanner, mesh *Mesh, nodeIdx map[int]int, tm TagMap) error {
	if !scanner.Scan() {
		return fmt.Errorf("unexpected EOF in Elements")
	}

	numElems, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil {
		return fmt.Errorf("invalid number of elements: %w", err)
	}

	lookup := func(fields []string) (idx []int, err error) {
		idx = make([]int, len(fields))
		for j, f := range fields {
			id, err := strconv.Atoi(f)
			if err != nil {
				return nil, fmt.Errorf("invalid node ID: %w", err)
			}
			n, ok := nodeIdx[id]
			if !ok {
				return nil, fmt.Errorf("element references unknown node %d", id)
			}
			idx[j] = n
		}
		return
	}

	for i := 0; i < numElems; i++ {
		if !scanner.Scan() {
			return fmt.Errorf("unexpected EOF in Elements at element %d", i)
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			return fmt.Errorf("invalid element entry at line %d", i+1)
		}

		gmshType, err := strconv.Atoi(fields[1])
		if err != nil {
			return fmt.Errorf("invalid element type: %w", err)
		}

		numTags, err := strconv.Atoi(fields[2])
		if err != nil {
			return fmt.Errorf("invalid number of tags: %w", err)
		}
		if len(fields) < 3+numTags {
			return fmt.Errorf("insufficient fields for tags")
		}

		// The first tag is the physical group
		var physical int
		if numTags > 0 {
			if physical, err = strconv.Atoi(fields[3]); err != nil {
				return fmt.Errorf("invalid tag: %w", err)
			}
		}
		nodes := fields[3+numTags:]

		switch gmshType {
		case gmshTet:
			if len(nodes) != 4 {
				return fmt.Errorf("tetrahedron expects 4 nodes, got %d", len(nodes))
			}
			idx, err := lookup(nodes)
			if err != nil {
				return err
			}
			mesh.AddElement([4]int{idx[0], idx[1], idx[2], idx[3]}, tm.Regions[physical], physical)
		case gmshTriangle:
			if len(nodes) != 3 {
				return fmt.Errorf("triangle expects 3 nodes, got %d", len(nodes))
			}
			idx, err := lookup(nodes)
			if err != nil {
				return err
			}
			mesh.MarkSurface([3]int{idx[0], idx[1], idx[2]}, tm.Markers[physical], physical)
		default:
			// Points, lines and higher order elements carry no information
			// needed here
		}
	}

	return skipSection(scanner, "$EndElements")
}

func skipSection(scanner *bufio.Scanner, endTag string) error {
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == endTag {
			return nil
		}
	}
	return fmt.Errorf("missing %s", endTag)
}

package ldrb

import (
	"github.com/notargets/goldrb/mesh"
)

// ClassifyRegions assigns every point a region. A point keeps its tag unless
// the tag is RegionNone. Untagged points are LV when blend is nil
// (univentricular), otherwise LV below 0.5 - halfWidth, RV above
// 0.5 + halfWidth and septum in between.
func ClassifyRegions(tags []mesh.Region, blend []float64, halfWidth float64) (regions []mesh.Region) {
	n := len(tags)
	if n == 0 {
		n = len(blend)
	}
	regions = make([]mesh.Region, n)
	for i := range regions {
		if tags != nil && tags[i] != mesh.RegionNone {
			regions[i] = tags[i]
			continue
		}
		switch {
		case blend == nil:
			regions[i] = mesh.LV
		case blend[i] < 0.5-halfWidth:
			regions[i] = mesh.LV
		case blend[i] > 0.5+halfWidth:
			regions[i] = mesh.RV
		default:
			regions[i] = mesh.Septum
		}
	}
	return
}

// NodeRegions tags each vertex from its cells: the common tag when they
// agree, septum when they disagree, RegionNone when all are untagged
func NodeRegions(m *mesh.Mesh, nte [][]int) (tags []mesh.Region) {
	tags = make([]mesh.Region, m.NumVertices)
	for v, elems := range nte {
		tag := mesh.RegionNone
		for _, k := range elems {
			r := m.Regions[k]
			switch {
			case r == mesh.RegionNone:
			case tag == mesh.RegionNone:
				tag = r
			case tag != r:
				tag = mesh.Septum
			}
		}
		tags[v] = tag
	}
	return
}

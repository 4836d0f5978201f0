// Package laplace solves the Laplace and Poisson boundary value problems that
// give the harmonic coordinates of the ventricular wall. Assembly uses linear
// tetrahedral elements; the linear solve is delegated to a utils.LinearSolver.
package laplace

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/goldrb/mesh"
	"github.com/notargets/goldrb/utils"
)

// Eps is the clamp margin applied to bounded harmonic fields
const Eps = 2.220446049250313e-16

// Field is a scalar value per mesh vertex
type Field struct {
	Name   string
	Values []float64
}

// Range returns the minimum and maximum value
func (f Field) Range() (min, max float64) {
	if len(f.Values) == 0 {
		return
	}
	return floats.Min(f.Values), floats.Max(f.Values)
}

// Clamp bounds every value to [lo, hi] in place
func (f Field) Clamp(lo, hi float64) {
	for i, v := range f.Values {
		f.Values[i] = math.Min(math.Max(v, lo), hi)
	}
}

// Dirichlet maps a boundary marker to the value imposed on its facets
type Dirichlet map[mesh.Marker]float64

// Problem describes -div(grad u) = Source with Dirichlet data on marked
// facets and on individual vertices, zero flux elsewhere
type Problem struct {
	Name      string
	Dirichlet Dirichlet
	Points    map[int]float64 // Vertex -> value
	Source    float64
}

// Solver formulates the boundary value problems and hands the linear systems
// to Backend
type Solver struct {
	Backend utils.LinearSolver
	Logger  *zap.Logger
}

// NewSolver returns a Solver; nil arguments select the conjugate gradient
// backend and a no-op logger
func NewSolver(backend utils.LinearSolver, logger *zap.Logger) *Solver {
	if backend == nil {
		backend = utils.NewConjugateGradient()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Solver{Backend: backend, Logger: logger}
}

// SolveHarmonic solves the Laplace equation with the given Dirichlet pairs
func (s *Solver) SolveHarmonic(m *mesh.Mesh, name string, bc Dirichlet) (Field, error) {
	return s.Solve(m, Problem{Name: name, Dirichlet: bc})
}

// SolvePoisson solves -div(grad u) = source with the given Dirichlet pairs
func (s *Solver) SolvePoisson(m *mesh.Mesh, name string, bc Dirichlet, source float64) (Field, error) {
	return s.Solve(m, Problem{Name: name, Dirichlet: bc, Source: source})
}

// Solve assembles and solves p over m
func (s *Solver) Solve(m *mesh.Mesh, p Problem) (f Field, err error) {
	f.Name = p.Name
	fixed, err := dirichletNodes(m, p)
	if err != nil {
		return
	}

	label, nComp := m.ConnectedComponents()
	if err = checkComponents(m, p.Name, label, nComp, fixed); err != nil {
		return
	}
	used := make([]bool, m.NumVertices)
	for v, l := range label {
		used[v] = l >= 0
	}

	var (
		sys   = assemble(m, m.Geometry(), fixed, used, p.Source)
		x     []float64
		stats utils.SolveStats
	)
	if len(sys.Free) != 0 {
		x, stats, err = s.Backend.Solve(sys.K, sys.RHS)
	}
	if err != nil {
		div := &SolverDivergence{
			Field:   p.Name,
			Regions: m.PresentRegions(),
			Reason:  "linear solve failed",
			Err:     err,
		}
		var ce *utils.ConvergenceError
		if errors.As(err, &ce) {
			div.Iterations, div.Residual, div.Reason = ce.Iterations, ce.Residual, ce.Reason
		}
		err = div
		return
	}

	f.Values = make([]float64, m.NumVertices)
	for v, val := range fixed {
		f.Values[v] = val
	}
	for i, v := range sys.Free {
		f.Values[v] = x[i]
	}
	lo, hi := f.Range()
	s.Logger.Info("solved scalar field",
		zap.String("field", p.Name),
		zap.Int("unknowns", len(sys.Free)),
		zap.Int("dirichlet", len(fixed)),
		zap.Int("iterations", stats.Iterations),
		zap.Float64("residual", stats.Residual),
		zap.Float64("min", lo),
		zap.Float64("max", hi),
	)
	return
}

// dirichletNodes gathers the fixed vertex values. Markers are applied in
// ascending order and point values last, later assignments win on shared
// vertices.
func dirichletNodes(m *mesh.Mesh, p Problem) (fixed map[int]float64, err error) {
	fixed = make(map[int]float64)
	markers := make([]int, 0, len(p.Dirichlet))
	for mk := range p.Dirichlet {
		markers = append(markers, int(mk))
	}
	sort.Ints(markers)
	for _, mk := range markers {
		marker := mesh.Marker(mk)
		nodes := m.MarkedNodes(marker)
		if len(nodes) == 0 {
			err = fmt.Errorf("field %q, marker %s: %w", p.Name, marker, ErrMissingMarker)
			return
		}
		for _, v := range nodes {
			fixed[v] = p.Dirichlet[marker]
		}
	}
	for v, val := range p.Points {
		if v < 0 || v >= m.NumVertices {
			err = fmt.Errorf("field %q: point condition on vertex %d outside mesh", p.Name, v)
			return
		}
		fixed[v] = val
	}
	return
}

// checkComponents rejects problems where a connected piece of the mesh has no
// Dirichlet vertex: its stiffness block is singular
func checkComponents(m *mesh.Mesh, name string, label []int, nComp int, fixed map[int]float64) error {
	anchored := make([]bool, nComp)
	for v := range fixed {
		if label[v] >= 0 {
			anchored[label[v]] = true
		}
	}
	for c := 0; c < nComp; c++ {
		if anchored[c] {
			continue
		}
		var (
			nodes   int
			regions = make(map[mesh.Region]bool)
		)
		for _, l := range label {
			if l == c {
				nodes++
			}
		}
		for k, verts := range m.EtoV {
			if label[verts[0]] == c {
				regions[m.Regions[k]] = true
			}
		}
		div := &SolverDivergence{
			Field:  name,
			Reason: fmt.Sprintf("mesh component %d (%d vertices) has no Dirichlet boundary, the system is singular", c, nodes),
		}
		for r := mesh.RegionNone; r <= mesh.Septum; r++ {
			if regions[r] {
				div.Regions = append(div.Regions, r)
			}
		}
		return div
	}
	return nil
}

// ApexToBase computes the apicobasal coordinate, 0 at the apex and 1 on the
// base. With Apex facets in the mesh those are used directly. Otherwise the
// apex is the vertex farthest from the base in the sense of the Poisson
// problem -div(grad u) = 1, u = 1 on the base.
func (s *Solver) ApexToBase(m *mesh.Mesh) (f Field, apex r3.Vec, err error) {
	if m.HasMarker(mesh.Apex) {
		nodes := m.MarkedNodes(mesh.Apex)
		for _, v := range nodes {
			apex = r3.Add(apex, m.Vertices[v])
		}
		apex = r3.Scale(1/float64(len(nodes)), apex)
		f, err = s.SolveHarmonic(m, "apex", Dirichlet{mesh.Base: 1, mesh.Apex: 0})
		return
	}

	var dist Field
	if dist, err = s.SolvePoisson(m, "apex_distance", Dirichlet{mesh.Base: 1}, 1); err != nil {
		return
	}
	ind := floats.MaxIdx(dist.Values)
	apex = m.Vertices[ind]
	s.Logger.Info("located apex",
		zap.Int("vertex", ind),
		zap.Float64("x", apex.X), zap.Float64("y", apex.Y), zap.Float64("z", apex.Z))

	f, err = s.Solve(m, Problem{
		Name:      "apex",
		Dirichlet: Dirichlet{mesh.Base: 1},
		Points:    map[int]float64{ind: 0},
	})
	return
}

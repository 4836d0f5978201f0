package laplace

import (
	"errors"
	"fmt"
	"strings"

	"github.com/notargets/goldrb/mesh"
)

var (
	// ErrSolverDivergence is matched by every SolverDivergence
	ErrSolverDivergence = errors.New("solver divergence")
	// ErrMissingMarker is returned when a Dirichlet marker has no facets
	ErrMissingMarker = errors.New("boundary marker not present in mesh")
)

// SolverDivergence reports a field whose linear system could not be solved,
// either because it is singular or because the backend did not converge
type SolverDivergence struct {
	Field      string
	Regions    []mesh.Region // Regions of the cells involved, when known
	Iterations int
	Residual   float64
	Reason     string
	Err        error // Backend error, if any
}

func (e *SolverDivergence) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "solver divergence in field %q: %s", e.Field, e.Reason)
	if len(e.Regions) != 0 {
		names := make([]string, len(e.Regions))
		for i, r := range e.Regions {
			names[i] = r.String()
		}
		fmt.Fprintf(&sb, " (regions: %s)", strings.Join(names, ", "))
	}
	if e.Iterations != 0 {
		fmt.Fprintf(&sb, " after %d iterations, relative residual %.3e", e.Iterations, e.Residual)
	}
	return sb.String()
}

func (e *SolverDivergence) Is(target error) bool { return target == ErrSolverDivergence }

func (e *SolverDivergence) Unwrap() error { return e.Err }

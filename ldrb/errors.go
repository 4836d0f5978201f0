package ldrb

import (
	"errors"
	"fmt"
	"strings"

	"github.com/notargets/goldrb/mesh"
)

// ErrConfiguration is matched by every ConfigurationError
var ErrConfiguration = errors.New("configuration error")

// ConfigurationError is a fatal problem with the parameters or the boundary
// markers, found before any frame is computed
type ConfigurationError struct {
	Field  string      // Scalar field or parameter concerned, may be empty
	Region mesh.Region // RegionNone when not region specific
	Reason string
}

func (e *ConfigurationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, "field "+e.Field)
	}
	if e.Region != mesh.RegionNone {
		parts = append(parts, "region "+e.Region.String())
	}
	if len(parts) == 0 {
		return "configuration: " + e.Reason
	}
	return fmt.Sprintf("configuration (%s): %s", strings.Join(parts, ", "), e.Reason)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// DegenerateKind identifies which direction of a local frame was replaced
type DegenerateKind uint8

const (
	DegenerateTransmural   DegenerateKind = iota // Transmural gradient below tolerance
	DegenerateLongitudinal                       // Apicobasal gradient below tolerance
	DegenerateParallel                           // Apicobasal gradient parallel to the transmural one
)

func (k DegenerateKind) String() string {
	switch k {
	case DegenerateTransmural:
		return "transmural"
	case DegenerateLongitudinal:
		return "apicobasal"
	case DegenerateParallel:
		return "apicobasal_parallel"
	}
	return "unknown"
}

// DegenerateGeometryWarning records a fallback axis substitution. It is never
// returned as an error.
type DegenerateGeometryWarning struct {
	Point  int // Element or node index, following the function space
	Region mesh.Region
	Kind   DegenerateKind
}

func (w DegenerateGeometryWarning) String() string {
	return fmt.Sprintf("point %d (%s): degenerate %s gradient", w.Point, w.Region, w.Kind)
}

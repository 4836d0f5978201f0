package ldrb

import (
	"fmt"
	"math"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/notargets/goldrb/mesh"
	"github.com/notargets/goldrb/utils"
)

// Mode selects which scalar fields are computed
type Mode uint8

const (
	ModeAuto Mode = iota // Biventricular when EndoRV facets exist
	ModeUniventricular
	ModeBiventricular
)

var modeNames = map[Mode]string{
	ModeAuto:           "auto",
	ModeUniventricular: "univentricular",
	ModeBiventricular:  "biventricular",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// NewMode parses a mode label
func NewMode(label string) (Mode, error) {
	for m, name := range modeNames {
		if strings.EqualFold(label, name) {
			return m, nil
		}
	}
	return ModeAuto, &ConfigurationError{Field: "mode", Reason: fmt.Sprintf("unknown mode %q", label)}
}

// Space selects where the frames are evaluated
type Space uint8

const (
	DG0 Space = iota // One frame per element, at the centroid
	CG1              // One frame per vertex
)

func (s Space) String() string {
	switch s {
	case DG0:
		return "DG_0"
	case CG1:
		return "CG_1"
	}
	return fmt.Sprintf("Space(%d)", int(s))
}

// NewSpace parses a function space label, e.g. "DG_0" or "cg1"
func NewSpace(label string) (Space, error) {
	switch strings.ToUpper(strings.ReplaceAll(label, "_", "")) {
	case "DG0", "":
		return DG0, nil
	case "CG1":
		return CG1, nil
	}
	return DG0, &ConfigurationError{Field: "space", Reason: fmt.Sprintf("unsupported function space %q", label)}
}

// RegionSource selects how points are assigned to LV, RV and septum
type RegionSource uint8

const (
	RegionsFromTags  RegionSource = iota // Cell tags, untagged cells use the blend field
	RegionsFromBlend                     // Always threshold the blend field
)

// Angles are the helix (alpha) and transverse (beta) angles in degrees at the
// endocardium and the epicardium
type Angles struct {
	AlphaEndo float64 `json:"alpha_endo"`
	AlphaEpi  float64 `json:"alpha_epi"`
	BetaEndo  float64 `json:"beta_endo"`
	BetaEpi   float64 `json:"beta_epi"`
}

// At interpolates the angles linearly at transmural depth t
func (a Angles) At(t float64) (alpha, beta float64) {
	alpha = a.AlphaEndo + t*(a.AlphaEpi-a.AlphaEndo)
	beta = a.BetaEndo + t*(a.BetaEpi-a.BetaEndo)
	return
}

func (a Angles) finite() bool {
	for _, v := range []float64{a.AlphaEndo, a.AlphaEpi, a.BetaEndo, a.BetaEpi} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// DefaultAngles are the published rule-based values
func DefaultAngles() *Angles {
	return &Angles{AlphaEndo: 40, AlphaEpi: -50, BetaEndo: -65, BetaEpi: 25}
}

// Config is the full set of run parameters. Angles is keyed by region and
// must cover every region a point can fall in.
type Config struct {
	Mode            Mode
	Space           Space
	Angles          map[mesh.Region]*Angles
	RegionSource    RegionSource
	SeptumHalfWidth float64 // Blend values within 0.5 +/- this are septal
	ValueTol        float64 // lv or rv below this contributes no frame
	GradientTol     float64 // Gradient magnitudes at or below this are degenerate
	ParallelDegree  int     // 0 selects runtime.NumCPU()
	Solver          utils.LinearSolver
	Logger          *zap.Logger
}

// DefaultConfig returns a configuration with the default angles on every
// region and conjugate gradient solves
func DefaultConfig() Config {
	cfg := Config{
		Angles:      make(map[mesh.Region]*Angles),
		ValueTol:    1.e-3,
		GradientTol: 1.e-10,
	}
	for _, r := range mesh.Regions {
		cfg.Angles[r] = DefaultAngles()
	}
	return cfg
}

func (cfg Config) withDefaults() Config {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Solver == nil {
		cfg.Solver = utils.NewConjugateGradient()
	}
	return cfg
}

// Validate checks the parameters and that every region in present has
// angles. All problems are reported together.
func (cfg Config) Validate(present []mesh.Region) (err error) {
	if _, ok := modeNames[cfg.Mode]; !ok {
		err = multierr.Append(err, &ConfigurationError{Field: "mode", Reason: fmt.Sprintf("invalid mode %d", int(cfg.Mode))})
	}
	if cfg.Space != DG0 && cfg.Space != CG1 {
		err = multierr.Append(err, &ConfigurationError{Field: "space", Reason: fmt.Sprintf("invalid function space %d", int(cfg.Space))})
	}
	if cfg.RegionSource != RegionsFromTags && cfg.RegionSource != RegionsFromBlend {
		err = multierr.Append(err, &ConfigurationError{Field: "region_source", Reason: "invalid region source"})
	}
	if !(cfg.SeptumHalfWidth >= 0 && cfg.SeptumHalfWidth < 0.5) {
		err = multierr.Append(err, &ConfigurationError{Field: "septum_half_width",
			Reason: fmt.Sprintf("%g outside [0, 0.5)", cfg.SeptumHalfWidth)})
	}
	if !(cfg.ValueTol > 0 && cfg.ValueTol < 0.5) {
		err = multierr.Append(err, &ConfigurationError{Field: "value_tol",
			Reason: fmt.Sprintf("%g outside (0, 0.5)", cfg.ValueTol)})
	}
	if !(cfg.GradientTol >= 0) || math.IsInf(cfg.GradientTol, 0) {
		err = multierr.Append(err, &ConfigurationError{Field: "gradient_tol",
			Reason: fmt.Sprintf("%g is not a finite non-negative tolerance", cfg.GradientTol)})
	}
	for _, r := range present {
		if r == mesh.RegionNone {
			continue
		}
		a := cfg.Angles[r]
		switch {
		case a == nil:
			err = multierr.Append(err, &ConfigurationError{Field: "angles", Region: r, Reason: "no angles given for a region present in the mesh"})
		case !a.finite():
			err = multierr.Append(err, &ConfigurationError{Field: "angles", Region: r, Reason: "angles must be finite"})
		}
	}
	return
}

// resolveMode checks the boundary markers and decides whether the mesh is
// treated as biventricular
func resolveMode(m *mesh.Mesh, mode Mode) (biv bool, err error) {
	for _, mk := range []mesh.Marker{mesh.EndoLV, mesh.Epi, mesh.Base} {
		if !m.HasMarker(mk) {
			err = multierr.Append(err, &ConfigurationError{Field: mk.String(),
				Reason: "required boundary marker has no facets"})
		}
	}
	hasRV := m.HasMarker(mesh.EndoRV)
	switch mode {
	case ModeAuto:
		biv = hasRV
	case ModeBiventricular:
		if !hasRV {
			err = multierr.Append(err, &ConfigurationError{Field: mesh.EndoRV.String(),
				Reason: "biventricular mode requires right ventricular endocardium facets"})
		}
		biv = true
	}
	return
}

// expectedRegions lists every region whose angles are needed before the
// blend field is known. A biventricular run blends all three sets at every
// point.
func (cfg Config) expectedRegions(m *mesh.Mesh, biv bool) (regions []mesh.Region) {
	if biv {
		return []mesh.Region{mesh.LV, mesh.RV, mesh.Septum}
	}
	seen := make(map[mesh.Region]bool)
	untagged := cfg.RegionSource == RegionsFromBlend
	for _, r := range m.Regions {
		if r == mesh.RegionNone {
			untagged = true
		} else if cfg.RegionSource == RegionsFromTags {
			seen[r] = true
		}
	}
	if cfg.Space == CG1 && len(seen) > 1 {
		// Vertices shared by differently tagged cells are septal
		seen[mesh.Septum] = true
	}
	if untagged {
		seen[mesh.LV] = true
	}
	for _, r := range mesh.Regions {
		if seen[r] {
			regions = append(regions, r)
		}
	}
	return
}

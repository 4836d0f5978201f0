// Package ldrb assigns myocardial fiber, sheet and sheet-normal directions
// with the Laplace-Dirichlet rule-based method: harmonic coordinates from the
// laplace package, a local frame from their gradients, and helix/transverse
// rotations blended between the ventricles with quaternion interpolation.
package ldrb

import (
	"errors"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/goldrb/laplace"
	"github.com/notargets/goldrb/mesh"
	"github.com/notargets/goldrb/utils"
)

// maxWarningSample bounds the point ids listed in the degenerate summary
const maxWarningSample = 10

// FiberSheetSystem is the result of one pipeline run, one vector per element
// (DG_0) or per vertex (CG_1)
type FiberSheetSystem struct {
	Space         Space
	Biventricular bool
	Fiber         []r3.Vec
	Sheet         []r3.Vec
	SheetNormal   []r3.Vec
	Regions       []mesh.Region
	Fields        map[string]laplace.Field // apex, epi and, biventricular, lv and rv
	Apex          r3.Vec
	Warnings      []DegenerateGeometryWarning
}

// Len is the number of evaluation points
func (fss *FiberSheetSystem) Len() int { return len(fss.Fiber) }

// Frame returns the triple at point i
func (fss *FiberSheetSystem) Frame(i int) Frame {
	return Frame{Fiber: fss.Fiber[i], Sheet: fss.Sheet[i], Normal: fss.SheetNormal[i]}
}

// ComputeFiberSheetSystem runs the whole method on m. Configuration and
// solver errors abort the run and no partial result is returned.
func ComputeFiberSheetSystem(m *mesh.Mesh, cfg Config) (fss *FiberSheetSystem, err error) {
	cfg = cfg.withDefaults()
	log := cfg.Logger

	var biv bool
	if biv, err = resolveMode(m, cfg.Mode); err != nil {
		return
	}
	if err = cfg.Validate(cfg.expectedRegions(m, biv)); err != nil {
		return
	}
	if n := m.UnmarkedFacets(); n != 0 {
		log.Warn("boundary facets without a marker get a zero flux condition", zap.Int("facets", n))
	}
	log.Info("computing fiber sheet system",
		zap.Bool("biventricular", biv),
		zap.Stringer("space", cfg.Space),
		zap.Int("elements", m.NumElements),
		zap.Int("vertices", m.NumVertices))

	fields, apex, err := solveFields(m, cfg, biv)
	if err != nil {
		return
	}

	ev := newEvaluation(m, cfg.Space, cfg.ParallelDegree)
	in, err := sampleFields(ev, fields, biv)
	if err != nil {
		return
	}

	var tags []mesh.Region
	if cfg.RegionSource == RegionsFromTags {
		if cfg.Space == CG1 {
			tags = NodeRegions(m, ev.nte)
		} else {
			tags = m.Regions
		}
	}
	regions := ClassifyRegions(tags, in.blend, cfg.SeptumHalfWidth)
	logAngles(log, cfg, regions)

	fss = &FiberSheetSystem{
		Space:         cfg.Space,
		Biventricular: biv,
		Fiber:         make([]r3.Vec, ev.Len()),
		Sheet:         make([]r3.Vec, ev.Len()),
		SheetNormal:   make([]r3.Vec, ev.Len()),
		Regions:       regions,
		Fields:        fields,
		Apex:          apex,
	}
	var (
		policy = newFallbackPolicy(ev, regions, in.gradAB, in.gradT, cfg.GradientTol)
		pm     = utils.NewPartitionMap(cfg.ParallelDegree, ev.Len())
		warns  = make([][]DegenerateGeometryWarning, pm.ParallelDegree)
	)
	var bivRule Rule
	if biv {
		bivRule = Rule{LV: *cfg.Angles[mesh.LV], RV: *cfg.Angles[mesh.RV], Septum: *cfg.Angles[mesh.Septum]}
	}
	err = pm.ForEachBucket(func(bn, kMin, kMax int) error {
		for k := kMin; k < kMax; k++ {
			r := regions[k]
			rule := bivRule
			if !biv {
				ang := cfg.Angles[r]
				if ang == nil {
					return &ConfigurationError{Field: "angles", Region: r, Reason: "no angles given for a region present in the mesh"}
				}
				rule = Rule{LV: *ang}
			}
			f, kinds := SystemAt(in.sample(k, r, biv), rule, policy.At(r, ev.Pos[k]), cfg.ValueTol)
			for _, kind := range kinds {
				warns[bn] = append(warns[bn], DegenerateGeometryWarning{Point: k, Region: r, Kind: kind})
			}
			fss.Fiber[k], fss.Sheet[k], fss.SheetNormal[k] = f.Fiber, f.Sheet, f.Normal
		}
		return nil
	})
	if err != nil {
		fss = nil
		return
	}
	for _, w := range warns {
		fss.Warnings = append(fss.Warnings, w...)
	}
	logWarnings(log, fss.Warnings)
	return
}

// solveFields runs the harmonic solves shared by every region
func solveFields(m *mesh.Mesh, cfg Config, biv bool) (fields map[string]laplace.Field, apex r3.Vec, err error) {
	var (
		s = laplace.NewSolver(cfg.Solver, cfg.Logger)
		f laplace.Field
	)
	if f, apex, err = s.ApexToBase(m); err != nil {
		err = solveError("apex", err)
		return
	}
	fields = map[string]laplace.Field{"apex": f}

	type problem struct {
		name string
		bc   laplace.Dirichlet
	}
	problems := []problem{{"epi", laplace.Dirichlet{mesh.EndoLV: 0, mesh.Epi: 1}}}
	if biv {
		problems = []problem{
			{"epi", laplace.Dirichlet{mesh.EndoLV: 0, mesh.EndoRV: 0, mesh.Epi: 1}},
			{"lv", laplace.Dirichlet{mesh.EndoLV: 1, mesh.EndoRV: 0, mesh.Epi: 0}},
			{"rv", laplace.Dirichlet{mesh.EndoLV: 0, mesh.EndoRV: 1, mesh.Epi: 0}},
		}
	}
	for _, p := range problems {
		if f, err = s.SolveHarmonic(m, p.name, p.bc); err != nil {
			fields, err = nil, solveError(p.name, err)
			return
		}
		f.Clamp(laplace.Eps, 1-laplace.Eps)
		fields[p.name] = f
	}
	return
}

// solveError turns a missing marker into a ConfigurationError. Divergence
// errors pass through unchanged.
func solveError(field string, err error) error {
	if errors.Is(err, laplace.ErrMissingMarker) {
		return &ConfigurationError{Field: field, Reason: err.Error()}
	}
	return err
}

// sampled holds the field values and gradients at the evaluation points
type sampled struct {
	t, lv, rv, blend              []float64
	gradAB, gradT, gradLV, gradRV []r3.Vec
}

func sampleFields(ev *evaluation, fields map[string]laplace.Field, biv bool) (in sampled, err error) {
	in.t = ev.Values(fields["epi"])
	if in.gradAB, err = ev.Gradients(fields["apex"]); err != nil {
		return
	}
	if in.gradT, err = ev.Gradients(fields["epi"]); err != nil {
		return
	}
	if !biv {
		return
	}
	in.lv, in.rv = ev.Values(fields["lv"]), ev.Values(fields["rv"])
	if in.gradLV, err = ev.Gradients(fields["lv"]); err != nil {
		return
	}
	if in.gradRV, err = ev.Gradients(fields["rv"]); err != nil {
		return
	}
	in.blend = make([]float64, len(in.lv))
	for i := range in.blend {
		in.blend[i] = blend(in.lv[i], in.rv[i])
	}
	return
}

func (in sampled) sample(k int, r mesh.Region, biv bool) (s Sample) {
	s = Sample{
		Region:        r,
		Biventricular: biv,
		T:             in.t[k],
		GradAB:        in.gradAB[k],
		GradT:         in.gradT[k],
	}
	if biv {
		s.LV, s.RV = in.lv[k], in.rv[k]
		s.GradLV, s.GradRV = in.gradLV[k], in.gradRV[k]
	}
	return
}

func logAngles(log *zap.Logger, cfg Config, regions []mesh.Region) {
	counts := make(map[mesh.Region]int)
	for _, r := range regions {
		counts[r]++
	}
	for _, r := range mesh.Regions {
		a := cfg.Angles[r]
		if counts[r] == 0 || a == nil {
			continue
		}
		log.Info("region angles",
			zap.Stringer("region", r),
			zap.Int("points", counts[r]),
			zap.Float64("alpha_endo", a.AlphaEndo),
			zap.Float64("alpha_epi", a.AlphaEpi),
			zap.Float64("beta_endo", a.BetaEndo),
			zap.Float64("beta_epi", a.BetaEpi))
	}
}

func logWarnings(log *zap.Logger, warns []DegenerateGeometryWarning) {
	if len(warns) == 0 {
		return
	}
	var sample []int
	for _, w := range warns {
		log.Debug("fallback axis substituted",
			zap.Int("point", w.Point),
			zap.Stringer("region", w.Region),
			zap.Stringer("gradient", w.Kind))
		if len(sample) < maxWarningSample {
			sample = append(sample, w.Point)
		}
	}
	log.Warn("degenerate gradients replaced by fallback axes",
		zap.Int("count", len(warns)),
		zap.Ints("points", sample))
}

package ldrb

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/goldrb/mesh"
)

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate(mesh.Regions))
	assert.Equal(t, *DefaultAngles(), *cfg.Angles[mesh.Septum])

	bad := DefaultConfig()
	bad.ValueTol = 0
	bad.SeptumHalfWidth = 0.5
	bad.Angles[mesh.RV] = &Angles{AlphaEndo: math.NaN()}
	delete(bad.Angles, mesh.Septum)
	err := bad.Validate(mesh.Regions)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)
	errs := multierr.Errors(err)
	require.Len(t, errs, 4)
	var regions []mesh.Region
	for _, e := range errs {
		var ce *ConfigurationError
		require.ErrorAs(t, e, &ce)
		if ce.Region != mesh.RegionNone {
			regions = append(regions, ce.Region)
		}
	}
	assert.Equal(t, []mesh.Region{mesh.RV, mesh.Septum}, regions)

	// Regions not present need no angles
	assert.Len(t, multierr.Errors(bad.Validate([]mesh.Region{mesh.LV})), 2)
}

func TestParseLabels(t *testing.T) {
	m, err := NewMode("Biventricular")
	require.NoError(t, err)
	assert.Equal(t, ModeBiventricular, m)
	_, err = NewMode("triventricular")
	assert.ErrorIs(t, err, ErrConfiguration)

	for label, want := range map[string]Space{"DG_0": DG0, "dg0": DG0, "": DG0, "CG_1": CG1} {
		s, err := NewSpace(label)
		require.NoError(t, err)
		assert.Equal(t, want, s, label)
	}
	_, err = NewSpace("CG_2")
	assert.Error(t, err)
	assert.Equal(t, "CG_1", CG1.String())
}

func TestClassifyRegions(t *testing.T) {
	var (
		none  = mesh.RegionNone
		tags  = []mesh.Region{mesh.RV, none, none, none, none}
		blend = []float64{0.1, 0.1, 0.45, 0.5, 0.9}
	)
	got := ClassifyRegions(tags, blend, 0.1)
	want := []mesh.Region{mesh.RV, mesh.LV, mesh.Septum, mesh.Septum, mesh.RV}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ClassifyRegions mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []mesh.Region{mesh.LV, mesh.LV, mesh.RV, mesh.Septum, mesh.RV},
		ClassifyRegions(nil, []float64{0.1, 0.49, 0.51, 0.5, 0.9}, 0))
	assert.Equal(t, []mesh.Region{mesh.LV, mesh.RV}, ClassifyRegions([]mesh.Region{none, mesh.RV}, nil, 0))
}

func TestNodeRegions(t *testing.T) {
	m := mesh.NewBoxMesh(2, 1, 1, r3.Vec{}, r3.Vec{X: 2, Y: 1, Z: 1}, nil, func(c r3.Vec) mesh.Region {
		if c.X < 1 {
			return mesh.LV
		}
		return mesh.RV
	})
	tags := NodeRegions(m, m.NodeToElements())
	for v, p := range m.Vertices {
		switch p.X {
		case 0:
			assert.Equal(t, mesh.LV, tags[v])
		case 1:
			assert.Equal(t, mesh.Septum, tags[v])
		case 2:
			assert.Equal(t, mesh.RV, tags[v])
		}
	}
}

func TestExpectedRegions(t *testing.T) {
	tagged := func(c r3.Vec) mesh.Region {
		if c.X < 0.5 {
			return mesh.LV
		}
		return mesh.RV
	}
	m := mesh.NewBoxMesh(2, 1, 1, r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1}, nil, tagged)
	cfg := DefaultConfig()

	// Both ventricles blend all three angle sets regardless of the tags
	assert.Equal(t, mesh.Regions, cfg.expectedRegions(m, true))
	assert.Equal(t, []mesh.Region{mesh.LV, mesh.RV}, cfg.expectedRegions(m, false))
	cfg.Space = CG1
	assert.Equal(t, mesh.Regions, cfg.expectedRegions(m, false))

	untagged := mesh.NewBoxMesh(1, 1, 1, r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1}, nil, nil)
	assert.Equal(t, []mesh.Region{mesh.LV}, DefaultConfig().expectedRegions(untagged, false))
}

package InputParameters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/goldrb/ldrb"
	"github.com/notargets/goldrb/mesh"
	"github.com/notargets/goldrb/utils"
)

func TestLDRBParameters(t *testing.T) {
	fileInput := []byte(`
Title: Biventricular test
Mode: biventricular
FunctionSpace: CG_1
RegionSource: blend
SeptumHalfWidth: 0.05
SolverTol: 1.e-8
Angles:
  LV:
    alpha_endo: 60
    alpha_epi: -60
    beta_endo: -20
    beta_epi: 20
  Septum:
    alpha_endo: 30
    alpha_epi: -30
Markers:
  base: 1
  lv: 2
  rv: 3
  epi: 4
Regions:
  septum: 7
`)
	var input LDRBParameters
	require.NoError(t, input.Parse(fileInput))
	input.Print()
	assert.Equal(t, 60., input.Angles["LV"].AlphaEndo)
	assert.Equal(t, 4, input.Markers["epi"])

	cfg, err := input.ToConfig()
	require.NoError(t, err)
	assert.Equal(t, ldrb.ModeBiventricular, cfg.Mode)
	assert.Equal(t, ldrb.CG1, cfg.Space)
	assert.Equal(t, ldrb.RegionsFromBlend, cfg.RegionSource)
	assert.Equal(t, 0.05, cfg.SeptumHalfWidth)
	assert.Equal(t, 1.e-3, cfg.ValueTol)
	assert.Equal(t, ldrb.Angles{AlphaEndo: 60, AlphaEpi: -60, BetaEndo: -20, BetaEpi: 20}, *cfg.Angles[mesh.LV])
	assert.Equal(t, *ldrb.DefaultAngles(), *cfg.Angles[mesh.RV])
	assert.Equal(t, ldrb.Angles{AlphaEndo: 30, AlphaEpi: -30}, *cfg.Angles[mesh.Septum])
	cg, ok := cfg.Solver.(*utils.ConjugateGradient)
	require.True(t, ok)
	assert.Equal(t, 1.e-8, cg.Tolerance)
	assert.NoError(t, cfg.Validate(mesh.Regions))

	tm, err := input.TagMap()
	require.NoError(t, err)
	assert.Equal(t, map[int]mesh.Marker{1: mesh.Base, 2: mesh.EndoLV, 3: mesh.EndoRV, 4: mesh.Epi}, tm.Markers)
	assert.Equal(t, map[int]mesh.Region{7: mesh.Septum}, tm.Regions)
}

func TestLDRBParameters_Errors(t *testing.T) {
	input := LDRBParameters{
		Mode:          "triventricular",
		FunctionSpace: "CG_2",
		Angles:        map[string]*ldrb.Angles{"atrium": {}},
		Markers:       map[string]int{"valve": 5},
	}
	_, err := input.ToConfig()
	assert.ErrorIs(t, err, ldrb.ErrConfiguration)
	assert.Contains(t, err.Error(), "triventricular")
	assert.Contains(t, err.Error(), "atrium")
	_, err = input.TagMap()
	assert.ErrorIs(t, err, ldrb.ErrConfiguration)

	// Empty parameters are the defaults
	cfg, err := (&LDRBParameters{}).ToConfig()
	require.NoError(t, err)
	def := ldrb.DefaultConfig()
	assert.Equal(t, def.Mode, cfg.Mode)
	assert.Equal(t, def.GradientTol, cfg.GradientTol)
	assert.Nil(t, cfg.Solver)
}

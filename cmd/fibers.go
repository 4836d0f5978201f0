/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/goldrb/InputParameters"
	"github.com/notargets/goldrb/ldrb"
	"github.com/notargets/goldrb/mesh"
	"github.com/notargets/goldrb/utils"
)

type FiberModel struct {
	MeshFile       string
	ICFile         string
	OutputFile     string
	FunctionSpace  string // Overrides the input file when set
	Mode           string // Overrides the input file when set
	ParallelDegree int
	WriteFields    bool
	ProfileDir     string
}

const exampleFile = `
########################################
Title: "Biventricular"
Mode: auto              # univentricular, biventricular
FunctionSpace: DG_0     # CG_1 for one frame per vertex
RegionSource: tags      # blend ignores cell tags
SeptumHalfWidth: 0.
Angles:
  LV:     {alpha_endo: 40, alpha_epi: -50, beta_endo: -65, beta_epi: 25}
  RV:     {alpha_endo: 40, alpha_epi: -50, beta_endo: -65, beta_epi: 25}
  Septum: {alpha_endo: 40, alpha_epi: -50, beta_endo: -65, beta_epi: 25}
Markers: {base: 10, rv: 20, lv: 30, epi: 40}
########################################
`

// FibersCmd represents the fibers command
var FibersCmd = &cobra.Command{
	Use:   "fibers",
	Short: "Compute the fiber, sheet and sheet-normal fields of a heart mesh",
	Long: `
Reads a Gmsh 2.2 tetrahedral mesh with marked endocardial, epicardial and basal
surfaces and writes the mesh with fiber, sheet and sheet_normal data views.

goldrb fibers -F heart.msh [-I params.yaml] -o fibers.msh`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		fm := &FiberModel{
			MeshFile:       viper.GetString("meshFile"),
			ICFile:         viper.GetString("inputParametersFile"),
			OutputFile:     viper.GetString("output"),
			FunctionSpace:  viper.GetString("space"),
			Mode:           viper.GetString("mode"),
			ParallelDegree: viper.GetInt("parallel"),
			WriteFields:    viper.GetBool("fields"),
			ProfileDir:     viper.GetString("profile"),
		}
		if fm.ProfileDir != "" {
			defer profile.Start(profile.CPUProfile, profile.ProfilePath(fm.ProfileDir), profile.Quiet).Stop()
		}
		var ip *InputParameters.LDRBParameters
		if ip, err = processInput(fm); err != nil {
			return
		}
		return RunFibers(fm, ip, logger)
	},
}

func processInput(fm *FiberModel) (ip *InputParameters.LDRBParameters, err error) {
	if len(fm.MeshFile) == 0 {
		fmt.Printf("Example Input Parameters File:%s\n", exampleFile)
		return nil, fmt.Errorf("must supply a mesh file (-F, --meshFile) in Gmsh 2.2 ASCII format")
	}
	if len(fm.OutputFile) == 0 {
		return nil, fmt.Errorf("must supply an output file (-o, --output)")
	}
	ip = &InputParameters.LDRBParameters{}
	if len(fm.ICFile) != 0 {
		var data []byte
		if data, err = os.ReadFile(fm.ICFile); err != nil {
			return
		}
		if err = ip.Parse(data); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", fm.ICFile, err)
		}
	}
	if fm.FunctionSpace != "" {
		ip.FunctionSpace = fm.FunctionSpace
	}
	if fm.Mode != "" {
		ip.Mode = fm.Mode
	}
	if fm.ParallelDegree != 0 {
		ip.ParallelDegree = fm.ParallelDegree
	}
	ip.Print()
	return
}

func init() {
	rootCmd.AddCommand(FibersCmd)
	FibersCmd.Flags().StringP("meshFile", "F", "", "Mesh file to read in Gmsh 2.2 ASCII (.msh) format")
	FibersCmd.Flags().StringP("inputParametersFile", "I", "", "YAML file for input parameters like:\n\t- angles per region\n\t- boundary marker tags")
	FibersCmd.Flags().StringP("output", "o", "", "Gmsh file to write the mesh and the fiber, sheet and sheet_normal views to")
	FibersCmd.Flags().StringP("space", "s", "", "function space, DG_0 (per element) or CG_1 (per vertex)")
	FibersCmd.Flags().StringP("mode", "m", "", "auto, univentricular or biventricular")
	FibersCmd.Flags().IntP("parallel", "p", 0, "number of parallel partitions, 0 uses all CPUs")
	FibersCmd.Flags().Bool("fields", false, "also write the apex, epi, lv and rv scalar fields")
	FibersCmd.Flags().String("profile", "", "write a CPU profile to this directory")
	_ = viper.BindPFlags(FibersCmd.Flags())
}

func RunFibers(fm *FiberModel, ip *InputParameters.LDRBParameters, log *zap.Logger) (err error) {
	var (
		tm  mesh.TagMap
		cfg ldrb.Config
		m   *mesh.Mesh
	)
	if tm, err = ip.TagMap(); err != nil {
		return
	}
	if cfg, err = ip.ToConfig(); err != nil {
		return
	}
	cfg.Logger = log
	if m, err = mesh.ReadGmsh(fm.MeshFile, tm); err != nil {
		return
	}
	m.PrintStatistics(os.Stdout)

	fss, err := ldrb.ComputeFiberSheetSystem(m, cfg)
	if err != nil {
		return
	}

	file, err := os.Create(fm.OutputFile)
	if err != nil {
		return
	}
	if err = writeResult(file, m, fss, fm.WriteFields); err != nil {
		file.Close()
		return
	}
	if err = file.Close(); err != nil {
		return
	}
	log.Info("wrote fiber sheet system",
		zap.String("file", fm.OutputFile),
		zap.Stringer("space", fss.Space),
		zap.Int("points", fss.Len()),
		zap.Int("degenerate", len(fss.Warnings)))
	log.Debug("memory usage", utils.MemUsage()...)
	return
}

func writeResult(w io.Writer, m *mesh.Mesh, fss *ldrb.FiberSheetSystem, fields bool) (err error) {
	if err = m.WriteGmsh(w); err != nil {
		return
	}
	perElement := fss.Space == ldrb.DG0
	for _, view := range []struct {
		name string
		vecs []r3.Vec
	}{
		{"fiber", fss.Fiber},
		{"sheet", fss.Sheet},
		{"sheet_normal", fss.SheetNormal},
	} {
		if err = m.WriteGmshVectorData(w, view.name, view.vecs, perElement); err != nil {
			return
		}
	}
	if !fields {
		return
	}
	for _, name := range []string{"apex", "epi", "lv", "rv"} {
		if f, ok := fss.Fields[name]; ok {
			if err = m.WriteGmshScalarData(w, name, f.Values); err != nil {
				return
			}
		}
	}
	return
}

package InputParameters

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ghodss/yaml"
	"go.uber.org/multierr"

	"github.com/notargets/goldrb/ldrb"
	"github.com/notargets/goldrb/mesh"
	"github.com/notargets/goldrb/utils"
)

// Parameters obtained from the YAML input file. Zero values keep the
// defaults of ldrb.DefaultConfig.
type LDRBParameters struct {
	Title           string                  `json:"Title"`
	Mode            string                  `json:"Mode"`          // auto, univentricular or biventricular
	FunctionSpace   string                  `json:"FunctionSpace"` // DG_0 or CG_1
	RegionSource    string                  `json:"RegionSource"`  // tags or blend
	SeptumHalfWidth float64                 `json:"SeptumHalfWidth"`
	ValueTol        float64                 `json:"ValueTol"`
	GradientTol     float64                 `json:"GradientTol"`
	SolverTol       float64                 `json:"SolverTol"`
	MaxIterations   int                     `json:"MaxIterations"`
	ParallelDegree  int                     `json:"ParallelDegree"`
	Angles          map[string]*ldrb.Angles `json:"Angles"`  // Region name -> angles, replaces all four values
	Markers         map[string]int          `json:"Markers"` // Surface name -> physical tag
	Regions         map[string]int          `json:"Regions"` // Region name -> physical tag
}

func (ip *LDRBParameters) Parse(data []byte) error {
	return yaml.Unmarshal(data, ip)
}

func (ip *LDRBParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", ip.Title)
	fmt.Printf("[%s]\t\t\t= Mode\n", ip.Mode)
	fmt.Printf("[%s]\t\t\t= Function Space\n", ip.FunctionSpace)
	fmt.Printf("[%s]\t\t\t= Region Source\n", ip.RegionSource)
	fmt.Printf("%8.5f\t\t= Septum Half Width\n", ip.SeptumHalfWidth)
	keys := make([]string, 0, len(ip.Angles))
	for k := range ip.Angles {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		a := ip.Angles[key]
		if a == nil {
			fmt.Printf("Angles[%s] = unset\n", key)
			continue
		}
		fmt.Printf("Angles[%s] = alpha %g/%g, beta %g/%g\n", key, a.AlphaEndo, a.AlphaEpi, a.BetaEndo, a.BetaEpi)
	}
	keys = keys[:0]
	for k := range ip.Markers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Printf("Markers[%s] = %d\n", key, ip.Markers[key])
	}
}

// ToConfig overlays the parameters on ldrb.DefaultConfig
func (ip *LDRBParameters) ToConfig() (cfg ldrb.Config, err error) {
	var e error
	cfg = ldrb.DefaultConfig()
	if ip.Mode != "" {
		cfg.Mode, e = ldrb.NewMode(ip.Mode)
		err = multierr.Append(err, e)
	}
	cfg.Space, e = ldrb.NewSpace(ip.FunctionSpace)
	err = multierr.Append(err, e)
	switch strings.ToLower(ip.RegionSource) {
	case "", "tags":
		cfg.RegionSource = ldrb.RegionsFromTags
	case "blend":
		cfg.RegionSource = ldrb.RegionsFromBlend
	default:
		err = multierr.Append(err, &ldrb.ConfigurationError{Field: "region_source",
			Reason: fmt.Sprintf("unknown region source %q", ip.RegionSource)})
	}
	cfg.SeptumHalfWidth = ip.SeptumHalfWidth
	if ip.ValueTol != 0 {
		cfg.ValueTol = ip.ValueTol
	}
	if ip.GradientTol != 0 {
		cfg.GradientTol = ip.GradientTol
	}
	cfg.ParallelDegree = ip.ParallelDegree
	if ip.SolverTol != 0 || ip.MaxIterations != 0 {
		cg := utils.NewConjugateGradient()
		if ip.SolverTol != 0 {
			cg.Tolerance = ip.SolverTol
		}
		cg.MaxIterations = ip.MaxIterations
		cfg.Solver = cg
	}
	for name, a := range ip.Angles {
		r, ok := mesh.ParseRegion(name)
		if !ok || a == nil {
			err = multierr.Append(err, &ldrb.ConfigurationError{Field: "angles",
				Reason: fmt.Sprintf("invalid angles entry %q", name)})
			continue
		}
		ang := *a
		cfg.Angles[r] = &ang
	}
	return
}

// TagMap overlays the physical tags on mesh.DefaultTagMap
func (ip *LDRBParameters) TagMap() (tm mesh.TagMap, err error) {
	tm = mesh.DefaultTagMap()
	if len(ip.Markers) != 0 {
		tm.Markers = make(map[int]mesh.Marker)
	}
	for name, tag := range ip.Markers {
		mk, ok := mesh.ParseMarker(name)
		if !ok {
			err = multierr.Append(err, &ldrb.ConfigurationError{Field: "markers",
				Reason: fmt.Sprintf("unknown surface %q", name)})
			continue
		}
		tm.Markers[tag] = mk
	}
	for name, tag := range ip.Regions {
		r, ok := mesh.ParseRegion(name)
		if !ok {
			err = multierr.Append(err, &ldrb.ConfigurationError{Field: "regions",
				Reason: fmt.Sprintf("unknown region %q", name)})
			continue
		}
		tm.Regions[tag] = r
	}
	return
}

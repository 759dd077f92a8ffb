package model

import (
	"io"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/encoding/yaml"

	_ "embed"
)

// Defaults used when the config file leaves a field out. Report file names
// are the ones the scanners write in the pipeline.
const (
	DefaultBanditReport  = "bandit-report.json"
	DefaultSafetyReport  = "safety-report.json"
	DefaultZAPReport     = "zap_report.json"
	DefaultDashboardPath = "security-dashboard.html"
	DefaultCards         = 5
	DefaultHistoryPath   = "gatekeeper.db"
	DefaultBatchWorkers  = 4
)

//go:embed config.cue
var cueSource []byte

var (
	cueCtx *cue.Context
	schema cue.Value
)

func init() {
	if len(cueSource) == 0 {
		panic("variable cueSource is empty")
	}
	cueCtx = cuecontext.New()
	compiled := cueCtx.CompileBytes(cueSource)
	if compiled.Err() != nil {
		panic(compiled.Err())
	}

	if err := compiled.Validate(); err != nil {
		panic(err)
	}

	schema = compiled.LookupPath(cue.ParsePath("#Config"))
	if schema.Err() != nil {
		panic(schema.Err())
	}
}

type Config struct {
	Version   int        `json:"version" yaml:"version"` // fixed 0 for now
	Reports   *Reports   `json:"reports,omitempty" yaml:"reports,omitempty"`
	Dashboard *Dashboard `json:"dashboard,omitempty" yaml:"dashboard,omitempty"`
	History   *History   `json:"history,omitempty" yaml:"history,omitempty"`
	Batch     *Batch     `json:"batch,omitempty" yaml:"batch,omitempty"`
	Service   *Service   `json:"service,omitempty" yaml:"service,omitempty"`
}

// Reports are the default artifact paths, flags take precedence.
type Reports struct {
	Bandit *string `json:"bandit,omitempty" yaml:"bandit,omitempty"`
	Safety *string `json:"safety,omitempty" yaml:"safety,omitempty"`
	ZAP    *string `json:"zap,omitempty" yaml:"zap,omitempty"`
}

type Dashboard struct {
	Output *string `json:"output,omitempty" yaml:"output,omitempty"`
	Cards  *int    `json:"cards,omitempty" yaml:"cards,omitempty"` // max finding cards per source
	// Simulate replaces computed counts with demonstration values. Only the
	// dashboard reads it.
	Simulate *bool `json:"simulate,omitempty" yaml:"simulate,omitempty"`
}

type History struct {
	Enabled *bool   `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Path    *string `json:"path,omitempty" yaml:"path,omitempty"`
}

type Batch struct {
	Workers *int `json:"workers,omitempty" yaml:"workers,omitempty"`
}

type Service struct {
	Verbose *bool `json:"verbose,omitempty" yaml:"verbose,omitempty"`
}

// DefaultConfig is used when no config file exists.
func DefaultConfig() Config {
	return Config{
		Version: 0,
		Reports: &Reports{
			Bandit: ptr(DefaultBanditReport),
			Safety: ptr(DefaultSafetyReport),
			ZAP:    ptr(DefaultZAPReport),
		},
		Dashboard: &Dashboard{
			Output:   ptr(DefaultDashboardPath),
			Cards:    ptr(DefaultCards),
			Simulate: ptr(false),
		},
		History: &History{
			Enabled: ptr(false),
			Path:    ptr(DefaultHistoryPath),
		},
		Batch: &Batch{
			Workers: ptr(DefaultBatchWorkers),
		},
		Service: &Service{
			Verbose: ptr(false),
		},
	}
}

// LoadConfig validates YAML from r against CUE schema and decodes to Config.
func LoadConfig(r io.Reader) (Config, error) {
	yamlFile, err := yaml.Extract("gatekeeper.yaml", r)
	if err != nil {
		return Config{}, err
	}
	yamlValue := cueCtx.BuildFile(yamlFile)

	unified := schema.Unify(yamlValue)
	if err := unified.Validate(
		cue.All(),          // all constraints
		cue.Concrete(true), // no incomplete values
	); err != nil {
		return Config{}, err
	}

	var out Config
	if err := unified.Decode(&out); err != nil {
		return Config{}, err
	}

	return out, nil
}

func (c Config) BanditReport() string {
	if c.Reports == nil {
		return DefaultBanditReport
	}
	return or(c.Reports.Bandit, DefaultBanditReport)
}

func (c Config) SafetyReport() string {
	if c.Reports == nil {
		return DefaultSafetyReport
	}
	return or(c.Reports.Safety, DefaultSafetyReport)
}

func (c Config) ZAPReport() string {
	if c.Reports == nil {
		return DefaultZAPReport
	}
	return or(c.Reports.ZAP, DefaultZAPReport)
}

func (c Config) DashboardOutput() string {
	if c.Dashboard == nil {
		return DefaultDashboardPath
	}
	return or(c.Dashboard.Output, DefaultDashboardPath)
}

func (c Config) DashboardCards() int {
	if c.Dashboard == nil {
		return DefaultCards
	}
	return or(c.Dashboard.Cards, DefaultCards)
}

func (c Config) DashboardSimulate() bool {
	if c.Dashboard == nil {
		return false
	}
	return or(c.Dashboard.Simulate, false)
}

func (c Config) HistoryEnabled() bool {
	if c.History == nil {
		return false
	}
	return or(c.History.Enabled, false)
}

func (c Config) HistoryPath() string {
	if c.History == nil {
		return DefaultHistoryPath
	}
	return or(c.History.Path, DefaultHistoryPath)
}

func (c Config) BatchWorkers() int {
	if c.Batch == nil {
		return DefaultBatchWorkers
	}
	return or(c.Batch.Workers, DefaultBatchWorkers)
}

func (c Config) Verbose() bool {
	if c.Service == nil {
		return false
	}
	return or(c.Service.Verbose, false)
}

func ptr[T any](v T) *T {
	return &v
}

func or[T any](pt *T, dflt T) T {
	if pt == nil {
		return dflt
	}
	return *pt
}

// SetVerbose overrides service.verbose, used for the --verbose flag.
func (c *Config) SetVerbose(v bool) {
	if c.Service == nil {
		c.Service = &Service{}
	}
	c.Service.Verbose = ptr(v)
}

// Package config loads and defaults the fuzzer's configuration, the
// same yaml-tag-struct-plus-Default*Config style the teacher uses for
// its target/engine/analyzer config, generalized to spec §6's CLI
// surface (FuzzConfig, EngineConfig, ScheduleConfig, OutputConfig).
// Precedence, lowest to highest: built-in defaults, YAML file, CLI flags.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Engine selects the novelty policy and random source (spec §6).
type Engine string

const (
	EngineZest      Engine = "zest"
	EngineZeal      Engine = "zeal"
	EngineBediv     Engine = "bedivfuzz"
)

// Instrumentation selects the coverage instrumentation backend (spec §6).
type Instrumentation string

const (
	InstrumentationFast   Instrumentation = "fast"
	InstrumentationJanala Instrumentation = "janala"
)

// FuzzConfig names the harness entry point and seed/output layout.
type FuzzConfig struct {
	Class  string `yaml:"class"`
	Method string `yaml:"method"`
	In     string `yaml:"in"`
	Out    string `yaml:"out"`
}

// EngineConfig selects the fuzzing engine and its randomness/novelty knobs.
type EngineConfig struct {
	Engine               Engine          `yaml:"engine"`
	RandomSeed           int64           `yaml:"randomSeed"`
	Blind                bool            `yaml:"blind"`
	NoCov                bool            `yaml:"noCov"`
	FixedSize            bool            `yaml:"fixedSize"`
	AdmitOnDiversityGain bool            `yaml:"admitOnDiversityGain"`
	DiversityEpsilon     float64         `yaml:"diversityEpsilon"`
	Instrumentation      Instrumentation `yaml:"instrumentation"`
	Excludes             []string        `yaml:"excludes"`
	Includes             []string        `yaml:"includes"`
}

// ScheduleConfig bounds the run and its termination/throttle behavior.
type ScheduleConfig struct {
	Time           string        `yaml:"time"`
	Trials         int64         `yaml:"trials"`
	ExitOnCrash    bool          `yaml:"exitOnCrash"`
	RunTimeout     time.Duration `yaml:"runTimeout"`
	MaxExecsPerSec float64       `yaml:"maxExecsPerSec"`
}

// OutputConfig controls reporting and the optional TUI/HTTP surfaces.
type OutputConfig struct {
	SaveAll                bool   `yaml:"saveAll"`
	SaveBranchHitCounts    bool   `yaml:"saveBranchHitCounts"`
	StatsRefreshTimePeriod int    `yaml:"statsRefreshTimePeriod"`
	StatsStyle             string `yaml:"statsStyle"`
	TUI                     bool   `yaml:"tui"`
	StatusAddr              string `yaml:"statusAddr"`
	Verbose                 bool   `yaml:"verbose"`
}

// Config is the root configuration document.
type Config struct {
	Fuzz     FuzzConfig     `yaml:"fuzz"`
	Engine   EngineConfig   `yaml:"engine"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Output   OutputConfig   `yaml:"output"`
}

// DefaultFuzzConfig returns the zero-configuration seed/output layout.
func DefaultFuzzConfig() FuzzConfig {
	return FuzzConfig{In: "in", Out: "out"}
}

// DefaultEngineConfig returns the classical-engine defaults: zest
// novelty policy, diversity-gain admission off (spec §9 Open Question).
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Engine:               EngineZest,
		AdmitOnDiversityGain: false,
		DiversityEpsilon:     0.01,
		Instrumentation:      InstrumentationFast,
	}
}

// DefaultScheduleConfig returns sensible bounds for an unattended run.
func DefaultScheduleConfig() ScheduleConfig {
	return ScheduleConfig{
		Time:       "1h",
		RunTimeout: 10 * time.Second,
	}
}

// DefaultOutputConfig returns the AFL-style, non-TUI default surface.
func DefaultOutputConfig() OutputConfig {
	return OutputConfig{
		StatsRefreshTimePeriod: 3000,
		StatsStyle:             "afl",
	}
}

// DefaultConfig assembles the full set of defaults.
func DefaultConfig() *Config {
	return &Config{
		Fuzz:     DefaultFuzzConfig(),
		Engine:   DefaultEngineConfig(),
		Schedule: DefaultScheduleConfig(),
		Output:   DefaultOutputConfig(),
	}
}

// Load reads a YAML config file and overlays it onto DefaultConfig.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// ParseDuration parses the `[Nh][Nm][Ns]` format spec §6 uses for
// `time`, falling back to Go's own duration syntax since it is a
// superset of the documented subset.
func ParseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("config: invalid duration %q: %w", s, err)
	}
	return d, nil
}

// ApplyEngineDefaults reconciles the engine-intrinsic behavior spec §6's
// engine column and §4.4 describe: `bedivfuzz` is the behavioral-diversity
// engine, so it always admits on Hill-number growth in addition to novelty;
// `zest` and `zeal` leave AdmitOnDiversityGain at its configured/flag
// value. The choice source is not set here: SplitMode derives it from the
// engine. Call after flags/YAML are merged and before Validate.
func (c *Config) ApplyEngineDefaults() {
	if c.Engine.Engine == EngineBediv {
		c.Engine.AdmitOnDiversityGain = true
	}
}

// SplitMode reports whether the selected engine reads from the split
// (structure/value) choice source rather than the linear one (spec §2,
// §6): true only for the behavioral-diversity engine, `bedivfuzz`.
func (c *Config) SplitMode() bool {
	return c.Engine.Engine == EngineBediv
}

// Validate checks the flag combinations spec §7's ConfigurationError
// covers: noCov requires blind, and the engine name must be recognized.
func (c *Config) Validate() error {
	if c.Engine.NoCov && !c.Engine.Blind {
		return fmt.Errorf("noCov is only valid with blind")
	}
	switch c.Engine.Engine {
	case EngineZest, EngineZeal, EngineBediv:
	default:
		return fmt.Errorf("unknown engine %q", c.Engine.Engine)
	}
	return nil
}

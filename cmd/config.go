package cmd

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/inference-sim/fieldsim/sim"
	"github.com/inference-sim/fieldsim/sim/operators"
	"github.com/inference-sim/fieldsim/sim/spectral"
	"github.com/inference-sim/fieldsim/sim/trace"
)

// ProblemConfig is the top-level structure of a problem file.
type ProblemConfig struct {
	Domain    DomainConfig     `yaml:"domain"`
	Buffers   []BufferConfig   `yaml:"buffers"`
	Operators []operators.Spec `yaml:"operators"`
	Solver    *SolverConfig    `yaml:"solver,omitempty"`
	Seed      int64            `yaml:"seed"`
	Trace     string           `yaml:"trace"`
}

// DomainConfig describes the periodic box and its sampling.
type DomainConfig struct {
	Rank     int       `yaml:"rank"`
	Min      []float64 `yaml:"min"`
	Max      []float64 `yaml:"max"`
	N        []int     `yaml:"n"`
	Interval string    `yaml:"interval"` // coordinates used to sample initial conditions
	Workers  int       `yaml:"workers"`
}

// BufferConfig declares one buffer.
type BufferConfig struct {
	Name       string         `yaml:"name"`
	Value      string         `yaml:"value"` // scalar (default), vector, symmetric_tensor
	Reciprocal bool           `yaml:"reciprocal"`
	History    *bool          `yaml:"history"` // default true
	HostCopy   bool           `yaml:"host_copy"`
	Initial    *InitialConfig `yaml:"initial,omitempty"`
}

// InitialConfig selects the initial state of a scalar buffer. Reciprocal
// buffers are sampled in real space and transformed.
type InitialConfig struct {
	Type      string  `yaml:"type"`
	Value     float64 `yaml:"value"`     // constant
	Amplitude float64 `yaml:"amplitude"` // sine, noise
	Modes     []int   `yaml:"modes"`     // sine: integer wave number per dimension
	Mean      float64 `yaml:"mean"`      // sine, noise: offset added to every point
}

// SolverConfig configures the semi-implicit integrator.
type SolverConfig struct {
	Variable    string  `yaml:"variable"`
	Linear      string  `yaml:"linear"`
	Nonlinear   string  `yaml:"nonlinear"`
	Order       int     `yaml:"order"`
	Dt          float64 `yaml:"dt"`
	Steps       int     `yaml:"steps"`
	ReportEvery int     `yaml:"report_every"`
}

// ValidInitialConditions is the set of recognized initial condition types.
var ValidInitialConditions = map[string]bool{
	"constant": true,
	"sine":     true,
	"noise":    true,
}

// LoadProblem reads and strictly decodes a problem file. Unknown keys are
// rejected so that typos do not silently fall back to defaults.
func LoadProblem(path string) (*ProblemConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading problem file: %w", err)
	}
	return ParseProblem(data)
}

// ParseProblem decodes a problem definition from YAML.
func ParseProblem(data []byte) (*ProblemConfig, error) {
	var cfg ProblemConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing problem file: %w", err)
	}
	return &cfg, nil
}

// Validate checks the problem for structural errors that can be detected
// before any buffer is allocated.
func (c *ProblemConfig) Validate() error {
	if err := c.Domain.validate(); err != nil {
		return fmt.Errorf("domain: %w", err)
	}
	if len(c.Buffers) == 0 {
		return fmt.Errorf("at least one buffer is required")
	}
	seen := make(map[string]bool, len(c.Buffers))
	for i, b := range c.Buffers {
		if b.Name == "" {
			return fmt.Errorf("buffers[%d]: name is required", i)
		}
		if seen[b.Name] {
			return &sim.DuplicateNameError{Kind: "buffer", Name: b.Name}
		}
		seen[b.Name] = true
		if err := b.validate(c.Domain.Rank); err != nil {
			return fmt.Errorf("buffer %q: %w", b.Name, err)
		}
	}
	for i, op := range c.Operators {
		if !operators.IsValidType(op.Type) {
			return fmt.Errorf("operators[%d]: unknown operator type %q; valid types: %v", i, op.Type, operators.Types())
		}
	}
	if c.Solver != nil {
		if err := c.Solver.validate(); err != nil {
			return fmt.Errorf("solver: %w", err)
		}
	}
	if !trace.IsValidTraceLevel(c.Trace) {
		return fmt.Errorf("unknown trace level %q", c.Trace)
	}
	return nil
}

func (d DomainConfig) validate() error {
	if d.Rank < 1 || d.Rank > spectral.MaxRank {
		return &sim.UnsupportedRankError{Rank: d.Rank, Op: "domain"}
	}
	for _, f := range []struct {
		what string
		n    int
	}{{"min", len(d.Min)}, {"max", len(d.Max)}, {"n", len(d.N)}} {
		if f.n != d.Rank {
			return &sim.InvalidDimensionError{Dim: f.n, Rank: d.Rank, What: f.what}
		}
	}
	if _, err := spectral.ParseInterval(d.Interval); err != nil {
		return err
	}
	if d.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", d.Workers)
	}
	return nil
}

func (b BufferConfig) validate(rank int) error {
	kind, err := sim.ParseValueKind(b.Value)
	if err != nil {
		return err
	}
	if b.Initial == nil {
		return nil
	}
	if !ValidInitialConditions[b.Initial.Type] {
		return fmt.Errorf("unknown initial condition %q", b.Initial.Type)
	}
	if kind != sim.Scalar {
		return fmt.Errorf("initial conditions apply to scalar buffers, got %s", kind)
	}
	if b.Initial.Type == "sine" && len(b.Initial.Modes) != rank {
		return &sim.InvalidDimensionError{Dim: len(b.Initial.Modes), Rank: rank, What: "modes"}
	}
	return nil
}

func (s SolverConfig) validate() error {
	if s.Steps < 0 {
		return fmt.Errorf("steps must be non-negative, got %d", s.Steps)
	}
	if s.ReportEvery < 0 {
		return fmt.Errorf("report_every must be non-negative, got %d", s.ReportEvery)
	}
	return s.integratorConfig().Validate()
}

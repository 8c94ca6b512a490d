// Package operators provides the concrete operators a problem file can
// instantiate: real/reciprocal transforms, spectral derivatives, pointwise
// algebra and constant reciprocal symbols.
//
// Operators are built by name through a factory table. Each factory decodes
// its own parameters from the raw YAML node and binds its buffers against the
// store up front, so a misconfigured operator fails at setup rather than on
// the first evaluation.
package operators

import (
	"bytes"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/inference-sim/fieldsim/sim"
	"github.com/inference-sim/fieldsim/sim/spectral"
)

// Spec describes one operator instance.
type Spec struct {
	Type    string    `yaml:"type"`
	Name    string    `yaml:"name"`
	Inputs  []string  `yaml:"inputs"`
	Outputs []string  `yaml:"outputs"`
	Params  yaml.Node `yaml:"params"`
}

// Env is the context every factory builds against.
type Env struct {
	Store *sim.Store
	Grid  *spectral.Grid
}

// Factory constructs an operator from its spec.
type Factory func(env Env, spec Spec) (sim.Operator, error)

var factories = map[string]Factory{}

// Register adds a factory under typ. It panics if typ is already taken,
// since registration happens from init().
func Register(typ string, f Factory) {
	if _, dup := factories[typ]; dup {
		panic(fmt.Sprintf("operators: factory %q registered twice", typ))
	}
	factories[typ] = f
}

// IsValidType returns true if typ names a registered operator factory.
func IsValidType(typ string) bool {
	_, ok := factories[typ]
	return ok
}

// Types returns the registered operator type names, sorted.
func Types() []string {
	names := make([]string, 0, len(factories))
	for k := range factories {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// New builds the operator described by spec.
func New(env Env, spec Spec) (sim.Operator, error) {
	f, ok := factories[spec.Type]
	if !ok {
		return nil, fmt.Errorf("unknown operator type %q (valid: %v)", spec.Type, Types())
	}
	if spec.Name == "" {
		return nil, fmt.Errorf("%s operator: name is required", spec.Type)
	}
	op, err := f(env, spec)
	if err != nil {
		return nil, fmt.Errorf("%s operator %q: %w", spec.Type, spec.Name, err)
	}
	return op, nil
}

// decodeParams decodes spec.Params into dst, rejecting unknown fields. An
// absent params block leaves dst at its defaults.
func decodeParams(spec Spec, dst any) error {
	if spec.Params.Kind == 0 {
		return nil
	}
	raw, err := yaml.Marshal(&spec.Params)
	if err != nil {
		return fmt.Errorf("params: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("params: %w", err)
	}
	return nil
}

// expectCounts checks the number of bound buffers.
func expectCounts(spec Spec, inputs, outputs int) error {
	if inputs >= 0 && len(spec.Inputs) != inputs {
		return fmt.Errorf("expects %d input(s), got %d", inputs, len(spec.Inputs))
	}
	if len(spec.Outputs) != outputs {
		return fmt.Errorf("expects %d output(s), got %d", outputs, len(spec.Outputs))
	}
	return nil
}

// bindAll resolves names to handles on behalf of operator.
func bindAll(s *sim.Store, operator string, names []string) ([]sim.Handle, error) {
	hs := make([]sim.Handle, len(names))
	for i, n := range names {
		h, err := sim.Bind(s, operator, n)
		if err != nil {
			return nil, err
		}
		hs[i] = h
	}
	return hs, nil
}

// expectKind checks a buffer's value kind.
func expectKind(b *sim.Buffer, want sim.ValueKind) error {
	if b.Kind() != want {
		return fmt.Errorf("buffer %q is %s, %s expected", b.Name(), b.Kind(), want)
	}
	return nil
}

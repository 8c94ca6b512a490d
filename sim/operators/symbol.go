package operators

import (
	"fmt"
	"math"

	"github.com/inference-sim/fieldsim/sim"
)

// LaplacianSymbol fills a reciprocal scalar buffer with the Fourier symbol
// coefficient·(−|2πk|²)^power. It has no inputs, so its output never changes
// and is computed on the first evaluation only.
type LaplacianSymbol struct {
	sim.BaseOperator
	store  *sim.Store
	out    sim.Handle
	symbol *sim.Array[complex128]
	filled bool
}

type laplacianSymbolParams struct {
	Coefficient float64 `yaml:"coefficient"`
	Power       *int    `yaml:"power"`
}

// NewLaplacianSymbol builds the constant symbol operator.
// params: {coefficient, power} (power defaults to 1).
func NewLaplacianSymbol(env Env, spec Spec) (sim.Operator, error) {
	var p laplacianSymbolParams
	if err := decodeParams(spec, &p); err != nil {
		return nil, err
	}
	power := 1
	if p.Power != nil {
		power = *p.Power
	}
	if power < 0 {
		return nil, fmt.Errorf("power must be non-negative, got %d", power)
	}
	if err := expectCounts(spec, 0, 1); err != nil {
		return nil, err
	}
	out, err := sim.BindSpectrum(env.Store, spec.Name, spec.Outputs[0])
	if err != nil {
		return nil, err
	}
	if err := expectKind(env.Store.At(out), sim.Scalar); err != nil {
		return nil, err
	}

	k2 := env.Grid.WaveNumberSquared()
	symbol := sim.NewArray[complex128](k2.Shape()...)
	for i, v := range k2.Data() {
		symbol.Data()[i] = complex(p.Coefficient*math.Pow(-v, float64(power)), 0)
	}
	return &LaplacianSymbol{
		BaseOperator: sim.NewBaseOperator(spec.Name, nil, spec.Outputs),
		store:        env.Store,
		out:          out,
		symbol:       symbol,
	}, nil
}

// ComputeBuffer implements sim.Operator.
func (o *LaplacianSymbol) ComputeBuffer() error {
	if o.filled {
		return nil
	}
	if err := o.store.At(o.out).Spectrum().CopyFrom(o.symbol); err != nil {
		return err
	}
	o.filled = true
	return nil
}

package operators

import (
	"github.com/inference-sim/fieldsim/sim"
	"github.com/inference-sim/fieldsim/sim/spectral"
)

// Transform moves a field between real and reciprocal space, one value
// component at a time. The direction follows from the bound buffers.
type Transform struct {
	sim.BaseOperator
	store *sim.Store
	grid  *spectral.Grid
	in    sim.Handle
	out   sim.Handle
}

func newTransform(env Env, spec Spec, forward bool) (sim.Operator, error) {
	if err := expectCounts(spec, 1, 1); err != nil {
		return nil, err
	}
	bindIn, bindOut := sim.BindReal, sim.BindSpectrum
	if !forward {
		bindIn, bindOut = sim.BindSpectrum, sim.BindReal
	}
	in, err := bindIn(env.Store, spec.Name, spec.Inputs[0])
	if err != nil {
		return nil, err
	}
	out, err := bindOut(env.Store, spec.Name, spec.Outputs[0])
	if err != nil {
		return nil, err
	}
	if err := expectKind(env.Store.At(out), env.Store.At(in).Kind()); err != nil {
		return nil, err
	}
	return &Transform{
		BaseOperator: sim.NewBaseOperator(spec.Name, spec.Inputs, spec.Outputs),
		store:        env.Store,
		grid:         env.Grid,
		in:           in,
		out:          out,
	}, nil
}

// NewForwardTransform builds a real → reciprocal transform.
func NewForwardTransform(env Env, spec Spec) (sim.Operator, error) {
	return newTransform(env, spec, true)
}

// NewInverseTransform builds a reciprocal → real transform.
func NewInverseTransform(env Env, spec Spec) (sim.Operator, error) {
	return newTransform(env, spec, false)
}

// ComputeBuffer implements sim.Operator.
func (o *Transform) ComputeBuffer() error {
	comps, err := readSpectra(o.grid, o.store.At(o.in))
	if err != nil {
		return err
	}
	return writeSpectra(o.grid, o.store.At(o.out), comps)
}

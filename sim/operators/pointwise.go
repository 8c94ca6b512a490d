package operators

import (
	"fmt"

	"github.com/inference-sim/fieldsim/sim"
)

// Polynomial evaluates Σ a_i x^i pointwise on a real buffer.
type Polynomial struct {
	sim.BaseOperator
	store  *sim.Store
	in     sim.Handle
	out    sim.Handle
	coeffs []float64
}

type polynomialParams struct {
	Coefficients []float64 `yaml:"coefficients"`
}

// NewPolynomial builds a polynomial operator. params: {coefficients: [a0, a1, ...]}.
func NewPolynomial(env Env, spec Spec) (sim.Operator, error) {
	var p polynomialParams
	if err := decodeParams(spec, &p); err != nil {
		return nil, err
	}
	if len(p.Coefficients) == 0 {
		return nil, fmt.Errorf("coefficients must not be empty")
	}
	if err := expectCounts(spec, 1, 1); err != nil {
		return nil, err
	}
	in, err := sim.BindReal(env.Store, spec.Name, spec.Inputs[0])
	if err != nil {
		return nil, err
	}
	out, err := sim.BindReal(env.Store, spec.Name, spec.Outputs[0])
	if err != nil {
		return nil, err
	}
	if err := expectKind(env.Store.At(out), env.Store.At(in).Kind()); err != nil {
		return nil, err
	}
	return &Polynomial{
		BaseOperator: sim.NewBaseOperator(spec.Name, spec.Inputs, spec.Outputs),
		store:        env.Store,
		in:           in,
		out:          out,
		coeffs:       append([]float64(nil), p.Coefficients...),
	}, nil
}

// ComputeBuffer implements sim.Operator.
func (o *Polynomial) ComputeBuffer() error {
	x := o.store.At(o.in).Real().Data()
	y := o.store.At(o.out).Real().Data()
	last := len(o.coeffs) - 1
	for i, v := range x {
		acc := o.coeffs[last]
		for k := last - 1; k >= 0; k-- {
			acc = acc*v + o.coeffs[k]
		}
		y[i] = acc
	}
	return nil
}

// LinearCombination computes Σ c_i b_i over buffers of one space and shape.
type LinearCombination struct {
	sim.BaseOperator
	store  *sim.Store
	ins    []sim.Handle
	out    sim.Handle
	coeffs []float64
}

type linearCombinationParams struct {
	Coefficients []float64 `yaml:"coefficients"`
}

// NewLinearCombination builds a linear combination operator.
// params: {coefficients: [c0, c1, ...]}, one per input.
func NewLinearCombination(env Env, spec Spec) (sim.Operator, error) {
	var p linearCombinationParams
	if err := decodeParams(spec, &p); err != nil {
		return nil, err
	}
	if len(spec.Inputs) == 0 {
		return nil, fmt.Errorf("expects at least one input")
	}
	if err := expectCounts(spec, len(p.Coefficients), 1); err != nil {
		return nil, fmt.Errorf("%w (one coefficient per input)", err)
	}
	hs, err := bindAll(env.Store, spec.Name, append(append([]string(nil), spec.Inputs...), spec.Outputs[0]))
	if err != nil {
		return nil, err
	}
	out := env.Store.At(hs[len(hs)-1])
	for _, h := range hs[:len(hs)-1] {
		b := env.Store.At(h)
		if b.Reciprocal() != out.Reciprocal() {
			return nil, &sim.SpaceMismatchError{Buffer: b.Name(), WantReciprocal: out.Reciprocal()}
		}
		if !sim.ShapeEqual(b.Shape(), out.Shape()) {
			return nil, &sim.ShapeMismatchError{Want: out.Shape(), Got: b.Shape()}
		}
	}
	return &LinearCombination{
		BaseOperator: sim.NewBaseOperator(spec.Name, spec.Inputs, spec.Outputs),
		store:        env.Store,
		ins:          hs[:len(hs)-1],
		out:          hs[len(hs)-1],
		coeffs:       append([]float64(nil), p.Coefficients...),
	}, nil
}

// ComputeBuffer implements sim.Operator.
func (o *LinearCombination) ComputeBuffer() error {
	out := o.store.At(o.out)
	if out.Reciprocal() {
		combine(out.Spectrum().Data(), o.coeffs, func(i int) []complex128 { return o.store.At(o.ins[i]).Spectrum().Data() })
		return nil
	}
	combine(out.Real().Data(), o.coeffs, func(i int) []float64 { return o.store.At(o.ins[i]).Real().Data() })
	return nil
}

func combine[T sim.Element](dst []T, coeffs []float64, input func(i int) []T) {
	clear(dst)
	for i, c := range coeffs {
		w := weight[T](c)
		for k, v := range input(i) {
			dst[k] += w * v
		}
	}
}

// weight lifts a real coefficient into the element type.
func weight[T sim.Element](c float64) T {
	var w T
	switch p := any(&w).(type) {
	case *float64:
		*p = c
	case *complex128:
		*p = complex(c, 0)
	}
	return w
}

// Multiply computes the pointwise product of two real buffers, optionally
// scaled. The second input may be a scalar field multiplying every value
// component of the first.
type Multiply struct {
	sim.BaseOperator
	store *sim.Store
	a, b  sim.Handle
	out   sim.Handle
	scale float64
}

type multiplyParams struct {
	Scale *float64 `yaml:"scale"`
}

// NewMultiply builds a product operator. params: {scale} (default 1).
func NewMultiply(env Env, spec Spec) (sim.Operator, error) {
	var p multiplyParams
	if err := decodeParams(spec, &p); err != nil {
		return nil, err
	}
	if err := expectCounts(spec, 2, 1); err != nil {
		return nil, err
	}
	hs := make([]sim.Handle, 3)
	for i, name := range []string{spec.Inputs[0], spec.Inputs[1], spec.Outputs[0]} {
		h, err := sim.BindReal(env.Store, spec.Name, name)
		if err != nil {
			return nil, err
		}
		hs[i] = h
	}
	a, b, out := env.Store.At(hs[0]), env.Store.At(hs[1]), env.Store.At(hs[2])
	if !sim.ShapeEqual(a.Shape(), out.Shape()) {
		return nil, &sim.ShapeMismatchError{Want: out.Shape(), Got: a.Shape()}
	}
	if b.Kind() != sim.Scalar && !sim.ShapeEqual(b.Shape(), out.Shape()) {
		return nil, &sim.ShapeMismatchError{Want: out.Shape(), Got: b.Shape()}
	}
	scale := 1.0
	if p.Scale != nil {
		scale = *p.Scale
	}
	return &Multiply{
		BaseOperator: sim.NewBaseOperator(spec.Name, spec.Inputs, spec.Outputs),
		store:        env.Store,
		a:            hs[0],
		b:            hs[1],
		out:          hs[2],
		scale:        scale,
	}, nil
}

// ComputeBuffer implements sim.Operator.
func (o *Multiply) ComputeBuffer() error {
	a := o.store.At(o.a).Real().Data()
	b := o.store.At(o.b).Real().Data()
	out := o.store.At(o.out).Real().Data()
	// b is either the same length as a or one value per grid point.
	stride := len(a) / len(b)
	for i, v := range a {
		out[i] = o.scale * v * b[i/stride]
	}
	return nil
}

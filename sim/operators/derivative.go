package operators

import (
	"github.com/inference-sim/fieldsim/sim"
	"github.com/inference-sim/fieldsim/sim/spectral"
)

// Spectral derivative operators accept real or reciprocal buffers on either
// side. Real inputs are transformed forward once per component; real outputs
// are transformed back once per component.

// spectralBase holds the bindings shared by the derivative operators.
type spectralBase struct {
	sim.BaseOperator
	store *sim.Store
	grid  *spectral.Grid
	in    sim.Handle
	out   sim.Handle
}

func newSpectralBase(env Env, spec Spec, inKind, outKind sim.ValueKind) (spectralBase, error) {
	if err := expectCounts(spec, 1, 1); err != nil {
		return spectralBase{}, err
	}
	hs, err := bindAll(env.Store, spec.Name, []string{spec.Inputs[0], spec.Outputs[0]})
	if err != nil {
		return spectralBase{}, err
	}
	if err := expectKind(env.Store.At(hs[0]), inKind); err != nil {
		return spectralBase{}, err
	}
	if err := expectKind(env.Store.At(hs[1]), outKind); err != nil {
		return spectralBase{}, err
	}
	return spectralBase{
		BaseOperator: sim.NewBaseOperator(spec.Name, spec.Inputs, spec.Outputs),
		store:        env.Store,
		grid:         env.Grid,
		in:           hs[0],
		out:          hs[1],
	}, nil
}

// inputKind returns the kind of the bound input buffer, for operators that
// preserve it.
func inputKind(env Env, spec Spec) (sim.ValueKind, error) {
	if len(spec.Inputs) == 0 {
		return sim.Scalar, nil
	}
	b, err := env.Store.Get(spec.Inputs[0])
	if err != nil {
		return sim.Scalar, &sim.UnknownBufferError{Name: spec.Inputs[0], Operator: spec.Name}
	}
	return b.Kind(), nil
}

// Derivative computes ∂/∂x_dim of every value component.
type Derivative struct {
	spectralBase
	dim int
}

type derivativeParams struct {
	Dim int `yaml:"dim"`
}

// NewDerivative builds a first-derivative operator. params: {dim}.
func NewDerivative(env Env, spec Spec) (sim.Operator, error) {
	var p derivativeParams
	if err := decodeParams(spec, &p); err != nil {
		return nil, err
	}
	if p.Dim < 0 || p.Dim >= env.Grid.Rank() {
		return nil, &sim.InvalidDimensionError{Dim: p.Dim, Rank: env.Grid.Rank()}
	}
	kind, err := inputKind(env, spec)
	if err != nil {
		return nil, err
	}
	base, err := newSpectralBase(env, spec, kind, kind)
	if err != nil {
		return nil, err
	}
	return &Derivative{spectralBase: base, dim: p.Dim}, nil
}

// ComputeBuffer implements sim.Operator.
func (o *Derivative) ComputeBuffer() error {
	comps, err := readSpectra(o.grid, o.store.At(o.in))
	if err != nil {
		return err
	}
	for c, s := range comps {
		if comps[c], err = o.grid.SpectrumDerivative(s, o.dim); err != nil {
			return err
		}
	}
	return writeSpectra(o.grid, o.store.At(o.out), comps)
}

// Gradient maps a scalar field to the vector of its partial derivatives.
type Gradient struct {
	spectralBase
}

// NewGradient builds a gradient operator: scalar input, vector output.
func NewGradient(env Env, spec Spec) (sim.Operator, error) {
	base, err := newSpectralBase(env, spec, sim.Scalar, sim.Vector)
	if err != nil {
		return nil, err
	}
	return &Gradient{spectralBase: base}, nil
}

// ComputeBuffer implements sim.Operator.
func (o *Gradient) ComputeBuffer() error {
	comps, err := readSpectra(o.grid, o.store.At(o.in))
	if err != nil {
		return err
	}
	grad := make([]*sim.Array[complex128], o.grid.Rank())
	for d := range grad {
		if grad[d], err = o.grid.SpectrumDerivative(comps[0], d); err != nil {
			return err
		}
	}
	return writeSpectra(o.grid, o.store.At(o.out), grad)
}

// Laplacian computes Σ_d ∂²/∂x_d² of every value component.
type Laplacian struct {
	spectralBase
}

// NewLaplacian builds a Laplacian operator preserving the input kind.
func NewLaplacian(env Env, spec Spec) (sim.Operator, error) {
	kind, err := inputKind(env, spec)
	if err != nil {
		return nil, err
	}
	base, err := newSpectralBase(env, spec, kind, kind)
	if err != nil {
		return nil, err
	}
	return &Laplacian{spectralBase: base}, nil
}

// ComputeBuffer implements sim.Operator.
func (o *Laplacian) ComputeBuffer() error {
	comps, err := readSpectra(o.grid, o.store.At(o.in))
	if err != nil {
		return err
	}
	for c, s := range comps {
		if comps[c], err = o.grid.SpectralLaplacian(s); err != nil {
			return err
		}
	}
	return writeSpectra(o.grid, o.store.At(o.out), comps)
}

// Strain maps a displacement vector field u to the symmetric tensor
// ε_ij = ½(∂_j u_i + ∂_i u_j), stored in Voigt order.
type Strain struct {
	spectralBase
}

// NewStrain builds a strain operator: vector input, symmetric tensor output.
func NewStrain(env Env, spec Spec) (sim.Operator, error) {
	base, err := newSpectralBase(env, spec, sim.Vector, sim.SymmetricTensor)
	if err != nil {
		return nil, err
	}
	return &Strain{spectralBase: base}, nil
}

// ComputeBuffer implements sim.Operator.
func (o *Strain) ComputeBuffer() error {
	u, err := readSpectra(o.grid, o.store.At(o.in))
	if err != nil {
		return err
	}
	rank := o.grid.Rank()
	eps := make([]*sim.Array[complex128], sim.SymmetricTensor.Components(rank))
	for i := 0; i < rank; i++ {
		for j := i; j < rank; j++ {
			dj, err := o.grid.SpectrumDerivative(u[i], j)
			if err != nil {
				return err
			}
			if i != j {
				di, err := o.grid.SpectrumDerivative(u[j], i)
				if err != nil {
					return err
				}
				a, b := dj.Data(), di.Data()
				for k := range a {
					a[k] = 0.5 * (a[k] + b[k])
				}
			}
			eps[sim.VoigtIndex(i, j, rank)] = dj
		}
	}
	return writeSpectra(o.grid, o.store.At(o.out), eps)
}

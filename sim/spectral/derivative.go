package spectral

import (
	"github.com/inference-sim/fieldsim/sim"
)

// SpectrumDerivative returns spectrum multiplied by 2πi·f along dimension
// dim, i.e. the half-spectrum of ∂f/∂x_dim. The input is not modified.
func (g *Grid) SpectrumDerivative(spectrum *sim.Array[complex128], dim int) (*sim.Array[complex128], error) {
	if err := g.checkDim(dim); err != nil {
		return nil, err
	}
	rshape := g.ReciprocalShape()
	if !sim.ShapeEqual(spectrum.Shape(), rshape) {
		return nil, &sim.ShapeMismatchError{Want: rshape, Got: spectrum.Shape()}
	}
	freq := g.frequencies(dim)
	ll := layoutOf(rshape, dim)
	out := spectrum.Clone()
	data := out.Data()
	for flat := range data {
		k := (flat / ll.stride) % ll.length
		data[flat] *= complex(0, twoPi*freq[k])
	}
	// The Nyquist bin of an even-length axis has no odd-symmetric partner; its
	// derivative is zeroed so the result stays the spectrum of a real field.
	if n := g.n[dim]; n%2 == 0 {
		nyq := n / 2
		for flat := range data {
			if (flat/ll.stride)%ll.length == nyq {
				data[flat] = 0
			}
		}
	}
	return out, nil
}

// DerivativeFromSpectrum returns ∂f/∂x_dim in real space given the
// half-spectrum of f.
func (g *Grid) DerivativeFromSpectrum(spectrum *sim.Array[complex128], dim int) (*sim.Array[float64], error) {
	d, err := g.SpectrumDerivative(spectrum, dim)
	if err != nil {
		return nil, err
	}
	return g.Inverse(d)
}

// Derivative returns ∂f/∂x_dim of a real field: one forward transform, a
// multiply by 2πi·f and one inverse transform.
func (g *Grid) Derivative(field *sim.Array[float64], dim int) (*sim.Array[float64], error) {
	if err := g.checkDim(dim); err != nil {
		return nil, err
	}
	spec, err := g.Forward(field)
	if err != nil {
		return nil, err
	}
	return g.DerivativeFromSpectrum(spec, dim)
}

// SpectralLaplacian returns spectrum multiplied by -|2πk|². The input is not
// modified.
func (g *Grid) SpectralLaplacian(spectrum *sim.Array[complex128]) (*sim.Array[complex128], error) {
	rshape := g.ReciprocalShape()
	if !sim.ShapeEqual(spectrum.Shape(), rshape) {
		return nil, &sim.ShapeMismatchError{Want: rshape, Got: spectrum.Shape()}
	}
	k2 := g.WaveNumberSquared().Data()
	out := spectrum.Clone()
	data := out.Data()
	for i := range data {
		data[i] *= complex(-k2[i], 0)
	}
	return out, nil
}

// Laplacian returns Σ_d ∂²f/∂x_d² of a real field. It transforms once and
// multiplies by the summed symbol rather than composing per-dimension
// second derivatives.
func (g *Grid) Laplacian(field *sim.Array[float64]) (*sim.Array[float64], error) {
	spec, err := g.Forward(field)
	if err != nil {
		return nil, err
	}
	lap, err := g.SpectralLaplacian(spec)
	if err != nil {
		return nil, err
	}
	return g.Inverse(lap)
}

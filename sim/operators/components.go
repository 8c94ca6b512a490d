package operators

import (
	"github.com/inference-sim/fieldsim/sim"
	"github.com/inference-sim/fieldsim/sim/spectral"
)

// component returns value component c of a. Scalar arrays are their own
// single component and are returned as-is.
func component[T sim.Element](a *sim.Array[T], kind sim.ValueKind, c int) (*sim.Array[T], error) {
	if kind == sim.Scalar {
		return a, nil
	}
	return a.Component(c)
}

// setComponent writes src into value component c of a.
func setComponent[T sim.Element](a *sim.Array[T], kind sim.ValueKind, c int, src *sim.Array[T]) error {
	if kind == sim.Scalar {
		return a.CopyFrom(src)
	}
	return a.SetComponent(c, src)
}

// readSpectra returns the half-spectrum of every value component of b,
// transforming forward first when b lives in real space.
func readSpectra(g *spectral.Grid, b *sim.Buffer) ([]*sim.Array[complex128], error) {
	n := b.Kind().Components(g.Rank())
	out := make([]*sim.Array[complex128], n)
	for c := range out {
		if b.Reciprocal() {
			s, err := component(b.Spectrum(), b.Kind(), c)
			if err != nil {
				return nil, err
			}
			out[c] = s
			continue
		}
		r, err := component(b.Real(), b.Kind(), c)
		if err != nil {
			return nil, err
		}
		s, err := g.Forward(r)
		if err != nil {
			return nil, err
		}
		out[c] = s
	}
	return out, nil
}

// writeSpectra writes per-component spectra into b, transforming back to real
// space when b is a real buffer.
func writeSpectra(g *spectral.Grid, b *sim.Buffer, comps []*sim.Array[complex128]) error {
	for c, s := range comps {
		if b.Reciprocal() {
			if err := setComponent(b.Spectrum(), b.Kind(), c, s); err != nil {
				return err
			}
			continue
		}
		r, err := g.Inverse(s)
		if err != nil {
			return err
		}
		if err := setComponent(b.Real(), b.Kind(), c, r); err != nil {
			return err
		}
	}
	return nil
}

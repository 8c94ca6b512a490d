package spectral

import (
	"math"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/inference-sim/fieldsim/sim"
)

const twoPi = 2 * math.Pi

// MaxTransformRank is the highest rank Forward and Inverse support.
const MaxTransformRank = 2

func (g *Grid) checkTransformRank(op string) error {
	if g.rank > MaxTransformRank {
		return &sim.UnsupportedRankError{Rank: g.rank, Op: op}
	}
	return nil
}

// parallel splits [0, lines) into contiguous chunks, one per worker. Each
// chunk owns its FFT plan and scratch space, since gonum plans are not safe
// for concurrent use. Chunks write disjoint lines, so the result does not
// depend on the worker count.
func (g *Grid) parallel(lines int, fn func(lo, hi int) error) error {
	w := g.workers
	if w <= 1 || lines < 2*w {
		return fn(0, lines)
	}
	chunk := (lines + w - 1) / w
	var eg errgroup.Group
	for lo := 0; lo < lines; lo += chunk {
		hi := min(lo+chunk, lines)
		eg.Go(func() error { return fn(lo, hi) })
	}
	return eg.Wait()
}

// lineLayout describes the 1-D lines of an array along one axis.
type lineLayout struct {
	count  int // number of lines
	length int // samples per line
	stride int // element distance between samples
	inner  int // product of extents after the axis
}

func layoutOf(shape []int, axis int) lineLayout {
	inner := 1
	for _, e := range shape[axis+1:] {
		inner *= e
	}
	return lineLayout{
		count:  sim.NumElements(shape) / shape[axis],
		length: shape[axis],
		stride: inner,
		inner:  inner,
	}
}

// base returns the flat offset of the first sample of line l.
func (ll lineLayout) base(l int) int {
	outer, in := l/ll.inner, l%ll.inner
	return outer*ll.length*ll.inner + in
}

// complexAxis runs an in-place complex FFT over every line of data along
// axis. Inverse transforms are normalized by 1/n.
func (g *Grid) complexAxis(data []complex128, shape []int, axis int, inverse bool) error {
	ll := layoutOf(shape, axis)
	scale := complex(1/float64(ll.length), 0)
	return g.parallel(ll.count, func(lo, hi int) error {
		plan := fourier.NewCmplxFFT(ll.length)
		line := make([]complex128, ll.length)
		out := make([]complex128, ll.length)
		for l := lo; l < hi; l++ {
			b := ll.base(l)
			for i := range line {
				line[i] = data[b+i*ll.stride]
			}
			if inverse {
				plan.Sequence(out, line)
				for i, v := range out {
					data[b+i*ll.stride] = v * scale
				}
			} else {
				plan.Coefficients(out, line)
				for i, v := range out {
					data[b+i*ll.stride] = v
				}
			}
		}
		return nil
	})
}

// Forward returns the half-spectrum of a real field shaped like the grid.
// The input is not modified.
func (g *Grid) Forward(field *sim.Array[float64]) (*sim.Array[complex128], error) {
	if err := g.checkTransformRank("forward transform"); err != nil {
		return nil, err
	}
	if !sim.ShapeEqual(field.Shape(), g.n) {
		return nil, &sim.ShapeMismatchError{Want: g.Shape(), Got: field.Shape()}
	}
	rshape := g.ReciprocalShape()
	out := sim.NewArray[complex128](rshape...)
	src, dst := field.Data(), out.Data()
	nl := g.n[g.rank-1]
	nh := nl/2 + 1
	rows := len(src) / nl

	err := g.parallel(rows, func(lo, hi int) error {
		plan := fourier.NewFFT(nl)
		for r := lo; r < hi; r++ {
			plan.Coefficients(dst[r*nh:(r+1)*nh], src[r*nl:(r+1)*nl])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for axis := 0; axis < g.rank-1; axis++ {
		if err := g.complexAxis(dst, rshape, axis, false); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Inverse returns the real field whose half-spectrum is spectrum, normalized
// so that Inverse(Forward(f)) reproduces f. The input is not modified.
func (g *Grid) Inverse(spectrum *sim.Array[complex128]) (*sim.Array[float64], error) {
	if err := g.checkTransformRank("inverse transform"); err != nil {
		return nil, err
	}
	rshape := g.ReciprocalShape()
	if !sim.ShapeEqual(spectrum.Shape(), rshape) {
		return nil, &sim.ShapeMismatchError{Want: rshape, Got: spectrum.Shape()}
	}
	work := spectrum.Clone()
	data := work.Data()
	for axis := 0; axis < g.rank-1; axis++ {
		if err := g.complexAxis(data, rshape, axis, true); err != nil {
			return nil, err
		}
	}

	out := sim.NewArray[float64](g.n...)
	dst := out.Data()
	nl := g.n[g.rank-1]
	nh := nl/2 + 1
	rows := len(dst) / nl
	scale := 1 / float64(nl)
	err := g.parallel(rows, func(lo, hi int) error {
		plan := fourier.NewFFT(nl)
		for r := lo; r < hi; r++ {
			row := dst[r*nl : (r+1)*nl]
			plan.Sequence(row, data[r*nh:(r+1)*nh])
			for i := range row {
				row[i] *= scale
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Transform dispatches on the element type: real fields go forward, spectra
// go back.
func (g *Grid) Transform(t sim.Tensor) (sim.Tensor, error) {
	switch a := t.(type) {
	case *sim.Array[float64]:
		return g.Forward(a)
	case *sim.Array[complex128]:
		return g.Inverse(a)
	}
	return nil, &sim.ShapeMismatchError{Want: g.Shape(), Got: t.Shape()}
}

// Package spectral provides the regular periodic grid used by field buffers:
// real-space coordinate axes, reciprocal-space frequency axes, real-to-complex
// transforms and spectral derivatives.
//
// Transforms use the half-spectrum layout on the last dimension: a real field
// of shape [n0, ..., nk] maps to a spectrum of shape [n0, ..., nk/2+1]. All
// other dimensions keep the full signed frequency range in FFT order
// (0, 1, ..., -2, -1).
package spectral

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/inference-sim/fieldsim/sim"
)

// Interval selects whether sampled coordinates include the domain bounds.
type Interval int

const (
	// Closed samples n points including both bounds.
	Closed Interval = iota
	// Open samples n points strictly inside (min, max).
	Open
	// LeftOpen samples n points in (min, max].
	LeftOpen
	// RightOpen samples n points in [min, max); the periodic convention.
	RightOpen
)

// ValidIntervals maps configuration names to intervals.
var ValidIntervals = map[string]Interval{
	"":           RightOpen,
	"closed":     Closed,
	"open":       Open,
	"left_open":  LeftOpen,
	"right_open": RightOpen,
}

// ParseInterval maps a configuration name to an Interval.
func ParseInterval(name string) (Interval, error) {
	iv, ok := ValidIntervals[name]
	if !ok {
		return RightOpen, fmt.Errorf("unknown interval %q", name)
	}
	return iv, nil
}

func (iv Interval) String() string {
	switch iv {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case LeftOpen:
		return "left_open"
	case RightOpen:
		return "right_open"
	}
	return fmt.Sprintf("Interval(%d)", int(iv))
}

// MaxRank is the highest grid rank that can be constructed. Transforms are
// only implemented up to rank 2.
const MaxRank = 3

// Grid is a rectangular domain sampled on a regular lattice.
type Grid struct {
	rank    int
	min     []float64
	max     []float64
	n       []int
	workers int
}

// Option customizes a Grid.
type Option func(*Grid)

// WithWorkers fans the per-line FFTs of one transform out over n goroutines.
// Results do not depend on n.
func WithWorkers(n int) Option {
	return func(g *Grid) {
		if n > 0 {
			g.workers = n
		}
	}
}

// New constructs a grid of the given rank. min, max and n must each have
// exactly rank entries.
func New(rank int, min, max []float64, n []int, opts ...Option) (*Grid, error) {
	if rank < 1 || rank > MaxRank {
		return nil, &sim.UnsupportedRankError{Rank: rank, Op: "grid construction"}
	}
	for i, l := range []int{len(min), len(max), len(n)} {
		if l != rank {
			return nil, &sim.InvalidDimensionError{Dim: l, Rank: rank, What: [...]string{"min", "max", "n"}[i]}
		}
	}
	for d := 0; d < rank; d++ {
		if n[d] < 1 {
			return nil, fmt.Errorf("dimension %d: sample count must be positive, got %d", d, n[d])
		}
		if !(max[d] > min[d]) {
			return nil, fmt.Errorf("dimension %d: max %v must exceed min %v", d, max[d], min[d])
		}
	}
	g := &Grid{
		rank:    rank,
		min:     append([]float64(nil), min...),
		max:     append([]float64(nil), max...),
		n:       append([]int(nil), n...),
		workers: 1,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Rank returns the number of spatial dimensions.
func (g *Grid) Rank() int { return g.rank }

// Shape returns the real-space sample counts.
func (g *Grid) Shape() []int { return append([]int(nil), g.n...) }

// ReciprocalShape returns the half-spectrum shape of a transformed field.
func (g *Grid) ReciprocalShape() []int {
	s := g.Shape()
	s[g.rank-1] = s[g.rank-1]/2 + 1
	return s
}

// Domain returns the buffer layout for a sim.Store on this grid.
func (g *Grid) Domain() sim.Domain {
	return sim.Domain{Shape: g.Shape(), ReciprocalShape: g.ReciprocalShape()}
}

// Bounds returns the extent of dimension dim.
func (g *Grid) Bounds(dim int) (lo, hi float64, err error) {
	if err := g.checkDim(dim); err != nil {
		return 0, 0, err
	}
	return g.min[dim], g.max[dim], nil
}

// Spacing returns (max-min)/n for dimension dim.
func (g *Grid) Spacing(dim int) (float64, error) {
	if err := g.checkDim(dim); err != nil {
		return 0, err
	}
	return g.spacing(dim), nil
}

func (g *Grid) spacing(dim int) float64 {
	return (g.max[dim] - g.min[dim]) / float64(g.n[dim])
}

func (g *Grid) checkDim(dim int) error {
	if dim < 0 || dim >= g.rank {
		return &sim.InvalidDimensionError{Dim: dim, Rank: g.rank}
	}
	return nil
}

// broadcastShape is all ones except extent at position dim.
func (g *Grid) broadcastShape(dim, extent int) []int {
	shape := make([]int, g.rank)
	for i := range shape {
		shape[i] = 1
	}
	shape[dim] = extent
	return shape
}

// linspace returns k evenly spaced points from lo to hi inclusive.
func linspace(lo, hi float64, k int) []float64 {
	if k == 1 {
		return []float64{lo}
	}
	return floats.Span(make([]float64, k), lo, hi)
}

// coordinates returns the 1-D sample positions of dimension dim.
func (g *Grid) coordinates(dim int, interval Interval) ([]float64, error) {
	lo, hi, k := g.min[dim], g.max[dim], g.n[dim]
	switch interval {
	case Closed:
		return linspace(lo, hi, k), nil
	case Open:
		return linspace(lo, hi, k+2)[1 : k+1], nil
	case LeftOpen:
		return linspace(lo, hi, k+1)[1:], nil
	case RightOpen:
		return linspace(lo, hi, k+1)[:k], nil
	}
	return nil, fmt.Errorf("unknown interval %v", interval)
}

// Axis returns the coordinates of dimension dim under the given sampling
// convention, shaped with singleton extents in every other dimension so it
// broadcasts against the other axes.
func (g *Grid) Axis(dim int, interval Interval) (*sim.Array[float64], error) {
	if err := g.checkDim(dim); err != nil {
		return nil, err
	}
	pts, err := g.coordinates(dim, interval)
	if err != nil {
		return nil, err
	}
	return sim.FromData(pts, g.broadcastShape(dim, len(pts))...)
}

// frequencies returns the 1-D frequency bins of dimension dim: half-spectrum
// for the last dimension, full signed range in FFT order otherwise.
func (g *Grid) frequencies(dim int) []float64 {
	n := g.n[dim]
	a := g.spacing(dim)
	if dim == g.rank-1 {
		f := make([]float64, n/2+1)
		for k := range f {
			f[k] = float64(k) / (float64(n) * a)
		}
		return f
	}
	f := make([]float64, n)
	for k := range f {
		if k < (n-1)/2+1 {
			f[k] = float64(k) / (float64(n) * a)
		} else {
			f[k] = float64(k-n) / (float64(n) * a)
		}
	}
	return f
}

// Frequency returns the reciprocal-space frequency axis of dimension dim,
// broadcast the same way as Axis.
func (g *Grid) Frequency(dim int) (*sim.Array[float64], error) {
	if err := g.checkDim(dim); err != nil {
		return nil, err
	}
	f := g.frequencies(dim)
	return sim.FromData(f, g.broadcastShape(dim, len(f))...)
}

// Sample evaluates fn at every grid point and returns the real-space field.
func (g *Grid) Sample(interval Interval, fn func(x []float64) float64) (*sim.Array[float64], error) {
	axes := make([][]float64, g.rank)
	for d := range axes {
		pts, err := g.coordinates(d, interval)
		if err != nil {
			return nil, err
		}
		axes[d] = pts
	}
	out := sim.NewArray[float64](g.n...)
	idx := make([]int, g.rank)
	x := make([]float64, g.rank)
	data := out.Data()
	for flat := range data {
		for d := range idx {
			x[d] = axes[d][idx[d]]
		}
		data[flat] = fn(x)
		next(idx, g.n)
	}
	return out, nil
}

// WaveNumberSquared returns |2πk|² on the reciprocal shape.
func (g *Grid) WaveNumberSquared() *sim.Array[float64] {
	rshape := g.ReciprocalShape()
	out := sim.NewArray[float64](rshape...)
	freqs := make([][]float64, g.rank)
	for d := range freqs {
		freqs[d] = g.frequencies(d)
	}
	idx := make([]int, g.rank)
	data := out.Data()
	for flat := range data {
		var k2 float64
		for d := range idx {
			k := twoPi * freqs[d][idx[d]]
			k2 += k * k
		}
		data[flat] = k2
		next(idx, rshape)
	}
	return out
}

// next advances a row-major multi-index by one position.
func next(idx, shape []int) {
	for i := len(idx) - 1; i >= 0; i-- {
		idx[i]++
		if idx[i] < shape[i] {
			return
		}
		idx[i] = 0
	}
}

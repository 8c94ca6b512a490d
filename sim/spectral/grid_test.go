package spectral

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/inference-sim/fieldsim/sim"
)

func newGrid1D(t *testing.T, lo, hi float64, n int, opts ...Option) *Grid {
	t.Helper()
	g, err := New(1, []float64{lo}, []float64{hi}, []int{n}, opts...)
	require.NoError(t, err)
	return g
}

func TestNew_RejectsBadRanks(t *testing.T) {
	// GIVEN ranks outside 1..3
	for _, rank := range []int{0, 4} {
		// WHEN a grid is constructed
		_, err := New(rank, make([]float64, rank), make([]float64, rank), make([]int, rank))

		// THEN construction fails with UnsupportedRankError
		var rankErr *sim.UnsupportedRankError
		assert.True(t, errors.As(err, &rankErr), "rank %d: got %v", rank, err)
	}
}

func TestNew_RejectsMismatchedParameterLengths(t *testing.T) {
	// GIVEN a rank-2 grid with only one max entry
	_, err := New(2, []float64{0, 0}, []float64{1}, []int{4, 4})

	// THEN the mismatch is reported as an InvalidDimensionError on "max"
	var dimErr *sim.InvalidDimensionError
	require.True(t, errors.As(err, &dimErr), "got %v", err)
	assert.Equal(t, "max", dimErr.What)
	assert.Equal(t, 1, dimErr.Dim)
	assert.Equal(t, 2, dimErr.Rank)
}

func TestNew_RejectsDegenerateExtent(t *testing.T) {
	_, err := New(1, []float64{1}, []float64{1}, []int{4})
	assert.Error(t, err)

	_, err = New(1, []float64{0}, []float64{1}, []int{0})
	assert.Error(t, err)
}

func TestNew_CopiesInputs(t *testing.T) {
	// GIVEN parameter slices owned by the caller
	lo, hi, n := []float64{0}, []float64{1}, []int{8}
	g, err := New(1, lo, hi, n)
	require.NoError(t, err)

	// WHEN the caller mutates them after construction
	lo[0], hi[0], n[0] = -5, 5, 3

	// THEN the grid is unaffected
	assert.Equal(t, []int{8}, g.Shape())
	s, err := g.Spacing(0)
	require.NoError(t, err)
	assert.InDelta(t, 0.125, s, 1e-15)
}

func TestAxis_Intervals(t *testing.T) {
	g := newGrid1D(t, 0, 3, 3)
	tests := []struct {
		interval Interval
		want     []float64
	}{
		{Closed, []float64{0, 1.5, 3}},
		{RightOpen, []float64{0, 1, 2}},
		{LeftOpen, []float64{1, 2, 3}},
		{Open, []float64{0.75, 1.5, 2.25}},
	}
	for _, tt := range tests {
		t.Run(tt.interval.String(), func(t *testing.T) {
			// WHEN the axis is sampled with the interval convention
			axis, err := g.Axis(0, tt.interval)
			require.NoError(t, err)

			// THEN the sample positions match
			assert.Equal(t, []int{3}, axis.Shape())
			assert.InDeltaSlice(t, tt.want, axis.Data(), 1e-12)
		})
	}
}

func TestAxis_SinglePointClosed(t *testing.T) {
	g := newGrid1D(t, 2, 5, 1)
	axis, err := g.Axis(0, Closed)
	require.NoError(t, err)
	assert.Equal(t, []float64{2}, axis.Data())
}

func TestAxis_BroadcastShape(t *testing.T) {
	// GIVEN a 4×6 grid
	g, err := New(2, []float64{0, 0}, []float64{1, 2}, []int{4, 6})
	require.NoError(t, err)

	// THEN each axis is singleton in the other dimension
	x, err := g.Axis(0, RightOpen)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 1}, x.Shape())
	y, err := g.Axis(1, RightOpen)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 6}, y.Shape())

	// AND broadcasting the axis reproduces the coordinate at every point
	full, err := y.BroadcastTo(4, 6)
	require.NoError(t, err)
	assert.InDelta(t, 2.0/6*5, full.At(3, 5), 1e-12)
}

func TestAxis_InvalidDimension(t *testing.T) {
	g := newGrid1D(t, 0, 1, 4)
	_, err := g.Axis(1, Closed)
	var dimErr *sim.InvalidDimensionError
	assert.True(t, errors.As(err, &dimErr))

	_, err = g.Frequency(-1)
	assert.True(t, errors.As(err, &dimErr))

	_, err = g.Spacing(2)
	assert.True(t, errors.As(err, &dimErr))
}

func TestSpacing(t *testing.T) {
	g, err := New(2, []float64{-math.Pi, -math.Pi}, []float64{math.Pi, 3 * math.Pi}, []int{20, 100})
	require.NoError(t, err)

	a0, err := g.Spacing(0)
	require.NoError(t, err)
	a1, err := g.Spacing(1)
	require.NoError(t, err)
	assert.InDelta(t, 2*math.Pi/20, a0, 1e-15)
	assert.InDelta(t, 4*math.Pi/100, a1, 1e-15)
}

func TestShapes(t *testing.T) {
	g, err := New(2, []float64{0, 0}, []float64{1, 1}, []int{5, 9})
	require.NoError(t, err)

	assert.Equal(t, []int{5, 9}, g.Shape())
	assert.Equal(t, []int{5, 5}, g.ReciprocalShape())
	d := g.Domain()
	assert.Equal(t, []int{5, 9}, d.Shape)
	assert.Equal(t, []int{5, 5}, d.ReciprocalShape)
}

func TestFrequency_MatchesDFTBins(t *testing.T) {
	// GIVEN a 2-D grid with an odd and an even dimension
	g, err := New(2, []float64{0, -1}, []float64{3, 1}, []int{7, 10})
	require.NoError(t, err)

	for dim, n := range []int{7, 10} {
		a, err := g.Spacing(dim)
		require.NoError(t, err)
		freq, err := g.Frequency(dim)
		require.NoError(t, err)

		if dim == g.Rank()-1 {
			// THEN the last dimension carries the half-spectrum bins
			plan := fourier.NewFFT(n)
			require.Equal(t, n/2+1, freq.Len())
			for k := 0; k < freq.Len(); k++ {
				assert.InDelta(t, plan.Freq(k)/a, freq.Data()[k], 1e-12, "dim %d bin %d", dim, k)
			}
			continue
		}
		// THEN other dimensions carry the full signed range
		plan := fourier.NewCmplxFFT(n)
		require.Equal(t, n, freq.Len())
		for k := 0; k < n; k++ {
			assert.InDelta(t, plan.Freq(k)/a, freq.Data()[k], 1e-12, "dim %d bin %d", dim, k)
		}
	}
}

func TestSample_EvaluatesAtGridPoints(t *testing.T) {
	g, err := New(2, []float64{0, 0}, []float64{2, 3}, []int{2, 3})
	require.NoError(t, err)

	f, err := g.Sample(RightOpen, func(x []float64) float64 { return 10*x[0] + x[1] })
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 1, 2, 10, 11, 12}, f.Data())
}

func TestWaveNumberSquared(t *testing.T) {
	g := newGrid1D(t, 0, 1, 8)
	k2 := g.WaveNumberSquared()

	require.Equal(t, []int{5}, k2.Shape())
	for k := 0; k < 5; k++ {
		want := math.Pow(2*math.Pi*float64(k), 2)
		assert.InDelta(t, want, k2.Data()[k], 1e-9)
	}
}

func TestParseInterval(t *testing.T) {
	iv, err := ParseInterval("closed")
	require.NoError(t, err)
	assert.Equal(t, Closed, iv)

	iv, err = ParseInterval("")
	require.NoError(t, err)
	assert.Equal(t, RightOpen, iv)

	_, err = ParseInterval("half")
	assert.Error(t, err)
}

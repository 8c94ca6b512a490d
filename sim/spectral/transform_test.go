package spectral

import (
	"errors"
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/fieldsim/sim"
	"github.com/inference-sim/fieldsim/sim/internal/testutil"
)

func TestDerivative_Sine1D(t *testing.T) {
	for _, n := range []int{8, 9, 16, 33, 64} {
		// GIVEN u = sin(2πx/L) on a periodic domain of length L
		const lo, L = -0.5, 3.0
		g := newGrid1D(t, lo, lo+L, n)
		w := 2 * math.Pi / L
		u, err := g.Sample(RightOpen, func(x []float64) float64 { return math.Sin(w * x[0]) })
		require.NoError(t, err)

		// WHEN differentiated spectrally
		du, err := g.Derivative(u, 0)
		require.NoError(t, err)

		// THEN the result is (2π/L)cos(2πx/L) to near machine precision
		want, err := g.Sample(RightOpen, func(x []float64) float64 { return w * math.Cos(w*x[0]) })
		require.NoError(t, err)
		assert.Less(t, testutil.MaxAbsDiff(want, du), 1e-10, "n=%d", n)
	}
}

func TestDerivative_2DSeparable(t *testing.T) {
	// GIVEN A = sin(2x)sin(3y) on [-π,π]×[-π,3π] sampled 20×100
	g, err := New(2, []float64{-math.Pi, -math.Pi}, []float64{math.Pi, 3 * math.Pi}, []int{20, 100})
	require.NoError(t, err)
	a, err := g.Sample(RightOpen, func(x []float64) float64 { return math.Sin(2*x[0]) * math.Sin(3*x[1]) })
	require.NoError(t, err)

	// WHEN differentiated along each dimension
	dx, err := g.Derivative(a, 0)
	require.NoError(t, err)
	dy, err := g.Derivative(a, 1)
	require.NoError(t, err)

	// THEN ∂x A = 2cos(2x)sin(3y) and ∂y A = 3sin(2x)cos(3y)
	wantX, err := g.Sample(RightOpen, func(x []float64) float64 { return 2 * math.Cos(2*x[0]) * math.Sin(3*x[1]) })
	require.NoError(t, err)
	wantY, err := g.Sample(RightOpen, func(x []float64) float64 { return 3 * math.Sin(2*x[0]) * math.Cos(3*x[1]) })
	require.NoError(t, err)
	testutil.AssertArraysClose(t, "dA/dx", wantX, dx, 1e-10)
	testutil.AssertArraysClose(t, "dA/dy", wantY, dy, 1e-10)
}

func TestDerivative_ConstantIsZero(t *testing.T) {
	g := newGrid1D(t, 0, 1, 12)
	u := sim.NewArray[float64](12)
	u.Fill(4.25)

	du, err := g.Derivative(u, 0)
	require.NoError(t, err)
	for _, v := range du.Data() {
		assert.InDelta(t, 0, v, 1e-12)
	}
}

func TestDerivative_InvalidDimension(t *testing.T) {
	g := newGrid1D(t, 0, 1, 8)
	_, err := g.Derivative(sim.NewArray[float64](8), 1)
	var dimErr *sim.InvalidDimensionError
	assert.True(t, errors.As(err, &dimErr), "got %v", err)
}

func TestLaplacian_2D(t *testing.T) {
	// GIVEN u = cos(x)sin(2y) on [0,2π)²
	g, err := New(2, []float64{0, 0}, []float64{2 * math.Pi, 2 * math.Pi}, []int{16, 24})
	require.NoError(t, err)
	u, err := g.Sample(RightOpen, func(x []float64) float64 { return math.Cos(x[0]) * math.Sin(2*x[1]) })
	require.NoError(t, err)

	// WHEN the Laplacian is taken
	lap, err := g.Laplacian(u)
	require.NoError(t, err)

	// THEN ∇²u = -(1+4)u
	want := u.Clone()
	want.Scale(-5)
	testutil.AssertArraysClose(t, "laplacian", want, lap, 1e-10)
}

func TestLaplacian_MatchesSecondDerivatives(t *testing.T) {
	g, err := New(2, []float64{0, 0}, []float64{1, 2}, []int{12, 18})
	require.NoError(t, err)
	u, err := g.Sample(RightOpen, func(x []float64) float64 {
		return math.Sin(2*math.Pi*x[0]) + math.Cos(math.Pi*x[1])*math.Sin(2*math.Pi*x[0])
	})
	require.NoError(t, err)

	lap, err := g.Laplacian(u)
	require.NoError(t, err)

	sum := sim.NewArray[float64](12, 18)
	for dim := 0; dim < 2; dim++ {
		d1, err := g.Derivative(u, dim)
		require.NoError(t, err)
		d2, err := g.Derivative(d1, dim)
		require.NoError(t, err)
		for i, v := range d2.Data() {
			sum.Data()[i] += v
		}
	}
	testutil.AssertArraysClose(t, "laplacian", sum, lap, 1e-8)
}

func TestForwardInverse_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		rank int
		n    []int
	}{
		{"1d even", 1, []int{16}},
		{"1d odd", 1, []int{15}},
		{"2d even", 2, []int{8, 10}},
		{"2d odd", 2, []int{7, 9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// GIVEN an arbitrary real field
			lo := make([]float64, tt.rank)
			hi := make([]float64, tt.rank)
			for i := range hi {
				hi[i] = 1
			}
			g, err := New(tt.rank, lo, hi, tt.n)
			require.NoError(t, err)
			rng := sim.NewPartitionedRNG(sim.NewSimulationKey(7)).ForSubsystem(sim.SubsystemBuffer("u"))
			u := sim.NewArray[float64](tt.n...)
			for i := range u.Data() {
				u.Data()[i] = rng.NormFloat64()
			}
			orig := u.Clone()

			// WHEN transformed forward and back
			spec, err := g.Forward(u)
			require.NoError(t, err)
			back, err := g.Inverse(spec)
			require.NoError(t, err)

			// THEN the field is reproduced and the input is untouched
			assert.Equal(t, g.ReciprocalShape(), spec.Shape())
			testutil.AssertArraysClose(t, "round trip", orig, back, 1e-12)
			assert.Equal(t, orig.Data(), u.Data())
		})
	}
}

func TestForward_DCCoefficientIsSum(t *testing.T) {
	g, err := New(2, []float64{0, 0}, []float64{1, 1}, []int{3, 4})
	require.NoError(t, err)
	u, err := sim.FromData([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, 3, 4)
	require.NoError(t, err)

	spec, err := g.Forward(u)
	require.NoError(t, err)

	assert.InDelta(t, 78, real(spec.At(0, 0)), 1e-12)
	assert.InDelta(t, 0, imag(spec.At(0, 0)), 1e-12)
}

func TestForward_SingleModeLandsInItsBin(t *testing.T) {
	// GIVEN cos(2π·3x) on [0,1) with 16 samples
	g := newGrid1D(t, 0, 1, 16)
	u, err := g.Sample(RightOpen, func(x []float64) float64 { return math.Cos(2 * math.Pi * 3 * x[0]) })
	require.NoError(t, err)

	spec, err := g.Forward(u)
	require.NoError(t, err)

	// THEN only bin 3 is populated, with weight n/2
	for k, c := range spec.Data() {
		if k == 3 {
			assert.InDelta(t, 8, cmplx.Abs(c), 1e-10)
			continue
		}
		assert.InDelta(t, 0, cmplx.Abs(c), 1e-10, "bin %d", k)
	}
}

func TestTransform_Rank3Unsupported(t *testing.T) {
	// GIVEN a rank-3 grid, which can be constructed
	g, err := New(3, []float64{0, 0, 0}, []float64{1, 1, 1}, []int{4, 4, 4})
	require.NoError(t, err)

	// WHEN a transform is requested
	_, err = g.Forward(sim.NewArray[float64](4, 4, 4))

	// THEN it is rejected with UnsupportedRankError
	var rankErr *sim.UnsupportedRankError
	require.True(t, errors.As(err, &rankErr), "got %v", err)
	assert.Equal(t, 3, rankErr.Rank)

	_, err = g.Inverse(sim.NewArray[complex128](4, 4, 3))
	assert.True(t, errors.As(err, &rankErr))

	_, err = g.Laplacian(sim.NewArray[float64](4, 4, 4))
	assert.True(t, errors.As(err, &rankErr))
}

func TestForward_ShapeMismatch(t *testing.T) {
	g := newGrid1D(t, 0, 1, 8)
	_, err := g.Forward(sim.NewArray[float64](9))
	var shapeErr *sim.ShapeMismatchError
	assert.True(t, errors.As(err, &shapeErr))

	_, err = g.Inverse(sim.NewArray[complex128](4))
	assert.True(t, errors.As(err, &shapeErr))
}

func TestTransform_WorkerCountDoesNotChangeResult(t *testing.T) {
	// GIVEN the same field transformed with 1 and 4 workers
	build := func(workers int) *Grid {
		g, err := New(2, []float64{0, 0}, []float64{1, 1}, []int{32, 24}, WithWorkers(workers))
		require.NoError(t, err)
		return g
	}
	serial, parallel := build(1), build(4)
	u, err := serial.Sample(RightOpen, func(x []float64) float64 {
		return math.Exp(math.Sin(2*math.Pi*x[0])) * math.Cos(4*math.Pi*x[1])
	})
	require.NoError(t, err)

	s1, err := serial.Forward(u)
	require.NoError(t, err)
	s4, err := parallel.Forward(u)
	require.NoError(t, err)

	// THEN results are bit-identical
	assert.Equal(t, s1.Data(), s4.Data())

	d1, err := serial.Laplacian(u)
	require.NoError(t, err)
	d4, err := parallel.Laplacian(u)
	require.NoError(t, err)
	assert.Equal(t, d1.Data(), d4.Data())
}

func TestTransform_Dispatch(t *testing.T) {
	g := newGrid1D(t, 0, 1, 8)
	out, err := g.Transform(sim.NewArray[float64](8))
	require.NoError(t, err)
	assert.True(t, out.IsComplex())

	out, err = g.Transform(sim.NewArray[complex128](5))
	require.NoError(t, err)
	assert.False(t, out.IsComplex())
}

// Package testutil provides shared test infrastructure for the field engine.
// It consolidates the golden dataset of analytic reference problems and the
// assertion helpers used across sim/ and its sub-package tests.
package testutil

import (
	"encoding/json"
	"math"
	"math/cmplx"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/inference-sim/fieldsim/sim"
)

// GoldenDataset represents the structure of testdata/goldendataset.json.
type GoldenDataset struct {
	Tests []GoldenTestCase `json:"tests"`
}

// GoldenTestCase is one linear problem with a closed-form solution: a single
// Fourier mode evolving under du/dt = -κ(-∇²)^p u, optionally with a
// constant-rate reaction term.
type GoldenTestCase struct {
	Name      string  `json:"name"`
	Length    float64 `json:"length"`
	Points    int     `json:"points"`
	Mode      int     `json:"mode"`
	Amplitude float64 `json:"amplitude"`
	Kappa     float64 `json:"kappa"`
	Power     int     `json:"power"`
	Reaction  float64 `json:"reaction"`
	Dt        float64 `json:"dt"`
	Steps     int     `json:"steps"`
	Order     int     `json:"order"`

	Metrics GoldenMetrics `json:"metrics"`
}

// GoldenMetrics holds the expected outcome of a golden test case.
type GoldenMetrics struct {
	// Amplitude of the mode after Steps steps, from the discrete scheme.
	FinalAmplitude float64 `json:"final_amplitude"`
	// Relative tolerance against FinalAmplitude.
	RelTol float64 `json:"rel_tol"`
	// Absolute tolerance against the continuous solution.
	ExactTol float64 `json:"exact_tol"`
}

// LoadGoldenDataset loads the golden dataset from the testdata directory.
// The path is resolved relative to this source file: sim/internal/testutil/ → testdata/.
func LoadGoldenDataset(t *testing.T) *GoldenDataset {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	// Navigate from sim/internal/testutil/ to repo root testdata/
	path := filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "testdata", "goldendataset.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read golden dataset: %v", err)
	}

	var dataset GoldenDataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		t.Fatalf("Failed to parse golden dataset: %v", err)
	}

	return &dataset
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}

// AssertArraysClose compares two real arrays element-wise with an absolute
// tolerance and reports the first few offending elements.
func AssertArraysClose(t *testing.T, name string, want, got *sim.Array[float64], tol float64) {
	t.Helper()
	if !sim.ShapeEqual(want.Shape(), got.Shape()) {
		t.Fatalf("%s: shape %v, want %v", name, got.Shape(), want.Shape())
	}
	reported := 0
	for i, w := range want.Data() {
		g := got.Data()[i]
		if math.Abs(w-g) > tol {
			if reported < 5 {
				t.Errorf("%s[%d]: got %v, want %v (diff=%v)", name, i, g, w, math.Abs(w-g))
			}
			reported++
		}
	}
	if reported > 5 {
		t.Errorf("%s: %d elements outside tolerance %v", name, reported, tol)
	}
}

// AssertSpectraClose is AssertArraysClose for reciprocal-space arrays.
func AssertSpectraClose(t *testing.T, name string, want, got *sim.Array[complex128], tol float64) {
	t.Helper()
	if !sim.ShapeEqual(want.Shape(), got.Shape()) {
		t.Fatalf("%s: shape %v, want %v", name, got.Shape(), want.Shape())
	}
	reported := 0
	for i, w := range want.Data() {
		g := got.Data()[i]
		if cmplx.Abs(w-g) > tol {
			if reported < 5 {
				t.Errorf("%s[%d]: got %v, want %v", name, i, g, w)
			}
			reported++
		}
	}
	if reported > 5 {
		t.Errorf("%s: %d elements outside tolerance %v", name, reported, tol)
	}
}

// MaxAbsDiff returns the largest element-wise difference of two equally
// shaped real arrays.
func MaxAbsDiff(a, b *sim.Array[float64]) float64 {
	var m float64
	for i, v := range a.Data() {
		m = math.Max(m, math.Abs(v-b.Data()[i]))
	}
	return m
}

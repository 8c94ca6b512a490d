package sim

import (
	"errors"
	"testing"
)

// testDomain is a small 2-D layout: 4×6 real, 4×4 reciprocal.
func testDomain() Domain {
	return Domain{Shape: []int{4, 6}, ReciprocalShape: []int{4, 4}}
}

// mustDeclare declares a scalar buffer or fails the test.
func mustDeclare(t *testing.T, s *Store, name string, reciprocal bool, opts ...BufferOption) Handle {
	t.Helper()
	h, err := s.Declare(name, Scalar, reciprocal, opts...)
	if err != nil {
		t.Fatalf("Declare(%q): %v", name, err)
	}
	return h
}

// recordingOp is a test operator that appends its name to a shared log when
// computed, and optionally runs a body or fails.
type recordingOp struct {
	BaseOperator
	log  *[]string
	body func() error
}

func newRecordingOp(name string, requested, supplied []string, log *[]string) *recordingOp {
	return &recordingOp{BaseOperator: NewBaseOperator(name, requested, supplied), log: log}
}

func (o *recordingOp) ComputeBuffer() error {
	if o.log != nil {
		*o.log = append(*o.log, o.Name())
	}
	if o.body != nil {
		return o.body()
	}
	return nil
}

// opNames returns operator names in order.
func opNames(ops []Operator) []string {
	names := make([]string, len(ops))
	for i, op := range ops {
		names[i] = op.Name()
	}
	return names
}

// flakyDevice fails every transfer while failing is set.
type flakyDevice struct {
	failing bool
	calls   int
}

var errLinkDown = errors.New("link down")

func (d *flakyDevice) Name() string { return "flaky" }

func (d *flakyDevice) ToHost(dst, src Tensor) (Tensor, error) {
	d.calls++
	if d.failing {
		return nil, errLinkDown
	}
	return HostDevice{}.ToHost(dst, src)
}

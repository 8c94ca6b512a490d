package sim

import (
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/fieldsim/sim/trace"
)

// storeWith declares real scalar buffers with the given names.
func storeWith(t *testing.T, names ...string) *Store {
	t.Helper()
	s := NewStore(testDomain())
	for _, n := range names {
		mustDeclare(t, s, n, false)
	}
	return s
}

func TestRegister_DuplicateOperatorName(t *testing.T) {
	g := NewGraph(storeWith(t, "a", "b"))
	require.NoError(t, g.Register(newRecordingOp("op", nil, []string{"a"}, nil)))

	err := g.Register(newRecordingOp("op", nil, []string{"b"}, nil))

	var dup *DuplicateNameError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "operator", dup.Kind)
	assert.Len(t, g.Operators(), 1)
}

func TestRegister_ConflictingSupplier(t *testing.T) {
	for _, first := range []string{"X", "Y"} {
		t.Run("first="+first, func(t *testing.T) {
			// GIVEN operators X and Y that both supply "c"
			g := NewGraph(storeWith(t, "c"))
			second := map[string]string{"X": "Y", "Y": "X"}[first]
			require.NoError(t, g.Register(newRecordingOp(first, nil, []string{"c"}, nil)))

			// WHEN the second is registered
			err := g.Register(newRecordingOp(second, nil, []string{"c"}, nil))

			// THEN registration fails regardless of order and names both
			var conflict *ConflictingSupplierError
			require.True(t, errors.As(err, &conflict), "got %v", err)
			assert.Equal(t, "c", conflict.Buffer)
			assert.Equal(t, first, conflict.Existing)
			assert.Equal(t, second, conflict.Incoming)
			assert.Len(t, g.Operators(), 1)
		})
	}
}

func TestResolveOrder_SuppliersPrecedeRequesters(t *testing.T) {
	// GIVEN a chain registered in reverse: c → c_hat → dc_hat → dc
	g := NewGraph(storeWith(t, "c", "c_hat", "dc_hat", "dc"))
	require.NoError(t, g.Register(newRecordingOp("inverse", []string{"dc_hat"}, []string{"dc"}, nil)))
	require.NoError(t, g.Register(newRecordingOp("derivative", []string{"c_hat"}, []string{"dc_hat"}, nil)))
	require.NoError(t, g.Register(newRecordingOp("forward", []string{"c"}, []string{"c_hat"}, nil)))

	// WHEN the order is resolved
	order, err := g.ResolveOrder()
	require.NoError(t, err)

	// THEN every supplier precedes its requesters
	assert.Equal(t, []string{"forward", "derivative", "inverse"}, opNames(order))
}

func TestResolveOrder_TieBreakIsRegistrationOrder(t *testing.T) {
	// GIVEN independent operators and a diamond
	g := NewGraph(storeWith(t, "a", "b", "c", "d", "e"))
	require.NoError(t, g.Register(newRecordingOp("z_last", []string{"b", "c"}, []string{"d"}, nil)))
	require.NoError(t, g.Register(newRecordingOp("m_source", nil, []string{"a"}, nil)))
	require.NoError(t, g.Register(newRecordingOp("left", []string{"a"}, []string{"b"}, nil)))
	require.NoError(t, g.Register(newRecordingOp("right", []string{"a"}, []string{"c"}, nil)))
	require.NoError(t, g.Register(newRecordingOp("lonely", nil, []string{"e"}, nil)))

	// WHEN resolved repeatedly
	first, err := g.ResolveOrder()
	require.NoError(t, err)

	// THEN ready operators run in registration order and the result is stable
	assert.Equal(t, []string{"m_source", "left", "right", "z_last", "lonely"}, opNames(first))
	for i := 0; i < 5; i++ {
		g.order = nil
		again, err := g.ResolveOrder()
		require.NoError(t, err)
		assert.Equal(t, opNames(first), opNames(again))
	}
}

func TestResolveOrder_TwoOperatorCycle(t *testing.T) {
	// GIVEN A requests "x" and supplies "y", B requests "y" and supplies "x"
	g := NewGraph(storeWith(t, "x", "y"))
	require.NoError(t, g.Register(newRecordingOp("A", []string{"x"}, []string{"y"}, nil)))
	require.NoError(t, g.Register(newRecordingOp("B", []string{"y"}, []string{"x"}, nil)))

	// WHEN the order is resolved
	_, err := g.ResolveOrder()

	// THEN the cycle names both operators and closes on its start
	var cyc *CyclicDependencyError
	require.True(t, errors.As(err, &cyc), "got %v", err)
	assert.Equal(t, []string{"A", "B", "A"}, cyc.Cycle)
	assert.Contains(t, err.Error(), "A → B → A")
}

func TestResolveOrder_SelfCycle(t *testing.T) {
	g := NewGraph(storeWith(t, "u"))
	require.NoError(t, g.Register(newRecordingOp("self", []string{"u"}, []string{"u"}, nil)))

	_, err := g.ResolveOrder()

	var cyc *CyclicDependencyError
	require.True(t, errors.As(err, &cyc))
	assert.Equal(t, []string{"self", "self"}, cyc.Cycle)
}

func TestResolveOrder_CycleBehindAcyclicPrefix(t *testing.T) {
	// GIVEN src → P ⇄ Q where only P and Q form the loop
	g := NewGraph(storeWith(t, "s", "p", "q"))
	require.NoError(t, g.Register(newRecordingOp("src", nil, []string{"s"}, nil)))
	require.NoError(t, g.Register(newRecordingOp("P", []string{"s", "q"}, []string{"p"}, nil)))
	require.NoError(t, g.Register(newRecordingOp("Q", []string{"p"}, []string{"q"}, nil)))

	_, err := g.ResolveOrder()

	var cyc *CyclicDependencyError
	require.True(t, errors.As(err, &cyc))
	assert.Equal(t, []string{"P", "Q", "P"}, cyc.Cycle)
}

func TestResolveOrder_UnknownBuffer(t *testing.T) {
	g := NewGraph(storeWith(t, "a"))
	require.NoError(t, g.Register(newRecordingOp("reader", []string{"ghost"}, []string{"a"}, nil)))

	_, err := g.ResolveOrder()

	var unk *UnknownBufferError
	require.True(t, errors.As(err, &unk))
	assert.Equal(t, "ghost", unk.Name)
	assert.Equal(t, "reader", unk.Operator)
}

func TestResolveOrder_RequestingUnsuppliedBufferIsAllowed(t *testing.T) {
	// Buffers nobody supplies are inputs; their state is whatever was set.
	g := NewGraph(storeWith(t, "init", "out"))
	require.NoError(t, g.Register(newRecordingOp("op", []string{"init"}, []string{"out"}, nil)))

	order, err := g.ResolveOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"op"}, opNames(order))
}

func TestResolveOrder_CacheInvalidatedByRegister(t *testing.T) {
	g := NewGraph(storeWith(t, "a", "b"))
	require.NoError(t, g.Register(newRecordingOp("consumer", []string{"a"}, []string{"b"}, nil)))
	order, err := g.ResolveOrder()
	require.NoError(t, err)
	require.Equal(t, []string{"consumer"}, opNames(order))

	require.NoError(t, g.Register(newRecordingOp("producer", nil, []string{"a"}, nil)))
	order, err = g.ResolveOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"producer", "consumer"}, opNames(order))
}

func TestEvaluate_RunsEachOperatorOnceInOrder(t *testing.T) {
	// GIVEN three chained operators registered out of order
	var log []string
	s := storeWith(t, "a", "b", "c")
	g := NewGraph(s)
	require.NoError(t, g.Register(newRecordingOp("third", []string{"b"}, []string{"c"}, &log)))
	require.NoError(t, g.Register(newRecordingOp("first", nil, []string{"a"}, &log)))
	require.NoError(t, g.Register(newRecordingOp("second", []string{"a"}, []string{"b"}, &log)))

	// WHEN evaluated twice
	require.NoError(t, g.Evaluate())
	require.NoError(t, g.Evaluate())

	// THEN each cycle runs every operator exactly once in dependency order
	assert.Equal(t, []string{"first", "second", "third", "first", "second", "third"}, log)
	assert.Equal(t, int64(2), g.Cycles())
}

func TestEvaluate_DataFlowsThroughBuffers(t *testing.T) {
	s := storeWith(t, "a", "b")
	g := NewGraph(s)
	a, _ := s.Real("a")
	b, _ := s.Real("b")

	double := newRecordingOp("double", []string{"a"}, []string{"b"}, nil)
	double.body = func() error {
		for i, v := range a.Data() {
			b.Data()[i] = 2 * v
		}
		return nil
	}
	source := newRecordingOp("source", nil, []string{"a"}, nil)
	source.body = func() error { a.Fill(21); return nil }
	require.NoError(t, g.Register(double))
	require.NoError(t, g.Register(source))

	require.NoError(t, g.Evaluate())
	assert.Equal(t, 42.0, b.At(3, 5))
}

func TestEvaluate_OperatorErrorStopsCycle(t *testing.T) {
	var log []string
	g := NewGraph(storeWith(t, "a", "b"))
	failing := newRecordingOp("failing", nil, []string{"a"}, &log)
	failing.body = func() error { return fmt.Errorf("boom") }
	require.NoError(t, g.Register(failing))
	require.NoError(t, g.Register(newRecordingOp("after", []string{"a"}, []string{"b"}, &log)))

	err := g.Evaluate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), `operator "failing"`)
	assert.Equal(t, []string{"failing"}, log)
	assert.Equal(t, int64(0), g.Cycles())
}

func TestEvaluate_ResolutionErrorSurfaces(t *testing.T) {
	g := NewGraph(storeWith(t, "x", "y"))
	require.NoError(t, g.Register(newRecordingOp("A", []string{"x"}, []string{"y"}, nil)))
	require.NoError(t, g.Register(newRecordingOp("B", []string{"y"}, []string{"x"}, nil)))

	var cyc *CyclicDependencyError
	assert.True(t, errors.As(g.Evaluate(), &cyc))
}

func TestEvaluate_SyncsHostCopies(t *testing.T) {
	s := storeWith(t, "a")
	require.NoError(t, s.MaterializeHostCopy("a"))
	g := NewGraph(s)
	a, _ := s.Real("a")
	op := newRecordingOp("fill", nil, []string{"a"}, nil)
	op.body = func() error { a.Fill(5); return nil }
	require.NoError(t, g.Register(op))

	require.NoError(t, g.Evaluate())

	b, _ := s.Get("a")
	host, ok := b.HostCopy()
	require.True(t, ok)
	assert.Equal(t, 5.0, host.(*Array[float64]).At(0, 0))
}

func TestEvaluate_RecordsTraceAndMetrics(t *testing.T) {
	// GIVEN a graph with a trace and metrics attached
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)
	tr := trace.NewEvaluationTrace(trace.TraceConfig{Level: trace.TraceLevelOperators})
	s := NewStore(testDomain(), WithStoreMetrics(m))
	mustDeclare(t, s, "a", false)
	mustDeclare(t, s, "b", false)
	g := NewGraph(s, WithGraphMetrics(m), WithTrace(tr))
	require.NoError(t, g.Register(newRecordingOp("second", []string{"a"}, []string{"b"}, nil)))
	require.NoError(t, g.Register(newRecordingOp("first", nil, []string{"a"}, nil)))

	// WHEN evaluated three times
	for i := 0; i < 3; i++ {
		require.NoError(t, g.Evaluate())
	}

	// THEN the trace has one record per operator per cycle, in order
	require.Len(t, tr.Operators, 6)
	assert.Equal(t, "first", tr.Operators[0].Operator)
	assert.Equal(t, 0, tr.Operators[0].Position)
	assert.Equal(t, []string{"b"}, tr.Operators[5].Supplied)
	assert.Equal(t, int64(2), tr.Operators[5].Cycle)

	// AND the evaluation counter matches the cycle count
	assert.Equal(t, 3.0, promtest.ToFloat64(m.Evaluations))
	assert.Equal(t, 2, promtest.CollectAndCount(m.OperatorSeconds))
}

package sim

import (
	"fmt"
	"slices"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/fieldsim/sim/trace"
)

// Graph holds the registered operators of one simulation and executes them
// in dependency order, once per evaluation cycle.
type Graph struct {
	store     *Store
	ops       []Operator
	names     map[string]int
	suppliers map[string]int // buffer name → index of supplying operator
	order     []Operator     // cached resolution, nil when stale
	cycles    int64
	metrics   *Metrics
	trace     *trace.EvaluationTrace
}

// GraphOption customizes a Graph.
type GraphOption func(*Graph)

// WithGraphMetrics attaches prometheus instrumentation.
func WithGraphMetrics(m *Metrics) GraphOption {
	return func(g *Graph) { g.metrics = m }
}

// WithTrace records every operator execution into t.
func WithTrace(t *trace.EvaluationTrace) GraphOption {
	return func(g *Graph) { g.trace = t }
}

// NewGraph creates an empty operator graph over store.
func NewGraph(store *Store, opts ...GraphOption) *Graph {
	g := &Graph{
		store:     store,
		names:     make(map[string]int),
		suppliers: make(map[string]int),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Store returns the buffer store the graph operates on.
func (g *Graph) Store() *Store { return g.store }

// Operators returns the registered operators in registration order.
func (g *Graph) Operators() []Operator { return append([]Operator(nil), g.ops...) }

// Cycles returns the number of completed evaluation cycles.
func (g *Graph) Cycles() int64 { return g.cycles }

// Register adds op to the graph. It fails if op's name is taken or if any
// buffer op supplies is already supplied by another operator.
func (g *Graph) Register(op Operator) error {
	if _, exists := g.names[op.Name()]; exists {
		return &DuplicateNameError{Kind: "operator", Name: op.Name()}
	}
	for _, name := range op.Supplied() {
		if i, taken := g.suppliers[name]; taken {
			return &ConflictingSupplierError{Buffer: name, Existing: g.ops[i].Name(), Incoming: op.Name()}
		}
	}
	idx := len(g.ops)
	g.ops = append(g.ops, op)
	g.names[op.Name()] = idx
	for _, name := range op.Supplied() {
		g.suppliers[name] = idx
	}
	g.order = nil
	return nil
}

// successors returns, per operator, the indices of operators that request a
// buffer it supplies, deduplicated and in registration order.
func (g *Graph) successors() [][]int {
	requesters := make(map[string][]int)
	for i, op := range g.ops {
		for _, name := range op.Requested() {
			requesters[name] = append(requesters[name], i)
		}
	}
	succ := make([][]int, len(g.ops))
	for i, op := range g.ops {
		seen := make(map[int]bool)
		for _, name := range op.Supplied() {
			for _, j := range requesters[name] {
				if !seen[j] {
					seen[j] = true
					succ[i] = append(succ[i], j)
				}
			}
		}
		slices.Sort(succ[i])
	}
	return succ
}

// ResolveOrder returns an execution order in which every operator follows
// all suppliers of the buffers it requests. Operators without a constraint
// between them keep their registration order.
func (g *Graph) ResolveOrder() ([]Operator, error) {
	if g.order != nil {
		return append([]Operator(nil), g.order...), nil
	}
	for _, op := range g.ops {
		for _, name := range slices.Concat(op.Requested(), op.Supplied()) {
			if !g.store.Has(name) {
				return nil, &UnknownBufferError{Name: name, Operator: op.Name()}
			}
		}
	}

	succ := g.successors()
	if cycle := g.findCycle(succ); cycle != nil {
		return nil, &CyclicDependencyError{Cycle: cycle}
	}

	indegree := make([]int, len(g.ops))
	for _, next := range succ {
		for _, j := range next {
			indegree[j]++
		}
	}
	ready := &readyQueue{}
	for i, d := range indegree {
		if d == 0 {
			ready.push(i)
		}
	}
	order := make([]Operator, 0, len(g.ops))
	for ready.Len() > 0 {
		i := ready.pop()
		order = append(order, g.ops[i])
		for _, j := range succ[i] {
			indegree[j]--
			if indegree[j] == 0 {
				ready.push(j)
			}
		}
	}

	g.order = order
	names := make([]string, len(order))
	for i, op := range order {
		names[i] = op.Name()
	}
	logrus.Debugf("resolved operator order: %v", names)
	return append([]Operator(nil), order...), nil
}

// findCycle runs a depth-first search in registration order and returns the
// first cycle closed by a back edge, as operator names with the entry
// operator repeated at the end. It returns nil for an acyclic graph.
func (g *Graph) findCycle(succ [][]int) []string {
	const (
		white = iota
		grey
		black
	)
	color := make([]int, len(g.ops))
	var path []int
	var cycle []string

	var visit func(i int) bool
	visit = func(i int) bool {
		color[i] = grey
		path = append(path, i)
		for _, j := range succ[i] {
			switch color[j] {
			case grey:
				start := 0
				for k, v := range path {
					if v == j {
						start = k
						break
					}
				}
				for _, v := range path[start:] {
					cycle = append(cycle, g.ops[v].Name())
				}
				cycle = append(cycle, g.ops[j].Name())
				return true
			case white:
				if visit(j) {
					return true
				}
			}
		}
		path = path[:len(path)-1]
		color[i] = black
		return false
	}

	for i := range g.ops {
		if color[i] == white && visit(i) {
			return cycle
		}
	}
	return nil
}

// Evaluate advances the whole graph by one evaluation: every operator runs
// once in resolved order, then requested host copies are refreshed. Buffer
// contents are final when Evaluate returns without error.
func (g *Graph) Evaluate() error {
	order, err := g.ResolveOrder()
	if err != nil {
		return err
	}
	for pos, op := range order {
		start := time.Now()
		if err := op.ComputeBuffer(); err != nil {
			return fmt.Errorf("operator %q: %w", op.Name(), err)
		}
		elapsed := time.Since(start)
		g.metrics.observeOperator(op.Name(), elapsed)
		if g.trace != nil {
			g.trace.RecordOperator(trace.OperatorRecord{
				Cycle:    g.cycles,
				Position: pos,
				Operator: op.Name(),
				Supplied: op.Supplied(),
				Duration: elapsed,
			})
		}
		logrus.Debugf("[cycle %06d] %s computed %v in %v", g.cycles, op.Name(), op.Supplied(), elapsed)
	}
	if err := g.store.SyncHostCopies(); err != nil {
		return err
	}
	g.cycles++
	g.metrics.countEvaluation()
	return nil
}

// Package integrate advances a reciprocal-space field in time using the
// operator graph for the explicit terms and buffer history for multistep
// schemes.
//
// SemiImplicit solves ∂u/∂t = L u + N(u) where L is diagonal in reciprocal
// space (a buffer holding L̂) and N̂ is a reciprocal buffer recomputed by the
// graph on every evaluation. The linear term is treated implicitly and the
// nonlinear term explicitly (SBDF).
package integrate

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/fieldsim/sim"
	"github.com/inference-sim/fieldsim/sim/trace"
)

// IntegratorName is the supplier name reported when the integrated variable
// is also supplied by a graph operator.
const IntegratorName = "integrator"

// Config selects the buffers and scheme of a SemiImplicit integrator.
type Config struct {
	// Variable is the reciprocal buffer advanced in time. No graph operator
	// may supply it.
	Variable string
	// Linear is the reciprocal scalar buffer holding L̂. Empty means L = 0.
	Linear string
	// Nonlinear is the reciprocal buffer holding N̂, shaped like Variable.
	// Empty means N = 0.
	Nonlinear string
	// Order is 1 (SBDF1) or 2 (SBDF2).
	Order int
	// Dt is the time step.
	Dt float64
}

// Validate checks the scheme parameters.
func (c Config) Validate() error {
	if c.Variable == "" {
		return fmt.Errorf("integrator variable is required")
	}
	if c.Order != 1 && c.Order != 2 {
		return fmt.Errorf("integrator order must be 1 or 2, got %d", c.Order)
	}
	if !(c.Dt > 0) {
		return fmt.Errorf("integrator dt must be positive, got %v", c.Dt)
	}
	return nil
}

// SemiImplicit is a first or second order semi-implicit backward
// differentiation integrator. Each Step runs:
//
//	graph.Evaluate → compute û' → Advance(û, N̂) → û = û'
//
// so histories always hold the states the last completed step started from.
type SemiImplicit struct {
	graph *sim.Graph
	store *sim.Store
	cfg   Config

	u    sim.Handle
	lin  sim.Handle
	non  sim.Handle
	hasL bool
	hasN bool

	uHist *sim.History
	nHist *sim.History

	// components per grid point of the variable; L̂ is shared across them.
	comps int
	next  *sim.Array[complex128]

	step int64
	time float64

	trace *trace.EvaluationTrace
}

// Option customizes a SemiImplicit integrator.
type Option func(*SemiImplicit)

// WithStepTrace records one trace.StepRecord per completed step.
func WithStepTrace(t *trace.EvaluationTrace) Option {
	return func(s *SemiImplicit) { s.trace = t }
}

// WithStartTime sets the initial simulation time.
func WithStartTime(t0 float64) Option {
	return func(s *SemiImplicit) { s.time = t0 }
}

// NewSemiImplicit binds an integrator to graph. For order 2 it requests one
// step of history on the variable and on the nonlinear term.
func NewSemiImplicit(graph *sim.Graph, cfg Config, opts ...Option) (*SemiImplicit, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	store := graph.Store()
	s := &SemiImplicit{graph: graph, store: store, cfg: cfg}

	u, err := sim.BindSpectrum(store, IntegratorName, cfg.Variable)
	if err != nil {
		return nil, err
	}
	s.u = u
	for _, op := range graph.Operators() {
		for _, name := range op.Supplied() {
			if name == cfg.Variable {
				return nil, &sim.ConflictingSupplierError{Buffer: name, Existing: op.Name(), Incoming: IntegratorName}
			}
		}
	}
	ub := store.At(u)
	s.comps = ub.Kind().Components(store.Domain().Rank())

	if cfg.Linear != "" {
		if s.lin, err = sim.BindSpectrum(store, IntegratorName, cfg.Linear); err != nil {
			return nil, err
		}
		if lb := store.At(s.lin); lb.Kind() != sim.Scalar {
			return nil, fmt.Errorf("linear term %q must be a scalar buffer, got %s", cfg.Linear, lb.Kind())
		}
		s.hasL = true
	}
	if cfg.Nonlinear != "" {
		if s.non, err = sim.BindSpectrum(store, IntegratorName, cfg.Nonlinear); err != nil {
			return nil, err
		}
		if nb := store.At(s.non); !sim.ShapeEqual(nb.Shape(), ub.Shape()) {
			return nil, &sim.ShapeMismatchError{Want: ub.Shape(), Got: nb.Shape()}
		}
		s.hasN = true
	}

	if cfg.Order == 2 {
		if s.uHist, err = store.RequestHistory(cfg.Variable, 1); err != nil {
			return nil, err
		}
		if s.hasN {
			if s.nHist, err = store.RequestHistory(cfg.Nonlinear, 1); err != nil {
				return nil, err
			}
		}
	}
	s.next = sim.NewArray[complex128](ub.Shape()...)

	for _, opt := range opts {
		opt(s)
	}
	logrus.Infof("semi-implicit integrator: variable=%s linear=%q nonlinear=%q order=%d dt=%g",
		cfg.Variable, cfg.Linear, cfg.Nonlinear, cfg.Order, cfg.Dt)
	return s, nil
}

// Steps returns the number of completed steps.
func (s *SemiImplicit) Steps() int64 { return s.step }

// Time returns the current simulation time.
func (s *SemiImplicit) Time() float64 { return s.time }

// Config returns the integrator configuration.
func (s *SemiImplicit) Config() Config { return s.cfg }

// secondOrderReady reports whether the histories needed by SBDF2 exist.
func (s *SemiImplicit) secondOrderReady() bool {
	if s.cfg.Order < 2 || s.uHist.Len() < 1 {
		return false
	}
	return !s.hasN || s.nHist.Len() >= 1
}

// Step advances the variable by one time step and returns the order used.
// The first step of an order-2 scheme falls back to order 1.
func (s *SemiImplicit) Step() (int, error) {
	if err := s.graph.Evaluate(); err != nil {
		return 0, fmt.Errorf("step %d: %w", s.step, err)
	}

	order := 1
	if s.secondOrderReady() {
		order = 2
	}
	s.compute(order)

	if _, err := s.store.Advance(s.cfg.Variable); err != nil {
		return 0, err
	}
	if s.hasN {
		if _, err := s.store.Advance(s.cfg.Nonlinear); err != nil {
			return 0, err
		}
	}
	if err := s.store.At(s.u).Spectrum().CopyFrom(s.next); err != nil {
		return 0, err
	}

	s.step++
	s.time += s.cfg.Dt
	if s.trace != nil {
		depth := []int{0, 0}
		if s.uHist != nil {
			depth[0] = s.uHist.Len()
		}
		if s.nHist != nil {
			depth[1] = s.nHist.Len()
		}
		s.trace.RecordStep(trace.StepRecord{Step: s.step, Time: s.time, Order: order, Depth: depth})
	}
	logrus.Debugf("[step %06d] t=%g order=%d", s.step, s.time, order)
	return order, nil
}

// compute writes the next state into s.next.
//
//	SBDF1: û' = (û + dt N̂) / (1 − dt L̂)
//	SBDF2: û' = (4û − û₋₁ + 2dt(2N̂ − N̂₋₁)) / (3 − 2dt L̂)
func (s *SemiImplicit) compute(order int) {
	dt := complex(s.cfg.Dt, 0)
	u := s.store.At(s.u).Spectrum().Data()
	out := s.next.Data()

	var lin, non, u1, n1 []complex128
	if s.hasL {
		lin = s.store.At(s.lin).Spectrum().Data()
	}
	if s.hasN {
		non = s.store.At(s.non).Spectrum().Data()
	}
	if order == 2 {
		u1 = s.uHist.Spectrum(0).Data()
		if s.hasN {
			n1 = s.nHist.Spectrum(0).Data()
		}
	}

	for i := range out {
		var l, n, nPrev complex128
		if lin != nil {
			l = lin[i/s.comps]
		}
		if non != nil {
			n = non[i]
		}
		if order == 1 {
			out[i] = (u[i] + dt*n) / (1 - dt*l)
			continue
		}
		if n1 != nil {
			nPrev = n1[i]
		}
		out[i] = (4*u[i] - u1[i] + 2*dt*(2*n-nPrev)) / (3 - 2*dt*l)
	}
}

// Run performs steps time steps, stopping early if ctx is cancelled. A final
// graph evaluation leaves every derived buffer consistent with the last
// state. observe, when non-nil, is called after every step.
func (s *SemiImplicit) Run(ctx context.Context, steps int, observe func(s *SemiImplicit) error) error {
	for i := 0; i < steps; i++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("stopped after %d steps: %w", s.step, err)
		}
		if _, err := s.Step(); err != nil {
			return err
		}
		if observe != nil {
			if err := observe(s); err != nil {
				return err
			}
		}
	}
	if err := s.graph.Evaluate(); err != nil {
		return fmt.Errorf("final evaluation: %w", err)
	}
	logrus.Infof("[step %06d] integration ended at t=%g", s.step, s.time)
	return nil
}

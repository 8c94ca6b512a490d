package cmd

import (
	"fmt"
	"math"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/inference-sim/fieldsim/sim"
	"github.com/inference-sim/fieldsim/sim/integrate"
	"github.com/inference-sim/fieldsim/sim/operators"
	"github.com/inference-sim/fieldsim/sim/spectral"
	"github.com/inference-sim/fieldsim/sim/trace"
)

// Problem is a fully wired simulation: grid, buffers, operator graph and,
// when a solver section is present, the integrator.
type Problem struct {
	Config     *ProblemConfig
	Grid       *spectral.Grid
	Store      *sim.Store
	Graph      *sim.Graph
	Order      []sim.Operator
	Integrator *integrate.SemiImplicit
	Trace      *trace.EvaluationTrace
	RNG        *sim.PartitionedRNG
}

// BuildOptions carries runtime collaborators that are not part of the
// problem file.
type BuildOptions struct {
	// Registerer receives the field metrics. Nil disables metrics.
	Registerer prometheus.Registerer
	// Device owns buffer storage. Nil means the host.
	Device sim.Device
}

// BuildProblem validates cfg and constructs every component. The operator
// order is resolved eagerly so configuration errors such as cycles surface
// before the first step.
func BuildProblem(cfg *ProblemConfig, opts BuildOptions) (*Problem, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := cfg.Domain
	grid, err := spectral.New(d.Rank, d.Min, d.Max, d.N, spectral.WithWorkers(d.Workers))
	if err != nil {
		return nil, err
	}

	var metrics *sim.Metrics
	if opts.Registerer != nil {
		if metrics, err = sim.NewMetrics(opts.Registerer); err != nil {
			return nil, err
		}
	}
	storeOpts := []sim.StoreOption{sim.WithStoreMetrics(metrics)}
	if opts.Device != nil {
		storeOpts = append(storeOpts, sim.WithDevice(opts.Device))
	}
	store := sim.NewStore(grid.Domain(), storeOpts...)

	p := &Problem{
		Config: cfg,
		Grid:   grid,
		Store:  store,
		RNG:    sim.NewPartitionedRNG(sim.NewSimulationKey(cfg.Seed)),
	}
	graphOpts := []sim.GraphOption{sim.WithGraphMetrics(metrics)}
	if trace.TraceLevel(cfg.Trace) == trace.TraceLevelOperators {
		p.Trace = trace.NewEvaluationTrace(trace.TraceConfig{Level: trace.TraceLevelOperators})
		graphOpts = append(graphOpts, sim.WithTrace(p.Trace))
	}
	p.Graph = sim.NewGraph(store, graphOpts...)

	if err := p.declareBuffers(); err != nil {
		return nil, err
	}
	env := operators.Env{Store: store, Grid: grid}
	for _, spec := range cfg.Operators {
		op, err := operators.New(env, spec)
		if err != nil {
			return nil, err
		}
		if err := p.Graph.Register(op); err != nil {
			return nil, err
		}
	}
	if cfg.Solver != nil {
		var iopts []integrate.Option
		if p.Trace != nil {
			iopts = append(iopts, integrate.WithStepTrace(p.Trace))
		}
		if p.Integrator, err = integrate.NewSemiImplicit(p.Graph, cfg.Solver.integratorConfig(), iopts...); err != nil {
			return nil, err
		}
	}
	if p.Order, err = p.Graph.ResolveOrder(); err != nil {
		return nil, err
	}
	logrus.Infof("problem built: rank=%d shape=%v buffers=%d operators=%d",
		grid.Rank(), grid.Shape(), store.Len(), len(p.Order))
	return p, nil
}

func (s SolverConfig) integratorConfig() integrate.Config {
	return integrate.Config{
		Variable:  s.Variable,
		Linear:    s.Linear,
		Nonlinear: s.Nonlinear,
		Order:     s.Order,
		Dt:        s.Dt,
	}
}

func (p *Problem) declareBuffers() error {
	for _, bc := range p.Config.Buffers {
		kind, err := sim.ParseValueKind(bc.Value)
		if err != nil {
			return err
		}
		var bopts []sim.BufferOption
		if bc.History != nil && !*bc.History {
			bopts = append(bopts, sim.WithoutHistory())
		}
		if _, err := p.Store.Declare(bc.Name, kind, bc.Reciprocal, bopts...); err != nil {
			return err
		}
		if bc.HostCopy {
			if err := p.Store.MaterializeHostCopy(bc.Name); err != nil {
				return err
			}
		}
		if bc.Initial != nil {
			if err := p.initialize(bc); err != nil {
				return fmt.Errorf("initial condition of %q: %w", bc.Name, err)
			}
		}
	}
	return nil
}

// initialize samples the initial condition in real space and writes it into
// the buffer, transforming first when the buffer is reciprocal.
func (p *Problem) initialize(bc BufferConfig) error {
	interval, err := spectral.ParseInterval(p.Config.Domain.Interval)
	if err != nil {
		return err
	}
	fn, err := p.initialField(bc)
	if err != nil {
		return err
	}
	field, err := p.Grid.Sample(interval, fn)
	if err != nil {
		return err
	}
	if !bc.Reciprocal {
		dst, err := p.Store.Real(bc.Name)
		if err != nil {
			return err
		}
		return dst.CopyFrom(field)
	}
	spectrum, err := p.Grid.Forward(field)
	if err != nil {
		return err
	}
	dst, err := p.Store.Spectrum(bc.Name)
	if err != nil {
		return err
	}
	return dst.CopyFrom(spectrum)
}

func (p *Problem) initialField(bc BufferConfig) (func(x []float64) float64, error) {
	ic := bc.Initial
	switch ic.Type {
	case "constant":
		return func([]float64) float64 { return ic.Value }, nil
	case "sine":
		// Mode 0 leaves a dimension constant instead of zeroing the product.
		waves := make([]float64, len(ic.Modes))
		origin := make([]float64, len(ic.Modes))
		for d, m := range ic.Modes {
			lo, hi, err := p.Grid.Bounds(d)
			if err != nil {
				return nil, err
			}
			waves[d] = 2 * math.Pi * float64(m) / (hi - lo)
			origin[d] = lo
		}
		return func(x []float64) float64 {
			v := ic.Amplitude
			for d, k := range waves {
				if k != 0 {
					v *= math.Sin(k * (x[d] - origin[d]))
				}
			}
			return ic.Mean + v
		}, nil
	case "noise":
		rng := p.RNG.ForSubsystem(sim.SubsystemBuffer(bc.Name))
		return func([]float64) float64 {
			return ic.Mean + ic.Amplitude*(2*rng.Float64()-1)
		}, nil
	}
	return nil, fmt.Errorf("unknown initial condition %q", ic.Type)
}

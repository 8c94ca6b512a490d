package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/inference-sim/fieldsim/sim"
	"github.com/inference-sim/fieldsim/sim/trace"
)

// WriteOrderReport prints the domain, declared buffers, resolved operator
// order and solver settings of a built problem.
func WriteOrderReport(w io.Writer, p *Problem) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "domain: rank=%d shape=%v reciprocal_shape=%v\n",
		p.Grid.Rank(), p.Grid.Shape(), p.Grid.ReciprocalShape())

	sb.WriteString("buffers:\n")
	for _, name := range p.Store.Names() {
		b, err := p.Store.Get(name)
		if err != nil {
			return err
		}
		space := "real"
		if b.Reciprocal() {
			space = "reciprocal"
		}
		fmt.Fprintf(&sb, "  - %s (%s, %s", name, b.Kind(), space)
		if depth := b.History().MaxDepth(); depth > 0 {
			fmt.Fprintf(&sb, ", history=%d", depth)
		}
		if b.HostCopyRequested() {
			sb.WriteString(", host_copy")
		}
		sb.WriteString(")\n")
	}

	sb.WriteString("order:\n")
	for i, op := range p.Order {
		fmt.Fprintf(&sb, "  %d. %s: %v -> %v\n", i+1, op.Name(), op.Requested(), op.Supplied())
	}

	if s := p.Config.Solver; s != nil {
		fmt.Fprintf(&sb, "solver: variable=%s linear=%s nonlinear=%s order=%d dt=%g steps=%d\n",
			s.Variable, orNone(s.Linear), orNone(s.Nonlinear), s.Order, s.Dt, s.Steps)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

// RunSummary is the JSON document printed at the end of a run.
type RunSummary struct {
	RunID    string           `json:"run_id"`
	Seed     int64            `json:"seed"`
	Steps    int64            `json:"steps"`
	Time     float64          `json:"time"`
	Cycles   int64            `json:"evaluation_cycles"`
	Order    []string         `json:"order"`
	Fields   []sim.FieldStats `json:"fields"`
	Diverged []string         `json:"diverged,omitempty"`
	Trace    *TraceReport     `json:"trace,omitempty"`
}

// TraceReport is the JSON form of trace.TraceSummary.
type TraceReport struct {
	Executions      map[string]int     `json:"executions"`
	Seconds         map[string]float64 `json:"seconds"`
	TotalSeconds    float64            `json:"total_seconds"`
	MeanSeconds     float64            `json:"mean_seconds"`
	SlowestOperator string             `json:"slowest_operator,omitempty"`
	Steps           int                `json:"steps"`
	MaxOrder        int                `json:"max_order"`
}

// NewRunSummary collects the final state of p. Buffers whose statistics are
// not finite are listed under Diverged and their statistics zeroed, since
// JSON cannot carry NaN or Inf.
func NewRunSummary(runID string, p *Problem) *RunSummary {
	s := &RunSummary{
		RunID:  runID,
		Seed:   int64(p.RNG.Key()),
		Cycles: p.Graph.Cycles(),
		Order:  make([]string, len(p.Order)),
		Fields: sim.SummarizeStore(p.Store),
	}
	if p.Integrator != nil {
		s.Steps = p.Integrator.Steps()
		s.Time = p.Integrator.Time()
	}
	for i, op := range p.Order {
		s.Order[i] = op.Name()
	}
	for i, f := range s.Fields {
		if finite(f.Min, f.Max, f.Mean, f.L2) {
			continue
		}
		s.Diverged = append(s.Diverged, f.Buffer)
		s.Fields[i] = sim.FieldStats{Buffer: f.Buffer, Count: f.Count}
	}
	if p.Trace != nil {
		s.Trace = newTraceReport(trace.Summarize(p.Trace))
	}
	return s
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func newTraceReport(ts *trace.TraceSummary) *TraceReport {
	r := &TraceReport{
		Executions:      ts.Executions,
		Seconds:         make(map[string]float64, len(ts.Durations)),
		TotalSeconds:    ts.TotalDuration.Seconds(),
		MeanSeconds:     ts.MeanDuration.Seconds(),
		SlowestOperator: ts.SlowestOperator,
		Steps:           ts.Steps,
		MaxOrder:        ts.MaxOrder,
	}
	for op, d := range ts.Durations {
		r.Seconds[op] = d.Seconds()
	}
	return r
}

// Print writes the summary to w under a banner.
func (s *RunSummary) Print(w io.Writer) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding run summary: %w", err)
	}
	fmt.Fprintln(w, "=== Simulation Summary ===")
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// Save writes the summary as JSON to path.
func (s *RunSummary) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding run summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing run summary: %w", err)
	}
	return nil
}

// WriteMetrics writes every metric family in g in the text exposition format,
// sorted by name.
func WriteMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	sort.Slice(families, func(i, j int) bool { return families[i].GetName() < families[j].GetName() })
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("writing metric %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// SaveMetrics writes the metrics of g to path.
func SaveMetrics(path string, g prometheus.Gatherer) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating metrics file: %w", err)
	}
	if err := WriteMetrics(f, g); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

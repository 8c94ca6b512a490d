package trace

import "time"

// TraceSummary aggregates statistics from an EvaluationTrace.
type TraceSummary struct {
	TotalExecutions int
	Cycles          int64
	Steps           int
	TotalDuration   time.Duration
	MeanDuration    time.Duration
	MaxDuration     time.Duration
	SlowestOperator string
	Executions      map[string]int           // operator → number of executions
	Durations       map[string]time.Duration // operator → accumulated wall time
	MaxOrder        int
}

// Summarize computes aggregate statistics from an EvaluationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(et *EvaluationTrace) *TraceSummary {
	summary := &TraceSummary{
		Executions: make(map[string]int),
		Durations:  make(map[string]time.Duration),
	}
	if et == nil {
		return summary
	}

	summary.TotalExecutions = len(et.Operators)
	for _, r := range et.Operators {
		summary.Executions[r.Operator]++
		summary.Durations[r.Operator] += r.Duration
		summary.TotalDuration += r.Duration
		if r.Duration > summary.MaxDuration {
			summary.MaxDuration = r.Duration
			summary.SlowestOperator = r.Operator
		}
		if r.Cycle+1 > summary.Cycles {
			summary.Cycles = r.Cycle + 1
		}
	}
	if summary.TotalExecutions > 0 {
		summary.MeanDuration = summary.TotalDuration / time.Duration(summary.TotalExecutions)
	}

	summary.Steps = len(et.Steps)
	for _, s := range et.Steps {
		if s.Order > summary.MaxOrder {
			summary.MaxOrder = s.Order
		}
	}

	return summary
}

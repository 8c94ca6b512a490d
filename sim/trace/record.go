// Package trace provides evaluation-trace recording for operator graph runs.
// This package has no dependencies on sim/ and stores pure data types.
package trace

import "time"

// OperatorRecord captures a single operator execution.
type OperatorRecord struct {
	Cycle    int64         // evaluation cycle the execution belongs to
	Position int           // index in the resolved order
	Operator string
	Supplied []string
	Duration time.Duration
}

// StepRecord captures one integrator time step.
type StepRecord struct {
	Step  int64
	Time  float64
	Order int   // time-integration order actually used for this step
	Depth []int // history depth of each advanced buffer after the step
}

package trace

// TraceLevel controls the verbosity of evaluation tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelOperators captures every operator execution of every evaluation cycle.
	TraceLevelOperators TraceLevel = "operators"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:      true,
	TraceLevelOperators: true,
	"":                  true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
}

// EvaluationTrace collects operator execution records during a run.
type EvaluationTrace struct {
	Config    TraceConfig
	Operators []OperatorRecord
	Steps     []StepRecord
}

// NewEvaluationTrace creates an EvaluationTrace ready for recording.
func NewEvaluationTrace(config TraceConfig) *EvaluationTrace {
	return &EvaluationTrace{
		Config:    config,
		Operators: make([]OperatorRecord, 0),
		Steps:     make([]StepRecord, 0),
	}
}

// RecordOperator appends an operator execution record.
func (et *EvaluationTrace) RecordOperator(record OperatorRecord) {
	et.Operators = append(et.Operators, record)
}

// RecordStep appends an integrator step record.
func (et *EvaluationTrace) RecordStep(record StepRecord) {
	et.Steps = append(et.Steps, record)
}

package trace

// TraceLevel controls the verbosity of step tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelSteps captures one StepRecord per simulated day.
	TraceLevelSteps TraceLevel = "steps"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:  true,
	TraceLevelSteps: true,
	"":              true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
	// Every keeps one record in Every steps; 0 or 1 keeps all.
	Every int
}

// SimulationTrace collects step records during a simulation run.
type SimulationTrace struct {
	Config TraceConfig
	Steps  []StepRecord
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		Config: config,
		Steps:  make([]StepRecord, 0),
	}
}

// Enabled reports whether records are kept at all.
func (st *SimulationTrace) Enabled() bool {
	return st != nil && st.Config.Level == TraceLevelSteps
}

// RecordStep appends a step record, subject to the level and sampling interval.
func (st *SimulationTrace) RecordStep(record StepRecord) {
	if !st.Enabled() {
		return
	}
	if st.Config.Every > 1 && record.Step%st.Config.Every != 0 {
		return
	}
	st.Steps = append(st.Steps, record)
}

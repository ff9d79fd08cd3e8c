package domain

import "time"

// StepStatus represents the execution state of a pipeline step.
type StepStatus string

const (
	StatusPending   StepStatus = "pending"
	StatusRunning   StepStatus = "running"
	StatusCompleted StepStatus = "completed"
	StatusFailed    StepStatus = "failed"
)

// PipelineStep is one unit of the deployment pipeline as reported by the server.
// ID is unique within a pipeline run.
type PipelineStep struct {
	ID       string
	Name     string
	Status   StepStatus
	Output   string
	Duration float64 // seconds
	Color    string
}

// Elapsed returns Duration as a time.Duration.
func (s PipelineStep) Elapsed() time.Duration {
	return time.Duration(s.Duration * float64(time.Second))
}

// LogLevel is the severity tag of a log entry. The server may send levels
// outside the constants below; they are kept verbatim.
type LogLevel string

const (
	LevelDebug   LogLevel = "DEBUG"
	LevelInfo    LogLevel = "INFO"
	LevelWarning LogLevel = "WARNING"
	LevelError   LogLevel = "ERROR"
)

// LogEntry is a single line streamed by the server while a pipeline runs.
type LogEntry struct {
	Timestamp string
	Level     LogLevel
	Message   string
}

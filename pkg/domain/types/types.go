package types

import "github.com/google/uuid"

// Version is the drover version, overwritten at build time via ldflags
var Version = "v0.1.0"

type (
	RunID        string
	RequestID    string
	PipelineName string
	RepoName     string // "owner/name"
	BranchName   string
	CommitSHA    string

	RunStatus  string
	StepStatus string
)

const (
	RunStatusQueued  RunStatus = "queued"
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusFailure RunStatus = "failure"
)

const (
	StepStatusPending StepStatus = "pending"
	StepStatusRunning StepStatus = "running"
	StepStatusSuccess StepStatus = "success"
	StepStatusFailure StepStatus = "failure"
	StepStatusSkipped StepStatus = "skipped"
)

// NewRunID returns a new random run ID
func NewRunID() RunID {
	return RunID(uuid.NewString())
}

// NewRequestID returns a new random request ID
func NewRequestID() RequestID {
	return RequestID(uuid.NewString())
}

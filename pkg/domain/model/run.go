package model

import (
	"time"

	"github.com/m-mizutani/drover/pkg/domain/types"
)

// PipelineRun is the record of one pipeline execution
type PipelineRun struct {
	ID         types.RunID
	Pipeline   types.PipelineName
	Repository types.RepoName
	Branch     types.BranchName
	CommitSHA  types.CommitSHA
	EventType  WebhookEventType
	Status     types.RunStatus
	CacheKey   string
	CacheHit   bool
	StartedAt  time.Time
	FinishedAt time.Time
	Steps      []StepResult

	// Packages holds the pinned dependencies parsed from lockfile-shaped
	// cache key files, for diagnostics of the cached build
	Packages  []LockedPackage   `firestore:",omitempty" json:",omitempty"`
	Diagnosis *FailureDiagnosis `firestore:",omitempty" json:",omitempty"`
}

// StepResult is the outcome of a single step within a run
type StepResult struct {
	Name       string
	Command    string
	Status     types.StepStatus
	ExitCode   int
	Output     string
	StartedAt  time.Time
	FinishedAt time.Time
}

// NewPipelineRun creates a queued run for the pipeline and event, with all
// steps pending in definition order.
func NewPipelineRun(p *Pipeline, e *WebhookEvent) *PipelineRun {
	steps := make([]StepResult, 0, len(p.Steps))
	for _, s := range p.Steps {
		steps = append(steps, StepResult{
			Name:    s.Name,
			Command: s.Run,
			Status:  types.StepStatusPending,
		})
	}

	return &PipelineRun{
		ID:         types.NewRunID(),
		Pipeline:   p.Name,
		Repository: e.Repository,
		Branch:     e.Branch,
		CommitSHA:  e.CommitSHA,
		EventType:  e.Type,
		Status:     types.RunStatusQueued,
		Steps:      steps,
	}
}

// FailedStep returns the first failed step of the run, or nil
func (r *PipelineRun) FailedStep() *StepResult {
	for i := range r.Steps {
		if r.Steps[i].Status == types.StepStatusFailure {
			return &r.Steps[i]
		}
	}
	return nil
}

// Duration returns the wall time of the run, zero if it has not finished
func (r *PipelineRun) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// CommitStatus is a commit status to report back to GitHub
type CommitStatus struct {
	State       string // pending, success, failure, error
	Description string
	Context     string
}

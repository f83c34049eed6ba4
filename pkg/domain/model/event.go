package model

import (
	"strings"
	"time"

	"github.com/m-mizutani/drover/pkg/domain/types"
)

// WebhookEventType represents the type of webhook event received
type WebhookEventType string

const (
	EventTypePush        WebhookEventType = "push"
	EventTypePullRequest WebhookEventType = "pull_request"
	EventTypeUnknown     WebhookEventType = "unknown"
)

// WebhookEvent represents a webhook event received from GitHub
type WebhookEvent struct {
	ID         string           // Retrieved from X-GitHub-Delivery header
	Type       WebhookEventType // Retrieved from X-GitHub-Event header
	Action     string           // Event action (e.g. opened, synchronize)
	Repository types.RepoName   // Repository full name ("owner/name")
	Branch     types.BranchName // Push: pushed branch, PR: base branch
	CommitSHA  types.CommitSHA  // Push: head commit, PR: head SHA
	Sender     string           // Sender username
	ReceivedAt time.Time        // Time when the event was received
	RawPayload []byte           // Raw JSON payload
}

// IsSupportedEvent checks if the event can trigger a pipeline
func (e *WebhookEvent) IsSupportedEvent() bool {
	switch e.Type {
	case EventTypePush:
		// Tag pushes carry no branch and never trigger
		return e.Branch != ""
	case EventTypePullRequest:
		switch e.Action {
		case "opened", "synchronize", "reopened":
			return true
		}
		return false
	default:
		return false
	}
}

// Owner returns the repository owner part of the full name
func (e *WebhookEvent) Owner() string {
	owner, _, _ := strings.Cut(string(e.Repository), "/")
	return owner
}

// Repo returns the repository name part of the full name
func (e *WebhookEvent) Repo() string {
	_, repo, _ := strings.Cut(string(e.Repository), "/")
	return repo
}

// BranchFromRef extracts a branch name from a Git ref. It returns an empty
// string for refs that are not branches (e.g. "refs/tags/v1.0").
func BranchFromRef(ref string) types.BranchName {
	const prefix = "refs/heads/"
	if !strings.HasPrefix(ref, prefix) {
		return ""
	}
	return types.BranchName(strings.TrimPrefix(ref, prefix))
}

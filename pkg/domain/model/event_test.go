package model_test

import (
	"testing"

	"github.com/m-mizutani/drover/pkg/domain/model"
)

func TestWebhookEvent_IsSupportedEvent(t *testing.T) {
	tests := []struct {
		name     string
		event    *model.WebhookEvent
		expected bool
	}{
		{
			name: "Push to branch - supported",
			event: &model.WebhookEvent{
				Type:   model.EventTypePush,
				Branch: "main",
			},
			expected: true,
		},
		{
			name: "Tag push - not supported",
			event: &model.WebhookEvent{
				Type:   model.EventTypePush,
				Branch: "",
			},
			expected: false,
		},
		{
			name: "Pull Request opened - supported",
			event: &model.WebhookEvent{
				Type:   model.EventTypePullRequest,
				Action: "opened",
				Branch: "main",
			},
			expected: true,
		},
		{
			name: "Pull Request synchronize - supported",
			event: &model.WebhookEvent{
				Type:   model.EventTypePullRequest,
				Action: "synchronize",
				Branch: "main",
			},
			expected: true,
		},
		{
			name: "Pull Request reopened - supported",
			event: &model.WebhookEvent{
				Type:   model.EventTypePullRequest,
				Action: "reopened",
				Branch: "main",
			},
			expected: true,
		},
		{
			name: "Pull Request closed - not supported",
			event: &model.WebhookEvent{
				Type:   model.EventTypePullRequest,
				Action: "closed",
				Branch: "main",
			},
			expected: false,
		},
		{
			name: "Unknown event type",
			event: &model.WebhookEvent{
				Type:   model.EventTypeUnknown,
				Branch: "main",
			},
			expected: false,
		},
		{
			name: "Different event type",
			event: &model.WebhookEvent{
				Type:   model.WebhookEventType("issues"),
				Action: "opened",
			},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.event.IsSupportedEvent()
			if got != tt.expected {
				t.Errorf("IsSupportedEvent() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBranchFromRef(t *testing.T) {
	tests := []struct {
		ref      string
		expected string
	}{
		{"refs/heads/main", "main"},
		{"refs/heads/feature/cache", "feature/cache"},
		{"refs/tags/v1.0.0", ""},
		{"main", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			if got := string(model.BranchFromRef(tt.ref)); got != tt.expected {
				t.Errorf("BranchFromRef(%q) = %q, want %q", tt.ref, got, tt.expected)
			}
		})
	}
}

func TestWebhookEvent_OwnerRepo(t *testing.T) {
	e := &model.WebhookEvent{Repository: "mizutani/brando"}
	if e.Owner() != "mizutani" {
		t.Errorf("Owner() = %q, want %q", e.Owner(), "mizutani")
	}
	if e.Repo() != "brando" {
		t.Errorf("Repo() = %q, want %q", e.Repo(), "brando")
	}
}

package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	controller "github.com/m-mizutani/drover/pkg/controller/http"
	"github.com/m-mizutani/drover/pkg/domain/model"
	"github.com/m-mizutani/drover/pkg/domain/types"
	"github.com/m-mizutani/drover/pkg/repository/memory"
	"github.com/m-mizutani/drover/pkg/usecase"
)

func TestRunsAPI(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	run := &model.PipelineRun{
		ID:         types.NewRunID(),
		Pipeline:   "brando",
		Repository: "mizutani/brando",
		Branch:     "master",
		CommitSHA:  "abc1234",
		Status:     types.RunStatusSuccess,
		StartedAt:  time.Now().Add(-time.Minute),
		FinishedAt: time.Now(),
	}
	if err := repo.PutRun(ctx, run); err != nil {
		t.Fatalf("Failed to store run: %v", err)
	}

	server, err := controller.NewServer(
		ctx,
		usecase.NewWebhook(),
		controller.WithAddr("localhost:0"),
		controller.WithWebhookSecret("test-secret"),
		controller.WithRunRepository(repo),
	)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	t.Run("Get existing run", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/runs/"+string(run.ID), nil)
		w := httptest.NewRecorder()

		server.Handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Status code = %v, want %v, body = %s", w.Code, http.StatusOK, w.Body.String())
		}

		var got model.PipelineRun
		if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if got.ID != run.ID {
			t.Errorf("ID = %v, want %v", got.ID, run.ID)
		}
		if got.Pipeline != "brando" {
			t.Errorf("Pipeline = %v, want brando", got.Pipeline)
		}
	})

	t.Run("Get unknown run", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/runs/no-such-run", nil)
		w := httptest.NewRecorder()

		server.Handler.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("Status code = %v, want %v", w.Code, http.StatusNotFound)
		}
	})

	t.Run("List runs of repository", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/runs?repo=mizutani/brando", nil)
		w := httptest.NewRecorder()

		server.Handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Status code = %v, want %v", w.Code, http.StatusOK)
		}

		var response struct {
			Runs []*model.PipelineRun `json:"runs"`
		}
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if len(response.Runs) != 1 {
			t.Errorf("Runs count = %v, want 1", len(response.Runs))
		}
	})

	t.Run("List without repo parameter", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
		w := httptest.NewRecorder()

		server.Handler.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Status code = %v, want %v", w.Code, http.StatusBadRequest)
		}
	})
}

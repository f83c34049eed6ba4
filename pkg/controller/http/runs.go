package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/drover/pkg/domain/interfaces"
	"github.com/m-mizutani/drover/pkg/domain/types"
	"github.com/m-mizutani/drover/pkg/repository"
	"github.com/m-mizutani/drover/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// RunsHandler serves pipeline run records
type RunsHandler struct {
	repo interfaces.RunRepository
}

// NewRunsHandler creates a new RunsHandler
func NewRunsHandler(repo interfaces.RunRepository) *RunsHandler {
	return &RunsHandler{repo: repo}
}

// Get returns one run by ID
func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	runID := types.RunID(chi.URLParam(r, "runID"))

	run, err := h.repo.GetRun(ctx, runID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, err, http.StatusNotFound)
			return
		}
		logging.From(ctx).Error("Failed to get run", "run_id", runID, "error", err)
		writeError(w, err, http.StatusInternalServerError)
		return
	}

	writeJSON(w, run)
}

// List returns the runs of a repository, newest first
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	repoName := r.URL.Query().Get("repo")
	if repoName == "" {
		writeError(w, goerr.New("repo query parameter is required"), http.StatusBadRequest)
		return
	}

	runs, err := h.repo.ListRuns(ctx, types.RepoName(repoName))
	if err != nil {
		logging.From(ctx).Error("Failed to list runs", "repo", repoName, "error", err)
		writeError(w, err, http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"runs": runs,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Default().Error("Failed to encode response", "error", err)
	}
}

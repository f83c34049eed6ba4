package firestore

import (
	"context"
	"sort"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/drover/pkg/domain/model"
	"github.com/m-mizutani/drover/pkg/domain/types"
	"github.com/m-mizutani/drover/pkg/repository"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const collectionRuns = "runs"

type runRepository struct {
	client *firestore.Client
}

func (r *runRepository) PutRun(ctx context.Context, run *model.PipelineRun) error {
	if run.ID == "" {
		return goerr.Wrap(repository.ErrInvalidInput, "run ID is empty")
	}

	docRef := r.client.Collection(collectionRuns).Doc(string(run.ID))

	if _, err := docRef.Set(ctx, run); err != nil {
		return goerr.Wrap(err, "failed to put run",
			goerr.V("runID", run.ID),
		)
	}

	return nil
}

func (r *runRepository) GetRun(ctx context.Context, id types.RunID) (*model.PipelineRun, error) {
	docRef := r.client.Collection(collectionRuns).Doc(string(id))

	snap, err := docRef.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(repository.ErrNotFound, "run not found",
				goerr.V("runID", id),
			)
		}
		return nil, goerr.Wrap(err, "failed to get run",
			goerr.V("runID", id),
		)
	}

	var run model.PipelineRun
	if err := snap.DataTo(&run); err != nil {
		return nil, goerr.Wrap(err, "failed to decode run",
			goerr.V("runID", id),
		)
	}

	return &run, nil
}

func (r *runRepository) ListRuns(ctx context.Context, repo types.RepoName) ([]*model.PipelineRun, error) {
	query := r.client.Collection(collectionRuns).Where("Repository", "==", string(repo))

	iter := query.Documents(ctx)
	defer iter.Stop()

	var runs []*model.PipelineRun
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate runs",
				goerr.V("repo", repo),
			)
		}

		var run model.PipelineRun
		if err := snap.DataTo(&run); err != nil {
			return nil, goerr.Wrap(err, "failed to decode run",
				goerr.V("docID", snap.Ref.ID),
			)
		}
		runs = append(runs, &run)
	}

	// Sorted in memory to avoid a composite index on (Repository, StartedAt)
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})

	return runs, nil
}

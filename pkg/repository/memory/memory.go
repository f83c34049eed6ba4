package memory

import (
	"sync"

	"github.com/m-mizutani/drover/pkg/domain/interfaces"
	"github.com/m-mizutani/drover/pkg/domain/model"
)

// New creates a new in-memory run repository
func New() interfaces.RunRepository {
	return &runRepository{
		runs: make(map[string]*model.PipelineRun),
	}
}

type runRepository struct {
	mu   sync.RWMutex
	runs map[string]*model.PipelineRun
}

package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/nungthesnail/telegram-ai/pkg/domain"
)

type ModelRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.ModelInfo, error)
	List(ctx context.Context) ([]domain.ModelInfo, error)
}

// modelService is a read-through cache of model pricing. Entries never expire;
// pricing changes need a restart.
type modelService struct {
	repo ModelRepository

	mu    sync.RWMutex
	cache map[int64]domain.ModelInfo
}

func NewModelService(repo ModelRepository) *modelService {
	return &modelService{
		repo:  repo,
		cache: make(map[int64]domain.ModelInfo),
	}
}

func (m *modelService) GetModelInfo(ctx context.Context, id int64) (*domain.ModelInfo, error) {
	m.mu.RLock()
	info, ok := m.cache[id]
	m.mu.RUnlock()
	if ok {
		return &info, nil
	}

	loaded, err := m.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetching model %d: %w", id, err)
	}

	m.mu.Lock()
	m.cache[id] = *loaded
	m.mu.Unlock()

	info = *loaded
	return &info, nil
}

// ListModels reads all models from storage and refreshes the cache with them.
func (m *modelService) ListModels(ctx context.Context) ([]domain.ModelInfo, error) {
	models, err := m.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing models: %w", err)
	}

	m.mu.Lock()
	for _, info := range models {
		m.cache[info.ID] = info
	}
	m.mu.Unlock()

	return models, nil
}

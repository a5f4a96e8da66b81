package rules

import (
	"context"
	"sync"

	"github.com/leoapplecool/discord-x-housing-bridge/models"
)

// MemoryRepository is an in-memory services.RulesRepository used by tests
// and available as a last-resort backend when persistence is disabled.
type MemoryRepository struct {
	mu       sync.Mutex
	document *models.BridgeRules
	LoadErr  error
	SaveErr  error
	Saves    int
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Load(ctx context.Context) (*models.BridgeRules, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.LoadErr != nil {
		return nil, r.LoadErr
	}
	if r.document == nil {
		return nil, nil
	}
	return r.document.Clone(), nil
}

func (r *MemoryRepository) Save(ctx context.Context, rules *models.BridgeRules) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.SaveErr != nil {
		return r.SaveErr
	}
	r.document = rules.Clone()
	r.Saves++
	return nil
}

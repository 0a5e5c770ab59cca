package payment

import (
	"context"
	"sync"

	"tienda_perfumes/internal/models"
)

// IntentStore conserve les intents simulés. Il n'offre pas de compare-and-set :
// deux transitions concurrentes sur un même intent se résolvent au dernier écrit.
type IntentStore interface {
	Save(ctx context.Context, p *models.MockPayment) error
	Get(ctx context.Context, id string) (*models.MockPayment, bool)
}

// MemoryIntentStore est créé au démarrage du service et perdu à l'arrêt.
type MemoryIntentStore struct {
	mu      sync.RWMutex
	intents map[string]models.MockPayment
}

func NewMemoryIntentStore() *MemoryIntentStore {
	return &MemoryIntentStore{intents: make(map[string]models.MockPayment)}
}

func (s *MemoryIntentStore) Save(_ context.Context, p *models.MockPayment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intents[p.ID] = *p
	return nil
}

func (s *MemoryIntentStore) Get(_ context.Context, id string) (*models.MockPayment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.intents[id]
	if !ok {
		return nil, false
	}
	return &p, true
}

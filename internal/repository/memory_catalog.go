package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"tienda_perfumes/internal/models"
)

// MemoryCatalog garde le catalogue en mémoire. Un seul verrou couvre la
// vérification et la décrémentation du stock.
type MemoryCatalog struct {
	mu       sync.Mutex
	perfumes map[string]models.Perfume
}

func NewMemoryCatalog(seed ...models.Perfume) *MemoryCatalog {
	m := &MemoryCatalog{perfumes: make(map[string]models.Perfume)}
	for _, p := range seed {
		m.perfumes[p.ID] = clonePerfume(p)
	}
	return m
}

func clonePerfume(p models.Perfume) models.Perfume {
	p.ImageURLs = append([]string(nil), p.ImageURLs...)
	return p
}

func (m *MemoryCatalog) CreatePerfume(_ context.Context, p *models.Perfume) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.perfumes[p.ID]; exists {
		return ErrDuplicate
	}
	m.perfumes[p.ID] = clonePerfume(*p)
	return nil
}

func (m *MemoryCatalog) GetPerfume(_ context.Context, id string) (*models.Perfume, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.perfumes[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := clonePerfume(p)
	return &out, nil
}

func (m *MemoryCatalog) GetPerfumes(_ context.Context, ids []string) (map[string]models.Perfume, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]models.Perfume, len(ids))
	for _, id := range ids {
		if p, ok := m.perfumes[id]; ok {
			out[id] = clonePerfume(p)
		}
	}
	return out, nil
}

func (m *MemoryCatalog) ListPerfumes(_ context.Context, limit int) ([]models.Perfume, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Perfume, 0, len(m.perfumes))
	for _, p := range m.perfumes {
		out = append(out, clonePerfume(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryCatalog) AddImageURL(_ context.Context, id, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.perfumes[id]
	if !ok {
		return ErrNotFound
	}
	p.ImageURLs = append(p.ImageURLs, url)
	p.UpdatedAt = time.Now()
	m.perfumes[id] = p
	return nil
}

func (m *MemoryCatalog) DecrementStock(_ context.Context, id string, qty int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.perfumes[id]
	if !ok {
		return 0, ErrNotFound
	}
	if p.Stock < qty {
		return p.Stock, &StockError{PerfumeID: id, Available: p.Stock, Requested: qty}
	}
	p.Stock -= qty
	p.UpdatedAt = time.Now()
	m.perfumes[id] = p
	return p.Stock, nil
}

func (m *MemoryCatalog) IncrementStock(_ context.Context, id string, qty int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.perfumes[id]
	if !ok {
		return 0, ErrNotFound
	}
	p.Stock += qty
	p.UpdatedAt = time.Now()
	m.perfumes[id] = p
	return p.Stock, nil
}

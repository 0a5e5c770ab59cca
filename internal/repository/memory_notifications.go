package repository

import (
	"context"
	"sort"
	"sync"

	"tienda_perfumes/internal/models"
)

type MemoryNotifications struct {
	mu     sync.Mutex
	byUser map[string][]models.Notification
}

func NewMemoryNotifications() *MemoryNotifications {
	return &MemoryNotifications{byUser: make(map[string][]models.Notification)}
}

func (m *MemoryNotifications) CreateNotification(_ context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byUser[n.UserID] = append(m.byUser[n.UserID], *n)
	return nil
}

func (m *MemoryNotifications) ListNotifications(_ context.Context, userID string, limit int) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]models.Notification(nil), m.byUser[userID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryNotifications) CountUnread(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, n := range m.byUser[userID] {
		if !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (m *MemoryNotifications) MarkRead(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.byUser[userID]
	for i := range list {
		if list[i].ID == id {
			list[i].IsRead = true
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryNotifications) MarkAllRead(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.byUser[userID]
	for i := range list {
		list[i].IsRead = true
	}
	return nil
}

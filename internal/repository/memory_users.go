package repository

import (
	"context"
	"strings"
	"sync"

	"tienda_perfumes/internal/models"
)

type MemoryUsers struct {
	mu         sync.Mutex
	users      map[string]models.User
	byUsername map[string]string
}

func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{
		users:      make(map[string]models.User),
		byUsername: make(map[string]string),
	}
}

func (m *MemoryUsers) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(u.Username)
	if _, taken := m.byUsername[key]; taken {
		return ErrDuplicate
	}
	m.users[u.ID] = *u
	m.byUsername[key] = u.ID
	return nil
}

func (m *MemoryUsers) GetUser(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *MemoryUsers) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	id, ok := m.byUsername[strings.ToLower(username)]
	m.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	return m.GetUser(ctx, id)
}

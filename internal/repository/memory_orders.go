package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"tienda_perfumes/internal/models"
)

type MemoryOrders struct {
	mu       sync.Mutex
	orders   map[string]models.Order
	byNumber map[string]string
}

func NewMemoryOrders() *MemoryOrders {
	return &MemoryOrders{
		orders:   make(map[string]models.Order),
		byNumber: make(map[string]string),
	}
}

func cloneOrder(o models.Order) models.Order {
	o.Items = append([]models.OrderItem(nil), o.Items...)
	return o
}

func (m *MemoryOrders) CreateOrder(_ context.Context, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.byNumber[o.OrderNumber]; taken {
		return ErrDuplicate
	}
	if _, exists := m.orders[o.ID]; exists {
		return ErrDuplicate
	}
	m.orders[o.ID] = cloneOrder(*o)
	m.byNumber[o.OrderNumber] = o.ID
	return nil
}

func (m *MemoryOrders) GetOrder(_ context.Context, id string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneOrder(o)
	return &out, nil
}

func (m *MemoryOrders) GetOrderByNumber(ctx context.Context, number string) (*models.Order, error) {
	m.mu.Lock()
	id, ok := m.byNumber[number]
	m.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	return m.GetOrder(ctx, id)
}

func (m *MemoryOrders) ListOrdersByUser(_ context.Context, userID string) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryOrders) UpdateOrderStatus(_ context.Context, id string, from, to models.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return ErrNotFound
	}
	if o.Status != from {
		return ErrConflict
	}
	o.Status = to
	o.UpdatedAt = time.Now()
	m.orders[id] = o
	return nil
}

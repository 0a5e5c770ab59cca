package repository

import (
	"context"
	"sync"
	"time"

	"tienda_perfumes/internal/models"
)

type MemoryPayments struct {
	mu       sync.Mutex
	payments map[string]models.Payment
}

func NewMemoryPayments() *MemoryPayments {
	return &MemoryPayments{payments: make(map[string]models.Payment)}
}

func (m *MemoryPayments) CreatePayment(_ context.Context, p *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.payments[p.ID]; exists {
		return ErrDuplicate
	}
	m.payments[p.ID] = *p
	return nil
}

func (m *MemoryPayments) find(match func(models.Payment) bool) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if match(p) {
			out := p
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryPayments) GetPaymentByOrder(_ context.Context, orderID string) (*models.Payment, error) {
	return m.find(func(p models.Payment) bool { return p.OrderID == orderID })
}

func (m *MemoryPayments) GetPaymentByIntent(_ context.Context, intentID string) (*models.Payment, error) {
	return m.find(func(p models.Payment) bool { return p.IntentID == intentID })
}

func (m *MemoryPayments) UpdatePaymentStatus(_ context.Context, id string, status models.PaymentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return ErrNotFound
	}
	p.Status = status
	p.UpdatedAt = time.Now()
	m.payments[id] = p
	return nil
}

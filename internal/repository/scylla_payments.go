package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocql/gocql"

	"tienda_perfumes/internal/models"
)

type ScyllaPayments struct {
	session *gocql.Session
}

func NewScyllaPayments(session *gocql.Session) *ScyllaPayments {
	return &ScyllaPayments{session: session}
}

func (r *ScyllaPayments) CreatePayment(ctx context.Context, p *models.Payment) error {
	batch := r.session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	batch.Query(`INSERT INTO payments (payment_id, order_id, intent_id, provider, amount, method, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.OrderID, p.IntentID, p.Provider, p.Amount.String(), p.Method, string(p.Status), p.CreatedAt, p.UpdatedAt)
	batch.Query(`INSERT INTO payments_by_order (order_id, payment_id) VALUES (?, ?)`, p.OrderID, p.ID)
	batch.Query(`INSERT INTO payments_by_intent (intent_id, payment_id) VALUES (?, ?)`, p.IntentID, p.ID)
	return r.session.ExecuteBatch(batch)
}

func (r *ScyllaPayments) get(ctx context.Context, id string) (*models.Payment, error) {
	var (
		p              models.Payment
		amount, status string
	)
	err := r.session.Query(`SELECT payment_id, order_id, intent_id, provider, amount, method, status, created_at, updated_at
		FROM payments WHERE payment_id = ?`, id).WithContext(ctx).Scan(
		&p.ID, &p.OrderID, &p.IntentID, &p.Provider, &amount, &p.Method, &status, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var a amounts
	p.Amount = a.parse("amount", amount)
	if a.err != nil {
		return nil, fmt.Errorf("paiement %s: %w", id, a.err)
	}
	p.Status = models.PaymentStatus(status)
	return &p, nil
}

func (r *ScyllaPayments) lookup(ctx context.Context, query, key string) (*models.Payment, error) {
	var id string
	err := r.session.Query(query, key).WithContext(ctx).Scan(&id)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r.get(ctx, id)
}

func (r *ScyllaPayments) GetPaymentByOrder(ctx context.Context, orderID string) (*models.Payment, error) {
	return r.lookup(ctx, `SELECT payment_id FROM payments_by_order WHERE order_id = ?`, orderID)
}

func (r *ScyllaPayments) GetPaymentByIntent(ctx context.Context, intentID string) (*models.Payment, error) {
	return r.lookup(ctx, `SELECT payment_id FROM payments_by_intent WHERE intent_id = ?`, intentID)
}

func (r *ScyllaPayments) UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus) error {
	applied, err := r.session.Query(`UPDATE payments SET status = ?, updated_at = ? WHERE payment_id = ? IF EXISTS`,
		string(status), time.Now(), id).WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return err
	}
	if !applied {
		return ErrNotFound
	}
	return nil
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocql/gocql"

	"tienda_perfumes/internal/models"
)

const orderColumns = `order_id, order_number, user_id, subtotal, tax, shipping, total, status,
	shipping_address, billing_address, customer_email, customer_phone, payment_method, created_at, updated_at`

type ScyllaOrders struct {
	session *gocql.Session
}

func NewScyllaOrders(session *gocql.Session) *ScyllaOrders {
	return &ScyllaOrders{session: session}
}

// CreateOrder réserve d'abord le numéro de commande (LWT IF NOT EXISTS) puis écrit
// l'en-tête, les lignes et l'index par utilisateur.
func (r *ScyllaOrders) CreateOrder(ctx context.Context, o *models.Order) error {
	applied, err := r.session.Query(`INSERT INTO orders_by_number (order_number, order_id) VALUES (?, ?) IF NOT EXISTS`,
		o.OrderNumber, o.ID).WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return err
	}
	if !applied {
		return ErrDuplicate
	}

	batch := r.session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	batch.Query(`INSERT INTO orders (`+orderColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.OrderNumber, o.UserID, o.Subtotal.String(), o.Tax.String(), o.Shipping.String(), o.Total.String(),
		string(o.Status), o.ShippingAddress, o.BillingAddress, o.CustomerEmail, o.CustomerPhone, o.PaymentMethod,
		o.CreatedAt, o.UpdatedAt)
	for i, it := range o.Items {
		batch.Query(`INSERT INTO order_items (order_id, line_no, perfume_id, perfume_name, seller_id, quantity, unit_price, total_price)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			o.ID, i, it.PerfumeID, it.PerfumeName, it.SellerID, it.Quantity, it.UnitPrice.String(), it.TotalPrice.String())
	}
	batch.Query(`INSERT INTO orders_by_user (user_id, created_at, order_id) VALUES (?, ?, ?)`, o.UserID, o.CreatedAt, o.ID)

	if err := r.session.ExecuteBatch(batch); err != nil {
		// Libère le numéro pour ne pas laisser d'index orphelin.
		_ = r.session.Query(`DELETE FROM orders_by_number WHERE order_number = ?`, o.OrderNumber).WithContext(ctx).Exec()
		return err
	}
	return nil
}

func (r *ScyllaOrders) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var (
		o                              models.Order
		status                         string
		subtotal, tax, shipping, total string
	)
	err := r.session.Query(`SELECT `+orderColumns+` FROM orders WHERE order_id = ?`, id).WithContext(ctx).Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &subtotal, &tax, &shipping, &total, &status,
		&o.ShippingAddress, &o.BillingAddress, &o.CustomerEmail, &o.CustomerPhone, &o.PaymentMethod,
		&o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	o.Status = models.OrderStatus(status)
	var a amounts
	o.Subtotal = a.parse("subtotal", subtotal)
	o.Tax = a.parse("tax", tax)
	o.Shipping = a.parse("shipping", shipping)
	o.Total = a.parse("total", total)

	iter := r.session.Query(`SELECT perfume_id, perfume_name, seller_id, quantity, unit_price, total_price
		FROM order_items WHERE order_id = ?`, id).WithContext(ctx).Iter()
	var (
		it               models.OrderItem
		unitPrice, price string
	)
	for iter.Scan(&it.PerfumeID, &it.PerfumeName, &it.SellerID, &it.Quantity, &unitPrice, &price) {
		it.OrderID = id
		it.UnitPrice = a.parse("unit_price", unitPrice)
		it.TotalPrice = a.parse("total_price", price)
		o.Items = append(o.Items, it)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	if a.err != nil {
		return nil, fmt.Errorf("commande %s: %w", id, a.err)
	}
	return &o, nil
}

func (r *ScyllaOrders) GetOrderByNumber(ctx context.Context, number string) (*models.Order, error) {
	var id string
	err := r.session.Query(`SELECT order_id FROM orders_by_number WHERE order_number = ?`, number).
		WithContext(ctx).Scan(&id)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r.GetOrder(ctx, id)
}

func (r *ScyllaOrders) ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	iter := r.session.Query(`SELECT order_id FROM orders_by_user WHERE user_id = ?`, userID).WithContext(ctx).Iter()
	var ids []string
	var id string
	for iter.Scan(&id) {
		ids = append(ids, id)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}

	orders := make([]models.Order, 0, len(ids))
	for _, id := range ids {
		o, err := r.GetOrder(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, nil
}

func (r *ScyllaOrders) UpdateOrderStatus(ctx context.Context, id string, from, to models.OrderStatus) error {
	var current string
	applied, err := r.session.Query(`UPDATE orders SET status = ?, updated_at = ? WHERE order_id = ? IF status = ?`,
		string(to), time.Now(), id, string(from)).WithContext(ctx).ScanCAS(&current)
	if err != nil {
		return err
	}
	if !applied {
		if current == "" {
			return ErrNotFound
		}
		return ErrConflict
	}
	return nil
}

package database

import (
	"fmt"
	"log"

	"tienda_perfumes/internal/config"
)

// Les montants sont stockés en text (représentation exacte de decimal.Decimal).
var productsSchema = []string{
	`CREATE TABLE IF NOT EXISTS perfumes (
		perfume_id text PRIMARY KEY,
		seller_id text,
		name text,
		description text,
		brand text,
		category text,
		price text,
		stock int,
		low_stock_threshold int,
		image_urls list<text>,
		is_active boolean,
		created_at timestamp,
		updated_at timestamp
	)`,
}

var usersSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		user_id text PRIMARY KEY,
		username text,
		name text,
		email text,
		password text,
		role text,
		created_at timestamp
	)`,
	`CREATE TABLE IF NOT EXISTS users_by_username (
		username text PRIMARY KEY,
		user_id text
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		user_id text,
		notification_id timeuuid,
		title text,
		message text,
		type text,
		order_id text,
		is_read boolean,
		created_at timestamp,
		PRIMARY KEY (user_id, notification_id)
	) WITH CLUSTERING ORDER BY (notification_id DESC)`,
}

var ordersSchema = []string{
	`CREATE TABLE IF NOT EXISTS orders (
		order_id text PRIMARY KEY,
		order_number text,
		user_id text,
		subtotal text,
		tax text,
		shipping text,
		total text,
		status text,
		shipping_address text,
		billing_address text,
		customer_email text,
		customer_phone text,
		payment_method text,
		created_at timestamp,
		updated_at timestamp
	)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		order_id text,
		line_no int,
		perfume_id text,
		perfume_name text,
		seller_id text,
		quantity int,
		unit_price text,
		total_price text,
		PRIMARY KEY (order_id, line_no)
	)`,
	`CREATE TABLE IF NOT EXISTS orders_by_number (
		order_number text PRIMARY KEY,
		order_id text
	)`,
	`CREATE TABLE IF NOT EXISTS orders_by_user (
		user_id text,
		created_at timestamp,
		order_id text,
		PRIMARY KEY (user_id, created_at, order_id)
	) WITH CLUSTERING ORDER BY (created_at DESC, order_id ASC)`,
	`CREATE TABLE IF NOT EXISTS payments (
		payment_id text PRIMARY KEY,
		order_id text,
		intent_id text,
		provider text,
		amount text,
		method text,
		status text,
		created_at timestamp,
		updated_at timestamp
	)`,
	`CREATE TABLE IF NOT EXISTS payments_by_order (
		order_id text PRIMARY KEY,
		payment_id text
	)`,
	`CREATE TABLE IF NOT EXISTS payments_by_intent (
		intent_id text PRIMARY KEY,
		payment_id text
	)`,
}

// EnsureSchema crée les tables manquantes. Les keyspaces doivent déjà exister
// (réplication et rôles gérés par l'exploitation).
func (sm *ScyllaManager) EnsureSchema(cfg config.Scylla) error {
	plan := map[string][]string{
		cfg.ProductsKeyspace: productsSchema,
		cfg.UsersKeyspace:    usersSchema,
		cfg.OrdersKeyspace:   ordersSchema,
	}
	for keyspace, statements := range plan {
		session, err := sm.GetSession(keyspace)
		if err != nil {
			return err
		}
		for _, stmt := range statements {
			if err := session.Query(stmt).Exec(); err != nil {
				return fmt.Errorf("schéma %s: %w", keyspace, err)
			}
		}
		log.Printf("✅ Schéma vérifié pour keyspace '%s'", keyspace)
	}
	return nil
}

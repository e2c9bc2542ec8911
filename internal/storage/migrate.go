package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
)

// StockScale is the number of decimal places products.stock keeps. Order
// quantities finer than this would be rounded by the column.
const StockScale = 3

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS categories (
		id BIGSERIAL PRIMARY KEY,
		parent_id BIGINT REFERENCES categories(id) ON DELETE SET NULL,
		name TEXT NOT NULL DEFAULT '',
		name_kk TEXT NOT NULL DEFAULT '',
		slug TEXT NOT NULL UNIQUE,
		image TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_categories_parent_id ON categories(parent_id)`,

	`CREATE TABLE IF NOT EXISTS products (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		name_kk TEXT NOT NULL DEFAULT '',
		price NUMERIC(12,2) NOT NULL DEFAULT 0,
		old_price NUMERIC(12,2),
		unit TEXT NOT NULL DEFAULT '',
		image TEXT NOT NULL DEFAULT '[]',
		description TEXT NOT NULL DEFAULT '',
		description_kk TEXT NOT NULL DEFAULT '',
		stock NUMERIC(14,` + strconv.Itoa(StockScale) + `) NOT NULL DEFAULT 0 CHECK (stock >= 0),
		category_id BIGINT REFERENCES categories(id) ON DELETE SET NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_products_category_id ON products(category_id)`,

	`CREATE TABLE IF NOT EXISTS orders (
		id BIGSERIAL PRIMARY KEY,
		customer_name TEXT NOT NULL,
		customer_phone TEXT NOT NULL,
		address TEXT NOT NULL,
		comment TEXT NOT NULL DEFAULT '',
		items_json JSONB NOT NULL,
		total_price NUMERIC(12,2) NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'new',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at)`,

	`CREATE TABLE IF NOT EXISTS promocodes (
		id BIGSERIAL PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		discount INTEGER NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT true
	)`,
}

// Migrate creates the schema when it does not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, m := range migrations {
		if _, err := db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}
	return nil
}

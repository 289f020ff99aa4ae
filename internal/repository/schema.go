package repository

import (
	"context"
	"fmt"
)

// schema is applied at startup. Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS distribution_centers (
		id                  INTEGER PRIMARY KEY,
		code                VARCHAR(32) NOT NULL UNIQUE,
		name                VARCHAR(255) NOT NULL,
		city                VARCHAR(128) NOT NULL DEFAULT '',
		low_stock_threshold INTEGER NOT NULL DEFAULT 0,
		low_stock_percent   DOUBLE PRECISION NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS center_stock (
		product_sku         VARCHAR(64) NOT NULL,
		center_id           INTEGER NOT NULL REFERENCES distribution_centers(id),
		physical_quantity   INTEGER NOT NULL CHECK (physical_quantity >= 0),
		in_transit_quantity INTEGER NOT NULL DEFAULT 0 CHECK (in_transit_quantity >= 0),
		updated_at          TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (product_sku, center_id)
	)`,
	`CREATE TABLE IF NOT EXISTS cart_reservations (
		id          UUID PRIMARY KEY,
		product_sku VARCHAR(64) NOT NULL,
		center_id   INTEGER NOT NULL REFERENCES distribution_centers(id),
		user_id     VARCHAR(128) NOT NULL,
		session_id  VARCHAR(128) NOT NULL,
		quantity    INTEGER NOT NULL CHECK (quantity > 0),
		status      VARCHAR(16) NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL,
		expires_at  TIMESTAMPTZ NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_cart_reservations_status ON cart_reservations (status, updated_at)`,
	`CREATE INDEX IF NOT EXISTS idx_cart_reservations_owner ON cart_reservations (user_id, session_id)`,
}

func (r *InventoryRepository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

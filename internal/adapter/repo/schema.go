package repo

import (
	"context"
	"database/sql"
	"fmt"
)

// order_items.product_id has no foreign key; a line item outlives its product.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
  id          VARCHAR(64)  NOT NULL PRIMARY KEY,
  name        VARCHAR(255) NOT NULL,
  email       VARCHAR(255) NOT NULL,
  role        VARCHAR(16)  NOT NULL DEFAULT 'customer',
  created_at  DATETIME(6)  NOT NULL,
  UNIQUE KEY uq_users_email (email)
)`,
	`CREATE TABLE IF NOT EXISTS products (
  id          VARCHAR(64)   NOT NULL PRIMARY KEY,
  title       VARCHAR(255)  NOT NULL,
  description TEXT          NOT NULL,
  price       DECIMAL(10,2) NOT NULL,
  category    VARCHAR(64)   NOT NULL,
  stock       INT           NOT NULL,
  image       VARCHAR(255)  NOT NULL,
  created_at  DATETIME(6)   NOT NULL,
  updated_at  DATETIME(6)   NOT NULL,
  KEY idx_products_category (category),
  CONSTRAINT chk_products_stock CHECK (stock >= 0),
  CONSTRAINT chk_products_price CHECK (price >= 0)
)`,
	`CREATE TABLE IF NOT EXISTS orders (
  id                  VARCHAR(64)   NOT NULL PRIMARY KEY,
  user_id             VARCHAR(64)   NOT NULL,
  total_amount        DECIMAL(12,2) NOT NULL,
  customer_name       VARCHAR(255)  NOT NULL DEFAULT '',
  customer_email      VARCHAR(255)  NOT NULL DEFAULT '',
  customer_phone      VARCHAR(64)   NOT NULL DEFAULT '',
  customer_address    TEXT          NOT NULL,
  payment_mode        VARCHAR(32)   NOT NULL DEFAULT '',
  status              VARCHAR(16)   NOT NULL,
  cancelled_at        DATETIME(6)   NULL,
  cancelled_by        VARCHAR(8)    NULL,
  cancellation_reason VARCHAR(255)  NULL,
  created_at          DATETIME(6)   NOT NULL,
  updated_at          DATETIME(6)   NOT NULL,
  KEY idx_orders_user (user_id, created_at),
  KEY idx_orders_status (status)
)`,
	`CREATE TABLE IF NOT EXISTS order_items (
  order_id   VARCHAR(64)   NOT NULL,
  line_no    INT           NOT NULL,
  product_id VARCHAR(64)   NOT NULL,
  quantity   INT           NOT NULL,
  price      DECIMAL(10,2) NOT NULL,
  PRIMARY KEY (order_id, line_no),
  KEY idx_order_items_product (product_id),
  CONSTRAINT fk_order_items_order FOREIGN KEY (order_id) REFERENCES orders (id) ON DELETE CASCADE
)`,
}

// Migrate creates the tables when they are missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

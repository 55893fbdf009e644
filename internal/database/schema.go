package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schemaStatements creates the full schema.  Two constraints back the core
// guarantees and their key names are matched by the ledger adapter on
// duplicate-key errors:
//
//   uq_sessions_open_table  - open_table_id is a stored generated column
//     that holds table_id while the session is open and NULL once closed.
//     The unique key over it allows at most one open session per table
//     while keeping any number of closed ones.
//
//   uq_payment_items_order  - an order can appear in at most one payment,
//     so concurrent settlements of the same order collapse to one winner.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS restaurants (
		id         VARCHAR(64)  NOT NULL,
		name       VARCHAR(160) NOT NULL,
		slug       VARCHAR(160) NOT NULL,
		logo_emoji VARCHAR(16)  NOT NULL DEFAULT '🍽️',
		color      VARCHAR(16)  NOT NULL DEFAULT '#10b981',
		created_at DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_restaurants_slug (slug)
	) CHARACTER SET utf8mb4`,

	`CREATE TABLE IF NOT EXISTS categories (
		id            VARCHAR(64)  NOT NULL,
		restaurant_id VARCHAR(64)  NOT NULL,
		name          VARCHAR(160) NOT NULL,
		sort_order    INT          NOT NULL DEFAULT 0,
		PRIMARY KEY (id),
		KEY idx_categories_restaurant (restaurant_id),
		CONSTRAINT fk_categories_restaurant FOREIGN KEY (restaurant_id)
			REFERENCES restaurants (id) ON DELETE CASCADE
	) CHARACTER SET utf8mb4`,

	`CREATE TABLE IF NOT EXISTS menu_items (
		id            VARCHAR(64)  NOT NULL,
		restaurant_id VARCHAR(64)  NOT NULL,
		category_id   VARCHAR(64)  NULL,
		name          VARCHAR(160) NOT NULL,
		description   VARCHAR(512) NOT NULL DEFAULT '',
		price_cents   BIGINT       NOT NULL,
		emoji         VARCHAR(16)  NOT NULL DEFAULT '🍴',
		available     TINYINT(1)   NOT NULL DEFAULT 1,
		created_at    DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		KEY idx_menu_items_restaurant (restaurant_id),
		KEY idx_menu_items_category (category_id),
		CONSTRAINT fk_menu_items_restaurant FOREIGN KEY (restaurant_id)
			REFERENCES restaurants (id) ON DELETE CASCADE,
		CONSTRAINT fk_menu_items_category FOREIGN KEY (category_id)
			REFERENCES categories (id) ON DELETE SET NULL
	) CHARACTER SET utf8mb4`,

	`CREATE TABLE IF NOT EXISTS tables (
		id            VARCHAR(64)  NOT NULL,
		restaurant_id VARCHAR(64)  NOT NULL,
		label         VARCHAR(160) NOT NULL,
		PRIMARY KEY (id),
		KEY idx_tables_restaurant (restaurant_id),
		CONSTRAINT fk_tables_restaurant FOREIGN KEY (restaurant_id)
			REFERENCES restaurants (id) ON DELETE CASCADE
	) CHARACTER SET utf8mb4`,

	`CREATE TABLE IF NOT EXISTS sessions (
		id            VARCHAR(64) NOT NULL,
		table_id      VARCHAR(64) NOT NULL,
		restaurant_id VARCHAR(64) NOT NULL,
		status        ENUM('open','closed') NOT NULL DEFAULT 'open',
		invite_code   VARCHAR(16) NOT NULL,
		created_at    DATETIME    NOT NULL,
		closed_at     DATETIME    NULL,
		open_table_id VARCHAR(64) GENERATED ALWAYS AS
			(CASE WHEN status = 'open' THEN table_id ELSE NULL END) STORED,
		PRIMARY KEY (id),
		UNIQUE KEY uq_sessions_open_table (open_table_id),
		UNIQUE KEY uq_sessions_invite_code (invite_code),
		CONSTRAINT fk_sessions_table FOREIGN KEY (table_id)
			REFERENCES tables (id),
		CONSTRAINT fk_sessions_restaurant FOREIGN KEY (restaurant_id)
			REFERENCES restaurants (id)
	) CHARACTER SET utf8mb4`,

	`CREATE TABLE IF NOT EXISTS diners (
		id         VARCHAR(64)  NOT NULL,
		session_id VARCHAR(64)  NOT NULL,
		name       VARCHAR(120) NOT NULL,
		avatar     VARCHAR(16)  NOT NULL DEFAULT '😀',
		is_host    TINYINT(1)   NOT NULL DEFAULT 0,
		joined_at  DATETIME     NOT NULL,
		PRIMARY KEY (id),
		KEY idx_diners_session (session_id),
		CONSTRAINT fk_diners_session FOREIGN KEY (session_id)
			REFERENCES sessions (id) ON DELETE CASCADE
	) CHARACTER SET utf8mb4`,

	`CREATE TABLE IF NOT EXISTS orders (
		id           VARCHAR(64)  NOT NULL,
		session_id   VARCHAR(64)  NOT NULL,
		diner_id     VARCHAR(64)  NOT NULL,
		menu_item_id VARCHAR(64)  NOT NULL,
		quantity     INT UNSIGNED NOT NULL DEFAULT 1,
		notes        VARCHAR(512) NOT NULL DEFAULT '',
		status       ENUM('pending','confirmed','served') NOT NULL DEFAULT 'pending',
		created_at   DATETIME     NOT NULL,
		PRIMARY KEY (id),
		KEY idx_orders_session (session_id),
		KEY idx_orders_diner (diner_id),
		CONSTRAINT fk_orders_session FOREIGN KEY (session_id)
			REFERENCES sessions (id) ON DELETE CASCADE,
		CONSTRAINT fk_orders_diner FOREIGN KEY (diner_id)
			REFERENCES diners (id),
		CONSTRAINT fk_orders_menu_item FOREIGN KEY (menu_item_id)
			REFERENCES menu_items (id)
	) CHARACTER SET utf8mb4`,

	`CREATE TABLE IF NOT EXISTS payments (
		id           VARCHAR(64) NOT NULL,
		session_id   VARCHAR(64) NOT NULL,
		diner_id     VARCHAR(64) NOT NULL,
		amount_cents BIGINT      NOT NULL,
		tip_cents    BIGINT      NOT NULL DEFAULT 0,
		method       VARCHAR(32) NOT NULL DEFAULT 'card',
		status       VARCHAR(16) NOT NULL DEFAULT 'completed',
		created_at   DATETIME    NOT NULL,
		PRIMARY KEY (id),
		KEY idx_payments_session (session_id),
		CONSTRAINT fk_payments_session FOREIGN KEY (session_id)
			REFERENCES sessions (id) ON DELETE CASCADE,
		CONSTRAINT fk_payments_diner FOREIGN KEY (diner_id)
			REFERENCES diners (id)
	) CHARACTER SET utf8mb4`,

	`CREATE TABLE IF NOT EXISTS payment_items (
		payment_id   VARCHAR(64) NOT NULL,
		order_id     VARCHAR(64) NOT NULL,
		amount_cents BIGINT      NOT NULL,
		PRIMARY KEY (payment_id, order_id),
		UNIQUE KEY uq_payment_items_order (order_id),
		CONSTRAINT fk_payment_items_payment FOREIGN KEY (payment_id)
			REFERENCES payments (id) ON DELETE CASCADE,
		CONSTRAINT fk_payment_items_order FOREIGN KEY (order_id)
			REFERENCES orders (id)
	) CHARACTER SET utf8mb4`,
}

// EnsureSchema runs the DDL statements in order.  Statements are idempotent
// so the function is safe to call on every startup.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

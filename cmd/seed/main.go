// Command seed loads a demo restaurant with its menu and tables.  It is
// idempotent: if the demo restaurant already exists it exits without
// touching anything.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/easycheck/easycheck/internal/config"
	"github.com/easycheck/easycheck/internal/database"
)

const restaurantID = "rest-demo-001"

type seedItem struct {
	category   string
	name       string
	desc       string
	priceCents int64
	emoji      string
}

var seedCategories = []struct {
	id   string
	name string
}{
	{"cat-entradas", "Entradas"},
	{"cat-carnes", "Carnes"},
	{"cat-pastas", "Pastas"},
	{"cat-ensaladas", "Ensaladas"},
	{"cat-postres", "Postres"},
	{"cat-bebidas", "Bebidas"},
	{"cat-vinos", "Vinos"},
}

var seedItems = []seedItem{
	{"cat-entradas", "Empanadas (x3)", "Carne cortada a cuchillo", 450000, "🥟"},
	{"cat-entradas", "Provoleta", "Con oregano y tomate", 520000, "🧀"},
	{"cat-entradas", "Tabla de fiambres", "Jamon crudo, salame, quesos", 890000, "🍖"},
	{"cat-entradas", "Humita en chala", "Receta del norte", 380000, "🌽"},
	{"cat-carnes", "Bife de chorizo", "400g, punto a eleccion", 1450000, "🥩"},
	{"cat-carnes", "Ojo de bife", "350g con chimichurri", 1520000, "🥩"},
	{"cat-carnes", "Entraña", "300g a la parrilla", 1380000, "🔥"},
	{"cat-carnes", "Vacio", "400g coccion lenta", 1290000, "🥩"},
	{"cat-carnes", "Pollo a la parrilla", "Medio pollo con limon", 950000, "🍗"},
	{"cat-pastas", "Sorrentinos de jamon y queso", "Con salsa rosa", 980000, "🥟"},
	{"cat-pastas", "Ñoquis de papa", "Con bolognesa casera", 850000, "🍝"},
	{"cat-pastas", "Ravioles de verdura", "Con fileto", 890000, "🍝"},
	{"cat-ensaladas", "Mixta", "Lechuga, tomate, cebolla", 420000, "🥗"},
	{"cat-ensaladas", "Caesar", "Con pollo grillado y parmesano", 750000, "🥗"},
	{"cat-postres", "Flan casero", "Con dulce de leche y crema", 450000, "🍮"},
	{"cat-postres", "Panqueques con dulce de leche", "x2 unidades", 480000, "🥞"},
	{"cat-postres", "Helado artesanal", "3 bochas a eleccion", 520000, "🍨"},
	{"cat-bebidas", "Agua mineral", "500ml con o sin gas", 180000, "💧"},
	{"cat-bebidas", "Coca-Cola", "Linea Coca 500ml", 250000, "🥤"},
	{"cat-bebidas", "Cerveza artesanal", "Pinta 500ml", 420000, "🍺"},
	{"cat-bebidas", "Limonada casera", "Jarra 1L", 350000, "🍋"},
	{"cat-vinos", "Malbec Reserva", "Catena Zapata 750ml", 1250000, "🍷"},
	{"cat-vinos", "Torrontes", "Colomé 750ml", 980000, "🥂"},
	{"cat-vinos", "Cabernet Sauvignon", "Luigi Bosca 750ml", 1120000, "🍷"},
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := database.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("schema: %v", err)
	}

	var existing string
	err = db.QueryRowContext(ctx, `SELECT id FROM restaurants WHERE id = ?`, restaurantID).Scan(&existing)
	if err == nil {
		log.Println("database already seeded, skipping")
		return
	}
	if !errors.Is(err, sql.ErrNoRows) {
		log.Fatalf("check seed: %v", err)
	}

	if err := seed(ctx, db); err != nil {
		log.Fatalf("seed: %v", err)
	}
	log.Printf("seed complete: 1 restaurant, %d categories, %d items, 10 tables", len(seedCategories), len(seedItems))
}

func seed(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO restaurants (id, name, slug, logo_emoji, color) VALUES (?, ?, ?, ?, ?)`,
		restaurantID, "La Parrilla de Don Julio", "don-julio", "🥩", "#dc2626")
	if err != nil {
		return err
	}

	for i, c := range seedCategories {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO categories (id, restaurant_id, name, sort_order) VALUES (?, ?, ?, ?)`,
			c.id, restaurantID, c.name, i); err != nil {
			return err
		}
	}

	for _, it := range seedItems {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO menu_items (id, restaurant_id, category_id, name, description, price_cents, emoji)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), restaurantID, it.category, it.name, it.desc, it.priceCents, it.emoji); err != nil {
			return err
		}
	}

	for i := 1; i <= 10; i++ {
		id := fmt.Sprintf("table-%02d", i)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO tables (id, restaurant_id, label) VALUES (?, ?, ?)`,
			id, restaurantID, fmt.Sprintf("Mesa %d", i)); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Package catalog maps client SKUs and product ids onto Shopify variants.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "modernc.org/sqlite"
)

var ErrSkuNotMapped = errors.New("sku not mapped to a variant")

// Mapping is one row of the SKU map.
type Mapping struct {
	SKU       string `json:"sku"`
	VariantID int64  `json:"variantId"`
	ProductID string `json:"productId,omitempty"`
	Title     string `json:"title,omitempty"`
}

type RepoInterface interface {
	BySKU(ctx context.Context, sku string) (*Mapping, error)
	ByProductID(ctx context.Context, productID string) (*Mapping, error)
	List(ctx context.Context) ([]Mapping, error)
	Upsert(ctx context.Context, mappings []Mapping) error
	Delete(ctx context.Context, sku string) error
	Close() error
}

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows one writer; a single connection also keeps :memory: databases shared
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(migrationsPath string) error {
	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{MigrationsTable: "sku_map_migrations"})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", migrationsPath), "sqlite", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

func (r *Repository) BySKU(ctx context.Context, sku string) (*Mapping, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT sku, variant_id, product_id, title FROM sku_map WHERE sku = ?`, sku)
	return scanMapping(row)
}

// ByProductID returns the first mapped variant of the product.
func (r *Repository) ByProductID(ctx context.Context, productID string) (*Mapping, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT sku, variant_id, product_id, title FROM sku_map WHERE product_id = ? ORDER BY sku LIMIT 1`, productID)
	return scanMapping(row)
}

func scanMapping(row *sql.Row) (*Mapping, error) {
	m := &Mapping{}
	if err := row.Scan(&m.SKU, &m.VariantID, &m.ProductID, &m.Title); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSkuNotMapped
		}
		return nil, fmt.Errorf("failed to scan mapping: %w", err)
	}
	return m, nil
}

func (r *Repository) List(ctx context.Context) ([]Mapping, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT sku, variant_id, product_id, title FROM sku_map ORDER BY sku`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sku map: %w", err)
	}
	defer rows.Close()

	var out []Mapping
	for rows.Next() {
		var m Mapping
		if err := rows.Scan(&m.SKU, &m.VariantID, &m.ProductID, &m.Title); err != nil {
			return nil, fmt.Errorf("failed to scan mapping: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}

// Upsert inserts or replaces mappings in one transaction.
func (r *Repository) Upsert(ctx context.Context, mappings []Mapping) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sku_map (sku, variant_id, product_id, title, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (sku) DO UPDATE SET
			variant_id = excluded.variant_id,
			product_id = excluded.product_id,
			title = excluded.title,
			updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, m := range mappings {
		if m.SKU == "" || m.VariantID <= 0 {
			return fmt.Errorf("invalid mapping %q -> %d", m.SKU, m.VariantID)
		}
		if _, err := stmt.ExecContext(ctx, m.SKU, m.VariantID, m.ProductID, m.Title); err != nil {
			return fmt.Errorf("failed to upsert %s: %w", m.SKU, err)
		}
	}
	return tx.Commit()
}

func (r *Repository) Delete(ctx context.Context, sku string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sku_map WHERE sku = ?`, sku)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", sku, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSkuNotMapped
	}
	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

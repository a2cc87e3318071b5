package adapters

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"silkshop/internal/features/catalog/domain"

	"github.com/google/uuid"
)

const productColumns = "id, name, description, price, stock, image_url, created_at, updated_at"

// PostgresRepository implements ports.ProductRepository on PostgreSQL.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db: db,
	}
}

// Save persists a new product.
func (r *PostgresRepository) Save(ctx context.Context, p *domain.Product) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (id, name, description, price, stock, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.Name, p.Description, p.Price, p.Stock, p.ImageURL, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

// Update replaces an existing product's mutable fields.
func (r *PostgresRepository) Update(ctx context.Context, p *domain.Product) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE products
		   SET name = $2, description = $3, price = $4, stock = $5, image_url = $6, updated_at = NOW()
		 WHERE id = $1`,
		p.ID, p.Name, p.Description, p.Price, p.Stock, p.ImageURL,
	)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

// FindByID loads one product, or domain.ErrProductNotFound.
func (r *PostgresRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE id = $1", id)

	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan product: %w", err)
	}
	return &p, nil
}

// List returns all products, newest first.
func (r *PostgresRepository) List(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+productColumns+" FROM products ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

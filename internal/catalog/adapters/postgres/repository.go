package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/dejobratic/storefront/internal/catalog/domain"
	"github.com/dejobratic/storefront/internal/catalog/ports"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	query := `
		SELECT id, name, category_id, brand_id, base_price, discounted_price, stock, status, COALESCE(promotion_id, '')
		FROM products
		WHERE id = $1
	`

	var product domain.Product
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&product.ID,
		&product.Name,
		&product.CategoryID,
		&product.BrandID,
		&product.BasePrice,
		&product.DiscountedPrice,
		&product.Stock,
		&product.Status,
		&product.PromotionID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		return nil, fmt.Errorf("select product: %w", err)
	}

	return &product, nil
}

func (r *Repository) UpdateStock(ctx context.Context, id string, stock int, status domain.ProductStatus) error {
	query := `
		UPDATE products
		SET stock = $1, status = $2
		WHERE id = $3
	`

	result, err := r.pool.Exec(ctx, query, stock, status, id)
	if err != nil {
		return fmt.Errorf("update product stock: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ports.ErrNotFound
	}

	return nil
}

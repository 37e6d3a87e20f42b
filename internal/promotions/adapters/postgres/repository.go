package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/dejobratic/storefront/internal/promotions/domain"
	"github.com/dejobratic/storefront/internal/promotions/ports"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const promotionColumns = `
	id, name, type, percentage, amount, COALESCE(code, ''), product_ids, category_ids, brand_ids,
	active, start_date, end_date, min_order_amount, max_usage, current_usage, priority, buy_qty, free_qty
`

func scanPromotion(row pgx.Row) (*domain.Promotion, error) {
	var promo domain.Promotion
	err := row.Scan(
		&promo.ID,
		&promo.Name,
		&promo.Type,
		&promo.Percentage,
		&promo.Amount,
		&promo.Code,
		&promo.ProductIDs,
		&promo.CategoryIDs,
		&promo.BrandIDs,
		&promo.Active,
		&promo.StartDate,
		&promo.EndDate,
		&promo.MinOrder,
		&promo.MaxUsage,
		&promo.Usage,
		&promo.Priority,
		&promo.BuyQty,
		&promo.FreeQty,
	)
	if err != nil {
		return nil, err
	}
	return &promo, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Promotion, error) {
	query := `SELECT ` + promotionColumns + ` FROM promotions WHERE id = $1`

	promo, err := scanPromotion(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		return nil, fmt.Errorf("select promotion: %w", err)
	}
	return promo, nil
}

func (r *Repository) GetByCode(ctx context.Context, code string) (*domain.Promotion, error) {
	query := `SELECT ` + promotionColumns + ` FROM promotions WHERE lower(code) = lower($1)`

	promo, err := scanPromotion(r.pool.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		return nil, fmt.Errorf("select promotion by code: %w", err)
	}
	return promo, nil
}

func (r *Repository) ListAutomaticFor(ctx context.Context, productID, categoryID, brandID string) ([]domain.Promotion, error) {
	query := `
		SELECT ` + promotionColumns + `
		FROM promotions
		WHERE code IS NULL
		  AND ($1 = ANY(product_ids) OR ($2 <> '' AND $2 = ANY(category_ids)) OR ($3 <> '' AND $3 = ANY(brand_ids)))
	`

	rows, err := r.pool.Query(ctx, query, productID, categoryID, brandID)
	if err != nil {
		return nil, fmt.Errorf("query automatic promotions: %w", err)
	}
	defer rows.Close()

	var promotions []domain.Promotion
	for rows.Next() {
		promo, err := scanPromotion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan promotion: %w", err)
		}
		promotions = append(promotions, *promo)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate promotions: %w", err)
	}

	return promotions, nil
}

// IncrementUsage relies on a conditional UPDATE so the ceiling check and the
// bump are one atomic statement; concurrent redemptions cannot exceed max_usage.
func (r *Repository) IncrementUsage(ctx context.Context, id string) error {
	query := `
		UPDATE promotions
		SET current_usage = current_usage + 1
		WHERE id = $1
		  AND (max_usage IS NULL OR current_usage < max_usage)
	`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("increment promotion usage: %w", err)
	}

	if result.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return domain.ErrUsageLimitReached
	}

	return nil
}

func (r *Repository) DecrementUsage(ctx context.Context, id string) error {
	query := `
		UPDATE promotions
		SET current_usage = current_usage - 1
		WHERE id = $1 AND current_usage > 0
	`

	if _, err := r.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("decrement promotion usage: %w", err)
	}

	return nil
}

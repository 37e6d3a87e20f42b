package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dejobratic/storefront/internal/orders/domain"
	"github.com/dejobratic/storefront/internal/orders/ports"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const orderColumns = `
	id, number, status, payment_status, delivery_method, payment_method,
	user_id, guest_name, guest_email, guest_phone, customer_email,
	shipping_address, subtotal, discount_amount, delivery_cost,
	payment_surcharge, total, promotion_id, voucher_code, tracking_number,
	cancel_reason, cancelled_at, delivered_at, status_changed_at, notes,
	created_at, updated_at`

// Create persists the order and its items in one transaction.
func (r *Repository) Create(ctx context.Context, order domain.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	address, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return fmt.Errorf("marshal shipping address: %w", err)
	}
	notes, err := json.Marshal(order.Notes)
	if err != nil {
		return fmt.Errorf("marshal notes: %w", err)
	}

	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27)
	`

	_, err = tx.Exec(ctx, query,
		order.ID,
		order.Number,
		order.Status,
		order.PaymentStatus,
		order.DeliveryMethod,
		order.PaymentMethod,
		nullable(order.Customer.UserID),
		nullable(order.Customer.GuestName),
		nullable(order.Customer.GuestEmail),
		nullable(order.Customer.GuestPhone),
		order.Customer.Email,
		address,
		order.Subtotal,
		order.DiscountAmount,
		order.DeliveryCost,
		order.PaymentSurcharge,
		order.Total,
		nullable(order.PromotionID),
		nullable(order.VoucherCode),
		nullable(order.TrackingNumber),
		nullable(order.CancelReason),
		order.CancelledAt,
		order.DeliveredAt,
		order.StatusChangedAt,
		notes,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, item := range order.Items {
		_, err := tx.Exec(ctx, `
			INSERT INTO order_items (order_id, product_id, product_name, category_id, quantity, unit_price, line_total)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`,
			order.ID,
			item.ProductID,
			item.ProductName,
			item.CategoryID,
			item.Quantity,
			item.UnitPrice,
			item.LineTotal,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		return nil, fmt.Errorf("select order: %w", err)
	}

	if err := r.loadItems(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *Repository) List(ctx context.Context, filter ports.ListFilter) ([]domain.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	return r.queryOrders(ctx, query, statusFilter(filter), pageSize(filter), offset(filter))
}

// Search matches order number, customer email and tracking number.
func (r *Repository) Search(ctx context.Context, term string, filter ports.ListFilter) ([]domain.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE ($1::text IS NULL OR status = $1)
		  AND (number ILIKE '%' || $4 || '%'
		       OR customer_email ILIKE '%' || $4 || '%'
		       OR tracking_number ILIKE '%' || $4 || '%')
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	return r.queryOrders(ctx, query, statusFilter(filter), pageSize(filter), offset(filter), term)
}

// Update rewrites the mutable columns. Items are immutable after commit and
// never touched here.
func (r *Repository) Update(ctx context.Context, order domain.Order) error {
	notes, err := json.Marshal(order.Notes)
	if err != nil {
		return fmt.Errorf("marshal notes: %w", err)
	}

	query := `
		UPDATE orders
		SET status = $1,
		    payment_status = $2,
		    tracking_number = $3,
		    cancel_reason = $4,
		    cancelled_at = $5,
		    delivered_at = $6,
		    status_changed_at = $7,
		    notes = $8,
		    updated_at = $9
		WHERE id = $10
	`

	result, err := r.pool.Exec(ctx, query,
		order.Status,
		order.PaymentStatus,
		nullable(order.TrackingNumber),
		nullable(order.CancelReason),
		order.CancelledAt,
		order.DeliveredAt,
		order.StatusChangedAt,
		notes,
		order.UpdatedAt,
		order.ID,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (r *Repository) RevenueSummary(ctx context.Context, from, to time.Time) (ports.RevenueSummary, error) {
	query := `
		SELECT COUNT(*), COALESCE(SUM(total), 0), COALESCE(SUM(discount_amount), 0)
		FROM orders
		WHERE created_at BETWEEN $1 AND $2
		  AND status NOT IN ('cancelled', 'failed', 'refunded')
	`

	var summary ports.RevenueSummary
	err := r.pool.QueryRow(ctx, query, from, to).Scan(
		&summary.Orders,
		&summary.Revenue,
		&summary.Discount,
	)
	if err != nil {
		return ports.RevenueSummary{}, fmt.Errorf("query revenue summary: %w", err)
	}
	return summary, nil
}

func (r *Repository) TopCustomers(ctx context.Context, limit int) ([]ports.CustomerSales, error) {
	query := `
		SELECT customer_email, COUNT(*), COALESCE(SUM(total), 0)
		FROM orders
		WHERE status NOT IN ('cancelled', 'failed', 'refunded')
		GROUP BY customer_email
		ORDER BY SUM(total) DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query top customers: %w", err)
	}
	defer rows.Close()

	var result []ports.CustomerSales
	for rows.Next() {
		var entry ports.CustomerSales
		if err := rows.Scan(&entry.CustomerEmail, &entry.Orders, &entry.Spent); err != nil {
			return nil, fmt.Errorf("scan customer sales: %w", err)
		}
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customer sales: %w", err)
	}
	return result, nil
}

func (r *Repository) CategorySales(ctx context.Context) ([]ports.CategorySales, error) {
	query := `
		SELECT i.category_id, COALESCE(SUM(i.quantity), 0), COALESCE(SUM(i.line_total), 0)
		FROM order_items i
		JOIN orders o ON o.id = i.order_id
		WHERE o.status NOT IN ('cancelled', 'failed', 'refunded')
		GROUP BY i.category_id
		ORDER BY SUM(i.line_total) DESC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query category sales: %w", err)
	}
	defer rows.Close()

	var result []ports.CategorySales
	for rows.Next() {
		var entry ports.CategorySales
		if err := rows.Scan(&entry.CategoryID, &entry.Units, &entry.Revenue); err != nil {
			return nil, fmt.Errorf("scan category sales: %w", err)
		}
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category sales: %w", err)
	}
	return result, nil
}

func (r *Repository) queryOrders(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}

	for i := range orders {
		if err := r.loadItems(ctx, &orders[i]); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *Repository) loadItems(ctx context.Context, order *domain.Order) error {
	rows, err := r.pool.Query(ctx, `
		SELECT product_id, product_name, category_id, quantity, unit_price, line_total
		FROM order_items
		WHERE order_id = $1
		ORDER BY product_id
	`, order.ID)
	if err != nil {
		return fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(
			&item.ProductID,
			&item.ProductName,
			&item.CategoryID,
			&item.Quantity,
			&item.UnitPrice,
			&item.LineTotal,
		); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate order items: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		order          domain.Order
		userID         *string
		guestName      *string
		guestEmail     *string
		guestPhone     *string
		promotionID    *string
		voucherCode    *string
		trackingNumber *string
		cancelReason   *string
		address        []byte
		notes          []byte
	)

	err := row.Scan(
		&order.ID,
		&order.Number,
		&order.Status,
		&order.PaymentStatus,
		&order.DeliveryMethod,
		&order.PaymentMethod,
		&userID,
		&guestName,
		&guestEmail,
		&guestPhone,
		&order.Customer.Email,
		&address,
		&order.Subtotal,
		&order.DiscountAmount,
		&order.DeliveryCost,
		&order.PaymentSurcharge,
		&order.Total,
		&promotionID,
		&voucherCode,
		&trackingNumber,
		&cancelReason,
		&order.CancelledAt,
		&order.DeliveredAt,
		&order.StatusChangedAt,
		&notes,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	order.Customer.UserID = deref(userID)
	order.Customer.GuestName = deref(guestName)
	order.Customer.GuestEmail = deref(guestEmail)
	order.Customer.GuestPhone = deref(guestPhone)
	order.PromotionID = deref(promotionID)
	order.VoucherCode = deref(voucherCode)
	order.TrackingNumber = deref(trackingNumber)
	order.CancelReason = deref(cancelReason)

	if err := json.Unmarshal(address, &order.ShippingAddress); err != nil {
		return nil, fmt.Errorf("unmarshal shipping address: %w", err)
	}
	if len(notes) > 0 {
		if err := json.Unmarshal(notes, &order.Notes); err != nil {
			return nil, fmt.Errorf("unmarshal notes: %w", err)
		}
	}
	return &order, nil
}

func statusFilter(filter ports.ListFilter) *string {
	if filter.Status == nil {
		return nil
	}
	s := string(*filter.Status)
	return &s
}

func pageSize(filter ports.ListFilter) int {
	if filter.PageSize <= 0 {
		return 20
	}
	return filter.PageSize
}

func offset(filter ports.ListFilter) int {
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	return (page - 1) * pageSize(filter)
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

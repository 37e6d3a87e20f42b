package ledger_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dejobratic/storefront/internal/catalog/adapters/memory"
	"github.com/dejobratic/storefront/internal/catalog/domain"
	"github.com/dejobratic/storefront/internal/catalog/ledger"
	"github.com/shopspring/decimal"
)

func seedProduct(repo *memory.Repository, id string, stock int, status domain.ProductStatus) {
	repo.Seed(domain.Product{
		ID:        id,
		Name:      "widget",
		BasePrice: decimal.NewFromInt(10),
		Stock:     stock,
		Status:    status,
	})
}

func TestDecrease(t *testing.T) {
	tests := []struct {
		name       string
		stock      int
		status     domain.ProductStatus
		quantity   int
		wantErr    error
		wantStock  int
		wantStatus domain.ProductStatus
	}{
		{
			name:       "subtracts stock",
			stock:      10,
			status:     domain.StatusActive,
			quantity:   3,
			wantStock:  7,
			wantStatus: domain.StatusActive,
		},
		{
			name:       "reaching zero flips to sold_out",
			stock:      2,
			status:     domain.StatusActive,
			quantity:   2,
			wantStock:  0,
			wantStatus: domain.StatusSoldOut,
		},
		{
			name:       "reaching zero preserves inactive",
			stock:      2,
			status:     domain.StatusInactive,
			quantity:   2,
			wantStock:  0,
			wantStatus: domain.StatusInactive,
		},
		{
			name:       "insufficient stock leaves stock untouched",
			stock:      1,
			status:     domain.StatusActive,
			quantity:   2,
			wantErr:    domain.ErrInsufficientStock,
			wantStock:  1,
			wantStatus: domain.StatusActive,
		},
		{
			name:       "zero quantity rejected",
			stock:      5,
			status:     domain.StatusActive,
			quantity:   0,
			wantErr:    domain.ErrInvalidQuantity,
			wantStock:  5,
			wantStatus: domain.StatusActive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := memory.NewRepository()
			seedProduct(repo, "p1", tt.stock, tt.status)
			l := ledger.New(repo)

			err := l.Decrease(context.Background(), "p1", tt.quantity)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Decrease() error = %v, want %v", err, tt.wantErr)
			}

			product, err := repo.GetByID(context.Background(), "p1")
			if err != nil {
				t.Fatalf("GetByID() error = %v", err)
			}
			if product.Stock != tt.wantStock {
				t.Errorf("stock = %d, want %d", product.Stock, tt.wantStock)
			}
			if product.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", product.Status, tt.wantStatus)
			}
		})
	}
}

func TestIncrease(t *testing.T) {
	tests := []struct {
		name       string
		stock      int
		status     domain.ProductStatus
		quantity   int
		wantStock  int
		wantStatus domain.ProductStatus
	}{
		{
			name:       "adds stock",
			stock:      3,
			status:     domain.StatusActive,
			quantity:   2,
			wantStock:  5,
			wantStatus: domain.StatusActive,
		},
		{
			name:       "leaving zero flips sold_out to active",
			stock:      0,
			status:     domain.StatusSoldOut,
			quantity:   1,
			wantStock:  1,
			wantStatus: domain.StatusActive,
		},
		{
			name:       "leaving zero preserves draft",
			stock:      0,
			status:     domain.StatusDraft,
			quantity:   1,
			wantStock:  1,
			wantStatus: domain.StatusDraft,
		},
		{
			name:       "leaving zero preserves inactive",
			stock:      0,
			status:     domain.StatusInactive,
			quantity:   4,
			wantStock:  4,
			wantStatus: domain.StatusInactive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := memory.NewRepository()
			seedProduct(repo, "p1", tt.stock, tt.status)
			l := ledger.New(repo)

			if err := l.Increase(context.Background(), "p1", tt.quantity); err != nil {
				t.Fatalf("Increase() error = %v", err)
			}

			product, _ := repo.GetByID(context.Background(), "p1")
			if product.Stock != tt.wantStock {
				t.Errorf("stock = %d, want %d", product.Stock, tt.wantStock)
			}
			if product.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", product.Status, tt.wantStatus)
			}
		})
	}
}

func TestDecreaseThenIncreaseRoundTrip(t *testing.T) {
	repo := memory.NewRepository()
	seedProduct(repo, "p1", 4, domain.StatusActive)
	l := ledger.New(repo)
	ctx := context.Background()

	if err := l.Decrease(ctx, "p1", 4); err != nil {
		t.Fatalf("Decrease() error = %v", err)
	}
	if err := l.Increase(ctx, "p1", 4); err != nil {
		t.Fatalf("Increase() error = %v", err)
	}

	product, _ := repo.GetByID(ctx, "p1")
	if product.Stock != 4 {
		t.Errorf("stock = %d, want 4", product.Stock)
	}
	if product.Status != domain.StatusActive {
		t.Errorf("status = %s, want %s", product.Status, domain.StatusActive)
	}
}

func TestConcurrentDecreaseNeverGoesNegative(t *testing.T) {
	repo := memory.NewRepository()
	seedProduct(repo, "p1", 5, domain.StatusActive)
	l := ledger.New(repo)
	ctx := context.Background()

	const workers = 20

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Decrease(ctx, "p1", 1); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 5 {
		t.Errorf("successful decrements = %d, want 5", succeeded)
	}

	product, _ := repo.GetByID(ctx, "p1")
	if product.Stock != 0 {
		t.Errorf("stock = %d, want 0", product.Stock)
	}
	if product.Status != domain.StatusSoldOut {
		t.Errorf("status = %s, want %s", product.Status, domain.StatusSoldOut)
	}
}

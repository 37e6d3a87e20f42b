package commands_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	catalogmemory "github.com/dejobratic/storefront/internal/catalog/adapters/memory"
	catalogdomain "github.com/dejobratic/storefront/internal/catalog/domain"
	"github.com/dejobratic/storefront/internal/catalog/ledger"
	"github.com/dejobratic/storefront/internal/orders/app/commands"
	"github.com/dejobratic/storefront/internal/orders/domain"
	"github.com/dejobratic/storefront/internal/orders/ports"
	promomemory "github.com/dejobratic/storefront/internal/promotions/adapters/memory"
	promodomain "github.com/dejobratic/storefront/internal/promotions/domain"
	"github.com/dejobratic/storefront/internal/promotions/voucher"
	"github.com/shopspring/decimal"
)

type mockOrderRepository struct {
	createFn  func(ctx context.Context, order domain.Order) error
	getByIDFn func(ctx context.Context, id string) (*domain.Order, error)
	updateFn  func(ctx context.Context, order domain.Order) error
}

func (m *mockOrderRepository) Create(ctx context.Context, order domain.Order) error {
	if m.createFn != nil {
		return m.createFn(ctx, order)
	}
	return nil
}

func (m *mockOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, ports.ErrNotFound
}

func (m *mockOrderRepository) List(ctx context.Context, filter ports.ListFilter) ([]domain.Order, error) {
	return nil, nil
}

func (m *mockOrderRepository) Search(ctx context.Context, term string, filter ports.ListFilter) ([]domain.Order, error) {
	return nil, nil
}

func (m *mockOrderRepository) Update(ctx context.Context, order domain.Order) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, order)
	}
	return nil
}

func (m *mockOrderRepository) RevenueSummary(ctx context.Context, from, to time.Time) (ports.RevenueSummary, error) {
	return ports.RevenueSummary{}, nil
}

func (m *mockOrderRepository) TopCustomers(ctx context.Context, limit int) ([]ports.CustomerSales, error) {
	return nil, nil
}

func (m *mockOrderRepository) CategorySales(ctx context.Context) ([]ports.CategorySales, error) {
	return nil, nil
}

type mockCart struct {
	lines   []ports.CartLine
	cleared bool
	clearFn func(ctx context.Context) error
}

func (m *mockCart) Lines(ctx context.Context) ([]ports.CartLine, error) {
	return m.lines, nil
}

func (m *mockCart) Total(ctx context.Context) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (m *mockCart) Clear(ctx context.Context) error {
	m.cleared = true
	if m.clearFn != nil {
		return m.clearFn(ctx)
	}
	return nil
}

type mockAddressBook struct {
	getByIDFn func(ctx context.Context, id, ownerID string) (*domain.Address, error)
	saveFn    func(ctx context.Context, address domain.Address, ownerID string) (*domain.Address, error)
}

func (m *mockAddressBook) GetByID(ctx context.Context, id, ownerID string) (*domain.Address, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id, ownerID)
	}
	return nil, ports.ErrAddressNotFound
}

func (m *mockAddressBook) Save(ctx context.Context, address domain.Address, ownerID string) (*domain.Address, error) {
	if m.saveFn != nil {
		return m.saveFn(ctx, address, ownerID)
	}
	saved := address
	saved.ID = "addr-1"
	return &saved, nil
}

type mockNotifier struct {
	confirmations int
	shippingSent  int
}

func (m *mockNotifier) SendOrderConfirmation(ctx context.Context, order domain.Order) error {
	m.confirmations++
	return nil
}

func (m *mockNotifier) SendShippingNotice(ctx context.Context, order domain.Order) error {
	m.shippingSent++
	return nil
}

type mockEventBus struct {
	placed    []string
	changed   []domain.OrderStatus
	cancelled []string
}

func (m *mockEventBus) PublishOrderPlaced(ctx context.Context, orderID string) error {
	m.placed = append(m.placed, orderID)
	return nil
}

func (m *mockEventBus) PublishOrderStatusChanged(ctx context.Context, orderID string, status domain.OrderStatus) error {
	m.changed = append(m.changed, status)
	return nil
}

func (m *mockEventBus) PublishOrderCancelled(ctx context.Context, orderID string, reason string) error {
	m.cancelled = append(m.cancelled, orderID)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, nil))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type checkoutFixture struct {
	orders     *mockOrderRepository
	products   *catalogmemory.Repository
	promotions *promomemory.Repository
	addresses  *mockAddressBook
	events     *mockEventBus
	notifier   *mockNotifier
	handler    commands.CheckoutHandler
}

func newCheckoutFixture(now time.Time) *checkoutFixture {
	f := &checkoutFixture{
		orders:     &mockOrderRepository{},
		products:   catalogmemory.NewRepository(),
		promotions: promomemory.NewRepository(),
		addresses:  &mockAddressBook{},
		events:     &mockEventBus{},
		notifier:   &mockNotifier{},
	}

	clock := func() time.Time { return now }
	f.handler = commands.NewCheckoutHandler(
		f.orders,
		f.products,
		ledger.New(f.products),
		f.promotions,
		voucher.NewResolver(f.promotions, clock),
		f.addresses,
		f.events,
		f.notifier,
		testLogger(),
		dec("199"),
		clock,
	)
	return f
}

func guestCommand() commands.CheckoutCommand {
	return commands.CheckoutCommand{
		GuestName:  "Ana Petrova",
		GuestEmail: "ana@example.com",
		Address: &commands.AddressFields{
			Line1: "12 Vitosha Blvd",
			City:  "Sofia",
		},
		DeliveryMethod: "courier",
		PaymentMethod:  "card",
	}
}

func TestCheckout(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("places order with voucher, delivery cost and frozen prices", func(t *testing.T) {
		f := newCheckoutFixture(now)
		f.products.Seed(catalogdomain.Product{
			ID:        "p1",
			Name:      "Trail Shoes",
			BasePrice: dec("50.00"),
			Stock:     10,
			Status:    catalogdomain.StatusActive,
		})
		maxUsage := 100
		f.promotions.Seed(promodomain.Promotion{
			ID:         "v1",
			Name:       "Save 10%",
			Type:       promodomain.TypePercentage,
			Percentage: dec("10"),
			Code:       "SAVE10",
			Active:     true,
			StartDate:  now.AddDate(0, -1, 0),
			MaxUsage:   &maxUsage,
		})

		var persisted *domain.Order
		f.orders.createFn = func(ctx context.Context, order domain.Order) error {
			persisted = &order
			return nil
		}

		cart := &mockCart{lines: []ports.CartLine{{ProductID: "p1", Quantity: 3}}}
		cmd := guestCommand()
		cmd.VoucherCode = "SAVE10"

		order, err := f.handler.Handle(context.Background(), cmd, cart, ports.Actor{})
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}

		if !order.Subtotal.Equal(dec("150.00")) {
			t.Errorf("expected subtotal 150.00, got %s", order.Subtotal)
		}
		if !order.DiscountAmount.Equal(dec("15.00")) {
			t.Errorf("expected discount 15.00, got %s", order.DiscountAmount)
		}
		if !order.DeliveryCost.Equal(dec("18.50")) {
			t.Errorf("expected delivery cost 18.50, got %s", order.DeliveryCost)
		}
		if !order.Total.Equal(dec("153.50")) {
			t.Errorf("expected total 153.50, got %s", order.Total)
		}
		if order.Status != domain.StatusPending {
			t.Errorf("expected status %s, got %s", domain.StatusPending, order.Status)
		}
		if order.VoucherCode != "SAVE10" {
			t.Errorf("expected voucher code SAVE10, got %q", order.VoucherCode)
		}

		if persisted == nil {
			t.Fatal("expected order to be persisted")
		}
		if len(persisted.Items) != 1 || !persisted.Items[0].UnitPrice.Equal(dec("50.00")) {
			t.Errorf("expected one item frozen at 50.00, got %+v", persisted.Items)
		}

		product, _ := f.products.GetByID(context.Background(), "p1")
		if product.Stock != 7 {
			t.Errorf("expected stock 7 after checkout, got %d", product.Stock)
		}

		promo, _ := f.promotions.GetByID(context.Background(), "v1")
		if promo.Usage != 1 {
			t.Errorf("expected voucher usage 1, got %d", promo.Usage)
		}

		if !cart.cleared {
			t.Error("expected cart to be cleared")
		}
		if f.notifier.confirmations != 1 {
			t.Errorf("expected one confirmation, got %d", f.notifier.confirmations)
		}
		if len(f.events.placed) != 1 {
			t.Errorf("expected one order placed event, got %d", len(f.events.placed))
		}
	})

	t.Run("waives delivery cost at the free delivery threshold", func(t *testing.T) {
		f := newCheckoutFixture(now)
		f.products.Seed(catalogdomain.Product{
			ID:        "p1",
			Name:      "Jacket",
			BasePrice: dec("199.00"),
			Stock:     5,
			Status:    catalogdomain.StatusActive,
		})

		cart := &mockCart{lines: []ports.CartLine{{ProductID: "p1", Quantity: 1}}}

		order, err := f.handler.Handle(context.Background(), guestCommand(), cart, ports.Actor{})
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}

		if !order.DeliveryCost.IsZero() {
			t.Errorf("expected free delivery, got %s", order.DeliveryCost)
		}
		if !order.Total.Equal(dec("199.00")) {
			t.Errorf("expected total 199.00, got %s", order.Total)
		}
	})

	t.Run("rejects an empty cart", func(t *testing.T) {
		f := newCheckoutFixture(now)

		_, err := f.handler.Handle(context.Background(), guestCommand(), &mockCart{}, ports.Actor{})

		if !errors.Is(err, domain.ErrEmptyCart) {
			t.Errorf("expected ErrEmptyCart, got: %v", err)
		}
	})

	t.Run("insufficient stock aborts the whole checkout", func(t *testing.T) {
		f := newCheckoutFixture(now)
		f.products.Seed(catalogdomain.Product{
			ID:        "p1",
			Name:      "Socks",
			BasePrice: dec("5.00"),
			Stock:     10,
			Status:    catalogdomain.StatusActive,
		})
		f.products.Seed(catalogdomain.Product{
			ID:        "p2",
			Name:      "Gloves",
			BasePrice: dec("8.00"),
			Stock:     1,
			Status:    catalogdomain.StatusActive,
		})

		cart := &mockCart{lines: []ports.CartLine{
			{ProductID: "p1", Quantity: 2},
			{ProductID: "p2", Quantity: 3},
		}}

		_, err := f.handler.Handle(context.Background(), guestCommand(), cart, ports.Actor{})
		if !errors.Is(err, catalogdomain.ErrInsufficientStock) {
			t.Fatalf("expected ErrInsufficientStock, got: %v", err)
		}

		p1, _ := f.products.GetByID(context.Background(), "p1")
		if p1.Stock != 10 {
			t.Errorf("expected p1 stock restored to 10, got %d", p1.Stock)
		}
		p2, _ := f.products.GetByID(context.Background(), "p2")
		if p2.Stock != 1 {
			t.Errorf("expected p2 stock unchanged at 1, got %d", p2.Stock)
		}
		if cart.cleared {
			t.Error("expected cart untouched after failed checkout")
		}
	})

	t.Run("unwinds voucher usage when persistence fails", func(t *testing.T) {
		f := newCheckoutFixture(now)
		f.products.Seed(catalogdomain.Product{
			ID:        "p1",
			Name:      "Hat",
			BasePrice: dec("20.00"),
			Stock:     3,
			Status:    catalogdomain.StatusActive,
		})
		f.promotions.Seed(promodomain.Promotion{
			ID:         "v1",
			Type:       promodomain.TypePercentage,
			Percentage: dec("10"),
			Code:       "SAVE10",
			Active:     true,
			StartDate:  now.AddDate(0, -1, 0),
		})
		f.orders.createFn = func(ctx context.Context, order domain.Order) error {
			return errors.New("database down")
		}

		cart := &mockCart{lines: []ports.CartLine{{ProductID: "p1", Quantity: 1}}}
		cmd := guestCommand()
		cmd.VoucherCode = "SAVE10"

		_, err := f.handler.Handle(context.Background(), cmd, cart, ports.Actor{})
		if err == nil {
			t.Fatal("expected error, got nil")
		}

		promo, _ := f.promotions.GetByID(context.Background(), "v1")
		if promo.Usage != 0 {
			t.Errorf("expected voucher usage unwound to 0, got %d", promo.Usage)
		}
		product, _ := f.products.GetByID(context.Background(), "p1")
		if product.Stock != 3 {
			t.Errorf("expected stock unwound to 3, got %d", product.Stock)
		}
	})

	t.Run("rejects exhausted voucher at commit", func(t *testing.T) {
		f := newCheckoutFixture(now)
		f.products.Seed(catalogdomain.Product{
			ID:        "p1",
			Name:      "Hat",
			BasePrice: dec("20.00"),
			Stock:     3,
			Status:    catalogdomain.StatusActive,
		})
		maxUsage := 1
		f.promotions.Seed(promodomain.Promotion{
			ID:         "v1",
			Type:       promodomain.TypePercentage,
			Percentage: dec("10"),
			Code:       "LAST1",
			Active:     true,
			StartDate:  now.AddDate(0, -1, 0),
			MaxUsage:   &maxUsage,
			Usage:      1,
		})

		cart := &mockCart{lines: []ports.CartLine{{ProductID: "p1", Quantity: 1}}}
		cmd := guestCommand()
		cmd.VoucherCode = "LAST1"

		_, err := f.handler.Handle(context.Background(), cmd, cart, ports.Actor{})
		if !errors.Is(err, promodomain.ErrUsageLimitReached) {
			t.Errorf("expected ErrUsageLimitReached, got: %v", err)
		}
	})

	t.Run("applies best automatic promotion and counts usage once per order", func(t *testing.T) {
		f := newCheckoutFixture(now)
		f.products.Seed(catalogdomain.Product{
			ID:         "p1",
			Name:       "Shirt",
			CategoryID: "apparel",
			BasePrice:  dec("40.00"),
			Stock:      10,
			Status:     catalogdomain.StatusActive,
		})
		f.products.Seed(catalogdomain.Product{
			ID:         "p2",
			Name:       "Trousers",
			CategoryID: "apparel",
			BasePrice:  dec("60.00"),
			Stock:      10,
			Status:     catalogdomain.StatusActive,
		})
		f.promotions.Seed(promodomain.Promotion{
			ID:          "promo-20",
			Name:        "Apparel 20%",
			Type:        promodomain.TypePercentage,
			Percentage:  dec("20"),
			CategoryIDs: []string{"apparel"},
			Active:      true,
			StartDate:   now.AddDate(0, -1, 0),
		})

		cart := &mockCart{lines: []ports.CartLine{
			{ProductID: "p1", Quantity: 1},
			{ProductID: "p2", Quantity: 1},
		}}

		order, err := f.handler.Handle(context.Background(), guestCommand(), cart, ports.Actor{})
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}

		// 100.00 subtotal, 20.00 automatic discount, 18.50 courier.
		if !order.DiscountAmount.Equal(dec("20.00")) {
			t.Errorf("expected discount 20.00, got %s", order.DiscountAmount)
		}
		if !order.Total.Equal(dec("98.50")) {
			t.Errorf("expected total 98.50, got %s", order.Total)
		}

		promo, _ := f.promotions.GetByID(context.Background(), "promo-20")
		if promo.Usage != 1 {
			t.Errorf("expected promotion usage 1 for two lines, got %d", promo.Usage)
		}
	})

	t.Run("manual discounted price wins over a weaker promotion", func(t *testing.T) {
		f := newCheckoutFixture(now)
		discounted := dec("40.00")
		f.products.Seed(catalogdomain.Product{
			ID:              "p1",
			Name:            "Boots",
			CategoryID:      "footwear",
			BasePrice:       dec("50.00"),
			DiscountedPrice: &discounted,
			Stock:           10,
			Status:          catalogdomain.StatusActive,
		})
		f.promotions.Seed(promodomain.Promotion{
			ID:          "promo-10",
			Name:        "Footwear 10%",
			Type:        promodomain.TypePercentage,
			Percentage:  dec("10"),
			CategoryIDs: []string{"footwear"},
			Active:      true,
			StartDate:   now.AddDate(0, -1, 0),
		})

		var persisted *domain.Order
		f.orders.createFn = func(ctx context.Context, order domain.Order) error {
			persisted = &order
			return nil
		}

		cart := &mockCart{lines: []ports.CartLine{{ProductID: "p1", Quantity: 2}}}

		order, err := f.handler.Handle(context.Background(), guestCommand(), cart, ports.Actor{})
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}

		// 100.00 subtotal; 40.00 each beats the 45.00 the promotion yields.
		if !order.DiscountAmount.Equal(dec("20.00")) {
			t.Errorf("expected discount 20.00, got %s", order.DiscountAmount)
		}
		if persisted == nil {
			t.Fatal("expected order to be persisted")
		}
		if !persisted.Items[0].UnitPrice.Equal(dec("40.00")) {
			t.Errorf("expected unit price frozen at 40.00, got %s", persisted.Items[0].UnitPrice)
		}

		promo, _ := f.promotions.GetByID(context.Background(), "promo-10")
		if promo.Usage != 0 {
			t.Errorf("expected no promotion usage for a manual price, got %d", promo.Usage)
		}
	})

	t.Run("rejects ambiguous address input", func(t *testing.T) {
		f := newCheckoutFixture(now)

		cmd := guestCommand()
		cmd.LockerID = "locker-7"

		_, err := f.handler.Handle(context.Background(), cmd, &mockCart{}, ports.Actor{})
		if err == nil {
			t.Fatal("expected error for two address paths, got nil")
		}
	})

	t.Run("resolves saved address for registered user", func(t *testing.T) {
		f := newCheckoutFixture(now)
		f.products.Seed(catalogdomain.Product{
			ID:        "p1",
			Name:      "Mug",
			BasePrice: dec("12.00"),
			Stock:     4,
			Status:    catalogdomain.StatusActive,
		})
		f.addresses.getByIDFn = func(ctx context.Context, id, ownerID string) (*domain.Address, error) {
			if id != "addr-9" || ownerID != "user-1" {
				return nil, ports.ErrAddressNotOwned
			}
			return &domain.Address{ID: "addr-9", Recipient: "Ana", Line1: "1 Main St", City: "Sofia"}, nil
		}

		cart := &mockCart{lines: []ports.CartLine{{ProductID: "p1", Quantity: 1}}}
		cmd := commands.CheckoutCommand{
			AddressID:      "addr-9",
			DeliveryMethod: "pickup",
			PaymentMethod:  "cash_on_delivery",
		}

		order, err := f.handler.Handle(context.Background(), cmd, cart, ports.Actor{UserID: "user-1"})
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}

		if order.ShippingAddress.ID != "addr-9" {
			t.Errorf("expected saved address snapshot, got %+v", order.ShippingAddress)
		}
		// 12.00 subtotal, free pickup, 5.00 cash on delivery surcharge.
		if !order.Total.Equal(dec("17.00")) {
			t.Errorf("expected total 17.00, got %s", order.Total)
		}
		if order.Customer.UserID != "user-1" {
			t.Errorf("expected registered customer, got %+v", order.Customer)
		}
	})
}

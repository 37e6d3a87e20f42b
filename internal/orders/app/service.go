package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/dejobratic/storefront/internal/catalog/ledger"
	catalogports "github.com/dejobratic/storefront/internal/catalog/ports"
	"github.com/dejobratic/storefront/internal/orders/app/commands"
	"github.com/dejobratic/storefront/internal/orders/app/queries"
	"github.com/dejobratic/storefront/internal/orders/domain"
	"github.com/dejobratic/storefront/internal/orders/metrics"
	"github.com/dejobratic/storefront/internal/orders/ports"
	promoports "github.com/dejobratic/storefront/internal/promotions/ports"
	"github.com/dejobratic/storefront/internal/promotions/voucher"
	"github.com/shopspring/decimal"
)

// Config carries the checkout policy knobs the service needs at runtime.
type Config struct {
	FreeDeliveryThreshold decimal.Decimal
	CancellationWindow    time.Duration
	ProcessingDelay       time.Duration
}

// Service bundles use cases for handling orders via the API.
type Service struct {
	repo      ports.OrderRepository
	idemStore ports.IdempotencyStore
	metrics   *metrics.Metrics

	checkoutHandler commands.CheckoutHandler
	cancelHandler   *commands.CancelOrderHandler
	statusHandler   *commands.UpdateStatusHandler
	trackingHandler *commands.TrackingHandler

	getOrderHandler   *queries.GetOrderQueryHandler
	listOrdersHandler *queries.ListOrdersQueryHandler
	statsHandler      *queries.StatsQueryHandler
}

// NewService wires required dependencies.
func NewService(
	repo ports.OrderRepository,
	products catalogports.ProductRepository,
	stock *ledger.Ledger,
	promotions promoports.PromotionRepository,
	addresses ports.AddressBook,
	events ports.EventBus,
	notifier ports.Notifier,
	idem ports.IdempotencyStore,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	cfg Config,
) *Service {
	vouchers := voucher.NewResolver(promotions, nil)
	coreCheckout := commands.NewCheckoutHandler(
		repo, products, stock, promotions, vouchers,
		addresses, events, notifier, logger,
		cfg.FreeDeliveryThreshold, nil,
	)
	observableCheckout := commands.NewObservableCheckoutHandler(coreCheckout, logger, metrics)

	return &Service{
		repo:            repo,
		idemStore:       idem,
		metrics:         metrics,
		checkoutHandler: observableCheckout,
		cancelHandler: commands.NewCancelOrderHandler(
			repo, stock, promotions, events, logger, cfg.CancellationWindow, nil,
		),
		statusHandler: commands.NewUpdateStatusHandler(
			repo, events, notifier, logger, cfg.ProcessingDelay, nil, nil,
		),
		trackingHandler:   commands.NewTrackingHandler(repo, notifier, logger, nil),
		getOrderHandler:   queries.NewGetOrderQueryHandler(repo),
		listOrdersHandler: queries.NewListOrdersQueryHandler(repo),
		statsHandler:      queries.NewStatsQueryHandler(repo),
	}
}

// Checkout turns the actor's cart into a committed order.
func (s *Service) Checkout(ctx context.Context, cmd commands.CheckoutCommand, cart ports.CartProvider, actor ports.Actor) (*domain.Order, error) {
	return s.checkoutHandler.Handle(ctx, cmd, cart, actor)
}

// GetOrder retrieves an order visible to the actor.
func (s *Service) GetOrder(ctx context.Context, id string, actor ports.Actor) (*domain.Order, error) {
	return s.getOrderHandler.Handle(ctx, queries.GetOrderQuery{OrderID: id, Actor: actor})
}

// ListOrders returns a page of orders, optionally filtered and searched.
func (s *Service) ListOrders(ctx context.Context, query queries.ListOrdersQuery) ([]domain.Order, error) {
	return s.listOrdersHandler.Handle(ctx, query)
}

// CancelOrder cancels an order and compensates stock and voucher usage.
func (s *Service) CancelOrder(ctx context.Context, id, reason string, actor ports.Actor) (*domain.Order, error) {
	order, err := s.cancelHandler.Handle(ctx, id, reason, actor)
	if err == nil {
		s.metrics.RecordCancellation(ctx, actor.Admin)
	}
	return order, err
}

// UpdateStatus applies an admin status transition.
func (s *Service) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus, actor ports.Actor) (*domain.Order, error) {
	order, err := s.statusHandler.Handle(ctx, id, status, actor)
	if err == nil {
		s.metrics.RecordStatusChange(ctx, string(status))
	}
	return order, err
}

// AssignTracking sets a carrier tracking number, shipping the order.
func (s *Service) AssignTracking(ctx context.Context, id, number string, actor ports.Actor) (*domain.Order, error) {
	return s.trackingHandler.Assign(ctx, id, number, actor)
}

// GenerateTracking derives and assigns a fresh tracking number.
func (s *Service) GenerateTracking(ctx context.Context, id string, actor ports.Actor) (*domain.Order, error) {
	return s.trackingHandler.Generate(ctx, id, actor)
}

// AddNote appends an admin note to the order's log.
func (s *Service) AddNote(ctx context.Context, id, text string, actor ports.Actor) (*domain.Order, error) {
	if !actor.Admin {
		return nil, ports.ErrNotAuthorized
	}

	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	order.AddNote(text, time.Now().UTC())

	if err := s.repo.Update(ctx, *order); err != nil {
		return nil, err
	}
	return order, nil
}

// RevenueSummary aggregates committed revenue over a period.
func (s *Service) RevenueSummary(ctx context.Context, from, to time.Time, actor ports.Actor) (ports.RevenueSummary, error) {
	return s.statsHandler.RevenueSummary(ctx, queries.RevenueSummaryQuery{From: from, To: to, Actor: actor})
}

// TopCustomers ranks customers by spend.
func (s *Service) TopCustomers(ctx context.Context, limit int, actor ports.Actor) ([]ports.CustomerSales, error) {
	return s.statsHandler.TopCustomers(ctx, limit, actor)
}

// CategorySales aggregates revenue per product category.
func (s *Service) CategorySales(ctx context.Context, actor ports.Actor) ([]ports.CategorySales, error) {
	return s.statsHandler.CategorySales(ctx, actor)
}

// SaveIdempotentResponse writes response details for a key.
func (s *Service) SaveIdempotentResponse(ctx context.Context, key string, response ports.StoredResponse) error {
	return s.idemStore.Save(ctx, key, response)
}

// GetIdempotentResponse retrieves previously stored response data.
func (s *Service) GetIdempotentResponse(ctx context.Context, key string) (*ports.StoredResponse, error) {
	return s.idemStore.Get(ctx, key)
}

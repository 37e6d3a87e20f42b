package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/dejobratic/storefront/internal/catalog/ledger"
	catalogports "github.com/dejobratic/storefront/internal/catalog/ports"
	"github.com/dejobratic/storefront/internal/orders/domain"
	"github.com/dejobratic/storefront/internal/orders/ports"
	promodomain "github.com/dejobratic/storefront/internal/promotions/domain"
	promoports "github.com/dejobratic/storefront/internal/promotions/ports"
	"github.com/dejobratic/storefront/internal/promotions/resolver"
	"github.com/dejobratic/storefront/internal/promotions/voucher"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AddressFields carries a freshly supplied shipping address.
type AddressFields struct {
	Recipient  string
	Line1      string
	Line2      string
	City       string
	PostalCode string
	Country    string
}

// CheckoutCommand is the request to turn a cart into a committed order.
// Exactly one address path must be set: a saved AddressID, inline Address
// fields, or a LockerID for locker pickup.
type CheckoutCommand struct {
	GuestName  string
	GuestEmail string
	GuestPhone string

	AddressID   string
	Address     *AddressFields
	SaveAddress bool
	LockerID    string

	DeliveryMethod string
	PaymentMethod  string
	VoucherCode    string
}

// Validate checks input shape; business rules are enforced during Handle.
func (c CheckoutCommand) Validate() error {
	paths := 0
	if strings.TrimSpace(c.AddressID) != "" {
		paths++
	}
	if c.Address != nil {
		paths++
	}
	if strings.TrimSpace(c.LockerID) != "" {
		paths++
	}
	if paths != 1 {
		return errors.New("exactly one of address_id, address or locker_id is required")
	}
	if c.Address != nil {
		if strings.TrimSpace(c.Address.Line1) == "" || strings.TrimSpace(c.Address.City) == "" {
			return errors.New("address line1 and city are required")
		}
	}
	return nil
}

// CheckoutHandler orchestrates cart, pricing, promotions, stock and order
// persistence into one all-or-nothing checkout.
type CheckoutHandler interface {
	Handle(ctx context.Context, cmd CheckoutCommand, cart ports.CartProvider, actor ports.Actor) (*domain.Order, error)
}

type checkoutHandler struct {
	orders     ports.OrderRepository
	products   catalogports.ProductRepository
	stock      *ledger.Ledger
	promotions promoports.PromotionRepository
	vouchers   *voucher.Resolver
	addresses  ports.AddressBook
	events     ports.EventBus
	notifier   ports.Notifier
	logger     *slog.Logger

	freeDeliveryThreshold decimal.Decimal
	now                   func() time.Time
}

// NewCheckoutHandler wires the orchestrator's collaborators.
func NewCheckoutHandler(
	orders ports.OrderRepository,
	products catalogports.ProductRepository,
	stock *ledger.Ledger,
	promotions promoports.PromotionRepository,
	vouchers *voucher.Resolver,
	addresses ports.AddressBook,
	events ports.EventBus,
	notifier ports.Notifier,
	logger *slog.Logger,
	freeDeliveryThreshold decimal.Decimal,
	now func() time.Time,
) CheckoutHandler {
	if now == nil {
		now = time.Now
	}
	return &checkoutHandler{
		orders:                orders,
		products:              products,
		stock:                 stock,
		promotions:            promotions,
		vouchers:              vouchers,
		addresses:             addresses,
		events:                events,
		notifier:              notifier,
		logger:                logger,
		freeDeliveryThreshold: freeDeliveryThreshold,
		now:                   now,
	}
}

func (h *checkoutHandler) Handle(ctx context.Context, cmd CheckoutCommand, cart ports.CartProvider, actor ports.Actor) (*domain.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	lines, err := cart.Lines(ctx)
	if err != nil {
		return nil, fmt.Errorf("read cart: %w", err)
	}
	if len(lines) == 0 {
		return nil, domain.ErrEmptyCart
	}

	customer, err := h.buildCustomer(cmd, actor)
	if err != nil {
		return nil, err
	}

	address, err := h.resolveAddress(ctx, cmd, customer, actor)
	if err != nil {
		return nil, err
	}

	deliveryMethod := domain.ParseDeliveryMethod(cmd.DeliveryMethod)
	paymentMethod := domain.ParsePaymentMethod(cmd.PaymentMethod)

	now := h.now().UTC()
	pricing, err := h.priceCart(ctx, lines, now)
	if err != nil {
		return nil, err
	}

	voucherPromo, voucherDiscount, err := h.vouchers.Validate(ctx, cmd.VoucherCode, pricing.subtotal)
	if err != nil {
		return nil, err
	}

	deliveryCost := domain.DeliveryCostFor(deliveryMethod, pricing.subtotal, h.freeDeliveryThreshold)
	surcharge := paymentMethod.Surcharge()
	discount := pricing.autoDiscount.Add(voucherDiscount)
	total := domain.ComputeTotal(pricing.subtotal, discount, deliveryCost, surcharge)

	order := domain.Order{
		ID:               uuid.NewString(),
		Number:           newOrderNumber(),
		CreatedAt:        now,
		Status:           domain.StatusPending,
		PaymentStatus:    domain.PaymentPending,
		DeliveryMethod:   deliveryMethod,
		PaymentMethod:    paymentMethod,
		Customer:         customer,
		ShippingAddress:  *address,
		Items:            pricing.items,
		Subtotal:         pricing.subtotal,
		DiscountAmount:   discount,
		DeliveryCost:     deliveryCost,
		PaymentSurcharge: surcharge,
		Total:            total,
		StatusChangedAt:  now,
		UpdatedAt:        now,
	}
	if voucherPromo != nil {
		order.PromotionID = voucherPromo.ID
		order.VoucherCode = voucherPromo.Code
	}

	if err := order.Validate(); err != nil {
		return nil, err
	}

	if err := h.commit(ctx, &order, lines, pricing.usedPromotions, voucherPromo); err != nil {
		return nil, err
	}

	// Post-commit effects are best-effort; the order is already placed.
	if err := cart.Clear(ctx); err != nil {
		h.logger.WarnContext(ctx, "failed to clear cart after checkout", "order_id", order.ID, "error", err)
	}
	if err := h.notifier.SendOrderConfirmation(ctx, order); err != nil {
		h.logger.WarnContext(ctx, "failed to send order confirmation", "order_id", order.ID, "error", err)
	}
	if err := h.events.PublishOrderPlaced(ctx, order.ID); err != nil {
		h.logger.WarnContext(ctx, "failed to publish order placed event", "order_id", order.ID, "error", err)
	}

	return &order, nil
}

type cartPricing struct {
	items          []domain.OrderItem
	subtotal       decimal.Decimal
	autoDiscount   decimal.Decimal
	usedPromotions []string
}

// priceCart freezes per-line prices via the discount resolver and accumulates
// the undiscounted subtotal and the automatic savings.
func (h *checkoutHandler) priceCart(ctx context.Context, lines []ports.CartLine, now time.Time) (*cartPricing, error) {
	pricing := &cartPricing{
		subtotal:     decimal.Zero,
		autoDiscount: decimal.Zero,
	}
	used := make(map[string]bool)

	for _, line := range lines {
		if line.Quantity < 1 {
			return nil, fmt.Errorf("invalid quantity %d for product %s", line.Quantity, line.ProductID)
		}

		product, err := h.products.GetByID(ctx, line.ProductID)
		if err != nil {
			return nil, fmt.Errorf("load product %s: %w", line.ProductID, err)
		}

		candidates, err := h.promotions.ListAutomaticFor(ctx, product.ID, product.CategoryID, product.BrandID)
		if err != nil {
			return nil, fmt.Errorf("load promotions for product %s: %w", product.ID, err)
		}
		candidates = h.withAttachedPromotion(ctx, product.PromotionID, candidates)

		lp := resolver.PriceLine(product.BasePrice, line.Quantity, candidates, now)

		// A manually discounted price beats the promotion outcome when it is
		// cheaper. It is not a promotion, so no usage is counted for it.
		if product.DiscountedPrice != nil {
			qty := decimal.NewFromInt(int64(line.Quantity))
			manualTotal := product.DiscountedPrice.Mul(qty)
			if manualTotal.LessThan(lp.LineTotal) {
				lp = resolver.LinePrice{
					UnitPrice: *product.DiscountedPrice,
					LineTotal: manualTotal,
					Savings:   product.BasePrice.Mul(qty).Sub(manualTotal),
				}
			}
		}

		pricing.items = append(pricing.items, domain.OrderItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			CategoryID:  product.CategoryID,
			Quantity:    line.Quantity,
			UnitPrice:   lp.UnitPrice,
			LineTotal:   lp.LineTotal,
		})

		pricing.subtotal = pricing.subtotal.Add(product.BasePrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
		pricing.autoDiscount = pricing.autoDiscount.Add(lp.Savings)

		if lp.Promotion != nil {
			used[lp.Promotion.ID] = true
		}
	}

	// Each automatic promotion counts once per order, however many lines used it.
	for id := range used {
		pricing.usedPromotions = append(pricing.usedPromotions, id)
	}
	sort.Strings(pricing.usedPromotions)

	return pricing, nil
}

// withAttachedPromotion folds a product's directly attached promotion into
// the candidate list when the scope query did not already return it.
func (h *checkoutHandler) withAttachedPromotion(ctx context.Context, promotionID string, candidates []promodomain.Promotion) []promodomain.Promotion {
	if promotionID == "" {
		return candidates
	}
	for _, c := range candidates {
		if c.ID == promotionID {
			return candidates
		}
	}
	attached, err := h.promotions.GetByID(ctx, promotionID)
	if err != nil {
		h.logger.WarnContext(ctx, "attached promotion not resolvable", "promotion_id", promotionID, "error", err)
		return candidates
	}
	return append(candidates, *attached)
}

func (h *checkoutHandler) buildCustomer(cmd CheckoutCommand, actor ports.Actor) (domain.Customer, error) {
	customer := domain.Customer{}
	if actor.UserID != "" {
		customer.UserID = actor.UserID
		customer.Email = strings.TrimSpace(cmd.GuestEmail)
	} else {
		customer.GuestName = strings.TrimSpace(cmd.GuestName)
		customer.GuestEmail = strings.TrimSpace(cmd.GuestEmail)
		customer.GuestPhone = strings.TrimSpace(cmd.GuestPhone)
		customer.Email = customer.GuestEmail
	}
	if err := customer.Validate(); err != nil {
		return domain.Customer{}, err
	}
	return customer, nil
}

// resolveAddress executes exactly one of the three resolution paths.
func (h *checkoutHandler) resolveAddress(ctx context.Context, cmd CheckoutCommand, customer domain.Customer, actor ports.Actor) (*domain.Address, error) {
	switch {
	case cmd.AddressID != "":
		address, err := h.addresses.GetByID(ctx, cmd.AddressID, actor.UserID)
		if err != nil {
			return nil, err
		}
		return address, nil

	case cmd.LockerID != "":
		return &domain.Address{
			Recipient: recipientName(customer, cmd),
			LockerID:  cmd.LockerID,
		}, nil

	default:
		address := domain.Address{
			Recipient:  recipientName(customer, cmd),
			Line1:      strings.TrimSpace(cmd.Address.Line1),
			Line2:      strings.TrimSpace(cmd.Address.Line2),
			City:       strings.TrimSpace(cmd.Address.City),
			PostalCode: strings.TrimSpace(cmd.Address.PostalCode),
			Country:    strings.TrimSpace(cmd.Address.Country),
		}
		if cmd.SaveAddress && !customer.IsGuest() {
			saved, err := h.addresses.Save(ctx, address, actor.UserID)
			if err != nil {
				return nil, fmt.Errorf("save address: %w", err)
			}
			return saved, nil
		}
		return &address, nil
	}
}

func recipientName(customer domain.Customer, cmd CheckoutCommand) string {
	if cmd.Address != nil && strings.TrimSpace(cmd.Address.Recipient) != "" {
		return strings.TrimSpace(cmd.Address.Recipient)
	}
	if customer.GuestName != "" {
		return customer.GuestName
	}
	return customer.UserID
}

// commit applies the mutating steps as one unit: promotion usage counters,
// stock decrements, then the order itself. Any failure unwinds the effects
// already applied so no partial checkout is observable.
func (h *checkoutHandler) commit(
	ctx context.Context,
	order *domain.Order,
	lines []ports.CartLine,
	usedPromotions []string,
	voucherPromo *promodomain.Promotion,
) error {
	var incremented []string
	unwindUsage := func() {
		for _, id := range incremented {
			if err := h.promotions.DecrementUsage(ctx, id); err != nil {
				h.logger.ErrorContext(ctx, "failed to unwind promotion usage", "promotion_id", id, "error", err)
			}
		}
	}

	for _, id := range usedPromotions {
		if err := h.promotions.IncrementUsage(ctx, id); err != nil {
			unwindUsage()
			return fmt.Errorf("commit promotion usage: %w", err)
		}
		incremented = append(incremented, id)
	}

	if voucherPromo != nil {
		// Re-validated at commit time: the store rejects the increment when
		// the ceiling was reached between validation and commit.
		if err := h.promotions.IncrementUsage(ctx, voucherPromo.ID); err != nil {
			unwindUsage()
			return fmt.Errorf("commit voucher usage: %w", err)
		}
		incremented = append(incremented, voucherPromo.ID)
	}

	var decremented []ports.CartLine
	unwindStock := func() {
		for _, line := range decremented {
			if err := h.stock.Increase(ctx, line.ProductID, line.Quantity); err != nil {
				h.logger.ErrorContext(ctx, "failed to unwind stock decrement", "product_id", line.ProductID, "error", err)
			}
		}
	}

	for _, line := range lines {
		if err := h.stock.Decrease(ctx, line.ProductID, line.Quantity); err != nil {
			unwindStock()
			unwindUsage()
			return err
		}
		decremented = append(decremented, line)
	}

	if err := h.orders.Create(ctx, *order); err != nil {
		unwindStock()
		unwindUsage()
		return fmt.Errorf("persist order: %w", err)
	}

	return nil
}

func newOrderNumber() string {
	id := uuid.NewString()
	return "SF-" + strings.ToUpper(strings.ReplaceAll(id, "-", "")[:12])
}

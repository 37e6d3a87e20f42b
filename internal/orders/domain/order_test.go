package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/dejobratic/storefront/internal/orders/domain"
	"github.com/shopspring/decimal"
)

var now = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func pendingOrder() domain.Order {
	return domain.Order{
		ID:        "o1",
		Number:    "SF-1001",
		CreatedAt: now,
		Status:    domain.StatusPending,
		PaymentStatus: domain.PaymentPending,
		Customer:  domain.Customer{UserID: "u1", Email: "user@example.com"},
		Items: []domain.OrderItem{
			{ProductID: "p1", Quantity: 2, UnitPrice: decimal.NewFromInt(10), LineTotal: decimal.NewFromInt(20)},
		},
		Subtotal:       decimal.NewFromInt(20),
		DiscountAmount: decimal.Zero,
		DeliveryCost:   decimal.RequireFromString("18.50"),
		Total:          decimal.RequireFromString("38.50"),
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from domain.OrderStatus
		to   domain.OrderStatus
		want bool
	}{
		{"pending to confirmed", domain.StatusPending, domain.StatusConfirmed, true},
		{"admin may skip steps forward", domain.StatusPending, domain.StatusShipped, true},
		{"no backward moves", domain.StatusShipped, domain.StatusProcessing, false},
		{"no self transition", domain.StatusPacked, domain.StatusPacked, false},
		{"cancel from pending", domain.StatusPending, domain.StatusCancelled, true},
		{"cancel from out_for_delivery", domain.StatusOutForDelivery, domain.StatusCancelled, true},
		{"no cancel after delivery", domain.StatusDelivered, domain.StatusCancelled, false},
		{"no cancel after return", domain.StatusReturned, domain.StatusCancelled, false},
		{"no double cancel", domain.StatusCancelled, domain.StatusCancelled, false},
		{"return after delivery", domain.StatusDelivered, domain.StatusReturned, true},
		{"return while in transit", domain.StatusInTransit, domain.StatusReturned, true},
		{"no return before shipping", domain.StatusProcessing, domain.StatusReturned, false},
		{"refund after cancellation", domain.StatusCancelled, domain.StatusRefunded, true},
		{"refund after return", domain.StatusReturned, domain.StatusRefunded, true},
		{"no refund straight from pending", domain.StatusPending, domain.StatusRefunded, false},
		{"failure mid fulfilment", domain.StatusProcessing, domain.StatusFailed, true},
		{"no failure after delivery", domain.StatusDelivered, domain.StatusFailed, false},
		{"unknown status rejected", domain.StatusPending, domain.OrderStatus("lost"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := domain.CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestChangeStatusStampsTimestamps(t *testing.T) {
	order := pendingOrder()
	later := now.Add(time.Hour)

	if err := order.ChangeStatus(domain.StatusConfirmed, later); err != nil {
		t.Fatalf("ChangeStatus() error = %v", err)
	}
	if !order.StatusChangedAt.Equal(later) {
		t.Errorf("StatusChangedAt = %v, want %v", order.StatusChangedAt, later)
	}
	if order.CancelledAt != nil || order.DeliveredAt != nil {
		t.Error("unrelated timestamps must stay unset")
	}
}

func TestChangeStatusDeliveredForcesPaid(t *testing.T) {
	order := pendingOrder()
	order.Status = domain.StatusOutForDelivery

	if err := order.ChangeStatus(domain.StatusDelivered, now); err != nil {
		t.Fatalf("ChangeStatus() error = %v", err)
	}
	if order.PaymentStatus != domain.PaymentPaid {
		t.Errorf("payment status = %s, delivery must settle payment", order.PaymentStatus)
	}
	if order.DeliveredAt == nil || !order.DeliveredAt.Equal(now) {
		t.Errorf("DeliveredAt = %v, want %v", order.DeliveredAt, now)
	}
}

func TestCanBeCancelled(t *testing.T) {
	window := 5 * time.Hour

	tests := []struct {
		name   string
		status domain.OrderStatus
		at     time.Time
		want   bool
	}{
		{"well within window", domain.StatusPending, now.Add(time.Hour), true},
		{"at 4h59m", domain.StatusConfirmed, now.Add(4*time.Hour + 59*time.Minute), true},
		{"exactly at the window", domain.StatusPending, now.Add(5 * time.Hour), true},
		{"at 5h1s", domain.StatusPending, now.Add(5*time.Hour + time.Second), false},
		{"already cancelled", domain.StatusCancelled, now.Add(time.Minute), false},
		{"already delivered", domain.StatusDelivered, now.Add(time.Minute), false},
		{"already returned", domain.StatusReturned, now.Add(time.Minute), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := pendingOrder()
			order.Status = tt.status
			if got := order.CanBeCancelled(tt.at, window); got != tt.want {
				t.Errorf("CanBeCancelled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCancel(t *testing.T) {
	order := pendingOrder()

	if err := order.Cancel("changed my mind", now.Add(time.Hour)); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if order.Status != domain.StatusCancelled {
		t.Errorf("status = %s, want cancelled", order.Status)
	}
	if order.CancelReason != "changed my mind" {
		t.Errorf("reason = %q", order.CancelReason)
	}
	if order.CancelledAt == nil {
		t.Error("CancelledAt not stamped")
	}

	if err := order.Cancel("again", now.Add(2*time.Hour)); !errors.Is(err, domain.ErrAlreadyCancelled) {
		t.Errorf("second Cancel() error = %v, want ErrAlreadyCancelled", err)
	}
}

func TestAssignTracking(t *testing.T) {
	order := pendingOrder()
	order.Status = domain.StatusPacked

	if err := order.AssignTracking("TRK-123", now); err != nil {
		t.Fatalf("AssignTracking() error = %v", err)
	}
	if order.Status != domain.StatusShipped {
		t.Errorf("status = %s, tracking assignment must ship the order", order.Status)
	}

	err := order.AssignTracking("TRK-456", now)
	if !errors.Is(err, domain.ErrTrackingAlreadySet) {
		t.Errorf("second AssignTracking() error = %v, want ErrTrackingAlreadySet", err)
	}
	if order.TrackingNumber != "TRK-123" {
		t.Errorf("tracking = %q, must keep the first number", order.TrackingNumber)
	}

	delivered := pendingOrder()
	delivered.Status = domain.StatusDelivered
	if err := delivered.AssignTracking("TRK-789", now); err != nil {
		t.Fatalf("AssignTracking() on delivered order error = %v", err)
	}
	if delivered.Status != domain.StatusDelivered {
		t.Errorf("status = %s, late tracking assignment must not move the order", delivered.Status)
	}
	if delivered.TrackingNumber != "TRK-789" {
		t.Errorf("tracking = %q", delivered.TrackingNumber)
	}
}

func TestComputeTotal(t *testing.T) {
	tests := []struct {
		name                                   string
		subtotal, discount, delivery, surcharge string
		want                                   string
	}{
		{"plain", "150.00", "15.00", "18.50", "0", "153.50"},
		{"free delivery", "250.00", "0", "0", "0", "250.00"},
		{"surcharge added", "50.00", "0", "18.50", "5.00", "73.50"},
		{"clamped at zero", "10.00", "40.00", "0", "0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := domain.ComputeTotal(
				decimal.RequireFromString(tt.subtotal),
				decimal.RequireFromString(tt.discount),
				decimal.RequireFromString(tt.delivery),
				decimal.RequireFromString(tt.surcharge),
			)
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("ComputeTotal() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCustomerValidate(t *testing.T) {
	tests := []struct {
		name     string
		customer domain.Customer
		wantErr  bool
	}{
		{"registered user", domain.Customer{UserID: "u1"}, false},
		{"guest", domain.Customer{GuestName: "Ada", GuestEmail: "ada@example.com"}, false},
		{"neither", domain.Customer{}, true},
		{"both", domain.Customer{UserID: "u1", GuestName: "Ada", GuestEmail: "ada@example.com"}, true},
		{"guest with bad email", domain.Customer{GuestName: "Ada", GuestEmail: "nope"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.customer.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAddNoteKeepsChronologicalLog(t *testing.T) {
	order := pendingOrder()
	order.AddNote("first", now)
	order.AddNote("  ", now.Add(time.Minute))
	order.AddNote("second", now.Add(2*time.Minute))

	if len(order.Notes) != 2 {
		t.Fatalf("notes = %d, want 2 (blank entries dropped)", len(order.Notes))
	}
	if order.Notes[0].Text != "first" || order.Notes[1].Text != "second" {
		t.Errorf("notes out of order: %+v", order.Notes)
	}
	if !order.Notes[1].At.After(order.Notes[0].At) {
		t.Error("note timestamps must be chronological")
	}
}

func TestParseMethods(t *testing.T) {
	if got := domain.ParseDeliveryMethod("EXPRESS"); got != domain.DeliveryExpress {
		t.Errorf("ParseDeliveryMethod(EXPRESS) = %s", got)
	}
	if got := domain.ParseDeliveryMethod("teleport"); got != domain.DeliveryCourier {
		t.Errorf("unknown delivery method must fall back to courier, got %s", got)
	}
	if got := domain.ParsePaymentMethod("cash_on_delivery"); got != domain.PaymentCashOnDelivery {
		t.Errorf("ParsePaymentMethod(cash_on_delivery) = %s", got)
	}
	if got := domain.ParsePaymentMethod("crypto"); got != domain.PaymentCard {
		t.Errorf("unknown payment method must fall back to card, got %s", got)
	}
}

func TestDeliveryCostFor(t *testing.T) {
	threshold := decimal.NewFromInt(199)

	got := domain.DeliveryCostFor(domain.DeliveryCourier, decimal.NewFromInt(150), threshold)
	if !got.Equal(decimal.RequireFromString("18.50")) {
		t.Errorf("below threshold: cost = %s, want 18.50", got)
	}

	got = domain.DeliveryCostFor(domain.DeliveryCourier, decimal.NewFromInt(199), threshold)
	if !got.IsZero() {
		t.Errorf("at threshold: cost = %s, want 0", got)
	}
}

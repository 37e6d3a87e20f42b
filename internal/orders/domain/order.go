package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrEmptyCart                = errors.New("cart is empty")
	ErrInvalidCustomer          = errors.New("order needs exactly one of registered user or guest identity")
	ErrAlreadyCancelled         = errors.New("order is already cancelled")
	ErrTrackingAlreadySet       = errors.New("tracking number is already set")
	ErrInvalidTransition        = errors.New("illegal status transition")
	ErrCancellationWindowClosed = errors.New("cancellation window has closed")
	ErrNotCancellable           = errors.New("order can no longer be cancelled")
)

// Customer identifies who placed the order: a registered user reference or
// guest contact details, never both.
type Customer struct {
	UserID     string `json:"user_id,omitempty"`
	GuestName  string `json:"guest_name,omitempty"`
	GuestEmail string `json:"guest_email,omitempty"`
	GuestPhone string `json:"guest_phone,omitempty"`
	Email      string `json:"email"`
}

// Validate enforces the mutually exclusive identity paths.
func (c Customer) Validate() error {
	registered := strings.TrimSpace(c.UserID) != ""
	guest := strings.TrimSpace(c.GuestName) != "" || strings.TrimSpace(c.GuestEmail) != ""
	if registered == guest {
		return ErrInvalidCustomer
	}
	if !registered && !strings.Contains(c.GuestEmail, "@") {
		return errors.New("guest_email must be valid")
	}
	return nil
}

// IsGuest reports whether the order was placed without a registered account.
func (c Customer) IsGuest() bool {
	return strings.TrimSpace(c.UserID) == ""
}

// Address is a shipping address snapshot copied onto the order at checkout.
type Address struct {
	ID         string `json:"id,omitempty"`
	Recipient  string `json:"recipient"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	LockerID   string `json:"locker_id,omitempty"`
}

// OrderItem is a frozen snapshot of one cart line: the unit price captured at
// order time never changes with later product edits.
type OrderItem struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	CategoryID  string          `json:"category_id"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// NoteEntry is one record in the append-only admin notes log.
type NoteEntry struct {
	At   time.Time `json:"at"`
	Text string    `json:"text"`
}

// Order is the committed result of a checkout, mutated afterwards only
// through the status machine and targeted admin edits. It is never deleted;
// cancellation is a status.
type Order struct {
	ID             string         `json:"id"`
	Number         string         `json:"number"`
	CreatedAt      time.Time      `json:"created_at"`
	Status         OrderStatus    `json:"status"`
	PaymentStatus  PaymentStatus  `json:"payment_status"`
	DeliveryMethod DeliveryMethod `json:"delivery_method"`
	PaymentMethod  PaymentMethod  `json:"payment_method"`

	Customer        Customer    `json:"customer"`
	ShippingAddress Address     `json:"shipping_address"`
	Items           []OrderItem `json:"items"`

	Subtotal         decimal.Decimal `json:"subtotal"`
	DiscountAmount   decimal.Decimal `json:"discount_amount"`
	DeliveryCost     decimal.Decimal `json:"delivery_cost"`
	PaymentSurcharge decimal.Decimal `json:"payment_surcharge"`
	Total            decimal.Decimal `json:"total"`

	PromotionID string `json:"promotion_id,omitempty"`
	VoucherCode string `json:"voucher_code,omitempty"`

	TrackingNumber  string      `json:"tracking_number,omitempty"`
	CancelReason    string      `json:"cancel_reason,omitempty"`
	CancelledAt     *time.Time  `json:"cancelled_at,omitempty"`
	DeliveredAt     *time.Time  `json:"delivered_at,omitempty"`
	StatusChangedAt time.Time   `json:"status_changed_at"`
	Notes           []NoteEntry `json:"notes,omitempty"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// ComputeTotal reconciles the money fields: subtotal minus all discounts plus
// delivery and surcharge, floored at zero.
func ComputeTotal(subtotal, discount, deliveryCost, surcharge decimal.Decimal) decimal.Decimal {
	total := subtotal.Sub(discount).Add(deliveryCost).Add(surcharge)
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}

// Validate ensures the committed order adheres to business constraints.
func (o Order) Validate() error {
	if len(o.Items) == 0 {
		return ErrEmptyCart
	}
	if err := o.Customer.Validate(); err != nil {
		return err
	}
	if o.DiscountAmount.IsNegative() {
		return errors.New("discount_amount must not be negative")
	}
	want := ComputeTotal(o.Subtotal, o.DiscountAmount, o.DeliveryCost, o.PaymentSurcharge)
	if !o.Total.Equal(want) {
		return errors.New("total does not reconcile with subtotal, discount and delivery cost")
	}
	return nil
}

// ChangeStatus applies the status machine: legality check, then timestamps
// and the payment-settled rule on delivery.
func (o *Order) ChangeStatus(newStatus OrderStatus, now time.Time) error {
	if !CanTransition(o.Status, newStatus) {
		return ErrInvalidTransition
	}

	o.Status = newStatus
	o.StatusChangedAt = now
	o.UpdatedAt = now

	switch newStatus {
	case StatusCancelled:
		at := now
		o.CancelledAt = &at
	case StatusDelivered:
		at := now
		o.DeliveredAt = &at
		// Delivery implies payment settled.
		o.PaymentStatus = PaymentPaid
	}
	return nil
}

// CanBeCancelled reports whether a non-admin may still self-cancel: not in a
// cancel-terminal status, and within the window after placement.
func (o Order) CanBeCancelled(now time.Time, window time.Duration) bool {
	switch o.Status {
	case StatusCancelled, StatusDelivered, StatusReturned:
		return false
	}
	return !now.After(o.CreatedAt.Add(window))
}

// Cancel transitions the order to cancelled with a reason. Stock restoration
// and usage decrements are the caller's responsibility.
func (o *Order) Cancel(reason string, now time.Time) error {
	if o.Status == StatusCancelled {
		return ErrAlreadyCancelled
	}
	if err := o.ChangeStatus(StatusCancelled, now); err != nil {
		return err
	}
	o.CancelReason = reason
	return nil
}

// AssignTracking sets the tracking number once. Orders not yet shipped move
// to shipped; orders already at or past shipped just record the number.
func (o *Order) AssignTracking(number string, now time.Time) error {
	if o.TrackingNumber != "" {
		return ErrTrackingAlreadySet
	}

	rank, onPath := fulfilmentRank[o.Status]
	if onPath && rank >= fulfilmentRank[StatusShipped] {
		o.UpdatedAt = now
	} else if err := o.ChangeStatus(StatusShipped, now); err != nil {
		return err
	}

	o.TrackingNumber = number
	return nil
}

// AddNote appends a timestamped entry to the admin notes log.
func (o *Order) AddNote(text string, now time.Time) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	o.Notes = append(o.Notes, NoteEntry{At: now, Text: text})
	o.UpdatedAt = now
}

// OwnedBy reports whether the order belongs to the given registered user.
func (o Order) OwnedBy(userID string) bool {
	return userID != "" && o.Customer.UserID == userID
}

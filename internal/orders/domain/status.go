package domain

import (
	"fmt"
	"strings"
)

// OrderStatus captures the lifecycle of an order in the system.
type OrderStatus string

const (
	StatusPending        OrderStatus = "pending"
	StatusConfirmed      OrderStatus = "confirmed"
	StatusProcessing     OrderStatus = "processing"
	StatusPacked         OrderStatus = "packed"
	StatusShipped        OrderStatus = "shipped"
	StatusInTransit      OrderStatus = "in_transit"
	StatusOutForDelivery OrderStatus = "out_for_delivery"
	StatusDelivered      OrderStatus = "delivered"
	StatusCancelled      OrderStatus = "cancelled"
	StatusReturned       OrderStatus = "returned"
	StatusRefunded       OrderStatus = "refunded"
	StatusFailed         OrderStatus = "failed"
)

// PaymentStatus tracks settlement independently of fulfilment.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// fulfilmentRank orders the happy-path states. Admin transitions may skip
// steps, so any forward move along this rank is legal.
var fulfilmentRank = map[OrderStatus]int{
	StatusPending:        0,
	StatusConfirmed:      1,
	StatusProcessing:     2,
	StatusPacked:         3,
	StatusShipped:        4,
	StatusInTransit:      5,
	StatusOutForDelivery: 6,
	StatusDelivered:      7,
}

// IsTerminal indicates whether the order has left the fulfilment flow for good.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case StatusDelivered, StatusCancelled, StatusReturned, StatusRefunded:
		return true
	default:
		return false
	}
}

// Valid reports whether the status is one the machine knows.
func (s OrderStatus) Valid() bool {
	if _, ok := fulfilmentRank[s]; ok {
		return true
	}
	switch s {
	case StatusCancelled, StatusReturned, StatusRefunded, StatusFailed:
		return true
	}
	return false
}

// ParseOrderStatus maps client input to a known status.
func ParseOrderStatus(value string) (OrderStatus, error) {
	status := OrderStatus(strings.ToLower(strings.TrimSpace(value)))
	if !status.Valid() {
		return "", fmt.Errorf("unknown order status %q", value)
	}
	return status, nil
}

// CanTransition defines the legal edges of the status machine.
func CanTransition(from, to OrderStatus) bool {
	if from == to || !to.Valid() {
		return false
	}

	fromRank, fromOnPath := fulfilmentRank[from]
	toRank, toOnPath := fulfilmentRank[to]

	switch to {
	case StatusCancelled:
		switch from {
		case StatusCancelled, StatusDelivered, StatusReturned, StatusRefunded:
			return false
		}
		return true
	case StatusReturned:
		switch from {
		case StatusShipped, StatusInTransit, StatusOutForDelivery, StatusDelivered:
			return true
		}
		return false
	case StatusRefunded:
		switch from {
		case StatusCancelled, StatusReturned, StatusFailed:
			return true
		}
		return false
	case StatusFailed:
		return fromOnPath && from != StatusDelivered
	}

	// Forward moves along the fulfilment path, steps may be skipped.
	if fromOnPath && toOnPath {
		return toRank > fromRank
	}

	return false
}

package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DeliveryMethod is the closed set of shipping options.
type DeliveryMethod string

const (
	DeliveryCourier DeliveryMethod = "courier"
	DeliveryExpress DeliveryMethod = "express"
	DeliveryLocker  DeliveryMethod = "locker"
	DeliveryPickup  DeliveryMethod = "pickup"
)

// PaymentMethod is the closed set of payment options.
type PaymentMethod string

const (
	PaymentCard           PaymentMethod = "card"
	PaymentCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentBankTransfer   PaymentMethod = "bank_transfer"
)

var deliveryPrices = map[DeliveryMethod]decimal.Decimal{
	DeliveryCourier: decimal.RequireFromString("18.50"),
	DeliveryExpress: decimal.RequireFromString("27.90"),
	DeliveryLocker:  decimal.RequireFromString("12.90"),
	DeliveryPickup:  decimal.Zero,
}

var paymentSurcharges = map[PaymentMethod]decimal.Decimal{
	PaymentCard:           decimal.Zero,
	PaymentCashOnDelivery: decimal.RequireFromString("5.00"),
	PaymentBankTransfer:   decimal.Zero,
}

// ParseDeliveryMethod maps a requested method string to a known option.
// Unrecognized input falls back to courier; lenient by policy, not an error.
func ParseDeliveryMethod(value string) DeliveryMethod {
	switch DeliveryMethod(strings.ToLower(strings.TrimSpace(value))) {
	case DeliveryCourier:
		return DeliveryCourier
	case DeliveryExpress:
		return DeliveryExpress
	case DeliveryLocker:
		return DeliveryLocker
	case DeliveryPickup:
		return DeliveryPickup
	default:
		return DeliveryCourier
	}
}

// ParsePaymentMethod maps a requested method string to a known option,
// falling back to card.
func ParsePaymentMethod(value string) PaymentMethod {
	switch PaymentMethod(strings.ToLower(strings.TrimSpace(value))) {
	case PaymentCard:
		return PaymentCard
	case PaymentCashOnDelivery:
		return PaymentCashOnDelivery
	case PaymentBankTransfer:
		return PaymentBankTransfer
	default:
		return PaymentCard
	}
}

// BasePrice returns the delivery method's price before any free-delivery rule.
func (m DeliveryMethod) BasePrice() decimal.Decimal {
	return deliveryPrices[m]
}

// Surcharge returns the fixed fee the payment method adds to the order.
func (m PaymentMethod) Surcharge() decimal.Decimal {
	return paymentSurcharges[m]
}

// DeliveryCostFor applies the free-delivery rule: zero at or above the
// threshold, the method's base price otherwise.
func DeliveryCostFor(method DeliveryMethod, cartSubtotal, freeThreshold decimal.Decimal) decimal.Decimal {
	if cartSubtotal.GreaterThanOrEqual(freeThreshold) {
		return decimal.Zero
	}
	return method.BasePrice()
}

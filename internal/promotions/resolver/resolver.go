package resolver

import (
	"sort"
	"time"

	"github.com/dejobratic/storefront/internal/promotions/domain"
	"github.com/shopspring/decimal"
)

// LinePrice is the resolver's verdict for a single cart line: the frozen
// per-unit price, the payable line total and the savings against base price.
type LinePrice struct {
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
	Savings   decimal.Decimal
	Promotion *domain.Promotion
}

// Best picks the automatic promotion to apply from a candidate list:
// currently active only, highest priority first, ties broken by the larger
// percentage discount. Deterministic regardless of input order.
func Best(candidates []domain.Promotion, now time.Time) *domain.Promotion {
	active := make([]domain.Promotion, 0, len(candidates))
	for _, p := range candidates {
		if p.CurrentlyActive(now) && !p.IsVoucher() {
			active = append(active, p)
		}
	}
	if len(active) == 0 {
		return nil
	}

	sort.SliceStable(active, func(i, j int) bool {
		if active[i].Priority != active[j].Priority {
			return active[i].Priority > active[j].Priority
		}
		return active[i].Percentage.GreaterThan(active[j].Percentage)
	})

	best := active[0]
	return &best
}

// PriceLine computes the frozen price for quantity units at basePrice under
// the best applicable promotion. Usage counters are never consulted here;
// they are committed by checkout.
func PriceLine(basePrice decimal.Decimal, quantity int, candidates []domain.Promotion, now time.Time) LinePrice {
	base := basePrice.Mul(decimal.NewFromInt(int64(quantity)))

	promo := Best(candidates, now)
	if promo == nil {
		return LinePrice{UnitPrice: basePrice, LineTotal: base, Savings: decimal.Zero}
	}

	switch promo.Type {
	case domain.TypeBuyXGetY:
		total := buyXGetYTotal(basePrice, quantity, promo.BuyQty, promo.FreeQty)
		savings := base.Sub(total)
		if savings.IsZero() {
			// Tier not reached: the line is effectively unpromoted.
			return LinePrice{UnitPrice: basePrice, LineTotal: base, Savings: decimal.Zero}
		}
		return LinePrice{UnitPrice: basePrice, LineTotal: total, Savings: savings, Promotion: promo}
	default:
		unit := promo.UnitPrice(basePrice)
		total := unit.Mul(decimal.NewFromInt(int64(quantity)))
		return LinePrice{UnitPrice: unit, LineTotal: total, Savings: base.Sub(total), Promotion: promo}
	}
}

// buyXGetYTotal charges buyQty units per complete block of buyQty+freeQty
// units; units beyond full blocks pay full price.
func buyXGetYTotal(basePrice decimal.Decimal, quantity, buyQty, freeQty int) decimal.Decimal {
	totalQty := buyQty + freeQty
	if totalQty <= 0 || buyQty <= 0 || quantity < totalQty {
		return basePrice.Mul(decimal.NewFromInt(int64(quantity)))
	}

	blocks := quantity / totalQty
	remainder := quantity % totalQty
	charged := buyQty*blocks + remainder
	return basePrice.Mul(decimal.NewFromInt(int64(charged)))
}

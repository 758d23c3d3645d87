package order

import "github.com/shopspring/decimal"

// Pricing is pure computation. All money math is fixed-point decimal so
// that repeated aggregation never drifts the way float64 accumulation
// would.

// Subtotal computes quantity × unit price. A null price counts as zero,
// which is also how confirmation treats an offer that has no quote.
func Subtotal(quantity float64, unitPrice decimal.NullDecimal) decimal.Decimal {
	price := decimal.Zero
	if unitPrice.Valid {
		price = unitPrice.Decimal
	}
	return decimal.NewFromFloat(quantity).Mul(price)
}

// Total sums the subtotals of items. An empty order totals zero.
func Total(items []Item) decimal.Decimal {
	total := decimal.Zero
	for i := range items {
		total = total.Add(items[i].Subtotal)
	}
	return total
}

package order_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/vasiliy-maslov/procurement-service/internal/order"
)

func price(s string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: decimal.RequireFromString(s), Valid: true}
}

func TestSubtotal(t *testing.T) {
	tests := []struct {
		name      string
		quantity  float64
		unitPrice decimal.NullDecimal
		expected  string
	}{
		{name: "whole_quantity", quantity: 10, unitPrice: price("2.50"), expected: "25"},
		{name: "fractional_quantity", quantity: 2.5, unitPrice: price("3.20"), expected: "8"},
		{name: "fractional_result", quantity: 3, unitPrice: price("0.3333"), expected: "0.9999"},
		{name: "null_price_is_zero", quantity: 10, unitPrice: decimal.NullDecimal{}, expected: "0"},
		{name: "zero_price", quantity: 10, unitPrice: price("0"), expected: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := order.Subtotal(tt.quantity, tt.unitPrice)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.expected)),
				"got %s, want %s", got, tt.expected)
		})
	}
}

// Summing a subtotal like 0.1 many times must stay exact; this is the
// whole reason money is decimal and not float64.
func TestTotal_NoFloatDrift(t *testing.T) {
	items := make([]order.Item, 100)
	for i := range items {
		items[i] = order.Item{Subtotal: decimal.RequireFromString("0.1")}
	}

	got := order.Total(items)
	assert.True(t, got.Equal(decimal.RequireFromString("10")), "got %s, want 10", got)
}

func TestTotal(t *testing.T) {
	tests := []struct {
		name     string
		items    []order.Item
		expected string
	}{
		{name: "empty_order", items: nil, expected: "0"},
		{
			name: "two_items",
			items: []order.Item{
				{Subtotal: decimal.RequireFromString("25.0000")},
				{Subtotal: decimal.RequireFromString("8.4000")},
			},
			expected: "33.40",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := order.Total(tt.items)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.expected)),
				"got %s, want %s", got, tt.expected)
		})
	}
}

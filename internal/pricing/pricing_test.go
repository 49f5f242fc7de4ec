package pricing

import (
	"math"
	"testing"
)

func TestPrice(t *testing.T) {
	cases := []struct {
		name             string
		lines            []Line
		ratePercent      float64
		expectedSubtotal float64
		expectedTax      float64
		expectedTotal    float64
	}{
		{
			name:        "empty cart is a zero quote",
			lines:       nil,
			ratePercent: 5,
		},
		{
			name: "two teas at five percent",
			lines: []Line{
				{Name: "Tea", UnitPrice: 20.00, Quantity: 2},
			},
			ratePercent:      5,
			expectedSubtotal: 40.00,
			expectedTax:      2.00,
			expectedTotal:    42.00,
		},
		{
			name: "multiple lines",
			lines: []Line{
				{Name: "Masala Dosa", UnitPrice: 80.00, Quantity: 1},
				{Name: "Filter Coffee", UnitPrice: 35.50, Quantity: 2},
			},
			ratePercent:      5,
			expectedSubtotal: 151.00,
			expectedTax:      7.55,
			expectedTotal:    158.55,
		},
		{
			name: "odd subtotal does not lose a paisa between halves",
			lines: []Line{
				{Name: "Lime Soda", UnitPrice: 33.33, Quantity: 1},
			},
			ratePercent:      5,
			expectedSubtotal: 33.33,
			expectedTax:      1.67,
			expectedTotal:    35.00,
		},
		{
			name: "zero rate",
			lines: []Line{
				{Name: "Water", UnitPrice: 10, Quantity: 1},
			},
			ratePercent:      0,
			expectedSubtotal: 10.00,
			expectedTotal:    10.00,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			quote := Price(tc.lines, tc.ratePercent)
			if quote.Subtotal != tc.expectedSubtotal {
				t.Fatalf("subtotal: expected %.2f, got %.2f", tc.expectedSubtotal, quote.Subtotal)
			}
			if quote.Tax != tc.expectedTax {
				t.Fatalf("tax: expected %.2f, got %.2f", tc.expectedTax, quote.Tax)
			}
			if quote.Total != tc.expectedTotal {
				t.Fatalf("total: expected %.2f, got %.2f", tc.expectedTotal, quote.Total)
			}
			if len(quote.Components) != 2 {
				t.Fatalf("expected 2 tax components, got %d", len(quote.Components))
			}
			if quote.Components[0].Label != "CGST" || quote.Components[1].Label != "SGST" {
				t.Fatalf("unexpected component labels: %v", quote.Components)
			}
		})
	}
}

func TestPriceTotalEqualsSubtotalPlusTax(t *testing.T) {
	carts := [][]Line{
		{{Name: "A", UnitPrice: 19.99, Quantity: 3}},
		{{Name: "A", UnitPrice: 0.01, Quantity: 1}, {Name: "B", UnitPrice: 7.77, Quantity: 7}},
		{{Name: "A", UnitPrice: 123.45, Quantity: 2}, {Name: "B", UnitPrice: 9.99, Quantity: 5}, {Name: "C", UnitPrice: 55, Quantity: 1}},
	}
	for _, lines := range carts {
		quote := Price(lines, 5)
		if diff := math.Abs(quote.Total - (quote.Subtotal + quote.Tax)); diff > 0.001 {
			t.Fatalf("total %.2f != subtotal %.2f + tax %.2f", quote.Total, quote.Subtotal, quote.Tax)
		}
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		lines   []Line
		wantErr bool
	}{
		{name: "empty cart is fine for pricing", lines: nil},
		{name: "valid line", lines: []Line{{Name: "Tea", UnitPrice: 20, Quantity: 1}}},
		{name: "zero quantity", lines: []Line{{Name: "Tea", UnitPrice: 20, Quantity: 0}}, wantErr: true},
		{name: "negative price", lines: []Line{{Name: "Tea", UnitPrice: -1, Quantity: 1}}, wantErr: true},
		{name: "blank name", lines: []Line{{Name: "  ", UnitPrice: 20, Quantity: 1}}, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.lines)
			if tc.wantErr && err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

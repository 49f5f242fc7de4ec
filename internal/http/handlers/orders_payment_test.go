package handlers

import "testing"

func TestPaymentStatusFor(t *testing.T) {
	cases := []struct {
		name  string
		total float64
		paid  float64
		want  string
	}{
		{"nothing paid", 100, 0, "PENDING"},
		{"partial", 100, 40, "PARTIALLY_PAID"},
		{"exact", 100, 100, "PAID"},
		{"overpaid counts as paid", 100, 120, "PAID"},
		{"zero total already settled", 0, 0, "PENDING"},
		{"tip on zero total", 0, 10, "PAID"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := paymentStatusFor(tc.total, tc.paid); got != tc.want {
				t.Errorf("paymentStatusFor(%v, %v) = %q, want %q", tc.total, tc.paid, got, tc.want)
			}
		})
	}
}

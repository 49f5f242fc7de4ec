package pricing

import (
	"fmt"
	"math"
	"strings"
)

// Line is a snapshot of one cart entry. UnitPrice is fixed at add-time so a
// later menu edit never changes an open cart or a stored ticket.
type Line struct {
	MenuItemID int64
	Name       string
	UnitPrice  float64
	Quantity   int32
	Notes      string
}

func (l Line) Total() float64 {
	return Round2(l.UnitPrice * float64(l.Quantity))
}

type TaxComponent struct {
	Label       string  `json:"label"`
	RatePercent float64 `json:"ratePercent"`
	Amount      float64 `json:"amount"`
}

type Quote struct {
	Subtotal   float64        `json:"subtotal"`
	Components []TaxComponent `json:"taxComponents"`
	Tax        float64        `json:"tax"`
	Total      float64        `json:"total"`
}

// Price computes subtotal, the two half-rate tax components (CGST/SGST split of
// ratePercent) and the total. Component math stays at full precision; amounts
// are rounded to 2dp only where they are surfaced, so the two halves cannot
// drift apart from the combined tax.
func Price(lines []Line, ratePercent float64) Quote {
	var subtotal float64
	for _, line := range lines {
		subtotal += line.Total()
	}
	subtotal = Round2(subtotal)

	half := ratePercent / 2
	cgst := subtotal * half / 100
	sgst := subtotal * half / 100
	tax := Round2(cgst + sgst)

	return Quote{
		Subtotal: subtotal,
		Components: []TaxComponent{
			{Label: "CGST", RatePercent: half, Amount: Round2(cgst)},
			{Label: "SGST", RatePercent: half, Amount: Round2(sgst)},
		},
		Tax:   tax,
		Total: Round2(subtotal + tax),
	}
}

// Validate rejects lines a cart must never contain. An empty cart is valid for
// pricing (all-zero quote) but callers creating tickets check emptiness themselves.
func Validate(lines []Line) error {
	for i, line := range lines {
		if strings.TrimSpace(line.Name) == "" {
			return fmt.Errorf("line %d: item name is required", i+1)
		}
		if line.Quantity < 1 {
			return fmt.Errorf("line %d: quantity must be at least 1", i+1)
		}
		if line.UnitPrice < 0 {
			return fmt.Errorf("line %d: unit price cannot be negative", i+1)
		}
	}
	return nil
}

func Round2(value float64) float64 {
	return math.Round(value*100) / 100
}

package domain

import (
	"testing"
)

func TestDiscountPercentagePicksMaxQualifyingTier(t *testing.T) {
	tiers := []DiscountTier{
		{Quantity: 5, Discount: 10},
		{Quantity: 10, Discount: 5},
		{Quantity: 20, Discount: 15},
	}

	// Both the 5-unit and 10-unit tiers qualify at 12; the larger discount
	// wins even though it belongs to the smaller threshold.
	if got := DiscountPercentage(tiers, 12); got != 10 {
		t.Fatalf("expected 10%% discount for quantity 12, got %v", got)
	}

	if got := DiscountPercentage(tiers, 20); got != 15 {
		t.Fatalf("expected 15%% discount for quantity 20, got %v", got)
	}
	if got := DiscountPercentage(tiers, 4); got != 0 {
		t.Fatalf("expected no discount for quantity 4, got %v", got)
	}
	if got := DiscountPercentage(nil, 100); got != 0 {
		t.Fatalf("expected no discount without tiers, got %v", got)
	}
}

func TestPriceOrderBreakdown(t *testing.T) {
	totals := PriceOrder(3, 110, 10, nil)

	if totals.Subtotal != 300 {
		t.Fatalf("expected subtotal 300, got %v", totals.Subtotal)
	}
	if totals.GstAmount != 30 {
		t.Fatalf("expected gst amount 30, got %v", totals.GstAmount)
	}
	if totals.GrandTotal != 330 {
		t.Fatalf("expected grand total 330, got %v", totals.GrandTotal)
	}
	if got := FormatAmount(totals.GstPercentage); got != "10.00" {
		t.Fatalf("expected gst percentage 10.00, got %q", got)
	}
	if totals.DiscountPercentage != 0 || totals.DiscountAmount != 0 {
		t.Fatalf("expected no discount, got %+v", totals)
	}
	if totals.TotalAfterDiscount != 300 {
		t.Fatalf("expected total after discount 300, got %v", totals.TotalAfterDiscount)
	}
}

func TestPriceOrderAppliesDiscount(t *testing.T) {
	tiers := []DiscountTier{{Quantity: 5, Discount: 10}}
	totals := PriceOrder(5, 110, 10, tiers)

	if totals.Subtotal != 500 {
		t.Fatalf("expected subtotal 500, got %v", totals.Subtotal)
	}
	if totals.DiscountPercentage != 10 {
		t.Fatalf("expected 10%% discount, got %v", totals.DiscountPercentage)
	}
	if totals.DiscountAmount != 50 {
		t.Fatalf("expected discount amount 50, got %v", totals.DiscountAmount)
	}
	if totals.TotalAfterDiscount != 450 {
		t.Fatalf("expected total after discount 450, got %v", totals.TotalAfterDiscount)
	}
	if totals.GrandTotal != 500 {
		t.Fatalf("expected grand total 500, got %v", totals.GrandTotal)
	}
}

func TestPriceOrderZeroQuantity(t *testing.T) {
	tiers := []DiscountTier{{Quantity: 0, Discount: 50}}

	for _, quantity := range []int{0, -1} {
		totals := PriceOrder(quantity, 110, 10, tiers)
		if totals != (OrderTotals{}) {
			t.Fatalf("expected all-zero totals for quantity %d, got %+v", quantity, totals)
		}
	}
}

func TestPriceOrderZeroExGstPrice(t *testing.T) {
	// Unit price equal to its GST portion leaves no ex-GST base; the
	// percentage degrades to zero instead of dividing by zero.
	totals := PriceOrder(2, 10, 10, nil)

	if totals.GstPercentage != 0 {
		t.Fatalf("expected zero gst percentage, got %v", totals.GstPercentage)
	}
	if totals.GstAmount != 20 {
		t.Fatalf("expected gst amount 20, got %v", totals.GstAmount)
	}
	if totals.Subtotal != 0 {
		t.Fatalf("expected zero subtotal, got %v", totals.Subtotal)
	}
	if totals.GrandTotal != 20 {
		t.Fatalf("expected grand total 20, got %v", totals.GrandTotal)
	}
}

func TestFormatAmount(t *testing.T) {
	cases := map[float64]string{
		0:      "0.00",
		10:     "10.00",
		330:    "330.00",
		1234.5: "1234.50",
		99.999: "100.00",
		-12.5:  "-12.50",
	}
	for amount, want := range cases {
		if got := FormatAmount(amount); got != want {
			t.Fatalf("FormatAmount(%v) = %q, want %q", amount, got, want)
		}
	}
}

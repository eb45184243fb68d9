package domain

import (
	"strconv"
)

// OrderTotals captures the monetary breakdown of pricing an order.
type OrderTotals struct {
	GstPercentage      float64
	GstAmount          float64
	Subtotal           float64
	DiscountPercentage float64
	DiscountAmount     float64
	TotalAfterDiscount float64
	GrandTotal         float64
}

// DiscountPercentage returns the highest discount among tiers whose quantity
// threshold is satisfied. Tiers are not assumed to be sorted and thresholds
// may overlap; the maximum qualifying discount wins.
func DiscountPercentage(tiers []DiscountTier, quantity int) float64 {
	best := 0.0
	for _, tier := range tiers {
		if tier.Quantity <= quantity && tier.Discount > best {
			best = tier.Discount
		}
	}
	return best
}

// PriceOrder computes the full totals breakdown for an order of quantity
// units. unitPrice is GST inclusive and unitGst is the GST portion of one
// unit. A non-positive quantity yields all-zero totals.
func PriceOrder(quantity int, unitPrice, unitGst float64, tiers []DiscountTier) OrderTotals {
	if quantity <= 0 {
		return OrderTotals{}
	}

	gstPercentage := 0.0
	if exGst := unitPrice - unitGst; exGst != 0 {
		gstPercentage = unitGst / exGst * 100
	}

	gstAmount := unitGst * float64(quantity)
	subtotal := unitPrice*float64(quantity) - gstAmount

	discountPercentage := DiscountPercentage(tiers, quantity)
	discountAmount := subtotal * discountPercentage / 100
	totalAfterDiscount := subtotal - discountAmount

	return OrderTotals{
		GstPercentage:      gstPercentage,
		GstAmount:          gstAmount,
		Subtotal:           subtotal,
		DiscountPercentage: discountPercentage,
		DiscountAmount:     discountAmount,
		TotalAfterDiscount: totalAfterDiscount,
		GrandTotal:         totalAfterDiscount + gstAmount,
	}
}

// FormatAmount renders a monetary value with exactly two decimal places and
// no locale grouping, suitable for wire payloads.
func FormatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', 2, 64)
}

// Package totals derives the payable order breakdown. Calculation is a
// pure function of the session's current lines, shipping selection and
// coupon; totals are recomputed on every read and never stored.
package totals

import "storefront-checkout/internal/domain"

// Calculate derives the money breakdown at full float precision. Rounding
// happens only when values cross the system boundary.
//
//	subtotal = Σ(line.price × line.qty)
//	shipping = selected quote price, or 0
//	discount = bounded coupon reduction
//	total    = max(0, subtotal + shipping − discount)
func Calculate(s *domain.CheckoutSession) domain.CheckoutTotals {
	subtotal := s.Subtotal()

	var shipping float64
	if s.SelectedQuote != nil {
		shipping = s.SelectedQuote.Price
	}

	discount := s.Coupon.Discount(subtotal)

	total := subtotal + shipping - discount
	if total < 0 {
		total = 0
	}

	return domain.CheckoutTotals{
		Subtotal: subtotal,
		Shipping: shipping,
		Discount: discount,
		Total:    total,
	}
}

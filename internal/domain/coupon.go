package domain

// Coupon is a validated discount code as returned by the discount service.
// Exactly one of PercentOff and AmountOff is set.
type Coupon struct {
	Code       string   `json:"code"`
	PercentOff *float64 `json:"percentOff,omitempty"`
	AmountOff  *float64 `json:"amountOff,omitempty"`
}

// Discount computes the coupon reduction for a subtotal. The backend
// response is treated as untrusted: the result is clamped to [0, subtotal]
// regardless of what the service returned.
func (c *Coupon) Discount(subtotal float64) float64 {
	if c == nil || subtotal <= 0 {
		return 0
	}
	var d float64
	switch {
	case c.AmountOff != nil:
		d = *c.AmountOff
	case c.PercentOff != nil:
		d = subtotal * *c.PercentOff / 100
	}
	if d < 0 {
		return 0
	}
	if d > subtotal {
		return subtotal
	}
	return d
}

package domain

import "time"

// CartLine is a single product entry in a checkout session.
type CartLine struct {
	ID        string    `json:"id"`
	SessionID string    `json:"-"`
	ProductID string    `json:"productId"`
	VariantID string    `json:"variantId,omitempty"`
	Name      string    `json:"name"`
	UnitPrice float64   `json:"unitPrice"`
	Quantity  int       `json:"quantity"`
	Size      string    `json:"size,omitempty"`
	Color     string    `json:"color,omitempty"`
	Image     string    `json:"image,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Subtotal returns the extended price of the line without rounding.
func (l CartLine) Subtotal() float64 {
	return l.UnitPrice * float64(l.Quantity)
}

package domain

import "time"

// BuyerIdentity resolves who is paying. Either CustomerID is set and the
// account fields are trusted, or the guest fields are used and must pass
// the pre-submit validation gate.
type BuyerIdentity struct {
	CustomerID string `json:"customerId,omitempty"`
	FirstName  string `json:"firstName,omitempty"`
	LastName   string `json:"lastName,omitempty"`
	Email      string `json:"email,omitempty"`
	TaxID      string `json:"taxId,omitempty"`
}

// Guest reports whether the identity belongs to an unauthenticated buyer.
func (b BuyerIdentity) Guest() bool { return b.CustomerID == "" }

// CheckoutSession is the server-side aggregate for one checkout flow:
// cart lines, destination, shipping selection, coupon and buyer identity.
// Totals are always derived, never stored.
type CheckoutSession struct {
	ID    string        `json:"id"`
	Buyer BuyerIdentity `json:"buyer"`
	// PreferenceKey is a client-supplied durable identity (a device or
	// cart key) that outlives the session. Guest shipping preferences
	// are stored under it; authenticated buyers use their customer id.
	PreferenceKey  string          `json:"preferenceKey,omitempty"`
	Address        ShippingAddress `json:"address"`
	DestinationZip string          `json:"destinationZip,omitempty"`
	Lines          []CartLine      `json:"lineItems"`
	Quotes         []ShippingQuote `json:"quotes,omitempty"`
	SelectedQuote  *ShippingQuote  `json:"selectedQuote,omitempty"`
	Coupon         *Coupon         `json:"coupon,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// Subtotal sums line prices at full float precision.
func (s *CheckoutSession) Subtotal() float64 {
	var sum float64
	for _, l := range s.Lines {
		sum += l.Subtotal()
	}
	return sum
}

// CheckoutTotals is the derived money breakdown shown to the buyer.
type CheckoutTotals struct {
	Subtotal float64 `json:"subtotal"`
	Shipping float64 `json:"shipping"`
	Discount float64 `json:"discount"`
	Total    float64 `json:"total"`
}

// PaymentMethod discriminates the two outbound payload shapes.
type PaymentMethod string

const (
	PaymentInstant PaymentMethod = "instant"
	PaymentCard    PaymentMethod = "card"
)

// PayloadLine is a line item as serialized to the payment backend,
// re-priced to two decimal places.
type PayloadLine struct {
	Name  string  `json:"name"`
	Qty   int     `json:"qty"`
	Price float64 `json:"price"`
	Size  string  `json:"size,omitempty"`
	Color string  `json:"color,omitempty"`
}

// CheckoutPayload is the assembled order sent to the payment backend.
// The base fields are shared by both payment paths; Method selects which
// extension applies. The instant path folds shipping into Items as a
// synthetic line (backend compatibility), the card path carries it in
// ShippingPrice only.
type CheckoutPayload struct {
	Method          PaymentMethod `json:"-"`
	Items           []PayloadLine `json:"items"`
	FirstName       string        `json:"first_name,omitempty"`
	LastName        string        `json:"last_name,omitempty"`
	Email           string        `json:"email,omitempty"`
	CPF             string        `json:"cpf,omitempty"`
	AddressID       string        `json:"address_id,omitempty"`
	Street          string        `json:"shipping_street,omitempty"`
	Number          string        `json:"shipping_number,omitempty"`
	Complement      string        `json:"shipping_complement,omitempty"`
	Neighborhood    string        `json:"shipping_neighborhood,omitempty"`
	City            string        `json:"shipping_city,omitempty"`
	State           string        `json:"shipping_state,omitempty"`
	Zip             string        `json:"shipping_zip,omitempty"`
	Phone           string        `json:"shipping_phone,omitempty"`
	DestinationZip  string        `json:"destination_zip,omitempty"`
	ShippingCarrier string        `json:"shipping_carrier,omitempty"`
	ShippingService string        `json:"shipping_service_name,omitempty"`
	ShippingPrice   float64       `json:"shipping_price"`
	CouponCode      string        `json:"coupon_code,omitempty"`
	DiscountAmount  float64       `json:"discount_amount,omitempty"`
	// ExternalReference is generated per submission so the backend can
	// deduplicate retries of the same order.
	ExternalReference string `json:"external_reference,omitempty"`
}

// CardCharge extends a card-path payload with the tokenized charge fields.
type CardCharge struct {
	CheckoutPayload
	Token             string  `json:"token"`
	PaymentMethodID   string  `json:"payment_method_id"`
	Installments      int     `json:"installments"`
	IssuerID          string  `json:"issuer_id,omitempty"`
	TransactionAmount float64 `json:"transaction_amount"`
}

// PaymentStatus is the gateway's verdict on a dispatched payment.
type PaymentStatus string

const (
	PaymentApproved PaymentStatus = "approved"
	PaymentPending  PaymentStatus = "pending"
	PaymentDeclined PaymentStatus = "declined"
)

// PaymentOutcome routes the buyer to a terminal checkout view. A declined
// outcome is data, not an error: StatusDetail carries the gateway reason.
type PaymentOutcome struct {
	Status       PaymentStatus `json:"status"`
	OrderID      string        `json:"orderId,omitempty"`
	PaymentID    string        `json:"paymentId,omitempty"`
	StatusDetail string        `json:"statusDetail,omitempty"`
}

// InstantPaymentRef is the displayable reference for an instant payment,
// settled out of band by the buyer.
type InstantPaymentRef struct {
	QRCode            string  `json:"qrCode"`
	QRCodeBase64      string  `json:"qrCodeBase64,omitempty"`
	PaymentID         string  `json:"paymentId"`
	ExternalReference string  `json:"externalReference,omitempty"`
	Amount            float64 `json:"amount"`
}

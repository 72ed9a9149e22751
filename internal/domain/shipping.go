package domain

// ShippingQuote is a priced offer from a carrier/service for a destination.
// Quotes are immutable once received from the provider.
type ShippingQuote struct {
	ServiceID    string  `json:"serviceId"`
	Carrier      string  `json:"carrier"`
	ServiceName  string  `json:"serviceName"`
	Price        float64 `json:"price"`
	DeliveryDays int     `json:"deliveryDays,omitempty"`
	CarrierLogo  string  `json:"carrierLogo,omitempty"`
}

// ShippingAddress holds the destination contact fields for an order.
// For authenticated checkouts it may reference a saved customer address
// through AddressID; for guests it is transient.
type ShippingAddress struct {
	AddressID    string `json:"addressId,omitempty"`
	FirstName    string `json:"firstName,omitempty"`
	LastName     string `json:"lastName,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Street       string `json:"street"`
	Number       string `json:"number"`
	Complement   string `json:"complement,omitempty"`
	Neighborhood string `json:"neighborhood,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postalCode"`
	AutoFilled   bool   `json:"autoFilled,omitempty"`
}

package checkout

import (
	"strings"

	"storefront-checkout/internal/address"
	"storefront-checkout/internal/domain"
	"storefront-checkout/internal/money"
	"storefront-checkout/internal/totals"
)

// BuildPayload merges buyer identity, shipping address, cart lines,
// shipping selection and coupon into the backend request shape for the
// chosen payment path. Guest sessions pass the full validation gate first;
// authenticated sessions trust the stored account data.
func BuildPayload(s *domain.CheckoutSession, method domain.PaymentMethod) (*domain.CheckoutPayload, error) {
	if len(s.Lines) == 0 {
		return nil, domain.Validation(domain.GroupPayment, "cart is empty")
	}

	if s.Buyer.Guest() {
		if err := validateGuest(s); err != nil {
			return nil, err
		}
	}

	t := totals.Calculate(s)

	payload := &domain.CheckoutPayload{
		Method:        method,
		ShippingPrice: money.Round2(t.Shipping),
	}

	for _, l := range s.Lines {
		payload.Items = append(payload.Items, domain.PayloadLine{
			Name:  l.Name,
			Qty:   l.Quantity,
			Price: money.Round2(l.UnitPrice),
			Size:  l.Size,
			Color: l.Color,
		})
	}

	fillAddress(payload, s.Address)
	payload.CPF = address.DigitsOnly(s.Buyer.TaxID)

	if s.Buyer.Guest() {
		payload.FirstName = strings.TrimSpace(s.Buyer.FirstName)
		payload.LastName = strings.TrimSpace(s.Buyer.LastName)
		payload.Email = strings.TrimSpace(s.Buyer.Email)
	} else {
		payload.Email = s.Buyer.Email
		payload.AddressID = s.Address.AddressID
		// The saved address's contact name wins; the account holder's
		// is the fallback.
		payload.FirstName = strings.TrimSpace(s.Address.FirstName)
		payload.LastName = strings.TrimSpace(s.Address.LastName)
		if payload.FirstName == "" {
			payload.FirstName = s.Buyer.FirstName
		}
		if payload.LastName == "" {
			payload.LastName = s.Buyer.LastName
		}
	}

	payload.DestinationZip = destinationZip(s)
	if s.SelectedQuote != nil {
		payload.ShippingCarrier = s.SelectedQuote.Carrier
		payload.ShippingService = s.SelectedQuote.ServiceName
	}

	if s.Coupon != nil {
		payload.CouponCode = s.Coupon.Code
		payload.DiscountAmount = money.Round2(t.Discount)
	}

	// The instant backend expects shipping as a line item; the card
	// backend takes it as a separate field and must not see it twice.
	if method == domain.PaymentInstant && t.Shipping > 0 {
		payload.Items = append(payload.Items, domain.PayloadLine{
			Name:  "Frete",
			Qty:   1,
			Price: money.Round2(t.Shipping),
		})
	}

	return payload, nil
}

func fillAddress(p *domain.CheckoutPayload, a domain.ShippingAddress) {
	p.Phone = address.DigitsOnly(a.Phone)
	p.Street = strings.TrimSpace(a.Street)
	p.Number = strings.TrimSpace(a.Number)
	p.Complement = strings.TrimSpace(a.Complement)
	p.Neighborhood = strings.TrimSpace(a.Neighborhood)
	p.City = strings.TrimSpace(a.City)
	p.State = strings.ToUpper(strings.TrimSpace(a.State))
	p.Zip = address.FormatPostalCode(a.PostalCode)
}

func destinationZip(s *domain.CheckoutSession) string {
	if address.ValidatePostalCode(s.Address.PostalCode) {
		return address.FormatPostalCode(s.Address.PostalCode)
	}
	return address.FormatPostalCode(s.DestinationZip)
}

// validateGuest is the pre-submit gate for guest checkouts. It fails on
// the first violation with the field group that needs fixing and never
// lets a partial submission reach the network.
func validateGuest(s *domain.CheckoutSession) error {
	if strings.TrimSpace(s.Buyer.FirstName) == "" || strings.TrimSpace(s.Buyer.LastName) == "" {
		return domain.Validation(domain.GroupIdentity, "first and last name are required")
	}
	if !address.ValidateEmail(s.Buyer.Email) {
		return domain.Validation(domain.GroupIdentity, "a valid email is required")
	}
	if !address.ValidateTaxID(s.Buyer.TaxID) {
		return domain.Validation(domain.GroupIdentity, "tax id must have 11 digits")
	}

	a := s.Address
	if strings.TrimSpace(a.Street) == "" || strings.TrimSpace(a.Number) == "" {
		return domain.Validation(domain.GroupAddress, "street and number are required")
	}
	if strings.TrimSpace(a.City) == "" {
		return domain.Validation(domain.GroupAddress, "city is required")
	}
	if !address.ValidateState(a.State) {
		return domain.Validation(domain.GroupAddress, "state must be a 2-letter code")
	}
	if !address.ValidatePostalCode(destinationZip(s)) {
		return domain.Validation(domain.GroupAddress, "postal code must have 8 digits")
	}
	if !address.ValidatePhone(a.Phone) {
		return domain.Validation(domain.GroupAddress, "phone must have 10 or 11 digits")
	}
	return nil
}

package checkout

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"

	"storefront-checkout/internal/address"
	"storefront-checkout/internal/coupon"
	"storefront-checkout/internal/domain"
	"storefront-checkout/internal/payments"
	"storefront-checkout/internal/repository/session"
	"storefront-checkout/internal/shipping"
	"storefront-checkout/internal/totals"
)

// SessionView is a checkout session together with its derived totals, the
// shape handed to transport.
type SessionView struct {
	*domain.CheckoutSession
	Totals domain.CheckoutTotals `json:"totals"`
}

// Service owns the checkout session lifecycle: cart mutation, destination
// and shipping selection, coupon state, buyer identity and the two payment
// paths. All session state lives in the repository; the service holds only
// the per-session submission guards.
type Service struct {
	repo    session.Repository
	quotes  *shipping.Coordinator
	coupons coupon.Validator
	lookup  address.Lookup
	gateway payments.Gateway
	card    *payments.CardOrchestrator
	logger  *log.Logger

	mu       sync.Mutex
	inFlight map[string]bool
}

func NewService(
	repo session.Repository,
	quotes *shipping.Coordinator,
	coupons coupon.Validator,
	lookup address.Lookup,
	gateway payments.Gateway,
	card *payments.CardOrchestrator,
	logger *log.Logger,
) *Service {
	return &Service{
		repo:     repo,
		quotes:   quotes,
		coupons:  coupons,
		lookup:   lookup,
		gateway:  gateway,
		card:     card,
		logger:   logger,
		inFlight: make(map[string]bool),
	}
}

func view(s *domain.CheckoutSession) *SessionView {
	return &SessionView{CheckoutSession: s, Totals: totals.Calculate(s)}
}

// Open creates a session and seeds it with the buyer's stored shipping
// preference, when one exists.
func (svc *Service) Open(ctx context.Context, in session.CreateSessionInput) (*SessionView, error) {
	s, err := svc.repo.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	svc.quotes.RestorePreference(ctx, s)
	if s.DestinationZip != "" || s.SelectedQuote != nil {
		if err := svc.repo.Save(ctx, s); err != nil {
			return nil, err
		}
	}
	return view(s), nil
}

func (svc *Service) Get(ctx context.Context, id string) (*SessionView, error) {
	s, err := svc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return view(s), nil
}

// AddLineInput is a line to append to the cart.
type AddLineInput struct {
	ProductID string  `json:"productId"`
	VariantID string  `json:"variantId"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unitPrice"`
	Quantity  int     `json:"quantity"`
	Size      string  `json:"size"`
	Color     string  `json:"color"`
	Image     string  `json:"image"`
}

func (svc *Service) AddLine(ctx context.Context, id string, in AddLineInput) (*SessionView, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, domain.Validation(domain.GroupPayment, "line item name is required")
	}
	if in.Quantity < 1 {
		return nil, domain.Validation(domain.GroupPayment, "quantity must be at least 1")
	}
	if in.UnitPrice < 0 {
		return nil, domain.Validation(domain.GroupPayment, "unit price cannot be negative")
	}

	if _, err := svc.repo.AddLine(ctx, id, domain.CartLine{
		ProductID: in.ProductID,
		VariantID: in.VariantID,
		Name:      strings.TrimSpace(in.Name),
		UnitPrice: in.UnitPrice,
		Quantity:  in.Quantity,
		Size:      in.Size,
		Color:     in.Color,
		Image:     in.Image,
	}); err != nil {
		return nil, err
	}
	return svc.Get(ctx, id)
}

func (svc *Service) UpdateLineQuantity(ctx context.Context, id, lineID string, quantity int) (*SessionView, error) {
	if quantity < 1 {
		return nil, domain.Validation(domain.GroupPayment, "quantity must be at least 1")
	}
	if err := svc.repo.UpdateLineQuantity(ctx, id, lineID, quantity); err != nil {
		return nil, err
	}
	return svc.Get(ctx, id)
}

func (svc *Service) RemoveLine(ctx context.Context, id, lineID string) (*SessionView, error) {
	if err := svc.repo.RemoveLine(ctx, id, lineID); err != nil {
		return nil, err
	}
	return svc.Get(ctx, id)
}

func (svc *Service) ClearLines(ctx context.Context, id string) (*SessionView, error) {
	if err := svc.repo.ClearLines(ctx, id); err != nil {
		return nil, err
	}
	return svc.Get(ctx, id)
}

// SetIdentity records the guest buyer's contact fields. Values are stored
// as entered; the validation gate runs at submission, not here.
func (svc *Service) SetIdentity(ctx context.Context, id string, b domain.BuyerIdentity) (*SessionView, error) {
	s, err := svc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.Buyer.Guest() {
		b.CustomerID = s.Buyer.CustomerID
	}
	s.Buyer = b
	if err := svc.repo.Save(ctx, s); err != nil {
		return nil, err
	}
	return view(s), nil
}

// SetAddress replaces the session's shipping address.
func (svc *Service) SetAddress(ctx context.Context, id string, a domain.ShippingAddress) (*SessionView, error) {
	s, err := svc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Address = a
	if err := svc.repo.Save(ctx, s); err != nil {
		return nil, err
	}
	return view(s), nil
}

// AutofillAddress resolves a postal code and overlays the result onto the
// session's address. Number and complement are the buyer's to fill and are
// never touched. A not-found code leaves the address as is so the buyer
// can type it manually.
func (svc *Service) AutofillAddress(ctx context.Context, id, postalCode string) (*SessionView, error) {
	s, err := svc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	res, err := svc.lookup.ByPostalCode(ctx, postalCode)
	if err != nil {
		return nil, err
	}

	s.Address.Street = res.Street
	s.Address.Neighborhood = res.Neighborhood
	s.Address.City = res.City
	s.Address.State = res.State
	s.Address.PostalCode = postalCode
	s.Address.AutoFilled = true

	if err := svc.repo.Save(ctx, s); err != nil {
		return nil, err
	}
	return view(s), nil
}

// RequestQuotes fetches shipping offers for the destination and stores the
// outcome. A superseded response leaves the stored state to the newer
// request and reports the session as it currently stands.
func (svc *Service) RequestQuotes(ctx context.Context, id, postalCode string) (*SessionView, error) {
	s, err := svc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := svc.quotes.RequestQuotes(ctx, s, postalCode); err != nil {
		if errors.Is(err, shipping.ErrSuperseded) {
			return svc.Get(ctx, id)
		}
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			return nil, err
		}
		// Provider failure: the cleared quote state still has to land.
		if saveErr := svc.repo.Save(ctx, s); saveErr != nil {
			svc.logger.Printf("session %s: save after quote failure: %v", id, saveErr)
		}
		return nil, err
	}

	if err := svc.repo.Save(ctx, s); err != nil {
		return nil, err
	}
	return view(s), nil
}

// SelectQuote switches the shipping selection to one of the offers already
// on the session.
func (svc *Service) SelectQuote(ctx context.Context, id, serviceID string) (*SessionView, error) {
	s, err := svc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := svc.quotes.SelectQuote(ctx, s, serviceID); err != nil {
		return nil, err
	}
	if err := svc.repo.Save(ctx, s); err != nil {
		return nil, err
	}
	return view(s), nil
}

// ApplyCoupon validates a code with the promotions backend and attaches it
// to the session. Any failure clears a previously applied coupon; a stale
// discount never survives a rejected code.
func (svc *Service) ApplyCoupon(ctx context.Context, id, code string) (*SessionView, error) {
	s, err := svc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// An empty code is a no-op, not an error.
	code = strings.TrimSpace(code)
	if code == "" {
		return view(s), nil
	}

	c, verr := svc.coupons.Validate(ctx, code)
	if verr != nil {
		s.Coupon = nil
		if err := svc.repo.Save(ctx, s); err != nil {
			return nil, err
		}
		return nil, verr
	}

	s.Coupon = c
	if err := svc.repo.Save(ctx, s); err != nil {
		return nil, err
	}
	return view(s), nil
}

func (svc *Service) RemoveCoupon(ctx context.Context, id string) (*SessionView, error) {
	s, err := svc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Coupon = nil
	if err := svc.repo.Save(ctx, s); err != nil {
		return nil, err
	}
	return view(s), nil
}

func (svc *Service) acquire(id string) bool {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.inFlight[id] {
		return false
	}
	svc.inFlight[id] = true
	return true
}

func (svc *Service) release(id string) {
	svc.mu.Lock()
	delete(svc.inFlight, id)
	svc.mu.Unlock()
}

// PayInstant assembles the instant-path payload and creates the payment,
// returning the displayable reference. At most one submission per session
// runs at a time.
func (svc *Service) PayInstant(ctx context.Context, id string) (*domain.InstantPaymentRef, error) {
	if !svc.acquire(id) {
		return nil, domain.ErrSubmissionInFlight
	}
	defer svc.release(id)

	s, err := svc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	payload, err := BuildPayload(s, domain.PaymentInstant)
	if err != nil {
		return nil, err
	}
	payload.ExternalReference = uuid.NewString()
	return svc.gateway.CreateInstant(ctx, *payload)
}

// PayCard assembles the card-path payload and submits the tokenized charge
// through the card orchestrator. The cart is cleared only on approval.
func (svc *Service) PayCard(ctx context.Context, id string, in payments.CardInput) (*domain.PaymentOutcome, error) {
	if !svc.acquire(id) {
		return nil, domain.ErrSubmissionInFlight
	}
	defer svc.release(id)

	s, err := svc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	payload, err := BuildPayload(s, domain.PaymentCard)
	if err != nil {
		return nil, err
	}
	payload.ExternalReference = uuid.NewString()

	// The tokenizer requires the holder's CPF; fall back to the one the
	// buyer already entered on the identity step.
	if in.Card.TaxID == "" {
		in.Card.TaxID = address.DigitsOnly(s.Buyer.TaxID)
	}

	t := totals.Calculate(s)
	outcome, err := svc.card.Submit(ctx, *payload, in, t.Total)
	if err != nil {
		return nil, err
	}

	if outcome.Status == domain.PaymentApproved {
		if err := svc.repo.ClearLines(ctx, id); err != nil {
			svc.logger.Printf("session %s: clear lines after approval: %v", id, err)
		}
	}
	return outcome, nil
}

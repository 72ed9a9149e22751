package payments

import (
	"context"
	"errors"
	"log"
	"sync"

	"storefront-checkout/internal/domain"
	"storefront-checkout/internal/money"
)

// ErrCardToken reports that the tokenizer produced no usable token; the
// buyer stays on the card form.
var ErrCardToken = errors.New("could not process card data")

// ErrNotMounted reports a submit attempt before the payment form loaded.
var ErrNotMounted = errors.New("payment form not mounted")

// CardInput carries the buyer's card-form state at submit time.
type CardInput struct {
	Card         CardDetails
	Installments int
	IssuerID     string
}

// CardOrchestrator drives a card payment from form mount to a terminal
// outcome: mount, edit, tokenize, dispatch, resolve. It is shared across
// sessions and holds no per-submission state; duplicate-submit protection
// belongs to the caller, which scopes it to a single session.
type CardOrchestrator struct {
	tokenizer Tokenizer
	gateway   Gateway
	logger    *log.Logger

	mu      sync.Mutex
	mounted bool
}

func NewCardOrchestrator(tokenizer Tokenizer, gateway Gateway, logger *log.Logger) *CardOrchestrator {
	return &CardOrchestrator{tokenizer: tokenizer, gateway: gateway, logger: logger}
}

// Mount attaches the tokenization integration. A mount failure is fatal
// for the card path and is surfaced as "could not load payment form".
func (o *CardOrchestrator) Mount(ctx context.Context) error {
	if err := o.tokenizer.Mount(ctx); err != nil {
		return err
	}
	o.mu.Lock()
	o.mounted = true
	o.mu.Unlock()
	return nil
}

// TransactionAmount resolves the charge amount for an installment choice.
// The plan's interest-adjusted total supersedes the base total whenever it
// differs; with no matching plan the base total stands.
func TransactionAmount(baseTotal float64, installments int, plans []InstallmentPlan) float64 {
	for _, p := range plans {
		if p.Installments == installments && p.TotalWithInterest > 0 {
			return p.TotalWithInterest
		}
	}
	return baseTotal
}

// Submit runs the tokenize-and-dispatch sequence for an assembled card
// payload. Any failure before the gateway resolves returns the buyer to
// the editing state with a message; a resolved payment, declined included,
// is returned as an outcome.
func (o *CardOrchestrator) Submit(ctx context.Context, payload domain.CheckoutPayload, in CardInput, baseTotal float64) (*domain.PaymentOutcome, error) {
	o.mu.Lock()
	if !o.mounted {
		o.mu.Unlock()
		return nil, ErrNotMounted
	}
	o.mu.Unlock()

	token, err := o.tokenizer.CreateToken(ctx, in.Card)
	if err != nil {
		if o.logger != nil {
			o.logger.Printf("card tokenization failed: %v", err)
		}
		return nil, ErrCardToken
	}
	if token == nil || token.ID == "" {
		return nil, ErrCardToken
	}

	installments := in.Installments
	if installments < 1 {
		installments = 1
	}

	amount := baseTotal
	if bin := token.FirstSixDigits; bin != "" {
		plans, err := o.tokenizer.InstallmentPlans(ctx, baseTotal, bin)
		if err != nil {
			// Plans are advisory for the amount; fall back to the base
			// total rather than failing the charge.
			if o.logger != nil {
				o.logger.Printf("installment plan lookup failed: %v", err)
			}
		} else {
			amount = TransactionAmount(baseTotal, installments, plans)
		}
	}

	issuerID := in.IssuerID
	if issuerID == "" {
		issuerID = token.IssuerID
	}

	charge := domain.CardCharge{
		CheckoutPayload:   payload,
		Token:             token.ID,
		PaymentMethodID:   token.PaymentMethodID,
		Installments:      installments,
		IssuerID:          issuerID,
		TransactionAmount: money.Round2(amount),
	}

	outcome, err := o.gateway.CreateCardPayment(ctx, charge)
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

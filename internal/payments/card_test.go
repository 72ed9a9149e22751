package payments

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"storefront-checkout/internal/domain"
)

type fakeTokenizer struct {
	mountErr error
	token    *CardToken
	tokenErr error
	plans    []InstallmentPlan
	plansErr error
	calls    int32
	release  chan struct{} // when set, the first CreateToken blocks on it
}

func (f *fakeTokenizer) Mount(context.Context) error { return f.mountErr }

func (f *fakeTokenizer) CreateToken(context.Context, CardDetails) (*CardToken, error) {
	n := atomic.AddInt32(&f.calls, 1)
	if f.release != nil && n == 1 {
		<-f.release
	}
	return f.token, f.tokenErr
}

func (f *fakeTokenizer) InstallmentPlans(context.Context, float64, string) ([]InstallmentPlan, error) {
	return f.plans, f.plansErr
}

type fakeGateway struct {
	calls   int64
	charge  domain.CardCharge
	outcome *domain.PaymentOutcome
	err     error
	mu      sync.Mutex
}

func (f *fakeGateway) CreateInstant(context.Context, domain.CheckoutPayload) (*domain.InstantPaymentRef, error) {
	return nil, errors.New("not used")
}

func (f *fakeGateway) CreateCardPayment(_ context.Context, charge domain.CardCharge) (*domain.PaymentOutcome, error) {
	atomic.AddInt64(&f.calls, 1)
	f.mu.Lock()
	f.charge = charge
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.outcome, nil
}

func goodToken() *CardToken {
	return &CardToken{ID: "tok-1", PaymentMethodID: "master", IssuerID: "24", FirstSixDigits: "503143"}
}

func mounted(t *testing.T, tok Tokenizer, gw Gateway) *CardOrchestrator {
	t.Helper()
	o := NewCardOrchestrator(tok, gw, nil)
	if err := o.Mount(context.Background()); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	return o
}

func TestSubmitUsesInterestAdjustedAmount(t *testing.T) {
	tok := &fakeTokenizer{
		token: goodToken(),
		plans: []InstallmentPlan{
			{Installments: 1, TotalWithInterest: 150},
			{Installments: 3, TotalWithInterest: 163.17},
		},
	}
	gw := &fakeGateway{outcome: &domain.PaymentOutcome{Status: domain.PaymentApproved, OrderID: "o-1"}}
	o := mounted(t, tok, gw)

	outcome, err := o.Submit(context.Background(), domain.CheckoutPayload{Method: domain.PaymentCard}, CardInput{Installments: 3}, 150)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if outcome.Status != domain.PaymentApproved || outcome.OrderID != "o-1" {
		t.Fatalf("outcome = %+v", outcome)
	}
	if gw.charge.TransactionAmount != 163.17 {
		t.Fatalf("transaction_amount = %v, want 163.17", gw.charge.TransactionAmount)
	}
	if gw.charge.Installments != 3 || gw.charge.Token != "tok-1" || gw.charge.PaymentMethodID != "master" {
		t.Fatalf("charge = %+v", gw.charge)
	}
}

func TestSubmitFallsBackToBaseTotal(t *testing.T) {
	tok := &fakeTokenizer{token: goodToken(), plansErr: domain.Transport("installment plans", errors.New("down"))}
	gw := &fakeGateway{outcome: &domain.PaymentOutcome{Status: domain.PaymentApproved}}
	o := mounted(t, tok, gw)

	if _, err := o.Submit(context.Background(), domain.CheckoutPayload{}, CardInput{Installments: 1}, 150); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if gw.charge.TransactionAmount != 150 {
		t.Fatalf("transaction_amount = %v, want base total", gw.charge.TransactionAmount)
	}
}

func TestSubmitMissingToken(t *testing.T) {
	tok := &fakeTokenizer{token: &CardToken{}}
	gw := &fakeGateway{}
	o := mounted(t, tok, gw)

	_, err := o.Submit(context.Background(), domain.CheckoutPayload{}, CardInput{}, 100)
	if !errors.Is(err, ErrCardToken) {
		t.Fatalf("want ErrCardToken, got %v", err)
	}
	if gw.calls != 0 {
		t.Fatal("gateway must not be called without a token")
	}
}

func TestSubmitRequiresMount(t *testing.T) {
	o := NewCardOrchestrator(&fakeTokenizer{token: goodToken()}, &fakeGateway{}, nil)
	if _, err := o.Submit(context.Background(), domain.CheckoutPayload{}, CardInput{}, 100); !errors.Is(err, ErrNotMounted) {
		t.Fatalf("want ErrNotMounted, got %v", err)
	}
}

func TestMountFailureIsFatal(t *testing.T) {
	tok := &fakeTokenizer{mountErr: domain.Transport("payment form", errors.New("load failed"))}
	o := NewCardOrchestrator(tok, &fakeGateway{}, nil)
	var te *domain.TransportError
	if err := o.Mount(context.Background()); !errors.As(err, &te) {
		t.Fatalf("want TransportError, got %v", err)
	}
}

func TestConcurrentSubmitsForDistinctBuyers(t *testing.T) {
	release := make(chan struct{})
	tok := &fakeTokenizer{token: goodToken(), release: release}
	gw := &fakeGateway{outcome: &domain.PaymentOutcome{Status: domain.PaymentApproved}}
	o := mounted(t, tok, gw)

	first := make(chan error, 1)
	go func() {
		_, err := o.Submit(context.Background(), domain.CheckoutPayload{Email: "a@example.com"}, CardInput{Installments: 1}, 100)
		first <- err
	}()

	// Wait until the first buyer's submit is inside the tokenizer.
	for atomic.LoadInt32(&tok.calls) == 0 {
		time.Sleep(time.Millisecond)
	}

	// A different buyer's submit resolves while the first is outstanding.
	outcome, err := o.Submit(context.Background(), domain.CheckoutPayload{Email: "b@example.com"}, CardInput{Installments: 1}, 100)
	if err != nil {
		t.Fatalf("second buyer: %v", err)
	}
	if outcome.Status != domain.PaymentApproved {
		t.Fatalf("second buyer outcome = %+v", outcome)
	}

	close(release)
	if err := <-first; err != nil {
		t.Fatalf("first buyer: %v", err)
	}
	if atomic.LoadInt64(&gw.calls) != 2 {
		t.Fatalf("gateway calls = %d, want 2", gw.calls)
	}
}

func TestDeclinedOutcomeCarriesDetail(t *testing.T) {
	tok := &fakeTokenizer{token: goodToken()}
	gw := &fakeGateway{outcome: &domain.PaymentOutcome{
		Status:       domain.PaymentDeclined,
		OrderID:      "o-9",
		StatusDetail: "cc_rejected_insufficient_amount",
	}}
	o := mounted(t, tok, gw)

	outcome, err := o.Submit(context.Background(), domain.CheckoutPayload{}, CardInput{Installments: 1}, 100)
	if err != nil {
		t.Fatalf("declined must resolve as outcome, got error %v", err)
	}
	if outcome.Status != domain.PaymentDeclined || outcome.StatusDetail == "" {
		t.Fatalf("outcome = %+v", outcome)
	}
}

package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"storefront-checkout/internal/address"
	"storefront-checkout/internal/checkout"
	"storefront-checkout/internal/coupon"
	"storefront-checkout/internal/domain"
	"storefront-checkout/internal/payments"
	"storefront-checkout/internal/repository/session"
	"storefront-checkout/internal/shipping"
)

type stubRepo struct {
	mu       sync.Mutex
	sessions map[string]*domain.CheckoutSession
	nextID   int
}

func newStubRepo() *stubRepo {
	return &stubRepo{sessions: make(map[string]*domain.CheckoutSession)}
}

func (r *stubRepo) Create(_ context.Context, in session.CreateSessionInput) (*domain.CheckoutSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	s := &domain.CheckoutSession{
		ID: fmt.Sprintf("sess-%d", r.nextID),
		Buyer: domain.BuyerIdentity{
			CustomerID: in.CustomerID,
			FirstName:  in.FirstName,
			LastName:   in.LastName,
			Email:      in.Email,
		},
		PreferenceKey: in.PreferenceKey,
	}
	r.sessions[s.ID] = s
	return dup(s), nil
}

func (r *stubRepo) GetByID(_ context.Context, id string) (*domain.CheckoutSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return dup(s), nil
}

func (r *stubRepo) Save(_ context.Context, s *domain.CheckoutSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.sessions[s.ID]
	if !ok {
		return domain.ErrNotFound
	}
	lines := stored.Lines
	r.sessions[s.ID] = dup(s)
	r.sessions[s.ID].Lines = lines
	return nil
}

func (r *stubRepo) AddLine(_ context.Context, sessionID string, line domain.CartLine) (*domain.CartLine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	line.ID = fmt.Sprintf("line-%d", len(s.Lines)+1)
	s.Lines = append(s.Lines, line)
	return &line, nil
}

func (r *stubRepo) UpdateLineQuantity(_ context.Context, sessionID, lineID string, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return domain.ErrNotFound
	}
	for i := range s.Lines {
		if s.Lines[i].ID == lineID {
			s.Lines[i].Quantity = quantity
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *stubRepo) RemoveLine(_ context.Context, sessionID, lineID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return domain.ErrNotFound
	}
	for i := range s.Lines {
		if s.Lines[i].ID == lineID {
			s.Lines = append(s.Lines[:i], s.Lines[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *stubRepo) ClearLines(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return domain.ErrNotFound
	}
	s.Lines = nil
	return nil
}

func dup(s *domain.CheckoutSession) *domain.CheckoutSession {
	c := *s
	c.Lines = append([]domain.CartLine(nil), s.Lines...)
	c.Quotes = append([]domain.ShippingQuote(nil), s.Quotes...)
	if s.SelectedQuote != nil {
		q := *s.SelectedQuote
		c.SelectedQuote = &q
	}
	if s.Coupon != nil {
		cp := *s.Coupon
		c.Coupon = &cp
	}
	return &c
}

type stubQuoter struct {
	quotes []domain.ShippingQuote
	err    error
}

func (q *stubQuoter) Quote(context.Context, shipping.QuoteRequest) ([]domain.ShippingQuote, error) {
	return q.quotes, q.err
}

type stubValidator struct {
	coupon *domain.Coupon
	err    error
}

func (v *stubValidator) Validate(context.Context, string) (*domain.Coupon, error) {
	return v.coupon, v.err
}

type stubLookup struct {
	result *address.LookupResult
	err    error
}

func (l *stubLookup) ByPostalCode(context.Context, string) (*address.LookupResult, error) {
	return l.result, l.err
}

type stubGateway struct {
	ref     *domain.InstantPaymentRef
	outcome *domain.PaymentOutcome
	err     error
}

func (g *stubGateway) CreateInstant(context.Context, domain.CheckoutPayload) (*domain.InstantPaymentRef, error) {
	return g.ref, g.err
}

func (g *stubGateway) CreateCardPayment(context.Context, domain.CardCharge) (*domain.PaymentOutcome, error) {
	return g.outcome, g.err
}

type stubTokenizer struct{}

func (stubTokenizer) Mount(context.Context) error { return nil }

func (stubTokenizer) CreateToken(context.Context, payments.CardDetails) (*payments.CardToken, error) {
	return &payments.CardToken{ID: "tok-1", PaymentMethodID: "visa", FirstSixDigits: "411111"}, nil
}

func (stubTokenizer) InstallmentPlans(context.Context, float64, string) ([]payments.InstallmentPlan, error) {
	return nil, nil
}

type testEnv struct {
	router  *gin.Engine
	quoter  *stubQuoter
	coupons *stubValidator
	lookup  *stubLookup
	gateway *stubGateway
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := log.New(io.Discard, "", 0)

	e := &testEnv{
		quoter:  &stubQuoter{},
		coupons: &stubValidator{},
		lookup:  &stubLookup{},
		gateway: &stubGateway{},
	}
	coord := shipping.NewCoordinator(e.quoter, nil, logger, 0)
	card := payments.NewCardOrchestrator(stubTokenizer{}, e.gateway, logger)
	if err := card.Mount(context.Background()); err != nil {
		t.Fatalf("mount: %v", err)
	}
	svc := checkout.NewService(newStubRepo(), coord, e.coupons, e.lookup, e.gateway, card, logger)
	e.router = buildRouter(logger, nil, svc, nil)
	return e
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) openSession(t *testing.T) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/checkout/sessions", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("open session: status %d: %s", rec.Code, rec.Body.String())
	}
	var v struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	return v.ID
}

func (e *testEnv) seedGuestCart(t *testing.T) string {
	t.Helper()
	id := e.openSession(t)
	base := "/checkout/sessions/" + id

	rec := e.do(t, http.MethodPost, base+"/lines", map[string]interface{}{
		"name": "Tenis Runner", "unitPrice": 150.0, "quantity": 1,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("add line: status %d: %s", rec.Code, rec.Body.String())
	}
	rec = e.do(t, http.MethodPut, base+"/identity", map[string]interface{}{
		"firstName": "Ana", "lastName": "Souza",
		"email": "ana@example.com", "taxId": "12345678909",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("set identity: status %d: %s", rec.Code, rec.Body.String())
	}
	rec = e.do(t, http.MethodPut, base+"/address", map[string]interface{}{
		"phone": "11987654321", "street": "Rua das Flores", "number": "100",
		"city": "Sao Paulo", "state": "SP", "postalCode": "01310100",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("set address: status %d: %s", rec.Code, rec.Body.String())
	}
	return id
}

func TestOpenAndGetSession(t *testing.T) {
	e := newTestEnv(t)
	id := e.seedGuestCart(t)

	rec := e.do(t, http.MethodGet, "/checkout/sessions/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var v struct {
		Totals domain.CheckoutTotals `json:"totals"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v.Totals.Subtotal != 150 || v.Totals.Total != 150 {
		t.Fatalf("totals = %+v", v.Totals)
	}
}

func TestGetUnknownSession(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/checkout/sessions/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestAddLineRejectsZeroQuantity(t *testing.T) {
	e := newTestEnv(t)
	id := e.openSession(t)

	rec := e.do(t, http.MethodPost, "/checkout/sessions/"+id+"/lines", map[string]interface{}{
		"name": "Item", "unitPrice": 10.0, "quantity": 0,
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422: %s", rec.Code, rec.Body.String())
	}
}

func TestRequestQuotesBadPostalCode(t *testing.T) {
	e := newTestEnv(t)
	id := e.seedGuestCart(t)

	rec := e.do(t, http.MethodPost, "/checkout/sessions/"+id+"/shipping/quotes", map[string]interface{}{
		"postalCode": "0131",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	var body struct {
		Group string `json:"group"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Group != domain.GroupPostalCode {
		t.Fatalf("group = %q", body.Group)
	}
}

func TestRequestQuotesProviderDown(t *testing.T) {
	e := newTestEnv(t)
	e.quoter.err = domain.Transport("shipping quote", fmt.Errorf("connection refused"))
	id := e.seedGuestCart(t)

	rec := e.do(t, http.MethodPost, "/checkout/sessions/"+id+"/shipping/quotes", map[string]interface{}{
		"postalCode": "01310-100",
	})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}

func TestQuoteFlowEndToEnd(t *testing.T) {
	e := newTestEnv(t)
	e.quoter.quotes = []domain.ShippingQuote{
		{ServiceID: "1", Carrier: "Correios", ServiceName: "PAC", Price: 21.5},
		{ServiceID: "2", Carrier: "Correios", ServiceName: "SEDEX", Price: 35.9},
	}
	id := e.seedGuestCart(t)
	base := "/checkout/sessions/" + id

	rec := e.do(t, http.MethodPost, base+"/shipping/quotes", map[string]interface{}{
		"postalCode": "01310-100",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("quotes: status %d: %s", rec.Code, rec.Body.String())
	}

	rec = e.do(t, http.MethodPut, base+"/shipping/selection", map[string]interface{}{
		"serviceId": "2",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("selection: status %d: %s", rec.Code, rec.Body.String())
	}
	var v struct {
		Totals domain.CheckoutTotals `json:"totals"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v.Totals.Shipping != 35.9 {
		t.Fatalf("shipping = %v, want 35.9", v.Totals.Shipping)
	}
}

func TestApplyCouponInvalid(t *testing.T) {
	e := newTestEnv(t)
	e.coupons.err = coupon.ErrInvalid
	id := e.seedGuestCart(t)

	rec := e.do(t, http.MethodPost, "/checkout/sessions/"+id+"/coupon", map[string]interface{}{
		"code": "NOPE",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	var body struct {
		Group string `json:"group"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Group != domain.GroupCoupon {
		t.Fatalf("group = %q", body.Group)
	}
}

func TestPayInstantReturnsReference(t *testing.T) {
	e := newTestEnv(t)
	e.gateway.ref = &domain.InstantPaymentRef{QRCode: "qr-data", PaymentID: "pay-1", Amount: 150}
	id := e.seedGuestCart(t)

	rec := e.do(t, http.MethodPost, "/checkout/sessions/"+id+"/pay/instant", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var ref domain.InstantPaymentRef
	if err := json.Unmarshal(rec.Body.Bytes(), &ref); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ref.QRCode != "qr-data" {
		t.Fatalf("ref = %+v", ref)
	}
}

func TestPayInstantValidationGate(t *testing.T) {
	e := newTestEnv(t)
	id := e.seedGuestCart(t)
	base := "/checkout/sessions/" + id

	rec := e.do(t, http.MethodPut, base+"/identity", map[string]interface{}{
		"firstName": "Ana", "lastName": "Souza",
		"email": "ana@example.com", "taxId": "1234567890",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("set identity: status %d", rec.Code)
	}

	rec = e.do(t, http.MethodPost, base+"/pay/instant", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	var body struct {
		Group string `json:"group"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Group != domain.GroupIdentity {
		t.Fatalf("group = %q", body.Group)
	}
}

func TestPayCardDeclinedIsRoutedNotFailed(t *testing.T) {
	e := newTestEnv(t)
	e.gateway.outcome = &domain.PaymentOutcome{
		Status:       domain.PaymentDeclined,
		StatusDetail: "cc_rejected_high_risk",
	}
	id := e.seedGuestCart(t)

	rec := e.do(t, http.MethodPost, "/checkout/sessions/"+id+"/pay/card", map[string]interface{}{
		"cardNumber": "4111111111111111", "holderName": "ANA SOUZA",
		"expMonth": "12", "expYear": "2030", "cvv": "123",
		"installments": 1,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var out domain.PaymentOutcome
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Status != domain.PaymentDeclined || out.StatusDetail != "cc_rejected_high_risk" {
		t.Fatalf("outcome = %+v", out)
	}
}

func TestHealthz(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

package coupon

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront-checkout/internal/domain"
)

func TestValidateAccepted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("code"); got != "save10" {
			t.Errorf("code query = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		// Percent serialized as a string, the way DRF renders decimals.
		w.Write([]byte(`{"valid": true, "code": "SAVE10", "percent_off": "10.00", "amount_off": null}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL).Validate(context.Background(), "save10")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if c.Code != "SAVE10" {
		t.Fatalf("code = %q", c.Code)
	}
	if c.PercentOff == nil || *c.PercentOff != 10 {
		t.Fatalf("percentOff = %v", c.PercentOff)
	}
	if c.AmountOff != nil {
		t.Fatal("amountOff should be nil when percent applies")
	}
}

func TestValidateRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"valid": false, "reason": "expired"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Validate(context.Background(), "OLD")
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("want ErrInvalid, got %v", err)
	}
}

func TestValidateTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Validate(context.Background(), "SAVE10")
	var te *domain.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("want TransportError, got %v", err)
	}
}

func TestDiscountBounds(t *testing.T) {
	amount := func(v float64) *domain.Coupon { return &domain.Coupon{Code: "C", AmountOff: &v} }
	percent := func(v float64) *domain.Coupon { return &domain.Coupon{Code: "C", PercentOff: &v} }

	cases := []struct {
		name     string
		c        *domain.Coupon
		subtotal float64
		want     float64
	}{
		{"percent", percent(10), 150, 15},
		{"amount", amount(20), 150, 20},
		{"amount exceeds subtotal clamps", amount(80), 50, 50},
		{"inconsistent negative amount", amount(-5), 50, 0},
		{"percent over 100 clamps", percent(150), 40, 40},
		{"nil coupon", nil, 100, 0},
		{"zero subtotal", percent(10), 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.c.Discount(tc.subtotal); got != tc.want {
				t.Fatalf("Discount = %v, want %v", got, tc.want)
			}
		})
	}
}

package shipping

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront-checkout/internal/domain"
)

func TestClientQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/shipping/quote" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req QuoteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.ZipDestination != "01310-100" || len(req.Items) != 1 || req.Items[0].Qty != 2 {
			t.Errorf("unexpected request %+v", req)
		}
		w.Header().Set("Content-Type", "application/json")
		// service_id numeric and price as string, both seen in the wild.
		w.Write([]byte(`{"quotes":[
			{"service_id": 1, "carrier": "Correios", "service_name": "PAC", "price": "20.50", "delivery_time": 8},
			{"service_id": "2", "carrier": "Correios", "service_name": "SEDEX", "price": 35.0}
		]}`))
	}))
	defer srv.Close()

	quotes, err := NewClient(srv.URL, "01001-000").Quote(context.Background(), QuoteRequest{
		ZipDestination: "01310-100",
		Items:          []QuoteItem{{ID: "p1", VariantID: "v1", Qty: 2, Price: 75}},
	})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if len(quotes) != 2 {
		t.Fatalf("quotes = %d", len(quotes))
	}
	if quotes[0].ServiceID != "1" || quotes[0].Price != 20.5 || quotes[0].DeliveryDays != 8 {
		t.Fatalf("first quote = %+v", quotes[0])
	}
	if quotes[1].ServiceID != "2" || quotes[1].Price != 35 {
		t.Fatalf("second quote = %+v", quotes[1])
	}
}

func TestClientQuoteNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "01001-000").Quote(context.Background(), QuoteRequest{ZipDestination: "01310-100"})
	var te *domain.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("want TransportError, got %v", err)
	}
}

// Package shipping coordinates quote retrieval from the carrier provider,
// tracks the buyer's selection and persists it best-effort across sessions.
package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"storefront-checkout/internal/domain"
	"storefront-checkout/internal/money"
)

// QuoteItem is the line summary submitted to the quote provider.
type QuoteItem struct {
	ID        string  `json:"id"`
	VariantID string  `json:"variantId,omitempty"`
	Qty       int     `json:"qty"`
	Price     float64 `json:"price"`
}

// QuoteRequest is the provider's request body. ZipOrigin is filled by the
// client from its configured warehouse origin when callers leave it empty.
type QuoteRequest struct {
	ZipOrigin      string      `json:"zip_origin,omitempty"`
	ZipDestination string      `json:"zip_destination"`
	Items          []QuoteItem `json:"items"`
}

// Quoter fetches carrier offers for a destination and cart.
type Quoter interface {
	Quote(ctx context.Context, req QuoteRequest) ([]domain.ShippingQuote, error)
}

// Client talks to the shipping-quote provider.
type Client struct {
	baseURL   string
	originZip string
	http      *http.Client
}

func NewClient(baseURL, originZip string) *Client {
	return &Client{
		baseURL:   baseURL,
		originZip: originZip,
		http:      &http.Client{Timeout: 20 * time.Second},
	}
}

type quoteResponse struct {
	Quotes []struct {
		ServiceID    interface{} `json:"service_id"`
		Carrier      string      `json:"carrier"`
		ServiceName  string      `json:"service_name"`
		Price        interface{} `json:"price"`
		DeliveryTime interface{} `json:"delivery_time"`
		CarrierLogo  string      `json:"carrier_logo"`
	} `json:"quotes"`
}

// Quote posts the cart summary and destination and normalizes the offers.
// Numeric fields tolerate string encoding; provider ordering is preserved.
func (c *Client) Quote(ctx context.Context, qr QuoteRequest) ([]domain.ShippingQuote, error) {
	if qr.ZipOrigin == "" {
		qr.ZipOrigin = c.originZip
	}
	body, err := json.Marshal(qr)
	if err != nil {
		return nil, domain.Transport("shipping quote", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/shipping/quote", bytes.NewReader(body))
	if err != nil {
		return nil, domain.Transport("shipping quote", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, domain.Transport("shipping quote", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, domain.Transport("shipping quote", fmt.Errorf("status %d", resp.StatusCode))
	}

	var decoded quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, domain.Transport("shipping quote", err)
	}

	quotes := make([]domain.ShippingQuote, 0, len(decoded.Quotes))
	for _, q := range decoded.Quotes {
		quotes = append(quotes, domain.ShippingQuote{
			ServiceID:    stringify(q.ServiceID),
			Carrier:      q.Carrier,
			ServiceName:  q.ServiceName,
			Price:        money.ToNumber(q.Price),
			DeliveryDays: int(money.ToNumber(q.DeliveryTime)),
			CarrierLogo:  q.CarrierLogo,
		})
	}
	return quotes, nil
}

func stringify(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return fmt.Sprintf("%.0f", s)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", s)
	}
}

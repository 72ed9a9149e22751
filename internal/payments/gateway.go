// Package payments integrates the payment gateway: tokenized card charges
// with installment-interest reconciliation, and instant (QR-code) payments
// settled out of band.
package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"storefront-checkout/internal/domain"
)

// Gateway submits assembled checkout payloads to the payment backend.
type Gateway interface {
	CreateInstant(ctx context.Context, payload domain.CheckoutPayload) (*domain.InstantPaymentRef, error)
	CreateCardPayment(ctx context.Context, charge domain.CardCharge) (*domain.PaymentOutcome, error)
}

// Client is the HTTP gateway implementation.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type instantResponse struct {
	QRCode            string  `json:"qr_code"`
	QRCodeBase64      string  `json:"qr_code_base64"`
	PaymentID         string  `json:"payment_id"`
	ExternalReference string  `json:"external_reference"`
	Amount            float64 `json:"amount"`
	Error             string  `json:"error"`
}

// CreateInstant posts the instant-shaped payload (shipping folded into the
// line items) and returns the displayable payment reference.
func (c *Client) CreateInstant(ctx context.Context, payload domain.CheckoutPayload) (*domain.InstantPaymentRef, error) {
	var body instantResponse
	if err := c.post(ctx, "/payments/create-instant", payload, &body); err != nil {
		return nil, err
	}
	if body.QRCode == "" {
		msg := body.Error
		if msg == "" {
			msg = "missing payment reference"
		}
		return nil, domain.Transport("instant payment", errors.New(msg))
	}
	return &domain.InstantPaymentRef{
		QRCode:            body.QRCode,
		QRCodeBase64:      body.QRCodeBase64,
		PaymentID:         body.PaymentID,
		ExternalReference: body.ExternalReference,
		Amount:            body.Amount,
	}, nil
}

type cardResponse struct {
	Success      bool   `json:"success"`
	Status       string `json:"status"`
	OrderID      string `json:"order_id"`
	PaymentID    string `json:"payment_id"`
	StatusDetail string `json:"status_detail"`
	Error        string `json:"error"`
}

// CreateCardPayment dispatches a tokenized charge. A declined verdict is
// returned as outcome data; only transport-level and gateway-reported
// errors come back as errors.
func (c *Client) CreateCardPayment(ctx context.Context, charge domain.CardCharge) (*domain.PaymentOutcome, error) {
	var body cardResponse
	if err := c.post(ctx, "/payments/create-card-payment", charge, &body); err != nil {
		return nil, err
	}
	if !body.Success {
		msg := body.Error
		if msg == "" {
			msg = "payment rejected"
		}
		return nil, domain.Transport("card payment", errors.New(msg))
	}

	outcome := &domain.PaymentOutcome{
		OrderID:      body.OrderID,
		PaymentID:    body.PaymentID,
		StatusDetail: body.StatusDetail,
	}
	switch body.Status {
	case "approved":
		outcome.Status = domain.PaymentApproved
	case "pending", "in_process":
		outcome.Status = domain.PaymentPending
	default:
		outcome.Status = domain.PaymentDeclined
	}
	return outcome, nil
}

func (c *Client) post(ctx context.Context, path string, in, out interface{}) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return domain.Transport("payment request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return domain.Transport("payment request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Transport("payment request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.Transport("payment request", fmt.Errorf("status %d", resp.StatusCode))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.Transport("payment request", err)
	}
	return nil
}

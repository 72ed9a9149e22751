// Package coupon validates discount codes against the discount service and
// computes the bounded reduction they grant.
package coupon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"storefront-checkout/internal/domain"
	"storefront-checkout/internal/money"
)

// ErrInvalid reports a code the discount service rejected: unknown,
// inactive, expired or over its usage limit.
var ErrInvalid = errors.New("invalid or expired coupon")

// Validator resolves a code into a normalized coupon.
type Validator interface {
	Validate(ctx context.Context, code string) (*domain.Coupon, error)
}

// Client calls the discount service's validation endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// validateResponse tolerates the service serializing decimals as strings.
type validateResponse struct {
	Valid      bool        `json:"valid"`
	Code       string      `json:"code"`
	PercentOff interface{} `json:"percent_off"`
	AmountOff  interface{} `json:"amount_off"`
}

// Validate checks code against the discount service. Exactly one of
// PercentOff/AmountOff is set on the returned coupon; a percent value wins
// only when the service sent no fixed amount.
func (c *Client) Validate(ctx context.Context, code string) (*domain.Coupon, error) {
	endpoint := fmt.Sprintf("%s/coupon/validate?code=%s", c.baseURL, url.QueryEscape(code))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, domain.Transport("coupon validation", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, domain.Transport("coupon validation", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.Transport("coupon validation", fmt.Errorf("status %d", resp.StatusCode))
	}

	var body validateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, domain.Transport("coupon validation", err)
	}
	if !body.Valid {
		return nil, ErrInvalid
	}

	coupon := &domain.Coupon{Code: strings.ToUpper(strings.TrimSpace(body.Code))}
	if coupon.Code == "" {
		coupon.Code = strings.ToUpper(strings.TrimSpace(code))
	}
	if body.AmountOff != nil {
		amount := money.ToNumber(body.AmountOff)
		coupon.AmountOff = &amount
	} else if body.PercentOff != nil {
		percent := money.ToNumber(body.PercentOff)
		coupon.PercentOff = &percent
	}
	return coupon, nil
}

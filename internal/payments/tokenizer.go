package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"storefront-checkout/internal/domain"
	"storefront-checkout/internal/money"
)

// CardDetails is the sensitive card input exchanged for a single-use
// token. It never travels to the payment backend directly.
type CardDetails struct {
	Number     string
	HolderName string
	ExpMonth   string
	ExpYear    string
	CVV        string
	TaxID      string
}

// CardToken is the tokenizer's answer: a single-use token plus the
// resolved payment-method metadata.
type CardToken struct {
	ID              string
	PaymentMethodID string
	IssuerID        string
	FirstSixDigits  string
}

// InstallmentPlan is a structured installment option. TotalWithInterest is
// the authoritative charge amount for that plan; it supersedes the base
// order total whenever the two differ.
type InstallmentPlan struct {
	Installments      int
	TotalWithInterest float64
	Label             string
}

// Tokenizer is the card-tokenization integration. Mount verifies the
// integration is usable before any card data is collected.
type Tokenizer interface {
	Mount(ctx context.Context) error
	CreateToken(ctx context.Context, card CardDetails) (*CardToken, error)
	InstallmentPlans(ctx context.Context, amount float64, cardBin string) ([]InstallmentPlan, error)
}

// TokenizerClient talks to the provider's tokenization API.
type TokenizerClient struct {
	baseURL   string
	publicKey string
	http      *http.Client
}

func NewTokenizerClient(baseURL, publicKey string) *TokenizerClient {
	return &TokenizerClient{
		baseURL:   baseURL,
		publicKey: publicKey,
		http:      &http.Client{Timeout: 15 * time.Second},
	}
}

// Mount checks the integration credentials. A failure here is fatal for
// the card path: there is no form to edit without the tokenizer.
func (c *TokenizerClient) Mount(ctx context.Context) error {
	if c.publicKey == "" {
		return domain.Transport("payment form", fmt.Errorf("tokenizer public key not configured"))
	}
	endpoint := fmt.Sprintf("%s/v1/payment_methods?public_key=%s", c.baseURL, url.QueryEscape(c.publicKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.Transport("payment form", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Transport("payment form", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return domain.Transport("payment form", fmt.Errorf("status %d", resp.StatusCode))
	}
	return nil
}

type tokenResponse struct {
	ID              string `json:"id"`
	PaymentMethodID string `json:"payment_method_id"`
	IssuerID        string `json:"issuer_id"`
	FirstSixDigits  string `json:"first_six_digits"`
}

// CreateToken exchanges card data for a single-use token.
func (c *TokenizerClient) CreateToken(ctx context.Context, card CardDetails) (*CardToken, error) {
	body, err := json.Marshal(map[string]interface{}{
		"card_number":      card.Number,
		"cardholder_name":  card.HolderName,
		"expiration_month": card.ExpMonth,
		"expiration_year":  card.ExpYear,
		"security_code":    card.CVV,
		"identification":   map[string]string{"type": "CPF", "number": card.TaxID},
	})
	if err != nil {
		return nil, domain.Transport("card token", err)
	}

	endpoint := fmt.Sprintf("%s/v1/card_tokens?public_key=%s", c.baseURL, url.QueryEscape(c.publicKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, domain.Transport("card token", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, domain.Transport("card token", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, domain.Transport("card token", fmt.Errorf("status %d", resp.StatusCode))
	}

	var decoded tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, domain.Transport("card token", err)
	}
	return &CardToken{
		ID:              decoded.ID,
		PaymentMethodID: decoded.PaymentMethodID,
		IssuerID:        decoded.IssuerID,
		FirstSixDigits:  decoded.FirstSixDigits,
	}, nil
}

type installmentsResponse struct {
	PayerCosts []struct {
		Installments int         `json:"installments"`
		TotalAmount  interface{} `json:"total_amount"`
		Message      string      `json:"recommended_message"`
	} `json:"payer_costs"`
}

// InstallmentPlans fetches the structured installment options for an
// amount and card BIN. The provider exposes the interest-adjusted total
// per plan directly; no label parsing is involved.
func (c *TokenizerClient) InstallmentPlans(ctx context.Context, amount float64, cardBin string) ([]InstallmentPlan, error) {
	endpoint := fmt.Sprintf("%s/v1/payment_methods/installments?public_key=%s&amount=%.2f&bin=%s",
		c.baseURL, url.QueryEscape(c.publicKey), amount, url.QueryEscape(cardBin))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, domain.Transport("installment plans", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, domain.Transport("installment plans", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.Transport("installment plans", fmt.Errorf("status %d", resp.StatusCode))
	}

	var decoded []installmentsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, domain.Transport("installment plans", err)
	}

	plans := make([]InstallmentPlan, 0)
	for _, method := range decoded {
		for _, cost := range method.PayerCosts {
			plans = append(plans, InstallmentPlan{
				Installments:      cost.Installments,
				TotalWithInterest: money.ToNumber(cost.TotalAmount),
				Label:             cost.Message,
			})
		}
	}
	return plans, nil
}

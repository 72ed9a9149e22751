package address

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"storefront-checkout/internal/domain"
)

// LookupResult carries the address fields derived from a postal code.
type LookupResult struct {
	Street       string
	Neighborhood string
	City         string
	State        string
}

// Lookup resolves a postal code into address fields.
type Lookup interface {
	ByPostalCode(ctx context.Context, code string) (*LookupResult, error)
}

// Client queries the external postal-code service (ViaCEP schema).
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a lookup client for baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// lookupResponse is the provider's uncontrolled schema.
type lookupResponse struct {
	Erro       bool   `json:"erro"`
	Logradouro string `json:"logradouro"`
	Bairro     string `json:"bairro"`
	Localidade string `json:"localidade"`
	UF         string `json:"uf"`
}

// ByPostalCode fetches the address for an 8-digit postal code. A provider
// "not found" answer maps to domain.ErrNotFound so callers can prompt for
// manual entry without touching fields already filled in.
func (c *Client) ByPostalCode(ctx context.Context, code string) (*LookupResult, error) {
	digits := DigitsOnly(code)
	if len(digits) != 8 {
		return nil, domain.Validation(domain.GroupPostalCode, "postal code must have 8 digits")
	}

	url := fmt.Sprintf("%s/ws/%s/json/", c.baseURL, digits)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, domain.Transport("postal code lookup", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, domain.Transport("postal code lookup", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.Transport("postal code lookup", fmt.Errorf("status %d", resp.StatusCode))
	}

	var body lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, domain.Transport("postal code lookup", err)
	}
	if body.Erro {
		return nil, domain.ErrNotFound
	}

	return &LookupResult{
		Street:       body.Logradouro,
		Neighborhood: body.Bairro,
		City:         body.Localidade,
		State:        body.UF,
	}, nil
}

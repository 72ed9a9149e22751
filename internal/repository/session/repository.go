package session

import (
	"context"

	"storefront-checkout/internal/domain"
)

// CreateSessionInput carries the optional authenticated owner of a new
// checkout session and the client's durable preference key.
type CreateSessionInput struct {
	CustomerID    string
	PreferenceKey string
	FirstName     string
	LastName      string
	Email         string
}

type Repository interface {
	Create(ctx context.Context, in CreateSessionInput) (*domain.CheckoutSession, error)
	GetByID(ctx context.Context, id string) (*domain.CheckoutSession, error)
	// Save persists the session's mutable checkout state: buyer identity,
	// address, destination, selected quote and coupon. Lines are managed
	// through the line operations.
	Save(ctx context.Context, s *domain.CheckoutSession) error
	AddLine(ctx context.Context, sessionID string, line domain.CartLine) (*domain.CartLine, error)
	UpdateLineQuantity(ctx context.Context, sessionID, lineID string, quantity int) error
	RemoveLine(ctx context.Context, sessionID, lineID string) error
	ClearLines(ctx context.Context, sessionID string) error
}

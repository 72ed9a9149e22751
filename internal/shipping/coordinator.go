package shipping

import (
	"context"
	"errors"
	"log"
	"sync"

	"storefront-checkout/internal/address"
	"storefront-checkout/internal/domain"
)

// ErrSuperseded marks a quote response that arrived after a newer request
// was issued for the same session. Callers discard it silently.
var ErrSuperseded = errors.New("quote request superseded")

// Coordinator runs quote retrieval for checkout sessions. Each request is
// stamped with a per-session sequence number; a completion that is no
// longer the latest issued never overwrites newer results.
type Coordinator struct {
	quoter        Quoter
	store         PreferenceStore
	logger        *log.Logger
	freeThreshold float64

	mu  sync.Mutex
	seq map[string]uint64
}

func NewCoordinator(quoter Quoter, store PreferenceStore, logger *log.Logger, freeThreshold float64) *Coordinator {
	return &Coordinator{
		quoter:        quoter,
		store:         store,
		logger:        logger,
		freeThreshold: freeThreshold,
		seq:           make(map[string]uint64),
	}
}

func (c *Coordinator) nextSeq(sessionID string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq[sessionID]++
	return c.seq[sessionID]
}

// finish reports whether seq is still the latest request for the session
// and, when it is, drops the tracking entry so the map does not grow with
// every session the process ever saw.
func (c *Coordinator) finish(sessionID string, seq uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seq[sessionID] != seq {
		return false
	}
	delete(c.seq, sessionID)
	return true
}

// preferenceKey resolves the durable identity a shipping preference is
// stored under: the account for authenticated buyers, the client-supplied
// device key for guests. Sessions with neither skip persistence, since a
// value keyed by the throwaway session id could never be found again.
func preferenceKey(s *domain.CheckoutSession) string {
	if s.Buyer.CustomerID != "" {
		return "customer:" + s.Buyer.CustomerID
	}
	if s.PreferenceKey != "" {
		return "device:" + s.PreferenceKey
	}
	return ""
}

// RequestQuotes validates the destination, queries the provider and
// applies the result to the session: the quote list is replaced and the
// first offer auto-selected (provider ordering, not cheapest). On failure
// the list and selection are cleared. The chosen destination and selection
// are persisted best-effort.
func (c *Coordinator) RequestQuotes(ctx context.Context, s *domain.CheckoutSession, postalCode string) error {
	digits := address.DigitsOnly(postalCode)
	if len(digits) != 8 {
		return domain.Validation(domain.GroupPostalCode, "postal code must have 8 digits")
	}

	seq := c.nextSeq(s.ID)

	items := make([]QuoteItem, 0, len(s.Lines))
	for _, l := range s.Lines {
		items = append(items, QuoteItem{
			ID:        l.ProductID,
			VariantID: l.VariantID,
			Qty:       l.Quantity,
			Price:     l.UnitPrice,
		})
	}

	quotes, err := c.quoter.Quote(ctx, QuoteRequest{
		ZipDestination: address.FormatPostalCode(digits),
		Items:          items,
	})

	if !c.finish(s.ID, seq) {
		return ErrSuperseded
	}

	if err != nil {
		s.Quotes = nil
		s.SelectedQuote = nil
		return err
	}

	if c.freeThreshold > 0 && s.Subtotal() >= c.freeThreshold {
		for i := range quotes {
			quotes[i].Price = 0
		}
	}

	s.DestinationZip = address.FormatPostalCode(digits)
	s.Quotes = quotes
	if len(quotes) > 0 {
		selected := quotes[0]
		s.SelectedQuote = &selected
	}

	c.persist(ctx, s)
	return nil
}

// SelectQuote switches the selection to one of the current offers. The
// selected quote's price is authoritative from here on; it is never
// recomputed from the list.
func (c *Coordinator) SelectQuote(ctx context.Context, s *domain.CheckoutSession, serviceID string) error {
	for _, q := range s.Quotes {
		if q.ServiceID == serviceID {
			selected := q
			s.SelectedQuote = &selected
			c.persist(ctx, s)
			return nil
		}
	}
	return domain.ErrNotFound
}

// RestorePreference seeds a fresh session with the stored destination and
// quote so a returning buyer does not re-query. Missing or failed loads
// leave the session untouched.
func (c *Coordinator) RestorePreference(ctx context.Context, s *domain.CheckoutSession) {
	key := preferenceKey(s)
	if c.store == nil || key == "" {
		return
	}
	pref, err := c.store.Load(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) && c.logger != nil {
			c.logger.Printf("shipping preference load failed: %v", err)
		}
		return
	}
	if pref.PostalCode != "" {
		s.DestinationZip = pref.PostalCode
	}
	if pref.Quote != nil {
		restored := *pref.Quote
		s.SelectedQuote = &restored
	}
}

func (c *Coordinator) persist(ctx context.Context, s *domain.CheckoutSession) {
	key := preferenceKey(s)
	if c.store == nil || key == "" {
		return
	}
	err := c.store.Save(ctx, key, Preference{
		PostalCode: s.DestinationZip,
		Quote:      s.SelectedQuote,
	})
	if err != nil && c.logger != nil {
		// Best-effort only; never surfaces to the buyer.
		c.logger.Printf("shipping preference save failed: %v", err)
	}
}

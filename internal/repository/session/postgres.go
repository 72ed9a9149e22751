package session

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"storefront-checkout/internal/domain"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) Create(ctx context.Context, in CreateSessionInput) (*domain.CheckoutSession, error) {
	const q = `
INSERT INTO checkout_sessions (customer_id, preference_key, first_name, last_name, email)
VALUES (NULLIF($1, ''), $2, $3, $4, $5)
RETURNING id::text, created_at
`
	s := &domain.CheckoutSession{
		Buyer: domain.BuyerIdentity{
			CustomerID: in.CustomerID,
			FirstName:  in.FirstName,
			LastName:   in.LastName,
			Email:      in.Email,
		},
		PreferenceKey: in.PreferenceKey,
	}
	if err := r.pool.QueryRow(ctx, q, in.CustomerID, in.PreferenceKey, in.FirstName, in.LastName, in.Email).Scan(&s.ID, &s.CreatedAt); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.CheckoutSession, error) {
	const q = `
SELECT id::text, COALESCE(customer_id, ''), preference_key, first_name, last_name, email, tax_id,
       address_id, addr_first_name, addr_last_name, phone, street, number, complement,
       neighborhood, city, state, zip, auto_filled, destination_zip,
       selected_quote, coupon, created_at
FROM checkout_sessions
WHERE id = $1
`
	var (
		s          domain.CheckoutSession
		quoteJSON  []byte
		couponJSON []byte
	)
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&s.ID,
		&s.Buyer.CustomerID,
		&s.PreferenceKey,
		&s.Buyer.FirstName,
		&s.Buyer.LastName,
		&s.Buyer.Email,
		&s.Buyer.TaxID,
		&s.Address.AddressID,
		&s.Address.FirstName,
		&s.Address.LastName,
		&s.Address.Phone,
		&s.Address.Street,
		&s.Address.Number,
		&s.Address.Complement,
		&s.Address.Neighborhood,
		&s.Address.City,
		&s.Address.State,
		&s.Address.PostalCode,
		&s.Address.AutoFilled,
		&s.DestinationZip,
		&quoteJSON,
		&couponJSON,
		&s.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if len(quoteJSON) > 0 {
		var quote domain.ShippingQuote
		if err := json.Unmarshal(quoteJSON, &quote); err != nil {
			return nil, err
		}
		s.SelectedQuote = &quote
	}
	if len(couponJSON) > 0 {
		var coupon domain.Coupon
		if err := json.Unmarshal(couponJSON, &coupon); err != nil {
			return nil, err
		}
		s.Coupon = &coupon
	}

	lines, err := r.fetchLines(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	s.Lines = lines
	return &s, nil
}

func (r *postgresRepo) fetchLines(ctx context.Context, sessionID string) ([]domain.CartLine, error) {
	const q = `
SELECT id::text, session_id::text, product_id, variant_id, name, unit_price, quantity,
       size, color, image, created_at
FROM checkout_lines
WHERE session_id = $1
ORDER BY created_at
`
	rows, err := r.pool.Query(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []domain.CartLine
	for rows.Next() {
		var l domain.CartLine
		if err := rows.Scan(
			&l.ID, &l.SessionID, &l.ProductID, &l.VariantID, &l.Name,
			&l.UnitPrice, &l.Quantity, &l.Size, &l.Color, &l.Image, &l.CreatedAt,
		); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *postgresRepo) Save(ctx context.Context, s *domain.CheckoutSession) error {
	var quoteJSON, couponJSON []byte
	var err error
	if s.SelectedQuote != nil {
		if quoteJSON, err = json.Marshal(s.SelectedQuote); err != nil {
			return err
		}
	}
	if s.Coupon != nil {
		if couponJSON, err = json.Marshal(s.Coupon); err != nil {
			return err
		}
	}

	const q = `
UPDATE checkout_sessions
SET customer_id = NULLIF($2, ''), preference_key = $3,
    first_name = $4, last_name = $5, email = $6, tax_id = $7,
    address_id = $8, addr_first_name = $9, addr_last_name = $10, phone = $11,
    street = $12, number = $13, complement = $14, neighborhood = $15,
    city = $16, state = $17, zip = $18, auto_filled = $19,
    destination_zip = $20, selected_quote = $21, coupon = $22
WHERE id = $1
`
	tag, err := r.pool.Exec(ctx, q,
		s.ID,
		s.Buyer.CustomerID, s.PreferenceKey,
		s.Buyer.FirstName, s.Buyer.LastName, s.Buyer.Email, s.Buyer.TaxID,
		s.Address.AddressID, s.Address.FirstName, s.Address.LastName, s.Address.Phone,
		s.Address.Street, s.Address.Number, s.Address.Complement, s.Address.Neighborhood,
		s.Address.City, s.Address.State, s.Address.PostalCode, s.Address.AutoFilled,
		s.DestinationZip, quoteJSON, couponJSON,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) AddLine(ctx context.Context, sessionID string, line domain.CartLine) (*domain.CartLine, error) {
	const q = `
INSERT INTO checkout_lines (session_id, product_id, variant_id, name, unit_price, quantity, size, color, image)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id::text, session_id::text, created_at
`
	out := line
	err := r.pool.QueryRow(ctx, q,
		sessionID, line.ProductID, line.VariantID, line.Name,
		line.UnitPrice, line.Quantity, line.Size, line.Color, line.Image,
	).Scan(&out.ID, &out.SessionID, &out.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *postgresRepo) UpdateLineQuantity(ctx context.Context, sessionID, lineID string, quantity int) error {
	const q = `
UPDATE checkout_lines
SET quantity = $3
WHERE session_id = $1 AND id = $2
`
	tag, err := r.pool.Exec(ctx, q, sessionID, lineID, quantity)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) RemoveLine(ctx context.Context, sessionID, lineID string) error {
	const q = `DELETE FROM checkout_lines WHERE session_id = $1 AND id = $2`
	tag, err := r.pool.Exec(ctx, q, sessionID, lineID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) ClearLines(ctx context.Context, sessionID string) error {
	const q = `DELETE FROM checkout_lines WHERE session_id = $1`
	_, err := r.pool.Exec(ctx, q, sessionID)
	return err
}

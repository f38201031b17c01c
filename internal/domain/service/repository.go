package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	ErrServiceNotFound         = errors.New("service not found")
	ErrProviderRequestExists   = errors.New("provider request already exists")
	ErrProviderRequestNotFound = errors.New("provider request not found")
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Service, error) {
	var s Service
	err := r.db.GetContext(ctx, &s, `SELECT * FROM services WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrServiceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repository) Create(ctx context.Context, s *Service) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO services (name, description, category, price)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, s.Name, s.Description, s.Category, s.Price).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

// RequestProvider records a partner's request to provide a service,
// pending admin review. One request per (partner, service), ever.
func (r *Repository) RequestProvider(ctx context.Context, partnerID, serviceID uuid.UUID) (*Provider, error) {
	var p Provider
	err := r.db.GetContext(ctx, &p, `
		INSERT INTO service_providers (partner_id, service_id)
		VALUES ($1, $2)
		RETURNING *
	`, partnerID, serviceID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Code {
			case "23505":
				return nil, ErrProviderRequestExists
			case "23503":
				return nil, ErrServiceNotFound
			}
		}
		return nil, err
	}
	return &p, nil
}

// ListProviderRequests returns provider links with the given status,
// newest first.
func (r *Repository) ListProviderRequests(ctx context.Context, status ProviderStatus) ([]*Provider, error) {
	var ps []*Provider
	err := r.db.SelectContext(ctx, &ps, `
		SELECT * FROM service_providers
		WHERE status = $1
		ORDER BY created_at DESC
	`, string(status))
	return ps, err
}

// SetProviderStatus applies an admin decision to a provider request
func (r *Repository) SetProviderStatus(ctx context.Context, partnerID, serviceID uuid.UUID, status ProviderStatus) (*Provider, error) {
	var p Provider
	err := r.db.GetContext(ctx, &p, `
		UPDATE service_providers
		SET status = $3, updated_at = now()
		WHERE partner_id = $1 AND service_id = $2
		RETURNING *
	`, partnerID, serviceID, string(status))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProviderRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

const selectWithService = `
	SELECT o.*, s.name AS service_name
	FROM orders o
	JOIN services s ON s.id = o.service_id
`

func (r *Repository) Create(ctx context.Context, o *Order) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO orders (user_id, service_id, status, razorpay_order_id, amount, remaining_amount)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, o.UserID, o.ServiceID, StatusPending, o.RazorpayOrderID, o.Amount, o.RemainingAmount).
		Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	o.Status = StatusPending
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	var o Order
	err := r.db.GetContext(ctx, &o, selectWithService+`WHERE o.id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *Repository) GetByRazorpayOrderID(ctx context.Context, razorpayOrderID string) (*Order, error) {
	var o Order
	err := r.db.GetContext(ctx, &o, selectWithService+`WHERE o.razorpay_order_id = $1`, razorpayOrderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// CountCompletedExcept counts a user's COMPLETED orders excluding one.
// The referral engine uses this to detect a first completed order.
func (r *Repository) CountCompletedExcept(ctx context.Context, userID, excludeOrderID uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM orders
		WHERE user_id = $1 AND status = $2 AND id <> $3
	`, userID, StatusCompleted, excludeOrderID)
	return count, err
}

// Complete transitions an order to COMPLETED and records the gateway
// payment id and paid timestamp. The guard makes redelivery a no-op and
// refuses to overwrite a different payment id.
func (r *Repository) Complete(ctx context.Context, id uuid.UUID, paymentID string, paidAt time.Time) (*Order, error) {
	var o Order
	err := r.db.GetContext(ctx, &o, `
		WITH updated AS (
			UPDATE orders
			SET status = $2,
			    razorpay_payment_id = $3,
			    paid_at = COALESCE(paid_at, $4),
			    updated_at = now()
			WHERE id = $1
			  AND (razorpay_payment_id IS NULL OR razorpay_payment_id = $3)
			RETURNING *
		)
		SELECT u.*, s.name AS service_name
		FROM updated u
		JOIN services s ON s.id = u.service_id
	`, id, StatusCompleted, paymentID, paidAt)
	if errors.Is(err, sql.ErrNoRows) {
		// Either the order is gone or it already completed under a
		// different payment id.
		if _, lookupErr := r.GetByID(ctx, id); lookupErr != nil {
			return nil, lookupErr
		}
		return nil, ErrPaymentIDTaken
	}
	if err != nil {
		return nil, fmt.Errorf("complete order: %w", err)
	}
	return &o, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Order, error) {
	var orders []*Order
	err := r.db.SelectContext(ctx, &orders, selectWithService+`
		WHERE o.user_id = $1
		ORDER BY o.created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	return orders, err
}

// ListPendingForPartner returns unclaimed PENDING orders for services the
// partner is approved to provide, newest first.
func (r *Repository) ListPendingForPartner(ctx context.Context, partnerID uuid.UUID) ([]*Order, error) {
	var orders []*Order
	err := r.db.SelectContext(ctx, &orders, selectWithService+`
		WHERE o.status = $1
		  AND o.partner_id IS NULL
		  AND o.service_id IN (
			SELECT service_id FROM service_providers
			WHERE partner_id = $2 AND status = 'APPROVED'
		  )
		ORDER BY o.created_at DESC
	`, StatusPending, partnerID)
	return orders, err
}

// Accept claims a pending order for a partner. First claim wins.
func (r *Repository) Accept(ctx context.Context, orderID, partnerID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $3, partner_id = $2, updated_at = now()
		WHERE id = $1 AND status = $4 AND partner_id IS NULL
	`, orderID, partnerID, StatusAccepted, StatusPending)
	if err != nil {
		return fmt.Errorf("accept order: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		if _, lookupErr := r.GetByID(ctx, orderID); lookupErr != nil {
			return lookupErr
		}
		return ErrAlreadyClaimed
	}
	return nil
}

// Cancel moves a not-yet-completed order to CANCELLED for its owner
func (r *Repository) Cancel(ctx context.Context, orderID, userID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $3, updated_at = now()
		WHERE id = $1 AND user_id = $2 AND status IN ($4, $5)
	`, orderID, userID, StatusCancelled, StatusPending, StatusAccepted)
	if err != nil {
		return fmt.Errorf("cancel order: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		if _, lookupErr := r.GetByID(ctx, orderID); lookupErr != nil {
			return lookupErr
		}
		return ErrNotCancellable
	}
	return nil
}

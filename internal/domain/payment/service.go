package payment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/homeserve/homeserve-api/internal/domain/order"
	"github.com/homeserve/homeserve-api/internal/domain/referral"
	"github.com/homeserve/homeserve-api/internal/pkg/razorpay"
	"github.com/homeserve/homeserve-api/internal/pkg/retry"
)

// OrderStore is the slice of the order repository the reconciler needs
type OrderStore interface {
	GetByRazorpayOrderID(ctx context.Context, razorpayOrderID string) (*order.Order, error)
	Complete(ctx context.Context, id uuid.UUID, paymentID string, paidAt time.Time) (*order.Order, error)
}

// BonusEngine evaluates referral bonuses for completed orders
type BonusEngine interface {
	EvaluateAndAward(ctx context.Context, orderID uuid.UUID) (*referral.Award, error)
}

// CaptureResult summarizes a processed payment.captured event
type CaptureResult struct {
	Order     *order.Order
	PaymentID string
	Bonus     *referral.Award
}

// Service reconciles gateway payment notifications with orders.
type Service struct {
	orders      OrderStore
	bonuses     BonusEngine
	lookupRetry retry.Policy
}

func NewService(orders OrderStore, bonuses BonusEngine) *Service {
	return &Service{orders: orders, bonuses: bonuses, lookupRetry: retry.Default}
}

// HandlePaymentCaptured resolves the order behind a captured payment,
// completes it, and triggers the referral bonus evaluation. The bonus is
// best-effort: the order completion has already committed when it runs,
// so a bonus failure is logged and swallowed rather than surfaced.
func (s *Service) HandlePaymentCaptured(ctx context.Context, entity razorpay.PaymentEntity) (*CaptureResult, error) {
	var o *order.Order
	err := s.lookupRetry.Do(ctx, func(ctx context.Context) error {
		found, err := s.orders.GetByRazorpayOrderID(ctx, entity.OrderID)
		if errors.Is(err, order.ErrOrderNotFound) {
			// Definitive answer, not a transient failure.
			return retry.Permanent(err)
		}
		if err != nil {
			return err
		}
		o = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	completed, err := s.orders.Complete(ctx, o.ID, entity.ID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	completed.ServiceName = o.ServiceName

	result := &CaptureResult{Order: completed, PaymentID: entity.ID}

	award, err := s.bonuses.EvaluateAndAward(ctx, completed.ID)
	if err != nil {
		// The payment has cleared; a bonus failure must not undo that.
		log.Error().
			Err(err).
			Str("order_id", completed.ID.String()).
			Msg("referral bonus processing failed")
		return result, nil
	}
	result.Bonus = award
	return result, nil
}

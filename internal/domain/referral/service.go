package referral

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/homeserve/homeserve-api/internal/domain/order"
	"github.com/homeserve/homeserve-api/internal/domain/user"
	"github.com/homeserve/homeserve-api/internal/domain/wallet"
	"github.com/homeserve/homeserve-api/internal/metrics"
)

// UserStore is the slice of the user repository the engine needs
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetByReferralCode(ctx context.Context, code string) (*user.User, error)
	SetReferredBy(ctx context.Context, userID, referrerID uuid.UUID) error
	CountReferred(ctx context.Context, referrerID uuid.UUID) (int, error)
}

// OrderStore is the slice of the order repository the engine needs
type OrderStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error)
	CountCompletedExcept(ctx context.Context, userID, excludeOrderID uuid.UUID) (int, error)
}

// Ledger is the slice of the wallet service the engine needs
type Ledger interface {
	Credit(ctx context.Context, userID uuid.UUID, amount int64, txType wallet.TransactionType, referenceID, description string) (*wallet.Wallet, *wallet.Transaction, error)
	HasReference(ctx context.Context, userID uuid.UUID, txType wallet.TransactionType, referenceID string) (bool, error)
	SumByType(ctx context.Context, userID uuid.UUID, txType wallet.TransactionType) (int64, error)
}

// Award is the result of a granted bonus
type Award struct {
	Wallet      *wallet.Wallet      `json:"wallet"`
	Transaction *wallet.Transaction `json:"transaction"`
}

// Info summarizes a user's referral standing
type Info struct {
	ReferralCode  string     `json:"referral_code"`
	ReferredBy    *uuid.UUID `json:"referred_by,omitempty"`
	ReferredUsers int        `json:"referred_users"`
	TotalEarnings int64      `json:"total_earnings"`
}

// Service decides whether a referrer earns a bonus for a referred user's
// purchase and applies it exactly once.
type Service struct {
	users       UserStore
	orders      OrderStore
	ledger      Ledger
	bonusAmount int64
}

func NewService(users UserStore, orders OrderStore, ledger Ledger, bonusAmount int64) *Service {
	return &Service{users: users, orders: orders, ledger: ledger, bonusAmount: bonusAmount}
}

// EvaluateAndAward credits the referrer of the order's owner if this is
// the owner's first completed order and the bonus was not already paid.
// All "no bonus due" outcomes return (nil, nil); only storage failures
// return an error.
func (s *Service) EvaluateAndAward(ctx context.Context, orderID uuid.UUID) (*Award, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("resolve order: %w", err)
	}

	buyer, err := s.users.GetByID(ctx, o.UserID)
	if err != nil {
		return nil, fmt.Errorf("resolve buyer: %w", err)
	}
	if !buyer.ReferredBy.Valid {
		log.Info().Str("order_id", orderID.String()).Msg("no referral chain for order")
		return nil, nil
	}
	referrerID := buyer.ReferredBy.UUID

	// Bonus applies only to the buyer's first completed order.
	previous, err := s.orders.CountCompletedExcept(ctx, buyer.ID, orderID)
	if err != nil {
		return nil, fmt.Errorf("count completed orders: %w", err)
	}
	if previous > 0 {
		log.Info().
			Str("user_id", buyer.ID.String()).
			Str("order_id", orderID.String()).
			Msg("not first completed order, skipping referral bonus")
		return nil, nil
	}

	// The referred user's id is the structured idempotency key: at most
	// one REFERRAL_BONUS per (referrer, referred user), ever.
	reference := buyer.ID.String()
	paid, err := s.ledger.HasReference(ctx, referrerID, wallet.TransactionTypeReferralBonus, reference)
	if err != nil {
		return nil, fmt.Errorf("check existing bonus: %w", err)
	}
	if paid {
		log.Info().
			Str("referrer_id", referrerID.String()).
			Str("user_id", buyer.ID.String()).
			Msg("referral bonus already paid")
		return nil, nil
	}

	description := fmt.Sprintf("Referral bonus for user %s's first order #%s", buyer.ID, orderID)
	w, entry, err := s.ledger.Credit(ctx, referrerID, s.bonusAmount, wallet.TransactionTypeReferralBonus, reference, description)
	if err != nil {
		return nil, fmt.Errorf("award referral bonus: %w", err)
	}

	metrics.ReferralBonusesTotal.Inc()
	log.Info().
		Str("referrer_id", referrerID.String()).
		Str("user_id", buyer.ID.String()).
		Str("order_id", orderID.String()).
		Int64("amount", s.bonusAmount).
		Msg("referral bonus awarded")
	return &Award{Wallet: w, Transaction: entry}, nil
}

// Apply attaches a referrer to a user's account by referral code. A user
// can do this exactly once, never with their own code.
func (s *Service) Apply(ctx context.Context, userID uuid.UUID, code string) error {
	if code == "" {
		return ErrMissingCode
	}

	current, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if current.ReferredBy.Valid {
		return ErrAlreadyReferred
	}

	referrer, err := s.users.GetByReferralCode(ctx, code)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return ErrInvalidCode
		}
		return err
	}
	if referrer.ID == current.ID {
		return ErrSelfReferral
	}

	if err := s.users.SetReferredBy(ctx, current.ID, referrer.ID); err != nil {
		if errors.Is(err, user.ErrAlreadyReferred) {
			return ErrAlreadyReferred
		}
		return err
	}

	log.Info().
		Str("user_id", current.ID.String()).
		Str("referrer_id", referrer.ID.String()).
		Msg("referral code applied")
	return nil
}

// GetInfo returns a user's referral code, referrer, and earnings
func (s *Service) GetInfo(ctx context.Context, userID uuid.UUID) (*Info, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	referred, err := s.users.CountReferred(ctx, userID)
	if err != nil {
		return nil, err
	}
	earnings, err := s.ledger.SumByType(ctx, userID, wallet.TransactionTypeReferralBonus)
	if err != nil {
		return nil, err
	}

	info := &Info{
		ReferralCode:  u.ReferralCode,
		ReferredUsers: referred,
		TotalEarnings: earnings,
	}
	if u.ReferredBy.Valid {
		id := u.ReferredBy.UUID
		info.ReferredBy = &id
	}
	return info, nil
}

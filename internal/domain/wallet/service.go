package wallet

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/homeserve/homeserve-api/internal/metrics"
)

type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.GetBalance(ctx, userID)
}

func (s *Service) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Transaction, error) {
	return s.repo.ListTransactions(ctx, userID, limit, offset)
}

// Credit adds a positive amount to the user's wallet with a ledger entry
func (s *Service) Credit(ctx context.Context, userID uuid.UUID, amount int64, txType TransactionType, referenceID, description string) (*Wallet, *Transaction, error) {
	if amount <= 0 {
		return nil, nil, ErrInvalidAmount
	}
	w, entry, err := s.repo.Apply(ctx, userID, amount, txType, referenceID, description)
	if err != nil {
		return nil, nil, err
	}
	metrics.LedgerTransactionsTotal.WithLabelValues(string(txType)).Inc()
	log.Info().
		Str("user_id", userID.String()).
		Int64("amount", amount).
		Str("type", string(txType)).
		Str("reference_id", referenceID).
		Msg("wallet credit applied")
	return w, entry, nil
}

// Debit removes a positive amount; the repository rejects overdrafts
func (s *Service) Debit(ctx context.Context, userID uuid.UUID, amount int64, referenceID, description string) (*Wallet, *Transaction, error) {
	if amount <= 0 || referenceID == "" {
		return nil, nil, ErrInvalidAmount
	}
	w, entry, err := s.repo.Apply(ctx, userID, -amount, TransactionTypeDebit, referenceID, description)
	if err != nil {
		return nil, nil, err
	}
	metrics.LedgerTransactionsTotal.WithLabelValues(string(TransactionTypeDebit)).Inc()
	log.Info().
		Str("user_id", userID.String()).
		Int64("amount", amount).
		Str("reference_id", referenceID).
		Msg("wallet debit applied")
	return w, entry, nil
}

// HasReference exposes the ledger idempotency check
func (s *Service) HasReference(ctx context.Context, userID uuid.UUID, txType TransactionType, referenceID string) (bool, error) {
	return s.repo.HasReference(ctx, userID, txType, referenceID)
}

// SumByType totals a user's ledger entries of one type
func (s *Service) SumByType(ctx context.Context, userID uuid.UUID, txType TransactionType) (int64, error) {
	return s.repo.SumByType(ctx, userID, txType)
}

package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// EnsureWallet lazily creates a zero-balance wallet for the user
func (r *Repository) EnsureWallet(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO wallets (user_id, balance)
		VALUES ($1, 0)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	return err
}

func (r *Repository) GetBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	if err := r.EnsureWallet(ctx, userID); err != nil {
		return 0, err
	}

	var balance int64
	err := r.db.GetContext(ctx, &balance, `SELECT balance FROM wallets WHERE user_id = $1`, userID)
	return balance, err
}

func (r *Repository) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Transaction, error) {
	var txs []*Transaction
	err := r.db.SelectContext(ctx, &txs, `
		SELECT * FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	return txs, err
}

// HasReference reports whether a ledger entry with the given idempotency
// key already exists.
func (r *Repository) HasReference(ctx context.Context, userID uuid.UUID, txType TransactionType, referenceID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS(
			SELECT 1 FROM transactions
			WHERE user_id = $1 AND type = $2 AND reference_id = $3
		)
	`, userID, string(txType), referenceID)
	return exists, err
}

// SumByType returns the signed total of a user's entries of one type
func (r *Repository) SumByType(ctx context.Context, userID uuid.UUID, txType TransactionType) (int64, error) {
	var sum int64
	err := r.db.GetContext(ctx, &sum, `
		SELECT COALESCE(SUM(amount), 0) FROM transactions
		WHERE user_id = $1 AND type = $2
	`, userID, string(txType))
	return sum, err
}

// Apply atomically adjusts the user's balance by a signed amount and
// appends the matching ledger entry. Both writes commit together or not
// at all. A replay carrying an already-used reference with the same
// amount is a no-op; a different amount returns ErrReferenceConflict.
func (r *Repository) Apply(ctx context.Context, userID uuid.UUID, amount int64, txType TransactionType, referenceID, description string) (*Wallet, *Transaction, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	w, entry, err := r.ApplyTx(ctx, tx, userID, amount, txType, referenceID, description)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	return w, entry, nil
}

// ApplyTx is Apply running inside a caller-supplied transaction, for
// callers that must couple the ledger write with another mutation.
func (r *Repository) ApplyTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, amount int64, txType TransactionType, referenceID, description string) (*Wallet, *Transaction, error) {
	balance, err := r.lockWallet(ctx, tx, userID)
	if err != nil {
		return nil, nil, err
	}

	if referenceID != "" {
		existing, found, err := r.getByReference(ctx, tx, userID, txType, referenceID)
		if err != nil {
			return nil, nil, err
		}
		if found {
			if existing.Amount != amount {
				return nil, nil, ErrReferenceConflict
			}
			w := &Wallet{UserID: userID, Balance: balance}
			return w, existing, nil
		}
	}

	nextBalance := balance + amount
	if nextBalance < 0 {
		return nil, nil, ErrInsufficientFunds
	}

	// Both writes run under a savepoint: a unique violation on the
	// reference would otherwise abort the whole transaction, and the
	// replay recovery below still needs it to read the winning row.
	if _, err := tx.ExecContext(ctx, `SAVEPOINT ledger_apply`); err != nil {
		return nil, nil, err
	}

	w := &Wallet{UserID: userID, Balance: nextBalance}
	err = tx.GetContext(ctx, &w.UpdatedAt, `
		UPDATE wallets SET balance = $1, updated_at = now()
		WHERE user_id = $2
		RETURNING updated_at
	`, nextBalance, userID)
	if err != nil {
		return nil, nil, err
	}

	entry, err := r.insertTransaction(ctx, tx, userID, amount, txType, referenceID, description)
	if err != nil {
		if errors.Is(err, errDuplicateReference) {
			// Raced with a writer holding the same reference. Undo the
			// balance change and treat it like any other replay.
			if _, rbErr := tx.ExecContext(ctx, `ROLLBACK TO SAVEPOINT ledger_apply`); rbErr != nil {
				return nil, nil, rbErr
			}
			existing, found, checkErr := r.getByReference(ctx, tx, userID, txType, referenceID)
			if checkErr != nil {
				return nil, nil, checkErr
			}
			if !found || existing.Amount != amount {
				return nil, nil, ErrReferenceConflict
			}
			return &Wallet{UserID: userID, Balance: balance}, existing, nil
		}
		return nil, nil, err
	}

	if _, err := tx.ExecContext(ctx, `RELEASE SAVEPOINT ledger_apply`); err != nil {
		return nil, nil, err
	}
	return w, entry, nil
}

var errDuplicateReference = errors.New("duplicate reference")

func (r *Repository) lockWallet(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (int64, error) {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO wallets (user_id, balance)
		VALUES ($1, 0)
		ON CONFLICT (user_id) DO NOTHING
	`, userID); err != nil {
		return 0, err
	}

	var balance int64
	err := tx.GetContext(ctx, &balance, `SELECT balance FROM wallets WHERE user_id = $1 FOR UPDATE`, userID)
	return balance, err
}

func (r *Repository) getByReference(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, txType TransactionType, referenceID string) (*Transaction, bool, error) {
	if referenceID == "" {
		return nil, false, nil
	}

	var entry Transaction
	err := tx.GetContext(ctx, &entry, `
		SELECT * FROM transactions
		WHERE user_id = $1 AND type = $2 AND reference_id = $3
		LIMIT 1
	`, userID, string(txType), referenceID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &entry, true, nil
}

func (r *Repository) insertTransaction(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, amount int64, txType TransactionType, referenceID, description string) (*Transaction, error) {
	var ref interface{}
	if referenceID == "" {
		ref = nil
	} else {
		ref = referenceID
	}

	entry := &Transaction{
		UserID:      userID,
		Amount:      amount,
		Type:        txType,
		Description: description,
	}
	if referenceID != "" {
		entry.ReferenceID = sql.NullString{String: referenceID, Valid: true}
	}

	err := tx.QueryRowContext(ctx, `
		INSERT INTO transactions (user_id, amount, type, description, reference_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, userID, amount, string(txType), description, ref).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, errDuplicateReference
		}
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	return entry, nil
}

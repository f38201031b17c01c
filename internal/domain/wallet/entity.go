package wallet

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// TransactionType classifies ledger entries
type TransactionType string

const (
	TransactionTypeCredit        TransactionType = "CREDIT"
	TransactionTypeDebit         TransactionType = "DEBIT"
	TransactionTypeReferralBonus TransactionType = "REFERRAL_BONUS"
	TransactionTypeSignupBonus   TransactionType = "SIGNUP_BONUS"
)

// Wallet holds a user's running balance. Invariant: balance equals the
// signed sum of the user's transactions; the two are only ever written
// together, inside one database transaction.
type Wallet struct {
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Balance   int64     `db:"balance" json:"balance"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Transaction is an immutable ledger entry. ReferenceID is the structured
// idempotency key: at most one row per (user, type, reference).
type Transaction struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	UserID      uuid.UUID       `db:"user_id" json:"user_id"`
	Amount      int64           `db:"amount" json:"amount"`
	Type        TransactionType `db:"type" json:"type"`
	Description string          `db:"description" json:"description"`
	ReferenceID sql.NullString  `db:"reference_id" json:"reference_id,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

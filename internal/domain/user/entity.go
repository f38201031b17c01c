package user

import (
	"crypto/rand"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Role represents user role in the system
type Role string

const (
	RoleUser    Role = "USER"
	RolePartner Role = "PARTNER"
	RoleAdmin   Role = "ADMIN"
)

// User represents an account. Partners are users with RolePartner.
type User struct {
	ID           uuid.UUID      `db:"id"`
	Name         string         `db:"name"`
	Email        string         `db:"email"`
	PasswordHash string         `db:"password_hash"`
	Role         Role           `db:"role"`
	Phone        sql.NullString `db:"phone"`

	// Referral program: the code this user hands out, and who referred them.
	// ReferredBy is set at most once and never self-referential.
	ReferralCode string        `db:"referral_code"`
	ReferredBy   uuid.NullUUID `db:"referred_by"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// IsPartner returns true if user is a service partner
func (u *User) IsPartner() bool {
	return u.Role == RolePartner
}

// IsAdmin returns true if user is an admin
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewReferralCode mints an 8-character share code.
// Uniqueness is enforced by the users.referral_code constraint.
func NewReferralCode() string {
	b := make([]byte, 8)
	rand.Read(b)
	for i := range b {
		b[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
	}
	return string(b)
}

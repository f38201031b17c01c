package referral

import "errors"

var (
	ErrMissingCode     = errors.New("missing referral code")
	ErrInvalidCode     = errors.New("invalid referral code")
	ErrSelfReferral    = errors.New("cannot refer yourself")
	ErrAlreadyReferred = errors.New("user already has a referrer")
)

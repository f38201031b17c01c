package order

import "errors"

var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrAlreadyClaimed = errors.New("order already claimed by another partner")
	ErrNotCancellable = errors.New("order cannot be cancelled in its current status")
	ErrPaymentIDTaken = errors.New("order already completed with a different payment")
)

package order

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Status represents order lifecycle status
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusAccepted   Status = "ACCEPTED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

// Order is one unit of work between a user and a service, optionally
// assigned to a partner. RazorpayPaymentID is set at most once, by the
// payment reconciler, when the order transitions to COMPLETED.
type Order struct {
	ID                uuid.UUID      `db:"id" json:"id"`
	UserID            uuid.UUID      `db:"user_id" json:"user_id"`
	ServiceID         uuid.UUID      `db:"service_id" json:"service_id"`
	PartnerID         uuid.NullUUID  `db:"partner_id" json:"partner_id,omitempty"`
	Status            Status         `db:"status" json:"status"`
	RazorpayOrderID   sql.NullString `db:"razorpay_order_id" json:"razorpay_order_id,omitempty"`
	RazorpayPaymentID sql.NullString `db:"razorpay_payment_id" json:"razorpay_payment_id,omitempty"`
	Amount            int64          `db:"amount" json:"amount"`
	RemainingAmount   int64          `db:"remaining_amount" json:"remaining_amount"`
	PaidAt            sql.NullTime   `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updated_at"`

	// ServiceName is joined in for display; not a column on orders.
	ServiceName string `db:"service_name" json:"service_name,omitempty"`
}

// IsCompleted reports whether the order reached its terminal paid state
func (o *Order) IsCompleted() bool {
	return o.Status == StatusCompleted
}

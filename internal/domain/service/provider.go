package service

import (
	"time"

	"github.com/google/uuid"
)

// ProviderStatus is the admin review state of a partner's request to
// provide a service.
type ProviderStatus string

const (
	ProviderStatusPending  ProviderStatus = "PENDING"
	ProviderStatusApproved ProviderStatus = "APPROVED"
	ProviderStatusRejected ProviderStatus = "REJECTED"
)

// Provider links a partner to a service they offer. Pending orders are
// routed to the partner only once an admin approves the link.
type Provider struct {
	PartnerID uuid.UUID      `db:"partner_id" json:"partner_id"`
	ServiceID uuid.UUID      `db:"service_id" json:"service_id"`
	Status    ProviderStatus `db:"status" json:"status"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

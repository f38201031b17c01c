package order

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	svc "github.com/homeserve/homeserve-api/internal/domain/service"
)

type Service struct {
	repo        *Repository
	serviceRepo *svc.Repository
}

func NewService(repo *Repository, serviceRepo *svc.Repository) *Service {
	return &Service{repo: repo, serviceRepo: serviceRepo}
}

// CreateRequest carries checkout parameters
type CreateRequest struct {
	UserID          uuid.UUID
	ServiceID       uuid.UUID
	RazorpayOrderID string
}

// Create opens a PENDING order priced from the service catalog. The
// gateway order id is recorded so the webhook reconciler can find it.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Order, error) {
	catalogService, err := s.serviceRepo.GetByID(ctx, req.ServiceID)
	if err != nil {
		return nil, err
	}

	o := &Order{
		UserID:          req.UserID,
		ServiceID:       req.ServiceID,
		Amount:          catalogService.Price,
		RemainingAmount: catalogService.Price,
	}
	if req.RazorpayOrderID != "" {
		o.RazorpayOrderID.String = req.RazorpayOrderID
		o.RazorpayOrderID.Valid = true
	}
	if err := s.repo.Create(ctx, o); err != nil {
		return nil, err
	}
	o.ServiceName = catalogService.Name

	log.Info().
		Str("order_id", o.ID.String()).
		Str("user_id", req.UserID.String()).
		Str("service_id", req.ServiceID.String()).
		Int64("amount", o.Amount).
		Msg("order created")
	return o, nil
}

func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Order, error) {
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

func (s *Service) ListPendingForPartner(ctx context.Context, partnerID uuid.UUID) ([]*Order, error) {
	return s.repo.ListPendingForPartner(ctx, partnerID)
}

func (s *Service) Accept(ctx context.Context, orderID, partnerID uuid.UUID) error {
	if err := s.repo.Accept(ctx, orderID, partnerID); err != nil {
		return err
	}
	log.Info().
		Str("order_id", orderID.String()).
		Str("partner_id", partnerID.String()).
		Msg("order accepted by partner")
	return nil
}

func (s *Service) Cancel(ctx context.Context, orderID, userID uuid.UUID) error {
	if err := s.repo.Cancel(ctx, orderID, userID); err != nil {
		return err
	}
	log.Info().
		Str("order_id", orderID.String()).
		Str("user_id", userID.String()).
		Msg("order cancelled")
	return nil
}

package service

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/homeserve/homeserve-api/internal/middleware"
	"github.com/homeserve/homeserve-api/internal/pkg/response"
	"github.com/homeserve/homeserve-api/internal/pkg/validator"
)

// Handler exposes the service catalog
type Handler struct {
	repo *Repository
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// Get handles GET /services/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid service ID")
		return
	}

	s, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrServiceNotFound) {
			response.NotFound(w, "Service not found")
			return
		}
		log.Error().Err(err).Str("service_id", id.String()).Msg("failed to get service")
		response.InternalError(w)
		return
	}
	response.OK(w, s)
}

type createRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=200"`
	Description string `json:"description" validate:"max=2000"`
	Category    string `json:"category" validate:"required,min=2,max=100"`
	Price       int64  `json:"price" validate:"required,gt=0"`
}

// Create handles POST /services (admin only)
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errors := validator.Validate(&req); errors != nil {
		response.ValidationError(w, errors)
		return
	}

	s := &Service{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
	}
	if err := h.repo.Create(r.Context(), s); err != nil {
		log.Error().Err(err).Str("name", req.Name).Msg("failed to create service")
		response.InternalError(w)
		return
	}
	response.Created(w, s)
}

// RequestProvider handles POST /services/{id}/providers: a partner asks
// to be routed orders for this service, pending admin review.
func (h *Handler) RequestProvider(w http.ResponseWriter, r *http.Request) {
	partnerID := middleware.GetUserID(r.Context())
	if partnerID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}
	serviceID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid service ID")
		return
	}

	p, err := h.repo.RequestProvider(r.Context(), partnerID, serviceID)
	if err != nil {
		switch {
		case errors.Is(err, ErrServiceNotFound):
			response.NotFound(w, "Service not found")
		case errors.Is(err, ErrProviderRequestExists):
			response.Conflict(w, "Provider request already exists")
		default:
			log.Error().Err(err).
				Str("partner_id", partnerID.String()).
				Str("service_id", serviceID.String()).
				Msg("failed to create provider request")
			response.InternalError(w)
		}
		return
	}
	response.Created(w, p)
}

// ListProviderRequests handles GET /services/providers/requests (admin)
func (h *Handler) ListProviderRequests(w http.ResponseWriter, r *http.Request) {
	ps, err := h.repo.ListProviderRequests(r.Context(), ProviderStatusPending)
	if err != nil {
		log.Error().Err(err).Msg("failed to list provider requests")
		response.InternalError(w)
		return
	}
	if ps == nil {
		ps = []*Provider{}
	}
	response.OK(w, map[string]interface{}{"requests": ps})
}

type reviewProviderRequest struct {
	Status string `json:"status"`
}

// ReviewProvider handles PATCH /services/providers/{partnerID}/{serviceID}
// (admin): approve or reject a partner's provider request.
func (h *Handler) ReviewProvider(w http.ResponseWriter, r *http.Request) {
	partnerID, err := uuid.Parse(chi.URLParam(r, "partnerID"))
	if err != nil {
		response.BadRequest(w, "Invalid partner ID")
		return
	}
	serviceID, err := uuid.Parse(chi.URLParam(r, "serviceID"))
	if err != nil {
		response.BadRequest(w, "Invalid service ID")
		return
	}

	var req reviewProviderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	status := ProviderStatus(req.Status)
	if status != ProviderStatusApproved && status != ProviderStatusRejected {
		response.BadRequest(w, "Invalid status")
		return
	}

	p, err := h.repo.SetProviderStatus(r.Context(), partnerID, serviceID, status)
	if err != nil {
		if errors.Is(err, ErrProviderRequestNotFound) {
			response.NotFound(w, "Provider request not found")
			return
		}
		log.Error().Err(err).
			Str("partner_id", partnerID.String()).
			Str("service_id", serviceID.String()).
			Msg("failed to review provider request")
		response.InternalError(w)
		return
	}
	response.OK(w, p)
}

// Routes returns the catalog router. Lookup is public; partners register
// as providers, admins create services and review provider requests.
func (h *Handler) Routes(authMiddleware, partnerOnly, adminOnly func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/{id}", h.Get)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware, partnerOnly)
		r.Post("/{id}/providers", h.RequestProvider)
	})
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware, adminOnly)
		r.Post("/", h.Create)
		r.Get("/providers/requests", h.ListProviderRequests)
		r.Patch("/providers/{partnerID}/{serviceID}", h.ReviewProvider)
	})
	return r
}

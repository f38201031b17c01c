package order

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/homeserve/homeserve-api/internal/domain/service"
	"github.com/homeserve/homeserve-api/internal/middleware"
	"github.com/homeserve/homeserve-api/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type createOrderRequest struct {
	ServiceID       string `json:"service_id"`
	RazorpayOrderID string `json:"razorpay_order_id"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	serviceID, err := uuid.Parse(req.ServiceID)
	if err != nil {
		response.BadRequest(w, "invalid service_id")
		return
	}

	o, err := h.svc.Create(r.Context(), CreateRequest{
		UserID:          userID,
		ServiceID:       serviceID,
		RazorpayOrderID: req.RazorpayOrderID,
	})
	if err != nil {
		if errors.Is(err, service.ErrServiceNotFound) {
			response.NotFound(w, "service not found")
			return
		}
		response.InternalError(w)
		return
	}

	response.Created(w, o)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	limit := 20
	offset := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 100 {
			limit = v
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if v, err := strconv.Atoi(o); err == nil && v >= 0 {
			offset = v
		}
	}

	orders, err := h.svc.ListByUser(r.Context(), userID, limit, offset)
	if err != nil {
		response.InternalError(w)
		return
	}
	if orders == nil {
		orders = []*Order{}
	}

	response.OK(w, map[string]interface{}{"orders": orders})
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid order id")
		return
	}

	if err := h.svc.Cancel(r.Context(), orderID, userID); err != nil {
		switch {
		case errors.Is(err, ErrOrderNotFound):
			response.NotFound(w, "order not found")
		case errors.Is(err, ErrNotCancellable):
			response.Conflict(w, "order cannot be cancelled")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, map[string]string{"status": "cancelled"})
}

func (h *Handler) PendingForPartner(w http.ResponseWriter, r *http.Request) {
	partnerID := middleware.GetUserID(r.Context())
	if partnerID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	orders, err := h.svc.ListPendingForPartner(r.Context(), partnerID)
	if err != nil {
		response.InternalError(w)
		return
	}
	if orders == nil {
		orders = []*Order{}
	}

	response.OK(w, map[string]interface{}{"orders": orders})
}

func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	partnerID := middleware.GetUserID(r.Context())
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid order id")
		return
	}

	if err := h.svc.Accept(r.Context(), orderID, partnerID); err != nil {
		switch {
		case errors.Is(err, ErrOrderNotFound):
			response.NotFound(w, "order not found")
		case errors.Is(err, ErrAlreadyClaimed):
			response.Conflict(w, "order already claimed")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, map[string]string{"status": "accepted"})
}

// Routes returns the customer-facing order router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Post("/{id}/cancel", h.Cancel)
	return r
}

// PartnerRoutes returns the partner order router
func (h *Handler) PartnerRoutes(authMiddleware, partnerOnly func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Use(partnerOnly)
	r.Get("/pending", h.PendingForPartner)
	r.Post("/{id}/accept", h.Accept)
	return r
}

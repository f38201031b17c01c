package referral

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/homeserve/homeserve-api/internal/middleware"
	"github.com/homeserve/homeserve-api/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type applyRequest struct {
	ReferralCode string `json:"referral_code"`
}

// Apply handles POST /referrals — first-touch referral code redemption
func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req applyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}

	if err := h.svc.Apply(r.Context(), userID, req.ReferralCode); err != nil {
		switch {
		case errors.Is(err, ErrMissingCode):
			response.BadRequest(w, "Missing referral code")
		case errors.Is(err, ErrAlreadyReferred):
			response.Conflict(w, "User already has a referrer")
		case errors.Is(err, ErrInvalidCode):
			response.NotFound(w, "Invalid referral code")
		case errors.Is(err, ErrSelfReferral):
			response.BadRequest(w, "Cannot refer yourself")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, map[string]string{"message": "Referral code applied successfully"})
}

// Info handles GET /referrals — the caller's referral standing
func (h *Handler) Info(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	info, err := h.svc.GetInfo(r.Context(), userID)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, info)
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Post("/", h.Apply)
	r.Get("/", h.Info)
	return r
}

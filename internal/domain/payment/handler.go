package payment

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/homeserve/homeserve-api/internal/domain/order"
	"github.com/homeserve/homeserve-api/internal/metrics"
	"github.com/homeserve/homeserve-api/internal/pkg/razorpay"
)

// Handler receives payment gateway webhooks
type Handler struct {
	service       *Service
	webhookSecret string
	bonusAmount   int64

	// signature verification is bypassed in development mode only
	devMode bool
}

func NewHandler(service *Service, webhookSecret string, bonusAmount int64, devMode bool) *Handler {
	return &Handler{service: service, webhookSecret: webhookSecret, bonusAmount: bonusAmount, devMode: devMode}
}

// webhookResponse is the gateway-facing envelope. Error responses carry a
// flat error string plus a timestamp, per the integration contract.
type webhookResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Message   string      `json:"message,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp string      `json:"timestamp"`
}

type orderSummary struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Amount  int64  `json:"amount"`
	Service string `json:"service"`
}

type bonusSummary struct {
	Amount      int64       `json:"amount"`
	Transaction interface{} `json:"transaction"`
}

// RazorpayWebhook handles POST /webhooks/razorpay
func (h *Handler) RazorpayWebhook(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC().Format(time.RFC3339)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Failed to read request body", now)
		return
	}

	if !h.devMode {
		signature := r.Header.Get(razorpay.SignatureHeader)
		if signature == "" {
			metrics.WebhookEventsTotal.WithLabelValues("unknown", "rejected").Inc()
			h.writeError(w, http.StatusBadRequest, "No signature provided", now)
			return
		}
		if !razorpay.VerifySignature(body, signature, h.webhookSecret) {
			metrics.WebhookEventsTotal.WithLabelValues("unknown", "rejected").Inc()
			log.Warn().Msg("webhook signature mismatch")
			h.writeError(w, http.StatusBadRequest, "Invalid signature", now)
			return
		}
	}

	event, err := razorpay.ParseWebhookEvent(body)
	if err != nil {
		metrics.WebhookEventsTotal.WithLabelValues("unknown", "rejected").Inc()
		h.writeError(w, http.StatusBadRequest, "Invalid webhook payload", now)
		return
	}

	log.Info().
		Str("event_type", event.Event).
		Str("order_id", event.Payload.Payment.Entity.OrderID).
		Str("timestamp", now).
		Msg("webhook event received")

	if event.Event != razorpay.EventPaymentCaptured {
		// Acknowledge so the gateway stops retrying.
		metrics.WebhookEventsTotal.WithLabelValues(event.Event, "ignored").Inc()
		h.writeJSON(w, http.StatusOK, webhookResponse{
			Success:   true,
			Message:   fmt.Sprintf("Webhook event %s received but not processed", event.Event),
			Timestamp: now,
		})
		return
	}

	entity := event.Payload.Payment.Entity
	if entity.ID == "" || entity.OrderID == "" {
		metrics.WebhookEventsTotal.WithLabelValues(event.Event, "rejected").Inc()
		h.writeError(w, http.StatusBadRequest, "Missing payment fields", now)
		return
	}

	result, err := h.service.HandlePaymentCaptured(r.Context(), entity)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			metrics.WebhookEventsTotal.WithLabelValues(event.Event, "failed").Inc()
			log.Error().Str("razorpay_order_id", entity.OrderID).Msg("order not found for captured payment")
			h.writeError(w, http.StatusNotFound, "Order not found", now)
			return
		}
		metrics.WebhookEventsTotal.WithLabelValues(event.Event, "failed").Inc()
		log.Error().
			Err(err).
			Str("event_type", event.Event).
			Str("razorpay_order_id", entity.OrderID).
			Msg("webhook processing error")
		h.writeError(w, http.StatusInternalServerError, "Internal server error", now)
		return
	}

	metrics.WebhookEventsTotal.WithLabelValues(event.Event, "processed").Inc()

	data := map[string]interface{}{
		"message": "Payment processed successfully",
		"order": orderSummary{
			ID:      result.Order.ID.String(),
			Status:  string(result.Order.Status),
			Amount:  result.Order.RemainingAmount,
			Service: result.Order.ServiceName,
		},
		"paymentId": result.PaymentID,
		"timestamp": now,
	}
	if result.Bonus != nil {
		data["referralBonus"] = bonusSummary{
			Amount:      h.bonusAmount,
			Transaction: result.Bonus.Transaction,
		}
	}

	h.writeJSON(w, http.StatusOK, webhookResponse{Success: true, Data: data, Timestamp: now})
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message, now string) {
	h.writeJSON(w, status, webhookResponse{Success: false, Error: message, Timestamp: now})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, resp webhookResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// WebhookRoutes returns the webhook router (no auth, signature-verified)
func (h *Handler) WebhookRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/razorpay", h.RazorpayWebhook)
	return r
}

package payments_http

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Zenithi77/Selly-Fashion-sub000/internal/app/payments"
	"github.com/Zenithi77/Selly-Fashion-sub000/internal/domain"
	"github.com/Zenithi77/Selly-Fashion-sub000/internal/ratelimit"
)

type PaymentHandler struct {
	service payments.PaymentService
	limiter ratelimit.Limiter
	secret  string
	logger  *zap.Logger
}

func NewPaymentHandler(s payments.PaymentService, limiter ratelimit.Limiter, secret string, l *zap.Logger) *PaymentHandler {
	return &PaymentHandler{service: s, limiter: limiter, secret: secret, logger: l}
}

// WebhookRequest is the payload posted by the SMS-forwarding agent. POSTKEY
// carries the shared secret; additional fields are ignored.
type WebhookRequest struct {
	PostKey string `json:"POSTKEY"`
	From    string `json:"from"`
	Text    string `json:"text"`
}

type WebhookResponse struct {
	Success        bool     `json:"success"`
	Message        string   `json:"message,omitempty"`
	OrderID        string   `json:"orderId,omitempty"`
	ExpectedAmount *float64 `json:"expectedAmount,omitempty"`
	PaidAmount     *float64 `json:"paidAmount,omitempty"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type livenessResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type paymentStatusResponse struct {
	Success bool `json:"success"`
	*payments.PaymentStatusResponse
}

// PaymentWebhook applies the transport-level gates (rate limit, shared
// secret) and hands the notification to the reconciliation service. A
// business-level amount mismatch is still a 200: the webhook call succeeded,
// the order just needs a human.
func (h *PaymentHandler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	source := sourceAddr(r)
	if !h.limiter.Allow(source) {
		h.logger.Warn("Webhook rate limit exceeded", zap.String("source", source))
		writeError(w, http.StatusTooManyRequests, "Too many requests")
		return
	}

	var req WebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid webhook request body", zap.Error(err))
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Fail closed: an unconfigured secret rejects everything.
	if h.secret == "" || subtle.ConstantTimeCompare([]byte(req.PostKey), []byte(h.secret)) != 1 {
		h.logger.Warn("Webhook auth failure", zap.String("source", source))
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	result, err := h.service.ProcessBankSMS(r.Context(), &payments.BankSMSNotification{
		Sender: req.From,
		Text:   req.Text,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidSender):
			writeError(w, http.StatusBadRequest, "Sender is not a recognized bank")
		case errors.Is(err, domain.ErrEmptySMSBody):
			writeError(w, http.StatusBadRequest, "SMS text is required")
		case errors.Is(err, domain.ErrNoReference):
			writeError(w, http.StatusBadRequest, "No payment reference found in SMS text")
		case errors.Is(err, domain.ErrNoAmount):
			writeError(w, http.StatusBadRequest, "No amount found in SMS text")
		case errors.Is(err, domain.ErrPaymentRefNotFound):
			writeError(w, http.StatusNotFound, "No order found for payment reference")
		default:
			h.logger.Error("Webhook processing failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	resp := WebhookResponse{Success: true, OrderID: result.OrderID}
	switch result.Outcome {
	case payments.OutcomePaid:
		resp.PaidAmount = &result.ReceivedAmount
	case payments.OutcomeAlreadyPaid:
		resp.Message = "Order already paid"
	case payments.OutcomeReview:
		resp.Message = "Amount mismatch, order flagged for review"
		resp.ExpectedAmount = &result.ExpectedAmount
		resp.PaidAmount = &result.ReceivedAmount
	}
	writeJSON(w, http.StatusOK, resp)
}

// WebhookLiveness answers GET probes on the webhook URL.
func (h *PaymentHandler) WebhookLiveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, livenessResponse{Status: "ok", Timestamp: time.Now()})
}

// PaymentStatus serves the poller. The response must never be cached: the
// client is watching for a near-real-time state change.
func (h *PaymentHandler) PaymentStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	if orderID == "" {
		writeError(w, http.StatusBadRequest, "Order ID is required")
		return
	}

	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")

	status, err := h.service.GetPaymentStatus(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			writeError(w, http.StatusNotFound, "Order not found")
			return
		}
		h.logger.Error("Failed to get payment status", zap.String("order_id", orderID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, paymentStatusResponse{Success: true, PaymentStatusResponse: status})
}

func (h *PaymentHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req payments.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid request body for CreateOrder", zap.Error(err))
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.service.CreateOrder(r.Context(), &req)
	if err != nil {
		if errors.Is(err, payments.ErrInvalidOrder) {
			h.logger.Warn("Bad request for CreateOrder", zap.Error(err))
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("Error creating order", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, res)
}

func (h *PaymentHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	if orderID == "" {
		writeError(w, http.StatusBadRequest, "Order ID is required")
		return
	}

	res, err := h.service.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			writeError(w, http.StatusNotFound, "Order not found")
			return
		}
		h.logger.Error("Error getting order", zap.String("order_id", orderID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func sourceAddr(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Success: false, Error: msg})
}

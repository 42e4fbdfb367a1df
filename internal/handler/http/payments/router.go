package payments_http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Zenithi77/Selly-Fashion-sub000/internal/app/payments"
	"github.com/Zenithi77/Selly-Fashion-sub000/internal/ratelimit"
)

func RegisterRoutes(r chi.Router, s payments.PaymentService, limiter ratelimit.Limiter, webhookSecret string, l *zap.Logger) {
	handler := NewPaymentHandler(s, limiter, webhookSecret, l.With(zap.String("component", "PaymentHTTPHandler")))

	r.Route("/health", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("Payments service is healthy!"))
		})
	})

	r.Route("/payment", func(r chi.Router) {
		r.Post("/webhook", handler.PaymentWebhook)
		r.Get("/webhook", handler.WebhookLiveness)
		r.Get("/status/{orderID}", handler.PaymentStatus)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", handler.CreateOrder)
		r.Get("/{orderID}", handler.GetOrder)
	})
}

package payments

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Zenithi77/Selly-Fashion-sub000/internal/domain"
	"github.com/Zenithi77/Selly-Fashion-sub000/internal/util"
)

const (
	EventOrderCreated         = "order.created"
	EventPaymentMatched       = "payment.matched"
	EventPaymentReviewFlagged = "payment.review_flagged"
)

// PaymentEvent is the payload published to the payment events topic for every
// state transition the reconciliation core performs. Because each attempt is
// its own event, the stream doubles as the append-only audit trail the
// single payment_note column cannot provide.
type PaymentEvent struct {
	EventType     string    `json:"event_type"`
	OrderID       string    `json:"order_id"`
	PaymentRef    string    `json:"payment_ref"`
	PaymentStatus string    `json:"payment_status"`
	OrderStatus   string    `json:"order_status"`
	TotalAmount   float64   `json:"total_amount"`
	PaidAmount    *float64  `json:"paid_amount,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

func newOutboxMessage(topic, eventType string, order *domain.Order, eventTime time.Time) (*domain.OutboxMessage, error) {
	payload, err := json.Marshal(PaymentEvent{
		EventType:     eventType,
		OrderID:       order.ID,
		PaymentRef:    order.PaymentRef,
		PaymentStatus: string(order.PaymentStatus),
		OrderStatus:   string(order.Status),
		TotalAmount:   order.TotalAmount,
		PaidAmount:    order.PaidAmount,
		Timestamp:     eventTime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}
	return &domain.OutboxMessage{
		ID:        util.GenerateUUID(),
		Topic:     topic,
		Key:       order.ID,
		Payload:   payload,
		Status:    domain.OutboxStatusPending,
		CreatedAt: eventTime,
	}, nil
}

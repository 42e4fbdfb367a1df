package order_repo

import (
	"context"

	"github.com/Zenithi77/Selly-Fashion-sub000/internal/domain"
)

// OrderRepository is the order store as the reconciliation core sees it.
// Updates keyed by payment reference must be atomic per order; the postgres
// implementation relies on single-row UPDATE semantics for that.
type OrderRepository interface {
	// CreateOrderAndOutboxMessage inserts the order, its line items and an
	// order-created event in one transaction.
	CreateOrderAndOutboxMessage(ctx context.Context, order *domain.Order, msg *domain.OutboxMessage) error
	GetOrderByID(ctx context.Context, id string) (*domain.Order, error)
	GetOrderByPaymentRef(ctx context.Context, ref string) (*domain.Order, error)
	// UpdatePaymentStateAndOutboxMessage persists the order's payment fields
	// (payment_status, status, paid_amount, payment_note, updated_at) together
	// with the matching payment event in one transaction.
	UpdatePaymentStateAndOutboxMessage(ctx context.Context, order *domain.Order, msg *domain.OutboxMessage) error
}

package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Zenithi77/Selly-Fashion-sub000/internal/domain"
	"github.com/Zenithi77/Selly-Fashion-sub000/internal/payref"
	"github.com/Zenithi77/Selly-Fashion-sub000/internal/repository/order_repo"
	"github.com/Zenithi77/Selly-Fashion-sub000/internal/util"
)

var ErrInvalidOrder = errors.New("invalid order request")

// maxRefAttempts bounds the payment reference uniqueness retry loop. With a
// 36^5 suffix space a second collision in a row is effectively impossible.
const maxRefAttempts = 3

type PaymentService interface {
	CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResponse, error)
	GetOrder(ctx context.Context, orderID string) (*OrderResponse, error)
	GetPaymentStatus(ctx context.Context, orderID string) (*PaymentStatusResponse, error)
	ProcessBankSMS(ctx context.Context, n *BankSMSNotification) (*ReconciliationResult, error)
}

type Options struct {
	RefPrefix        string
	TolerancePercent float64
	DBOpTimeout      time.Duration
	EventTopic       string
	Bank             BankInstructions
}

type paymentService struct {
	orderRepo order_repo.OrderRepository
	opts      Options
	logger    *zap.Logger
}

func NewPaymentService(orderRepo order_repo.OrderRepository, opts Options, logger *zap.Logger) PaymentService {
	if opts.RefPrefix == "" {
		opts.RefPrefix = payref.DefaultPrefix
	}
	if opts.TolerancePercent == 0 {
		opts.TolerancePercent = payref.DefaultTolerancePercent
	}
	if opts.DBOpTimeout == 0 {
		opts.DBOpTimeout = 3 * time.Second
	}
	return &paymentService{orderRepo: orderRepo, opts: opts, logger: logger}
}

func (s *paymentService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResponse, error) {
	if req.UserID == "" || len(req.Items) == 0 {
		return nil, ErrInvalidOrder
	}

	orderID := util.GenerateUUID()
	items := make([]domain.OrderItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, domain.OrderItem{
			ID:        util.GenerateUUID(),
			OrderID:   orderID,
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}

	var order *domain.Order
	for attempt := 0; attempt < maxRefAttempts; attempt++ {
		ref := payref.Generate(s.opts.RefPrefix)
		o, err := domain.NewOrder(orderID, req.UserID, ref, items)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidOrder, err)
		}

		msg, err := newOutboxMessage(s.opts.EventTopic, EventOrderCreated, o, o.CreatedAt)
		if err != nil {
			return nil, err
		}

		opCtx, cancel := context.WithTimeout(ctx, s.opts.DBOpTimeout)
		err = s.orderRepo.CreateOrderAndOutboxMessage(opCtx, o, msg)
		cancel()
		if err != nil {
			if errors.Is(err, domain.ErrPaymentRefTaken) {
				s.logger.Warn("Payment reference collision, regenerating",
					zap.String("order_id", orderID), zap.String("payment_ref", ref))
				continue
			}
			s.logger.Error("Failed to create order", zap.String("order_id", orderID), zap.Error(err))
			return nil, fmt.Errorf("failed to create order: %w", err)
		}
		order = o
		break
	}
	if order == nil {
		return nil, fmt.Errorf("failed to allocate a unique payment reference after %d attempts", maxRefAttempts)
	}

	s.logger.Info("Order created",
		zap.String("order_id", order.ID),
		zap.String("payment_ref", order.PaymentRef),
		zap.Float64("total_amount", order.TotalAmount))

	return &CreateOrderResponse{
		OrderID:          order.ID,
		PaymentRef:       order.PaymentRef,
		TotalAmount:      order.TotalAmount,
		PaymentStatus:    string(order.PaymentStatus),
		Status:           string(order.Status),
		BankInstructions: s.opts.Bank,
	}, nil
}

func (s *paymentService) GetOrder(ctx context.Context, orderID string) (*OrderResponse, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.opts.DBOpTimeout)
	defer cancel()

	order, err := s.orderRepo.GetOrderByID(opCtx, orderID)
	if err != nil {
		return nil, err
	}

	resp := &OrderResponse{
		OrderID:       order.ID,
		UserID:        order.UserID,
		PaymentRef:    order.PaymentRef,
		TotalAmount:   order.TotalAmount,
		PaidAmount:    order.PaidAmount,
		PaymentStatus: string(order.PaymentStatus),
		Status:        string(order.Status),
	}
	for _, it := range order.Items {
		resp.Items = append(resp.Items, OrderItemResponse{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	return resp, nil
}

func (s *paymentService) GetPaymentStatus(ctx context.Context, orderID string) (*PaymentStatusResponse, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.opts.DBOpTimeout)
	defer cancel()

	order, err := s.orderRepo.GetOrderByID(opCtx, orderID)
	if err != nil {
		return nil, err
	}

	return &PaymentStatusResponse{
		OrderID:       order.ID,
		PaymentStatus: string(order.PaymentStatus),
		PaymentRef:    order.PaymentRef,
		OrderStatus:   string(order.Status),
		TotalAmount:   order.TotalAmount,
		PaidAmount:    order.PaidAmount,
	}, nil
}

// ProcessBankSMS reconciles one inbound bank SMS notification against the
// order it references. Steps short-circuit on first failure: sender check,
// body presence, reference extraction, amount extraction, order lookup,
// idempotency on Paid, then the tolerance comparison that decides between
// Paid and PendingReview.
func (s *paymentService) ProcessBankSMS(ctx context.Context, n *BankSMSNotification) (*ReconciliationResult, error) {
	if !payref.IsBankSender(n.Sender) {
		s.logger.Warn("Webhook from unrecognized sender", zap.String("sender", n.Sender))
		return nil, domain.ErrInvalidSender
	}
	if n.Text == "" {
		return nil, domain.ErrEmptySMSBody
	}

	ref, ok := payref.ExtractReference(n.Text)
	if !ok {
		s.logger.Warn("No payment reference in SMS body",
			zap.String("sender", n.Sender),
			zap.String("text", domain.Truncate(n.Text, domain.NoteMaxLen)))
		return nil, domain.ErrNoReference
	}

	amount, ok := payref.ExtractAmount(n.Text)
	if !ok {
		s.logger.Warn("No amount in SMS body",
			zap.String("payment_ref", ref),
			zap.String("text", domain.Truncate(n.Text, domain.NoteMaxLen)))
		return nil, domain.ErrNoAmount
	}

	lookupCtx, cancel := context.WithTimeout(ctx, s.opts.DBOpTimeout)
	order, err := s.orderRepo.GetOrderByPaymentRef(lookupCtx, ref)
	cancel()
	if err != nil {
		if errors.Is(err, domain.ErrPaymentRefNotFound) {
			s.logger.Warn("No order for payment reference", zap.String("payment_ref", ref))
			return nil, err
		}
		s.logger.Error("Failed to look up order by payment reference", zap.String("payment_ref", ref), zap.Error(err))
		return nil, fmt.Errorf("failed to look up order for reference %s: %w", ref, err)
	}

	result := &ReconciliationResult{
		OrderID:        order.ID,
		PaymentRef:     order.PaymentRef,
		ExpectedAmount: order.TotalAmount,
		ReceivedAmount: amount,
	}

	// Repeat delivery of a settled payment is a success with no mutation.
	if order.PaymentStatus == domain.PaymentStatusPaid {
		s.logger.Info("Order already paid, ignoring duplicate notification",
			zap.String("order_id", order.ID), zap.String("payment_ref", ref))
		result.Outcome = OutcomeAlreadyPaid
		if order.PaidAmount != nil {
			result.ReceivedAmount = *order.PaidAmount
		}
		return result, nil
	}

	var eventType string
	if payref.AmountsMatch(order.TotalAmount, amount, s.opts.TolerancePercent) {
		if err := order.MarkAsPaid(amount, n.Text); err != nil {
			return nil, err
		}
		result.Outcome = OutcomePaid
		eventType = EventPaymentMatched
	} else {
		if err := order.MarkForReview(amount, n.Text); err != nil {
			return nil, err
		}
		result.Outcome = OutcomeReview
		eventType = EventPaymentReviewFlagged
	}

	msg, err := newOutboxMessage(s.opts.EventTopic, eventType, order, order.UpdatedAt)
	if err != nil {
		return nil, err
	}

	updateCtx, cancel := context.WithTimeout(ctx, s.opts.DBOpTimeout)
	err = s.orderRepo.UpdatePaymentStateAndOutboxMessage(updateCtx, order, msg)
	cancel()
	if err != nil {
		s.logger.Error("Failed to persist reconciliation result",
			zap.String("order_id", order.ID),
			zap.String("outcome", string(result.Outcome)),
			zap.Error(err))
		return nil, fmt.Errorf("failed to update order %s: %w", order.ID, err)
	}

	if result.Outcome == OutcomePaid {
		s.logger.Info("Payment matched",
			zap.String("order_id", order.ID),
			zap.String("payment_ref", ref),
			zap.Float64("amount", amount))
	} else {
		s.logger.Warn("Payment amount mismatch, order flagged for review",
			zap.String("order_id", order.ID),
			zap.String("payment_ref", ref),
			zap.Float64("expected", order.TotalAmount),
			zap.Float64("received", amount))
	}

	return result, nil
}

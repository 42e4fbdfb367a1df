package domain

import (
	"errors"
	"fmt"
	"time"
)

type PaymentStatus string

const (
	PaymentStatusPending       PaymentStatus = "Pending"
	PaymentStatusPaid          PaymentStatus = "Paid"
	PaymentStatusPendingReview PaymentStatus = "PendingReview"
	PaymentStatusFailed        PaymentStatus = "Failed"
	PaymentStatusRefunded      PaymentStatus = "Refunded"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// NoteMaxLen bounds the copy of the raw SMS body stored in PaymentNote.
const NoteMaxLen = 200

type Order struct {
	ID            string
	UserID        string
	PaymentRef    string
	TotalAmount   float64
	PaidAmount    *float64
	PaymentStatus PaymentStatus
	Status        OrderStatus
	PaymentNote   string
	Items         []OrderItem
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type OrderItem struct {
	ID        string
	OrderID   string
	ProductID string
	Name      string
	Quantity  int
	UnitPrice float64
}

func NewOrder(id, userID, paymentRef string, items []OrderItem) (*Order, error) {
	if id == "" || userID == "" || paymentRef == "" {
		return nil, errors.New("invalid order data")
	}
	if len(items) == 0 {
		return nil, errors.New("order must have at least one item")
	}
	total := 0.0
	for _, it := range items {
		if it.Quantity <= 0 || it.UnitPrice <= 0 {
			return nil, fmt.Errorf("invalid order item %q", it.ProductID)
		}
		total += float64(it.Quantity) * it.UnitPrice
	}
	now := time.Now()
	return &Order{
		ID:            id,
		UserID:        userID,
		PaymentRef:    paymentRef,
		TotalAmount:   total,
		PaymentStatus: PaymentStatusPending,
		Status:        OrderStatusPending,
		Items:         items,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// MarkAsPaid records a successful reconciliation: the order moves to Paid and
// fulfilment kicks off. Calling it on an already Paid order is an error; the
// caller is expected to short-circuit on Paid before reconciling.
func (o *Order) MarkAsPaid(paidAmount float64, smsBody string) error {
	if o.PaymentStatus == PaymentStatusPaid {
		return errors.New("order is already paid")
	}
	o.PaymentStatus = PaymentStatusPaid
	o.Status = OrderStatusProcessing
	o.PaidAmount = &paidAmount
	o.PaymentNote = "SMS: " + Truncate(smsBody, NoteMaxLen)
	o.UpdatedAt = time.Now()
	return nil
}

// MarkForReview records a reference match whose amount fell outside tolerance.
// Repeatable: each attempt overwrites the previous amount and note.
func (o *Order) MarkForReview(paidAmount float64, smsBody string) error {
	if o.PaymentStatus == PaymentStatusPaid {
		return errors.New("cannot flag a paid order for review")
	}
	o.PaymentStatus = PaymentStatusPendingReview
	o.PaidAmount = &paidAmount
	o.PaymentNote = fmt.Sprintf("Amount mismatch: expected %.2f, received %.2f. SMS: %s",
		o.TotalAmount, paidAmount, Truncate(smsBody, NoteMaxLen))
	o.UpdatedAt = time.Now()
	return nil
}

// Truncate cuts s to at most max runes. Rune-based so Cyrillic SMS bodies
// are not split mid-character.
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

package payments

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Zenithi77/Selly-Fashion-sub000/internal/domain"
)

// fakeOrderRepo is an in-memory OrderRepository.
type fakeOrderRepo struct {
	orders     map[string]*domain.Order // by id
	byRef      map[string]*domain.Order
	outbox     []*domain.OutboxMessage
	failUpdate error
	takenOnce  bool // first create returns ErrPaymentRefTaken
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		orders: make(map[string]*domain.Order),
		byRef:  make(map[string]*domain.Order),
	}
}

func (f *fakeOrderRepo) CreateOrderAndOutboxMessage(ctx context.Context, order *domain.Order, msg *domain.OutboxMessage) error {
	if f.takenOnce {
		f.takenOnce = false
		return domain.ErrPaymentRefTaken
	}
	if _, exists := f.byRef[order.PaymentRef]; exists {
		return domain.ErrPaymentRefTaken
	}
	cp := *order
	f.orders[order.ID] = &cp
	f.byRef[order.PaymentRef] = &cp
	f.outbox = append(f.outbox, msg)
	return nil
}

func (f *fakeOrderRepo) GetOrderByID(ctx context.Context, id string) (*domain.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrderRepo) GetOrderByPaymentRef(ctx context.Context, ref string) (*domain.Order, error) {
	o, ok := f.byRef[ref]
	if !ok {
		return nil, domain.ErrPaymentRefNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrderRepo) UpdatePaymentStateAndOutboxMessage(ctx context.Context, order *domain.Order, msg *domain.OutboxMessage) error {
	if f.failUpdate != nil {
		return f.failUpdate
	}
	stored, ok := f.orders[order.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	*stored = *order
	f.outbox = append(f.outbox, msg)
	return nil
}

func newTestService(repo *fakeOrderRepo) PaymentService {
	return NewPaymentService(repo, Options{
		RefPrefix:        "SF",
		TolerancePercent: 5,
		DBOpTimeout:      time.Second,
		EventTopic:       "payment_events",
		Bank: BankInstructions{
			BankName:      "Khan Bank",
			AccountNumber: "5000123456",
			AccountHolder: "Selly Fashion LLC",
		},
	}, zap.NewNop())
}

func createTestOrder(t *testing.T, svc PaymentService) *CreateOrderResponse {
	t.Helper()
	resp, err := svc.CreateOrder(context.Background(), &CreateOrderRequest{
		UserID: "user-1",
		Items: []OrderItemRequest{
			{ProductID: "p1", Name: "Silk dress", Quantity: 1, UnitPrice: 20000},
			{ProductID: "p2", Name: "Leather belt", Quantity: 1, UnitPrice: 5000},
		},
	})
	require.NoError(t, err)
	return resp
}

func TestCreateOrder(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := newTestService(repo)

	resp := createTestOrder(t, svc)

	assert.Equal(t, float64(25000), resp.TotalAmount)
	assert.Equal(t, "Pending", resp.PaymentStatus)
	assert.Equal(t, "pending", resp.Status)
	assert.Regexp(t, `^SF-[A-Z0-9]{5}$`, resp.PaymentRef)
	assert.Equal(t, "Khan Bank", resp.BankInstructions.BankName)

	stored := repo.byRef[resp.PaymentRef]
	require.NotNil(t, stored)
	assert.Len(t, stored.Items, 2)

	require.Len(t, repo.outbox, 1)
	var ev PaymentEvent
	require.NoError(t, json.Unmarshal(repo.outbox[0].Payload, &ev))
	assert.Equal(t, EventOrderCreated, ev.EventType)
	assert.Equal(t, resp.OrderID, ev.OrderID)
}

func TestCreateOrder_RetriesOnRefCollision(t *testing.T) {
	repo := newFakeOrderRepo()
	repo.takenOnce = true
	svc := newTestService(repo)

	resp := createTestOrder(t, svc)
	assert.NotEmpty(t, resp.PaymentRef)
	assert.Len(t, repo.orders, 1)
}

func TestCreateOrder_Invalid(t *testing.T) {
	svc := newTestService(newFakeOrderRepo())

	_, err := svc.CreateOrder(context.Background(), &CreateOrderRequest{UserID: "u", Items: nil})
	assert.ErrorIs(t, err, ErrInvalidOrder)

	_, err = svc.CreateOrder(context.Background(), &CreateOrderRequest{
		UserID: "u",
		Items:  []OrderItemRequest{{ProductID: "p", Quantity: 0, UnitPrice: 100}},
	})
	assert.ErrorIs(t, err, ErrInvalidOrder)
}

func TestProcessBankSMS_HappyPath(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := newTestService(repo)
	order := createTestOrder(t, svc)

	result, err := svc.ProcessBankSMS(context.Background(), &BankSMSNotification{
		Sender: "Khan Bank",
		Text:   "Гүйлгээний утга: " + order.PaymentRef + " дүн 25,000.00 dungeer",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomePaid, result.Outcome)
	assert.Equal(t, order.OrderID, result.OrderID)
	assert.Equal(t, float64(25000), result.ReceivedAmount)

	stored := repo.orders[order.OrderID]
	assert.Equal(t, domain.PaymentStatusPaid, stored.PaymentStatus)
	assert.Equal(t, domain.OrderStatusProcessing, stored.Status)
	require.NotNil(t, stored.PaidAmount)
	assert.Equal(t, float64(25000), *stored.PaidAmount)
	assert.Contains(t, stored.PaymentNote, "SMS: ")

	// status poll observes the transition
	status, err := svc.GetPaymentStatus(context.Background(), order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "Paid", status.PaymentStatus)
	assert.Equal(t, "processing", status.OrderStatus)
}

func TestProcessBankSMS_ToleranceAbsorbsBankFee(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := newTestService(repo)
	order := createTestOrder(t, svc) // total 25000

	// 24,000 is within 5% of 25,000
	result, err := svc.ProcessBankSMS(context.Background(), &BankSMSNotification{
		Sender: "Khan Bank",
		Text:   order.PaymentRef + " 24,000.00 MNT",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomePaid, result.Outcome)
}

func TestProcessBankSMS_Idempotent(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := newTestService(repo)
	order := createTestOrder(t, svc)

	n := &BankSMSNotification{
		Sender: "Khan Bank",
		Text:   "Гүйлгээний утга: " + order.PaymentRef + " дүн 25,000.00 dungeer",
	}
	first, err := svc.ProcessBankSMS(context.Background(), n)
	require.NoError(t, err)
	require.Equal(t, OutcomePaid, first.Outcome)

	noteBefore := repo.orders[order.OrderID].PaymentNote
	updatedBefore := repo.orders[order.OrderID].UpdatedAt
	outboxBefore := len(repo.outbox)

	second, err := svc.ProcessBankSMS(context.Background(), n)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyPaid, second.Outcome)

	stored := repo.orders[order.OrderID]
	assert.Equal(t, noteBefore, stored.PaymentNote)
	assert.Equal(t, updatedBefore, stored.UpdatedAt)
	assert.Equal(t, float64(25000), *stored.PaidAmount)
	assert.Len(t, repo.outbox, outboxBefore, "replay must not emit a new event")
}

func TestProcessBankSMS_MismatchRoutesToReview(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := newTestService(repo)
	order := createTestOrder(t, svc) // total 25000

	result, err := svc.ProcessBankSMS(context.Background(), &BankSMSNotification{
		Sender: "Khan Bank",
		Text:   "Гүйлгээний утга: " + order.PaymentRef + " дүн 20,000.00 dungeer",
	})
	require.NoError(t, err, "a mismatch is a business outcome, not a transport error")
	assert.Equal(t, OutcomeReview, result.Outcome)
	assert.Equal(t, float64(25000), result.ExpectedAmount)
	assert.Equal(t, float64(20000), result.ReceivedAmount)

	stored := repo.orders[order.OrderID]
	assert.Equal(t, domain.PaymentStatusPendingReview, stored.PaymentStatus)
	assert.Equal(t, domain.OrderStatusPending, stored.Status, "fulfilment status untouched on mismatch")
	assert.Equal(t, float64(25000), stored.TotalAmount)
	require.NotNil(t, stored.PaidAmount)
	assert.Equal(t, float64(20000), *stored.PaidAmount)
	assert.Contains(t, stored.PaymentNote, "25000")
	assert.Contains(t, stored.PaymentNote, "20000")
}

func TestProcessBankSMS_LaterMatchingSMSSettlesReviewedOrder(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := newTestService(repo)
	order := createTestOrder(t, svc)

	_, err := svc.ProcessBankSMS(context.Background(), &BankSMSNotification{
		Sender: "Khan Bank",
		Text:   order.PaymentRef + " 10,000 MNT",
	})
	require.NoError(t, err)
	require.Equal(t, domain.PaymentStatusPendingReview, repo.orders[order.OrderID].PaymentStatus)

	result, err := svc.ProcessBankSMS(context.Background(), &BankSMSNotification{
		Sender: "Khan Bank",
		Text:   order.PaymentRef + " 25,000 MNT",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomePaid, result.Outcome)
	assert.Equal(t, domain.PaymentStatusPaid, repo.orders[order.OrderID].PaymentStatus)
}

func TestProcessBankSMS_Rejections(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := newTestService(repo)
	createTestOrder(t, svc)

	tests := []struct {
		name    string
		n       *BankSMSNotification
		wantErr error
	}{
		{"invalid sender", &BankSMSNotification{Sender: "spam", Text: "SF-ABC12 5000 MNT"}, domain.ErrInvalidSender},
		{"empty body", &BankSMSNotification{Sender: "Khan Bank", Text: ""}, domain.ErrEmptySMSBody},
		{"no reference", &BankSMSNotification{Sender: "Khan Bank", Text: "orlogo 5000 MNT"}, domain.ErrNoReference},
		{"no amount", &BankSMSNotification{Sender: "Khan Bank", Text: "Guilgeenii utga: ZZ-ZZZZZ"}, domain.ErrNoAmount},
		{"unknown reference", &BankSMSNotification{Sender: "Khan Bank", Text: "ZZ-ZZZZZ 5000 MNT"}, domain.ErrPaymentRefNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ProcessBankSMS(context.Background(), tt.n)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	// rejected notifications never mutate state
	for _, o := range repo.orders {
		assert.Equal(t, domain.PaymentStatusPending, o.PaymentStatus)
	}
}

func TestProcessBankSMS_StoreFailureSurfaces(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := newTestService(repo)
	order := createTestOrder(t, svc)

	repo.failUpdate = errors.New("connection reset")
	_, err := svc.ProcessBankSMS(context.Background(), &BankSMSNotification{
		Sender: "Khan Bank",
		Text:   order.PaymentRef + " 25,000 MNT",
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrPaymentRefNotFound)
}

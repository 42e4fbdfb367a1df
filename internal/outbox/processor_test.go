package outbox

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/Zenithi77/Selly-Fashion-sub000/internal/domain"
)

type fakeOutboxRepo struct {
	pending []domain.OutboxMessage
	sent    []string
	failed  []string
}

func (f *fakeOutboxRepo) CreateMessageTx(ctx context.Context, tx *sql.Tx, msg *domain.OutboxMessage) error {
	return nil
}

func (f *fakeOutboxRepo) GetPendingMessages(ctx context.Context, limit int) ([]domain.OutboxMessage, error) {
	if len(f.pending) > limit {
		return f.pending[:limit], nil
	}
	return f.pending, nil
}

func (f *fakeOutboxRepo) MarkMessagesAsSent(ctx context.Context, ids []string) error {
	f.sent = append(f.sent, ids...)
	return nil
}

func (f *fakeOutboxRepo) MarkMessagesAsFailed(ctx context.Context, ids []string) error {
	f.failed = append(f.failed, ids...)
	return nil
}

type fakeProducer struct {
	produced []string // topics
	failFor  map[string]bool
}

func (f *fakeProducer) Produce(ctx context.Context, topic string, key, message []byte) error {
	if f.failFor[string(key)] {
		return errors.New("broker unavailable")
	}
	f.produced = append(f.produced, topic)
	return nil
}

func (f *fakeProducer) Close() error { return nil }

func TestProcessor_SendsPendingAndMarksOutcome(t *testing.T) {
	repo := &fakeOutboxRepo{
		pending: []domain.OutboxMessage{
			{ID: "m1", Topic: "payment_events", Key: "o1", Payload: []byte(`{}`), Status: domain.OutboxStatusPending},
			{ID: "m2", Topic: "payment_events", Key: "o2", Payload: []byte(`{}`), Status: domain.OutboxStatusPending},
		},
	}
	producer := &fakeProducer{failFor: map[string]bool{"o2": true}}
	p := NewProcessor(repo, producer, time.Second, time.Second, zap.NewNop())

	p.processOutboxMessages(context.Background())

	assert.Equal(t, []string{"m1"}, repo.sent)
	assert.Equal(t, []string{"m2"}, repo.failed)
	assert.Len(t, producer.produced, 1)
}

func TestProcessor_StartStopsOnContextCancel(t *testing.T) {
	repo := &fakeOutboxRepo{}
	p := NewProcessor(repo, &fakeProducer{}, 5*time.Millisecond, time.Second, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Start(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("processor did not stop after context cancellation")
	}
}

package paymentpoll

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statusServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestWatcher_WaitsUntilPaid(t *testing.T) {
	var calls atomic.Int32
	srv := statusServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payment/status/order-1", r.URL.Path)
		status := "Pending"
		if calls.Add(1) >= 3 {
			status = "Paid"
		}
		json.NewEncoder(w).Encode(Status{Success: true, OrderID: "order-1", PaymentStatus: status})
	})

	w := &Watcher{BaseURL: srv.URL, Interval: 10 * time.Millisecond}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status, err := w.Wait(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, "Paid", status.PaymentStatus)
	assert.GreaterOrEqual(t, calls.Load(), int32(3))
}

func TestWatcher_ToleratesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := statusServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(Status{Success: true, OrderID: "order-1", PaymentStatus: "Paid"})
	})

	w := &Watcher{BaseURL: srv.URL, Interval: 10 * time.Millisecond}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status, err := w.Wait(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, "Paid", status.PaymentStatus)
}

func TestWatcher_StopsOnCancellation(t *testing.T) {
	srv := statusServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Status{Success: true, OrderID: "order-1", PaymentStatus: "Pending"})
	})

	w := &Watcher{BaseURL: srv.URL, Interval: 10 * time.Millisecond}
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	_, err := w.Wait(ctx, "order-1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

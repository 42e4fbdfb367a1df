// Package paymentpoll is the client half of the payment status contract: a
// storefront creates an order, shows the buyer the transfer instructions and
// then watches the status endpoint until the payment settles.
package paymentpoll

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DefaultInterval is how often the watcher polls the status endpoint.
const DefaultInterval = 5 * time.Second

// Status is the payload of GET /payment/status/{orderID}.
type Status struct {
	Success       bool     `json:"success"`
	OrderID       string   `json:"orderId"`
	PaymentStatus string   `json:"paymentStatus"`
	PaymentRef    string   `json:"paymentRef"`
	OrderStatus   string   `json:"orderStatus"`
	TotalAmount   float64  `json:"totalAmount"`
	PaidAmount    *float64 `json:"paidAmount"`
}

type Watcher struct {
	// BaseURL of the payments service, e.g. "https://shop.example.com".
	BaseURL string
	// Interval between polls; DefaultInterval when zero.
	Interval time.Duration
	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client
}

// Wait polls the status endpoint until the order reports Paid, returning the
// final status. Transient fetch failures are swallowed: the watcher simply
// tries again next tick. There is no built-in deadline; cancel ctx to stop
// waiting (a buyer who never transfers stays Pending forever).
func (w *Watcher) Wait(ctx context.Context, orderID string) (*Status, error) {
	interval := w.Interval
	if interval == 0 {
		interval = DefaultInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		status, err := w.fetch(ctx, orderID)
		if err == nil && status.PaymentStatus == "Paid" {
			return status, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *Watcher) fetch(ctx context.Context, orderID string) (*Status, error) {
	client := w.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	url := fmt.Sprintf("%s/payment/status/%s", w.BaseURL, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status endpoint returned %d", resp.StatusCode)
	}

	var status Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode status response: %w", err)
	}
	return &status, nil
}

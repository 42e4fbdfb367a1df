package payments

type OrderItemRequest struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type CreateOrderRequest struct {
	UserID string             `json:"user_id"`
	Items  []OrderItemRequest `json:"items"`
}

// BankInstructions tell the buyer where to send the transfer and which memo
// to use. The reference must be entered verbatim as the transfer memo.
type BankInstructions struct {
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	AccountHolder string `json:"account_holder"`
}

type CreateOrderResponse struct {
	OrderID          string           `json:"order_id"`
	PaymentRef       string           `json:"payment_ref"`
	TotalAmount      float64          `json:"total_amount"`
	PaymentStatus    string           `json:"payment_status"`
	Status           string           `json:"status"`
	BankInstructions BankInstructions `json:"bank_instructions"`
}

type OrderItemResponse struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type OrderResponse struct {
	OrderID       string              `json:"order_id"`
	UserID        string              `json:"user_id"`
	PaymentRef    string              `json:"payment_ref"`
	TotalAmount   float64             `json:"total_amount"`
	PaidAmount    *float64            `json:"paid_amount"`
	PaymentStatus string              `json:"payment_status"`
	Status        string              `json:"status"`
	Items         []OrderItemResponse `json:"items"`
}

type PaymentStatusResponse struct {
	OrderID       string   `json:"orderId"`
	PaymentStatus string   `json:"paymentStatus"`
	PaymentRef    string   `json:"paymentRef"`
	OrderStatus   string   `json:"orderStatus"`
	TotalAmount   float64  `json:"totalAmount"`
	PaidAmount    *float64 `json:"paidAmount"`
}

// BankSMSNotification is one inbound webhook call describing a claimed bank
// SMS. Secret verification and rate limiting happen before it reaches the
// service.
type BankSMSNotification struct {
	Sender string
	Text   string
}

type ReconciliationOutcome string

const (
	// OutcomePaid: reference and amount both matched, order moved to Paid.
	OutcomePaid ReconciliationOutcome = "paid"
	// OutcomeAlreadyPaid: idempotent replay of a settled payment, no mutation.
	OutcomeAlreadyPaid ReconciliationOutcome = "already_paid"
	// OutcomeReview: reference matched but amount fell outside tolerance.
	OutcomeReview ReconciliationOutcome = "pending_review"
)

type ReconciliationResult struct {
	Outcome        ReconciliationOutcome
	OrderID        string
	PaymentRef     string
	ExpectedAmount float64
	ReceivedAmount float64
}

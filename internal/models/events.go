package models

import "time"

// Event types
const (
	EventTypeSaleCreated      = "SALE_CREATED"
	EventTypeSaleCancelled    = "SALE_CANCELLED"
	EventTypeSalePaymentAdded = "SALE_PAYMENT_ADDED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// SaleCreatedEvent published after a sale transaction commits
type SaleCreatedEvent struct {
	BaseEvent
	SaleID     int64          `json:"sale_id"`
	CustomerID int64          `json:"customer_id"`
	SellerID   int64          `json:"seller_id"`
	Total      int64          `json:"total"`
	Status     string         `json:"status"`
	Items      []SaleItemData `json:"items"`
}

// SaleCancelledEvent published after a cancellation commits
type SaleCancelledEvent struct {
	BaseEvent
	SaleID      int64  `json:"sale_id"`
	CustomerID  int64  `json:"customer_id"`
	CancelledBy int64  `json:"cancelled_by"`
	Reason      string `json:"reason"`
}

// SalePaymentAddedEvent published after a payment append commits
type SalePaymentAddedEvent struct {
	BaseEvent
	SaleID    int64  `json:"sale_id"`
	PaymentID int64  `json:"payment_id"`
	Method    string `json:"method"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
}

// SaleItemData represents item data in events
type SaleItemData struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
	UnitPrice int64 `json:"unit_price"`
}

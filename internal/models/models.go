package models

import "time"

// Product represents a product in the catalog. Stock is mutated only through
// the stock ledger operations inside a sale transaction.
type Product struct {
	ID        int64     `db:"id" json:"id"`
	SKU       string    `db:"sku" json:"sku"`
	Name      string    `db:"name" json:"name"`
	Price     int64     `db:"price" json:"price"`
	Stock     int       `db:"stock" json:"stock"`
	MinStock  int       `db:"min_stock" json:"min_stock"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Customer represents a customer with running purchase counters.
type Customer struct {
	ID             int64      `db:"id" json:"id"`
	Name           string     `db:"name" json:"name"`
	Email          string     `db:"email" json:"email"`
	TotalPurchases int        `db:"total_purchases" json:"total_purchases"`
	LastPurchase   *time.Time `db:"last_purchase" json:"last_purchase,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// Sale is the aggregate root of a single transaction. Items are immutable
// after creation, payments are append-only, status is always derived from
// payments and total.
type Sale struct {
	ID                 int64      `db:"id" json:"id"`
	CustomerID         int64      `db:"customer_id" json:"customer_id"`
	SellerID           int64      `db:"seller_id" json:"seller_id"`
	Subtotal           int64      `db:"subtotal" json:"subtotal"`
	Discount           int64      `db:"discount" json:"discount"`
	Tax                int64      `db:"tax" json:"tax"`
	Total              int64      `db:"total" json:"total"`
	Status             string     `db:"status" json:"status"`
	CancelledAt        *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CancelledBy        *int64     `db:"cancelled_by" json:"cancelled_by,omitempty"`
	CancellationReason *string    `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	IdempotencyKey     string     `db:"idempotency_key" json:"idempotency_key,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// SaleItem is one line of a sale. Quantities here are the authoritative
// record of how much stock was reserved at creation.
type SaleItem struct {
	ID        int64 `db:"id" json:"id"`
	SaleID    int64 `db:"sale_id" json:"sale_id"`
	ProductID int64 `db:"product_id" json:"product_id"`
	Quantity  int   `db:"quantity" json:"quantity"`
	UnitPrice int64 `db:"unit_price" json:"unit_price"`
	Discount  int64 `db:"discount" json:"discount"`
}

// Payment is one payment recorded against a sale.
type Payment struct {
	ID        int64     `db:"id" json:"id"`
	SaleID    int64     `db:"sale_id" json:"sale_id"`
	Method    string    `db:"method" json:"method"`
	Amount    int64     `db:"amount" json:"amount"`
	Reference *string   `db:"reference" json:"reference,omitempty"`
	PaidAt    time.Time `db:"paid_at" json:"paid_at"`
}

// Sale statuses
const (
	SaleStatusPending       = "PENDING"
	SaleStatusPartiallyPaid = "PARTIALLY_PAID"
	SaleStatusPaid          = "PAID"
	SaleStatusCancelled     = "CANCELLED"
)

// Payment methods
const (
	PaymentMethodCash         = "CASH"
	PaymentMethodCreditCard   = "CREDIT_CARD"
	PaymentMethodDebitCard    = "DEBIT_CARD"
	PaymentMethodBankTransfer = "BANK_TRANSFER"
	PaymentMethodCheck        = "CHECK"
)

// ValidPaymentMethod reports whether method is one of the defined payment methods.
func ValidPaymentMethod(method string) bool {
	switch method {
	case PaymentMethodCash, PaymentMethodCreditCard, PaymentMethodDebitCard,
		PaymentMethodBankTransfer, PaymentMethodCheck:
		return true
	}
	return false
}

// PaymentMethodStats is the per-method slice of the statistics breakdown.
type PaymentMethodStats struct {
	Count  int   `db:"count" json:"count"`
	Amount int64 `db:"amount" json:"amount"`
}

// SalesStatistics summarizes non-cancelled sales over a time window.
type SalesStatistics struct {
	TotalSales     int                           `json:"total_sales"`
	TotalRevenue   int64                         `json:"total_revenue"`
	AverageTicket  int64                         `json:"average_ticket"`
	TotalItems     int                           `json:"total_items"`
	PaymentMethods map[string]PaymentMethodStats `json:"payment_methods"`
	StartDate      *time.Time                    `json:"start_date,omitempty"`
	EndDate        *time.Time                    `json:"end_date,omitempty"`
}

// ProcessedEvent for idempotent event consumption
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}

package service

import (
	"context"
	"time"

	"sales-service/internal/models"
	"sales-service/internal/store"
)

// Storage is the persistence surface the sale transaction engine works
// against. *store.Store is the production implementation; tests use an
// in-memory fake.
type Storage interface {
	// WithTx runs fn as one atomic unit spanning the stock ledger, the sale
	// record and the customer purchase counters.
	WithTx(ctx context.Context, fn func(tx store.SaleTx) error) error

	GetSaleByID(ctx context.Context, id int64) (*models.Sale, []models.SaleItem, []models.Payment, error)
	GetSaleByIdempotencyKey(ctx context.Context, key string) (*models.Sale, error)
	ListSalesByCustomerID(ctx context.Context, customerID int64) ([]models.Sale, error)
	SalesStatistics(ctx context.Context, start, end *time.Time) (*models.SalesStatistics, error)
}

// EventPublisher notifies audit/notification observers after a transaction
// has committed. Publish failures are logged, never surfaced to callers.
type EventPublisher interface {
	PublishSaleCreated(ctx context.Context, event *models.SaleCreatedEvent) error
	PublishSaleCancelled(ctx context.Context, event *models.SaleCancelledEvent) error
	PublishSalePaymentAdded(ctx context.Context, event *models.SalePaymentAddedEvent) error
}

// StatsCache caches statistics results and is invalidated wholesale after
// any sale mutation.
type StatsCache interface {
	GetStatistics(ctx context.Context, windowKey string) (*models.SalesStatistics, bool, error)
	SetStatistics(ctx context.Context, windowKey string, stats *models.SalesStatistics) error
	BumpStatsVersion(ctx context.Context) error
}

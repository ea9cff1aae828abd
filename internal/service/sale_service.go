package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sales-service/internal/models"
	"sales-service/internal/store"
	"sales-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SaleService is the sale transaction engine. It composes the stock ledger,
// the sale record and the customer purchase aggregate into atomic
// create/cancel/add-payment operations and derives sale status from payment
// totals.
type SaleService struct {
	storage   Storage
	publisher EventPublisher
	cache     StatsCache
	logger    *zap.Logger
}

// NewSaleService creates a new sale service. publisher and cache may be nil.
func NewSaleService(storage Storage, publisher EventPublisher, cache StatsCache) *SaleService {
	return &SaleService{
		storage:   storage,
		publisher: publisher,
		cache:     cache,
		logger:    util.GetLogger(),
	}
}

// CreateSaleRequest represents a request to create a sale
type CreateSaleRequest struct {
	CustomerID     int64             `json:"customer_id" binding:"required"`
	SellerID       int64             `json:"seller_id" binding:"required"`
	Items          []SaleItemRequest `json:"items" binding:"required,min=1,dive"`
	Payments       []PaymentRequest  `json:"payments" binding:"omitempty,dive"`
	Subtotal       int64             `json:"subtotal" binding:"min=0"`
	Discount       int64             `json:"discount" binding:"min=0"`
	Tax            int64             `json:"tax" binding:"min=0"`
	Total          int64             `json:"total" binding:"min=0"`
	IdempotencyKey string            `json:"idempotency_key,omitempty"`
}

// SaleItemRequest represents one line item in a sale request
type SaleItemRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,min=1"`
	UnitPrice int64 `json:"unit_price" binding:"min=0"`
	Discount  int64 `json:"discount" binding:"min=0"`
}

// PaymentRequest represents a payment in a sale or add-payment request
type PaymentRequest struct {
	Method    string `json:"method" binding:"required"`
	Amount    int64  `json:"amount" binding:"required"`
	Reference string `json:"reference,omitempty"`
}

// SaleDetail is a sale with its items and payment history
type SaleDetail struct {
	Sale     models.Sale       `json:"sale"`
	Items    []models.SaleItem `json:"items"`
	Payments []models.Payment  `json:"payments"`
}

// CreateSale atomically reserves stock for every line item, persists the
// sale with its payments, and records the purchase on the customer. If any
// step fails nothing is applied: no stock decrement, no sale record, no
// counter change.
func (s *SaleService) CreateSale(ctx context.Context, req *CreateSaleRequest) (*SaleDetail, error) {
	ctx, span := util.StartSpan(ctx, "SaleService.CreateSale")
	defer span.End()

	start := time.Now()
	defer func() {
		util.SaleTransactionLatency.WithLabelValues("create").Observe(time.Since(start).Seconds())
	}()

	if len(req.Items) == 0 {
		util.SalesFailedTotal.WithLabelValues("no_items").Inc()
		return nil, models.ErrNoItems
	}
	if err := validatePayments(req.Payments); err != nil {
		util.SalesFailedTotal.WithLabelValues("invalid_payment").Inc()
		return nil, err
	}

	if req.IdempotencyKey != "" {
		existing, err := s.storage.GetSaleByIdempotencyKey(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("failed to check idempotency: %w", err)
		}
		if existing != nil {
			s.logger.Info("Duplicate sale request detected",
				zap.String("idempotency_key", req.IdempotencyKey),
				zap.Int64("sale_id", existing.ID))
			return s.GetSale(ctx, existing.ID)
		}
	}

	now := time.Now()
	var detail *SaleDetail

	err := s.storage.WithTx(ctx, func(tx store.SaleTx) error {
		for _, item := range req.Items {
			if err := tx.ReserveStock(ctx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}

		payments := make([]models.Payment, 0, len(req.Payments))
		for _, p := range req.Payments {
			payment := models.Payment{
				Method: p.Method,
				Amount: p.Amount,
				PaidAt: now,
			}
			if p.Reference != "" {
				ref := p.Reference
				payment.Reference = &ref
			}
			payments = append(payments, payment)
		}

		sale := &models.Sale{
			CustomerID:     req.CustomerID,
			SellerID:       req.SellerID,
			Subtotal:       req.Subtotal,
			Discount:       req.Discount,
			Tax:            req.Tax,
			Total:          req.Total,
			Status:         models.DeriveStatus(payments, req.Total, false),
			IdempotencyKey: req.IdempotencyKey,
		}
		if err := tx.InsertSale(ctx, sale); err != nil {
			return fmt.Errorf("failed to create sale: %w", err)
		}

		items := make([]models.SaleItem, 0, len(req.Items))
		for _, item := range req.Items {
			saleItem := models.SaleItem{
				SaleID:    sale.ID,
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				UnitPrice: item.UnitPrice,
				Discount:  item.Discount,
			}
			if err := tx.InsertSaleItem(ctx, &saleItem); err != nil {
				return fmt.Errorf("failed to create sale item: %w", err)
			}
			items = append(items, saleItem)
		}

		for i := range payments {
			payments[i].SaleID = sale.ID
			if err := tx.InsertPayment(ctx, &payments[i]); err != nil {
				return fmt.Errorf("failed to record payment: %w", err)
			}
		}

		if err := tx.RecordPurchase(ctx, req.CustomerID, now); err != nil {
			return err
		}

		detail = &SaleDetail{Sale: *sale, Items: items, Payments: payments}
		return nil
	})
	if err != nil {
		var stockErr *models.InsufficientStockError
		switch {
		case errors.As(err, &stockErr):
			util.StockReservationsFailed.Inc()
			util.SalesFailedTotal.WithLabelValues("insufficient_stock").Inc()
		case errors.Is(err, models.ErrNotFound):
			util.SalesFailedTotal.WithLabelValues("not_found").Inc()
		default:
			util.SalesFailedTotal.WithLabelValues("db_error").Inc()
		}
		return nil, err
	}

	util.SalesCreatedTotal.Inc()
	s.logger.Info("Sale created",
		zap.Int64("sale_id", detail.Sale.ID),
		zap.Int64("customer_id", detail.Sale.CustomerID),
		zap.String("status", detail.Sale.Status))

	s.invalidateStats(ctx)
	s.publishSaleCreated(ctx, detail)

	return detail, nil
}

// CancelSale reverses a sale: restores stock for every original line item,
// reverts the customer purchase counter, and stamps the cancellation
// metadata. Cancelling an already cancelled sale fails without mutating
// anything a second time.
func (s *SaleService) CancelSale(ctx context.Context, saleID, cancelledBy int64, reason string) (*models.Sale, error) {
	ctx, span := util.StartSpan(ctx, "SaleService.CancelSale")
	defer span.End()

	start := time.Now()
	defer func() {
		util.SaleTransactionLatency.WithLabelValues("cancel").Observe(time.Since(start).Seconds())
	}()

	if strings.TrimSpace(reason) == "" {
		return nil, models.ErrEmptyReason
	}

	now := time.Now()
	var cancelled *models.Sale

	err := s.storage.WithTx(ctx, func(tx store.SaleTx) error {
		sale, err := tx.GetSaleForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		if sale.Status == models.SaleStatusCancelled {
			return fmt.Errorf("sale %d: %w", saleID, models.ErrSaleAlreadyCancelled)
		}

		items, err := tx.SaleItems(ctx, saleID)
		if err != nil {
			return fmt.Errorf("failed to load sale items: %w", err)
		}
		for _, item := range items {
			if err := tx.RestoreStock(ctx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}

		if err := tx.RevertPurchase(ctx, sale.CustomerID); err != nil {
			return err
		}

		if err := tx.MarkSaleCancelled(ctx, saleID, cancelledBy, reason, now); err != nil {
			return fmt.Errorf("failed to cancel sale: %w", err)
		}

		sale.Status = models.SaleStatusCancelled
		sale.CancelledAt = &now
		sale.CancelledBy = &cancelledBy
		sale.CancellationReason = &reason
		cancelled = sale
		return nil
	})
	if err != nil {
		return nil, err
	}

	util.SalesCancelledTotal.Inc()
	s.logger.Info("Sale cancelled",
		zap.Int64("sale_id", saleID),
		zap.Int64("cancelled_by", cancelledBy),
		zap.String("reason", reason))

	s.invalidateStats(ctx)
	s.publishSaleCancelled(ctx, cancelled)

	return cancelled, nil
}

// AddPayment appends a payment to a non-cancelled sale and re-derives its
// status from the full payment history.
func (s *SaleService) AddPayment(ctx context.Context, saleID int64, req *PaymentRequest) (*models.Sale, *models.Payment, error) {
	ctx, span := util.StartSpan(ctx, "SaleService.AddPayment")
	defer span.End()

	start := time.Now()
	defer func() {
		util.SaleTransactionLatency.WithLabelValues("add_payment").Observe(time.Since(start).Seconds())
	}()

	if req.Amount <= 0 {
		util.PaymentsRejectedTotal.WithLabelValues("non_positive_amount").Inc()
		return nil, nil, fmt.Errorf("%w: amount must be positive", models.ErrInvalidPayment)
	}
	if !models.ValidPaymentMethod(req.Method) {
		util.PaymentsRejectedTotal.WithLabelValues("unknown_method").Inc()
		return nil, nil, fmt.Errorf("%w: unrecognized method %q", models.ErrInvalidPayment, req.Method)
	}

	now := time.Now()
	var (
		updated *models.Sale
		added   *models.Payment
	)

	err := s.storage.WithTx(ctx, func(tx store.SaleTx) error {
		sale, err := tx.GetSaleForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		if sale.Status == models.SaleStatusCancelled {
			return fmt.Errorf("sale %d: %w", saleID, models.ErrSaleCancelled)
		}

		payment := &models.Payment{
			SaleID: saleID,
			Method: req.Method,
			Amount: req.Amount,
			PaidAt: now,
		}
		if req.Reference != "" {
			ref := req.Reference
			payment.Reference = &ref
		}
		if err := tx.InsertPayment(ctx, payment); err != nil {
			return fmt.Errorf("failed to record payment: %w", err)
		}

		payments, err := tx.SalePayments(ctx, saleID)
		if err != nil {
			return fmt.Errorf("failed to load payments: %w", err)
		}

		status := models.DeriveStatus(payments, sale.Total, false)
		if status != sale.Status {
			if err := tx.UpdateSaleStatus(ctx, saleID, status); err != nil {
				return fmt.Errorf("failed to update sale status: %w", err)
			}
			sale.Status = status
		}

		updated = sale
		added = payment
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	util.PaymentsAddedTotal.WithLabelValues(req.Method).Inc()
	s.logger.Info("Payment added",
		zap.Int64("sale_id", saleID),
		zap.String("method", req.Method),
		zap.Int64("amount", req.Amount),
		zap.String("status", updated.Status))

	s.invalidateStats(ctx)
	s.publishPaymentAdded(ctx, updated, added)

	return updated, added, nil
}

// GetSale retrieves a sale with its items and payments
func (s *SaleService) GetSale(ctx context.Context, saleID int64) (*SaleDetail, error) {
	sale, items, payments, err := s.storage.GetSaleByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	return &SaleDetail{Sale: *sale, Items: items, Payments: payments}, nil
}

// ListSales retrieves sales for a customer
func (s *SaleService) ListSales(ctx context.Context, customerID int64) ([]models.Sale, error) {
	return s.storage.ListSalesByCustomerID(ctx, customerID)
}

func validatePayments(payments []PaymentRequest) error {
	for _, p := range payments {
		if p.Amount <= 0 {
			return fmt.Errorf("%w: amount must be positive", models.ErrInvalidPayment)
		}
		if !models.ValidPaymentMethod(p.Method) {
			return fmt.Errorf("%w: unrecognized method %q", models.ErrInvalidPayment, p.Method)
		}
	}
	return nil
}

func (s *SaleService) invalidateStats(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.BumpStatsVersion(ctx); err != nil {
		s.logger.Warn("Failed to invalidate statistics cache", zap.Error(err))
	}
}

func (s *SaleService) publishSaleCreated(ctx context.Context, detail *SaleDetail) {
	if s.publisher == nil {
		return
	}

	items := make([]models.SaleItemData, 0, len(detail.Items))
	for _, item := range detail.Items {
		items = append(items, models.SaleItemData{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	event := &models.SaleCreatedEvent{
		BaseEvent:  newBaseEvent(models.EventTypeSaleCreated),
		SaleID:     detail.Sale.ID,
		CustomerID: detail.Sale.CustomerID,
		SellerID:   detail.Sale.SellerID,
		Total:      detail.Sale.Total,
		Status:     detail.Sale.Status,
		Items:      items,
	}
	if err := s.publisher.PublishSaleCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish SaleCreated event", zap.Error(err))
	}
}

func (s *SaleService) publishSaleCancelled(ctx context.Context, sale *models.Sale) {
	if s.publisher == nil {
		return
	}

	event := &models.SaleCancelledEvent{
		BaseEvent:  newBaseEvent(models.EventTypeSaleCancelled),
		SaleID:     sale.ID,
		CustomerID: sale.CustomerID,
	}
	if sale.CancelledBy != nil {
		event.CancelledBy = *sale.CancelledBy
	}
	if sale.CancellationReason != nil {
		event.Reason = *sale.CancellationReason
	}
	if err := s.publisher.PublishSaleCancelled(ctx, event); err != nil {
		s.logger.Error("Failed to publish SaleCancelled event", zap.Error(err))
	}
}

func (s *SaleService) publishPaymentAdded(ctx context.Context, sale *models.Sale, payment *models.Payment) {
	if s.publisher == nil {
		return
	}

	event := &models.SalePaymentAddedEvent{
		BaseEvent: newBaseEvent(models.EventTypeSalePaymentAdded),
		SaleID:    sale.ID,
		PaymentID: payment.ID,
		Method:    payment.Method,
		Amount:    payment.Amount,
		Status:    sale.Status,
	}
	if err := s.publisher.PublishSalePaymentAdded(ctx, event); err != nil {
		s.logger.Error("Failed to publish SalePaymentAdded event", zap.Error(err))
	}
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}

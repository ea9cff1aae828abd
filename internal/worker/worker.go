package worker

import (
	"context"
	"fmt"
	"log"

	"sales-service/internal/broker"
	"sales-service/internal/models"
	"sales-service/internal/store"
	"sales-service/internal/util"

	"go.uber.org/zap"
)

// NotificationWorker consumes sale lifecycle events and dispatches
// notifications. Consumption is idempotent: processed event IDs are recorded
// so redelivered messages are skipped.
type NotificationWorker struct {
	consumer     *broker.Consumer
	store        *store.Store
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewNotificationWorker creates a new notification worker
func NewNotificationWorker(consumer *broker.Consumer, store *store.Store) *NotificationWorker {
	w := &NotificationWorker{
		consumer: consumer,
		store:    store,
		logger:   util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnSaleCreated(w.notifySaleCreated)
	eventHandler.OnSaleCancelled(w.notifySaleCancelled)
	eventHandler.OnSalePaymentAdded(w.notifyPaymentAdded)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *NotificationWorker) Start(ctx context.Context) error {
	log.Println("Starting notification worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *NotificationWorker) Stop() error {
	log.Println("Stopping notification worker...")
	return w.consumer.Close()
}

func (w *NotificationWorker) notifySaleCreated(ctx context.Context, event *models.SaleCreatedEvent) error {
	return w.once(ctx, event.BaseEvent, func() {
		w.logger.Info("Notification: sale created",
			zap.Int64("sale_id", event.SaleID),
			zap.Int64("customer_id", event.CustomerID),
			zap.Int64("total", event.Total),
			zap.String("status", event.Status))
	})
}

func (w *NotificationWorker) notifySaleCancelled(ctx context.Context, event *models.SaleCancelledEvent) error {
	return w.once(ctx, event.BaseEvent, func() {
		w.logger.Info("Notification: sale cancelled",
			zap.Int64("sale_id", event.SaleID),
			zap.Int64("cancelled_by", event.CancelledBy),
			zap.String("reason", event.Reason))
	})
}

func (w *NotificationWorker) notifyPaymentAdded(ctx context.Context, event *models.SalePaymentAddedEvent) error {
	return w.once(ctx, event.BaseEvent, func() {
		w.logger.Info("Notification: payment added",
			zap.Int64("sale_id", event.SaleID),
			zap.String("method", event.Method),
			zap.Int64("amount", event.Amount),
			zap.String("status", event.Status))
	})
}

// once runs notify only for events not seen before.
func (w *NotificationWorker) once(ctx context.Context, event models.BaseEvent, notify func()) error {
	processed, err := w.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		w.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	notify()

	if err := w.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}
	return nil
}

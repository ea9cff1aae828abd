package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"sales-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// SaleTx is the set of mutations available inside one atomic sale unit of
// work. Stock reservations, the sale record write, payment appends and the
// customer counters all go through the same transaction: either every effect
// commits or none do.
type SaleTx interface {
	// ReserveStock locks the product row, checks availability and decrements
	// stock. Returns InsufficientStockError without mutating when stock does
	// not cover quantity.
	ReserveStock(ctx context.Context, productID int64, quantity int) error
	// RestoreStock increments stock unconditionally (cancellation compensation).
	RestoreStock(ctx context.Context, productID int64, quantity int) error

	RecordPurchase(ctx context.Context, customerID int64, at time.Time) error
	RevertPurchase(ctx context.Context, customerID int64) error

	InsertSale(ctx context.Context, sale *models.Sale) error
	InsertSaleItem(ctx context.Context, item *models.SaleItem) error
	InsertPayment(ctx context.Context, payment *models.Payment) error

	GetSaleForUpdate(ctx context.Context, saleID int64) (*models.Sale, error)
	SaleItems(ctx context.Context, saleID int64) ([]models.SaleItem, error)
	SalePayments(ctx context.Context, saleID int64) ([]models.Payment, error)

	UpdateSaleStatus(ctx context.Context, saleID int64, status string) error
	MarkSaleCancelled(ctx context.Context, saleID, cancelledBy int64, reason string, at time.Time) error
}

// WithTx runs fn inside a single database transaction. Any error from fn
// rolls back every mutation applied through the SaleTx.
func (s *Store) WithTx(ctx context.Context, fn func(tx SaleTx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&saleTx{tx: tx}); err != nil {
		return err
	}

	return tx.Commit()
}

type saleTx struct {
	tx *sqlx.Tx
}

func (t *saleTx) ReserveStock(ctx context.Context, productID int64, quantity int) error {
	var stock int
	err := t.tx.GetContext(ctx, &stock,
		"SELECT stock FROM products WHERE id = $1 FOR UPDATE", productID)
	if err == sql.ErrNoRows {
		return fmt.Errorf("product %d: %w", productID, models.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to lock product %d: %w", productID, err)
	}

	if stock < quantity {
		return &models.InsufficientStockError{
			ProductID: productID,
			Available: stock,
			Requested: quantity,
		}
	}

	_, err = t.tx.ExecContext(ctx,
		"UPDATE products SET stock = stock - $1, updated_at = NOW() WHERE id = $2",
		quantity, productID)
	if err != nil {
		return fmt.Errorf("failed to reserve stock: %w", err)
	}
	return nil
}

func (t *saleTx) RestoreStock(ctx context.Context, productID int64, quantity int) error {
	res, err := t.tx.ExecContext(ctx,
		"UPDATE products SET stock = stock + $1, updated_at = NOW() WHERE id = $2",
		quantity, productID)
	if err != nil {
		return fmt.Errorf("failed to restore stock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("product %d: %w", productID, models.ErrNotFound)
	}
	return nil
}

func (t *saleTx) RecordPurchase(ctx context.Context, customerID int64, at time.Time) error {
	res, err := t.tx.ExecContext(ctx,
		"UPDATE customers SET total_purchases = total_purchases + 1, last_purchase = $1, updated_at = NOW() WHERE id = $2",
		at, customerID)
	if err != nil {
		return fmt.Errorf("failed to record purchase: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("customer %d: %w", customerID, models.ErrNotFound)
	}
	return nil
}

func (t *saleTx) RevertPurchase(ctx context.Context, customerID int64) error {
	// last_purchase is intentionally left as-is: the previous value is not
	// retained anywhere it could be restored from.
	res, err := t.tx.ExecContext(ctx,
		"UPDATE customers SET total_purchases = GREATEST(total_purchases - 1, 0), updated_at = NOW() WHERE id = $1",
		customerID)
	if err != nil {
		return fmt.Errorf("failed to revert purchase: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("customer %d: %w", customerID, models.ErrNotFound)
	}
	return nil
}

func (t *saleTx) InsertSale(ctx context.Context, sale *models.Sale) error {
	query := `
		INSERT INTO sales (customer_id, seller_id, subtotal, discount, tax, total, status, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	return t.tx.GetContext(ctx, sale, query,
		sale.CustomerID, sale.SellerID, sale.Subtotal, sale.Discount,
		sale.Tax, sale.Total, sale.Status, sale.IdempotencyKey)
}

func (t *saleTx) InsertSaleItem(ctx context.Context, item *models.SaleItem) error {
	query := `
		INSERT INTO sale_items (sale_id, product_id, quantity, unit_price, discount)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	return t.tx.GetContext(ctx, &item.ID, query,
		item.SaleID, item.ProductID, item.Quantity, item.UnitPrice, item.Discount)
}

func (t *saleTx) InsertPayment(ctx context.Context, payment *models.Payment) error {
	query := `
		INSERT INTO payments (sale_id, method, amount, reference, paid_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	return t.tx.GetContext(ctx, &payment.ID, query,
		payment.SaleID, payment.Method, payment.Amount, payment.Reference, payment.PaidAt)
}

func (t *saleTx) GetSaleForUpdate(ctx context.Context, saleID int64) (*models.Sale, error) {
	var sale models.Sale
	err := t.tx.GetContext(ctx, &sale, "SELECT * FROM sales WHERE id = $1 FOR UPDATE", saleID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("sale %d: %w", saleID, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (t *saleTx) SaleItems(ctx context.Context, saleID int64) ([]models.SaleItem, error) {
	var items []models.SaleItem
	err := t.tx.SelectContext(ctx, &items,
		"SELECT * FROM sale_items WHERE sale_id = $1 ORDER BY id", saleID)
	return items, err
}

func (t *saleTx) SalePayments(ctx context.Context, saleID int64) ([]models.Payment, error) {
	var payments []models.Payment
	err := t.tx.SelectContext(ctx, &payments,
		"SELECT * FROM payments WHERE sale_id = $1 ORDER BY paid_at, id", saleID)
	return payments, err
}

func (t *saleTx) UpdateSaleStatus(ctx context.Context, saleID int64, status string) error {
	_, err := t.tx.ExecContext(ctx,
		"UPDATE sales SET status = $1, updated_at = NOW() WHERE id = $2",
		status, saleID)
	return err
}

func (t *saleTx) MarkSaleCancelled(ctx context.Context, saleID, cancelledBy int64, reason string, at time.Time) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE sales
		SET status = $1, cancelled_at = $2, cancelled_by = $3, cancellation_reason = $4, updated_at = NOW()
		WHERE id = $5`,
		models.SaleStatusCancelled, at, cancelledBy, reason, saleID)
	return err
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"sales-service/internal/models"
)

// GetSaleByID retrieves a sale with its items and payments
func (s *Store) GetSaleByID(ctx context.Context, id int64) (*models.Sale, []models.SaleItem, []models.Payment, error) {
	var sale models.Sale
	err := s.db.GetContext(ctx, &sale, "SELECT * FROM sales WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil, nil, fmt.Errorf("sale %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, nil, nil, err
	}

	var items []models.SaleItem
	if err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM sale_items WHERE sale_id = $1 ORDER BY id", id); err != nil {
		return nil, nil, nil, err
	}

	var payments []models.Payment
	if err := s.db.SelectContext(ctx, &payments,
		"SELECT * FROM payments WHERE sale_id = $1 ORDER BY paid_at, id", id); err != nil {
		return nil, nil, nil, err
	}

	return &sale, items, payments, nil
}

// GetSaleByIdempotencyKey retrieves a sale by idempotency key
func (s *Store) GetSaleByIdempotencyKey(ctx context.Context, key string) (*models.Sale, error) {
	var sale models.Sale
	err := s.db.GetContext(ctx, &sale, "SELECT * FROM sales WHERE idempotency_key = $1", key)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

// ListSalesByCustomerID retrieves sales for a customer
func (s *Store) ListSalesByCustomerID(ctx context.Context, customerID int64) ([]models.Sale, error) {
	var sales []models.Sale
	err := s.db.SelectContext(ctx, &sales,
		"SELECT * FROM sales WHERE customer_id = $1 ORDER BY created_at DESC", customerID)
	return sales, err
}

// SalesStatistics aggregates non-cancelled sales, optionally bounded by a
// created_at window. An empty window yields all-zero figures, not an error.
func (s *Store) SalesStatistics(ctx context.Context, start, end *time.Time) (*models.SalesStatistics, error) {
	where := "s.status <> $1"
	args := []interface{}{models.SaleStatusCancelled}

	if start != nil {
		args = append(args, *start)
		where += fmt.Sprintf(" AND s.created_at >= $%d", len(args))
	}
	if end != nil {
		args = append(args, *end)
		where += fmt.Sprintf(" AND s.created_at <= $%d", len(args))
	}

	stats := &models.SalesStatistics{
		PaymentMethods: make(map[string]models.PaymentMethodStats),
		StartDate:      start,
		EndDate:        end,
	}

	summary := struct {
		TotalSales   int   `db:"total_sales"`
		TotalRevenue int64 `db:"total_revenue"`
	}{}
	err := s.db.GetContext(ctx, &summary, fmt.Sprintf(`
		SELECT COUNT(*) AS total_sales, COALESCE(SUM(s.total), 0) AS total_revenue
		FROM sales s
		WHERE %s`, where), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate sales: %w", err)
	}
	stats.TotalSales = summary.TotalSales
	stats.TotalRevenue = summary.TotalRevenue
	if stats.TotalSales > 0 {
		stats.AverageTicket = stats.TotalRevenue / int64(stats.TotalSales)
	}

	err = s.db.GetContext(ctx, &stats.TotalItems, fmt.Sprintf(`
		SELECT COALESCE(SUM(si.quantity), 0)
		FROM sale_items si
		JOIN sales s ON s.id = si.sale_id
		WHERE %s`, where), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate sale items: %w", err)
	}

	rows := []struct {
		Method string `db:"method"`
		Count  int    `db:"count"`
		Amount int64  `db:"amount"`
	}{}
	err = s.db.SelectContext(ctx, &rows, fmt.Sprintf(`
		SELECT p.method, COUNT(*) AS count, COALESCE(SUM(p.amount), 0) AS amount
		FROM payments p
		JOIN sales s ON s.id = p.sale_id
		WHERE %s
		GROUP BY p.method`, where), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate payments: %w", err)
	}
	for _, r := range rows {
		stats.PaymentMethods[r.Method] = models.PaymentMethodStats{
			Count:  r.Count,
			Amount: r.Amount,
		}
	}

	return stats, nil
}

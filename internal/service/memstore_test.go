package service

import (
	"context"
	"fmt"
	"time"

	"sales-service/internal/models"
	"sales-service/internal/store"
)

// memStore is an in-memory Storage with real transaction semantics: WithTx
// applies fn to a deep copy of the state and swaps it in only on success, so
// a failing step discards every prior mutation in the same unit.
type memStore struct {
	state *memState
}

type memState struct {
	products  map[int64]*models.Product
	customers map[int64]*models.Customer
	sales     map[int64]*models.Sale
	items     map[int64][]models.SaleItem
	payments  map[int64][]models.Payment

	nextSaleID    int64
	nextItemID    int64
	nextPaymentID int64
}

func newMemStore() *memStore {
	return &memStore{
		state: &memState{
			products:  make(map[int64]*models.Product),
			customers: make(map[int64]*models.Customer),
			sales:     make(map[int64]*models.Sale),
			items:     make(map[int64][]models.SaleItem),
			payments:  make(map[int64][]models.Payment),
		},
	}
}

func (m *memStore) addProduct(id int64, stock int) {
	m.state.products[id] = &models.Product{ID: id, Stock: stock}
}

func (m *memStore) addCustomer(id int64) {
	m.state.customers[id] = &models.Customer{ID: id}
}

func (m *memStore) product(id int64) *models.Product {
	return m.state.products[id]
}

func (m *memStore) customer(id int64) *models.Customer {
	return m.state.customers[id]
}

func (s *memState) clone() *memState {
	c := &memState{
		products:      make(map[int64]*models.Product, len(s.products)),
		customers:     make(map[int64]*models.Customer, len(s.customers)),
		sales:         make(map[int64]*models.Sale, len(s.sales)),
		items:         make(map[int64][]models.SaleItem, len(s.items)),
		payments:      make(map[int64][]models.Payment, len(s.payments)),
		nextSaleID:    s.nextSaleID,
		nextItemID:    s.nextItemID,
		nextPaymentID: s.nextPaymentID,
	}
	for id, p := range s.products {
		cp := *p
		c.products[id] = &cp
	}
	for id, cu := range s.customers {
		cc := *cu
		c.customers[id] = &cc
	}
	for id, sa := range s.sales {
		cs := *sa
		c.sales[id] = &cs
	}
	for id, items := range s.items {
		c.items[id] = append([]models.SaleItem(nil), items...)
	}
	for id, payments := range s.payments {
		c.payments[id] = append([]models.Payment(nil), payments...)
	}
	return c
}

func (m *memStore) WithTx(ctx context.Context, fn func(tx store.SaleTx) error) error {
	staged := m.state.clone()
	if err := fn(&memTx{state: staged}); err != nil {
		return err
	}
	m.state = staged
	return nil
}

func (m *memStore) GetSaleByID(ctx context.Context, id int64) (*models.Sale, []models.SaleItem, []models.Payment, error) {
	sale, ok := m.state.sales[id]
	if !ok {
		return nil, nil, nil, fmt.Errorf("sale %d: %w", id, models.ErrNotFound)
	}
	copied := *sale
	return &copied,
		append([]models.SaleItem(nil), m.state.items[id]...),
		append([]models.Payment(nil), m.state.payments[id]...),
		nil
}

func (m *memStore) GetSaleByIdempotencyKey(ctx context.Context, key string) (*models.Sale, error) {
	for _, sale := range m.state.sales {
		if sale.IdempotencyKey == key {
			copied := *sale
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memStore) ListSalesByCustomerID(ctx context.Context, customerID int64) ([]models.Sale, error) {
	var sales []models.Sale
	for _, sale := range m.state.sales {
		if sale.CustomerID == customerID {
			sales = append(sales, *sale)
		}
	}
	return sales, nil
}

func (m *memStore) SalesStatistics(ctx context.Context, start, end *time.Time) (*models.SalesStatistics, error) {
	stats := &models.SalesStatistics{
		PaymentMethods: make(map[string]models.PaymentMethodStats),
		StartDate:      start,
		EndDate:        end,
	}

	for id, sale := range m.state.sales {
		if sale.Status == models.SaleStatusCancelled {
			continue
		}
		if start != nil && sale.CreatedAt.Before(*start) {
			continue
		}
		if end != nil && sale.CreatedAt.After(*end) {
			continue
		}

		stats.TotalSales++
		stats.TotalRevenue += sale.Total
		for _, item := range m.state.items[id] {
			stats.TotalItems += item.Quantity
		}
		for _, p := range m.state.payments[id] {
			entry := stats.PaymentMethods[p.Method]
			entry.Count++
			entry.Amount += p.Amount
			stats.PaymentMethods[p.Method] = entry
		}
	}

	if stats.TotalSales > 0 {
		stats.AverageTicket = stats.TotalRevenue / int64(stats.TotalSales)
	}
	return stats, nil
}

type memTx struct {
	state *memState
}

func (t *memTx) ReserveStock(ctx context.Context, productID int64, quantity int) error {
	product, ok := t.state.products[productID]
	if !ok {
		return fmt.Errorf("product %d: %w", productID, models.ErrNotFound)
	}
	if product.Stock < quantity {
		return &models.InsufficientStockError{
			ProductID: productID,
			Available: product.Stock,
			Requested: quantity,
		}
	}
	product.Stock -= quantity
	return nil
}

func (t *memTx) RestoreStock(ctx context.Context, productID int64, quantity int) error {
	product, ok := t.state.products[productID]
	if !ok {
		return fmt.Errorf("product %d: %w", productID, models.ErrNotFound)
	}
	product.Stock += quantity
	return nil
}

func (t *memTx) RecordPurchase(ctx context.Context, customerID int64, at time.Time) error {
	customer, ok := t.state.customers[customerID]
	if !ok {
		return fmt.Errorf("customer %d: %w", customerID, models.ErrNotFound)
	}
	customer.TotalPurchases++
	purchased := at
	customer.LastPurchase = &purchased
	return nil
}

func (t *memTx) RevertPurchase(ctx context.Context, customerID int64) error {
	customer, ok := t.state.customers[customerID]
	if !ok {
		return fmt.Errorf("customer %d: %w", customerID, models.ErrNotFound)
	}
	if customer.TotalPurchases > 0 {
		customer.TotalPurchases--
	}
	return nil
}

func (t *memTx) InsertSale(ctx context.Context, sale *models.Sale) error {
	t.state.nextSaleID++
	sale.ID = t.state.nextSaleID
	sale.CreatedAt = time.Now()
	sale.UpdatedAt = sale.CreatedAt
	copied := *sale
	t.state.sales[sale.ID] = &copied
	return nil
}

func (t *memTx) InsertSaleItem(ctx context.Context, item *models.SaleItem) error {
	t.state.nextItemID++
	item.ID = t.state.nextItemID
	t.state.items[item.SaleID] = append(t.state.items[item.SaleID], *item)
	return nil
}

func (t *memTx) InsertPayment(ctx context.Context, payment *models.Payment) error {
	t.state.nextPaymentID++
	payment.ID = t.state.nextPaymentID
	t.state.payments[payment.SaleID] = append(t.state.payments[payment.SaleID], *payment)
	return nil
}

func (t *memTx) GetSaleForUpdate(ctx context.Context, saleID int64) (*models.Sale, error) {
	sale, ok := t.state.sales[saleID]
	if !ok {
		return nil, fmt.Errorf("sale %d: %w", saleID, models.ErrNotFound)
	}
	return sale, nil
}

func (t *memTx) SaleItems(ctx context.Context, saleID int64) ([]models.SaleItem, error) {
	return append([]models.SaleItem(nil), t.state.items[saleID]...), nil
}

func (t *memTx) SalePayments(ctx context.Context, saleID int64) ([]models.Payment, error) {
	return append([]models.Payment(nil), t.state.payments[saleID]...), nil
}

func (t *memTx) UpdateSaleStatus(ctx context.Context, saleID int64, status string) error {
	sale, ok := t.state.sales[saleID]
	if !ok {
		return fmt.Errorf("sale %d: %w", saleID, models.ErrNotFound)
	}
	sale.Status = status
	sale.UpdatedAt = time.Now()
	return nil
}

func (t *memTx) MarkSaleCancelled(ctx context.Context, saleID, cancelledBy int64, reason string, at time.Time) error {
	sale, ok := t.state.sales[saleID]
	if !ok {
		return fmt.Errorf("sale %d: %w", saleID, models.ErrNotFound)
	}
	sale.Status = models.SaleStatusCancelled
	cancelledAt := at
	sale.CancelledAt = &cancelledAt
	by := cancelledBy
	sale.CancelledBy = &by
	r := reason
	sale.CancellationReason = &r
	sale.UpdatedAt = time.Now()
	return nil
}

// fakePublisher records published events.
type fakePublisher struct {
	created   []*models.SaleCreatedEvent
	cancelled []*models.SaleCancelledEvent
	payments  []*models.SalePaymentAddedEvent
}

func (f *fakePublisher) PublishSaleCreated(ctx context.Context, event *models.SaleCreatedEvent) error {
	f.created = append(f.created, event)
	return nil
}

func (f *fakePublisher) PublishSaleCancelled(ctx context.Context, event *models.SaleCancelledEvent) error {
	f.cancelled = append(f.cancelled, event)
	return nil
}

func (f *fakePublisher) PublishSalePaymentAdded(ctx context.Context, event *models.SalePaymentAddedEvent) error {
	f.payments = append(f.payments, event)
	return nil
}

// fakeCache is a versioned statistics cache.
type fakeCache struct {
	version int64
	entries map[string]*models.SalesStatistics
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]*models.SalesStatistics)}
}

func (f *fakeCache) key(windowKey string) string {
	return fmt.Sprintf("%d:%s", f.version, windowKey)
}

func (f *fakeCache) GetStatistics(ctx context.Context, windowKey string) (*models.SalesStatistics, bool, error) {
	stats, ok := f.entries[f.key(windowKey)]
	return stats, ok, nil
}

func (f *fakeCache) SetStatistics(ctx context.Context, windowKey string, stats *models.SalesStatistics) error {
	f.entries[f.key(windowKey)] = stats
	return nil
}

func (f *fakeCache) BumpStatsVersion(ctx context.Context) error {
	f.version++
	return nil
}

package service

import (
	"context"
	"testing"
	"time"

	"sales-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedSales(t *testing.T, svc *SaleService, storage *memStore) (kept1, kept2, cancelled *SaleDetail) {
	t.Helper()

	storage.addProduct(1, 1000)
	storage.addCustomer(10)

	var err error
	kept1, err = svc.CreateSale(context.Background(), &CreateSaleRequest{
		CustomerID: 10,
		SellerID:   20,
		Items:      []SaleItemRequest{{ProductID: 1, Quantity: 2, UnitPrice: 500}},
		Total:      1000,
		Payments:   []PaymentRequest{{Method: models.PaymentMethodCash, Amount: 1000}},
	})
	require.NoError(t, err)

	kept2, err = svc.CreateSale(context.Background(), &CreateSaleRequest{
		CustomerID: 10,
		SellerID:   20,
		Items:      []SaleItemRequest{{ProductID: 1, Quantity: 3, UnitPrice: 200}},
		Total:      600,
		Payments:   []PaymentRequest{{Method: models.PaymentMethodCreditCard, Amount: 300}},
	})
	require.NoError(t, err)

	cancelled, err = svc.CreateSale(context.Background(), &CreateSaleRequest{
		CustomerID: 10,
		SellerID:   20,
		Items:      []SaleItemRequest{{ProductID: 1, Quantity: 5, UnitPrice: 100}},
		Total:      500,
		Payments:   []PaymentRequest{{Method: models.PaymentMethodCash, Amount: 500}},
	})
	require.NoError(t, err)

	_, err = svc.CancelSale(context.Background(), cancelled.Sale.ID, 20, "wrong order")
	require.NoError(t, err)

	return kept1, kept2, cancelled
}

func TestStatisticsExcludeCancelledSales(t *testing.T) {
	storage := newMemStore()
	cache := newFakeCache()
	saleSvc := NewSaleService(storage, nil, cache)
	statsSvc := NewStatsService(storage, cache)

	seedSales(t, saleSvc, storage)

	stats, err := statsSvc.GetSalesStatistics(context.Background(), nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalSales)
	assert.Equal(t, int64(1600), stats.TotalRevenue)
	assert.Equal(t, int64(800), stats.AverageTicket)
	assert.Equal(t, 5, stats.TotalItems)

	cash := stats.PaymentMethods[models.PaymentMethodCash]
	assert.Equal(t, 1, cash.Count)
	assert.Equal(t, int64(1000), cash.Amount)

	card := stats.PaymentMethods[models.PaymentMethodCreditCard]
	assert.Equal(t, 1, card.Count)
	assert.Equal(t, int64(300), card.Amount)

	// the cancelled sale's CASH payment of 500 must not leak into the breakdown
	assert.Equal(t, int64(1300), cash.Amount+card.Amount)
}

func TestStatisticsEmptyWindowYieldsZeroes(t *testing.T) {
	storage := newMemStore()
	statsSvc := NewStatsService(storage, nil)

	stats, err := statsSvc.GetSalesStatistics(context.Background(), nil, nil)
	require.NoError(t, err)

	assert.Zero(t, stats.TotalSales)
	assert.Zero(t, stats.TotalRevenue)
	assert.Zero(t, stats.AverageTicket)
	assert.Zero(t, stats.TotalItems)
	assert.Empty(t, stats.PaymentMethods)
}

func TestStatisticsDateFilter(t *testing.T) {
	storage := newMemStore()
	saleSvc := NewSaleService(storage, nil, nil)
	statsSvc := NewStatsService(storage, nil)

	kept1, kept2, _ := seedSales(t, saleSvc, storage)

	// move the first sale out of the window
	old := time.Now().Add(-48 * time.Hour)
	storage.state.sales[kept1.Sale.ID].CreatedAt = old

	start := time.Now().Add(-time.Hour)
	stats, err := statsSvc.GetSalesStatistics(context.Background(), &start, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.TotalSales)
	assert.Equal(t, kept2.Sale.Total, stats.TotalRevenue)

	end := time.Now().Add(-24 * time.Hour)
	stats, err = statsSvc.GetSalesStatistics(context.Background(), nil, &end)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.TotalSales)
	assert.Equal(t, kept1.Sale.Total, stats.TotalRevenue)
}

func TestStatisticsCacheInvalidatedByMutations(t *testing.T) {
	storage := newMemStore()
	cache := newFakeCache()
	saleSvc := NewSaleService(storage, nil, cache)
	statsSvc := NewStatsService(storage, cache)

	storage.addProduct(1, 100)
	storage.addCustomer(10)

	stats, err := statsSvc.GetSalesStatistics(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalSales)

	// cached result is served until a mutation bumps the version
	cached, ok, err := cache.GetStatistics(context.Background(), windowKey(nil, nil))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Zero(t, cached.TotalSales)

	_, err = saleSvc.CreateSale(context.Background(), &CreateSaleRequest{
		CustomerID: 10,
		SellerID:   20,
		Items:      []SaleItemRequest{{ProductID: 1, Quantity: 1}},
		Total:      100,
	})
	require.NoError(t, err)

	_, ok, err = cache.GetStatistics(context.Background(), windowKey(nil, nil))
	require.NoError(t, err)
	assert.False(t, ok)

	stats, err = statsSvc.GetSalesStatistics(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalSales)
}

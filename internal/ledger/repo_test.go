package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/adityamehra-dev/orderbook-backend/pkg/db/models"
	"github.com/adityamehra-dev/orderbook-backend/pkg/enums"
	"github.com/adityamehra-dev/orderbook-backend/pkg/pagination"
)

func setupLedgerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:ledgerrepo?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  org TEXT NOT NULL,
  order_id INTEGER NOT NULL,
  customer_name TEXT NOT NULL,
  product_name TEXT NOT NULL,
  description TEXT,
  quantity TEXT NOT NULL,
  delivered_quantity TEXT NOT NULL DEFAULT '0',
  unit_price TEXT NOT NULL,
  gst_percent TEXT NOT NULL,
  basic_amount TEXT NOT NULL,
  total_amount TEXT NOT NULL,
  advance_received TEXT NOT NULL,
  pending_amount TEXT NOT NULL,
  status TEXT NOT NULL,
  order_date DATETIME NOT NULL,
  expected_delivery_date DATETIME,
  notes TEXT,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (org, order_id)
);`
	deliveries := `
CREATE TABLE IF NOT EXISTS deliveries (
  id TEXT PRIMARY KEY,
  order_uid TEXT NOT NULL,
  org TEXT NOT NULL,
  order_id INTEGER NOT NULL,
  delivery_id INTEGER NOT NULL,
  quantity TEXT NOT NULL,
  amount_received TEXT NOT NULL,
  delivery_date DATETIME NOT NULL,
  vehicle_number TEXT,
  notes TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	ewayBills := `
CREATE TABLE IF NOT EXISTS eway_bills (
  id TEXT PRIMARY KEY,
  order_uid TEXT NOT NULL,
  delivery_uid TEXT,
  org TEXT NOT NULL,
  order_id INTEGER NOT NULL,
  public_id TEXT NOT NULL UNIQUE,
  object_key TEXT NOT NULL,
  url TEXT NOT NULL,
  resource_type TEXT NOT NULL,
  file_name TEXT NOT NULL,
  size_bytes INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(orders).Error)
	require.NoError(t, db.Exec(deliveries).Error)
	require.NoError(t, db.Exec(ewayBills).Error)

	t.Cleanup(func() {
		db.Exec("DELETE FROM deliveries")
		db.Exec("DELETE FROM eway_bills")
		db.Exec("DELETE FROM orders")
	})
	return db
}

func newOrder(t *testing.T, db *gorm.DB, org string, orderID int64, status enums.OrderStatus) *models.Order {
	t.Helper()

	order := &models.Order{
		ID:              uuid.New(),
		Org:             org,
		OrderID:         orderID,
		CustomerName:    "Sharma Traders",
		ProductName:     "TMT Bars",
		Quantity:        decimal.NewFromInt(100),
		UnitPrice:       decimal.NewFromInt(50),
		GSTPercent:      decimal.NewFromInt(18),
		BasicAmount:     decimal.NewFromInt(5000),
		TotalAmount:     decimal.NewFromFloat(5900),
		AdvanceReceived: decimal.NewFromInt(1000),
		PendingAmount:   decimal.NewFromFloat(4900),
		Status:          status,
		OrderDate:       time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func TestNextOrderID(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	next, err := repo.NextOrderID(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, int64(1), next)

	newOrder(t, db, "acme", 1, enums.OrderStatusPending)
	newOrder(t, db, "acme", 7, enums.OrderStatusPending)
	newOrder(t, db, "other", 99, enums.OrderStatusPending)

	next, err = repo.NextOrderID(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, int64(8), next, "next id follows the org max, not the global max")
}

func TestFindOrderScopedToOrg(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	created := newOrder(t, db, "acme", 1, enums.OrderStatusPending)

	found, err := repo.FindOrder(ctx, "acme", 1)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = repo.FindOrder(ctx, "other", 1)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestListOrdersFilters(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	newOrder(t, db, "acme", 1, enums.OrderStatusPending)
	completed := newOrder(t, db, "acme", 2, enums.OrderStatusCompleted)

	status := enums.OrderStatusCompleted
	orders, total, err := repo.ListOrders(ctx, "acme", OrderFilters{Status: &status}, pagination.Params{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, orders, 1)
	assert.Equal(t, completed.OrderID, orders[0].OrderID)

	orders, total, err = repo.ListOrders(ctx, "acme", OrderFilters{CustomerName: "sharma"}, pagination.Params{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, orders, 2)

	orders, _, err = repo.ListOrders(ctx, "acme", OrderFilters{CustomerName: "nobody"}, pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestFilteredOrdersForExport(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	early := newOrder(t, db, "acme", 3, enums.OrderStatusPending)
	require.NoError(t, db.Model(early).Update("order_date", time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)).Error)
	newOrder(t, db, "acme", 1, enums.OrderStatusCompleted)
	newOrder(t, db, "other", 2, enums.OrderStatusCompleted)

	orders, err := repo.FilteredOrders(ctx, "acme", OrderFilters{})
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, int64(1), orders[0].OrderID, "export rows sort by order id")
	assert.Equal(t, int64(3), orders[1].OrderID)

	from := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	orders, err = repo.FilteredOrders(ctx, "acme", OrderFilters{From: &from})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, int64(1), orders[0].OrderID)

	to := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	orders, err = repo.FilteredOrders(ctx, "acme", OrderFilters{To: &to})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, early.OrderID, orders[0].OrderID)
}

func TestNextDeliveryID(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := newOrder(t, db, "acme", 1, enums.OrderStatusPending)

	next, err := repo.NextDeliveryID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), next)

	_, err = repo.CreateDelivery(ctx, &models.Delivery{
		ID:           uuid.New(),
		OrderUID:     order.ID,
		Org:          order.Org,
		OrderID:      order.OrderID,
		DeliveryID:   3,
		Quantity:     decimal.NewFromInt(10),
		DeliveryDate: time.Now().UTC(),
	})
	require.NoError(t, err)

	next, err = repo.NextDeliveryID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), next)
}

func TestDeliveriesLifecycle(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := newOrder(t, db, "acme", 1, enums.OrderStatusPending)

	delivery := &models.Delivery{
		ID:             uuid.New(),
		OrderUID:       order.ID,
		Org:            order.Org,
		OrderID:        order.OrderID,
		DeliveryID:     1,
		Quantity:       decimal.NewFromInt(40),
		AmountReceived: decimal.NewFromInt(2000),
		DeliveryDate:   time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC),
	}
	_, err := repo.CreateDelivery(ctx, delivery)
	require.NoError(t, err)

	listed, err := repo.ListDeliveries(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.True(t, listed[0].Quantity.Equal(decimal.NewFromInt(40)))

	require.NoError(t, repo.DeleteDelivery(ctx, delivery.ID))
	listed, err = repo.ListDeliveries(ctx, order.ID)
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestDeleteOrderRemovesChildren(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := newOrder(t, db, "acme", 1, enums.OrderStatusPending)
	_, err := repo.CreateDelivery(ctx, &models.Delivery{
		ID:           uuid.New(),
		OrderUID:     order.ID,
		Org:          order.Org,
		OrderID:      order.OrderID,
		DeliveryID:   1,
		Quantity:     decimal.NewFromInt(10),
		DeliveryDate: time.Now().UTC(),
	})
	require.NoError(t, err)
	_, err = repo.CreateEwayBill(ctx, &models.EwayBill{
		ID:           uuid.New(),
		OrderUID:     order.ID,
		Org:          order.Org,
		OrderID:      order.OrderID,
		PublicID:     "ewaybill_acme_1_abc",
		ObjectKey:    "ewaybill/acme/1/abc.pdf",
		URL:          "https://storage.googleapis.com/bucket/ewaybill/acme/1/abc.pdf",
		ResourceType: enums.BillResourceTypeRaw,
		FileName:     "bill.pdf",
	})
	require.NoError(t, err)

	require.NoError(t, repo.DeleteOrder(ctx, order.ID))

	deliveries, err := repo.ListDeliveries(ctx, order.ID)
	require.NoError(t, err)
	assert.Empty(t, deliveries)

	bills, err := repo.ListEwayBills(ctx, order.ID)
	require.NoError(t, err)
	assert.Empty(t, bills)

	_, err = repo.FindOrder(ctx, "acme", 1)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestFindEwayBillByPublicID(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := newOrder(t, db, "acme", 1, enums.OrderStatusPending)
	bill := &models.EwayBill{
		ID:           uuid.New(),
		OrderUID:     order.ID,
		Org:          order.Org,
		OrderID:      order.OrderID,
		PublicID:     "ewaybill_acme_1_xyz",
		ObjectKey:    "ewaybill/acme/1/xyz.png",
		URL:          "https://storage.googleapis.com/bucket/ewaybill/acme/1/xyz.png",
		ResourceType: enums.BillResourceTypeImage,
		FileName:     "bill.png",
	}
	_, err := repo.CreateEwayBill(ctx, bill)
	require.NoError(t, err)

	found, err := repo.FindEwayBillByPublicID(ctx, "acme", bill.PublicID)
	require.NoError(t, err)
	assert.Equal(t, bill.ID, found.ID)

	_, err = repo.FindEwayBillByPublicID(ctx, "other", bill.PublicID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestDeleteOrgOrders(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := newOrder(t, db, "acme", 1, enums.OrderStatusPending)
	keep := newOrder(t, db, "other", 1, enums.OrderStatusPending)

	_, err := repo.CreateDelivery(ctx, &models.Delivery{
		ID:           uuid.New(),
		OrderUID:     order.ID,
		Org:          order.Org,
		OrderID:      order.OrderID,
		DeliveryID:   1,
		Quantity:     decimal.NewFromInt(5),
		DeliveryDate: time.Now().UTC(),
	})
	require.NoError(t, err)

	require.NoError(t, repo.DeleteOrgOrders(ctx, "acme"))

	_, err = repo.FindOrder(ctx, "acme", 1)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	found, err := repo.FindOrder(ctx, "other", keep.OrderID)
	require.NoError(t, err)
	assert.Equal(t, keep.ID, found.ID)
}

package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/adityamehra-dev/orderbook-backend/pkg/db/models"
	"github.com/adityamehra-dev/orderbook-backend/pkg/enums"
	"github.com/adityamehra-dev/orderbook-backend/pkg/pagination"
)

// OrderFilters narrows org-scoped order listings.
type OrderFilters struct {
	Status       *enums.OrderStatus
	CustomerName string
	ProductName  string
	From         *time.Time
	To           *time.Time
}

// Repository defines persistence operations for the order ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	NextOrderID(ctx context.Context, org string) (int64, error)
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	FindOrder(ctx context.Context, org string, orderID int64) (*models.Order, error)
	ListOrders(ctx context.Context, org string, filters OrderFilters, params pagination.Params) ([]models.Order, int64, error)
	AllOrders(ctx context.Context, org string) ([]models.Order, error)
	FilteredOrders(ctx context.Context, org string, filters OrderFilters) ([]models.Order, error)
	UpdateOrder(ctx context.Context, orderUID uuid.UUID, updates map[string]any) error
	DeleteOrder(ctx context.Context, orderUID uuid.UUID) error

	NextDeliveryID(ctx context.Context, orderUID uuid.UUID) (int64, error)
	CreateDelivery(ctx context.Context, delivery *models.Delivery) (*models.Delivery, error)
	FindDelivery(ctx context.Context, deliveryID uuid.UUID) (*models.Delivery, error)
	FindDeliveryByNumber(ctx context.Context, orderUID uuid.UUID, deliveryID int64) (*models.Delivery, error)
	ListDeliveries(ctx context.Context, orderUID uuid.UUID) ([]models.Delivery, error)
	DeleteDelivery(ctx context.Context, deliveryID uuid.UUID) error

	CreateEwayBill(ctx context.Context, bill *models.EwayBill) (*models.EwayBill, error)
	FindEwayBillByPublicID(ctx context.Context, org, publicID string) (*models.EwayBill, error)
	ListEwayBills(ctx context.Context, orderUID uuid.UUID) ([]models.EwayBill, error)
	ListOrgEwayBills(ctx context.Context, org string) ([]models.EwayBill, error)
	DeleteEwayBill(ctx context.Context, billID uuid.UUID) error

	DeleteOrgOrders(ctx context.Context, org string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// NextOrderID allocates the next human-facing order number for the org.
// Callers must hold the org's order lock so concurrent creates cannot
// hand out the same number.
func (r *repository) NextOrderID(ctx context.Context, org string) (int64, error) {
	var maxID *int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("org = ?", org).
		Select("MAX(order_id)").
		Scan(&maxID).Error
	if err != nil {
		return 0, err
	}
	if maxID == nil {
		return 1, nil
	}
	return *maxID + 1, nil
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) FindOrder(ctx context.Context, org string, orderID int64) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Deliveries", func(db *gorm.DB) *gorm.DB {
			return db.Order("delivery_id ASC")
		}).
		Preload("EwayBills", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("org = ? AND order_id = ?", org, orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListOrders(ctx context.Context, org string, filters OrderFilters, params pagination.Params) ([]models.Order, int64, error) {
	params = params.Normalize()

	query := applyOrderFilters(r.db.WithContext(ctx).Model(&models.Order{}).Where("org = ?", org), filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	err := query.
		Preload("Deliveries", func(db *gorm.DB) *gorm.DB {
			return db.Order("delivery_id ASC")
		}).
		Order("order_id DESC").
		Limit(params.Limit).
		Offset(params.Offset).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func applyOrderFilters(query *gorm.DB, filters OrderFilters) *gorm.DB {
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.CustomerName != "" {
		query = query.Where("LOWER(customer_name) LIKE ?", "%"+strings.ToLower(filters.CustomerName)+"%")
	}
	if filters.ProductName != "" {
		query = query.Where("LOWER(product_name) LIKE ?", "%"+strings.ToLower(filters.ProductName)+"%")
	}
	if filters.From != nil {
		query = query.Where("order_date >= ?", *filters.From)
	}
	if filters.To != nil {
		query = query.Where("order_date <= ?", *filters.To)
	}
	return query
}

// FilteredOrders loads the full filtered order list for exports.
func (r *repository) FilteredOrders(ctx context.Context, org string, filters OrderFilters) ([]models.Order, error) {
	var orders []models.Order
	err := applyOrderFilters(r.db.WithContext(ctx).Where("org = ?", org), filters).
		Order("order_id ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// AllOrders loads every order for the org with deliveries preloaded.
// Reports walk the full ledger, so no paging here.
func (r *repository) AllOrders(ctx context.Context, org string) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("Deliveries").
		Where("org = ?", org).
		Order("order_id ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) UpdateOrder(ctx context.Context, orderUID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderUID).
		Updates(updates).Error
}

func (r *repository) DeleteOrder(ctx context.Context, orderUID uuid.UUID) error {
	// Child rows cascade via FK in Postgres, but SQLite test databases do
	// not always enforce it, so delete explicitly in dependency order.
	tx := r.db.WithContext(ctx)
	if err := tx.Where("order_uid = ?", orderUID).Delete(&models.Delivery{}).Error; err != nil {
		return err
	}
	if err := tx.Where("order_uid = ?", orderUID).Delete(&models.EwayBill{}).Error; err != nil {
		return err
	}
	return tx.Where("id = ?", orderUID).Delete(&models.Order{}).Error
}

// NextDeliveryID allocates the next per-order delivery number, starting
// at 1. Callers must hold the order lock.
func (r *repository) NextDeliveryID(ctx context.Context, orderUID uuid.UUID) (int64, error) {
	var maxID *int64
	err := r.db.WithContext(ctx).
		Model(&models.Delivery{}).
		Where("order_uid = ?", orderUID).
		Select("MAX(delivery_id)").
		Scan(&maxID).Error
	if err != nil {
		return 0, err
	}
	if maxID == nil {
		return 1, nil
	}
	return *maxID + 1, nil
}

func (r *repository) CreateDelivery(ctx context.Context, delivery *models.Delivery) (*models.Delivery, error) {
	if err := r.db.WithContext(ctx).Create(delivery).Error; err != nil {
		return nil, err
	}
	return delivery, nil
}

func (r *repository) FindDelivery(ctx context.Context, deliveryID uuid.UUID) (*models.Delivery, error) {
	var delivery models.Delivery
	err := r.db.WithContext(ctx).Where("id = ?", deliveryID).First(&delivery).Error
	if err != nil {
		return nil, err
	}
	return &delivery, nil
}

func (r *repository) FindDeliveryByNumber(ctx context.Context, orderUID uuid.UUID, deliveryID int64) (*models.Delivery, error) {
	var delivery models.Delivery
	err := r.db.WithContext(ctx).
		Where("order_uid = ? AND delivery_id = ?", orderUID, deliveryID).
		First(&delivery).Error
	if err != nil {
		return nil, err
	}
	return &delivery, nil
}

func (r *repository) ListDeliveries(ctx context.Context, orderUID uuid.UUID) ([]models.Delivery, error) {
	var deliveries []models.Delivery
	err := r.db.WithContext(ctx).
		Where("order_uid = ?", orderUID).
		Order("delivery_id ASC").
		Find(&deliveries).Error
	if err != nil {
		return nil, err
	}
	return deliveries, nil
}

func (r *repository) DeleteDelivery(ctx context.Context, deliveryID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", deliveryID).Delete(&models.Delivery{}).Error
}

func (r *repository) CreateEwayBill(ctx context.Context, bill *models.EwayBill) (*models.EwayBill, error) {
	if err := r.db.WithContext(ctx).Create(bill).Error; err != nil {
		return nil, err
	}
	return bill, nil
}

func (r *repository) FindEwayBillByPublicID(ctx context.Context, org, publicID string) (*models.EwayBill, error) {
	var bill models.EwayBill
	err := r.db.WithContext(ctx).
		Where("org = ? AND public_id = ?", org, publicID).
		First(&bill).Error
	if err != nil {
		return nil, err
	}
	return &bill, nil
}

func (r *repository) ListEwayBills(ctx context.Context, orderUID uuid.UUID) ([]models.EwayBill, error) {
	var bills []models.EwayBill
	err := r.db.WithContext(ctx).
		Where("order_uid = ?", orderUID).
		Order("created_at ASC").
		Find(&bills).Error
	if err != nil {
		return nil, err
	}
	return bills, nil
}

func (r *repository) ListOrgEwayBills(ctx context.Context, org string) ([]models.EwayBill, error) {
	var bills []models.EwayBill
	err := r.db.WithContext(ctx).
		Where("org = ?", org).
		Order("created_at ASC").
		Find(&bills).Error
	if err != nil {
		return nil, err
	}
	return bills, nil
}

func (r *repository) DeleteEwayBill(ctx context.Context, billID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", billID).Delete(&models.EwayBill{}).Error
}

// DeleteOrgOrders removes every ledger row belonging to the org.
func (r *repository) DeleteOrgOrders(ctx context.Context, org string) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("org = ?", org).Delete(&models.Delivery{}).Error; err != nil {
		return err
	}
	if err := tx.Where("org = ?", org).Delete(&models.EwayBill{}).Error; err != nil {
		return err
	}
	return tx.Where("org = ?", org).Delete(&models.Order{}).Error
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/adityamehra-dev/orderbook-backend/pkg/enums"
)

// Order is the ledger root for a single customer order. OrderID is the
// human-facing sequence number, unique per org; ID is the storage key.
// TotalAmount and PendingAmount are derived and must never be written
// from request input directly.
type Order struct {
	ID               uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Org              string            `gorm:"column:org;type:text;not null;uniqueIndex:uniq_org_order_id,priority:1"`
	OrderID          int64             `gorm:"column:order_id;not null;uniqueIndex:uniq_org_order_id,priority:2"`
	CustomerName     string            `gorm:"column:customer_name;type:text;not null"`
	ProductName      string            `gorm:"column:product_name;type:text;not null"`
	Description      *string           `gorm:"column:description"`
	Quantity         decimal.Decimal   `gorm:"column:quantity;type:numeric(14,3);not null"`
	DeliveredQty     decimal.Decimal   `gorm:"column:delivered_quantity;type:numeric(14,3);not null;default:0"`
	UnitPrice        decimal.Decimal   `gorm:"column:unit_price;type:numeric(14,2);not null"`
	GSTPercent       decimal.Decimal   `gorm:"column:gst_percent;type:numeric(5,2);not null"`
	BasicAmount      decimal.Decimal   `gorm:"column:basic_amount;type:numeric(14,2);not null"`
	TotalAmount      decimal.Decimal   `gorm:"column:total_amount;type:numeric(14,2);not null"`
	AdvanceReceived  decimal.Decimal   `gorm:"column:advance_received;type:numeric(14,2);not null;default:0"`
	PendingAmount    decimal.Decimal   `gorm:"column:pending_amount;type:numeric(14,2);not null"`
	Status           enums.OrderStatus `gorm:"column:status;type:text;not null;default:'Pending'"`
	OrderDate        time.Time         `gorm:"column:order_date;not null"`
	ExpectedDelivery *time.Time        `gorm:"column:expected_delivery_date"`
	Notes            *string           `gorm:"column:notes"`
	Deliveries       []Delivery        `gorm:"foreignKey:OrderUID;constraint:OnDelete:CASCADE"`
	EwayBills        []EwayBill        `gorm:"foreignKey:OrderUID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

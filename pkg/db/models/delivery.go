package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Delivery is one ledger entry against an order: a quantity shipped and
// the payment received alongside it. DeliveryID numbers deliveries
// within their order, starting at 1.
type Delivery struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderUID       uuid.UUID       `gorm:"column:order_uid;type:uuid;not null;uniqueIndex:uniq_order_delivery_id,priority:1"`
	Org            string          `gorm:"column:org;type:text;not null;index"`
	OrderID        int64           `gorm:"column:order_id;not null"`
	DeliveryID     int64           `gorm:"column:delivery_id;not null;uniqueIndex:uniq_order_delivery_id,priority:2"`
	Quantity       decimal.Decimal `gorm:"column:quantity;type:numeric(14,3);not null"`
	AmountReceived decimal.Decimal `gorm:"column:amount_received;type:numeric(14,2);not null;default:0"`
	DeliveryDate   time.Time       `gorm:"column:delivery_date;not null"`
	VehicleNumber  *string         `gorm:"column:vehicle_number"`
	Notes          *string         `gorm:"column:notes"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

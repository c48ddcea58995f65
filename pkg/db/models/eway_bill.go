package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/adityamehra-dev/orderbook-backend/pkg/enums"
)

// EwayBill is a transport document attached to an order. The blob lives
// in object storage; this row keeps the public identifier and the
// serving URL.
type EwayBill struct {
	ID           uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderUID     uuid.UUID              `gorm:"column:order_uid;type:uuid;not null;index"`
	DeliveryUID  *uuid.UUID             `gorm:"column:delivery_uid;type:uuid;index"`
	Org          string                 `gorm:"column:org;type:text;not null;index"`
	OrderID      int64                  `gorm:"column:order_id;not null"`
	PublicID     string                 `gorm:"column:public_id;type:text;not null;uniqueIndex"`
	ObjectKey    string                 `gorm:"column:object_key;type:text;not null"`
	URL          string                 `gorm:"column:url;type:text;not null"`
	ResourceType enums.BillResourceType `gorm:"column:resource_type;type:text;not null"`
	FileName     string                 `gorm:"column:file_name;type:text;not null"`
	SizeBytes    int64                  `gorm:"column:size_bytes;not null;default:0"`
	CreatedAt    time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

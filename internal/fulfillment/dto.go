package fulfillment

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/adityamehra-dev/orderbook-backend/pkg/db/models"
	"github.com/adityamehra-dev/orderbook-backend/pkg/enums"
)

// CreateOrderRequest carries the fields accepted when opening an order.
// Amount fields are range-checked by the service, not the validator.
type CreateOrderRequest struct {
	CustomerName     string          `json:"customer_name" validate:"required,max=200"`
	ProductName      string          `json:"product_name" validate:"required,max=200"`
	Description      *string         `json:"description,omitempty" validate:"omitempty,max=2000"`
	Quantity         decimal.Decimal `json:"quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	GSTPercent       decimal.Decimal `json:"gst_percent"`
	AdvanceReceived  decimal.Decimal `json:"advance_received"`
	OrderDate        time.Time       `json:"order_date" validate:"required"`
	ExpectedDelivery *time.Time      `json:"expected_delivery_date,omitempty"`
	Notes            *string         `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// EditOrderRequest updates order fields in place. Nil fields are left
// untouched. Status is never editable through this request.
type EditOrderRequest struct {
	CustomerName     *string          `json:"customer_name,omitempty" validate:"omitempty,min=1,max=200"`
	ProductName      *string          `json:"product_name,omitempty" validate:"omitempty,min=1,max=200"`
	Description      *string          `json:"description,omitempty" validate:"omitempty,max=2000"`
	Quantity         *decimal.Decimal `json:"quantity,omitempty"`
	UnitPrice        *decimal.Decimal `json:"unit_price,omitempty"`
	GSTPercent       *decimal.Decimal `json:"gst_percent,omitempty"`
	AdvanceReceived  *decimal.Decimal `json:"advance_received,omitempty"`
	OrderDate        *time.Time       `json:"order_date,omitempty"`
	ExpectedDelivery *time.Time       `json:"expected_delivery_date,omitempty"`
	Notes            *string          `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// AddDeliveryRequest records one partial fulfillment with its payment.
type AddDeliveryRequest struct {
	Quantity       decimal.Decimal `json:"quantity"`
	AmountReceived decimal.Decimal `json:"amount_received"`
	DeliveryDate   time.Time       `json:"delivery_date" validate:"required"`
	VehicleNumber  *string         `json:"vehicle_number,omitempty" validate:"omitempty,max=50"`
	Notes          *string         `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// UpdateStatusRequest manually moves an order between statuses.
type UpdateStatusRequest struct {
	Status enums.OrderStatus `json:"status" validate:"required,oneof=Pending Completed"`
}

// DeliveryDTO is the delivery shape returned to clients.
type DeliveryDTO struct {
	DeliveryID     int64           `json:"delivery_id"`
	Quantity       decimal.Decimal `json:"quantity"`
	AmountReceived decimal.Decimal `json:"amount_received"`
	DeliveryDate   time.Time       `json:"delivery_date"`
	VehicleNumber  *string         `json:"vehicle_number,omitempty"`
	Notes          *string         `json:"notes,omitempty"`
}

// EwayBillDTO is the attachment shape returned to clients. The blob is
// served through its URL; object keys stay internal.
type EwayBillDTO struct {
	PublicID     string                 `json:"public_id"`
	DeliveryID   *int64                 `json:"delivery_id,omitempty"`
	URL          string                 `json:"url"`
	ResourceType enums.BillResourceType `json:"resource_type"`
	FileName     string                 `json:"file_name"`
	SizeBytes    int64                  `json:"size_bytes"`
	UploadedAt   time.Time              `json:"uploaded_at"`
}

// OrderDTO is the full order shape returned to clients.
type OrderDTO struct {
	OrderID          int64             `json:"order_id"`
	CustomerName     string            `json:"customer_name"`
	ProductName      string            `json:"product_name"`
	Description      *string           `json:"description,omitempty"`
	Quantity         decimal.Decimal   `json:"quantity"`
	DeliveredQty     decimal.Decimal   `json:"delivered_quantity"`
	UnitPrice        decimal.Decimal   `json:"unit_price"`
	GSTPercent       decimal.Decimal   `json:"gst_percent"`
	BasicAmount      decimal.Decimal   `json:"basic_amount"`
	TotalAmount      decimal.Decimal   `json:"total_amount"`
	AdvanceReceived  decimal.Decimal   `json:"advance_received"`
	PendingAmount    decimal.Decimal   `json:"pending_amount"`
	Status           enums.OrderStatus `json:"status"`
	OrderDate        time.Time         `json:"order_date"`
	ExpectedDelivery *time.Time        `json:"expected_delivery_date,omitempty"`
	Notes            *string           `json:"notes,omitempty"`
	Deliveries       []DeliveryDTO     `json:"deliveries"`
	EwayBills        []EwayBillDTO     `json:"eway_bills"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// ToOrderDTO maps a stored order with its preloaded children.
func ToOrderDTO(order *models.Order) *OrderDTO {
	dto := &OrderDTO{
		OrderID:          order.OrderID,
		CustomerName:     order.CustomerName,
		ProductName:      order.ProductName,
		Description:      order.Description,
		Quantity:         order.Quantity,
		DeliveredQty:     order.DeliveredQty,
		UnitPrice:        order.UnitPrice,
		GSTPercent:       order.GSTPercent,
		BasicAmount:      order.BasicAmount,
		TotalAmount:      order.TotalAmount,
		AdvanceReceived:  order.AdvanceReceived,
		PendingAmount:    order.PendingAmount,
		Status:           order.Status,
		OrderDate:        order.OrderDate,
		ExpectedDelivery: order.ExpectedDelivery,
		Notes:            order.Notes,
		Deliveries:       make([]DeliveryDTO, 0, len(order.Deliveries)),
		EwayBills:        make([]EwayBillDTO, 0, len(order.EwayBills)),
		CreatedAt:        order.CreatedAt,
		UpdatedAt:        order.UpdatedAt,
	}
	deliveryNumbers := make(map[uuid.UUID]int64, len(order.Deliveries))
	for _, d := range order.Deliveries {
		deliveryNumbers[d.ID] = d.DeliveryID
		dto.Deliveries = append(dto.Deliveries, DeliveryDTO{
			DeliveryID:     d.DeliveryID,
			Quantity:       d.Quantity,
			AmountReceived: d.AmountReceived,
			DeliveryDate:   d.DeliveryDate,
			VehicleNumber:  d.VehicleNumber,
			Notes:          d.Notes,
		})
	}
	for _, b := range order.EwayBills {
		bill := EwayBillDTO{
			PublicID:     b.PublicID,
			URL:          b.URL,
			ResourceType: b.ResourceType,
			FileName:     b.FileName,
			SizeBytes:    b.SizeBytes,
			UploadedAt:   b.CreatedAt,
		}
		if b.DeliveryUID != nil {
			if num, ok := deliveryNumbers[*b.DeliveryUID]; ok {
				bill.DeliveryID = &num
			}
		}
		dto.EwayBills = append(dto.EwayBills, bill)
	}
	return dto
}

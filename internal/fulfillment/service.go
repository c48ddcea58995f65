package fulfillment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/adityamehra-dev/orderbook-backend/internal/ledger"
	"github.com/adityamehra-dev/orderbook-backend/pkg/db/models"
	"github.com/adityamehra-dev/orderbook-backend/pkg/enums"
	pkgerrors "github.com/adityamehra-dev/orderbook-backend/pkg/errors"
	"github.com/adityamehra-dev/orderbook-backend/pkg/logger"
	"github.com/adityamehra-dev/orderbook-backend/pkg/pagination"
)

// orderIDAllocation serializes order number assignment per org. Order
// numbers start at 1, so id 0 never collides with a real order's lock.
const orderIDAllocation int64 = 0

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// blobRemover deletes stored attachment objects. Removal failures are
// tolerated; the ledger mutation has already committed.
type blobRemover interface {
	Delete(ctx context.Context, key string) error
}

// Service defines the order book operations an org's staff perform.
type Service interface {
	CreateOrder(ctx context.Context, org string, req CreateOrderRequest) (*OrderDTO, error)
	GetOrder(ctx context.Context, org string, orderID int64) (*OrderDTO, error)
	ListOrders(ctx context.Context, org string, filters ledger.OrderFilters, params pagination.Params) ([]OrderDTO, int64, error)
	EditOrder(ctx context.Context, org string, orderID int64, req EditOrderRequest) (*OrderDTO, error)
	UpdateStatus(ctx context.Context, org string, orderID int64, status enums.OrderStatus) (*OrderDTO, error)
	DeleteOrder(ctx context.Context, org string, orderID int64) error
	AddDelivery(ctx context.Context, org string, orderID int64, req AddDeliveryRequest) (*OrderDTO, error)
	DeleteDelivery(ctx context.Context, org string, orderID, deliveryID int64) (*OrderDTO, error)
	PurgeOrg(ctx context.Context, org string) error
}

type service struct {
	repo   ledger.Repository
	tx     txRunner
	locker OrderLocker
	blobs  blobRemover
	logg   *logger.Logger
}

// NewService wires the fulfillment service. blobs may be nil when no
// object store is configured; attachment cleanup is then skipped.
func NewService(repo ledger.Repository, tx txRunner, locker OrderLocker, blobs blobRemover, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if locker == nil {
		return nil, fmt.Errorf("order locker required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, locker: locker, blobs: blobs, logg: logg}, nil
}

var hundred = decimal.NewFromInt(100)

// computeAmounts derives the basic and GST-inclusive totals.
func computeAmounts(quantity, unitPrice, gstPercent decimal.Decimal) (basic, total decimal.Decimal) {
	basic = quantity.Mul(unitPrice).Round(2)
	total = basic.Add(basic.Mul(gstPercent).Div(hundred)).Round(2)
	return basic, total
}

// computePending is the residual owed: total minus advance minus every
// delivery payment, floored at zero.
func computePending(total, advance, received decimal.Decimal) decimal.Decimal {
	pending := total.Sub(advance).Sub(received).Round(2)
	if pending.IsNegative() {
		return decimal.Zero
	}
	return pending
}

func sumReceived(deliveries []models.Delivery) decimal.Decimal {
	sum := decimal.Zero
	for _, d := range deliveries {
		sum = sum.Add(d.AmountReceived)
	}
	return sum
}

func (s *service) CreateOrder(ctx context.Context, org string, req CreateOrderRequest) (*OrderDTO, error) {
	if err := checkOrderAmounts(req.Quantity, req.UnitPrice, req.GSTPercent, req.AdvanceReceived); err != nil {
		return nil, err
	}

	release, err := s.locker.Lock(ctx, org, orderIDAllocation)
	if err != nil {
		return nil, err
	}
	defer release()

	var created *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		next, err := repo.NextOrderID(ctx, org)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate order id")
		}

		basic, total := computeAmounts(req.Quantity, req.UnitPrice, req.GSTPercent)
		order := &models.Order{
			ID:               uuid.New(),
			Org:              org,
			OrderID:          next,
			CustomerName:     req.CustomerName,
			ProductName:      req.ProductName,
			Description:      req.Description,
			Quantity:         req.Quantity,
			DeliveredQty:     decimal.Zero,
			UnitPrice:        req.UnitPrice,
			GSTPercent:       req.GSTPercent,
			BasicAmount:      basic,
			TotalAmount:      total,
			AdvanceReceived:  req.AdvanceReceived,
			PendingAmount:    computePending(total, req.AdvanceReceived, decimal.Zero),
			Status:           enums.OrderStatusPending,
			OrderDate:        req.OrderDate,
			ExpectedDelivery: req.ExpectedDelivery,
			Notes:            req.Notes,
		}
		created, err = repo.CreateOrder(ctx, order)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ToOrderDTO(created), nil
}

func (s *service) GetOrder(ctx context.Context, org string, orderID int64) (*OrderDTO, error) {
	order, err := s.repo.FindOrder(ctx, org, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return ToOrderDTO(order), nil
}

func (s *service) ListOrders(ctx context.Context, org string, filters ledger.OrderFilters, params pagination.Params) ([]OrderDTO, int64, error) {
	orders, total, err := s.repo.ListOrders(ctx, org, filters, params)
	if err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	dtos := make([]OrderDTO, 0, len(orders))
	for i := range orders {
		dtos = append(dtos, *ToOrderDTO(&orders[i]))
	}
	return dtos, total, nil
}

func (s *service) EditOrder(ctx context.Context, org string, orderID int64, req EditOrderRequest) (*OrderDTO, error) {
	release, err := s.locker.Lock(ctx, org, orderID)
	if err != nil {
		return nil, err
	}
	defer release()

	var updated *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOrder(ctx, org, orderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		quantity := order.Quantity
		if req.Quantity != nil {
			quantity = *req.Quantity
		}
		unitPrice := order.UnitPrice
		if req.UnitPrice != nil {
			unitPrice = *req.UnitPrice
		}
		gstPercent := order.GSTPercent
		if req.GSTPercent != nil {
			gstPercent = *req.GSTPercent
		}
		advance := order.AdvanceReceived
		if req.AdvanceReceived != nil {
			advance = *req.AdvanceReceived
		}
		if err := checkOrderAmounts(quantity, unitPrice, gstPercent, advance); err != nil {
			return err
		}
		if quantity.LessThan(order.DeliveredQty) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "quantity cannot drop below delivered quantity")
		}

		basic, total := computeAmounts(quantity, unitPrice, gstPercent)
		pending := computePending(total, advance, sumReceived(order.Deliveries))

		updates := map[string]any{
			"quantity":         quantity,
			"unit_price":       unitPrice,
			"gst_percent":      gstPercent,
			"advance_received": advance,
			"basic_amount":     basic,
			"total_amount":     total,
			"pending_amount":   pending,
		}
		if req.CustomerName != nil {
			updates["customer_name"] = *req.CustomerName
		}
		if req.ProductName != nil {
			updates["product_name"] = *req.ProductName
		}
		if req.Description != nil {
			updates["description"] = *req.Description
		}
		if req.OrderDate != nil {
			updates["order_date"] = *req.OrderDate
		}
		if req.ExpectedDelivery != nil {
			updates["expected_delivery_date"] = *req.ExpectedDelivery
		}
		if req.Notes != nil {
			updates["notes"] = *req.Notes
		}

		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}
		updated, err = repo.FindOrder(ctx, org, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ToOrderDTO(updated), nil
}

func (s *service) UpdateStatus(ctx context.Context, org string, orderID int64, status enums.OrderStatus) (*OrderDTO, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}

	release, err := s.locker.Lock(ctx, org, orderID)
	if err != nil {
		return nil, err
	}
	defer release()

	var updated *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOrder(ctx, org, orderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		updates := map[string]any{"status": status}
		switch status {
		case enums.OrderStatusCompleted:
			updates["pending_amount"] = decimal.Zero
		case enums.OrderStatusPending:
			if len(order.Deliveries) > 0 && order.DeliveredQty.GreaterThanOrEqual(order.Quantity) {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "fully delivered order cannot be reopened")
			}
			updates["pending_amount"] = computePending(order.TotalAmount, order.AdvanceReceived, sumReceived(order.Deliveries))
		}

		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		updated, err = repo.FindOrder(ctx, org, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ToOrderDTO(updated), nil
}

func (s *service) DeleteOrder(ctx context.Context, org string, orderID int64) error {
	release, err := s.locker.Lock(ctx, org, orderID)
	if err != nil {
		return err
	}
	defer release()

	var objectKeys []string
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOrder(ctx, org, orderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		for _, bill := range order.EwayBills {
			objectKeys = append(objectKeys, bill.ObjectKey)
		}
		if err := repo.DeleteOrder(ctx, order.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.removeBlobs(ctx, objectKeys)
	return nil
}

func (s *service) AddDelivery(ctx context.Context, org string, orderID int64, req AddDeliveryRequest) (*OrderDTO, error) {
	if err := checkWholeQuantity(req.Quantity, "delivery quantity"); err != nil {
		return nil, err
	}
	if req.AmountReceived.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount received cannot be negative")
	}

	release, err := s.locker.Lock(ctx, org, orderID)
	if err != nil {
		return nil, err
	}
	defer release()

	var updated *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOrder(ctx, org, orderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		newDelivered := order.DeliveredQty.Add(req.Quantity)
		if newDelivered.GreaterThan(order.Quantity) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "delivery quantity exceeds remaining order quantity")
		}

		next, err := repo.NextDeliveryID(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate delivery id")
		}
		delivery := &models.Delivery{
			ID:             uuid.New(),
			OrderUID:       order.ID,
			Org:            org,
			OrderID:        order.OrderID,
			DeliveryID:     next,
			Quantity:       req.Quantity,
			AmountReceived: req.AmountReceived,
			DeliveryDate:   req.DeliveryDate,
			VehicleNumber:  req.VehicleNumber,
			Notes:          req.Notes,
		}
		if _, err := repo.CreateDelivery(ctx, delivery); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create delivery")
		}

		updates := map[string]any{"delivered_quantity": newDelivered}
		if newDelivered.GreaterThanOrEqual(order.Quantity) {
			// Full delivery closes the books even when a residual remains.
			updates["status"] = enums.OrderStatusCompleted
			updates["pending_amount"] = decimal.Zero
		} else {
			received := sumReceived(order.Deliveries).Add(req.AmountReceived)
			updates["pending_amount"] = computePending(order.TotalAmount, order.AdvanceReceived, received)
		}
		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}

		updated, err = repo.FindOrder(ctx, org, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ToOrderDTO(updated), nil
}

func (s *service) DeleteDelivery(ctx context.Context, org string, orderID, deliveryID int64) (*OrderDTO, error) {
	release, err := s.locker.Lock(ctx, org, orderID)
	if err != nil {
		return nil, err
	}
	defer release()

	var updated *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOrder(ctx, org, orderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		delivery, err := repo.FindDeliveryByNumber(ctx, order.ID, deliveryID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "delivery not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery")
		}

		// Unreachable while the quantity sum invariant holds; kept as a
		// corruption check.
		if order.DeliveredQty.LessThan(delivery.Quantity) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "delivered quantity is less than the delivery being removed")
		}

		if err := repo.DeleteDelivery(ctx, delivery.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete delivery")
		}

		newDelivered := order.DeliveredQty.Sub(delivery.Quantity)
		received := sumReceived(order.Deliveries).Sub(delivery.AmountReceived)
		updates := map[string]any{
			"delivered_quantity": newDelivered,
			"pending_amount":     computePending(order.TotalAmount, order.AdvanceReceived, received),
		}
		if newDelivered.LessThan(order.Quantity) && order.Status == enums.OrderStatusCompleted {
			updates["status"] = enums.OrderStatusPending
		}
		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}

		updated, err = repo.FindOrder(ctx, org, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ToOrderDTO(updated), nil
}

// PurgeOrg removes every order the org holds, with its deliveries and
// attachments. Used by account deletion.
func (s *service) PurgeOrg(ctx context.Context, org string) error {
	bills, err := s.repo.ListOrgEwayBills(ctx, org)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list org attachments")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).DeleteOrgOrders(ctx, org); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete org orders")
		}
		return nil
	})
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(bills))
	for _, bill := range bills {
		keys = append(keys, bill.ObjectKey)
	}
	s.removeBlobs(ctx, keys)
	return nil
}

// removeBlobs deletes attachment objects after the ledger change has
// committed. Failures leave orphaned blobs, which is acceptable.
func (s *service) removeBlobs(ctx context.Context, keys []string) {
	if s.blobs == nil || len(keys) == 0 {
		return
	}
	for _, key := range keys {
		if err := s.blobs.Delete(ctx, key); err != nil {
			s.logg.Error(s.logg.WithField(ctx, "object_key", key), "delete attachment blob", err)
		}
	}
}

// minUnitPrice keeps zero-value orders out of the ledger.
var minUnitPrice = decimal.New(1, -2)

func checkOrderAmounts(quantity, unitPrice, gstPercent, advance decimal.Decimal) error {
	if err := checkWholeQuantity(quantity, "order quantity"); err != nil {
		return err
	}
	if unitPrice.LessThan(minUnitPrice) {
		return pkgerrors.New(pkgerrors.CodeValidation, "unit price must be at least 0.01")
	}
	if gstPercent.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "gst percent cannot be negative")
	}
	if advance.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "advance received cannot be negative")
	}
	return nil
}

// checkWholeQuantity rejects fractional and sub-one quantities. Units
// in the ledger are counted pieces, not measures.
func checkWholeQuantity(quantity decimal.Decimal, field string) error {
	if quantity.LessThan(decimal.NewFromInt(1)) {
		return pkgerrors.New(pkgerrors.CodeValidation, field+" must be at least 1")
	}
	if !quantity.IsInteger() {
		return pkgerrors.New(pkgerrors.CodeValidation, field+" must be a whole number")
	}
	return nil
}

package reports

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/adityamehra-dev/orderbook-backend/internal/ledger"
	pkgerrors "github.com/adityamehra-dev/orderbook-backend/pkg/errors"
)

const exportSheet = "Sheet1"

var orderExportHeaders = []string{
	"Order ID", "Customer", "Product", "Order Date", "Expected Delivery",
	"Quantity", "Delivered", "Unit Price", "GST %", "Basic Amount",
	"Total Amount", "Advance Received", "Pending Amount", "Status",
}

// ExportOrders renders the filtered order list as a spreadsheet.
func (s *service) ExportOrders(ctx context.Context, org string, filters ledger.OrderFilters) (*excelize.File, error) {
	orders, err := s.orders.FilteredOrders(ctx, org, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load filtered orders")
	}

	f := excelize.NewFile()
	for col, header := range orderExportHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build export header")
		}
		if err := f.SetCellValue(exportSheet, cell, header); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write export header")
		}
	}

	for row := range orders {
		order := &orders[row]
		expected := ""
		if order.ExpectedDelivery != nil {
			expected = order.ExpectedDelivery.Format("2006-01-02")
		}
		values := []any{
			order.OrderID,
			order.CustomerName,
			order.ProductName,
			order.OrderDate.Format("2006-01-02"),
			expected,
			order.Quantity.InexactFloat64(),
			order.DeliveredQty.InexactFloat64(),
			order.UnitPrice.InexactFloat64(),
			order.GSTPercent.InexactFloat64(),
			order.BasicAmount.InexactFloat64(),
			order.TotalAmount.InexactFloat64(),
			order.AdvanceReceived.InexactFloat64(),
			order.PendingAmount.InexactFloat64(),
			string(order.Status),
		}
		if err := writeRow(f, row+2, values); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// ExportRevenue renders the monthly revenue series as a spreadsheet.
func (s *service) ExportRevenue(ctx context.Context, org string) (*excelize.File, error) {
	points, err := s.MonthlyRevenue(ctx, org)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	for col, header := range []string{"Month", "Orders", "Revenue"} {
		cell := fmt.Sprintf("%c1", 'A'+col)
		if err := f.SetCellValue(exportSheet, cell, header); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write export header")
		}
	}
	for row, point := range points {
		values := []any{point.Month, point.Orders, point.Revenue.InexactFloat64()}
		if err := writeRow(f, row+2, values); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func writeRow(f *excelize.File, row int, values []any) error {
	for col, value := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build export cell")
		}
		if err := f.SetCellValue(exportSheet, cell, value); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write export cell")
		}
	}
	return nil
}

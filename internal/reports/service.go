package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/adityamehra-dev/orderbook-backend/internal/ledger"
	"github.com/adityamehra-dev/orderbook-backend/pkg/db/models"
	"github.com/adityamehra-dev/orderbook-backend/pkg/enums"
	pkgerrors "github.com/adityamehra-dev/orderbook-backend/pkg/errors"
)

const (
	minOrdersForRFM      = 5
	minOrdersForForecast = 10

	// monthKeyFormat keys revenue buckets so they sort chronologically.
	monthKeyFormat = "2006-01"
)

// Service computes read-only analytics over the org's order ledger.
type Service interface {
	Summary(ctx context.Context, org string) (*Summary, error)
	MonthlyRevenue(ctx context.Context, org string) ([]MonthlyRevenuePoint, error)
	RFM(ctx context.Context, org string) (*RFMReport, error)
	SalesForecast(ctx context.Context, org string, days int) (*Forecast, error)
	OrderSizes(ctx context.Context, org string) (*OrderSizes, error)
	ExportOrders(ctx context.Context, org string, filters ledger.OrderFilters) (*excelize.File, error)
	ExportRevenue(ctx context.Context, org string) (*excelize.File, error)
}

type ordersRepository interface {
	AllOrders(ctx context.Context, org string) ([]models.Order, error)
	FilteredOrders(ctx context.Context, org string, filters ledger.OrderFilters) ([]models.Order, error)
}

type service struct {
	orders ordersRepository
	now    func() time.Time
}

// ServiceParams bundles the dependencies required to build a reports service.
type ServiceParams struct {
	OrdersRepo ordersRepository
	// Now overrides the clock. Leave nil outside tests.
	Now func() time.Time
}

// NewService constructs a reports service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.OrdersRepo == nil {
		return nil, fmt.Errorf("orders repository is required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{orders: params.OrdersRepo, now: now}, nil
}

// orderRevenue is the recognized revenue of a single order: everything
// received up front, plus the pending balance once the order completes.
func orderRevenue(order *models.Order) decimal.Decimal {
	if order.Status == enums.OrderStatusCompleted {
		return order.AdvanceReceived.Add(order.PendingAmount)
	}
	return order.AdvanceReceived
}

func (s *service) load(ctx context.Context, org string) ([]models.Order, error) {
	orders, err := s.orders.AllOrders(ctx, org)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load org orders")
	}
	return orders, nil
}

func (s *service) Summary(ctx context.Context, org string) (*Summary, error) {
	orders, err := s.load(ctx, org)
	if err != nil {
		return nil, err
	}

	now := s.now()
	curYear, curMonth, _ := now.Date()
	firstOfMonth := time.Date(curYear, curMonth, 1, 0, 0, 0, 0, now.Location())
	lastYear, lastMonth, _ := firstOfMonth.AddDate(0, 0, -1).Date()

	var current, lastPeriod []models.Order
	for i := range orders {
		y, m, _ := orders[i].OrderDate.Date()
		switch {
		case y == curYear && m == curMonth:
			current = append(current, orders[i])
		case y == lastYear && m == lastMonth:
			lastPeriod = append(lastPeriod, orders[i])
		}
	}

	summary := &Summary{
		AllTime:      summarize(orders),
		CurrentMonth: summarize(current),
		GeneratedAt:  now,
	}

	lastRevenue := summarize(lastPeriod).Revenue
	currentRevenue := summary.CurrentMonth.Revenue
	switch {
	case len(lastPeriod) == 0 || len(current) == 0:
		summary.MoMGrowthPct = decimal.Zero
	case lastRevenue.IsZero():
		summary.MoMGrowthPct = decimal.NewFromInt(100)
	default:
		summary.MoMGrowthPct = currentRevenue.Sub(lastRevenue).
			Div(lastRevenue).
			Mul(decimal.NewFromInt(100)).
			Round(2)
	}
	return summary, nil
}

func summarize(orders []models.Order) PeriodSummary {
	out := PeriodSummary{
		Revenue:       decimal.Zero,
		PendingAmount: decimal.Zero,
		AvgOrderValue: decimal.Zero,
	}
	for i := range orders {
		order := &orders[i]
		out.TotalOrders++
		if order.Status == enums.OrderStatusCompleted {
			out.CompletedOrders++
		} else {
			out.PendingOrders++
		}
		out.Revenue = out.Revenue.Add(orderRevenue(order))
		out.PendingAmount = out.PendingAmount.Add(order.PendingAmount)
	}
	if out.TotalOrders > 0 {
		out.AvgOrderValue = out.Revenue.Div(decimal.NewFromInt(int64(out.TotalOrders))).Round(2)
	}
	return out
}

func (s *service) MonthlyRevenue(ctx context.Context, org string) ([]MonthlyRevenuePoint, error) {
	orders, err := s.load(ctx, org)
	if err != nil {
		return nil, err
	}

	revenue := map[string]decimal.Decimal{}
	counts := map[string]int{}
	for i := range orders {
		key := orders[i].OrderDate.Format(monthKeyFormat)
		revenue[key] = revenue[key].Add(orderRevenue(&orders[i]))
		counts[key]++
	}

	months := make([]string, 0, len(revenue))
	for key := range revenue {
		months = append(months, key)
	}
	sort.Strings(months)

	points := make([]MonthlyRevenuePoint, 0, len(months))
	for _, key := range months {
		points = append(points, MonthlyRevenuePoint{
			Month:   key,
			Revenue: revenue[key],
			Orders:  counts[key],
		})
	}
	return points, nil
}

func (s *service) RFM(ctx context.Context, org string) (*RFMReport, error) {
	orders, err := s.load(ctx, org)
	if err != nil {
		return nil, err
	}
	if len(orders) < minOrdersForRFM {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("at least %d orders are required for customer segmentation", minOrdersForRFM))
	}
	report := buildRFM(orders, s.now())
	return report, nil
}

func (s *service) SalesForecast(ctx context.Context, org string, days int) (*Forecast, error) {
	if days != 7 && days != 14 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "forecast horizon must be 7 or 14 days")
	}
	orders, err := s.load(ctx, org)
	if err != nil {
		return nil, err
	}
	if len(orders) < minOrdersForForecast {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("at least %d orders are required for a sales forecast", minOrdersForForecast))
	}
	return buildForecast(orders, days)
}

func (s *service) OrderSizes(ctx context.Context, org string) (*OrderSizes, error) {
	orders, err := s.load(ctx, org)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no orders to analyze")
	}
	return buildOrderSizes(orders), nil
}

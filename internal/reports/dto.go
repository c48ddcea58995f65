package reports

import (
	"time"

	"github.com/shopspring/decimal"
)

// PeriodSummary aggregates order counts and money for one slice of the
// ledger (all time or a single month).
type PeriodSummary struct {
	TotalOrders     int             `json:"total_orders"`
	CompletedOrders int             `json:"completed_orders"`
	PendingOrders   int             `json:"pending_orders"`
	Revenue         decimal.Decimal `json:"revenue"`
	PendingAmount   decimal.Decimal `json:"pending_amount"`
	AvgOrderValue   decimal.Decimal `json:"avg_order_value"`
}

// Summary is the order-book overview: lifetime figures, the current
// month, and month-over-month revenue growth.
type Summary struct {
	AllTime      PeriodSummary   `json:"all_time"`
	CurrentMonth PeriodSummary   `json:"current_month"`
	MoMGrowthPct decimal.Decimal `json:"mom_growth_pct"`
	GeneratedAt  time.Time       `json:"generated_at"`
}

// MonthlyRevenuePoint is one month of recognized revenue.
type MonthlyRevenuePoint struct {
	Month   string          `json:"month"`
	Revenue decimal.Decimal `json:"revenue"`
	Orders  int             `json:"orders"`
}

// CustomerSegment is one customer's RFM scoring result.
type CustomerSegment struct {
	CustomerName string          `json:"customer_name"`
	RecencyDays  int             `json:"recency_days"`
	Frequency    int             `json:"frequency"`
	Monetary     decimal.Decimal `json:"monetary"`
	RecencyScore int             `json:"recency_score"`
	FreqScore    int             `json:"frequency_score"`
	MonScore     int             `json:"monetary_score"`
	TotalScore   int             `json:"total_score"`
	Segment      string          `json:"segment"`
}

// RFMReport groups customers into retention segments.
type RFMReport struct {
	Customers     []CustomerSegment `json:"customers"`
	SegmentCounts map[string]int    `json:"segment_counts"`
}

// ForecastPoint is one projected day of revenue.
type ForecastPoint struct {
	Day     int     `json:"day"`
	Date    string  `json:"date"`
	Revenue float64 `json:"revenue"`
}

// Forecast is the OLS daily revenue projection.
type Forecast struct {
	Days         int             `json:"days"`
	Slope        float64         `json:"slope"`
	Intercept    float64         `json:"intercept"`
	RSquared     float64         `json:"r_squared"`
	Points       []ForecastPoint `json:"points"`
	TotalRevenue float64         `json:"total_revenue"`
}

// SizeBucket is one bar of the order-size histogram.
type SizeBucket struct {
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
	Count int     `json:"count"`
}

// CustomerVolume ranks a customer by total ordered quantity.
type CustomerVolume struct {
	CustomerName string          `json:"customer_name"`
	Quantity     decimal.Decimal `json:"quantity"`
}

// OrderSizes describes the distribution of order quantities.
type OrderSizes struct {
	Mean         float64          `json:"mean"`
	Median       float64          `json:"median"`
	Buckets      []SizeBucket     `json:"buckets"`
	TopCustomers []CustomerVolume `json:"top_customers"`
}

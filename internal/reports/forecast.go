package reports

import (
	"sort"

	pkgerrors "github.com/adityamehra-dev/orderbook-backend/pkg/errors"

	"github.com/adityamehra-dev/orderbook-backend/pkg/db/models"
)

const forecastDateFormat = "2006-01-02"

// buildForecast fits an ordinary-least-squares line through daily
// revenue and projects it forward.
func buildForecast(orders []models.Order, days int) (*Forecast, error) {
	daily := map[string]float64{}
	for i := range orders {
		key := orders[i].OrderDate.Format(forecastDateFormat)
		rev, _ := orderRevenue(&orders[i]).Float64()
		daily[key] += rev
	}

	dates := make([]string, 0, len(daily))
	for key := range daily {
		dates = append(dates, key)
	}
	sort.Strings(dates)

	n := float64(len(dates))
	if len(dates) < 2 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "orders span too few days for a forecast")
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, key := range dates {
		x := float64(i + 1)
		y := daily[key]
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	slope := (n*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / n

	meanY := sumY / n
	var ssRes, ssTot float64
	for i, key := range dates {
		x := float64(i + 1)
		y := daily[key]
		fit := intercept + slope*x
		ssRes += (y - fit) * (y - fit)
		ssTot += (y - meanY) * (y - meanY)
	}
	rSquared := 0.0
	if ssTot > 0 {
		rSquared = 1 - ssRes/ssTot
	}

	lastDate, err := lastDay(dates)
	if err != nil {
		return nil, err
	}

	forecast := &Forecast{
		Days:      days,
		Slope:     slope,
		Intercept: intercept,
		RSquared:  rSquared,
		Points:    make([]ForecastPoint, 0, days),
	}
	for d := 1; d <= days; d++ {
		x := n + float64(d)
		projected := intercept + slope*x
		if projected < 0 {
			projected = 0
		}
		forecast.Points = append(forecast.Points, ForecastPoint{
			Day:     d,
			Date:    lastDate.AddDate(0, 0, d).Format(forecastDateFormat),
			Revenue: projected,
		})
		forecast.TotalRevenue += projected
	}
	return forecast, nil
}

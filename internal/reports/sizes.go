package reports

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/adityamehra-dev/orderbook-backend/pkg/db/models"
	pkgerrors "github.com/adityamehra-dev/orderbook-backend/pkg/errors"
)

const (
	sizeHistogramBins = 20
	topCustomerCount  = 5
)

func lastDay(dates []string) (time.Time, error) {
	parsed, err := time.Parse(forecastDateFormat, dates[len(dates)-1])
	if err != nil {
		return time.Time{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "parse ledger date")
	}
	return parsed, nil
}

func buildOrderSizes(orders []models.Order) *OrderSizes {
	quantities := make([]float64, 0, len(orders))
	byCustomer := map[string]decimal.Decimal{}
	for i := range orders {
		qty, _ := orders[i].Quantity.Float64()
		quantities = append(quantities, qty)
		name := orders[i].CustomerName
		byCustomer[name] = byCustomer[name].Add(orders[i].Quantity)
	}
	sort.Float64s(quantities)

	var sum float64
	for _, qty := range quantities {
		sum += qty
	}
	mean := sum / float64(len(quantities))

	mid := len(quantities) / 2
	median := quantities[mid]
	if len(quantities)%2 == 0 {
		median = (quantities[mid-1] + quantities[mid]) / 2
	}

	out := &OrderSizes{
		Mean:    mean,
		Median:  median,
		Buckets: histogram(quantities),
	}

	names := make([]string, 0, len(byCustomer))
	for name := range byCustomer {
		names = append(names, name)
	}
	sort.Slice(names, func(a, b int) bool {
		cmp := byCustomer[names[a]].Cmp(byCustomer[names[b]])
		if cmp == 0 {
			return names[a] < names[b]
		}
		return cmp > 0
	})
	for i, name := range names {
		if i == topCustomerCount {
			break
		}
		out.TopCustomers = append(out.TopCustomers, CustomerVolume{
			CustomerName: name,
			Quantity:     byCustomer[name],
		})
	}
	return out
}

// histogram splits sorted values into equal-width buckets. Sparse
// ledgers keep their empty bars.
func histogram(sorted []float64) []SizeBucket {
	low, high := sorted[0], sorted[len(sorted)-1]
	if low == high {
		return []SizeBucket{{Low: low, High: high, Count: len(sorted)}}
	}

	width := (high - low) / sizeHistogramBins
	buckets := make([]SizeBucket, sizeHistogramBins)
	for i := range buckets {
		buckets[i].Low = low + width*float64(i)
		buckets[i].High = low + width*float64(i+1)
	}
	for _, value := range sorted {
		idx := int((value - low) / width)
		if idx >= sizeHistogramBins {
			idx = sizeHistogramBins - 1
		}
		buckets[idx].Count++
	}
	return buckets
}

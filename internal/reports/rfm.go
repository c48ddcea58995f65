package reports

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/adityamehra-dev/orderbook-backend/pkg/db/models"
)

const (
	segmentVIP        = "VIP"
	segmentLoyal      = "Loyal"
	segmentOccasional = "Occasional"
	segmentAtRisk     = "At-Risk"
)

func buildRFM(orders []models.Order, now time.Time) *RFMReport {
	type stats struct {
		lastOrder time.Time
		frequency int
		monetary  decimal.Decimal
	}
	byCustomer := map[string]*stats{}
	for i := range orders {
		order := &orders[i]
		entry, ok := byCustomer[order.CustomerName]
		if !ok {
			entry = &stats{monetary: decimal.Zero}
			byCustomer[order.CustomerName] = entry
		}
		if order.OrderDate.After(entry.lastOrder) {
			entry.lastOrder = order.OrderDate
		}
		entry.frequency++
		entry.monetary = entry.monetary.Add(orderRevenue(order))
	}

	names := make([]string, 0, len(byCustomer))
	for name := range byCustomer {
		names = append(names, name)
	}
	sort.Strings(names)

	recency := make([]float64, len(names))
	frequency := make([]float64, len(names))
	monetary := make([]float64, len(names))
	for i, name := range names {
		entry := byCustomer[name]
		recency[i] = now.Sub(entry.lastOrder).Hours() / 24
		frequency[i] = float64(entry.frequency)
		monetary[i], _ = entry.monetary.Float64()
	}

	rScores := quartileScores(recency, false)
	fScores := quartileScores(frequency, true)
	mScores := quartileScores(monetary, true)

	report := &RFMReport{
		Customers:     make([]CustomerSegment, 0, len(names)),
		SegmentCounts: map[string]int{},
	}
	for i, name := range names {
		entry := byCustomer[name]
		total := rScores[i] + fScores[i] + mScores[i]
		segment := segmentFor(total)
		report.Customers = append(report.Customers, CustomerSegment{
			CustomerName: name,
			RecencyDays:  int(recency[i]),
			Frequency:    entry.frequency,
			Monetary:     entry.monetary,
			RecencyScore: rScores[i],
			FreqScore:    fScores[i],
			MonScore:     mScores[i],
			TotalScore:   total,
			Segment:      segment,
		})
		report.SegmentCounts[segment]++
	}
	return report
}

func segmentFor(score int) string {
	switch {
	case score >= 10:
		return segmentVIP
	case score >= 7:
		return segmentLoyal
	case score >= 4:
		return segmentOccasional
	default:
		return segmentAtRisk
	}
}

// quartileScores ranks values into scores 1 through 4. With
// higherIsBetter the top quartile scores 4; otherwise it scores 1.
// Ties share the score of their first occurrence in rank order.
func quartileScores(values []float64, higherIsBetter bool) []int {
	n := len(values)
	scores := make([]int, n)
	if n == 0 {
		return scores
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return values[order[a]] < values[order[b]]
	})

	rankOf := make([]int, n)
	for rank, idx := range order {
		if rank > 0 && values[idx] == values[order[rank-1]] {
			rankOf[idx] = rankOf[order[rank-1]]
			continue
		}
		rankOf[idx] = rank
	}

	for i := 0; i < n; i++ {
		bucket := rankOf[i]*4/n + 1
		if bucket > 4 {
			bucket = 4
		}
		if higherIsBetter {
			scores[i] = bucket
		} else {
			scores[i] = 5 - bucket
		}
	}
	return scores
}

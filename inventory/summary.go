package inventory

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// MonthlySummary is the stock movement and running balance of one product for
// one calendar month.
type MonthlySummary struct {
	Month           time.Time
	Product         string
	InflowQuantity  decimal.Decimal
	InflowWeight    decimal.Decimal
	ReleaseQuantity decimal.Decimal
	ReleaseWeight   decimal.Decimal
	OpeningQuantity decimal.Decimal
	OpeningWeight   decimal.Decimal
	BalanceQuantity decimal.Decimal
	BalanceWeight   decimal.Decimal
}

// Summarise totals the dated movements by month and product. Every product gets
// a row for every month in which anything moved, with the opening stock carried
// forward from the previous month's balance. Rows are ordered newest month first
// and then by product.
func Summarise(movements []Movement) []MonthlySummary {
	type slot struct {
		month   time.Time
		product string
	}

	totals := map[slot]*MonthlySummary{}
	months := map[time.Time]bool{}
	products := map[string]bool{}

	for _, m := range movements {
		if m.Date.IsZero() {
			continue
		}

		month := time.Date(m.Date.Year(), m.Date.Month(), 1, 0, 0, 0, 0, time.UTC)
		k := slot{month, m.Key}
		months[month] = true
		products[m.Key] = true

		s, ok := totals[k]
		if !ok {
			s = &MonthlySummary{Month: month, Product: m.Key}
			totals[k] = s
		}

		switch m.Direction {
		case Release:
			s.ReleaseQuantity = s.ReleaseQuantity.Add(m.Quantity)
			s.ReleaseWeight = s.ReleaseWeight.Add(m.Weight)
		default:
			s.InflowQuantity = s.InflowQuantity.Add(m.Quantity)
			s.InflowWeight = s.InflowWeight.Add(m.Weight)
		}
	}

	chronological := []time.Time{}
	for k := range months {
		chronological = append(chronological, k)
	}

	sort.Slice(chronological, func(i, j int) bool { return chronological[i].Before(chronological[j]) })

	names := []string{}
	for k := range products {
		names = append(names, k)
	}

	sort.Strings(names)

	summary := []MonthlySummary{}
	for _, product := range names {
		quantity := decimal.Zero
		weight := decimal.Zero

		for _, month := range chronological {
			s := MonthlySummary{
				Month:           month,
				Product:         product,
				InflowQuantity:  decimal.Zero,
				InflowWeight:    decimal.Zero,
				ReleaseQuantity: decimal.Zero,
				ReleaseWeight:   decimal.Zero,
			}

			if v, ok := totals[slot{month, product}]; ok {
				s = *v
			}

			s.OpeningQuantity = quantity
			s.OpeningWeight = weight
			s.BalanceQuantity = quantity.Add(s.InflowQuantity).Sub(s.ReleaseQuantity)
			s.BalanceWeight = weight.Add(s.InflowWeight).Sub(s.ReleaseWeight)

			quantity = s.BalanceQuantity
			weight = s.BalanceWeight

			summary = append(summary, s)
		}
	}

	sort.SliceStable(summary, func(i, j int) bool {
		if !summary[i].Month.Equal(summary[j].Month) {
			return summary[i].Month.After(summary[j].Month)
		}

		return summary[i].Product < summary[j].Product
	})

	return summary
}

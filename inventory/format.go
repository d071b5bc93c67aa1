package inventory

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

var RecordHeader = []string{
	"item",
	"inflow_quantity",
	"release_quantity",
	"quantity",
	"inflow_weight",
	"release_weight",
	"weight",
	"status",
	"first_movement",
	"last_movement",
	"rows",
	"updated",
}

var SummaryHeader = []string{
	"month",
	"year_month",
	"product",
	"inflow_quantity",
	"inflow_weight",
	"release_quantity",
	"release_weight",
	"opening_quantity",
	"opening_weight",
	"balance_quantity",
	"balance_weight",
}

// Values formats a record as a row matching RecordHeader.
func (r Record) Values() []string {
	return []string{
		r.Key,
		r.Inflow.String(),
		r.Released.String(),
		r.Quantity().String(),
		r.InflowWeight.String(),
		r.ReleasedWeight.String(),
		r.Weight().String(),
		string(r.Status),
		day(r.First),
		day(r.Last),
		fmt.Sprintf("%v", r.Rows),
		stamp(r.DerivedAt),
	}
}

// Values formats a summary line as a row matching SummaryHeader.
func (s MonthlySummary) Values() []string {
	return []string{
		strings.ToLower(s.Month.Format("Jan")),
		s.Month.Format("2006-01"),
		s.Product,
		s.InflowQuantity.String(),
		s.InflowWeight.String(),
		s.ReleaseQuantity.String(),
		s.ReleaseWeight.String(),
		s.OpeningQuantity.String(),
		s.OpeningWeight.String(),
		s.BalanceQuantity.String(),
		s.BalanceWeight.String(),
	}
}

// Sorted returns the records ordered by key.
func (i *Inventory) Sorted() []Record {
	keys := []string{}
	for k := range i.Records {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	records := []Record{}
	for _, k := range keys {
		records = append(records, i.Records[k])
	}

	return records
}

func day(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.Format("2006-01-02")
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.Format("2006-01-02 15:04:05")
}

package inventory

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Transformer turns raw source rows into inventory records.
type Transformer struct {
	Rules Rules
}

// Transform parses and merges the source sheets. Rows with a missing or invalid
// key, date, quantity or weight are skipped and reported in Inventory.Skipped;
// only a sheet with an unusable header fails the transform. The result depends
// only on the rows and 'at', never on the order of duplicate-key rows.
func (t Transformer) Transform(at time.Time, sheets ...Sheet) (*Inventory, error) {
	inventory := Inventory{
		Records:   map[string]Record{},
		Ledgers:   []Ledger{},
		Skipped:   []Skip{},
		DerivedAt: at,
	}

	movements := []Movement{}

	for _, sheet := range sheets {
		ledger, skipped, rows, err := t.ledger(sheet)
		if err != nil {
			return nil, err
		}

		inventory.Ledgers = append(inventory.Ledgers, *ledger)
		inventory.Skipped = append(inventory.Skipped, skipped...)
		inventory.Rows += rows

		for _, m := range ledger.Movements {
			r := fromMovement(m, t.Rules.weightOnly(m.Key))
			if v, ok := inventory.Records[m.Key]; ok {
				r = v.Merge(r)
			}

			inventory.Records[m.Key] = r
		}

		movements = append(movements, ledger.Movements...)
	}

	for k, r := range inventory.Records {
		r.Status = t.Rules.status(r)
		r.DerivedAt = at
		inventory.Records[k] = r
	}

	inventory.Summary = Summarise(movements)

	return &inventory, nil
}

func (t Transformer) ledger(sheet Sheet) (*Ledger, []Skip, int, error) {
	feed := sheet.Feed
	ledger := Ledger{
		Feed:      feed,
		Header:    []string{},
		Rows:      [][]string{},
		Movements: []Movement{},
	}

	if len(sheet.Rows) == 0 {
		return &ledger, nil, 0, nil
	}

	cols, err := resolve(feed, sheet.Rows[0])
	if err != nil {
		return nil, nil, 0, err
	}

	ledger.Header = append(ledger.Header, cols.header...)
	if cols.date >= 0 {
		ledger.Header = append(ledger.Header, "month", "year_month")
	}

	skipped := []Skip{}
	count := 0
	skip := func(row RawRow, format string, args ...any) {
		skipped = append(skipped, Skip{
			Feed:   feed.Name,
			Row:    row.Index,
			Reason: fmt.Sprintf(format, args...),
		})
	}

	for _, row := range sheet.Rows[1:] {
		if blank(row) {
			continue
		}

		count++

		raw := cols.cell(row, cols.key)
		if raw == "" {
			skip(row, "missing key")
			continue
		}

		key, ok := canonical(raw, t.Rules.KeyCase)
		if !ok {
			skip(row, "invalid key '%v'", raw)
			continue
		}

		var when time.Time
		if cols.date >= 0 {
			v := cols.cell(row, cols.date)
			if v == "" {
				skip(row, "missing date")
				continue
			} else if when, ok = date(v); !ok {
				skip(row, "invalid date '%v'", v)
				continue
			}
		}

		quantity := decimal.Zero
		if cols.quantity >= 0 {
			v := cols.cell(row, cols.quantity)
			if quantity, ok = number(v); !ok {
				skip(row, "invalid quantity '%v'", v)
				continue
			}
		}

		weight := decimal.Zero
		if cols.weight >= 0 {
			v := cols.cell(row, cols.weight)
			if weight, ok = number(v); !ok {
				skip(row, "invalid weight '%v'", v)
				continue
			}
		}

		if t.Rules.weightOnly(key) {
			quantity = decimal.Zero
		}

		m := Movement{
			Feed:      feed.Name,
			Row:       row.Index,
			Direction: feed.Direction,
			Date:      when,
			Key:       key,
			Quantity:  quantity,
			Weight:    weight,
		}

		ledger.Movements = append(ledger.Movements, m)
		ledger.Rows = append(ledger.Rows, cols.clean(row, m))
	}

	return &ledger, skipped, count, nil
}

func (c *columns) clean(row RawRow, m Movement) []string {
	record := make([]string, len(c.header))

	for i := range c.header {
		switch i {
		case c.key:
			record[i] = m.Key

		case c.quantity:
			record[i] = m.Quantity.String()

		case c.weight:
			record[i] = m.Weight.String()

		case c.date:
			record[i] = m.Date.Format("2006-01-02")

		default:
			v := clean(c.cell(row, i))
			if _, ok := number(v); ok && v != "" {
				v = strings.ReplaceAll(v, ",", "")
			}

			record[i] = v
		}
	}

	if c.date >= 0 {
		record = append(record, strings.ToLower(m.Date.Format("Jan")), m.Date.Format("2006-Jan"))
	}

	return record
}

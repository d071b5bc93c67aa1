package inventory

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	DefaultKey      = []string{"item", "item_id", "sku", "product"}
	DefaultQuantity = []string{"quantity", "qty"}
	DefaultWeight   = []string{"weight", "weight_in_kg", "weight_at_delivery"}
	DefaultDate     = []string{"date"}
)

var dateFormats = []string{
	"2 Jan 2006",
	"2/1/06",
	"2-Jan-2006",
	"2006-01-02",
	"2/1/2006",
	"2 January 2006",
}

var (
	whitespace = regexp.MustCompile(`\s+`)
	validKey   = regexp.MustCompile(`^[\p{L}\p{N}][\p{L}\p{N} _./#-]*$`)
)

type columns struct {
	header   []string
	key      int
	quantity int
	weight   int
	date     int
}

// resolve builds the column index for a feed from its header row.
func resolve(feed Feed, row RawRow) (*columns, error) {
	index := map[string]int{}
	header := make([]string, len(row.Cells))

	for i, v := range row.Cells {
		k := normalise(text(v))
		header[i] = k
		if k == "" {
			continue
		}

		if _, ok := index[k]; ok {
			return nil, &SchemaError{Feed: feed.Name, Reason: fmt.Sprintf("duplicate column name '%s'", text(v))}
		}

		index[k] = i
	}

	lookup := func(names, defaults []string) int {
		if len(names) == 0 {
			names = defaults
		}

		for _, name := range names {
			if ix, ok := index[normalise(name)]; ok {
				return ix
			}
		}

		return -1
	}

	c := columns{
		header:   header,
		key:      lookup(feed.Key, DefaultKey),
		quantity: lookup(feed.Quantity, DefaultQuantity),
		weight:   lookup(feed.Weight, DefaultWeight),
		date:     lookup(feed.Date, DefaultDate),
	}

	if c.key < 0 {
		names := feed.Key
		if len(names) == 0 {
			names = DefaultKey
		}

		return nil, &SchemaError{Feed: feed.Name, Reason: fmt.Sprintf("missing '%s' column", names[0])}
	}

	if c.quantity < 0 && c.weight < 0 {
		return nil, &SchemaError{Feed: feed.Name, Reason: "missing 'quantity' or 'weight' column"}
	}

	// ... canonical names for the recognised columns
	if c.quantity >= 0 {
		c.header[c.quantity] = "quantity"
	}

	if c.weight >= 0 {
		c.header[c.weight] = "weight"
	}

	if c.date >= 0 {
		c.header[c.date] = "date"
	}

	return &c, nil
}

func (c *columns) cell(row RawRow, ix int) string {
	if ix < 0 || ix >= len(row.Cells) {
		return ""
	}

	return text(row.Cells[ix])
}

func blank(row RawRow) bool {
	for _, v := range row.Cells {
		if text(v) != "" {
			return false
		}
	}

	return true
}

func canonical(key string, kc KeyCase) (string, bool) {
	k := whitespace.ReplaceAllString(strings.TrimSpace(key), " ")
	if k == "" || !validKey.MatchString(k) {
		return k, false
	}

	switch kc {
	case LowerCase:
		return strings.ToLower(k), true
	case UpperCase:
		return strings.ToUpper(k), true
	default:
		return k, true
	}
}

func number(v string) (decimal.Decimal, bool) {
	s := strings.ReplaceAll(strings.TrimSpace(v), ",", "")
	if s == "" {
		return decimal.Zero, true
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}

	return d, true
}

func date(v string) (time.Time, bool) {
	s := whitespace.ReplaceAllString(strings.TrimSpace(v), " ")
	for _, format := range dateFormats {
		if t, err := time.ParseInLocation(format, s, time.UTC); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", t))
	}
}

func clean(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

func normalise(v string) string {
	s := strings.ToLower(strings.TrimSpace(v))
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")

	return s
}

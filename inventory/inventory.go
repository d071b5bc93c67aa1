package inventory

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RawRow is a single worksheet row as returned by the Sheets API. Index is the
// 1-based row number in the worksheet.
type RawRow struct {
	Index int
	Cells []any
}

// Direction distinguishes stock coming in from stock going out.
type Direction int

const (
	Inflow Direction = iota
	Release
)

func (d Direction) String() string {
	if d == Release {
		return "release"
	}

	return "inflow"
}

// Feed describes one source worksheet. The column lists are the accepted header
// names for each field, in order of preference.
type Feed struct {
	Name      string
	Range     string
	Direction Direction
	Key       []string
	Quantity  []string
	Weight    []string
	Date      []string
	Clean     string
}

// Sheet pairs a feed with the rows read for it. The first row is the header.
type Sheet struct {
	Feed Feed
	Rows []RawRow
}

type KeyCase string

const (
	PreserveCase KeyCase = "preserve"
	LowerCase    KeyCase = "lower"
	UpperCase    KeyCase = "upper"
)

// Rules are the business rules applied while merging movements into records.
type Rules struct {
	KeyCase    KeyCase
	WeightOnly []string
	LowStock   decimal.Decimal
}

// Movement is one accepted source row.
type Movement struct {
	Feed      string
	Row       int
	Direction Direction
	Date      time.Time
	Key       string
	Quantity  decimal.Decimal
	Weight    decimal.Decimal
}

// Skip records a source row that was dropped and why.
type Skip struct {
	Feed   string
	Row    int
	Reason string
}

// Ledger is the cleaned copy of a feed, ready to be written to its 'clean' sheet.
type Ledger struct {
	Feed      Feed
	Header    []string
	Rows      [][]string
	Movements []Movement
}

// Inventory is everything derived from one set of source sheets.
type Inventory struct {
	Records   map[string]Record
	Ledgers   []Ledger
	Summary   []MonthlySummary
	Skipped   []Skip
	Rows      int
	DerivedAt time.Time
}

func (r Rules) weightOnly(key string) bool {
	k := strings.ToLower(key)
	for _, p := range r.WeightOnly {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" && strings.Contains(k, p) {
			return true
		}
	}

	return false
}

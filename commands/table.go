package commands

import (
	"fmt"
	"sort"
	"time"

	"github.com/farmledger/inventory-sheets/runner"
)

var reportHeader = []string{"Table", "Change", "Key"}

// makeReport tabulates the planned changes of a dry run, one row per changed key
// with the tables in run order and keys sorted within each change.
func makeReport(r runner.Result, now time.Time) ([]string, [][]string) {
	rows := [][]string{
		{"generated", now.Format("2006-01-02 15:04:05"), ""},
	}

	add := func(table, change string, keys []string) {
		list := append([]string{}, keys...)
		sort.Strings(list)

		for _, k := range list {
			rows = append(rows, []string{table, change, k})
		}
	}

	for _, t := range r.Tables {
		add(t.Table, "added", t.Added)
		add(t.Table, "updated", t.Updated)
		add(t.Table, "stale", t.Stale)
		add(t.Table, "duplicate", t.Duplicates)

		if t.Cleared > 0 {
			rows = append(rows, []string{t.Table, "cleared", fmt.Sprintf("%v rows", t.Cleared)})
		}
	}

	for _, s := range r.Skipped {
		rows = append(rows, []string{s.Feed, "skipped", fmt.Sprintf("row %v: %v", s.Row, s.Reason)})
	}

	return reportHeader, rows
}

package commands

import (
	"reflect"
	"testing"
	"time"

	"github.com/farmledger/inventory-sheets/gsheets"
	"github.com/farmledger/inventory-sheets/inventory"
	"github.com/farmledger/inventory-sheets/runner"
)

func TestMakeReport(t *testing.T) {
	expected := [][]string{
		{"generated", "2024-03-05 10:20:00", ""},
		{"inventory", "added", "c789"},
		{"inventory", "added", "d012"},
		{"inventory", "updated", "a123"},
		{"inventory", "stale", "x999"},
		{"inventory", "duplicate", "b456"},
		{"inventory", "cleared", "1 rows"},
		{"summary", "updated", "2024-03"},
		{"release", "skipped", "row 7: invalid quantity 'lots'"},
	}

	result := runner.Result{
		Tables: []gsheets.Stats{
			{
				Table:      "inventory",
				Added:      []string{"d012", "c789"},
				Updated:    []string{"a123"},
				Unchanged:  4,
				Duplicates: []string{"b456"},
				Stale:      []string{"x999"},
				Cleared:    1,
			},
			{
				Table:   "summary",
				Updated: []string{"2024-03"},
			},
		},
		Skipped: []inventory.Skip{
			{Feed: "release", Row: 7, Reason: "invalid quantity 'lots'"},
		},
	}

	header, rows := makeReport(result, time.Date(2024, time.March, 5, 10, 20, 0, 0, time.UTC))

	if !reflect.DeepEqual(header, []string{"Table", "Change", "Key"}) {
		t.Errorf("Incorrect report header %v", header)
	}

	if !reflect.DeepEqual(rows, expected) {
		t.Errorf("Incorrect report\n   expected: %v\n   got:      %v\n", expected, rows)
	}
}

func TestMakeReportWithoutChanges(t *testing.T) {
	expected := [][]string{
		{"generated", "2024-03-05 10:20:00", ""},
	}

	result := runner.Result{
		Tables: []gsheets.Stats{
			{Table: "inventory", Unchanged: 12},
		},
	}

	_, rows := makeReport(result, time.Date(2024, time.March, 5, 10, 20, 0, 0, time.UTC))

	if !reflect.DeepEqual(rows, expected) {
		t.Errorf("Incorrect report\n   expected: %v\n   got:      %v\n", expected, rows)
	}
}

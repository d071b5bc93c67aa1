package inventory

import (
	"reflect"
	"testing"
)

func TestSummarise(t *testing.T) {
	sheets := []Sheet{
		{
			Feed: Feed{Name: "stock_inflow", Direction: Inflow, Key: []string{"product_type"}},
			Rows: rows(
				[]any{"Date", "Product Type", "Quantity", "Weight"},
				[]any{"02 Jan 2024", "whole chicken", "100", "210"},
				[]any{"09 Jan 2024", "gizzard", "", "20"},
				[]any{"12 Mar 2024", "whole chicken", "50", "99.5"},
			),
		},
		{
			Feed: Feed{Name: "release", Direction: Release, Key: []string{"product"}},
			Rows: rows(
				[]any{"Date", "Product", "Quantity", "Weight"},
				[]any{"20 Jan 2024", "whole chicken", "40", "80"},
				[]any{"03 Mar 2024", "gizzard", "5", "7.5"},
			),
		},
	}

	expected := [][]string{
		{"mar", "2024-03", "gizzard", "0", "0", "0", "7.5", "0", "20", "0", "12.5"},
		{"mar", "2024-03", "whole chicken", "50", "99.5", "0", "0", "60", "130", "110", "229.5"},
		{"jan", "2024-01", "gizzard", "0", "20", "0", "0", "0", "0", "0", "20"},
		{"jan", "2024-01", "whole chicken", "100", "210", "40", "80", "0", "0", "60", "130"},
	}

	transformer := Transformer{Rules: Rules{WeightOnly: []string{"gizzard"}}}

	inventory, err := transformer.Transform(derivedAt, sheets...)
	if err != nil {
		t.Fatalf("Unexpected error returned from Transform (%v)", err)
	}

	got := [][]string{}
	for _, s := range inventory.Summary {
		got = append(got, s.Values())
	}

	if !reflect.DeepEqual(got, expected) {
		t.Errorf("Incorrect summary\n   expected: %v\n   got:      %v\n", expected, got)
	}
}

func TestSummariseWithoutDates(t *testing.T) {
	movements := []Movement{
		{Feed: "stock", Key: "A123"},
	}

	if summary := Summarise(movements); len(summary) != 0 {
		t.Errorf("Expected empty summary for undated movements, got %v", summary)
	}
}

package gsheets

import (
	"reflect"
	"testing"
)

func TestParseArea(t *testing.T) {
	tests := []struct {
		area     string
		expected Area
		request  string
	}{
		{"inventory", Area{Sheet: "inventory", Left: "A", Top: 1}, "inventory"},
		{"Inventory!A1:L", Area{Sheet: "Inventory", Left: "A", Top: 1, Right: "L"}, "Inventory!A1:L"},
		{"Inventory!b3", Area{Sheet: "Inventory", Left: "B", Top: 3}, "Inventory"},
		{"Log!A2:H100", Area{Sheet: "Log", Left: "A", Top: 2, Right: "H", Bottom: 100}, "Log!A2:H100"},
		{"'Stock Inflow'!A1:F", Area{Sheet: "Stock Inflow", Left: "A", Top: 1, Right: "F"}, "'Stock Inflow'!A1:F"},
		{"'Bob''s sheet'", Area{Sheet: "Bob's sheet", Left: "A", Top: 1}, "'Bob''s sheet'"},
	}

	for _, test := range tests {
		area, err := ParseArea(test.area)
		if err != nil {
			t.Fatalf("Unexpected error parsing '%v' (%v)", test.area, err)
		}

		if !reflect.DeepEqual(area, test.expected) {
			t.Errorf("Incorrectly parsed '%v'\n   expected: %#v\n   got:      %#v", test.area, test.expected, area)
		}

		if r := area.request(); r != test.request {
			t.Errorf("Incorrect request range for '%v' - expected:%v, got:%v", test.area, test.request, r)
		}
	}
}

func TestAreaString(t *testing.T) {
	tests := map[string]string{
		"inventory":           "inventory!A1",
		"Inventory!A1:L":      "Inventory!A1:L",
		"Log!A2:H100":         "Log!A2:H100",
		"stock!A1:5":          "stock!A1:5",
		"stock!b3:12":         "stock!B3:12",
		"'Stock Inflow'!C2":   "'Stock Inflow'!C2",
		"'Stock Inflow'!A1:7": "'Stock Inflow'!A1:7",
	}

	for s, expected := range tests {
		area, err := ParseArea(s)
		if err != nil {
			t.Fatalf("Unexpected error parsing '%v' (%v)", s, err)
		}

		if a := area.String(); a != expected {
			t.Errorf("Incorrectly formatted '%v' - expected:%v, got:%v", s, expected, a)
		}

		if reparsed, err := ParseArea(area.String()); err != nil {
			t.Errorf("Unexpected error reparsing '%v' (%v)", area, err)
		} else if !reflect.DeepEqual(reparsed, area) {
			t.Errorf("Incorrectly reparsed '%v'\n   expected: %#v\n   got:      %#v", area, area, reparsed)
		}
	}
}

func TestParseInvalidArea(t *testing.T) {
	tests := []string{
		"",
		"!A1",
		"Inventory!A0",
		"Inventory!C1:A",
		"Inventory!A10:B2",
		"Inventory!1A",
	}

	for _, area := range tests {
		if _, err := ParseArea(area); err == nil {
			t.Errorf("Expected error parsing '%v'", area)
		}
	}
}

func TestColumns(t *testing.T) {
	tests := map[string]int{
		"A":  0,
		"Z":  25,
		"AA": 26,
		"AB": 27,
		"AZ": 51,
		"BA": 52,
	}

	for name, ix := range tests {
		if v := columnIndex(name); v != ix {
			t.Errorf("Incorrect index for column %v - expected:%v, got:%v", name, ix, v)
		}

		if v := columnName(ix); v != name {
			t.Errorf("Incorrect name for column %v - expected:%v, got:%v", ix, name, v)
		}
	}
}

func TestCrop(t *testing.T) {
	values := [][]any{
		{"title"},
		{},
		{"", "item", "quantity"},
		{"", "A123", "7"},
		{"", "B456", "3"},
	}

	expected := [][]any{
		{"item", "quantity"},
		{"A123", "7"},
	}

	area, _ := ParseArea("Inventory!B3:4")

	if cropped := area.crop(values); !reflect.DeepEqual(cropped, expected) {
		t.Errorf("Incorrectly cropped area\n   expected: %v\n   got:      %v", expected, cropped)
	}
}

func TestBlock(t *testing.T) {
	if r := block("Stock Inflow", 5, 1, 3, 4); r != "'Stock Inflow'!B5:E7" {
		t.Errorf("Incorrect block range - expected:%v, got:%v", "'Stock Inflow'!B5:E7", r)
	}

	if r := block("inventory", 2, 0, 1, 0); r != "inventory!A2:A2" {
		t.Errorf("Incorrect block range - expected:%v, got:%v", "inventory!A2:A2", r)
	}
}

package commands

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/farmledger/inventory-sheets/gsheets"
	"github.com/farmledger/inventory-sheets/inventory"
)

func sheetToTSV(f io.Writer, rows []inventory.RawRow) error {
	if len(rows) == 0 {
		return fmt.Errorf("empty sheet")
	}

	w := csv.NewWriter(f)
	w.Comma = '\t'

	for _, row := range rows {
		record := []string{}
		for _, v := range row.Cells {
			record = append(record, clean(text(v)))
		}

		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()

	return w.Error()
}

// sheetToXLSX writes the rows to a single worksheet workbook. Numbers and booleans
// keep their type, everything else is written as text.
func sheetToXLSX(f io.Writer, sheet string, rows []inventory.RawRow) error {
	if len(rows) == 0 {
		return fmt.Errorf("empty sheet")
	}

	xlsx := excelize.NewFile()
	defer xlsx.Close()

	name := sheetName(sheet)
	if err := xlsx.SetSheetName("Sheet1", name); err != nil {
		return err
	}

	for i, row := range rows {
		values := make([]any, len(row.Cells))
		for j, v := range row.Cells {
			switch v.(type) {
			case float64, bool:
				values[j] = v
			default:
				values[j] = clean(text(v))
			}
		}

		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}

		if err := xlsx.SetSheetRow(name, cell, &values); err != nil {
			return err
		}
	}

	return xlsx.Write(f)
}

// tsvToTable converts a TSV file to a table that replaces the contents of the
// worksheet area. The first line is the header.
func tsvToTable(f io.Reader, area string) (gsheets.Table, error) {
	if _, err := gsheets.ParseArea(area); err != nil {
		return gsheets.Table{}, err
	}

	r := csv.NewReader(f)
	r.Comma = '\t'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return gsheets.Table{}, err
	}

	if len(records) == 0 {
		return gsheets.Table{}, fmt.Errorf("TSV file is empty")
	}

	table := gsheets.Table{
		Name:   area,
		Area:   area,
		Mode:   gsheets.Overwrite,
		Header: records[0],
		Rows:   records[1:],
		Stamp:  -1,
	}

	return table, nil
}

func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// sheetName truncates a worksheet title to the 31 characters allowed by Excel and
// replaces the characters Excel does not allow.
func sheetName(s string) string {
	name := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return '_'
		}
		return r
	}, s)

	if runes := []rune(name); len(runes) > 31 {
		name = string(runes[:31])
	}

	if strings.TrimSpace(name) == "" {
		return "Sheet1"
	}

	return name
}

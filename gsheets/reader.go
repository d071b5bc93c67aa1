package gsheets

import (
	"context"

	"github.com/farmledger/inventory-sheets/inventory"
)

// Reader fetches the raw rows of a worksheet range.
type Reader struct {
	API API
}

// Read returns the rows of the area in worksheet order, with the header as the
// first row. A worksheet with no data returns an empty slice.
func (r Reader) Read(ctx context.Context, spreadsheet string, area string) ([]inventory.RawRow, error) {
	a, err := ParseArea(area)
	if err != nil {
		return nil, &ReadError{Spreadsheet: spreadsheet, Range: area, Err: err}
	}

	debugf("reading %v from spreadsheet %v", a, spreadsheet)

	response, err := r.API.Get(ctx, spreadsheet, a.request())
	if err != nil {
		return nil, readError(ctx, spreadsheet, area, err)
	}

	rows := []inventory.RawRow{}
	for i, row := range a.crop(response.Values) {
		rows = append(rows, inventory.RawRow{
			Index: a.Top + i,
			Cells: row,
		})
	}

	// ... trailing empty rows are returned when the range is bounded
	for len(rows) > 0 && len(rows[len(rows)-1].Cells) == 0 {
		rows = rows[:len(rows)-1]
	}

	debugf("read %v rows from %v", len(rows), a)

	return rows, nil
}

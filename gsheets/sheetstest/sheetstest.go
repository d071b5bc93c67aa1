// Package sheetstest provides an in-memory Google Sheets service for tests.
package sheetstest

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/sheets/v4"
)

type Sheet struct {
	ID    int64
	Title string
	Rows  int64
	Cols  int64
	Cells [][]string
}

// Fake implements the Sheets operations used by gsheets.API against a set of
// in-memory spreadsheets. Fail, if set, is invoked before every operation and a
// non-nil error is returned in place of the result.
type Fake struct {
	Fail func(op string) error

	mu           sync.Mutex
	spreadsheets map[string][]*Sheet
	calls        map[string]int
	next         int64
}

func New() *Fake {
	return &Fake{
		spreadsheets: map[string][]*Sheet{},
		calls:        map[string]int{},
		next:         1,
	}
}

// AddSheet creates a worksheet (and the spreadsheet if necessary) with the given
// rows. The grid is sized to fit the rows, with a minimum of 1000x26.
func (f *Fake) AddSheet(spreadsheet, title string, rows ...[]string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	sheet := f.add(spreadsheet, title, 0, 0)
	for i, row := range rows {
		for j, v := range row {
			sheet.set(i, j, v)
		}
	}

	sheet.Rows = max(sheet.Rows, int64(len(rows)))
	for _, row := range rows {
		sheet.Cols = max(sheet.Cols, int64(len(row)))
	}
}

// Resize sets the grid size of a worksheet.
func (f *Fake) Resize(spreadsheet, title string, rows, cols int64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if sheet := f.sheet(spreadsheet, title); sheet != nil {
		sheet.Rows = rows
		sheet.Cols = cols
	}
}

// Rows returns the worksheet contents with trailing blank cells and rows removed.
func (f *Fake) Rows(spreadsheet, title string) [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()

	sheet := f.sheet(spreadsheet, title)
	if sheet == nil {
		return nil
	}

	rows := [][]string{}
	for _, row := range sheet.Cells {
		rows = append(rows, trim(row))
	}

	for len(rows) > 0 && len(rows[len(rows)-1]) == 0 {
		rows = rows[:len(rows)-1]
	}

	return rows
}

// Sheets returns the worksheet titles in order.
func (f *Fake) Sheets(spreadsheet string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	titles := []string{}
	for _, s := range f.spreadsheets[spreadsheet] {
		titles = append(titles, s.Title)
	}

	return titles
}

// Grid returns the grid size of a worksheet.
func (f *Fake) Grid(spreadsheet, title string) (int64, int64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if sheet := f.sheet(spreadsheet, title); sheet != nil {
		return sheet.Rows, sheet.Cols
	}

	return 0, 0
}

// Calls returns the number of invocations of an operation.
func (f *Fake) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls[op]
}

func (f *Fake) Spreadsheet(ctx context.Context, spreadsheet string) (*sheets.Spreadsheet, error) {
	if err := f.call(ctx, "spreadsheet"); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	list, ok := f.spreadsheets[spreadsheet]
	if !ok {
		return nil, &googleapi.Error{Code: http.StatusNotFound, Message: fmt.Sprintf("Requested entity was not found: %v", spreadsheet)}
	}

	s := sheets.Spreadsheet{
		SpreadsheetId: spreadsheet,
	}

	for _, sheet := range list {
		s.Sheets = append(s.Sheets, &sheets.Sheet{
			Properties: &sheets.SheetProperties{
				SheetId: sheet.ID,
				Title:   sheet.Title,
				GridProperties: &sheets.GridProperties{
					RowCount:    sheet.Rows,
					ColumnCount: sheet.Cols,
				},
			},
		})
	}

	return &s, nil
}

func (f *Fake) Get(ctx context.Context, spreadsheet string, area string) (*sheets.ValueRange, error) {
	if err := f.call(ctx, "get"); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	r, err := parse(area)
	if err != nil {
		return nil, err
	}

	sheet := f.sheet(spreadsheet, r.sheet)
	if sheet == nil {
		return nil, &googleapi.Error{Code: http.StatusBadRequest, Message: fmt.Sprintf("Unable to parse range: %v", area)}
	}

	values := [][]any{}
	for i := r.top; i < len(sheet.Cells) && (r.bottom < 0 || i <= r.bottom); i++ {
		row := sheet.Cells[i]
		cells := []any{}
		for j := r.left; j < len(row) && (r.right < 0 || j <= r.right); j++ {
			cells = append(cells, row[j])
		}

		values = append(values, trimAny(cells))
	}

	for len(values) > 0 && len(values[len(values)-1]) == 0 {
		values = values[:len(values)-1]
	}

	return &sheets.ValueRange{
		Range:          area,
		MajorDimension: "ROWS",
		Values:         values,
	}, nil
}

// Update applies all the value ranges or none of them.
func (f *Fake) Update(ctx context.Context, spreadsheet string, data []*sheets.ValueRange) error {
	if err := f.call(ctx, "update"); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	type write struct {
		sheet  *Sheet
		top    int
		left   int
		values [][]any
	}

	writes := []write{}
	for _, v := range data {
		r, err := parse(v.Range)
		if err != nil {
			return err
		}

		sheet := f.sheet(spreadsheet, r.sheet)
		if sheet == nil {
			return &googleapi.Error{Code: http.StatusBadRequest, Message: fmt.Sprintf("Unable to parse range: %v", v.Range)}
		}

		if r.bottom >= 0 && len(v.Values) > r.bottom-r.top+1 {
			return &googleapi.Error{Code: http.StatusBadRequest, Message: fmt.Sprintf("Requested writing within range [%v], but tried writing to row [%v]", v.Range, r.top+len(v.Values))}
		}

		for i, row := range v.Values {
			if int64(r.top+i) >= sheet.Rows {
				return &googleapi.Error{Code: http.StatusBadRequest, Message: fmt.Sprintf("Range (%v) exceeds grid limits. Max rows: %v", v.Range, sheet.Rows)}
			}

			if int64(r.left+len(row)) > sheet.Cols {
				return &googleapi.Error{Code: http.StatusBadRequest, Message: fmt.Sprintf("Range (%v) exceeds grid limits. Max columns: %v", v.Range, sheet.Cols)}
			}

			if r.right >= 0 && r.left+len(row) > r.right+1 {
				return &googleapi.Error{Code: http.StatusBadRequest, Message: fmt.Sprintf("Requested writing within range [%v], but tried writing to column [%v]", v.Range, r.left+len(row))}
			}
		}

		writes = append(writes, write{sheet: sheet, top: r.top, left: r.left, values: v.Values})
	}

	for _, w := range writes {
		for i, row := range w.values {
			for j, v := range row {
				w.sheet.set(w.top+i, w.left+j, text(v))
			}
		}
	}

	return nil
}

// Append writes the values after the last non-blank row of the worksheet, growing
// the grid if necessary.
func (f *Fake) Append(ctx context.Context, spreadsheet string, area string, values *sheets.ValueRange) error {
	if err := f.call(ctx, "append"); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	r, err := parse(area)
	if err != nil {
		return err
	}

	sheet := f.sheet(spreadsheet, r.sheet)
	if sheet == nil {
		return &googleapi.Error{Code: http.StatusBadRequest, Message: fmt.Sprintf("Unable to parse range: %v", area)}
	}

	last := len(sheet.Cells)
	for last > 0 && len(trim(sheet.Cells[last-1])) == 0 {
		last--
	}

	last = max(last, r.top)
	for i, row := range values.Values {
		for j, v := range row {
			sheet.set(last+i, r.left+j, text(v))
		}

		sheet.Cols = max(sheet.Cols, int64(r.left+len(row)))
	}

	sheet.Rows = max(sheet.Rows, int64(last+len(values.Values)))

	return nil
}

func (f *Fake) BatchUpdate(ctx context.Context, spreadsheet string, requests []*sheets.Request) error {
	if err := f.call(ctx, "batchUpdate"); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, rq := range requests {
		switch {
		case rq.AddSheet != nil:
			p := rq.AddSheet.Properties
			if f.sheet(spreadsheet, p.Title) != nil {
				return &googleapi.Error{Code: http.StatusBadRequest, Message: fmt.Sprintf("A sheet with the name \"%v\" already exists", p.Title)}
			}

			rows, cols := int64(0), int64(0)
			if p.GridProperties != nil {
				rows, cols = p.GridProperties.RowCount, p.GridProperties.ColumnCount
			}

			f.add(spreadsheet, p.Title, rows, cols)

		case rq.AppendDimension != nil:
			sheet := f.byID(spreadsheet, rq.AppendDimension.SheetId)
			if sheet == nil {
				return &googleapi.Error{Code: http.StatusBadRequest, Message: fmt.Sprintf("No grid with id: %v", rq.AppendDimension.SheetId)}
			}

			if rq.AppendDimension.Dimension == "ROWS" {
				sheet.Rows += rq.AppendDimension.Length
			} else {
				sheet.Cols += rq.AppendDimension.Length
			}

		case rq.DeleteDimension != nil:
			r := rq.DeleteDimension.Range
			sheet := f.byID(spreadsheet, r.SheetId)
			if sheet == nil {
				return &googleapi.Error{Code: http.StatusBadRequest, Message: fmt.Sprintf("No grid with id: %v", r.SheetId)}
			}

			if r.Dimension != "ROWS" {
				return &googleapi.Error{Code: http.StatusBadRequest, Message: "unsupported dimension"}
			}

			start, end := int(r.StartIndex), int(r.EndIndex)
			if end > len(sheet.Cells) {
				end = len(sheet.Cells)
			}

			if start < end {
				sheet.Cells = append(sheet.Cells[:start], sheet.Cells[end:]...)
			}

			sheet.Rows -= r.EndIndex - r.StartIndex

		default:
			return &googleapi.Error{Code: http.StatusBadRequest, Message: "unsupported request"}
		}
	}

	return nil
}

func (f *Fake) call(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	f.calls[op]++
	fail := f.Fail
	f.mu.Unlock()

	if fail != nil {
		return fail(op)
	}

	return nil
}

func (f *Fake) add(spreadsheet, title string, rows, cols int64) *Sheet {
	if sheet := f.sheet(spreadsheet, title); sheet != nil {
		return sheet
	}

	sheet := Sheet{
		ID:    f.next,
		Title: title,
		Rows:  max(rows, 1000),
		Cols:  max(cols, 26),
		Cells: [][]string{},
	}

	if rows > 0 {
		sheet.Rows = rows
	}

	if cols > 0 {
		sheet.Cols = cols
	}

	f.next++
	f.spreadsheets[spreadsheet] = append(f.spreadsheets[spreadsheet], &sheet)

	return &sheet
}

func (f *Fake) sheet(spreadsheet, title string) *Sheet {
	for _, s := range f.spreadsheets[spreadsheet] {
		if s.Title == title {
			return s
		}
	}

	return nil
}

func (f *Fake) byID(spreadsheet string, id int64) *Sheet {
	for _, s := range f.spreadsheets[spreadsheet] {
		if s.ID == id {
			return s
		}
	}

	return nil
}

func (s *Sheet) set(row, col int, v string) {
	for len(s.Cells) <= row {
		s.Cells = append(s.Cells, []string{})
	}

	for len(s.Cells[row]) <= col {
		s.Cells[row] = append(s.Cells[row], "")
	}

	s.Cells[row][col] = v
}

type span struct {
	sheet  string
	top    int
	left   int
	bottom int
	right  int
}

var a1 = regexp.MustCompile(`^(?:'((?:[^']|'')+)'|([^!']+))(?:!([A-Z]+)([0-9]+)?(?::([A-Z]+)?([0-9]+)?)?)?$`)

// parse converts an A1 range to 0-based bounds, with -1 for an open bottom or right.
func parse(area string) (*span, error) {
	m := a1.FindStringSubmatch(area)
	if m == nil {
		return nil, &googleapi.Error{Code: http.StatusBadRequest, Message: fmt.Sprintf("Unable to parse range: %v", area)}
	}

	r := span{
		sheet:  m[2],
		bottom: -1,
		right:  -1,
	}

	if m[1] != "" {
		r.sheet = strings.ReplaceAll(m[1], "''", "'")
	}

	if m[3] != "" {
		r.left = column(m[3])
	}

	if m[4] != "" {
		n, _ := strconv.Atoi(m[4])
		r.top = n - 1
	}

	if m[5] != "" {
		r.right = column(m[5])
	}

	if m[6] != "" {
		n, _ := strconv.Atoi(m[6])
		r.bottom = n - 1
	}

	return &r, nil
}

func column(name string) int {
	ix := 0
	for _, ch := range name {
		ix = ix*26 + int(ch-'A') + 1
	}

	return ix - 1
}

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}

func trim(row []string) []string {
	n := len(row)
	for n > 0 && row[n-1] == "" {
		n--
	}

	return append([]string{}, row[:n]...)
}

func trimAny(row []any) []any {
	n := len(row)
	for n > 0 && row[n-1] == "" {
		n--
	}

	return row[:n]
}

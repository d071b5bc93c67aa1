package gsheets

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"google.golang.org/api/sheets/v4"
)

// LogEntry is one line of the run log worksheet.
type LogEntry struct {
	Timestamp time.Time
	RunID     string
	Status    string
	Records   int
	Written   int
	Unchanged int
	Skipped   int
	Error     string
}

const timestampFormat = "2006-01-02 15:04:05"

var LogHeader = []string{"timestamp", "run_id", "status", "records", "written", "unchanged", "skipped", "error"}

func (e LogEntry) values() []string {
	return []string{
		e.Timestamp.Format(timestampFormat),
		e.RunID,
		e.Status,
		fmt.Sprintf("%v", e.Records),
		fmt.Sprintf("%v", e.Written),
		fmt.Sprintf("%v", e.Unchanged),
		fmt.Sprintf("%v", e.Skipped),
		e.Error,
	}
}

// AppendLog appends an entry to the run log worksheet, creating the worksheet
// (with a header row) if it does not exist.
func (w Writer) AppendLog(ctx context.Context, spreadsheet string, area string, entry LogEntry) error {
	a, err := ParseArea(area)
	if err != nil {
		return &WriteError{Spreadsheet: spreadsheet, Ranges: []string{area}, Err: err}
	}

	s, err := w.API.Spreadsheet(ctx, spreadsheet)
	if err != nil {
		return writeError(ctx, spreadsheet, []string{a.String()}, err)
	}

	header := []string{}
	if sheet := lookup(s, a.Sheet); sheet == nil {
		rq := &sheets.Request{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{
					Title: a.Sheet,
				},
			},
		}

		if err := w.API.BatchUpdate(ctx, spreadsheet, []*sheets.Request{rq}); err != nil {
			return writeError(ctx, spreadsheet, []string{a.String()}, err)
		}
	} else {
		response, err := w.API.Get(ctx, spreadsheet, block(a.Sheet, a.Top, columnIndex(a.Left), 1, len(LogHeader)+8))
		if err != nil {
			return writeError(ctx, spreadsheet, []string{a.String()}, err)
		}

		if rows := cells(response.Values); len(rows) > 0 {
			header = rows[0]
		}
	}

	if empty(header) {
		header = LogHeader
		data := []*sheets.ValueRange{
			{
				Range:  block(a.Sheet, a.Top, columnIndex(a.Left), 1, len(header)),
				Values: [][]any{pad(header, 0)},
			},
		}

		if err := w.API.Update(ctx, spreadsheet, data); err != nil {
			return writeError(ctx, spreadsheet, []string{a.String()}, err)
		}
	}

	// ... map onto the existing header, unknown columns are left blank
	values := entry.values()
	row := make([]string, len(header))
	for i, col := range LogHeader {
		for j, h := range header {
			if normalise(h) == col {
				row[j] = values[i]
				break
			}
		}
	}

	v := sheets.ValueRange{
		Values: [][]any{pad(row, 0)},
	}

	if err := w.API.Append(ctx, spreadsheet, a.String(), &v); err != nil {
		return writeError(ctx, spreadsheet, []string{a.String()}, err)
	}

	return nil
}

// PruneLog deletes the run log rows older than the retention period. Rows without
// a valid timestamp are kept.
func (w Writer) PruneLog(ctx context.Context, spreadsheet string, area string, retention time.Duration, now time.Time) (int, error) {
	if retention <= 0 {
		return 0, nil
	}

	a, err := ParseArea(area)
	if err != nil {
		return 0, &WriteError{Spreadsheet: spreadsheet, Ranges: []string{area}, Err: err}
	}

	s, err := w.API.Spreadsheet(ctx, spreadsheet)
	if err != nil {
		return 0, writeError(ctx, spreadsheet, []string{a.String()}, err)
	}

	sheet := lookup(s, a.Sheet)
	if sheet == nil {
		return 0, nil
	}

	response, err := w.API.Get(ctx, spreadsheet, a.request())
	if err != nil {
		return 0, writeError(ctx, spreadsheet, []string{a.String()}, err)
	}

	rows := cells(a.crop(response.Values))
	if len(rows) < 2 {
		return 0, nil
	}

	column := -1
	for i, h := range rows[0] {
		if normalise(h) == "timestamp" {
			column = i
			break
		}
	}

	if column < 0 {
		return 0, nil
	}

	cutoff := now.Add(-retention)
	expired := []int{}
	for i, row := range rows[1:] {
		t, err := time.ParseInLocation(timestampFormat, strings.TrimSpace(cell(row, column)), now.Location())
		if err == nil && t.Before(cutoff) {
			expired = append(expired, a.Top+1+i)
		}
	}

	if len(expired) == 0 {
		return 0, nil
	}

	// ... contiguous runs, deleted bottom up so that the row numbers stay valid
	type span struct {
		start int
		end   int
	}

	spans := []span{}
	for _, row := range expired {
		if n := len(spans); n > 0 && spans[n-1].end == row-1 {
			spans[n-1].end = row
		} else {
			spans = append(spans, span{start: row, end: row})
		}
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].start > spans[j].start })

	requests := []*sheets.Request{}
	for _, sp := range spans {
		requests = append(requests, &sheets.Request{
			DeleteDimension: &sheets.DeleteDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:         sheet.Properties.SheetId,
					Dimension:       "ROWS",
					StartIndex:      int64(sp.start - 1),
					EndIndex:        int64(sp.end),
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		})
	}

	infof("pruning %v expired rows from %v", len(expired), a.Sheet)

	if err := w.API.BatchUpdate(ctx, spreadsheet, requests); err != nil {
		return 0, writeError(ctx, spreadsheet, []string{a.String()}, err)
	}

	return len(expired), nil
}

func lookup(s *sheets.Spreadsheet, title string) *sheets.Sheet {
	for _, sheet := range s.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == title {
			return sheet
		}
	}

	return nil
}

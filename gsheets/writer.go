package gsheets

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"google.golang.org/api/sheets/v4"
)

// Mode selects how a table is reconciled with its worksheet.
type Mode int

const (
	// Overwrite replaces the worksheet contents from the top of the area, blanking
	// any surplus rows.
	Overwrite Mode = iota

	// Upsert updates rows in place by key, appends new keys after the last used row
	// and leaves everything else (including unrecognised columns) untouched.
	Upsert
)

func (m Mode) String() string {
	if m == Upsert {
		return "upsert"
	}

	return "overwrite"
}

// Table is the desired content of one output worksheet.
type Table struct {
	Name   string
	Area   string
	Mode   Mode
	Header []string
	Rows   [][]string
	Key    int
	Stamp  int
}

// Stats summarises the changes planned for a table.
type Stats struct {
	Table      string
	Added      []string
	Updated    []string
	Unchanged  int
	Duplicates []string
	Stale      []string
	Rows       int
	Cleared    int
}

// Entry is a single row write at an explicit worksheet position. Left is the
// 0-based index of the first column.
type Entry struct {
	Sheet  string
	Row    int
	Left   int
	Values []any
}

// WriteBatch is the complete set of changes for one spreadsheet, applied with a
// single values update.
type WriteBatch struct {
	Spreadsheet string
	Stats       []Stats

	entries []Entry
	index   map[string]int
	sheets  []string
	ranges  []string
}

// Put adds a row write to the batch. Each worksheet row may only be written once
// per batch.
func (b *WriteBatch) Put(sheet string, row, left int, values []any) error {
	if row < 1 || left < 0 {
		return fmt.Errorf("invalid position %v:%v for sheet '%v'", row, left, sheet)
	}

	if b.index == nil {
		b.index = map[string]int{}
	}

	k := sheet + "\x00" + strconv.Itoa(row)
	if _, ok := b.index[k]; ok {
		return fmt.Errorf("duplicate write to row %v of sheet '%v'", row, sheet)
	}

	b.index[k] = len(b.entries)
	b.entries = append(b.entries, Entry{
		Sheet:  sheet,
		Row:    row,
		Left:   left,
		Values: values,
	})

	return nil
}

// Entries returns the batch writes ordered by sheet and row.
func (b *WriteBatch) Entries() []Entry {
	entries := append([]Entry{}, b.entries...)

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Sheet != entries[j].Sheet {
			return entries[i].Sheet < entries[j].Sheet
		}

		return entries[i].Row < entries[j].Row
	})

	return entries
}

func (b *WriteBatch) Len() int {
	return len(b.entries)
}

// Empty is true if applying the batch would not change the spreadsheet.
func (b *WriteBatch) Empty() bool {
	return len(b.entries) == 0 && len(b.sheets) == 0
}

// Writer reconciles tables with the worksheets of an output spreadsheet.
type Writer struct {
	API API
}

// Plan reads the current content of each table's worksheet and returns the
// writes needed to bring it up to date. Nothing is written.
func (w Writer) Plan(ctx context.Context, spreadsheet string, tables ...Table) (*WriteBatch, error) {
	batch := WriteBatch{
		Spreadsheet: spreadsheet,
		Stats:       []Stats{},
		index:       map[string]int{},
	}

	areas := []Area{}
	for _, t := range tables {
		a, err := ParseArea(t.Area)
		if err != nil {
			return nil, &WriteError{Spreadsheet: spreadsheet, Ranges: []string{t.Area}, Err: err}
		}

		areas = append(areas, a)
		batch.ranges = append(batch.ranges, a.String())
	}

	s, err := w.API.Spreadsheet(ctx, spreadsheet)
	if err != nil {
		return nil, writeError(ctx, spreadsheet, batch.ranges, err)
	}

	titles := map[string]bool{}
	for _, sheet := range s.Sheets {
		if sheet.Properties != nil {
			titles[sheet.Properties.Title] = true
		}
	}

	for i, t := range tables {
		a := areas[i]
		existing := [][]string{}

		if titles[a.Sheet] {
			response, err := w.API.Get(ctx, spreadsheet, a.request())
			if err != nil {
				return nil, writeError(ctx, spreadsheet, []string{a.String()}, err)
			}

			existing = cells(a.crop(response.Values))
		} else if !contains(batch.sheets, a.Sheet) {
			batch.sheets = append(batch.sheets, a.Sheet)
		}

		var stats *Stats
		switch t.Mode {
		case Upsert:
			stats, err = batch.upsert(t, a, existing)
		default:
			stats, err = batch.overwrite(t, a, existing)
		}

		if err != nil {
			return nil, &WriteError{Spreadsheet: spreadsheet, Ranges: []string{a.String()}, Err: err}
		}

		if len(stats.Duplicates) > 0 {
			warnf("%v: clearing %v duplicate rows (%v)", t.Name, len(stats.Duplicates), strings.Join(stats.Duplicates, ","))
		}

		debugf("%v: added:%v updated:%v unchanged:%v cleared:%v", t.Name, len(stats.Added), len(stats.Updated), stats.Unchanged, stats.Cleared)

		batch.Stats = append(batch.Stats, *stats)
	}

	return &batch, nil
}

// Apply creates any missing worksheets, extends worksheets that are too small and
// then writes every row of the batch in a single values update.
func (w Writer) Apply(ctx context.Context, batch *WriteBatch) error {
	if batch == nil || batch.Empty() {
		return nil
	}

	spreadsheet := batch.Spreadsheet
	entries := batch.Entries()

	s, err := w.API.Spreadsheet(ctx, spreadsheet)
	if err != nil {
		return writeError(ctx, spreadsheet, batch.ranges, err)
	}

	if requests := resize(s, batch.sheets, entries); len(requests) > 0 {
		infof("resizing %v worksheets in spreadsheet %v", len(requests), spreadsheet)
		if err := w.API.BatchUpdate(ctx, spreadsheet, requests); err != nil {
			return writeError(ctx, spreadsheet, batch.ranges, err)
		}
	}

	data := coalesce(entries)
	if len(data) == 0 {
		return nil
	}

	ranges := []string{}
	for _, v := range data {
		ranges = append(ranges, v.Range)
	}

	infof("writing %v rows (%v ranges) to spreadsheet %v", len(entries), len(data), spreadsheet)

	if err := w.API.Update(ctx, spreadsheet, data); err != nil {
		return writeError(ctx, spreadsheet, ranges, err)
	}

	return nil
}

func (b *WriteBatch) overwrite(t Table, a Area, existing [][]string) (*Stats, error) {
	stats := Stats{
		Table:      t.Name,
		Added:      []string{},
		Updated:    []string{},
		Duplicates: []string{},
		Stale:      []string{},
	}

	left := columnIndex(a.Left)
	rows := append([][]string{t.Header}, t.Rows...)

	for i, row := range rows {
		var old []string
		if i < len(existing) {
			old = existing[i]
		}

		if same(old, row, -1) {
			stats.Unchanged++
			continue
		}

		if err := b.Put(a.Sheet, a.Top+i, left, pad(row, len(old))); err != nil {
			return nil, err
		}

		stats.Rows++
	}

	for i := len(rows); i < len(existing); i++ {
		if empty(existing[i]) {
			continue
		}

		if err := b.Put(a.Sheet, a.Top+i, left, pad(nil, len(existing[i]))); err != nil {
			return nil, err
		}

		stats.Cleared++
	}

	return &stats, nil
}

func (b *WriteBatch) upsert(t Table, a Area, existing [][]string) (*Stats, error) {
	stats := Stats{
		Table:      t.Name,
		Added:      []string{},
		Updated:    []string{},
		Duplicates: []string{},
		Stale:      []string{},
	}

	left := columnIndex(a.Left)

	// ... map table columns onto the worksheet header, adding missing columns on the right
	header := []string{}
	if len(existing) > 0 {
		header = append(header, existing[0]...)
	}

	xref := map[int]int{}
	for i, col := range t.Header {
		p := normalise(col)
		for j, h := range header {
			if p != "" && p == normalise(h) {
				xref[i] = j
				break
			}
		}
	}

	// ... unlabelled columns holding user data are never reused
	width := len(header)
	for _, row := range existing {
		width = max(width, len(row))
	}

	modified := false
	for i, col := range t.Header {
		if _, ok := xref[i]; !ok {
			for j := 0; j < len(header); j++ {
				if strings.TrimSpace(header[j]) == "" {
					if !taken(xref, j) && unused(existing, j) {
						header[j] = col
						xref[i] = j
						break
					}
				}
			}
		}

		if _, ok := xref[i]; !ok {
			for len(header) < width {
				header = append(header, "")
			}

			header = append(header, col)
			xref[i] = len(header) - 1
			width = len(header)
		}

		modified = modified || len(existing) == 0 || xref[i] >= len(existing[0]) || existing[0][xref[i]] != header[xref[i]]
	}

	if modified {
		if err := b.Put(a.Sheet, a.Top, left, pad(header, 0)); err != nil {
			return nil, err
		}

		stats.Rows++
	}

	keycol, ok := xref[t.Key]
	if !ok {
		return nil, fmt.Errorf("table '%v' has no key column", t.Name)
	}

	stamp := -1
	if t.Stamp >= 0 && t.Stamp < len(t.Header) {
		stamp = xref[t.Stamp]
	}

	// ... index existing rows by key, blanking duplicates
	rows := map[string]int{}
	last := 1

	for i := 1; i < len(existing); i++ {
		row := existing[i]
		if empty(row) {
			continue
		}

		last = i + 1
		key := strings.TrimSpace(cell(row, keycol))
		if key == "" {
			continue
		}

		if _, ok := rows[key]; ok {
			if err := b.Put(a.Sheet, a.Top+i, left, pad(nil, len(row))); err != nil {
				return nil, err
			}

			stats.Duplicates = append(stats.Duplicates, key)
			stats.Cleared++
			continue
		}

		rows[key] = i
	}

	keys := map[string]bool{}
	next := a.Top + last

	for _, record := range t.Rows {
		key := strings.TrimSpace(cell(record, t.Key))
		if key == "" {
			continue
		}

		if keys[key] {
			return nil, fmt.Errorf("duplicate key '%v' in table '%v'", key, t.Name)
		}

		keys[key] = true

		if i, ok := rows[key]; ok {
			old := existing[i]
			row := overlay(old, record, xref, len(header))

			if same(old, row, stamp) {
				stats.Unchanged++
				continue
			}

			if err := b.Put(a.Sheet, a.Top+i, left, pad(row, len(old))); err != nil {
				return nil, err
			}

			stats.Updated = append(stats.Updated, key)
			stats.Rows++
			continue
		}

		row := overlay(nil, record, xref, len(header))
		if err := b.Put(a.Sheet, next, left, pad(row, 0)); err != nil {
			return nil, err
		}

		next++
		stats.Added = append(stats.Added, key)
		stats.Rows++
	}

	for key := range rows {
		if !keys[key] {
			stats.Stale = append(stats.Stale, key)
		}
	}

	sort.Strings(stats.Stale)

	return &stats, nil
}

// resize returns the AddSheet and AppendDimension requests needed to fit the
// batch entries into the spreadsheet grid.
func resize(s *sheets.Spreadsheet, missing []string, entries []Entry) []*sheets.Request {
	type size struct {
		rows int64
		cols int64
	}

	need := map[string]*size{}
	for _, e := range entries {
		n, ok := need[e.Sheet]
		if !ok {
			n = &size{}
			need[e.Sheet] = n
		}

		if r := int64(e.Row); r > n.rows {
			n.rows = r
		}

		if c := int64(e.Left + len(e.Values)); c > n.cols {
			n.cols = c
		}
	}

	requests := []*sheets.Request{}
	existing := map[string]bool{}

	for _, sheet := range s.Sheets {
		p := sheet.Properties
		if p == nil {
			continue
		}

		existing[p.Title] = true

		n, ok := need[p.Title]
		if !ok || p.GridProperties == nil {
			continue
		}

		if n.rows > p.GridProperties.RowCount {
			requests = append(requests, &sheets.Request{
				AppendDimension: &sheets.AppendDimensionRequest{
					SheetId:   p.SheetId,
					Dimension: "ROWS",
					Length:    n.rows - p.GridProperties.RowCount,

					ForceSendFields: []string{"SheetId"},
				},
			})
		}

		if n.cols > p.GridProperties.ColumnCount {
			requests = append(requests, &sheets.Request{
				AppendDimension: &sheets.AppendDimensionRequest{
					SheetId:   p.SheetId,
					Dimension: "COLUMNS",
					Length:    n.cols - p.GridProperties.ColumnCount,

					ForceSendFields: []string{"SheetId"},
				},
			})
		}
	}

	titles := append([]string{}, missing...)
	for title := range need {
		if !existing[title] && !contains(titles, title) {
			titles = append(titles, title)
		}
	}

	for _, title := range titles {
		if existing[title] {
			continue
		}

		rows, cols := int64(1000), int64(26)
		if n, ok := need[title]; ok {
			rows = max(rows, n.rows)
			cols = max(cols, n.cols)
		}

		requests = append(requests, &sheets.Request{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{
					Title: title,
					GridProperties: &sheets.GridProperties{
						RowCount:    rows,
						ColumnCount: cols,
					},
				},
			},
		})
	}

	return requests
}

// coalesce merges consecutive rows of the same sheet into a single value range.
func coalesce(entries []Entry) []*sheets.ValueRange {
	data := []*sheets.ValueRange{}

	flush := func(group []Entry) {
		if len(group) == 0 {
			return
		}

		cols := 1
		values := [][]any{}
		for _, e := range group {
			cols = max(cols, len(e.Values))
			values = append(values, e.Values)
		}

		first := group[0]
		data = append(data, &sheets.ValueRange{
			Range:          block(first.Sheet, first.Row, first.Left, len(group), cols),
			MajorDimension: "ROWS",
			Values:         values,
		})
	}

	group := []Entry{}
	for _, e := range entries {
		if n := len(group); n > 0 {
			p := group[n-1]
			if p.Sheet != e.Sheet || p.Left != e.Left || p.Row+1 != e.Row {
				flush(group)
				group = []Entry{}
			}
		}

		group = append(group, e)
	}

	flush(group)

	return data
}

// overlay writes the record values into a copy of the old row at the mapped
// columns.
func overlay(old []string, record []string, xref map[int]int, width int) []string {
	row := make([]string, max(width, len(old)))
	copy(row, old)

	for i, v := range record {
		if j, ok := xref[i]; ok {
			row[j] = v
		}
	}

	return row
}

// same compares two rows ignoring trailing blanks and the (optional) skip column.
func same(old, row []string, skip int) bool {
	n := max(len(old), len(row))
	for i := 0; i < n; i++ {
		if i == skip {
			continue
		}

		if strings.TrimSpace(cell(old, i)) != strings.TrimSpace(cell(row, i)) {
			return false
		}
	}

	return true
}

// pad converts a row to API values, extended with blanks to at least 'width'
// cells so that a RAW write clears any old content to the right.
func pad(row []string, width int) []any {
	values := make([]any, max(len(row), width))
	for i := range values {
		values[i] = cell(row, i)
	}

	return values
}

func cells(values [][]any) [][]string {
	rows := [][]string{}
	for _, row := range values {
		r := make([]string, len(row))
		for i, v := range row {
			r[i] = format(v)
		}

		rows = append(rows, r)
	}

	return rows
}

func format(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strings.ToUpper(strconv.FormatBool(t))
	default:
		return fmt.Sprintf("%v", t)
	}
}

func cell(row []string, ix int) string {
	if ix >= 0 && ix < len(row) {
		return row[ix]
	}

	return ""
}

func empty(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}

	return true
}

func unused(rows [][]string, col int) bool {
	for _, row := range rows[min(1, len(rows)):] {
		if strings.TrimSpace(cell(row, col)) != "" {
			return false
		}
	}

	return true
}

func taken(xref map[int]int, col int) bool {
	for _, v := range xref {
		if v == col {
			return true
		}
	}

	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}

	return false
}

func normalise(v string) string {
	s := strings.ToLower(strings.TrimSpace(v))
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")

	return s
}

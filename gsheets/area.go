package gsheets

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Area is a parsed A1 range e.g. 'Inventory!A1:L'. An empty Right means the area
// extends to the last used column and a zero Bottom to the last used row.
type Area struct {
	Sheet  string
	Left   string
	Top    int
	Right  string
	Bottom int
}

var (
	a1    = regexp.MustCompile(`^(?:'((?:[^']|'')+)'|([^!']+))(?:!([a-zA-Z]+)([0-9]+)?(?::([a-zA-Z]+)?([0-9]+)?)?)?$`)
	plain = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
)

func ParseArea(s string) (Area, error) {
	match := a1.FindStringSubmatch(strings.TrimSpace(s))
	if match == nil {
		return Area{}, fmt.Errorf("invalid spreadsheet range '%s' - expected something like 'Inventory!A1:L'", s)
	}

	area := Area{
		Sheet: strings.TrimSpace(match[2]),
		Left:  "A",
		Top:   1,
		Right: strings.ToUpper(match[5]),
	}

	if match[1] != "" {
		area.Sheet = strings.ReplaceAll(match[1], "''", "'")
	}

	if match[3] != "" {
		area.Left = strings.ToUpper(match[3])
	}

	if match[4] != "" {
		area.Top, _ = strconv.Atoi(match[4])
	}

	if match[6] != "" {
		area.Bottom, _ = strconv.Atoi(match[6])
	}

	if area.Sheet == "" || area.Top < 1 || (area.Bottom > 0 && area.Bottom < area.Top) {
		return Area{}, fmt.Errorf("invalid spreadsheet range '%s'", s)
	}

	if area.Right != "" && columnIndex(area.Right) < columnIndex(area.Left) {
		return Area{}, fmt.Errorf("invalid spreadsheet range '%s'", s)
	}

	return area, nil
}

// String formats the area as an A1 range.
func (a Area) String() string {
	s := fmt.Sprintf("%v!%v%v", quote(a.Sheet), a.Left, a.Top)
	if a.Right != "" || a.Bottom > 0 {
		s += ":" + a.Right
		if a.Bottom > 0 {
			s += fmt.Sprintf("%v", a.Bottom)
		}
	}

	return s
}

// request is the range to fetch when reading the area. Open ended areas are read
// as the whole worksheet and cropped afterwards.
func (a Area) request() string {
	if a.Right == "" {
		return quote(a.Sheet)
	}

	return a.String()
}

// crop removes the rows and columns outside the area from a value range returned
// for request().
func (a Area) crop(values [][]any) [][]any {
	if a.Right != "" {
		return values
	}

	top := a.Top - 1
	left := columnIndex(a.Left)
	cropped := [][]any{}

	for i, row := range values {
		if i < top || (a.Bottom > 0 && i >= a.Bottom) {
			continue
		}

		if left < len(row) {
			cropped = append(cropped, row[left:])
		} else {
			cropped = append(cropped, []any{})
		}
	}

	return cropped
}

// block formats the range covering 'rows' rows and 'cols' columns starting at the
// given sheet row and 0-based column.
func block(sheet string, row, col, rows, cols int) string {
	if cols < 1 {
		cols = 1
	}

	return fmt.Sprintf("%v!%v%v:%v%v", quote(sheet), columnName(col), row, columnName(col+cols-1), row+rows-1)
}

func quote(sheet string) string {
	if plain.MatchString(sheet) {
		return sheet
	}

	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
}

// columnIndex converts a column name to a 0-based index e.g. A -> 0, AA -> 26.
func columnIndex(col string) int {
	ix := 0
	for _, ch := range strings.ToUpper(col) {
		ix = ix*26 + int(ch-'A') + 1
	}

	return ix - 1
}

// columnName converts a 0-based column index to a column name e.g. 27 -> AB.
func columnName(ix int) string {
	name := ""
	for n := ix + 1; n > 0; n = (n - 1) / 26 {
		name = string(rune('A'+(n-1)%26)) + name
	}

	return name
}

package workbook

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"
)

// ErrInvalidWorkbook is returned when the input cannot be read as a spreadsheet.
var ErrInvalidWorkbook = errors.New("invalid workbook")

// nanValues are the cell texts loaded as missing values.
var nanValues = []string{"", "NA", "NaN", "nan", "<nil>"}

// SheetNotFoundError reports a sheet selection that matches no sheet of the workbook.
type SheetNotFoundError struct {
	Sheet     string
	Workbook  string
	Available []string
}

func (e *SheetNotFoundError) Error() string {
	return fmt.Sprintf("sheet '%s' not found in workbook '%s'. Available sheets: %s",
		e.Sheet, e.Workbook, strings.Join(e.Available, ", "))
}

// Workbook is an opened spreadsheet document.
type Workbook struct {
	name   string
	file   *excelize.File
	sheets []string
}

// Open parses a workbook from r. name is only used in messages.
func Open(r io.Reader, name string) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidWorkbook, name, err)
	}
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s: no sheets", ErrInvalidWorkbook, name)
	}
	return &Workbook{name: name, file: f, sheets: sheets}, nil
}

// OpenFile opens the workbook stored at path.
func OpenFile(path string) (*Workbook, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer fh.Close()
	return Open(fh, filepath.Base(path))
}

// Name returns the display name of the workbook.
func (w *Workbook) Name() string { return w.name }

// Sheets returns the sheet names in workbook order.
func (w *Workbook) Sheets() []string {
	return append([]string(nil), w.sheets...)
}

// Close releases the underlying file.
func (w *Workbook) Close() error { return w.file.Close() }

// Table materializes the named sheet. The match is exact and case-sensitive.
func (w *Workbook) Table(sheet string) (*Table, error) {
	found := false
	for _, s := range w.sheets {
		if s == sheet {
			found = true
			break
		}
	}
	if !found {
		return nil, &SheetNotFoundError{Sheet: sheet, Workbook: w.name, Available: w.Sheets()}
	}
	rows, err := w.file.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return newTable(sheet, rows)
}

// Table is one sheet loaded into memory.
type Table struct {
	Sheet  string
	Header []string
	// Rows holds the raw cell text, padded to len(Header).
	Rows  [][]string
	Frame dataframe.DataFrame
}

// Head returns up to n raw rows.
func (t *Table) Head(n int) [][]string {
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	if n < 0 {
		n = 0
	}
	return t.Rows[:n]
}

func newTable(sheet string, raw [][]string) (*Table, error) {
	t := &Table{Sheet: sheet}
	// skip leading blank rows to find the header
	start := 0
	for start < len(raw) && blankRow(raw[start]) {
		start++
	}
	if start == len(raw) {
		return t, nil
	}
	// a column with data but no header cell is kept as "Unnamed: <i>"
	ncol := usedWidth(raw[start])
	for _, r := range raw[start+1:] {
		if w := usedWidth(r); w > ncol {
			ncol = w
		}
	}
	t.Header = headerNames(raw[start], ncol)
	for _, r := range raw[start+1:] {
		if blankRow(r) {
			continue
		}
		row := make([]string, ncol)
		copy(row, r)
		t.Rows = append(t.Rows, row)
	}
	if len(t.Rows) == 0 {
		cols := make([]series.Series, ncol)
		for i, name := range t.Header {
			cols[i] = series.New([]string{}, series.String, name)
		}
		t.Frame = dataframe.New(cols...)
		return t, t.Frame.Err
	}
	records := make([][]string, 0, len(t.Rows)+1)
	records = append(records, t.Header)
	for _, r := range t.Rows {
		cp := make([]string, ncol)
		for j, v := range r {
			cp[j] = strings.TrimSpace(v)
		}
		records = append(records, cp)
	}
	t.Frame = dataframe.LoadRecords(records, dataframe.NaNValues(nanValues))
	if t.Frame.Err != nil {
		return nil, fmt.Errorf("load sheet %q: %w", sheet, t.Frame.Err)
	}
	return t, nil
}

// usedWidth is the number of cells up to the last non-blank one.
func usedWidth(cells []string) int {
	n := len(cells)
	for n > 0 && strings.TrimSpace(cells[n-1]) == "" {
		n--
	}
	return n
}

// headerNames builds n column names from the header cells: blank or missing
// ones become "Unnamed: <i>" and duplicates get a ".<n>" suffix.
func headerNames(cells []string, n int) []string {
	out := make([]string, n)
	seen := map[string]int{}
	for i := 0; i < n; i++ {
		var name string
		if i < len(cells) {
			name = strings.TrimSpace(cells[i])
		}
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if c, ok := seen[name]; ok {
			seen[name] = c + 1
			name = fmt.Sprintf("%s.%d", name, c+1)
		} else {
			seen[name] = 0
		}
		out[i] = name
	}
	return out
}

func blankRow(r []string) bool {
	for _, v := range r {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

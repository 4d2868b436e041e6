package production

import (
	"fmt"
	"strings"
)

// MissingColumnError lists required columns absent from the sheet.
type MissingColumnError struct {
	Columns   []string
	Available []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing required column(s): %s (found: %s)",
		strings.Join(e.Columns, ", "), strings.Join(e.Available, ", "))
}

// ColumnTypeError reports a column that must be numeric but holds text.
type ColumnTypeError struct {
	Column string
	Type   string
}

func (e *ColumnTypeError) Error() string {
	return fmt.Sprintf("column %q must be numeric, found %s values", e.Column, e.Type)
}

// DateFormatError reports a Date cell that does not parse as day-month.
// Row is 1-based over the data rows.
type DateFormatError struct {
	Row   int
	Value string
	Err   error
}

func (e *DateFormatError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("row %d: missing date", e.Row)
	}
	return fmt.Sprintf("row %d: date %q is not a day-month value like 15-03", e.Row, e.Value)
}

func (e *DateFormatError) Unwrap() error { return e.Err }

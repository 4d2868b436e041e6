package report

import (
	"errors"
	"fmt"
	"strings"

	"github.com/KaramelBytes/dairyreport/internal/production"
	"github.com/KaramelBytes/dairyreport/internal/workbook"
)

// UnknownRelationshipError reports a relationship name outside the fixed menu.
type UnknownRelationshipError struct {
	Name string
}

func (e *UnknownRelationshipError) Error() string {
	return fmt.Sprintf("unknown relationship %q (choose one of: %s)", e.Name, strings.Join(RelationshipNames(), ", "))
}

// ErrorKind groups pipeline failures for status codes and metrics.
type ErrorKind string

const (
	KindLoad     ErrorKind = "load"
	KindSchema   ErrorKind = "schema"
	KindInput    ErrorKind = "input"
	KindInternal ErrorKind = "internal"
)

// Kind classifies err. A nil error has no kind.
func Kind(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var (
		missing  *production.MissingColumnError
		coltype  *production.ColumnTypeError
		date     *production.DateFormatError
		sheet    *workbook.SheetNotFoundError
		relation *UnknownRelationshipError
	)
	switch {
	case errors.Is(err, workbook.ErrInvalidWorkbook):
		return KindLoad
	case errors.As(err, &missing), errors.As(err, &coltype), errors.As(err, &date):
		return KindSchema
	case errors.As(err, &sheet), errors.As(err, &relation):
		return KindInput
	default:
		return KindInternal
	}
}

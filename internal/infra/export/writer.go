// Package export renders lead export rows as downloadable files.
package export

import (
	"errors"
	"fmt"
	"io"

	"github.com/xavierca1/ligue-crm/internal/usecase"
)

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

var ErrUnsupportedFormat = errors.New("unsupported export format")

// Writer receives rows one at a time. Close must be called once every row
// was written; nothing is guaranteed to reach the output before that.
type Writer interface {
	Write(row usecase.ExportRow) error
	Close() error
}

// New returns the writer for format, with the header row already written.
// An empty format means CSV.
func New(format string, w io.Writer) (Writer, error) {
	switch format {
	case "", FormatCSV:
		return NewCSVWriter(w)
	case FormatXLSX:
		return NewXLSXWriter(w)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

func ContentType(format string) string {
	if format == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

func FileName(format string) string {
	if format == FormatXLSX {
		return "leads-export.xlsx"
	}
	return "leads-export.csv"
}

package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xavierca1/ligue-crm/internal/usecase"
)

const csvFlushEvery = 100

// CSVWriter writes RFC 4180 CSV. Cells containing commas, quotes or line
// breaks are quoted by encoding/csv.
type CSVWriter struct {
	w       *csv.Writer
	pending int
}

func NewCSVWriter(out io.Writer) (*CSVWriter, error) {
	w := csv.NewWriter(out)
	if err := w.Write(usecase.ExportHeader); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	return &CSVWriter{w: w}, nil
}

func (c *CSVWriter) Write(row usecase.ExportRow) error {
	if err := c.w.Write(row.Cells()); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}
	c.pending++
	if c.pending >= csvFlushEvery {
		c.pending = 0
		c.w.Flush()
		return c.w.Error()
	}
	return nil
}

func (c *CSVWriter) Close() error {
	c.w.Flush()
	return c.w.Error()
}

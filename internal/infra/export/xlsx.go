package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/xavierca1/ligue-crm/internal/usecase"
)

const sheetName = "Leads"

// XLSXWriter streams rows into a single-sheet workbook. The workbook is
// written to the output on Close.
type XLSXWriter struct {
	out  io.Writer
	file *excelize.File
	sw   *excelize.StreamWriter
	row  int
}

func NewXLSXWriter(out io.Writer) (*XLSXWriter, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create style: %w", err)
	}

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to open stream writer: %w", err)
	}
	if err := sw.SetColWidth(1, len(usecase.ExportHeader), 18); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}

	header := make([]interface{}, len(usecase.ExportHeader))
	for i, h := range usecase.ExportHeader {
		header[i] = excelize.Cell{StyleID: headerStyle, Value: h}
	}
	if err := sw.SetRow("A1", header); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	return &XLSXWriter{out: out, file: f, sw: sw, row: 1}, nil
}

func (x *XLSXWriter) Write(r usecase.ExportRow) error {
	x.row++
	cell, err := excelize.CoordinatesToCellName(1, x.row)
	if err != nil {
		return err
	}

	values := []interface{}{
		r.Name, r.Email, r.Phone, r.Company, r.Source, r.Status, r.Priority,
		r.Value, r.FollowUpDate, r.CreatedAt, r.NotesCount,
	}
	if err := x.sw.SetRow(cell, values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", x.row, err)
	}
	return nil
}

func (x *XLSXWriter) Close() error {
	defer x.file.Close()

	if err := x.sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}
	if _, err := x.file.WriteTo(x.out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

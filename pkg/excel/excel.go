package excel

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/xuri/excelize/v2"
)

// DataSource feeds tabular data to the exporter row by row.
type DataSource interface {
	SheetName() string
	Headers() []string
	// Rows returns an iterator-style callback feed; fn returning false
	// stops iteration early.
	Rows(ctx context.Context, fn func(row []any) bool) error
}

type Options struct {
	FreezeHeader bool
	BoldHeader   bool
}

func DefaultOptions() Options {
	return Options{FreezeHeader: true, BoldHeader: true}
}

type Exporter struct {
	opts Options
}

func NewExporter(opts Options) *Exporter {
	return &Exporter{opts: opts}
}

// Export renders the data source into an XLSX workbook and returns its bytes.
func (e *Exporter) Export(ctx context.Context, ds DataSource) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := ds.SheetName()
	if sheet == "" {
		sheet = "Sheet1"
	}
	// Excel caps sheet names at 31 characters, not bytes.
	if runes := []rune(sheet); len(runes) > 31 {
		sheet = string(runes[:31])
	}
	idx, err := f.NewSheet(sheet)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create sheet")
	}
	f.SetActiveSheet(idx)
	if sheet != "Sheet1" {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return nil, errors.Wrap(err, "failed to drop default sheet")
		}
	}

	headers := ds.Headers()
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}

	if e.opts.BoldHeader && len(headers) > 0 {
		styleID, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return nil, err
		}
		last, err := excelize.CoordinatesToCellName(len(headers), 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(sheet, "A1", last, styleID); err != nil {
			return nil, err
		}
	}

	rowNum := 1
	writeErr := ds.Rows(ctx, func(row []any) bool {
		rowNum++
		for i, v := range row {
			cell, err := excelize.CoordinatesToCellName(i+1, rowNum)
			if err != nil {
				return false
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return false
			}
		}
		return true
	})
	if writeErr != nil {
		return nil, errors.Wrap(writeErr, "failed to stream rows")
	}

	if e.opts.FreezeHeader {
		if err := f.SetPanes(sheet, &excelize.Panes{
			Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
		}); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "failed to serialize workbook")
	}
	return buf.Bytes(), nil
}

// SliceDataSource is a DataSource over in-memory rows.
type SliceDataSource struct {
	Name   string
	Cols   []string
	Values [][]any
}

func (s *SliceDataSource) SheetName() string { return s.Name }
func (s *SliceDataSource) Headers() []string { return s.Cols }

func (s *SliceDataSource) Rows(ctx context.Context, fn func(row []any) bool) error {
	for i, row := range s.Values {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if !fn(row) {
			return fmt.Errorf("row callback aborted at row %d", i)
		}
	}
	return nil
}

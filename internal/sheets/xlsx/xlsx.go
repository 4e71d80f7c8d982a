// Package xlsx renders the budget overview as an Excel workbook, either
// streamed to an HTTP client or written to a file by the export worker.
package xlsx

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/xuri/excelize/v2"

	"ssmartr/internal/budget"
	"ssmartr/internal/log"
	"ssmartr/internal/sheets"
)

const (
	SheetName   = "Overview"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	defaultSheet = "Sheet1"
	metaColumn   = 9 // column I, one blank column after the table
)

// Render builds the workbook. The caller closes the returned file.
func Render(s budget.Snapshot) (*excelize.File, error) {
	f := excelize.NewFile()
	index, err := f.NewSheet(SheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet(defaultSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("remove default sheet: %w", err)
	}

	if err := writeRows(f, 1, sheets.OverviewTable(s)); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeRows(f, metaColumn, sheets.OverviewMeta(s)); err != nil {
		f.Close()
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		last, _ := excelize.CoordinatesToCellName(len(sheets.OverviewHeader), 1)
		_ = f.SetCellStyle(SheetName, "A1", last, bold)
		totalRow := len(s.Categories) + 2
		first, _ := excelize.CoordinatesToCellName(1, totalRow)
		last, _ = excelize.CoordinatesToCellName(len(sheets.OverviewHeader), totalRow)
		_ = f.SetCellStyle(SheetName, first, last, bold)
	}
	_ = f.SetColWidth(SheetName, "B", "B", 18)
	_ = f.SetColWidth(SheetName, "I", "J", 18)
	return f, nil
}

func writeRows(f *excelize.File, col int, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(col, i+1)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	return nil
}

// Write renders s and streams the workbook to w.
func Write(w io.Writer, s budget.Snapshot) error {
	f, err := Render(s)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// FileWriter keeps the latest overview in a workbook on disk.
type FileWriter struct {
	path   string
	logger *log.Logger
	mu     sync.Mutex
}

var _ sheets.OverviewWriter = (*FileWriter)(nil)

func NewFileWriter(path string, logger *log.Logger) (*FileWriter, error) {
	if path == "" {
		return nil, fmt.Errorf("missing xlsx export path")
	}
	if logger == nil {
		logger = log.Discard()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create export directory: %w", err)
		}
	}
	return &FileWriter{path: path, logger: logger.WithComponent(log.ComponentSheets)}, nil
}

// WriteOverview replaces the workbook. The new file is written next to the
// old one and renamed over it, so readers never see a partial workbook.
func (fw *FileWriter) WriteOverview(ctx context.Context, s budget.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fw.mu.Lock()
	defer fw.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(fw.path), ".overview-*.xlsx")
	if err != nil {
		return fmt.Errorf("create temp workbook: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, s); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp workbook: %w", err)
	}
	if err := os.Rename(tmp.Name(), fw.path); err != nil {
		return fmt.Errorf("replace workbook: %w", err)
	}

	fw.logger.InfoContext(ctx, "Wrote overview workbook",
		"path", fw.path,
		log.FieldVersion, s.Version,
		"categories", len(s.Categories))
	return nil
}

package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/artemlk/uniqimg/internal/model"
)

// Header lists the report columns; the order is part of the contract.
var Header = []string{"source_path", "output_path", "status", "message", "phash_distance", "ssim"}

// Write renders one row per task, in submission order, into a tabular
// report under dir. The format follows the filename extension: .xlsx gets
// an Excel workbook, everything else is CSV. Returns the report path.
func Write(results []model.ProcessingResult, dir, filename string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}
	path := filepath.Join(dir, filename)

	var err error
	if strings.EqualFold(filepath.Ext(filename), ".xlsx") {
		err = writeXLSX(results, path)
	} else {
		err = writeCSV(results, path)
	}
	if err != nil {
		return "", err
	}
	return path, nil
}

func writeCSV(results []model.ProcessingResult, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(Header); err != nil {
		return fmt.Errorf("write report header: %w", err)
	}
	for _, r := range results {
		if err := w.Write(row(r)); err != nil {
			return fmt.Errorf("write report row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush report: %w", err)
	}
	return f.Close()
}

func writeXLSX(results []model.ProcessingResult, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)

	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write report header: %w", err)
	}

	for i, r := range results {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		cols := row(r)
		vals := make([]interface{}, len(cols))
		for j, c := range cols {
			vals[j] = c
		}
		if err := f.SetSheetRow(sheet, cell, &vals); err != nil {
			return fmt.Errorf("write report row: %w", err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

func row(r model.ProcessingResult) []string {
	return []string{
		r.Task.SourcePath,
		outputColumn(r),
		r.Status,
		r.Message,
		formatPHash(r.PHashDistance),
		formatSSIM(r.SSIM),
	}
}

// outputColumn hides the reserved path for tasks that never produced a
// file; skip-existing keeps it, since the pre-existing file is the output.
func outputColumn(r model.ProcessingResult) string {
	if strings.HasPrefix(r.Status, "error-") {
		return ""
	}
	return r.Task.OutputPath
}

func formatPHash(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatSSIM(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 6, 64)
}

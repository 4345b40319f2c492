package pipeline

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	"github.com/xuri/excelize/v2"

	"notescan/internal"
)

var exportHeaders = []string{"barcode", "name", "unit_price", "quantity", "status"}

// ExportItemsToXLSX writes a note's items as a flat sheet: one row per
// item, columns barcode/name/unit_price/quantity/status.
func ExportItemsToXLSX(items []internal.Item, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, item := range items {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}
		set(1, item.Barcode)
		set(2, item.Name)
		set(3, item.UnitPrice)
		set(4, item.Quantity)
		set(5, string(item.Status))
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

// ExportItemsToCSV writes the same flat table as CSV for consumers without
// a spreadsheet application.
func ExportItemsToCSV(items []internal.Item, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(exportHeaders); err != nil {
		return err
	}
	for _, item := range items {
		record := []string{
			item.Barcode,
			item.Name,
			strconv.FormatFloat(item.UnitPrice, 'f', -1, 64),
			strconv.Itoa(item.Quantity),
			string(item.Status),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

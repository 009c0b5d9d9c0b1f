package core

// xlsx.go exchanges the directory as an Excel workbook. Export mirrors the
// CSV columns; import reads the first sheet and applies the CSV row checks.

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrInvalidWorkbook wraps failures to open or read an uploaded workbook.
var ErrInvalidWorkbook = errors.New("invalid workbook")

const xlsxSheet = "Employees"

// ExportXLSX writes the export rows into a single-sheet workbook.
func ExportXLSX(w io.Writer, employees []Employee, dates DateFormatter) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), xlsxSheet); err != nil {
		return fmt.Errorf("xlsx: rename sheet: %w", err)
	}

	if err := setRow(f, 1, CSVHeaders); err != nil {
		return err
	}
	for i, e := range employees {
		if err := setRow(f, i+2, exportRow(e, dates)); err != nil {
			return err
		}
	}

	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetRowStyle(xlsxSheet, 1, 1, style)
	}
	_ = f.SetColWidth(xlsxSheet, "A", "F", 22)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("xlsx: write: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("xlsx: cell name: %w", err)
	}
	if err := f.SetSheetRow(xlsxSheet, cell, &values); err != nil {
		return fmt.Errorf("xlsx: row %d: %w", row, err)
	}
	return nil
}

// XLSXArtifact packages ExportXLSX output as employees.xlsx.
func XLSXArtifact(employees []Employee, dates DateFormatter) (Artifact, error) {
	var buf bytes.Buffer
	if err := ExportXLSX(&buf, employees, dates); err != nil {
		return Artifact{}, err
	}
	return Artifact{Name: XLSXFilename, ContentType: XLSXContentType, Data: buf.Bytes()}, nil
}

// ImportXLSX checks the first sheet of a workbook like ImportCSV checks a
// file. Date columns holding Excel serial numbers are converted first.
func ImportXLSX(r io.Reader, existing []Employee) (ImportResult, error) {
	empty := ImportResult{ValidEmployees: []Employee{}, Errors: []string{}}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return empty, fmt.Errorf("%w: %w", ErrInvalidWorkbook, err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return empty, fmt.Errorf("%w: no worksheet found", ErrInvalidWorkbook)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return empty, fmt.Errorf("%w: %w", ErrInvalidWorkbook, err)
	}
	if len(rows) == 0 {
		return empty, nil
	}

	header := MakeHeaderIndex(rows[0])
	for _, df := range dateFields {
		col, ok := header[strings.ToLower(df.label)]
		if !ok {
			continue
		}
		for _, row := range rows[1:] {
			if col < len(row) {
				row[col] = excelSerialDate(row[col])
			}
		}
	}

	return CheckRecords(rows, existing), nil
}

// excelSerialDate rewrites an Excel date serial as YYYY-MM-DD and leaves
// anything else alone. Plain years are below the accepted range.
func excelSerialDate(v string) string {
	serial, err := strconv.ParseFloat(v, 64)
	if err != nil || serial < 10000 || serial > 100000 {
		return v
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return v
	}
	return t.Format("2006-01-02")
}

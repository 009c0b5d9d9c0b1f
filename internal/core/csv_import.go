package core

// csv_import.go turns an uploaded file into candidate employees.
//
// Each data row runs through these checks in order and stops at the first
// failure, which yields one message for the row:
//
//  1. code, full name, department and occupation are present
//  2. the code is not used by an existing employee
//  3. the code was not accepted from an earlier row of the same file
//  4. present dates parse (employment first, then termination)
//  5. the four text fields use only letters, digits, spaces, '.' and '-'
//
// Rows are numbered from 2 so the header is row 1. Blank lines are skipped
// and do not consume a number.

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// ErrInvalidCSV wraps parser failures.
var ErrInvalidCSV = errors.New("invalid csv")

// ImportResult is the outcome of an import check.
type ImportResult struct {
	ValidEmployees []Employee `json:"validEmployees"`
	Errors         []string   `json:"errors"`
}

// allowedText accepts letters (any script, with combining marks), digits,
// whitespace, periods and hyphens.
var allowedText = regexp.MustCompile(`^[\p{L}\p{M}\p{Nd}\s.\-]+$`)

// importField pairs a header label with the record field it fills.
type importField struct {
	label string
	set   func(*Employee, string)
	get   func(Employee) string
}

var textFields = []importField{
	{CSVHeaders[0], func(e *Employee, v string) { e.Code = v }, func(e Employee) string { return e.Code }},
	{CSVHeaders[1], func(e *Employee, v string) { e.FullName = v }, func(e Employee) string { return e.FullName }},
	{CSVHeaders[2], func(e *Employee, v string) { e.Department = v }, func(e Employee) string { return e.Department }},
	{CSVHeaders[3], func(e *Employee, v string) { e.Occupation = v }, func(e Employee) string { return e.Occupation }},
}

var dateFields = []importField{
	{CSVHeaders[4], func(e *Employee, v string) { e.DateOfEmployment = v }, func(e Employee) string { return e.DateOfEmployment }},
	{CSVHeaders[5], func(e *Employee, v string) { e.TerminationDate = v }, func(e Employee) string { return e.TerminationDate }},
}

// ImportCSV parses text and checks every row against existing, which is
// only read. Accepted rows get fresh ids.
func ImportCSV(text string, existing []Employee) (ImportResult, error) {
	records, err := readCSVRecords(strings.NewReader(text))
	if err != nil {
		return ImportResult{ValidEmployees: []Employee{}, Errors: []string{}}, err
	}
	return CheckRecords(records, existing), nil
}

func readCSVRecords(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var records [][]string
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCSV, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// CheckRecords runs the row checks over a header row plus data rows. It is
// shared by the CSV and spreadsheet importers.
func CheckRecords(records [][]string, existing []Employee) ImportResult {
	result := ImportResult{ValidEmployees: []Employee{}, Errors: []string{}}
	if len(records) == 0 {
		return result
	}

	header := MakeHeaderIndex(records[0])
	seen := make(map[string]bool)
	rowNum := 1

	for _, row := range records[1:] {
		if emptyRow(row) {
			continue
		}
		rowNum++

		candidate, msg := checkRow(header, row, rowNum, existing, seen)
		if msg != "" {
			result.Errors = append(result.Errors, msg)
			continue
		}
		candidate.ID = newID()
		seen[candidate.Code] = true
		result.ValidEmployees = append(result.ValidEmployees, candidate)
	}
	return result
}

func checkRow(header HeaderIndex, row []string, rowNum int, existing []Employee, seen map[string]bool) (Employee, string) {
	var e Employee
	for _, f := range textFields {
		f.set(&e, header.Cell(row, f.label))
	}
	for _, f := range dateFields {
		v := header.Cell(row, f.label)
		if IsDateLabel(v) {
			v = ""
		}
		f.set(&e, v)
	}

	for _, f := range textFields {
		if f.get(e) == "" {
			return e, fmt.Sprintf("Row %d: All required fields (Code, Full Name, Department, Occupation) must be present.", rowNum)
		}
	}

	if CodeTaken(existing, e.Code, "") {
		return e, fmt.Sprintf("Row %d: Code %q already exists in the system.", rowNum, e.Code)
	}
	if seen[e.Code] {
		return e, fmt.Sprintf("Row %d: Code %q is duplicated in the file.", rowNum, e.Code)
	}

	for _, f := range dateFields {
		if v := f.get(e); v != "" {
			if _, ok := ParseDate(v); !ok {
				return e, fmt.Sprintf("Row %d: %q is not a valid date.", rowNum, f.label)
			}
		}
	}

	for _, f := range textFields {
		if !allowedText.MatchString(f.get(e)) {
			return e, fmt.Sprintf("Row %d: %q contains invalid characters.", rowNum, f.label)
		}
	}

	return e, ""
}

func emptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

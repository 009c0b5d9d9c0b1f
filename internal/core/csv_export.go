package core

// csv_export.go renders employees as the directory's CSV interchange file.
//
// The header line is plain and ends with LF. Every record field is wrapped
// in double quotes and records are joined with LF. Embedded quotes are written as-is; files stay readable by the importer,
// which parses quotes leniently.

import (
	"io"
	"strings"
)

// CSVHeaders are the fixed column labels, also used to look columns up on
// import.
var CSVHeaders = []string{
	"Code",
	"Full Name",
	"Department",
	"Occupation",
	"Date of Employment",
	"Termination Date",
}

// Download names and content types.
const (
	CSVFilename     = "employees.csv"
	CSVContentType  = "text/csv;charset=utf-8;"
	XLSXFilename    = "employees.xlsx"
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Artifact is a named downloadable file.
type Artifact struct {
	Name        string
	ContentType string
	Data        []byte
}

// WriteTo writes the artifact body.
func (a Artifact) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(a.Data)
	return int64(n), err
}

// exportRow is the display form of one record: code, name, department,
// occupation and the two date status labels.
func exportRow(e Employee, dates DateFormatter) []string {
	return []string{
		e.Code,
		e.FullName,
		e.Department,
		e.Occupation,
		dates.FormatEmploymentDate(e.DateOfEmployment),
		dates.FormatTerminationDate(e.TerminationDate),
	}
}

func quoteRow(fields []string) string {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(f)
		b.WriteByte('"')
	}
	return b.String()
}

// ExportCSV renders the header and one row per record, in order. With no
// records the output is the header line alone.
func ExportCSV(employees []Employee, dates DateFormatter) string {
	rows := make([]string, 0, len(employees))
	for _, e := range employees {
		rows = append(rows, quoteRow(exportRow(e, dates)))
	}
	return strings.Join(CSVHeaders, ",") + "\n" + strings.Join(rows, "\n")
}

// CSVArtifact packages ExportCSV output as employees.csv.
func CSVArtifact(employees []Employee, dates DateFormatter) Artifact {
	return Artifact{
		Name:        CSVFilename,
		ContentType: CSVContentType,
		Data:        []byte(ExportCSV(employees, dates)),
	}
}

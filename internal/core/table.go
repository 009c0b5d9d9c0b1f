package core

// table.go derives the visible employee table from the live collection.
//
// The pipeline is filter -> stable sort -> page. Each stage is a pure
// function; Table wires them to a data source and a caller-owned ViewState
// and recomputes on every call, so results always track the latest store
// state.

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"
)

var (
	// ErrInvalidPage is returned when a requested page or page size is unusable.
	ErrInvalidPage = errors.New("invalid page")

	// ErrUnknownSortKey is returned for a sort column that does not exist.
	ErrUnknownSortKey = errors.New("unknown sort key")
)

// SortKey names a sortable column.
type SortKey string

const (
	SortByFullName         SortKey = FieldFullName
	SortByDepartment       SortKey = FieldDepartment
	SortByOccupation       SortKey = FieldOccupation
	SortByDateOfEmployment SortKey = FieldDateOfEmployment
	SortByTerminationDate  SortKey = FieldTerminationDate
)

// SortKeys lists the sortable columns in display order.
var SortKeys = []SortKey{
	SortByFullName,
	SortByDepartment,
	SortByOccupation,
	SortByDateOfEmployment,
	SortByTerminationDate,
}

// ParseSortKey validates a sort key from user input.
func ParseSortKey(s string) (SortKey, bool) {
	k := SortKey(s)
	return k, slices.Contains(SortKeys, k)
}

func (k SortKey) isDate() bool {
	return k == SortByDateOfEmployment || k == SortByTerminationDate
}

func (k SortKey) value(e Employee) string {
	switch k {
	case SortByFullName:
		return e.FullName
	case SortByDepartment:
		return e.Department
	case SortByOccupation:
		return e.Occupation
	case SortByDateOfEmployment:
		return e.DateOfEmployment
	case SortByTerminationDate:
		return e.TerminationDate
	}
	return ""
}

// ViewState is the user's current view of the table. It is owned by the
// caller; Table only reads it, except for ChangeSort.
type ViewState struct {
	Search      string
	SortKey     SortKey
	SortAsc     bool
	RowsPerPage int
	CurrentPage int
}

// DefaultViewState sorts by full name ascending on page 1.
func DefaultViewState(rowsPerPage int) ViewState {
	return ViewState{
		SortKey:     SortByFullName,
		SortAsc:     true,
		RowsPerPage: rowsPerPage,
		CurrentPage: 1,
	}
}

// ChangeSort flips the direction when key is already active, otherwise
// switches to key ascending.
func (v *ViewState) ChangeSort(key SortKey) {
	if v.SortKey == key {
		v.SortAsc = !v.SortAsc
		return
	}
	v.SortKey = key
	v.SortAsc = true
}

// FilterEmployees keeps records whose name, department, occupation or
// formatted date labels contain query, ignoring case. An empty query keeps
// everything.
func FilterEmployees(employees []Employee, query string, dates DateFormatter) []Employee {
	if query == "" {
		return slices.Clone(employees)
	}
	fold := cases.Fold()
	q := fold.String(query)

	out := make([]Employee, 0, len(employees))
	for _, e := range employees {
		fields := [...]string{
			e.FullName,
			e.Department,
			e.Occupation,
			dates.FormatEmploymentDate(e.DateOfEmployment),
			dates.FormatTerminationDate(e.TerminationDate),
		}
		for _, f := range fields {
			if strings.Contains(fold.String(f), q) {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// SortEmployees returns a stably sorted copy. Dates compare by timestamp
// with missing or unparseable dates as the epoch; other keys compare as
// case-folded text.
func SortEmployees(employees []Employee, key SortKey, asc bool) []Employee {
	out := slices.Clone(employees)

	var compare func(a, b Employee) int
	if key.isDate() {
		compare = func(a, b Employee) int {
			return cmp.Compare(timestamp(key.value(a)), timestamp(key.value(b)))
		}
	} else {
		fold := cases.Fold()
		compare = func(a, b Employee) int {
			return strings.Compare(fold.String(key.value(a)), fold.String(key.value(b)))
		}
	}

	slices.SortStableFunc(out, func(a, b Employee) int {
		if asc {
			return compare(a, b)
		}
		return compare(b, a)
	})
	return out
}

func timestamp(s string) int64 {
	if t, ok := ParseDate(s); ok {
		return t.UnixMilli()
	}
	return 0
}

// Paginate returns the slice [(page-1)*size, page*size) clamped to the
// input. Out-of-range pages give an empty result.
func Paginate(employees []Employee, page, size int) []Employee {
	if size <= 0 || page < 1 {
		return []Employee{}
	}
	start := (page - 1) * size
	if start >= len(employees) {
		return []Employee{}
	}
	end := min(start+size, len(employees))
	return slices.Clone(employees[start:end])
}

// TotalPages is ceil(count/size), 0 for an empty set or a non-positive size.
func TotalPages(count, size int) int {
	if count <= 0 || size <= 0 {
		return 0
	}
	return (count + size - 1) / size
}

// ValidatePage checks page and size from user input against maxSize.
func ValidatePage(page, size, maxSize int) error {
	if page < 1 {
		return fmt.Errorf("%w: page %d must be at least 1", ErrInvalidPage, page)
	}
	if size < 1 || (maxSize > 0 && size > maxSize) {
		return fmt.Errorf("%w: page size %d must be 1-%d", ErrInvalidPage, size, maxSize)
	}
	return nil
}

// Source supplies the live collection.
type Source interface {
	Employees() []Employee
}

// Table is the view-model over a Source and a ViewState.
type Table struct {
	source Source
	state  *ViewState
	dates  DateFormatter
}

func NewTable(source Source, state *ViewState, dates DateFormatter) *Table {
	return &Table{source: source, state: state, dates: dates}
}

// State returns the ViewState the table reads.
func (t *Table) State() *ViewState { return t.state }

// Filtered returns the records matching the search text.
func (t *Table) Filtered() []Employee {
	return FilterEmployees(t.source.Employees(), t.state.Search, t.dates)
}

// Sorted returns the filtered records in the current sort order.
func (t *Table) Sorted() []Employee {
	return SortEmployees(t.Filtered(), t.state.SortKey, t.state.SortAsc)
}

// Page returns the current page of sorted records.
func (t *Table) Page() []Employee {
	return Paginate(t.Sorted(), t.state.CurrentPage, t.state.RowsPerPage)
}

// TotalPages counts pages over the filtered records.
func (t *Table) TotalPages() int {
	return TotalPages(len(t.Filtered()), t.state.RowsPerPage)
}

// ChangeSort applies the toggle rule to the view state.
func (t *Table) ChangeSort(key SortKey) {
	t.state.ChangeSort(key)
}

// Export renders the sorted, unpaginated view as a CSV download.
func (t *Table) Export() Artifact {
	return CSVArtifact(t.Sorted(), t.dates)
}

// ExportXLSX renders the sorted, unpaginated view as a spreadsheet.
func (t *Table) ExportXLSX() (Artifact, error) {
	return XLSXArtifact(t.Sorted(), t.dates)
}

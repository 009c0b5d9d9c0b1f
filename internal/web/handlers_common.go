package web

// handlers_common.go holds helpers shared by the handlers.

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/staffdir/internal/core"
)

// maxJSONBody caps create and update payloads.
const maxJSONBody = 1 << 20

// parseIntParam parses an integer query parameter. A missing value yields
// defaultVal; a malformed one is an ErrInvalidPage.
func parseIntParam(r *http.Request, name string, defaultVal int) (int, error) {
	val := strings.TrimSpace(r.URL.Query().Get(name))
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", core.ErrInvalidPage, name, val)
	}
	return i, nil
}

// viewFromRequest starts from the shared default view and applies the
// search, sort, dir, page and perPage query parameters.
func (s *Server) viewFromRequest(r *http.Request) (core.ViewState, error) {
	view := s.currentView()
	q := r.URL.Query()

	view.Search = strings.TrimSpace(q.Get("search"))

	if raw := q.Get("sort"); raw != "" {
		key, ok := core.ParseSortKey(raw)
		if !ok {
			return view, fmt.Errorf("%w: %q", core.ErrUnknownSortKey, raw)
		}
		view.SortKey = key
		view.SortAsc = true
	}
	switch strings.ToLower(q.Get("dir")) {
	case "asc":
		view.SortAsc = true
	case "desc":
		view.SortAsc = false
	}

	var err error
	if view.CurrentPage, err = parseIntParam(r, "page", 1); err != nil {
		return view, err
	}
	if view.RowsPerPage, err = parseIntParam(r, "perPage", view.RowsPerPage); err != nil {
		return view, err
	}
	if err := core.ValidatePage(view.CurrentPage, view.RowsPerPage, s.cfg.Table.MaxRowsPerPage); err != nil {
		return view, err
	}
	return view, nil
}

// employeeRow is a record plus its display labels.
type employeeRow struct {
	core.Employee
	EmploymentStatus  string `json:"employmentStatus"`
	TerminationStatus string `json:"terminationStatus"`
}

func (s *Server) rows(list []core.Employee) []employeeRow {
	out := make([]employeeRow, len(list))
	for i, e := range list {
		out[i] = employeeRow{
			Employee:          e,
			EmploymentStatus:  s.dates.FormatEmploymentDate(e.DateOfEmployment),
			TerminationStatus: s.dates.FormatTerminationDate(e.TerminationDate),
		}
	}
	return out
}

// idParam returns the {id} URL parameter.
func idParam(r *http.Request) core.ID {
	return core.ID(chi.URLParam(r, "id"))
}

// decodeEmployee reads a JSON employee body.
func decodeEmployee(w http.ResponseWriter, r *http.Request) (core.Employee, error) {
	var e core.Employee
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(&e); err != nil {
		return core.Employee{}, fmt.Errorf("invalid request body: %w", err)
	}
	return core.Normalize(e), nil
}

// writeArtifact sends a downloadable file.
func writeArtifact(w http.ResponseWriter, art core.Artifact) {
	w.Header().Set("Content-Type", art.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, art.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(art.Data)))
	_, _ = art.WriteTo(w)
}

// readLimited reads at most limit bytes, failing with ErrFileTooLarge past it.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: exceeds %d bytes", core.ErrFileTooLarge, limit)
	}
	return data, nil
}

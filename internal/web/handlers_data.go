package web

// handlers_data.go serves read-only views: the list API, single records,
// sorting, exports, and the bundled seed dataset.

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/staffdir/internal/core"
	"github.com/JonMunkholm/staffdir/internal/remote"
)

// ListResponse is one page of the filtered, sorted directory.
type ListResponse struct {
	Employees  []employeeRow `json:"employees"`
	Total      int           `json:"total"`
	Page       int           `json:"page"`
	PerPage    int           `json:"perPage"`
	TotalPages int           `json:"totalPages"`
	SortKey    core.SortKey  `json:"sortKey"`
	SortAsc    bool          `json:"sortAsc"`
	Search     string        `json:"search,omitempty"`
}

// SortResponse reports the shared sort state after a toggle.
type SortResponse struct {
	SortKey core.SortKey `json:"sortKey"`
	SortAsc bool         `json:"sortAsc"`
}

func (s *Server) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	view, err := s.viewFromRequest(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, s.listResponse(view))
}

func (s *Server) listResponse(view core.ViewState) ListResponse {
	table := core.NewTable(s.store, &view, s.dates)
	sorted := table.Sorted()
	return ListResponse{
		Employees:  s.rows(core.Paginate(sorted, view.CurrentPage, view.RowsPerPage)),
		Total:      len(sorted),
		Page:       view.CurrentPage,
		PerPage:    view.RowsPerPage,
		TotalPages: core.TotalPages(len(sorted), view.RowsPerPage),
		SortKey:    view.SortKey,
		SortAsc:    view.SortAsc,
		Search:     view.Search,
	}
}

func (s *Server) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	e, err := s.store.Get(idParam(r))
	if err != nil {
		s.respondError(w, r, err, http.StatusNotFound)
		return
	}
	writeJSON(w, s.rows([]core.Employee{e})[0])
}

// handleToggleSort applies the header-click rule to the shared view.
func (s *Server) handleToggleSort(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "key")
	key, ok := core.ParseSortKey(raw)
	if !ok {
		s.respondError(w, r, fmt.Errorf("%w: %q", core.ErrUnknownSortKey, raw), http.StatusBadRequest)
		return
	}

	s.viewMu.Lock()
	s.view.ChangeSort(key)
	resp := SortResponse{SortKey: s.view.SortKey, SortAsc: s.view.SortAsc}
	s.viewMu.Unlock()

	writeJSON(w, resp)
}

// handleExportCSV downloads the filtered, sorted view without pagination.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	view, err := s.viewFromRequest(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	writeArtifact(w, core.NewTable(s.store, &view, s.dates).Export())
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	view, err := s.viewFromRequest(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	art, err := core.NewTable(s.store, &view, s.dates).ExportXLSX()
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeArtifact(w, art)
}

// handleSeedData serves the bundled dataset so API_SEED_URL can point at a
// running instance.
func (s *Server) handleSeedData(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(remote.SeedJSON())
}

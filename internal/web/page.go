package web

// page.go renders the directory page and the HTMX alert fragment as templ
// components.

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/staffdir/internal/core"
)

// columns pairs each sortable key with its header label.
var columns = []struct {
	key   core.SortKey
	label string
}{
	{core.SortByFullName, "Full Name"},
	{core.SortByDepartment, "Department"},
	{core.SortByOccupation, "Occupation"},
	{core.SortByDateOfEmployment, "Date of Employment"},
	{core.SortByTerminationDate, "Termination Date"},
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	view, err := s.viewFromRequest(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := directoryPage(s.listResponse(view)).Render(r.Context(), w); err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
	}
}

// directoryPage renders one page of the table with sortable headers, a
// search box and pagination links.
func directoryPage(list ListResponse) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &printer{w: w}
		p.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>Employees</title></head><body>`)
		p.raw(`<h1>Employees</h1>`)
		p.raw(`<form method="get" action="/"><input type="search" name="search" value="`)
		p.text(list.Search)
		p.raw(`" placeholder="Search"><button type="submit">Search</button></form>`)
		p.raw(`<p><a href="/api/export.csv?`)
		p.text(pageQuery(list, list.Page, "").Encode())
		p.raw(`">Export CSV</a> <a href="/api/export.xlsx?`)
		p.text(pageQuery(list, list.Page, "").Encode())
		p.raw(`">Export Excel</a></p>`)

		p.raw(`<table><thead><tr><th>Code</th>`)
		for _, c := range columns {
			p.raw(`<th><a href="/?`)
			p.text(pageQuery(list, 1, c.key).Encode())
			p.raw(`">`)
			p.text(c.label)
			if c.key == list.SortKey {
				if list.SortAsc {
					p.raw(` &#9650;`)
				} else {
					p.raw(` &#9660;`)
				}
			}
			p.raw(`</a></th>`)
		}
		p.raw(`</tr></thead><tbody>`)

		if len(list.Employees) == 0 {
			p.raw(`<tr><td colspan="6">No employees found</td></tr>`)
		}
		for _, e := range list.Employees {
			p.raw(`<tr><td>`)
			p.text(e.Code)
			for _, v := range []string{e.FullName, e.Department, e.Occupation, e.EmploymentStatus, e.TerminationStatus} {
				p.raw(`</td><td>`)
				p.text(v)
			}
			p.raw(`</td></tr>`)
		}
		p.raw(`</tbody></table>`)

		if list.TotalPages > 1 {
			p.raw(`<nav>`)
			for n := 1; n <= list.TotalPages; n++ {
				if n == list.Page {
					p.raw(fmt.Sprintf(`<strong>%d</strong> `, n))
					continue
				}
				p.raw(`<a href="/?`)
				p.text(pageQuery(list, n, "").Encode())
				p.raw(fmt.Sprintf(`">%d</a> `, n))
			}
			p.raw(`</nav>`)
		}

		p.raw(`</body></html>`)
		return p.err
	})
}

// pageQuery builds the query for a link from the current view. A non-empty
// sortBy applies the header-click rule.
func pageQuery(list ListResponse, page int, sortBy core.SortKey) url.Values {
	view := core.ViewState{SortKey: list.SortKey, SortAsc: list.SortAsc}
	if sortBy != "" {
		view.ChangeSort(sortBy)
	}
	dir := "asc"
	if !view.SortAsc {
		dir = "desc"
	}

	q := url.Values{}
	if list.Search != "" {
		q.Set("search", list.Search)
	}
	q.Set("sort", string(view.SortKey))
	q.Set("dir", dir)
	q.Set("page", strconv.Itoa(page))
	q.Set("perPage", strconv.Itoa(list.PerPage))
	return q
}

// errorAlert is the banner fragment swapped in by HTMX on failure.
func errorAlert(msg core.UserMessage) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &printer{w: w}
		p.raw(`<div class="alert alert-error" role="alert"><strong>`)
		p.text(msg.Message)
		p.raw(`</strong> `)
		p.text(msg.Action)
		p.raw(` <small>(`)
		p.text(msg.Code)
		p.raw(`)</small></div>`)
		return p.err
	})
}

// printer writes markup and escaped text, keeping the first error.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) raw(s string) {
	if p.err == nil {
		_, p.err = io.WriteString(p.w, s)
	}
}

func (p *printer) text(s string) {
	p.raw(templ.EscapeString(s))
}

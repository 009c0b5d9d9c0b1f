package web

// handlers_import.go accepts CSV and XLSX uploads.
//
// Flow:
//  1. Take an import slot (bounded by IMPORT_MAX_CONCURRENT)
//  2. Read the multipart "file" part up to IMPORT_MAX_FILE_SIZE
//  3. Run the row checks against the live collection
//  4. On /api/import, append the accepted rows and report per-row errors

import (
	"bytes"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/staffdir/internal/core"
	"github.com/JonMunkholm/staffdir/internal/logging"
)

// multipartOverhead leaves room for boundaries and part headers on top of
// the file size limit.
const multipartOverhead = 64 << 10

var errNoFile = errors.New("no file provided")

// ImportResponse is the outcome of a merged import.
type ImportResponse struct {
	Imported int      `json:"imported"`
	Errors   []string `json:"errors"`
	Alert    Alert    `json:"alert"`
}

func (s *Server) handleImportPreview(w http.ResponseWriter, r *http.Request) {
	res, ok := s.checkUpload(w, r)
	if !ok {
		return
	}
	writeJSON(w, res)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	res, ok := s.checkUpload(w, r)
	if !ok {
		return
	}

	added, skipped, err := s.store.Append(r.Context(), res.ValidEmployees)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	errs := res.Errors
	for _, code := range skipped {
		errs = append(errs, fmt.Sprintf("Code %q was added by another change during the import.", code))
	}

	auditLogger(r).Info("import merged", "imported", added, "rejected", len(errs))
	writeJSON(w, ImportResponse{
		Imported: added,
		Errors:   errs,
		Alert:    importAlert(added, len(errs)),
	})
}

func importAlert(added, rejected int) Alert {
	switch {
	case added > 0 && rejected == 0:
		return Alert{Type: AlertSuccess, Message: fmt.Sprintf("Imported %d employees", added)}
	case added > 0:
		return Alert{Type: AlertWarning, Message: fmt.Sprintf("Imported %d employees; %d rows were rejected", added, rejected)}
	case rejected > 0:
		return Alert{Type: AlertError, Message: fmt.Sprintf("No employees imported; %d rows were rejected", rejected)}
	default:
		return Alert{Type: AlertWarning, Message: "The file contained no employees"}
	}
}

// checkUpload runs the import checks on the uploaded file. When it returns
// false the error response has been written.
func (s *Server) checkUpload(w http.ResponseWriter, r *http.Request) (core.ImportResult, bool) {
	if err := s.limiter.Acquire(r.Context()); err != nil {
		status := http.StatusServiceUnavailable
		if errors.Is(err, core.ErrTooManyImports) {
			status = http.StatusTooManyRequests
		}
		s.respondError(w, r, err, status)
		return core.ImportResult{}, false
	}
	defer s.limiter.Release()

	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)
	if err := r.ParseMultipartForm(maxSize + multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, r, fmt.Errorf("%w: %w", core.ErrFileTooLarge, err), http.StatusRequestEntityTooLarge)
			return core.ImportResult{}, false
		}
		s.respondError(w, r, fmt.Errorf("%w: %w", errNoFile, err), http.StatusBadRequest)
		return core.ImportResult{}, false
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, errNoFile, http.StatusBadRequest)
		return core.ImportResult{}, false
	}
	defer file.Close()

	logger := logging.WithFields(r.Context(), "file", header.Filename, "size", header.Size)
	res, err := s.parseUpload(file, header)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, core.ErrFileTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		s.respondError(w, r, err, status)
		return core.ImportResult{}, false
	}

	logger.Info("import checked", "valid", len(res.ValidEmployees), "rejected", len(res.Errors))
	return res, true
}

// parseUpload dispatches on the file extension: .xlsx files are read as
// workbooks, everything else as CSV text.
func (s *Server) parseUpload(file multipart.File, header *multipart.FileHeader) (core.ImportResult, error) {
	existing := s.store.Employees()
	maxSize := s.cfg.Import.MaxFileSize

	if strings.EqualFold(filepath.Ext(header.Filename), ".xlsx") {
		data, err := readLimited(file, maxSize)
		if err != nil {
			return core.ImportResult{}, err
		}
		return core.ImportXLSX(bytes.NewReader(data), existing)
	}

	text, err := core.ReadImport(file, maxSize)
	if err != nil {
		return core.ImportResult{}, err
	}
	return core.ImportCSV(text, existing)
}

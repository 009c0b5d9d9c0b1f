package web

// handlers_mutations.go handles create, update, delete, reload and reset.
//
// Remote and persistence failures come back from the store as
// {success:false}; they are reported with 502 and an error alert so the
// page can show its banner. Form violations are 422 with per-field messages.
// A code taken by a concurrent save is 409 with the same field message.

import (
	"errors"
	"net/http"

	"github.com/JonMunkholm/staffdir/internal/core"
)

// MutationResponse is the result of a create, update or delete.
type MutationResponse struct {
	Success bool    `json:"success"`
	ID      core.ID `json:"id,omitempty"`
	Alert   Alert   `json:"alert"`
}

// ValidationResponse carries per-field form errors.
type ValidationResponse struct {
	Success bool             `json:"success"`
	Errors  core.FieldErrors `json:"errors"`
	Alert   Alert            `json:"alert"`
}

const (
	alertSaved       = "Employee saved"
	alertSaveFailed  = "Employee could not be saved. Please try again"
	alertDeleted     = "Employee deleted"
	alertDeleteFail  = "Employee could not be deleted. Please try again"
	alertInvalidForm = "Please correct the highlighted fields"
)

func (s *Server) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	e, err := decodeEmployee(w, r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	e.ID = ""
	s.save(w, r, e, http.StatusCreated)
}

func (s *Server) handleUpdateEmployee(w http.ResponseWriter, r *http.Request) {
	id := idParam(r)
	if _, err := s.store.Get(id); err != nil {
		s.respondError(w, r, err, http.StatusNotFound)
		return
	}

	e, err := decodeEmployee(w, r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	e.ID = id
	s.save(w, r, e, http.StatusOK)
}

// save validates e against the live collection, then hands it to the store.
func (s *Server) save(w http.ResponseWriter, r *http.Request, e core.Employee, okStatus int) {
	if errs := s.validator.Validate(e, s.store.Employees()); !errs.Valid() {
		writeJSONStatus(w, http.StatusUnprocessableEntity, ValidationResponse{
			Errors: errs,
			Alert:  Alert{Type: AlertError, Message: alertInvalidForm},
		})
		return
	}

	logger := auditLogger(r)
	res := s.store.CreateOrUpdate(r.Context(), e)
	if errors.Is(res.Err, core.ErrCodeTaken) {
		logger.Warn("employee save conflict", "employee_id", e.ID, "code", e.Code)
		writeJSONStatus(w, http.StatusConflict, ValidationResponse{
			Errors: core.FieldErrors{core.FieldCode: core.MsgCodeUnique},
			Alert:  Alert{Type: AlertError, Message: alertInvalidForm},
		})
		return
	}
	if !res.Success {
		logger.Warn("employee save failed", "employee_id", e.ID, "code", e.Code, "error", res.Err)
		writeJSONStatus(w, http.StatusBadGateway, MutationResponse{
			Alert: Alert{Type: AlertError, Message: alertSaveFailed},
		})
		return
	}

	logger.Info("employee saved", "employee_id", res.ID, "code", e.Code)
	writeJSONStatus(w, okStatus, MutationResponse{
		Success: true,
		ID:      res.ID,
		Alert:   Alert{Type: AlertSuccess, Message: alertSaved},
	})
}

func (s *Server) handleDeleteEmployee(w http.ResponseWriter, r *http.Request) {
	id := idParam(r)
	logger := auditLogger(r)

	res := s.store.Delete(r.Context(), id)
	if !res.Success {
		logger.Warn("employee delete failed", "employee_id", id)
		writeJSONStatus(w, http.StatusBadGateway, MutationResponse{
			Alert: Alert{Type: AlertError, Message: alertDeleteFail},
		})
		return
	}

	logger.Info("employee deleted", "employee_id", id)
	writeJSON(w, MutationResponse{
		Success: true,
		ID:      res.ID,
		Alert:   Alert{Type: AlertSuccess, Message: alertDeleted},
	})
}

// handleReload retries Load, for the banner shown after a failed start.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Load(r.Context()); err != nil {
		s.respondError(w, r, err, http.StatusBadGateway)
		return
	}
	writeJSON(w, map[string]any{
		"success": true,
		"count":   s.store.Len(),
		"alert":   Alert{Type: AlertSuccess, Message: "Employee directory loaded"},
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Reset(r.Context()); err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	auditLogger(r).Warn("employee directory reset")
	writeJSON(w, map[string]any{
		"success": true,
		"alert":   Alert{Type: AlertSuccess, Message: "Employee directory cleared"},
	})
}

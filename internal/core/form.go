package core

// form.go validates a single employee before it is saved.
//
// Unlike import, the form reports every violated field at once so the
// user can fix them in one pass.

import (
	"regexp"
	"sort"
	"strings"
	"time"
)

// Form messages, keyed by the rule that produced them.
const (
	MsgCodeRequired       = "Code is required"
	MsgCodeInvalid        = "Code contains invalid characters"
	MsgCodeUnique         = "This code is already in use"
	MsgFullNameRequired   = "Full name is required"
	MsgFullNameInvalid    = "Full name contains invalid characters"
	MsgOccupationRequired = "Occupation is required"
	MsgOccupationInvalid  = "Occupation contains invalid characters"
	MsgDepartmentRequired = "Department is required"
	MsgDepartmentInvalid  = "Department contains invalid characters"
	MsgEmploymentDateBad  = "Date of employment must be a valid date"
	MsgTerminationDateBad = "Termination date must be a valid date"
	MsgTerminationEarly   = "Termination date cannot be before the date of employment"
)

var (
	codePattern = regexp.MustCompile(`^[a-zA-Z0-9\-_\s]+$`)
	namePattern = regexp.MustCompile(`^[a-zA-Z\s]+$`)
)

// FieldErrors maps a field name to its message. Empty means valid.
type FieldErrors map[string]string

// Valid reports whether no rule was violated.
func (fe FieldErrors) Valid() bool { return len(fe) == 0 }

// Fields returns the violated field names, sorted.
func (fe FieldErrors) Fields() []string {
	out := make([]string, 0, len(fe))
	for f := range fe {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// FormValidator checks a candidate record against the field rules and the
// rest of the collection.
type FormValidator struct {
	// EnforceDateOrder rejects a termination date before the employment date.
	EnforceDateOrder bool
}

// Validate checks e. existing is the live collection; the record with
// e.ID is excluded from the uniqueness check.
func (v FormValidator) Validate(e Employee, existing []Employee) FieldErrors {
	errs := FieldErrors{}

	switch {
	case blank(e.Code):
		errs[FieldCode] = MsgCodeRequired
	case !codePattern.MatchString(e.Code):
		errs[FieldCode] = MsgCodeInvalid
	case CodeTaken(existing, e.Code, e.ID):
		errs[FieldCode] = MsgCodeUnique
	}

	nameRule(errs, FieldFullName, e.FullName, MsgFullNameRequired, MsgFullNameInvalid)
	nameRule(errs, FieldOccupation, e.Occupation, MsgOccupationRequired, MsgOccupationInvalid)
	nameRule(errs, FieldDepartment, e.Department, MsgDepartmentRequired, MsgDepartmentInvalid)

	hired, hiredOK := optionalDate(errs, FieldDateOfEmployment, e.DateOfEmployment, MsgEmploymentDateBad)
	left, leftOK := optionalDate(errs, FieldTerminationDate, e.TerminationDate, MsgTerminationDateBad)

	if v.EnforceDateOrder && hiredOK && leftOK && left.Before(hired) {
		errs[FieldTerminationDate] = MsgTerminationEarly
	}

	return errs
}

// Whitespace-only values count as missing.
func nameRule(errs FieldErrors, field, value, required, invalid string) {
	switch {
	case blank(value):
		errs[field] = required
	case !namePattern.MatchString(value):
		errs[field] = invalid
	}
}

func optionalDate(errs FieldErrors, field, value, invalid string) (time.Time, bool) {
	if blank(value) {
		return time.Time{}, false
	}
	t, ok := ParseDate(value)
	if !ok {
		errs[field] = invalid
	}
	return t, ok
}

// Normalize trims the text fields of a submitted record.
func Normalize(e Employee) Employee {
	e.Code = strings.TrimSpace(e.Code)
	e.FullName = strings.TrimSpace(e.FullName)
	e.Occupation = strings.TrimSpace(e.Occupation)
	e.Department = strings.TrimSpace(e.Department)
	e.DateOfEmployment = strings.TrimSpace(e.DateOfEmployment)
	e.TerminationDate = strings.TrimSpace(e.TerminationDate)
	return e
}

package core

// employee.go defines the employee record and its identifier.

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ID identifies an employee. The bundled dataset uses numeric ids; ids
// minted here are UUID strings. Both decode into the same string form, and
// numeric ids are written back as JSON numbers.
type ID string

// maxExactID is the largest integer a JSON number holds without rounding in
// a float64 reader.
const maxExactID = 1<<53 - 1

// MarshalJSON writes canonical integer ids as JSON numbers and everything
// else as a string.
func (id ID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil &&
		strconv.FormatInt(n, 10) == string(id) && n >= -maxExactID && n <= maxExactID {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// UnmarshalJSON accepts a JSON string or number.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*id = ""
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("employee id: %w", err)
		}
		*id = ID(s)
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var n json.Number
	if err := dec.Decode(&n); err != nil {
		return fmt.Errorf("employee id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// newID mints identifiers for created and imported records.
var newID = func() ID { return ID(uuid.NewString()) }

// Employee is a single directory record. Empty date strings mean "absent".
type Employee struct {
	ID               ID     `json:"id"`
	Code             string `json:"code"`
	FullName         string `json:"fullName"`
	Occupation       string `json:"occupation"`
	Department       string `json:"department"`
	DateOfEmployment string `json:"dateOfEmployment,omitempty"`
	TerminationDate  string `json:"terminationDate,omitempty"`
}

// Field names, shared by form errors, sort keys and JSON.
const (
	FieldCode             = "code"
	FieldFullName         = "fullName"
	FieldOccupation       = "occupation"
	FieldDepartment       = "department"
	FieldDateOfEmployment = "dateOfEmployment"
	FieldTerminationDate  = "terminationDate"
)

// CodeTaken reports whether code is used by any record other than except.
// An empty except compares against everyone.
func CodeTaken(employees []Employee, code string, except ID) bool {
	for _, e := range employees {
		if e.Code == code && (except == "" || e.ID != except) {
			return true
		}
	}
	return false
}

func indexOf(employees []Employee, id ID) int {
	for i := range employees {
		if employees[i].ID == id {
			return i
		}
	}
	return -1
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

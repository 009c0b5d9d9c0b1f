package core

// error_messages.go maps technical errors to banner messages with support
// codes. Users quote the code; support looks it up here.
//
// # Persistence (STO001-STO099)
//
//	STO001 - Load failed: neither stored nor default data could be read
//	         Action: Retry loading the directory
//	STO002 - Corrupt data: the stored collection could not be decoded
//	         Action: Restore the data file or reset the directory
//	STO003 - Save failed: the change could not be written
//	         Action: Please try again
//
// # Remote (API001-API099)
//
//	API001 - Remote rejected the change (create, update or delete)
//	         Action: Please try again
//	API002 - Default dataset unreachable (HTTP error)
//	         Action: Check the seed URL and retry loading
//	API003 - Employee not found
//	         Action: Refresh the list; the record may have been deleted
//
// # Validation (VAL001-VAL099)
//
//	VAL001 - Invalid date
//	VAL002 - Invalid page or page size
//	VAL003 - Unknown sort column
//
// # Files (FILE001-FILE099)
//
//	FILE001 - File too large
//	FILE002 - Not a readable CSV
//	FILE003 - Not a readable workbook
//	FILE004 - No file / empty file
//
// # Requests (REQ001-REQ099)
//
//	REQ001 - Too many imports in progress
//	REQ002 - Request cancelled
//	REQ003 - Request timed out
//	REQ004 - Rate limited
//
// # Default (ERR000)
//
// Sentinel errors are matched with errors.Is first. Anything else falls
// back to case-insensitive substring patterns, first match wins.

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var (
	msgLoadFailed  = UserMessage{"The employee directory could not be loaded", "Retry loading the directory", "STO001"}
	msgCorrupt     = UserMessage{"Stored employee data is damaged", "Restore the data file or reset the directory", "STO002"}
	msgSaveFailed  = UserMessage{"The change could not be saved", "Please try again", "STO003"}
	msgRemote      = UserMessage{"The server rejected the change", "Please try again", "API001"}
	msgSeed        = UserMessage{"Default employee data is unreachable", "Check the seed URL and retry loading", "API002"}
	msgNotFound    = UserMessage{"Employee not found", "Refresh the list; the record may have been deleted", "API003"}
	msgBadDate     = UserMessage{"Invalid date format detected", "Use YYYY-MM-DD, MM/DD/YYYY, or Jan 15, 2024", "VAL001"}
	msgBadPage     = UserMessage{"Invalid page requested", "Use a page number from 1 and a supported page size", "VAL002"}
	msgBadSort     = UserMessage{"Unknown sort column", "Sort by name, department, occupation or one of the dates", "VAL003"}
	msgTooLarge    = UserMessage{"File exceeds the maximum size", "Split the file into smaller files", "FILE001"}
	msgBadCSV      = UserMessage{"File is not a valid CSV", "Export the file again as comma-separated text", "FILE002"}
	msgBadWorkbook = UserMessage{"File is not a valid Excel workbook", "Save the file as .xlsx and try again", "FILE003"}
	msgNoFile      = UserMessage{"No data was uploaded", "Select a CSV file with a header row and data rows", "FILE004"}
	msgBusy        = UserMessage{"Other imports are still running", "Please wait a moment and try again", "REQ001"}
	msgCancelled   = UserMessage{"Request was cancelled", "Please try again", "REQ002"}
	msgTimeout     = UserMessage{"Request timed out", "Please try again", "REQ003"}
	msgRateLimited = UserMessage{"Too many requests", "Please wait a moment before trying again", "REQ004"}
)

// sentinelMessages is checked in order with errors.Is.
var sentinelMessages = []struct {
	err error
	msg UserMessage
}{
	{ErrCorruptSlot, msgCorrupt},
	{ErrSaveFailed, msgSaveFailed},
	{ErrEmployeeNotFound, msgNotFound},
	{ErrInvalidPage, msgBadPage},
	{ErrUnknownSortKey, msgBadSort},
	{ErrFileTooLarge, msgTooLarge},
	{ErrInvalidCSV, msgBadCSV},
	{ErrInvalidWorkbook, msgBadWorkbook},
	{ErrEmptyFile, msgNoFile},
	{ErrTooManyImports, msgBusy},
	{context.Canceled, msgCancelled},
	{context.DeadlineExceeded, msgTimeout},
	{ErrLoadFailed, msgLoadFailed},
}

// errorPatterns catches errors from outside this package by their text.
// More specific patterns come first.
var errorPatterns = []struct {
	pattern string
	msg     UserMessage
}{
	{"http status", msgSeed},
	{"remote:", msgRemote},
	{"invalid date", msgBadDate},
	{"no file provided", msgNoFile},
	{"request body too large", msgTooLarge},
	{"rate limit", msgRateLimited},
	{"timeout", msgTimeout},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// A nil error yields the zero UserMessage.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	// Remote failures during load are reported as the seed problem, not the
	// generic load failure they are wrapped in.
	errStr := strings.ToLower(err.Error())
	if errors.Is(err, ErrLoadFailed) && strings.Contains(errStr, "http status") {
		return msgSeed
	}

	for _, s := range sentinelMessages {
		if errors.Is(err, s.err) {
			return s.msg
		}
	}
	for _, p := range errorPatterns {
		if strings.Contains(errStr, p.pattern) {
			return p.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to something more specific than ERR000.
func IsUserFacing(err error) bool {
	return err != nil && MapError(err).Code != defaultMessage.Code
}

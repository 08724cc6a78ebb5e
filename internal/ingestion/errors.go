package ingestion

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat is returned when an uploaded file is not supported.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrMissingInput is returned when neither a file nor a sheet URL was supplied.
	ErrMissingInput = errors.New("a file or sheet_url is required")
	// ErrSheetCommitUnsupported rejects commits that reference a sheet URL.
	ErrSheetCommitUnsupported = errors.New("sheet URL import is not supported for commit; upload the file instead")
	// ErrInvalidSheetURL is returned for URLs that do not point at a Google Sheet.
	ErrInvalidSheetURL = errors.New("invalid Google Sheets URL")
	// ErrSheetFetch wraps failures while downloading a sheet export.
	ErrSheetFetch = errors.New("failed to fetch sheet")
)

// MalformedInputError aborts a whole preview or commit: the upload could not
// be read as a table at all.
type MalformedInputError struct {
	Reason string
	Err    error
}

func (e *MalformedInputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed input: %s: %v", e.Reason, e.Err)
	}
	return "malformed input: " + e.Reason
}

func (e *MalformedInputError) Unwrap() error {
	return e.Err
}

func malformed(reason string, err error) error {
	return &MalformedInputError{Reason: reason, Err: err}
}

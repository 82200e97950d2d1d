package importer

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceUnavailable is returned when the row source cannot be opened.
	// It aborts the whole run.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrSourceRead is returned when the row source fails mid-stream for a
	// reason that is not confined to a single row.
	ErrSourceRead = errors.New("source read failed")

	// ErrInvalidRecord marks a row with a malformed key or an empty payload.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrNoMatch marks a row whose frame number matches no stored pothole.
	ErrNoMatch = errors.New("no match found")

	// ErrPersist marks a lookup or save failure against the store.
	ErrPersist = errors.New("persist failed")
)

// RowError is a failure confined to a single source row, such as a malformed
// CSV line or a field larger than the configured maximum. The run records it
// as errored and keeps reading.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// IsRowError reports whether err is confined to a single row.
// Uses errors.As to handle wrapped errors.
func IsRowError(err error) bool {
	var re *RowError
	return errors.As(err, &re)
}

// invalidRecord wraps ErrInvalidRecord with the offending field.
func invalidRecord(field, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidRecord, field, reason)
}

// ErrNotTruncated marks a matched pothole whose payload is not at the
// truncation threshold and therefore is left alone.
var ErrNotTruncated = errors.New("payload not truncated")

package importer

import (
	"errors"
	"strconv"
	"strings"
)

// base64Marker separates a data URI prefix from the encoded image.
const base64Marker = "base64,"

// Row is one record from a RowSource, keyed by header name.
type Row struct {
	// Line is the 1-based line of the row in its source (the header is line 1).
	Line   int
	Fields map[string]string
}

// Get returns the named field, or "" when the row does not carry it.
func (r Row) Get(name string) string {
	return r.Fields[name]
}

// Record is a validated import row.
type Record struct {
	Frame   int64
	Payload string
}

// ParseRecord validates a row and extracts its frame number and payload.
// Errors wrap ErrInvalidRecord.
func ParseRecord(row Row, keyField, payloadField string) (Record, error) {
	frame, err := parseFrame(row.Get(keyField))
	if err != nil {
		return Record{}, invalidRecord(keyField, err.Error())
	}

	payload := strings.TrimSpace(row.Get(payloadField))
	if payload == "" {
		return Record{}, invalidRecord(payloadField, "is empty")
	}

	return Record{Frame: frame, Payload: StripDataURIPrefix(payload)}, nil
}

// StripDataURIPrefix drops everything up to and including the first
// "base64," marker. Later markers are kept as part of the payload.
func StripDataURIPrefix(payload string) string {
	if _, after, found := strings.Cut(payload, base64Marker); found {
		return after
	}
	return payload
}

var (
	errFrameEmpty      = errors.New("is empty")
	errFrameNotNumeric = errors.New("is not numeric")
	errFrameRange      = errors.New("is out of range")
	errFrameZero       = errors.New("is zero")
)

// parseFrame accepts only ASCII decimal digits and rejects zero.
func parseFrame(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, errFrameEmpty
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, errFrameNotNumeric
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errFrameRange
	}
	if n == 0 {
		return 0, errFrameZero
	}
	return n, nil
}

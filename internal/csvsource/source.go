// Package csvsource reads import rows from comma-separated files with a
// header row.
package csvsource

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/potholes/internal/importer"
)

// DefaultMaxFieldSize bounds a single field, in characters. Frame images run
// to several megabytes of base64.
const DefaultMaxFieldSize = 10000000

// ErrFieldTooLarge is wrapped in the *importer.RowError of an oversized row.
var ErrFieldTooLarge = errors.New("field larger than maximum field size")

// Options configures a Reader.
type Options struct {
	// MaxFieldSize is the largest field accepted, in characters.
	// Zero means DefaultMaxFieldSize.
	MaxFieldSize int
}

// Reader yields header-keyed rows. It implements importer.RowSource.
//
// Rows shorter than the header read missing fields as empty; fields beyond
// the header are ignored.
type Reader struct {
	csv      *csv.Reader
	closer   io.Closer
	header   []string
	maxField int
}

var _ importer.RowSource = (*Reader)(nil)

// Open opens the CSV file at path and reads its header.
// Failures wrap importer.ErrSourceUnavailable.
func Open(path string, opts Options) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", importer.ErrSourceUnavailable, err)
	}

	r, err := NewReader(f, opts)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// NewReader reads CSV rows from r. A UTF-8 or UTF-16 byte order mark is
// honored and dropped. An empty input yields no rows.
func NewReader(r io.Reader, opts Options) (*Reader, error) {
	maxField := opts.MaxFieldSize
	if maxField <= 0 {
		maxField = DefaultMaxFieldSize
	}

	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	cr := csv.NewReader(bufio.NewReaderSize(decoded, 64*1024))
	cr.FieldsPerRecord = -1

	src := &Reader{csv: cr, maxField: maxField}

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return src, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %w", importer.ErrSourceUnavailable, err)
	}

	src.header = make([]string, len(header))
	for i, name := range header {
		src.header[i] = normalizeHeader(name)
	}
	return src, nil
}

// Header returns the normalized header names.
func (r *Reader) Header() []string {
	out := make([]string, len(r.header))
	copy(out, r.header)
	return out
}

// Next returns the next row, or io.EOF when the input is exhausted.
//
// A malformed line or an oversized field is returned as *importer.RowError
// and reading may continue. Other errors end the stream.
func (r *Reader) Next() (importer.Row, error) {
	if r.header == nil {
		return importer.Row{}, io.EOF
	}

	record, err := r.csv.Read()
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			return importer.Row{}, &importer.RowError{Line: perr.StartLine, Err: err}
		}
		return importer.Row{}, err
	}

	line, _ := r.csv.FieldPos(0)

	for i, field := range record {
		if len(field) > r.maxField && utf8.RuneCountInString(field) > r.maxField {
			return importer.Row{}, &importer.RowError{
				Line: line,
				Err:  fmt.Errorf("%w: column %d (limit %d)", ErrFieldTooLarge, i+1, r.maxField),
			}
		}
	}

	fields := make(map[string]string, len(r.header))
	for i, name := range r.header {
		if i < len(record) {
			fields[name] = record[i]
		} else {
			fields[name] = ""
		}
	}

	return importer.Row{Line: line, Fields: fields}, nil
}

// Close releases the underlying file, if any.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// normalizeHeader trims a header name and puts it in NFC form so keys match
// regardless of how the exporting tool composed them.
func normalizeHeader(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"

	"github.com/google/uuid"

	"github.com/roach88/potholes/internal/model"
)

// DefaultTruncationThreshold is the payload length, in characters, at which
// the earlier bulk CSV import cut frame images off. A stored payload of exactly
// this length is treated as truncated and eligible for replacement.
const DefaultTruncationThreshold = 500000

const (
	DefaultKeyField      = "Frame"
	DefaultPayloadField  = "Frame_Data"
	DefaultProgressEvery = 10
)

// RowSource yields rows in source order until it returns io.EOF.
//
// A *RowError return is confined to one row and the caller may keep reading.
// Any other error ends the stream.
type RowSource interface {
	Next() (Row, error)
}

// Store looks up and persists potholes by frame number.
type Store interface {
	// FindFirstByFrameNumber returns the stored pothole with the lowest id
	// for the frame number, and false when none exists.
	FindFirstByFrameNumber(ctx context.Context, frame int64) (model.Pothole, bool, error)

	// Save persists the pothole's frame image.
	Save(ctx context.Context, p model.Pothole) error
}

// Options configures a run. Zero values fall back to the defaults.
type Options struct {
	Threshold     int
	KeyField      string
	PayloadField  string
	ProgressEvery int

	// RunID tags every log line of the run. A UUIDv7 is generated when empty.
	RunID  string
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Threshold <= 0 {
		o.Threshold = DefaultTruncationThreshold
	}
	if o.KeyField == "" {
		o.KeyField = DefaultKeyField
	}
	if o.PayloadField == "" {
		o.PayloadField = DefaultPayloadField
	}
	if o.ProgressEvery <= 0 {
		o.ProgressEvery = DefaultProgressEvery
	}
	if o.RunID == "" {
		o.RunID = uuid.Must(uuid.NewV7()).String()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Outcome is the terminal classification of one row.
type Outcome int

const (
	OutcomeSkipped Outcome = iota
	OutcomeUpdated
	OutcomeErrored
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUpdated:
		return "updated"
	case OutcomeErrored:
		return "errored"
	default:
		return "skipped"
	}
}

// Unmatched records a valid row whose frame number matched no pothole.
type Unmatched struct {
	Line   int    `json:"line" yaml:"line"`
	Frame  int64  `json:"frame" yaml:"frame"`
	Reason string `json:"reason" yaml:"reason"`
}

// Failure records an errored row.
type Failure struct {
	Line    int    `json:"line" yaml:"line"`
	Message string `json:"message" yaml:"message"`
}

// Summary aggregates the outcomes of a run.
type Summary struct {
	RunID     string      `json:"run_id" yaml:"run_id"`
	Updated   int         `json:"updated" yaml:"updated"`
	Skipped   int         `json:"skipped" yaml:"skipped"`
	Errored   int         `json:"errored" yaml:"errored"`
	Unmatched []Unmatched `json:"unmatched,omitempty" yaml:"unmatched,omitempty"`
	Failures  []Failure   `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// Total returns the number of rows classified.
func (s Summary) Total() int {
	return s.Updated + s.Skipped + s.Errored
}

func (s *Summary) record(line int, outcome Outcome, err error, frame int64) {
	switch outcome {
	case OutcomeUpdated:
		s.Updated++
	case OutcomeErrored:
		s.Errored++
		s.Failures = append(s.Failures, Failure{Line: line, Message: err.Error()})
	default:
		s.Skipped++
		if errors.Is(err, ErrNoMatch) {
			s.Unmatched = append(s.Unmatched, Unmatched{Line: line, Frame: frame, Reason: ErrNoMatch.Error()})
		}
	}
}

// Importer reconciles rows against a Store.
//
// Not safe for concurrent use; a run assumes exclusive access to the rows it
// touches.
type Importer struct {
	store Store
	opts  Options
	log   *slog.Logger
}

// New creates an importer over st.
func New(st Store, opts Options) *Importer {
	opts = opts.withDefaults()
	return &Importer{
		store: st,
		opts:  opts,
		log:   opts.Logger.With("run_id", opts.RunID),
	}
}

// Run is shorthand for New(st, opts).Run(ctx, src).
func Run(ctx context.Context, src RowSource, st Store, opts Options) (Summary, error) {
	return New(st, opts).Run(ctx, src)
}

// Run processes every row of src and returns the summary.
//
// Row-level problems never abort the run. A non-row source error or context
// cancellation stops it; the partial summary is returned along with the
// error.
func (im *Importer) Run(ctx context.Context, src RowSource) (Summary, error) {
	summary := Summary{RunID: im.opts.RunID}

	if h, ok := src.(interface{ Header() []string }); ok {
		im.log.Info("starting frame image re-import", "headers", h.Header(), "threshold", im.opts.Threshold)
	} else {
		im.log.Info("starting frame image re-import", "threshold", im.opts.Threshold)
	}

	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		row, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var rowErr *RowError
			if !errors.As(err, &rowErr) {
				return summary, fmt.Errorf("%w: %w", ErrSourceRead, err)
			}
			im.log.Error("row unreadable", "row", rowErr.Line, "error", rowErr.Err)
			summary.record(rowErr.Line, OutcomeErrored, err, 0)
			continue
		}

		outcome, frame, err := im.process(ctx, row)
		summary.record(row.Line, outcome, err, frame)

		if outcome == OutcomeUpdated && summary.Updated%im.opts.ProgressEvery == 0 {
			im.log.Info("progress", "updated", summary.Updated)
		}
	}

	im.log.Info("frame image re-import completed",
		"updated", summary.Updated,
		"skipped", summary.Skipped,
		"errored", summary.Errored,
	)
	return summary, nil
}

// Process classifies a single row, updating the store when it is eligible.
// The returned error explains a skip or an error and is nil for updates.
func (im *Importer) Process(ctx context.Context, row Row) (Outcome, error) {
	outcome, _, err := im.process(ctx, row)
	return outcome, err
}

// process classifies row. A panic raised by the store is reported as an
// errored row.
func (im *Importer) process(ctx context.Context, row Row) (outcome Outcome, frame int64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrPersist, r)
			im.log.Error("row failed", "row", row.Line, "error", err, "stack", string(debug.Stack()))
			outcome = OutcomeErrored
		}
	}()
	return im.classify(ctx, row)
}

func (im *Importer) classify(ctx context.Context, row Row) (Outcome, int64, error) {
	rec, err := ParseRecord(row, im.opts.KeyField, im.opts.PayloadField)
	if err != nil {
		im.log.Debug("row skipped", "row", row.Line, "reason", err)
		return OutcomeSkipped, 0, err
	}

	p, found, err := im.store.FindFirstByFrameNumber(ctx, rec.Frame)
	if err != nil {
		err = fmt.Errorf("%w: find frame %d: %w", ErrPersist, rec.Frame, err)
		im.log.Error("row failed", "row", row.Line, "frame", rec.Frame, "error", err)
		return OutcomeErrored, rec.Frame, err
	}
	if !found {
		im.log.Warn("no pothole found with frame number", "row", row.Line, "frame", rec.Frame)
		return OutcomeSkipped, rec.Frame, ErrNoMatch
	}

	if n := p.PayloadLen(); n != im.opts.Threshold {
		im.log.Debug("row skipped", "row", row.Line, "frame", rec.Frame, "current_size", n)
		return OutcomeSkipped, rec.Frame, ErrNotTruncated
	}

	p.SetPayload(rec.Payload)
	if err := im.store.Save(ctx, p); err != nil {
		err = fmt.Errorf("%w: save pothole %d: %w", ErrPersist, p.ID, err)
		im.log.Error("row failed", "row", row.Line, "frame", rec.Frame, "error", err)
		return OutcomeErrored, rec.Frame, err
	}

	im.log.Info("updated frame", "row", row.Line, "frame", rec.Frame, "size", len(rec.Payload))
	return OutcomeUpdated, rec.Frame, nil
}

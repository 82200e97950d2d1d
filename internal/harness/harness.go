package harness

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/roach88/potholes/internal/csvsource"
	"github.com/roach88/potholes/internal/importer"
	"github.com/roach88/potholes/internal/model"
	"github.com/roach88/potholes/internal/store"
)

// Result is the outcome of running a scenario.
type Result struct {
	// Pass is true when every expectation held.
	Pass bool

	// Errors lists the expectations that did not hold.
	Errors []string

	// Summary is the importer's report. RunID is fixed to the scenario name.
	Summary importer.Summary
}

// Run executes a scenario against a fresh in-memory SQLite store.
//
// The returned error covers harness failures (store setup, a fatal source
// error). Unmet expectations are reported in Result.Errors instead.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	for i, seed := range scenario.Seed {
		p := model.Pothole{FrameNumber: sql.NullInt64{Int64: seed.Frame, Valid: true}}
		if v := seed.value(); v != nil {
			p.FrameImageBase64 = sql.NullString{String: *v, Valid: true}
		}
		if _, err := st.Insert(ctx, p); err != nil {
			return nil, fmt.Errorf("seed[%d]: %w", i, err)
		}
	}

	src, err := csvsource.NewReader(strings.NewReader(scenario.CSV), csvsource.Options{})
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	summary, err := importer.Run(ctx, src, st, importer.Options{
		Threshold: scenario.Threshold,
		RunID:     scenario.Name,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		return nil, fmt.Errorf("run import: %w", err)
	}

	result := &Result{Summary: summary}
	result.Errors = append(result.Errors, checkSummary(scenario.Expect, summary)...)

	imageErrs, err := checkImages(ctx, st, scenario.Expect.Images)
	if err != nil {
		return nil, err
	}
	result.Errors = append(result.Errors, imageErrs...)

	result.Pass = len(result.Errors) == 0
	return result, nil
}

func checkSummary(want Expectation, got importer.Summary) []string {
	var errs []string
	if got.Updated != want.Updated {
		errs = append(errs, fmt.Sprintf("updated = %d, expected %d", got.Updated, want.Updated))
	}
	if got.Skipped != want.Skipped {
		errs = append(errs, fmt.Sprintf("skipped = %d, expected %d", got.Skipped, want.Skipped))
	}
	if got.Errored != want.Errored {
		errs = append(errs, fmt.Sprintf("errored = %d, expected %d", got.Errored, want.Errored))
	}

	frames := make([]int64, 0, len(got.Unmatched))
	for _, u := range got.Unmatched {
		frames = append(frames, u.Frame)
	}
	if !equalFrames(frames, want.Unmatched) {
		errs = append(errs, fmt.Sprintf("unmatched frames = %v, expected %v", frames, want.Unmatched))
	}
	return errs
}

func checkImages(ctx context.Context, st *store.Store, want []ImageState) ([]string, error) {
	var errs []string
	for _, w := range want {
		p, found, err := st.FindFirstByFrameNumber(ctx, w.Frame)
		if err != nil {
			return nil, fmt.Errorf("check frame %d: %w", w.Frame, err)
		}
		if !found {
			errs = append(errs, fmt.Sprintf("frame %d: no pothole stored", w.Frame))
			continue
		}

		switch {
		case w.NullImage:
			if p.FrameImageBase64.Valid {
				errs = append(errs, fmt.Sprintf("frame %d: image has %d characters, expected NULL", w.Frame, p.PayloadLen()))
			}
		case w.ImageLength != nil:
			if n := utf8.RuneCountInString(p.FrameImageBase64.String); !p.FrameImageBase64.Valid || n != *w.ImageLength {
				errs = append(errs, fmt.Sprintf("frame %d: image has %d characters, expected %d", w.Frame, n, *w.ImageLength))
			}
		default:
			if !p.FrameImageBase64.Valid || p.FrameImageBase64.String != *w.Image {
				errs = append(errs, fmt.Sprintf("frame %d: image = %q, expected %q", w.Frame, abbreviate(p.FrameImageBase64.String), abbreviate(*w.Image)))
			}
		}
	}
	return errs, nil
}

func equalFrames(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// abbreviate keeps failure messages readable for large images.
func abbreviate(s string) string {
	const limit = 40
	if len(s) <= limit {
		return s
	}
	return fmt.Sprintf("%s...(%d chars)", s[:limit], utf8.RuneCountInString(s))
}

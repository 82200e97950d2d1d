package importer_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/potholes/internal/importer"
	"github.com/roach88/potholes/internal/testutil"
)

const threshold = importer.DefaultTruncationThreshold

func truncated() string {
	return strings.Repeat("T", threshold)
}

func quietOptions() importer.Options {
	return importer.Options{
		RunID:  "test-run",
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestRun_InvalidFrameSkipsWithoutQuery(t *testing.T) {
	st := testutil.NewMemStore()
	st.Add(1, truncated())

	src := testutil.NewRowSlice(
		[2]string{"", "AAAA"},
		[2]string{"   ", "AAAA"},
		[2]string{"abc", "AAAA"},
		[2]string{"12a", "AAAA"},
		[2]string{"-1", "AAAA"},
		[2]string{"1.5", "AAAA"},
		[2]string{"0", "AAAA"},
		[2]string{"000", "AAAA"},
		[2]string{"99999999999999999999999", "AAAA"},
	)

	summary, err := importer.Run(context.Background(), src, st, quietOptions())
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Updated)
	assert.Equal(t, 9, summary.Skipped)
	assert.Equal(t, 0, summary.Errored)
	assert.Equal(t, 0, st.Finds(), "store must not be queried for invalid frames")
}

func TestRun_EmptyPayloadSkipped(t *testing.T) {
	st := testutil.NewMemStore()
	id := st.Add(3, truncated())

	src := testutil.NewRowSlice(
		[2]string{"3", ""},
		[2]string{"3", "  \t "},
	)

	summary, err := importer.Run(context.Background(), src, st, quietOptions())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, 0, st.Finds())
	p, _ := st.Get(id)
	assert.Equal(t, threshold, p.PayloadLen())
}

func TestRun_StripsDataURIPrefixOnce(t *testing.T) {
	st := testutil.NewMemStore()
	id := st.Add(10, truncated())

	src := testutil.NewRowSlice([2]string{"10", "data:image/png;base64,XYZ"})

	summary, err := importer.Run(context.Background(), src, st, quietOptions())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Updated)

	p, _ := st.Get(id)
	assert.Equal(t, "XYZ", p.FrameImageBase64.String)
}

func TestRun_UpdatesTruncatedPayload(t *testing.T) {
	st := testutil.NewMemStore()
	id := st.Add(20, truncated())
	full := strings.Repeat("F", threshold+1234)

	src := testutil.NewRowSlice([2]string{" 20 ", full})

	summary, err := importer.Run(context.Background(), src, st, quietOptions())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, 0, summary.Skipped)
	assert.Equal(t, 0, summary.Errored)

	p, _ := st.Get(id)
	assert.Equal(t, full, p.FrameImageBase64.String)
	assert.Equal(t, 1, st.Saves())
}

func TestRun_NonTruncatedPayloadUnchanged(t *testing.T) {
	tests := []struct {
		name   string
		length int
	}{
		{"one short", threshold - 1},
		{"one long", threshold + 1},
		{"small", 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := testutil.NewMemStore()
			original := strings.Repeat("O", tt.length)
			id := st.Add(30, original)

			src := testutil.NewRowSlice([2]string{"30", "NEW"})

			summary, err := importer.Run(context.Background(), src, st, quietOptions())
			require.NoError(t, err)

			assert.Equal(t, 0, summary.Updated)
			assert.Equal(t, 1, summary.Skipped)
			assert.Equal(t, 0, st.Saves())
			p, _ := st.Get(id)
			assert.Equal(t, original, p.FrameImageBase64.String)
		})
	}
}

func TestRun_NullPayloadSkipped(t *testing.T) {
	st := testutil.NewMemStore()
	id := st.AddNullImage(31)

	summary, err := importer.Run(context.Background(), testutil.NewRowSlice([2]string{"31", "NEW"}), st, quietOptions())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Skipped)
	p, _ := st.Get(id)
	assert.False(t, p.FrameImageBase64.Valid)
}

func TestRun_NoMatchSkippedAndRecorded(t *testing.T) {
	st := testutil.NewMemStore()

	src := testutil.NewRowSlice([2]string{"404", "AAAA"})

	summary, err := importer.Run(context.Background(), src, st, quietOptions())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Skipped)
	require.Len(t, summary.Unmatched, 1)
	assert.Equal(t, importer.Unmatched{Line: 2, Frame: 404, Reason: "no match found"}, summary.Unmatched[0])
}

func TestRun_SecondRunIsIdempotent(t *testing.T) {
	st := testutil.NewMemStore()
	st.Add(1, truncated())
	st.Add(2, truncated())
	st.Add(3, "already fine")

	src := testutil.NewRowSlice(
		[2]string{"1", "ONE"},
		[2]string{"2", "base64,TWO"},
		[2]string{"3", "THREE"},
		[2]string{"4", "FOUR"},
	)

	first, err := importer.Run(context.Background(), src, st, quietOptions())
	require.NoError(t, err)
	assert.Equal(t, 2, first.Updated)
	assert.Equal(t, 2, first.Skipped)

	src.Reset()
	second, err := importer.Run(context.Background(), src, st, quietOptions())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Updated)
	assert.Equal(t, 4, second.Skipped)
	assert.Equal(t, 2, st.Saves())
}

func TestRun_PersistFailureDoesNotStopBatch(t *testing.T) {
	st := testutil.NewMemStore()
	bad := st.Add(1, truncated())
	good := st.Add(2, truncated())
	st.FailSave(bad, errors.New("disk full"))

	src := testutil.NewRowSlice(
		[2]string{"1", "ONE"},
		[2]string{"2", "TWO"},
	)

	summary, err := importer.Run(context.Background(), src, st, quietOptions())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Errored)
	assert.Equal(t, 1, summary.Updated)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, 2, summary.Failures[0].Line)
	assert.Contains(t, summary.Failures[0].Message, "disk full")

	p, _ := st.Get(good)
	assert.Equal(t, "TWO", p.FrameImageBase64.String)
}

func TestRun_LookupFailureIsErrored(t *testing.T) {
	st := testutil.NewMemStore()
	st.Add(2, truncated())
	st.FailFind(1, errors.New("connection reset"))

	src := testutil.NewRowSlice(
		[2]string{"1", "ONE"},
		[2]string{"2", "TWO"},
	)

	summary, err := importer.Run(context.Background(), src, st, quietOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Errored)
	assert.Equal(t, 1, summary.Updated)
}

func TestRun_StorePanicIsErrored(t *testing.T) {
	st := testutil.NewMemStore()
	st.Add(2, truncated())
	st.PanicOnFind(1)

	src := testutil.NewRowSlice(
		[2]string{"1", "ONE"},
		[2]string{"2", "TWO"},
	)

	summary, err := importer.Run(context.Background(), src, st, quietOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Errored)
	assert.Equal(t, 1, summary.Updated)
	require.Len(t, summary.Failures, 1)
	assert.Contains(t, summary.Failures[0].Message, "panic")
}

func TestRun_RowErrorIsErroredAndReadingContinues(t *testing.T) {
	st := testutil.NewMemStore()
	st.Add(5, truncated())

	src := testutil.NewRowEntries(
		testutil.RowEntry{Err: &importer.RowError{Line: 2, Err: errors.New("bare quote")}},
		testutil.RowEntry{Row: testutil.Row(3, "5", "FIVE")},
	)

	summary, err := importer.Run(context.Background(), src, st, quietOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Errored)
	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, 2, summary.Failures[0].Line)
}

func TestRun_SourceFailureIsFatalWithPartialSummary(t *testing.T) {
	st := testutil.NewMemStore()
	id := st.Add(5, truncated())

	src := testutil.NewRowEntries(
		testutil.RowEntry{Row: testutil.Row(2, "5", "FIVE")},
		testutil.RowEntry{Err: errors.New("read: input/output error")},
		testutil.RowEntry{Row: testutil.Row(4, "6", "SIX")},
	)

	summary, err := importer.Run(context.Background(), src, st, quietOptions())
	require.Error(t, err)
	assert.ErrorIs(t, err, importer.ErrSourceRead)
	assert.Equal(t, 1, summary.Updated, "persisted updates are kept")

	p, _ := st.Get(id)
	assert.Equal(t, "FIVE", p.FrameImageBase64.String)
}

func TestRun_CanceledContextStops(t *testing.T) {
	st := testutil.NewMemStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := importer.Run(ctx, testutil.NewRowSlice([2]string{"1", "A"}), st, quietOptions())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, summary.Total())
}

func TestRun_ConfigurableThreshold(t *testing.T) {
	st := testutil.NewMemStore()
	id := st.Add(1, "12345")

	opts := quietOptions()
	opts.Threshold = 5

	summary, err := importer.Run(context.Background(), testutil.NewRowSlice([2]string{"1", "FULL"}), st, opts)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Updated)

	p, _ := st.Get(id)
	assert.Equal(t, "FULL", p.FrameImageBase64.String)
}

func TestRun_FirstMatchWins(t *testing.T) {
	st := testutil.NewMemStore()
	first := st.Add(8, truncated())
	second := st.Add(8, truncated())

	summary, err := importer.Run(context.Background(), testutil.NewRowSlice([2]string{"8", "EIGHT"}), st, quietOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Updated)

	p, _ := st.Get(first)
	assert.Equal(t, "EIGHT", p.FrameImageBase64.String)
	p, _ = st.Get(second)
	assert.Equal(t, threshold, p.PayloadLen())
}

func TestRun_LogsProgressAndRunID(t *testing.T) {
	st := testutil.NewMemStore()
	var pairs [][2]string
	for i := 1; i <= 4; i++ {
		st.Add(int64(i), "xx")
		pairs = append(pairs, [2]string{strconv.Itoa(i), "NEW"})
	}

	var buf bytes.Buffer
	opts := importer.Options{
		Threshold:     2,
		ProgressEvery: 2,
		RunID:         "run-xyz",
		Logger:        slog.New(slog.NewTextHandler(&buf, nil)),
	}

	summary, err := importer.Run(context.Background(), testutil.NewRowSlice(pairs...), st, opts)
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Updated)
	assert.Equal(t, "run-xyz", summary.RunID)

	logs := buf.String()
	assert.Equal(t, 2, strings.Count(logs, "msg=progress"))
	assert.Contains(t, logs, "run_id=run-xyz")
	assert.Contains(t, logs, "frame image re-import completed")
}

func TestRun_GeneratesRunID(t *testing.T) {
	opts := quietOptions()
	opts.RunID = ""

	summary, err := importer.Run(context.Background(), testutil.NewRowSlice(), testutil.NewMemStore(), opts)
	require.NoError(t, err)
	assert.Len(t, summary.RunID, 36)
}

func TestProcess_Outcomes(t *testing.T) {
	st := testutil.NewMemStore()
	st.Add(1, truncated())
	st.Add(2, "short")

	im := importer.New(st, quietOptions())
	ctx := context.Background()

	outcome, err := im.Process(ctx, testutil.Row(2, "x", "A"))
	assert.Equal(t, importer.OutcomeSkipped, outcome)
	assert.ErrorIs(t, err, importer.ErrInvalidRecord)

	outcome, err = im.Process(ctx, testutil.Row(3, "9", "A"))
	assert.Equal(t, importer.OutcomeSkipped, outcome)
	assert.ErrorIs(t, err, importer.ErrNoMatch)

	outcome, err = im.Process(ctx, testutil.Row(4, "2", "A"))
	assert.Equal(t, importer.OutcomeSkipped, outcome)
	assert.ErrorIs(t, err, importer.ErrNotTruncated)

	outcome, err = im.Process(ctx, testutil.Row(5, "1", "A"))
	assert.Equal(t, importer.OutcomeUpdated, outcome)
	assert.NoError(t, err)

	assert.Equal(t, "updated", importer.OutcomeUpdated.String())
	assert.Equal(t, "errored", importer.OutcomeErrored.String())
	assert.Equal(t, "skipped", importer.OutcomeSkipped.String())
}

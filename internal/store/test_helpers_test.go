package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"github.com/roach88/potholes/internal/model"
)

// createTestStore creates a new temporary store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// insertTestPothole inserts a pothole with the given frame number and image.
func insertTestPothole(t *testing.T, s *Store, frame int64, image string) int64 {
	t.Helper()
	p := model.Pothole{
		FrameNumber: sql.NullInt64{Int64: frame, Valid: true},
		Latitude:    30.2672,
		Longitude:   -97.7431,
	}
	p.SetPayload(image)
	id, err := s.Insert(context.Background(), p)
	if err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}
	return id
}

// truncatedImage returns a payload of exactly n characters.
func truncatedImage(n int) string {
	return strings.Repeat("A", n)
}

// Package testutil provides in-memory collaborators for importer tests.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"unicode/utf8"

	"github.com/roach88/potholes/internal/importer"
	"github.com/roach88/potholes/internal/model"
)

// MemStore is an in-memory importer.Store with failure injection.
//
// Lookups resolve duplicate frame numbers to the lowest id, like the SQL
// backends.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type MemStore struct {
	mu      sync.Mutex
	rows    map[int64]model.Pothole
	nextID  int64
	findErr map[int64]error
	saveErr map[int64]error
	panicOn map[int64]bool
	finds   int
	saves   int
}

var _ importer.Store = (*MemStore)(nil)

// NewMemStore creates an empty store. The first inserted id is 1.
func NewMemStore() *MemStore {
	return &MemStore{
		rows:    make(map[int64]model.Pothole),
		findErr: make(map[int64]error),
		saveErr: make(map[int64]error),
		panicOn: make(map[int64]bool),
	}
}

// Add inserts a pothole with the given frame number and image and returns
// its id.
func (s *MemStore) Add(frame int64, image string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	p := model.Pothole{
		ID:          s.nextID,
		FrameNumber: sql.NullInt64{Int64: frame, Valid: true},
		Status:      "reported",
	}
	p.SetPayload(image)
	s.rows[p.ID] = p
	return p.ID
}

// AddNullImage inserts a pothole whose image is NULL.
func (s *MemStore) AddNullImage(frame int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.rows[s.nextID] = model.Pothole{
		ID:          s.nextID,
		FrameNumber: sql.NullInt64{Int64: frame, Valid: true},
		Status:      "reported",
	}
	return s.nextID
}

// FailFind makes lookups of frame return err.
func (s *MemStore) FailFind(frame int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findErr[frame] = err
}

// FailSave makes saves of pothole id return err.
func (s *MemStore) FailSave(id int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveErr[id] = err
}

// PanicOnFind makes lookups of frame panic.
func (s *MemStore) PanicOnFind(frame int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.panicOn[frame] = true
}

// Get returns the pothole with id.
func (s *MemStore) Get(id int64) (model.Pothole, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.rows[id]
	return p, ok
}

// Finds returns the number of lookups performed.
func (s *MemStore) Finds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finds
}

// Saves returns the number of successful saves.
func (s *MemStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// FindFirstByFrameNumber implements importer.Store.
func (s *MemStore) FindFirstByFrameNumber(_ context.Context, frame int64) (model.Pothole, bool, error) {
	s.mu.Lock()
	s.finds++
	if s.panicOn[frame] {
		s.mu.Unlock()
		panic(fmt.Sprintf("lookup of frame %d exploded", frame))
	}
	defer s.mu.Unlock()

	if err := s.findErr[frame]; err != nil {
		return model.Pothole{}, false, err
	}

	ids := make([]int64, 0, len(s.rows))
	for id, p := range s.rows {
		if p.FrameNumber.Valid && p.FrameNumber.Int64 == frame {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return model.Pothole{}, false, nil
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return s.rows[ids[0]], true, nil
}

// Save implements importer.Store.
func (s *MemStore) Save(_ context.Context, p model.Pothole) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.saveErr[p.ID]; err != nil {
		return err
	}
	if _, ok := s.rows[p.ID]; !ok {
		return fmt.Errorf("save pothole %d: %w", p.ID, model.ErrNotFound)
	}
	s.rows[p.ID] = p
	s.saves++
	return nil
}

// CountByPayloadLength counts potholes whose image is exactly n characters.
func (s *MemStore) CountByPayloadLength(_ context.Context, n int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, p := range s.rows {
		if p.FrameImageBase64.Valid && utf8.RuneCountInString(p.FrameImageBase64.String) == n {
			count++
		}
	}
	return count, nil
}

// Close implements io.Closer.
func (s *MemStore) Close() error {
	return nil
}

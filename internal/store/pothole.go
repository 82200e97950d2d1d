package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/potholes/internal/importer"
	"github.com/roach88/potholes/internal/model"
)

var _ importer.Store = (*Store)(nil)

// FindFirstByFrameNumber returns the pothole with the lowest id carrying the
// frame number. Returns false when no row matches.
func (s *Store) FindFirstByFrameNumber(ctx context.Context, frame int64) (model.Pothole, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, frame_number, frame_image_base64, latitude, longitude, status
		FROM potholes_pothole
		WHERE frame_number = ?
		ORDER BY id ASC
		LIMIT 1
	`, frame)

	var p model.Pothole
	err := row.Scan(&p.ID, &p.FrameNumber, &p.FrameImageBase64, &p.Latitude, &p.Longitude, &p.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Pothole{}, false, nil
	}
	if err != nil {
		return model.Pothole{}, false, fmt.Errorf("find pothole by frame %d: %w", frame, err)
	}

	return p, true, nil
}

// Save writes the pothole's frame image and bumps updated_at.
// Returns model.ErrNotFound if the row no longer exists.
func (s *Store) Save(ctx context.Context, p model.Pothole) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE potholes_pothole
		SET frame_image_base64 = ?, updated_at = ?
		WHERE id = ?
	`, p.FrameImageBase64, time.Now().UTC(), p.ID)
	if err != nil {
		return fmt.Errorf("save pothole %d: %w", p.ID, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("save pothole %d: rows affected: %w", p.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("save pothole %d: %w", p.ID, model.ErrNotFound)
	}

	return nil
}

// Insert adds a pothole and returns its id. Status defaults to "reported".
func (s *Store) Insert(ctx context.Context, p model.Pothole) (int64, error) {
	status := p.Status
	if status == "" {
		status = "reported"
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO potholes_pothole
		(latitude, longitude, status, frame_number, frame_image_base64)
		VALUES (?, ?, ?, ?, ?)
	`,
		p.Latitude,
		p.Longitude,
		status,
		p.FrameNumber,
		p.FrameImageBase64,
	)
	if err != nil {
		return 0, fmt.Errorf("insert pothole: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert pothole: last insert id: %w", err)
	}

	return id, nil
}

// CountByPayloadLength returns how many potholes carry a frame image of
// exactly n characters.
func (s *Store) CountByPayloadLength(ctx context.Context, n int) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM potholes_pothole
		WHERE frame_image_base64 IS NOT NULL AND length(frame_image_base64) = ?
	`, n).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count potholes by image length: %w", err)
	}
	return count, nil
}

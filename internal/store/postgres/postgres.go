// Package postgres provides PostgreSQL-backed access to the potholes_pothole
// table, used when the deployment sets DATABASE_URL.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roach88/potholes/internal/importer"
	"github.com/roach88/potholes/internal/model"
)

//go:embed schema.sql
var schemaSQL string

// Store manages potholes in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

var _ importer.Store = (*Store)(nil)

// Open connects to the database at url and ensures the table exists.
func Open(ctx context.Context, url string) (*Store, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// FindFirstByFrameNumber returns the pothole with the lowest id carrying the
// frame number. Returns false when no row matches.
func (s *Store) FindFirstByFrameNumber(ctx context.Context, frame int64) (model.Pothole, bool, error) {
	var p model.Pothole
	err := s.pool.QueryRow(ctx, `
		SELECT id, frame_number, frame_image_base64, latitude, longitude, status
		FROM potholes_pothole
		WHERE frame_number = $1
		ORDER BY id ASC
		LIMIT 1
	`, frame).Scan(&p.ID, &p.FrameNumber, &p.FrameImageBase64, &p.Latitude, &p.Longitude, &p.Status)
	if errors.Is(err, pgx.ErrNoRows) {
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
	tag, err := s.pool.Exec(ctx, `
		UPDATE potholes_pothole
		SET frame_image_base64 = $1, updated_at = $2
		WHERE id = $3
	`, p.FrameImageBase64, time.Now().UTC(), p.ID)
	if err != nil {
		return fmt.Errorf("save pothole %d: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
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

	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO potholes_pothole
		(latitude, longitude, status, frame_number, frame_image_base64)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, p.Latitude, p.Longitude, status, p.FrameNumber, p.FrameImageBase64).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert pothole: %w", err)
	}
	return id, nil
}

// CountByPayloadLength returns how many potholes carry a frame image of
// exactly n characters.
func (s *Store) CountByPayloadLength(ctx context.Context, n int) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM potholes_pothole
		WHERE frame_image_base64 IS NOT NULL AND char_length(frame_image_base64) = $1
	`, n).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count potholes by image length: %w", err)
	}
	return count, nil
}

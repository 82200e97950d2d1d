// Package model holds the persisted entity types shared by the importer and
// the storage backends.
package model

import (
	"database/sql"
	"errors"
	"time"
	"unicode/utf8"
)

// Pothole is a row of the potholes_pothole table, reduced to the columns the
// maintenance jobs read or write.
type Pothole struct {
	ID int64 `json:"id"`

	// FrameNumber links the row to a frame of the source dashcam capture.
	// It is nullable and not unique.
	FrameNumber sql.NullInt64 `json:"frame_number"`

	// FrameImageBase64 is the base64-encoded frame image.
	FrameImageBase64 sql.NullString `json:"frame_image_base64"`

	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PayloadLen returns the length of the frame image in characters.
// A NULL image has length 0.
func (p Pothole) PayloadLen() int {
	if !p.FrameImageBase64.Valid {
		return 0
	}
	return utf8.RuneCountInString(p.FrameImageBase64.String)
}

// SetPayload replaces the frame image.
func (p *Pothole) SetPayload(payload string) {
	p.FrameImageBase64 = sql.NullString{String: payload, Valid: true}
}

// ErrNotFound is returned by storage backends when a pothole to update no
// longer exists.
var ErrNotFound = errors.New("pothole not found")

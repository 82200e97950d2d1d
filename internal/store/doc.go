// Package store provides SQLite-backed access to the potholes_pothole table.
//
// The maintenance jobs only read rows by frame number, rewrite the frame
// image of a row, and count rows by image length. Rows are never created or
// deleted outside of Insert, which exists for seeding fixtures.
//
// # Lookup Order
//
// frame_number is not unique. FindFirstByFrameNumber resolves duplicates to
// the lowest id, the same row the Django ORM returns for
// filter(frame_number=n).first().
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Image length is measured in characters: SQLite length() on TEXT counts
// characters, not bytes.
package store

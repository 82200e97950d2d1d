// Package importer re-imports frame images into stored potholes.
//
// Run consumes rows from a RowSource strictly in source order and classifies
// each one as updated, skipped or errored:
//
//   - rows with a malformed "Frame" key or an empty "Frame_Data" payload are
//     skipped without touching the store
//   - rows whose frame number matches no stored pothole are skipped and
//     recorded as unmatched
//   - a matching pothole is overwritten only when its current payload is
//     exactly Options.Threshold characters long, the length at which the
//     earlier bulk import truncated images
//   - lookup and persistence failures are counted as errored and the run
//     continues with the next row
//
// Only a source that cannot be opened or read is fatal. Updates already
// persisted are kept when a later row fails.
//
// Duplicate frame numbers resolve to the first stored match (lowest id).
package importer

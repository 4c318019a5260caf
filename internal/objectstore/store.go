// Package objectstore wraps the S3-compatible object store that every
// worker uses to move raw video, clips, and thumbnails between pipeline
// stages (spec §6: "S3-compatible, path-style addressing with
// configurable endpoint").
//
// Grounded on ppiont-omnigen's internal/repository/s3.go for the
// client-wrapper shape (bucket-scoped methods over *s3.Client, zap
// logging, "%w"-wrapped errors) and on maauso-infinitetalk-api's
// internal/storage/s3.go for path-style/custom-endpoint client
// construction.
package objectstore

import "context"

// Store is the contract the pipeline workers use to read and write
// object-store bytes. Keys are always bucket-relative paths, such as
// "<external_id>/<filename>" in the raw-videos bucket.
type Store interface {
	// UploadFile uploads the local file at path to bucket/key, using
	// multipart upload when the file exceeds one part.
	UploadFile(ctx context.Context, bucket, key, path string) error
	// Download writes bucket/key's bytes to destPath on local disk.
	Download(ctx context.Context, bucket, key, destPath string) error
	// Delete removes bucket/key. Used only for temp-directory style
	// cleanup of bytes the core itself wrote in error paths; it is never
	// used to delete a committed Clip/Video artifact (spec §3 ownership:
	// "no deletion by the core").
	Delete(ctx context.Context, bucket, key string) error
}

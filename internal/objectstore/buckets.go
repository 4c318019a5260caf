package objectstore

import "os"

// Buckets names the three buckets the pipeline writes to (spec §6), each
// overridable by environment variable so a deployment can point them at
// differently-named buckets without a code change.
type Buckets struct {
	RawVideos      string
	Thumbnails     string
	ProcessedShorts string
}

// DefaultBuckets returns the bucket names, applying any RAW_VIDEOS_BUCKET
// / THUMBNAILS_BUCKET / PROCESSED_SHORTS_BUCKET overrides found in the
// environment.
func DefaultBuckets() Buckets {
	return Buckets{
		RawVideos:       envOr("RAW_VIDEOS_BUCKET", "raw-videos"),
		Thumbnails:      envOr("THUMBNAILS_BUCKET", "thumbnails"),
		ProcessedShorts: envOr("PROCESSED_SHORTS_BUCKET", "processed-shorts"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

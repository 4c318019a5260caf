package domain

import "time"

// VideoStatus is the wire vocabulary for Video.Status (spec §3).
type VideoStatus string

const (
	VideoDownloaded VideoStatus = "downloaded"
	VideoAnalyzed   VideoStatus = "analyzed"
	VideoProcessed  VideoStatus = "processed"
)

// Video is the downloaded source (spec §3). Created exactly once by DW and
// immutable thereafter except Status.
type Video struct {
	ID          string
	UserID      string
	ExternalID  string // platform-level ID extracted from the source URL; unique
	SourceURL   string
	Title       string
	Description string
	Duration    int // seconds
	ThumbnailURL string
	StorageKey  string // object-store key for the raw media
	Status      VideoStatus
	RawMetadata map[string]any
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

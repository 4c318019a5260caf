package domain

import "time"

// ClipStatus is the wire vocabulary for Clip.Status (spec §3).
type ClipStatus string

const (
	ClipReadyForReview ClipStatus = "ready_for_review"
	ClipApproved       ClipStatus = "approved"
	ClipRejected       ClipStatus = "rejected"
	ClipUploading      ClipStatus = "uploading"
	ClipPublished      ClipStatus = "published"
)

// Clip is the final rendered artifact (spec §3).
type Clip struct {
	ID            string
	SegmentID     string
	VideoID       string
	StorageKey    string
	ThumbnailKey  string
	Title         string
	Description   string
	Tags          []string // ordered, deduplicated
	Status        ClipStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

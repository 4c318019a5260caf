package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/clipforge/engine/internal/domain"
)

const clipColumns = `id, segment_id, video_id, storage_key, COALESCE(thumbnail_key,''),
	COALESCE(title,''), COALESCE(description,''), tags, status, created_at, updated_at`

// ClipRepository handles CRUD for Clip rows.
type ClipRepository struct {
	db *DB
}

// NewClipRepository constructs a ClipRepository over db.
func NewClipRepository(db *DB) *ClipRepository {
	return &ClipRepository{db: db}
}

// Create inserts a Clip row. A unique-constraint violation on segment_id
// is treated as success (spec §4.5 idempotency: "the Clip row insert
// should treat unique-constraint violation on (segment_id) as success"),
// since it means a prior delivery of the same extraction task already
// produced this Clip.
func (r *ClipRepository) Create(c *domain.Clip) error {
	tags, err := json.Marshal(c.Tags)
	if err != nil {
		return fmt.Errorf("marshal clip tags: %w", err)
	}
	now := time.Now()
	c.CreatedAt, c.UpdatedAt = now, now

	_, err = r.db.conn.Exec(`
		INSERT INTO clips (id, segment_id, video_id, storage_key, thumbnail_key, title,
			description, tags, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.SegmentID, c.VideoID, c.StorageKey, c.ThumbnailKey, c.Title,
		c.Description, tags, c.Status, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil && isUniqueViolation(err) {
		return nil
	}
	return err
}

// GetBySegmentID retrieves a Clip by its owning Segment, or (nil, nil) if
// none exists yet.
func (r *ClipRepository) GetBySegmentID(segmentID string) (*domain.Clip, error) {
	row := r.db.conn.QueryRow(`SELECT `+clipColumns+` FROM clips WHERE segment_id = ?`, segmentID)
	return scanClip(row)
}

// CountByVideo returns count_clips(video_id) (spec §4.2).
func (r *ClipRepository) CountByVideo(videoID string) (int, error) {
	var n int
	err := r.db.conn.QueryRow(`SELECT COUNT(*) FROM clips WHERE video_id = ?`, videoID).Scan(&n)
	return n, err
}

func scanClip(row *sql.Row) (*domain.Clip, error) {
	var c domain.Clip
	var tagsRaw []byte

	err := row.Scan(
		&c.ID, &c.SegmentID, &c.VideoID, &c.StorageKey, &c.ThumbnailKey,
		&c.Title, &c.Description, &tagsRaw, &c.Status, &c.CreatedAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(tagsRaw, &c.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal clip tags: %w", err)
	}
	return &c, nil
}

// isUniqueViolation reports whether err is a SQLite unique-constraint
// error. modernc.org/sqlite surfaces these as plain errors whose message
// contains "UNIQUE constraint failed", so string matching is the
// portable check here (the driver does not export a typed sentinel).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

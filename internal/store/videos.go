package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/clipforge/engine/internal/domain"
)

const videoColumns = `id, user_id, external_id, source_url, COALESCE(title,''),
	COALESCE(description,''), duration, COALESCE(thumbnail_url,''), storage_key,
	status, raw_metadata, created_at, updated_at`

// VideoRepository handles CRUD for Video rows.
type VideoRepository struct {
	db *DB
}

// NewVideoRepository constructs a VideoRepository over db.
func NewVideoRepository(db *DB) *VideoRepository {
	return &VideoRepository{db: db}
}

// Upsert creates the Video row or, if one already exists for
// v.ExternalID, overwrites its mutable fields in place. This is the sole
// write path for DW (spec §4.3 step 8: "Create or upsert the Video row
// (unique by external_id)") and makes duplicate download-task delivery
// safe.
func (r *VideoRepository) Upsert(v *domain.Video) error {
	meta, err := json.Marshal(v.RawMetadata)
	if err != nil {
		return fmt.Errorf("marshal video metadata: %w", err)
	}

	existing, err := r.GetByExternalID(v.ExternalID)
	if err != nil {
		return fmt.Errorf("lookup existing video: %w", err)
	}

	now := time.Now()
	if existing == nil {
		if v.ID == "" {
			return fmt.Errorf("video id required for insert")
		}
		v.CreatedAt = now
		v.UpdatedAt = now
		_, err := r.db.conn.Exec(`
			INSERT INTO videos (id, user_id, external_id, source_url, title, description,
				duration, thumbnail_url, storage_key, status, raw_metadata, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			v.ID, v.UserID, v.ExternalID, v.SourceURL, v.Title, v.Description,
			v.Duration, v.ThumbnailURL, v.StorageKey, v.Status, meta, v.CreatedAt, v.UpdatedAt,
		)
		return err
	}

	v.ID = existing.ID
	v.CreatedAt = existing.CreatedAt
	v.UpdatedAt = now
	_, err = r.db.conn.Exec(`
		UPDATE videos SET source_url = ?, title = ?, description = ?, duration = ?,
			thumbnail_url = ?, storage_key = ?, status = ?, raw_metadata = ?, updated_at = ?
		WHERE external_id = ?`,
		v.SourceURL, v.Title, v.Description, v.Duration,
		v.ThumbnailURL, v.StorageKey, v.Status, meta, v.UpdatedAt, v.ExternalID,
	)
	return err
}

// GetByExternalID looks up a Video by its platform-level identifier.
func (r *VideoRepository) GetByExternalID(externalID string) (*domain.Video, error) {
	row := r.db.conn.QueryRow(`SELECT `+videoColumns+` FROM videos WHERE external_id = ?`, externalID)
	return scanVideo(row)
}

// GetByID retrieves a Video by its primary key.
func (r *VideoRepository) GetByID(id string) (*domain.Video, error) {
	row := r.db.conn.QueryRow(`SELECT `+videoColumns+` FROM videos WHERE id = ?`, id)
	return scanVideo(row)
}

// UpdateStatus sets only a Video's status field. Upsert is the other
// write path to an existing row and rewrites its descriptive fields too.
func (r *VideoRepository) UpdateStatus(id string, status domain.VideoStatus) error {
	_, err := r.db.conn.Exec(`UPDATE videos SET status = ?, updated_at = ? WHERE id = ?`, status, time.Now(), id)
	return err
}

func scanVideo(row *sql.Row) (*domain.Video, error) {
	var v domain.Video
	var metaRaw []byte

	err := row.Scan(
		&v.ID, &v.UserID, &v.ExternalID, &v.SourceURL, &v.Title, &v.Description,
		&v.Duration, &v.ThumbnailURL, &v.StorageKey, &v.Status, &metaRaw, &v.CreatedAt, &v.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(metaRaw) > 0 {
		if err := json.Unmarshal(metaRaw, &v.RawMetadata); err != nil {
			return nil, fmt.Errorf("unmarshal video metadata: %w", err)
		}
	}
	return &v, nil
}

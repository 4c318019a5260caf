package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/clipforge/engine/internal/domain"
)

const segmentColumns = `id, video_id, start_time, end_time, composite_score, yt_retention,
	signals, COALESCE(reason,''), status, has_captions, caption_style, caption_data,
	created_at, updated_at`

// SegmentRepository handles CRUD for Segment rows.
type SegmentRepository struct {
	db *DB
}

// NewSegmentRepository constructs a SegmentRepository over db.
func NewSegmentRepository(db *DB) *SegmentRepository {
	return &SegmentRepository{db: db}
}

// Create inserts a Segment row in the detected status (spec §4.4.7).
func (r *SegmentRepository) Create(s *domain.Segment) error {
	signals, err := json.Marshal(s.Signals)
	if err != nil {
		return fmt.Errorf("marshal segment signals: %w", err)
	}
	now := time.Now()
	s.CreatedAt, s.UpdatedAt = now, now
	_, err = r.db.conn.Exec(`
		INSERT INTO segments (id, video_id, start_time, end_time, composite_score,
			yt_retention, signals, reason, status, has_captions, caption_style, caption_data,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.VideoID, s.StartTime, s.EndTime, s.CompositeScore,
		s.YTRetention, signals, s.Reason, s.Status, s.HasCaptions, s.CaptionStyle, s.CaptionData,
		s.CreatedAt, s.UpdatedAt,
	)
	return err
}

// GetByID retrieves a Segment by its primary key.
func (r *SegmentRepository) GetByID(id string) (*domain.Segment, error) {
	row := r.db.conn.QueryRow(`SELECT `+segmentColumns+` FROM segments WHERE id = ?`, id)
	return scanSegment(row)
}

// UpdateStatus transitions Segment.Status (written only by the owning EW
// task, per spec §3 ownership rules).
func (r *SegmentRepository) UpdateStatus(id string, status domain.SegmentStatus) error {
	_, err := r.db.conn.Exec(`UPDATE segments SET status = ?, updated_at = ? WHERE id = ?`, status, time.Now(), id)
	return err
}

// SetCaptions records the outcome of the caption pipeline for a Segment
// (spec §4.5 step 8). style may be nil when captions were skipped.
func (r *SegmentRepository) SetCaptions(id string, hasCaptions bool, style *string, data []byte) error {
	_, err := r.db.conn.Exec(`
		UPDATE segments SET has_captions = ?, caption_style = ?, caption_data = ?, updated_at = ?
		WHERE id = ?`,
		hasCaptions, style, data, time.Now(), id,
	)
	return err
}

// CountByVideo returns count_segments(video_id) (spec §4.2).
func (r *SegmentRepository) CountByVideo(videoID string) (int, error) {
	var n int
	err := r.db.conn.QueryRow(`SELECT COUNT(*) FROM segments WHERE video_id = ?`, videoID).Scan(&n)
	return n, err
}

// ListByVideo returns every Segment row for a Video, ordered by start
// time. The core never auto-fails a Job on exhausted extraction retries
// (spec §7: "the Job remains in extracting"), so production code only
// ever needs the aggregate CountByVideo; nothing in this module calls
// ListByVideo.
func (r *SegmentRepository) ListByVideo(videoID string) ([]*domain.Segment, error) {
	rows, err := r.db.conn.Query(`SELECT `+segmentColumns+` FROM segments WHERE video_id = ? ORDER BY start_time`, videoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Segment
	for rows.Next() {
		var s domain.Segment
		var signalsRaw []byte
		var captionStyle sql.NullString
		var captionData []byte

		if err := rows.Scan(
			&s.ID, &s.VideoID, &s.StartTime, &s.EndTime, &s.CompositeScore, &s.YTRetention,
			&signalsRaw, &s.Reason, &s.Status, &s.HasCaptions, &captionStyle, &captionData,
			&s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(signalsRaw, &s.Signals); err != nil {
			return nil, fmt.Errorf("unmarshal segment signals: %w", err)
		}
		if captionStyle.Valid {
			v := captionStyle.String
			s.CaptionStyle = &v
		}
		s.CaptionData = captionData
		out = append(out, &s)
	}
	return out, rows.Err()
}

func scanSegment(row *sql.Row) (*domain.Segment, error) {
	var s domain.Segment
	var signalsRaw []byte
	var captionStyle sql.NullString
	var captionData []byte

	err := row.Scan(
		&s.ID, &s.VideoID, &s.StartTime, &s.EndTime, &s.CompositeScore, &s.YTRetention,
		&signalsRaw, &s.Reason, &s.Status, &s.HasCaptions, &captionStyle, &captionData,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(signalsRaw, &s.Signals); err != nil {
		return nil, fmt.Errorf("unmarshal segment signals: %w", err)
	}
	if captionStyle.Valid {
		v := captionStyle.String
		s.CaptionStyle = &v
	}
	s.CaptionData = captionData
	return &s, nil
}

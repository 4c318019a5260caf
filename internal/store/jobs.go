package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/clipforge/engine/internal/domain"
)

const jobColumns = `id, user_id, source_url, video_id, status, progress,
	COALESCE(current_step,''), COALESCE(error_message,''), options,
	created_at, updated_at, completed_at`

// JobRepository handles CRUD for Job rows.
type JobRepository struct {
	db *DB
}

// NewJobRepository constructs a JobRepository over db.
func NewJobRepository(db *DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create inserts a new Job row.
func (r *JobRepository) Create(j *domain.Job) error {
	opts, err := json.Marshal(j.Options)
	if err != nil {
		return fmt.Errorf("marshal job options: %w", err)
	}
	_, err = r.db.conn.Exec(`
		INSERT INTO jobs (id, user_id, source_url, status, progress, current_step, options, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.ID, j.UserID, j.SourceURL, j.Status, j.Progress, j.CurrentStep, opts, j.CreatedAt, j.UpdatedAt,
	)
	return err
}

// GetByID retrieves a Job by ID, or (nil, nil) if not found.
func (r *JobRepository) GetByID(id string) (*domain.Job, error) {
	row := r.db.conn.QueryRow(`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	return scanJob(row)
}

// Update persists a Job's mutable fields (status, progress, step, error,
// video link, completion timestamp).
func (r *JobRepository) Update(j *domain.Job) error {
	j.UpdatedAt = time.Now()
	_, err := r.db.conn.Exec(`
		UPDATE jobs SET video_id = ?, status = ?, progress = ?, current_step = ?,
			error_message = ?, updated_at = ?, completed_at = ?
		WHERE id = ?`,
		nullableString(j.VideoID), j.Status, j.Progress, j.CurrentStep,
		nullableString(j.ErrorMessage), j.UpdatedAt, j.CompletedAt, j.ID,
	)
	return err
}

func scanJob(row *sql.Row) (*domain.Job, error) {
	var j domain.Job
	var videoID sql.NullString
	var errMsg string
	var optsRaw []byte
	var completedAt sql.NullTime

	err := row.Scan(
		&j.ID, &j.UserID, &j.SourceURL, &videoID, &j.Status, &j.Progress,
		&j.CurrentStep, &errMsg, &optsRaw, &j.CreatedAt, &j.UpdatedAt, &completedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	j.VideoID = videoID.String
	j.ErrorMessage = errMsg
	if completedAt.Valid {
		t := completedAt.Time
		j.CompletedAt = &t
	}
	if err := json.Unmarshal(optsRaw, &j.Options); err != nil {
		return nil, fmt.Errorf("unmarshal job options: %w", err)
	}
	return &j, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

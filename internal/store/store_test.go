package store

import (
	"testing"

	"github.com/clipforge/engine/internal/domain"
	"github.com/google/uuid"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpen_CreatesTables(t *testing.T) {
	db := setupTestDB(t)
	for _, table := range []string{"jobs", "videos", "segments", "clips"} {
		var n int
		if err := db.conn.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
			t.Fatalf("table %s should exist: %v", table, err)
		}
	}
}

func TestJobRepository_CreateAndUpdate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewJobRepository(db)

	job := domain.NewJob(uuid.New().String(), "user-1", "https://youtu.be/abc123", domain.DefaultOptions())
	if err := repo.Create(job); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.GetByID(job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("expected job, got nil")
	}
	if got.Status != domain.JobQueued {
		t.Errorf("status = %q, want %q", got.Status, domain.JobQueued)
	}
	if got.Options.ClipCount != domain.DefaultOptions().ClipCount {
		t.Errorf("options not round-tripped: got %+v", got.Options)
	}

	if err := got.TransitionTo(domain.JobDownloading, "Starting download"); err != nil {
		t.Fatalf("transition: %v", err)
	}
	got.VideoID = "vid-1"
	if err := repo.Update(got); err != nil {
		t.Fatalf("update: %v", err)
	}

	reloaded, err := repo.GetByID(job.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Status != domain.JobDownloading {
		t.Errorf("status = %q, want %q", reloaded.Status, domain.JobDownloading)
	}
	if reloaded.VideoID != "vid-1" {
		t.Errorf("video_id = %q, want vid-1", reloaded.VideoID)
	}
}

func TestVideoRepository_UpsertIsIdempotentByExternalID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewVideoRepository(db)

	v1 := &domain.Video{
		ID:         uuid.New().String(),
		UserID:     "user-1",
		ExternalID: "abc123",
		SourceURL:  "https://youtu.be/abc123",
		Duration:   120,
		StorageKey: "raw-videos/abc123/video.mp4",
		Status:     domain.VideoDownloaded,
	}
	if err := repo.Upsert(v1); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	// Simulate redelivery of the same download task with a different row ID.
	v2 := &domain.Video{
		ID:         uuid.New().String(),
		UserID:     "user-1",
		ExternalID: "abc123",
		SourceURL:  "https://youtu.be/abc123",
		Duration:   121,
		StorageKey: "raw-videos/abc123/video.mp4",
		Status:     domain.VideoDownloaded,
	}
	if err := repo.Upsert(v2); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	var count int
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM videos WHERE external_id = ?", "abc123").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one video row, got %d", count)
	}

	got, err := repo.GetByExternalID("abc123")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != v1.ID {
		t.Errorf("upsert should preserve the original row id, got %s want %s", got.ID, v1.ID)
	}
	if got.Duration != 121 {
		t.Errorf("duration = %d, want 121 (updated)", got.Duration)
	}
}

func TestSegmentAndClipCounts(t *testing.T) {
	db := setupTestDB(t)
	videoRepo := NewVideoRepository(db)
	segRepo := NewSegmentRepository(db)
	clipRepo := NewClipRepository(db)

	v := &domain.Video{
		ID: uuid.New().String(), UserID: "u1", ExternalID: "ext-1", SourceURL: "u",
		Duration: 300, StorageKey: "k", Status: domain.VideoDownloaded,
	}
	if err := videoRepo.Upsert(v); err != nil {
		t.Fatalf("upsert video: %v", err)
	}

	seg := &domain.Segment{
		ID: uuid.New().String(), VideoID: v.ID, StartTime: 10, EndTime: 40,
		CompositeScore: 0.8, Status: domain.SegmentDetected,
	}
	if err := segRepo.Create(seg); err != nil {
		t.Fatalf("create segment: %v", err)
	}

	n, err := segRepo.CountByVideo(v.ID)
	if err != nil || n != 1 {
		t.Fatalf("count_segments = %d, err %v; want 1, nil", n, err)
	}

	clip := &domain.Clip{
		ID: uuid.New().String(), SegmentID: seg.ID, VideoID: v.ID,
		StorageKey: "clips/x/y.mp4", Status: domain.ClipReadyForReview, Tags: []string{"shorts"},
	}
	if err := clipRepo.Create(clip); err != nil {
		t.Fatalf("create clip: %v", err)
	}
	// Redelivery of the same extraction task re-inserts the same clip id;
	// the unique constraint on segment_id must make this a no-op success.
	if err := clipRepo.Create(clip); err != nil {
		t.Fatalf("duplicate create should be tolerated: %v", err)
	}

	cn, err := clipRepo.CountByVideo(v.ID)
	if err != nil || cn != 1 {
		t.Fatalf("count_clips = %d, err %v; want 1, nil", cn, err)
	}
}

func TestSegmentRepository_SetCaptions(t *testing.T) {
	db := setupTestDB(t)
	videoRepo := NewVideoRepository(db)
	segRepo := NewSegmentRepository(db)

	v := &domain.Video{ID: uuid.New().String(), UserID: "u1", ExternalID: "ext-2", SourceURL: "u", StorageKey: "k", Status: domain.VideoDownloaded}
	if err := videoRepo.Upsert(v); err != nil {
		t.Fatalf("upsert video: %v", err)
	}
	seg := &domain.Segment{ID: uuid.New().String(), VideoID: v.ID, StartTime: 0, EndTime: 20, Status: domain.SegmentDetected}
	if err := segRepo.Create(seg); err != nil {
		t.Fatalf("create segment: %v", err)
	}

	style := string(domain.CaptionHook)
	if err := segRepo.SetCaptions(seg.ID, true, &style, []byte(`[]`)); err != nil {
		t.Fatalf("set captions: %v", err)
	}

	got, err := segRepo.GetByID(seg.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.HasCaptions || got.CaptionStyle == nil || *got.CaptionStyle != style {
		t.Errorf("caption fields not persisted: %+v", got)
	}
}

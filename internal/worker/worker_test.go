package worker

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clipforge/engine/internal/domain"
	"github.com/clipforge/engine/internal/mediatools"
	"github.com/clipforge/engine/internal/objectstore"
	"github.com/clipforge/engine/internal/queue"
	"github.com/clipforge/engine/internal/store"
	"github.com/clipforge/engine/internal/transcribe"
	"github.com/clipforge/engine/pkg/apierr"
)

// fakeStore is an in-memory objectstore.Store, standing in for S3 the
// way the teacher's tests fake external collaborators behind an
// interface boundary.
type fakeStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeStore() *fakeStore { return &fakeStore{data: make(map[string][]byte)} }

func (f *fakeStore) UploadFile(ctx context.Context, bucket, key, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[bucket+"/"+key] = b
	return nil
}

func (f *fakeStore) Download(ctx context.Context, bucket, key, destPath string) error {
	f.mu.Lock()
	b, ok := f.data[bucket+"/"+key]
	f.mu.Unlock()
	if !ok {
		return fmt.Errorf("fakeStore: no object at %s/%s", bucket, key)
	}
	return os.WriteFile(destPath, b, 0o644)
}

func (f *fakeStore) Delete(ctx context.Context, bucket, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, bucket+"/"+key)
	return nil
}

var _ objectstore.Store = (*fakeStore)(nil)

func testDeps(t *testing.T) *Deps {
	t.Helper()
	db, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return NewDeps(
		queue.NewBroker(zap.NewNop()),
		db,
		newFakeStore(),
		objectstore.Buckets{RawVideos: "raw-videos", Thumbnails: "thumbnails", ProcessedShorts: "processed-shorts"},
		zap.NewNop(),
	)
}

// seedVideo inserts a Video row directly, bypassing DW.
func seedVideo(t *testing.T, deps *Deps, duration int) *domain.Video {
	t.Helper()
	v := &domain.Video{
		ID:         uuid.New().String(),
		UserID:     "user-1",
		ExternalID: uuid.New().String(),
		SourceURL:  "https://example.com/watch?v=abc",
		Title:      "A Totally Wild Story About Cats",
		Duration:   duration,
		StorageKey: "abc/video.mp4",
		Status:     domain.VideoDownloaded,
	}
	if err := deps.Videos.Upsert(v); err != nil {
		t.Fatalf("seed video: %v", err)
	}
	return v
}

// seedJobAt inserts a Job already advanced to status, going through the
// legal transition chain so the state machine guard never rejects it.
func seedJobAt(t *testing.T, deps *Deps, videoID string, status domain.JobStatus) *domain.Job {
	t.Helper()
	job := domain.NewJob(uuid.New().String(), "user-1", "https://example.com/watch?v=abc", domain.DefaultOptions())
	chain := []domain.JobStatus{domain.JobDownloading, domain.JobAnalyzing, domain.JobExtracting}
	for _, s := range chain {
		if err := job.TransitionTo(s, string(s)); err != nil {
			t.Fatalf("advance job to %s: %v", s, err)
		}
		if s == status {
			break
		}
	}
	job.VideoID = videoID
	if err := deps.Jobs.Create(job); err != nil {
		t.Fatalf("create job: %v", err)
	}
	if err := deps.Jobs.Update(job); err != nil {
		t.Fatalf("update job: %v", err)
	}
	return job
}

func seedSegment(t *testing.T, deps *Deps, videoID string, status domain.SegmentStatus) *domain.Segment {
	t.Helper()
	seg := &domain.Segment{
		ID:             uuid.New().String(),
		VideoID:        videoID,
		StartTime:      5,
		EndTime:        25,
		CompositeScore: 0.82,
		Status:         domain.SegmentDetected,
	}
	if err := deps.Segments.Create(seg); err != nil {
		t.Fatalf("create segment: %v", err)
	}
	if status != domain.SegmentDetected {
		if err := deps.Segments.UpdateStatus(seg.ID, status); err != nil {
			t.Fatalf("set segment status: %v", err)
		}
		seg.Status = status
	}
	return seg
}

func TestEnsureStage_ReentersOwnStage(t *testing.T) {
	job := domain.NewJob("j1", "u1", "https://x", domain.DefaultOptions())
	if err := job.TransitionTo(domain.JobDownloading, "first"); err != nil {
		t.Fatalf("transition: %v", err)
	}
	if err := ensureStage(job, domain.JobDownloading, "retry"); err != nil {
		t.Fatalf("ensureStage same stage: %v", err)
	}
	if job.Status != domain.JobDownloading || job.CurrentStep != "retry" {
		t.Errorf("job = %+v, want status unchanged and step updated", job)
	}
}

func TestEnsureStage_AdvancesStage(t *testing.T) {
	job := domain.NewJob("j1", "u1", "https://x", domain.DefaultOptions())
	if err := ensureStage(job, domain.JobDownloading, "starting"); err != nil {
		t.Fatalf("ensureStage: %v", err)
	}
	if job.Status != domain.JobDownloading {
		t.Errorf("status = %s, want downloading", job.Status)
	}
}

func TestEnsureStage_RejectsIllegalTransition(t *testing.T) {
	job := domain.NewJob("j1", "u1", "https://x", domain.DefaultOptions())
	if err := job.Fail("step", "boom"); err != nil {
		t.Fatalf("fail: %v", err)
	}
	if err := ensureStage(job, domain.JobDownloading, "restart"); err == nil {
		t.Error("expected error re-entering downloading from a failed job")
	}
}

func TestTerminal(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		attempt     int
		maxAttempts int
		want        bool
	}{
		{"invalid input always terminal", apierr.New(apierr.KindInvalidInput, "bad url"), 1, 3, true},
		{"external tool retryable before exhaustion", apierr.New(apierr.KindExternalTool, "exit 1"), 1, 3, false},
		{"external tool terminal at last attempt", apierr.New(apierr.KindExternalTool, "exit 1"), 3, 3, true},
		{"unclassified error falls back to attempt count", fmt.Errorf("boom"), 3, 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := terminal(tt.err, tt.attempt, tt.maxAttempts); got != tt.want {
				t.Errorf("terminal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClampTopN(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 1},
		{-3, 1},
		{5, 5},
		{8, 8},
		{20, 8},
	}
	for _, tt := range tests {
		if got := clampTopN(tt.in); got != tt.want {
			t.Errorf("clampTopN(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestClipTitle_EmojiKeyedOnComposite(t *testing.T) {
	tests := []struct {
		composite float64
		wantEmoji string
	}{
		{0.95, "🔥"},
		{0.9, "🔥"},
		{0.85, "⚡"},
		{0.8, "⚡"},
		{0.5, "✨"},
	}
	for _, tt := range tests {
		title := clipTitle("Short Title", tt.composite)
		if title != "Short Title "+tt.wantEmoji {
			t.Errorf("clipTitle(%.2f) = %q, want suffix %q", tt.composite, title, tt.wantEmoji)
		}
	}
}

func TestClipTitle_TruncatesTo60Chars(t *testing.T) {
	long := ""
	for i := 0; i < 80; i++ {
		long += "x"
	}
	title := clipTitle(long, 0.5)
	// 60 chars of source + " " + emoji
	runes := []rune(title)
	if len(runes) < 61 || string(runes[:61]) != long[:60]+" " {
		t.Fatalf("clipTitle not truncated to 60 chars: %q", title)
	}
}

func TestClipDescription_IncludesPercentAndReason(t *testing.T) {
	desc := clipDescription(0.73, "strong hook and high energy")
	want := "73% engagement potential. strong hook and high energy"
	if desc != want {
		t.Errorf("clipDescription() = %q, want %q", desc, want)
	}
}

func TestClipTags_UnionsFixedSetAndTitleWords(t *testing.T) {
	tags := clipTags("Amazing Cats Doing Wild Stunts Today Right Now")
	for _, want := range titleTags {
		found := false
		for _, tag := range tags {
			if tag == want {
				found = true
			}
		}
		if !found {
			t.Errorf("clipTags() missing fixed tag %q", want)
		}
	}
	if len(tags) != len(titleTags)+6 {
		t.Errorf("clipTags() = %d tags, want %d (5 fixed + 6 from title)", len(tags), len(titleTags)+6)
	}
}

func TestClipTags_SkipsShortWordsAndDuplicates(t *testing.T) {
	tags := clipTags("It is so so fun a viral clip")
	for _, tag := range tags {
		if tag == "is" || tag == "so" || tag == "it" || tag == "a" {
			t.Errorf("clipTags() included a short word: %q", tag)
		}
	}
	seen := map[string]int{}
	for _, tag := range tags {
		seen[tag]++
	}
	for tag, count := range seen {
		if count > 1 {
			t.Errorf("clipTags() duplicated %q", tag)
		}
	}
}

func TestToAudioMeasurement_SilenceSecondsSummed(t *testing.T) {
	sig := mediatools.AudioSignal{
		MeanVolumeDB: -20, MaxVolumeDB: -5,
		SilenceIntervals: []mediatools.Interval{{Start: 1, End: 2}, {Start: 5, End: 6.5}},
		LoudMoments:      2,
	}
	m := toAudioMeasurement(sig)
	if m.SilenceSeconds != 2.5 {
		t.Errorf("SilenceSeconds = %v, want 2.5", m.SilenceSeconds)
	}
	if !m.LoudMomentInHook {
		t.Error("expected LoudMomentInHook true: loud moments present and [0,3] not fully silent")
	}
}

func TestToAudioMeasurement_SilentHookSuppressesBonus(t *testing.T) {
	sig := mediatools.AudioSignal{
		LoudMoments:      1,
		SilenceIntervals: []mediatools.Interval{{Start: 0, End: 3}},
	}
	m := toAudioMeasurement(sig)
	if m.LoudMomentInHook {
		t.Error("expected LoudMomentInHook false: [0,3] is fully silent")
	}
}

func TestToSpeechMeasurement_WordCountFallsBackToTextFields(t *testing.T) {
	resp := &transcribe.Response{Text: "this is a test sentence"}
	m := toSpeechMeasurement(resp, 0, 5)
	if m.WordCount != 5 {
		t.Errorf("WordCount = %d, want 5", m.WordCount)
	}
	if m.DensityWPS != 1 {
		t.Errorf("DensityWPS = %v, want 1", m.DensityWPS)
	}
	if m.HookText != m.Text {
		t.Errorf("HookText = %q, want fallback to full text %q", m.HookText, m.Text)
	}
}

func TestToSpeechMeasurement_HookTextFromFirstThreeSeconds(t *testing.T) {
	resp := &transcribe.Response{
		Text: "have you ever seen a cat do this",
		Words: []transcribe.Word{
			{Word: "have", Start: 0, End: 0.5},
			{Word: "you", Start: 0.5, End: 1},
			{Word: "ever", Start: 1, End: 1.5},
			{Word: "seen", Start: 4, End: 4.5},
		},
	}
	m := toSpeechMeasurement(resp, 10, 18)
	if m.HookText != "have you ever" {
		t.Errorf("HookText = %q, want %q", m.HookText, "have you ever")
	}
	if len(m.Words) != 4 {
		t.Fatalf("Words = %d, want 4", len(m.Words))
	}
	if m.Words[0].Start != 10 {
		t.Errorf("Words[0].Start = %v, want absolute offset 10", m.Words[0].Start)
	}
}

func TestCheckCompletion_CompletesJobWhenClipsCoverAllSegments(t *testing.T) {
	deps := testDeps(t)
	video := seedVideo(t, deps, 120)
	job := seedJobAt(t, deps, video.ID, domain.JobExtracting)

	seg1 := seedSegment(t, deps, video.ID, domain.SegmentExtracted)
	seg2 := seedSegment(t, deps, video.ID, domain.SegmentExtracted)
	for _, seg := range []*domain.Segment{seg1, seg2} {
		clip := &domain.Clip{ID: uuid.New().String(), SegmentID: seg.ID, VideoID: video.ID, StorageKey: "k", Status: domain.ClipReadyForReview}
		if err := deps.Clips.Create(clip); err != nil {
			t.Fatalf("create clip: %v", err)
		}
	}

	h := &ExtractionHandler{Deps: deps}
	if err := h.checkCompletion(job, video, zap.NewNop()); err != nil {
		t.Fatalf("checkCompletion: %v", err)
	}

	reloaded, err := deps.Jobs.GetByID(job.ID)
	if err != nil {
		t.Fatalf("reload job: %v", err)
	}
	if reloaded.Status != domain.JobCompleted {
		t.Errorf("job status = %s, want completed", reloaded.Status)
	}
	if reloaded.Progress != 100 {
		t.Errorf("job progress = %d, want 100", reloaded.Progress)
	}

	reloadedVideo, err := deps.Videos.GetByID(video.ID)
	if err != nil {
		t.Fatalf("reload video: %v", err)
	}
	if reloadedVideo.Status != domain.VideoProcessed {
		t.Errorf("video status = %s, want processed", reloadedVideo.Status)
	}
}

func TestCheckCompletion_StaysOpenWhenClipsAreMissing(t *testing.T) {
	deps := testDeps(t)
	video := seedVideo(t, deps, 120)
	job := seedJobAt(t, deps, video.ID, domain.JobExtracting)

	seg1 := seedSegment(t, deps, video.ID, domain.SegmentExtracted)
	seedSegment(t, deps, video.ID, domain.SegmentFailed)
	clip := &domain.Clip{ID: uuid.New().String(), SegmentID: seg1.ID, VideoID: video.ID, StorageKey: "k", Status: domain.ClipReadyForReview}
	if err := deps.Clips.Create(clip); err != nil {
		t.Fatalf("create clip: %v", err)
	}

	h := &ExtractionHandler{Deps: deps}
	if err := h.checkCompletion(job, video, zap.NewNop()); err != nil {
		t.Fatalf("checkCompletion: %v", err)
	}

	reloaded, err := deps.Jobs.GetByID(job.ID)
	if err != nil {
		t.Fatalf("reload job: %v", err)
	}
	if reloaded.Status.IsTerminal() {
		t.Errorf("job status = %s, want still extracting (a failed segment never fails the job)", reloaded.Status)
	}
}

func TestExtractionHandler_StepFailedMarksSegmentFailed(t *testing.T) {
	deps := testDeps(t)
	video := seedVideo(t, deps, 120)
	seg := seedSegment(t, deps, video.ID, domain.SegmentExtracting)

	h := &ExtractionHandler{Deps: deps}
	cause := apierr.New(apierr.KindExternalTool, "ffmpeg exit 1")
	if err := h.stepFailed(seg, cause); err != cause {
		t.Errorf("stepFailed() = %v, want the original cause returned for the pool to Nack", err)
	}

	reloaded, err := deps.Segments.GetByID(seg.ID)
	if err != nil {
		t.Fatalf("reload segment: %v", err)
	}
	if reloaded.Status != domain.SegmentFailed {
		t.Errorf("segment status = %s, want failed", reloaded.Status)
	}
}

func TestExtractionHandler_IdempotentReplaySkipsReExtraction(t *testing.T) {
	deps := testDeps(t)
	video := seedVideo(t, deps, 120)
	job := seedJobAt(t, deps, video.ID, domain.JobExtracting)
	seg := seedSegment(t, deps, video.ID, domain.SegmentExtracted)

	clip := &domain.Clip{ID: uuid.New().String(), SegmentID: seg.ID, VideoID: video.ID, StorageKey: "k", Status: domain.ClipReadyForReview}
	if err := deps.Clips.Create(clip); err != nil {
		t.Fatalf("create clip: %v", err)
	}

	payload, err := deps.Broker.Enqueue(queue.Extraction, queue.ExtractionTask{
		JobID: job.ID, VideoID: video.ID, SegmentID: seg.ID, Start: seg.StartTime, End: seg.EndTime,
	}, queue.Policy{MaxAttempts: 3})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	task, err := deps.Broker.Reserve(context.Background(), queue.Extraction, "worker-1")
	if err != nil || task == nil {
		t.Fatalf("reserve: task=%v err=%v", task, err)
	}
	if task.ID != payload.ID {
		t.Fatalf("reserved wrong task")
	}

	// No Encoder/Burner/Prober wired: a re-extraction attempt would panic
	// on the nil pointer, proving the idempotent branch returns before
	// touching them.
	h := &ExtractionHandler{Deps: deps}
	if err := h.Handle(context.Background(), task); err != nil {
		t.Fatalf("Handle() on already-extracted segment: %v", err)
	}

	reloaded, err := deps.Jobs.GetByID(job.ID)
	if err != nil {
		t.Fatalf("reload job: %v", err)
	}
	if reloaded.Status != domain.JobCompleted {
		t.Errorf("job status = %s, want completed (single segment, clip already present)", reloaded.Status)
	}
}

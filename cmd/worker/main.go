// Command worker runs the full pipeline in one process: the Download,
// Analysis and Extraction pools (spec §4.3-4.5) all reserving from the
// same in-process Queue Broker, plus the job-submission path that feeds
// it. The broker's state lives entirely in process memory (spec §4.1's
// "durable" queues are durable only across task redelivery within a
// process, not across process restarts), so every stage that needs to
// see a task enqueued by another stage has to share one Broker instance
// — the reason this is a single binary rather than three, unlike the
// conceptual "stateless workers" framing of spec §2.
package main

import (
	"bufio"
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/clipforge/engine/internal/concurrency"
	"github.com/clipforge/engine/internal/config"
	"github.com/clipforge/engine/internal/domain"
	"github.com/clipforge/engine/internal/mediatools"
	"github.com/clipforge/engine/internal/objectstore"
	"github.com/clipforge/engine/internal/queue"
	"github.com/clipforge/engine/internal/store"
	"github.com/clipforge/engine/internal/transcribe"
	"github.com/clipforge/engine/internal/worker"
	"github.com/clipforge/engine/pkg/logger"
)

func main() {
	userID := flag.String("user", "local", "owning user id for -submit-url and stdin submissions")
	clipCount := flag.Int("clips", 0, "target clip count for submitted jobs (0 uses the default)")
	addSubtitles := flag.Bool("subtitles", true, "burn in captions for submitted jobs")
	submitURL := flag.String("submit-url", "", "submit a single job for this source URL at startup")
	flag.Parse()

	var cfg config.Worker
	if err := config.Load(&cfg); err != nil {
		log.Fatalf("load config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Environment)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zapLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(cfg.DataDir)
	if err != nil {
		zapLogger.Fatal("open job store", zap.Error(err))
	}
	defer db.Close()

	objects, err := objectstore.NewS3Store(ctx, objectstore.Config{
		Region:   cfg.S3Region,
		Endpoint: cfg.S3Endpoint,
	}, zapLogger)
	if err != nil {
		zapLogger.Fatal("init object store", zap.Error(err))
	}

	// One Broker instance, shared by every pool below and by the submit
	// path: a task enqueued here is visible to every other pool in this
	// same process, which is the only way spec §2's submit -> DW -> AW ->
	// EW forward chain can actually complete given an in-process broker.
	broker := queue.NewBroker(zapLogger)
	deps := worker.NewDeps(broker, db, objects, objectstore.DefaultBuckets(), zapLogger)

	var transcribeClient *transcribe.Client
	if cfg.TranscribeEndpoint != "" {
		transcribeClient = transcribe.NewClient(cfg.TranscribeEndpoint, cfg.TranscribeAPIKey, zapLogger)
	} else {
		// The Analysis Worker still needs a client to call: an empty
		// endpoint simply fails every speech probe, which is tolerated by
		// the neutral-fallback path (spec §4.4.2).
		transcribeClient = transcribe.NewClient("", "", zapLogger)
	}

	downloadHandler := &worker.DownloadHandler{
		Deps:       deps,
		Downloader: mediatools.NewDownloader(cfg.DownloaderBinary, time.Duration(cfg.DownloadTimeoutSeconds)*time.Second),
		ScratchDir: cfg.DataDir + "/scratch/download",
	}
	analysisHandler := &worker.AnalysisHandler{
		Deps:       deps,
		Prober:     mediatools.NewProber(cfg.ProbeBinary),
		Encoder:    mediatools.NewEncoder(""),
		Transcribe: transcribeClient,
		ScratchDir: cfg.DataDir + "/scratch/analysis",
	}
	extractionHandler := &worker.ExtractionHandler{
		Deps:    deps,
		Encoder: mediatools.NewEncoder(cfg.EncoderBinary),
		Prober:  mediatools.NewProber(""),
		Burner:  mediatools.NewCaptionBurner(cfg.CaptionBurnBinary),
		// Extraction's caption step is optional (spec §4.5 step 4): a
		// deployment without a transcription endpoint simply produces
		// uncaptioned clips instead of failing.
		Transcribe: extractionTranscribeClient(cfg, zapLogger),
		ScratchDir: cfg.ScratchDir,
	}

	pools := []*worker.Pool{
		{
			Broker:   broker,
			Queue:    queue.Download,
			WorkerID: "download-worker-1",
			Sem:      concurrency.NewSemaphore(2), // spec §4.3: "Default 2 concurrent downloads per worker process"
			Limiter:  concurrency.NewRateLimiter(cfg.DownloadRateLimitPerSec),
			Logger:   zapLogger,
			Handle:   downloadHandler.Handle,
		},
		{
			Broker:   broker,
			Queue:    queue.Analysis,
			WorkerID: "analysis-worker-1",
			// spec §4.4: "Default concurrency 1 with rate limit ≤ 1/s (CPU-heavy)".
			Sem:     concurrency.NewSemaphore(1),
			Limiter: concurrency.NewRateLimiter(1),
			Logger:  zapLogger,
			Handle:  analysisHandler.Handle,
		},
		{
			Broker:   broker,
			Queue:    queue.Extraction,
			WorkerID: "extraction-worker-1",
			// spec §4.5: "Default concurrency 2, rate-limited to ≤ 5/s".
			Sem:     concurrency.NewSemaphore(2),
			Limiter: concurrency.NewRateLimiter(5),
			Logger:  zapLogger,
			Handle:  extractionHandler.Handle,
		},
	}

	var wg sync.WaitGroup
	for _, p := range pools {
		wg.Add(1)
		go func(p *worker.Pool) {
			defer wg.Done()
			p.Run(ctx)
		}(p)
	}

	opts := domain.DefaultOptions()
	if *clipCount > 0 {
		opts.ClipCount = *clipCount
	}
	opts.AddSubtitles = *addSubtitles

	if *submitURL != "" {
		submitJob(deps, zapLogger, *userID, *submitURL, opts)
	}

	// Further jobs can be submitted for the life of this process by
	// piping source URLs, one per line, to stdin — the submit path and
	// the three pools above all drive the same Broker instance.
	go readSubmissionsFromStdin(ctx, deps, zapLogger, *userID, opts)

	zapLogger.Info("worker pipeline starting", zap.String("environment", cfg.Environment))
	wg.Wait()
	zapLogger.Info("worker pipeline stopped")
}

func extractionTranscribeClient(cfg config.Worker, zapLogger *zap.Logger) *transcribe.Client {
	if cfg.TranscribeEndpoint == "" {
		return nil
	}
	return transcribe.NewClient(cfg.TranscribeEndpoint, cfg.TranscribeAPIKey, zapLogger)
}

func submitJob(deps *worker.Deps, zapLogger *zap.Logger, userID, sourceURL string, opts domain.Options) {
	job, err := worker.Submit(deps, userID, sourceURL, opts)
	if err != nil {
		zapLogger.Error("submit job failed", zap.String("source_url", sourceURL), zap.Error(err))
		return
	}
	zapLogger.Info("job submitted", zap.String("job_id", job.ID), zap.String("source_url", sourceURL))
}

func readSubmissionsFromStdin(ctx context.Context, deps *worker.Deps, zapLogger *zap.Logger, userID string, opts domain.Options) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		submitJob(deps, zapLogger, userID, line, opts)
	}
}

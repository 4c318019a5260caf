// Package config loads worker configuration from the environment, the way
// ppiont-omnigen's cmd/api/main.go does: godotenv for local .env files, then
// envconfig struct tags for validation and defaults.
package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Shared holds the configuration every worker binary needs regardless of
// which pipeline stage it runs.
type Shared struct {
	Environment string `envconfig:"ENVIRONMENT" default:"production"`
	DataDir     string `envconfig:"DATA_DIR" default:"./data"`

	S3Bucket   string `envconfig:"S3_BUCKET" required:"true"`
	S3Region   string `envconfig:"S3_REGION" default:"us-east-1"`
	S3Endpoint string `envconfig:"S3_ENDPOINT"`

	WorkerConcurrency int `envconfig:"WORKER_CONCURRENCY" default:"4"`
}

// Worker configures cmd/worker, the single process that runs all three
// pipeline stages against one in-process Queue Broker (spec §2, §5: the
// broker's entire state lives in process memory, so the download,
// analysis and extraction pools — and the job-submission path — must
// share one broker instance rather than being split across processes
// that can never see each other's queues).
type Worker struct {
	Shared

	DownloadRateLimitPerSec float64 `envconfig:"DOWNLOAD_RATE_LIMIT_PER_SEC" default:"2"`
	DownloadTimeoutSeconds  int     `envconfig:"DOWNLOAD_TIMEOUT_SECONDS" default:"600"`
	DownloaderBinary        string  `envconfig:"DOWNLOADER_BINARY" default:"yt-dlp"`

	ProbeBinary        string `envconfig:"PROBE_BINARY" default:"ffprobe"`
	TranscribeEndpoint string `envconfig:"TRANSCRIBE_ENDPOINT"`
	TranscribeAPIKey   string `envconfig:"TRANSCRIBE_API_KEY"`
	MaxClipsPerVideo   int    `envconfig:"MAX_CLIPS_PER_VIDEO" default:"8"`

	EncoderBinary     string `envconfig:"ENCODER_BINARY" default:"ffmpeg"`
	CaptionBurnBinary string `envconfig:"CAPTION_BURN_BINARY" default:"ffmpeg"`
	ScratchDir        string `envconfig:"SCRATCH_DIR" default:"./data/scratch"`
}

// Load loads the first .env file it finds (.env.local, then .env, in the
// working directory, following loadConfig in ppiont-omnigen's
// cmd/api/main.go), then decodes
// environment variables into dst using envconfig struct tags.
func Load(dst any) error {
	wd, err := os.Getwd()
	if err != nil {
		log.Printf("warning: could not determine working directory: %v", err)
		wd = "."
	}

	for _, path := range []string{".env.local", ".env", filepath.Join(wd, ".env.local"), filepath.Join(wd, ".env")} {
		if err := godotenv.Load(path); err == nil {
			log.Printf("loaded environment from %s", path)
			break
		}
	}

	if err := envconfig.Process("", dst); err != nil {
		return fmt.Errorf("process environment variables: %w", err)
	}
	return nil
}

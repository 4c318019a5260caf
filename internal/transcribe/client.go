// Package transcribe is the HTTP client for the external speech-to-text
// endpoint (spec §6), treated as a black-box transcription service that
// accepts a multipart audio upload and returns word-level timestamps.
//
// Grounded on ppiont-omnigen's internal/adapters.OpenAITTSAdapter for the
// *http.Client-with-timeout, zap-logged, %w-wrapped-error shape, with the
// JSON body swapped for a multipart form (spec §6: "HTTP POST multipart
// form with fields file, model, response_format=verbose_json,
// timestamp_granularities=['word']").
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Word is one transcribed word with timestamps (spec §6 response shape).
type Word struct {
	Word       string  `json:"word"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Response is the expected transcription endpoint payload (spec §6).
type Response struct {
	Text     string  `json:"text"`
	Duration float64 `json:"duration"`
	Words    []Word  `json:"words,omitempty"`
	Segments []struct {
		Text  string  `json:"text"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"segments,omitempty"`
}

// Client talks to the configured transcription endpoint.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient constructs a Client targeting endpoint, authenticating with
// apiKey when non-empty.
func NewClient(endpoint, apiKey string, logger *zap.Logger) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: logger,
	}
}

// Transcribe uploads the audio file at audioPath and requests verbose
// JSON output with word-level timestamps (spec §6). If the response
// carries no words (only text), the caller is expected to fall back to
// even word distribution (spec §4.6: "If the endpoint returns only a
// text field, evenly distribute words across the window").
func (c *Client) Transcribe(ctx context.Context, audioPath string) (*Response, error) {
	body, contentType, err := buildMultipartBody(audioPath)
	if err != nil {
		return nil, fmt.Errorf("build transcription request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create transcription request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	if c.logger != nil {
		c.logger.Debug("calling transcription endpoint", zap.String("endpoint", c.endpoint), zap.String("audio", audioPath))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read transcription response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("transcription endpoint returned status %d: %s", resp.StatusCode, truncate(string(respBody), 500))
	}

	var out Response
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("decode transcription response: %w", err)
	}
	return &out, nil
}

func buildMultipartBody(audioPath string) (io.Reader, string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", audioPath, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, "", fmt.Errorf("create form file part: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("copy audio into form: %w", err)
	}

	fields := map[string]string{
		"model":                   "whisper-1",
		"response_format":         "verbose_json",
		"timestamp_granularities": "word",
		"language":                "en",
		"temperature":             "0",
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", k, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "...(truncated)"
}

package queue

// DownloadTask is the Download Worker's input task (spec §4.3).
type DownloadTask struct {
	JobID     string `json:"job_id"`
	SourceURL string `json:"source_url"`
	UserID    string `json:"user_id"`
}

// AnalysisTask is the Analysis Worker's input task (spec §4.4).
type AnalysisTask struct {
	JobID   string `json:"job_id"`
	VideoID string `json:"video_id"`
}

// ExtractionTask is the Extraction Worker's input task (spec §4.5).
type ExtractionTask struct {
	JobID     string  `json:"job_id"`
	VideoID   string  `json:"video_id"`
	SegmentID string  `json:"segment_id"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
}

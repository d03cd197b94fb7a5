package recognizer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"time"

	"media-dubber/internal/domain"
)

// StagedClient is the upload-then-poll Recognizer used when the decoded
// audio exceeds the sync path's size/duration cap, following the
// polling-loop shape the ossrs-oryx dubbing worker uses for its own
// long-running task cycle (bounded attempts, jittered sleep between
// tries, early exit on context cancellation).
type StagedClient struct {
	BaseURL       string
	HTTPClient    *http.Client
	Open          func(string) (io.ReadCloser, error)
	PollInterval  time.Duration
	MaxPolls      int
	ExpectedSec   float64
	Now           func() time.Time
	Sleep         func(context.Context, time.Duration) error
	RandFloat     func() float64
}

// NewStagedClient builds a staged recognizer client against a base URL.
func NewStagedClient(baseURL string) *StagedClient {
	return &StagedClient{
		BaseURL:      baseURL,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
		Open:         func(path string) (io.ReadCloser, error) { return os.Open(path) },
		PollInterval: 2 * time.Second,
		MaxPolls:     150,
		Now:          time.Now,
		Sleep:        sleepOrCancel,
		RandFloat:    rand.Float64,
	}
}

func sleepOrCancel(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

type uploadResponse struct {
	JobID string `json:"jobId"`
}

type pollResponse struct {
	Status string                  `json:"status"`
	Hits   []domain.RecognizerHit `json:"hits,omitempty"`
	Error  string                  `json:"error,omitempty"`
}

// Transcribe uploads the audio file, then polls with jittered backoff,
// reporting progress as min(90, elapsed/expected*100) until completion
// per §4.4's polling contract.
func (s *StagedClient) Transcribe(ctx context.Context, audioPath, languageTag string, breathDetection bool, onProgress func(int)) ([]domain.RecognizerHit, error) {
	f, err := s.Open(audioPath)
	if err != nil {
		return nil, domain.NewJobError(domain.ErrSourceUnavailable, domain.StageRecognize, "cannot open audio for upload", err)
	}
	defer f.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+"/recognize?lang="+languageTag, f)
	if err != nil {
		return nil, domain.NewJobError(domain.ErrInternal, domain.StageRecognize, "cannot build upload request", err)
	}
	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, domain.NewJobError(domain.ErrCancelled, domain.StageRecognize, "recognition cancelled during upload", err)
		}
		return nil, domain.NewJobError(domain.ErrTransientNetwork, domain.StageRecognize, "staged recognizer upload failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, domain.NewJobError(domain.ErrQuotaExceeded, domain.StageRecognize, "staged recognizer quota exceeded", nil)
	}
	if resp.StatusCode >= 500 {
		return nil, domain.NewJobError(domain.ErrTransientRemote, domain.StageRecognize, "staged recognizer upload rejected", nil)
	}
	if resp.StatusCode >= 400 {
		return nil, domain.NewJobError(domain.ErrAudioFormatReject, domain.StageRecognize, "staged recognizer rejected the audio", nil)
	}

	var uploaded uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		return nil, domain.NewJobError(domain.ErrInternal, domain.StageRecognize, "cannot parse upload response", err)
	}

	start := s.Now()
	expected := s.ExpectedSec
	if expected <= 0 {
		expected = 60
	}

	for attempt := 0; attempt < s.MaxPolls; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, domain.NewJobError(domain.ErrCancelled, domain.StageRecognize, "recognition cancelled during poll", err)
		}

		hits, status, err := s.poll(ctx, uploaded.JobID)
		if err != nil {
			return nil, err
		}
		if status == "completed" {
			if onProgress != nil {
				onProgress(100)
			}
			return hits, nil
		}
		if status == "failed" {
			return nil, domain.NewJobError(domain.ErrTransientRemote, domain.StageRecognize, "staged recognition job failed remotely", nil)
		}

		elapsed := s.Now().Sub(start).Seconds()
		pct := int((elapsed / expected) * 100)
		if pct > 90 {
			pct = 90
		}
		if onProgress != nil {
			onProgress(pct)
		}

		jitter := time.Duration(s.RandFloat()*float64(s.PollInterval)) / 2
		if err := s.Sleep(ctx, s.PollInterval+jitter); err != nil {
			return nil, domain.NewJobError(domain.ErrCancelled, domain.StageRecognize, "recognition cancelled during poll wait", err)
		}
	}

	return nil, domain.NewJobError(domain.ErrTransientRemote, domain.StageRecognize, "staged recognizer poll exhausted without completion", nil)
}

func (s *StagedClient) poll(ctx context.Context, jobID string) ([]domain.RecognizerHit, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/recognize/%s", s.BaseURL, jobID), nil)
	if err != nil {
		return nil, "", domain.NewJobError(domain.ErrInternal, domain.StageRecognize, "cannot build poll request", err)
	}
	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return nil, "", domain.NewJobError(domain.ErrTransientNetwork, domain.StageRecognize, "staged recognizer poll request failed", err)
	}
	defer resp.Body.Close()

	var body pollResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, "", domain.NewJobError(domain.ErrTransientRemote, domain.StageRecognize, "cannot parse poll response", err)
	}
	return body.Hits, body.Status, nil
}

package recognizer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"media-dubber/internal/domain"
)

func newTestStagedClient(baseURL string) *StagedClient {
	c := NewStagedClient(baseURL)
	c.Open = func(string) (io.ReadCloser, error) { return io.NopCloser(strings.NewReader("audio-bytes")), nil }
	c.PollInterval = time.Millisecond
	c.RandFloat = func() float64 { return 0 }
	c.Sleep = func(context.Context, time.Duration) error { return nil }
	return c
}

func TestStagedClientCompletesAfterPolling(t *testing.T) {
	polls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost:
			_ = json.NewEncoder(w).Encode(uploadResponse{JobID: "job-1"})
		default:
			polls++
			if polls < 2 {
				_ = json.NewEncoder(w).Encode(pollResponse{Status: "running"})
				return
			}
			_ = json.NewEncoder(w).Encode(pollResponse{Status: "completed", Hits: []domain.RecognizerHit{{Word: "done"}}})
		}
	}))
	defer server.Close()

	client := newTestStagedClient(server.URL)
	hits, err := client.Transcribe(context.Background(), "audio.wav", "en", false, nil)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(hits) != 1 || hits[0].Word != "done" {
		t.Fatalf("unexpected hits: %+v", hits)
	}
	if polls < 2 {
		t.Fatalf("expected at least 2 polls, got %d", polls)
	}
}

func TestStagedClientQuotaExceeded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestStagedClient(server.URL)
	_, err := client.Transcribe(context.Background(), "audio.wav", "en", false, nil)

	var jobErr *domain.JobError
	if !errors.As(err, &jobErr) || jobErr.Kind != domain.ErrQuotaExceeded {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
}

func TestStagedClientRemoteFailureStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			_ = json.NewEncoder(w).Encode(uploadResponse{JobID: "job-1"})
		default:
			_ = json.NewEncoder(w).Encode(pollResponse{Status: "failed"})
		}
	}))
	defer server.Close()

	client := newTestStagedClient(server.URL)
	_, err := client.Transcribe(context.Background(), "audio.wav", "en", false, nil)

	var jobErr *domain.JobError
	if !errors.As(err, &jobErr) || jobErr.Kind != domain.ErrTransientRemote {
		t.Fatalf("expected ErrTransientRemote, got %v", err)
	}
}

func TestStagedClientReportsProgressCap(t *testing.T) {
	polls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			_ = json.NewEncoder(w).Encode(uploadResponse{JobID: "job-1"})
		default:
			polls++
			if polls < 3 {
				_ = json.NewEncoder(w).Encode(pollResponse{Status: "running"})
				return
			}
			_ = json.NewEncoder(w).Encode(pollResponse{Status: "completed"})
		}
	}))
	defer server.Close()

	client := newTestStagedClient(server.URL)
	client.ExpectedSec = 0.001 // force pct to saturate at the 90 cap quickly

	var maxPct int
	_, err := client.Transcribe(context.Background(), "audio.wav", "en", false, func(pct int) {
		if pct > maxPct {
			maxPct = pct
		}
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if maxPct > 100 {
		t.Fatalf("progress exceeded 100: %d", maxPct)
	}
}

func TestStagedClientCancelledContextReturnsCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			_ = json.NewEncoder(w).Encode(uploadResponse{JobID: "job-1"})
		default:
			_ = json.NewEncoder(w).Encode(pollResponse{Status: "running"})
		}
	}))
	defer server.Close()

	client := newTestStagedClient(server.URL)
	client.Sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Transcribe(ctx, "audio.wav", "en", false, nil)
	var jobErr *domain.JobError
	if !errors.As(err, &jobErr) || jobErr.Kind != domain.ErrCancelled {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
}

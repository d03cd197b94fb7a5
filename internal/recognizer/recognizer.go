// Package recognizer presents a uniform transcribe(audio, language,
// breath_detection) interface over either a synchronous local tool
// (grounded on the teacher's whisper.cpp invocation) or a staged
// upload-then-poll remote service, chosen per §4.4's decision rule.
package recognizer

import (
	"context"

	"media-dubber/internal/domain"
)

// Recognizer converts a decoded audio file into an ordered sequence of
// recognized word hits.
type Recognizer interface {
	Transcribe(ctx context.Context, audioPath, languageTag string, breathDetection bool, onProgress func(percent int)) ([]domain.RecognizerHit, error)
}

// SelectionInput carries the facts the sync/staged decision rule needs.
type SelectionInput struct {
	AudioSizeBytes int64
	DurationSec    float64
	SyncLimitBytes int64
	SyncMaxDurSec  float64
}

// UseSyncPath reports whether the sync recognizer should handle this
// input, per §4.4: audio size at or under the configured limit and
// duration at or under the synchronous service's cap.
func UseSyncPath(in SelectionInput) bool {
	if in.SyncLimitBytes > 0 && in.AudioSizeBytes > in.SyncLimitBytes {
		return false
	}
	if in.SyncMaxDurSec > 0 && in.DurationSec > in.SyncMaxDurSec {
		return false
	}
	return true
}

// Router picks between a sync and staged Recognizer implementation based
// on the decision rule, presenting a single Recognizer to callers.
type Router struct {
	Sync           Recognizer
	Staged         Recognizer
	SyncLimitBytes int64
	SyncMaxDurSec  float64
	Stat           func(path string) (int64, error)
	ProbeDuration  func(path string) (float64, error)
}

// Transcribe stats the audio file, decides sync vs staged, and delegates.
func (r *Router) Transcribe(ctx context.Context, audioPath, languageTag string, breathDetection bool, onProgress func(int)) ([]domain.RecognizerHit, error) {
	size, err := r.Stat(audioPath)
	if err != nil {
		return nil, domain.NewJobError(domain.ErrSourceUnavailable, domain.StageRecognize, "cannot read decoded audio file", err)
	}
	duration, err := r.ProbeDuration(audioPath)
	if err != nil {
		return nil, domain.NewJobError(domain.ErrAudioFormatReject, domain.StageRecognize, "cannot determine audio duration", err)
	}

	sel := SelectionInput{
		AudioSizeBytes: size,
		DurationSec:    duration,
		SyncLimitBytes: r.SyncLimitBytes,
		SyncMaxDurSec:  r.SyncMaxDurSec,
	}

	if UseSyncPath(sel) {
		return r.Sync.Transcribe(ctx, audioPath, languageTag, breathDetection, onProgress)
	}
	return r.Staged.Transcribe(ctx, audioPath, languageTag, breathDetection, onProgress)
}

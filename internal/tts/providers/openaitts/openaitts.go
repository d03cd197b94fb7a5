// Package openaitts adapts go-openai's speech synthesis endpoint to the
// tts.Provider interface, following the same NewClientWithConfig +
// region BaseURL override pattern genmodel.NewChatClient uses for chat.
package openaitts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"media-dubber/internal/domain"
	"media-dubber/internal/tts"
)

var catalog = []domain.VoiceProfile{
	{Provider: "openai", VoiceID: "alloy", Language: "en-US", Gender: "neutral", Tier: domain.QualityStandard, PricePer1k: 15},
	{Provider: "openai", VoiceID: "echo", Language: "en-US", Gender: "male", Tier: domain.QualityStandard, PricePer1k: 15},
	{Provider: "openai", VoiceID: "fable", Language: "en-GB", Gender: "male", Tier: domain.QualityEnhanced, PricePer1k: 15},
	{Provider: "openai", VoiceID: "nova", Language: "en-US", Gender: "female", Tier: domain.QualityEnhanced, PricePer1k: 15},
	{Provider: "openai", VoiceID: "onyx", Language: "en-US", Gender: "male", Tier: domain.QualityPremium, PricePer1k: 30},
	{Provider: "openai", VoiceID: "shimmer", Language: "en-US", Gender: "female", Tier: domain.QualityPremium, PricePer1k: 30},
}

var supportedLanguages = map[string]bool{"en-US": true, "en-GB": true}

const (
	defaultCapChars   = 4000
	defaultMaxWorkers = 4
	defaultMaxBreakMs = 4000
	defaultRate       = "medium"
	defaultPitch      = "medium"
	charsPerSecond    = 15.0
)

// SpeechClient is the minimal go-openai surface the adapter needs,
// letting tests substitute a fake without a live API key.
type SpeechClient interface {
	CreateSpeech(ctx context.Context, req openai.CreateSpeechRequest) (io.ReadCloser, error)
}

// Provider synthesizes speech through OpenAI's TTS endpoint.
type Provider struct {
	Client    SpeechClient
	OutputDir string
	WriteFile func(path string, r io.Reader) (int64, error)

	// ProbeDuration measures a synthesized chunk's exact length; nil
	// falls back to a characters-per-second estimate, which also covers
	// tests that never write a real WAV file to disk.
	ProbeDuration func(path string) (float64, error)

	CapChars   int
	MaxWorkers int
	Rate       string
	Pitch      string
	MaxBreakMs int
}

// speechClientAdapter adapts *openai.Client's CreateSpeech, which returns
// the concrete openai.RawResponse type, to the io.ReadCloser-returning
// SpeechClient interface; RawResponse embeds io.ReadCloser so no behavior
// changes, only the static return type.
type speechClientAdapter struct{ c *openai.Client }

func (a speechClientAdapter) CreateSpeech(ctx context.Context, req openai.CreateSpeechRequest) (io.ReadCloser, error) {
	return a.c.CreateSpeech(ctx, req)
}

// New builds a Provider wired to a go-openai client.
func New(apiKey, baseURL, outputDir string) *Provider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Provider{
		Client:        speechClientAdapter{c: openai.NewClientWithConfig(cfg)},
		OutputDir:     outputDir,
		WriteFile:     writeToFile,
		ProbeDuration: tts.ProbeWAVDuration,
		CapChars:      defaultCapChars,
		MaxWorkers:    defaultMaxWorkers,
		Rate:          defaultRate,
		Pitch:         defaultPitch,
		MaxBreakMs:    defaultMaxBreakMs,
	}
}

func (p *Provider) ID() string { return "openai" }

func (p *Provider) ListVoices(languageFilter string) []domain.VoiceProfile {
	if languageFilter == "" {
		return catalog
	}
	var out []domain.VoiceProfile
	for _, v := range catalog {
		if v.Language == languageFilter {
			out = append(out, v)
		}
	}
	return out
}

func (p *Provider) Supports(languageTag string) bool { return supportedLanguages[languageTag] }

func voiceByID(voiceID string) (domain.VoiceProfile, bool) {
	for _, v := range catalog {
		if v.VoiceID == voiceID {
			return v, true
		}
	}
	return domain.VoiceProfile{}, false
}

func (p *Provider) Quote(charCount int, voiceID, quality string) (domain.CostEstimate, error) {
	v, ok := voiceByID(voiceID)
	if !ok {
		return domain.CostEstimate{}, domain.NewJobError(domain.ErrVoiceNotFound, "", fmt.Sprintf("unknown openai voice %q", voiceID), nil)
	}
	return domain.CostEstimate{
		Provider:   p.ID(),
		VoiceID:    voiceID,
		Characters: charCount,
		CostUSD:    float64(charCount) / 1000 * v.PricePer1k,
	}, nil
}

// Synthesize builds per-segment SSML (prosody plus gap-sized breaks, pause
// glyphs stripped), splits the script into chunks under the endpoint's
// per-call character cap, synthesizes them concurrently, and stitches the
// result back into one WAV track. The endpoint is always asked for WAV
// regardless of the caller's requested container: an exact duration and a
// lossless concatenation boundary both depend on decodable PCM, and the
// synthesize stage renames the artifact to its final extension afterward
// so the codec label never leaks past this adapter.
func (p *Provider) Synthesize(ctx context.Context, script domain.Script, voiceID, quality, outputFormat string) (domain.SynthesisResult, error) {
	v, ok := voiceByID(voiceID)
	if !ok {
		return domain.SynthesisResult{}, domain.NewJobError(domain.ErrVoiceNotFound, domain.StageSynthesize, fmt.Sprintf("unknown openai voice %q", voiceID), nil)
	}

	capChars := p.CapChars
	if capChars <= 0 {
		capChars = defaultCapChars
	}
	maxWorkers := p.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = defaultMaxWorkers
	}
	rate := stringOrDefault(p.Rate, defaultRate)
	pitch := stringOrDefault(p.Pitch, defaultPitch)
	maxBreakMs := p.MaxBreakMs
	if maxBreakMs <= 0 {
		maxBreakMs = defaultMaxBreakMs
	}

	synthOne := func(ctx context.Context, chunk []domain.TimedSegment, index int) (domain.SynthesisResult, error) {
		ssml := tts.BuildSSML(chunk, rate, pitch, maxBreakMs)

		stream, err := p.Client.CreateSpeech(ctx, openai.CreateSpeechRequest{
			Model:          openai.TTSModel1,
			Input:          ssml,
			Voice:          openai.SpeechVoice(voiceID),
			ResponseFormat: openai.SpeechResponseFormatWav,
		})
		if err != nil {
			return domain.SynthesisResult{}, classifySpeechError(err)
		}
		defer stream.Close()

		path := fmt.Sprintf("%s/openai-%s-%d.wav", p.OutputDir, voiceID, index)
		n, err := p.WriteFile(path, stream)
		if err != nil {
			return domain.SynthesisResult{}, domain.NewJobError(domain.ErrInternal, domain.StageSynthesize, "failed to write synthesized audio", err)
		}

		chars := chunkChars(chunk)
		return domain.SynthesisResult{
			AudioPath:  path,
			Duration:   p.chunkDuration(path, chars),
			Bytes:      n,
			Characters: chars,
			CostUSD:    float64(chars) / 1000 * v.PricePer1k,
			Provider:   p.ID(),
			VoiceID:    voiceID,
		}, nil
	}

	outPath := fmt.Sprintf("%s/openai-%s-stitched.wav", p.OutputDir, voiceID)
	res, err := tts.ChunkedSynthesize(ctx, script.Segments, capChars, maxWorkers, synthOne, tts.ConcatWAV, outPath)
	if err != nil {
		return domain.SynthesisResult{}, err
	}

	if err := p.padIfShort(&res, script); err != nil {
		return domain.SynthesisResult{}, err
	}

	return res, nil
}

// chunkDuration measures the exact duration when the file can be
// decoded, falling back to a characters-per-second estimate otherwise so
// §4.7's "duration > 0 on success" invariant always holds.
func (p *Provider) chunkDuration(path string, chars int) float64 {
	if p.ProbeDuration != nil {
		if d, err := p.ProbeDuration(path); err == nil && d > 0 {
			return d
		}
	}
	return float64(chars) / charsPerSecond
}

// padIfShort reconciles the stitched track's duration against the source
// script's timeline, padding it with trailing silence when the
// synthesized speech ran short.
func (p *Provider) padIfShort(res *domain.SynthesisResult, script domain.Script) error {
	sourceSpan := tts.SourceSpan(script.Segments)
	paddingSec, _ := tts.ReconcileDuration(res.Duration, sourceSpan)
	if paddingSec <= 0 {
		return nil
	}
	if err := tts.PadWAVSilence(res.AudioPath, paddingSec); err != nil {
		return domain.NewJobError(domain.ErrInternal, domain.StageSynthesize, "failed to pad synthesized audio to source length", err)
	}
	res.Duration += paddingSec
	return nil
}

func chunkChars(segments []domain.TimedSegment) int {
	total := 0
	for _, s := range segments {
		total += len(s.Text)
	}
	return total
}

func stringOrDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func classifySpeechError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case 429:
			return domain.NewJobError(domain.ErrQuotaExceeded, domain.StageSynthesize, "openai tts quota exceeded", err)
		case 503, 502:
			return domain.NewJobError(domain.ErrSourceUnavailable, domain.StageSynthesize, "openai tts unavailable", err)
		}
	}
	return domain.NewJobError(domain.ErrTransientRemote, domain.StageSynthesize, "openai tts call failed", err)
}

func writeToFile(path string, r io.Reader) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return io.Copy(f, r)
}

var _ tts.Provider = (*Provider)(nil)

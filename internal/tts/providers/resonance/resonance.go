// Package resonance adapts a second, hypothetical TTS vendor reachable
// over a plain JSON HTTP API rather than an SDK, so the registry's
// auto-selection and cross-provider voice equivalence have more than one
// catalog to choose between.
package resonance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"media-dubber/internal/domain"
	"media-dubber/internal/tts"
)

var catalog = []domain.VoiceProfile{
	{Provider: "resonance", VoiceID: "res-clara", Language: "en-US", Gender: "female", Tier: domain.QualityStudio, ToneTag: "warm", PricePer1k: 24},
	{Provider: "resonance", VoiceID: "res-marcus", Language: "en-US", Gender: "male", Tier: domain.QualityStudio, ToneTag: "authoritative", PricePer1k: 24},
	{Provider: "resonance", VoiceID: "res-luz", Language: "es-ES", Gender: "female", Tier: domain.QualityPremium, ToneTag: "warm", PricePer1k: 18},
	{Provider: "resonance", VoiceID: "res-hana", Language: "ja-JP", Gender: "female", Tier: domain.QualityEnhanced, ToneTag: "neutral", PricePer1k: 12},
}

const (
	defaultCapChars   = 4000
	defaultMaxWorkers = 4
	defaultMaxBreakMs = 4000
	defaultRate       = "medium"
	defaultPitch      = "medium"
)

// HTTPDoer is the minimal net/http surface the adapter needs, letting
// tests substitute httptest.Server-backed clients or fakes.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Provider synthesizes speech through Resonance's HTTP synthesis endpoint.
type Provider struct {
	BaseURL   string
	APIKey    string
	Client    HTTPDoer
	OutputDir string
	WriteFile func(path string, r io.Reader) (int64, error)

	CapChars   int
	MaxWorkers int
	Rate       string
	Pitch      string
	MaxBreakMs int
}

// New builds a Provider pointed at a Resonance-compatible base URL.
func New(baseURL, apiKey, outputDir string) *Provider {
	return &Provider{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		Client:     http.DefaultClient,
		OutputDir:  outputDir,
		WriteFile:  writeToFile,
		CapChars:   defaultCapChars,
		MaxWorkers: defaultMaxWorkers,
		Rate:       defaultRate,
		Pitch:      defaultPitch,
		MaxBreakMs: defaultMaxBreakMs,
	}
}

func (p *Provider) ID() string { return "resonance" }

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

func (p *Provider) Supports(languageTag string) bool {
	for _, v := range catalog {
		if v.Language == languageTag {
			return true
		}
	}
	return false
}

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
		return domain.CostEstimate{}, domain.NewJobError(domain.ErrVoiceNotFound, "", fmt.Sprintf("unknown resonance voice %q", voiceID), nil)
	}
	return domain.CostEstimate{
		Provider:   p.ID(),
		VoiceID:    voiceID,
		Characters: charCount,
		CostUSD:    float64(charCount) / 1000 * v.PricePer1k,
	}, nil
}

type synthesizeRequest struct {
	Voice  string `json:"voice"`
	Text   string `json:"text"`
	Format string `json:"format"`
}

type synthesizeResponse struct {
	AudioURL   string `json:"audioUrl"`
	DurationMs int64  `json:"durationMs"`
	Error      string `json:"error,omitempty"`
}

// Synthesize builds per-segment SSML (prosody plus gap-sized breaks, pause
// glyphs stripped), splits the script into chunks under the endpoint's
// per-call character cap, synthesizes them concurrently, and stitches the
// result into one WAV track, then pads it with trailing silence if it
// still runs short of the source timeline.
func (p *Provider) Synthesize(ctx context.Context, script domain.Script, voiceID, quality, outputFormat string) (domain.SynthesisResult, error) {
	v, ok := voiceByID(voiceID)
	if !ok {
		return domain.SynthesisResult{}, domain.NewJobError(domain.ErrVoiceNotFound, domain.StageSynthesize, fmt.Sprintf("unknown resonance voice %q", voiceID), nil)
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

		body, err := json.Marshal(synthesizeRequest{Voice: voiceID, Text: ssml, Format: "wav"})
		if err != nil {
			return domain.SynthesisResult{}, domain.NewJobError(domain.ErrInternal, domain.StageSynthesize, "failed to encode resonance request", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/v1/synthesize", bytes.NewReader(body))
		if err != nil {
			return domain.SynthesisResult{}, domain.NewJobError(domain.ErrInternal, domain.StageSynthesize, "failed to build resonance request", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+p.APIKey)

		resp, err := p.Client.Do(req)
		if err != nil {
			return domain.SynthesisResult{}, domain.NewJobError(domain.ErrTransientNetwork, domain.StageSynthesize, "resonance request failed", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return domain.SynthesisResult{}, classifyStatus(resp.StatusCode)
		}

		var out synthesizeResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return domain.SynthesisResult{}, domain.NewJobError(domain.ErrTransientRemote, domain.StageSynthesize, "malformed resonance response", err)
		}
		if out.Error != "" {
			return domain.SynthesisResult{}, domain.NewJobError(domain.ErrTransientRemote, domain.StageSynthesize, out.Error, nil)
		}

		audioResp, err := p.Client.Do(mustGet(ctx, out.AudioURL))
		if err != nil {
			return domain.SynthesisResult{}, domain.NewJobError(domain.ErrTransientNetwork, domain.StageSynthesize, "resonance audio fetch failed", err)
		}
		defer audioResp.Body.Close()

		path := fmt.Sprintf("%s/resonance-%s-%d.wav", p.OutputDir, voiceID, index)
		n, err := p.WriteFile(path, audioResp.Body)
		if err != nil {
			return domain.SynthesisResult{}, domain.NewJobError(domain.ErrInternal, domain.StageSynthesize, "failed to write synthesized audio", err)
		}

		chars := chunkChars(chunk)
		return domain.SynthesisResult{
			AudioPath:  path,
			Duration:   float64(out.DurationMs) / 1000,
			Bytes:      n,
			Characters: chars,
			CostUSD:    float64(chars) / 1000 * v.PricePer1k,
			Provider:   p.ID(),
			VoiceID:    voiceID,
		}, nil
	}

	outPath := fmt.Sprintf("%s/resonance-%s-stitched.wav", p.OutputDir, voiceID)
	res, err := tts.ChunkedSynthesize(ctx, script.Segments, capChars, maxWorkers, synthOne, tts.ConcatWAV, outPath)
	if err != nil {
		return domain.SynthesisResult{}, err
	}

	sourceSpan := tts.SourceSpan(script.Segments)
	paddingSec, _ := tts.ReconcileDuration(res.Duration, sourceSpan)
	if paddingSec > 0 {
		if err := tts.PadWAVSilence(res.AudioPath, paddingSec); err != nil {
			return domain.SynthesisResult{}, domain.NewJobError(domain.ErrInternal, domain.StageSynthesize, "failed to pad synthesized audio to source length", err)
		}
		res.Duration += paddingSec
	}

	return res, nil
}

func mustGet(ctx context.Context, url string) *http.Request {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	return req
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

func classifyStatus(status int) error {
	switch status {
	case http.StatusTooManyRequests:
		return domain.NewJobError(domain.ErrQuotaExceeded, domain.StageSynthesize, "resonance quota exceeded", nil)
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		return domain.NewJobError(domain.ErrSourceUnavailable, domain.StageSynthesize, "resonance unavailable", nil)
	case http.StatusInternalServerError:
		return domain.NewJobError(domain.ErrTransientRemote, domain.StageSynthesize, "resonance transient failure", nil)
	default:
		return domain.NewJobError(domain.ErrTransientRemote, domain.StageSynthesize, fmt.Sprintf("resonance returned status %d", status), nil)
	}
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

package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"media-dubber/internal/domain"
)

// decodeRequest enforces the same "unknown fields reject" contract
// config.JSONStore uses for settings, so a submit body with a typo'd or
// stale field name fails loudly instead of silently ignoring it.
func decodeRequest(c echo.Context, out interface{}) error {
	dec := json.NewDecoder(c.Request().Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return domain.NewJobError(domain.ErrInvalidRequest, "", "malformed request body: "+err.Error(), err)
	}
	return nil
}

func (s *Server) submit(c echo.Context, req domain.JobRequest) error {
	id, err := s.Orchestrator.Submit(req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, map[string]string{"job_id": id})
}

// transcribeRequest mirrors spec.md §6's POST /v1/transcribe field set.
type transcribeRequest struct {
	URL             string                 `json:"url"`
	TestMode        bool                   `json:"test_mode"`
	BreathDetection bool                   `json:"breath_detection"`
	PostEdit        domain.PostEditOptions `json:"post_edit"`
	Language        string                 `json:"language"`
}

func (s *Server) handleTranscribe(c echo.Context) error {
	var req transcribeRequest
	if err := decodeRequest(c, &req); err != nil {
		return err
	}
	return s.submit(c, domain.JobRequest{
		Kind:            domain.JobKindTranscribe,
		URL:             req.URL,
		TestMode:        req.TestMode,
		BreathDetection: req.BreathDetection,
		PostEdit:        req.PostEdit,
		Language:        req.Language,
	})
}

// translateRequest mirrors spec.md §6's POST /v1/translate field set.
type translateRequest struct {
	Transcript string `json:"transcript"`
	TargetLang string `json:"target_lang"`
	Context    string `json:"context"`
	Audience   string `json:"audience"`
	Tone       string `json:"tone"`
	Quality    string `json:"quality"`
}

func (s *Server) handleTranslate(c echo.Context) error {
	var req translateRequest
	if err := decodeRequest(c, &req); err != nil {
		return err
	}
	return s.submit(c, domain.JobRequest{
		Kind:       domain.JobKindTranslate,
		Transcript: req.Transcript,
		Translation: domain.TranslationOptions{
			Enabled:    true,
			TargetLang: req.TargetLang,
			Context:    req.Context,
			Audience:   req.Audience,
			Tone:       req.Tone,
			Quality:    req.Quality,
		},
	})
}

// synthesizeRequest mirrors spec.md §6's POST /v1/synthesize field set.
type synthesizeRequest struct {
	Script   string `json:"script"`
	Provider string `json:"provider"`
	VoiceID  string `json:"voice_id"`
	Quality  string `json:"quality"`
	Format   string `json:"format"`
}

func (s *Server) handleSynthesize(c echo.Context) error {
	var req synthesizeRequest
	if err := decodeRequest(c, &req); err != nil {
		return err
	}
	return s.submit(c, domain.JobRequest{
		Kind:   domain.JobKindSynthesize,
		Script: req.Script,
		Synthesis: domain.SynthesisOptions{
			Enabled:  true,
			Provider: req.Provider,
			VoiceID:  req.VoiceID,
			Quality:  req.Quality,
			Format:   req.Format,
		},
	})
}

// dubRequest mirrors spec.md §6's POST /v1/dub field set: the union of
// every optional stage's fields plus the mux flag and cost ceiling.
type dubRequest struct {
	URL             string                    `json:"url"`
	TestMode        bool                      `json:"test_mode"`
	BreathDetection bool                      `json:"breath_detection"`
	Language        string                    `json:"language"`
	PostEdit        domain.PostEditOptions    `json:"post_edit"`
	Translation     domain.TranslationOptions `json:"translation"`
	Synthesis       domain.SynthesisOptions   `json:"synthesis"`
	Mux             bool                      `json:"mux"`
	MaxCostUSD      float64                   `json:"max_cost"`
	RegionList      []string                  `json:"region_list"`
}

func (s *Server) handleDub(c echo.Context) error {
	var req dubRequest
	if err := decodeRequest(c, &req); err != nil {
		return err
	}
	return s.submit(c, domain.JobRequest{
		Kind:            domain.JobKindDub,
		URL:             req.URL,
		TestMode:        req.TestMode,
		BreathDetection: req.BreathDetection,
		Language:        req.Language,
		PostEdit:        req.PostEdit,
		Translation:     req.Translation,
		Synthesis:       req.Synthesis,
		Mux:             req.Mux,
		MaxCostUSD:      req.MaxCostUSD,
		RegionList:      req.RegionList,
	})
}

func (s *Server) handleJobStatus(c echo.Context) error {
	job, err := s.Orchestrator.Status(c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, job)
}

func (s *Server) handleListJobs(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	status := domain.JobStatus(c.QueryParam("status"))
	return c.JSON(http.StatusOK, s.Orchestrator.List(limit, offset, status))
}

func (s *Server) handleDeleteJob(c echo.Context) error {
	if err := s.Orchestrator.Delete(c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleCancelJob(c echo.Context) error {
	if err := s.Orchestrator.Cancel(c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusAccepted)
}

var artifactKindByQuery = map[string]domain.ArtifactKind{
	"transcript":  domain.ArtifactTranscript,
	"script":      domain.ArtifactScript,
	"translation": domain.ArtifactTranslation,
	"audio":       domain.ArtifactAudio,
	"video":       domain.ArtifactVideo,
}

func (s *Server) handleFetchArtifact(c echo.Context) error {
	kind, ok := artifactKindByQuery[c.QueryParam("kind")]
	if !ok {
		return domain.NewJobError(domain.ErrInvalidRequest, "", "unknown or missing artifact kind", nil)
	}

	opened, err := s.Orchestrator.Fetch(c.Param("id"), kind)
	if err != nil {
		return err
	}
	defer opened.Reader.Close()

	return c.Stream(http.StatusOK, contentTypeFor(kind), opened.Reader)
}

// providerSummary is the listing shape for GET /v1/tts-providers: enough
// to compare providers without pulling their full voice catalog.
type providerSummary struct {
	ID         string   `json:"id"`
	VoiceCount int      `json:"voices_count"`
	RatePer1k  float64  `json:"rate_per_1k"`
	Languages  []string `json:"languages"`
}

func (s *Server) handleListProviders(c echo.Context) error {
	providers := s.TTS.List()
	summaries := make([]providerSummary, 0, len(providers))
	for _, p := range providers {
		voices := p.ListVoices("")
		summaries = append(summaries, providerSummary{
			ID:         p.ID(),
			VoiceCount: len(voices),
			RatePer1k:  averageRate(voices),
			Languages:  languagesOf(voices),
		})
	}
	return c.JSON(http.StatusOK, summaries)
}

func averageRate(voices []domain.VoiceProfile) float64 {
	if len(voices) == 0 {
		return 0
	}
	var total float64
	for _, v := range voices {
		total += v.PricePer1k
	}
	return total / float64(len(voices))
}

func languagesOf(voices []domain.VoiceProfile) []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range voices {
		if !seen[v.Language] {
			seen[v.Language] = true
			out = append(out, v.Language)
		}
	}
	return out
}

func (s *Server) handleListVoices(c echo.Context) error {
	provider, ok := s.TTS.Get(c.Param("id"))
	if !ok {
		return domain.NewJobError(domain.ErrVoiceNotFound, "", "unknown TTS provider: "+c.Param("id"), nil)
	}
	return c.JSON(http.StatusOK, provider.ListVoices(c.QueryParam("language")))
}

// costQuote is one provider/voice's entry in the cost-comparison response.
type costQuote struct {
	Provider string  `json:"provider"`
	VoiceID  string  `json:"voice_id"`
	CostUSD  float64 `json:"cost_usd"`
}

func (s *Server) handleCostComparison(c echo.Context) error {
	text := c.QueryParam("text")
	if text == "" {
		return domain.NewJobError(domain.ErrInvalidRequest, "", "text query parameter is required", nil)
	}
	charCount := len([]rune(text))

	var quotes []costQuote
	for _, p := range s.TTS.List() {
		for _, voice := range p.ListVoices("") {
			estimate, err := p.Quote(charCount, voice.VoiceID, string(voice.Tier))
			if err != nil {
				continue
			}
			quotes = append(quotes, costQuote{Provider: p.ID(), VoiceID: voice.VoiceID, CostUSD: estimate.CostUSD})
		}
	}

	cheapest := cheapestQuote(quotes)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"quotes":      quotes,
		"recommended": cheapest,
	})
}

func cheapestQuote(quotes []costQuote) *costQuote {
	if len(quotes) == 0 {
		return nil
	}
	best := quotes[0]
	for _, q := range quotes[1:] {
		if q.CostUSD < best.CostUSD {
			best = q
		}
	}
	return &best
}

func contentTypeFor(kind domain.ArtifactKind) string {
	switch kind {
	case domain.ArtifactTranscript, domain.ArtifactScript, domain.ArtifactTranslation:
		return "text/plain; charset=utf-8"
	case domain.ArtifactAudio:
		return "audio/mpeg"
	case domain.ArtifactVideo:
		return "video/mp4"
	default:
		return "application/octet-stream"
	}
}

package orchestrator

import (
	"fmt"

	"media-dubber/internal/domain"
	"media-dubber/internal/ids"
	"media-dubber/internal/tts"
)

// validateRequest enforces submit()'s intake rules from §4.1: a video URL
// or a prior artifact reference must be present depending on job kind,
// and target-language/provider selections must be internally consistent.
// An explicit provider+voice pair is resolved here, against registry,
// so an unknown pairing fails submission with VoiceNotFound instead of
// creating a job that only fails once the synthesize stage runs.
func validateRequest(req domain.JobRequest, registry *tts.Registry) error {
	switch req.Kind {
	case domain.JobKindDub, domain.JobKindTranscribe:
		if req.URL == "" {
			return invalidRequest("url is required for kind %q", req.Kind)
		}
		if _, err := ids.NormalizeURL(req.URL); err != nil {
			return invalidRequest("%v", err)
		}
	case domain.JobKindTranslate:
		if req.Script == "" && req.Transcript == "" {
			return invalidRequest("script or transcript is required for kind %q", req.Kind)
		}
		if req.Translation.TargetLang == "" {
			return invalidRequest("translation.targetLang is required for kind %q", req.Kind)
		}
	case domain.JobKindSynthesize:
		if req.Script == "" {
			return invalidRequest("script is required for kind %q", req.Kind)
		}
		if !req.Synthesis.Enabled {
			return invalidRequest("synthesis.enabled must be true for kind %q", req.Kind)
		}
	default:
		return invalidRequest("unknown job kind %q", req.Kind)
	}

	if req.Translation.Enabled && req.Translation.TargetLang == "" {
		return invalidRequest("translation.targetLang is required when translation is enabled")
	}
	if req.Synthesis.Enabled && req.Synthesis.Provider == "" {
		return invalidRequest("synthesis.provider is required when synthesis is enabled")
	}
	if req.Synthesis.Enabled && req.Synthesis.Provider != "" && req.Synthesis.Provider != "auto" {
		if registry == nil {
			return invalidRequest("no TTS registry configured to resolve provider %q", req.Synthesis.Provider)
		}
		if _, err := registry.Resolve(tts.SelectionRequest{
			Provider: req.Synthesis.Provider,
			VoiceID:  req.Synthesis.VoiceID,
		}); err != nil {
			return err
		}
	}
	if req.Mux && req.Kind != domain.JobKindDub {
		return invalidRequest("mux is only valid for kind %q", domain.JobKindDub)
	}
	return nil
}

func invalidRequest(format string, args ...interface{}) error {
	return domain.NewJobError(domain.ErrInvalidRequest, "", fmt.Sprintf(format, args...), nil)
}

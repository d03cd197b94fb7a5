// Package tts defines the provider-agnostic text-to-speech abstraction:
// capability query, cost quote, synthesis, and the auto-selection /
// voice-equivalence policy the orchestrator drives instead of holding a
// concrete provider handle, per §4.6's provider-polymorphism note.
package tts

import (
	"context"

	"media-dubber/internal/domain"
)

// Provider is the capability surface every concrete TTS adapter offers.
type Provider interface {
	ID() string
	ListVoices(languageFilter string) []domain.VoiceProfile
	Quote(charCount int, voiceID string, quality string) (domain.CostEstimate, error)
	Synthesize(ctx context.Context, script domain.Script, voiceID, quality, outputFormat string) (domain.SynthesisResult, error)
	Supports(languageTag string) bool
}

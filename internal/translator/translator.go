// Package translator implements the translation stage: same generative
// fallback policy as posteditor, timestamp-preservation validation, and
// line merge/split rules from the translator contract.
package translator

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"media-dubber/internal/domain"
	"media-dubber/internal/genmodel"
	"media-dubber/internal/segment"
)

// contextInstructions is the canned instruction set per context tag,
// listed explicitly so any rewrite reproduces the same prompt family.
var contextInstructions = map[string]string{
	"legal":       "Use precise, formal legal register. Do not simplify defined terms.",
	"spiritual":   "Use a warm, reflective tone appropriate for spiritual or devotional content.",
	"marketing":   "Use persuasive, energetic language appropriate for marketing copy.",
	"scientific":  "Use precise technical register; preserve units and terminology exactly.",
	"educational": "Use clear, simple language appropriate for learners.",
	"news":        "Use a neutral, factual journalistic register.",
	"casual":      "Use relaxed, conversational language.",
}

// Options configures one translation run.
type Options struct {
	TargetLang string
	Context    string
	Audience   string
	Tone       string
	Quality    string
}

// Translator runs the translation stage against a shared fallback Policy.
type Translator struct {
	ClientFor func(region string) genmodel.ChatClient
	Regions   []string
	Model     string

	// Policy overrides the fallback policy, mainly for tests that need a
	// fast (non-sleeping) retry loop; nil builds the production default.
	Policy *genmodel.Policy
}

// Run translates a timed script, validating that the response's
// timestamp multiset matches the input and that its length falls within
// the tolerance window, retrying on the next fallback pair otherwise.
func (t *Translator) Run(ctx context.Context, script domain.Script, opts Options) (domain.Script, domain.ModelSelection, error) {
	rendered := segment.Render(script)
	prompt := buildSystemPrompt(opts)

	policy := t.Policy
	if policy == nil {
		policy = genmodel.NewPolicy(t.Regions, t.Model)
	}

	outcome, err := policy.Run(ctx, func(ctx context.Context, region, model string) (interface{}, error) {
		client := t.ClientFor(region)
		messages := []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt},
			{Role: openai.ChatMessageRoleUser, Content: rendered},
		}
		text, err := genmodel.CompleteChat(ctx, client, model, messages)
		if err != nil {
			return nil, err
		}
		translated, perr := segment.Parse(text)
		if perr != nil {
			return nil, domain.NewJobError(domain.ErrTransientRemote, domain.StageTranslate,
				"translator response failed to parse as a valid script", perr)
		}
		if verr := validate(script, translated, rendered, text); verr != nil {
			return nil, verr
		}
		return translated, nil
	})
	if err != nil {
		return domain.Script{}, domain.ModelSelection{}, fmt.Errorf("translate: %w", err)
	}

	translated, _ := outcome.Result.(domain.Script)
	translated.Header = script.Header
	translated.Header.TranslatorModel = fmt.Sprintf("%s/%s", outcome.Region, outcome.Model)

	return translated, domain.ModelSelection{Region: outcome.Region, Model: outcome.Model}, nil
}

func buildSystemPrompt(opts Options) string {
	instruction, ok := contextInstructions[opts.Context]
	if !ok {
		instruction = "Use a natural, neutral register."
	}
	prompt := fmt.Sprintf(
		"Translate the following timed transcript into %s. %s "+
			"Preserve the [H:MM:SS] timestamp format. Every timestamp in the input must appear "+
			"exactly once in the output. Pause markers %s and %s must be passed through untranslated.",
		opts.TargetLang, instruction, string(domain.PauseShort), string(domain.PauseLong))
	if opts.Audience != "" {
		prompt += fmt.Sprintf(" Target audience: %s.", opts.Audience)
	}
	if opts.Tone != "" {
		prompt += fmt.Sprintf(" Desired tone: %s.", opts.Tone)
	}
	return prompt
}

// validate enforces the timestamp-preservation and length-tolerance
// rules from the translator contract, causing the fallback Policy to
// treat a bad response as transient and continue to the next candidate.
func validate(source, translated domain.Script, sourceText, translatedText string) error {
	if !sameTimestampMultiset(source, translated) {
		return domain.NewJobError(domain.ErrTransientRemote, domain.StageTranslate,
			"translator output timestamps do not match a multiset of the source", nil)
	}
	if !nonDecreasing(translated) {
		return domain.NewJobError(domain.ErrTransientRemote, domain.StageTranslate,
			"translator output timestamps are not in non-decreasing order", nil)
	}

	ratio := float64(len(translatedText)) / float64(maxInt(len(sourceText), 1))
	if ratio < 0.5 || ratio > 2.0 {
		return domain.NewJobError(domain.ErrTransientRemote, domain.StageTranslate,
			"translator output length outside [0.5x, 2.0x] of source", nil)
	}
	return nil
}

func sameTimestampMultiset(a, b domain.Script) bool {
	counts := make(map[float64]int, len(a.Segments))
	for _, seg := range a.Segments {
		counts[seg.StartSec]++
	}
	for _, seg := range b.Segments {
		counts[seg.StartSec]--
	}
	for _, c := range counts {
		if c != 0 {
			return false
		}
	}
	return true
}

func nonDecreasing(s domain.Script) bool {
	for i := 1; i < len(s.Segments); i++ {
		if s.Segments[i].StartSec < s.Segments[i-1].StartSec {
			return false
		}
	}
	return true
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

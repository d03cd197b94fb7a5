// Package posteditor implements the generative-model script cleanup
// stage: same timed script back, punctuation and capitalization
// cleaned, timestamps and segment order untouched, delegating to the
// Chunker when the script exceeds one call's budget.
package posteditor

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"media-dubber/internal/chunker"
	"media-dubber/internal/domain"
	"media-dubber/internal/genmodel"
	"media-dubber/internal/segment"
)

const singleCallBudgetChars = 4000

const systemPrompt = "You clean up punctuation, capitalization, and line breaks in a timed transcript. " +
	"Preserve every timestamp exactly as given and never reorder or drop segments. " +
	"Respond with the corrected transcript in the same [H:MM:SS] line format."

// Editor runs the post-edit stage against a shared fallback Policy.
type Editor struct {
	ClientFor func(region string) genmodel.ChatClient
	Regions   []string
	Model     string

	// Policy overrides the fallback policy, mainly for tests that need a
	// fast (non-sleeping) retry loop; nil builds the production default.
	Policy *genmodel.Policy
}

// Run cleans up a script's text via the generative model, chunking the
// rendered transcript when it exceeds the single-call budget and merging
// the edited chunks back together.
func (e *Editor) Run(ctx context.Context, script domain.Script) (domain.Script, domain.ModelSelection, error) {
	rendered := segment.Render(script)

	chunks, err := chunker.Split(rendered, singleCallBudgetChars, 200, 50)
	if err != nil {
		return domain.Script{}, domain.ModelSelection{}, err
	}
	if len(chunks) == 0 {
		return script, domain.ModelSelection{}, nil
	}

	policy := e.Policy
	if policy == nil {
		policy = genmodel.NewPolicy(e.Regions, e.Model)
	}

	edited := make([]string, len(chunks))
	var winner domain.ModelSelection

	for i, chunk := range chunks {
		outcome, err := policy.Run(ctx, func(ctx context.Context, region, model string) (interface{}, error) {
			client := e.ClientFor(region)
			messages := []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: chunk},
			}
			return genmodel.CompleteChat(ctx, client, model, messages)
		})
		if err != nil {
			return domain.Script{}, domain.ModelSelection{}, fmt.Errorf("post-edit chunk %d: %w", i, err)
		}
		edited[i], _ = outcome.Result.(string)
		winner = domain.ModelSelection{Region: outcome.Region, Model: outcome.Model}
	}

	merged := chunker.Merge(edited, 200)
	cleaned, err := segment.Parse(merged)
	if err != nil {
		return domain.Script{}, domain.ModelSelection{}, domain.NewJobError(domain.ErrTransientRemote, domain.StagePostEdit,
			"post-editor response failed to re-parse as a valid script", err)
	}

	if err := validateTimestampsPreserved(script, cleaned); err != nil {
		return domain.Script{}, domain.ModelSelection{}, err
	}

	cleaned.Header = script.Header
	cleaned.Header.PostEditorModel = fmt.Sprintf("%s/%s", winner.Region, winner.Model)
	return cleaned, winner, nil
}

// validateTimestampsPreserved enforces "preserving every timestamp and
// never reordering segments" from the post-editor contract.
func validateTimestampsPreserved(before, after domain.Script) error {
	if len(before.Segments) != len(after.Segments) {
		return domain.NewJobError(domain.ErrTransientRemote, domain.StagePostEdit,
			"post-editor changed the segment count", nil)
	}
	for i := range before.Segments {
		if before.Segments[i].StartSec != after.Segments[i].StartSec {
			return domain.NewJobError(domain.ErrTransientRemote, domain.StagePostEdit,
				fmt.Sprintf("post-editor altered timestamp at segment %d", i), nil)
		}
	}
	return nil
}

package tts

import (
	"context"
	"os"
	"sync"

	"media-dubber/internal/domain"
)

// ChunkedSynthesize splits a script's segments on boundaries when the
// character count exceeds the provider's per-call cap, synthesizes each
// chunk concurrently up to maxWorkers, and concatenates the results in
// order. Per §4.7 the provider is responsible for choosing a container
// that concatenates cleanly; ConcatFunc lets each adapter supply either
// naive byte concatenation or a decode/re-encode step at the boundary.
type ConcatFunc func(paths []string, outputPath string) error

func ChunkedSynthesize(
	ctx context.Context,
	segments []domain.TimedSegment,
	capChars, maxWorkers int,
	synthOne func(ctx context.Context, chunk []domain.TimedSegment, index int) (domain.SynthesisResult, error),
	concat ConcatFunc,
	outputPath string,
) (domain.SynthesisResult, error) {
	groups := SplitOnSegmentBoundaries(segments, capChars)

	if len(groups) == 1 {
		return synthOne(ctx, groups[0], 0)
	}

	if maxWorkers <= 0 {
		maxWorkers = 4
	}

	results := make([]domain.SynthesisResult, len(groups))
	errs := make([]error, len(groups))

	sem := make(chan struct{}, maxWorkers)
	var wg sync.WaitGroup

	for i, group := range groups {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, group []domain.TimedSegment) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i], errs[i] = synthOne(ctx, group, i)
		}(i, group)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return domain.SynthesisResult{}, err
		}
	}

	paths := make([]string, len(results))
	var totalDuration float64
	var totalBytes int64
	var totalChars int
	var totalCost float64
	for i, r := range results {
		paths[i] = r.AudioPath
		totalDuration += r.Duration
		totalBytes += r.Bytes
		totalChars += r.Characters
		totalCost += r.CostUSD
	}

	if err := concat(paths, outputPath); err != nil {
		return domain.SynthesisResult{}, domain.NewJobError(domain.ErrInternal, domain.StageSynthesize,
			"failed to stitch chunked synthesis output", err)
	}

	for _, p := range paths {
		if p != outputPath {
			_ = os.Remove(p)
		}
	}

	first := results[0]
	return domain.SynthesisResult{
		AudioPath:  outputPath,
		Duration:   totalDuration,
		Bytes:      totalBytes,
		Characters: totalChars,
		CostUSD:    totalCost,
		Provider:   first.Provider,
		VoiceID:    first.VoiceID,
	}, nil
}

// Package segment turns recognizer word hits into a timestamped,
// pause-annotated Script, grounded on the pause-gap table and line
// policy the specification's timed segmenter describes and on the
// teacher's whisper.cpp output-parsing style of walking a flat hit list
// into structured lines.
package segment

import (
	"strings"

	"media-dubber/internal/domain"
)

const (
	gapShortMin      = 0.6
	gapLongMin       = 1.5
	gapParagraphMin  = 3.0
	sentenceGapMin   = 1.0
	defaultSoftLimit = 100
)

// Options configures the line-break soft limit; a zero value uses the
// documented default of 100 characters.
type Options struct {
	SoftLineLimit int
}

// Segmenter builds a Script and Stats from an ordered sequence of
// recognizer hits.
type Segmenter struct {
	softLimit int
}

// New builds a Segmenter with the given options.
func New(opts Options) *Segmenter {
	limit := opts.SoftLineLimit
	if limit <= 0 {
		limit = defaultSoftLimit
	}
	return &Segmenter{softLimit: limit}
}

// Build converts recognizer hits into a Script plus aggregate Stats. An
// empty hit list produces an empty Script, matching the zero-segments
// boundary case that lets downstream stages no-op.
func (s *Segmenter) Build(hits []domain.RecognizerHit) (domain.Script, domain.Stats) {
	if len(hits) == 0 {
		return domain.Script{}, domain.Stats{}
	}

	var segments []domain.TimedSegment
	var stats domain.Stats

	var lineWords []string
	lineStart := hits[0].StartSec
	lineEnd := hits[0].EndSec
	var confidenceSum float64
	var pauseSeconds float64
	totalSpan := hits[len(hits)-1].EndSec - hits[0].StartSec

	flush := func(pause domain.PauseMarker) {
		if len(lineWords) == 0 {
			return
		}
		segments = append(segments, domain.TimedSegment{
			StartSec: lineStart,
			EndSec:   lineEnd,
			Text:     strings.Join(lineWords, " "),
			Pause:    pause,
		})
		lineWords = nil
	}

	for i, hit := range hits {
		lineWords = append(lineWords, hit.Word)
		lineEnd = hit.EndSec
		confidenceSum += hit.Confidence
		stats.TotalWords++

		if i == len(hits)-1 {
			flush(domain.PauseNone)
			break
		}

		next := hits[i+1]
		gap := next.StartSec - hit.EndSec
		if gap < 0 {
			gap = 0
		}
		pauseSeconds += gap

		endsWithTerminalPunctuation := endsSentence(hit.Word)

		switch {
		case gap >= gapParagraphMin:
			stats.ParagraphBreaks++
			flush(domain.PauseParagraph)
			lineStart = next.StartSec
			lineEnd = next.StartSec
		case gap >= sentenceGapMin && endsWithTerminalPunctuation:
			flush(domain.PauseNone)
			lineStart = next.StartSec
			lineEnd = next.StartSec
		case gap >= gapLongMin:
			stats.LongPauses++
			lineWords = append(lineWords, string(domain.PauseLong))
		case gap >= gapShortMin:
			stats.ShortPauses++
			lineWords = append(lineWords, string(domain.PauseShort))
		}

		if currentLineLength(lineWords) > s.softLimit {
			flush(domain.PauseNone)
			lineStart = next.StartSec
			lineEnd = next.StartSec
		}
	}

	stats.MeanConfidence = confidenceSum / float64(stats.TotalWords)
	if totalSpan > 0 {
		stats.WordsPerMinute = float64(stats.TotalWords) / (totalSpan / 60.0)
		stats.PauseTimeFraction = pauseSeconds / totalSpan
	}

	return domain.Script{Segments: segments}, stats
}

func currentLineLength(words []string) int {
	total := 0
	for _, w := range words {
		total += len(w) + 1
	}
	return total
}

func endsSentence(word string) bool {
	trimmed := strings.TrimRight(word, `"')]`)
	if trimmed == "" {
		return false
	}
	last := trimmed[len(trimmed)-1]
	return last == '.' || last == '!' || last == '?' || strings.HasSuffix(trimmed, "…")
}

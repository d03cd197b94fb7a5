package tts

import (
	"fmt"
	"strings"

	"media-dubber/internal/domain"
)

// BuildSSML emits one speech-markup fragment per TimedSegment: prosody
// derived from the voice's defaults, an explicit break sized to the gap
// before the next segment (clamped to maxBreakMs), and inline pause
// markers stripped from the spoken text per §4.7.
func BuildSSML(segments []domain.TimedSegment, rate, pitch string, maxBreakMs int) string {
	var b strings.Builder
	b.WriteString("<speak>")

	for i, seg := range segments {
		text := stripPauseGlyphs(seg.Text)
		b.WriteString(fmt.Sprintf(`<prosody rate="%s" pitch="%s">%s</prosody>`, rate, pitch, escapeSSML(text)))

		if i < len(segments)-1 {
			gapMs := int((segments[i+1].StartSec - seg.EndSec) * 1000)
			if gapMs < 0 {
				gapMs = 0
			}
			if gapMs > maxBreakMs {
				gapMs = maxBreakMs
			}
			b.WriteString(fmt.Sprintf(`<break time="%dms"/>`, gapMs))
		}
	}

	b.WriteString("</speak>")
	return b.String()
}

func stripPauseGlyphs(text string) string {
	text = strings.ReplaceAll(text, string(domain.PauseLong), "")
	text = strings.ReplaceAll(text, string(domain.PauseShort), "")
	return strings.TrimSpace(text)
}

func escapeSSML(text string) string {
	replacer := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return replacer.Replace(text)
}

// SplitOnSegmentBoundaries partitions segments into groups whose spoken
// text length never exceeds capChars, splitting only between segments
// (never mid-line), for the provider's chunked parallel synthesis path.
func SplitOnSegmentBoundaries(segments []domain.TimedSegment, capChars int) [][]domain.TimedSegment {
	if capChars <= 0 || len(segments) == 0 {
		return [][]domain.TimedSegment{segments}
	}

	var groups [][]domain.TimedSegment
	var current []domain.TimedSegment
	length := 0

	for _, seg := range segments {
		segLen := len(seg.Text)
		if length > 0 && length+segLen > capChars {
			groups = append(groups, current)
			current = nil
			length = 0
		}
		current = append(current, seg)
		length += segLen
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

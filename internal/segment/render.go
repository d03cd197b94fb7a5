package segment

import (
	"bufio"
	"fmt"
	"math"
	"strings"

	"media-dubber/internal/domain"
)

// Render produces the UTF-8 transcript file format from §6: a header
// block of "key: value" lines, a blank line, then body lines of the
// form "[H:MM:SS] words... [pause marker]", with paragraph breaks
// rendered as a blank line between segments.
func Render(script domain.Script) string {
	var b strings.Builder

	writeHeaderLine(&b, "title", script.Header.Title)
	writeHeaderLine(&b, "processed_at", script.Header.ProcessedAt)
	writeHeaderLine(&b, "post_editor_model", script.Header.PostEditorModel)
	writeHeaderLine(&b, "translator_model", script.Header.TranslatorModel)
	b.WriteString("\n")

	for i, seg := range script.Segments {
		b.WriteString(fmt.Sprintf("[%s] %s", formatTimestamp(seg.StartSec), seg.Text))
		b.WriteString("\n")
		if seg.Pause == domain.PauseParagraph && i != len(script.Segments)-1 {
			b.WriteString("\n")
		}
	}

	return b.String()
}

func writeHeaderLine(b *strings.Builder, key, value string) {
	if value == "" {
		return
	}
	b.WriteString(key)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteString("\n")
}

// formatTimestamp renders whole seconds as H:MM:SS, truncating any
// fractional part per §4.3's "truncated to whole seconds" rule.
func formatTimestamp(seconds float64) string {
	total := int64(math.Floor(seconds))
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}

// Parse reads the transcript file format back into a Script. It is the
// left inverse of Render up to canonical whitespace, satisfying the
// parse(render(s)) == s round-trip property. A line starting with "["
// also ends the header block, so a body without a header parses too.
func Parse(text string) (domain.Script, error) {
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var header domain.ScriptHeader
	inHeader := true
	var segments []domain.TimedSegment
	pendingParagraph := false

	for scanner.Scan() {
		line := scanner.Text()

		if inHeader && strings.HasPrefix(strings.TrimSpace(line), "[") {
			inHeader = false
		}
		if inHeader {
			if strings.TrimSpace(line) == "" {
				inHeader = false
				continue
			}
			key, value, ok := strings.Cut(line, ":")
			if !ok {
				continue
			}
			value = strings.TrimSpace(value)
			switch strings.TrimSpace(key) {
			case "title":
				header.Title = value
			case "processed_at":
				header.ProcessedAt = value
			case "post_editor_model":
				header.PostEditorModel = value
			case "translator_model":
				header.TranslatorModel = value
			}
			continue
		}

		if strings.TrimSpace(line) == "" {
			pendingParagraph = true
			continue
		}

		seg, err := parseLine(line)
		if err != nil {
			return domain.Script{}, err
		}
		if pendingParagraph && len(segments) > 0 {
			segments[len(segments)-1].Pause = domain.PauseParagraph
		}
		pendingParagraph = false
		segments = append(segments, seg)
	}
	if err := scanner.Err(); err != nil {
		return domain.Script{}, err
	}

	return domain.Script{Header: header, Segments: segments}, nil
}

func parseLine(line string) (domain.TimedSegment, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "[") {
		return domain.TimedSegment{}, fmt.Errorf("segment line missing timestamp: %q", line)
	}
	end := strings.Index(line, "]")
	if end < 0 {
		return domain.TimedSegment{}, fmt.Errorf("segment line missing closing bracket: %q", line)
	}
	ts := line[1:end]
	rest := strings.TrimSpace(line[end+1:])

	seconds, err := parseTimestamp(ts)
	if err != nil {
		return domain.TimedSegment{}, err
	}

	// Inline •/•• markers stay in Text; Pause only ever carries the
	// paragraph break derived from a blank line, set by the caller.
	return domain.TimedSegment{StartSec: seconds, EndSec: seconds, Text: rest, Pause: domain.PauseNone}, nil
}

func parseTimestamp(ts string) (float64, error) {
	var h, m, s int
	if _, err := fmt.Sscanf(ts, "%d:%d:%d", &h, &m, &s); err != nil {
		return 0, fmt.Errorf("invalid timestamp %q: %w", ts, err)
	}
	return float64(h*3600 + m*60 + s), nil
}

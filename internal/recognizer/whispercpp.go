package recognizer

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"media-dubber/internal/domain"
	"media-dubber/internal/procexec"
)

// WhisperCPP is the synchronous local Recognizer, spawning whisper.cpp
// exactly the way the teacher's Pipeline.Run drove it for transcription,
// but parsing its word-timestamp CSV output into RecognizerHit values
// instead of a flat transcript string.
type WhisperCPP struct {
	BinaryPath string
	ModelPath  string
	Runner     procexec.Runner
	ReadFile   func(string) ([]byte, error)
}

// NewWhisperCPP builds the adapter with OS dependencies wired in.
func NewWhisperCPP(binaryPath, modelPath string) *WhisperCPP {
	return &WhisperCPP{
		BinaryPath: binaryPath,
		ModelPath:  modelPath,
		Runner:     &procexec.OSRunner{},
		ReadFile:   os.ReadFile,
	}
}

// Transcribe runs whisper.cpp with word-level CSV output enabled and
// parses the result into recognizer hits ordered by start time.
func (w *WhisperCPP) Transcribe(ctx context.Context, audioPath, languageTag string, breathDetection bool, onProgress func(int)) ([]domain.RecognizerHit, error) {
	csvBase := strings.TrimSuffix(audioPath, ".wav")
	args := buildWhisperArgs(w.ModelPath, audioPath, csvBase, languageTag)

	result, err := w.Runner.Run(ctx, w.BinaryPath, args...)
	if err != nil {
		kind := domain.ErrTransientRemote
		if result.ExitCode == 2 {
			kind = domain.ErrAudioFormatReject
		}
		return nil, domain.NewJobError(kind, domain.StageRecognize, "whisper.cpp transcription failed", err)
	}
	if onProgress != nil {
		onProgress(90)
	}

	csvPath := csvBase + ".csv"
	data, err := w.ReadFile(csvPath)
	if err != nil {
		return nil, domain.NewJobError(domain.ErrInternal, domain.StageRecognize, "whisper.cpp completed but word CSV is missing", err)
	}

	hits, err := parseWordCSV(data)
	if err != nil {
		return nil, domain.NewJobError(domain.ErrInternal, domain.StageRecognize, "cannot parse whisper.cpp word CSV", err)
	}
	if onProgress != nil {
		onProgress(100)
	}
	return hits, nil
}

// buildWhisperArgs constructs the whisper.cpp CLI invocation, extending
// the teacher's buildWhisperArgs with the word-level CSV output flag the
// segmenter needs.
func buildWhisperArgs(modelPath, audioPath, outputBase, language string) []string {
	args := []string{
		"-m", modelPath,
		"-f", audioPath,
		"-of", outputBase,
		"-ocsv",
		"-ml", "1",
	}
	if language != "" {
		args = append(args, "-l", language)
	}
	return args
}

// parseWordCSV reads whisper.cpp's "start,end,text" CSV (milliseconds)
// into RecognizerHit values with seconds and a default confidence, since
// whisper.cpp's CSV export carries no confidence column.
func parseWordCSV(data []byte) ([]domain.RecognizerHit, error) {
	var hits []domain.RecognizerHit
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	first := true
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if first {
			first = false
			if strings.HasPrefix(strings.ToLower(line), "start") {
				continue
			}
		}
		fields := splitCSVLine(line)
		if len(fields) < 3 {
			continue
		}
		startMs, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid start field %q: %w", fields[0], err)
		}
		endMs, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid end field %q: %w", fields[1], err)
		}
		text := strings.Trim(strings.Join(fields[2:], ","), `"`)
		hits = append(hits, domain.RecognizerHit{
			Word:       strings.TrimSpace(text),
			StartSec:   startMs / 1000.0,
			EndSec:     endMs / 1000.0,
			Confidence: 1.0,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return hits, nil
}

func splitCSVLine(line string) []string {
	var fields []string
	var current strings.Builder
	inQuotes := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			inQuotes = !inQuotes
		case c == ',' && !inQuotes:
			fields = append(fields, current.String())
			current.Reset()
		default:
			current.WriteByte(c)
		}
	}
	fields = append(fields, current.String())
	return fields
}

// Package mux invokes ffmpeg to combine a source video's picture track
// with a synthesized dub track, following the same "wrap exec.CommandContext,
// wrap non-zero exit in a domain error" shape as forPelevin-hlcut's ffmpeg
// adapter, but through procexec.Runner so the mux stage shares the one
// spawn-with-deadline helper the recognizer and download stages use.
package mux

import (
	"context"
	"fmt"

	"media-dubber/internal/domain"
	"media-dubber/internal/procexec"
)

// Muxer combines video and audio into a single dubbed output container.
type Muxer struct {
	FFmpegPath string
	Runner     procexec.Runner
	ProbeDuration func(path string) (float64, error)
}

// New builds a Muxer with sane defaults for the ffmpeg binary name.
func New(runner procexec.Runner, probeDuration func(string) (float64, error)) *Muxer {
	return &Muxer{FFmpegPath: "ffmpeg", Runner: runner, ProbeDuration: probeDuration}
}

// Mux copies the source video's stream verbatim, encodes the dubbed audio
// track, and truncates the output to the shorter of the two streams per
// §4.8's "never pad video, never freeze-frame" rule.
func (m *Muxer) Mux(ctx context.Context, videoPath, dubbedAudioPath, outputPath string) error {
	videoDur, err := m.ProbeDuration(videoPath)
	if err != nil {
		return domain.NewJobError(domain.ErrMuxerFailed, domain.StageMux, "failed to probe source video duration", err)
	}
	audioDur, err := m.ProbeDuration(dubbedAudioPath)
	if err != nil {
		return domain.NewJobError(domain.ErrMuxerFailed, domain.StageMux, "failed to probe dubbed audio duration", err)
	}

	shortest := videoDur
	if audioDur < shortest {
		shortest = audioDur
	}

	args := []string{
		"-y",
		"-i", videoPath,
		"-i", dubbedAudioPath,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "192k",
		"-t", fmt.Sprintf("%.3f", shortest),
		outputPath,
	}

	res, err := m.Runner.Run(ctx, m.FFmpegPath, args...)
	if err != nil {
		detail := procexec.LastStderrLine(res.Stderr)
		return &domain.JobError{
			Kind:         domain.ErrMuxerFailed,
			Stage:        domain.StageMux,
			Message:      "ffmpeg mux failed",
			RemoteDetail: detail,
			Err:          err,
		}
	}
	return nil
}

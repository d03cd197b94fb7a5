// Package download implements the pipeline's first two stages: fetching a
// remote source video and decoding it to the recognizer's required audio
// format. Both external tools (the downloader binary, ffmpeg) are outside
// this package's contract per spec.md §1's non-goals — download shells
// out to whichever binary config.Settings names, the same way the
// teacher's transcribe.Pipeline shells out to ffmpeg through a
// procexec.Runner rather than hardcoding one vendor.
package download

import (
	"context"

	"media-dubber/internal/domain"
	"media-dubber/internal/procexec"
)

// Fetcher downloads a source video to a local path and decodes it to the
// recognizer's required mono/16kHz WAV format.
type Fetcher struct {
	DownloaderPath  string
	FFmpegPath      string
	Runner          procexec.Runner
	ReadWAVDuration func(path string) (float64, error)
}

// New builds a Fetcher with real subprocess and file dependencies.
func New(runner procexec.Runner, downloaderPath, ffmpegPath string) *Fetcher {
	return &Fetcher{
		DownloaderPath:  downloaderPath,
		FFmpegPath:      ffmpegPath,
		Runner:          runner,
		ReadWAVDuration: readWAVDuration,
	}
}

// Download fetches sourceURL to outputPath via the configured downloader
// binary, wrapping non-retryable failures as SourceUnavailable per §7.
func (f *Fetcher) Download(ctx context.Context, sourceURL, outputPath string) error {
	res, err := f.Runner.Run(ctx, f.DownloaderPath, "-o", outputPath, sourceURL)
	if err != nil {
		return &domain.JobError{
			Kind:         domain.ErrSourceUnavailable,
			Stage:        domain.StageDownload,
			Message:      "failed to download source video",
			RemoteDetail: procexec.LastStderrLine(res.Stderr),
			Err:          err,
		}
	}
	return nil
}

// Decode transcodes a video to mono 16kHz WAV, the format every recognizer
// adapter in this pack expects, mirroring forPelevin-hlcut's
// ExtractAudioMono16k argument set.
func (f *Fetcher) Decode(ctx context.Context, inputPath, outputPath string) error {
	args := []string{
		"-y",
		"-i", inputPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-f", "wav",
		outputPath,
	}
	res, err := f.Runner.Run(ctx, f.FFmpegPath, args...)
	if err != nil {
		return &domain.JobError{
			Kind:         domain.ErrAudioFormatReject,
			Stage:        domain.StageDecode,
			Message:      "failed to decode source audio",
			RemoteDetail: procexec.LastStderrLine(res.Stderr),
			Err:          err,
		}
	}
	return nil
}

// ProbeDuration reads a decoded WAV file's exact duration from its frame
// count and sample rate rather than shelling out to ffprobe a second
// time, per §4.4's supplemental note.
func (f *Fetcher) ProbeDuration(path string) (float64, error) {
	return f.ReadWAVDuration(path)
}

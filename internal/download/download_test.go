package download

import (
	"context"
	"errors"
	"testing"

	"media-dubber/internal/domain"
	"media-dubber/internal/procexec"
)

type fakeRunner struct {
	result  procexec.Result
	err     error
	gotName string
	gotArgs []string
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (procexec.Result, error) {
	f.gotName = name
	f.gotArgs = args
	return f.result, f.err
}

func TestDownloadSuccess(t *testing.T) {
	runner := &fakeRunner{}
	f := New(runner, "yt-dlp", "ffmpeg")

	if err := f.Download(context.Background(), "https://example.com/video", "/tmp/in.mp4"); err != nil {
		t.Fatalf("Download: %v", err)
	}
	if runner.gotName != "yt-dlp" {
		t.Fatalf("expected downloader binary invoked, got %s", runner.gotName)
	}
}

func TestDownloadFailureWrapsSourceUnavailable(t *testing.T) {
	runner := &fakeRunner{result: procexec.Result{Stderr: "404 not found\n"}, err: errors.New("exit 1")}
	f := New(runner, "yt-dlp", "ffmpeg")

	err := f.Download(context.Background(), "https://example.com/missing", "/tmp/in.mp4")
	var jobErr *domain.JobError
	if !errors.As(err, &jobErr) || jobErr.Kind != domain.ErrSourceUnavailable {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
	if jobErr.RemoteDetail != "404 not found" {
		t.Fatalf("expected stderr detail captured, got %q", jobErr.RemoteDetail)
	}
}

func TestDecodeBuildsMono16kArgs(t *testing.T) {
	runner := &fakeRunner{}
	f := New(runner, "yt-dlp", "ffmpeg")

	if err := f.Decode(context.Background(), "/tmp/in.mp4", "/tmp/out.wav"); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !hasAdjacent(runner.gotArgs, "-ac", "1") || !hasAdjacent(runner.gotArgs, "-ar", "16000") {
		t.Fatalf("expected mono/16kHz args, got %v", runner.gotArgs)
	}
}

func TestDecodeFailureWrapsAudioFormatReject(t *testing.T) {
	runner := &fakeRunner{result: procexec.Result{Stderr: "Invalid data found\n"}, err: errors.New("exit 1")}
	f := New(runner, "yt-dlp", "ffmpeg")

	err := f.Decode(context.Background(), "/tmp/in.mp4", "/tmp/out.wav")
	var jobErr *domain.JobError
	if !errors.As(err, &jobErr) || jobErr.Kind != domain.ErrAudioFormatReject {
		t.Fatalf("expected ErrAudioFormatReject, got %v", err)
	}
}

func TestProbeDurationDelegatesToInjectedReader(t *testing.T) {
	f := New(&fakeRunner{}, "yt-dlp", "ffmpeg")
	f.ReadWAVDuration = func(path string) (float64, error) {
		if path != "/tmp/out.wav" {
			t.Fatalf("unexpected path %s", path)
		}
		return 12.5, nil
	}
	dur, err := f.ProbeDuration("/tmp/out.wav")
	if err != nil {
		t.Fatalf("ProbeDuration: %v", err)
	}
	if dur != 12.5 {
		t.Fatalf("expected 12.5s, got %f", dur)
	}
}

func hasAdjacent(args []string, a, b string) bool {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == a && args[i+1] == b {
			return true
		}
	}
	return false
}

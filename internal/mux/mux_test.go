package mux

import (
	"context"
	"errors"
	"testing"

	"media-dubber/internal/domain"
	"media-dubber/internal/procexec"
)

type fakeRunner struct {
	result procexec.Result
	err    error
	gotArgs []string
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (procexec.Result, error) {
	f.gotArgs = args
	return f.result, f.err
}

func TestMuxTruncatesToShorterStream(t *testing.T) {
	runner := &fakeRunner{}
	probes := map[string]float64{"video.mp4": 12.0, "dub.wav": 9.5}
	m := New(runner, func(path string) (float64, error) { return probes[path], nil })

	if err := m.Mux(context.Background(), "video.mp4", "dub.wav", "out.mp4"); err != nil {
		t.Fatalf("Mux: %v", err)
	}
	found := false
	for i, a := range runner.gotArgs {
		if a == "-t" && i+1 < len(runner.gotArgs) && runner.gotArgs[i+1] == "9.500" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected -t 9.500 (shorter stream), got args %v", runner.gotArgs)
	}
}

func TestMuxCopiesVideoStreamAndEncodesAudio(t *testing.T) {
	runner := &fakeRunner{}
	m := New(runner, func(string) (float64, error) { return 5, nil })
	_ = m.Mux(context.Background(), "video.mp4", "dub.wav", "out.mp4")

	wantPairs := [][2]string{{"-c:v", "copy"}, {"-c:a", "aac"}}
	for _, pair := range wantPairs {
		if !hasAdjacent(runner.gotArgs, pair[0], pair[1]) {
			t.Fatalf("expected args to contain %v adjacent, got %v", pair, runner.gotArgs)
		}
	}
}

func TestMuxWrapsRunnerFailureWithStderrDetail(t *testing.T) {
	runner := &fakeRunner{result: procexec.Result{Stderr: "frame=1\nInvalid argument\n"}, err: errors.New("exit status 1")}
	m := New(runner, func(string) (float64, error) { return 5, nil })

	err := m.Mux(context.Background(), "video.mp4", "dub.wav", "out.mp4")
	var jobErr *domain.JobError
	if !errors.As(err, &jobErr) {
		t.Fatalf("expected JobError, got %v", err)
	}
	if jobErr.Kind != domain.ErrMuxerFailed {
		t.Fatalf("expected ErrMuxerFailed, got %v", jobErr.Kind)
	}
	if jobErr.RemoteDetail != "Invalid argument" {
		t.Fatalf("expected last stderr line captured, got %q", jobErr.RemoteDetail)
	}
}

func TestMuxProbeFailurePropagates(t *testing.T) {
	runner := &fakeRunner{}
	m := New(runner, func(string) (float64, error) { return 0, errors.New("no such file") })

	err := m.Mux(context.Background(), "missing.mp4", "dub.wav", "out.mp4")
	var jobErr *domain.JobError
	if !errors.As(err, &jobErr) || jobErr.Kind != domain.ErrMuxerFailed {
		t.Fatalf("expected ErrMuxerFailed, got %v", err)
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

package tts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func writeTestWAV(t *testing.T, path string, sampleRate, numChans, bitDepth int, samples []int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	format := &audio.Format{NumChannels: numChans, SampleRate: sampleRate}
	enc := wav.NewEncoder(f, sampleRate, bitDepth, numChans, 1)
	if err := enc.Write(&audio.IntBuffer{Format: format, Data: samples, SourceBitDepth: bitDepth}); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder for %s: %v", path, err)
	}
}

func TestProbeWAVDurationMeasuresExactLength(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "one.wav")
	// 8000Hz mono, one second of silence.
	writeTestWAV(t, path, 8000, 1, 16, make([]int, 8000))

	got, err := ProbeWAVDuration(path)
	if err != nil {
		t.Fatalf("ProbeWAVDuration: %v", err)
	}
	if got < 0.99 || got > 1.01 {
		t.Fatalf("expected ~1s duration, got %f", got)
	}
}

func TestProbeWAVDurationRejectsNonWAV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "not-audio.wav")
	if err := os.WriteFile(path, []byte("not a wav file"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if _, err := ProbeWAVDuration(path); err == nil {
		t.Fatal("expected error for non-wav content")
	}
}

func TestConcatWAVStitchesChunksInOrder(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.wav")
	second := filepath.Join(dir, "b.wav")
	writeTestWAV(t, first, 8000, 1, 16, make([]int, 4000))
	writeTestWAV(t, second, 8000, 1, 16, make([]int, 4000))

	out := filepath.Join(dir, "out.wav")
	if err := ConcatWAV([]string{first, second}, out); err != nil {
		t.Fatalf("ConcatWAV: %v", err)
	}

	got, err := ProbeWAVDuration(out)
	if err != nil {
		t.Fatalf("ProbeWAVDuration: %v", err)
	}
	if got < 0.99 || got > 1.01 {
		t.Fatalf("expected concatenated duration of ~1s, got %f", got)
	}
}

func TestConcatWAVRejectsEmptyInput(t *testing.T) {
	if err := ConcatWAV(nil, filepath.Join(t.TempDir(), "out.wav")); err == nil {
		t.Fatal("expected error for no chunks")
	}
}

func TestPadWAVSilenceExtendsDuration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "short.wav")
	writeTestWAV(t, path, 8000, 1, 16, make([]int, 4000)) // 0.5s

	if err := PadWAVSilence(path, 0.5); err != nil {
		t.Fatalf("PadWAVSilence: %v", err)
	}

	got, err := ProbeWAVDuration(path)
	if err != nil {
		t.Fatalf("ProbeWAVDuration: %v", err)
	}
	if got < 0.99 || got > 1.01 {
		t.Fatalf("expected padded duration of ~1s, got %f", got)
	}
}

func TestPadWAVSilenceNoopWhenNoPaddingNeeded(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "exact.wav")
	writeTestWAV(t, path, 8000, 1, 16, make([]int, 8000))

	if err := PadWAVSilence(path, 0); err != nil {
		t.Fatalf("PadWAVSilence: %v", err)
	}

	got, err := ProbeWAVDuration(path)
	if err != nil {
		t.Fatalf("ProbeWAVDuration: %v", err)
	}
	if got < 0.99 || got > 1.01 {
		t.Fatalf("expected unchanged ~1s duration, got %f", got)
	}
}

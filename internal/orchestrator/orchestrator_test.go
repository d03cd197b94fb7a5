package orchestrator_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"media-dubber/internal/artifact"
	"media-dubber/internal/config"
	"media-dubber/internal/domain"
	"media-dubber/internal/genmodel"
	"media-dubber/internal/jobs"
	"media-dubber/internal/orchestrator"
	"media-dubber/internal/translator"
	"media-dubber/internal/tts"
)

// fakeChatClient echoes the last user message back verbatim, so a
// translator run round-trips a rendered script without needing a real
// generative-model backend.
type fakeChatClient struct {
	err error
}

func (f *fakeChatClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	last := req.Messages[len(req.Messages)-1].Content
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: last}}},
	}, nil
}

func fastPolicy(regions []string, model string) *genmodel.Policy {
	p := genmodel.NewPolicy(regions, model)
	p.BaseDelay = time.Millisecond
	p.MaxDelay = time.Millisecond
	p.Sleep = func(context.Context, time.Duration) error { return nil }
	p.RandFloat = func() float64 { return 0 }
	return p
}

func newTestOrchestrator(t *testing.T, translatorDep *translator.Translator, ttsDep *tts.Registry) *orchestrator.Orchestrator {
	t.Helper()
	deps := orchestrator.Deps{
		Registry:   jobs.NewRegistry(nil),
		Events:     jobs.NewEventBus(),
		Artifacts:  artifact.New(t.TempDir()),
		Translator: translatorDep,
		TTS:        ttsDep,
		Settings:   config.DefaultSettings(),
	}
	return orchestrator.New(deps)
}

func sampleScript() string {
	return "title: sample\n\n[0:00:01] hello there\n[0:00:04] second line\n"
}

func TestSubmitRejectsInvalidRequest(t *testing.T) {
	o := newTestOrchestrator(t, nil, nil)

	_, err := o.Submit(domain.JobRequest{Kind: domain.JobKindDub})
	var jobErr *domain.JobError
	if !errors.As(err, &jobErr) || jobErr.Kind != domain.ErrInvalidRequest {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestSubmitQueuesJobAndPublishesEvent(t *testing.T) {
	o := newTestOrchestrator(t, nil, nil)

	id, err := o.Submit(domain.JobRequest{
		Kind:        domain.JobKindTranslate,
		Script:      sampleScript(),
		Translation: domain.TranslationOptions{TargetLang: "es-ES"},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	job, err := o.Status(id)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if job.Status != domain.JobStatusQueued {
		t.Fatalf("expected queued status, got %s", job.Status)
	}
}

func TestRunTranslateJobToCompletion(t *testing.T) {
	tr := &translator.Translator{
		ClientFor: func(region string) genmodel.ChatClient { return &fakeChatClient{} },
		Regions:   []string{"us"},
		Model:     "auto",
		Policy:    fastPolicy([]string{"us"}, "auto"),
	}

	deps := orchestrator.Deps{
		Registry:   jobs.NewRegistry(nil),
		Events:     jobs.NewEventBus(),
		Artifacts:  artifact.New(t.TempDir()),
		Translator: tr,
		Settings:   config.DefaultSettings(),
	}
	o := orchestrator.New(deps)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o.Start(ctx)

	id, err := o.Submit(domain.JobRequest{
		Kind:        domain.JobKindTranslate,
		Script:      sampleScript(),
		Translation: domain.TranslationOptions{Enabled: true, TargetLang: "es-ES"},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	job := waitForTerminal(t, o, id)
	if job.Status != domain.JobStatusCompleted {
		t.Fatalf("expected completed, got %s (%v)", job.Status, job.Error)
	}
	if job.Progress != 100 {
		t.Fatalf("expected progress 100, got %d", job.Progress)
	}
	if job.Artifacts.Translation == "" {
		t.Fatalf("expected translation artifact path recorded")
	}
	if job.Translator == nil || job.Translator.Region != "us" {
		t.Fatalf("expected translator model selection recorded, got %+v", job.Translator)
	}

	opened, err := o.Fetch(id, domain.ArtifactTranslation)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	opened.Reader.Close()
	if opened.Size == 0 {
		t.Fatalf("expected non-empty translation artifact")
	}
}

func TestRunTranslateJobFailsClosedOnBudget(t *testing.T) {
	tr := &translator.Translator{
		ClientFor: func(region string) genmodel.ChatClient { return &fakeChatClient{} },
		Regions:   []string{"us"},
		Model:     "auto",
		Policy:    fastPolicy([]string{"us"}, "auto"),
	}

	deps := orchestrator.Deps{
		Registry:   jobs.NewRegistry(nil),
		Events:     jobs.NewEventBus(),
		Artifacts:  artifact.New(t.TempDir()),
		Translator: tr,
		Settings:   config.DefaultSettings(),
	}
	o := orchestrator.New(deps)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o.Start(ctx)

	id, err := o.Submit(domain.JobRequest{
		Kind:        domain.JobKindTranslate,
		Script:      sampleScript(),
		Translation: domain.TranslationOptions{Enabled: true, TargetLang: "es-ES"},
		MaxCostUSD:  0.0000001,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	job := waitForTerminal(t, o, id)
	if job.Status != domain.JobStatusFailed {
		t.Fatalf("expected failed, got %s", job.Status)
	}
	if job.Error == nil || job.Error.Kind != domain.ErrBudgetExceeded {
		t.Fatalf("expected ErrBudgetExceeded, got %+v", job.Error)
	}
}

type fakeSynthProvider struct {
	id      string
	voices  []domain.VoiceProfile
	dir     string
	written string
}

func (f *fakeSynthProvider) ID() string { return f.id }
func (f *fakeSynthProvider) ListVoices(languageFilter string) []domain.VoiceProfile {
	return f.voices
}
func (f *fakeSynthProvider) Quote(charCount int, voiceID, quality string) (domain.CostEstimate, error) {
	return domain.CostEstimate{Provider: f.id, VoiceID: voiceID, Characters: charCount, CostUSD: float64(charCount) * 0.0001}, nil
}
func (f *fakeSynthProvider) Supports(languageTag string) bool { return true }
func (f *fakeSynthProvider) Synthesize(ctx context.Context, script domain.Script, voiceID, quality, outputFormat string) (domain.SynthesisResult, error) {
	path := f.dir + "/raw-output.mp3"
	if err := os.WriteFile(path, []byte("fake-audio-bytes"), 0o644); err != nil {
		return domain.SynthesisResult{}, err
	}
	f.written = path
	chars := 0
	for _, s := range script.Segments {
		chars += len(s.Text)
	}
	return domain.SynthesisResult{AudioPath: path, Bytes: int64(len("fake-audio-bytes")), Characters: chars, Provider: f.id, VoiceID: voiceID}, nil
}

func TestRunSynthesizeJobToCompletion(t *testing.T) {
	scratch := t.TempDir()
	provider := &fakeSynthProvider{
		id:  "resonance",
		dir: scratch,
		voices: []domain.VoiceProfile{
			{Provider: "resonance", VoiceID: "res-clara", Language: "en-US", Tier: domain.QualityStudio},
		},
	}
	registry := tts.NewRegistry(provider)

	deps := orchestrator.Deps{
		Registry:  jobs.NewRegistry(nil),
		Events:    jobs.NewEventBus(),
		Artifacts: artifact.New(t.TempDir()),
		TTS:       registry,
		Settings:  config.DefaultSettings(),
	}
	o := orchestrator.New(deps)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o.Start(ctx)

	id, err := o.Submit(domain.JobRequest{
		Kind:   domain.JobKindSynthesize,
		Script: sampleScript(),
		Synthesis: domain.SynthesisOptions{
			Enabled:  true,
			Provider: "resonance",
			VoiceID:  "res-clara",
		},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	job := waitForTerminal(t, o, id)
	if job.Status != domain.JobStatusCompleted {
		t.Fatalf("expected completed, got %s (%v)", job.Status, job.Error)
	}
	if job.Artifacts.Audio == "" {
		t.Fatalf("expected audio artifact path recorded")
	}
}

func TestCancelStopsQueuedJobBeforeCompletion(t *testing.T) {
	tr := &translator.Translator{
		ClientFor: func(region string) genmodel.ChatClient {
			return &fakeChatClient{err: errBlocked}
		},
		Regions: []string{"us"},
		Model:   "auto",
		Policy:  fastPolicy([]string{"us"}, "auto"),
	}
	o := newTestOrchestrator(t, tr, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o.Start(ctx)

	id, err := o.Submit(domain.JobRequest{
		Kind:        domain.JobKindTranslate,
		Script:      sampleScript(),
		Translation: domain.TranslationOptions{Enabled: true, TargetLang: "es-ES"},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := o.Cancel(id); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	job := waitForTerminal(t, o, id)
	if job.Status != domain.JobStatusCancelled {
		t.Fatalf("expected cancelled after cancel request, got %s (%v)", job.Status, job.Error)
	}
}

func TestDeleteRemovesJobAndArtifacts(t *testing.T) {
	o := newTestOrchestrator(t, nil, nil)
	id, err := o.Submit(domain.JobRequest{
		Kind:        domain.JobKindTranslate,
		Script:      sampleScript(),
		Translation: domain.TranslationOptions{TargetLang: "es-ES"},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if err := o.Delete(id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := o.Status(id); !errors.Is(err, jobs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

var errBlocked = errors.New("blocked")

func waitForTerminal(t *testing.T, o *orchestrator.Orchestrator, id string) domain.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := o.Status(id)
		if err != nil {
			t.Fatalf("Status: %v", err)
		}
		if job.Status.IsTerminal() {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not reach a terminal state in time", id)
	return domain.Job{}
}

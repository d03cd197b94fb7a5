// Package orchestrator generalizes the teacher's single-slot job manager
// (queue → run one pipeline → report) into a fixed worker pool that
// drives many concurrent Jobs through the stage sequence declared in
// §4.9, exactly the way eleven-am-goshl splits work across a fixed pool
// of goroutines pulling from a buffered channel of work ids instead of
// spawning one goroutine per request.
package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"media-dubber/internal/artifact"
	"media-dubber/internal/config"
	"media-dubber/internal/domain"
	"media-dubber/internal/download"
	"media-dubber/internal/ids"
	"media-dubber/internal/jobs"
	"media-dubber/internal/mux"
	"media-dubber/internal/posteditor"
	"media-dubber/internal/procexec"
	"media-dubber/internal/recognizer"
	"media-dubber/internal/segment"
	"media-dubber/internal/translator"
	"media-dubber/internal/tts"
)

// Deps bundles every collaborator a job's pipeline needs. Fields the
// orchestrator does not need for a given job kind may be left nil.
type Deps struct {
	Registry   *jobs.Registry
	Events     *jobs.EventBus
	Artifacts  *artifact.Store
	Fetcher    *download.Fetcher
	Recognizer recognizer.Recognizer
	Segmenter  *segment.Segmenter
	PostEditor *posteditor.Editor
	Translator *translator.Translator
	TTS        *tts.Registry
	Muxer      *mux.Muxer
	Runner     procexec.Runner
	FFmpegPath string
	Settings   config.Settings
	Logger     *slog.Logger
}

// Orchestrator runs a fixed pool of workers consuming submitted job ids.
type Orchestrator struct {
	deps    Deps
	queue   chan string
	workers int
	wg      sync.WaitGroup
}

// New builds an Orchestrator with a fixed worker pool sized from
// settings.MaxConcurrentJobs, defaulting to 5 per §5.
func New(deps Deps) *Orchestrator {
	workers := deps.Settings.MaxConcurrentJobs
	if workers <= 0 {
		workers = 5
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Orchestrator{
		deps:    deps,
		queue:   make(chan string, 1024),
		workers: workers,
	}
}

// Start launches the worker pool. It returns immediately; workers stop
// once ctx is cancelled and their current job (if any) exits.
func (o *Orchestrator) Start(ctx context.Context) {
	for i := 0; i < o.workers; i++ {
		o.wg.Add(1)
		go o.worker(ctx)
	}
}

// Wait blocks until every worker has exited, for graceful shutdown.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) worker(ctx context.Context) {
	defer o.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case id, ok := <-o.queue:
			if !ok {
				return
			}
			o.runJob(ctx, id)
		}
	}
}

// Submit validates a request, creates a queued Job, and schedules it for
// execution, matching §4.1's submit(request) -> job_id contract.
func (o *Orchestrator) Submit(req domain.JobRequest) (string, error) {
	if err := validateRequest(req, o.deps.TTS); err != nil {
		return "", err
	}

	job := domain.Job{
		ID:        ids.NewJobID(),
		Kind:      req.Kind,
		Status:    domain.JobStatusQueued,
		Request:   req,
		CreatedAt: time.Now().UTC(),
	}
	o.deps.Registry.Put(job)
	o.deps.Events.Publish(jobs.Event{JobID: job.ID, Type: jobs.EventTypeStatus, Status: job.Status, Message: "queued"})

	select {
	case o.queue <- job.ID:
	default:
		go func() { o.queue <- job.ID }()
	}
	return job.ID, nil
}

// Status returns a job snapshot, matching §4.1's status(job_id).
func (o *Orchestrator) Status(jobID string) (domain.Job, error) {
	return o.deps.Registry.Get(jobID)
}

// List returns a page of jobs, matching §4.1's list(limit, offset, status_filter).
func (o *Orchestrator) List(limit, offset int, statusFilter domain.JobStatus) []domain.Job {
	return o.deps.Registry.List(limit, offset, statusFilter)
}

// Cancel requests cooperative cancellation, matching §4.1's cancel(job_id).
func (o *Orchestrator) Cancel(jobID string) error {
	return o.deps.Registry.Cancel(jobID)
}

// Delete removes a job's record, artifact directory, and event history,
// matching §4.1's delete(job_id) and sharing the TTL sweeper's code path.
func (o *Orchestrator) Delete(jobID string) error {
	if err := o.deps.Registry.Delete(jobID); err != nil {
		return err
	}
	o.deps.Events.Forget(jobID)
	return o.deps.Artifacts.RemoveJobDir(jobID)
}

// Fetch streams one of a job's artifacts, matching §4.1's
// fetch(job_id, artifact_kind).
func (o *Orchestrator) Fetch(jobID string, kind domain.ArtifactKind) (artifact.Opened, error) {
	job, err := o.deps.Registry.Get(jobID)
	if err != nil {
		return artifact.Opened{}, err
	}
	return o.deps.Artifacts.Open(job, kind)
}

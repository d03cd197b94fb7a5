package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"media-dubber/internal/artifact"
	"media-dubber/internal/domain"
	"media-dubber/internal/jobs"
	"media-dubber/internal/ledger"
	"media-dubber/internal/posteditor"
	"media-dubber/internal/segment"
	"media-dubber/internal/translator"
	"media-dubber/internal/tts"
)

// pipeline drives one job through its stage sequence, owning the scratch
// files it creates so they can be swept on any exit path per §4's
// cleanup invariant.
type pipeline struct {
	o       *Orchestrator
	ctx     context.Context
	jobID   string
	dir     string
	tracker *ledger.Tracker
	scratch []string
}

func (o *Orchestrator) runJob(parent context.Context, jobID string) {
	job, err := o.deps.Registry.Get(jobID)
	if err != nil {
		return
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	o.deps.Registry.RegisterCancel(jobID, cancel)

	startedAt := time.Now().UTC()
	job, err = o.deps.Registry.Transition(jobID, func(j *domain.Job) {
		j.Status = domain.JobStatusRunning
		j.Stage = ""
	})
	if err != nil {
		return
	}
	job.StartedAt = &startedAt
	o.deps.Events.Publish(jobs.Event{JobID: jobID, Type: jobs.EventTypeStatus, Status: domain.JobStatusRunning, Message: "started"})

	dir, err := o.deps.Artifacts.EnsureDir(jobID)
	if err != nil {
		o.terminate(jobID, domain.JobStatusFailed, domain.NewJobError(domain.ErrInternal, "", "failed to create artifact directory", err))
		return
	}

	pl := &pipeline{o: o, ctx: ctx, jobID: jobID, dir: dir, tracker: ledger.NewTracker(job.Kind)}
	pl.run(job)
}

func (pl *pipeline) run(job domain.Job) {
	defer pl.cleanupScratch()

	var (
		videoPath, audioPath string
		hits                 []domain.RecognizerHit
		script               domain.Script
		err                  error
	)

	for _, stage := range ledger.StageOrder(job.Kind) {
		if pl.cancelledOut() {
			return
		}

		switch stage {
		case domain.StageDownload:
			videoPath, err = pl.download(job)
		case domain.StageDecode:
			audioPath, err = pl.decode(job, videoPath)
		case domain.StageRecognize:
			hits, err = pl.recognize(job, audioPath)
		case domain.StageSegment:
			script, err = pl.segmentStage(job, hits)
		case domain.StagePostEdit:
			if job.Request.PostEdit.Enabled {
				script, err = pl.postEdit(job, script)
			} else {
				pl.tracker.Complete(stage)
			}
		case domain.StageTranslate:
			if job.Request.Translation.Enabled || job.Kind == domain.JobKindTranslate {
				script, err = pl.translate(job, script)
			} else {
				pl.tracker.Complete(stage)
			}
		case domain.StageSynthesize:
			if job.Request.Synthesis.Enabled {
				audioPath, err = pl.synthesize(job, script)
			} else {
				pl.tracker.Complete(stage)
			}
		case domain.StageMux:
			if job.Request.Mux {
				_, err = pl.muxStage(job, videoPath, audioPath)
			} else {
				pl.tracker.Complete(stage)
			}
		}

		if err != nil {
			if pl.wasCancelled(err) {
				pl.o.terminate(pl.jobID, domain.JobStatusCancelled, err)
			} else {
				pl.o.terminate(pl.jobID, domain.JobStatusFailed, err)
			}
			return
		}
		pl.reportProgress(stage)
	}

	pl.o.terminate(pl.jobID, domain.JobStatusCompleted, nil)
}

// wasCancelled reports whether a stage error represents cancellation
// rather than genuine failure: either the pipeline's own context was
// cancelled, or the stage surfaced it as an ErrCancelled JobError (e.g.
// a poll loop or sleepOrCancel returning ctx.Err() mid-stage).
func (pl *pipeline) wasCancelled(err error) bool {
	if pl.ctx.Err() != nil {
		return true
	}
	var jobErr *domain.JobError
	return errors.As(err, &jobErr) && jobErr.Kind == domain.ErrCancelled
}

func (pl *pipeline) cancelledOut() bool {
	if pl.ctx.Err() == nil {
		return false
	}
	pl.o.terminate(pl.jobID, domain.JobStatusCancelled, domain.NewJobError(domain.ErrCancelled, "", "job cancelled", pl.ctx.Err()))
	return true
}

func (pl *pipeline) reportProgress(stage string) {
	job, err := pl.o.deps.Registry.Transition(pl.jobID, func(j *domain.Job) {
		j.Stage = stage
		j.Progress = pl.tracker.Overall()
	})
	if err != nil {
		return
	}
	pl.o.deps.Events.Publish(jobs.Event{JobID: pl.jobID, Type: jobs.EventTypeStatus, Status: job.Status, Stage: stage, Progress: job.Progress})
}

func (pl *pipeline) onStageProgress(stage string) func(int) {
	return func(pct int) {
		pl.tracker.Update(stage, pct)
		job, err := pl.o.deps.Registry.Transition(pl.jobID, func(j *domain.Job) {
			j.Stage = stage
			j.Progress = pl.tracker.Overall()
		})
		if err != nil {
			return
		}
		pl.o.deps.Events.Publish(jobs.Event{JobID: pl.jobID, Type: jobs.EventTypeStatus, Status: job.Status, Stage: stage, Progress: job.Progress})
	}
}

// terminate transitions a job into a terminal state, recording the
// ended timestamp and error (if any), and publishes the matching event.
func (o *Orchestrator) terminate(jobID string, status domain.JobStatus, jobErr error) {
	endedAt := time.Now().UTC()
	job, err := o.deps.Registry.Transition(jobID, func(j *domain.Job) {
		j.Status = status
		j.EndedAt = &endedAt
		if jobErr != nil {
			var je *domain.JobError
			if as, ok := jobErr.(*domain.JobError); ok {
				je = as
			} else {
				je = domain.NewJobError(domain.ErrInternal, "", jobErr.Error(), jobErr)
			}
			j.Error = je
		}
		if status == domain.JobStatusCompleted {
			j.Progress = 100
		}
	})
	if err != nil {
		return
	}

	eventType := jobs.EventTypeResult
	message := "completed"
	if jobErr != nil {
		eventType = jobs.EventTypeError
		message = jobErr.Error()
	}
	o.deps.Events.Publish(jobs.Event{JobID: jobID, Type: eventType, Status: job.Status, Message: message, Progress: job.Progress})
}

func (pl *pipeline) cleanupScratch() {
	for _, p := range pl.scratch {
		_ = artifact.RemoveScratch(p)
	}
}

func (pl *pipeline) download(job domain.Job) (string, error) {
	path, err := pl.o.deps.Artifacts.Path(job.ID, "source."+extForURL(job.Request.URL))
	if err != nil {
		return "", err
	}
	if err := pl.o.deps.Fetcher.Download(pl.ctx, job.Request.URL, path); err != nil {
		return "", err
	}
	pl.scratch = append(pl.scratch, path)
	pl.tracker.Complete(domain.StageDownload)
	return path, nil
}

func (pl *pipeline) decode(job domain.Job, videoPath string) (string, error) {
	path, err := pl.o.deps.Artifacts.Path(job.ID, "decoded.wav")
	if err != nil {
		return "", err
	}
	if err := pl.o.deps.Fetcher.Decode(pl.ctx, videoPath, path); err != nil {
		return "", err
	}
	pl.scratch = append(pl.scratch, path)
	pl.tracker.Complete(domain.StageDecode)
	return path, nil
}

func (pl *pipeline) recognize(job domain.Job, audioPath string) ([]domain.RecognizerHit, error) {
	hits, err := pl.o.deps.Recognizer.Transcribe(pl.ctx, audioPath, job.Request.Language, job.Request.BreathDetection, pl.onStageProgress(domain.StageRecognize))
	if err != nil {
		return nil, err
	}
	pl.tracker.Complete(domain.StageRecognize)
	return hits, nil
}

func (pl *pipeline) segmentStage(job domain.Job, hits []domain.RecognizerHit) (domain.Script, error) {
	var script domain.Script
	var stats domain.Stats

	if job.Kind == domain.JobKindTranslate || job.Kind == domain.JobKindSynthesize {
		raw := job.Request.Script
		if raw == "" {
			raw = job.Request.Transcript
		}
		parsed, err := segment.Parse(raw)
		if err != nil {
			return domain.Script{}, domain.NewJobError(domain.ErrInvalidRequest, domain.StageSegment, "failed to parse provided script", err)
		}
		script = parsed
	} else {
		script, stats = pl.o.deps.Segmenter.Build(hits)
		_ = stats
	}

	transcriptPath, err := pl.writeArtifact(job.ID, artifact.TranscriptName(), renderTranscript(hits))
	if err != nil {
		return domain.Script{}, err
	}
	scriptPath, err := pl.writeArtifact(job.ID, artifact.ScriptName(), segment.Render(script))
	if err != nil {
		return domain.Script{}, err
	}

	pl.o.deps.Registry.Transition(job.ID, func(j *domain.Job) {
		j.Artifacts.Transcript = transcriptPath
		j.Artifacts.Script = scriptPath
	})

	pl.tracker.Complete(domain.StageSegment)
	return script, nil
}

func (pl *pipeline) postEditorFor(job domain.Job) *posteditor.Editor {
	e := *pl.o.deps.PostEditor
	if len(job.Request.RegionList) > 0 {
		e.Regions = job.Request.RegionList
	}
	if job.Request.PostEdit.Model != "" {
		e.Model = job.Request.PostEdit.Model
	}
	return &e
}

func (pl *pipeline) translatorFor(job domain.Job) *translator.Translator {
	t := *pl.o.deps.Translator
	if len(job.Request.RegionList) > 0 {
		t.Regions = job.Request.RegionList
	}
	return &t
}

func (pl *pipeline) postEdit(job domain.Job, script domain.Script) (domain.Script, error) {
	edited, winner, err := pl.postEditorFor(job).Run(pl.ctx, script)
	if err != nil {
		return domain.Script{}, err
	}
	pl.o.deps.Registry.Transition(job.ID, func(j *domain.Job) {
		j.PostEditor = &winner
	})
	pl.tracker.Complete(domain.StagePostEdit)
	return edited, nil
}

func (pl *pipeline) translate(job domain.Job, script domain.Script) (domain.Script, error) {
	// Rate cards are priced per 1,000 characters; units here are characters.
	rate := pl.o.deps.Settings.RateCards.PriceFor("genmodel", "standard") / 1000
	if err := pl.quoteBillable(job.ID, domain.StageTranslate, float64(len(segment.Render(script))), rate); err != nil {
		return domain.Script{}, err
	}

	opts := translator.Options{
		TargetLang: job.Request.Translation.TargetLang,
		Context:    job.Request.Translation.Context,
		Audience:   job.Request.Translation.Audience,
		Tone:       job.Request.Translation.Tone,
		Quality:    job.Request.Translation.Quality,
	}
	translated, winner, err := pl.translatorFor(job).Run(pl.ctx, script, opts)
	if err != nil {
		return domain.Script{}, err
	}

	path, err := pl.writeArtifact(job.ID, artifact.TranslatedName(opts.TargetLang), segment.Render(translated))
	if err != nil {
		return domain.Script{}, err
	}
	pl.o.deps.Registry.Transition(job.ID, func(j *domain.Job) {
		j.Translator = &winner
		j.Artifacts.Translation = path
		j.Cost.AddActual(domain.StageTranslate, float64(len(segment.Render(script))), rate)
	})

	pl.tracker.Complete(domain.StageTranslate)
	return translated, nil
}

func (pl *pipeline) synthesize(job domain.Job, script domain.Script) (string, error) {
	charCount := countChars(script)
	sel, err := pl.o.deps.TTS.Resolve(tts.SelectionRequest{
		Provider:    job.Request.Synthesis.Provider,
		VoiceID:     job.Request.Synthesis.VoiceID,
		LanguageTag: job.Request.Translation.TargetLang,
		Quality:     job.Request.Synthesis.Quality,
		CostFirst:   job.Request.Synthesis.CostFirst,
		CharCount:   charCount,
	})
	if err != nil {
		return "", err
	}

	if err := pl.quoteBillable(job.ID, domain.StageSynthesize, sel.Quote.CostUSD, 1.0); err != nil {
		return "", err
	}

	format := job.Request.Synthesis.Format
	res, err := sel.Provider.Synthesize(pl.ctx, script, sel.VoiceID, job.Request.Synthesis.Quality, format)
	if err != nil {
		return "", err
	}

	lang := job.Request.Translation.TargetLang
	if lang == "" {
		lang = job.Request.Language
	}
	if lang == "" {
		lang = pl.o.deps.Settings.LanguageCode
	}
	finalPath, err := pl.o.deps.Artifacts.Path(job.ID, artifact.AudioName(lang, extOrDefault(format)))
	if err != nil {
		return "", err
	}
	if err := os.Rename(res.AudioPath, finalPath); err != nil {
		return "", domain.NewJobError(domain.ErrInternal, domain.StageSynthesize, "failed to place synthesized audio artifact", err)
	}

	pl.o.deps.Registry.Transition(job.ID, func(j *domain.Job) {
		j.Artifacts.Audio = finalPath
		j.Cost.AddActual(domain.StageSynthesize, float64(res.Characters), sel.Quote.CostUSD/float64(maxCharCount(charCount)))
	})

	pl.tracker.Complete(domain.StageSynthesize)
	return finalPath, nil
}

func (pl *pipeline) muxStage(job domain.Job, videoPath, audioPath string) (string, error) {
	lang := job.Request.Translation.TargetLang
	if lang == "" {
		lang = job.Request.Language
	}
	outPath, err := pl.o.deps.Artifacts.Path(job.ID, artifact.DubbedName(lang, "mp4"))
	if err != nil {
		return "", err
	}
	if err := pl.o.deps.Muxer.Mux(pl.ctx, videoPath, audioPath, outPath); err != nil {
		return "", err
	}
	pl.o.deps.Registry.Transition(job.ID, func(j *domain.Job) {
		j.Artifacts.Video = outPath
	})
	pl.tracker.Complete(domain.StageMux)
	return outPath, nil
}

// quoteBillable enforces the budget gate immediately before a stage's
// first remote call, per §7.
func (pl *pipeline) quoteBillable(jobID, stage string, units, rate float64) error {
	job, err := pl.o.deps.Registry.Get(jobID)
	if err != nil {
		return err
	}
	cost := job.Cost
	if err := ledger.QuoteStage(&cost, stage, units, rate, job.Request.MaxCostUSD); err != nil {
		return err
	}
	pl.o.deps.Registry.Transition(jobID, func(j *domain.Job) {
		j.Cost = cost
	})
	return nil
}

func (pl *pipeline) writeArtifact(jobID, name, content string) (string, error) {
	path, err := pl.o.deps.Artifacts.Path(jobID, name)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", domain.NewJobError(domain.ErrInternal, "", fmt.Sprintf("failed to write artifact %q", name), err)
	}
	return path, nil
}

func renderTranscript(hits []domain.RecognizerHit) string {
	out := ""
	for i, h := range hits {
		if i > 0 {
			out += " "
		}
		out += h.Word
	}
	return out
}

func countChars(script domain.Script) int {
	total := 0
	for _, s := range script.Segments {
		total += len(s.Text)
	}
	return total
}

func maxCharCount(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}

func extForURL(url string) string {
	return "mp4"
}

func extOrDefault(format string) string {
	if format == "" {
		return "aac"
	}
	return format
}

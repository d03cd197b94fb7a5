// Package cli implements the interactive terminal mode from spec.md §6:
// a fixed prompt sequence over bufio.Scanner that builds the exact same
// domain.JobRequest shape the HTTP surface accepts, then drives it
// through the same Orchestrator, following the teacher's bootstrap.App
// pattern of a thin driver bound directly to backend methods rather than
// a separate request-building layer.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"media-dubber/internal/domain"
	"media-dubber/internal/orchestrator"
)

// Driver runs the fixed prompt sequence against stdin/stdout and submits
// the resulting request to an Orchestrator, polling until the job
// reaches a terminal status.
type Driver struct {
	Orchestrator *orchestrator.Orchestrator
	In           io.Reader
	Out          io.Writer
	PollInterval time.Duration
}

// New builds a Driver ready to run against o.
func New(o *orchestrator.Orchestrator, in io.Reader, out io.Writer) *Driver {
	return &Driver{Orchestrator: o, In: in, Out: out, PollInterval: 500 * time.Millisecond}
}

// Run executes the fixed prompt order from spec.md §6: URL, test mode,
// breath detection, post-edit on/off (+ model if on), translation on/off
// (+ target language, context, audience, tone if on), TTS provider,
// voice id, mux on/off. It submits the request, then reports progress
// until the job terminates.
func (d *Driver) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(d.In)
	req := domain.JobRequest{Kind: domain.JobKindDub}

	req.URL = d.ask(scanner, "Source video URL")
	req.TestMode = d.askBool(scanner, "Test mode (process only a short clip)?")
	req.BreathDetection = d.askBool(scanner, "Enable breath detection?")

	req.PostEdit.Enabled = d.askBool(scanner, "Post-edit the transcript with a generative model?")
	if req.PostEdit.Enabled {
		req.PostEdit.Model = d.ask(scanner, "Post-edit model (blank for auto)")
	}

	req.Translation.Enabled = d.askBool(scanner, "Translate the script?")
	if req.Translation.Enabled {
		req.Translation.TargetLang = d.ask(scanner, "Target language (BCP-47, e.g. es-ES)")
		req.Translation.Context = d.ask(scanner, "Context tag (blank for none)")
		req.Translation.Audience = d.ask(scanner, "Audience (blank for none)")
		req.Translation.Tone = d.ask(scanner, "Tone (blank for none)")
	}

	req.Synthesis.Enabled = d.askBool(scanner, "Synthesize dubbed audio?")
	if req.Synthesis.Enabled {
		req.Synthesis.Provider = d.ask(scanner, "TTS provider id (or \"auto\")")
		req.Synthesis.VoiceID = d.ask(scanner, "Voice id (blank to let the provider choose)")
	}

	req.Mux = d.askBool(scanner, "Mux dubbed audio into the source video?")

	id, err := d.Orchestrator.Submit(req)
	if err != nil {
		return fmt.Errorf("submit job: %w", err)
	}
	fmt.Fprintf(d.Out, "submitted job %s\n", id)

	return d.watch(ctx, id)
}

func (d *Driver) watch(ctx context.Context, jobID string) error {
	ticker := time.NewTicker(d.PollInterval)
	defer ticker.Stop()

	var last int
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			job, err := d.Orchestrator.Status(jobID)
			if err != nil {
				return fmt.Errorf("poll job status: %w", err)
			}
			if job.Progress != last {
				fmt.Fprintf(d.Out, "[%s] %s %d%%\n", job.Status, job.Stage, job.Progress)
				last = job.Progress
			}
			if job.Status.IsTerminal() {
				return d.report(job)
			}
		}
	}
}

func (d *Driver) report(job domain.Job) error {
	switch job.Status {
	case domain.JobStatusCompleted:
		fmt.Fprintf(d.Out, "done: %+v\n", job.Artifacts)
		return nil
	case domain.JobStatusCancelled:
		fmt.Fprintln(d.Out, "job cancelled")
		return nil
	default:
		if job.Error != nil {
			return fmt.Errorf("job failed: %s", job.Error.Error())
		}
		return fmt.Errorf("job failed")
	}
}

func (d *Driver) ask(scanner *bufio.Scanner, prompt string) string {
	fmt.Fprintf(d.Out, "%s: ", prompt)
	if !scanner.Scan() {
		return ""
	}
	return strings.TrimSpace(scanner.Text())
}

func (d *Driver) askBool(scanner *bufio.Scanner, prompt string) bool {
	fmt.Fprintf(d.Out, "%s [y/N]: ", prompt)
	if !scanner.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "y" || answer == "yes" || answer == "true"
}

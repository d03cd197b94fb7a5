// Package genmodel implements the multi-model x multi-region fallback
// policy shared by the post-editor and translator, wrapping
// sashabaranov/go-openai the way the ossrs-oryx dubbing worker's
// AudioGroup.Translate/GenerateTTS wrap it, generalized into a single
// retry driver instead of one inlined per call site.
package genmodel

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"media-dubber/internal/domain"
)

// autoCandidates is the ordered model list the sentinel "auto" expands
// to, per §4.5 step 1.
var autoCandidates = []string{"recommended-fast", "latest-fast", "recommended-detailed", "legacy-fallback"}

// ExpandModel returns the candidate model list for a requested model id,
// expanding the "auto" sentinel to the declared preference order.
func ExpandModel(model string) []string {
	if model == "" || model == "auto" {
		return append([]string(nil), autoCandidates...)
	}
	return []string{model}
}

// Call is the signature every attempt makes: given a (region, model)
// pair, perform the remote call and classify the outcome.
type Call func(ctx context.Context, region, model string) (result interface{}, err error)

// Policy runs the (region, model) x attempt fallback described in §4.5.
type Policy struct {
	Regions       []string
	Models        []string
	MaxAttempts   int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	Sleep         func(context.Context, time.Duration) error
	RandFloat     func() float64
}

// NewPolicy builds a policy with the documented defaults: 3 attempts per
// (region, model) pair, exponential backoff starting at 200ms capped at
// 5s.
func NewPolicy(regions []string, model string) *Policy {
	if len(regions) == 0 {
		regions = []string{"default"}
	}
	return &Policy{
		Regions:     regions,
		Models:      ExpandModel(model),
		MaxAttempts: 3,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Sleep:       sleepOrCancel,
		RandFloat:   rand.Float64,
	}
}

func sleepOrCancel(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Outcome records which (region, model) pair a run ultimately used.
type Outcome struct {
	Result interface{}
	Region string
	Model  string
}

// Run iterates the Cartesian product of (region, model) region-major,
// retrying each pair on transient errors up to MaxAttempts times with
// jittered exponential backoff, moving to the next model on
// model-not-found/model-deprecated and the next region on
// region-unavailable, per §4.5 steps 2-4.
func (p *Policy) Run(ctx context.Context, call Call) (Outcome, error) {
	var lastErr error

	for _, region := range p.Regions {
		for _, model := range p.Models {
			result, err := p.attemptPair(ctx, region, model, call)
			if err == nil {
				return Outcome{Result: result, Region: region, Model: model}, nil
			}
			lastErr = err

			kind := errorKind(err)
			if kind == domain.ErrUnsupportedLang {
				continue // model-not-found/deprecated: next model
			}
			if kind == domain.ErrSourceUnavailable {
				break // region-unavailable: next region
			}
		}
	}

	if lastErr == nil {
		lastErr = domain.NewJobError(domain.ErrInternal, "", "fallback policy exhausted with no candidates", nil)
	}
	return Outcome{}, lastErr
}

// attemptPair retries one (region, model) pair up to MaxAttempts times
// on retryable errors.
func (p *Policy) attemptPair(ctx context.Context, region, model string, call Call) (interface{}, error) {
	var lastErr error

	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, domain.NewJobError(domain.ErrCancelled, "", "generative-model call cancelled", err)
		}

		result, err := call(ctx, region, model)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !errorKind(err).Retryable() {
			return nil, err
		}

		delay := p.backoff(attempt)
		if serr := p.Sleep(ctx, delay); serr != nil {
			return nil, domain.NewJobError(domain.ErrCancelled, "", "generative-model retry cancelled", serr)
		}
	}
	return nil, lastErr
}

func (p *Policy) backoff(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = 200 * time.Millisecond
	}
	max := p.MaxDelay
	if max <= 0 {
		max = 5 * time.Second
	}
	exp := base * time.Duration(math.Pow(2, float64(attempt)))
	if exp > max {
		exp = max
	}
	jitter := time.Duration(p.RandFloat() * float64(exp) * 0.5)
	return exp + jitter
}

func errorKind(err error) domain.ErrorKind {
	var jobErr *domain.JobError
	if errors.As(err, &jobErr) {
		return jobErr.Kind
	}
	return domain.ErrInternal
}

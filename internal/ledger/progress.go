// Package ledger computes weighted per-job progress and enforces the
// budget gate ahead of billable stages, generalizing the teacher's
// diagnostics/manager-level notion of a single running percentage into a
// per-job-kind weighted stage model.
package ledger

import "media-dubber/internal/domain"

// StageWeights maps a stage name to its share of a job's overall
// progress. Weights for a given kind must sum to 100.
type StageWeights map[string]int

// weightsByKind declares the stage weights per job kind, per §4.9's
// worked example for dub (download 5, decode 5, recognize 20, segment 5,
// post-edit 10, translate 10, synthesize 30, mux 15). The remaining kinds
// weight only the stages they actually visit, with their own values that
// are not a proportional rescaling of the dub weights.
var weightsByKind = map[domain.JobKind]StageWeights{
	domain.JobKindDub: {
		domain.StageDownload:   5,
		domain.StageDecode:     5,
		domain.StageRecognize:  20,
		domain.StageSegment:    5,
		domain.StagePostEdit:   10,
		domain.StageTranslate:  10,
		domain.StageSynthesize: 30,
		domain.StageMux:        15,
	},
	domain.JobKindTranscribe: {
		domain.StageDownload:  10,
		domain.StageDecode:    10,
		domain.StageRecognize: 60,
		domain.StageSegment:   10,
		domain.StagePostEdit:  10,
	},
	domain.JobKindTranslate: {
		domain.StageSegment:   10,
		domain.StageTranslate: 90,
	},
	domain.JobKindSynthesize: {
		domain.StageSegment:    10,
		domain.StageSynthesize: 90,
	},
}

// WeightsFor returns the declared stage weights for a job kind, defaulting
// to the dub weights for an unrecognized kind so progress is never zero.
func WeightsFor(kind domain.JobKind) StageWeights {
	if w, ok := weightsByKind[kind]; ok {
		return w
	}
	return weightsByKind[domain.JobKindDub]
}

// StageOrder returns the stages a kind visits, in pipeline order, so the
// orchestrator can iterate deterministically instead of ranging a map.
func StageOrder(kind domain.JobKind) []string {
	switch kind {
	case domain.JobKindTranscribe:
		return []string{domain.StageDownload, domain.StageDecode, domain.StageRecognize, domain.StageSegment, domain.StagePostEdit}
	case domain.JobKindTranslate:
		return []string{domain.StageSegment, domain.StageTranslate}
	case domain.JobKindSynthesize:
		return []string{domain.StageSegment, domain.StageSynthesize}
	default:
		return []string{domain.StageDownload, domain.StageDecode, domain.StageRecognize, domain.StageSegment, domain.StagePostEdit, domain.StageTranslate, domain.StageSynthesize, domain.StageMux}
	}
}

// Tracker accumulates per-stage sub-progress in [0,100] and exposes the
// weighted overall progress for one job, matching §4.9's "each stage
// reports sub-progress in [0,100] which is scaled by its weight" rule.
type Tracker struct {
	kind    domain.JobKind
	weights StageWeights
	sub     map[string]int
	done    map[string]bool
}

// NewTracker builds a progress tracker for one job kind.
func NewTracker(kind domain.JobKind) *Tracker {
	return &Tracker{
		kind:    kind,
		weights: WeightsFor(kind),
		sub:     make(map[string]int),
		done:    make(map[string]bool),
	}
}

// Update records sub-progress in [0,100] for a stage. Values are clamped
// and progress never regresses within a stage, keeping the overall total
// monotone per §8's non-decreasing progress invariant.
func (t *Tracker) Update(stage string, subProgress int) {
	if subProgress < 0 {
		subProgress = 0
	}
	if subProgress > 100 {
		subProgress = 100
	}
	if subProgress > t.sub[stage] {
		t.sub[stage] = subProgress
	}
}

// Complete marks a stage fully done regardless of the last reported
// sub-progress, so a stage that finishes without a final 100% tick still
// contributes its whole weight.
func (t *Tracker) Complete(stage string) {
	t.sub[stage] = 100
	t.done[stage] = true
}

// Overall returns the weighted sum of stage completion, rounded down, per
// §4.9. Stages the job kind does not visit contribute nothing.
func (t *Tracker) Overall() int {
	total := 0
	for stage, weight := range t.weights {
		total += weight * t.sub[stage]
	}
	return total / 100
}

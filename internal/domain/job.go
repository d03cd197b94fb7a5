package domain

import "time"

// JobKind selects which stage sequence the orchestrator runs for a job.
type JobKind string

const (
	JobKindTranscribe JobKind = "transcribe"
	JobKindTranslate  JobKind = "translate"
	JobKindSynthesize JobKind = "synthesize"
	JobKindDub        JobKind = "dub"
)

// JobStatus is the coarse-grained lifecycle state of a Job. It is monotone:
// once a job reaches a terminal status no further transition is possible.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// IsTerminal reports whether status admits no further transitions.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// Stage names used for progress weighting, event publication, and the
// per-stage cost ledger. Not every kind visits every stage.
const (
	StageDownload   = "download"
	StageDecode     = "decode"
	StageRecognize  = "recognize"
	StageSegment    = "segment"
	StagePostEdit   = "post_edit"
	StageTranslate  = "translate"
	StageSynthesize = "synthesize"
	StageMux        = "mux"
)

// PostEditOptions configures the optional generative-model script cleanup.
type PostEditOptions struct {
	Enabled bool   `json:"enabled"`
	Model   string `json:"model,omitempty"`
}

// TranslationOptions configures the optional translation stage.
type TranslationOptions struct {
	Enabled    bool   `json:"enabled"`
	TargetLang string `json:"targetLang,omitempty"`
	Context    string `json:"context,omitempty"`
	Audience   string `json:"audience,omitempty"`
	Tone       string `json:"tone,omitempty"`
	Quality    string `json:"quality,omitempty"`
}

// SynthesisOptions configures the optional TTS stage.
type SynthesisOptions struct {
	Enabled   bool   `json:"enabled"`
	Provider  string `json:"provider,omitempty"` // explicit id or "auto"
	VoiceID   string `json:"voiceId,omitempty"`
	Quality   string `json:"quality,omitempty"`
	Format    string `json:"format,omitempty"`
	CostFirst bool   `json:"costFirst,omitempty"`
}

// JobRequest is the intake shape accepted by submit(), shared by the HTTP
// surface and the terminal driver so both produce an identical contract.
type JobRequest struct {
	Kind             JobKind             `json:"kind"`
	URL              string              `json:"url,omitempty"`
	Transcript       string              `json:"transcript,omitempty"`
	Script           string              `json:"script,omitempty"`
	TestMode         bool                `json:"testMode,omitempty"`
	BreathDetection  bool                `json:"breathDetection,omitempty"`
	Language         string              `json:"language,omitempty"`
	PostEdit         PostEditOptions     `json:"postEdit,omitempty"`
	Translation      TranslationOptions  `json:"translation,omitempty"`
	Synthesis        SynthesisOptions    `json:"synthesis,omitempty"`
	Mux              bool                `json:"mux,omitempty"`
	MaxCostUSD       float64             `json:"maxCostUsd,omitempty"`
	RegionList       []string            `json:"regionList,omitempty"`
}

// ArtifactPaths records where each stage's output landed on disk.
type ArtifactPaths struct {
	Transcript  string `json:"transcript,omitempty"`
	Script      string `json:"script,omitempty"`
	Translation string `json:"translation,omitempty"`
	Audio       string `json:"audio,omitempty"`
	Video       string `json:"video,omitempty"`
}

// ArtifactKind identifies which artifact fetch()/the HTTP surface streams.
type ArtifactKind string

const (
	ArtifactTranscript  ArtifactKind = "transcript"
	ArtifactScript      ArtifactKind = "script"
	ArtifactTranslation ArtifactKind = "translation"
	ArtifactAudio       ArtifactKind = "audio"
	ArtifactVideo       ArtifactKind = "video"
)

// ModelSelection records the winning (region, model) pair from a fallback
// run so the result is reproducible and visible in the artifact header.
type ModelSelection struct {
	Region string `json:"region"`
	Model  string `json:"model"`
}

// Job is the full mutable record the Orchestrator exclusively owns.
type Job struct {
	ID          string          `json:"id"`
	Kind        JobKind         `json:"kind"`
	Status      JobStatus       `json:"status"`
	Stage       string          `json:"stage,omitempty"`
	Progress    int             `json:"progress"`
	Request     JobRequest      `json:"request"`
	Artifacts   ArtifactPaths   `json:"artifacts"`
	Cost        CostLedger      `json:"cost"`
	Error       *JobError       `json:"error,omitempty"`
	PostEditor  *ModelSelection `json:"postEditorModel,omitempty"`
	Translator  *ModelSelection `json:"translatorModel,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	StartedAt   *time.Time      `json:"startedAt,omitempty"`
	EndedAt     *time.Time      `json:"endedAt,omitempty"`
}

// Snapshot returns a shallow copy safe to hand to a reader without holding
// the registry lock, matching the teacher's Manager.Current() pattern.
func (j Job) Snapshot() Job {
	cp := j
	cp.Cost.Items = append([]CostLineItem(nil), j.Cost.Items...)
	cp.Request.RegionList = append([]string(nil), j.Request.RegionList...)
	return cp
}

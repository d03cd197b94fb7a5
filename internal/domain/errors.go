package domain

import "fmt"

// ErrorKind classifies a failure the way the orchestrator and HTTP surface
// need to react to it, independent of the Go error chain that produced it.
type ErrorKind string

const (
	ErrInvalidRequest     ErrorKind = "InvalidRequest"
	ErrNotFound           ErrorKind = "NotFound"
	ErrArtifactNotReady   ErrorKind = "ArtifactNotReady"
	ErrUnsupportedLang    ErrorKind = "UnsupportedLanguage"
	ErrVoiceNotFound      ErrorKind = "VoiceNotFound"
	ErrSourceUnavailable  ErrorKind = "SourceUnavailable"
	ErrQuotaExceeded      ErrorKind = "QuotaExceeded"
	ErrTransientNetwork   ErrorKind = "TransientNetwork"
	ErrTransientRemote    ErrorKind = "TransientRemote"
	ErrBudgetExceeded     ErrorKind = "BudgetExceeded"
	ErrMuxerFailed        ErrorKind = "MuxerFailed"
	ErrCancelled          ErrorKind = "Cancelled"
	ErrInternal           ErrorKind = "Internal"
	ErrAudioFormatReject  ErrorKind = "AudioFormatRejected"
	ErrInputTooLarge      ErrorKind = "InputTooLarge"
)

// JobError is a stage-aware, kind-classified error carried on a Job record.
// It follows the shape of the teacher's PipelineError (Stage, Message, Err)
// with an added Kind and optional remote diagnostic detail.
type JobError struct {
	Kind         ErrorKind `json:"kind"`
	Stage        string    `json:"stage"`
	Message      string    `json:"message"`
	RemoteDetail string    `json:"remoteDetail,omitempty"`
	Err          error     `json:"-"`
}

func (e *JobError) Error() string {
	if e == nil {
		return ""
	}
	if e.Stage == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s[%s]: %s", e.Kind, e.Stage, e.Message)
}

func (e *JobError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewJobError constructs a JobError, wrapping an optional underlying cause.
func NewJobError(kind ErrorKind, stage, message string, cause error) *JobError {
	return &JobError{Kind: kind, Stage: stage, Message: message, Err: cause}
}

// Retryable reports whether the error kind is one the fallback / retry
// drivers in §4.5 and §4.7 should keep iterating on rather than fail fast.
func (k ErrorKind) Retryable() bool {
	switch k {
	case ErrTransientNetwork, ErrTransientRemote, ErrQuotaExceeded:
		return true
	default:
		return false
	}
}

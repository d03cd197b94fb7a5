package orchestrator

import (
	"context"
	"errors"
	"testing"

	"media-dubber/internal/domain"
)

func TestWasCancelledWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pl := &pipeline{ctx: ctx}

	if !pl.wasCancelled(errors.New("some stage error")) {
		t.Fatal("expected a cancelled context to mark the error as cancellation")
	}
}

func TestWasCancelledWhenStageReportsErrCancelled(t *testing.T) {
	pl := &pipeline{ctx: context.Background()}
	err := domain.NewJobError(domain.ErrCancelled, domain.StageRecognize, "job cancelled mid-poll", nil)

	if !pl.wasCancelled(err) {
		t.Fatal("expected ErrCancelled JobError to mark the error as cancellation")
	}
}

func TestWasCancelledFalseForGenuineFailure(t *testing.T) {
	pl := &pipeline{ctx: context.Background()}
	err := domain.NewJobError(domain.ErrTransientRemote, domain.StageTranslate, "translation failed", nil)

	if pl.wasCancelled(err) {
		t.Fatal("expected a genuine stage failure not to be treated as cancellation")
	}
}

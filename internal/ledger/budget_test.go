package ledger

import (
	"errors"
	"testing"

	"media-dubber/internal/domain"
)

func TestCheckBudgetUnboundedWhenCeilingZero(t *testing.T) {
	cost := domain.CostLedger{}
	if err := CheckBudget(cost, 1000, 0); err != nil {
		t.Fatalf("expected no error for zero ceiling, got %v", err)
	}
}

func TestCheckBudgetRejectsProjectedOverage(t *testing.T) {
	cost := domain.CostLedger{}
	cost.AddActual(domain.StageRecognize, 1, 0.006)

	err := CheckBudget(cost, 0.08, 0.01)
	if err == nil {
		t.Fatal("expected budget exceeded error")
	}

	var jobErr *domain.JobError
	if !errors.As(err, &jobErr) {
		t.Fatalf("expected *domain.JobError, got %T", err)
	}
	if jobErr.Kind != domain.ErrBudgetExceeded {
		t.Fatalf("expected ErrBudgetExceeded, got %s", jobErr.Kind)
	}
}

func TestCheckBudgetAllowsWithinCeiling(t *testing.T) {
	cost := domain.CostLedger{}
	cost.AddActual(domain.StageRecognize, 1, 0.003)

	if err := CheckBudget(cost, 0.005, 0.01); err != nil {
		t.Fatalf("expected within-budget stage to pass, got %v", err)
	}
}

func TestQuoteStageAddsLineOnSuccess(t *testing.T) {
	cost := domain.CostLedger{}
	if err := QuoteStage(&cost, domain.StageSynthesize, 100, 0.001, 1.0); err != nil {
		t.Fatalf("QuoteStage: %v", err)
	}
	if len(cost.Items) != 1 || cost.Items[0].Kind != domain.LineQuote {
		t.Fatalf("expected one quote line, got %+v", cost.Items)
	}
	if cost.Total != 0.1 {
		t.Fatalf("expected total 0.1, got %f", cost.Total)
	}
}

func TestQuoteStageRejectsWithoutMutatingLedger(t *testing.T) {
	cost := domain.CostLedger{}
	err := QuoteStage(&cost, domain.StageSynthesize, 5000, 0.001, 0.01)
	if err == nil {
		t.Fatal("expected budget rejection")
	}
	if len(cost.Items) != 0 {
		t.Fatalf("expected no line item recorded on rejection, got %+v", cost.Items)
	}
}

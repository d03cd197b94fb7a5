package ledger

import (
	"fmt"

	"media-dubber/internal/domain"
)

// CheckBudget implements the budget gate from §7: before entering a
// billable stage, the sum of everything already spent or quoted plus the
// new stage's quote must not exceed the job's configured ceiling. A zero
// ceiling means unbounded, matching max_cost_usd_per_job's documented
// default.
func CheckBudget(cost domain.CostLedger, stageQuote, ceiling float64) error {
	if ceiling <= 0 {
		return nil
	}
	projected := cost.Actual() + cost.Expected() + stageQuote
	if projected > ceiling {
		return domain.NewJobError(domain.ErrBudgetExceeded, "", fmt.Sprintf(
			"projected cost %.4f exceeds max_cost_usd_per_job %.4f", projected, ceiling), nil)
	}
	return nil
}

// QuoteStage records a quote line and re-checks the budget gate in one
// call, the shape every billable stage (translate, synthesize) uses
// immediately before making its first remote call.
func QuoteStage(cost *domain.CostLedger, stage string, units, rate, ceiling float64) error {
	quoteAmount := units * rate
	if err := CheckBudget(*cost, quoteAmount, ceiling); err != nil {
		return err
	}
	cost.AddQuote(stage, units, rate)
	return nil
}

package domain

// LineKind distinguishes an expected quote from a realized charge.
type LineKind string

const (
	LineQuote  LineKind = "quote"
	LineActual LineKind = "actual"
)

// CostLineItem is one entry in a Job's CostLedger.
type CostLineItem struct {
	Stage  string   `json:"stage"`
	Kind   LineKind `json:"kind"`
	Units  float64  `json:"units"`
	Rate   float64  `json:"rate"`
	Amount float64  `json:"amount"`
}

// CostLedger accumulates per-stage line items for a single Job. Total is
// always the sum of actuals plus any quotes not yet superseded by an
// actual for the same stage, so the running total is meaningful mid-run.
type CostLedger struct {
	Items []CostLineItem `json:"items"`
	Total float64        `json:"total"`
}

// AddQuote records an expected charge before a billable stage begins.
func (l *CostLedger) AddQuote(stage string, units, rate float64) {
	amount := units * rate
	l.Items = append(l.Items, CostLineItem{Stage: stage, Kind: LineQuote, Units: units, Rate: rate, Amount: amount})
	l.recompute()
}

// AddActual records a realized charge once a billable stage ends,
// superseding any outstanding quote line for the same stage.
func (l *CostLedger) AddActual(stage string, units, rate float64) {
	amount := units * rate
	for i := range l.Items {
		if l.Items[i].Stage == stage && l.Items[i].Kind == LineQuote {
			l.Items = append(l.Items[:i], l.Items[i+1:]...)
			break
		}
	}
	l.Items = append(l.Items, CostLineItem{Stage: stage, Kind: LineActual, Units: units, Rate: rate, Amount: amount})
	l.recompute()
}

// Expected returns the sum of outstanding quote lines, used by the budget
// gate to project whether a new stage would exceed max_cost_usd_per_job.
func (l *CostLedger) Expected() float64 {
	var sum float64
	for _, item := range l.Items {
		if item.Kind == LineQuote {
			sum += item.Amount
		}
	}
	return sum
}

// Actual returns the sum of realized charges recorded so far.
func (l *CostLedger) Actual() float64 {
	var sum float64
	for _, item := range l.Items {
		if item.Kind == LineActual {
			sum += item.Amount
		}
	}
	return sum
}

func (l *CostLedger) recompute() {
	l.Total = l.Actual() + l.Expected()
}

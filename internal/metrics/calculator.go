package metrics

import (
	"math"

	"trade-journal-go/internal/models"
)

// Compute derives P&L, outcome, R-multiple, risk:reward, rule-break count and
// quality grade from a trade's raw fields. It is pure and total: missing
// optional inputs skip the metrics that depend on them, and running it on its
// own output is a no-op. Derived fields on the input are ignored and
// overwritten.
func Compute(t models.Trade) models.Trade {
	t.PnL = computePnL(&t)
	t.Outcome = computeOutcome(&t)
	t.RMultiple, t.RiskReward = computeRiskMetrics(&t)
	t.RuleBreakCount = countRuleBreaks(&t)
	t.Grade = gradeTrade(t.RuleBreakCount, t.Outcome)
	return t
}

// computePnL prefers the price-derived figure; the broker-reported ManualPnL
// is a raw-fact fallback for trades logged without exit price or lot size.
func computePnL(t *models.Trade) *float64 {
	if t.ExitPrice != nil && t.LotSize != nil {
		mult := PipMultiplier(t.Instrument)
		pips := (*t.ExitPrice - t.Entry) * mult
		if t.Direction == models.DirectionShort {
			pips = (t.Entry - *t.ExitPrice) * mult
		}
		pnl := pips * *t.LotSize * DefaultPipValuePerLot
		return &pnl
	}
	if t.ManualPnL != nil {
		pnl := *t.ManualPnL
		return &pnl
	}
	return nil
}

func computeOutcome(t *models.Trade) string {
	if t.PnL == nil {
		return ""
	}
	switch {
	case *t.PnL > 0:
		return models.OutcomeWin
	case *t.PnL < 0:
		return models.OutcomeLoss
	default:
		return models.OutcomeBreakeven
	}
}

// computeRiskMetrics returns the signed R-multiple and the risk:reward ratio.
// Both are omitted when entry, stop or exit is missing, or when the stop sits
// exactly on the entry (zero risk).
func computeRiskMetrics(t *models.Trade) (*float64, *float64) {
	if t.StopLoss == nil || t.ExitPrice == nil {
		return nil, nil
	}
	risk := math.Abs(t.Entry - *t.StopLoss)
	if risk == 0 {
		return nil, nil
	}
	reward := math.Abs(*t.ExitPrice - t.Entry)
	ratio := reward / risk

	favorable := *t.ExitPrice > t.Entry
	if t.Direction == models.DirectionShort {
		favorable = *t.ExitPrice < t.Entry
	}
	r := ratio
	if !favorable {
		r = -ratio
	}
	return &r, &ratio
}

func countRuleBreaks(t *models.Trade) int {
	breaks := 0
	for _, ok := range t.RuleFlags() {
		if !ok {
			breaks++
		}
	}
	return breaks
}

func gradeTrade(ruleBreaks int, outcome string) string {
	switch {
	case ruleBreaks == 0 && outcome == models.OutcomeWin:
		return models.GradeAPlus
	case ruleBreaks >= 2:
		return models.GradeRuleBreak
	default:
		return models.GradeStandard
	}
}

package risk

import (
	"fmt"
	"math"
	"time"

	"trade-journal-go/internal/metrics"
	"trade-journal-go/internal/models"
)

// Evaluation is the outcome of checking one candidate trade against the
// user's risk configuration and the trades already logged today. Violations
// are hard rule breaches; warnings are advisory (typically missing sizing
// inputs) and never block a trade.
type Evaluation struct {
	Allowed     bool     `json:"allowed"`
	Enforcement string   `json:"enforcement"`
	Violations  []string `json:"violations"`
	Warnings    []string `json:"warnings"`

	SuggestedLot *float64 `json:"suggested_lot,omitempty"`
	DollarRisk   *float64 `json:"dollar_risk,omitempty"`
}

// DayWindow returns the UTC calendar-day interval [start, start+24h)
// containing t. The risk evaluator scopes "today" to this window.
func DayWindow(t time.Time) (time.Time, time.Time) {
	u := t.UTC()
	start := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24 * time.Hour)
}

// Evaluate runs every violation check (no short-circuiting, so the caller can
// present the full list) and computes advisory position sizing. In "block"
// enforcement mode any violation rejects the trade; in "warn" mode the trade
// is allowed and the violations are reported for display.
func Evaluate(prefs models.RiskPreferences, todaysTrades []models.Trade, candidate models.Trade) Evaluation {
	ev := Evaluation{
		Enforcement: prefs.Enforcement,
		Violations:  []string{},
		Warnings:    []string{},
	}

	tradesToday := len(todaysTrades)
	lossesToday := 0
	netToday := 0.0
	for _, t := range todaysTrades {
		if t.PnL != nil {
			netToday += *t.PnL
		}
		if t.Outcome == models.OutcomeLoss {
			lossesToday++
		}
	}

	if prefs.MaxTradesPerDay > 0 && tradesToday >= prefs.MaxTradesPerDay {
		ev.Violations = append(ev.Violations,
			fmt.Sprintf("daily trade limit reached (%d/%d)", tradesToday, prefs.MaxTradesPerDay))
	}
	if prefs.StopAfterLosses > 0 && lossesToday >= prefs.StopAfterLosses {
		ev.Violations = append(ev.Violations,
			fmt.Sprintf("stop-after-losses hit: %d losses today (limit %d)", lossesToday, prefs.StopAfterLosses))
	}
	if prefs.MaxDailyLoss > 0 && netToday <= -prefs.MaxDailyLoss {
		ev.Violations = append(ev.Violations,
			fmt.Sprintf("daily loss limit hit: today %.2f (limit -%.2f)", netToday, prefs.MaxDailyLoss))
	}
	if prefs.MaxDailyLossPct > 0 {
		limit := prefs.AccountBalance * prefs.MaxDailyLossPct / 100
		if netToday <= -limit {
			ev.Violations = append(ev.Violations,
				fmt.Sprintf("daily loss limit hit: today %.2f (limit -%.2f, %.1f%% of balance)",
					netToday, limit, prefs.MaxDailyLossPct))
		}
	}

	ev.suggestSize(prefs, candidate)

	ev.Allowed = prefs.Enforcement != models.EnforcementBlock || len(ev.Violations) == 0
	return ev
}

// suggestSize resolves the dollar amount at risk and, when all inputs are
// present, a suggested lot size. Sizing is advisory: a missing input produces
// a warning, never a violation.
func (ev *Evaluation) suggestSize(prefs models.RiskPreferences, candidate models.Trade) {
	dollarRisk := resolveDollarRisk(prefs, candidate)
	if dollarRisk <= 0 {
		ev.Warnings = append(ev.Warnings,
			"cannot suggest a position size: no dollar risk configured (set a fixed amount or a percent of balance)")
		return
	}
	ev.DollarRisk = &dollarRisk

	if candidate.StopLoss == nil {
		ev.Warnings = append(ev.Warnings,
			"cannot suggest a position size: no stop loss on this trade")
		return
	}
	if candidate.Entry == 0 || candidate.Instrument == "" {
		ev.Warnings = append(ev.Warnings,
			"cannot suggest a position size: entry price and instrument are required")
		return
	}

	pipsAtRisk := math.Abs(candidate.Entry-*candidate.StopLoss) * metrics.PipMultiplier(candidate.Instrument)
	if pipsAtRisk == 0 {
		ev.Warnings = append(ev.Warnings,
			"cannot suggest a position size: stop loss sits on the entry price")
		return
	}

	pipValue := prefs.PipValuePerLot
	if pipValue <= 0 {
		pipValue = metrics.DefaultPipValuePerLot
	}
	lot := dollarRisk / (pipsAtRisk * pipValue)
	ev.SuggestedLot = &lot
}

// resolveDollarRisk prefers an explicit per-trade override, then the
// configured risk mode.
func resolveDollarRisk(prefs models.RiskPreferences, candidate models.Trade) float64 {
	if candidate.DollarRisk != nil && *candidate.DollarRisk > 0 {
		return *candidate.DollarRisk
	}
	switch prefs.RiskMode {
	case models.RiskModeFixed:
		return prefs.RiskAmount
	case models.RiskModePercent:
		return prefs.AccountBalance * prefs.RiskPercent / 100
	}
	return 0
}

package analytics

import (
	"math"
	"sort"
	"time"

	"trade-journal-go/internal/models"
)

// EquityPoint is one step of the cumulative P&L curve.
type EquityPoint struct {
	Date   time.Time `json:"date"`
	Equity float64   `json:"equity"`
}

// KPIReport holds the headline performance numbers for a trade history.
// ProfitFactor is math.Inf(1) when there is profit and no loss.
type KPIReport struct {
	TotalTrades int `json:"total_trades"`
	Wins        int `json:"wins"`
	Losses      int `json:"losses"`
	Breakevens  int `json:"breakevens"`

	NetPnL       float64 `json:"net_pnl"`
	GrossProfit  float64 `json:"gross_profit"`
	GrossLoss    float64 `json:"gross_loss"`
	WinRate      float64 `json:"win_rate"`
	ProfitFactor float64 `json:"-"`
	AvgWin       float64 `json:"avg_win"`
	AvgLoss      float64 `json:"avg_loss"`
	Expectancy   float64 `json:"expectancy"`
	AvgRR        float64 `json:"avg_rr"`

	MaxDrawdown float64       `json:"max_drawdown"`
	EquityCurve []EquityPoint `json:"equity_curve"`
}

// ComputeKPIs aggregates a trade history into headline KPIs. Empty input
// yields a zeroed report, never an error. Trades are processed in ascending
// date order regardless of input order.
func ComputeKPIs(trades []models.Trade) KPIReport {
	ordered := sortedByDate(trades)

	report := KPIReport{
		TotalTrades: len(ordered),
		EquityCurve: make([]EquityPoint, 0, len(ordered)),
	}

	equity := 0.0
	peak := 0.0
	rrSum := 0.0
	rrCount := 0

	for _, t := range ordered {
		if t.PnL != nil {
			equity += *t.PnL
			report.NetPnL += *t.PnL
		}
		report.EquityCurve = append(report.EquityCurve, EquityPoint{Date: t.TradeDate, Equity: equity})

		if equity > peak {
			peak = equity
		}
		if peak > 0 && peak-equity > report.MaxDrawdown {
			report.MaxDrawdown = peak - equity
		}

		// A stored outcome can arrive without a P&L figure; count it but
		// leave the gross totals untouched.
		switch outcomeOf(&t) {
		case models.OutcomeWin:
			report.Wins++
			if t.PnL != nil {
				report.GrossProfit += *t.PnL
			}
		case models.OutcomeLoss:
			report.Losses++
			if t.PnL != nil {
				report.GrossLoss += math.Abs(*t.PnL)
			}
		case models.OutcomeBreakeven:
			report.Breakevens++
		}

		if rr, ok := effectiveRR(&t); ok {
			rrSum += rr
			rrCount++
		}
	}

	decided := report.Wins + report.Losses
	if decided > 0 {
		report.WinRate = float64(report.Wins) / float64(decided)
	}
	if report.Wins > 0 {
		report.AvgWin = report.GrossProfit / float64(report.Wins)
	}
	if report.Losses > 0 {
		report.AvgLoss = report.GrossLoss / float64(report.Losses)
	}
	report.ProfitFactor = profitFactor(report.GrossProfit, report.GrossLoss)
	report.Expectancy = report.WinRate*report.AvgWin - (1-report.WinRate)*report.AvgLoss
	if rrCount > 0 {
		report.AvgRR = rrSum / float64(rrCount)
	}
	return report
}

func profitFactor(grossProfit, grossLoss float64) float64 {
	if grossLoss > 0 {
		return grossProfit / grossLoss
	}
	if grossProfit > 0 {
		return math.Inf(1)
	}
	return 0
}

// effectiveRR picks the trade's R value: the explicit risk:reward ratio,
// else the absolute R-multiple, else a ratio derived from raw prices.
func effectiveRR(t *models.Trade) (float64, bool) {
	if t.RiskReward != nil {
		return *t.RiskReward, true
	}
	if t.RMultiple != nil {
		return math.Abs(*t.RMultiple), true
	}
	if t.StopLoss != nil && t.ExitPrice != nil {
		risk := math.Abs(t.Entry - *t.StopLoss)
		if risk > 0 {
			return math.Abs(*t.ExitPrice-t.Entry) / risk, true
		}
	}
	return 0, false
}

// outcomeOf falls back to the P&L sign when the stored outcome is absent.
// Trades with neither are skipped by the aggregations.
func outcomeOf(t *models.Trade) string {
	if t.Outcome != "" {
		return t.Outcome
	}
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

func sortedByDate(trades []models.Trade) []models.Trade {
	ordered := make([]models.Trade, len(trades))
	copy(ordered, trades)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].TradeDate.Before(ordered[j].TradeDate)
	})
	return ordered
}

package analytics

import (
	"sort"

	"trade-journal-go/internal/models"
)

// MinPatternSample is the smallest sample a pattern statistic may be reported
// on; callers must suppress anything below it as statistically unreliable.
const MinPatternSample = 10

// Bucket accumulates the trades sharing one key.
type Bucket struct {
	Key        string  `json:"key"`
	Trades     int     `json:"trades"`
	Wins       int     `json:"wins"`
	Losses     int     `json:"losses"`
	Breakevens int     `json:"breakevens"`
	NetPnL     float64 `json:"net_pnl"`
	WinRate    float64 `json:"win_rate"`
}

// Bucketize groups trades by a caller-supplied key (empty keys fall back to
// fallbackLabel) and ranks the buckets: trade count descending, then win rate
// descending, then net P&L descending, then key ascending.
func Bucketize(trades []models.Trade, keyFn func(models.Trade) string, fallbackLabel string) []Bucket {
	buckets := map[string]*Bucket{}
	for _, t := range trades {
		key := keyFn(t)
		if key == "" {
			key = fallbackLabel
		}
		b, ok := buckets[key]
		if !ok {
			b = &Bucket{Key: key}
			buckets[key] = b
		}
		b.Trades++
		switch outcomeOf(&t) {
		case models.OutcomeWin:
			b.Wins++
		case models.OutcomeLoss:
			b.Losses++
		case models.OutcomeBreakeven:
			b.Breakevens++
		}
		if t.PnL != nil {
			b.NetPnL += *t.PnL
		}
	}

	ranked := make([]Bucket, 0, len(buckets))
	for _, b := range buckets {
		if decided := b.Wins + b.Losses; decided > 0 {
			b.WinRate = float64(b.Wins) / float64(decided)
		}
		ranked = append(ranked, *b)
	}
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Trades != b.Trades {
			return a.Trades > b.Trades
		}
		if a.WinRate != b.WinRate {
			return a.WinRate > b.WinRate
		}
		if a.NetPnL != b.NetPnL {
			return a.NetPnL > b.NetPnL
		}
		return a.Key < b.Key
	})
	return ranked
}

// WinRateAfterLossStreak scans trades in chronological order and samples every
// trade taken while the running consecutive-loss counter is already at least
// streakLength. It answers "how do I trade right after a losing streak".
// Callers must treat samples below MinPatternSample as unreliable.
func WinRateAfterLossStreak(tradesAscending []models.Trade, streakLength int) (sample int, winRate float64) {
	if streakLength <= 0 {
		return 0, 0
	}
	streak := 0
	wins := 0
	for _, t := range tradesAscending {
		outcome := outcomeOf(&t)
		if streak >= streakLength {
			sample++
			if outcome == models.OutcomeWin {
				wins++
			}
		}
		if outcome == models.OutcomeLoss {
			streak++
		} else {
			streak = 0
		}
	}
	if sample > 0 {
		winRate = float64(wins) / float64(sample)
	}
	return sample, winRate
}

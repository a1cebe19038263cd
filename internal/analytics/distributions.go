package analytics

import (
	"math"
	"sort"

	"trade-journal-go/internal/models"
)

// InstrumentPnL totals one instrument's results. Turnover (gross profit plus
// gross loss magnitude) is the ranking key for "most traded" lists.
type InstrumentPnL struct {
	Instrument  string  `json:"instrument"`
	Trades      int     `json:"trades"`
	NetPnL      float64 `json:"net_pnl"`
	GrossProfit float64 `json:"gross_profit"`
	GrossLoss   float64 `json:"gross_loss"`
}

// Distributions holds frequency counts over a trade history plus
// per-instrument P&L totals sorted by absolute turnover descending.
type Distributions struct {
	ByInstrument map[string]int  `json:"by_instrument"`
	ByDirection  map[string]int  `json:"by_direction"`
	ByOutcome    map[string]int  `json:"by_outcome"`
	BySession    map[string]int  `json:"by_session"`
	Instruments  []InstrumentPnL `json:"instruments"`
}

// ComputeDistributions is read-only and tolerant of empty input.
func ComputeDistributions(trades []models.Trade) Distributions {
	d := Distributions{
		ByInstrument: map[string]int{},
		ByDirection:  map[string]int{},
		ByOutcome:    map[string]int{},
		BySession:    map[string]int{},
	}

	totals := map[string]*InstrumentPnL{}
	for _, t := range trades {
		d.ByInstrument[t.Instrument]++
		d.ByDirection[t.Direction]++
		if outcome := outcomeOf(&t); outcome != "" {
			d.ByOutcome[outcome]++
		}
		if t.Session != "" {
			d.BySession[t.Session]++
		}

		total, ok := totals[t.Instrument]
		if !ok {
			total = &InstrumentPnL{Instrument: t.Instrument}
			totals[t.Instrument] = total
		}
		total.Trades++
		if t.PnL != nil {
			total.NetPnL += *t.PnL
			if *t.PnL > 0 {
				total.GrossProfit += *t.PnL
			} else {
				total.GrossLoss += math.Abs(*t.PnL)
			}
		}
	}

	d.Instruments = make([]InstrumentPnL, 0, len(totals))
	for _, total := range totals {
		d.Instruments = append(d.Instruments, *total)
	}
	sort.Slice(d.Instruments, func(i, j int) bool {
		a, b := d.Instruments[i], d.Instruments[j]
		turnoverA := a.GrossProfit + a.GrossLoss
		turnoverB := b.GrossProfit + b.GrossLoss
		if turnoverA != turnoverB {
			return turnoverA > turnoverB
		}
		return a.Instrument < b.Instrument
	})
	return d
}

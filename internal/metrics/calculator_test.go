package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-journal-go/internal/models"
)

func f(v float64) *float64 { return &v }

func compliantTrade() models.Trade {
	return models.Trade{
		UserID:          "user-1",
		Instrument:      "EURUSD",
		Direction:       models.DirectionLong,
		Entry:           1.1000,
		TradeDate:       time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
		RiskRespected:   true,
		NoEarlyExit:     true,
		ValidPDArray:    true,
		CorrectSession:  true,
		FollowedHTFBias: true,
	}
}

func TestCompute_PnL(t *testing.T) {
	testCases := []struct {
		name        string
		instrument  string
		direction   string
		entry       float64
		exit        *float64
		lot         *float64
		manualPnL   *float64
		expectedPnL *float64
	}{
		{
			name:       "long forex pair",
			instrument: "EURUSD",
			direction:  models.DirectionLong,
			entry:      1.1000,
			exit:       f(1.1050),
			lot:        f(1.0),
			// 50 pips * 1 lot * $10/pip
			expectedPnL: f(500),
		},
		{
			name:        "short forex pair in profit",
			instrument:  "GBPUSD",
			direction:   models.DirectionShort,
			entry:       1.2500,
			exit:        f(1.2450),
			lot:         f(0.5),
			expectedPnL: f(250),
		},
		{
			name:       "jpy quoted pair uses 0.01 pips",
			instrument: "USDJPY",
			direction:  models.DirectionShort,
			entry:      145.00,
			exit:       f(144.50),
			lot:        f(0.5),
			// 50 pips * 0.5 lot * $10/pip
			expectedPnL: f(250),
		},
		{
			name:       "gold uses 0.1 pips",
			instrument: "XAUUSD",
			direction:  models.DirectionLong,
			entry:      1900.0,
			exit:       f(1910.0),
			lot:        f(0.1),
			// 100 pips * 0.1 lot * $10/pip
			expectedPnL: f(100),
		},
		{
			name:        "losing long",
			instrument:  "EURUSD",
			direction:   models.DirectionLong,
			entry:       1.1000,
			exit:        f(1.0950),
			lot:         f(1.0),
			expectedPnL: f(-500),
		},
		{
			name:        "manual pnl used when exit missing",
			instrument:  "EURUSD",
			direction:   models.DirectionLong,
			entry:       1.1000,
			manualPnL:   f(-120),
			expectedPnL: f(-120),
		},
		{
			name:        "no exit and no lot and no manual pnl",
			instrument:  "EURUSD",
			direction:   models.DirectionLong,
			entry:       1.1000,
			expectedPnL: nil,
		},
		{
			name:        "price-derived pnl wins over manual",
			instrument:  "EURUSD",
			direction:   models.DirectionLong,
			entry:       1.1000,
			exit:        f(1.1050),
			lot:         f(1.0),
			manualPnL:   f(9999),
			expectedPnL: f(500),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			trade := compliantTrade()
			trade.Instrument = tc.instrument
			trade.Direction = tc.direction
			trade.Entry = tc.entry
			trade.ExitPrice = tc.exit
			trade.LotSize = tc.lot
			trade.ManualPnL = tc.manualPnL

			result := Compute(trade)

			if tc.expectedPnL == nil {
				assert.Nil(t, result.PnL)
			} else {
				require.NotNil(t, result.PnL)
				assert.InDelta(t, *tc.expectedPnL, *result.PnL, 1e-6)
			}
		})
	}
}

func TestCompute_Outcome(t *testing.T) {
	trade := compliantTrade()
	trade.ExitPrice = f(1.1050)
	trade.LotSize = f(1.0)
	assert.Equal(t, models.OutcomeWin, Compute(trade).Outcome)

	trade.ExitPrice = f(1.0950)
	assert.Equal(t, models.OutcomeLoss, Compute(trade).Outcome)

	trade.ExitPrice = f(1.1000)
	assert.Equal(t, models.OutcomeBreakeven, Compute(trade).Outcome)

	trade.ExitPrice = nil
	trade.LotSize = nil
	assert.Equal(t, "", Compute(trade).Outcome)
}

func TestCompute_RMultipleAndRiskReward(t *testing.T) {
	trade := compliantTrade()
	trade.StopLoss = f(1.0950)
	trade.ExitPrice = f(1.1100)

	result := Compute(trade)
	require.NotNil(t, result.RMultiple)
	require.NotNil(t, result.RiskReward)
	// risk 50 pips, reward 100 pips, favorable for a long
	assert.InDelta(t, 2.0, *result.RMultiple, 1e-9)
	assert.InDelta(t, 2.0, *result.RiskReward, 1e-9)

	// Same distances against the direction: negative R, positive ratio.
	trade.Direction = models.DirectionShort
	result = Compute(trade)
	require.NotNil(t, result.RMultiple)
	assert.InDelta(t, -2.0, *result.RMultiple, 1e-9)
	assert.InDelta(t, 2.0, *result.RiskReward, 1e-9)
}

func TestCompute_ZeroRiskOmitsRMetrics(t *testing.T) {
	trade := compliantTrade()
	trade.StopLoss = f(1.1000) // stop on the entry
	trade.ExitPrice = f(1.1100)

	result := Compute(trade)
	assert.Nil(t, result.RMultiple)
	assert.Nil(t, result.RiskReward)
}

func TestCompute_Grades(t *testing.T) {
	testCases := []struct {
		name          string
		brokenFlags   int
		exit          float64
		expectedGrade string
	}{
		{"no breaks and a win is A+", 0, 1.1050, models.GradeAPlus},
		{"no breaks and a loss is Standard", 0, 1.0950, models.GradeStandard},
		{"one break and a win is Standard", 1, 1.1050, models.GradeStandard},
		{"one break and a loss is Standard", 1, 1.0950, models.GradeStandard},
		{"two breaks is Rule Break even on a win", 2, 1.1050, models.GradeRuleBreak},
		{"five breaks is Rule Break", 5, 1.0950, models.GradeRuleBreak},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			trade := compliantTrade()
			trade.ExitPrice = f(tc.exit)
			trade.LotSize = f(1.0)
			flags := []*bool{&trade.RiskRespected, &trade.NoEarlyExit, &trade.ValidPDArray, &trade.CorrectSession, &trade.FollowedHTFBias}
			for i := 0; i < tc.brokenFlags; i++ {
				*flags[i] = false
			}

			result := Compute(trade)
			assert.Equal(t, tc.brokenFlags, result.RuleBreakCount)
			assert.Equal(t, tc.expectedGrade, result.Grade)
		})
	}
}

func TestCompute_IsIdempotent(t *testing.T) {
	trade := compliantTrade()
	trade.StopLoss = f(1.0950)
	trade.ExitPrice = f(1.1100)
	trade.LotSize = f(2.0)
	trade.NoEarlyExit = false

	once := Compute(trade)
	twice := Compute(once)
	assert.Equal(t, once, twice)

	// Stale derived fields on the input are ignored and overwritten.
	dirty := trade
	dirty.PnL = f(1234)
	dirty.Outcome = models.OutcomeLoss
	dirty.Grade = models.GradeAPlus
	assert.Equal(t, once, Compute(dirty))
}

func TestPipMultiplier(t *testing.T) {
	assert.Equal(t, 10000.0, PipMultiplier("EURUSD"))
	assert.Equal(t, 10000.0, PipMultiplier("eur/usd"))
	assert.Equal(t, 100.0, PipMultiplier("USDJPY"))
	assert.Equal(t, 100.0, PipMultiplier("GBP_JPY"))
	assert.Equal(t, 10.0, PipMultiplier("XAUUSD"))
	assert.Equal(t, 10.0, PipMultiplier("xag-usd"))
}

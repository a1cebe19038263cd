package journal

import (
	"time"

	"trade-journal-go/internal/models"
)

// TradeInput carries the raw facts of a trade as supplied by the client.
// Derived fields (P&L, outcome, grade) are deliberately absent: the engine
// owns those and recomputes them on every write.
type TradeInput struct {
	Instrument string  `json:"instrument"`
	Direction  string  `json:"direction"`
	Entry      float64 `json:"entry"`

	StopLoss   *float64 `json:"stop_loss,omitempty"`
	TakeProfit *float64 `json:"take_profit,omitempty"`
	ExitPrice  *float64 `json:"exit_price,omitempty"`
	LotSize    *float64 `json:"lot_size,omitempty"`
	ManualPnL  *float64 `json:"manual_pnl,omitempty"`

	// DollarRisk is an optional per-trade override for the sizing advice.
	DollarRisk *float64 `json:"dollar_risk,omitempty"`

	TradeDate time.Time  `json:"trade_date"`
	EntryTime *time.Time `json:"entry_time,omitempty"`
	ExitTime  *time.Time `json:"exit_time,omitempty"`

	Session string `json:"session,omitempty"`
	Setup   string `json:"setup,omitempty"`
	Emotion string `json:"emotion,omitempty"`
	Notes   string `json:"notes,omitempty"`

	RiskRespected   bool `json:"risk_respected"`
	NoEarlyExit     bool `json:"no_early_exit"`
	ValidPDArray    bool `json:"valid_pd_array"`
	CorrectSession  bool `json:"correct_session"`
	FollowedHTFBias bool `json:"followed_htf_bias"`
}

// TradePatch is a partial update: nil fields are left unchanged on the
// stored trade.
type TradePatch struct {
	Instrument *string  `json:"instrument,omitempty"`
	Direction  *string  `json:"direction,omitempty"`
	Entry      *float64 `json:"entry,omitempty"`

	StopLoss   *float64 `json:"stop_loss,omitempty"`
	TakeProfit *float64 `json:"take_profit,omitempty"`
	ExitPrice  *float64 `json:"exit_price,omitempty"`
	LotSize    *float64 `json:"lot_size,omitempty"`
	ManualPnL  *float64 `json:"manual_pnl,omitempty"`

	TradeDate *time.Time `json:"trade_date,omitempty"`
	EntryTime *time.Time `json:"entry_time,omitempty"`
	ExitTime  *time.Time `json:"exit_time,omitempty"`

	Session *string `json:"session,omitempty"`
	Setup   *string `json:"setup,omitempty"`
	Emotion *string `json:"emotion,omitempty"`
	Notes   *string `json:"notes,omitempty"`

	RiskRespected   *bool `json:"risk_respected,omitempty"`
	NoEarlyExit     *bool `json:"no_early_exit,omitempty"`
	ValidPDArray    *bool `json:"valid_pd_array,omitempty"`
	CorrectSession  *bool `json:"correct_session,omitempty"`
	FollowedHTFBias *bool `json:"followed_htf_bias,omitempty"`
}

func (in TradeInput) toTrade(userID string) models.Trade {
	tradeDate := in.TradeDate
	if tradeDate.IsZero() {
		tradeDate = time.Now().UTC()
	}
	return models.Trade{
		UserID:          userID,
		Instrument:      in.Instrument,
		Direction:       in.Direction,
		Entry:           in.Entry,
		StopLoss:        in.StopLoss,
		TakeProfit:      in.TakeProfit,
		ExitPrice:       in.ExitPrice,
		LotSize:         in.LotSize,
		ManualPnL:       in.ManualPnL,
		DollarRisk:      in.DollarRisk,
		TradeDate:       tradeDate,
		EntryTime:       in.EntryTime,
		ExitTime:        in.ExitTime,
		Session:         in.Session,
		Setup:           in.Setup,
		Emotion:         in.Emotion,
		Notes:           in.Notes,
		RiskRespected:   in.RiskRespected,
		NoEarlyExit:     in.NoEarlyExit,
		ValidPDArray:    in.ValidPDArray,
		CorrectSession:  in.CorrectSession,
		FollowedHTFBias: in.FollowedHTFBias,
	}
}

// applyPatch produces a new candidate snapshot; the stored trade is never
// mutated before the candidate validates.
func applyPatch(current models.Trade, patch TradePatch) models.Trade {
	t := current
	if patch.Instrument != nil {
		t.Instrument = *patch.Instrument
	}
	if patch.Direction != nil {
		t.Direction = *patch.Direction
	}
	if patch.Entry != nil {
		t.Entry = *patch.Entry
	}
	if patch.StopLoss != nil {
		t.StopLoss = patch.StopLoss
	}
	if patch.TakeProfit != nil {
		t.TakeProfit = patch.TakeProfit
	}
	if patch.ExitPrice != nil {
		t.ExitPrice = patch.ExitPrice
	}
	if patch.LotSize != nil {
		t.LotSize = patch.LotSize
	}
	if patch.ManualPnL != nil {
		t.ManualPnL = patch.ManualPnL
	}
	if patch.TradeDate != nil {
		t.TradeDate = *patch.TradeDate
	}
	if patch.EntryTime != nil {
		t.EntryTime = patch.EntryTime
	}
	if patch.ExitTime != nil {
		t.ExitTime = patch.ExitTime
	}
	if patch.Session != nil {
		t.Session = *patch.Session
	}
	if patch.Setup != nil {
		t.Setup = *patch.Setup
	}
	if patch.Emotion != nil {
		t.Emotion = *patch.Emotion
	}
	if patch.Notes != nil {
		t.Notes = *patch.Notes
	}
	if patch.RiskRespected != nil {
		t.RiskRespected = *patch.RiskRespected
	}
	if patch.NoEarlyExit != nil {
		t.NoEarlyExit = *patch.NoEarlyExit
	}
	if patch.ValidPDArray != nil {
		t.ValidPDArray = *patch.ValidPDArray
	}
	if patch.CorrectSession != nil {
		t.CorrectSession = *patch.CorrectSession
	}
	if patch.FollowedHTFBias != nil {
		t.FollowedHTFBias = *patch.FollowedHTFBias
	}
	return t
}

// validateTrade checks the raw facts of a candidate trade before any
// computation runs.
func validateTrade(t *models.Trade) error {
	if t.Instrument == "" {
		return &ValidationError{Field: "instrument", Reason: "must not be empty"}
	}
	if t.Direction != models.DirectionLong && t.Direction != models.DirectionShort {
		return &ValidationError{Field: "direction", Reason: `must be "long" or "short"`}
	}
	if t.Entry <= 0 {
		return &ValidationError{Field: "entry", Reason: "must be a positive price"}
	}
	if t.StopLoss != nil && *t.StopLoss <= 0 {
		return &ValidationError{Field: "stop_loss", Reason: "must be a positive price"}
	}
	if t.TakeProfit != nil && *t.TakeProfit <= 0 {
		return &ValidationError{Field: "take_profit", Reason: "must be a positive price"}
	}
	if t.ExitPrice != nil && *t.ExitPrice <= 0 {
		return &ValidationError{Field: "exit_price", Reason: "must be a positive price"}
	}
	if t.LotSize != nil && *t.LotSize <= 0 {
		return &ValidationError{Field: "lot_size", Reason: "must be positive"}
	}
	return nil
}

// validatePreferences checks a risk configuration before it is saved.
func validatePreferences(p *models.RiskPreferences) error {
	if p.RiskMode != models.RiskModeFixed && p.RiskMode != models.RiskModePercent {
		return &ValidationError{Field: "risk_mode", Reason: `must be "fixed" or "percent"`}
	}
	if p.Enforcement != models.EnforcementBlock && p.Enforcement != models.EnforcementWarn {
		return &ValidationError{Field: "enforcement", Reason: `must be "block" or "warn"`}
	}
	if p.AccountBalance < 0 {
		return &ValidationError{Field: "account_balance", Reason: "must not be negative"}
	}
	if p.RiskPercent < 0 || p.RiskPercent > 100 {
		return &ValidationError{Field: "risk_percent", Reason: "must be between 0 and 100"}
	}
	if p.MaxDailyLossPct < 0 || p.MaxDailyLossPct > 100 {
		return &ValidationError{Field: "max_daily_loss_pct", Reason: "must be between 0 and 100"}
	}
	return nil
}

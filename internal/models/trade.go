package models

import "time"

// Trade direction values.
const (
	DirectionLong  = "long"
	DirectionShort = "short"
)

// Trade outcome values, derived from the sign of P&L.
const (
	OutcomeWin       = "win"
	OutcomeLoss      = "loss"
	OutcomeBreakeven = "breakeven"
)

// Trade quality grades.
const (
	GradeAPlus     = "A+"
	GradeRuleBreak = "Rule Break"
	GradeStandard  = "Standard"
)

// Trade represents one logged position. Raw execution facts and rule flags are
// client input; every derived field is recomputed by the metrics calculator on
// each write and never trusted from the client.
type Trade struct {
	ID     string `gorm:"primaryKey" json:"id"`
	UserID string `gorm:"index:idx_user_date" json:"user_id"`

	Instrument string  `gorm:"not null" json:"instrument"`
	Direction  string  `gorm:"not null" json:"direction"` // "long" or "short"
	Entry      float64 `json:"entry"`

	StopLoss   *float64 `json:"stop_loss,omitempty"`
	TakeProfit *float64 `json:"take_profit,omitempty"`
	ExitPrice  *float64 `json:"exit_price,omitempty"`
	LotSize    *float64 `json:"lot_size,omitempty"`

	// ManualPnL is the broker-reported P&L, used only when the price-derived
	// P&L cannot be computed (missing exit price or lot size).
	ManualPnL *float64 `json:"manual_pnl,omitempty"`

	TradeDate time.Time  `gorm:"index:idx_user_date" json:"trade_date"`
	EntryTime *time.Time `json:"entry_time,omitempty"`
	ExitTime  *time.Time `json:"exit_time,omitempty"`

	Session string `json:"session,omitempty"`
	Setup   string `json:"setup,omitempty"`
	Emotion string `json:"emotion,omitempty"`
	Notes   string `json:"notes,omitempty"`

	// Rule-compliance flags.
	RiskRespected   bool `json:"risk_respected"`
	NoEarlyExit     bool `json:"no_early_exit"`
	ValidPDArray    bool `json:"valid_pd_array"`
	CorrectSession  bool `json:"correct_session"`
	FollowedHTFBias bool `json:"followed_htf_bias"`

	// Derived fields, owned by the metrics calculator.
	PnL            *float64 `json:"pnl,omitempty"`
	Outcome        string   `json:"outcome,omitempty"`
	RMultiple      *float64 `json:"r_multiple,omitempty"`
	RiskReward     *float64 `json:"risk_reward,omitempty"`
	RuleBreakCount int      `json:"rule_break_count"`
	Grade          string   `json:"grade,omitempty"`

	// Risk-engine patch, filled on the write path.
	SuggestedLot *float64 `json:"suggested_lot,omitempty"`
	DollarRisk   *float64 `json:"dollar_risk,omitempty"`
	Violations   []string `gorm:"serializer:json" json:"violations,omitempty"`
	Warnings     []string `gorm:"serializer:json" json:"warnings,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RuleFlags returns the five compliance flags in a fixed order.
func (t *Trade) RuleFlags() [5]bool {
	return [5]bool{t.RiskRespected, t.NoEarlyExit, t.ValidPDArray, t.CorrectSession, t.FollowedHTFBias}
}

package models

// Risk modes for resolving the dollar amount at risk per trade.
const (
	RiskModeFixed   = "fixed"   // flat dollar amount
	RiskModePercent = "percent" // percent of account balance
)

// Enforcement modes for risk-rule violations.
const (
	EnforcementBlock = "block" // violating trades are rejected
	EnforcementWarn  = "warn"  // violating trades are accepted but flagged
)

// RiskPreferences holds one user's risk configuration, read by the risk
// evaluator on every trade write.
type RiskPreferences struct {
	UserID string `gorm:"primaryKey" json:"user_id"`

	AccountBalance float64 `json:"account_balance"`

	RiskMode    string  `json:"risk_mode"` // "fixed" or "percent"
	RiskAmount  float64 `json:"risk_amount"`
	RiskPercent float64 `json:"risk_percent"`

	// PipValuePerLot is the account-currency value of one pip for one
	// standard lot. Defaults to 10.
	PipValuePerLot float64 `json:"pip_value_per_lot"`

	MaxTradesPerDay int `json:"max_trades_per_day"`
	StopAfterLosses int `json:"stop_after_losses"`

	MaxDailyLoss    float64 `json:"max_daily_loss"`
	MaxDailyLossPct float64 `json:"max_daily_loss_pct"`

	Enforcement string `json:"enforcement"` // "block" or "warn"
}

// DefaultRiskPreferences is the configuration a user trades under before
// saving their own: advisory-only enforcement and standard pip value, with
// no daily limits armed.
func DefaultRiskPreferences(userID string) RiskPreferences {
	return RiskPreferences{
		UserID:         userID,
		RiskMode:       RiskModePercent,
		RiskPercent:    1,
		PipValuePerLot: 10,
		Enforcement:    EnforcementWarn,
	}
}

package journal

import (
	"errors"
	"fmt"
	"strings"

	"trade-journal-go/internal/risk"
)

// ErrTradeNotFound is returned for operations addressed to a trade id that
// does not exist or belongs to another user.
var ErrTradeNotFound = errors.New("trade not found")

// ValidationError reports a malformed or out-of-range input field. It is
// surfaced before any computation runs.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// RiskError is a block-mode policy rejection. It is a deterministic
// business-rule outcome, not a system fault, and carries the full violation
// list so the caller can present "blocked by your own rules".
type RiskError struct {
	Evaluation risk.Evaluation
}

func (e *RiskError) Error() string {
	return "trade blocked by risk rules: " + strings.Join(e.Evaluation.Violations, "; ")
}

package store

import (
	"context"
	"errors"
	"time"

	"trade-journal-go/internal/models"
)

// ErrNotFound is returned when a record does not exist or is owned by a
// different user.
var ErrNotFound = errors.New("record not found")

// TradeFilter narrows trade queries. The zero value matches everything for
// the given user. From is inclusive, To exclusive.
type TradeFilter struct {
	UserID     string
	Instrument string
	Session    string
	From       *time.Time
	To         *time.Time
}

// TradeStore is the persistence boundary for trades. Queries return trades
// ordered by trade date ascending.
type TradeStore interface {
	List(ctx context.Context, f TradeFilter) ([]models.Trade, error)
	Get(ctx context.Context, userID, id string) (models.Trade, error)
	Insert(ctx context.Context, t *models.Trade) error
	Update(ctx context.Context, t *models.Trade) error
	Delete(ctx context.Context, userID, id string) error
	Count(ctx context.Context, f TradeFilter) (int64, error)
}

// PreferenceStore is the persistence boundary for per-user risk configuration.
type PreferenceStore interface {
	// GetPreferences returns the stored configuration, or the defaults when
	// the user has never saved one.
	GetPreferences(ctx context.Context, userID string) (models.RiskPreferences, error)
	SavePreferences(ctx context.Context, prefs models.RiskPreferences) error
}

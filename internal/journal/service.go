package journal

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"trade-journal-go/internal/config"
	"trade-journal-go/internal/metrics"
	"trade-journal-go/internal/models"
	"trade-journal-go/internal/risk"
	"trade-journal-go/internal/store"
)

// Service owns the trade write path: validation, risk evaluation, metric
// computation and persistence run as one sequence per trade. Writes for the
// same user are serialized so two concurrent submissions cannot both slip
// past the daily-limit check.
type Service struct {
	logger   *zap.Logger
	trades   store.TradeStore
	prefs    store.PreferenceStore
	defaults config.Risk

	userLocks sync.Map // user id -> *sync.Mutex
}

// NewService creates the journal write-path service. The config defaults fill
// risk-preference fields a user never set.
func NewService(logger *zap.Logger, trades store.TradeStore, prefs store.PreferenceStore, defaults config.Risk) *Service {
	return &Service{
		logger:   logger,
		trades:   trades,
		prefs:    prefs,
		defaults: defaults,
	}
}

func (s *Service) lockUser(userID string) func() {
	mu, _ := s.userLocks.LoadOrStore(userID, &sync.Mutex{})
	lock := mu.(*sync.Mutex)
	lock.Lock()
	return lock.Unlock
}

// Create validates a new trade, gates it through the risk evaluator, derives
// its metrics and persists it. A block-mode violation returns a *RiskError
// and nothing is persisted.
func (s *Service) Create(ctx context.Context, userID string, in TradeInput) (models.Trade, risk.Evaluation, error) {
	candidate := in.toTrade(userID)
	if err := validateTrade(&candidate); err != nil {
		return models.Trade{}, risk.Evaluation{}, err
	}

	unlock := s.lockUser(userID)
	defer unlock()

	ev, err := s.evaluate(ctx, userID, &candidate, "")
	if err != nil {
		return models.Trade{}, risk.Evaluation{}, err
	}
	if !ev.Allowed {
		s.logger.Info("trade blocked by risk rules",
			zap.String("user_id", userID),
			zap.Strings("violations", ev.Violations))
		return models.Trade{}, ev, &RiskError{Evaluation: ev}
	}

	mergeRiskPatch(&candidate, ev)
	candidate.ID = ulid.Make().String()
	computed := metrics.Compute(candidate)

	if err := s.trades.Insert(ctx, &computed); err != nil {
		return models.Trade{}, ev, err
	}
	s.logger.Info("trade logged",
		zap.String("user_id", userID),
		zap.String("trade_id", computed.ID),
		zap.String("instrument", computed.Instrument),
		zap.String("grade", computed.Grade))
	return computed, ev, nil
}

// Update applies a partial patch to a fetched snapshot, re-runs risk and
// metrics on the merged view and persists the result atomically. The stored
// row is never touched before the candidate passes validation and the risk
// gate.
func (s *Service) Update(ctx context.Context, userID, id string, patch TradePatch) (models.Trade, risk.Evaluation, error) {
	// The snapshot is read under the same lock that guards the write, so a
	// concurrent patch to the same trade cannot be applied to a stale view.
	unlock := s.lockUser(userID)
	defer unlock()

	current, err := s.trades.Get(ctx, userID, id)
	if err != nil {
		return models.Trade{}, risk.Evaluation{}, mapStoreErr(err)
	}

	candidate := applyPatch(current, patch)
	if err := validateTrade(&candidate); err != nil {
		return models.Trade{}, risk.Evaluation{}, err
	}

	ev, err := s.evaluate(ctx, userID, &candidate, id)
	if err != nil {
		return models.Trade{}, risk.Evaluation{}, err
	}
	if !ev.Allowed {
		return models.Trade{}, ev, &RiskError{Evaluation: ev}
	}

	mergeRiskPatch(&candidate, ev)
	computed := metrics.Compute(candidate)

	if err := s.trades.Update(ctx, &computed); err != nil {
		return models.Trade{}, ev, mapStoreErr(err)
	}
	return computed, ev, nil
}

// Get returns one trade scoped to its owner.
func (s *Service) Get(ctx context.Context, userID, id string) (models.Trade, error) {
	trade, err := s.trades.Get(ctx, userID, id)
	if err != nil {
		return models.Trade{}, mapStoreErr(err)
	}
	return trade, nil
}

// List returns the user's trades matching the filter, date ascending.
func (s *Service) List(ctx context.Context, f store.TradeFilter) ([]models.Trade, error) {
	return s.trades.List(ctx, f)
}

// Delete removes one trade scoped to its owner.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if err := s.trades.Delete(ctx, userID, id); err != nil {
		return mapStoreErr(err)
	}
	return nil
}

// BulkError records one failed import item by its position in the batch.
type BulkError struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// BulkResult summarizes a bulk import: failures are per-item and never abort
// the batch.
type BulkResult struct {
	Inserted int         `json:"inserted"`
	Failed   []BulkError `json:"failed"`
}

// Import processes each item independently through the full create path.
func (s *Service) Import(ctx context.Context, userID string, items []TradeInput) BulkResult {
	result := BulkResult{Failed: []BulkError{}}
	for i, item := range items {
		if _, _, err := s.Create(ctx, userID, item); err != nil {
			result.Failed = append(result.Failed, BulkError{Index: i, Reason: err.Error()})
			continue
		}
		result.Inserted++
	}
	s.logger.Info("bulk import finished",
		zap.String("user_id", userID),
		zap.Int("inserted", result.Inserted),
		zap.Int("failed", len(result.Failed)))
	return result
}

// Recalculate re-runs every owned trade through the metric calculator, e.g.
// after a formula change. The operation is idempotent.
func (s *Service) Recalculate(ctx context.Context, userID string) (int, error) {
	unlock := s.lockUser(userID)
	defer unlock()

	trades, err := s.trades.List(ctx, store.TradeFilter{UserID: userID})
	if err != nil {
		return 0, err
	}
	updated := 0
	for _, t := range trades {
		computed := metrics.Compute(t)
		if err := s.trades.Update(ctx, &computed); err != nil {
			return updated, fmt.Errorf("recalculate trade %s: %w", t.ID, err)
		}
		updated++
	}
	s.logger.Info("recalculated trades", zap.String("user_id", userID), zap.Int("count", updated))
	return updated, nil
}

// GetPreferences returns the user's risk configuration (defaults when unset).
func (s *Service) GetPreferences(ctx context.Context, userID string) (models.RiskPreferences, error) {
	return s.prefs.GetPreferences(ctx, userID)
}

// SavePreferences validates and stores a user's risk configuration.
func (s *Service) SavePreferences(ctx context.Context, prefs models.RiskPreferences) error {
	if err := validatePreferences(&prefs); err != nil {
		return err
	}
	return s.prefs.SavePreferences(ctx, prefs)
}

// evaluate loads the user's preferences and the trades already logged inside
// the candidate's UTC day window, then runs the risk evaluator. excludeID
// keeps an updated trade from counting against its own daily limits.
func (s *Service) evaluate(ctx context.Context, userID string, candidate *models.Trade, excludeID string) (risk.Evaluation, error) {
	prefs, err := s.prefs.GetPreferences(ctx, userID)
	if err != nil {
		return risk.Evaluation{}, err
	}
	if prefs.PipValuePerLot <= 0 {
		prefs.PipValuePerLot = s.defaults.PipValuePerLot
	}
	if prefs.Enforcement == "" {
		prefs.Enforcement = s.defaults.Enforcement
	}

	dayStart, dayEnd := risk.DayWindow(candidate.TradeDate)
	today, err := s.trades.List(ctx, store.TradeFilter{UserID: userID, From: &dayStart, To: &dayEnd})
	if err != nil {
		return risk.Evaluation{}, err
	}
	if excludeID != "" {
		filtered := today[:0]
		for _, t := range today {
			if t.ID != excludeID {
				filtered = append(filtered, t)
			}
		}
		today = filtered
	}

	return risk.Evaluate(prefs, today, *candidate), nil
}

// mergeRiskPatch folds the evaluator's sizing advice and verdict into the
// candidate before metrics are derived: suggested lot when the user gave no
// lot size, dollar risk when none was given, the risk-respected flag set to
// "no violations", and the message lists for display.
func mergeRiskPatch(t *models.Trade, ev risk.Evaluation) {
	// The suggestion always comes from the current evaluation; anything
	// carried over from a stored snapshot was computed under old prices.
	t.SuggestedLot = nil
	if t.LotSize == nil {
		t.SuggestedLot = ev.SuggestedLot
	}
	if t.DollarRisk == nil {
		t.DollarRisk = ev.DollarRisk
	}
	t.RiskRespected = len(ev.Violations) == 0
	t.Violations = ev.Violations
	t.Warnings = ev.Warnings
}

func mapStoreErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrTradeNotFound
	}
	return err
}

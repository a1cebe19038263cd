package journal

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"trade-journal-go/internal/config"
	"trade-journal-go/internal/database"
	"trade-journal-go/internal/models"
	"trade-journal-go/internal/store"
)

func f(v float64) *float64 { return &v }

// setupTest creates a service backed by a fresh in-memory database.
func setupTest(t *testing.T) (*Service, *store.GormStore) {
	// Use a new, non-shared in-memory database for each test to ensure isolation.
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	st := store.NewGormStore(db)
	svc := NewService(zap.NewNop(), st, st, config.Risk{PipValuePerLot: 10, Enforcement: models.EnforcementWarn})
	return svc, st
}

func validInput() TradeInput {
	return TradeInput{
		Instrument:      "EURUSD",
		Direction:       models.DirectionLong,
		Entry:           1.1000,
		StopLoss:        f(1.0950),
		ExitPrice:       f(1.1050),
		LotSize:         f(1.0),
		TradeDate:       time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC),
		Session:         "london",
		RiskRespected:   true,
		NoEarlyExit:     true,
		ValidPDArray:    true,
		CorrectSession:  true,
		FollowedHTFBias: true,
	}
}

func blockingPrefs(userID string) models.RiskPreferences {
	return models.RiskPreferences{
		UserID:          userID,
		AccountBalance:  10000,
		RiskMode:        models.RiskModeFixed,
		RiskAmount:      100,
		PipValuePerLot:  10,
		MaxTradesPerDay: 1,
		Enforcement:     models.EnforcementBlock,
	}
}

func TestCreate_ComputesMetricsAndPersists(t *testing.T) {
	svc, st := setupTest(t)
	ctx := context.Background()

	trade, ev, err := svc.Create(ctx, "user-1", validInput())
	require.NoError(t, err)
	assert.True(t, ev.Allowed)
	assert.NotEmpty(t, trade.ID)

	require.NotNil(t, trade.PnL)
	assert.InDelta(t, 500, *trade.PnL, 1e-6)
	assert.Equal(t, models.OutcomeWin, trade.Outcome)
	require.NotNil(t, trade.RMultiple)
	assert.InDelta(t, 1.0, *trade.RMultiple, 1e-9)
	assert.Equal(t, models.GradeAPlus, trade.Grade)

	stored, err := st.Get(ctx, "user-1", trade.ID)
	require.NoError(t, err)
	assert.Equal(t, trade.Outcome, stored.Outcome)
	require.NotNil(t, stored.PnL)
	assert.InDelta(t, *trade.PnL, *stored.PnL, 1e-6)
}

func TestCreate_ValidationRunsBeforeAnything(t *testing.T) {
	svc, st := setupTest(t)
	ctx := context.Background()

	in := validInput()
	in.Direction = "sideways"

	_, _, err := svc.Create(ctx, "user-1", in)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "direction", validationErr.Field)

	count, err := st.Count(ctx, store.TradeFilter{UserID: "user-1"})
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCreate_BlockModeRejectsAndPersistsNothing(t *testing.T) {
	svc, st := setupTest(t)
	ctx := context.Background()
	require.NoError(t, svc.SavePreferences(ctx, blockingPrefs("user-1")))

	_, _, err := svc.Create(ctx, "user-1", validInput())
	require.NoError(t, err)

	// Second trade on the same day trips the 1/day limit.
	_, ev, err := svc.Create(ctx, "user-1", validInput())
	var riskErr *RiskError
	require.ErrorAs(t, err, &riskErr)
	assert.False(t, ev.Allowed)
	require.NotEmpty(t, riskErr.Evaluation.Violations)
	assert.Contains(t, riskErr.Evaluation.Violations[0], "1/1")

	count, err := st.Count(ctx, store.TradeFilter{UserID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestCreate_WarnModeAcceptsButFlags(t *testing.T) {
	svc, st := setupTest(t)
	ctx := context.Background()

	prefs := blockingPrefs("user-1")
	prefs.Enforcement = models.EnforcementWarn
	require.NoError(t, svc.SavePreferences(ctx, prefs))

	_, _, err := svc.Create(ctx, "user-1", validInput())
	require.NoError(t, err)

	trade, ev, err := svc.Create(ctx, "user-1", validInput())
	require.NoError(t, err)
	assert.True(t, ev.Allowed)
	require.NotEmpty(t, ev.Violations)
	assert.Contains(t, ev.Violations[0], "1/1")

	// The violation is stamped onto the stored trade.
	assert.False(t, trade.RiskRespected)
	assert.NotEmpty(t, trade.Violations)

	count, err := st.Count(ctx, store.TradeFilter{UserID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestCreate_OtherDaysDoNotCountAgainstLimits(t *testing.T) {
	svc, _ := setupTest(t)
	ctx := context.Background()
	require.NoError(t, svc.SavePreferences(ctx, blockingPrefs("user-1")))

	_, _, err := svc.Create(ctx, "user-1", validInput())
	require.NoError(t, err)

	nextDay := validInput()
	nextDay.TradeDate = nextDay.TradeDate.AddDate(0, 0, 1)
	_, ev, err := svc.Create(ctx, "user-1", nextDay)
	require.NoError(t, err)
	assert.True(t, ev.Allowed)
	assert.Empty(t, ev.Violations)
}

func TestCreate_MergesSizingAdvice(t *testing.T) {
	svc, _ := setupTest(t)
	ctx := context.Background()

	prefs := blockingPrefs("user-1")
	prefs.MaxTradesPerDay = 10
	prefs.Enforcement = models.EnforcementWarn
	require.NoError(t, svc.SavePreferences(ctx, prefs))

	in := validInput()
	in.LotSize = nil // no lot given: suggestion and dollar risk are stored
	trade, ev, err := svc.Create(ctx, "user-1", in)
	require.NoError(t, err)

	require.NotNil(t, ev.SuggestedLot)
	require.NotNil(t, trade.SuggestedLot)
	assert.InDelta(t, 0.2, *trade.SuggestedLot, 1e-9) // $100 over 50 pips
	require.NotNil(t, trade.DollarRisk)
	assert.InDelta(t, 100, *trade.DollarRisk, 1e-9)
}

func TestUpdate_MergesPatchAndRecomputes(t *testing.T) {
	svc, _ := setupTest(t)
	ctx := context.Background()

	in := validInput()
	in.ExitPrice = nil // open trade: no P&L yet
	created, _, err := svc.Create(ctx, "user-1", in)
	require.NoError(t, err)
	assert.Nil(t, created.PnL)
	assert.Equal(t, "", created.Outcome)

	updated, ev, err := svc.Update(ctx, "user-1", created.ID, TradePatch{ExitPrice: f(1.1050)})
	require.NoError(t, err)
	assert.True(t, ev.Allowed)
	require.NotNil(t, updated.PnL)
	assert.InDelta(t, 500, *updated.PnL, 1e-6)
	assert.Equal(t, models.OutcomeWin, updated.Outcome)

	// Untouched raw fields survive the patch.
	assert.Equal(t, "london", updated.Session)
	assert.Equal(t, created.Entry, updated.Entry)
}

func TestUpdate_ConcurrentPatchesBothApply(t *testing.T) {
	svc, _ := setupTest(t)
	ctx := context.Background()

	created, _, err := svc.Create(ctx, "user-1", validInput())
	require.NoError(t, err)

	// Two racing patches to different fields: each must apply on top of
	// the other's write, never a stale snapshot.
	notes := "retested the level before entry"
	emotion := "calm"
	errs := make(chan error, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _, err := svc.Update(ctx, "user-1", created.ID, TradePatch{Notes: &notes})
		errs <- err
	}()
	go func() {
		defer wg.Done()
		_, _, err := svc.Update(ctx, "user-1", created.ID, TradePatch{Emotion: &emotion})
		errs <- err
	}()
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	stored, err := svc.Get(ctx, "user-1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, notes, stored.Notes)
	assert.Equal(t, emotion, stored.Emotion)
}

func TestUpdate_ClearsStaleSizingSuggestion(t *testing.T) {
	svc, _ := setupTest(t)
	ctx := context.Background()

	prefs := blockingPrefs("user-1")
	prefs.MaxTradesPerDay = 10
	prefs.Enforcement = models.EnforcementWarn
	require.NoError(t, svc.SavePreferences(ctx, prefs))

	in := validInput()
	in.LotSize = nil
	created, _, err := svc.Create(ctx, "user-1", in)
	require.NoError(t, err)
	require.NotNil(t, created.SuggestedLot)

	// Giving the trade a lot size makes the old suggestion meaningless.
	updated, _, err := svc.Update(ctx, "user-1", created.ID, TradePatch{LotSize: f(0.5)})
	require.NoError(t, err)
	assert.Nil(t, updated.SuggestedLot)

	stored, err := svc.Get(ctx, "user-1", created.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.SuggestedLot)
}

func TestUpdate_InvalidPatchLeavesStoredTradeAlone(t *testing.T) {
	svc, st := setupTest(t)
	ctx := context.Background()

	created, _, err := svc.Create(ctx, "user-1", validInput())
	require.NoError(t, err)

	bad := "sideways"
	_, _, err = svc.Update(ctx, "user-1", created.ID, TradePatch{Direction: &bad})
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)

	stored, err := st.Get(ctx, "user-1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DirectionLong, stored.Direction)
}

func TestUpdate_DoesNotCountItselfAgainstDailyLimit(t *testing.T) {
	svc, _ := setupTest(t)
	ctx := context.Background()
	require.NoError(t, svc.SavePreferences(ctx, blockingPrefs("user-1")))

	created, _, err := svc.Create(ctx, "user-1", validInput())
	require.NoError(t, err)

	// The only trade of the day is being edited: 1/1 must not trip.
	_, ev, err := svc.Update(ctx, "user-1", created.ID, TradePatch{ExitPrice: f(1.1100)})
	require.NoError(t, err)
	assert.True(t, ev.Allowed)
	assert.Empty(t, ev.Violations)
}

func TestOwnerScoping(t *testing.T) {
	svc, _ := setupTest(t)
	ctx := context.Background()

	created, _, err := svc.Create(ctx, "user-1", validInput())
	require.NoError(t, err)

	_, err = svc.Get(ctx, "user-2", created.ID)
	assert.ErrorIs(t, err, ErrTradeNotFound)

	_, _, err = svc.Update(ctx, "user-2", created.ID, TradePatch{ExitPrice: f(1.2)})
	assert.ErrorIs(t, err, ErrTradeNotFound)

	err = svc.Delete(ctx, "user-2", created.ID)
	assert.ErrorIs(t, err, ErrTradeNotFound)

	// The owner still sees it.
	_, err = svc.Get(ctx, "user-1", created.ID)
	assert.NoError(t, err)
}

func TestDelete(t *testing.T) {
	svc, _ := setupTest(t)
	ctx := context.Background()

	created, _, err := svc.Create(ctx, "user-1", validInput())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "user-1", created.ID))
	_, err = svc.Get(ctx, "user-1", created.ID)
	assert.ErrorIs(t, err, ErrTradeNotFound)
}

func TestImport_PartialFailure(t *testing.T) {
	svc, st := setupTest(t)
	ctx := context.Background()

	good := validInput()
	bad := validInput()
	bad.Entry = 0
	alsoGood := validInput()
	alsoGood.TradeDate = alsoGood.TradeDate.AddDate(0, 0, 1)

	result := svc.Import(ctx, "user-1", []TradeInput{good, bad, alsoGood})
	assert.Equal(t, 2, result.Inserted)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, 1, result.Failed[0].Index)
	assert.Contains(t, result.Failed[0].Reason, "entry")

	count, err := st.Count(ctx, store.TradeFilter{UserID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestImport_BlockedItemsFailWithoutAbortingBatch(t *testing.T) {
	svc, _ := setupTest(t)
	ctx := context.Background()
	require.NoError(t, svc.SavePreferences(ctx, blockingPrefs("user-1")))

	sameDay := []TradeInput{validInput(), validInput(), validInput()}
	result := svc.Import(ctx, "user-1", sameDay)
	assert.Equal(t, 1, result.Inserted)
	require.Len(t, result.Failed, 2)
	assert.Equal(t, 1, result.Failed[0].Index)
	assert.Equal(t, 2, result.Failed[1].Index)
	assert.Contains(t, result.Failed[0].Reason, "blocked by risk rules")
}

func TestRecalculate_IsIdempotent(t *testing.T) {
	svc, _ := setupTest(t)
	ctx := context.Background()

	first := validInput()
	second := validInput()
	second.TradeDate = second.TradeDate.AddDate(0, 0, 1)
	second.ExitPrice = f(1.0950) // a loss
	_, _, err := svc.Create(ctx, "user-1", first)
	require.NoError(t, err)
	_, _, err = svc.Create(ctx, "user-1", second)
	require.NoError(t, err)

	count, err := svc.Recalculate(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	after1, err := svc.List(ctx, store.TradeFilter{UserID: "user-1"})
	require.NoError(t, err)

	_, err = svc.Recalculate(ctx, "user-1")
	require.NoError(t, err)
	after2, err := svc.List(ctx, store.TradeFilter{UserID: "user-1"})
	require.NoError(t, err)

	require.Len(t, after2, 2)
	for i := range after2 {
		assert.Equal(t, after1[i].Outcome, after2[i].Outcome)
		assert.Equal(t, after1[i].Grade, after2[i].Grade)
		assert.Equal(t, after1[i].RuleBreakCount, after2[i].RuleBreakCount)
		require.NotNil(t, after2[i].PnL)
		assert.InDelta(t, *after1[i].PnL, *after2[i].PnL, 1e-9)
		require.NotNil(t, after2[i].RMultiple)
		assert.InDelta(t, *after1[i].RMultiple, *after2[i].RMultiple, 1e-9)
	}
}

func TestSavePreferences_Validates(t *testing.T) {
	svc, _ := setupTest(t)
	ctx := context.Background()

	prefs := blockingPrefs("user-1")
	prefs.RiskMode = "martingale"
	err := svc.SavePreferences(ctx, prefs)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "risk_mode", validationErr.Field)

	// Unsaved users get the defaults.
	got, err := svc.GetPreferences(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.EnforcementWarn, got.Enforcement)
}

func TestPreferences_RoundTrip(t *testing.T) {
	svc, _ := setupTest(t)
	ctx := context.Background()

	prefs := blockingPrefs("user-1")
	require.NoError(t, svc.SavePreferences(ctx, prefs))

	got, err := svc.GetPreferences(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, prefs.MaxTradesPerDay, got.MaxTradesPerDay)
	assert.Equal(t, models.EnforcementBlock, got.Enforcement)
}

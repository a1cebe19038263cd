package journal

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"trade-journal-go/internal/analytics"
	"trade-journal-go/internal/models"
	"trade-journal-go/internal/store"
)

// StreakStat is the win rate over trades taken right after a losing streak.
type StreakStat struct {
	StreakLength int     `json:"streak_length"`
	Sample       int     `json:"sample"`
	WinRate      float64 `json:"win_rate"`
}

// PatternReport groups a history by instrument, session and setup, plus the
// loss-streak statistic. LossStreak is nil when the sample is too small to be
// statistically meaningful.
type PatternReport struct {
	ByInstrument []analytics.Bucket `json:"by_instrument"`
	BySession    []analytics.Bucket `json:"by_session"`
	BySetup      []analytics.Bucket `json:"by_setup"`
	LossStreak   *StreakStat        `json:"loss_streak,omitempty"`
}

// Reporter is the read side of the journal: it loads stored history and runs
// the aggregation engine over it. Results are cached per (user, report,
// filter) with a TTL; the cache is a collaborator so tests can pass a short
// TTL or a fresh instance.
type Reporter struct {
	logger        *zap.Logger
	trades        store.TradeStore
	cache         *gocache.Cache
	insightWindow int
}

// NewReporter creates a Reporter with the given cache TTL and insight window.
func NewReporter(logger *zap.Logger, trades store.TradeStore, cacheTTL time.Duration, insightWindow int) *Reporter {
	return &Reporter{
		logger:        logger,
		trades:        trades,
		cache:         gocache.New(cacheTTL, 2*cacheTTL),
		insightWindow: insightWindow,
	}
}

// KPIs computes (or serves from cache) the headline KPIs for a filtered
// history.
func (r *Reporter) KPIs(ctx context.Context, f store.TradeFilter) (analytics.KPIReport, error) {
	key := reportKey("kpis", f, 0)
	if cached, ok := r.cache.Get(key); ok {
		return cached.(analytics.KPIReport), nil
	}
	trades, err := r.trades.List(ctx, f)
	if err != nil {
		return analytics.KPIReport{}, err
	}
	report := analytics.ComputeKPIs(trades)
	r.cache.SetDefault(key, report)
	return report, nil
}

// Distributions computes (or serves from cache) the categorical frequency
// counts for a filtered history.
func (r *Reporter) Distributions(ctx context.Context, f store.TradeFilter) (analytics.Distributions, error) {
	key := reportKey("distributions", f, 0)
	if cached, ok := r.cache.Get(key); ok {
		return cached.(analytics.Distributions), nil
	}
	trades, err := r.trades.List(ctx, f)
	if err != nil {
		return analytics.Distributions{}, err
	}
	report := analytics.ComputeDistributions(trades)
	r.cache.SetDefault(key, report)
	return report, nil
}

// Insights computes (or serves from cache) the rule-based review of the most
// recent trades.
func (r *Reporter) Insights(ctx context.Context, f store.TradeFilter) (analytics.Insights, error) {
	key := reportKey("insights", f, r.insightWindow)
	if cached, ok := r.cache.Get(key); ok {
		return cached.(analytics.Insights), nil
	}
	trades, err := r.trades.List(ctx, f)
	if err != nil {
		return analytics.Insights{}, err
	}
	report := analytics.ComputeInsights(trades, r.insightWindow)
	r.cache.SetDefault(key, report)
	return report, nil
}

// Patterns buckets the history by instrument, session and setup and adds the
// after-loss-streak statistic. Samples below analytics.MinPatternSample are
// suppressed from the report.
func (r *Reporter) Patterns(ctx context.Context, f store.TradeFilter, streakLength int) (PatternReport, error) {
	key := reportKey("patterns", f, streakLength)
	if cached, ok := r.cache.Get(key); ok {
		return cached.(PatternReport), nil
	}
	trades, err := r.trades.List(ctx, f)
	if err != nil {
		return PatternReport{}, err
	}

	report := PatternReport{
		ByInstrument: analytics.Bucketize(trades, func(t models.Trade) string { return t.Instrument }, "unknown"),
		BySession:    analytics.Bucketize(trades, func(t models.Trade) string { return t.Session }, "unspecified"),
		BySetup:      analytics.Bucketize(trades, func(t models.Trade) string { return t.Setup }, "unspecified"),
	}
	if streakLength > 0 {
		sample, winRate := analytics.WinRateAfterLossStreak(trades, streakLength)
		if sample >= analytics.MinPatternSample {
			report.LossStreak = &StreakStat{StreakLength: streakLength, Sample: sample, WinRate: winRate}
		} else if sample > 0 {
			r.logger.Debug("suppressing loss-streak stat, sample too small",
				zap.String("user_id", f.UserID),
				zap.Int("sample", sample))
		}
	}
	r.cache.SetDefault(key, report)
	return report, nil
}

func reportKey(report string, f store.TradeFilter, param int) string {
	from, to := "", ""
	if f.From != nil {
		from = f.From.UTC().Format(time.RFC3339)
	}
	if f.To != nil {
		to = f.To.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("%s|%s|%s|%s|%s|%s|%d", report, f.UserID, f.Instrument, f.Session, from, to, param)
}

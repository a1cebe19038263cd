package analytics

import (
	"fmt"
	"sort"

	"trade-journal-go/internal/models"
)

// Thresholds for the rule-based recommendations. A recommendation fires when
// the matching violation rate over the insight window reaches the threshold.
const (
	riskDisciplineThreshold = 0.20
	earlyExitThreshold      = 0.30
	pdArrayThreshold        = 0.25
	sessionThreshold        = 0.25
	htfBiasThreshold        = 0.25
)

// RuleStat counts compliance for one of the five trade rules over the window.
type RuleStat struct {
	Rule          string  `json:"rule"`
	Violations    int     `json:"violations"`
	Compliant     int     `json:"compliant"`
	ViolationRate float64 `json:"violation_rate"`
}

// EmotionBucket totals net P&L per logged emotion tag.
type EmotionBucket struct {
	Emotion string  `json:"emotion"`
	Trades  int     `json:"trades"`
	NetPnL  float64 `json:"net_pnl"`
}

// Insights is a deterministic, rule-based review of a recent trade window.
// No model call is involved: the same trades always produce the same output.
type Insights struct {
	WindowSize      int             `json:"window_size"`
	RuleStats       []RuleStat      `json:"rule_stats"`
	EmotionPnL      []EmotionBucket `json:"emotion_pnl"`
	Recommendations []string        `json:"recommendations"`
}

// ComputeInsights examines the most recent `window` trades (all of them when
// window <= 0 or the history is shorter).
func ComputeInsights(trades []models.Trade, window int) Insights {
	ordered := sortedByDate(trades)
	if window > 0 && len(ordered) > window {
		ordered = ordered[len(ordered)-window:]
	}

	ins := Insights{
		WindowSize:      len(ordered),
		Recommendations: []string{},
		EmotionPnL:      []EmotionBucket{},
	}

	rules := []struct {
		name string
		flag func(*models.Trade) bool
	}{
		{"risk_respected", func(t *models.Trade) bool { return t.RiskRespected }},
		{"no_early_exit", func(t *models.Trade) bool { return t.NoEarlyExit }},
		{"valid_pd_array", func(t *models.Trade) bool { return t.ValidPDArray }},
		{"correct_session", func(t *models.Trade) bool { return t.CorrectSession }},
		{"followed_htf_bias", func(t *models.Trade) bool { return t.FollowedHTFBias }},
	}

	rates := map[string]float64{}
	for _, rule := range rules {
		stat := RuleStat{Rule: rule.name}
		for i := range ordered {
			if rule.flag(&ordered[i]) {
				stat.Compliant++
			} else {
				stat.Violations++
			}
		}
		if len(ordered) > 0 {
			stat.ViolationRate = float64(stat.Violations) / float64(len(ordered))
		}
		rates[rule.name] = stat.ViolationRate
		ins.RuleStats = append(ins.RuleStats, stat)
	}

	emotions := map[string]*EmotionBucket{}
	for _, t := range ordered {
		if t.Emotion == "" {
			continue
		}
		bucket, ok := emotions[t.Emotion]
		if !ok {
			bucket = &EmotionBucket{Emotion: t.Emotion}
			emotions[t.Emotion] = bucket
		}
		bucket.Trades++
		if t.PnL != nil {
			bucket.NetPnL += *t.PnL
		}
	}
	for _, bucket := range emotions {
		ins.EmotionPnL = append(ins.EmotionPnL, *bucket)
	}
	// Worst net P&L first so the costliest emotion leads the report.
	sort.Slice(ins.EmotionPnL, func(i, j int) bool {
		if ins.EmotionPnL[i].NetPnL != ins.EmotionPnL[j].NetPnL {
			return ins.EmotionPnL[i].NetPnL < ins.EmotionPnL[j].NetPnL
		}
		return ins.EmotionPnL[i].Emotion < ins.EmotionPnL[j].Emotion
	})

	if len(ordered) > 0 {
		ins.Recommendations = recommendations(rates)
	}
	return ins
}

func recommendations(rates map[string]float64) []string {
	recs := []string{}
	if rates["risk_respected"] >= riskDisciplineThreshold {
		recs = append(recs, fmt.Sprintf(
			"Risk discipline: %.0f%% of recent trades did not respect your risk limit. Size positions before entry, not after.",
			rates["risk_respected"]*100))
	}
	if rates["no_early_exit"] >= earlyExitThreshold {
		recs = append(recs, fmt.Sprintf(
			"Patience: %.0f%% of recent trades were closed early. Let trades reach the stop or the target.",
			rates["no_early_exit"]*100))
	}
	if rates["valid_pd_array"] >= pdArrayThreshold {
		recs = append(recs, fmt.Sprintf(
			"Setup quality: %.0f%% of recent entries lacked a valid price-delivery array. Wait for the setup to form.",
			rates["valid_pd_array"]*100))
	}
	if rates["correct_session"] >= sessionThreshold {
		recs = append(recs, fmt.Sprintf(
			"Session selection: %.0f%% of recent trades were taken outside your session. Stick to your trading hours.",
			rates["correct_session"]*100))
	}
	if rates["followed_htf_bias"] >= htfBiasThreshold {
		recs = append(recs, fmt.Sprintf(
			"Bias alignment: %.0f%% of recent trades fought the higher-timeframe bias. Trade with the trend you mapped.",
			rates["followed_htf_bias"]*100))
	}
	return recs
}

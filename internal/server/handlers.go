package server

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"trade-journal-go/internal/analytics"
	"trade-journal-go/internal/journal"
	"trade-journal-go/internal/models"
	"trade-journal-go/internal/store"
)

// userID pulls the caller identity set by the (external) auth layer.
func userID(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// writeError maps the journal error taxonomy onto HTTP statuses. A risk
// rejection is a 422 carrying the full violation list so the UI can present
// "blocked by your own rules".
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var validationErr *journal.ValidationError
	var riskErr *journal.RiskError
	switch {
	case errors.As(err, &validationErr):
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": validationErr.Error()})
	case errors.Is(err, journal.ErrTradeNotFound):
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.As(err, &riskErr):
		s.writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":      "trade blocked by risk rules",
			"evaluation": riskErr.Evaluation,
		})
	default:
		s.logger.Error("Request failed", zap.Error(err))
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	user := userID(r)
	if user == "" {
		http.Error(w, "missing X-User-ID header", http.StatusBadRequest)
		return "", false
	}
	return user, true
}

// tradeFilter builds a store filter from query parameters. Dates accept
// RFC3339 or plain YYYY-MM-DD.
func tradeFilter(r *http.Request, user string) (store.TradeFilter, error) {
	f := store.TradeFilter{
		UserID:     user,
		Instrument: r.URL.Query().Get("instrument"),
		Session:    r.URL.Query().Get("session"),
	}
	if raw := r.URL.Query().Get("from"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			return f, &journal.ValidationError{Field: "from", Reason: "must be RFC3339 or YYYY-MM-DD"}
		}
		f.From = &t
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			return f, &journal.ValidationError{Field: "to", Reason: "must be RFC3339 or YYYY-MM-DD"}
		}
		f.To = &t
	}
	return f, nil
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

func (s *Server) createTradeHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	var in journal.TradeInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	trade, ev, err := s.service.Create(r.Context(), user, in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]any{"trade": trade, "evaluation": ev})
}

func (s *Server) getTradeHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	trade, err := s.service.Get(r.Context(), user, r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, trade)
}

func (s *Server) listTradesHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	f, err := tradeFilter(r, user)
	if err != nil {
		s.writeError(w, err)
		return
	}
	trades, err := s.service.List(r.Context(), f)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, trades)
}

func (s *Server) updateTradeHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	var patch journal.TradePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	trade, ev, err := s.service.Update(r.Context(), user, r.PathValue("id"), patch)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"trade": trade, "evaluation": ev})
}

func (s *Server) deleteTradeHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := s.service.Delete(r.Context(), user, r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) importTradesHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	var items []journal.TradeInput
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	result := s.service.Import(r.Context(), user, items)
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) recalculateHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	count, err := s.service.Recalculate(r.Context(), user)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"recalculated": count})
}

func (s *Server) getPreferencesHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	prefs, err := s.service.GetPreferences(r.Context(), user)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, prefs)
}

func (s *Server) savePreferencesHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	var prefs models.RiskPreferences
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	prefs.UserID = user
	if err := s.service.SavePreferences(r.Context(), prefs); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, prefs)
}

// kpiResponse renders ProfitFactor, which may be +Inf, as a JSON-safe value:
// a number normally, the string "inf" when there are profits and no losses.
type kpiResponse struct {
	analytics.KPIReport
	ProfitFactor any `json:"profit_factor"`
}

func (s *Server) kpisHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	f, err := tradeFilter(r, user)
	if err != nil {
		s.writeError(w, err)
		return
	}
	report, err := s.reporter.KPIs(r.Context(), f)
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp := kpiResponse{KPIReport: report, ProfitFactor: report.ProfitFactor}
	if math.IsInf(report.ProfitFactor, 1) {
		resp.ProfitFactor = "inf"
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) distributionsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	f, err := tradeFilter(r, user)
	if err != nil {
		s.writeError(w, err)
		return
	}
	report, err := s.reporter.Distributions(r.Context(), f)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) insightsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	f, err := tradeFilter(r, user)
	if err != nil {
		s.writeError(w, err)
		return
	}
	report, err := s.reporter.Insights(r.Context(), f)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) patternsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	f, err := tradeFilter(r, user)
	if err != nil {
		s.writeError(w, err)
		return
	}
	streak := 3
	if raw := r.URL.Query().Get("streak"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			s.writeError(w, &journal.ValidationError{Field: "streak", Reason: "must be a positive integer"})
			return
		}
		streak = parsed
	}
	report, err := s.reporter.Patterns(r.Context(), f, streak)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"discipline-journal-go/internal/auth"
	"discipline-journal-go/internal/journal"
	"discipline-journal-go/internal/models"
	"discipline-journal-go/internal/onboarding"
	"discipline-journal-go/internal/progression"
	"discipline-journal-go/internal/store"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	if err := writeJSON(w, status, v); err != nil {
		s.logger.Error("Failed to write response", zap.String("path", r.URL.Path), zap.Error(err))
	}
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, onboarding.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, journal.ErrAlreadyCheckedIn),
		errors.Is(err, journal.ErrTradeClosed),
		errors.Is(err, onboarding.ErrWrongStep),
		errors.Is(err, store.ErrConflict),
		errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, journal.ErrInvalidRating),
		errors.Is(err, models.ErrInvalidTrade),
		errors.Is(err, models.ErrInvalidGoal),
		errors.Is(err, models.ErrInvalidRule),
		errors.Is(err, onboarding.ErrNoRules),
		errors.Is(err, progression.ErrInvalidCapital),
		errors.Is(err, progression.ErrInvalidPercent),
		errors.Is(err, progression.ErrNegativeInput),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

var errBadRequest = errors.New("bad request")

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed", zap.String("path", r.URL.Path), zap.Error(err))
		msg = http.StatusText(status)
	}
	s.respond(w, r, status, errorResponse{Error: msg})
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: malformed JSON body: %v", errBadRequest, err)
	}
	return nil
}

// userID is set by the auth middleware for every /api route.
func userID(r *http.Request) string {
	id, _ := auth.UserFromContext(r.Context())
	return id
}

func idParam(r *http.Request) (uint, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: invalid id %q", errBadRequest, raw)
	}
	return uint(id), nil
}

func (s *Server) progressHandler(w http.ResponseWriter, r *http.Request) {
	summary, err := s.engine.Summary(r.Context(), userID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, summary)
}

func (s *Server) checkInHandler(w http.ResponseWriter, r *http.Request) {
	var req journal.CheckInRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.engine.CheckIn(r.Context(), userID(r), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, http.StatusCreated, res)
}

func (s *Server) listTradesHandler(w http.ResponseWriter, r *http.Request) {
	filter := store.TradeFilter{Status: models.TradeStatus(r.URL.Query().Get("status"))}
	switch filter.Status {
	case "", models.TradeStatusOpen, models.TradeStatusClosed:
	default:
		s.fail(w, r, fmt.Errorf("%w: unknown status %q", errBadRequest, filter.Status))
		return
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			s.fail(w, r, fmt.Errorf("%w: invalid limit %q", errBadRequest, raw))
			return
		}
		filter.Limit = limit
	}

	trades, err := s.engine.Trades(r.Context(), userID(r), filter)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, trades)
}

func (s *Server) saveTradeHandler(w http.ResponseWriter, r *http.Request) {
	var trade models.Trade
	if err := decode(w, r, &trade); err != nil {
		s.fail(w, r, err)
		return
	}
	trade.ID = 0
	trade.UserID = userID(r)

	res, err := s.engine.SaveTrade(r.Context(), &trade)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, http.StatusCreated, res)
}

type closeTradeRequest struct {
	ExitPrice float64   `json:"exit_price"`
	ExitTime  time.Time `json:"exit_time"`
}

func (s *Server) closeTradeHandler(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req closeTradeRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	res, err := s.engine.CloseTrade(r.Context(), userID(r), id, req.ExitPrice, req.ExitTime)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, res)
}

func (s *Server) violationsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	violations, err := s.engine.Violations(r.Context(), userID(r), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, violations)
}

func (s *Server) listRulesHandler(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	rules, err := s.engine.Rules(r.Context(), userID(r), activeOnly)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, rules)
}

type addRuleRequest struct {
	RuleText string `json:"rule_text"`
	Category string `json:"category"`
}

func (s *Server) addRuleHandler(w http.ResponseWriter, r *http.Request) {
	var req addRuleRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	rule := models.TradingRule{UserID: userID(r), RuleText: req.RuleText, Category: req.Category}
	if err := s.engine.AddRule(r.Context(), &rule); err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, http.StatusCreated, rule)
}

func (s *Server) statisticsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.Statistics(r.Context(), userID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, stats)
}

func (s *Server) achievementsHandler(w http.ResponseWriter, r *http.Request) {
	achievements, err := s.engine.Achievements(r.Context(), userID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, achievements)
}

func (s *Server) notificationsHandler(w http.ResponseWriter, r *http.Request) {
	unreadOnly := r.URL.Query().Get("unread") == "true"
	feed, err := s.engine.Notifications(r.Context(), userID(r), unreadOnly)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, feed)
}

func (s *Server) getGoalHandler(w http.ResponseWriter, r *http.Request) {
	status, err := s.engine.Goal(r.Context(), userID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, status)
}

func (s *Server) setGoalHandler(w http.ResponseWriter, r *http.Request) {
	var input onboarding.GoalInput
	if err := decode(w, r, &input); err != nil {
		s.fail(w, r, err)
		return
	}
	goal := models.UserGoal{
		UserID:               userID(r),
		StartingCapital:      input.StartingCapital,
		TargetPercentPerUnit: input.TargetPercentPerUnit,
		TotalUnits:           input.TotalUnits,
		MaxLossPercent:       input.MaxLossPercent,
	}
	if err := s.engine.SetGoal(r.Context(), &goal); err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, http.StatusCreated, goal)
}

func (s *Server) ruleTemplatesHandler(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, http.StatusOK, onboarding.DefaultRules)
}

func (s *Server) startOnboardingHandler(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, http.StatusCreated, s.onboarding.Start(userID(r)))
}

func (s *Server) getOnboardingHandler(w http.ResponseWriter, r *http.Request) {
	session, err := s.onboarding.Get(userID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, session)
}

type onboardingRulesRequest struct {
	Rules []string `json:"rules"`
}

func (s *Server) onboardingRulesHandler(w http.ResponseWriter, r *http.Request) {
	var req onboardingRulesRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	session, err := s.onboarding.SelectRules(userID(r), chi.URLParam(r, "id"), req.Rules)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, session)
}

func (s *Server) onboardingGoalHandler(w http.ResponseWriter, r *http.Request) {
	var input onboarding.GoalInput
	if err := decode(w, r, &input); err != nil {
		s.fail(w, r, err)
		return
	}
	session, err := s.onboarding.SetGoal(userID(r), chi.URLParam(r, "id"), input)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, session)
}

func (s *Server) completeOnboardingHandler(w http.ResponseWriter, r *http.Request) {
	res, err := s.onboarding.Complete(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, http.StatusCreated, res)
}

func (s *Server) cancelOnboardingHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.onboarding.Cancel(userID(r), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

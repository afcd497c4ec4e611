package store

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"discipline-journal-go/internal/config"
	"discipline-journal-go/internal/models"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	restPath          = "/rest/v1"
	preferReturnRows  = "return=representation"
	counterCASRetries = 3
)

// APIError is a non-2xx response from the remote table store.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.Status, e.Body)
}

// RemoteStore implements Store against a hosted PostgREST-style table API.
type RemoteStore struct {
	client     *resty.Client
	apiKey     string
	logger     *zap.Logger
	limiter    *rate.Limiter
	maxRetries int
}

// ensure RemoteStore implements the interface
var _ Store = (*RemoteStore)(nil)

// NewRemoteStore creates a client for the hosted table store.
func NewRemoteStore(cfg *config.Remote, logger *zap.Logger) *RemoteStore {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.URL, "/")+restPath).
		SetHeader("apikey", cfg.APIKey).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json")
	if cfg.TimeoutSeconds > 0 {
		client.SetTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second)
	}

	// rate.Limit is requests per second; a non-positive limit disables limiting.
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	limiter := rate.NewLimiter(limit, max(cfg.RateLimitBurst, 1))

	maxRetries := cfg.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	return &RemoteStore{
		client:     client,
		apiKey:     cfg.APIKey,
		logger:     logger.Named("remote-store"),
		limiter:    limiter,
		maxRetries: maxRetries,
	}
}

// doRequest executes the request with rate limiting. Rate-limit and server
// errors are retried with backoff while attempts remain.
func (s *RemoteStore) doRequest(ctx context.Context, method, path string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error

	for i := 0; i < s.maxRetries; i++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		s.logger.Debug("Executing request", zap.String("method", method), zap.String("path", path))
		resp, err = req.SetContext(ctx).Execute(method, path)

		if err == nil && !resp.IsError() {
			return resp, nil
		}

		shouldRetry := false
		var retryAfter time.Duration

		if err == nil {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests {
				shouldRetry = true
				if seconds, convErr := strconv.Atoi(resp.Header().Get("Retry-After")); convErr == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= 500 {
				shouldRetry = true
			}
			apiErr := &APIError{Status: statusCode, Body: resp.String()}
			if statusCode == http.StatusConflict {
				return nil, fmt.Errorf("%w: %v", ErrDuplicate, apiErr)
			}
			if !shouldRetry {
				return nil, apiErr
			}
			err = apiErr
		} else {
			// Network or other client-side errors
			shouldRetry = true
		}

		if !shouldRetry || i == s.maxRetries-1 {
			break
		}

		if retryAfter == 0 {
			// Exponential backoff: 1s, 2s, 4s
			retryAfter = time.Duration(math.Pow(2, float64(i))) * time.Second
		}

		s.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if s.maxRetries == 1 {
		return nil, err
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", s.maxRetries, err)
}

func eq(v interface{}) string {
	return fmt.Sprintf("eq.%v", v)
}

func selectRows[T any](ctx context.Context, s *RemoteStore, table string, q url.Values) ([]T, error) {
	var rows []T
	req := s.client.R().SetQueryParamsFromValues(q).SetResult(&rows)
	if _, err := s.doRequest(ctx, http.MethodGet, "/"+table, req); err != nil {
		return nil, fmt.Errorf("failed to select from %s: %w", table, err)
	}
	return rows, nil
}

func selectOne[T any](ctx context.Context, s *RemoteStore, table string, q url.Values) (*T, error) {
	q.Set("limit", "1")
	rows, err := selectRows[T](ctx, s, table, q)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

// insertRow posts row and replaces it with the stored representation.
func insertRow[T any](ctx context.Context, s *RemoteStore, table string, row *T) error {
	var created []T
	req := s.client.R().
		SetHeader("Prefer", preferReturnRows).
		SetBody(row).
		SetResult(&created)
	if _, err := s.doRequest(ctx, http.MethodPost, "/"+table, req); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	if len(created) > 0 {
		*row = created[0]
	}
	return nil
}

// patchRows applies body to every row matching q and returns the updated rows.
func patchRows[T any](ctx context.Context, s *RemoteStore, table string, q url.Values, body interface{}) ([]T, error) {
	var updated []T
	req := s.client.R().
		SetHeader("Prefer", preferReturnRows).
		SetQueryParamsFromValues(q).
		SetBody(body).
		SetResult(&updated)
	if _, err := s.doRequest(ctx, http.MethodPatch, "/"+table, req); err != nil {
		return nil, fmt.Errorf("failed to update %s: %w", table, err)
	}
	return updated, nil
}

func (s *RemoteStore) CreateTrade(ctx context.Context, trade *models.Trade) error {
	return insertRow(ctx, s, "trades", trade)
}

func (s *RemoteStore) UpdateTrade(ctx context.Context, trade *models.Trade) error {
	q := url.Values{"id": {eq(trade.ID)}, "user_id": {eq(trade.UserID)}}
	rows, err := patchRows[models.Trade](ctx, s, "trades", q, trade)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RemoteStore) GetTrade(ctx context.Context, userID string, id uint) (*models.Trade, error) {
	return selectOne[models.Trade](ctx, s, "trades", url.Values{"id": {eq(id)}, "user_id": {eq(userID)}})
}

func (s *RemoteStore) ListTrades(ctx context.Context, userID string, filter TradeFilter) ([]models.Trade, error) {
	q := url.Values{"user_id": {eq(userID)}}
	if filter.Status != "" {
		q.Set("status", eq(filter.Status))
	}
	if filter.Status == models.TradeStatusClosed {
		q.Set("order", "exit_time.desc,id.desc")
	} else {
		q.Set("order", "entry_time.desc,id.desc")
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}
	return selectRows[models.Trade](ctx, s, "trades", q)
}

func (s *RemoteStore) CreateRule(ctx context.Context, rule *models.TradingRule) error {
	return insertRow(ctx, s, "trading_rules", rule)
}

func (s *RemoteStore) ListRules(ctx context.Context, userID string, activeOnly bool) ([]models.TradingRule, error) {
	q := url.Values{"user_id": {eq(userID)}, "order": {"id.asc"}}
	if activeOnly {
		q.Set("is_active", eq(true))
	}
	return selectRows[models.TradingRule](ctx, s, "trading_rules", q)
}

// IncrementRuleCounter reads the counter and writes it back conditionally on
// the value read, repeating a few times if another writer got there first.
func (s *RemoteStore) IncrementRuleCounter(ctx context.Context, ruleID uint, counter RuleCounter) error {
	if !counter.valid() {
		return fmt.Errorf("unknown rule counter %q", counter)
	}
	column := string(counter)

	for i := 0; i < counterCASRetries; i++ {
		rule, err := selectOne[models.TradingRule](ctx, s, "trading_rules", url.Values{"id": {eq(ruleID)}})
		if err != nil {
			return err
		}
		current := rule.TimesFollowed
		if counter == CounterViolated {
			current = rule.TimesViolated
		}

		q := url.Values{"id": {eq(ruleID)}, column: {eq(current)}}
		rows, err := patchRows[models.TradingRule](ctx, s, "trading_rules", q, map[string]int{column: current + 1})
		if err != nil {
			return err
		}
		if len(rows) > 0 {
			return nil
		}
		s.logger.Debug("Rule counter changed concurrently, retrying",
			zap.Uint("rule_id", ruleID), zap.String("counter", column))
	}
	return ErrConflict
}

func (s *RemoteStore) CreateViolation(ctx context.Context, v *models.RuleViolation) error {
	return insertRow(ctx, s, "rule_violations", v)
}

func (s *RemoteStore) ListViolations(ctx context.Context, userID string, filter ViolationFilter) ([]models.RuleViolation, error) {
	q := url.Values{"user_id": {eq(userID)}, "order": {"violated_at.desc,id.desc"}}
	if filter.TradeID != 0 {
		q.Set("trade_id", eq(filter.TradeID))
	}
	if filter.RuleID != 0 {
		q.Set("rule_id", eq(filter.RuleID))
	}
	return selectRows[models.RuleViolation](ctx, s, "rule_violations", q)
}

func (s *RemoteStore) GetProgress(ctx context.Context, userID string) (*models.UserProgress, error) {
	return selectOne[models.UserProgress](ctx, s, "user_progress", url.Values{"user_id": {eq(userID)}})
}

func (s *RemoteStore) CreateProgress(ctx context.Context, p *models.UserProgress) error {
	return insertRow(ctx, s, "user_progress", p)
}

func (s *RemoteStore) UpdateProgress(ctx context.Context, p *models.UserProgress) error {
	expected := p.Version
	next := *p
	next.ID = 0
	next.Version = expected + 1
	next.UpdatedAt = time.Now()

	q := url.Values{"user_id": {eq(p.UserID)}, "version": {eq(expected)}}
	rows, err := patchRows[models.UserProgress](ctx, s, "user_progress", q, &next)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return ErrConflict
	}
	*p = rows[0]
	return nil
}

func (s *RemoteStore) GetActiveGoal(ctx context.Context, userID string) (*models.UserGoal, error) {
	q := url.Values{"user_id": {eq(userID)}, "is_active": {eq(true)}, "order": {"id.desc"}}
	return selectOne[models.UserGoal](ctx, s, "user_goals", q)
}

// CreateGoal is two requests; a failure between them leaves the user without an active goal.
func (s *RemoteStore) CreateGoal(ctx context.Context, g *models.UserGoal) error {
	q := url.Values{"user_id": {eq(g.UserID)}, "is_active": {eq(true)}}
	if _, err := patchRows[models.UserGoal](ctx, s, "user_goals", q, map[string]bool{"is_active": false}); err != nil {
		return err
	}
	g.IsActive = true
	return insertRow(ctx, s, "user_goals", g)
}

func (s *RemoteStore) UpdateGoal(ctx context.Context, g *models.UserGoal) error {
	q := url.Values{"id": {eq(g.ID)}, "user_id": {eq(g.UserID)}}
	rows, err := patchRows[models.UserGoal](ctx, s, "user_goals", q, g)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RemoteStore) ListAchievements(ctx context.Context) ([]models.Achievement, error) {
	return selectRows[models.Achievement](ctx, s, "achievements", url.Values{"order": {"id.asc"}})
}

func (s *RemoteStore) ListUserAchievements(ctx context.Context, userID string) ([]models.UserAchievement, error) {
	return selectRows[models.UserAchievement](ctx, s, "user_achievements", url.Values{"user_id": {eq(userID)}, "order": {"id.asc"}})
}

func (s *RemoteStore) CreateUserAchievement(ctx context.Context, ua *models.UserAchievement) error {
	return insertRow(ctx, s, "user_achievements", ua)
}

func (s *RemoteStore) GetCheckIn(ctx context.Context, userID, date string) (*models.DailyCheckIn, error) {
	q := url.Values{"user_id": {eq(userID)}, "check_in_date": {eq(date)}}
	return selectOne[models.DailyCheckIn](ctx, s, "daily_check_ins", q)
}

func (s *RemoteStore) CreateCheckIn(ctx context.Context, c *models.DailyCheckIn) error {
	return insertRow(ctx, s, "daily_check_ins", c)
}

func (s *RemoteStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	return insertRow(ctx, s, "notifications", n)
}

func (s *RemoteStore) ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error) {
	q := url.Values{"user_id": {eq(userID)}, "order": {"created_at.desc,id.desc"}}
	if unreadOnly {
		q.Set("read", eq(false))
	}
	return selectRows[models.Notification](ctx, s, "notifications", q)
}

// Package journal orchestrates check-ins, trades, goals and achievements on
// top of the pure progression and rules packages.
package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"discipline-journal-go/internal/config"
	"discipline-journal-go/internal/models"
	"discipline-journal-go/internal/rules"
	"discipline-journal-go/internal/store"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

var (
	// ErrAlreadyCheckedIn is returned when the user already checked in today.
	ErrAlreadyCheckedIn = errors.New("already checked in today")
	// ErrInvalidRating is returned for a discipline rating outside 0..10.
	ErrInvalidRating = errors.New("discipline rating must be within 0..10")
	// ErrTradeClosed is returned when closing a trade that is already closed.
	ErrTradeClosed = errors.New("trade is already closed")
)

// PenaltyFunc is invoked once for every violation recorded against a trade.
type PenaltyFunc func(ctx context.Context, userID string, v rules.Violation) error

// Engine is the discipline and progression orchestrator. It holds no per-user
// state; everything is read from and written back to the store.
type Engine struct {
	logger      *zap.Logger
	cfg         config.Engine
	store       store.Store
	detector    rules.Detector
	follow      rules.FollowDetector
	notifier    Notifier
	penalty     PenaltyFunc
	definitions *cache.Cache
	loc         *time.Location
	now         func() time.Time
}

// Option customises an Engine.
type Option func(*Engine)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithNotifier replaces the store-backed notifier.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithPenalty replaces the default XP deduction applied per violation.
func WithPenalty(p PenaltyFunc) Option {
	return func(e *Engine) { e.penalty = p }
}

// NewEngine creates a new engine.
func NewEngine(logger *zap.Logger, cfg *config.Config, st store.Store, detector rules.Detector, opts ...Option) (*Engine, error) {
	loc, err := time.LoadLocation(cfg.Engine.Timezone)
	if err != nil {
		return nil, fmt.Errorf("could not load time zone %q: %w", cfg.Engine.Timezone, err)
	}

	engineCfg := cfg.Engine
	if engineCfg.ConflictRetries < 1 {
		engineCfg.ConflictRetries = 1
	}
	ttl := time.Duration(engineCfg.AchievementCacheTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}

	e := &Engine{
		logger:      logger.Named("journal"),
		cfg:         engineCfg,
		store:       st,
		detector:    detector,
		notifier:    NewStoreNotifier(st),
		definitions: cache.New(ttl, 2*ttl),
		loc:         loc,
		now:         time.Now,
	}
	e.penalty = e.deductXP
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// NewDetector builds the keyword heuristic detector from engine settings.
func NewDetector(cfg *config.Engine) (*rules.HeuristicDetector, error) {
	market, err := rules.NewMarketClock(cfg.MarketTimezone)
	if err != nil {
		return nil, err
	}
	window := time.Duration(cfg.RevengeWindowMinutes) * time.Minute
	return rules.NewHeuristicDetector(market, window), nil
}

// today is the current calendar day in the engine's time zone.
func (e *Engine) today() string {
	return e.now().In(e.loc).Format(models.CheckInDateLayout)
}

// deductXP is the default penalty: a fixed XP loss, never below zero.
func (e *Engine) deductXP(ctx context.Context, userID string, v rules.Violation) error {
	if e.cfg.ViolationPenaltyXP <= 0 {
		return nil
	}
	_, err := e.mutateProgress(ctx, userID, func(p *models.UserProgress) error {
		applyXP(p, -e.cfg.ViolationPenaltyXP)
		return nil
	})
	return err
}

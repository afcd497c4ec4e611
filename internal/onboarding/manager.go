package onboarding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"discipline-journal-go/internal/models"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

var (
	// ErrSessionNotFound is returned for unknown, expired or foreign sessions.
	ErrSessionNotFound = errors.New("onboarding session not found")
	// ErrWrongStep is returned when an action does not fit the session's step.
	ErrWrongStep = errors.New("action not allowed at this onboarding step")
	// ErrNoRules is returned when no rule was selected.
	ErrNoRules = errors.New("select at least one rule")
)

// Provisioner writes the outcome of a completed onboarding.
type Provisioner interface {
	AddRule(ctx context.Context, rule *models.TradingRule) error
	SetGoal(ctx context.Context, goal *models.UserGoal) error
	Progress(ctx context.Context, userID string) (*models.UserProgress, error)
}

// Result is what a completed onboarding created.
type Result struct {
	Rules    []models.TradingRule `json:"rules"`
	Goal     models.UserGoal      `json:"goal"`
	Progress models.UserProgress  `json:"progress"`
}

// Manager holds onboarding sessions until they complete, are cancelled or expire.
type Manager struct {
	mu          sync.Mutex
	sessions    *cache.Cache
	provisioner Provisioner
	logger      *zap.Logger
	now         func() time.Time
}

// NewManager creates a manager whose sessions expire after ttl of inactivity.
func NewManager(p Provisioner, ttl time.Duration, logger *zap.Logger) *Manager {
	return &Manager{
		sessions:    cache.New(ttl, 2*ttl),
		provisioner: p,
		logger:      logger.Named("onboarding"),
		now:         time.Now,
	}
}

// Start opens a new session at the rules step.
func (m *Manager) Start(userID string) *Session {
	s := Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Step:      StepRules,
		StartedAt: m.now(),
	}
	m.sessions.SetDefault(s.ID, s)
	m.logger.Debug("Onboarding started", zap.String("user_id", userID), zap.String("session_id", s.ID))
	return &s
}

// Get returns a copy of the user's session.
func (m *Manager) Get(userID, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.lookup(userID, id)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (m *Manager) lookup(userID, id string) (Session, error) {
	v, ok := m.sessions.Get(id)
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	s := v.(Session)
	if s.UserID != userID {
		return Session{}, ErrSessionNotFound
	}
	return s, nil
}

// update applies fn to the stored session and, on success, stores the result
// with a refreshed expiry.
func (m *Manager) update(userID, id string, fn func(s *Session) error) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.lookup(userID, id)
	if err != nil {
		return nil, err
	}
	if err := fn(&s); err != nil {
		return nil, err
	}
	m.sessions.SetDefault(id, s)
	return &s, nil
}

// SelectRules records the chosen rule texts and moves on to the goal step.
// Rules may be changed again until the session completes.
func (m *Manager) SelectRules(userID, id string, texts []string) (*Session, error) {
	var selected []RuleTemplate
	seen := make(map[string]bool)
	for _, text := range texts {
		text = strings.TrimSpace(text)
		key := strings.ToLower(text)
		if text == "" || seen[key] {
			continue
		}
		seen[key] = true
		selected = append(selected, templateFor(text))
	}
	if len(selected) == 0 {
		return nil, ErrNoRules
	}

	return m.update(userID, id, func(s *Session) error {
		if s.provisioning {
			return fmt.Errorf("%w: session is completing", ErrWrongStep)
		}
		s.SelectedRules = selected
		if s.Step == StepRules {
			s.Step = StepGoal
		}
		return nil
	})
}

// SetGoal records the goal and moves on to the final step.
func (m *Manager) SetGoal(userID, id string, goal GoalInput) (*Session, error) {
	g := goal.toGoal(userID)
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return m.update(userID, id, func(s *Session) error {
		if s.Step == StepRules {
			return fmt.Errorf("%w: choose rules first", ErrWrongStep)
		}
		if s.provisioning {
			return fmt.Errorf("%w: session is completing", ErrWrongStep)
		}
		s.Goal = &goal
		s.createdGoal = nil
		s.Step = StepComplete
		return nil
	})
}

// Complete writes the selected rules, the goal and the starting progress,
// then discards the session. A failed write keeps the session for a retry;
// rows written before the failure are not written again. Only one Complete
// per session runs at a time.
func (m *Manager) Complete(ctx context.Context, userID, id string) (*Result, error) {
	s, err := m.update(userID, id, func(s *Session) error {
		if s.Step != StepComplete || s.Goal == nil {
			return fmt.Errorf("%w: session is at step %q", ErrWrongStep, s.Step)
		}
		if s.provisioning {
			return fmt.Errorf("%w: session is already completing", ErrWrongStep)
		}
		s.provisioning = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	l := m.logger.With(zap.String("user_id", userID), zap.String("session_id", id))

	result, err := m.provision(ctx, l, s)
	if err != nil {
		m.record(userID, id, func(s *Session) { s.provisioning = false })
		return nil, err
	}

	m.mu.Lock()
	m.sessions.Delete(id)
	m.mu.Unlock()
	l.Info("Onboarding completed", zap.Int("rules", len(result.Rules)))
	return result, nil
}

func (m *Manager) provision(ctx context.Context, l *zap.Logger, s *Session) (*Result, error) {
	created := make(map[string]models.TradingRule, len(s.createdRules))
	for _, rule := range s.createdRules {
		created[strings.ToLower(rule.RuleText)] = rule
	}

	result := &Result{}
	for _, tmpl := range s.SelectedRules {
		if rule, ok := created[strings.ToLower(tmpl.Text)]; ok {
			result.Rules = append(result.Rules, rule)
			continue
		}
		rule := models.TradingRule{UserID: s.UserID, RuleText: tmpl.Text, Category: tmpl.Category}
		if err := m.provisioner.AddRule(ctx, &rule); err != nil {
			l.Error("Failed to create onboarding rule", zap.String("rule", tmpl.Text), zap.Error(err))
			return nil, err
		}
		m.record(s.UserID, s.ID, func(s *Session) { s.createdRules = append(s.createdRules, rule) })
		result.Rules = append(result.Rules, rule)
	}

	if s.createdGoal != nil {
		result.Goal = *s.createdGoal
	} else {
		goal := s.Goal.toGoal(s.UserID)
		if err := m.provisioner.SetGoal(ctx, &goal); err != nil {
			l.Error("Failed to create onboarding goal", zap.Error(err))
			return nil, err
		}
		m.record(s.UserID, s.ID, func(s *Session) { s.createdGoal = &goal })
		result.Goal = goal
	}

	progress, err := m.provisioner.Progress(ctx, s.UserID)
	if err != nil {
		l.Error("Failed to initialise progress", zap.Error(err))
		return nil, err
	}
	result.Progress = *progress
	return result, nil
}

// record applies fn to the session if it still exists.
func (m *Manager) record(userID, id string, fn func(s *Session)) {
	_, err := m.update(userID, id, func(s *Session) error {
		fn(s)
		return nil
	})
	if err != nil {
		m.logger.Warn("Onboarding session vanished while completing",
			zap.String("user_id", userID), zap.String("session_id", id), zap.Error(err))
	}
}

// Cancel discards the session.
func (m *Manager) Cancel(userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.lookup(userID, id); err != nil {
		return err
	}
	m.sessions.Delete(id)
	return nil
}

// Package service orchestrates the progression core against the store and
// the text provider. Handlers call it; it has no HTTP knowledge.
package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/MantraGGR/name---level-up-irl-app/internal/advisor"
	"github.com/MantraGGR/name---level-up-irl-app/internal/apperr"
	"github.com/MantraGGR/name---level-up-irl-app/internal/auth"
	"github.com/MantraGGR/name---level-up-irl-app/internal/milestones"
	"github.com/MantraGGR/name---level-up-irl-app/internal/models"
	"github.com/MantraGGR/name---level-up-irl-app/internal/quests"
	"github.com/MantraGGR/name---level-up-irl-app/internal/store"
	"github.com/MantraGGR/name---level-up-irl-app/internal/textgen"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

const (
	DefaultQuestTTL       = 7 * 24 * time.Hour
	DefaultQuestAITimeout = 15 * time.Second
	DefaultGoalAITimeout  = 30 * time.Second

	// milestoneAttempts bounds the reload-and-retry loop on version conflicts.
	milestoneAttempts = 5
)

type Options struct {
	Provider       textgen.Provider
	QuestAITimeout time.Duration
	GoalAITimeout  time.Duration
	QuestTTL       time.Duration
	Log            *zap.Logger
}

type Service struct {
	Store    store.Store
	Auth     *auth.Manager
	Quests   *quests.Generator
	Planner  *milestones.Planner
	Ultimate milestones.UltimateCatalog
	Advisor  *advisor.Advisor
	Log      *zap.Logger
	QuestTTL time.Duration
	Now      func() time.Time
}

func New(st store.Store, authManager *auth.Manager, opts Options) *Service {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.Provider == nil {
		opts.Provider = textgen.Disabled{}
	}
	if opts.QuestAITimeout <= 0 {
		opts.QuestAITimeout = DefaultQuestAITimeout
	}
	if opts.GoalAITimeout <= 0 {
		opts.GoalAITimeout = DefaultGoalAITimeout
	}
	if opts.QuestTTL <= 0 {
		opts.QuestTTL = DefaultQuestTTL
	}
	s := &Service{
		Store:    st,
		Auth:     authManager,
		Quests:   quests.NewGenerator(quests.DefaultCatalog(), opts.Provider, opts.QuestAITimeout, opts.Log),
		Planner:  milestones.NewPlanner(opts.Provider, opts.GoalAITimeout, opts.Log),
		Ultimate: milestones.DefaultUltimateCatalog(),
		Log:      opts.Log,
		QuestTTL: opts.QuestTTL,
		Now:      func() time.Time { return time.Now().UTC() },
	}
	s.Advisor = advisor.New(chatBackend{s}, advisor.DefaultCatalog())
	return s
}

// Session is returned by Register and Login.
type Session struct {
	User        *models.User `json:"user"`
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
}

func (s *Service) session(u *models.User) (*Session, error) {
	tok, exp, err := s.Auth.GenerateToken(u.ID)
	if err != nil {
		return nil, err
	}
	return &Session{User: u, AccessToken: tok, TokenType: "bearer", ExpiresAt: exp}, nil
}

func (s *Service) Register(ctx context.Context, email, password, fullName string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperr.Validation("invalid email %q", email)
	}
	hash, err := s.Auth.HashPassword(password)
	if errors.Is(err, auth.ErrWeakPassword) {
		return nil, apperr.Validation("password must be at least %d characters", auth.MinPasswordLength)
	}
	if err != nil {
		return nil, err
	}
	u := &models.User{Email: email, PasswordHash: hash, FullName: strings.TrimSpace(fullName)}
	if err := s.Store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, apperr.Validation("email already registered")
		}
		return nil, err
	}
	s.Log.Info("user registered", zap.String("user_id", u.ID))
	return s.session(u)
}

func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.Store.GetUserByEmail(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := s.Auth.ComparePassword(u.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.session(u)
}

func (s *Service) Me(ctx context.Context, userID string) (*models.User, error) {
	return s.Store.GetUser(ctx, userID)
}

// Ping reports store health.
func (s *Service) Ping(ctx context.Context) error {
	return s.Store.Ping(ctx)
}

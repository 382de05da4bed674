package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/MantraGGR/name---level-up-irl-app/internal/apperr"
	"github.com/MantraGGR/name---level-up-irl-app/internal/models"
	"github.com/MantraGGR/name---level-up-irl-app/internal/progression"
	"github.com/MantraGGR/name---level-up-irl-app/internal/store"
)

// Completion is the result of completing any work unit.
type Completion struct {
	Award  progression.Award        `json:"award"`
	Ledger progression.LedgerUpdate `json:"ledger"`
}

type LedgerView struct {
	Pillars models.Ledger       `json:"pillars"`
	Summary progression.Summary `json:"summary"`
}

func (s *Service) Ledger(ctx context.Context, userID string) (*LedgerView, error) {
	u, err := s.Store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &LedgerView{Pillars: u.Ledger, Summary: progression.Summarize(u.Ledger)}, nil
}

// AddXP credits a raw amount to one pillar without the onboarding multiplier.
func (s *Service) AddXP(ctx context.Context, userID, pillar string, amount int) (progression.LedgerUpdate, error) {
	p, err := models.ParsePillar(pillar)
	if err != nil {
		return progression.LedgerUpdate{}, err
	}
	up, err := s.Store.ApplyXP(ctx, userID, p, amount)
	if err != nil {
		return progression.LedgerUpdate{}, err
	}
	s.logLevelUp(userID, up)
	return up, nil
}

func (s *Service) logLevelUp(userID string, up progression.LedgerUpdate) {
	if up.LeveledUp {
		s.Log.Info("level up",
			zap.String("user_id", userID),
			zap.String("pillar", string(up.Pillar)),
			zap.Int("level", up.NewLevel))
	}
}

type OnboardingInput struct {
	FullName     string         `json:"display_name"`
	PillarScores map[string]int `json:"pillar_scores"`
	ADHD         *int           `json:"adhd_score"`
	Anxiety      *int           `json:"anxiety_score"`
	Depression   *int           `json:"depression_score"`
}

type OnboardingOutcome struct {
	User   *models.User                 `json:"user"`
	Result progression.OnboardingResult `json:"result"`
}

// CompleteOnboarding seeds the ledger from the self-assessment. Mental-health
// scores left out of in are taken from the latest assessment.
func (s *Service) CompleteOnboarding(ctx context.Context, userID string, in OnboardingInput) (*OnboardingOutcome, error) {
	u, err := s.Store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.OnboardingCompleted {
		return nil, apperr.InvalidState("onboarding already completed")
	}

	scores := make(map[models.Pillar]int, len(in.PillarScores))
	for name, v := range in.PillarScores {
		p, err := models.ParsePillar(name)
		if err != nil {
			return nil, err
		}
		scores[p] = v
	}

	mental := progression.MentalHealthScores{ADHD: in.ADHD, Anxiety: in.Anxiety, Depression: in.Depression}
	if mental.ADHD == nil || mental.Anxiety == nil || mental.Depression == nil {
		a, err := s.Store.LatestAssessment(ctx, userID)
		switch {
		case err == nil:
			if mental.ADHD == nil {
				mental.ADHD = a.ADHDScore
			}
			if mental.Anxiety == nil {
				mental.Anxiety = a.AnxietyScore
			}
			if mental.Depression == nil {
				mental.Depression = a.DepressionScore
			}
		case !errors.Is(err, apperr.ErrNotFound):
			return nil, err
		}
	}

	res, err := progression.ScoreOnboarding(scores, mental)
	if err != nil {
		return nil, err
	}
	updated, err := s.Store.CompleteOnboarding(ctx, userID, store.Onboarding{
		FullName:            in.FullName,
		Totals:              res.Totals(),
		XPMultiplier:        res.XPMultiplier,
		RecommendedTaskSize: res.RecommendedTaskSize,
		At:                  s.Now(),
	})
	if err != nil {
		return nil, err
	}
	s.Log.Info("onboarding completed",
		zap.String("user_id", userID),
		zap.Float64("xp_multiplier", res.XPMultiplier),
		zap.Bool("balance_bonus", res.BalanceBonusApplied))
	return &OnboardingOutcome{User: updated, Result: res}, nil
}

type AssessmentInput struct {
	ADHD       *int           `json:"adhd_score"`
	Anxiety    *int           `json:"anxiety_score"`
	Depression *int           `json:"depression_score"`
	Responses  map[string]any `json:"responses"`
}

func (s *Service) SubmitAssessment(ctx context.Context, userID string, in AssessmentInput) (*models.Assessment, error) {
	scores := progression.MentalHealthScores{ADHD: in.ADHD, Anxiety: in.Anxiety, Depression: in.Depression}
	for name, v := range map[string]*int{"adhd": in.ADHD, "anxiety": in.Anxiety, "depression": in.Depression} {
		if v != nil && *v < 0 {
			return nil, apperr.Validation("%s score must be non-negative, got %d", name, *v)
		}
	}
	a := &models.Assessment{
		UserID:          userID,
		ADHDScore:       in.ADHD,
		AnxietyScore:    in.Anxiety,
		DepressionScore: in.Depression,
		Responses:       in.Responses,
		Recommendations: progression.Recommendations(scores),
		CompletedAt:     s.Now(),
	}
	if a.Responses == nil {
		a.Responses = map[string]any{}
	}
	if err := s.Store.CreateAssessment(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) LatestAssessment(ctx context.Context, userID string) (*models.Assessment, error) {
	return s.Store.LatestAssessment(ctx, userID)
}

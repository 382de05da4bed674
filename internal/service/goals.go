package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MantraGGR/name---level-up-irl-app/internal/apperr"
	"github.com/MantraGGR/name---level-up-irl-app/internal/milestones"
	"github.com/MantraGGR/name---level-up-irl-app/internal/models"
	"github.com/MantraGGR/name---level-up-irl-app/internal/progression"
	"github.com/MantraGGR/name---level-up-irl-app/internal/store"
)

const defaultCustomIcon = "⭐"

// GoalView adds the derived progress to a goal.
type GoalView struct {
	models.Goal
	ProgressPercent float64 `json:"progress_percent"`
}

func viewGoal(g models.Goal) GoalView {
	return GoalView{Goal: g, ProgressPercent: g.Sequence.ProgressPercent()}
}

func viewGoals(gs []models.Goal) []GoalView {
	out := make([]GoalView, 0, len(gs))
	for _, g := range gs {
		out = append(out, viewGoal(g))
	}
	return out
}

func newMilestoneID(int) string { return uuid.NewString() }

type GoalInput struct {
	Description string `json:"description"`
	Pillar      string `json:"life_pillar"`
}

// CreateGoal plans a roadmap goal for the description.
func (s *Service) CreateGoal(ctx context.Context, userID string, in GoalInput) (*GoalView, error) {
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		return nil, apperr.Validation("description is required")
	}
	p, err := models.ParsePillar(in.Pillar)
	if err != nil {
		return nil, err
	}
	u, err := s.Store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	rm := s.Planner.PlanRoadmap(ctx, desc, p, u.Ledger[p].Level)
	g := &models.Goal{
		UserID:             userID,
		Kind:               models.GoalKindRoadmap,
		Title:              rm.Title,
		Description:        desc,
		Pillar:             p,
		AIAnalysis:         rm.Analysis,
		EstimatedTimeframe: rm.Timeframe,
		DifficultyRating:   rm.Difficulty,
		Sequence:           milestones.NewSequence(rm.Milestones, newMilestoneID),
	}
	if err := s.Store.CreateGoal(ctx, g); err != nil {
		return nil, err
	}
	v := viewGoal(*g)
	return &v, nil
}

func (s *Service) ListGoals(ctx context.Context, userID string, completed *bool) ([]GoalView, error) {
	gs, err := s.Store.ListGoals(ctx, userID, store.GoalFilter{Kind: models.GoalKindRoadmap, Completed: completed})
	if err != nil {
		return nil, err
	}
	return viewGoals(gs), nil
}

func (s *Service) DeleteGoal(ctx context.Context, userID, goalID string) error {
	if _, err := s.goalOfKind(ctx, userID, goalID, models.GoalKindRoadmap); err != nil {
		return err
	}
	return s.Store.DeleteGoal(ctx, userID, goalID)
}

func (s *Service) goalOfKind(ctx context.Context, userID, goalID string, kind models.GoalKind) (*models.Goal, error) {
	g, err := s.Store.GetGoal(ctx, userID, goalID)
	if err != nil {
		return nil, err
	}
	if g.Kind != kind {
		return nil, apperr.NotFound("goal %s", goalID)
	}
	return g, nil
}

type MilestoneCompletion struct {
	Completion
	Outcome milestones.Outcome `json:"outcome"`
	Goal    GoalView           `json:"goal"`
}

func (s *Service) CompleteGoalMilestone(ctx context.Context, userID, goalID, milestoneID string) (*MilestoneCompletion, error) {
	return s.completeMilestone(ctx, userID, goalID, milestoneID, models.GoalKindRoadmap)
}

func (s *Service) CompleteUltimateMilestone(ctx context.Context, userID, goalID, milestoneID string) (*MilestoneCompletion, error) {
	return s.completeMilestone(ctx, userID, goalID, milestoneID, models.GoalKindUltimate)
}

// completeMilestone applies the transition to a fresh copy of the goal and
// saves it against the version it was read at. A lost race reloads, so the
// loser sees the milestone as already completed.
func (s *Service) completeMilestone(ctx context.Context, userID, goalID, milestoneID string, kind models.GoalKind) (*MilestoneCompletion, error) {
	u, err := s.Store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for attempt := 0; attempt < milestoneAttempts; attempt++ {
		g, err := s.goalOfKind(ctx, userID, goalID, kind)
		if err != nil {
			return nil, err
		}
		idx, err := milestones.Check(&g.Sequence, milestoneID)
		if err != nil {
			return nil, err
		}
		award, err := progression.Reward(progression.MilestoneUnit{Goal: g, Milestone: &g.Sequence.Milestones[idx]}, u.XPMultiplier)
		if err != nil {
			return nil, err
		}
		outcome, err := milestones.Complete(&g.Sequence, milestoneID, award.XP, s.Now())
		if err != nil {
			return nil, err
		}
		up, err := s.Store.CompleteMilestone(ctx, g, award)
		if errors.Is(err, apperr.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		s.logLevelUp(userID, up)
		if outcome.SequenceCompleted {
			s.Log.Info("goal completed", zap.String("user_id", userID), zap.String("goal_id", goalID))
		}
		return &MilestoneCompletion{
			Completion: Completion{Award: award, Ledger: up},
			Outcome:    outcome,
			Goal:       viewGoal(*g),
		}, nil
	}
	return nil, fmt.Errorf("goal %s: %w", goalID, apperr.ErrConflict)
}

// InitializeUltimateGoals creates the predefined ultimate goal of every
// pillar that does not have one yet. Repeated calls create nothing.
func (s *Service) InitializeUltimateGoals(ctx context.Context, userID string) ([]GoalView, error) {
	existing, err := s.Store.ListGoals(ctx, userID, store.GoalFilter{Kind: models.GoalKindUltimate})
	if err != nil {
		return nil, err
	}
	have := map[models.Pillar]bool{}
	for _, g := range existing {
		if !g.IsCustom {
			have[g.Pillar] = true
		}
	}
	created := []GoalView{}
	for _, p := range models.Pillars {
		t, ok := s.Ultimate[p]
		if !ok || have[p] {
			continue
		}
		g := t.Goal(userID, p)
		err := s.Store.CreateGoal(ctx, &g)
		if errors.Is(err, apperr.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		created = append(created, viewGoal(g))
	}
	return created, nil
}

// ListUltimateGoals initializes the predefined goals on first use.
func (s *Service) ListUltimateGoals(ctx context.Context, userID string) ([]GoalView, error) {
	f := store.GoalFilter{Kind: models.GoalKindUltimate}
	gs, err := s.Store.ListGoals(ctx, userID, f)
	if err != nil {
		return nil, err
	}
	if len(gs) == 0 {
		if _, err := s.InitializeUltimateGoals(ctx, userID); err != nil {
			return nil, err
		}
		if gs, err = s.Store.ListGoals(ctx, userID, f); err != nil {
			return nil, err
		}
	}
	return viewGoals(gs), nil
}

type CustomGoalInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Pillar      string `json:"life_pillar"`
	Icon        string `json:"icon"`
}

func (s *Service) CreateCustomUltimateGoal(ctx context.Context, userID string, in CustomGoalInput) (*GoalView, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperr.Validation("title is required")
	}
	p, err := models.ParsePillar(in.Pillar)
	if err != nil {
		return nil, err
	}
	u, err := s.Store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	desc := strings.TrimSpace(in.Description)
	icon := strings.TrimSpace(in.Icon)
	if icon == "" {
		icon = defaultCustomIcon
	}
	steps := s.Planner.PlanCustom(ctx, title, desc, p, u.Ledger[p].Level)
	g := &models.Goal{
		UserID:      userID,
		Kind:        models.GoalKindUltimate,
		Title:       title,
		Description: desc,
		Pillar:      p,
		Icon:        icon,
		IsCustom:    true,
		Sequence:    milestones.NewSequence(steps, newMilestoneID),
	}
	if err := s.Store.CreateGoal(ctx, g); err != nil {
		return nil, err
	}
	v := viewGoal(*g)
	return &v, nil
}

// DeleteUltimateGoal removes a custom ultimate goal; predefined ones stay.
func (s *Service) DeleteUltimateGoal(ctx context.Context, userID, goalID string) error {
	g, err := s.goalOfKind(ctx, userID, goalID, models.GoalKindUltimate)
	if err != nil {
		return err
	}
	if !g.IsCustom {
		return apperr.InvalidState("predefined ultimate goals cannot be deleted")
	}
	return s.Store.DeleteGoal(ctx, userID, goalID)
}

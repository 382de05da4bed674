package service

import (
	"context"
	"strings"
	"time"

	"github.com/MantraGGR/name---level-up-irl-app/internal/apperr"
	"github.com/MantraGGR/name---level-up-irl-app/internal/models"
	"github.com/MantraGGR/name---level-up-irl-app/internal/progression"
	"github.com/MantraGGR/name---level-up-irl-app/internal/store"
)

const (
	DefaultTaskDuration = 30
	DefaultTaskXP       = 10
	// MaxTaskXP bounds a self-declared task reward.
	MaxTaskXP = 1000
)

type TaskInput struct {
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	Pillar            string     `json:"life_pillar"`
	Priority          string     `json:"priority"`
	EstimatedDuration *int       `json:"estimated_duration"`
	XPReward          *int       `json:"xp_reward"`
	DueDate           *time.Time `json:"due_date"`
}

func (s *Service) CreateTask(ctx context.Context, userID string, in TaskInput) (*models.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperr.Validation("title is required")
	}
	pillar, err := models.ParsePillar(in.Pillar)
	if err != nil {
		return nil, err
	}
	priority, err := models.ParsePriority(in.Priority)
	if err != nil {
		return nil, err
	}
	t := &models.Task{
		UserID:            userID,
		Title:             title,
		Description:       strings.TrimSpace(in.Description),
		Pillar:            pillar,
		Priority:          priority,
		EstimatedDuration: DefaultTaskDuration,
		XPReward:          DefaultTaskXP,
		DueDate:           in.DueDate,
		CreatedAt:         s.Now(),
	}
	if in.EstimatedDuration != nil {
		if *in.EstimatedDuration <= 0 {
			return nil, apperr.Validation("estimated_duration must be positive")
		}
		t.EstimatedDuration = *in.EstimatedDuration
	}
	if in.XPReward != nil {
		if *in.XPReward < 0 || *in.XPReward > MaxTaskXP {
			return nil, apperr.Validation("xp_reward must be between 0 and %d", MaxTaskXP)
		}
		t.XPReward = *in.XPReward
	}
	if err := s.Store.CreateTask(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) ListTasks(ctx context.Context, userID string, completed *bool) ([]models.Task, error) {
	return s.Store.ListTasks(ctx, userID, store.TaskFilter{Completed: completed})
}

// CompleteTask awards the task's XP once. A repeated or concurrent second
// completion fails with apperr.ErrInvalidState and awards nothing.
func (s *Service) CompleteTask(ctx context.Context, userID, taskID string) (*Completion, error) {
	u, err := s.Store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	t, err := s.Store.GetTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	award, err := progression.Reward(progression.TaskUnit{Task: t}, u.XPMultiplier)
	if err != nil {
		return nil, err
	}
	up, err := s.Store.CompleteTask(ctx, userID, taskID, s.Now(), award)
	if err != nil {
		return nil, err
	}
	s.logLevelUp(userID, up)
	return &Completion{Award: award, Ledger: up}, nil
}

func (s *Service) DeleteTask(ctx context.Context, userID, taskID string) error {
	return s.Store.DeleteTask(ctx, userID, taskID)
}

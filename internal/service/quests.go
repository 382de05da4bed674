package service

import (
	"context"
	"errors"
	"math"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/MantraGGR/name---level-up-irl-app/internal/apperr"
	"github.com/MantraGGR/name---level-up-irl-app/internal/models"
	"github.com/MantraGGR/name---level-up-irl-app/internal/progression"
	"github.com/MantraGGR/name---level-up-irl-app/internal/quests"
	"github.com/MantraGGR/name---level-up-irl-app/internal/store"
)

// QuestView adds the derived progress to a quest.
type QuestView struct {
	models.Quest
	ProgressPercent float64 `json:"progress_percent"`
}

func viewQuest(q models.Quest) QuestView {
	return QuestView{Quest: q, ProgressPercent: q.ProgressPercent()}
}

// GenerateQuests tops the pillar up to quests.MaxActivePerPillar active
// quests scaled to the user's current pillar level.
func (s *Service) GenerateQuests(ctx context.Context, userID, pillar string) ([]QuestView, error) {
	p, err := models.ParsePillar(pillar)
	if err != nil {
		return nil, err
	}
	u, err := s.Store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.generateFor(ctx, u, p)
}

func (s *Service) generateFor(ctx context.Context, u *models.User, p models.Pillar) ([]QuestView, error) {
	active, err := s.Store.CountActiveQuests(ctx, u.ID, p)
	if err != nil {
		return nil, err
	}
	need := quests.Needed(active)
	if need == 0 {
		return []QuestView{}, nil
	}
	stats := u.Ledger[p]
	level := max(stats.Level, 1)
	drafts, err := s.Quests.Generate(ctx, quests.Request{Pillar: p, Level: level, TotalXP: stats.TotalXP, Count: need})
	if err != nil {
		return nil, err
	}
	now := s.Now()
	batch := make([]models.Quest, 0, len(drafts))
	for _, d := range drafts {
		batch = append(batch, quests.NewQuest(u.ID, p, level, d, now, s.QuestTTL))
	}
	stored, err := s.Store.InsertQuests(ctx, u.ID, p, batch, quests.MaxActivePerPillar)
	if err != nil {
		return nil, err
	}
	out := make([]QuestView, 0, len(stored))
	for _, q := range stored {
		out = append(out, viewQuest(q))
	}
	s.Log.Debug("quests generated",
		zap.String("user_id", u.ID),
		zap.String("pillar", string(p)),
		zap.Int("count", len(out)))
	return out, nil
}

// GenerateAllQuests tops up every pillar concurrently.
func (s *Service) GenerateAllQuests(ctx context.Context, userID string) (map[models.Pillar][]QuestView, error) {
	u, err := s.Store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	var mu sync.Mutex
	out := make(map[models.Pillar][]QuestView, len(models.Pillars))
	g, gctx := errgroup.WithContext(ctx)
	for _, p := range models.Pillars {
		g.Go(func() error {
			qs, err := s.generateFor(gctx, u, p)
			if err != nil {
				return err
			}
			mu.Lock()
			out[p] = qs
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) ListQuests(ctx context.Context, userID, pillar string, completed *bool) ([]QuestView, error) {
	f := store.QuestFilter{Completed: completed}
	if pillar != "" {
		p, err := models.ParsePillar(pillar)
		if err != nil {
			return nil, err
		}
		f.Pillar = p
	}
	qs, err := s.Store.ListQuests(ctx, userID, f)
	if err != nil {
		return nil, err
	}
	out := make([]QuestView, 0, len(qs))
	for _, q := range qs {
		out = append(out, viewQuest(q))
	}
	return out, nil
}

type QuestProgress struct {
	Quest      QuestView   `json:"quest"`
	Completion *Completion `json:"completion,omitempty"`
}

// UpdateQuestProgress records progress and completes the quest once the
// target is reached.
func (s *Service) UpdateQuestProgress(ctx context.Context, userID, questID string, value float64) (*QuestProgress, error) {
	if value < 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, apperr.Validation("current_value must be a non-negative number")
	}
	cur, err := s.Store.GetQuest(ctx, userID, questID)
	if err != nil {
		return nil, err
	}
	if err := s.checkLive(cur); err != nil {
		return nil, err
	}
	q, err := s.Store.UpdateQuestProgress(ctx, userID, questID, value)
	if err != nil {
		return nil, err
	}
	if q.TargetValue == nil || *q.TargetValue <= 0 || q.CurrentValue < *q.TargetValue {
		return &QuestProgress{Quest: viewQuest(*q)}, nil
	}
	c, err := s.CompleteQuest(ctx, userID, questID)
	if errors.Is(err, apperr.ErrInvalidState) {
		// Completed concurrently; the winner already credited the XP.
		c = nil
	} else if err != nil {
		return nil, err
	}
	if q, err = s.Store.GetQuest(ctx, userID, questID); err != nil {
		return nil, err
	}
	return &QuestProgress{Quest: viewQuest(*q), Completion: c}, nil
}

func (s *Service) CompleteQuest(ctx context.Context, userID, questID string) (*Completion, error) {
	u, err := s.Store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	q, err := s.Store.GetQuest(ctx, userID, questID)
	if err != nil {
		return nil, err
	}
	if err := s.checkLive(q); err != nil {
		return nil, err
	}
	award, err := progression.Reward(progression.QuestUnit{Quest: q}, u.XPMultiplier)
	if err != nil {
		return nil, err
	}
	up, err := s.Store.CompleteQuest(ctx, userID, questID, s.Now(), award)
	if err != nil {
		return nil, err
	}
	s.logLevelUp(userID, up)
	return &Completion{Award: award, Ledger: up}, nil
}

// checkLive rejects quests past their expiry, swept or not.
func (s *Service) checkLive(q *models.Quest) error {
	if q.Completed {
		return apperr.InvalidState("quest %s is already completed", q.ID)
	}
	if !q.IsActive || q.Expired(s.Now()) {
		return apperr.InvalidState("quest %s has expired", q.ID)
	}
	return nil
}

func (s *Service) DeleteQuest(ctx context.Context, userID, questID string) error {
	return s.Store.DeleteQuest(ctx, userID, questID)
}

// SweepExpiredQuests retires quests past their expiry so the per-pillar cap
// frees up.
func (s *Service) SweepExpiredQuests(ctx context.Context) (int64, error) {
	n, err := s.Store.DeactivateExpiredQuests(ctx, s.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.Log.Info("expired quests deactivated", zap.Int64("count", n))
	}
	return n, nil
}

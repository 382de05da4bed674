// Package memstore is an in-process store.Store used for tests and for
// running without Postgres. A single mutex serialises every mutation, which
// makes ledger increments and completion swaps atomic.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MantraGGR/name---level-up-irl-app/internal/apperr"
	"github.com/MantraGGR/name---level-up-irl-app/internal/models"
	"github.com/MantraGGR/name---level-up-irl-app/internal/progression"
	"github.com/MantraGGR/name---level-up-irl-app/internal/store"
)

type Store struct {
	mu          sync.RWMutex
	users       map[string]*models.User
	emails      map[string]string
	tasks       map[string]*models.Task
	quests      map[string]*models.Quest
	goals       map[string]*models.Goal
	assessments map[string][]*models.Assessment
	now         func() time.Time
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:       map[string]*models.User{},
		emails:      map[string]string{},
		tasks:       map[string]*models.Task{},
		quests:      map[string]*models.Quest{},
		goals:       map[string]*models.Goal{},
		assessments: map[string][]*models.Assessment{},
		now:         time.Now,
	}
}

func (s *Store) Ping(context.Context) error { return nil }

func cloneUser(u *models.User) *models.User {
	c := *u
	c.Ledger = make(models.Ledger, len(u.Ledger))
	for p, st := range u.Ledger {
		c.Ledger[p] = st
	}
	return &c
}

func cloneGoal(g *models.Goal) *models.Goal {
	c := *g
	c.Sequence.Milestones = append([]models.Milestone(nil), g.Sequence.Milestones...)
	return &c
}

func cloneQuest(q *models.Quest) *models.Quest {
	c := *q
	if q.TargetValue != nil {
		v := *q.TargetValue
		c.TargetValue = &v
	}
	return &c
}

func normEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }

// users

func (s *Store) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := normEmail(u.Email)
	if _, taken := s.emails[key]; taken {
		return apperr.ErrConflict
	}
	now := s.now()
	u.ID = uuid.NewString()
	u.Ledger = progression.NewLedger()
	if u.XPMultiplier <= 0 {
		u.XPMultiplier = 1.0
	}
	if u.RecommendedTaskSize == "" {
		u.RecommendedTaskSize = models.TaskSizeLarge
	}
	u.CreatedAt, u.UpdatedAt = now, now
	s.users[u.ID] = cloneUser(u)
	s.emails[key] = u.ID
	return nil
}

func (s *Store) GetUser(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, apperr.NotFound("user %s", id)
	}
	return cloneUser(u), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	id, ok := s.emails[normEmail(email)]
	s.mu.RUnlock()
	if !ok {
		return nil, apperr.NotFound("user %s", email)
	}
	return s.GetUser(ctx, id)
}

func (s *Store) applyXPLocked(userID string, pillar models.Pillar, delta int) (progression.LedgerUpdate, error) {
	u, ok := s.users[userID]
	if !ok {
		return progression.LedgerUpdate{}, apperr.NotFound("user %s", userID)
	}
	up, err := progression.ApplyXP(u.Ledger, pillar, delta)
	if err != nil {
		return progression.LedgerUpdate{}, err
	}
	u.UpdatedAt = s.now()
	return up, nil
}

func (s *Store) ApplyXP(_ context.Context, userID string, pillar models.Pillar, delta int) (progression.LedgerUpdate, error) {
	if err := progression.CheckDelta(pillar, delta); err != nil {
		return progression.LedgerUpdate{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyXPLocked(userID, pillar, delta)
}

func (s *Store) CompleteOnboarding(_ context.Context, userID string, o store.Onboarding) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, apperr.NotFound("user %s", userID)
	}
	if u.OnboardingCompleted {
		return nil, apperr.InvalidState("onboarding already completed")
	}
	ledger := cloneUser(u).Ledger
	if err := progression.Seed(ledger, o.Totals); err != nil {
		return nil, err
	}
	at := o.At
	u.Ledger = ledger
	if o.FullName != "" {
		u.FullName = o.FullName
	}
	u.XPMultiplier = o.XPMultiplier
	u.RecommendedTaskSize = o.RecommendedTaskSize
	u.OnboardingCompleted = true
	u.OnboardedAt = &at
	u.UpdatedAt = at
	return cloneUser(u), nil
}

// tasks

func (s *Store) CreateTask(_ context.Context, t *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[t.UserID]; !ok {
		return apperr.NotFound("user %s", t.UserID)
	}
	t.ID = uuid.NewString()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now()
	}
	c := *t
	s.tasks[t.ID] = &c
	return nil
}

func (s *Store) task(userID, id string) (*models.Task, error) {
	t, ok := s.tasks[id]
	if !ok || t.UserID != userID {
		return nil, apperr.NotFound("task %s", id)
	}
	return t, nil
}

func (s *Store) GetTask(_ context.Context, userID, id string) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, err := s.task(userID, id)
	if err != nil {
		return nil, err
	}
	c := *t
	return &c, nil
}

func (s *Store) ListTasks(_ context.Context, userID string, f store.TaskFilter) ([]models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Task{}
	for _, t := range s.tasks {
		if t.UserID != userID || (f.Completed != nil && t.Completed != *f.Completed) {
			continue
		}
		out = append(out, *t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) CompleteTask(_ context.Context, userID, id string, at time.Time, award progression.Award) (progression.LedgerUpdate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.task(userID, id)
	if err != nil {
		return progression.LedgerUpdate{}, err
	}
	if t.Completed {
		return progression.LedgerUpdate{}, apperr.InvalidState("task %s is already completed", id)
	}
	up, err := s.applyXPLocked(userID, award.Pillar, award.XP)
	if err != nil {
		return progression.LedgerUpdate{}, err
	}
	t.Completed = true
	t.CompletedAt = &at
	return up, nil
}

func (s *Store) DeleteTask(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.task(userID, id); err != nil {
		return err
	}
	delete(s.tasks, id)
	return nil
}

// quests

func (s *Store) countActiveLocked(userID string, pillar models.Pillar) int {
	n := 0
	for _, q := range s.quests {
		if q.UserID == userID && q.Pillar == pillar && q.IsActive && !q.Completed {
			n++
		}
	}
	return n
}

func (s *Store) InsertQuests(_ context.Context, userID string, pillar models.Pillar, qs []models.Quest, limit int) ([]models.Quest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return nil, apperr.NotFound("user %s", userID)
	}
	room := max(0, limit-s.countActiveLocked(userID, pillar))
	qs = qs[:min(room, len(qs))]
	out := make([]models.Quest, 0, len(qs))
	for _, q := range qs {
		q.ID = uuid.NewString()
		q.UserID = userID
		q.Pillar = pillar
		if q.CreatedAt.IsZero() {
			q.CreatedAt = s.now()
		}
		s.quests[q.ID] = cloneQuest(&q)
		out = append(out, q)
	}
	return out, nil
}

func (s *Store) quest(userID, id string) (*models.Quest, error) {
	q, ok := s.quests[id]
	if !ok || q.UserID != userID {
		return nil, apperr.NotFound("quest %s", id)
	}
	return q, nil
}

// pending rejects quests that are completed or were retired by the sweep.
func pending(q *models.Quest) error {
	switch {
	case q.Completed:
		return apperr.InvalidState("quest %s is already completed", q.ID)
	case !q.IsActive:
		return apperr.InvalidState("quest %s has expired", q.ID)
	}
	return nil
}

func (s *Store) GetQuest(_ context.Context, userID, id string) (*models.Quest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, err := s.quest(userID, id)
	if err != nil {
		return nil, err
	}
	return cloneQuest(q), nil
}

func (s *Store) ListQuests(_ context.Context, userID string, f store.QuestFilter) ([]models.Quest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Quest{}
	for _, q := range s.quests {
		switch {
		case q.UserID != userID || !q.IsActive:
			continue
		case f.Pillar != "" && q.Pillar != f.Pillar:
			continue
		case f.Completed != nil && q.Completed != *f.Completed:
			continue
		}
		out = append(out, *cloneQuest(q))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) CountActiveQuests(_ context.Context, userID string, pillar models.Pillar) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countActiveLocked(userID, pillar), nil
}

func (s *Store) UpdateQuestProgress(_ context.Context, userID, id string, value float64) (*models.Quest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, err := s.quest(userID, id)
	if err != nil {
		return nil, err
	}
	if err := pending(q); err != nil {
		return nil, err
	}
	q.CurrentValue = value
	return cloneQuest(q), nil
}

func (s *Store) CompleteQuest(_ context.Context, userID, id string, at time.Time, award progression.Award) (progression.LedgerUpdate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, err := s.quest(userID, id)
	if err != nil {
		return progression.LedgerUpdate{}, err
	}
	if err := pending(q); err != nil {
		return progression.LedgerUpdate{}, err
	}
	up, err := s.applyXPLocked(userID, award.Pillar, award.XP)
	if err != nil {
		return progression.LedgerUpdate{}, err
	}
	q.Completed = true
	q.CompletedAt = &at
	if q.TargetValue != nil && q.CurrentValue < *q.TargetValue {
		q.CurrentValue = *q.TargetValue
	}
	return up, nil
}

func (s *Store) DeleteQuest(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.quest(userID, id); err != nil {
		return err
	}
	delete(s.quests, id)
	return nil
}

func (s *Store) DeactivateExpiredQuests(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, q := range s.quests {
		if q.IsActive && !q.Completed && q.Expired(now) {
			q.IsActive = false
			n++
		}
	}
	return n, nil
}

// goals

func (s *Store) CreateGoal(_ context.Context, g *models.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[g.UserID]; !ok {
		return apperr.NotFound("user %s", g.UserID)
	}
	if g.Kind == models.GoalKindUltimate && !g.IsCustom {
		for _, o := range s.goals {
			if o.UserID == g.UserID && o.Kind == models.GoalKindUltimate && !o.IsCustom && o.Pillar == g.Pillar {
				return apperr.ErrConflict
			}
		}
	}
	now := s.now()
	g.ID = uuid.NewString()
	g.Version = 1
	g.CreatedAt, g.UpdatedAt = now, now
	s.goals[g.ID] = cloneGoal(g)
	return nil
}

func (s *Store) goal(userID, id string) (*models.Goal, error) {
	g, ok := s.goals[id]
	if !ok || g.UserID != userID {
		return nil, apperr.NotFound("goal %s", id)
	}
	return g, nil
}

func (s *Store) GetGoal(_ context.Context, userID, id string) (*models.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, err := s.goal(userID, id)
	if err != nil {
		return nil, err
	}
	return cloneGoal(g), nil
}

func (s *Store) ListGoals(_ context.Context, userID string, f store.GoalFilter) ([]models.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Goal{}
	for _, g := range s.goals {
		switch {
		case g.UserID != userID:
			continue
		case f.Kind != "" && g.Kind != f.Kind:
			continue
		case f.Pillar != "" && g.Pillar != f.Pillar:
			continue
		case f.Completed != nil && g.Sequence.Completed != *f.Completed:
			continue
		}
		out = append(out, *cloneGoal(g))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) CompleteMilestone(_ context.Context, g *models.Goal, award progression.Award) (progression.LedgerUpdate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, err := s.goal(g.UserID, g.ID)
	if err != nil {
		return progression.LedgerUpdate{}, err
	}
	if cur.Version != g.Version {
		return progression.LedgerUpdate{}, apperr.ErrConflict
	}
	up, err := s.applyXPLocked(g.UserID, award.Pillar, award.XP)
	if err != nil {
		return progression.LedgerUpdate{}, err
	}
	g.Version++
	g.UpdatedAt = s.now()
	s.goals[g.ID] = cloneGoal(g)
	return up, nil
}

func (s *Store) DeleteGoal(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.goal(userID, id); err != nil {
		return err
	}
	delete(s.goals, id)
	return nil
}

// assessments

func (s *Store) CreateAssessment(_ context.Context, a *models.Assessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[a.UserID]; !ok {
		return apperr.NotFound("user %s", a.UserID)
	}
	a.ID = uuid.NewString()
	if a.CompletedAt.IsZero() {
		a.CompletedAt = s.now()
	}
	c := *a
	s.assessments[a.UserID] = append(s.assessments[a.UserID], &c)
	return nil
}

func (s *Store) LatestAssessment(_ context.Context, userID string) (*models.Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.Assessment
	for _, a := range s.assessments[userID] {
		if latest == nil || !a.CompletedAt.Before(latest.CompletedAt) {
			latest = a
		}
	}
	if latest == nil {
		return nil, apperr.NotFound("assessment for user %s", userID)
	}
	c := *latest
	return &c, nil
}

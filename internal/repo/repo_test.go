package repo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MantraGGR/name---level-up-irl-app/internal/apperr"
	"github.com/MantraGGR/name---level-up-irl-app/internal/db"
	"github.com/MantraGGR/name---level-up-irl-app/internal/models"
	"github.com/MantraGGR/name---level-up-irl-app/internal/progression"
	"github.com/MantraGGR/name---level-up-irl-app/internal/store"
	"github.com/MantraGGR/name---level-up-irl-app/migrations"
)

func setupTestRepo(t *testing.T) (*Repo, func()) {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	schema := fmt.Sprintf("test_%d", time.Now().UnixNano())
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s", schema))
		return err
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if _, err := pool.Exec(ctx, fmt.Sprintf("CREATE SCHEMA %s", schema)); err != nil {
		pool.Close()
		t.Fatalf("create schema: %v", err)
	}
	if _, err := db.RunMigrations(ctx, pool, migrations.FS, nil); err != nil {
		pool.Close()
		t.Fatalf("migrate: %v", err)
	}
	return New(pool), func() {
		_, _ = pool.Exec(ctx, fmt.Sprintf("DROP SCHEMA %s CASCADE", schema))
		pool.Close()
	}
}

func newUser(t *testing.T, r *Repo, email string) *models.User {
	t.Helper()
	u := &models.User{Email: email, PasswordHash: "x", FullName: "Test"}
	require.NoError(t, r.CreateUser(context.Background(), u))
	return u
}

func TestCreateUserSeedsLedger(t *testing.T) {
	r, cleanup := setupTestRepo(t)
	defer cleanup()
	ctx := context.Background()

	u := newUser(t, r, "Ana@Example.com")
	got, err := r.GetUserByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Len(t, got.Ledger, len(models.Pillars))
	assert.Equal(t, models.PillarStats{Level: 1, TotalXP: 0}, got.Ledger[models.PillarHealth])

	err = r.CreateUser(ctx, &models.User{Email: "ana@example.com", PasswordHash: "y"})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = r.GetUser(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestApplyXPConcurrentIncrements(t *testing.T) {
	r, cleanup := setupTestRepo(t)
	defer cleanup()
	ctx := context.Background()
	u := newUser(t, r, "xp@example.com")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.ApplyXP(ctx, u.ID, models.PillarCareer, 15)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := r.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PillarStats{Level: 4, TotalXP: 300}, got.Ledger[models.PillarCareer])
}

func TestCompleteTaskIdempotent(t *testing.T) {
	r, cleanup := setupTestRepo(t)
	defer cleanup()
	ctx := context.Background()
	u := newUser(t, r, "task@example.com")

	task := &models.Task{UserID: u.ID, Title: "Walk", Pillar: models.PillarHealth, Priority: models.PriorityMedium, EstimatedDuration: 30, XPReward: 40}
	require.NoError(t, r.CreateTask(ctx, task))
	award := progression.Award{Pillar: models.PillarHealth, XP: 60}

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins, rejected := 0, 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.CompleteTask(ctx, u.ID, task.ID, time.Now().UTC(), award)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, apperr.ErrInvalidState):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
	assert.Equal(t, 7, rejected)

	got, err := r.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 60, got.Ledger[models.PillarHealth].TotalXP)

	stored, err := r.GetTask(ctx, u.ID, task.ID)
	require.NoError(t, err)
	assert.True(t, stored.Completed)
	assert.NotNil(t, stored.CompletedAt)

	other := newUser(t, r, "other@example.com")
	_, err = r.GetTask(ctx, other.ID, task.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestInsertQuestsRespectsCapUnderConcurrency(t *testing.T) {
	r, cleanup := setupTestRepo(t)
	defer cleanup()
	ctx := context.Background()
	u := newUser(t, r, "quest@example.com")

	target := 10.0
	batch := []models.Quest{
		{Title: "A", TargetValue: &target, XPReward: 70, LevelRequirement: 1, Difficulty: models.DifficultyEasy, IsActive: true},
		{Title: "B", TargetValue: &target, XPReward: 70, LevelRequirement: 1, Difficulty: models.DifficultyEasy, IsActive: true},
		{Title: "C", TargetValue: &target, XPReward: 70, LevelRequirement: 1, Difficulty: models.DifficultyEasy, IsActive: true},
	}
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.InsertQuests(ctx, u.ID, models.PillarFinance, batch, 3)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	n, err := r.CountActiveQuests(ctx, u.ID, models.PillarFinance)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	list, err := r.ListQuests(ctx, u.ID, store.QuestFilter{Pillar: models.PillarFinance})
	require.NoError(t, err)
	require.Len(t, list, 3)

	_, err = r.CompleteQuest(ctx, u.ID, list[0].ID, time.Now().UTC(), progression.Award{Pillar: models.PillarFinance, XP: 70})
	require.NoError(t, err)
	done, err := r.GetQuest(ctx, u.ID, list[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 10.0, done.CurrentValue)

	added, err := r.InsertQuests(ctx, u.ID, models.PillarFinance, batch, 3)
	require.NoError(t, err)
	assert.Len(t, added, 1)
}

func TestQuestProgressAndExpiry(t *testing.T) {
	r, cleanup := setupTestRepo(t)
	defer cleanup()
	ctx := context.Background()
	u := newUser(t, r, "expiry@example.com")

	now := time.Now().UTC()
	past, future := now.Add(-time.Hour), now.Add(time.Hour)
	stored, err := r.InsertQuests(ctx, u.ID, models.PillarHealth, []models.Quest{
		{Title: "old", XPReward: 10, Difficulty: models.DifficultyEasy, IsActive: true, ExpiresAt: &past},
		{Title: "new", XPReward: 10, Difficulty: models.DifficultyEasy, IsActive: true, ExpiresAt: &future},
	}, 3)
	require.NoError(t, err)
	require.Len(t, stored, 2)

	q, err := r.UpdateQuestProgress(ctx, u.ID, stored[1].ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4.0, q.CurrentValue)

	n, err := r.DeactivateExpiredQuests(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	active, err := r.CountActiveQuests(ctx, u.ID, models.PillarHealth)
	require.NoError(t, err)
	assert.Equal(t, 1, active)

	_, err = r.CompleteQuest(ctx, u.ID, stored[0].ID, now, progression.Award{Pillar: models.PillarHealth, XP: 10})
	assert.True(t, errors.Is(err, apperr.ErrInvalidState))
	_, err = r.UpdateQuestProgress(ctx, u.ID, stored[0].ID, 1)
	assert.True(t, errors.Is(err, apperr.ErrInvalidState))
	got, err := r.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Ledger[models.PillarHealth].TotalXP)
}

func TestCompleteMilestoneVersionConflict(t *testing.T) {
	r, cleanup := setupTestRepo(t)
	defer cleanup()
	ctx := context.Background()
	u := newUser(t, r, "goal@example.com")

	g := &models.Goal{
		UserID: u.ID, Kind: models.GoalKindRoadmap, Title: "Run a marathon", Pillar: models.PillarHealth,
		Sequence: models.MilestoneSequence{Milestones: []models.Milestone{
			{ID: "m0", Title: "5k", XPReward: 100, Unlocked: true},
			{ID: "m1", Title: "10k", Order: 1, XPReward: 150},
		}},
	}
	require.NoError(t, r.CreateGoal(ctx, g))
	assert.Equal(t, 1, g.Version)

	stale, err := r.GetGoal(ctx, u.ID, g.ID)
	require.NoError(t, err)

	g.Sequence.Milestones[0].Completed = true
	g.Sequence.Milestones[1].Unlocked = true
	g.Sequence.CurrentIndex = 1
	g.Sequence.TotalXP = 100
	_, err = r.CompleteMilestone(ctx, g, progression.Award{Pillar: models.PillarHealth, XP: 100})
	require.NoError(t, err)
	assert.Equal(t, 2, g.Version)

	_, err = r.CompleteMilestone(ctx, stale, progression.Award{Pillar: models.PillarHealth, XP: 100})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	got, err := r.GetGoal(ctx, u.ID, g.ID)
	require.NoError(t, err)
	assert.True(t, got.Sequence.Milestones[0].Completed)
	assert.True(t, got.Sequence.Milestones[1].Unlocked)
	assert.Equal(t, 100, got.Sequence.TotalXP)

	user, err := r.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, user.Ledger[models.PillarHealth].TotalXP)

	require.NoError(t, r.DeleteGoal(ctx, u.ID, g.ID))
	assert.ErrorIs(t, r.DeleteGoal(ctx, u.ID, g.ID), apperr.ErrNotFound)
}

func TestCompleteOnboardingOnce(t *testing.T) {
	r, cleanup := setupTestRepo(t)
	defer cleanup()
	ctx := context.Background()
	u := newUser(t, r, "onboard@example.com")

	o := store.Onboarding{
		FullName:            "Ana",
		Totals:              map[models.Pillar]int{models.PillarHealth: 170, models.PillarCareer: 85},
		XPMultiplier:        1.25,
		RecommendedTaskSize: models.TaskSizeMedium,
		At:                  time.Now().UTC(),
	}
	got, err := r.CompleteOnboarding(ctx, u.ID, o)
	require.NoError(t, err)
	assert.True(t, got.OnboardingCompleted)
	assert.Equal(t, "Ana", got.FullName)
	assert.Equal(t, 1.25, got.XPMultiplier)
	assert.Equal(t, models.PillarStats{Level: 2, TotalXP: 170}, got.Ledger[models.PillarHealth])
	assert.Equal(t, models.PillarStats{Level: 1, TotalXP: 85}, got.Ledger[models.PillarCareer])

	_, err = r.CompleteOnboarding(ctx, u.ID, o)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
}

func TestLatestAssessment(t *testing.T) {
	r, cleanup := setupTestRepo(t)
	defer cleanup()
	ctx := context.Background()
	u := newUser(t, r, "assess@example.com")

	_, err := r.LatestAssessment(ctx, u.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	score := 18
	base := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, r.CreateAssessment(ctx, &models.Assessment{UserID: u.ID, CompletedAt: base.Add(-time.Hour)}))
	require.NoError(t, r.CreateAssessment(ctx, &models.Assessment{
		UserID: u.ID, ADHDScore: &score, CompletedAt: base,
		Responses:       map[string]any{"q1": "often"},
		Recommendations: []string{"Use timers and reminders for task management"},
	}))

	a, err := r.LatestAssessment(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, a.ADHDScore)
	assert.Equal(t, 18, *a.ADHDScore)
	assert.Nil(t, a.AnxietyScore)
	assert.Equal(t, "often", a.Responses["q1"])
	assert.Equal(t, []string{"Use timers and reminders for task management"}, a.Recommendations)
}

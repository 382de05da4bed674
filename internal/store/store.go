// Package store declares the persistence ports of the progression core.
// Implementations: internal/repo (Postgres) and internal/store/memstore.
//
// All lookups are scoped by user id; a document owned by someone else reads
// as apperr.ErrNotFound.
package store

import (
	"context"
	"time"

	"github.com/MantraGGR/name---level-up-irl-app/internal/models"
	"github.com/MantraGGR/name---level-up-irl-app/internal/progression"
)

// Onboarding is what CompleteOnboarding persists.
type Onboarding struct {
	FullName            string
	Totals              map[models.Pillar]int
	XPMultiplier        float64
	RecommendedTaskSize string
	At                  time.Time
}

type Users interface {
	// CreateUser fills ID, timestamps and a fresh ledger. A taken email is
	// apperr.ErrConflict.
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// ApplyXP atomically adds delta to one ledger entry.
	ApplyXP(ctx context.Context, userID string, pillar models.Pillar, delta int) (progression.LedgerUpdate, error)
	// CompleteOnboarding seeds the ledger and profile once. A second call is
	// apperr.ErrInvalidState.
	CompleteOnboarding(ctx context.Context, userID string, o Onboarding) (*models.User, error)
}

type TaskFilter struct {
	Completed *bool
}

type Tasks interface {
	CreateTask(ctx context.Context, t *models.Task) error
	GetTask(ctx context.Context, userID, id string) (*models.Task, error)
	// ListTasks returns tasks oldest first.
	ListTasks(ctx context.Context, userID string, f TaskFilter) ([]models.Task, error)
	// CompleteTask flips the task to completed only if it is still pending and
	// applies award in the same unit of work. Losing the race is
	// apperr.ErrInvalidState.
	CompleteTask(ctx context.Context, userID, id string, at time.Time, award progression.Award) (progression.LedgerUpdate, error)
	DeleteTask(ctx context.Context, userID, id string) error
}

type QuestFilter struct {
	Pillar    models.Pillar
	Completed *bool
}

type Quests interface {
	// InsertQuests stores at most limit-active of qs, where active is counted
	// under the same lock as the insert, and returns what was stored.
	InsertQuests(ctx context.Context, userID string, pillar models.Pillar, qs []models.Quest, limit int) ([]models.Quest, error)
	GetQuest(ctx context.Context, userID, id string) (*models.Quest, error)
	// ListQuests returns active quests newest first.
	ListQuests(ctx context.Context, userID string, f QuestFilter) ([]models.Quest, error)
	CountActiveQuests(ctx context.Context, userID string, pillar models.Pillar) (int, error)
	// UpdateQuestProgress sets current_value of a pending quest.
	UpdateQuestProgress(ctx context.Context, userID, id string, value float64) (*models.Quest, error)
	// CompleteQuest is the quest counterpart of CompleteTask; current_value is
	// raised to the target.
	CompleteQuest(ctx context.Context, userID, id string, at time.Time, award progression.Award) (progression.LedgerUpdate, error)
	DeleteQuest(ctx context.Context, userID, id string) error
	// DeactivateExpiredQuests retires pending quests whose expiry has passed.
	DeactivateExpiredQuests(ctx context.Context, now time.Time) (int64, error)
}

type GoalFilter struct {
	Kind      models.GoalKind
	Pillar    models.Pillar
	Completed *bool
}

type Goals interface {
	// CreateGoal fills ID and timestamps and starts the version at 1. A second
	// predefined (non-custom) ultimate goal for the same pillar is
	// apperr.ErrConflict.
	CreateGoal(ctx context.Context, g *models.Goal) error
	GetGoal(ctx context.Context, userID, id string) (*models.Goal, error)
	// ListGoals returns goals newest first.
	ListGoals(ctx context.Context, userID string, f GoalFilter) ([]models.Goal, error)
	// CompleteMilestone persists g if its stored version still equals
	// g.Version and applies award in the same unit of work. On success
	// g.Version is incremented; a stale version is apperr.ErrConflict.
	CompleteMilestone(ctx context.Context, g *models.Goal, award progression.Award) (progression.LedgerUpdate, error)
	DeleteGoal(ctx context.Context, userID, id string) error
}

type Assessments interface {
	CreateAssessment(ctx context.Context, a *models.Assessment) error
	LatestAssessment(ctx context.Context, userID string) (*models.Assessment, error)
}

type Store interface {
	Users
	Tasks
	Quests
	Goals
	Assessments
	Ping(ctx context.Context) error
}

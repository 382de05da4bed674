// Package repo is the Postgres implementation of store.Store.
package repo

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MantraGGR/name---level-up-irl-app/internal/apperr"
	"github.com/MantraGGR/name---level-up-irl-app/internal/models"
	"github.com/MantraGGR/name---level-up-irl-app/internal/progression"
	"github.com/MantraGGR/name---level-up-irl-app/internal/store"
)

type Repo struct {
	Pool *pgxpool.Pool
}

var _ store.Store = (*Repo)(nil)

func New(pool *pgxpool.Pool) *Repo {
	return &Repo{Pool: pool}
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *Repo) Ping(ctx context.Context) error {
	return r.Pool.Ping(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// validID keeps malformed ids from reaching uuid columns, where they would
// surface as a cast error instead of a miss.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// users

const userColumns = `id, email, password_hash, full_name, xp_multiplier, recommended_task_size, onboarding_completed, onboarded_at, created_at, updated_at`

func scanUser(row scanner) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.XPMultiplier, &u.RecommendedTaskSize,
		&u.OnboardingCompleted, &u.OnboardedAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repo) CreateUser(ctx context.Context, u *models.User) error {
	if u.XPMultiplier <= 0 {
		u.XPMultiplier = 1.0
	}
	if u.RecommendedTaskSize == "" {
		u.RecommendedTaskSize = models.TaskSizeLarge
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))

	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `INSERT INTO users (email, password_hash, full_name, xp_multiplier, recommended_task_size)
		VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at, updated_at`,
		u.Email, u.PasswordHash, u.FullName, u.XPMultiplier, u.RecommendedTaskSize).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if isUniqueViolation(err) {
		return apperr.ErrConflict
	}
	if err != nil {
		return err
	}
	for _, p := range models.Pillars {
		if _, err := tx.Exec(ctx, `INSERT INTO pillar_xp (user_id, pillar) VALUES ($1, $2)`, u.ID, string(p)); err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	u.Ledger = progression.NewLedger()
	return nil
}

func (r *Repo) loadLedger(ctx context.Context, q querier, userID string) (models.Ledger, error) {
	rows, err := q.Query(ctx, `SELECT pillar, total_xp, level FROM pillar_xp WHERE user_id=$1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	l := progression.NewLedger()
	for rows.Next() {
		var pillar string
		var st models.PillarStats
		if err := rows.Scan(&pillar, &st.TotalXP, &st.Level); err != nil {
			return nil, err
		}
		l[models.Pillar(pillar)] = st
	}
	return l, rows.Err()
}

func (r *Repo) getUser(ctx context.Context, q querier, where string, arg any, label string) (*models.User, error) {
	u, err := scanUser(q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("user %s", label)
	}
	if err != nil {
		return nil, err
	}
	if u.Ledger, err = r.loadLedger(ctx, q, u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

func (r *Repo) GetUser(ctx context.Context, id string) (*models.User, error) {
	if !validID(id) {
		return nil, apperr.NotFound("user %s", id)
	}
	return r.getUser(ctx, r.Pool, `id=$1`, id, id)
}

func (r *Repo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getUser(ctx, r.Pool, `email=$1`, strings.ToLower(strings.TrimSpace(email)), email)
}

// applyXP is a single increment statement, so concurrent awards to the same
// pillar serialise on the row lock and none is lost.
func applyXP(ctx context.Context, q querier, userID string, pillar models.Pillar, delta int) (progression.LedgerUpdate, error) {
	if err := progression.CheckDelta(pillar, delta); err != nil {
		return progression.LedgerUpdate{}, err
	}
	var total int
	err := q.QueryRow(ctx, `UPDATE pillar_xp
		SET total_xp = total_xp + $3, level = (total_xp + $3) / 100 + 1, updated_at = now()
		WHERE user_id=$1 AND pillar=$2
		RETURNING total_xp`, userID, string(pillar), delta).Scan(&total)
	if errors.Is(err, pgx.ErrNoRows) {
		return progression.LedgerUpdate{}, apperr.NotFound("user %s", userID)
	}
	if err != nil {
		return progression.LedgerUpdate{}, err
	}
	return progression.UpdateFor(pillar, delta, total), nil
}

func (r *Repo) ApplyXP(ctx context.Context, userID string, pillar models.Pillar, delta int) (progression.LedgerUpdate, error) {
	if !validID(userID) {
		return progression.LedgerUpdate{}, apperr.NotFound("user %s", userID)
	}
	return applyXP(ctx, r.Pool, userID, pillar, delta)
}

func (r *Repo) CompleteOnboarding(ctx context.Context, userID string, o store.Onboarding) (*models.User, error) {
	if !validID(userID) {
		return nil, apperr.NotFound("user %s", userID)
	}
	if err := progression.Seed(progression.NewLedger(), o.Totals); err != nil {
		return nil, err
	}

	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `UPDATE users
		SET full_name = COALESCE(NULLIF($2, ''), full_name), xp_multiplier=$3, recommended_task_size=$4,
			onboarding_completed=true, onboarded_at=$5, updated_at=$5
		WHERE id=$1 AND NOT onboarding_completed`,
		userID, o.FullName, o.XPMultiplier, o.RecommendedTaskSize, o.At)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id=$1)`, userID).Scan(&exists); err != nil {
			return nil, err
		}
		if !exists {
			return nil, apperr.NotFound("user %s", userID)
		}
		return nil, apperr.InvalidState("onboarding already completed")
	}
	for p, total := range o.Totals {
		_, err := tx.Exec(ctx, `UPDATE pillar_xp SET total_xp=$3, level=$4, updated_at=$5 WHERE user_id=$1 AND pillar=$2`,
			userID, string(p), total, progression.LevelForXP(total), o.At)
		if err != nil {
			return nil, err
		}
	}
	u, err := r.getUser(ctx, tx, `id=$1`, userID, userID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return u, nil
}

// tasks

const taskColumns = `id, user_id, title, description, pillar, priority, estimated_duration, xp_reward, completed, completed_at, due_date, generated_by_ai, created_at`

func scanTask(row scanner) (*models.Task, error) {
	var t models.Task
	var pillar, priority string
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &pillar, &priority, &t.EstimatedDuration,
		&t.XPReward, &t.Completed, &t.CompletedAt, &t.DueDate, &t.GeneratedByAI, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.Pillar, t.Priority = models.Pillar(pillar), models.Priority(priority)
	return &t, nil
}

func (r *Repo) CreateTask(ctx context.Context, t *models.Task) error {
	if !validID(t.UserID) {
		return apperr.NotFound("user %s", t.UserID)
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	err := r.Pool.QueryRow(ctx, `INSERT INTO tasks
		(user_id, title, description, pillar, priority, estimated_duration, xp_reward, due_date, generated_by_ai, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`,
		t.UserID, t.Title, t.Description, string(t.Pillar), string(t.Priority), t.EstimatedDuration, t.XPReward,
		t.DueDate, t.GeneratedByAI, t.CreatedAt).Scan(&t.ID)
	return err
}

func (r *Repo) GetTask(ctx context.Context, userID, id string) (*models.Task, error) {
	if !validID(id) || !validID(userID) {
		return nil, apperr.NotFound("task %s", id)
	}
	t, err := scanTask(r.Pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=$1 AND user_id=$2`, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("task %s", id)
	}
	return t, err
}

func (r *Repo) ListTasks(ctx context.Context, userID string, f store.TaskFilter) ([]models.Task, error) {
	out := []models.Task{}
	if !validID(userID) {
		return out, nil
	}
	rows, err := r.Pool.Query(ctx, `SELECT `+taskColumns+` FROM tasks
		WHERE user_id=$1 AND ($2::boolean IS NULL OR completed=$2)
		ORDER BY created_at ASC`, userID, f.Completed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// completeUnit flips a pending row of table to completed and credits award in
// the same transaction. Zero affected rows means either a miss or a lost race.
func (r *Repo) completeUnit(ctx context.Context, table, extraSet, extraWhere, userID, id string, at time.Time, award progression.Award) (progression.LedgerUpdate, error) {
	label := strings.TrimSuffix(table, "s")
	if !validID(id) || !validID(userID) {
		return progression.LedgerUpdate{}, apperr.NotFound("%s %s", label, id)
	}
	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return progression.LedgerUpdate{}, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `UPDATE `+table+` SET completed=true, completed_at=$3`+extraSet+`
		WHERE id=$1 AND user_id=$2 AND NOT completed`+extraWhere, id, userID, at)
	if err != nil {
		return progression.LedgerUpdate{}, err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM `+table+` WHERE id=$1 AND user_id=$2)`, id, userID).Scan(&exists)
		if err != nil {
			return progression.LedgerUpdate{}, err
		}
		if !exists {
			return progression.LedgerUpdate{}, apperr.NotFound("%s %s", label, id)
		}
		return progression.LedgerUpdate{}, apperr.InvalidState("%s %s is already completed or has expired", label, id)
	}
	up, err := applyXP(ctx, tx, userID, award.Pillar, award.XP)
	if err != nil {
		return progression.LedgerUpdate{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return progression.LedgerUpdate{}, err
	}
	return up, nil
}

func (r *Repo) CompleteTask(ctx context.Context, userID, id string, at time.Time, award progression.Award) (progression.LedgerUpdate, error) {
	return r.completeUnit(ctx, "tasks", "", "", userID, id, at, award)
}

func (r *Repo) deleteOwned(ctx context.Context, table, userID, id string) error {
	label := strings.TrimSuffix(table, "s")
	if !validID(id) || !validID(userID) {
		return apperr.NotFound("%s %s", label, id)
	}
	tag, err := r.Pool.Exec(ctx, `DELETE FROM `+table+` WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("%s %s", label, id)
	}
	return nil
}

func (r *Repo) DeleteTask(ctx context.Context, userID, id string) error {
	return r.deleteOwned(ctx, "tasks", userID, id)
}

// quests

const questColumns = `id, user_id, title, description, pillar, target_value, target_unit, current_value, xp_reward, level_requirement, difficulty, is_active, completed, completed_at, generated_by_ai, created_at, expires_at`

func scanQuest(row scanner) (*models.Quest, error) {
	var q models.Quest
	var pillar, difficulty string
	err := row.Scan(&q.ID, &q.UserID, &q.Title, &q.Description, &pillar, &q.TargetValue, &q.TargetUnit,
		&q.CurrentValue, &q.XPReward, &q.LevelRequirement, &difficulty, &q.IsActive, &q.Completed,
		&q.CompletedAt, &q.GeneratedByAI, &q.CreatedAt, &q.ExpiresAt)
	if err != nil {
		return nil, err
	}
	q.Pillar, q.Difficulty = models.Pillar(pillar), models.Difficulty(difficulty)
	return &q, nil
}

const countActiveSQL = `SELECT count(*) FROM quests WHERE user_id=$1 AND pillar=$2 AND is_active AND NOT completed`

func (r *Repo) InsertQuests(ctx context.Context, userID string, pillar models.Pillar, qs []models.Quest, limit int) ([]models.Quest, error) {
	if !validID(userID) {
		return nil, apperr.NotFound("user %s", userID)
	}
	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// Concurrent generators for the same pillar queue here until commit.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1::text || ':' || $2::text))`, userID, string(pillar)); err != nil {
		return nil, err
	}
	var active int
	if err := tx.QueryRow(ctx, countActiveSQL, userID, string(pillar)).Scan(&active); err != nil {
		return nil, err
	}
	room := max(0, limit-active)
	qs = qs[:min(room, len(qs))]

	out := make([]models.Quest, 0, len(qs))
	for _, q := range qs {
		q.UserID, q.Pillar = userID, pillar
		if q.CreatedAt.IsZero() {
			q.CreatedAt = time.Now().UTC()
		}
		err := tx.QueryRow(ctx, `INSERT INTO quests
			(user_id, title, description, pillar, target_value, target_unit, current_value, xp_reward,
			 level_requirement, difficulty, is_active, generated_by_ai, created_at, expires_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14) RETURNING id`,
			q.UserID, q.Title, q.Description, string(q.Pillar), q.TargetValue, q.TargetUnit, q.CurrentValue, q.XPReward,
			q.LevelRequirement, string(q.Difficulty), q.IsActive, q.GeneratedByAI, q.CreatedAt, q.ExpiresAt).Scan(&q.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) GetQuest(ctx context.Context, userID, id string) (*models.Quest, error) {
	if !validID(id) || !validID(userID) {
		return nil, apperr.NotFound("quest %s", id)
	}
	q, err := scanQuest(r.Pool.QueryRow(ctx, `SELECT `+questColumns+` FROM quests WHERE id=$1 AND user_id=$2`, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("quest %s", id)
	}
	return q, err
}

func (r *Repo) ListQuests(ctx context.Context, userID string, f store.QuestFilter) ([]models.Quest, error) {
	out := []models.Quest{}
	if !validID(userID) {
		return out, nil
	}
	rows, err := r.Pool.Query(ctx, `SELECT `+questColumns+` FROM quests
		WHERE user_id=$1 AND is_active AND ($2 = '' OR pillar=$2) AND ($3::boolean IS NULL OR completed=$3)
		ORDER BY created_at DESC`, userID, string(f.Pillar), f.Completed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		q, err := scanQuest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *q)
	}
	return out, rows.Err()
}

func (r *Repo) CountActiveQuests(ctx context.Context, userID string, pillar models.Pillar) (int, error) {
	if !validID(userID) {
		return 0, nil
	}
	var n int
	err := r.Pool.QueryRow(ctx, countActiveSQL, userID, string(pillar)).Scan(&n)
	return n, err
}

func (r *Repo) UpdateQuestProgress(ctx context.Context, userID, id string, value float64) (*models.Quest, error) {
	if !validID(id) || !validID(userID) {
		return nil, apperr.NotFound("quest %s", id)
	}
	q, err := scanQuest(r.Pool.QueryRow(ctx, `UPDATE quests SET current_value=$3
		WHERE id=$1 AND user_id=$2 AND NOT completed AND is_active
		RETURNING `+questColumns, id, userID, value))
	if errors.Is(err, pgx.ErrNoRows) {
		if _, err := r.GetQuest(ctx, userID, id); err != nil {
			return nil, err
		}
		return nil, apperr.InvalidState("quest %s is already completed or has expired", id)
	}
	return q, err
}

func (r *Repo) CompleteQuest(ctx context.Context, userID, id string, at time.Time, award progression.Award) (progression.LedgerUpdate, error) {
	return r.completeUnit(ctx, "quests", `, current_value=GREATEST(current_value, COALESCE(target_value, current_value))`, ` AND is_active`, userID, id, at, award)
}

func (r *Repo) DeleteQuest(ctx context.Context, userID, id string) error {
	return r.deleteOwned(ctx, "quests", userID, id)
}

func (r *Repo) DeactivateExpiredQuests(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.Pool.Exec(ctx, `UPDATE quests SET is_active=false
		WHERE is_active AND NOT completed AND expires_at IS NOT NULL AND expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// goals

const goalColumns = `id, user_id, kind, title, description, pillar, ai_analysis, estimated_timeframe, difficulty_rating, icon, is_custom, milestones, current_milestone_index, completed, completed_at, total_xp_earned, version, created_at, updated_at`

func scanGoal(row scanner) (*models.Goal, error) {
	var g models.Goal
	var kind, pillar string
	var raw []byte
	err := row.Scan(&g.ID, &g.UserID, &kind, &g.Title, &g.Description, &pillar, &g.AIAnalysis,
		&g.EstimatedTimeframe, &g.DifficultyRating, &g.Icon, &g.IsCustom, &raw, &g.Sequence.CurrentIndex,
		&g.Sequence.Completed, &g.Sequence.CompletedAt, &g.Sequence.TotalXP, &g.Version, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	g.Kind, g.Pillar = models.GoalKind(kind), models.Pillar(pillar)
	if err := json.Unmarshal(raw, &g.Sequence.Milestones); err != nil {
		return nil, err
	}
	return &g, nil
}

func milestonesJSON(ms []models.Milestone) ([]byte, error) {
	if ms == nil {
		ms = []models.Milestone{}
	}
	return json.Marshal(ms)
}

func (r *Repo) CreateGoal(ctx context.Context, g *models.Goal) error {
	if !validID(g.UserID) {
		return apperr.NotFound("user %s", g.UserID)
	}
	ms, err := milestonesJSON(g.Sequence.Milestones)
	if err != nil {
		return err
	}
	g.Version = 1
	err = r.Pool.QueryRow(ctx, `INSERT INTO goals
		(user_id, kind, title, description, pillar, ai_analysis, estimated_timeframe, difficulty_rating, icon,
		 is_custom, milestones, current_milestone_index, completed, completed_at, total_xp_earned, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, 1)
		RETURNING id, created_at, updated_at`,
		g.UserID, string(g.Kind), g.Title, g.Description, string(g.Pillar), g.AIAnalysis, g.EstimatedTimeframe,
		g.DifficultyRating, g.Icon, g.IsCustom, ms, g.Sequence.CurrentIndex, g.Sequence.Completed,
		g.Sequence.CompletedAt, g.Sequence.TotalXP).Scan(&g.ID, &g.CreatedAt, &g.UpdatedAt)
	if isUniqueViolation(err) {
		return apperr.ErrConflict
	}
	return err
}

func (r *Repo) GetGoal(ctx context.Context, userID, id string) (*models.Goal, error) {
	if !validID(id) || !validID(userID) {
		return nil, apperr.NotFound("goal %s", id)
	}
	g, err := scanGoal(r.Pool.QueryRow(ctx, `SELECT `+goalColumns+` FROM goals WHERE id=$1 AND user_id=$2`, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("goal %s", id)
	}
	return g, err
}

func (r *Repo) ListGoals(ctx context.Context, userID string, f store.GoalFilter) ([]models.Goal, error) {
	out := []models.Goal{}
	if !validID(userID) {
		return out, nil
	}
	rows, err := r.Pool.Query(ctx, `SELECT `+goalColumns+` FROM goals
		WHERE user_id=$1 AND ($2 = '' OR kind=$2) AND ($3 = '' OR pillar=$3) AND ($4::boolean IS NULL OR completed=$4)
		ORDER BY created_at DESC`, userID, string(f.Kind), string(f.Pillar), f.Completed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

func (r *Repo) CompleteMilestone(ctx context.Context, g *models.Goal, award progression.Award) (progression.LedgerUpdate, error) {
	if !validID(g.ID) || !validID(g.UserID) {
		return progression.LedgerUpdate{}, apperr.NotFound("goal %s", g.ID)
	}
	ms, err := milestonesJSON(g.Sequence.Milestones)
	if err != nil {
		return progression.LedgerUpdate{}, err
	}
	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return progression.LedgerUpdate{}, err
	}
	defer tx.Rollback(ctx)

	var version int
	var updatedAt time.Time
	err = tx.QueryRow(ctx, `UPDATE goals
		SET milestones=$3, current_milestone_index=$4, completed=$5, completed_at=$6, total_xp_earned=$7,
			version=version+1, updated_at=now()
		WHERE id=$1 AND user_id=$2 AND version=$8
		RETURNING version, updated_at`,
		g.ID, g.UserID, ms, g.Sequence.CurrentIndex, g.Sequence.Completed, g.Sequence.CompletedAt,
		g.Sequence.TotalXP, g.Version).Scan(&version, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM goals WHERE id=$1 AND user_id=$2)`, g.ID, g.UserID).Scan(&exists); err != nil {
			return progression.LedgerUpdate{}, err
		}
		if !exists {
			return progression.LedgerUpdate{}, apperr.NotFound("goal %s", g.ID)
		}
		return progression.LedgerUpdate{}, apperr.ErrConflict
	}
	if err != nil {
		return progression.LedgerUpdate{}, err
	}
	up, err := applyXP(ctx, tx, g.UserID, award.Pillar, award.XP)
	if err != nil {
		return progression.LedgerUpdate{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return progression.LedgerUpdate{}, err
	}
	g.Version, g.UpdatedAt = version, updatedAt
	return up, nil
}

func (r *Repo) DeleteGoal(ctx context.Context, userID, id string) error {
	return r.deleteOwned(ctx, "goals", userID, id)
}

// assessments

func (r *Repo) CreateAssessment(ctx context.Context, a *models.Assessment) error {
	if !validID(a.UserID) {
		return apperr.NotFound("user %s", a.UserID)
	}
	if a.Responses == nil {
		a.Responses = map[string]any{}
	}
	if a.Recommendations == nil {
		a.Recommendations = []string{}
	}
	responses, err := json.Marshal(a.Responses)
	if err != nil {
		return apperr.Validation("responses: %v", err)
	}
	recs, err := json.Marshal(a.Recommendations)
	if err != nil {
		return err
	}
	if a.CompletedAt.IsZero() {
		a.CompletedAt = time.Now().UTC()
	}
	return r.Pool.QueryRow(ctx, `INSERT INTO assessments
		(user_id, adhd_score, anxiety_score, depression_score, responses, recommendations, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		a.UserID, a.ADHDScore, a.AnxietyScore, a.DepressionScore, responses, recs, a.CompletedAt).Scan(&a.ID)
}

func (r *Repo) LatestAssessment(ctx context.Context, userID string) (*models.Assessment, error) {
	if !validID(userID) {
		return nil, apperr.NotFound("assessment for user %s", userID)
	}
	var a models.Assessment
	var responses, recs []byte
	err := r.Pool.QueryRow(ctx, `SELECT id, user_id, adhd_score, anxiety_score, depression_score, responses, recommendations, completed_at
		FROM assessments WHERE user_id=$1 ORDER BY completed_at DESC LIMIT 1`, userID).Scan(
		&a.ID, &a.UserID, &a.ADHDScore, &a.AnxietyScore, &a.DepressionScore, &responses, &recs, &a.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("assessment for user %s", userID)
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(responses, &a.Responses); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(recs, &a.Recommendations); err != nil {
		return nil, err
	}
	return &a, nil
}

package models

import "time"

type PillarStats struct {
	Level   int `json:"level"`
	TotalXP int `json:"total_xp"`
}

// Ledger is the per-user XP accounting keyed by pillar.
type Ledger map[Pillar]PillarStats

type User struct {
	ID                  string     `json:"id"`
	Email               string     `json:"email"`
	PasswordHash        string     `json:"-"`
	FullName            string     `json:"full_name"`
	Ledger              Ledger     `json:"ledger"`
	XPMultiplier        float64    `json:"xp_multiplier"`
	RecommendedTaskSize string     `json:"recommended_task_size"`
	OnboardingCompleted bool       `json:"onboarding_completed"`
	OnboardedAt         *time.Time `json:"onboarded_at"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

type Task struct {
	ID                string     `json:"id"`
	UserID            string     `json:"user_id"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	Pillar            Pillar     `json:"life_pillar"`
	Priority          Priority   `json:"priority"`
	EstimatedDuration int        `json:"estimated_duration"`
	XPReward          int        `json:"xp_reward"`
	Completed         bool       `json:"completed"`
	CompletedAt       *time.Time `json:"completed_at"`
	DueDate           *time.Time `json:"due_date"`
	GeneratedByAI     bool       `json:"generated_by_ai"`
	CreatedAt         time.Time  `json:"created_at"`
}

type Quest struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Pillar           Pillar     `json:"life_pillar"`
	TargetValue      *float64   `json:"target_value"`
	TargetUnit       string     `json:"target_unit"`
	CurrentValue     float64    `json:"current_value"`
	XPReward         int        `json:"xp_reward"`
	LevelRequirement int        `json:"level_requirement"`
	Difficulty       Difficulty `json:"difficulty"`
	IsActive         bool       `json:"is_active"`
	Completed        bool       `json:"is_completed"`
	CompletedAt      *time.Time `json:"completed_at"`
	GeneratedByAI    bool       `json:"generated_by_ai"`
	CreatedAt        time.Time  `json:"created_at"`
	ExpiresAt        *time.Time `json:"expires_at"`
}

// ProgressPercent is current/target capped at 100; quests without a target
// report 0.
func (q *Quest) ProgressPercent() float64 {
	if q.TargetValue == nil || *q.TargetValue <= 0 {
		return 0
	}
	p := q.CurrentValue / *q.TargetValue * 100
	if p > 100 {
		return 100
	}
	return p
}

// Expired reports whether the quest's expiry boundary has passed at now.
func (q *Quest) Expired(now time.Time) bool {
	return q.ExpiresAt != nil && !now.Before(*q.ExpiresAt)
}

type Milestone struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Order       int        `json:"order"`
	XPReward    int        `json:"xp_reward"`
	Unlocked    bool       `json:"unlocked"`
	Completed   bool       `json:"is_completed"`
	CompletedAt *time.Time `json:"completed_at"`
}

type MilestoneSequence struct {
	Milestones   []Milestone `json:"milestones"`
	CurrentIndex int         `json:"current_milestone_index"`
	Completed    bool        `json:"is_completed"`
	CompletedAt  *time.Time  `json:"completed_at"`
	TotalXP      int         `json:"total_xp_earned"`
}

// ProgressPercent is the share of milestones completed in order.
func (s *MilestoneSequence) ProgressPercent() float64 {
	if len(s.Milestones) == 0 {
		return 0
	}
	return float64(s.CurrentIndex) / float64(len(s.Milestones)) * 100
}

type GoalKind string

const (
	GoalKindRoadmap  GoalKind = "roadmap"
	GoalKindUltimate GoalKind = "ultimate"
)

type Goal struct {
	ID          string   `json:"id"`
	UserID      string   `json:"user_id"`
	Kind        GoalKind `json:"kind"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Pillar      Pillar   `json:"life_pillar"`

	// Roadmap goals.
	AIAnalysis         string `json:"ai_analysis,omitempty"`
	EstimatedTimeframe string `json:"estimated_timeframe,omitempty"`
	DifficultyRating   string `json:"difficulty_rating,omitempty"`

	// Ultimate goals.
	Icon     string `json:"icon,omitempty"`
	IsCustom bool   `json:"is_custom"`

	Sequence  MilestoneSequence `json:"sequence"`
	Version   int               `json:"version"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

type Assessment struct {
	ID              string         `json:"id"`
	UserID          string         `json:"user_id"`
	ADHDScore       *int           `json:"adhd_score"`
	AnxietyScore    *int           `json:"anxiety_score"`
	DepressionScore *int           `json:"depression_score"`
	Responses       map[string]any `json:"responses"`
	Recommendations []string       `json:"recommendations"`
	CompletedAt     time.Time      `json:"completed_at"`
}

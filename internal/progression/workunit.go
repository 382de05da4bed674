package progression

import "github.com/MantraGGR/name---level-up-irl-app/internal/models"

type UnitKind string

const (
	UnitTask                  UnitKind = "task"
	UnitQuest                 UnitKind = "quest"
	UnitGoalMilestone         UnitKind = "goal_milestone"
	UnitUltimateGoalMilestone UnitKind = "ultimate_goal_milestone"
)

// WorkUnit is anything whose completion awards pillar XP.
type WorkUnit interface {
	Kind() UnitKind
	UnitID() string
	UnitPillar() models.Pillar
	DeclaredXP() int
	IsCompleted() bool
}

type TaskUnit struct{ *models.Task }

func (u TaskUnit) Kind() UnitKind { return UnitTask }
func (u TaskUnit) UnitID() string { return u.ID }
func (u TaskUnit) UnitPillar() models.Pillar { return u.Pillar }
func (u TaskUnit) DeclaredXP() int { return u.XPReward }
func (u TaskUnit) IsCompleted() bool { return u.Completed }

type QuestUnit struct{ *models.Quest }

func (u QuestUnit) Kind() UnitKind { return UnitQuest }
func (u QuestUnit) UnitID() string { return u.ID }
func (u QuestUnit) UnitPillar() models.Pillar { return u.Pillar }
func (u QuestUnit) DeclaredXP() int { return u.XPReward }
func (u QuestUnit) IsCompleted() bool { return u.Completed }

// MilestoneUnit is one milestone of a goal; the goal supplies the pillar and
// decides which milestone variant it is.
type MilestoneUnit struct {
	Goal      *models.Goal
	Milestone *models.Milestone
}

func (u MilestoneUnit) Kind() UnitKind {
	if u.Goal.Kind == models.GoalKindUltimate {
		return UnitUltimateGoalMilestone
	}
	return UnitGoalMilestone
}

func (u MilestoneUnit) UnitID() string { return u.Milestone.ID }
func (u MilestoneUnit) UnitPillar() models.Pillar { return u.Goal.Pillar }
func (u MilestoneUnit) DeclaredXP() int { return u.Milestone.XPReward }
func (u MilestoneUnit) IsCompleted() bool { return u.Milestone.Completed }

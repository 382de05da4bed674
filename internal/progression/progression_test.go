package progression

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MantraGGR/name---level-up-irl-app/internal/apperr"
	"github.com/MantraGGR/name---level-up-irl-app/internal/models"
)

func intp(v int) *int { return &v }

func TestLevelForXP(t *testing.T) {
	for total := 0; total <= 2500; total += 7 {
		got := LevelForXP(total)
		require.Equal(t, total/100+1, got, "total=%d", total)
		require.GreaterOrEqual(t, got, 1)
	}
	assert.Equal(t, 1, LevelForXP(99))
	assert.Equal(t, 2, LevelForXP(100))
	assert.Equal(t, 1, LevelForXP(-5))
}

func TestApplyXP(t *testing.T) {
	l := NewLedger()

	up, err := ApplyXP(l, models.PillarHealth, 90)
	require.NoError(t, err)
	assert.False(t, up.LeveledUp)
	assert.Equal(t, 1, up.NewLevel)

	up, err = ApplyXP(l, models.PillarHealth, 25)
	require.NoError(t, err)
	assert.True(t, up.LeveledUp)
	assert.Equal(t, 1, up.PreviousLevel)
	assert.Equal(t, 2, up.NewLevel)
	assert.Equal(t, 115, up.NewTotal)
	assert.Equal(t, models.PillarStats{Level: 2, TotalXP: 115}, l[models.PillarHealth])

	up, err = ApplyXP(l, models.PillarHealth, 0)
	require.NoError(t, err)
	assert.False(t, up.LeveledUp)
	assert.Equal(t, 115, up.NewTotal)
}

func TestApplyXPRejectsBadInput(t *testing.T) {
	l := NewLedger()
	_, err := ApplyXP(l, models.PillarCareer, -1)
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = ApplyXP(l, models.Pillar("cooking"), 10)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	assert.Equal(t, 0, l[models.PillarCareer].TotalXP)
}

func TestSummarize(t *testing.T) {
	l := NewLedger()
	_, _ = ApplyXP(l, models.PillarFinance, 250)
	_, _ = ApplyXP(l, models.PillarCareer, 250)
	_, _ = ApplyXP(l, models.PillarHealth, 40)

	s := Summarize(l)
	assert.Equal(t, 540, s.TotalXP)
	assert.Equal(t, 3, s.HighestLevel)
	// career precedes finance in canonical order
	assert.Equal(t, models.PillarCareer, s.StrongestArea)
	// levels 1,3,1,1,3,1 -> mean 1.67 -> 2
	assert.Equal(t, 2, s.AverageLevel)
}

func TestSummarizeAverageTiesRoundToEven(t *testing.T) {
	l := NewLedger()
	_, _ = ApplyXP(l, models.PillarHealth, 900)
	// levels 10,1,1,1,1,1 -> 2.5 -> 2
	assert.Equal(t, 2, Summarize(l).AverageLevel)

	_, _ = ApplyXP(l, models.PillarHealth, 600)
	// levels 16,1,1,1,1,1 -> 3.5 -> 4
	assert.Equal(t, 4, Summarize(l).AverageLevel)
}

func TestRewardRejectsCompletedUnit(t *testing.T) {
	task := &models.Task{ID: "t1", Pillar: models.PillarHealth, XPReward: 10, Completed: true}
	_, err := Reward(TaskUnit{task}, 1.0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrInvalidState))
}

func TestRewardAppliesMultiplier(t *testing.T) {
	quest := &models.Quest{ID: "q1", Pillar: models.PillarFinance, XPReward: 105}

	a, err := Reward(QuestUnit{quest}, 1.5)
	require.NoError(t, err)
	assert.Equal(t, 158, a.XP) // 157.5 rounds half away from zero
	assert.Equal(t, UnitQuest, a.Kind)

	a, err = Reward(QuestUnit{quest}, 0)
	require.NoError(t, err)
	assert.Equal(t, 105, a.XP)
	assert.Equal(t, 1.0, a.Multiplier)
}

func TestMilestoneUnitKind(t *testing.T) {
	g := &models.Goal{Kind: models.GoalKindUltimate, Pillar: models.PillarCareer}
	m := &models.Milestone{ID: "career_0", XPReward: 200}
	a, err := Reward(MilestoneUnit{Goal: g, Milestone: m}, 1.25)
	require.NoError(t, err)
	assert.Equal(t, UnitUltimateGoalMilestone, a.Kind)
	assert.Equal(t, models.PillarCareer, a.Pillar)
	assert.Equal(t, 250, a.XP)

	g.Kind = models.GoalKindRoadmap
	assert.Equal(t, UnitGoalMilestone, MilestoneUnit{Goal: g, Milestone: m}.Kind())
}

func TestOnboardingZeroVarianceAppliesBalanceBonus(t *testing.T) {
	scores := map[models.Pillar]int{}
	for _, p := range models.Pillars {
		scores[p] = 8
	}
	res, err := ScoreOnboarding(scores, MentalHealthScores{})
	require.NoError(t, err)
	require.True(t, res.BalanceBonusApplied)
	require.Len(t, res.Pillars, 6)
	for _, p := range models.Pillars {
		seed := res.Pillars[p]
		assert.Equal(t, 120, seed.Base)
		assert.Equal(t, 0, seed.HonestyBonus)
		assert.Equal(t, 0, seed.ChallengeBoost)
		assert.Equal(t, 50, seed.BalanceBonus)
		assert.Equal(t, 170, seed.TotalXP)
		assert.Equal(t, 2, seed.Level)
	}
	assert.Equal(t, 1.0, res.XPMultiplier)
	assert.Equal(t, models.TaskSizeLarge, res.RecommendedTaskSize)
}

func TestOnboardingHonestyAndHighSupport(t *testing.T) {
	res, err := ScoreOnboarding(
		map[models.Pillar]int{models.PillarHealth: 1},
		MentalHealthScores{ADHD: intp(6), Anxiety: intp(5), Depression: intp(4)},
	)
	require.NoError(t, err)
	seed := res.Pillars[models.PillarHealth]
	assert.Equal(t, 25, seed.HonestyBonus)
	assert.Equal(t, 1.5, res.XPMultiplier)
	assert.Equal(t, models.TaskSizeSmall, res.RecommendedTaskSize)
	assert.Equal(t, 15, res.MentalHealthTotal)
}

func TestOnboardingChallengeBoost(t *testing.T) {
	res, err := ScoreOnboarding(map[models.Pillar]int{
		models.PillarHealth:  2,
		models.PillarCareer:  8,
		models.PillarFinance: 5,
	}, MentalHealthScores{ADHD: intp(8)})
	require.NoError(t, err)
	assert.False(t, res.BalanceBonusApplied)
	assert.Equal(t, 5.0, res.AverageScore)

	health := res.Pillars[models.PillarHealth]
	assert.Equal(t, 30, health.Base)
	assert.Equal(t, 25, health.HonestyBonus)
	assert.Equal(t, 30, health.ChallengeBoost)
	assert.Equal(t, 85, health.TotalXP)
	assert.Equal(t, 1, health.Level)

	career := res.Pillars[models.PillarCareer]
	assert.Equal(t, 0, career.ChallengeBoost)
	assert.Equal(t, 120, career.TotalXP)
	assert.Equal(t, 2, career.Level)

	finance := res.Pillars[models.PillarFinance]
	assert.Equal(t, 0, finance.ChallengeBoost)
	assert.Equal(t, 75, finance.TotalXP)

	assert.Equal(t, 1.25, res.XPMultiplier)
	assert.Equal(t, models.TaskSizeMedium, res.RecommendedTaskSize)
}

func TestOnboardingModerateHonesty(t *testing.T) {
	res, err := ScoreOnboarding(map[models.Pillar]int{models.PillarRecreation: 3, models.PillarFinance: 4}, MentalHealthScores{})
	require.NoError(t, err)
	assert.Equal(t, 15, res.Pillars[models.PillarRecreation].HonestyBonus)
	assert.Equal(t, 0, res.Pillars[models.PillarFinance].HonestyBonus)
	// 3 < 3.5 -> round(0.5*10) = 5
	assert.Equal(t, 5, res.Pillars[models.PillarRecreation].ChallengeBoost)
}

func TestOnboardingEmptyScores(t *testing.T) {
	res, err := ScoreOnboarding(nil, MentalHealthScores{})
	require.NoError(t, err)
	assert.Empty(t, res.Pillars)
	assert.Empty(t, res.Totals())
	assert.False(t, res.BalanceBonusApplied)
	assert.Equal(t, 1.0, res.XPMultiplier)
}

func TestOnboardingValidation(t *testing.T) {
	_, err := ScoreOnboarding(map[models.Pillar]int{models.PillarHealth: -1}, MentalHealthScores{})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = ScoreOnboarding(nil, MentalHealthScores{Anxiety: intp(-3)})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestSeed(t *testing.T) {
	l := NewLedger()
	require.NoError(t, Seed(l, map[models.Pillar]int{models.PillarHealth: 170}))
	assert.Equal(t, models.PillarStats{Level: 2, TotalXP: 170}, l[models.PillarHealth])
	assert.Equal(t, models.PillarStats{Level: 1, TotalXP: 0}, l[models.PillarCareer])

	err := Seed(l, map[models.Pillar]int{models.PillarCareer: -10})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestRecommendations(t *testing.T) {
	assert.Empty(t, Recommendations(MentalHealthScores{ADHD: intp(15)}))
	recs := Recommendations(MentalHealthScores{ADHD: intp(16), Depression: intp(20)})
	assert.Equal(t, []string{
		"Consider breaking tasks into smaller, manageable chunks",
		"Use timers and reminders for task management",
		"Set small, achievable daily goals",
		"Maintain a consistent sleep schedule",
	}, recs)
}

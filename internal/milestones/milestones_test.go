package milestones

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MantraGGR/name---level-up-irl-app/internal/apperr"
	"github.com/MantraGGR/name---level-up-irl-app/internal/models"
)

var now = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func threeSteps() models.MilestoneSequence {
	return NewSequence([]Step{
		{Title: "a", XPReward: 100},
		{Title: "b", XPReward: 150},
		{Title: "c", XPReward: 200},
	}, func(i int) string { return fmt.Sprintf("m%d", i) })
}

func TestNewSequenceUnlocksOnlyFirst(t *testing.T) {
	seq := threeSteps()
	require.Len(t, seq.Milestones, 3)
	assert.True(t, seq.Milestones[0].Unlocked)
	assert.False(t, seq.Milestones[1].Unlocked)
	assert.False(t, seq.Milestones[2].Unlocked)
	assert.Equal(t, 2, seq.Milestones[2].Order)
	assert.Equal(t, 0, seq.CurrentIndex)
}

func TestCompleteOutOfOrderRejected(t *testing.T) {
	seq := threeSteps()
	_, err := Complete(&seq, "m2", 200, now)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrInvalidState))
	assert.False(t, seq.Milestones[2].Completed)
	assert.Equal(t, 0, seq.TotalXP)
}

func TestCompleteFirstUnlocksOnlyNext(t *testing.T) {
	seq := threeSteps()
	out, err := Complete(&seq, "m0", 100, now)
	require.NoError(t, err)

	assert.Equal(t, 0, out.Index)
	require.NotNil(t, out.Next)
	assert.Equal(t, "m1", out.Next.ID)
	assert.False(t, out.SequenceCompleted)

	assert.True(t, seq.Milestones[0].Completed)
	require.NotNil(t, seq.Milestones[0].CompletedAt)
	assert.Equal(t, now, *seq.Milestones[0].CompletedAt)
	assert.True(t, seq.Milestones[1].Unlocked)
	assert.False(t, seq.Milestones[2].Unlocked)
	assert.Equal(t, 1, seq.CurrentIndex)
	assert.Equal(t, 100, seq.TotalXP)

	_, err = Complete(&seq, "m2", 200, now)
	assert.True(t, errors.Is(err, apperr.ErrInvalidState))
}

func TestCompleteTwiceRejected(t *testing.T) {
	seq := threeSteps()
	_, err := Complete(&seq, "m0", 100, now)
	require.NoError(t, err)
	_, err = Complete(&seq, "m0", 100, now)
	assert.True(t, errors.Is(err, apperr.ErrInvalidState))
	assert.Equal(t, 100, seq.TotalXP)
}

func TestCompleteLastCompletesSequence(t *testing.T) {
	seq := threeSteps()
	for i := 0; i < 3; i++ {
		out, err := Complete(&seq, fmt.Sprintf("m%d", i), 10, now)
		require.NoError(t, err)
		assert.Equal(t, i == 2, out.SequenceCompleted)
	}
	assert.True(t, seq.Completed)
	require.NotNil(t, seq.CompletedAt)
	assert.Equal(t, 3, seq.CurrentIndex)
	assert.Equal(t, 30, seq.TotalXP)
	assert.Equal(t, 100.0, seq.ProgressPercent())
}

func TestCompleteUnknownMilestone(t *testing.T) {
	seq := threeSteps()
	_, err := Complete(&seq, "nope", 1, now)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestUltimateCatalog(t *testing.T) {
	c := DefaultUltimateCatalog()
	for _, p := range models.Pillars {
		tpl, ok := c[p]
		require.True(t, ok, "pillar %s", p)
		assert.Len(t, tpl.Milestones, 11)
	}
	g := c[models.PillarFinance].Goal("u1", models.PillarFinance)
	assert.Equal(t, "$20M Net Worth", g.Title)
	assert.Equal(t, models.GoalKindUltimate, g.Kind)
	assert.Equal(t, "finance_0", g.Sequence.Milestones[0].ID)
	assert.Equal(t, 5000, g.Sequence.Milestones[10].XPReward)
	assert.False(t, g.IsCustom)
}

type stubProvider struct {
	text string
	err  error
}

func (s stubProvider) Generate(context.Context, string) (string, error) { return s.text, s.err }

func TestPlanRoadmapFromProvider(t *testing.T) {
	p := NewPlanner(stubProvider{text: "```json\n" + `{
  "title": "Ten Million",
  "analysis": "Ambitious.",
  "timeframe": "5-10 years",
  "difficulty": "Legendary",
  "milestones": [
    {"title": "Build Your Foundation", "description": "budget", "xp_reward": 150},
    {"title": "Start a Business", "description": "mvp"}
  ]
}` + "\n```"}, time.Second, nil)

	rm := p.PlanRoadmap(context.Background(), "make $10 million", models.PillarFinance, 2)
	assert.Equal(t, "Ten Million", rm.Title)
	assert.Equal(t, "legendary", rm.Difficulty)
	require.Len(t, rm.Milestones, 2)
	assert.Equal(t, 150, rm.Milestones[0].XPReward)
	assert.Equal(t, 150, rm.Milestones[1].XPReward) // 100 + 1*50
}

func TestPlanRoadmapFallsBack(t *testing.T) {
	for name, sp := range map[string]stubProvider{
		"error":       {err: errors.New("timeout")},
		"garbage":     {text: "sorry"},
		"no steps":    {text: `{"title": "x", "milestones": []}`},
		"blank title": {text: `{"milestones": [{"title": " "}]}`},
	} {
		t.Run(name, func(t *testing.T) {
			rm := NewPlanner(sp, time.Second, nil).PlanRoadmap(context.Background(), "run a marathon", models.PillarHealth, 1)
			assert.Equal(t, DefaultRoadmap("run a marathon"), rm)
		})
	}
	rm := NewPlanner(nil, 0, nil).PlanRoadmap(context.Background(), "learn piano", models.PillarRecreation, 1)
	assert.Len(t, rm.Milestones, 6)
	assert.Equal(t, "learn piano", rm.Title)
}

func TestPlanCustom(t *testing.T) {
	p := NewPlanner(stubProvider{text: `[{"title": "One", "xp": 300}, {"title": "Two"}]`}, time.Second, nil)
	steps := p.PlanCustom(context.Background(), "Sail around the world", "", models.PillarRecreation, 1)
	require.Len(t, steps, 2)
	assert.Equal(t, 300, steps[0].XPReward)
	assert.Equal(t, 300, steps[1].XPReward) // 200 + 1*100

	steps = NewPlanner(stubProvider{err: errors.New("down")}, time.Second, nil).
		PlanCustom(context.Background(), "Sail", "", models.PillarRecreation, 1)
	assert.Len(t, steps, 10)
	assert.Equal(t, "You did it: Sail", steps[9].Description)
}

func TestDefaultRoadmapTruncatesTitle(t *testing.T) {
	long := "I want to become the most well known marine biologist on the whole planet"
	assert.Len(t, []rune(DefaultRoadmap(long).Title), 50)
}

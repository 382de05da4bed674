package advisor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MantraGGR/name---level-up-irl-app/internal/models"
	"github.com/MantraGGR/name---level-up-irl-app/internal/progression"
)

type fakeBackend struct {
	snap    Snapshot
	created []models.Task
}

func (f *fakeBackend) Snapshot(context.Context, string) (Snapshot, error) { return f.snap, nil }

func (f *fakeBackend) CreateTask(_ context.Context, t models.Task) (models.Task, error) {
	t.ID = "task-1"
	f.created = append(f.created, t)
	return t, nil
}

func newAdvisor(b Backend) *Advisor {
	a := New(b, DefaultCatalog())
	a.Pick = func(int) int { return 0 }
	a.Now = func() time.Time { return time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC) }
	return a
}

func TestClassifyOrder(t *testing.T) {
	cases := []struct {
		msg    string
		intent Intent
	}{
		{"Hey there", IntentGreeting},
		{"hi, I'm stressed", IntentGreeting},
		{"what can you do?", IntentHelp},
		{"Create a task to call mom", IntentCreateTask},
		{"add todo buy milk", IntentCreateTask},
		{"remind me to stretch", IntentCreateTask},
		{"I can't focus today", IntentTip},
		{"show my stats", IntentStats},
		{"what's next on my list", IntentTasks},
		{"show me new quests", IntentTasks},
		{"thoughts on personal growth", IntentPillar},
		{"blorp", IntentUnknown},
		// substrings of longer words are not greetings
		{"this is something", IntentUnknown},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.intent, Classify(tc.msg).Intent, tc.msg)
	}
}

func TestClassifyTipCategories(t *testing.T) {
	cases := map[string]TipCategory{
		"I keep procrastinating":        TipFocus,
		"feeling unmotivated":           TipMotivation,
		"so much anxiety":               TipAnxiety,
		"I'm exhausted":                 TipEnergy,
		"there is too much going on":    TipOverwhelm,
		"distracted and stressed again": TipFocus,
	}
	for msg, cat := range cases {
		c := Classify(msg)
		assert.Equal(t, IntentTip, c.Intent, msg)
		assert.Equal(t, cat, c.Category, msg)
	}
}

func TestClassifyPillar(t *testing.T) {
	assert.Equal(t, models.PillarFinance, Classify("tell me about finance").Pillar)
	assert.Equal(t, models.PillarPersonalGrowth, Classify("personal_growth please").Pillar)
}

func TestTaskText(t *testing.T) {
	assert.Equal(t, "call mom", TaskText("Create a task to call mom"))
	assert.Equal(t, "buy milk", TaskText("add todo buy milk"))
	assert.Equal(t, "", TaskText("new task"))
}

func TestReplyCreatesTask(t *testing.T) {
	b := &fakeBackend{}
	r, err := newAdvisor(b).Reply(context.Background(), "u1", "create a task to water the plants")
	require.NoError(t, err)
	require.Len(t, b.created, 1)

	task := b.created[0]
	assert.Equal(t, "Water the plants", task.Title)
	assert.Equal(t, models.PillarPersonalGrowth, task.Pillar)
	assert.Equal(t, models.PriorityMedium, task.Priority)
	assert.Equal(t, 15, task.XPReward)
	assert.Equal(t, "u1", task.UserID)
	assert.Equal(t, "task_created", r.Action)
	require.NotNil(t, r.TaskCreated)
	assert.Equal(t, "task-1", r.TaskCreated.ID)
}

func TestReplyShortTaskTextPrompts(t *testing.T) {
	b := &fakeBackend{}
	r, err := newAdvisor(b).Reply(context.Background(), "u1", "make a task to go")
	require.NoError(t, err)
	assert.Empty(t, b.created)
	assert.Contains(t, r.Response, "What task would you like to create?")
}

func TestReplyStats(t *testing.T) {
	l := progression.NewLedger()
	_, _ = progression.ApplyXP(l, models.PillarCareer, 1250)
	b := &fakeBackend{snap: Snapshot{Ledger: l, PendingTasks: []models.Task{{Title: "x"}}}}

	r, err := newAdvisor(b).Reply(context.Background(), "u1", "how am i doing")
	require.NoError(t, err)
	assert.Equal(t, IntentStats, r.Intent)
	assert.Contains(t, r.Response, "Total XP: 1,250")
	// levels 1,13,1,1,1,1 -> 18/6 = 3
	assert.Contains(t, r.Response, "Average Level: 3")
	assert.Contains(t, r.Response, "Strongest: Career")
	assert.Contains(t, r.Response, "Pending Quests: 1")
}

func TestReplyGreetingUsesFirstName(t *testing.T) {
	b := &fakeBackend{snap: Snapshot{FullName: "Ada Lovelace", PendingTasks: make([]models.Task, 2)}}
	r, err := newAdvisor(b).Reply(context.Background(), "u1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "Good morning, Ada! 👋 You have 2 quests waiting. Ready to level up?", r.Response)
}

func TestReplyTipAndTasks(t *testing.T) {
	tasks := make([]models.Task, 7)
	for i := range tasks {
		tasks[i] = models.Task{Title: "t", XPReward: 10}
	}
	a := newAdvisor(&fakeBackend{snap: Snapshot{PendingTasks: tasks}})

	r, err := a.Reply(context.Background(), "u1", "I feel tired")
	require.NoError(t, err)
	assert.Equal(t, "Stand up and stretch for 2 minutes", r.Response)

	r, err = a.Reply(context.Background(), "u1", "what should i do")
	require.NoError(t, err)
	assert.Contains(t, r.Response, "5. **t** (+10 XP)")
	assert.NotContains(t, r.Response, "6.")
}

func TestReplyPillar(t *testing.T) {
	l := progression.NewLedger()
	_, _ = progression.ApplyXP(l, models.PillarHealth, 150)
	r, err := newAdvisor(&fakeBackend{snap: Snapshot{Ledger: l}}).Reply(context.Background(), "u1", "health")
	require.NoError(t, err)
	assert.Contains(t, r.Response, "**Health** - Level 2 (150 XP)")
	assert.Contains(t, r.Response, "• Drink water")
}

func TestThousands(t *testing.T) {
	assert.Equal(t, "0", thousands(0))
	assert.Equal(t, "999", thousands(999))
	assert.Equal(t, "1,000", thousands(1000))
	assert.Equal(t, "1,234,567", thousands(1234567))
}

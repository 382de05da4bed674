// Package advisor answers single-turn chat messages with tips, stats and
// task shortcuts.
package advisor

import (
	"context"
	_ "embed"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/MantraGGR/name---level-up-irl-app/internal/models"
	"github.com/MantraGGR/name---level-up-irl-app/internal/progression"
)

//go:embed advice.yaml
var adviceYAML []byte

// Chat-created tasks are small and land in personal growth.
const (
	ChatTaskXP       = 15
	ChatTaskDuration = 15
	minTaskTextLen   = 3
	pendingListLimit = 5
)

type Catalog struct {
	Tips      map[TipCategory][]string   `yaml:"tips"`
	QuickWins map[models.Pillar][]string `yaml:"quick_wins"`
	Unknown   []string                   `yaml:"unknown"`
}

func DefaultCatalog() Catalog {
	var c Catalog
	if err := yaml.Unmarshal(adviceYAML, &c); err != nil {
		panic(fmt.Errorf("decode advice catalog: %w", err))
	}
	return c
}

// Snapshot is the user state a reply is built from.
type Snapshot struct {
	FullName     string
	Ledger       models.Ledger
	PendingTasks []models.Task
}

// Backend loads user state and creates chat tasks.
type Backend interface {
	Snapshot(ctx context.Context, userID string) (Snapshot, error)
	CreateTask(ctx context.Context, task models.Task) (models.Task, error)
}

type Reply struct {
	Intent      Intent       `json:"intent"`
	Response    string       `json:"response"`
	Suggestions []string     `json:"suggestions"`
	Action      string       `json:"action,omitempty"`
	TaskCreated *models.Task `json:"task_created,omitempty"`
}

type Advisor struct {
	backend Backend
	catalog Catalog
	// Pick returns an index in [0, n).
	Pick func(n int) int
	Now  func() time.Time
}

func New(backend Backend, catalog Catalog) *Advisor {
	return &Advisor{backend: backend, catalog: catalog, Pick: rand.IntN, Now: time.Now}
}

func (a *Advisor) pick(options []string) string {
	if len(options) == 0 {
		return ""
	}
	return options[a.Pick(len(options))]
}

func greeting(hour int) string {
	switch {
	case hour < 12:
		return "Good morning"
	case hour < 17:
		return "Good afternoon"
	default:
		return "Good evening"
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func capitalize(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// Reply classifies message and builds the answer for userID. Only the
// create_task intent writes anything.
func (a *Advisor) Reply(ctx context.Context, userID, message string) (Reply, error) {
	c := Classify(message)
	if c.Intent == IntentCreateTask {
		return a.createTask(ctx, userID, c.TaskText)
	}

	snap, err := a.backend.Snapshot(ctx, userID)
	if err != nil {
		return Reply{}, err
	}

	r := Reply{Intent: c.Intent}
	switch c.Intent {
	case IntentGreeting:
		name := "adventurer"
		if f := strings.Fields(snap.FullName); len(f) > 0 {
			name = f[0]
		}
		r.Response = fmt.Sprintf("%s, %s! 👋 ", greeting(a.Now().Hour()), name)
		if n := len(snap.PendingTasks); n > 0 {
			r.Response += fmt.Sprintf("You have %s waiting. Ready to level up?", plural(n, "quest"))
		} else {
			r.Response += "Ready to conquer some quests today?"
		}
		r.Suggestions = []string{"Show my tasks", "I need motivation", "Create a task"}

	case IntentHelp:
		r.Response = "I'm your productivity companion! Here's what I can help with:\n\n" +
			"🎯 **Tasks** - Create tasks, see what's next\n" +
			"💪 **Motivation** - Get pumped up when you're stuck\n" +
			"🧘 **Focus** - Tips for concentration\n" +
			"😰 **Anxiety** - Calming techniques\n" +
			"⚡ **Energy** - Beat the fatigue\n" +
			"📊 **Stats** - Check your progress\n\n" +
			"Just tell me what you need!"
		r.Suggestions = []string{"I can't focus", "Show my stats", "I'm overwhelmed"}

	case IntentTip:
		tips := a.catalog.Tips[c.Category]
		if len(tips) == 0 {
			tips = a.catalog.Tips[TipFocus]
		}
		r.Response = a.pick(tips)
		r.Suggestions = []string{"Give me another tip", "Create a task", "Show my tasks"}

	case IntentStats:
		s := progression.Summarize(snap.Ledger)
		var b strings.Builder
		b.WriteString("📊 **Your Stats**\n\n")
		fmt.Fprintf(&b, "⭐ Total XP: %s\n", thousands(s.TotalXP))
		fmt.Fprintf(&b, "🏆 Average Level: %d\n", s.AverageLevel)
		fmt.Fprintf(&b, "💪 Strongest: %s\n", s.StrongestArea.DisplayName())
		fmt.Fprintf(&b, "📋 Pending Quests: %d\n\n", len(snap.PendingTasks))
		b.WriteString("Keep grinding! Every task completed levels you up.")
		r.Response = b.String()
		r.Suggestions = []string{"Show my tasks", "I need motivation", "What should I work on?"}

	case IntentTasks:
		if len(snap.PendingTasks) == 0 {
			r.Response = "You have no pending quests! 🎉 Time to create new tasks or generate some quests."
			r.Suggestions = []string{"Create a task", "Give me a tip"}
			break
		}
		var b strings.Builder
		b.WriteString("📋 **Your Active Quests:**\n\n")
		for i, t := range snap.PendingTasks[:min(len(snap.PendingTasks), pendingListLimit)] {
			fmt.Fprintf(&b, "%d. **%s** (+%d XP)\n", i+1, t.Title, t.XPReward)
		}
		r.Response = b.String()
		r.Suggestions = []string{"I'll work on the first one", "I need motivation", "I'm overwhelmed"}

	case IntentPillar:
		st, ok := snap.Ledger[c.Pillar]
		if !ok {
			st = models.PillarStats{Level: 1}
		}
		var b strings.Builder
		fmt.Fprintf(&b, "**%s** - Level %d (%d XP)\n\nQuick wins for this pillar:\n", c.Pillar.DisplayName(), st.Level, st.TotalXP)
		for _, s := range a.catalog.QuickWins[c.Pillar] {
			fmt.Fprintf(&b, "• %s\n", s)
		}
		r.Response = b.String()
		r.Suggestions = []string{fmt.Sprintf("Create %s task", c.Pillar), "Show all stats", "Different pillar"}

	default:
		r.Response = a.pick(a.catalog.Unknown)
		r.Suggestions = []string{"Help", "Show my tasks", "I need motivation"}
	}
	return r, nil
}

func (a *Advisor) createTask(ctx context.Context, userID, text string) (Reply, error) {
	r := Reply{Intent: IntentCreateTask}
	if len([]rune(text)) < minTaskTextLen {
		r.Response = "What task would you like to create? Just tell me what you need to do!"
		r.Suggestions = []string{"Exercise for 30 min", "Review my notes", "Call mom"}
		return r, nil
	}
	title := capitalize(text)
	task, err := a.backend.CreateTask(ctx, models.Task{
		UserID:            userID,
		Title:             title,
		Description:       "Task created via chat: " + text,
		Pillar:            models.PillarPersonalGrowth,
		Priority:          models.PriorityMedium,
		EstimatedDuration: ChatTaskDuration,
		XPReward:          ChatTaskXP,
	})
	if err != nil {
		return Reply{}, err
	}
	r.Response = fmt.Sprintf("✅ Quest created: **%s**\n\nComplete it to earn +%d XP!", title, task.XPReward)
	r.Suggestions = []string{"Show my tasks", "Create another task", "I need motivation"}
	r.Action = "task_created"
	r.TaskCreated = &task
	return r, nil
}

// thousands formats n with comma separators.
func thousands(n int) string {
	s := fmt.Sprint(n)
	if n < 0 {
		return "-" + thousands(-n)
	}
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return s
}

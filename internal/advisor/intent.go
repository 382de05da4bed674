package advisor

import (
	"regexp"
	"strings"

	"github.com/MantraGGR/name---level-up-irl-app/internal/models"
)

type Intent string

const (
	IntentGreeting   Intent = "greeting"
	IntentHelp       Intent = "help"
	IntentCreateTask Intent = "create_task"
	IntentTip        Intent = "tip"
	IntentStats      Intent = "stats"
	IntentTasks      Intent = "tasks"
	IntentPillar     Intent = "pillar"
	IntentUnknown    Intent = "unknown"
)

type TipCategory string

const (
	TipFocus      TipCategory = "focus"
	TipMotivation TipCategory = "motivation"
	TipAnxiety    TipCategory = "anxiety"
	TipEnergy     TipCategory = "energy"
	TipOverwhelm  TipCategory = "overwhelm"
)

// Classification is the result of Classify. Category is set for tips, Pillar
// for pillar questions and TaskText for task creation.
type Classification struct {
	Intent   Intent
	Category TipCategory
	Pillar   models.Pillar
	TaskText string
}

var (
	// Greetings are short enough to appear inside other words ("this",
	// "you"), so they match whole words only.
	greetingWords = []string{"hello", "hi", "hey", "sup", "yo"}
	helpKeys      = []string{"help", "what can you do", "commands", "options"}

	taskTrigger = regexp.MustCompile(`(?i)\b(?:remind me(?:\s+to)?|(?:create|add|new|make)\s+(?:a\s+)?(?:task|quest|todo)(?:\s+to)?)\b`)

	tipKeys = []struct {
		category TipCategory
		keys     []string
	}{
		{TipFocus, []string{"focus", "concentrate", "distracted", "can't focus", "procrastinat"}},
		{TipMotivation, []string{"motivat", "lazy", "don't want to", "unmotivated", "stuck"}},
		{TipAnxiety, []string{"anxious", "anxiety", "stressed", "stress", "worried", "panic"}},
		{TipEnergy, []string{"tired", "exhausted", "no energy", "sleepy", "fatigue"}},
		{TipOverwhelm, []string{"overwhelm", "too much", "can't handle", "drowning"}},
	}

	statsKeys = []string{"stats", "progress", "level", "xp", "how am i doing"}
	tasksKeys = []string{"tasks", "todo", "what should i do", "what's next", "quests"}

	wordSplit = regexp.MustCompile(`[^a-z0-9']+`)
)

func containsAny(msg string, keys []string) bool {
	for _, k := range keys {
		if strings.Contains(msg, k) {
			return true
		}
	}
	return false
}

func hasWord(msg string, words []string) bool {
	for _, tok := range wordSplit.Split(msg, -1) {
		for _, w := range words {
			if tok == w {
				return true
			}
		}
	}
	return false
}

// Classify maps a message to an intent. Categories are tried in a fixed
// order and the first match wins.
func Classify(message string) Classification {
	msg := strings.ToLower(strings.TrimSpace(message))

	switch {
	case hasWord(msg, greetingWords):
		return Classification{Intent: IntentGreeting}
	case containsAny(msg, helpKeys):
		return Classification{Intent: IntentHelp}
	case taskTrigger.MatchString(msg):
		return Classification{Intent: IntentCreateTask, TaskText: TaskText(message)}
	}

	for _, tk := range tipKeys {
		if containsAny(msg, tk.keys) {
			return Classification{Intent: IntentTip, Category: tk.category}
		}
	}

	switch {
	case containsAny(msg, statsKeys):
		return Classification{Intent: IntentStats}
	case containsAny(msg, tasksKeys):
		return Classification{Intent: IntentTasks}
	}

	for _, p := range models.Pillars {
		if strings.Contains(msg, string(p)) || strings.Contains(msg, strings.ReplaceAll(string(p), "_", " ")) {
			return Classification{Intent: IntentPillar, Pillar: p}
		}
	}
	return Classification{Intent: IntentUnknown}
}

// TaskText strips task-creation trigger phrases from message.
func TaskText(message string) string {
	text := taskTrigger.ReplaceAllString(message, "")
	return strings.Join(strings.Fields(text), " ")
}

package milestones

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/MantraGGR/name---level-up-irl-app/internal/models"
)

//go:embed ultimate.yaml
var ultimateYAML []byte

// UltimateTemplate is the predefined ultimate goal of one pillar.
type UltimateTemplate struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Icon        string `yaml:"icon"`
	Milestones  []Step `yaml:"milestones"`
}

type UltimateCatalog map[models.Pillar]UltimateTemplate

func ParseUltimateCatalog(data []byte) (UltimateCatalog, error) {
	raw := map[string]UltimateTemplate{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode ultimate goals: %w", err)
	}
	c := make(UltimateCatalog, len(raw))
	for name, t := range raw {
		p, err := models.ParsePillar(name)
		if err != nil {
			return nil, fmt.Errorf("ultimate goals: %w", err)
		}
		if t.Title == "" || len(t.Milestones) == 0 {
			return nil, fmt.Errorf("ultimate goals: %s needs a title and milestones", p)
		}
		for i, s := range t.Milestones {
			if s.Title == "" || s.XPReward <= 0 {
				return nil, fmt.Errorf("ultimate goals: %s milestone %d is incomplete", p, i)
			}
		}
		c[p] = t
	}
	return c, nil
}

func DefaultUltimateCatalog() UltimateCatalog {
	c, err := ParseUltimateCatalog(ultimateYAML)
	if err != nil {
		panic(err)
	}
	return c
}

// Goal instantiates the predefined ultimate goal for pillar. Milestone ids
// are "<pillar>_<index>".
func (t UltimateTemplate) Goal(userID string, pillar models.Pillar) models.Goal {
	return models.Goal{
		UserID:      userID,
		Kind:        models.GoalKindUltimate,
		Title:       t.Title,
		Description: t.Description,
		Pillar:      pillar,
		Icon:        t.Icon,
		Sequence: NewSequence(t.Milestones, func(i int) string {
			return fmt.Sprintf("%s_%d", pillar, i)
		}),
	}
}

// Roadmap is the plan behind a roadmap goal.
type Roadmap struct {
	Title      string `json:"title"`
	Analysis   string `json:"analysis"`
	Timeframe  string `json:"timeframe"`
	Difficulty string `json:"difficulty"`
	Milestones []Step `json:"milestones"`
}

// DefaultRoadmap is used whenever no usable roadmap comes back from the
// provider.
func DefaultRoadmap(description string) Roadmap {
	return Roadmap{
		Title:      truncate(description, 50),
		Analysis:   "This is an exciting goal! Breaking it down into smaller milestones will help you stay motivated and track progress. Let's create a roadmap together.",
		Timeframe:  "1-5 years",
		Difficulty: "challenging",
		Milestones: []Step{
			{Title: "Research & Planning", Description: "Study what it takes to achieve this goal. Learn from others who've done it.", XPReward: 100},
			{Title: "Build Foundation", Description: "Develop the core skills and resources needed.", XPReward: 150},
			{Title: "Take First Action", Description: "Make your first real move toward the goal.", XPReward: 200},
			{Title: "Achieve First Win", Description: "Get your first tangible result or milestone.", XPReward: 250},
			{Title: "Scale & Grow", Description: "Build on your success and expand.", XPReward: 300},
			{Title: "Reach Your Goal", Description: "The final milestone - you made it!", XPReward: 500},
		},
	}
}

// DefaultCustomSteps backs custom ultimate goals when the provider is
// unavailable.
func DefaultCustomSteps(title string) []Step {
	return []Step{
		{Title: "Research & Learn", Description: "Study what it takes to achieve: " + title, XPReward: 150},
		{Title: "Create Your Plan", Description: "Develop a detailed action plan", XPReward: 200},
		{Title: "Build Foundation", Description: "Develop core skills and resources", XPReward: 250},
		{Title: "First Major Step", Description: "Take significant action toward your goal", XPReward: 300},
		{Title: "Early Win", Description: "Achieve your first tangible result", XPReward: 350},
		{Title: "Build Momentum", Description: "Consistently make progress", XPReward: 400},
		{Title: "Overcome Obstacles", Description: "Push through challenges", XPReward: 450},
		{Title: "Major Milestone", Description: "Reach a significant checkpoint", XPReward: 600},
		{Title: "Final Push", Description: "The last stretch toward your goal", XPReward: 800},
		{Title: "Goal Achieved!", Description: "You did it: " + title, XPReward: 2000},
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

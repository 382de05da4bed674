package milestones

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/MantraGGR/name---level-up-irl-app/internal/apperr"
	"github.com/MantraGGR/name---level-up-irl-app/internal/models"
	"github.com/MantraGGR/name---level-up-irl-app/internal/textgen"
)

// MaxSteps bounds provider-produced sequences.
const MaxSteps = 12

// Planner asks the text provider for goal milestones and falls back to the
// fixed defaults on any failure.
type Planner struct {
	provider textgen.Provider
	timeout  time.Duration
	log      *zap.Logger
}

func NewPlanner(provider textgen.Provider, timeout time.Duration, log *zap.Logger) *Planner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Planner{provider: provider, timeout: timeout, log: log}
}

type aiStep struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	XPReward    *int   `json:"xp_reward"`
	XP          *int   `json:"xp"`
}

type aiRoadmap struct {
	Title      string   `json:"title"`
	Analysis   string   `json:"analysis"`
	Timeframe  string   `json:"timeframe"`
	Difficulty string   `json:"difficulty"`
	Milestones []aiStep `json:"milestones"`
}

// steps validates provider steps; defaultXP supplies the reward of a step
// that names none.
func steps(raw []aiStep, defaultXP func(i int) int) ([]Step, error) {
	if len(raw) == 0 {
		return nil, errors.New("no milestones")
	}
	if len(raw) > MaxSteps {
		raw = raw[:MaxSteps]
	}
	out := make([]Step, 0, len(raw))
	for i, s := range raw {
		title := strings.TrimSpace(s.Title)
		if title == "" {
			return nil, fmt.Errorf("milestone %d has no title", i)
		}
		xp := defaultXP(i)
		switch {
		case s.XPReward != nil:
			xp = *s.XPReward
		case s.XP != nil:
			xp = *s.XP
		}
		if xp <= 0 {
			return nil, fmt.Errorf("milestone %d has non-positive xp %d", i, xp)
		}
		out = append(out, Step{Title: title, Description: strings.TrimSpace(s.Description), XPReward: xp})
	}
	return out, nil
}

func (p *Planner) ctx(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout > 0 {
		return context.WithTimeout(ctx, p.timeout)
	}
	return context.WithCancel(ctx)
}

// PlanRoadmap always returns a usable roadmap.
func (p *Planner) PlanRoadmap(ctx context.Context, description string, pillar models.Pillar, level int) Roadmap {
	rm, err := p.aiRoadmap(ctx, description, pillar, level)
	if err != nil {
		if !errors.Is(err, textgen.ErrDisabled) {
			p.log.Warn("roadmap generation failed, using default", zap.String("pillar", string(pillar)), zap.Error(err))
		}
		return DefaultRoadmap(description)
	}
	return rm
}

func (p *Planner) aiRoadmap(ctx context.Context, description string, pillar models.Pillar, level int) (Roadmap, error) {
	ctx, cancel := p.ctx(ctx)
	defer cancel()

	var raw aiRoadmap
	if err := textgen.GenerateJSON(ctx, p.provider, roadmapPrompt(description, pillar, level), &raw); err != nil {
		return Roadmap{}, apperr.Upstream(err)
	}
	ms, err := steps(raw.Milestones, func(i int) int { return 100 + i*50 })
	if err != nil {
		return Roadmap{}, apperr.Upstream(err)
	}
	rm := Roadmap{
		Title:      strings.TrimSpace(raw.Title),
		Analysis:   strings.TrimSpace(raw.Analysis),
		Timeframe:  strings.TrimSpace(raw.Timeframe),
		Difficulty: strings.ToLower(strings.TrimSpace(raw.Difficulty)),
		Milestones: ms,
	}
	if rm.Title == "" {
		rm.Title = truncate(description, 50)
	}
	if rm.Timeframe == "" {
		rm.Timeframe = "Unknown"
	}
	if rm.Difficulty == "" {
		rm.Difficulty = "challenging"
	}
	return rm, nil
}

// PlanCustom returns the milestones of a custom ultimate goal.
func (p *Planner) PlanCustom(ctx context.Context, title, description string, pillar models.Pillar, level int) []Step {
	ctx, cancel := p.ctx(ctx)
	defer cancel()

	var raw []aiStep
	err := textgen.GenerateJSON(ctx, p.provider, customPrompt(title, description, pillar, level), &raw)
	if err == nil {
		var out []Step
		if out, err = steps(raw, func(i int) int { return 200 + i*100 }); err == nil {
			return out
		}
	}
	if !errors.Is(err, textgen.ErrDisabled) {
		p.log.Warn("custom goal generation failed, using defaults", zap.String("pillar", string(pillar)), zap.Error(apperr.Upstream(err)))
	}
	return DefaultCustomSteps(title)
}

func area(p models.Pillar) string { return strings.ReplaceAll(string(p), "_", " ") }

func roadmapPrompt(description string, pillar models.Pillar, level int) string {
	return fmt.Sprintf(`You are a life coach and strategic planner. A user has shared their long-term goal:

%q

Life area: %s
User's current level in this area: %d

Analyze this goal and create a realistic roadmap. Return ONLY valid JSON:
{
  "title": "Short catchy title for the goal (max 50 chars)",
  "analysis": "2-3 sentences acknowledging the goal, its ambition level, and encouragement",
  "timeframe": "Estimated time to achieve (e.g. '2-3 years')",
  "difficulty": "One of: achievable, challenging, ambitious, legendary",
  "milestones": [
    {"title": "First milestone title", "description": "What this milestone involves", "xp_reward": 150}
  ]
}

Include 5-8 milestones that progressively build toward the goal, each a significant
achievement, ordered so each builds on the previous. XP rewards range from 100 to 500.
`, description, area(pillar), level)
}

func customPrompt(title, description string, pillar models.Pillar, level int) string {
	return fmt.Sprintf(`You are a life coach creating a roadmap for someone's ultimate life goal.

Goal: %s
Description: %s
Life area: %s
User's current level: %d

Create 8-12 progressive milestones that build toward this ultimate goal.

Return ONLY a valid JSON array:
[
  {"title": "First milestone", "description": "What this involves", "xp": 200},
  {"title": "Final milestone - Goal Achieved", "description": "The ultimate achievement", "xp": 2000}
]

XP rewards: 150-500 for early milestones, 500-2000 for later ones.
`, title, description, area(pillar), level)
}

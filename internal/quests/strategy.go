package quests

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/MantraGGR/name---level-up-irl-app/internal/apperr"
	"github.com/MantraGGR/name---level-up-irl-app/internal/models"
	"github.com/MantraGGR/name---level-up-irl-app/internal/textgen"
)

// Draft is a generated quest before it is bound to a user and stored.
type Draft struct {
	Title         string            `json:"title"`
	Description   string            `json:"description"`
	TargetValue   *float64          `json:"target_value"`
	TargetUnit    string            `json:"target_unit"`
	XPReward      int               `json:"xp_reward"`
	Difficulty    models.Difficulty `json:"difficulty"`
	GeneratedByAI bool              `json:"-"`
}

// Request describes one pillar's generation.
type Request struct {
	Pillar  models.Pillar
	Level   int
	TotalXP int
	Count   int
}

// Strategy produces quest drafts for a request.
type Strategy interface {
	Name() string
	Drafts(ctx context.Context, req Request) ([]Draft, error)
}

// TemplateStrategy samples templates without replacement and scales them to
// the requested level. It fails only on an unknown pillar.
type TemplateStrategy struct {
	Catalog Catalog
	// Perm returns a permutation of [0, n); defaults to math/rand/v2.
	Perm func(n int) []int
}

func NewTemplateStrategy(c Catalog) *TemplateStrategy {
	return &TemplateStrategy{Catalog: c, Perm: rand.Perm}
}

func (s *TemplateStrategy) Name() string { return "template" }

func (s *TemplateStrategy) Drafts(_ context.Context, req Request) ([]Draft, error) {
	if !req.Pillar.IsValid() {
		return nil, apperr.Validation("unknown pillar %q", req.Pillar)
	}
	templates := s.Catalog[req.Pillar]
	n := min(max(req.Count, 0), len(templates))
	if n == 0 {
		return nil, nil
	}
	perm := s.Perm
	if perm == nil {
		perm = rand.Perm
	}
	out := make([]Draft, 0, n)
	for _, i := range perm(len(templates))[:n] {
		out = append(out, templates[i].Draft(req.Pillar, req.Level))
	}
	return out, nil
}

// AIStrategy asks a text provider for quests. Every failure is reported as
// apperr.ErrUpstreamUnavailable so callers can fall back.
type AIStrategy struct {
	Provider textgen.Provider
	Timeout  time.Duration
}

func (s *AIStrategy) Name() string { return "ai" }

func (s *AIStrategy) Drafts(ctx context.Context, req Request) ([]Draft, error) {
	if req.Count <= 0 {
		return nil, nil
	}
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	var raw []Draft
	if err := textgen.GenerateJSON(ctx, s.Provider, Prompt(req), &raw); err != nil {
		return nil, apperr.Upstream(err)
	}
	if len(raw) < req.Count {
		return nil, apperr.Upstream(fmt.Errorf("provider returned %d quests, need %d", len(raw), req.Count))
	}
	out := make([]Draft, 0, req.Count)
	for i, d := range raw[:req.Count] {
		d, err := normalize(d, req)
		if err != nil {
			return nil, apperr.Upstream(fmt.Errorf("quest %d: %w", i, err))
		}
		out = append(out, d)
	}
	return out, nil
}

func normalize(d Draft, req Request) (Draft, error) {
	d.Title = strings.TrimSpace(d.Title)
	d.Description = strings.TrimSpace(d.Description)
	d.TargetUnit = strings.TrimSpace(d.TargetUnit)
	if d.TargetValue != nil {
		if v := *d.TargetValue; math.IsNaN(v) || v <= 0 || v > MaxTargetValue {
			return Draft{}, fmt.Errorf("target_value must be in (0, %d], got %v", MaxTargetValue, v)
		}
		d.Title = strings.ReplaceAll(d.Title, "{value}", strconv.FormatFloat(*d.TargetValue, 'f', -1, 64))
	}
	if d.Title == "" || strings.Contains(d.Title, "{value}") {
		return Draft{}, fmt.Errorf("unusable title %q", d.Title)
	}
	if d.XPReward <= 0 {
		return Draft{}, fmt.Errorf("xp_reward must be positive, got %d", d.XPReward)
	}
	d.XPReward = min(d.XPReward, XPCeiling(req.Level))
	if d.Difficulty == "" {
		d.Difficulty = DifficultyFor(req.Level)
	}
	if !d.Difficulty.IsValid() {
		return Draft{}, fmt.Errorf("unknown difficulty %q", d.Difficulty)
	}
	d.GeneratedByAI = true
	return d, nil
}

// Prompt builds the provider prompt for a request.
func Prompt(req Request) string {
	area := strings.ReplaceAll(string(req.Pillar), "_", " ")
	var b strings.Builder
	fmt.Fprintf(&b, "You are a life coach creating achievement quests for a gamified productivity app.\n\n")
	fmt.Fprintf(&b, "User's current %s level: %d\nTotal XP in this area: %d\n\n", area, req.Level, req.TotalXP)
	fmt.Fprintf(&b, "Generate %d challenging but achievable quests for this life pillar. Each quest should:\n", req.Count)
	b.WriteString("1. Have a specific, measurable target (numbers matter!)\n")
	fmt.Fprintf(&b, "2. Scale appropriately for level %d (higher levels = harder goals)\n", req.Level)
	b.WriteString("3. Be motivating and rewarding\n4. Include realistic timeframes\n\n")
	b.WriteString(`Return ONLY a valid JSON array:
[
  {
    "title": "Quest title with {value} placeholder",
    "description": "Motivating description of why this matters",
    "target_value": 100,
    "target_unit": "unit name",
    "xp_reward": 150,
    "difficulty": "medium"
  }
]

Difficulties: easy (beginner friendly), medium (challenging), hard (serious commitment), legendary (life-changing)
`)
	return b.String()
}

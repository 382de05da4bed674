package quests

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/MantraGGR/name---level-up-irl-app/internal/models"
	"github.com/MantraGGR/name---level-up-irl-app/internal/textgen"
)

// Generator picks the AI strategy when a provider is available and always
// falls back to templates.
type Generator struct {
	fallback *TemplateStrategy
	ai       *AIStrategy
	log      *zap.Logger
}

func NewGenerator(catalog Catalog, provider textgen.Provider, timeout time.Duration, log *zap.Logger) *Generator {
	if log == nil {
		log = zap.NewNop()
	}
	g := &Generator{fallback: NewTemplateStrategy(catalog), log: log}
	if textgen.Enabled(provider) {
		g.ai = &AIStrategy{Provider: provider, Timeout: timeout}
	}
	return g
}

// WithPerm overrides template sampling; tests use it for determinism.
func (g *Generator) WithPerm(perm func(n int) []int) *Generator {
	g.fallback.Perm = perm
	return g
}

func (g *Generator) strategies() []Strategy {
	if g.ai != nil {
		return []Strategy{g.ai, g.fallback}
	}
	return []Strategy{g.fallback}
}

// Generate returns req.Count drafts (fewer only when the pillar's catalog is
// smaller). Provider failures are logged and absorbed.
func (g *Generator) Generate(ctx context.Context, req Request) ([]Draft, error) {
	if req.Count <= 0 {
		return nil, nil
	}
	var (
		drafts []Draft
		err    error
	)
	for _, s := range g.strategies() {
		drafts, err = s.Drafts(ctx, req)
		if err == nil {
			return drafts, nil
		}
		if s != Strategy(g.fallback) {
			g.log.Warn("quest strategy failed, falling back",
				zap.String("strategy", s.Name()),
				zap.String("pillar", string(req.Pillar)),
				zap.Error(err))
		}
	}
	return nil, err
}

// NewQuest binds a draft to a user.
func NewQuest(userID string, pillar models.Pillar, level int, d Draft, now time.Time, ttl time.Duration) models.Quest {
	q := models.Quest{
		UserID:           userID,
		Title:            d.Title,
		Description:      d.Description,
		Pillar:           pillar,
		TargetValue:      d.TargetValue,
		TargetUnit:       d.TargetUnit,
		XPReward:         d.XPReward,
		LevelRequirement: max(level, 1),
		Difficulty:       d.Difficulty,
		IsActive:         true,
		GeneratedByAI:    d.GeneratedByAI,
		CreatedAt:        now,
	}
	if ttl > 0 {
		exp := now.Add(ttl)
		q.ExpiresAt = &exp
	}
	return q
}

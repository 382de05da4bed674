// Package quests scales per-pillar quest templates to a user's level and
// generates capped batches of quests, optionally enriched by a text provider.
package quests

import (
	_ "embed"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MantraGGR/name---level-up-irl-app/internal/models"
)

//go:embed templates.yaml
var templatesYAML []byte

// MaxActivePerPillar caps simultaneously active, incomplete quests per
// (user, pillar).
const MaxActivePerPillar = 3

const (
	// MaxTargetValue bounds scaled targets so they fit an int32 column and
	// stay positive at any level.
	MaxTargetValue = math.MaxInt32
	// MaxBaseXP is the largest base_xp a template may declare. It also sets
	// the reward ceiling for provider-written quests.
	MaxBaseXP = 500
	// MaxQuestXP bounds any single quest reward.
	MaxQuestXP = 1_000_000
)

type Template struct {
	Title     string  `yaml:"title"`
	Unit      string  `yaml:"unit"`
	BaseValue float64 `yaml:"base_value"`
	Scale     float64 `yaml:"scale"`
	BaseXP    int     `yaml:"base_xp"`
}

type Catalog map[models.Pillar][]Template

// ParseCatalog decodes and validates a YAML template catalog.
func ParseCatalog(data []byte) (Catalog, error) {
	raw := map[string][]Template{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode quest templates: %w", err)
	}
	c := make(Catalog, len(raw))
	for name, ts := range raw {
		p, err := models.ParsePillar(name)
		if err != nil {
			return nil, fmt.Errorf("quest templates: %w", err)
		}
		for i, t := range ts {
			switch {
			case !strings.Contains(t.Title, "{value}"):
				return nil, fmt.Errorf("quest templates: %s[%d] title has no {value} placeholder", p, i)
			case t.BaseValue <= 0:
				return nil, fmt.Errorf("quest templates: %s[%d] base_value must be positive", p, i)
			case t.Scale <= 1:
				return nil, fmt.Errorf("quest templates: %s[%d] scale must be > 1", p, i)
			case t.BaseXP <= 0 || t.BaseXP > MaxBaseXP:
				return nil, fmt.Errorf("quest templates: %s[%d] base_xp must be in 1..%d", p, i, MaxBaseXP)
			}
		}
		c[p] = ts
	}
	return c, nil
}

// DefaultCatalog returns the embedded template catalog.
func DefaultCatalog() Catalog {
	c, err := ParseCatalog(templatesYAML)
	if err != nil {
		panic(err)
	}
	return c
}

// DifficultyFor buckets a pillar level.
func DifficultyFor(level int) models.Difficulty {
	switch {
	case level <= 2:
		return models.DifficultyEasy
	case level <= 5:
		return models.DifficultyMedium
	case level <= 10:
		return models.DifficultyHard
	default:
		return models.DifficultyLegendary
	}
}

func DifficultyMultiplier(d models.Difficulty) float64 {
	switch d {
	case models.DifficultyEasy:
		return 0.7
	case models.DifficultyHard:
		return 1.5
	case models.DifficultyLegendary:
		return 2.5
	default:
		return 1.0
	}
}

// ScaledValue is round(base * scale^(level-1)), kept within
// [1, MaxTargetValue]. The power is taken in float64 so high levels saturate
// instead of wrapping.
func ScaledValue(base, scale float64, level int) int {
	level = max(level, 1)
	v := math.Round(base * math.Pow(scale, float64(level-1)))
	switch {
	case math.IsNaN(v) || v < 1:
		return 1
	case v > MaxTargetValue:
		return MaxTargetValue
	}
	return int(v)
}

// XPReward is round(baseXP * difficultyMultiplier * (1 + (level-1)*0.1)),
// capped at MaxQuestXP.
func XPReward(baseXP, level int) int {
	level = max(level, 1)
	mult := DifficultyMultiplier(DifficultyFor(level))
	v := math.Round(float64(baseXP) * mult * (1 + float64(level-1)*0.1))
	if math.IsNaN(v) || v > MaxQuestXP {
		return MaxQuestXP
	}
	return max(int(v), 0)
}

// XPCeiling is the most a quest at level can pay: the legendary reward of
// the largest template.
func XPCeiling(level int) int {
	level = max(level, 1)
	v := math.Round(MaxBaseXP * DifficultyMultiplier(models.DifficultyLegendary) * (1 + float64(level-1)*0.1))
	if math.IsNaN(v) || v > MaxQuestXP {
		return MaxQuestXP
	}
	return int(v)
}

// Draft renders the template for a pillar level.
func (t Template) Draft(pillar models.Pillar, level int) Draft {
	level = max(level, 1)
	value := ScaledValue(t.BaseValue, t.Scale, level)
	target := float64(value)
	return Draft{
		Title:       strings.ReplaceAll(t.Title, "{value}", strconv.Itoa(value)),
		Description: fmt.Sprintf("Level %d %s challenge. Complete this to prove your dedication!", level, strings.ToLower(pillar.DisplayName())),
		TargetValue: &target,
		TargetUnit:  t.Unit,
		XPReward:    XPReward(t.BaseXP, level),
		Difficulty:  DifficultyFor(level),
	}
}

// Needed is how many quests fill a pillar up to the cap given active ones.
func Needed(active int) int {
	return max(0, MaxActivePerPillar-active)
}

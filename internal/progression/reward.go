package progression

import (
	"math"

	"github.com/MantraGGR/name---level-up-irl-app/internal/apperr"
	"github.com/MantraGGR/name---level-up-irl-app/internal/models"
)

// Award is the XP a completed work unit earns.
type Award struct {
	Kind       UnitKind      `json:"kind"`
	UnitID     string        `json:"unit_id"`
	Pillar     models.Pillar `json:"pillar"`
	BaseXP     int           `json:"base_xp"`
	Multiplier float64       `json:"multiplier"`
	XP         int           `json:"xp"`
}

// Reward maps a pending work unit to its XP award. The declared reward was
// fixed when the unit was created; multiplier is the profile's onboarding
// multiplier and values <= 0 mean "not onboarded" (1.0).
func Reward(u WorkUnit, multiplier float64) (Award, error) {
	if u.IsCompleted() {
		return Award{}, apperr.InvalidState("%s %s is already completed", u.Kind(), u.UnitID())
	}
	if !u.UnitPillar().IsValid() {
		return Award{}, apperr.Validation("%s %s has unknown pillar %q", u.Kind(), u.UnitID(), u.UnitPillar())
	}
	base := u.DeclaredXP()
	if base < 0 {
		return Award{}, apperr.Validation("%s %s declares negative xp %d", u.Kind(), u.UnitID(), base)
	}
	if multiplier <= 0 {
		multiplier = 1.0
	}
	return Award{
		Kind:       u.Kind(),
		UnitID:     u.UnitID(),
		Pillar:     u.UnitPillar(),
		BaseXP:     base,
		Multiplier: multiplier,
		XP:         int(math.Round(float64(base) * multiplier)),
	}, nil
}

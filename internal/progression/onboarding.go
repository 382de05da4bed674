package progression

import (
	"math"

	"github.com/MantraGGR/name---level-up-irl-app/internal/apperr"
	"github.com/MantraGGR/name---level-up-irl-app/internal/models"
)

// Onboarding constants. The values are product-tuned and kept as-is for
// compatibility with existing profiles.
const (
	BaseXPPerPoint       = 15
	HonestyBonusLow      = 25 // score <= 2
	HonestyBonusModerate = 15 // score == 3
	ChallengeBoostFactor = 10
	BalanceBonus         = 50
	BalanceMaxSpread     = 2

	HighSupportThreshold     = 15
	ModerateSupportThreshold = 8
)

// MentalHealthScores are the questionnaire severities. Nil means "not answered"
// and counts as 0.
type MentalHealthScores struct {
	ADHD       *int `json:"adhd_score"`
	Anxiety    *int `json:"anxiety_score"`
	Depression *int `json:"depression_score"`
}

func (m MentalHealthScores) Total() int {
	total := 0
	for _, v := range []*int{m.ADHD, m.Anxiety, m.Depression} {
		if v != nil {
			total += *v
		}
	}
	return total
}

func (m MentalHealthScores) validate() error {
	for name, v := range map[string]*int{"adhd": m.ADHD, "anxiety": m.Anxiety, "depression": m.Depression} {
		if v != nil && *v < 0 {
			return apperr.Validation("%s score must be non-negative, got %d", name, *v)
		}
	}
	return nil
}

type PillarSeed struct {
	Score          int `json:"score"`
	Base           int `json:"base"`
	HonestyBonus   int `json:"honesty_bonus"`
	ChallengeBoost int `json:"challenge_boost"`
	BalanceBonus   int `json:"balance_bonus"`
	TotalXP        int `json:"total_xp"`
	Level          int `json:"level"`
}

type OnboardingResult struct {
	Pillars             map[models.Pillar]PillarSeed `json:"pillars"`
	AverageScore        float64                      `json:"average_score"`
	BalanceBonusApplied bool                         `json:"balance_bonus_applied"`
	MentalHealthTotal   int                          `json:"mental_health_total"`
	XPMultiplier        float64                      `json:"xp_multiplier"`
	RecommendedTaskSize string                       `json:"recommended_task_size"`
}

// Totals returns the seeded XP per supplied pillar.
func (r OnboardingResult) Totals() map[models.Pillar]int {
	out := make(map[models.Pillar]int, len(r.Pillars))
	for p, s := range r.Pillars {
		out[p] = s.TotalXP
	}
	return out
}

// SupportLevel maps the summed mental-health score to the global reward
// multiplier and the recommended task size.
func SupportLevel(total int) (float64, string) {
	switch {
	case total >= HighSupportThreshold:
		return 1.5, models.TaskSizeSmall
	case total >= ModerateSupportThreshold:
		return 1.25, models.TaskSizeMedium
	default:
		return 1.0, models.TaskSizeLarge
	}
}

func honestyBonus(score int) int {
	switch {
	case score <= 2:
		return HonestyBonusLow
	case score <= 3:
		return HonestyBonusModerate
	default:
		return 0
	}
}

// ScoreOnboarding converts a self-assessment into seeded XP per pillar and the
// global reward multiplier. Low self-ratings earn an honesty bonus, pillars
// below the mean earn a catch-up boost and a narrow spread earns a flat
// balance bonus on every supplied pillar.
func ScoreOnboarding(scores map[models.Pillar]int, mental MentalHealthScores) (OnboardingResult, error) {
	if err := mental.validate(); err != nil {
		return OnboardingResult{}, err
	}
	for p, s := range scores {
		if !p.IsValid() {
			return OnboardingResult{}, apperr.Validation("unknown pillar %q", p)
		}
		if s < 0 {
			return OnboardingResult{}, apperr.Validation("%s score must be non-negative, got %d", p, s)
		}
	}

	res := OnboardingResult{
		Pillars:           make(map[models.Pillar]PillarSeed, len(scores)),
		MentalHealthTotal: mental.Total(),
	}
	res.XPMultiplier, res.RecommendedTaskSize = SupportLevel(res.MentalHealthTotal)
	if len(scores) == 0 {
		return res, nil
	}

	sum, lo, hi := 0, math.MaxInt, math.MinInt
	for _, s := range scores {
		sum += s
		lo = min(lo, s)
		hi = max(hi, s)
	}
	avg := float64(sum) / float64(len(scores))
	res.AverageScore = avg
	res.BalanceBonusApplied = hi-lo <= BalanceMaxSpread

	for p, s := range scores {
		seed := PillarSeed{
			Score:        s,
			Base:         s * BaseXPPerPoint,
			HonestyBonus: honestyBonus(s),
		}
		if float64(s) < avg {
			seed.ChallengeBoost = int(math.Round((avg - float64(s)) * ChallengeBoostFactor))
		}
		if res.BalanceBonusApplied {
			seed.BalanceBonus = BalanceBonus
		}
		seed.TotalXP = seed.Base + seed.HonestyBonus + seed.ChallengeBoost + seed.BalanceBonus
		seed.Level = LevelForXP(seed.TotalXP)
		res.Pillars[p] = seed
	}
	return res, nil
}

// RecommendationThreshold is the per-scale score above which coping
// recommendations are attached to an assessment.
const RecommendationThreshold = 15

// Recommendations returns the coping suggestions for an assessment.
func Recommendations(m MentalHealthScores) []string {
	out := []string{}
	high := func(v *int) bool { return v != nil && *v > RecommendationThreshold }
	if high(m.ADHD) {
		out = append(out, "Consider breaking tasks into smaller, manageable chunks", "Use timers and reminders for task management")
	}
	if high(m.Anxiety) {
		out = append(out, "Practice mindfulness and breathing exercises", "Schedule regular breaks throughout the day")
	}
	if high(m.Depression) {
		out = append(out, "Set small, achievable daily goals", "Maintain a consistent sleep schedule")
	}
	return out
}

package progression

import (
	"math"

	"github.com/MantraGGR/name---level-up-irl-app/internal/apperr"
	"github.com/MantraGGR/name---level-up-irl-app/internal/models"
)

// XPPerLevel is the flat XP cost of one pillar level.
const XPPerLevel = 100

// LevelForXP derives a pillar level from its total XP: floor(total/100)+1,
// never below 1.
func LevelForXP(totalXP int) int {
	if totalXP <= 0 {
		return 1
	}
	return totalXP/XPPerLevel + 1
}

// LedgerUpdate is the outcome of applying XP to one pillar.
type LedgerUpdate struct {
	Pillar        models.Pillar `json:"pillar"`
	Delta         int           `json:"xp_added"`
	NewTotal      int           `json:"new_total_xp"`
	PreviousLevel int           `json:"previous_level"`
	NewLevel      int           `json:"new_level"`
	LeveledUp     bool          `json:"leveled_up"`
}

// NewLedger returns a ledger with every pillar at level 1 and 0 XP.
func NewLedger() models.Ledger {
	l := make(models.Ledger, len(models.Pillars))
	for _, p := range models.Pillars {
		l[p] = models.PillarStats{Level: 1, TotalXP: 0}
	}
	return l
}

// CheckDelta validates the inputs of an XP application.
func CheckDelta(pillar models.Pillar, delta int) error {
	if !pillar.IsValid() {
		return apperr.Validation("unknown pillar %q", pillar)
	}
	if delta < 0 {
		return apperr.Validation("xp delta must be non-negative, got %d", delta)
	}
	return nil
}

// UpdateFor builds the LedgerUpdate for a pillar whose total became newTotal
// after adding delta. Stores that increment atomically use it to describe
// their result without a second read.
func UpdateFor(pillar models.Pillar, delta, newTotal int) LedgerUpdate {
	prev := LevelForXP(newTotal - delta)
	next := LevelForXP(newTotal)
	return LedgerUpdate{
		Pillar:        pillar,
		Delta:         delta,
		NewTotal:      newTotal,
		PreviousLevel: prev,
		NewLevel:      next,
		LeveledUp:     next > prev,
	}
}

// ApplyXP adds delta to the pillar entry of l in place. Callers own the
// serialisation of concurrent writers to the same ledger.
func ApplyXP(l models.Ledger, pillar models.Pillar, delta int) (LedgerUpdate, error) {
	if err := CheckDelta(pillar, delta); err != nil {
		return LedgerUpdate{}, err
	}
	cur := l[pillar]
	total := cur.TotalXP + delta
	l[pillar] = models.PillarStats{Level: LevelForXP(total), TotalXP: total}
	return UpdateFor(pillar, delta, total), nil
}

// Seed overwrites the totals for the given pillars and derives their levels.
// Pillars absent from totals keep their current entry.
func Seed(l models.Ledger, totals map[models.Pillar]int) error {
	for p, total := range totals {
		if err := CheckDelta(p, total); err != nil {
			return err
		}
	}
	for p, total := range totals {
		l[p] = models.PillarStats{Level: LevelForXP(total), TotalXP: total}
	}
	return nil
}

// Summary aggregates a ledger for stats displays.
type Summary struct {
	TotalXP       int           `json:"total_xp"`
	AverageLevel  int           `json:"average_level"`
	HighestLevel  int           `json:"highest_level"`
	StrongestArea models.Pillar `json:"strongest_pillar"`
}

// Summarize sums XP, rounds the mean level half to even and picks the highest-level pillar,
// breaking ties by canonical pillar order.
func Summarize(l models.Ledger) Summary {
	var s Summary
	levels := 0
	for _, p := range models.Pillars {
		st, ok := l[p]
		if !ok {
			st = models.PillarStats{Level: 1}
		}
		s.TotalXP += st.TotalXP
		levels += st.Level
		if st.Level > s.HighestLevel {
			s.HighestLevel = st.Level
			s.StrongestArea = p
		}
	}
	// ties go to the even level
	s.AverageLevel = int(math.RoundToEven(float64(levels) / float64(len(models.Pillars))))
	return s
}

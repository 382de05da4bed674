// Package milestones runs ordered milestone sequences (locked, unlocked,
// completed) and builds the sequences for roadmap and ultimate goals.
package milestones

import (
	"time"

	"github.com/MantraGGR/name---level-up-irl-app/internal/apperr"
	"github.com/MantraGGR/name---level-up-irl-app/internal/models"
)

// Step is a milestone before it joins a sequence.
type Step struct {
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
	XPReward    int    `yaml:"xp" json:"xp_reward"`
}

// NewSequence lays steps out in order with only the first unlocked. id names
// the milestone at position i.
func NewSequence(steps []Step, id func(i int) string) models.MilestoneSequence {
	ms := make([]models.Milestone, len(steps))
	for i, s := range steps {
		ms[i] = models.Milestone{
			ID:          id(i),
			Title:       s.Title,
			Description: s.Description,
			Order:       i,
			XPReward:    s.XPReward,
			Unlocked:    i == 0,
		}
	}
	return models.MilestoneSequence{Milestones: ms}
}

// Outcome describes a successful completion.
type Outcome struct {
	Index             int               `json:"index"`
	Milestone         models.Milestone  `json:"milestone"`
	Next              *models.Milestone `json:"next_milestone,omitempty"`
	SequenceCompleted bool              `json:"goal_completed"`
	ProgressPercent   float64           `json:"progress_percent"`
}

// Check returns the index of milestoneID if it can be completed now.
func Check(seq *models.MilestoneSequence, milestoneID string) (int, error) {
	idx := -1
	for i := range seq.Milestones {
		if seq.Milestones[i].ID == milestoneID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, apperr.NotFound("milestone %s", milestoneID)
	}
	m := seq.Milestones[idx]
	switch {
	case m.Completed:
		return 0, apperr.InvalidState("milestone %s is already completed", milestoneID)
	case idx > 0 && !seq.Milestones[idx-1].Completed:
		return 0, apperr.InvalidState("milestone %s is locked: complete %q first", milestoneID, seq.Milestones[idx-1].Title)
	case idx > 0 && !m.Unlocked:
		return 0, apperr.InvalidState("milestone %s is locked", milestoneID)
	}
	return idx, nil
}

// Complete marks milestoneID completed, credits xpEarned to the sequence,
// advances the current index and unlocks the successor. Completing the last
// milestone completes the sequence.
func Complete(seq *models.MilestoneSequence, milestoneID string, xpEarned int, now time.Time) (Outcome, error) {
	idx, err := Check(seq, milestoneID)
	if err != nil {
		return Outcome{}, err
	}
	at := now
	m := &seq.Milestones[idx]
	m.Unlocked = true
	m.Completed = true
	m.CompletedAt = &at

	seq.TotalXP += xpEarned
	seq.CurrentIndex = idx + 1

	out := Outcome{Index: idx, Milestone: *m}
	if idx+1 < len(seq.Milestones) {
		next := &seq.Milestones[idx+1]
		next.Unlocked = true
		n := *next
		out.Next = &n
	} else {
		seq.Completed = true
		seq.CompletedAt = &at
		out.SequenceCompleted = true
	}
	out.ProgressPercent = seq.ProgressPercent()
	return out, nil
}

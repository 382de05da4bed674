package models

import (
	"strings"

	"github.com/MantraGGR/name---level-up-irl-app/internal/apperr"
)

type Pillar string

const (
	PillarHealth         Pillar = "health"
	PillarCareer         Pillar = "career"
	PillarRelationships  Pillar = "relationships"
	PillarPersonalGrowth Pillar = "personal_growth"
	PillarFinance        Pillar = "finance"
	PillarRecreation     Pillar = "recreation"
)

// Pillars lists every pillar in canonical order.
var Pillars = []Pillar{
	PillarHealth,
	PillarCareer,
	PillarRelationships,
	PillarPersonalGrowth,
	PillarFinance,
	PillarRecreation,
}

func (p Pillar) IsValid() bool {
	switch p {
	case PillarHealth, PillarCareer, PillarRelationships, PillarPersonalGrowth, PillarFinance, PillarRecreation:
		return true
	default:
		return false
	}
}

// DisplayName renders "personal_growth" as "Personal Growth".
func (p Pillar) DisplayName() string {
	words := strings.Split(string(p), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func ParsePillar(s string) (Pillar, error) {
	p := Pillar(strings.ToLower(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", apperr.Validation("unknown pillar %q", s)
	}
	return p, nil
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	default:
		return false
	}
}

// ParsePriority defaults an empty value to medium.
func ParsePriority(s string) (Priority, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return PriorityMedium, nil
	}
	p := Priority(s)
	if !p.IsValid() {
		return "", apperr.Validation("unknown priority %q", s)
	}
	return p, nil
}

type Difficulty string

const (
	DifficultyEasy      Difficulty = "easy"
	DifficultyMedium    Difficulty = "medium"
	DifficultyHard      Difficulty = "hard"
	DifficultyLegendary Difficulty = "legendary"
)

func (d Difficulty) IsValid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyLegendary:
		return true
	default:
		return false
	}
}

// Task sizes recommended by onboarding.
const (
	TaskSizeSmall  = "small"
	TaskSizeMedium = "medium"
	TaskSizeLarge  = "large"
)

package route

import (
	"fmt"
	"strings"
)

// Difficulty grades a route.
type Difficulty string

const (
	DifficultyEasy     Difficulty = "easy"
	DifficultyModerate Difficulty = "moderate"
	DifficultyHard     Difficulty = "hard"
	DifficultyUnknown  Difficulty = ""
)

// difficultyAliases maps labels found in source data to a Difficulty.
var difficultyAliases = map[string]Difficulty{
	"easy":      DifficultyEasy,
	"fácil":     DifficultyEasy,
	"facil":     DifficultyEasy,
	"facile":    DifficultyEasy,
	"erraza":    DifficultyEasy,
	"moderate":  DifficultyModerate,
	"moderada":  DifficultyModerate,
	"modérée":   DifficultyModerate,
	"moderee":   DifficultyModerate,
	"ertaina":   DifficultyModerate,
	"hard":      DifficultyHard,
	"difícil":   DifficultyHard,
	"dificil":   DifficultyHard,
	"difficile": DifficultyHard,
	"zaila":     DifficultyHard,
}

// IsValid returns true for a known, non-empty difficulty.
func (d Difficulty) IsValid() bool {
	switch d {
	case DifficultyEasy, DifficultyModerate, DifficultyHard:
		return true
	}
	return false
}

// String returns the canonical label.
func (d Difficulty) String() string { return string(d) }

// ParseDifficulty accepts canonical names and the localized labels used by route sources.
func ParseDifficulty(s string) (Difficulty, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if d, ok := difficultyAliases[key]; ok {
		return d, nil
	}
	return DifficultyUnknown, fmt.Errorf("invalid difficulty: %q", s)
}

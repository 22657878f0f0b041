package model

import "strings"

type Difficulty = string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

const MaxAttempts = 5

// DifficultyFromSize maps a snippet length in seconds to a display difficulty.
func DifficultyFromSize(size int) Difficulty {
	switch size {
	case 3:
		return DifficultyHard
	case 5:
		return DifficultyMedium
	case 10:
		return DifficultyEasy
	}
	return DifficultyMedium
}

func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

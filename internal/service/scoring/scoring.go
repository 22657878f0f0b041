package scoring

import (
	"math"

	"github.com/humanbelnik/soundbyte/internal/model"
)

const (
	BasePoints = 1000

	DefaultSnippetSeconds = 5

	// One bonus point is lost per this many milliseconds of delay.
	msPerBonusPoint = 20
)

type Outcome struct {
	model.Breakdown
	// Delay after the snippet finished playing, clamped at zero.
	TimeMs int
}

// Score converts a guess outcome into points. elapsedMs is measured from the
// start of the round, so the time spent playing the snippet is not penalised.
func Score(correct bool, elapsedMs float64, snippetSeconds int) Outcome {
	if snippetSeconds <= 0 {
		snippetSeconds = DefaultSnippetSeconds
	}
	snippetMs := float64(snippetSeconds * 1000)
	timeMs := max(0, roundHalfUp(elapsedMs-snippetMs))

	if !correct {
		return Outcome{TimeMs: timeMs}
	}

	timeBonus := max(0, roundHalfUp((snippetMs-float64(timeMs))/msPerBonusPoint))
	return Outcome{
		Breakdown: model.Breakdown{
			Base:      BasePoints,
			TimeBonus: timeBonus,
			Total:     BasePoints + timeBonus,
		},
		TimeMs: timeMs,
	}
}

// NextStreak grows on a correct guess and resets only when the round
// concludes without one.
func NextStreak(streak int, correct, concluded bool) int {
	switch {
	case correct:
		return streak + 1
	case concluded:
		return 0
	}
	return streak
}

func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

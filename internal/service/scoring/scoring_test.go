package scoring

import (
	"testing"

	"github.com/humanbelnik/soundbyte/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	testCases := []struct {
		name           string
		correct        bool
		elapsedMs      float64
		snippetSeconds int
		want           Outcome
	}{
		{
			name:    "correct during playback gets the full bonus",
			correct: true, elapsedMs: 900, snippetSeconds: 5,
			want: Outcome{Breakdown: model.Breakdown{Base: 1000, TimeBonus: 250, Total: 1250}, TimeMs: 0},
		},
		{
			name:    "bonus decays after playback",
			correct: true, elapsedMs: 7000, snippetSeconds: 5,
			want: Outcome{Breakdown: model.Breakdown{Base: 1000, TimeBonus: 150, Total: 1150}, TimeMs: 2000},
		},
		{
			name:    "bonus floors at zero",
			correct: true, elapsedMs: 60000, snippetSeconds: 5,
			want: Outcome{Breakdown: model.Breakdown{Base: 1000, TimeBonus: 0, Total: 1000}, TimeMs: 55000},
		},
		{
			name:    "wrong guess scores nothing",
			correct: false, elapsedMs: 900, snippetSeconds: 5,
			want: Outcome{TimeMs: 0},
		},
		{
			name:    "wrong guess still reports delay",
			correct: false, elapsedMs: 6500, snippetSeconds: 5,
			want: Outcome{TimeMs: 1500},
		},
		{
			name:    "missing snippet size defaults to five seconds",
			correct: true, elapsedMs: 0, snippetSeconds: 0,
			want: Outcome{Breakdown: model.Breakdown{Base: 1000, TimeBonus: 250, Total: 1250}, TimeMs: 0},
		},
		{
			name:    "long snippet",
			correct: true, elapsedMs: 10010, snippetSeconds: 10,
			want: Outcome{Breakdown: model.Breakdown{Base: 1000, TimeBonus: 500, Total: 1500}, TimeMs: 10},
		},
		{
			name:    "rounds half up",
			correct: true, elapsedMs: 5010, snippetSeconds: 5,
			want: Outcome{Breakdown: model.Breakdown{Base: 1000, TimeBonus: 250, Total: 1250}, TimeMs: 10},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Score(tc.correct, tc.elapsedMs, tc.snippetSeconds))
		})
	}
}

func TestScore_TotalIsBasePlusBonus(t *testing.T) {
	for elapsed := 0.0; elapsed < 20000; elapsed += 333 {
		out := Score(true, elapsed, 5)
		assert.Equal(t, out.Base+out.TimeBonus, out.Total)
		assert.GreaterOrEqual(t, out.TimeBonus, 0)
		assert.LessOrEqual(t, out.TimeBonus, 250)
	}
}

func TestNextStreak(t *testing.T) {
	assert.Equal(t, 3, NextStreak(2, true, true))
	assert.Equal(t, 2, NextStreak(2, false, false), "wrong but not final keeps streak")
	assert.Equal(t, 0, NextStreak(2, false, true), "exhausted round resets streak")
	assert.Equal(t, 1, NextStreak(0, true, false))
}

package model

import "time"

type SoloStatus = string

const (
	SoloActive    SoloStatus = "active"
	SoloCompleted SoloStatus = "completed"
)

const (
	MinSoloRounds     = 1
	MaxSoloRounds     = 20
	DefaultSoloRounds = 10
)

type SoloAnswer struct {
	SnippetID     string     `json:"snippetId"`
	Title         string     `json:"title"`
	Artist        string     `json:"artist"`
	AudioURL      string     `json:"audioUrl"`
	StartedAt     *time.Time `json:"startedAt,omitempty"`
	AnsweredAt    *time.Time `json:"answeredAt,omitempty"`
	Guesses       []string   `json:"guesses"`
	Attempts      int        `json:"attempts"`
	Correct       bool       `json:"correct"`
	TitleHit      bool       `json:"titleHit"`
	ArtistHit     bool       `json:"artistHit"`
	TimeMs        int        `json:"timeMs"`
	PointsAwarded int        `json:"pointsAwarded"`
}

func (a *SoloAnswer) Concluded() bool {
	return a.AnsweredAt != nil
}

func (a *SoloAnswer) Question() QuestionSnippet {
	return QuestionSnippet{
		SnippetID: a.SnippetID,
		AudioURL:  a.AudioURL,
		Title:     a.Title,
		Artist:    a.Artist,
	}
}

// SoloSession is one single-player game. Seq grows on every mutation.
type SoloSession struct {
	ID             string       `json:"id"`
	UserID         string       `json:"userId"`
	Difficulty     Difficulty   `json:"difficulty"`
	SnippetSize    int          `json:"snippetSize"`
	Rounds         int          `json:"rounds"`
	CurrentRound   int          `json:"currentRound"`
	Score          int          `json:"score"`
	Streak         int          `json:"streak"`
	TimeBonusTotal int          `json:"timeBonusTotal"`
	FastestTimeMs  *int         `json:"fastestTimeMs,omitempty"`
	Status         SoloStatus   `json:"status"`
	Seq            int          `json:"seq"`
	Answers        []SoloAnswer `json:"answers"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
	EndedAt        *time.Time   `json:"endedAt,omitempty"`
}

func (s *SoloSession) CorrectCount() int {
	n := 0
	for _, a := range s.Answers {
		if a.Concluded() && a.Correct {
			n++
		}
	}
	return n
}

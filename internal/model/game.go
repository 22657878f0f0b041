package model

type ScoreEntry struct {
	Score        int    `json:"score"`
	CorrectCount int    `json:"correct"`
	Streak       int    `json:"streak"`
	Finished     bool   `json:"finished"`
	Name         string `json:"name,omitempty"`
}

// ScoreMap is keyed by user id.
type ScoreMap map[string]ScoreEntry

func (m ScoreMap) AllFinished() bool {
	if len(m) == 0 {
		return false
	}
	for _, e := range m {
		if !e.Finished {
			return false
		}
	}
	return true
}

type Breakdown struct {
	Base      int `json:"base"`
	TimeBonus int `json:"timeBonus"`
	Total     int `json:"total"`
}

type RoundResult struct {
	RoundIndex int    `json:"roundIndex"`
	SnippetID  string `json:"snippetId"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	Correct    bool   `json:"correct"`
	TimeMs     int    `json:"timeMs"`
}

type LeaderboardEntry struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Score  int    `json:"score"`
}

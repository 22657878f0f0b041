package model

type Snippet struct {
	ID         string
	Title      string
	Artist     string
	Genre      string
	Difficulty Difficulty
	AudioURL   string
	Size       int
}

type QuestionSnippet struct {
	SnippetID string `json:"snippetId"`
	AudioURL  string `json:"audioUrl"`
	Title     string `json:"title"`
	Artist    string `json:"artist"`
}

// QuestionSet is fixed for a room's game once generated.
type QuestionSet struct {
	Rounds     int               `json:"rounds"`
	Difficulty Difficulty        `json:"difficulty"`
	Snippets   []QuestionSnippet `json:"snippets"`
}

func (q *QuestionSet) Len() int {
	if q == nil {
		return 0
	}
	return len(q.Snippets)
}

func (q *QuestionSet) IsLastRound(roundIndex int) bool {
	return roundIndex >= q.Len()-1
}

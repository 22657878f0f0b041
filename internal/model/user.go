package model

type User struct {
	ID                   string
	Username             string
	Avatar               string
	HighestScore         int
	TotalSnippetsGuessed int
	TotalGamesPlayed     int
}

// GameOutcome is what a finished game contributes to a user's stats.
type GameOutcome struct {
	UserID       string
	Score        int
	CorrectCount int
}

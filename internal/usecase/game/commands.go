package usecase_game

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/humanbelnik/soundbyte/internal/model"
)

type CreateRoomRequest struct {
	HostID   string               `json:"hostId" validate:"required"`
	Mode     string               `json:"mode"`
	Settings *model.SettingsPatch `json:"settings"`
}

type JoinRoomRequest struct {
	Code     string `json:"code" validate:"required"`
	UserID   string `json:"userId" validate:"required"`
	Passcode string `json:"passcode"`
}

// LeaveRoomRequest falls back to the connection's room when roomId is empty.
type LeaveRoomRequest struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId" validate:"required"`
}

type RequestRoomRequest struct {
	Code string `json:"code" validate:"required"`
}

type UpdateSettingsRequest struct {
	Code   string               `json:"code" validate:"required"`
	UserID string               `json:"userId" validate:"required"`
	Patch  *model.SettingsPatch `json:"patch" validate:"required"`
}

type SetModeRequest struct {
	Code   string `json:"code" validate:"required"`
	UserID string `json:"userId" validate:"required"`
	Mode   string `json:"mode" validate:"required"`
}

type StartGameRequest struct {
	Code   string `json:"code" validate:"required"`
	HostID string `json:"hostId" validate:"required"`
}

// AnswerRequest may omit code and userId on a tracked connection. A missing
// or out of range roundIndex is derived from the user's concluded rounds.
type AnswerRequest struct {
	Code        string  `json:"code"`
	RoomCode    string  `json:"roomCode"`
	UserID      string  `json:"userId"`
	RoundIndex  *int    `json:"roundIndex"`
	Guess       string  `json:"guess" validate:"required"`
	SnippetSize int     `json:"snippetSize" validate:"gte=0"`
	ElapsedMs   float64 `json:"elapsedMs" validate:"gte=0"`
}

type EndGameRequest struct {
	RoomCode string `json:"roomCode"`
	Code     string `json:"code"`
	UserID   string `json:"userId"`
}

type ResumeRequest struct {
	Code   string `json:"code" validate:"required"`
	UserID string `json:"userId" validate:"required"`
}

type GuessRequest struct {
	Code  string `json:"code" validate:"required"`
	Guess string `json:"guess" validate:"required"`
}

type RoomResponse struct {
	Room *model.LobbySummary `json:"room,omitempty"`
}

type LeaveResponse struct {
	Deleted bool `json:"deleted"`
}

type AnswerResponse struct {
	RoundIndex   int              `json:"roundIndex"`
	Correct      bool             `json:"correct"`
	Concluded    bool             `json:"concluded"`
	Breakdown    *model.Breakdown `json:"breakdown,omitempty"`
	Score        int              `json:"score"`
	Streak       int              `json:"streak"`
	AttemptsLeft int              `json:"attemptsLeft"`
	ForceAdvance bool             `json:"forceAdvance"`
}

type EndGameResponse struct {
	Ended bool `json:"ended"`
}

type Snapshot struct {
	Questions      *model.QuestionSet  `json:"questions"`
	Scores         model.ScoreMap      `json:"scores"`
	Me             model.ScoreEntry    `json:"me"`
	AttemptsLeft   int                 `json:"attemptsLeft"`
	Results        []model.RoundResult `json:"results"`
	Status         model.RoomStatus    `json:"status"`
	NextRoundIndex int                 `json:"nextRoundIndex"`
	HostID         string              `json:"hostId"`
}

type ResumeResponse struct {
	Snapshot *Snapshot `json:"snapshot,omitempty"`
}

type ScoreUpdate struct {
	UserID       string          `json:"userId"`
	RoundIndex   int             `json:"roundIndex"`
	Correct      bool            `json:"correct"`
	Concluded    bool            `json:"concluded"`
	Score        int             `json:"score"`
	Streak       int             `json:"streak"`
	AttemptsLeft int             `json:"attemptsLeft"`
	Breakdown    model.Breakdown `json:"breakdown"`
}

type LeaderboardUpdate struct {
	RoomCode    string                   `json:"roomCode"`
	Leaderboard []model.LeaderboardEntry `json:"leaderboard"`
}

type RoundResultEvent struct {
	UserID string `json:"userId"`
	model.RoundResult
}

type GameEnd struct {
	RoomCode    string                   `json:"roomCode"`
	Leaderboard []model.LeaderboardEntry `json:"leaderboard"`
}

type RoomDeleted struct {
	Code string `json:"code"`
}

type NewGuess struct {
	PlayerID string `json:"playerId"`
	Guess    string `json:"guess"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (c *Coordinator) check(req any) error {
	err := c.validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		missing := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			if fe.Tag() != "required" {
				return model.NewError(model.ErrValidation, fmt.Sprintf("invalid %s", fe.Field()))
			}
			missing = append(missing, fe.Field())
		}
		return model.NewError(model.ErrValidation, "missing "+strings.Join(missing, "/"))
	}
	return model.NewError(model.ErrValidation, err.Error())
}

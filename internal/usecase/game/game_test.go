package usecase_game

import (
	"context"
	"sync"
	"testing"

	infra_memory_catalog "github.com/humanbelnik/soundbyte/internal/infra/memory/catalog"
	infra_memory_kv "github.com/humanbelnik/soundbyte/internal/infra/memory/kv"
	infra_memory_room "github.com/humanbelnik/soundbyte/internal/infra/memory/room"
	infra_memory_user "github.com/humanbelnik/soundbyte/internal/infra/memory/user"
	"github.com/humanbelnik/soundbyte/internal/model"
	storage_session "github.com/humanbelnik/soundbyte/internal/storage/session"
	usecase_questions "github.com/humanbelnik/soundbyte/internal/usecase/questions"
	usecase_room "github.com/humanbelnik/soundbyte/internal/usecase/room"
	"github.com/ozontech/allure-go/pkg/framework/provider"
	"github.com/ozontech/allure-go/pkg/framework/suite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sent struct {
	code    string
	event   string
	payload any
}

type recorder struct {
	mu     sync.Mutex
	events []sent
	subs   map[string]map[string]bool
}

func newRecorder() *recorder {
	return &recorder{subs: make(map[string]map[string]bool)}
}

func (r *recorder) Subscribe(code, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.subs[code] == nil {
		r.subs[code] = make(map[string]bool)
	}
	r.subs[code][connID] = true
}

func (r *recorder) Unsubscribe(code, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subs[code], connID)
}

func (r *recorder) Broadcast(code, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, sent{code: code, event: event, payload: payload})
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.event)
	}
	return out
}

func (r *recorder) last(event string) (sent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].event == event {
			return r.events[i], true
		}
	}
	return sent{}, false
}

func (r *recorder) count(event string) int {
	n := 0
	for _, name := range r.names() {
		if name == event {
			n++
		}
	}
	return n
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

type CoordinatorSuite struct {
	suite.Suite
}

type resources struct {
	coordinator *Coordinator
	rooms       *usecase_room.Usecase
	store       *storage_session.Store
	users       *infra_memory_user.Directory
	bus         *recorder
	ctx         context.Context
}

func initResources(t provider.T, rounds int) *resources {
	users := infra_memory_user.New(
		model.User{ID: "host", Username: "alice"},
		model.User{ID: "guest", Username: "bob"},
	)
	catalog := infra_memory_catalog.New(
		model.Snippet{ID: "s1", Title: "Bohemian Rhapsody", Artist: "Queen", Size: 5},
		model.Snippet{ID: "s2", Title: "Stronger", Artist: "Kanye West", Size: 5},
		model.Snippet{ID: "s3", Title: "Halo", Artist: "Beyonce", Size: 5},
	)
	rooms := usecase_room.New(infra_memory_room.New(), users)
	store := storage_session.New(infra_memory_kv.New())
	bus := newRecorder()

	return &resources{
		coordinator: New(rooms, usecase_questions.New(catalog), store, users, bus, WithRounds(rounds)),
		rooms:       rooms,
		store:       store,
		users:       users,
		bus:         bus,
		ctx:         context.Background(),
	}
}

// startedRoom creates a room with host and guest and starts the game.
func (r *resources) startedRoom(t provider.T) (string, *model.QuestionSet) {
	created, err := r.coordinator.CreateRoom(r.ctx, "conn-host", CreateRoomRequest{HostID: "host"})
	require.NoError(t, err)
	code := created.Room.Code

	_, err = r.coordinator.JoinRoom(r.ctx, "conn-guest", JoinRoomRequest{Code: code, UserID: "guest"})
	require.NoError(t, err)

	_, err = r.coordinator.StartGame(r.ctx, "conn-host", StartGameRequest{Code: code, HostID: "host"})
	require.NoError(t, err)

	questions := r.store.LoadQuestions(r.ctx, code)
	require.NotNil(t, questions)
	r.bus.reset()
	return code, questions
}

func intPtr(v int) *int { return &v }

func (s *CoordinatorSuite) TestLobbyFlow(t provider.T) {
	t.Parallel()
	r := initResources(t, 2)

	created, err := r.coordinator.CreateRoom(r.ctx, "conn-host", CreateRoomRequest{
		HostID:   "host",
		Mode:     "Classic",
		Settings: &model.SettingsPatch{MaxPlayers: intPtr(2)},
	})
	require.NoError(t, err)
	require.NotNil(t, created.Room)
	assert.Equal(t, "alice", created.Room.Host.Username)
	assert.Equal(t, 2, created.Room.MaxPlayers)

	code := created.Room.Code
	joined, err := r.coordinator.JoinRoom(r.ctx, "conn-guest", JoinRoomRequest{Code: code, UserID: "guest"})
	require.NoError(t, err)
	assert.Equal(t, 2, joined.Room.PlayerCount)

	rejoined, err := r.coordinator.JoinRoom(r.ctx, "conn-guest-2", JoinRoomRequest{Code: code, UserID: "guest"})
	require.NoError(t, err)
	assert.Equal(t, 2, rejoined.Room.PlayerCount)
	assert.Equal(t, "conn-guest-2", rejoined.Room.Players[1].ConnID)

	_, err = r.coordinator.JoinRoom(r.ctx, "conn-x", JoinRoomRequest{Code: code, UserID: "stranger"})
	assert.ErrorIs(t, err, model.ErrRoomFull)

	_, err = r.coordinator.SetMode(r.ctx, "conn-guest", SetModeRequest{Code: code, UserID: "guest", Mode: "Lyrics"})
	assert.ErrorIs(t, err, model.ErrForbidden)

	moded, err := r.coordinator.SetMode(r.ctx, "conn-host", SetModeRequest{Code: code, UserID: "host", Mode: "Lyrics"})
	require.NoError(t, err)
	assert.Equal(t, "Lyrics", moded.Room.Mode)

	left, err := r.coordinator.LeaveRoom(r.ctx, "conn-host", LeaveRoomRequest{UserID: "host"})
	require.NoError(t, err)
	assert.False(t, left.Deleted)

	requested, err := r.coordinator.RequestRoom(r.ctx, "conn-guest-2", RequestRoomRequest{Code: code})
	require.NoError(t, err)
	assert.Equal(t, "guest", requested.Room.Host.UserID)

	left, err = r.coordinator.LeaveRoom(r.ctx, "conn-guest-2", LeaveRoomRequest{RoomID: code, UserID: "guest"})
	require.NoError(t, err)
	assert.True(t, left.Deleted)

	deleted, ok := r.bus.last(EventRoomDeleted)
	require.True(t, ok)
	assert.Equal(t, RoomDeleted{Code: code}, deleted.payload)
}

func (s *CoordinatorSuite) TestValidation(t provider.T) {
	t.Parallel()
	r := initResources(t, 2)

	_, err := r.coordinator.JoinRoom(r.ctx, "conn", JoinRoomRequest{UserID: "guest"})
	require.ErrorIs(t, err, model.ErrValidation)
	assert.Equal(t, "missing code", err.Error())

	_, err = r.coordinator.Answer(r.ctx, "conn", AnswerRequest{Guess: "queen"})
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = r.coordinator.UpdateSettings(r.ctx, "conn", UpdateSettingsRequest{Code: "ABC", UserID: "u"})
	require.ErrorIs(t, err, model.ErrValidation)
	assert.Equal(t, "missing patch", err.Error())
}

func (s *CoordinatorSuite) TestStartGameSeedsState(t provider.T) {
	t.Parallel()
	r := initResources(t, 2)

	created, err := r.coordinator.CreateRoom(r.ctx, "conn-host", CreateRoomRequest{HostID: "host"})
	require.NoError(t, err)
	code := created.Room.Code
	_, err = r.coordinator.JoinRoom(r.ctx, "conn-guest", JoinRoomRequest{Code: code, UserID: "guest"})
	require.NoError(t, err)

	_, err = r.coordinator.StartGame(r.ctx, "conn-guest", StartGameRequest{Code: code, HostID: "guest"})
	assert.ErrorIs(t, err, model.ErrNotHost)

	started, err := r.coordinator.StartGame(r.ctx, "conn-host", StartGameRequest{Code: code, HostID: "host"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusInGame, started.Room.Status)

	assert.Equal(t, model.ScoreMap{
		"host":  {Name: "alice"},
		"guest": {Name: "bob"},
	}, r.store.LoadScores(r.ctx, code))

	start, ok := r.bus.last(EventGameStart)
	require.True(t, ok)
	set, ok := start.payload.(*model.QuestionSet)
	require.True(t, ok)
	assert.Equal(t, 2, set.Rounds)
	assert.Len(t, set.Snippets, 2)

	_, err = r.coordinator.StartGame(r.ctx, "conn-host", StartGameRequest{Code: code, HostID: "host"})
	assert.ErrorIs(t, err, model.ErrGameAlreadyStarted)

	_, err = r.coordinator.JoinRoom(r.ctx, "conn-late", JoinRoomRequest{Code: code, UserID: "late"})
	assert.ErrorIs(t, err, model.ErrGameAlreadyStarted)
}

func (s *CoordinatorSuite) TestFastCorrectAnswer(t provider.T) {
	t.Parallel()
	r := initResources(t, 2)
	code, questions := r.startedRoom(t)

	resp, err := r.coordinator.Answer(r.ctx, "conn-host", AnswerRequest{
		RoundIndex:  intPtr(0),
		Guess:       questions.Snippets[0].Title,
		SnippetSize: 5,
		ElapsedMs:   900,
	})
	require.NoError(t, err)
	assert.True(t, resp.Correct)
	assert.True(t, resp.Concluded)
	assert.Equal(t, &model.Breakdown{Base: 1000, TimeBonus: 250, Total: 1250}, resp.Breakdown)
	assert.Equal(t, 1250, resp.Score)
	assert.Equal(t, 1, resp.Streak)
	assert.Equal(t, 4, resp.AttemptsLeft)
	assert.False(t, resp.ForceAdvance)

	assert.Equal(t, []string{EventScoreUpdate, EventLeaderboardUpdate, EventRoundResult}, r.bus.names())

	board, _ := r.bus.last(EventLeaderboardUpdate)
	assert.Equal(t, []model.LeaderboardEntry{
		{UserID: "host", Name: "alice", Score: 1250},
		{UserID: "guest", Name: "bob", Score: 0},
	}, board.payload.(LeaderboardUpdate).Leaderboard)

	results := r.store.LoadResults(r.ctx, code, "host")
	assert.Contains(t, results, 0)
}

func (s *CoordinatorSuite) TestAttemptsAreCapped(t provider.T) {
	t.Parallel()
	r := initResources(t, 2)
	code, _ := r.startedRoom(t)

	var resp AnswerResponse
	var err error
	for i := 1; i <= model.MaxAttempts; i++ {
		resp, err = r.coordinator.Answer(r.ctx, "conn-guest", AnswerRequest{
			Code:       code,
			UserID:     "guest",
			RoundIndex: intPtr(0),
			Guess:      "zzzzzzzzzzzz",
		})
		require.NoError(t, err)
		assert.False(t, resp.Correct)
		assert.Equal(t, model.MaxAttempts-i, resp.AttemptsLeft)
		assert.Equal(t, i == model.MaxAttempts, resp.Concluded)
	}
	assert.Equal(t, 0, resp.Streak)
	assert.True(t, resp.ForceAdvance)

	before := r.store.LoadScores(r.ctx, code)["guest"]
	rejected, err := r.coordinator.Answer(r.ctx, "conn-guest", AnswerRequest{
		Code:       code,
		UserID:     "guest",
		RoundIndex: intPtr(0),
		Guess:      "anything",
	})
	assert.ErrorIs(t, err, model.ErrNoAttemptsLeft)
	assert.True(t, rejected.ForceAdvance)
	assert.Equal(t, before, r.store.LoadScores(r.ctx, code)["guest"])
	assert.Equal(t, model.MaxAttempts, r.store.Attempts(code, 0, "guest"))
}

func (s *CoordinatorSuite) TestStreakSurvivesNonFinalMiss(t provider.T) {
	t.Parallel()
	r := initResources(t, 2)
	_, questions := r.startedRoom(t)

	resp, err := r.coordinator.Answer(r.ctx, "conn-guest", AnswerRequest{RoundIndex: intPtr(0), Guess: questions.Snippets[0].Artist})
	require.NoError(t, err)
	require.True(t, resp.Correct)
	assert.Equal(t, 1, resp.Streak)

	resp, err = r.coordinator.Answer(r.ctx, "conn-guest", AnswerRequest{RoundIndex: intPtr(1), Guess: "zzzzzzzzzzzz"})
	require.NoError(t, err)
	assert.False(t, resp.Concluded)
	assert.Equal(t, 1, resp.Streak)
}

func (s *CoordinatorSuite) TestRoundIndexIsDerived(t provider.T) {
	t.Parallel()
	r := initResources(t, 2)
	_, questions := r.startedRoom(t)

	resp, err := r.coordinator.Answer(r.ctx, "conn-guest", AnswerRequest{Guess: questions.Snippets[0].Title})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.RoundIndex)

	resp, err = r.coordinator.Answer(r.ctx, "conn-guest", AnswerRequest{RoundIndex: intPtr(99), Guess: questions.Snippets[1].Title})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.RoundIndex)
	assert.True(t, resp.Correct)
}

func (s *CoordinatorSuite) TestAutoEndOnceEveryoneFinished(t provider.T) {
	t.Parallel()
	r := initResources(t, 2)
	code, questions := r.startedRoom(t)

	answer := func(conn string, round int) {
		_, err := r.coordinator.Answer(r.ctx, conn, AnswerRequest{RoundIndex: intPtr(round), Guess: questions.Snippets[round].Title, SnippetSize: 5})
		require.NoError(t, err)
	}
	answer("conn-host", 0)
	answer("conn-guest", 0)
	answer("conn-host", 1)
	assert.Zero(t, r.bus.count(EventGameEnd))

	r.bus.reset()
	answer("conn-guest", 1)

	assert.Equal(t, []string{
		EventScoreUpdate,
		EventLeaderboardUpdate,
		EventRoundResult,
		EventGameEnd,
		EventRoomUpdate,
	}, r.bus.names())

	end, _ := r.bus.last(EventGameEnd)
	payload := end.payload.(GameEnd)
	assert.Equal(t, code, payload.RoomCode)
	require.Len(t, payload.Leaderboard, 2)
	assert.GreaterOrEqual(t, payload.Leaderboard[0].Score, payload.Leaderboard[1].Score)

	room, err := r.rooms.Room(r.ctx, code)
	require.NoError(t, err)
	assert.Equal(t, model.StatusEnded, room.Status)

	assert.Nil(t, r.store.LoadQuestions(r.ctx, code))
	assert.Empty(t, r.store.LoadScores(r.ctx, code))

	host, err := r.users.ByID(r.ctx, "host")
	require.NoError(t, err)
	assert.Equal(t, 1, host.TotalGamesPlayed)
	assert.Equal(t, 2, host.TotalSnippetsGuessed)
	assert.GreaterOrEqual(t, payload.Leaderboard[0].Score, 2000)
}

func (s *CoordinatorSuite) TestEndGameAfterAutoEnd(t provider.T) {
	t.Parallel()
	r := initResources(t, 1)

	created, err := r.coordinator.CreateRoom(r.ctx, "conn-host", CreateRoomRequest{HostID: "host"})
	require.NoError(t, err)
	code := created.Room.Code
	_, err = r.coordinator.StartGame(r.ctx, "conn-host", StartGameRequest{Code: code, HostID: "host"})
	require.NoError(t, err)
	questions := r.store.LoadQuestions(r.ctx, code)
	require.NotNil(t, questions)

	_, err = r.coordinator.Answer(r.ctx, "conn-host", AnswerRequest{RoundIndex: intPtr(0), Guess: questions.Snippets[0].Title})
	require.NoError(t, err)
	require.Equal(t, 1, r.bus.count(EventGameEnd))
	final, _ := r.bus.last(EventGameEnd)

	for range 2 {
		_, err = r.coordinator.EndGame(r.ctx, "conn-host", EndGameRequest{})
		assert.ErrorIs(t, err, model.ErrGameNotInProgress)
	}

	assert.Equal(t, 1, r.bus.count(EventGameEnd))
	last, _ := r.bus.last(EventGameEnd)
	assert.Equal(t, final, last)
	require.Len(t, last.payload.(GameEnd).Leaderboard, 1)

	host, err := r.users.ByID(r.ctx, "host")
	require.NoError(t, err)
	assert.Equal(t, 1, host.TotalGamesPlayed)
}

func (s *CoordinatorSuite) TestConcludedRoundIsNotScoredAgain(t provider.T) {
	t.Parallel()
	r := initResources(t, 2)
	code, questions := r.startedRoom(t)

	first, err := r.coordinator.Answer(r.ctx, "conn-guest", AnswerRequest{RoundIndex: intPtr(0), Guess: questions.Snippets[0].Title, SnippetSize: 5})
	require.NoError(t, err)
	require.True(t, first.Concluded)
	r.bus.reset()

	for range 4 {
		again, err := r.coordinator.Answer(r.ctx, "conn-guest", AnswerRequest{RoundIndex: intPtr(0), Guess: questions.Snippets[0].Title, SnippetSize: 5})
		require.NoError(t, err)
		assert.True(t, again.Correct)
		assert.True(t, again.Concluded)
		assert.Equal(t, &model.Breakdown{}, again.Breakdown)
		assert.Equal(t, first.Score, again.Score)
		assert.Equal(t, 1, again.Streak)
		assert.Equal(t, first.AttemptsLeft, again.AttemptsLeft)
	}

	assert.Empty(t, r.bus.names())
	entry := r.store.LoadScores(r.ctx, code)["guest"]
	assert.Equal(t, first.Score, entry.Score)
	assert.Equal(t, 1, entry.Streak)
	assert.Equal(t, 1, entry.CorrectCount)
	assert.Equal(t, 1, r.store.Attempts(code, 0, "guest"))
}

func (s *CoordinatorSuite) TestEndGame(t provider.T) {
	t.Parallel()
	r := initResources(t, 2)
	code, questions := r.startedRoom(t)

	_, err := r.coordinator.Answer(r.ctx, "conn-guest", AnswerRequest{RoundIndex: intPtr(0), Guess: questions.Snippets[0].Title})
	require.NoError(t, err)

	_, err = r.coordinator.EndGame(r.ctx, "conn-guest", EndGameRequest{})
	assert.ErrorIs(t, err, model.ErrNotHost)

	r.bus.reset()
	resp, err := r.coordinator.EndGame(r.ctx, "conn-host", EndGameRequest{RoomCode: code, UserID: "host"})
	require.NoError(t, err)
	assert.True(t, resp.Ended)
	assert.Equal(t, []string{EventGameEnd, EventRoomUpdate}, r.bus.names())

	end, _ := r.bus.last(EventGameEnd)
	board := end.payload.(GameEnd).Leaderboard
	require.Len(t, board, 2)
	assert.Equal(t, "guest", board[0].UserID)
	assert.Equal(t, "bob", board[0].Name)

	update, _ := r.bus.last(EventRoomUpdate)
	assert.Equal(t, model.StatusEnded, update.payload.(model.LobbySummary).Status)
}

func (s *CoordinatorSuite) TestDisconnectAndResume(t provider.T) {
	t.Parallel()
	r := initResources(t, 2)
	code, questions := r.startedRoom(t)

	_, err := r.coordinator.Answer(r.ctx, "conn-guest", AnswerRequest{RoundIndex: intPtr(0), Guess: questions.Snippets[0].Title})
	require.NoError(t, err)
	_, err = r.coordinator.Answer(r.ctx, "conn-guest", AnswerRequest{RoundIndex: intPtr(1), Guess: "zzzzzzzzzzzz"})
	require.NoError(t, err)

	r.coordinator.Disconnect(r.ctx, "conn-guest")

	room, err := r.rooms.Room(r.ctx, code)
	require.NoError(t, err)
	i := room.PlayerIndex("guest")
	require.NotEqual(t, -1, i)
	assert.Empty(t, room.Players[i].ConnID)

	_, _, tracked := r.coordinator.Tracked("conn-guest")
	assert.False(t, tracked)

	resumed, err := r.coordinator.Resume(r.ctx, "conn-guest-2", ResumeRequest{Code: code, UserID: "guest"})
	require.NoError(t, err)
	snap := resumed.Snapshot
	require.NotNil(t, snap)
	assert.Equal(t, 1, snap.NextRoundIndex)
	assert.Equal(t, model.MaxAttempts-1, snap.AttemptsLeft)
	assert.Equal(t, model.StatusInGame, snap.Status)
	assert.Equal(t, "host", snap.HostID)
	assert.Equal(t, 1, snap.Me.CorrectCount)
	require.Len(t, snap.Results, 1)
	assert.Equal(t, questions.Snippets[0].SnippetID, snap.Results[0].SnippetID)

	room, err = r.rooms.Room(r.ctx, code)
	require.NoError(t, err)
	assert.Equal(t, "conn-guest-2", room.Players[room.PlayerIndex("guest")].ConnID)
}

func (s *CoordinatorSuite) TestDisconnectInLobbyLeaves(t provider.T) {
	t.Parallel()
	r := initResources(t, 2)

	created, err := r.coordinator.CreateRoom(r.ctx, "conn-host", CreateRoomRequest{HostID: "host"})
	require.NoError(t, err)
	code := created.Room.Code

	r.coordinator.Disconnect(r.ctx, "conn-host")

	_, err = r.rooms.Room(r.ctx, code)
	assert.ErrorIs(t, err, model.ErrRoomNotFound)
	_, ok := r.bus.last(EventRoomDeleted)
	assert.True(t, ok)
}

func (s *CoordinatorSuite) TestConcurrentAnswersRespectCap(t provider.T) {
	t.Parallel()
	r := initResources(t, 2)
	code, _ := r.startedRoom(t)

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for range 12 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.coordinator.Answer(r.ctx, "conn-guest", AnswerRequest{Code: code, UserID: "guest", RoundIndex: intPtr(0), Guess: "zzzzzzzzzzzz"})
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, model.MaxAttempts, accepted)
	assert.Equal(t, 0, r.store.LoadScores(r.ctx, code)["guest"].Streak)
}

func (s *CoordinatorSuite) TestGuessIsRelayed(t provider.T) {
	t.Parallel()
	r := initResources(t, 2)

	err := r.coordinator.Guess(r.ctx, "conn-guest", GuessRequest{Code: "abc123", Guess: "queen"})
	require.NoError(t, err)

	relayed, ok := r.bus.last(EventNewGuess)
	require.True(t, ok)
	assert.Equal(t, "ABC123", relayed.code)
	assert.Equal(t, NewGuess{PlayerID: "conn-guest", Guess: "queen"}, relayed.payload)

	err = r.coordinator.Guess(r.ctx, "conn-guest", GuessRequest{Code: "abc123"})
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestCoordinatorSuite(t *testing.T) {
	suite.RunSuite(t, new(CoordinatorSuite))
}

package usecase_game

import (
	"cmp"
	"context"
	"slices"

	"github.com/humanbelnik/soundbyte/internal/model"
	"github.com/humanbelnik/soundbyte/internal/service/matcher"
	"github.com/humanbelnik/soundbyte/internal/service/scoring"
)

const fallbackName = "Player"

func (c *Coordinator) StartGame(ctx context.Context, _ string, req StartGameRequest) (RoomResponse, error) {
	if err := c.check(req); err != nil {
		return RoomResponse{}, err
	}
	code := model.NormalizeCode(req.Code)

	defer c.locks.lock(code)()

	room, err := c.rooms.StartGame(ctx, code, req.HostID, c)
	if err != nil {
		return RoomResponse{}, err
	}
	c.metrics.GameStarted()

	resp := c.publishRoom(ctx, room)
	c.bus.Broadcast(room.Code, EventGameStart, c.store.LoadQuestions(ctx, room.Code))

	c.logger.Info("game started", "room", room.Code, "rounds", c.rounds)
	return resp, nil
}

// SeedGame generates the room's questions and zeroed scores for every
// player and the host.
func (c *Coordinator) SeedGame(ctx context.Context, room model.Room) error {
	set, err := c.questions.Generate(ctx, c.rounds)
	if err != nil {
		return err
	}

	scores := make(model.ScoreMap, len(room.Players)+1)
	for _, p := range room.Players {
		scores[p.UserID] = model.ScoreEntry{Name: p.Username}
	}
	if host := room.Host.UserID; host != "" {
		if _, ok := scores[host]; !ok {
			scores[host] = model.ScoreEntry{Name: c.lookupNames(ctx, []string{host})[host]}
		}
	}

	c.store.Reset(room.Code)
	c.store.SaveQuestions(ctx, room.Code, set)
	c.store.SaveScores(ctx, room.Code, scores)
	return nil
}

// DiscardGame drops what SeedGame stored when the room could not leave the lobby.
func (c *Coordinator) DiscardGame(ctx context.Context, code string) {
	c.store.Clear(ctx, code)
	c.store.Reset(code)
}

func (c *Coordinator) Answer(ctx context.Context, connID string, req AnswerRequest) (AnswerResponse, error) {
	if err := c.check(req); err != nil {
		return AnswerResponse{}, err
	}
	code := req.Code
	if code == "" {
		code = req.RoomCode
	}
	code, userID := c.resolve(connID, code, req.UserID)
	if code == "" || userID == "" {
		return AnswerResponse{}, model.NewError(model.ErrValidation, "missing code/userId/guess")
	}

	defer c.locks.lock(code)()

	questions := c.store.LoadQuestions(ctx, code)
	if questions.Len() == 0 {
		return AnswerResponse{}, model.ErrNoQuestions
	}
	round := c.roundIndex(ctx, code, userID, req.RoundIndex, questions)
	snippet := questions.Snippets[round]

	if done, ok := c.store.LoadResults(ctx, code, userID)[round]; ok {
		return c.replay(ctx, code, userID, done), nil
	}

	used, ok := c.store.UseAttempt(code, round, userID, model.MaxAttempts)
	if !ok {
		return AnswerResponse{RoundIndex: round, ForceAdvance: true}, model.ErrNoAttemptsLeft
	}
	attemptsLeft := model.MaxAttempts - used

	match := matcher.MatchGuess(req.Guess, snippet.Title, snippet.Artist)
	outcome := scoring.Score(match.Correct, req.ElapsedMs, req.SnippetSize)
	concluded := match.Correct || attemptsLeft == 0
	c.metrics.GuessEvaluated(match.Correct)

	scores := c.store.LoadScores(ctx, code)
	entry := scores[userID]
	if entry.Name == "" {
		entry.Name = c.lookupNames(ctx, []string{userID})[userID]
	}
	entry.Score += outcome.Total
	entry.Streak = scoring.NextStreak(entry.Streak, match.Correct, concluded)
	if match.Correct {
		entry.CorrectCount++
	}
	if concluded && questions.IsLastRound(round) {
		entry.Finished = true
	}
	scores[userID] = entry
	c.store.SaveScores(ctx, code, scores)

	c.bus.Broadcast(code, EventScoreUpdate, ScoreUpdate{
		UserID:       userID,
		RoundIndex:   round,
		Correct:      match.Correct,
		Concluded:    concluded,
		Score:        entry.Score,
		Streak:       entry.Streak,
		AttemptsLeft: attemptsLeft,
		Breakdown:    outcome.Breakdown,
	})
	c.bus.Broadcast(code, EventLeaderboardUpdate, LeaderboardUpdate{
		RoomCode:    code,
		Leaderboard: c.leaderboard(ctx, code, scores),
	})

	result := model.RoundResult{
		RoundIndex: round,
		SnippetID:  snippet.SnippetID,
		Title:      snippet.Title,
		Artist:     snippet.Artist,
		Correct:    match.Correct,
		TimeMs:     outcome.TimeMs,
	}
	c.bus.Broadcast(code, EventRoundResult, RoundResultEvent{UserID: userID, RoundResult: result})
	if concluded {
		c.store.SaveResult(ctx, code, userID, result)
	}

	if scores.AllFinished() {
		room, err := c.rooms.MarkEnded(ctx, code)
		if err != nil {
			c.logger.Error("failed to mark room ended", "room", code, "error", err)
		}
		c.finish(ctx, code, scores, false)
		if err == nil {
			c.publishRoom(ctx, room)
		}
	}

	breakdown := outcome.Breakdown
	return AnswerResponse{
		RoundIndex:   round,
		Correct:      match.Correct,
		Concluded:    concluded,
		Breakdown:    &breakdown,
		Score:        entry.Score,
		Streak:       entry.Streak,
		AttemptsLeft: attemptsLeft,
		ForceAdvance: attemptsLeft == 0,
	}, nil
}

// replay answers a guess on an already concluded round with its recorded
// outcome. Nothing is scored and no attempt is used.
func (c *Coordinator) replay(ctx context.Context, code, userID string, done model.RoundResult) AnswerResponse {
	entry := c.store.LoadScores(ctx, code)[userID]
	return AnswerResponse{
		RoundIndex:   done.RoundIndex,
		Correct:      done.Correct,
		Concluded:    true,
		Breakdown:    &model.Breakdown{},
		Score:        entry.Score,
		Streak:       entry.Streak,
		AttemptsLeft: model.MaxAttempts - c.store.Attempts(code, done.RoundIndex, userID),
		ForceAdvance: true,
	}
}

func (c *Coordinator) EndGame(ctx context.Context, connID string, req EndGameRequest) (EndGameResponse, error) {
	code := req.RoomCode
	if code == "" {
		code = req.Code
	}
	code, userID := c.resolve(connID, code, req.UserID)
	if code == "" || userID == "" {
		return EndGameResponse{}, model.NewError(model.ErrValidation, "missing code/userId")
	}

	defer c.locks.lock(code)()

	room, err := c.rooms.EndGame(ctx, code, userID)
	if err != nil {
		return EndGameResponse{}, err
	}

	c.finish(ctx, code, c.store.LoadScores(ctx, code), true)
	c.publishRoom(ctx, room)
	return EndGameResponse{Ended: true}, nil
}

func (c *Coordinator) Resume(ctx context.Context, connID string, req ResumeRequest) (ResumeResponse, error) {
	if err := c.check(req); err != nil {
		return ResumeResponse{}, err
	}
	code := model.NormalizeCode(req.Code)

	defer c.locks.lock(code)()

	c.track(connID, code, req.UserID)

	hostID, status := "", model.StatusInGame
	room, err := c.rooms.BindConnection(ctx, code, req.UserID, connID)
	if err != nil {
		c.logger.Warn("resume without room", "room", code, "user_id", req.UserID, "error", err)
	} else {
		c.publishRoom(ctx, room)
		hostID = room.Host.UserID
		if room.Status == model.StatusEnded {
			status = model.StatusEnded
		}
	}
	if c.store.IsEnded(code) {
		status = model.StatusEnded
	}

	questions := c.store.LoadQuestions(ctx, code)
	if questions == nil {
		return ResumeResponse{}, model.ErrNoQuestions
	}
	scores := c.store.LoadScores(ctx, code)
	results := c.store.LoadResults(ctx, code, req.UserID)

	next := nextRound(results, questions)
	list := make([]model.RoundResult, 0, len(results))
	for _, r := range results {
		list = append(list, r)
	}
	slices.SortFunc(list, func(a, b model.RoundResult) int { return a.RoundIndex - b.RoundIndex })

	return ResumeResponse{Snapshot: &Snapshot{
		Questions:      questions,
		Scores:         scores,
		Me:             scores[req.UserID],
		AttemptsLeft:   model.MaxAttempts - c.store.Attempts(code, next, req.UserID),
		Results:        list,
		Status:         status,
		NextRoundIndex: next,
		HostID:         hostID,
	}}, nil
}

// finish ends the game once per room: leaderboard, stats, then state cleanup.
func (c *Coordinator) finish(ctx context.Context, code string, scores model.ScoreMap, forced bool) {
	if !c.store.MarkEnded(code) {
		return
	}

	c.bus.Broadcast(code, EventGameEnd, GameEnd{
		RoomCode:    code,
		Leaderboard: c.leaderboard(ctx, code, scores),
	})

	for userID, e := range scores {
		if err := c.users.RecordGame(ctx, model.GameOutcome{
			UserID:       userID,
			Score:        e.Score,
			CorrectCount: e.CorrectCount,
		}); err != nil {
			c.logger.Warn("failed to record game", "room", code, "user_id", userID, "error", err)
		}
	}

	c.store.Clear(ctx, code)
	c.metrics.GameEnded(forced)
	c.logger.Info("game ended", "room", code, "forced", forced, "players", len(scores))
}

// roundIndex trusts the client's index when it is in range, otherwise it
// continues after the user's last concluded round.
func (c *Coordinator) roundIndex(ctx context.Context, code, userID string, requested *int, q *model.QuestionSet) int {
	if requested != nil && *requested >= 0 && *requested < q.Len() {
		return *requested
	}
	return nextRound(c.store.LoadResults(ctx, code, userID), q)
}

func nextRound(results map[int]model.RoundResult, q *model.QuestionSet) int {
	if len(results) == 0 {
		return 0
	}
	last := -1
	for i := range results {
		last = max(last, i)
	}
	return min(last+1, q.Len()-1)
}

// leaderboard resolves names from the score entries, then the room's player
// list, then the user directory.
func (c *Coordinator) leaderboard(ctx context.Context, code string, scores model.ScoreMap) []model.LeaderboardEntry {
	names := make(map[string]string, len(scores))
	for id, e := range scores {
		if e.Name != "" {
			names[id] = e.Name
		}
	}

	if len(names) < len(scores) {
		if room, err := c.rooms.Room(ctx, code); err == nil {
			for _, p := range room.Players {
				if _, ok := scores[p.UserID]; ok && names[p.UserID] == "" && p.Username != "" {
					names[p.UserID] = p.Username
				}
			}
		}
	}

	if len(names) < len(scores) {
		missing := make([]string, 0, len(scores)-len(names))
		for id := range scores {
			if names[id] == "" {
				missing = append(missing, id)
			}
		}
		for id, name := range c.lookupNames(ctx, missing) {
			names[id] = name
		}
	}

	out := make([]model.LeaderboardEntry, 0, len(scores))
	for id, e := range scores {
		name := names[id]
		if name == "" {
			name = fallbackName
		}
		out = append(out, model.LeaderboardEntry{UserID: id, Name: name, Score: e.Score})
	}
	slices.SortFunc(out, func(a, b model.LeaderboardEntry) int {
		if a.Score != b.Score {
			return cmp.Compare(b.Score, a.Score)
		}
		return cmp.Compare(a.UserID, b.UserID)
	})
	return out
}

// lookupNames never fails; unknown users get the fallback name.
func (c *Coordinator) lookupNames(ctx context.Context, userIDs []string) map[string]string {
	out := make(map[string]string, len(userIDs))
	profiles, err := c.users.Profiles(ctx, userIDs)
	if err != nil {
		c.logger.Warn("name lookup failed", "error", err)
	}
	for _, id := range userIDs {
		name := profiles[id].Username
		if name == "" {
			name = fallbackName
		}
		out[id] = name
	}
	return out
}

package usecase_solo

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/humanbelnik/soundbyte/internal/model"
	"github.com/humanbelnik/soundbyte/internal/service/matcher"
	"github.com/humanbelnik/soundbyte/internal/service/scoring"
)

//go:generate mockery --name=SessionRepository --output=./mocks --filename=repository.go
type SessionRepository interface {
	Save(ctx context.Context, session model.SoloSession) error
	// ByID returns model.ErrSessionNotFound for unknown or expired sessions.
	ByID(ctx context.Context, id string) (model.SoloSession, error)
}

type SnippetSource interface {
	Snippets(ctx context.Context, rounds int) ([]model.Snippet, error)
}

type StatsRecorder interface {
	RecordGame(ctx context.Context, o model.GameOutcome) error
}

type Usecase struct {
	repo     SessionRepository
	snippets SnippetSource
	stats    StatsRecorder
	logger   *slog.Logger
	now      func() time.Time

	mu sync.Mutex
}

type Option func(*Usecase)

func WithLogger(logger *slog.Logger) Option {
	return func(u *Usecase) {
		u.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(u *Usecase) {
		u.now = now
	}
}

func New(
	repo SessionRepository,
	snippets SnippetSource,
	stats StatsRecorder,
	opts ...Option,
) *Usecase {
	u := &Usecase{
		repo:     repo,
		snippets: snippets,
		stats:    stats,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

type StartResult struct {
	SessionID  string                `json:"sessionId"`
	RoundIndex int                   `json:"roundIndex"`
	Rounds     int                   `json:"rounds"`
	Round      model.QuestionSnippet `json:"round"`
}

type GuessResult struct {
	Correct      bool            `json:"correct"`
	Concluded    bool            `json:"concluded"`
	Attempts     int             `json:"attempts"`
	AttemptsLeft int             `json:"attemptsLeft"`
	TimeMs       int             `json:"timeMs"`
	Score        int             `json:"score"`
	Streak       int             `json:"streak"`
	Breakdown    model.Breakdown `json:"breakdown"`
}

type NextResult struct {
	RoundIndex int                   `json:"roundIndex"`
	Round      model.QuestionSnippet `json:"round"`
}

type AnswerDetail struct {
	SnippetID     string `json:"snippetId"`
	Title         string `json:"title"`
	Artist        string `json:"artist"`
	Correct       bool   `json:"correct"`
	PointsAwarded int    `json:"pointsAwarded"`
	TimeMs        int    `json:"timeMs"`
	Attempts      int    `json:"attempts"`
}

type FinishResult struct {
	SessionID      string         `json:"sessionId"`
	Score          int            `json:"score"`
	Streak         int            `json:"streak"`
	FastestTimeMs  *int           `json:"fastestTimeMs,omitempty"`
	TimeBonusTotal int            `json:"timeBonusTotal"`
	Rounds         int            `json:"rounds"`
	Answers        []AnswerDetail `json:"answers"`
}

type Snapshot struct {
	SessionID    string                 `json:"sessionId"`
	RoundIndex   int                    `json:"roundIndex"`
	Rounds       int                    `json:"rounds"`
	Round        *model.QuestionSnippet `json:"round"`
	Score        int                    `json:"score"`
	Streak       int                    `json:"streak"`
	Status       model.SoloStatus       `json:"status"`
	Seq          int                    `json:"seq"`
	UpdatedAt    time.Time              `json:"updatedAt"`
	CorrectSoFar int                    `json:"correctSoFar"`
}

// Start samples the session's snippets and starts the clock on round 0.
func (u *Usecase) Start(ctx context.Context, userID string, snippetSize int, rounds int) (StartResult, error) {
	if snippetSize <= 0 {
		snippetSize = scoring.DefaultSnippetSeconds
	}
	if rounds == 0 {
		rounds = model.DefaultSoloRounds
	}
	rounds = min(max(rounds, model.MinSoloRounds), model.MaxSoloRounds)

	snippets, err := u.snippets.Snippets(ctx, rounds)
	if err != nil {
		return StartResult{}, err
	}

	now := u.now().UTC()
	answers := make([]model.SoloAnswer, 0, len(snippets))
	for i, s := range snippets {
		a := model.SoloAnswer{
			SnippetID: s.ID,
			Title:     s.Title,
			Artist:    s.Artist,
			AudioURL:  s.AudioURL,
			Guesses:   []string{},
		}
		if i == 0 {
			a.StartedAt = &now
		}
		answers = append(answers, a)
	}

	session := model.SoloSession{
		ID:          uuid.NewString(),
		UserID:      userID,
		Difficulty:  model.DifficultyFromSize(snippetSize),
		SnippetSize: snippetSize,
		Rounds:      len(answers),
		Status:      model.SoloActive,
		Answers:     answers,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := u.save(ctx, &session); err != nil {
		return StartResult{}, err
	}

	u.logger.Info("solo game started", "session", session.ID, "user_id", userID, "rounds", session.Rounds)
	return StartResult{
		SessionID:  session.ID,
		RoundIndex: 0,
		Rounds:     session.Rounds,
		Round:      session.Answers[0].Question(),
	}, nil
}

// RoundStarted stamps the start of the current round once.
func (u *Usecase) RoundStarted(ctx context.Context, userID, sessionID string, roundIndex int) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	session, err := u.load(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	if roundIndex != session.CurrentRound {
		return model.NewError(model.ErrValidation, "round index mismatch")
	}

	a := &session.Answers[session.CurrentRound]
	if a.StartedAt == nil {
		now := u.now().UTC()
		a.StartedAt = &now
	}
	return u.save(ctx, &session)
}

func (u *Usecase) Guess(ctx context.Context, userID, sessionID string, roundIndex int, guess string) (GuessResult, error) {
	guess = strings.TrimSpace(guess)
	if guess == "" {
		return GuessResult{}, model.NewError(model.ErrValidation, "guess required")
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	session, err := u.load(ctx, userID, sessionID)
	if err != nil {
		return GuessResult{}, err
	}
	if roundIndex < 0 || roundIndex >= len(session.Answers) {
		return GuessResult{}, model.ErrInvalidRound
	}

	a := &session.Answers[roundIndex]
	if a.Concluded() {
		return GuessResult{
			Correct:      a.Correct,
			Concluded:    true,
			Attempts:     a.Attempts,
			AttemptsLeft: max(0, model.MaxAttempts-a.Attempts),
			TimeMs:       a.TimeMs,
			Score:        session.Score,
			Streak:       session.Streak,
		}, nil
	}

	now := u.now().UTC()
	if a.StartedAt == nil {
		started := now.Add(-time.Millisecond)
		a.StartedAt = &started
	}

	match := matcher.MatchGuess(guess, a.Title, a.Artist)
	elapsed := float64(now.Sub(*a.StartedAt).Milliseconds())
	outcome := scoring.Score(match.Correct, elapsed, session.SnippetSize)

	a.Guesses = append(a.Guesses, guess)
	a.Attempts++
	concluded := match.Correct || a.Attempts >= model.MaxAttempts
	session.Streak = scoring.NextStreak(session.Streak, match.Correct, concluded)

	if concluded {
		a.AnsweredAt = &now
		a.Correct = match.Correct
		a.TimeMs = outcome.TimeMs
	}
	if match.Correct {
		a.TitleHit, a.ArtistHit = match.TitleHit, match.ArtistHit
		a.PointsAwarded = outcome.Total
		session.Score += outcome.Total
		session.TimeBonusTotal += outcome.TimeBonus
		if session.FastestTimeMs == nil || outcome.TimeMs < *session.FastestTimeMs {
			fastest := outcome.TimeMs
			session.FastestTimeMs = &fastest
		}
	}

	if err := u.save(ctx, &session); err != nil {
		return GuessResult{}, err
	}

	return GuessResult{
		Correct:      match.Correct,
		Concluded:    concluded,
		Attempts:     a.Attempts,
		AttemptsLeft: max(0, model.MaxAttempts-a.Attempts),
		TimeMs:       outcome.TimeMs,
		Score:        session.Score,
		Streak:       session.Streak,
		Breakdown:    outcome.Breakdown,
	}, nil
}

func (u *Usecase) Next(ctx context.Context, userID, sessionID string) (NextResult, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	session, err := u.load(ctx, userID, sessionID)
	if err != nil {
		return NextResult{}, err
	}
	if session.CurrentRound+1 >= session.Rounds {
		return NextResult{}, model.ErrNoMoreRounds
	}

	session.CurrentRound++
	a := &session.Answers[session.CurrentRound]
	if a.StartedAt == nil {
		now := u.now().UTC()
		a.StartedAt = &now
	}
	if err := u.save(ctx, &session); err != nil {
		return NextResult{}, err
	}

	return NextResult{RoundIndex: session.CurrentRound, Round: a.Question()}, nil
}

// Finish completes the session and records the user's stats the first time.
func (u *Usecase) Finish(ctx context.Context, userID, sessionID string) (FinishResult, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	session, err := u.load(ctx, userID, sessionID)
	if err != nil {
		return FinishResult{}, err
	}

	if session.Status != model.SoloCompleted {
		now := u.now().UTC()
		session.Status = model.SoloCompleted
		session.EndedAt = &now
		if err := u.save(ctx, &session); err != nil {
			return FinishResult{}, err
		}

		if session.UserID != "" {
			if err := u.stats.RecordGame(ctx, model.GameOutcome{
				UserID:       session.UserID,
				Score:        session.Score,
				CorrectCount: session.CorrectCount(),
			}); err != nil {
				u.logger.Warn("failed to record solo game", "session", session.ID, "user_id", session.UserID, "error", err)
			}
		}
	}

	answers := make([]AnswerDetail, 0, len(session.Answers))
	for _, a := range session.Answers {
		answers = append(answers, AnswerDetail{
			SnippetID:     a.SnippetID,
			Title:         a.Title,
			Artist:        a.Artist,
			Correct:       a.Correct,
			PointsAwarded: a.PointsAwarded,
			TimeMs:        a.TimeMs,
			Attempts:      a.Attempts,
		})
	}

	return FinishResult{
		SessionID:      session.ID,
		Score:          session.Score,
		Streak:         session.Streak,
		FastestTimeMs:  session.FastestTimeMs,
		TimeBonusTotal: session.TimeBonusTotal,
		Rounds:         session.Rounds,
		Answers:        answers,
	}, nil
}

func (u *Usecase) Resume(ctx context.Context, userID, sessionID string) (Snapshot, error) {
	session, err := u.load(ctx, userID, sessionID)
	if err != nil {
		return Snapshot{}, err
	}

	var round *model.QuestionSnippet
	if session.CurrentRound < len(session.Answers) {
		q := session.Answers[session.CurrentRound].Question()
		round = &q
	}

	return Snapshot{
		SessionID:    session.ID,
		RoundIndex:   session.CurrentRound,
		Rounds:       session.Rounds,
		Round:        round,
		Score:        session.Score,
		Streak:       session.Streak,
		Status:       session.Status,
		Seq:          session.Seq,
		UpdatedAt:    session.UpdatedAt,
		CorrectSoFar: session.CorrectCount(),
	}, nil
}

func (u *Usecase) load(ctx context.Context, userID, sessionID string) (model.SoloSession, error) {
	session, err := u.repo.ByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.SoloSession{}, model.ErrSessionNotFound
		}
		return model.SoloSession{}, errors.Join(model.ErrInternal, err)
	}
	if session.UserID != "" && session.UserID != userID {
		return model.SoloSession{}, model.NewError(model.ErrForbidden, "session belongs to another user")
	}
	return session, nil
}

func (u *Usecase) save(ctx context.Context, session *model.SoloSession) error {
	session.Seq++
	session.UpdatedAt = u.now().UTC()
	if err := u.repo.Save(ctx, *session); err != nil {
		return errors.Join(model.ErrInternal, err)
	}
	return nil
}

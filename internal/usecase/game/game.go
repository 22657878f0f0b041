package usecase_game

import (
	"context"
	"log/slog"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/humanbelnik/soundbyte/internal/model"
	usecase_room "github.com/humanbelnik/soundbyte/internal/usecase/room"
)

const DefaultRounds = 10

const (
	EventRoomUpdate        = "room:update"
	EventRoomDeleted       = "room:deleted"
	EventRoomError         = "room:error"
	EventGameStart         = "game:start"
	EventScoreUpdate       = "game:scoreUpdate"
	EventLeaderboardUpdate = "game:leaderboardUpdate"
	EventRoundResult       = "game:roundResult"
	EventGameEnd           = "game:end"
	EventGameError         = "game:error"
	EventNewGuess          = "newGuess"
)

type RoomLifecycle interface {
	CreateRoom(ctx context.Context, p usecase_room.CreateParams) (model.Room, error)
	JoinByCode(ctx context.Context, p usecase_room.JoinParams) (model.Room, error)
	LeaveByCode(ctx context.Context, code string, userID string) (*model.Room, error)
	UpdateSettings(ctx context.Context, code string, userID string, patch model.SettingsPatch) (model.Room, error)
	SetMode(ctx context.Context, code string, userID string, mode string) (model.Room, error)
	StartGame(ctx context.Context, code string, hostID string, seeder usecase_room.GameSeeder) (model.Room, error)
	EndGame(ctx context.Context, code string, userID string) (model.Room, error)
	MarkEnded(ctx context.Context, code string) (model.Room, error)
	BindConnection(ctx context.Context, code string, userID string, connID string) (model.Room, error)
	Room(ctx context.Context, code string) (model.Room, error)
	Summary(ctx context.Context, room model.Room) model.LobbySummary
}

type QuestionGenerator interface {
	Generate(ctx context.Context, rounds int) (model.QuestionSet, error)
}

type StateStore interface {
	LoadScores(ctx context.Context, code string) model.ScoreMap
	SaveScores(ctx context.Context, code string, scores model.ScoreMap)
	LoadQuestions(ctx context.Context, code string) *model.QuestionSet
	SaveQuestions(ctx context.Context, code string, q model.QuestionSet)
	LoadResults(ctx context.Context, code, userID string) map[int]model.RoundResult
	SaveResult(ctx context.Context, code, userID string, r model.RoundResult)
	Attempts(code string, round int, userID string) int
	UseAttempt(code string, round int, userID string, limit int) (int, bool)
	MarkEnded(code string) bool
	IsEnded(code string) bool
	Reset(code string)
	Clear(ctx context.Context, code string)
}

type UserDirectory interface {
	Profiles(ctx context.Context, userIDs []string) (map[string]model.Profile, error)
	RecordGame(ctx context.Context, o model.GameOutcome) error
}

// Broadcaster fans events out to every connection subscribed to a room.
type Broadcaster interface {
	Subscribe(code string, connID string)
	Unsubscribe(code string, connID string)
	Broadcast(code string, event string, payload any)
}

type Metrics interface {
	RoomCreated()
	GameStarted()
	GameEnded(forced bool)
	GuessEvaluated(correct bool)
}

type nopMetrics struct{}

func (nopMetrics) RoomCreated()        {}
func (nopMetrics) GameStarted()        {}
func (nopMetrics) GameEnded(bool)      {}
func (nopMetrics) GuessEvaluated(bool) {}

type binding struct {
	code   string
	userID string
}

// Coordinator is the server side of the realtime game. Commands that touch a
// room run one at a time per room code.
type Coordinator struct {
	rooms     RoomLifecycle
	questions QuestionGenerator
	store     StateStore
	users     UserDirectory
	bus       Broadcaster
	metrics   Metrics
	logger    *slog.Logger
	validate  *validator.Validate
	rounds    int

	mu    sync.Mutex
	conns map[string]binding

	locks *roomLocks
}

type Option func(*Coordinator)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

func WithRounds(rounds int) Option {
	return func(c *Coordinator) {
		if rounds > 0 {
			c.rounds = rounds
		}
	}
}

func WithMetrics(m Metrics) Option {
	return func(c *Coordinator) {
		if m != nil {
			c.metrics = m
		}
	}
}

func New(
	rooms RoomLifecycle,
	questions QuestionGenerator,
	store StateStore,
	users UserDirectory,
	bus Broadcaster,
	opts ...Option,
) *Coordinator {
	c := &Coordinator{
		rooms:     rooms,
		questions: questions,
		store:     store,
		users:     users,
		bus:       bus,
		metrics:   nopMetrics{},
		logger:    slog.Default(),
		validate:  newValidator(),
		rounds:    DefaultRounds,
		conns:     make(map[string]binding),
		locks:     newRoomLocks(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tracked returns the room and user bound to a connection.
func (c *Coordinator) Tracked(connID string) (code string, userID string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, ok := c.conns[connID]
	return b.code, b.userID, ok
}

func (c *Coordinator) track(connID, code, userID string) {
	c.mu.Lock()
	prev, had := c.conns[connID]
	c.conns[connID] = binding{code: code, userID: userID}
	c.mu.Unlock()

	if had && prev.code != code {
		c.bus.Unsubscribe(prev.code, connID)
	}
	c.bus.Subscribe(code, connID)
}

func (c *Coordinator) untrack(connID string) (binding, bool) {
	c.mu.Lock()
	b, ok := c.conns[connID]
	delete(c.conns, connID)
	c.mu.Unlock()

	if ok {
		c.bus.Unsubscribe(b.code, connID)
	}
	return b, ok
}

// resolve fills code and user from the connection when the command omits them.
func (c *Coordinator) resolve(connID, code, userID string) (string, string) {
	tracked, trackedUser, _ := c.Tracked(connID)
	if code == "" {
		code = tracked
	}
	if userID == "" {
		userID = trackedUser
	}
	return model.NormalizeCode(code), userID
}

type roomLock struct {
	sync.Mutex
	refs int
}

type roomLocks struct {
	mu    sync.Mutex
	locks map[string]*roomLock
}

func newRoomLocks() *roomLocks {
	return &roomLocks{locks: make(map[string]*roomLock)}
}

// lock blocks until the room is free and returns the matching unlock.
func (l *roomLocks) lock(code string) func() {
	l.mu.Lock()
	rl, ok := l.locks[code]
	if !ok {
		rl = &roomLock{}
		l.locks[code] = rl
	}
	rl.refs++
	l.mu.Unlock()

	rl.Lock()
	return func() {
		rl.Unlock()

		l.mu.Lock()
		rl.refs--
		if rl.refs == 0 {
			delete(l.locks, code)
		}
		l.mu.Unlock()
	}
}

package storage_session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/humanbelnik/soundbyte/internal/model"
)

const DefaultTTL = time.Hour

//go:generate mockery --name=KeyValueStore --output=./mocks --filename=kv.go
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type attemptKey struct {
	code   string
	round  int
	userID string
}

// Store holds ephemeral per-room game state. Every write lands in the
// in-process maps and then in the cache; reads prefer the cache.
// Attempt counters and the ended markers never leave the process.
type Store struct {
	kv     KeyValueStore
	ttl    time.Duration
	logger *slog.Logger

	mu        sync.Mutex
	questions map[string]*model.QuestionSet
	scores    map[string]model.ScoreMap
	results   map[string]map[string]map[int]model.RoundResult
	attempts  map[attemptKey]int
	ended     map[string]struct{}
}

type Option func(*Store)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func New(kv KeyValueStore, opts ...Option) *Store {
	s := &Store{
		kv:        kv,
		ttl:       DefaultTTL,
		logger:    slog.Default(),
		questions: make(map[string]*model.QuestionSet),
		scores:    make(map[string]model.ScoreMap),
		results:   make(map[string]map[string]map[int]model.RoundResult),
		attempts:  make(map[attemptKey]int),
		ended:     make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func scoresKey(code string) string    { return fmt.Sprintf("room:%s:scores", code) }
func questionsKey(code string) string { return fmt.Sprintf("room:%s:questions", code) }
func resultsKey(code, userID string) string {
	return fmt.Sprintf("room:%s:results:%s", code, userID)
}

func (s *Store) LoadScores(ctx context.Context, code string) model.ScoreMap {
	var cached model.ScoreMap
	if s.readCache(ctx, scoresKey(code), &cached) && cached != nil {
		return cached
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneScores(s.scores[code])
}

func (s *Store) SaveScores(ctx context.Context, code string, scores model.ScoreMap) {
	s.mu.Lock()
	s.scores[code] = cloneScores(scores)
	s.mu.Unlock()

	s.writeCache(ctx, scoresKey(code), scores)
}

// LoadQuestions returns nil when no game was generated for the room.
func (s *Store) LoadQuestions(ctx context.Context, code string) *model.QuestionSet {
	var cached model.QuestionSet
	if s.readCache(ctx, questionsKey(code), &cached) && cached.Snippets != nil {
		return &cached
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[code]
	if !ok {
		return nil
	}
	cp := *q
	cp.Snippets = append([]model.QuestionSnippet(nil), q.Snippets...)
	return &cp
}

func (s *Store) SaveQuestions(ctx context.Context, code string, q model.QuestionSet) {
	s.mu.Lock()
	cp := q
	cp.Snippets = append([]model.QuestionSnippet(nil), q.Snippets...)
	s.questions[code] = &cp
	s.mu.Unlock()

	s.writeCache(ctx, questionsKey(code), q)
}

func (s *Store) LoadResults(ctx context.Context, code, userID string) map[int]model.RoundResult {
	var cached map[int]model.RoundResult
	if s.readCache(ctx, resultsKey(code, userID), &cached) && cached != nil {
		return cached
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int]model.RoundResult)
	for k, v := range s.results[code][userID] {
		out[k] = v
	}
	return out
}

func (s *Store) SaveResult(ctx context.Context, code, userID string, r model.RoundResult) {
	s.mu.Lock()
	room, ok := s.results[code]
	if !ok {
		room = make(map[string]map[int]model.RoundResult)
		s.results[code] = room
	}
	user, ok := room[userID]
	if !ok {
		user = make(map[int]model.RoundResult)
		room[userID] = user
	}
	user[r.RoundIndex] = r

	snapshot := make(map[int]model.RoundResult, len(user))
	for k, v := range user {
		snapshot[k] = v
	}
	s.mu.Unlock()

	s.writeCache(ctx, resultsKey(code, userID), snapshot)
}

func (s *Store) Attempts(code string, round int, userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts[attemptKey{code: code, round: round, userID: userID}]
}

// UseAttempt consumes one attempt and returns how many were used. It never
// goes above limit; ok is false when the attempts were already exhausted.
func (s *Store) UseAttempt(code string, round int, userID string, limit int) (used int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := attemptKey{code: code, round: round, userID: userID}
	if s.attempts[k] >= limit {
		return s.attempts[k], false
	}
	s.attempts[k]++
	return s.attempts[k], true
}

// MarkEnded returns true only for the first caller per room.
func (s *Store) MarkEnded(code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ended[code]; ok {
		return false
	}
	s.ended[code] = struct{}{}
	return true
}

func (s *Store) IsEnded(code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ended[code]
	return ok
}

// Reset prepares a room for a fresh game.
func (s *Store) Reset(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.ended, code)
	delete(s.results, code)
	s.dropAttempts(code)
}

// Clear drops the room's game state. The ended marker survives so a finished
// game cannot end twice; Reset removes it.
func (s *Store) Clear(ctx context.Context, code string) {
	s.mu.Lock()
	keys := []string{scoresKey(code), questionsKey(code)}
	for userID := range s.results[code] {
		keys = append(keys, resultsKey(code, userID))
	}
	for userID := range s.scores[code] {
		keys = append(keys, resultsKey(code, userID))
	}

	delete(s.questions, code)
	delete(s.scores, code)
	delete(s.results, code)
	s.dropAttempts(code)
	s.mu.Unlock()

	if err := s.kv.Delete(ctx, keys...); err != nil {
		s.logger.Warn("cache delete failed", "room", code, "error", err)
	}
}

func (s *Store) dropAttempts(code string) {
	for k := range s.attempts {
		if k.code == code {
			delete(s.attempts, k)
		}
	}
}

func (s *Store) readCache(ctx context.Context, key string, dst any) bool {
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		s.logger.Warn("cache read failed, using local state", "key", key, "error", err)
		return false
	}
	if raw == "" {
		return false
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		s.logger.Warn("cache value is corrupted, using local state", "key", key, "error", err)
		return false
	}
	return true
}

func (s *Store) writeCache(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("failed to encode state", "key", key, "error", err)
		return
	}
	if err := s.kv.Set(ctx, key, string(raw), s.ttl); err != nil {
		s.logger.Warn("cache write failed, kept local state", "key", key, "error", err)
	}
}

func cloneScores(m model.ScoreMap) model.ScoreMap {
	out := make(model.ScoreMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

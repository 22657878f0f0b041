package storage_session

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	infra_memory_kv "github.com/humanbelnik/soundbyte/internal/infra/memory/kv"
	"github.com/humanbelnik/soundbyte/internal/model"
	"github.com/humanbelnik/soundbyte/internal/storage/session/mocks"
	"github.com/ozontech/allure-go/pkg/framework/provider"
	"github.com/ozontech/allure-go/pkg/framework/suite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type SessionStoreSuite struct {
	suite.Suite
}

func validQuestions() model.QuestionSet {
	return model.QuestionSet{
		Rounds:     2,
		Difficulty: model.DifficultyMedium,
		Snippets: []model.QuestionSnippet{
			{SnippetID: "s1", AudioURL: "https://cdn/s1.mp3", Title: "Power", Artist: "Kanye West"},
			{SnippetID: "s2", AudioURL: "https://cdn/s2.mp3", Title: "Halo", Artist: "Beyonce"},
		},
	}
}

func (s *SessionStoreSuite) TestDualWrite(t provider.T) {
	ctx := context.Background()
	kv := infra_memory_kv.New()
	store := New(kv)

	scores := model.ScoreMap{"u1": {Score: 1250, CorrectCount: 1, Streak: 1, Name: "alice"}}
	store.SaveScores(ctx, "ABC123", scores)
	store.SaveQuestions(ctx, "ABC123", validQuestions())

	raw, err := kv.Get(ctx, "room:ABC123:scores")
	require.NoError(t, err)
	var cached model.ScoreMap
	require.NoError(t, json.Unmarshal([]byte(raw), &cached))
	assert.Equal(t, scores, cached)

	assert.Equal(t, scores, store.LoadScores(ctx, "ABC123"))
	q := store.LoadQuestions(ctx, "ABC123")
	require.NotNil(t, q)
	assert.Equal(t, 2, q.Len())

	require.NoError(t, kv.Delete(ctx, "room:ABC123:scores", "room:ABC123:questions"))
	assert.Equal(t, scores, store.LoadScores(ctx, "ABC123"), "local copy survives cache loss")
	assert.NotNil(t, store.LoadQuestions(ctx, "ABC123"))
}

func (s *SessionStoreSuite) TestCacheUnavailable(t provider.T) {
	ctx := context.Background()
	kv := mocks.NewKeyValueStore(t)
	down := errors.Join(model.ErrUpstreamUnavailable, errors.New("dial tcp: connection refused"))

	kv.On("Set", mock.Anything, mock.Anything, mock.Anything, time.Hour).Return(down)
	kv.On("Get", mock.Anything, mock.Anything).Return("", down)

	store := New(kv)
	scores := model.ScoreMap{"u1": {Score: 1000}}
	store.SaveScores(ctx, "ROOM42", scores)
	store.SaveQuestions(ctx, "ROOM42", validQuestions())

	assert.Equal(t, scores, store.LoadScores(ctx, "ROOM42"))
	assert.Equal(t, 2, store.LoadQuestions(ctx, "ROOM42").Len())
	assert.Nil(t, store.LoadQuestions(ctx, "OTHER1"))
	assert.Empty(t, store.LoadScores(ctx, "OTHER1"))
}

func (s *SessionStoreSuite) TestCachePreferredOnRead(t provider.T) {
	ctx := context.Background()
	kv := infra_memory_kv.New()
	store := New(kv, WithTTL(time.Minute))

	store.SaveScores(ctx, "ABC123", model.ScoreMap{"u1": {Score: 1}})
	require.NoError(t, kv.Set(ctx, "room:ABC123:scores", `{"u1":{"score":99}}`, time.Minute))

	assert.Equal(t, 99, store.LoadScores(ctx, "ABC123")["u1"].Score)
}

func (s *SessionStoreSuite) TestAttemptsAreCapped(t provider.T) {
	store := New(infra_memory_kv.New())

	for i := 1; i <= model.MaxAttempts; i++ {
		used, ok := store.UseAttempt("ABC123", 0, "u1", model.MaxAttempts)
		assert.True(t, ok)
		assert.Equal(t, i, used)
	}

	used, ok := store.UseAttempt("ABC123", 0, "u1", model.MaxAttempts)
	assert.False(t, ok)
	assert.Equal(t, model.MaxAttempts, used)
	assert.Equal(t, model.MaxAttempts, store.Attempts("ABC123", 0, "u1"))

	assert.Equal(t, 0, store.Attempts("ABC123", 1, "u1"), "other round is independent")
	assert.Equal(t, 0, store.Attempts("ABC123", 0, "u2"), "other user is independent")
	assert.Equal(t, 0, store.Attempts("XYZ789", 0, "u1"), "other room is independent")
}

func (s *SessionStoreSuite) TestMarkEndedOnce(t provider.T) {
	store := New(infra_memory_kv.New())

	assert.True(t, store.MarkEnded("ABC123"))
	assert.False(t, store.MarkEnded("ABC123"))
	assert.True(t, store.IsEnded("ABC123"))

	store.Reset("ABC123")
	assert.False(t, store.IsEnded("ABC123"))
}

func (s *SessionStoreSuite) TestResults(t provider.T) {
	ctx := context.Background()
	store := New(infra_memory_kv.New())

	store.SaveResult(ctx, "ABC123", "u1", model.RoundResult{RoundIndex: 0, SnippetID: "s1", Correct: true})
	store.SaveResult(ctx, "ABC123", "u1", model.RoundResult{RoundIndex: 1, SnippetID: "s2"})

	results := store.LoadResults(ctx, "ABC123", "u1")
	assert.Len(t, results, 2)
	assert.True(t, results[0].Correct)
	assert.Empty(t, store.LoadResults(ctx, "ABC123", "u2"))
}

func (s *SessionStoreSuite) TestClear(t provider.T) {
	ctx := context.Background()
	kv := infra_memory_kv.New()
	store := New(kv)

	store.SaveScores(ctx, "ABC123", model.ScoreMap{"u1": {Score: 1}})
	store.SaveQuestions(ctx, "ABC123", validQuestions())
	store.SaveResult(ctx, "ABC123", "u1", model.RoundResult{RoundIndex: 0})
	store.UseAttempt("ABC123", 0, "u1", model.MaxAttempts)
	store.MarkEnded("ABC123")
	store.SaveScores(ctx, "KEEP11", model.ScoreMap{"u9": {Score: 7}})

	store.Clear(ctx, "ABC123")

	assert.Nil(t, store.LoadQuestions(ctx, "ABC123"))
	assert.Empty(t, store.LoadScores(ctx, "ABC123"))
	assert.Empty(t, store.LoadResults(ctx, "ABC123", "u1"))
	assert.Equal(t, 0, store.Attempts("ABC123", 0, "u1"))
	assert.True(t, store.IsEnded("ABC123"))
	assert.False(t, store.MarkEnded("ABC123"))

	raw, err := kv.Get(ctx, "room:ABC123:results:u1")
	require.NoError(t, err)
	assert.Empty(t, raw)

	assert.Equal(t, 7, store.LoadScores(ctx, "KEEP11")["u9"].Score)
}

func TestSessionStoreSuite(t *testing.T) {
	suite.RunSuite(t, new(SessionStoreSuite))
}

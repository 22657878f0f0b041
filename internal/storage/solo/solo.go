package storage_solo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/humanbelnik/soundbyte/internal/model"
)

const DefaultTTL = time.Hour

type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Store keeps solo sessions as JSON snapshots under game:<id>.
type Store struct {
	kv  KeyValueStore
	ttl time.Duration
}

func New(kv KeyValueStore, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{kv: kv, ttl: ttl}
}

func key(id string) string { return fmt.Sprintf("game:%s", id) }

func (s *Store) Save(ctx context.Context, session model.SoloSession) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return errors.Join(model.ErrInternal, err)
	}
	return s.kv.Set(ctx, key(session.ID), string(raw), s.ttl)
}

func (s *Store) ByID(ctx context.Context, id string) (model.SoloSession, error) {
	raw, err := s.kv.Get(ctx, key(id))
	if err != nil {
		return model.SoloSession{}, err
	}
	if raw == "" {
		return model.SoloSession{}, model.ErrSessionNotFound
	}

	var session model.SoloSession
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return model.SoloSession{}, errors.Join(model.ErrInternal, err)
	}
	return session, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	return s.kv.Delete(ctx, key(id))
}

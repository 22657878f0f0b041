package infra_memory_user

import (
	"context"
	"sync"

	"github.com/humanbelnik/soundbyte/internal/model"
)

// Directory is the in-process user collaborator. Unknown ids are created
// lazily when a game is recorded for them.
type Directory struct {
	mu    sync.RWMutex
	users map[string]model.User
}

func New(users ...model.User) *Directory {
	d := &Directory{users: make(map[string]model.User)}
	for _, u := range users {
		d.users[u.ID] = u
	}
	return d
}

func (d *Directory) Save(_ context.Context, u model.User) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[u.ID] = u
	return nil
}

func (d *Directory) ByID(_ context.Context, id string) (model.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	u, ok := d.users[id]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return u, nil
}

func (d *Directory) Profiles(_ context.Context, userIDs []string) (map[string]model.Profile, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make(map[string]model.Profile, len(userIDs))
	for _, id := range userIDs {
		if u, ok := d.users[id]; ok {
			out[id] = model.Profile{UserID: id, Username: u.Username, Avatar: u.Avatar}
		}
	}
	return out, nil
}

func (d *Directory) RecordGame(_ context.Context, o model.GameOutcome) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.users[o.UserID]
	if !ok {
		u = model.User{ID: o.UserID}
	}
	u.TotalGamesPlayed++
	u.TotalSnippetsGuessed += o.CorrectCount
	u.HighestScore = max(u.HighestScore, o.Score)
	d.users[o.UserID] = u
	return nil
}

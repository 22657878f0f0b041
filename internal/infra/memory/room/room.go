package infra_memory_room

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/humanbelnik/soundbyte/internal/model"
)

// Repository keeps rooms in process memory. Every method works on its own
// copy of the room, so callers never share player slices with the store.
type Repository struct {
	mu    sync.RWMutex
	rooms map[string]model.Room
	now   func() time.Time
}

func New() *Repository {
	return &Repository{
		rooms: make(map[string]model.Room),
		now:   time.Now,
	}
}

func (r *Repository) Create(_ context.Context, room model.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[room.Code]; ok {
		return model.ErrCodeConflict
	}
	r.rooms[room.Code] = clone(room)
	return nil
}

func (r *Repository) CodeExists(_ context.Context, code string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.rooms[code]
	return ok, nil
}

func (r *Repository) ByCode(_ context.Context, code string) (model.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[code]
	if !ok {
		return model.Room{}, model.ErrRoomNotFound
	}
	return clone(room), nil
}

func (r *Repository) ActiveRoomOf(_ context.Context, userID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for code, room := range r.rooms {
		if room.IsActive() && room.HasPlayer(userID) {
			return code, nil
		}
	}
	return "", nil
}

func (r *Repository) UpsertPlayer(_ context.Context, code string, p model.Player) error {
	return r.update(code, func(room *model.Room) {
		if i := room.PlayerIndex(p.UserID); i != -1 {
			room.Players[i].ConnID = p.ConnID
			room.Players[i].Username = p.Username
			return
		}
		room.Players = append(room.Players, p)
	})
}

func (r *Repository) RemovePlayer(_ context.Context, code string, userID string) (bool, error) {
	removed := false
	err := r.update(code, func(room *model.Room) {
		before := len(room.Players)
		room.Players = slices.DeleteFunc(room.Players, func(p model.Player) bool {
			return p.UserID == userID
		})
		removed = len(room.Players) != before
	})
	return removed, err
}

func (r *Repository) SetPlayerConn(_ context.Context, code string, userID string, connID string) error {
	return r.update(code, func(room *model.Room) {
		if i := room.PlayerIndex(userID); i != -1 {
			room.Players[i].ConnID = connID
		}
	})
}

func (r *Repository) SetHost(_ context.Context, code string, userID string) error {
	return r.update(code, func(room *model.Room) {
		room.Host = model.PlayerRef{UserID: userID}
	})
}

func (r *Repository) UpdateSettings(_ context.Context, code string, settings model.RoomSettings) error {
	return r.update(code, func(room *model.Room) {
		room.Settings = settings
	})
}

func (r *Repository) SetMode(_ context.Context, code string, mode string) error {
	return r.update(code, func(room *model.Room) {
		room.Mode = mode
	})
}

func (r *Repository) SetStatus(_ context.Context, code string, status model.RoomStatus, currentRound int) error {
	return r.update(code, func(room *model.Room) {
		room.Status = status
		room.CurrentRound = currentRound
	})
}

func (r *Repository) Delete(_ context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[code]; !ok {
		return model.ErrRoomNotFound
	}
	delete(r.rooms, code)
	return nil
}

func (r *Repository) update(code string, fn func(room *model.Room)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[code]
	if !ok {
		return model.ErrRoomNotFound
	}
	room = clone(room)
	fn(&room)
	room.UpdatedAt = r.now().UTC()
	r.rooms[code] = room
	return nil
}

func clone(room model.Room) model.Room {
	room.Players = slices.Clone(room.Players)
	return room
}

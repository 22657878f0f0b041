package usecase_game

import (
	"context"

	"github.com/humanbelnik/soundbyte/internal/model"
	usecase_room "github.com/humanbelnik/soundbyte/internal/usecase/room"
)

func (c *Coordinator) CreateRoom(ctx context.Context, connID string, req CreateRoomRequest) (RoomResponse, error) {
	if err := c.check(req); err != nil {
		return RoomResponse{}, err
	}

	settings := model.DefaultSettings()
	if req.Settings != nil {
		settings = req.Settings.Apply(settings)
	}

	room, err := c.rooms.CreateRoom(ctx, usecase_room.CreateParams{
		HostID:     req.HostID,
		HostConnID: connID,
		Mode:       req.Mode,
		Settings:   settings,
	})
	if err != nil {
		return RoomResponse{}, err
	}
	c.metrics.RoomCreated()

	c.track(connID, room.Code, req.HostID)
	return c.publishRoom(ctx, room), nil
}

func (c *Coordinator) JoinRoom(ctx context.Context, connID string, req JoinRoomRequest) (RoomResponse, error) {
	if err := c.check(req); err != nil {
		return RoomResponse{}, err
	}
	code := model.NormalizeCode(req.Code)

	defer c.locks.lock(code)()

	room, err := c.rooms.JoinByCode(ctx, usecase_room.JoinParams{
		Code:     code,
		UserID:   req.UserID,
		ConnID:   connID,
		Passcode: req.Passcode,
	})
	if err != nil {
		return RoomResponse{}, err
	}

	c.track(connID, room.Code, req.UserID)
	return c.publishRoom(ctx, room), nil
}

func (c *Coordinator) LeaveRoom(ctx context.Context, connID string, req LeaveRoomRequest) (LeaveResponse, error) {
	if err := c.check(req); err != nil {
		return LeaveResponse{}, err
	}
	code, _ := c.resolve(connID, req.RoomID, req.UserID)
	if code == "" {
		return LeaveResponse{}, model.NewError(model.ErrValidation, "missing code/userId")
	}

	defer c.locks.lock(code)()

	room, err := c.rooms.LeaveByCode(ctx, code, req.UserID)
	if err != nil {
		return LeaveResponse{}, err
	}
	c.untrack(connID)

	if room == nil {
		c.teardown(ctx, code)
		return LeaveResponse{Deleted: true}, nil
	}
	c.publishRoom(ctx, *room)
	return LeaveResponse{Deleted: false}, nil
}

func (c *Coordinator) RequestRoom(ctx context.Context, _ string, req RequestRoomRequest) (RoomResponse, error) {
	if err := c.check(req); err != nil {
		return RoomResponse{}, err
	}

	room, err := c.rooms.Room(ctx, req.Code)
	if err != nil {
		return RoomResponse{}, err
	}
	summary := c.rooms.Summary(ctx, room)
	return RoomResponse{Room: &summary}, nil
}

func (c *Coordinator) UpdateSettings(ctx context.Context, _ string, req UpdateSettingsRequest) (RoomResponse, error) {
	if err := c.check(req); err != nil {
		return RoomResponse{}, err
	}
	code := model.NormalizeCode(req.Code)

	defer c.locks.lock(code)()

	room, err := c.rooms.UpdateSettings(ctx, code, req.UserID, *req.Patch)
	if err != nil {
		return RoomResponse{}, err
	}
	return c.publishRoom(ctx, room), nil
}

func (c *Coordinator) SetMode(ctx context.Context, _ string, req SetModeRequest) (RoomResponse, error) {
	if err := c.check(req); err != nil {
		return RoomResponse{}, err
	}
	code := model.NormalizeCode(req.Code)

	defer c.locks.lock(code)()

	room, err := c.rooms.SetMode(ctx, code, req.UserID, req.Mode)
	if err != nil {
		return RoomResponse{}, err
	}
	return c.publishRoom(ctx, room), nil
}

// Guess relays a free-text guess to the room without evaluating it.
func (c *Coordinator) Guess(_ context.Context, connID string, req GuessRequest) error {
	if err := c.check(req); err != nil {
		return err
	}
	c.bus.Broadcast(model.NormalizeCode(req.Code), EventNewGuess, NewGuess{PlayerID: connID, Guess: req.Guess})
	return nil
}

// Disconnect keeps an in-game player enrolled with no connection so a later
// resume can pick the game up. Outside a game the player leaves the room.
func (c *Coordinator) Disconnect(ctx context.Context, connID string) {
	b, ok := c.untrack(connID)
	if !ok {
		return
	}

	defer c.locks.lock(b.code)()

	room, err := c.rooms.Room(ctx, b.code)
	if err != nil {
		return
	}
	if i := room.PlayerIndex(b.userID); i == -1 || room.Players[i].ConnID != connID {
		return
	}

	if room.Status == model.StatusInGame {
		room, err = c.rooms.BindConnection(ctx, b.code, b.userID, "")
		if err != nil {
			c.logger.Error("failed to release connection", "room", b.code, "user_id", b.userID, "error", err)
			return
		}
		c.publishRoom(ctx, room)
		return
	}

	left, err := c.rooms.LeaveByCode(ctx, b.code, b.userID)
	if err != nil {
		c.logger.Error("failed to leave on disconnect", "room", b.code, "user_id", b.userID, "error", err)
		return
	}
	if left == nil {
		c.teardown(ctx, b.code)
		return
	}
	c.publishRoom(ctx, *left)
}

func (c *Coordinator) publishRoom(ctx context.Context, room model.Room) RoomResponse {
	summary := c.rooms.Summary(ctx, room)
	c.bus.Broadcast(room.Code, EventRoomUpdate, summary)
	return RoomResponse{Room: &summary}
}

func (c *Coordinator) teardown(ctx context.Context, code string) {
	c.bus.Broadcast(code, EventRoomDeleted, RoomDeleted{Code: code})
	c.store.Clear(ctx, code)
	c.store.Reset(code)
	c.logger.Info("room torn down", "room", code)
}

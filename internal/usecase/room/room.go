package usecase_room

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/humanbelnik/soundbyte/internal/model"
)

const (
	codeAlphabet   = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	initialCodeLen = 6
	maxCodeLen     = 10
	codeAttempts   = 5
	fallbackName   = "Player"
	createRetries  = 3
)

var ErrRoomsUnavailable = errors.New("no available room codes")

//go:generate mockery --name=RoomRepository --output=./mocks --filename=repository.go
type RoomRepository interface {
	// Create returns model.ErrCodeConflict when the code is taken.
	Create(ctx context.Context, room model.Room) error
	CodeExists(ctx context.Context, code string) (bool, error)
	// ByCode returns model.ErrRoomNotFound when there is no such room.
	ByCode(ctx context.Context, code string) (model.Room, error)
	// ActiveRoomOf returns the code of the lobby or in-game room the user plays in, or "".
	ActiveRoomOf(ctx context.Context, userID string) (string, error)
	// UpsertPlayer adds the player or refreshes name and connection of an existing one.
	UpsertPlayer(ctx context.Context, code string, p model.Player) error
	RemovePlayer(ctx context.Context, code string, userID string) (bool, error)
	SetPlayerConn(ctx context.Context, code string, userID string, connID string) error
	SetHost(ctx context.Context, code string, userID string) error
	UpdateSettings(ctx context.Context, code string, settings model.RoomSettings) error
	SetMode(ctx context.Context, code string, mode string) error
	SetStatus(ctx context.Context, code string, status model.RoomStatus, currentRound int) error
	Delete(ctx context.Context, code string) error
}

//go:generate mockery --name=ProfileDirectory --output=./mocks --filename=profiles.go
type ProfileDirectory interface {
	Profiles(ctx context.Context, userIDs []string) (map[string]model.Profile, error)
}

// GameSeeder prepares per-room game state before the room leaves the lobby.
type GameSeeder interface {
	SeedGame(ctx context.Context, room model.Room) error
	DiscardGame(ctx context.Context, code string)
}

type Usecase struct {
	repo     RoomRepository
	profiles ProfileDirectory
	logger   *slog.Logger
	rnd      *rand.Rand
}

type Option func(*Usecase)

func WithLogger(logger *slog.Logger) Option {
	return func(u *Usecase) {
		u.logger = logger
	}
}

func WithRand(rnd *rand.Rand) Option {
	return func(u *Usecase) {
		u.rnd = rnd
	}
}

func New(
	repo RoomRepository,
	profiles ProfileDirectory,
	opts ...Option,
) *Usecase {
	u := &Usecase{
		repo:     repo,
		profiles: profiles,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

type CreateParams struct {
	HostID     string
	HostConnID string
	Mode       string
	Settings   model.RoomSettings
}

func (u *Usecase) CreateRoom(ctx context.Context, p CreateParams) (model.Room, error) {
	active, err := u.repo.ActiveRoomOf(ctx, p.HostID)
	if err != nil {
		return model.Room{}, errors.Join(model.ErrInternal, err)
	}
	if active != "" {
		return model.Room{}, model.ErrAlreadyInActiveRoom
	}

	mode := strings.TrimSpace(p.Mode)
	if mode == "" {
		mode = model.DefaultMode
	}

	now := time.Now().UTC()
	host := model.Player{
		PlayerRef: model.PlayerRef{UserID: p.HostID},
		Username:  u.username(ctx, p.HostID),
		ConnID:    p.HostConnID,
		JoinedAt:  now,
	}

	// Codes can still collide between the existence check and the insert.
	for range createRetries {
		code, err := u.generateUniqueCode(ctx, initialCodeLen)
		if err != nil {
			return model.Room{}, err
		}

		room := model.Room{
			Code:      code,
			Mode:      mode,
			Status:    model.StatusLobby,
			Host:      host.PlayerRef,
			Players:   []model.Player{host},
			Settings:  p.Settings.Normalized(),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := u.repo.Create(ctx, room); err != nil {
			if errors.Is(err, model.ErrCodeConflict) {
				continue
			}
			return model.Room{}, errors.Join(model.ErrInternal, err)
		}

		u.logger.Info("room created", "room", code, "user_id", p.HostID)
		return room, nil
	}

	return model.Room{}, errors.Join(model.ErrInternal, ErrRoomsUnavailable)
}

// generateUniqueCode tries a few random codes and grows the length on repeated collisions.
func (u *Usecase) generateUniqueCode(ctx context.Context, length int) (string, error) {
	for range codeAttempts {
		code := u.buildRoomCode(length)
		exists, err := u.repo.CodeExists(ctx, code)
		if err != nil {
			return "", errors.Join(model.ErrInternal, err)
		}
		if !exists {
			return code, nil
		}
	}

	if length >= maxCodeLen {
		return "", errors.Join(model.ErrInternal, ErrRoomsUnavailable)
	}
	return u.generateUniqueCode(ctx, length+1)
}

func (u *Usecase) buildRoomCode(length int) string {
	var builder strings.Builder
	builder.Grow(length)

	for range length {
		builder.WriteByte(codeAlphabet[u.intn(len(codeAlphabet))])
	}

	return builder.String()
}

func (u *Usecase) intn(n int) int {
	if u.rnd != nil {
		return u.rnd.Intn(n)
	}
	return rand.Intn(n)
}

type JoinParams struct {
	Code     string
	UserID   string
	ConnID   string
	Passcode string
}

// JoinByCode is idempotent for a user that is already in the room.
func (u *Usecase) JoinByCode(ctx context.Context, p JoinParams) (model.Room, error) {
	code := model.NormalizeCode(p.Code)

	room, err := u.Room(ctx, code)
	if err != nil {
		return model.Room{}, err
	}
	if room.Status != model.StatusLobby {
		return model.Room{}, model.ErrGameAlreadyStarted
	}
	if room.Settings.IsPrivate && room.Settings.Passcode != "" && room.Settings.Passcode != p.Passcode {
		return model.Room{}, model.ErrInvalidPasscode
	}

	if !room.HasPlayer(p.UserID) {
		active, err := u.repo.ActiveRoomOf(ctx, p.UserID)
		if err != nil {
			return model.Room{}, errors.Join(model.ErrInternal, err)
		}
		if active != "" && active != code {
			return model.Room{}, model.ErrAlreadyInActiveRoom
		}
		if room.IsFull() {
			return model.Room{}, model.ErrRoomFull
		}
	}

	if err := u.repo.UpsertPlayer(ctx, code, model.Player{
		PlayerRef: model.PlayerRef{UserID: p.UserID},
		Username:  u.username(ctx, p.UserID),
		ConnID:    p.ConnID,
		JoinedAt:  time.Now().UTC(),
	}); err != nil {
		return model.Room{}, u.mapRepoErr(err)
	}

	return u.Room(ctx, code)
}

// LeaveByCode returns nil when the room no longer exists afterwards.
func (u *Usecase) LeaveByCode(ctx context.Context, code string, userID string) (*model.Room, error) {
	code = model.NormalizeCode(code)

	room, err := u.Room(ctx, code)
	if err != nil {
		if errors.Is(err, model.ErrRoomNotFound) {
			return nil, nil
		}
		return nil, err
	}

	removed, err := u.repo.RemovePlayer(ctx, code, userID)
	if err != nil {
		return nil, u.mapRepoErr(err)
	}
	if !removed {
		return &room, nil
	}

	room, err = u.Room(ctx, code)
	if err != nil {
		if errors.Is(err, model.ErrRoomNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if len(room.Players) == 0 {
		if err := u.repo.Delete(ctx, code); err != nil && !errors.Is(err, model.ErrRoomNotFound) {
			return nil, errors.Join(model.ErrInternal, err)
		}
		u.logger.Info("room deleted", "room", code)
		return nil, nil
	}

	if room.Status == model.StatusLobby && room.IsHost(userID) {
		next := room.Players[0].PlayerRef
		if err := u.repo.SetHost(ctx, code, next.UserID); err != nil {
			return nil, u.mapRepoErr(err)
		}
		room.Host = next
		u.logger.Info("host transferred", "room", code, "user_id", next.UserID)
	}

	return &room, nil
}

func (u *Usecase) UpdateSettings(ctx context.Context, code string, userID string, patch model.SettingsPatch) (model.Room, error) {
	room, err := u.hostRoom(ctx, code, userID)
	if err != nil {
		return model.Room{}, err
	}

	if err := u.repo.UpdateSettings(ctx, room.Code, patch.Apply(room.Settings)); err != nil {
		return model.Room{}, u.mapRepoErr(err)
	}
	return u.Room(ctx, room.Code)
}

func (u *Usecase) SetMode(ctx context.Context, code string, userID string, mode string) (model.Room, error) {
	mode = strings.TrimSpace(mode)
	if mode == "" {
		return model.Room{}, model.NewError(model.ErrValidation, "mode is required")
	}

	room, err := u.hostRoom(ctx, code, userID)
	if err != nil {
		return model.Room{}, err
	}

	if err := u.repo.SetMode(ctx, room.Code, mode); err != nil {
		return model.Room{}, u.mapRepoErr(err)
	}
	return u.Room(ctx, room.Code)
}

// StartGame seeds the game and moves the room from lobby to in-game.
func (u *Usecase) StartGame(ctx context.Context, code string, hostID string, seeder GameSeeder) (model.Room, error) {
	room, err := u.hostRoom(ctx, code, hostID)
	if err != nil {
		return model.Room{}, err
	}
	if room.Status != model.StatusLobby {
		return model.Room{}, model.ErrGameAlreadyStarted
	}

	if err := seeder.SeedGame(ctx, room); err != nil {
		return model.Room{}, err
	}

	if err := u.repo.SetStatus(ctx, room.Code, model.StatusInGame, 1); err != nil {
		seeder.DiscardGame(ctx, room.Code)
		return model.Room{}, u.mapRepoErr(err)
	}

	u.logger.Info("game started", "room", room.Code, "user_id", hostID)
	return u.Room(ctx, room.Code)
}

// EndGame is the host-forced end.
func (u *Usecase) EndGame(ctx context.Context, code string, userID string) (model.Room, error) {
	room, err := u.hostRoom(ctx, code, userID)
	if err != nil {
		return model.Room{}, err
	}
	if room.Status == model.StatusEnded {
		return model.Room{}, model.ErrGameNotInProgress
	}
	return u.MarkEnded(ctx, room.Code)
}

// MarkEnded moves the room to ended without checking who asked.
func (u *Usecase) MarkEnded(ctx context.Context, code string) (model.Room, error) {
	code = model.NormalizeCode(code)

	room, err := u.Room(ctx, code)
	if err != nil {
		return model.Room{}, err
	}
	if err := u.repo.SetStatus(ctx, code, model.StatusEnded, room.CurrentRound); err != nil {
		return model.Room{}, u.mapRepoErr(err)
	}
	return u.Room(ctx, code)
}

// BindConnection points an enrolled player at a new (or no) connection.
func (u *Usecase) BindConnection(ctx context.Context, code string, userID string, connID string) (model.Room, error) {
	code = model.NormalizeCode(code)
	if err := u.repo.SetPlayerConn(ctx, code, userID, connID); err != nil {
		return model.Room{}, u.mapRepoErr(err)
	}
	return u.Room(ctx, code)
}

func (u *Usecase) Room(ctx context.Context, code string) (model.Room, error) {
	room, err := u.repo.ByCode(ctx, model.NormalizeCode(code))
	if err != nil {
		return model.Room{}, u.mapRepoErr(err)
	}
	return room, nil
}

// Summary joins host and players with their profiles. A failed profile
// lookup degrades to the usernames stored on the room.
func (u *Usecase) Summary(ctx context.Context, room model.Room) model.LobbySummary {
	ids := make([]string, 0, len(room.Players)+1)
	ids = append(ids, room.Host.UserID)
	for _, p := range room.Players {
		ids = append(ids, p.UserID)
	}

	profiles, err := u.profiles.Profiles(ctx, ids)
	if err != nil {
		u.logger.Warn("profile lookup failed", "room", room.Code, "error", err)
		profiles = nil
	}

	resolve := func(userID, snapshot string) model.Profile {
		p, ok := profiles[userID]
		if !ok {
			p = model.Profile{UserID: userID}
		}
		if p.Username == "" {
			p.Username = snapshot
		}
		if p.Username == "" {
			p.Username = fallbackName
		}
		return p
	}

	hostName := ""
	if i := room.PlayerIndex(room.Host.UserID); i != -1 {
		hostName = room.Players[i].Username
	}

	players := make([]model.PlayerSummary, 0, len(room.Players))
	for _, p := range room.Players {
		prof := resolve(p.UserID, p.Username)
		players = append(players, model.PlayerSummary{
			ID:       p.UserID,
			Username: prof.Username,
			Avatar:   prof.Avatar,
			ConnID:   p.ConnID,
		})
	}

	return model.LobbySummary{
		Code:        room.Code,
		Mode:        room.Mode,
		Status:      room.Status,
		Host:        resolve(room.Host.UserID, hostName),
		PlayerCount: len(room.Players),
		MaxPlayers:  room.Settings.Normalized().MaxPlayers,
		Players:     players,
		CreatedAt:   room.CreatedAt,
		UpdatedAt:   room.UpdatedAt,
	}
}

func (u *Usecase) hostRoom(ctx context.Context, code string, userID string) (model.Room, error) {
	room, err := u.Room(ctx, code)
	if err != nil {
		return model.Room{}, err
	}
	if !room.IsHost(userID) {
		return model.Room{}, model.ErrNotHost
	}
	return room, nil
}

func (u *Usecase) username(ctx context.Context, userID string) string {
	profiles, err := u.profiles.Profiles(ctx, []string{userID})
	if err != nil {
		u.logger.Warn("profile lookup failed", "user_id", userID, "error", err)
		return fallbackName
	}
	if p, ok := profiles[userID]; ok && p.Username != "" {
		return p.Username
	}
	return fallbackName
}

func (u *Usecase) mapRepoErr(err error) error {
	if errors.Is(err, model.ErrNotFound) {
		return model.ErrRoomNotFound
	}
	if errors.Is(err, model.ErrValidation) || errors.Is(err, model.ErrConflict) ||
		errors.Is(err, model.ErrForbidden) {
		return err
	}
	return errors.Join(model.ErrInternal, err)
}

package model

import (
	"strings"
	"time"
)

type RoomStatus = string

const (
	StatusLobby  RoomStatus = "lobby"
	StatusInGame RoomStatus = "in-game"
	StatusEnded  RoomStatus = "ended"
)

const (
	DefaultMode       = "Classic"
	DefaultMaxPlayers = 8
	MinMaxPlayers     = 1
	MaxMaxPlayers     = 32
)

// PlayerRef is the only way a user is referenced from a room.
type PlayerRef struct {
	UserID string
}

type Player struct {
	PlayerRef
	Username string
	ConnID   string
	JoinedAt time.Time
}

type RoomSettings struct {
	MaxPlayers int
	IsPrivate  bool
	Passcode   string
}

func DefaultSettings() RoomSettings {
	return RoomSettings{MaxPlayers: DefaultMaxPlayers}
}

// Normalized clamps MaxPlayers into the allowed range.
func (s RoomSettings) Normalized() RoomSettings {
	switch {
	case s.MaxPlayers == 0:
		s.MaxPlayers = DefaultMaxPlayers
	case s.MaxPlayers < MinMaxPlayers:
		s.MaxPlayers = MinMaxPlayers
	case s.MaxPlayers > MaxMaxPlayers:
		s.MaxPlayers = MaxMaxPlayers
	}
	return s
}

// SettingsPatch carries optional fields; nil means "leave as is".
type SettingsPatch struct {
	MaxPlayers *int    `json:"maxPlayers,omitempty"`
	IsPrivate  *bool   `json:"isPrivate,omitempty"`
	Passcode   *string `json:"passcode,omitempty"`
}

// Apply clamps maxPlayers and trims the passcode.
func (p SettingsPatch) Apply(s RoomSettings) RoomSettings {
	if p.MaxPlayers != nil {
		s.MaxPlayers = min(max(*p.MaxPlayers, MinMaxPlayers), MaxMaxPlayers)
	}
	if p.IsPrivate != nil {
		s.IsPrivate = *p.IsPrivate
	}
	if p.Passcode != nil {
		s.Passcode = strings.TrimSpace(*p.Passcode)
	}
	return s
}

type Room struct {
	Code         string
	Mode         string
	Status       RoomStatus
	Host         PlayerRef
	Players      []Player
	Settings     RoomSettings
	CurrentRound int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (r *Room) IsHost(userID string) bool {
	return r.Host.UserID != "" && r.Host.UserID == userID
}

func (r *Room) HasPlayer(userID string) bool {
	return r.PlayerIndex(userID) != -1
}

func (r *Room) PlayerIndex(userID string) int {
	for i, p := range r.Players {
		if p.UserID == userID {
			return i
		}
	}
	return -1
}

func (r *Room) IsFull() bool {
	return len(r.Players) >= r.Settings.Normalized().MaxPlayers
}

func (r *Room) IsActive() bool {
	return r.Status == StatusLobby || r.Status == StatusInGame
}

type Profile struct {
	UserID   string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

type PlayerSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
	ConnID   string `json:"connId"`
}

// LobbySummary is the broadcast projection of a room.
type LobbySummary struct {
	Code        string          `json:"code"`
	Mode        string          `json:"mode"`
	Status      RoomStatus      `json:"status"`
	Host        Profile         `json:"host"`
	PlayerCount int             `json:"playerCount"`
	MaxPlayers  int             `json:"maxPlayers"`
	Players     []PlayerSummary `json:"players"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

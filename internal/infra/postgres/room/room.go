package infra_postgres_room

import (
	"context"
	"database/sql"
	"errors"
	"time"

	infra_postgres_common "github.com/humanbelnik/soundbyte/internal/infra/postgres/common"
	"github.com/humanbelnik/soundbyte/internal/model"
	"github.com/jmoiron/sqlx"
)

type Driver struct {
	db *sqlx.DB
}

func New(
	db *sqlx.DB,
) *Driver {
	return &Driver{db: db}
}

type roomDTO struct {
	Code         string    `db:"code"`
	Mode         string    `db:"mode"`
	Status       string    `db:"status"`
	HostID       string    `db:"host_id"`
	MaxPlayers   int       `db:"max_players"`
	IsPrivate    bool      `db:"is_private"`
	Passcode     string    `db:"passcode"`
	CurrentRound int       `db:"current_round"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

type playerDTO struct {
	RoomCode string    `db:"room_code"`
	UserID   string    `db:"user_id"`
	Username string    `db:"username"`
	ConnID   string    `db:"conn_id"`
	JoinedAt time.Time `db:"joined_at"`
}

func toRoomDTO(room model.Room) roomDTO {
	return roomDTO{
		Code:         room.Code,
		Mode:         room.Mode,
		Status:       room.Status,
		HostID:       room.Host.UserID,
		MaxPlayers:   room.Settings.MaxPlayers,
		IsPrivate:    room.Settings.IsPrivate,
		Passcode:     room.Settings.Passcode,
		CurrentRound: room.CurrentRound,
		CreatedAt:    room.CreatedAt,
		UpdatedAt:    room.UpdatedAt,
	}
}

func toPlayerDTO(code string, p model.Player) playerDTO {
	return playerDTO{
		RoomCode: code,
		UserID:   p.UserID,
		Username: p.Username,
		ConnID:   p.ConnID,
		JoinedAt: p.JoinedAt,
	}
}

func (dto roomDTO) toModel(players []playerDTO) model.Room {
	room := model.Room{
		Code:   dto.Code,
		Mode:   dto.Mode,
		Status: dto.Status,
		Host:   model.PlayerRef{UserID: dto.HostID},
		Settings: model.RoomSettings{
			MaxPlayers: dto.MaxPlayers,
			IsPrivate:  dto.IsPrivate,
			Passcode:   dto.Passcode,
		},
		CurrentRound: dto.CurrentRound,
		CreatedAt:    dto.CreatedAt,
		UpdatedAt:    dto.UpdatedAt,
		Players:      make([]model.Player, 0, len(players)),
	}
	for _, p := range players {
		room.Players = append(room.Players, model.Player{
			PlayerRef: model.PlayerRef{UserID: p.UserID},
			Username:  p.Username,
			ConnID:    p.ConnID,
			JoinedAt:  p.JoinedAt,
		})
	}
	return room
}

const upsertPlayerQuery = `
	INSERT INTO room_players (room_code, user_id, username, conn_id, joined_at)
	VALUES (:room_code, :user_id, :username, :conn_id, :joined_at)
	ON CONFLICT (room_code, user_id)
	DO UPDATE SET username = EXCLUDED.username, conn_id = EXCLUDED.conn_id
`

func (d *Driver) Create(ctx context.Context, room model.Room) error {
	return infra_postgres_common.WithTx(ctx, d.db, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO rooms (code, mode, status, host_id, max_players, is_private, passcode, current_round, created_at, updated_at)
			VALUES (:code, :mode, :status, :host_id, :max_players, :is_private, :passcode, :current_round, :created_at, :updated_at)
		`
		if _, err := tx.NamedExecContext(ctx, query, toRoomDTO(room)); err != nil {
			if infra_postgres_common.IsUniqueViolation(err) {
				return model.ErrCodeConflict
			}
			return err
		}

		for _, p := range room.Players {
			if _, err := tx.NamedExecContext(ctx, upsertPlayerQuery, toPlayerDTO(room.Code, p)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (d *Driver) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM rooms WHERE code = $1)`

	if err := d.db.GetContext(ctx, &exists, query, code); err != nil {
		return false, err
	}
	return exists, nil
}

func (d *Driver) ByCode(ctx context.Context, code string) (model.Room, error) {
	var room roomDTO
	query := `
		SELECT code, mode, status, host_id, max_players, is_private, passcode, current_round, created_at, updated_at
		FROM rooms
		WHERE code = $1
	`
	if err := d.db.GetContext(ctx, &room, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Room{}, model.ErrRoomNotFound
		}
		return model.Room{}, err
	}

	var players []playerDTO
	query = `
		SELECT room_code, user_id, username, conn_id, joined_at
		FROM room_players
		WHERE room_code = $1
		ORDER BY position
	`
	if err := d.db.SelectContext(ctx, &players, query, code); err != nil {
		return model.Room{}, err
	}

	return room.toModel(players), nil
}

func (d *Driver) ActiveRoomOf(ctx context.Context, userID string) (string, error) {
	var code string
	query := `
		SELECT r.code
		FROM rooms r
		JOIN room_players p ON p.room_code = r.code
		WHERE p.user_id = $1 AND r.status IN ($2, $3)
		ORDER BY r.updated_at DESC
		LIMIT 1
	`
	err := d.db.GetContext(ctx, &code, query, userID, model.StatusLobby, model.StatusInGame)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return code, nil
}

func (d *Driver) UpsertPlayer(ctx context.Context, code string, p model.Player) error {
	return infra_postgres_common.WithTx(ctx, d.db, func(tx *sqlx.Tx) error {
		if err := touch(ctx, tx, code); err != nil {
			return err
		}
		_, err := tx.NamedExecContext(ctx, upsertPlayerQuery, toPlayerDTO(code, p))
		return err
	})
}

// RemovePlayer deletes by predicate so concurrent leaves never lose updates.
func (d *Driver) RemovePlayer(ctx context.Context, code string, userID string) (bool, error) {
	var removed bool
	err := infra_postgres_common.WithTx(ctx, d.db, func(tx *sqlx.Tx) error {
		if err := touch(ctx, tx, code); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM room_players WHERE room_code = $1 AND user_id = $2`, code, userID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		removed = n > 0
		return nil
	})
	return removed, err
}

func (d *Driver) SetPlayerConn(ctx context.Context, code string, userID string, connID string) error {
	return infra_postgres_common.WithTx(ctx, d.db, func(tx *sqlx.Tx) error {
		if err := touch(ctx, tx, code); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE room_players SET conn_id = $1 WHERE room_code = $2 AND user_id = $3`,
			connID, code, userID)
		return err
	})
}

func (d *Driver) SetHost(ctx context.Context, code string, userID string) error {
	return d.updateRoom(ctx, `UPDATE rooms SET host_id = $1, updated_at = now() WHERE code = $2`, userID, code)
}

func (d *Driver) UpdateSettings(ctx context.Context, code string, settings model.RoomSettings) error {
	return d.updateRoom(ctx, `
		UPDATE rooms
		SET max_players = $1, is_private = $2, passcode = $3, updated_at = now()
		WHERE code = $4
	`, settings.MaxPlayers, settings.IsPrivate, settings.Passcode, code)
}

func (d *Driver) SetMode(ctx context.Context, code string, mode string) error {
	return d.updateRoom(ctx, `UPDATE rooms SET mode = $1, updated_at = now() WHERE code = $2`, mode, code)
}

func (d *Driver) SetStatus(ctx context.Context, code string, status model.RoomStatus, currentRound int) error {
	return d.updateRoom(ctx, `
		UPDATE rooms
		SET status = $1, current_round = $2, updated_at = now()
		WHERE code = $3
	`, status, currentRound, code)
}

// Delete removes the room; its players go with it through the cascade.
func (d *Driver) Delete(ctx context.Context, code string) error {
	return d.updateRoom(ctx, `DELETE FROM rooms WHERE code = $1`, code)
}

func (d *Driver) updateRoom(ctx context.Context, query string, args ...any) error {
	result, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return affected(result)
}

func touch(ctx context.Context, tx *sqlx.Tx, code string) error {
	result, err := tx.ExecContext(ctx, `UPDATE rooms SET updated_at = now() WHERE code = $1`, code)
	if err != nil {
		return err
	}
	return affected(result)
}

func affected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return model.ErrRoomNotFound
	}
	return nil
}

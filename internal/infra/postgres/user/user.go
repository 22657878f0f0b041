package infra_postgres_user

import (
	"context"
	"database/sql"
	"errors"

	infra_postgres_common "github.com/humanbelnik/soundbyte/internal/infra/postgres/common"
	"github.com/humanbelnik/soundbyte/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type Repository struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// username is nullable: stats may be recorded for users that never registered.
type userDTO struct {
	ID                   string         `db:"id"`
	Username             sql.NullString `db:"username"`
	Avatar               string         `db:"avatar"`
	HighestScore         int            `db:"highest_score"`
	TotalSnippetsGuessed int            `db:"total_snippets_guessed"`
	TotalGamesPlayed     int            `db:"total_games_played"`
}

func (dto userDTO) toModel() model.User {
	return model.User{
		ID:                   dto.ID,
		Username:             dto.Username.String,
		Avatar:               dto.Avatar,
		HighestScore:         dto.HighestScore,
		TotalSnippetsGuessed: dto.TotalSnippetsGuessed,
		TotalGamesPlayed:     dto.TotalGamesPlayed,
	}
}

func (r *Repository) Save(ctx context.Context, u model.User) error {
	query := `
		INSERT INTO users (id, username, avatar, highest_score, total_snippets_guessed, total_games_played)
		VALUES (:id, :username, :avatar, :highest_score, :total_snippets_guessed, :total_games_played)
		ON CONFLICT (id) DO UPDATE SET username = EXCLUDED.username, avatar = EXCLUDED.avatar
	`
	_, err := r.db.NamedExecContext(ctx, query, userDTO{
		ID:                   u.ID,
		Username:             sql.NullString{String: u.Username, Valid: u.Username != ""},
		Avatar:               u.Avatar,
		HighestScore:         u.HighestScore,
		TotalSnippetsGuessed: u.TotalSnippetsGuessed,
		TotalGamesPlayed:     u.TotalGamesPlayed,
	})
	if err != nil {
		if infra_postgres_common.IsUniqueViolation(err) {
			return model.NewError(model.ErrConflict, "username taken")
		}
		return err
	}
	return nil
}

func (r *Repository) ByID(ctx context.Context, id string) (model.User, error) {
	var row userDTO
	query := `
		SELECT id, username, avatar, highest_score, total_snippets_guessed, total_games_played
		FROM users
		WHERE id = $1
	`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, model.ErrUserNotFound
		}
		return model.User{}, err
	}
	return row.toModel(), nil
}

// Profiles skips ids that have no user row.
func (r *Repository) Profiles(ctx context.Context, userIDs []string) (map[string]model.Profile, error) {
	out := make(map[string]model.Profile, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	var rows []userDTO
	query := `
		SELECT id, username, avatar, highest_score, total_snippets_guessed, total_games_played
		FROM users
		WHERE id = ANY($1)
	`
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(userIDs)); err != nil {
		return nil, err
	}

	for _, row := range rows {
		out[row.ID] = model.Profile{UserID: row.ID, Username: row.Username.String, Avatar: row.Avatar}
	}
	return out, nil
}

// RecordGame adds one finished game to the user's totals in a single statement.
func (r *Repository) RecordGame(ctx context.Context, o model.GameOutcome) error {
	query := `
		INSERT INTO users (id, highest_score, total_snippets_guessed, total_games_played)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (id) DO UPDATE SET
			highest_score = GREATEST(users.highest_score, EXCLUDED.highest_score),
			total_snippets_guessed = users.total_snippets_guessed + EXCLUDED.total_snippets_guessed,
			total_games_played = users.total_games_played + 1
	`
	_, err := r.db.ExecContext(ctx, query, o.UserID, o.Score, o.CorrectCount)
	return err
}

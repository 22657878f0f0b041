package infra_postgres_snippet

import (
	"context"
	"database/sql"
	"errors"

	"github.com/humanbelnik/soundbyte/internal/model"
	"github.com/jmoiron/sqlx"
)

// ClassicType is the only snippet type multiplayer and solo games draw from.
const ClassicType = "classic"

type Repository struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

type snippetDTO struct {
	ID         string `db:"id"`
	Title      string `db:"title"`
	Artist     string `db:"artist"`
	Genre      string `db:"genre"`
	Difficulty string `db:"difficulty"`
	AudioURL   string `db:"audio_url"`
	Size       int    `db:"snippet_size"`
}

func (dto snippetDTO) toModel() model.Snippet {
	return model.Snippet{
		ID:         dto.ID,
		Title:      dto.Title,
		Artist:     dto.Artist,
		Genre:      dto.Genre,
		Difficulty: dto.Difficulty,
		AudioURL:   dto.AudioURL,
		Size:       dto.Size,
	}
}

func (r *Repository) Count(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM snippets WHERE type = $1`

	if err := r.db.GetContext(ctx, &count, query, ClassicType); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *Repository) Sample(ctx context.Context, n int) ([]model.Snippet, error) {
	var rows []snippetDTO
	query := `
		SELECT id, title, artist, genre, difficulty, audio_url, snippet_size
		FROM snippets
		WHERE type = $1
		ORDER BY random()
		LIMIT $2
	`
	if err := r.db.SelectContext(ctx, &rows, query, ClassicType, n); err != nil {
		return nil, err
	}

	out := make([]model.Snippet, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toModel())
	}
	return out, nil
}

func (r *Repository) ByID(ctx context.Context, id string) (model.Snippet, error) {
	var row snippetDTO
	query := `
		SELECT id, title, artist, genre, difficulty, audio_url, snippet_size
		FROM snippets
		WHERE id = $1
	`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Snippet{}, model.ErrSnippetNotFound
		}
		return model.Snippet{}, err
	}
	return row.toModel(), nil
}

// Save inserts or replaces a snippet, used to seed the catalog.
func (r *Repository) Save(ctx context.Context, s model.Snippet) error {
	query := `
		INSERT INTO snippets (id, title, artist, genre, difficulty, audio_url, snippet_size, type)
		VALUES (:id, :title, :artist, :genre, :difficulty, :audio_url, :snippet_size, '` + ClassicType + `')
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			artist = EXCLUDED.artist,
			genre = EXCLUDED.genre,
			difficulty = EXCLUDED.difficulty,
			audio_url = EXCLUDED.audio_url,
			snippet_size = EXCLUDED.snippet_size
	`
	_, err := r.db.NamedExecContext(ctx, query, snippetDTO{
		ID:         s.ID,
		Title:      s.Title,
		Artist:     s.Artist,
		Genre:      s.Genre,
		Difficulty: s.Difficulty,
		AudioURL:   s.AudioURL,
		Size:       s.Size,
	})
	return err
}

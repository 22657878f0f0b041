package usecase_questions

import (
	"context"
	"errors"

	"github.com/humanbelnik/soundbyte/internal/model"
)

//go:generate mockery --name=SnippetCatalog --output=./mocks --filename=catalog.go
type SnippetCatalog interface {
	Count(ctx context.Context) (int, error)
	// Sample returns n distinct snippets chosen uniformly at random.
	Sample(ctx context.Context, n int) ([]model.Snippet, error)
	ByID(ctx context.Context, id string) (model.Snippet, error)
}

type Usecase struct {
	catalog SnippetCatalog
}

func New(catalog SnippetCatalog) *Usecase {
	return &Usecase{catalog: catalog}
}

// Generate samples min(rounds, available) snippets for one game.
func (u *Usecase) Generate(ctx context.Context, rounds int) (model.QuestionSet, error) {
	snippets, err := u.sample(ctx, rounds)
	if err != nil {
		return model.QuestionSet{}, err
	}

	set := model.QuestionSet{
		Rounds:     len(snippets),
		Difficulty: model.DifficultyFromSize(snippets[0].Size),
		Snippets:   make([]model.QuestionSnippet, 0, len(snippets)),
	}
	for _, s := range snippets {
		set.Snippets = append(set.Snippets, model.QuestionSnippet{
			SnippetID: s.ID,
			AudioURL:  s.AudioURL,
			Title:     s.Title,
			Artist:    s.Artist,
		})
	}

	return set, nil
}

// Snippets is Generate for callers that need the full catalog entries.
func (u *Usecase) Snippets(ctx context.Context, rounds int) ([]model.Snippet, error) {
	return u.sample(ctx, rounds)
}

func (u *Usecase) Snippet(ctx context.Context, id string) (model.Snippet, error) {
	s, err := u.catalog.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Snippet{}, model.ErrSnippetNotFound
		}
		return model.Snippet{}, errors.Join(model.ErrInternal, err)
	}
	return s, nil
}

func (u *Usecase) sample(ctx context.Context, rounds int) ([]model.Snippet, error) {
	available, err := u.catalog.Count(ctx)
	if err != nil {
		return nil, errors.Join(model.ErrInternal, err)
	}
	if available == 0 {
		return nil, model.ErrNoSnippetsAvailable
	}

	take := min(max(rounds, 1), available)
	snippets, err := u.catalog.Sample(ctx, take)
	if err != nil {
		return nil, errors.Join(model.ErrInternal, err)
	}
	if len(snippets) == 0 {
		return nil, model.ErrNoSnippetsAvailable
	}

	return snippets, nil
}

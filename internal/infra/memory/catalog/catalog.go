package infra_memory_catalog

import (
	"context"
	"math/rand"
	"sync"

	"github.com/humanbelnik/soundbyte/internal/model"
)

// Catalog serves snippets from memory when no database is configured.
type Catalog struct {
	mu       sync.RWMutex
	snippets []model.Snippet
	byID     map[string]int
}

func New(snippets ...model.Snippet) *Catalog {
	c := &Catalog{byID: make(map[string]int)}
	for _, s := range snippets {
		c.Add(s)
	}
	return c
}

// Add replaces a snippet with the same id.
func (c *Catalog) Add(s model.Snippet) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i, ok := c.byID[s.ID]; ok {
		c.snippets[i] = s
		return
	}
	c.byID[s.ID] = len(c.snippets)
	c.snippets = append(c.snippets, s)
}

func (c *Catalog) Count(_ context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.snippets), nil
}

func (c *Catalog) Sample(_ context.Context, n int) ([]model.Snippet, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n = min(n, len(c.snippets))
	out := make([]model.Snippet, 0, n)
	for _, i := range rand.Perm(len(c.snippets))[:n] {
		out = append(out, c.snippets[i])
	}
	return out, nil
}

func (c *Catalog) ByID(_ context.Context, id string) (model.Snippet, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i, ok := c.byID[id]
	if !ok {
		return model.Snippet{}, model.ErrSnippetNotFound
	}
	return c.snippets[i], nil
}

// Demo is a small built-in catalog for local runs without Postgres.
func Demo() []model.Snippet {
	return []model.Snippet{
		{ID: "demo-01", Title: "Bohemian Rhapsody", Artist: "Queen", Genre: "rock", Size: 5},
		{ID: "demo-02", Title: "Stronger", Artist: "Kanye West", Genre: "hip-hop", Size: 5},
		{ID: "demo-03", Title: "Halo", Artist: "Beyoncé", Genre: "pop", Size: 5},
		{ID: "demo-04", Title: "Smells Like Teen Spirit", Artist: "Nirvana", Genre: "rock", Size: 3},
		{ID: "demo-05", Title: "Billie Jean", Artist: "Michael Jackson", Genre: "pop", Size: 5},
		{ID: "demo-06", Title: "Despacito", Artist: "Luis Fonsi", Genre: "latin", Size: 10},
		{ID: "demo-07", Title: "Rolling in the Deep", Artist: "Adele", Genre: "pop", Size: 5},
		{ID: "demo-08", Title: "Lose Yourself", Artist: "Eminem", Genre: "hip-hop", Size: 3},
		{ID: "demo-09", Title: "Hey Jude", Artist: "The Beatles", Genre: "rock", Size: 10},
		{ID: "demo-10", Title: "Blinding Lights", Artist: "The Weeknd", Genre: "pop", Size: 5},
	}
}

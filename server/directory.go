package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrConflict = errors.New("conflict")

// Directory manages the character and developer registries that projects
// reference by id.
type Directory struct {
	store Storage
	stats *Stats
}

func NewDirectory(store Storage, stats *Stats) *Directory {
	return &Directory{store: store, stats: stats}
}

func (d *Directory) AddCharacter(ctx context.Context, name string) (Character, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Character{}, fmt.Errorf("character name: %w", ErrValidation)
	}
	characters, err := d.store.Characters(ctx)
	if err != nil {
		return Character{}, err
	}
	var maxID int64
	for _, c := range characters {
		if c.ID > maxID {
			maxID = c.ID
		}
	}
	c := Character{ID: maxID + 1, Name: name}
	characters = append(characters, c)
	if err := d.store.SaveCharacters(ctx, characters); err != nil {
		return Character{}, err
	}
	return c, nil
}

func (d *Directory) DeleteCharacter(ctx context.Context, id int64) error {
	characters, err := d.store.Characters(ctx)
	if err != nil {
		return err
	}
	kept := characters[:0]
	for _, c := range characters {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(characters) {
		return fmt.Errorf("character %d: %w", id, ErrNotFound)
	}
	return d.store.SaveCharacters(ctx, kept)
}

func (d *Directory) Characters(ctx context.Context) ([]Character, error) {
	return d.store.Characters(ctx)
}

func (d *Directory) CharacterByID(ctx context.Context, id int64) (Character, error) {
	characters, err := d.store.Characters(ctx)
	if err != nil {
		return Character{}, err
	}
	for _, c := range characters {
		if c.ID == id {
			return c, nil
		}
	}
	return Character{}, fmt.Errorf("character %d: %w", id, ErrNotFound)
}

// AddDeveloper registers a developer. Usernames are unique ignoring case.
func (d *Directory) AddDeveloper(ctx context.Context, name, username string) (Developer, error) {
	name = strings.TrimSpace(name)
	username = strings.TrimSpace(strings.TrimPrefix(username, "@"))
	if name == "" || username == "" {
		return Developer{}, fmt.Errorf("developer name/username: %w", ErrValidation)
	}
	developers, err := d.store.Developers(ctx)
	if err != nil {
		return Developer{}, err
	}
	var maxID int64
	for _, dev := range developers {
		if strings.EqualFold(dev.Username, username) {
			return Developer{}, fmt.Errorf("username %q: %w", username, ErrConflict)
		}
		if dev.ID > maxID {
			maxID = dev.ID
		}
	}
	dev := Developer{ID: maxID + 1, Name: name, Username: username}
	developers = append(developers, dev)
	if err := d.store.SaveDevelopers(ctx, developers); err != nil {
		return Developer{}, err
	}
	return dev, nil
}

func (d *Directory) DeleteDeveloper(ctx context.Context, id int64) error {
	developers, err := d.store.Developers(ctx)
	if err != nil {
		return err
	}
	kept := developers[:0]
	for _, dev := range developers {
		if dev.ID != id {
			kept = append(kept, dev)
		}
	}
	if len(kept) == len(developers) {
		return fmt.Errorf("developer %d: %w", id, ErrNotFound)
	}
	return d.store.SaveDevelopers(ctx, kept)
}

// Developers returns the registry with counters freshly recomputed, so a
// display never shows drifted numbers.
func (d *Directory) Developers(ctx context.Context) ([]Developer, error) {
	if err := d.stats.RecomputeAll(ctx); err != nil {
		return nil, err
	}
	return d.store.Developers(ctx)
}

func (d *Directory) DeveloperByID(ctx context.Context, id int64) (Developer, error) {
	if err := d.stats.Recompute(ctx, id); err != nil {
		return Developer{}, err
	}
	developers, err := d.store.Developers(ctx)
	if err != nil {
		return Developer{}, err
	}
	for _, dev := range developers {
		if dev.ID == id {
			return dev, nil
		}
	}
	return Developer{}, fmt.Errorf("developer %d: %w", id, ErrNotFound)
}

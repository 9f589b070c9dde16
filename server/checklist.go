package main

import (
	"context"
	"fmt"
	"strings"
)

// Checklists gates forward pipeline movement. A checklist belongs to a
// status, not to a project; see the Checklist model for the sharing rule.
type Checklists struct {
	store Storage
}

func NewChecklists(store Storage) *Checklists { return &Checklists{store: store} }

// GetOrCreate returns the checklist for a status, creating an empty one on
// first use. Idempotent.
func (c *Checklists) GetOrCreate(ctx context.Context, statusID int64) (Checklist, error) {
	lists, err := c.store.Checklists(ctx)
	if err != nil {
		return Checklist{}, err
	}
	for _, cl := range lists {
		if cl.StatusID == statusID {
			return cl, nil
		}
	}
	cl := Checklist{StatusID: statusID}
	lists = append(lists, cl)
	if err := c.store.SaveChecklists(ctx, lists); err != nil {
		return Checklist{}, err
	}
	return cl, nil
}

// Get returns the checklist for a status without creating one.
func (c *Checklists) Get(ctx context.Context, statusID int64) (Checklist, bool, error) {
	lists, err := c.store.Checklists(ctx)
	if err != nil {
		return Checklist{}, false, err
	}
	for _, cl := range lists {
		if cl.StatusID == statusID {
			return cl, true, nil
		}
	}
	return Checklist{}, false, nil
}

// AddItem appends an unchecked item with a fresh per-checklist id.
func (c *Checklists) AddItem(ctx context.Context, statusID int64, text string) (ChecklistItem, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return ChecklistItem{}, fmt.Errorf("checklist item text: %w", ErrValidation)
	}
	lists, err := c.store.Checklists(ctx)
	if err != nil {
		return ChecklistItem{}, err
	}
	idx := -1
	for i, cl := range lists {
		if cl.StatusID == statusID {
			idx = i
			break
		}
	}
	if idx < 0 {
		lists = append(lists, Checklist{StatusID: statusID})
		idx = len(lists) - 1
	}
	var maxID int64
	for _, it := range lists[idx].Items {
		if it.ID > maxID {
			maxID = it.ID
		}
	}
	item := ChecklistItem{ID: maxID + 1, Text: text}
	lists[idx].Items = append(lists[idx].Items, item)
	if err := c.store.SaveChecklists(ctx, lists); err != nil {
		return ChecklistItem{}, err
	}
	return item, nil
}

// RemoveItem reports whether an item was deleted.
func (c *Checklists) RemoveItem(ctx context.Context, statusID, itemID int64) (bool, error) {
	lists, err := c.store.Checklists(ctx)
	if err != nil {
		return false, err
	}
	for i, cl := range lists {
		if cl.StatusID != statusID {
			continue
		}
		kept := cl.Items[:0]
		for _, it := range cl.Items {
			if it.ID != itemID {
				kept = append(kept, it)
			}
		}
		if len(kept) == len(cl.Items) {
			return false, nil
		}
		lists[i].Items = kept
		if err := c.store.SaveChecklists(ctx, lists); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// Toggle flips one item's checked flag.
func (c *Checklists) Toggle(ctx context.Context, statusID, itemID int64) (bool, error) {
	lists, err := c.store.Checklists(ctx)
	if err != nil {
		return false, err
	}
	for i, cl := range lists {
		if cl.StatusID != statusID {
			continue
		}
		for j, it := range cl.Items {
			if it.ID == itemID {
				lists[i].Items[j].Checked = !it.Checked
				if err := c.store.SaveChecklists(ctx, lists); err != nil {
					return false, err
				}
				return true, nil
			}
		}
		return false, nil
	}
	return false, nil
}

// Reset unchecks every item, readying the checklist for the next project
// that reaches this status. A missing checklist is a no-op.
func (c *Checklists) Reset(ctx context.Context, statusID int64) error {
	lists, err := c.store.Checklists(ctx)
	if err != nil {
		return err
	}
	for i, cl := range lists {
		if cl.StatusID != statusID {
			continue
		}
		changed := false
		for j, it := range cl.Items {
			if it.Checked {
				lists[i].Items[j].Checked = false
				changed = true
			}
		}
		if changed {
			return c.store.SaveChecklists(ctx, lists)
		}
		return nil
	}
	return nil
}

// IsComplete is true when the checklist is absent, empty, or fully checked.
func (c *Checklists) IsComplete(ctx context.Context, statusID int64) (bool, error) {
	cl, ok, err := c.Get(ctx, statusID)
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	return cl.IsComplete(), nil
}

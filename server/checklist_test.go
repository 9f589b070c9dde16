package main

import (
	"context"
	"errors"
	"testing"
)

func TestChecklistGetOrCreateIdempotent(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	cl, err := e.checklists.GetOrCreate(ctx, 2)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if cl.StatusID != 2 || len(cl.Items) != 0 {
		t.Errorf("GetOrCreate = %+v, want empty checklist for status 2", cl)
	}

	if _, err := e.checklists.AddItem(ctx, 2, "render sprites"); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	cl, err = e.checklists.GetOrCreate(ctx, 2)
	if err != nil {
		t.Fatalf("GetOrCreate again: %v", err)
	}
	if len(cl.Items) != 1 {
		t.Errorf("second GetOrCreate lost items: %+v", cl)
	}
}

func TestChecklistAddItem(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	first, err := e.checklists.AddItem(ctx, 1, "  write copy  ")
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if first.ID != 1 || first.Text != "write copy" || first.Checked {
		t.Errorf("AddItem = %+v, want id 1, trimmed text, unchecked", first)
	}
	second, err := e.checklists.AddItem(ctx, 1, "review copy")
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if second.ID != 2 {
		t.Errorf("second item id = %d, want 2", second.ID)
	}
	if _, err := e.checklists.AddItem(ctx, 1, "   "); !errors.Is(err, ErrValidation) {
		t.Errorf("AddItem blank: got %v, want ErrValidation", err)
	}
}

func TestChecklistRemoveItem(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	item, err := e.checklists.AddItem(ctx, 1, "task")
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	removed, err := e.checklists.RemoveItem(ctx, 1, item.ID)
	if err != nil || !removed {
		t.Fatalf("RemoveItem = %v, %v, want true, nil", removed, err)
	}
	removed, err = e.checklists.RemoveItem(ctx, 1, item.ID)
	if err != nil || removed {
		t.Errorf("RemoveItem twice = %v, %v, want false, nil", removed, err)
	}
	removed, err = e.checklists.RemoveItem(ctx, 42, 1)
	if err != nil || removed {
		t.Errorf("RemoveItem on missing checklist = %v, %v, want false, nil", removed, err)
	}
}

func TestChecklistToggle(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	item, err := e.checklists.AddItem(ctx, 1, "task")
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	ok, err := e.checklists.Toggle(ctx, 1, item.ID)
	if err != nil || !ok {
		t.Fatalf("Toggle = %v, %v, want true, nil", ok, err)
	}
	cl, _, err := e.checklists.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !cl.Items[0].Checked {
		t.Error("item not checked after Toggle")
	}
	if _, err := e.checklists.Toggle(ctx, 1, item.ID); err != nil {
		t.Fatalf("Toggle back: %v", err)
	}
	cl, _, _ = e.checklists.Get(ctx, 1)
	if cl.Items[0].Checked {
		t.Error("item still checked after second Toggle")
	}

	ok, err = e.checklists.Toggle(ctx, 1, 99)
	if err != nil || ok {
		t.Errorf("Toggle unknown item = %v, %v, want false, nil", ok, err)
	}
}

func TestChecklistCompletion(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	// no checklist at all: nothing blocks
	done, err := e.checklists.IsComplete(ctx, 5)
	if err != nil || !done {
		t.Fatalf("IsComplete absent = %v, %v, want true, nil", done, err)
	}

	// empty checklist: still complete
	if _, err := e.checklists.GetOrCreate(ctx, 5); err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	done, _ = e.checklists.IsComplete(ctx, 5)
	if !done {
		t.Error("IsComplete empty checklist = false, want true")
	}

	a, _ := e.checklists.AddItem(ctx, 5, "a")
	b, _ := e.checklists.AddItem(ctx, 5, "b")
	done, _ = e.checklists.IsComplete(ctx, 5)
	if done {
		t.Error("IsComplete with unchecked items = true, want false")
	}

	e.checklists.Toggle(ctx, 5, a.ID)
	done, _ = e.checklists.IsComplete(ctx, 5)
	if done {
		t.Error("IsComplete with one of two checked = true, want false")
	}
	e.checklists.Toggle(ctx, 5, b.ID)
	done, _ = e.checklists.IsComplete(ctx, 5)
	if !done {
		t.Error("IsComplete with all checked = false, want true")
	}
}

func TestChecklistReset(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	if err := e.checklists.Reset(ctx, 9); err != nil {
		t.Fatalf("Reset missing checklist: %v", err)
	}

	a, _ := e.checklists.AddItem(ctx, 9, "a")
	b, _ := e.checklists.AddItem(ctx, 9, "b")
	e.checklists.Toggle(ctx, 9, a.ID)
	e.checklists.Toggle(ctx, 9, b.ID)

	if err := e.checklists.Reset(ctx, 9); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	cl, _, err := e.checklists.Get(ctx, 9)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	for _, it := range cl.Items {
		if it.Checked {
			t.Errorf("item %d still checked after Reset", it.ID)
		}
	}
	if len(cl.Items) != 2 {
		t.Errorf("Reset dropped items: %d left, want 2", len(cl.Items))
	}
	done, _ := e.checklists.IsComplete(ctx, 9)
	if done {
		t.Error("checklist complete right after Reset, want incomplete")
	}
}

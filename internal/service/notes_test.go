package service

import (
	"context"
	"errors"
	"testing"

	"github.com/garlicdoggoe/astrosynergy/internal/models"
	"github.com/garlicdoggoe/astrosynergy/internal/util"
)

func TestNotes_SaveUpsertsAndEncrypts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	empty, err := f.Notes.GetByDate(ctx, alice, "2026-10-01")
	if err != nil {
		t.Fatal(err)
	}
	if empty.ID != 0 || empty.Content != "" {
		t.Fatalf("missing note = %+v", empty)
	}

	if _, err := f.Notes.Save(ctx, alice, "2026-10-01", "first"); err != nil {
		t.Fatal(err)
	}
	n, err := f.Notes.Save(ctx, alice, "2026-10-01", "second")
	if err != nil {
		t.Fatal(err)
	}
	if n.Content != "second" || n.ID == 0 {
		t.Fatalf("note = %+v", n)
	}

	var count int64
	f.deps.DB.Model(&models.Note{}).Where("user_id = ?", alice).Count(&count)
	if count != 1 {
		t.Errorf("%d notes for one date, want 1", count)
	}
	var raw models.Note
	f.deps.DB.Where("user_id = ?", alice).First(&raw)
	if raw.Content == "second" {
		t.Error("note stored in clear")
	}

	if _, err := f.Notes.Save(ctx, alice, "01/10/2026", "x"); !errors.Is(err, util.ErrValidation) {
		t.Errorf("bad date error = %v", err)
	}
}

func TestNotes_ListAllNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, d := range []string{"2026-09-30", "2026-10-02", "2026-10-01"} {
		if _, err := f.Notes.Save(ctx, alice, d, "note "+d); err != nil {
			t.Fatal(err)
		}
	}
	_, _ = f.Notes.Save(ctx, bob, "2026-10-03", "bob")

	notes, err := f.Notes.ListAll(ctx, alice)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"2026-10-02", "2026-10-01", "2026-09-30"}
	if len(notes) != len(want) {
		t.Fatalf("len = %d", len(notes))
	}
	for i, d := range want {
		if notes[i].Date != d || notes[i].Content != "note "+d {
			t.Errorf("notes[%d] = %s %q", i, notes[i].Date, notes[i].Content)
		}
	}
}

package service

import (
	"context"
	"errors"
	"testing"

	"github.com/garlicdoggoe/astrosynergy/internal/models"
	"github.com/garlicdoggoe/astrosynergy/internal/util"
)

func orders(cols []models.CustomColumn) []int {
	out := make([]int, len(cols))
	for i, c := range cols {
		out[i] = c.Order
	}
	return out
}

func assertDense(t *testing.T, cols []models.CustomColumn) {
	t.Helper()
	for i, c := range cols {
		if c.Order != i {
			t.Fatalf("orders = %v, want 0..%d", orders(cols), len(cols)-1)
		}
	}
}

func TestColumns_AddAssignsNextOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i, name := range []string{"Setup", "Grade", "Chart"} {
		col, err := f.Columns.Add(ctx, alice, name, models.ColumnString)
		if err != nil {
			t.Fatal(err)
		}
		if col.Order != i || col.ID == "" {
			t.Fatalf("column %s = %+v", name, col)
		}
	}
	// other owners start at 0
	col, _ := f.Columns.Add(ctx, bob, "Mine", models.ColumnNumber)
	if col.Order != 0 {
		t.Errorf("bob's first order = %d", col.Order)
	}

	if _, err := f.Columns.Add(ctx, alice, "  ", models.ColumnString); !errors.Is(err, util.ErrValidation) {
		t.Errorf("blank name error = %v", err)
	}
	if _, err := f.Columns.Add(ctx, alice, "X", "date"); !errors.Is(err, util.ErrValidation) {
		t.Errorf("bad type error = %v", err)
	}
}

func TestColumns_DeleteStripsValuesAndRenumbers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, _ := f.Columns.Add(ctx, alice, "A", models.ColumnString)
	b, _ := f.Columns.Add(ctx, alice, "B", models.ColumnNumber)
	c, _ := f.Columns.Add(ctx, alice, "C", models.ColumnString)

	tr := f.addTrade(t, alice, "2026-10-01", "10", models.CustomData{
		a.ID: models.StringValue("breakout"),
		b.ID: models.NumberValue(amount("2.5")),
	})

	if err := f.Columns.Delete(ctx, alice, b.ID); err != nil {
		t.Fatal(err)
	}

	got, err := f.Trades.Get(ctx, alice, tr.ID)
	if err != nil {
		t.Fatal(err)
	}
	data := got.CustomData.Data()
	if _, ok := data[b.ID]; ok {
		t.Fatalf("deleted column key still present: %+v", data)
	}
	if data[a.ID].Text != "breakout" {
		t.Errorf("other values lost: %+v", data)
	}

	cols, _ := f.Columns.List(ctx, alice)
	if len(cols) != 2 || cols[0].ID != a.ID || cols[1].ID != c.ID {
		t.Fatalf("remaining columns = %+v", cols)
	}
	assertDense(t, cols)
}

func TestColumns_DeleteImageColumnRemovesFiles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	col, _ := f.Columns.Add(ctx, alice, "Chart", models.ColumnImage)
	img := f.upload(t, alice, "png")
	f.addTrade(t, alice, "2026-10-01", "10", models.CustomData{col.ID: models.ImageValue(img.ID)})

	if err := f.Columns.Delete(ctx, alice, col.ID); err != nil {
		t.Fatal(err)
	}
	if f.fileExists(t, img) {
		t.Error("image still on disk after column delete")
	}
}

func TestColumns_DeleteOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	col, _ := f.Columns.Add(ctx, alice, "A", models.ColumnString)

	if err := f.Columns.Delete(ctx, bob, col.ID); !errors.Is(err, util.ErrForbidden) {
		t.Errorf("error = %v, want ErrForbidden", err)
	}
	if err := f.Columns.Delete(ctx, alice, "missing"); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestColumns_Reorder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, _ := f.Columns.Add(ctx, alice, "A", models.ColumnString)
	b, _ := f.Columns.Add(ctx, alice, "B", models.ColumnString)
	c, _ := f.Columns.Add(ctx, alice, "C", models.ColumnString)

	cols, err := f.Columns.Reorder(ctx, alice, []string{c.ID, a.ID, b.ID})
	if err != nil {
		t.Fatal(err)
	}
	if cols[0].ID != c.ID || cols[1].ID != a.ID || cols[2].ID != b.ID {
		t.Fatalf("order = %s %s %s", cols[0].Name, cols[1].Name, cols[2].Name)
	}
	assertDense(t, cols)

	bad := [][]string{
		{a.ID, b.ID},
		{a.ID, a.ID, b.ID},
		{a.ID, b.ID, "other"},
	}
	for _, ids := range bad {
		if _, err := f.Columns.Reorder(ctx, alice, ids); !errors.Is(err, util.ErrValidation) {
			t.Errorf("Reorder(%v) error = %v, want ErrValidation", ids, err)
		}
	}
	// rejected reorders leave the last good order
	cols, _ = f.Columns.List(ctx, alice)
	if cols[0].ID != c.ID {
		t.Errorf("order changed by rejected reorder")
	}
}

func TestColumns_Rename(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	col, _ := f.Columns.Add(ctx, alice, "Setp", models.ColumnString)

	name := "Setup"
	got, err := f.Columns.Update(ctx, alice, col.ID, ColumnPatch{Name: &name})
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Setup" || got.Type != models.ColumnString {
		t.Errorf("column = %+v", got)
	}
}

func TestColumns_DeleteKeepsImageUsedByAnotherColumn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	before, _ := f.Columns.Add(ctx, alice, "Before", models.ColumnImage)
	after, _ := f.Columns.Add(ctx, alice, "After", models.ColumnImage)
	img := f.upload(t, alice, "png")
	f.addTrade(t, alice, "2026-10-01", "10", models.CustomData{before.ID: models.ImageValue(img.ID)})
	f.addTrade(t, alice, "2026-10-02", "10", models.CustomData{after.ID: models.ImageValue(img.ID)})

	if err := f.Columns.Delete(ctx, alice, before.ID); err != nil {
		t.Fatal(err)
	}
	if !f.fileExists(t, img) {
		t.Fatal("image removed while column After still uses it")
	}

	typ := models.ColumnString
	if _, err := f.Columns.Update(ctx, alice, after.ID, ColumnPatch{Type: &typ}); err != nil {
		t.Fatal(err)
	}
	if f.fileExists(t, img) {
		t.Error("image kept after its last reference was retyped away")
	}
}

func TestColumns_RetypeDropsMismatchedValues(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	col, _ := f.Columns.Add(ctx, alice, "Chart", models.ColumnImage)
	other, _ := f.Columns.Add(ctx, alice, "Note", models.ColumnString)
	img := f.upload(t, alice, "png")
	tr := f.addTrade(t, alice, "2026-10-01", "10", models.CustomData{
		col.ID:   models.ImageValue(img.ID),
		other.ID: models.StringValue("keep"),
	})

	typ := models.ColumnString
	got, err := f.Columns.Update(ctx, alice, col.ID, ColumnPatch{Type: &typ})
	if err != nil {
		t.Fatal(err)
	}
	if got.Type != models.ColumnString {
		t.Errorf("type = %s", got.Type)
	}
	if f.fileExists(t, img) {
		t.Error("image kept after retype away from image")
	}
	after, _ := f.Trades.Get(ctx, alice, tr.ID)
	data := after.CustomData.Data()
	if _, ok := data[col.ID]; ok {
		t.Errorf("stale image value kept: %+v", data)
	}
	if data[other.ID].Text != "keep" {
		t.Errorf("unrelated value lost: %+v", data)
	}
}

package service

import (
	"context"
	"errors"
	"testing"

	"github.com/garlicdoggoe/astrosynergy/internal/analytics"
	"github.com/garlicdoggoe/astrosynergy/internal/models"
	"github.com/garlicdoggoe/astrosynergy/internal/util"
)

func TestTrades_InsertNormalizes(t *testing.T) {
	f := newFixture(t)
	tr := f.addTrade(t, alice, "2026-10-01", "12.5", nil)

	if tr.ID == 0 || tr.Ticker != "AAPL" || tr.Direction != models.DirectionLong {
		t.Fatalf("trade = %+v", tr)
	}
	got, err := f.Trades.Get(context.Background(), alice, tr.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.ProfitLoss.Equal(amount("12.5")) {
		t.Errorf("ProfitLoss = %s, want 12.5", got.ProfitLoss)
	}
}

func TestTrades_InsertValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := TradeInput{Ticker: "MSFT", Date: "2026-10-01", Time: "10:00", ProfitLoss: amount("1")}

	tests := []struct {
		name   string
		modify func(*TradeInput)
	}{
		{"empty ticker", func(in *TradeInput) { in.Ticker = "" }},
		{"bad date", func(in *TradeInput) { in.Date = "2026/10/01" }},
		{"bad time", func(in *TradeInput) { in.Time = "25:00" }},
		{"bad direction", func(in *TradeInput) { in.Direction = "sideways" }},
		{"huge amount", func(in *TradeInput) { in.ProfitLoss = amount("1000000000") }},
		{"unknown column", func(in *TradeInput) {
			in.CustomData = models.CustomData{"nope": models.StringValue("x")}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base
			tt.modify(&in)
			_, err := f.Trades.Insert(ctx, alice, in)
			if !errors.Is(err, util.ErrValidation) {
				t.Fatalf("error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestTrades_OwnershipErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tr := f.addTrade(t, alice, "2026-10-01", "10", nil)

	if _, err := f.Trades.Get(ctx, bob, tr.ID); !errors.Is(err, util.ErrForbidden) {
		t.Errorf("Get by other owner error = %v, want ErrForbidden", err)
	}
	if err := f.Trades.Delete(ctx, bob, tr.ID); !errors.Is(err, util.ErrForbidden) {
		t.Errorf("Delete by other owner error = %v, want ErrForbidden", err)
	}
	if _, err := f.Trades.Get(ctx, alice, 9999); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("Get missing error = %v, want ErrNotFound", err)
	}
	// failed delete left the trade alone
	if _, err := f.Trades.Get(ctx, alice, tr.ID); err != nil {
		t.Errorf("trade gone after forbidden delete: %v", err)
	}
}

func TestTrades_NoteEncryptedAtRest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tr, err := f.Trades.Insert(ctx, alice, TradeInput{
		Ticker: "SPY", Date: "2026-10-02", Time: "11:00", ProfitLoss: amount("-3"), Note: "chased the open",
	})
	if err != nil {
		t.Fatal(err)
	}

	var raw models.Trade
	if err := f.deps.DB.First(&raw, tr.ID).Error; err != nil {
		t.Fatal(err)
	}
	if raw.Note == "" || raw.Note == "chased the open" {
		t.Fatalf("note stored in clear: %q", raw.Note)
	}
	got, _ := f.Trades.Get(ctx, alice, tr.ID)
	if got.Note != "chased the open" {
		t.Errorf("Note = %q", got.Note)
	}
}

func TestTrades_ListVariants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addTrade(t, alice, "2026-10-01", "1", nil)
	f.addTrade(t, alice, "2026-10-05", "2", nil)
	last := f.addTrade(t, alice, "2026-10-05", "3", nil)
	f.addTrade(t, bob, "2026-10-05", "4", nil)

	all, err := f.Trades.ListForOwner(ctx, alice)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].ID != last.ID {
		t.Fatalf("ListForOwner = %d trades, first id %d", len(all), all[0].ID)
	}

	day, _ := f.Trades.ListForOwnerAndDate(ctx, alice, "2026-10-05")
	if len(day) != 2 {
		t.Errorf("ListForOwnerAndDate = %d, want 2", len(day))
	}
	if _, err := f.Trades.ListForOwnerAndDate(ctx, alice, "oct 5"); !errors.Is(err, util.ErrValidation) {
		t.Errorf("bad date error = %v", err)
	}

	in, _ := f.Trades.ListInRange(ctx, alice, analytics.DateRange{Start: "2026-10-02", End: "2026-10-31"})
	if len(in) != 2 {
		t.Errorf("ListInRange = %d, want 2", len(in))
	}

	page, total, err := f.Trades.Query(ctx, alice, TradeQuery{Page: 2, PageSize: 2})
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || len(page) != 1 {
		t.Errorf("page 2 = %d items, total %d", len(page), total)
	}
}

func TestTrades_Patch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tr := f.addTrade(t, alice, "2026-10-01", "10", nil)

	short := models.DirectionShort
	pl := amount("-7.25")
	note := "stopped out"
	got, err := f.Trades.Patch(ctx, alice, tr.ID, TradePatch{Direction: &short, ProfitLoss: &pl, Note: &note})
	if err != nil {
		t.Fatal(err)
	}
	if got.Direction != short || !got.ProfitLoss.Equal(pl) || got.Note != note || got.Ticker != "AAPL" {
		t.Fatalf("patched = %+v", got)
	}

	bad := "not-a-date"
	if _, err := f.Trades.Patch(ctx, alice, tr.ID, TradePatch{Date: &bad}); !errors.Is(err, util.ErrValidation) {
		t.Fatalf("bad patch error = %v", err)
	}
	again, _ := f.Trades.Get(ctx, alice, tr.ID)
	if again.Date != "2026-10-01" {
		t.Errorf("failed patch changed date to %s", again.Date)
	}
}

func TestTrades_ImageLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	col, err := f.Columns.Add(ctx, alice, "Chart", models.ColumnImage)
	if err != nil {
		t.Fatal(err)
	}
	first := f.upload(t, alice, "png-1")
	second := f.upload(t, alice, "png-2")

	tr := f.addTrade(t, alice, "2026-10-01", "10", models.CustomData{col.ID: models.ImageValue(first.ID)})

	// replacing the image deletes the old one
	next := models.CustomData{col.ID: models.ImageValue(second.ID)}
	if _, err := f.Trades.Patch(ctx, alice, tr.ID, TradePatch{CustomData: &next}); err != nil {
		t.Fatal(err)
	}
	if f.fileExists(t, first) {
		t.Error("replaced image still on disk")
	}
	if _, err := f.Files.Get(ctx, alice, first.ID); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("replaced image record error = %v, want ErrNotFound", err)
	}

	// deleting the trade deletes the remaining image
	if err := f.Trades.Delete(ctx, alice, tr.ID); err != nil {
		t.Fatal(err)
	}
	if f.fileExists(t, second) {
		t.Error("image of deleted trade still on disk")
	}
}

func TestTrades_SharedImageKeptUntilLastReference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	col, _ := f.Columns.Add(ctx, alice, "Chart", models.ColumnImage)
	shared := f.upload(t, alice, "png")
	data := models.CustomData{col.ID: models.ImageValue(shared.ID)}
	a := f.addTrade(t, alice, "2026-10-01", "10", data)
	b := f.addTrade(t, alice, "2026-10-02", "20", data)
	c := f.addTrade(t, alice, "2026-10-03", "30", data)

	// dropping the image from one trade keeps it for the others
	empty := models.CustomData{}
	if _, err := f.Trades.Patch(ctx, alice, c.ID, TradePatch{CustomData: &empty}); err != nil {
		t.Fatal(err)
	}
	if err := f.Trades.Delete(ctx, alice, a.ID); err != nil {
		t.Fatal(err)
	}
	if !f.fileExists(t, shared) {
		t.Fatal("shared image removed while trade B still uses it")
	}
	if _, err := f.Files.Get(ctx, alice, shared.ID); err != nil {
		t.Fatalf("shared image record: %v", err)
	}

	if err := f.Trades.Delete(ctx, alice, b.ID); err != nil {
		t.Fatal(err)
	}
	if f.fileExists(t, shared) {
		t.Error("image kept after its last trade was deleted")
	}
	if _, err := f.Files.Get(ctx, alice, shared.ID); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("record error = %v, want ErrNotFound", err)
	}
}

func TestTrades_RejectsForeignImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	col, _ := f.Columns.Add(ctx, alice, "Chart", models.ColumnImage)
	bobs := f.upload(t, bob, "png")

	_, err := f.Trades.Insert(ctx, alice, TradeInput{
		Ticker: "QQQ", Date: "2026-10-01", Time: "09:31", ProfitLoss: amount("1"),
		CustomData: models.CustomData{col.ID: models.ImageValue(bobs.ID)},
	})
	if !errors.Is(err, util.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
}

func TestTrades_RejectsTypeMismatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	col, _ := f.Columns.Add(ctx, alice, "Setup", models.ColumnString)

	_, err := f.Trades.Insert(ctx, alice, TradeInput{
		Ticker: "QQQ", Date: "2026-10-01", Time: "09:31", ProfitLoss: amount("1"),
		CustomData: models.CustomData{col.ID: models.NumberValue(amount("3"))},
	})
	if !errors.Is(err, util.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
}

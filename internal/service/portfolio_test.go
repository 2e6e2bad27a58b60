package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/garlicdoggoe/astrosynergy/internal/util"
)

func TestPortfolio_DefaultsAndDerived(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addTrade(t, alice, "2026-10-01", "250", nil)
	f.addTrade(t, alice, "2026-10-02", "-50", nil)

	p, err := f.Portfolio.Get(ctx, alice)
	if err != nil {
		t.Fatal(err)
	}
	if p.Saved {
		t.Error("Saved = true before any upsert")
	}
	if !p.StartingBalance.Equal(DefaultStartingBalance) || !p.RiskPercentage.Equal(DefaultRiskPercentage) {
		t.Errorf("defaults = %s / %s", p.StartingBalance, p.RiskPercentage)
	}
	if !p.TotalPnL.Equal(amount("200")) || !p.CurrentBalance.Equal(amount("10200")) {
		t.Errorf("total %s current %s", p.TotalPnL, p.CurrentBalance)
	}
	if !p.RiskAmount.Equal(amount("102")) {
		t.Errorf("RiskAmount = %s, want 102", p.RiskAmount)
	}
}

func TestPortfolio_Upsert(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	start := amount("5000")
	p, err := f.Portfolio.Upsert(ctx, alice, PortfolioPatch{StartingBalance: &start})
	if err != nil {
		t.Fatal(err)
	}
	if !p.Saved || !p.StartingBalance.Equal(start) || !p.RiskPercentage.Equal(DefaultRiskPercentage) {
		t.Fatalf("after first upsert = %+v", p)
	}

	risk := amount("2.5")
	p, err = f.Portfolio.Upsert(ctx, alice, PortfolioPatch{RiskPercentage: &risk})
	if err != nil {
		t.Fatal(err)
	}
	if !p.StartingBalance.Equal(start) || !p.RiskPercentage.Equal(risk) {
		t.Fatalf("after second upsert = %+v", p)
	}
	if !p.RiskAmount.Equal(amount("125")) {
		t.Errorf("RiskAmount = %s, want 125", p.RiskAmount)
	}

	for _, bad := range []decimal.Decimal{amount("-1"), amount("100.5")} {
		b := bad
		if _, err := f.Portfolio.Upsert(ctx, alice, PortfolioPatch{RiskPercentage: &b}); !errors.Is(err, util.ErrValidation) {
			t.Errorf("risk %s error = %v, want ErrValidation", bad, err)
		}
	}
	neg := amount("-10")
	if _, err := f.Portfolio.Upsert(ctx, alice, PortfolioPatch{StartingBalance: &neg}); !errors.Is(err, util.ErrValidation) {
		t.Errorf("negative balance error = %v", err)
	}

	// bob is unaffected
	other, _ := f.Portfolio.Get(ctx, bob)
	if other.Saved || !other.StartingBalance.Equal(DefaultStartingBalance) {
		t.Errorf("bob's portfolio = %+v", other)
	}
}

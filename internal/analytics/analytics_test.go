package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garlicdoggoe/astrosynergy/internal/models"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func trade(id uint, date, pl string) models.Trade {
	return models.Trade{
		ID:         id,
		UserID:     1,
		Ticker:     "AAPL",
		Date:       date,
		Time:       "09:30",
		Direction:  models.DirectionLong,
		ProfitLoss: d(pl),
		CreatedAt:  time.Date(2025, 1, 1, 0, 0, int(id), 0, time.UTC),
	}
}

var classifier = NewClassifier(DefaultBreakevenThreshold)

func TestOutcome(t *testing.T) {
	tests := []struct {
		pl   string
		want Outcome
	}{
		{"100", Win},
		{"5.01", Win},
		{"5", BreakEven},
		{"0", BreakEven},
		{"-5", BreakEven},
		{"-5.01", Loss},
		{"-40", Loss},
	}
	for _, tt := range tests {
		if got := classifier.Outcome(d(tt.pl)); got != tt.want {
			t.Errorf("Outcome(%s) = %s, want %s", tt.pl, got, tt.want)
		}
	}
}

func TestNewClassifier_NegativeThreshold(t *testing.T) {
	c := NewClassifier(d("-2"))
	if !c.Threshold().Equal(d("2")) {
		t.Fatalf("threshold = %s, want 2", c.Threshold())
	}
	if c.Outcome(d("3")) != Win {
		t.Errorf("3 should be a win with threshold 2")
	}
}

func TestSummarize_Example(t *testing.T) {
	trades := []models.Trade{
		trade(1, "2025-03-01", "100"),
		trade(2, "2025-03-02", "-40"),
		trade(3, "2025-03-03", "-10"),
	}
	s := classifier.Summarize(trades, d("10000"))

	if s.TotalTrades != 3 || s.Wins != 1 || s.Losses != 2 || s.BreakEvens != 0 {
		t.Fatalf("counts = %d/%d/%d/%d", s.TotalTrades, s.Wins, s.Losses, s.BreakEvens)
	}
	if !s.GrossProfit.Equal(d("100")) {
		t.Errorf("GrossProfit = %s, want 100", s.GrossProfit)
	}
	if !s.GrossLoss.Equal(d("50")) {
		t.Errorf("GrossLoss = %s, want 50", s.GrossLoss)
	}
	if s.ProfitFactor != 2 {
		t.Errorf("ProfitFactor = %v, want 2", s.ProfitFactor)
	}
	if !s.MaxDrawdown.Equal(d("50")) {
		t.Errorf("MaxDrawdown = %s, want 50", s.MaxDrawdown)
	}
	if !s.NetProfit.Equal(d("50")) {
		t.Errorf("NetProfit = %s, want 50", s.NetProfit)
	}
	if !s.AvgLoss.Equal(d("25")) {
		t.Errorf("AvgLoss = %s, want 25", s.AvgLoss)
	}
	if s.RewardRiskRatio != 4 {
		t.Errorf("RewardRiskRatio = %v, want 4", s.RewardRiskRatio)
	}
	if s.ReturnPct != 0.5 {
		t.Errorf("ReturnPct = %v, want 0.5", s.ReturnPct)
	}
	if s.BestTrade == nil || s.BestTrade.ID != 1 {
		t.Errorf("BestTrade = %+v, want id 1", s.BestTrade)
	}
	if s.WorstTrade == nil || s.WorstTrade.ID != 2 {
		t.Errorf("WorstTrade = %+v, want id 2", s.WorstTrade)
	}
	if s.LongWon != 1 || s.ShortWon != 0 {
		t.Errorf("LongWon/ShortWon = %d/%d, want 1/0", s.LongWon, s.ShortWon)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := classifier.Summarize(nil, decimal.Zero)
	if s.TotalTrades != 0 || s.WinRate != 0 || s.ProfitFactor != 0 || s.RewardRiskRatio != 0 {
		t.Fatalf("unexpected non-zero summary: %+v", s)
	}
	if !s.MaxDrawdown.IsZero() || s.BestTrade != nil || s.WorstTrade != nil {
		t.Fatalf("unexpected summary: %+v", s)
	}
}

func TestSummarize_NoLossesFallsBackToGrossProfit(t *testing.T) {
	trades := []models.Trade{trade(1, "2025-03-01", "30"), trade(2, "2025-03-02", "20")}
	s := classifier.Summarize(trades, decimal.Zero)
	if s.ProfitFactor != 50 {
		t.Errorf("ProfitFactor = %v, want 50", s.ProfitFactor)
	}
	if s.RewardRiskRatio != 25 {
		t.Errorf("RewardRiskRatio = %v, want 25", s.RewardRiskRatio)
	}
	if s.ReturnPct != 0 {
		t.Errorf("ReturnPct = %v, want 0 without starting balance", s.ReturnPct)
	}
}

func TestSummarize_RatesSumToHundred(t *testing.T) {
	trades := []models.Trade{
		trade(1, "2025-03-01", "12"),
		trade(2, "2025-03-01", "-3"),
		trade(3, "2025-03-02", "-80"),
		trade(4, "2025-03-04", "1"),
		trade(5, "2025-03-05", "7"),
		trade(6, "2025-03-06", "-6"),
		trade(7, "2025-03-07", "0"),
	}
	s := classifier.Summarize(trades, decimal.Zero)
	sum := s.WinRate + s.LossRate + s.BreakEvenRate
	if math.Abs(sum-100) > 1e-9 {
		t.Fatalf("rates sum = %v, want 100", sum)
	}
}

func TestSummarize_DirectionWins(t *testing.T) {
	short := trade(2, "2025-03-02", "50")
	short.Direction = models.DirectionShort
	trades := []models.Trade{trade(1, "2025-03-01", "50"), short, trade(3, "2025-03-03", "-50")}
	s := classifier.Summarize(trades, decimal.Zero)
	if s.LongWon != 1 || s.ShortWon != 1 {
		t.Fatalf("LongWon/ShortWon = %d/%d, want 1/1", s.LongWon, s.ShortWon)
	}
}

func TestMaxDrawdown(t *testing.T) {
	tests := []struct {
		name   string
		trades []models.Trade
		want   string
	}{
		{"empty", nil, "0"},
		{"all zero", []models.Trade{trade(1, "2025-01-01", "0"), trade(2, "2025-01-02", "0")}, "0"},
		{"only gains", []models.Trade{trade(1, "2025-01-01", "10"), trade(2, "2025-01-02", "20")}, "0"},
		{"first trade loses", []models.Trade{trade(1, "2025-01-01", "-30"), trade(2, "2025-01-02", "10")}, "30"},
		{"recovery then deeper dip", []models.Trade{
			trade(1, "2025-01-01", "50"),
			trade(2, "2025-01-02", "-20"),
			trade(3, "2025-01-03", "40"),
			trade(4, "2025-01-04", "-60"),
		}, "60"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MaxDrawdown(tt.trades)
			if !got.Equal(d(tt.want)) {
				t.Errorf("MaxDrawdown = %s, want %s", got, tt.want)
			}
			if got.IsNegative() {
				t.Errorf("MaxDrawdown negative: %s", got)
			}
		})
	}
}

func TestMaxDrawdown_UsesChronologicalOrder(t *testing.T) {
	// same P&L values, different dates
	lossFirst := []models.Trade{
		trade(1, "2025-01-01", "-50"),
		trade(2, "2025-01-02", "100"),
		trade(3, "2025-01-03", "-30"),
	}
	winFirst := []models.Trade{
		trade(1, "2025-01-02", "-50"),
		trade(2, "2025-01-01", "100"),
		trade(3, "2025-01-03", "-30"),
	}

	if got := MaxDrawdown(lossFirst); !got.Equal(d("50")) {
		t.Errorf("loss first: MaxDrawdown = %s, want 50", got)
	}
	if got := MaxDrawdown(winFirst); !got.Equal(d("80")) {
		t.Errorf("win first: MaxDrawdown = %s, want 80", got)
	}

	// slice order is irrelevant, only dates count
	reversed := []models.Trade{trade(3, "2025-01-03", "-10"), trade(2, "2025-01-02", "-50"), trade(1, "2025-01-01", "100")}
	if got := MaxDrawdown(reversed); !got.Equal(d("60")) {
		t.Errorf("reversed input: MaxDrawdown = %s, want 60", got)
	}
}

func TestChronological_TieBreaks(t *testing.T) {
	a := trade(5, "2025-01-01", "1")
	b := trade(3, "2025-01-01", "1")
	b.CreatedAt = a.CreatedAt
	c := trade(1, "2025-01-01", "1")
	c.CreatedAt = a.CreatedAt.Add(time.Hour)
	in := []models.Trade{c, a, b}

	got := Chronological(in)
	want := []uint{3, 5, 1}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("order = %v, want %v", ids(got), want)
		}
	}
	if in[0].ID != 1 {
		t.Errorf("Chronological modified its input")
	}
}

func ids(trades []models.Trade) []uint {
	out := make([]uint, len(trades))
	for i, t := range trades {
		out[i] = t.ID
	}
	return out
}

func TestPercent(t *testing.T) {
	if Percent(1, 0) != 0 {
		t.Errorf("Percent(1, 0) should be 0")
	}
	if Percent(1, 4) != 25 {
		t.Errorf("Percent(1, 4) = %v, want 25", Percent(1, 4))
	}
}

func TestTotalPnL(t *testing.T) {
	trades := []models.Trade{trade(1, "2025-01-01", "10.5"), trade(2, "2025-01-02", "-0.25")}
	if got := TotalPnL(trades); !got.Equal(d("10.25")) {
		t.Errorf("TotalPnL = %s, want 10.25", got)
	}
	if !TotalPnL(nil).IsZero() {
		t.Errorf("TotalPnL(nil) should be zero")
	}
}

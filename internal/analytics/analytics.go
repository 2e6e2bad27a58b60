// Package analytics turns a trade log into dashboard statistics.
//
// Every function is total over well formed input: empty collections yield
// zero values, never NaN or a panic. Order-sensitive figures (drawdown,
// balance series) always process trades in Chronological order.
package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/garlicdoggoe/astrosynergy/internal/models"
)

type Outcome string

const (
	Win       Outcome = "win"
	Loss      Outcome = "loss"
	BreakEven Outcome = "breakeven"
)

// DefaultBreakevenThreshold is the absolute P&L at or below which a trade
// counts as breakeven.
var DefaultBreakevenThreshold = decimal.NewFromInt(5)

// Classifier decides trade outcomes. Build one from config and share it so
// every view agrees on win and loss counts.
type Classifier struct {
	threshold decimal.Decimal
}

func NewClassifier(threshold decimal.Decimal) Classifier {
	return Classifier{threshold: threshold.Abs()}
}

func (c Classifier) Threshold() decimal.Decimal {
	return c.threshold
}

// Outcome is win above +threshold, loss below -threshold, else breakeven.
func (c Classifier) Outcome(pl decimal.Decimal) Outcome {
	switch {
	case pl.GreaterThan(c.threshold):
		return Win
	case pl.LessThan(c.threshold.Neg()):
		return Loss
	default:
		return BreakEven
	}
}

// Chronological returns a sorted copy: date ascending, then creation time,
// then id.
func Chronological(trades []models.Trade) []models.Trade {
	out := make([]models.Trade, len(trades))
	copy(out, trades)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return out
}

// Percent returns part/total*100, or 0 when total is 0.
func Percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// TotalPnL sums profit/loss over trades.
func TotalPnL(trades []models.Trade) decimal.Decimal {
	sum := decimal.Zero
	for i := range trades {
		sum = sum.Add(trades[i].ProfitLoss)
	}
	return sum
}

// MaxDrawdown is the largest peak-to-trough decline of cumulative P&L.
// The peak starts at zero, so a losing first trade is already a drawdown.
func MaxDrawdown(trades []models.Trade) decimal.Decimal {
	running, peak, maxDD := decimal.Zero, decimal.Zero, decimal.Zero
	for _, t := range Chronological(trades) {
		running = running.Add(t.ProfitLoss)
		if running.GreaterThan(peak) {
			peak = running
		}
		if dd := peak.Sub(running); dd.GreaterThan(maxDD) {
			maxDD = dd
		}
	}
	return maxDD
}

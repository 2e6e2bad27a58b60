package analytics

import (
	"github.com/shopspring/decimal"

	"github.com/garlicdoggoe/astrosynergy/internal/models"
)

var hundred = decimal.NewFromInt(100)

// TradeRef identifies a single trade in a summary.
type TradeRef struct {
	ID         uint            `json:"id"`
	Ticker     string          `json:"ticker"`
	Date       string          `json:"date"`
	ProfitLoss decimal.Decimal `json:"profit_loss"`
}

type Summary struct {
	TotalTrades   int     `json:"total_trades"`
	Wins          int     `json:"wins"`
	Losses        int     `json:"losses"`
	BreakEvens    int     `json:"breakevens"`
	WinRate       float64 `json:"win_rate"`
	LossRate      float64 `json:"loss_rate"`
	BreakEvenRate float64 `json:"breakeven_rate"`

	NetProfit   decimal.Decimal `json:"net_profit"`
	GrossProfit decimal.Decimal `json:"gross_profit"`
	GrossLoss   decimal.Decimal `json:"gross_loss"` // absolute value
	AvgWin      decimal.Decimal `json:"avg_win"`
	AvgLoss     decimal.Decimal `json:"avg_loss"` // absolute value

	ProfitFactor    float64 `json:"profit_factor"`
	RewardRiskRatio float64 `json:"reward_risk_ratio"`
	ReturnPct       float64 `json:"return_pct"`

	MaxDrawdown decimal.Decimal `json:"max_drawdown"`

	LongWon  int `json:"long_won"`
	ShortWon int `json:"short_won"`

	BestTrade  *TradeRef `json:"best_trade"`
	WorstTrade *TradeRef `json:"worst_trade"`
}

// Summarize computes the dashboard summary. startingBalance is the base
// for ReturnPct; pass zero to skip it.
func (c Classifier) Summarize(trades []models.Trade, startingBalance decimal.Decimal) Summary {
	s := Summary{
		TotalTrades: len(trades),
		NetProfit:   decimal.Zero,
		GrossProfit: decimal.Zero,
		GrossLoss:   decimal.Zero,
		AvgWin:      decimal.Zero,
		AvgLoss:     decimal.Zero,
	}

	for i := range trades {
		t := &trades[i]
		s.NetProfit = s.NetProfit.Add(t.ProfitLoss)

		switch c.Outcome(t.ProfitLoss) {
		case Win:
			s.Wins++
			s.GrossProfit = s.GrossProfit.Add(t.ProfitLoss)
			if t.Direction == models.DirectionShort {
				s.ShortWon++
			} else {
				s.LongWon++
			}
		case Loss:
			s.Losses++
			s.GrossLoss = s.GrossLoss.Add(t.ProfitLoss.Abs())
		default:
			s.BreakEvens++
		}

		if s.BestTrade == nil || t.ProfitLoss.GreaterThan(s.BestTrade.ProfitLoss) {
			s.BestTrade = refOf(t)
		}
		if s.WorstTrade == nil || t.ProfitLoss.LessThan(s.WorstTrade.ProfitLoss) {
			s.WorstTrade = refOf(t)
		}
	}

	s.WinRate = Percent(s.Wins, s.TotalTrades)
	s.LossRate = Percent(s.Losses, s.TotalTrades)
	s.BreakEvenRate = Percent(s.BreakEvens, s.TotalTrades)

	if s.Wins > 0 {
		s.AvgWin = s.GrossProfit.Div(decimal.NewFromInt(int64(s.Wins))).Round(4)
	}
	if s.Losses > 0 {
		s.AvgLoss = s.GrossLoss.Div(decimal.NewFromInt(int64(s.Losses))).Round(4)
	}

	s.ProfitFactor = ratio(s.GrossProfit, s.GrossLoss)
	s.RewardRiskRatio = ratio(s.AvgWin, s.AvgLoss)

	if !startingBalance.IsZero() {
		s.ReturnPct = s.NetProfit.Div(startingBalance).Mul(hundred).Round(4).InexactFloat64()
	}

	s.MaxDrawdown = MaxDrawdown(trades)
	return s
}

// ratio is num/den, falling back to num when den is zero.
func ratio(num, den decimal.Decimal) float64 {
	if den.IsZero() {
		return num.InexactFloat64()
	}
	return num.Div(den).Round(4).InexactFloat64()
}

func refOf(t *models.Trade) *TradeRef {
	return &TradeRef{ID: t.ID, Ticker: t.Ticker, Date: t.Date, ProfitLoss: t.ProfitLoss}
}

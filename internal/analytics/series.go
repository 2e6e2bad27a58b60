package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/garlicdoggoe/astrosynergy/internal/calendar"
	"github.com/garlicdoggoe/astrosynergy/internal/models"
)

// DayStat is the P&L and trade count of one calendar day.
type DayStat struct {
	Date   string          `json:"date"`
	NetPnL decimal.Decimal `json:"net_pnl"`
	Count  int             `json:"count"`
}

// DailyPnL returns one entry per day that has trades, date ascending.
func DailyPnL(trades []models.Trade) []DayStat {
	var out []DayStat
	for _, t := range Chronological(trades) {
		if n := len(out); n > 0 && out[n-1].Date == t.Date {
			out[n-1].NetPnL = out[n-1].NetPnL.Add(t.ProfitLoss)
			out[n-1].Count++
			continue
		}
		out = append(out, DayStat{Date: t.Date, NetPnL: t.ProfitLoss, Count: 1})
	}
	return out
}

// DailyIndex keys DailyPnL by date.
func DailyIndex(trades []models.Trade) map[string]DayStat {
	days := DailyPnL(trades)
	idx := make(map[string]DayStat, len(days))
	for _, d := range days {
		idx[d.Date] = d
	}
	return idx
}

// BalancePoint is the account balance right after a trade.
type BalancePoint struct {
	TradeID uint            `json:"trade_id"`
	Date    string          `json:"date"`
	Balance decimal.Decimal `json:"balance"`
}

// BalanceSeries walks trades chronologically from startingBalance.
func BalanceSeries(trades []models.Trade, startingBalance decimal.Decimal) []BalancePoint {
	sorted := Chronological(trades)
	out := make([]BalancePoint, 0, len(sorted))
	bal := startingBalance
	for _, t := range sorted {
		bal = bal.Add(t.ProfitLoss)
		out = append(out, BalancePoint{TradeID: t.ID, Date: t.Date, Balance: bal})
	}
	return out
}

// WeekDay is one column of the week view.
type WeekDay struct {
	Weekday string          `json:"weekday"`
	Date    string          `json:"date"`
	NetPnL  decimal.Decimal `json:"net_pnl"`
	Count   int             `json:"count"`
}

// WeekActivity reports every day of the week containing day, Monday first,
// including days without trades.
func WeekActivity(trades []models.Trade, day time.Time) []WeekDay {
	idx := DailyIndex(trades)
	start := calendar.StartOfWeek(day)
	out := make([]WeekDay, 0, 7)
	for i := 0; i < 7; i++ {
		d := start.AddDate(0, 0, i)
		key := calendar.FormatDate(d)
		wd := WeekDay{Weekday: d.Weekday().String(), Date: key, NetPnL: decimal.Zero}
		if s, ok := idx[key]; ok {
			wd.NetPnL = s.NetPnL
			wd.Count = s.Count
		}
		out = append(out, wd)
	}
	return out
}

package analytics

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/garlicdoggoe/astrosynergy/internal/calendar"
	"github.com/garlicdoggoe/astrosynergy/internal/models"
)

// GroupStat aggregates trades sharing a key (ticker, month or hour).
type GroupStat struct {
	Key     string          `json:"key"`
	NetPnL  decimal.Decimal `json:"net_pnl"`
	Count   int             `json:"count"`
	Wins    int             `json:"wins"`
	WinRate float64         `json:"win_rate"`
}

func (c Classifier) group(trades []models.Trade, keyOf func(*models.Trade) (string, bool)) []GroupStat {
	idx := make(map[string]int)
	var out []GroupStat
	for i := range trades {
		t := &trades[i]
		key, ok := keyOf(t)
		if !ok {
			continue
		}
		pos, seen := idx[key]
		if !seen {
			pos = len(out)
			idx[key] = pos
			out = append(out, GroupStat{Key: key, NetPnL: decimal.Zero})
		}
		g := &out[pos]
		g.NetPnL = g.NetPnL.Add(t.ProfitLoss)
		g.Count++
		if c.Outcome(t.ProfitLoss) == Win {
			g.Wins++
		}
	}
	for i := range out {
		out[i].WinRate = Percent(out[i].Wins, out[i].Count)
	}
	return out
}

func sortByNetDesc(groups []GroupStat) {
	sort.Slice(groups, func(i, j int) bool {
		if c := groups[i].NetPnL.Cmp(groups[j].NetPnL); c != 0 {
			return c > 0
		}
		return groups[i].Key < groups[j].Key
	})
}

// ByTicker groups by ticker, best performers first. limit <= 0 keeps all.
func (c Classifier) ByTicker(trades []models.Trade, limit int) []GroupStat {
	out := c.group(trades, func(t *models.Trade) (string, bool) {
		return t.Ticker, t.Ticker != ""
	})
	sortByNetDesc(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// ByMonth groups by YYYY-MM of the trade date.
func (c Classifier) ByMonth(trades []models.Trade) []GroupStat {
	out := c.group(trades, func(t *models.Trade) (string, bool) {
		if len(t.Date) < 7 {
			return "", false
		}
		return t.Date[:7], true
	})
	sortByNetDesc(out)
	return out
}

// ByHour groups by hour of the entry time ("00".."23"), ascending.
// Trades without a parseable time are skipped.
func (c Classifier) ByHour(trades []models.Trade) []GroupStat {
	out := c.group(trades, func(t *models.Trade) (string, bool) {
		h := calendar.Hour(t.Time)
		if h < 0 {
			return "", false
		}
		return fmt.Sprintf("%02d", h), true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garlicdoggoe/astrosynergy/internal/analytics"
	"github.com/garlicdoggoe/astrosynergy/internal/calendar"
	"github.com/garlicdoggoe/astrosynergy/internal/models"
	"github.com/garlicdoggoe/astrosynergy/internal/util"
)

// RangeQuery picks the trades a view covers. An explicit Start or End
// switches to range mode, otherwise Period is used.
type RangeQuery struct {
	Period string
	Start  string
	End    string
}

// AnalyticsService computes dashboard views from the trade log. Figures are
// recomputed on every call.
type AnalyticsService struct {
	trades     *TradeService
	portfolio  *PortfolioService
	classifier analytics.Classifier
	loc        *time.Location
	maxDays    int
	now        func() time.Time
}

func (s *AnalyticsService) Classifier() analytics.Classifier {
	return s.classifier
}

// Today is the current day in the journal time zone.
func (s *AnalyticsService) Today() time.Time {
	n := s.now().In(s.loc)
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, s.loc)
}

// ResolveRange turns q into a concrete date range.
func (s *AnalyticsService) ResolveRange(q RangeQuery) (analytics.DateRange, error) {
	today := s.Today()
	if q.Start == "" && q.End == "" {
		r, err := analytics.TimeframeRange(analytics.Timeframe(q.Period), today)
		if err != nil {
			return analytics.DateRange{}, util.Invalid("%s", err.Error())
		}
		return r, nil
	}

	start, end := today, today
	if q.Start != "" {
		t, err := s.parseDay(q.Start)
		if err != nil {
			return analytics.DateRange{}, err
		}
		start = t
	}
	if q.End != "" {
		t, err := s.parseDay(q.End)
		if err != nil {
			return analytics.DateRange{}, err
		}
		end = t
	}
	return analytics.NormalizeRange(start, end, today, s.maxDays), nil
}

func (s *AnalyticsService) parseDay(v string) (time.Time, error) {
	if err := util.ValidateDate(v); err != nil {
		return time.Time{}, err
	}
	return time.ParseInLocation(calendar.DateLayout, v, s.loc)
}

func (s *AnalyticsService) load(ctx context.Context, owner uint, q RangeQuery) ([]models.Trade, analytics.DateRange, error) {
	r, err := s.ResolveRange(q)
	if err != nil {
		return nil, r, err
	}
	trades, err := s.trades.ListInRange(ctx, owner, r)
	if err != nil {
		return nil, r, err
	}
	return trades, r, nil
}

// SummaryView is a summary together with the range it covers.
type SummaryView struct {
	Range   analytics.DateRange `json:"range"`
	Summary analytics.Summary   `json:"summary"`
}

func (s *AnalyticsService) Summary(ctx context.Context, owner uint, q RangeQuery) (*SummaryView, error) {
	trades, r, err := s.load(ctx, owner, q)
	if err != nil {
		return nil, err
	}
	start, err := s.portfolio.StartingBalance(ctx, owner)
	if err != nil {
		return nil, err
	}
	return &SummaryView{Range: r, Summary: s.classifier.Summarize(trades, start)}, nil
}

func (s *AnalyticsService) ByTicker(ctx context.Context, owner uint, q RangeQuery, limit int) ([]analytics.GroupStat, error) {
	trades, _, err := s.load(ctx, owner, q)
	if err != nil {
		return nil, err
	}
	return s.classifier.ByTicker(trades, limit), nil
}

func (s *AnalyticsService) ByMonth(ctx context.Context, owner uint, q RangeQuery) ([]analytics.GroupStat, error) {
	trades, _, err := s.load(ctx, owner, q)
	if err != nil {
		return nil, err
	}
	return s.classifier.ByMonth(trades), nil
}

func (s *AnalyticsService) ByHour(ctx context.Context, owner uint, q RangeQuery) ([]analytics.GroupStat, error) {
	trades, _, err := s.load(ctx, owner, q)
	if err != nil {
		return nil, err
	}
	return s.classifier.ByHour(trades), nil
}

func (s *AnalyticsService) Daily(ctx context.Context, owner uint, q RangeQuery) ([]analytics.DayStat, error) {
	trades, _, err := s.load(ctx, owner, q)
	if err != nil {
		return nil, err
	}
	return analytics.DailyPnL(trades), nil
}

// Balance walks every trade of owner from the starting balance; the range
// in q only trims the returned points.
func (s *AnalyticsService) Balance(ctx context.Context, owner uint, q RangeQuery) ([]analytics.BalancePoint, error) {
	r, err := s.ResolveRange(q)
	if err != nil {
		return nil, err
	}
	trades, err := s.trades.ListForOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	start, err := s.portfolio.StartingBalance(ctx, owner)
	if err != nil {
		return nil, err
	}
	all := analytics.BalanceSeries(trades, start)
	out := make([]analytics.BalancePoint, 0, len(all))
	for _, p := range all {
		if r.Contains(p.Date) {
			out = append(out, p)
		}
	}
	return out, nil
}

// Week reports Monday..Sunday of the week containing day ("" = today).
func (s *AnalyticsService) Week(ctx context.Context, owner uint, day string) ([]analytics.WeekDay, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	d := s.Today()
	if day != "" {
		t, err := s.parseDay(day)
		if err != nil {
			return nil, err
		}
		d = t
	}
	start := calendar.StartOfWeek(d)
	r := analytics.DateRange{
		Start: calendar.FormatDate(start),
		End:   calendar.FormatDate(start.AddDate(0, 0, 6)),
	}
	trades, err := s.trades.ListInRange(ctx, owner, r)
	if err != nil {
		return nil, err
	}
	return analytics.WeekActivity(trades, d), nil
}

// CalendarDay is one cell of the month grid.
type CalendarDay struct {
	Date    string          `json:"date"`
	Day     int             `json:"day"`
	InMonth bool            `json:"in_month"`
	Today   bool            `json:"today"`
	NetPnL  decimal.Decimal `json:"net_pnl"`
	Count   int             `json:"count"`
	Outcome string          `json:"outcome,omitempty"`
}

type CalendarView struct {
	Year     int             `json:"year"`
	Month    int             `json:"month"` // zero-based
	Weekdays []string        `json:"weekdays"`
	Days     []CalendarDay   `json:"days"`
	NetPnL   decimal.Decimal `json:"net_pnl"`
	Count    int             `json:"count"`
}

// Calendar decorates the month grid with daily P&L. month0 is zero-based.
func (s *AnalyticsService) Calendar(ctx context.Context, owner uint, year, month0 int) (*CalendarView, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	if month0 < 0 || month0 > 11 {
		return nil, util.Invalid("month must be 0..11, got %d", month0)
	}
	if year < 1900 || year > 9999 {
		return nil, util.Invalid("year out of range: %d", year)
	}

	grid := calendar.MonthGrid(year, month0)
	r := analytics.DateRange{
		Start: calendar.FormatDate(grid[0]),
		End:   calendar.FormatDate(grid[len(grid)-1]),
	}
	trades, err := s.trades.ListInRange(ctx, owner, r)
	if err != nil {
		return nil, err
	}
	daily := analytics.DailyIndex(trades)
	today := calendar.FormatDate(s.Today())

	view := &CalendarView{
		Year:     year,
		Month:    month0,
		Weekdays: calendar.Weekdays(),
		Days:     make([]CalendarDay, 0, len(grid)),
		NetPnL:   decimal.Zero,
	}
	for _, d := range grid {
		key := calendar.FormatDate(d)
		cell := CalendarDay{
			Date:    key,
			Day:     d.Day(),
			InMonth: int(d.Month()) == month0+1,
			Today:   key == today,
			NetPnL:  decimal.Zero,
		}
		if st, ok := daily[key]; ok {
			cell.NetPnL = st.NetPnL
			cell.Count = st.Count
			cell.Outcome = string(s.classifier.Outcome(st.NetPnL))
			if cell.InMonth {
				view.NetPnL = view.NetPnL.Add(st.NetPnL)
				view.Count += st.Count
			}
		}
		view.Days = append(view.Days, cell)
	}
	return view, nil
}

package analytics

import (
	"fmt"
	"time"

	"github.com/garlicdoggoe/astrosynergy/internal/calendar"
	"github.com/garlicdoggoe/astrosynergy/internal/models"
)

// DefaultMaxRangeDays caps custom ranges, counted inclusively.
const DefaultMaxRangeDays = 30

// DateRange is an inclusive pair of YYYY-MM-DD dates. An empty bound is
// open.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Contains compares lexicographically, which is chronological for
// zero padded ISO dates.
func (r DateRange) Contains(date string) bool {
	if r.Start != "" && date < r.Start {
		return false
	}
	if r.End != "" && date > r.End {
		return false
	}
	return true
}

// FilterRange keeps trades whose date lies in r. Input order is preserved.
func FilterRange(trades []models.Trade, r DateRange) []models.Trade {
	out := make([]models.Trade, 0, len(trades))
	for _, t := range trades {
		if r.Contains(t.Date) {
			out = append(out, t)
		}
	}
	return out
}

// NormalizeRange swaps reversed bounds, clamps both to today and then
// shortens the span to maxDays by moving the start forward.
func NormalizeRange(start, end, today time.Time, maxDays int) DateRange {
	start, end, today = dayOf(start), dayOf(end), dayOf(today)
	if start.After(end) {
		start, end = end, start
	}
	if end.After(today) {
		end = today
	}
	if start.After(today) {
		start = today
	}
	if maxDays > 0 {
		if earliest := end.AddDate(0, 0, -(maxDays - 1)); start.Before(earliest) {
			start = earliest
		}
	}
	return DateRange{Start: calendar.FormatDate(start), End: calendar.FormatDate(end)}
}

// Timeframe names a preset period relative to today.
type Timeframe string

const (
	TimeframeDay   Timeframe = "day"
	TimeframeWeek  Timeframe = "week"
	TimeframeMonth Timeframe = "month"
	TimeframeYear  Timeframe = "year"
	TimeframeAll   Timeframe = "all"
)

// TimeframeRange resolves tf to the range containing today. "all" and ""
// are unbounded.
func TimeframeRange(tf Timeframe, today time.Time) (DateRange, error) {
	today = dayOf(today)
	switch tf {
	case TimeframeAll, "":
		return DateRange{}, nil
	case TimeframeDay:
		d := calendar.FormatDate(today)
		return DateRange{Start: d, End: d}, nil
	case TimeframeWeek:
		start := calendar.StartOfWeek(today)
		return DateRange{
			Start: calendar.FormatDate(start),
			End:   calendar.FormatDate(start.AddDate(0, 0, 6)),
		}, nil
	case TimeframeMonth:
		first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
		return DateRange{
			Start: calendar.FormatDate(first),
			End:   calendar.FormatDate(first.AddDate(0, 1, -1)),
		}, nil
	case TimeframeYear:
		return DateRange{
			Start: fmt.Sprintf("%04d-01-01", today.Year()),
			End:   fmt.Sprintf("%04d-12-31", today.Year()),
		}, nil
	}
	return DateRange{}, fmt.Errorf("unknown timeframe %q", tf)
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

package analytics

import (
	"testing"
	"time"

	"github.com/garlicdoggoe/astrosynergy/internal/models"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestDateRange_Contains(t *testing.T) {
	r := DateRange{Start: "2025-01-10", End: "2025-01-20"}
	tests := []struct {
		date string
		want bool
	}{
		{"2025-01-09", false},
		{"2025-01-10", true},
		{"2025-01-15", true},
		{"2025-01-20", true},
		{"2025-01-21", false},
	}
	for _, tt := range tests {
		if got := r.Contains(tt.date); got != tt.want {
			t.Errorf("Contains(%s) = %v, want %v", tt.date, got, tt.want)
		}
	}
	if !(DateRange{}).Contains("1999-01-01") {
		t.Errorf("empty range should contain everything")
	}
}

func TestFilterRange_Idempotent(t *testing.T) {
	trades := sampleTrades()
	r := DateRange{Start: "2025-01-03", End: "2025-02-11"}

	once := FilterRange(trades, r)
	twice := FilterRange(once, r)
	if len(once) != 4 {
		t.Fatalf("len = %d, want 4", len(once))
	}
	if len(once) != len(twice) {
		t.Fatalf("filter not idempotent: %d vs %d", len(once), len(twice))
	}
	for i := range once {
		if once[i].ID != twice[i].ID {
			t.Fatalf("filter not idempotent at %d", i)
		}
	}
}

func TestNormalizeRange(t *testing.T) {
	today := day("2026-10-18")
	tests := []struct {
		name       string
		start, end string
		want       DateRange
	}{
		{"plain", "2026-10-01", "2026-10-10", DateRange{"2026-10-01", "2026-10-10"}},
		{"swapped", "2026-10-10", "2026-10-01", DateRange{"2026-10-01", "2026-10-10"}},
		{"end in future", "2026-10-10", "2026-12-01", DateRange{"2026-10-10", "2026-10-18"}},
		{"both in future", "2026-11-01", "2026-12-01", DateRange{"2026-10-18", "2026-10-18"}},
		{"too long", "2026-01-01", "2026-10-18", DateRange{"2026-09-19", "2026-10-18"}},
		{"exactly 30 days", "2026-09-19", "2026-10-18", DateRange{"2026-09-19", "2026-10-18"}},
		{"single day", "2026-05-05", "2026-05-05", DateRange{"2026-05-05", "2026-05-05"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeRange(day(tt.start), day(tt.end), today, DefaultMaxRangeDays)
			if got != tt.want {
				t.Errorf("NormalizeRange = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNormalizeRange_NoCap(t *testing.T) {
	got := NormalizeRange(day("2020-01-01"), day("2026-10-18"), day("2026-10-18"), 0)
	if got.Start != "2020-01-01" {
		t.Errorf("Start = %s, want uncapped 2020-01-01", got.Start)
	}
}

func TestTimeframeRange(t *testing.T) {
	today := time.Date(2026, 10, 18, 15, 4, 0, 0, time.UTC) // Sunday
	tests := []struct {
		tf   Timeframe
		want DateRange
	}{
		{TimeframeDay, DateRange{"2026-10-18", "2026-10-18"}},
		{TimeframeWeek, DateRange{"2026-10-12", "2026-10-18"}},
		{TimeframeMonth, DateRange{"2026-10-01", "2026-10-31"}},
		{TimeframeYear, DateRange{"2026-01-01", "2026-12-31"}},
		{TimeframeAll, DateRange{}},
		{"", DateRange{}},
	}
	for _, tt := range tests {
		got, err := TimeframeRange(tt.tf, today)
		if err != nil {
			t.Fatalf("TimeframeRange(%q) error = %v", tt.tf, err)
		}
		if got != tt.want {
			t.Errorf("TimeframeRange(%q) = %+v, want %+v", tt.tf, got, tt.want)
		}
	}
	if _, err := TimeframeRange("fortnight", today); err == nil {
		t.Errorf("unknown timeframe should fail")
	}
}

func TestTimeframeRange_FebruaryLeap(t *testing.T) {
	got, err := TimeframeRange(TimeframeMonth, day("2028-02-10"))
	if err != nil {
		t.Fatal(err)
	}
	if got.End != "2028-02-29" {
		t.Errorf("End = %s, want 2028-02-29", got.End)
	}
	trades := []models.Trade{trade(1, "2028-02-29", "1"), trade(2, "2028-03-01", "1")}
	if n := len(FilterRange(trades, got)); n != 1 {
		t.Errorf("filtered = %d, want 1", n)
	}
}

package util

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
	TimeLayout  = "15:04"
)

var (
	tickerRe  = regexp.MustCompile(`^[A-Z0-9][A-Z0-9./:\-]{0,15}$`)
	maxAmount = decimal.NewFromInt(1_000_000_000)
	hundred   = decimal.NewFromInt(100)
)

// ValidateDate 验证日期格式（必须为 YYYY-MM-DD）
func ValidateDate(dateStr string) error {
	if dateStr == "" {
		return Invalid("date is empty")
	}
	if _, err := time.Parse(DateLayout, dateStr); err != nil {
		return Invalid("invalid date %q, want YYYY-MM-DD", dateStr)
	}
	return nil
}

// ValidateMonth accepts YYYY-MM.
func ValidateMonth(monthStr string) error {
	if _, err := time.Parse(MonthLayout, monthStr); err != nil {
		return Invalid("invalid month %q, want YYYY-MM", monthStr)
	}
	return nil
}

// ValidateTime accepts a zero padded 24h HH:MM.
func ValidateTime(timeStr string) error {
	if len(timeStr) != 5 {
		return Invalid("invalid time %q, want HH:MM", timeStr)
	}
	if _, err := time.Parse(TimeLayout, timeStr); err != nil {
		return Invalid("invalid time %q, want HH:MM", timeStr)
	}
	return nil
}

// NormalizeTicker upper-cases and validates a ticker symbol.
func NormalizeTicker(ticker string) (string, error) {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	if t == "" {
		return "", Invalid("ticker is empty")
	}
	if !tickerRe.MatchString(t) {
		return "", Invalid("invalid ticker %q", ticker)
	}
	return t, nil
}

// ValidateDirection accepts long / short.
func ValidateDirection(direction string) error {
	if direction != "long" && direction != "short" {
		return Invalid("direction must be long or short, got %q", direction)
	}
	return nil
}

// ParseAmount parses a signed currency amount, e.g. "-40.25".
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, Invalid("amount is empty")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, Invalid("amount %q is not a number", s)
	}
	if d.Abs().GreaterThanOrEqual(maxAmount) {
		return decimal.Zero, Invalid("amount too large, got %s", s)
	}
	return d, nil
}

// ValidatePercentage 验证百分比在 0-100 之间
func ValidatePercentage(p decimal.Decimal) error {
	if p.IsNegative() || p.GreaterThan(hundred) {
		return Invalid("percentage must be between 0 and 100, got %s", p.String())
	}
	return nil
}

// ValidateColumnName 验证自定义列名（不能为空且长度合理）
func ValidateColumnName(name string) error {
	if strings.TrimSpace(name) == "" {
		return Invalid("column name is empty")
	}
	if len([]rune(name)) > 64 {
		return Invalid("column name too long, max 64 characters")
	}
	return nil
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Portfolio holds per-user account settings. The current balance is never
// stored; it is starting balance plus the sum of all trade P&L.
type Portfolio struct {
	ID              uint            `gorm:"primaryKey"`
	UserID          uint            `gorm:"uniqueIndex;not null"`
	StartingBalance decimal.Decimal `gorm:"type:numeric(20,4);not null"`
	RiskPercentage  decimal.Decimal `gorm:"type:numeric(7,4);not null"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	DirectionLong  = "long"
	DirectionShort = "short"
)

// Trade is one logged position outcome.
// Date is kept as a zero padded YYYY-MM-DD string so range filters can
// compare lexicographically.
type Trade struct {
	ID         uint            `gorm:"primaryKey"`
	UserID     uint            `gorm:"index:idx_trades_user_date,priority:1;not null"`
	Ticker     string          `gorm:"size:16;index;not null"`
	Date       string          `gorm:"size:10;index:idx_trades_user_date,priority:2;not null"`
	Time       string          `gorm:"size:5;not null"`
	Direction  string          `gorm:"size:8;not null;default:long"`
	ProfitLoss decimal.Decimal `gorm:"type:numeric(20,4);not null"`
	Note       string          `gorm:"type:text"` // AES+base64
	CustomData datatypes.JSONType[CustomData]
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

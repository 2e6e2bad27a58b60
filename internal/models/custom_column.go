package models

import "time"

// CustomColumn is a user defined field attached to trades. Order is dense
// (0..N-1) per user.
type CustomColumn struct {
	ID        string     `gorm:"primaryKey;size:36" json:"id"`
	UserID    uint       `gorm:"index;not null" json:"-"`
	Name      string     `gorm:"size:64;not null" json:"name"`
	Type      ColumnType `gorm:"size:8;not null" json:"type"`
	Order     int        `gorm:"column:sort_order;not null" json:"order"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

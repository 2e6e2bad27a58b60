package models

import "time"

// Note is the journal entry for one calendar day.
type Note struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"uniqueIndex:idx_notes_user_date,priority:1;not null"`
	Date      string `gorm:"size:10;uniqueIndex:idx_notes_user_date,priority:2;not null"`
	Content   string `gorm:"type:text"` // AES+base64
	CreatedAt time.Time
	UpdatedAt time.Time
}

package models

import "time"

// StoredFile is an uploaded blob, referenced from image custom values.
type StoredFile struct {
	ID          string    `gorm:"primaryKey;size:36"`
	UserID      uint      `gorm:"index;not null"`
	ContentType string    `gorm:"size:128"`
	Size        int64     `gorm:"not null"`
	Path        string    `gorm:"size:512;not null"`
	CreatedAt   time.Time `gorm:"index"`
}

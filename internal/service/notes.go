package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/garlicdoggoe/astrosynergy/internal/models"
	"github.com/garlicdoggoe/astrosynergy/internal/util"
)

const maxNoteRunes = 20000

// NoteService stores one free-text note per owner and day, encrypted at
// rest.
type NoteService struct {
	deps Deps
}

// GetByDate returns the note of date. A day without a note yields an empty
// Note with ID 0.
func (s *NoteService) GetByDate(ctx context.Context, owner uint, date string) (*models.Note, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	if err := util.ValidateDate(date); err != nil {
		return nil, err
	}
	var n models.Note
	err := s.deps.DB.WithContext(ctx).Where("user_id = ? AND date = ?", owner, date).First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.Note{UserID: owner, Date: date}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load note: %w", err)
	}
	n.Content = s.deps.Cipher.DecryptString(n.Content)
	return &n, nil
}

// ListAll returns every note of owner, newest date first.
func (s *NoteService) ListAll(ctx context.Context, owner uint) ([]models.Note, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	var notes []models.Note
	if err := s.deps.DB.WithContext(ctx).Where("user_id = ?", owner).Order("date DESC").Find(&notes).Error; err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	for i := range notes {
		notes[i].Content = s.deps.Cipher.DecryptString(notes[i].Content)
	}
	return notes, nil
}

// Save upserts the note of date.
func (s *NoteService) Save(ctx context.Context, owner uint, date, content string) (*models.Note, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	if err := util.ValidateDate(date); err != nil {
		return nil, err
	}
	if len([]rune(content)) > maxNoteRunes {
		return nil, util.Invalid("note too long, max %d characters", maxNoteRunes)
	}
	enc, err := s.deps.Cipher.EncryptString(content)
	if err != nil {
		return nil, fmt.Errorf("encrypt note: %w", err)
	}

	n := models.Note{UserID: owner, Date: date, Content: enc}
	err = s.deps.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"content", "updated_at"}),
	}).Create(&n).Error
	if err != nil {
		return nil, fmt.Errorf("save note: %w", err)
	}
	return s.GetByDate(ctx, owner, date)
}

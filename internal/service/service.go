// Package service implements the journal operations on top of gorm.
//
// Every exported operation takes the caller's owner id explicitly; an owner
// id of 0 is rejected with util.ErrUnauthorized. Lookups by id tell a
// missing record (util.ErrNotFound) apart from one that belongs to someone
// else (util.ErrForbidden).
package service

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/garlicdoggoe/astrosynergy/internal/analytics"
	"github.com/garlicdoggoe/astrosynergy/internal/cache"
	"github.com/garlicdoggoe/astrosynergy/internal/config"
	"github.com/garlicdoggoe/astrosynergy/internal/storage"
	"github.com/garlicdoggoe/astrosynergy/internal/util"
)

// Deps are the shared collaborators of all services.
type Deps struct {
	DB     *gorm.DB
	Cipher *util.Cipher
	Blobs  *storage.Disk
	Cache  cache.Store
	Log    *zap.Logger

	Journal   config.JournalConfig
	Storage   config.StorageConfig
	PublicURL string

	// Now defaults to time.Now.
	Now func() time.Time
}

// Services bundles every service so handlers and jobs share one set.
type Services struct {
	Trades    *TradeService
	Columns   *ColumnService
	Portfolio *PortfolioService
	Notes     *NoteService
	Files     *FileService
	Analytics *AnalyticsService
}

func New(d Deps) (*Services, error) {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Cipher == nil {
		d.Cipher = util.NewCipher("", "")
	}

	threshold := analytics.DefaultBreakevenThreshold
	if d.Journal.BreakevenThreshold != "" {
		t, err := util.ParseAmount(d.Journal.BreakevenThreshold)
		if err != nil {
			return nil, fmt.Errorf("journal.breakeven_threshold: %w", err)
		}
		threshold = t
	}
	loc := time.Local
	if d.Journal.Timezone != "" {
		l, err := time.LoadLocation(d.Journal.Timezone)
		if err != nil {
			return nil, fmt.Errorf("journal.timezone: %w", err)
		}
		loc = l
	}
	maxDays := d.Journal.MaxRangeDays
	if maxDays == 0 {
		maxDays = analytics.DefaultMaxRangeDays
	}

	files := &FileService{deps: d}
	trades := &TradeService{deps: d, files: files}
	portfolio := &PortfolioService{deps: d}
	return &Services{
		Trades:    trades,
		Columns:   &ColumnService{deps: d, files: files},
		Portfolio: portfolio,
		Notes:     &NoteService{deps: d},
		Files:     files,
		Analytics: &AnalyticsService{
			trades:     trades,
			portfolio:  portfolio,
			classifier: analytics.NewClassifier(threshold),
			loc:        loc,
			maxDays:    maxDays,
			now:        d.Now,
		},
	}, nil
}

func requireOwner(owner uint) error {
	if owner == 0 {
		return util.ErrUnauthorized
	}
	return nil
}

// findOwned loads the record with the given id and checks it belongs to
// owner.
func findOwned[T any](tx *gorm.DB, dest *T, id any, owner uint, ownerOf func(*T) uint, what string) error {
	if err := tx.Where("id = ?", id).First(dest).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%s %v: %w", what, id, util.ErrNotFound)
		}
		return fmt.Errorf("load %s: %w", what, err)
	}
	if ownerOf(dest) != owner {
		return fmt.Errorf("%s %v: %w", what, id, util.ErrForbidden)
	}
	return nil
}

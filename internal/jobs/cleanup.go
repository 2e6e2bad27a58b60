package jobs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/garlicdoggoe/astrosynergy/internal/cache"
	"github.com/garlicdoggoe/astrosynergy/internal/config"
	"github.com/garlicdoggoe/astrosynergy/internal/models"
	"github.com/garlicdoggoe/astrosynergy/internal/service"
	"github.com/garlicdoggoe/astrosynergy/internal/storage"
)

// OrphanUploadAge is how long an uploaded file may stay unreferenced.
const OrphanUploadAge = 24 * time.Hour

// Cleaner holds the cleanup tasks. Each task is safe to run concurrently
// with request handling.
type Cleaner struct {
	DB      *gorm.DB
	Files   *service.FileService
	Backups *storage.Disk
	Cache   cache.Store
	Log     *zap.Logger
	Now     func() time.Time
}

func NewCleaner(db *gorm.DB, svc *service.Services, backups *storage.Disk, store cache.Store, log *zap.Logger) *Cleaner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cleaner{DB: db, Files: svc.Files, Backups: backups, Cache: store, Log: log}
}

func (c *Cleaner) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

// PurgeAccounts permanently removes users whose deletion buffer has passed,
// together with everything they own.
func (c *Cleaner) PurgeAccounts(ctx context.Context) (int, error) {
	db := c.DB.WithContext(ctx)
	var users []models.User
	if err := db.Where("delete_permanently_at IS NOT NULL AND delete_permanently_at <= ?", c.now()).
		Find(&users).Error; err != nil {
		return 0, fmt.Errorf("load expired accounts: %w", err)
	}

	purged := 0
	for i := range users {
		if err := c.purgeUser(db, users[i].ID); err != nil {
			return purged, fmt.Errorf("purge user %d: %w", users[i].ID, err)
		}
		purged++
		c.Log.Info("account purged", zap.Uint("user_id", users[i].ID))
	}
	return purged, nil
}

func (c *Cleaner) purgeUser(db *gorm.DB, userID uint) error {
	var (
		files   []models.StoredFile
		backups []models.Backup
	)
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Find(&files).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Find(&backups).Error; err != nil {
			return err
		}
		owned := []any{
			&models.Trade{}, &models.CustomColumn{}, &models.Note{}, &models.Portfolio{},
			&models.StoredFile{}, &models.Backup{}, &models.AuditLog{}, &models.Session{},
		}
		for _, m := range owned {
			if err := tx.Where("user_id = ?", userID).Delete(m).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.User{}, userID).Error
	})
	if err != nil {
		return err
	}

	c.Files.RemoveBlobs(files)
	if c.Backups != nil {
		for _, b := range backups {
			if err := c.Backups.Remove(b.FilePath); err != nil {
				c.Log.Warn("remove backup file", zap.String("key", b.FilePath), zap.Error(err))
			}
		}
	}
	return nil
}

// PurgeUploads deletes unreferenced uploads older than OrphanUploadAge and
// drops expired upload tickets from the in-memory cache.
func (c *Cleaner) PurgeUploads(ctx context.Context) (int, error) {
	if mem, ok := c.Cache.(*cache.MemoryStore); ok {
		if n := mem.Sweep(); n > 0 {
			c.Log.Debug("expired upload tickets swept", zap.Int("count", n))
		}
	}
	return c.Files.PurgeOrphans(ctx, c.now().Add(-OrphanUploadAge))
}

// PurgeSessions deletes revoked and expired sessions.
func (c *Cleaner) PurgeSessions(ctx context.Context) (int64, error) {
	res := c.DB.WithContext(ctx).
		Where("revoked = ? OR expires_at < ?", true, c.now()).
		Delete(&models.Session{})
	return res.RowsAffected, res.Error
}

// Register schedules every task whose spec is set.
func (c *Cleaner) Register(r *Runner, cfg config.CronConfig) error {
	tasks := []struct {
		name string
		spec string
		run  func(context.Context) (int64, error)
	}{
		{"purge_accounts", cfg.PurgeAccounts, func(ctx context.Context) (int64, error) {
			n, err := c.PurgeAccounts(ctx)
			return int64(n), err
		}},
		{"purge_uploads", cfg.PurgeUploads, func(ctx context.Context) (int64, error) {
			n, err := c.PurgeUploads(ctx)
			return int64(n), err
		}},
		{"purge_sessions", cfg.PurgeSessions, c.PurgeSessions},
	}
	for _, t := range tasks {
		if t.spec == "" {
			continue
		}
		t := t
		if _, err := r.Add(t.spec, func(ctx context.Context) {
			start := time.Now()
			n, err := t.run(ctx)
			if err != nil {
				c.Log.Error("cron job failed", zap.String("job", t.name), zap.Error(err))
				return
			}
			c.Log.Info("cron job done", zap.String("job", t.name), zap.Int64("count", n),
				zap.Duration("took", time.Since(start)))
		}); err != nil {
			return fmt.Errorf("schedule %s: %w", t.name, err)
		}
	}
	return nil
}

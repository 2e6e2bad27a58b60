package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/garlicdoggoe/astrosynergy/internal/models"
	"github.com/garlicdoggoe/astrosynergy/internal/storage"
	"github.com/garlicdoggoe/astrosynergy/internal/util"
)

const (
	uploadKeyPrefix = "upload:"
	uploadTokenLen  = 43
)

// UploadTicket is a one-shot location the client PUTs image bytes to.
type UploadTicket struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// FileService stores images referenced from image custom values.
type FileService struct {
	deps Deps
}

// CreateUploadLocation issues an upload ticket bound to owner.
func (s *FileService) CreateUploadLocation(ctx context.Context, owner uint) (*UploadTicket, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	token, err := util.RandomString(uploadTokenLen)
	if err != nil {
		return nil, err
	}
	ttl := s.deps.Storage.UploadTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	if err := s.deps.Cache.Set(ctx, uploadKeyPrefix+token, []byte(strconv.FormatUint(uint64(owner), 10)), ttl); err != nil {
		return nil, fmt.Errorf("store upload ticket: %w", err)
	}
	return &UploadTicket{
		Token:     token,
		URL:       s.deps.PublicURL + "/api/files/upload/" + token,
		ExpiresAt: s.deps.Now().Add(ttl),
	}, nil
}

// Upload consumes a ticket and stores the bytes. A request that is not an
// image leaves the ticket unused. The record is created only after the
// bytes are on disk; if the record cannot be saved the bytes are removed
// again.
func (s *FileService) Upload(ctx context.Context, token, contentType string, r io.Reader) (*models.StoredFile, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return nil, util.Invalid("only images can be uploaded, got %q", contentType)
	}
	raw, ok, err := s.deps.Cache.Take(ctx, uploadKeyPrefix+token)
	if err != nil {
		return nil, fmt.Errorf("load upload ticket: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("upload ticket: %w", util.ErrNotFound)
	}
	owner64, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil || owner64 == 0 {
		return nil, fmt.Errorf("upload ticket: %w", util.ErrUnauthorized)
	}
	owner := uint(owner64)

	f := models.StoredFile{
		ID:          uuid.NewString(),
		UserID:      owner,
		ContentType: contentType,
	}
	f.Path = fmt.Sprintf("files/%d/%s", owner, f.ID)

	size, err := s.deps.Blobs.Put(f.Path, r, s.deps.Storage.MaxFileBytes)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return nil, util.Invalid("file exceeds %d bytes", s.deps.Storage.MaxFileBytes)
		}
		return nil, fmt.Errorf("write file: %w", err)
	}
	f.Size = size

	if err := s.deps.DB.WithContext(ctx).Create(&f).Error; err != nil {
		s.removeBlob(f.Path)
		return nil, fmt.Errorf("save file record: %w", err)
	}
	return &f, nil
}

// Get returns the record of a file owned by owner.
func (s *FileService) Get(ctx context.Context, owner uint, ref string) (*models.StoredFile, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	var f models.StoredFile
	if err := findOwned(s.deps.DB.WithContext(ctx), &f, ref, owner, func(f *models.StoredFile) uint { return f.UserID }, "file"); err != nil {
		return nil, err
	}
	return &f, nil
}

// ResolveURL returns the download URL of ref.
func (s *FileService) ResolveURL(ctx context.Context, owner uint, ref string) (string, error) {
	f, err := s.Get(ctx, owner, ref)
	if err != nil {
		return "", err
	}
	return s.deps.PublicURL + "/api/files/" + f.ID, nil
}

// Open returns the record and an open reader; the caller closes it.
func (s *FileService) Open(ctx context.Context, owner uint, ref string) (*models.StoredFile, *os.File, error) {
	f, err := s.Get(ctx, owner, ref)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.deps.Blobs.Open(f.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("file %s content: %w", ref, util.ErrNotFound)
		}
		return nil, nil, fmt.Errorf("open file: %w", err)
	}
	return f, rc, nil
}

// Delete removes ref. Trades still pointing at it keep a dangling value
// that resolves to NotFound.
func (s *FileService) Delete(ctx context.Context, owner uint, ref string) error {
	if err := requireOwner(owner); err != nil {
		return err
	}
	var removed []models.StoredFile
	err := s.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var f models.StoredFile
		if err := findOwned(tx, &f, ref, owner, func(f *models.StoredFile) uint { return f.UserID }, "file"); err != nil {
			return err
		}
		var err error
		removed, err = s.deleteRecords(tx, owner, []string{f.ID})
		return err
	})
	if err != nil {
		return err
	}
	s.RemoveBlobs(removed)
	return nil
}

// checkOwned fails with a validation error unless every ref is a file of
// owner.
func (s *FileService) checkOwned(tx *gorm.DB, owner uint, refs []string) error {
	if len(refs) == 0 {
		return nil
	}
	uniq := dedupe(refs)
	var n int64
	if err := tx.Model(&models.StoredFile{}).
		Where("user_id = ? AND id IN ?", owner, uniq).
		Count(&n).Error; err != nil {
		return fmt.Errorf("check files: %w", err)
	}
	if int(n) != len(uniq) {
		return util.Invalid("image value refers to an unknown file")
	}
	return nil
}

// deleteRecords drops the rows of refs inside tx and returns them so the
// blobs can be removed once tx commits.
func (s *FileService) deleteRecords(tx *gorm.DB, owner uint, refs []string) ([]models.StoredFile, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	var files []models.StoredFile
	if err := tx.Where("user_id = ? AND id IN ?", owner, dedupe(refs)).Find(&files).Error; err != nil {
		return nil, fmt.Errorf("load files: %w", err)
	}
	if len(files) == 0 {
		return nil, nil
	}
	ids := make([]string, len(files))
	for i := range files {
		ids[i] = files[i].ID
	}
	if err := tx.Where("id IN ?", ids).Delete(&models.StoredFile{}).Error; err != nil {
		return nil, fmt.Errorf("delete files: %w", err)
	}
	return files, nil
}

// releaseRecords is deleteRecords for refs a trade let go of. Refs still
// used by any of owner's trades are kept, so tx must already hold the
// trade changes.
func (s *FileService) releaseRecords(tx *gorm.DB, owner uint, refs []string) ([]models.StoredFile, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	referenced, err := referencedFiles(tx, owner)
	if err != nil {
		return nil, err
	}
	var unused []string
	for _, ref := range dedupe(refs) {
		if !referenced[ref] {
			unused = append(unused, ref)
		}
	}
	return s.deleteRecords(tx, owner, unused)
}

// RemoveBlobs deletes file contents. Failures are logged; the records are
// already gone.
func (s *FileService) RemoveBlobs(files []models.StoredFile) {
	for i := range files {
		s.removeBlob(files[i].Path)
	}
}

func (s *FileService) removeBlob(path string) {
	if err := s.deps.Blobs.Remove(path); err != nil {
		s.deps.Log.Warn("remove blob failed", zap.String("path", path), zap.Error(err))
	}
}

// PurgeOrphans deletes files created before cutoff that no trade refers
// to, e.g. uploads the client never attached.
func (s *FileService) PurgeOrphans(ctx context.Context, cutoff time.Time) (int, error) {
	db := s.deps.DB.WithContext(ctx)

	var candidates []models.StoredFile
	if err := db.Where("created_at < ?", cutoff).Find(&candidates).Error; err != nil {
		return 0, fmt.Errorf("load stale files: %w", err)
	}
	byOwner := make(map[uint][]string)
	for _, f := range candidates {
		byOwner[f.UserID] = append(byOwner[f.UserID], f.ID)
	}

	purged := 0
	for owner, ids := range byOwner {
		var removed []models.StoredFile
		err := db.Transaction(func(tx *gorm.DB) error {
			referenced, err := referencedFiles(tx, owner)
			if err != nil {
				return err
			}
			var orphans []string
			for _, id := range ids {
				if !referenced[id] {
					orphans = append(orphans, id)
				}
			}
			removed, err = s.deleteRecords(tx, owner, orphans)
			return err
		})
		if err != nil {
			return purged, err
		}
		s.RemoveBlobs(removed)
		purged += len(removed)
	}
	return purged, nil
}

// referencedFiles collects every image ref used by owner's trades.
func referencedFiles(tx *gorm.DB, owner uint) (map[string]bool, error) {
	var trades []models.Trade
	if err := tx.Select("id", "custom_data").Where("user_id = ?", owner).Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("load trades: %w", err)
	}
	out := make(map[string]bool)
	for i := range trades {
		for _, ref := range trades[i].CustomData.Data().ImageRefs() {
			out[ref] = true
		}
	}
	return out, nil
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

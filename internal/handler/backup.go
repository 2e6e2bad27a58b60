package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/garlicdoggoe/astrosynergy/internal/models"
	"github.com/garlicdoggoe/astrosynergy/internal/storage"
	"github.com/garlicdoggoe/astrosynergy/internal/util"
)

// backupVersion is bumped when backupData changes shape.
const backupVersion = 1

// BackupHandler 负责备份相关接口
type BackupHandler struct {
	DB     *gorm.DB
	Cipher *util.Cipher
	Disk   *storage.Disk
	Log    *zap.Logger
}

// NewBackupHandler 构造函数
func NewBackupHandler(db *gorm.DB, cipher *util.Cipher, disk *storage.Disk, log *zap.Logger) *BackupHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &BackupHandler{DB: db, Cipher: cipher, Disk: disk, Log: log}
}

// backupData 是写入备份文件的内容。Notes and trade notes stay in their
// encrypted column form; images are referenced, not copied.
type backupData struct {
	Version   int                   `json:"version"`
	UserID    uint                  `json:"user_id"`
	Created   time.Time             `json:"created"`
	Trades    []models.Trade        `json:"trades"`
	Columns   []models.CustomColumn `json:"columns"`
	Notes     []models.Note         `json:"notes"`
	Portfolio *models.Portfolio     `json:"portfolio,omitempty"`
}

func backupResp(b *models.Backup) gin.H {
	return gin.H{
		"id":         b.ID,
		"file_name":  b.FileName,
		"size":       b.Size,
		"created_at": b.CreatedAt,
	}
}

func (h *BackupHandler) snapshot(userID uint) (*backupData, error) {
	data := backupData{Version: backupVersion, UserID: userID, Created: time.Now()}
	if err := h.DB.Where("user_id = ?", userID).Order("date ASC, created_at ASC, id ASC").Find(&data.Trades).Error; err != nil {
		return nil, fmt.Errorf("load trades: %w", err)
	}
	if err := h.DB.Where("user_id = ?", userID).Order("sort_order ASC").Find(&data.Columns).Error; err != nil {
		return nil, fmt.Errorf("load columns: %w", err)
	}
	if err := h.DB.Where("user_id = ?", userID).Order("date ASC").Find(&data.Notes).Error; err != nil {
		return nil, fmt.Errorf("load notes: %w", err)
	}
	var p models.Portfolio
	err := h.DB.Where("user_id = ?", userID).First(&p).Error
	switch {
	case err == nil:
		data.Portfolio = &p
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("load portfolio: %w", err)
	}
	return &data, nil
}

func (h *BackupHandler) seal(raw []byte) ([]byte, error) {
	if !h.Cipher.Enabled() {
		return raw, nil
	}
	return h.Cipher.Encrypt(raw)
}

func (h *BackupHandler) open(data []byte) ([]byte, error) {
	if !h.Cipher.Enabled() {
		return data, nil
	}
	return h.Cipher.Decrypt(data)
}

// CreateBackup 生成当前用户的加密备份文件
func (h *BackupHandler) CreateBackup(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	data, err := h.snapshot(user.ID)
	if err != nil {
		util.Fail(c, err, "failed to read journal")
		return
	}
	raw, err := json.Marshal(data)
	if err != nil {
		util.Fail(c, err, "failed to encode backup")
		return
	}
	enc, err := h.seal(raw)
	if err != nil {
		util.Fail(c, err, "failed to encrypt backup")
		return
	}

	fileName := fmt.Sprintf("backup-%d-%s.bin", user.ID, uuid.NewString())
	key := fmt.Sprintf("%d/%s", user.ID, fileName)
	size, err := h.Disk.Put(key, bytes.NewReader(enc), 0)
	if err != nil {
		util.Fail(c, err, "failed to write backup")
		return
	}

	backup := models.Backup{
		UserID:   user.ID,
		FileName: fileName,
		FilePath: key,
		Size:     size,
	}
	if err := h.DB.Create(&backup).Error; err != nil {
		_ = h.Disk.Remove(key)
		util.Fail(c, err, "failed to save backup record")
		return
	}

	util.Success(c, util.Response{"backup": backupResp(&backup)})
}

// ListBackups 列出当前用户已有的备份
func (h *BackupHandler) ListBackups(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var list []models.Backup
	if err := h.DB.Where("user_id = ?", user.ID).
		Order("created_at DESC, id DESC").
		Find(&list).Error; err != nil {
		util.Fail(c, err, "failed to list backups")
		return
	}

	items := make([]gin.H, 0, len(list))
	for i := range list {
		items = append(items, backupResp(&list[i]))
	}
	util.Success(c, util.Response{"items": items})
}

func (h *BackupHandler) find(c *gin.Context, userID uint) (*models.Backup, bool) {
	id, ok := idParam(c)
	if !ok {
		return nil, false
	}
	var backup models.Backup
	if err := h.DB.Where("id = ? AND user_id = ?", id, userID).First(&backup).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "backup not found")
		} else {
			util.Fail(c, err, "failed to query backup")
		}
		return nil, false
	}
	return &backup, true
}

// DownloadBackup 下载指定备份文件
func (h *BackupHandler) DownloadBackup(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	backup, ok := h.find(c, user.ID)
	if !ok {
		return
	}
	path, err := h.Disk.FullPath(backup.FilePath)
	if err != nil {
		util.Fail(c, err, "failed to open backup")
		return
	}
	c.Header("Content-Type", "application/octet-stream")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", backup.FileName))
	c.File(path)
}

// DeleteBackup 删除备份记录及对应文件
func (h *BackupHandler) DeleteBackup(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	backup, ok := h.find(c, user.ID)
	if !ok {
		return
	}

	if err := h.DB.Delete(backup).Error; err != nil {
		util.Fail(c, err, "failed to delete backup")
		return
	}
	if err := h.Disk.Remove(backup.FilePath); err != nil {
		h.Log.Warn("remove backup file", zap.String("key", backup.FilePath), zap.Error(err))
	}
	util.Success(c, util.Response{"message": "deleted"})
}

// RestoreBackup replaces the user's trades, columns, notes and portfolio
// with the backup contents. Image values whose file no longer exists are
// dropped.
func (h *BackupHandler) RestoreBackup(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	backup, ok := h.find(c, user.ID)
	if !ok {
		return
	}

	encData, err := h.Disk.ReadAll(backup.FilePath)
	if err != nil {
		util.Fail(c, err, "failed to read backup")
		return
	}
	raw, err := h.open(encData)
	if err != nil {
		util.Fail(c, err, "failed to decrypt backup")
		return
	}
	var data backupData
	if err := json.Unmarshal(raw, &data); err != nil {
		util.Fail(c, err, "failed to decode backup")
		return
	}
	if data.UserID != user.ID {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "backup belongs to another user")
		return
	}
	if data.Version > backupVersion {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "backup was made by a newer version")
		return
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		return restoreJournal(tx, user.ID, &data)
	})
	if err != nil {
		util.Fail(c, err, "failed to restore backup")
		return
	}
	h.Log.Info("backup restored", zap.Uint("user_id", user.ID), zap.Uint("backup_id", backup.ID))

	util.Success(c, util.Response{
		"message":       "restored",
		"trades_count":  len(data.Trades),
		"columns_count": len(data.Columns),
		"notes_count":   len(data.Notes),
	})
}

func restoreJournal(tx *gorm.DB, userID uint, data *backupData) error {
	for _, m := range []any{&models.Trade{}, &models.CustomColumn{}, &models.Note{}, &models.Portfolio{}} {
		if err := tx.Where("user_id = ?", userID).Delete(m).Error; err != nil {
			return err
		}
	}

	var fileIDs []string
	if err := tx.Model(&models.StoredFile{}).Where("user_id = ?", userID).Pluck("id", &fileIDs).Error; err != nil {
		return err
	}
	files := make(map[string]bool, len(fileIDs))
	for _, id := range fileIDs {
		files[id] = true
	}

	columns := make(map[string]bool, len(data.Columns))
	for i := range data.Columns {
		col := data.Columns[i]
		col.UserID = userID
		col.Order = i
		if err := tx.Create(&col).Error; err != nil {
			return err
		}
		columns[col.ID] = true
	}

	for i := range data.Trades {
		t := data.Trades[i]
		t.ID = 0
		t.UserID = userID
		cd := t.CustomData.Data().Clone()
		for k, v := range cd {
			if !columns[k] || (v.Type == models.ColumnImage && !files[v.FileRef]) {
				delete(cd, k)
			}
		}
		t.CustomData = datatypes.NewJSONType(cd)
		if err := tx.Create(&t).Error; err != nil {
			return err
		}
	}

	for i := range data.Notes {
		n := data.Notes[i]
		n.ID = 0
		n.UserID = userID
		if err := tx.Create(&n).Error; err != nil {
			return err
		}
	}

	if data.Portfolio != nil {
		p := *data.Portfolio
		p.ID = 0
		p.UserID = userID
		if err := tx.Create(&p).Error; err != nil {
			return err
		}
	}
	return nil
}

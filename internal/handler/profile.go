package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/garlicdoggoe/astrosynergy/internal/models"
	"github.com/garlicdoggoe/astrosynergy/internal/util"
)

// DeletionBuffer is how long a deleted account can still be restored by
// logging in.
const DeletionBuffer = 7 * 24 * time.Hour

// UpdateProfileReq 更新基本资料请求
type UpdateProfileReq struct {
	DisplayName string `json:"display_name" binding:"max=64"`
}

// ChangePasswordReq 修改密码请求
type ChangePasswordReq struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// UpdateProfile 更新当前用户的昵称等资料
func UpdateProfile(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		var req UpdateProfileReq
		if err := c.ShouldBindJSON(&req); err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request body")
			return
		}

		req.DisplayName = strings.TrimSpace(req.DisplayName)
		if err := db.Model(user).Update("display_name", req.DisplayName).Error; err != nil {
			util.Fail(c, err, "failed to update profile")
			return
		}
		user.DisplayName = req.DisplayName

		util.Success(c, util.Response{"user": userResp(user)})
	}
}

// ChangePassword 修改当前用户密码，并让其它会话失效
func ChangePassword(db *gorm.DB, bcryptCost int) gin.HandlerFunc {
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		var req ChangePasswordReq
		if err := c.ShouldBindJSON(&req); err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request body")
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "old password is incorrect")
			return
		}
		if !isStrongPassword(req.NewPassword) {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "password must be 8-32 chars with upper, lower and digit")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcryptCost)
		if err != nil {
			util.Fail(c, err, "failed to hash password")
			return
		}

		sid := c.GetString(SessionIDKey)
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(user).Update("password_hash", string(hash)).Error; err != nil {
				return err
			}
			return tx.Model(&models.Session{}).
				Where("user_id = ? AND id <> ?", user.ID, sid).
				Update("revoked", true).Error
		})
		if err != nil {
			util.Fail(c, err, "failed to change password")
			return
		}

		util.Success(c, util.Response{
			"message": "password changed, other sessions were signed out",
		})
	}
}

// DeleteAccount 注销当前账号（设置 7 天缓冲期），所有会话立即失效
func DeleteAccount(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}
		if user.DeletedAt != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "account is already scheduled for deletion")
			return
		}

		now := time.Now()
		permanentlyAt := now.Add(DeletionBuffer)
		user.DeletedAt = &now
		user.DeletePermanentlyAt = &permanentlyAt

		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Save(user).Error; err != nil {
				return err
			}
			return tx.Model(&models.Session{}).
				Where("user_id = ?", user.ID).
				Update("revoked", true).Error
		})
		if err != nil {
			util.Fail(c, err, "failed to delete account")
			return
		}

		util.Success(c, util.Response{
			"message":               "account scheduled for deletion",
			"deleted_at":            now,
			"delete_permanently_at": permanentlyAt,
			"tip":                   "log in within 7 days to restore the account",
		})
	}
}

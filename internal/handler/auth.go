package handler

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/garlicdoggoe/astrosynergy/internal/models"
	"github.com/garlicdoggoe/astrosynergy/internal/util"
)

const (
	maxFailedLogins = 5
	lockDuration    = 10 * time.Minute
	// TokenCookie carries the JWT for clients that cannot set headers.
	TokenCookie = "asy_token"
)

var usernameRe = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)

// AuthHandler 负责登录/注册相关接口
type AuthHandler struct {
	DB         *gorm.DB
	Log        *zap.Logger
	JWTSecret  string
	Issuer     string
	TokenTTL   time.Duration
	BcryptCost int
	Now        func() time.Time
}

// NewAuthHandler 构造函数
func NewAuthHandler(db *gorm.DB, log *zap.Logger, jwtSecret, issuer string, ttlHours, bcryptCost int) *AuthHandler {
	if ttlHours <= 0 {
		ttlHours = 24
	}
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{
		DB:         db,
		Log:        log,
		JWTSecret:  jwtSecret,
		Issuer:     issuer,
		TokenTTL:   time.Duration(ttlHours) * time.Hour,
		BcryptCost: bcryptCost,
		Now:        time.Now,
	}
}

func userResp(u *models.User) gin.H {
	return gin.H{
		"id":           u.ID,
		"username":     u.Username,
		"display_name": u.DisplayName,
	}
}

// ---------- 注册 ----------

type registerReq struct {
	Username        string `json:"username" binding:"required"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
	DisplayName     string `json:"display_name" binding:"max=64"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if !usernameRe.MatchString(req.Username) {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "username must be 3-20 letters, digits or underscores")
		return
	}
	if !isStrongPassword(req.Password) {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "password must be 8-32 chars with upper, lower and digit")
		return
	}
	if req.Password != req.ConfirmPassword {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "passwords do not match")
		return
	}

	// 不区分大小写唯一
	var count int64
	if err := h.DB.Model(&models.User{}).
		Where("LOWER(username) = LOWER(?)", req.Username).
		Count(&count).Error; err != nil {
		util.Fail(c, err, "failed to query user")
		return
	}
	if count > 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "username already taken")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.BcryptCost)
	if err != nil {
		util.Fail(c, err, "failed to hash password")
		return
	}

	user := models.User{
		Username:     req.Username,
		PasswordHash: string(hash),
		DisplayName:  strings.TrimSpace(req.DisplayName),
	}
	if err := h.DB.Create(&user).Error; err != nil {
		util.Fail(c, err, "failed to create user")
		return
	}
	h.Log.Info("user registered", zap.Uint("user_id", user.ID))

	util.Success(c, util.Response{
		"message": "registered",
		"user":    userResp(&user),
	})
}

// 检查密码强度：8-32 位，包含大小写字母和数字
func isStrongPassword(pwd string) bool {
	if len(pwd) < 8 || len(pwd) > 32 {
		return false
	}
	var hasUpper, hasLower, hasDigit bool
	for _, ch := range pwd {
		switch {
		case ch >= 'A' && ch <= 'Z':
			hasUpper = true
		case ch >= 'a' && ch <= 'z':
			hasLower = true
		case ch >= '0' && ch <= '9':
			hasDigit = true
		}
	}
	return hasUpper && hasLower && hasDigit
}

// ---------- 登录 ----------

type loginReq struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	// SetCookie also returns the token as an HttpOnly cookie.
	SetCookie bool `json:"set_cookie"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)

	var user models.User
	if err := h.DB.Where("LOWER(username) = LOWER(?)", req.Username).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.Error(c, http.StatusUnauthorized, util.CodeAuth, "invalid username or password")
		} else {
			util.Fail(c, err, "failed to query user")
		}
		return
	}

	now := h.Now()

	if user.LockedUntil != nil && now.Before(*user.LockedUntil) {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "account locked, try again later")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		// 达到5次则锁定10分钟
		user.FailedLoginAttempts++
		if user.FailedLoginAttempts >= maxFailedLogins {
			lockUntil := now.Add(lockDuration)
			user.LockedUntil = &lockUntil
			user.FailedLoginAttempts = 0
			h.Log.Warn("account locked", zap.Uint("user_id", user.ID), zap.String("ip", c.ClientIP()))
		}
		_ = h.DB.Save(&user).Error
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "invalid username or password")
		return
	}

	// 注销缓冲期内登录则撤销注销
	if user.DeletedAt != nil {
		if user.DeletePermanentlyAt == nil || !now.Before(*user.DeletePermanentlyAt) {
			util.Error(c, http.StatusUnauthorized, util.CodeAuth, "account has been deleted")
			return
		}
		user.DeletedAt = nil
		user.DeletePermanentlyAt = nil
		h.Log.Info("account deletion cancelled by login", zap.Uint("user_id", user.ID))
	}

	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	user.LastLoginIP = c.ClientIP()
	user.LastLoginAt = &now

	session := models.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: now.Add(h.TokenTTL),
	}
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&user).Error; err != nil {
			return err
		}
		return tx.Create(&session).Error
	})
	if err != nil {
		util.Fail(c, err, "failed to create session")
		return
	}

	token, err := util.GenerateToken(h.JWTSecret, h.Issuer, user.ID, session.ID, h.TokenTTL)
	if err != nil {
		util.Fail(c, err, "failed to sign token")
		return
	}

	if req.SetCookie {
		c.SetSameSite(http.SameSiteStrictMode)
		c.SetCookie(TokenCookie, token, int(h.TokenTTL.Seconds()), "/", "", c.Request.TLS != nil, true)
	}

	util.Success(c, util.Response{
		"token":      token,
		"expires_at": session.ExpiresAt,
		"user":       userResp(&user),
	})
}

// Logout revokes the session the request was authenticated with.
func (h *AuthHandler) Logout(c *gin.Context) {
	if _, ok := currentUser(c); !ok {
		return
	}
	sid := c.GetString(SessionIDKey)
	if sid != "" {
		if err := h.DB.Model(&models.Session{}).
			Where("id = ?", sid).
			Update("revoked", true).Error; err != nil {
			util.Fail(c, err, "failed to log out")
			return
		}
	}
	c.SetCookie(TokenCookie, "", -1, "/", "", c.Request.TLS != nil, true)
	util.Success(c, util.Response{"message": "logged out"})
}

// GetMe 返回当前登录用户
func GetMe(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	resp := userResp(user)
	resp["created_at"] = user.CreatedAt
	resp["last_login_at"] = user.LastLoginAt
	util.Success(c, util.Response{"user": resp})
}

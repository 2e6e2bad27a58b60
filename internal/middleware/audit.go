package middleware

import (
	"bytes"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/garlicdoggoe/astrosynergy/internal/handler"
	"github.com/garlicdoggoe/astrosynergy/internal/models"
	"github.com/garlicdoggoe/astrosynergy/internal/util"
)

// maxAuditBody is the largest request body copied into the action text.
const maxAuditBody = 2000

// AuditMiddleware records every authenticated request once it has been
// handled. Path and action are encrypted; only JSON bodies are captured so
// uploads and passwords in form posts never reach the log.
func AuditMiddleware(db *gorm.DB, cipher *util.Cipher, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		var userID uint
		if v, ok := c.Get(handler.CurrentUserKey); ok {
			if user, ok := v.(*models.User); ok && user != nil {
				userID = user.ID
			}
		}

		bodyBytes := captureBody(c)

		c.Next()

		if userID == 0 {
			return
		}

		path := c.Request.URL.Path
		action := c.Request.Method + " " + path
		if len(bodyBytes) > 0 && !strings.Contains(path, "/password") {
			action += " " + string(bodyBytes)
		}

		encPath, err := cipher.EncryptString(path)
		if err != nil {
			log.Warn("audit: encrypt path", zap.Error(err))
			return
		}
		encAction, err := cipher.EncryptString(action)
		if err != nil {
			log.Warn("audit: encrypt action", zap.Error(err))
			return
		}

		entry := models.AuditLog{
			UserID:    &userID,
			PathEnc:   encPath,
			Method:    c.Request.Method,
			ActionEnc: encAction,
			Status:    c.Writer.Status(),
			IP:        c.ClientIP(),
			UserAgent: truncate(c.Request.UserAgent(), 255),
		}
		if err := db.Create(&entry).Error; err != nil {
			log.Warn("audit: write log", zap.Error(err))
		}
	}
}

// captureBody copies a small JSON body and puts it back for the handler.
// Bodies of unknown length (chunked) are left alone.
func captureBody(c *gin.Context) []byte {
	r := c.Request
	if r.Body == nil || !strings.HasPrefix(c.ContentType(), "application/json") {
		return nil
	}
	if r.ContentLength < 0 || r.ContentLength > maxAuditBody {
		return nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxAuditBody+1))
	r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(body), r.Body))
	if err != nil || len(body) > maxAuditBody {
		return nil
	}
	return body
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

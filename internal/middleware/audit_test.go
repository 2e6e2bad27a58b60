package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/garlicdoggoe/astrosynergy/internal/config"
	"github.com/garlicdoggoe/astrosynergy/internal/database"
	"github.com/garlicdoggoe/astrosynergy/internal/handler"
	"github.com/garlicdoggoe/astrosynergy/internal/models"
	"github.com/garlicdoggoe/astrosynergy/internal/util"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuditDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Init(config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "audit.db")})
	if err != nil {
		t.Fatalf("init db: %v", err)
	}
	t.Cleanup(func() { database.Close(db) })
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// auditedEngine echoes the request body back so tests can check the handler
// saw all of it.
func auditedEngine(db *gorm.DB, cipher *util.Cipher) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(handler.CurrentUserKey, &models.User{ID: 1})
	})
	r.Use(AuditMiddleware(db, cipher, nil))
	r.POST("/api/trades", func(c *gin.Context) {
		body, _ := io.ReadAll(c.Request.Body)
		c.String(http.StatusOK, "%d", len(body))
	})
	return r
}

func TestAudit_BodyCapture(t *testing.T) {
	small := `{"ticker":"AAPL"}`
	large := `{"note":"` + strings.Repeat("x", 3*maxAuditBody) + `"}`

	tests := []struct {
		name          string
		body          string
		contentLength int64
		wantAction    string
	}{
		{"small body", small, int64(len(small)), "POST /api/trades " + small},
		{"declared large body", large, int64(len(large)), "POST /api/trades"},
		{"chunked small body", small, -1, "POST /api/trades"},
		{"chunked large body", large, -1, "POST /api/trades"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newAuditDB(t)
			cipher := util.NewCipher("test-secret", "test-salt")
			r := auditedEngine(db, cipher)

			req := httptest.NewRequest(http.MethodPost, "/api/trades", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			req.ContentLength = tt.contentLength
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if got, want := w.Body.String(), strconv.Itoa(len(tt.body)); got != want {
				t.Errorf("handler read %s bytes, want %s", got, want)
			}

			var entry models.AuditLog
			if err := db.First(&entry).Error; err != nil {
				t.Fatalf("load audit log: %v", err)
			}
			if got := cipher.DecryptString(entry.ActionEnc); got != tt.wantAction {
				t.Errorf("action = %.60q, want %.60q", got, tt.wantAction)
			}
		})
	}
}

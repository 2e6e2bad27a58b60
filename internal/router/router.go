package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/garlicdoggoe/astrosynergy/internal/config"
	"github.com/garlicdoggoe/astrosynergy/internal/handler"
	"github.com/garlicdoggoe/astrosynergy/internal/middleware"
	"github.com/garlicdoggoe/astrosynergy/internal/service"
	"github.com/garlicdoggoe/astrosynergy/internal/storage"
	"github.com/garlicdoggoe/astrosynergy/internal/util"
)

// Deps are what the HTTP layer needs beyond the config.
type Deps struct {
	DB       *gorm.DB
	Services *service.Services
	Cipher   *util.Cipher
	Backups  *storage.Disk
	Log      *zap.Logger
}

// SetupRouter builds the gin engine with every API route registered.
func SetupRouter(cfg *config.Config, d Deps) *gin.Engine {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	r := gin.New()
	r.Use(middleware.RequestLogger(d.Log), middleware.Recovery(d.Log))

	r.GET("/healthz", handler.Health(d.DB))

	api := r.Group("/api")

	// 登录/注册接口（不需要鉴权）
	jwtSecret := cfg.JWT.Secret
	authHandler := handler.NewAuthHandler(d.DB, d.Log, jwtSecret, cfg.JWT.Issuer, cfg.JWT.ExpireHours, cfg.Security.BcryptCost)
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)

	// 上传凭证本身就是授权，不走登录校验
	fileHandler := handler.NewFileHandler(d.Services)
	api.PUT("/files/upload/:token", fileHandler.Upload)

	// 需要登录才能访问的接口
	protected := api.Group("")
	protected.Use(
		middleware.AuthMiddleware(jwtSecret, d.DB),
		middleware.AuditMiddleware(d.DB, d.Cipher, d.Log),
	)

	protected.POST("/auth/logout", authHandler.Logout)
	protected.GET("/me", handler.GetMe)

	protected.POST("/profile", handler.UpdateProfile(d.DB))
	protected.POST("/profile/password", handler.ChangePassword(d.DB, cfg.Security.BcryptCost))
	protected.POST("/profile/delete", handler.DeleteAccount(d.DB))

	tradeHandler := handler.NewTradeHandler(d.Services, cfg.App.PageSize)
	protected.GET("/trades", tradeHandler.ListTrades)
	protected.POST("/trades", tradeHandler.CreateTrade)
	protected.PATCH("/trades/:id", tradeHandler.PatchTrade)
	protected.DELETE("/trades/:id", tradeHandler.DeleteTrade)

	columnHandler := handler.NewColumnHandler(d.Services)
	protected.GET("/columns", columnHandler.ListColumns)
	protected.POST("/columns", columnHandler.AddColumn)
	protected.POST("/columns/reorder", columnHandler.ReorderColumns)
	protected.PATCH("/columns/:id", columnHandler.UpdateColumn)
	protected.DELETE("/columns/:id", columnHandler.DeleteColumn)

	portfolioHandler := handler.NewPortfolioHandler(d.Services)
	protected.GET("/portfolio", portfolioHandler.GetPortfolio)
	protected.PUT("/portfolio", portfolioHandler.UpsertPortfolio)

	noteHandler := handler.NewNoteHandler(d.Services)
	protected.GET("/notes", noteHandler.ListNotes)
	protected.GET("/notes/:date", noteHandler.GetNote)
	protected.PUT("/notes/:date", noteHandler.SaveNote)

	protected.POST("/files/upload-url", fileHandler.CreateUploadURL)
	protected.GET("/files/:id", fileHandler.Download)
	protected.GET("/files/:id/url", fileHandler.GetURL)
	protected.DELETE("/files/:id", fileHandler.DeleteFile)

	analyticsHandler := handler.NewAnalyticsHandler(d.Services)
	stats := protected.Group("/analytics")
	stats.GET("/summary", analyticsHandler.Summary)
	stats.GET("/by-ticker", analyticsHandler.ByTicker)
	stats.GET("/by-month", analyticsHandler.ByMonth)
	stats.GET("/by-hour", analyticsHandler.ByHour)
	stats.GET("/daily", analyticsHandler.Daily)
	stats.GET("/balance", analyticsHandler.Balance)
	stats.GET("/week", analyticsHandler.Week)
	protected.GET("/calendar", analyticsHandler.Calendar)

	exportHandler := handler.NewExportHandler(d.Services)
	protected.GET("/export/csv", exportHandler.ExportCSV)
	protected.GET("/export/xlsx", exportHandler.ExportXLSX)

	backupHandler := handler.NewBackupHandler(d.DB, d.Cipher, d.Backups, d.Log)
	protected.POST("/backups", backupHandler.CreateBackup)
	protected.GET("/backups", backupHandler.ListBackups)
	protected.GET("/backups/:id/download", backupHandler.DownloadBackup)
	protected.POST("/backups/:id/restore", backupHandler.RestoreBackup)
	protected.DELETE("/backups/:id", backupHandler.DeleteBackup)

	logHandler := handler.NewLogHandler(d.DB, d.Cipher)
	protected.GET("/logs", logHandler.ListLogs)
	protected.GET("/history", logHandler.ListTradeHistory)

	return r
}

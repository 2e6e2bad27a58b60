package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/garlicdoggoe/astrosynergy/internal/cache"
	"github.com/garlicdoggoe/astrosynergy/internal/config"
	"github.com/garlicdoggoe/astrosynergy/internal/database"
	"github.com/garlicdoggoe/astrosynergy/internal/jobs"
	"github.com/garlicdoggoe/astrosynergy/internal/logger"
	"github.com/garlicdoggoe/astrosynergy/internal/router"
	"github.com/garlicdoggoe/astrosynergy/internal/service"
	"github.com/garlicdoggoe/astrosynergy/internal/storage"
	"github.com/garlicdoggoe/astrosynergy/internal/util"
)

func main() {
	cfgPath := os.Getenv("ASY_CONFIG")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zl, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if cfg.JWT.Secret == "" {
		zl.Fatal("jwt.secret must be set (ASY_JWT_SECRET)")
	}
	if cfg.Security.EncryptionKey == "" {
		zl.Warn("security.encryption_key is empty, notes and audit logs are stored in plain text")
	}

	if cfg.Database.Driver == "sqlite" {
		if err := ensureDir(filepath.Dir(cfg.Database.Path)); err != nil {
			zl.Fatal("create data dir", zap.Error(err))
		}
	}

	db, err := database.Init(cfg.Database)
	if err != nil {
		zl.Fatal("init database", zap.Error(err))
	}
	defer database.Close(db)

	if err := database.AutoMigrate(db); err != nil {
		zl.Fatal("migrate database", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := cache.New(ctx, cfg.Cache)
	if err != nil {
		zl.Fatal("init cache", zap.Error(err))
	}
	if c, ok := store.(io.Closer); ok {
		defer c.Close()
	}

	blobs, err := storage.NewDisk(cfg.Storage.Dir)
	if err != nil {
		zl.Fatal("init file storage", zap.Error(err))
	}
	backups, err := storage.NewDisk(cfg.Backup.Dir)
	if err != nil {
		zl.Fatal("init backup storage", zap.Error(err))
	}

	cipher := util.NewCipher(cfg.Security.EncryptionKey, cfg.Security.KeySalt)

	svc, err := service.New(service.Deps{
		DB:        db,
		Cipher:    cipher,
		Blobs:     blobs,
		Cache:     store,
		Log:       zl,
		Journal:   cfg.Journal,
		Storage:   cfg.Storage,
		PublicURL: cfg.Server.PublicURL,
	})
	if err != nil {
		zl.Fatal("init services", zap.Error(err))
	}

	engine := router.SetupRouter(cfg, router.Deps{
		DB:       db,
		Services: svc,
		Cipher:   cipher,
		Backups:  backups,
		Log:      zl,
	})

	if cfg.Cron.Enabled {
		runner := jobs.NewRunner(zl, ctx)
		cleaner := jobs.NewCleaner(db, svc, backups, store, zl)
		if err := cleaner.Register(runner, cfg.Cron); err != nil {
			zl.Fatal("schedule jobs", zap.Error(err))
		}
		runner.Start()
		defer runner.Stop()
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zl.Info("server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("run server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("server shutdown", zap.Error(err))
	}
}

func ensureDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

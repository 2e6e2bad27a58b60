package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Address string `mapstructure:"address"`
	Port    int    `mapstructure:"port"`
	Mode    string `mapstructure:"mode"`
	// PublicURL is prepended to upload and file URLs handed to clients.
	PublicURL string `mapstructure:"public_url"`
}

type DatabaseConfig struct {
	Driver  string `mapstructure:"driver"` // sqlite / postgres
	Path    string `mapstructure:"path"`
	DSN     string `mapstructure:"dsn"`
	LogMode bool   `mapstructure:"log_mode"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	Issuer      string `mapstructure:"issuer"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

type SecurityConfig struct {
	BcryptCost    int    `mapstructure:"bcrypt_cost"`
	EncryptionKey string `mapstructure:"encryption_key"`
	KeySalt       string `mapstructure:"key_salt"`
}

type LogConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"` // json / console
}

type BackupConfig struct {
	Dir string `mapstructure:"dir"`
}

type StorageConfig struct {
	Dir          string        `mapstructure:"dir"`
	MaxFileBytes int64         `mapstructure:"max_file_bytes"`
	UploadTTL    time.Duration `mapstructure:"upload_ttl"`
}

type CacheConfig struct {
	Driver   string `mapstructure:"driver"` // memory / redis
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type CronConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	PurgeAccounts string `mapstructure:"purge_accounts"`
	PurgeUploads  string `mapstructure:"purge_uploads"`
	PurgeSessions string `mapstructure:"purge_sessions"`
}

type JournalConfig struct {
	BreakevenThreshold string `mapstructure:"breakeven_threshold"`
	MaxRangeDays       int    `mapstructure:"max_range_days"`
	Timezone           string `mapstructure:"timezone"`
}

type AppSubConfig struct {
	PageSize int `mapstructure:"page_size"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Security SecurityConfig `mapstructure:"security"`
	Log      LogConfig      `mapstructure:"log"`
	Backup   BackupConfig   `mapstructure:"backup"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Cron     CronConfig     `mapstructure:"cron"`
	Journal  JournalConfig  `mapstructure:"journal"`
	App      AppSubConfig   `mapstructure:"app"`
}

var (
	appConfig *Config
	once      sync.Once
)

// Load loads configuration from given file path (e.g. "config.yaml").
// If path is empty, it defaults to "config.yaml" in current working directory.
// A missing file is not an error: defaults plus ASY_* environment variables
// are enough to boot.
func Load(path string) (*Config, error) {
	var err error
	once.Do(func() {
		var c *Config
		c, err = Read(path)
		if err != nil {
			return
		}
		appConfig = c
	})

	if err != nil {
		return nil, err
	}
	return appConfig, nil
}

// Read builds a fresh Config without touching the process-wide one.
func Read(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load(".env")

	v := viper.New()
	setDefaults(v)

	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	// environment overrides, e.g. ASY_SERVER_PORT=9000
	v.SetEnvPrefix("ASY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil && !isNotFound(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

func isNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return true
	}
	// SetConfigFile with a missing path surfaces as an fs error instead
	return errors.Is(err, fs.ErrNotExist)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.public_url", "")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/journal.db")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.log_mode", false)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "astrosynergy")
	v.SetDefault("jwt.expire_hours", 24)

	v.SetDefault("security.bcrypt_cost", 12)
	v.SetDefault("security.encryption_key", "")
	v.SetDefault("security.key_salt", "astrosynergy")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")

	v.SetDefault("backup.dir", "data/backups")

	v.SetDefault("storage.dir", "data/files")
	v.SetDefault("storage.max_file_bytes", 10<<20)
	v.SetDefault("storage.upload_ttl", 15*time.Minute)

	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.addr", "127.0.0.1:6379")
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.db", 0)

	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.purge_accounts", "0 0 3 * * *")
	v.SetDefault("cron.purge_uploads", "0 30 * * * *")
	v.SetDefault("cron.purge_sessions", "0 15 4 * * *")

	v.SetDefault("journal.breakeven_threshold", "5")
	v.SetDefault("journal.max_range_days", 30)
	v.SetDefault("journal.timezone", "Local")

	v.SetDefault("app.page_size", 10)
}

// Get returns the loaded global configuration.
// Call Load() once at application startup.
func Get() *Config {
	return appConfig
}

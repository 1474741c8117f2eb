package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"post-reorder-backend/pkg/database"
	"post-reorder-backend/pkg/models"

	"github.com/spf13/viper"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Supported storage drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverRedis    = "redis"
)

// Config 应用配置结构
type Config struct {
	// 环境配置
	Environment string
	Port        string

	// 数据库配置
	DBDriver    string
	PostgresDSN string
	SQLitePath  string
	RedisAddr   string
	RedisDB     int
	AutoMigrate bool

	// JWT / nonce
	JWTSecret string
	NonceTTL  time.Duration

	// CORS配置
	AllowedOrigins []string

	// Reorder pages, one per post type
	Targets []models.ReorderTarget

	// 调试配置
	Debug bool

	// Warnings collected while loading; logged once a logger exists.
	Warnings []string
}

// LoadConfig 加载配置（defaults < config.yaml < .env 文件 < 环境变量）
func LoadConfig() *Config {
	return load(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("environment", "development")
	v.SetDefault("port", "3000")
	v.SetDefault("db_driver", DriverSQLite)
	v.SetDefault("sqlite_path", "./data/reorder.db")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_db", 0)
	v.SetDefault("auto_migrate", true)
	v.SetDefault("jwt_secret", defaultJWTSecret)
	v.SetDefault("nonce_ttl", 12*time.Hour)
	v.SetDefault("allowed_origins", "*")
	v.SetDefault("debug", false)
	v.AutomaticEnv()
	return v
}

func load(v *viper.Viper) *Config {
	var warnings []string

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/reorderd")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			warnings = append(warnings, fmt.Sprintf("config.yaml ignored: %v", err))
		}
	}

	// 根据环境加载对应的 .env 文件
	switch v.GetString("environment") {
	case "production":
		mergeEnvFile(v, ".env.production")
	default:
		mergeEnvFile(v, ".env.local")
	}

	cfg := &Config{
		Environment: strings.TrimSpace(v.GetString("environment")),
		Port:        strings.TrimSpace(v.GetString("port")),
		DBDriver:    strings.ToLower(strings.TrimSpace(v.GetString("db_driver"))),
		PostgresDSN: strings.TrimSpace(v.GetString("postgres_dsn")),
		SQLitePath:  strings.TrimSpace(v.GetString("sqlite_path")),
		RedisAddr:   strings.TrimSpace(v.GetString("redis_addr")),
		RedisDB:     v.GetInt("redis_db"),
		AutoMigrate: v.GetBool("auto_migrate"),
		JWTSecret:   v.GetString("jwt_secret"),
		NonceTTL:    v.GetDuration("nonce_ttl"),
		Debug:       v.GetBool("debug"),
	}

	// CORS配置
	allowedOrigins := strings.TrimSpace(v.GetString("allowed_origins"))
	if allowedOrigins == "*" || allowedOrigins == "" {
		cfg.AllowedOrigins = []string{"*"}
	} else {
		for _, o := range strings.Split(allowedOrigins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}

	cfg.Targets = loadTargets(v, &warnings)

	// 生产环境关闭调试
	if cfg.IsProduction() {
		if cfg.DBDriver == DriverSQLite {
			warnings = append(warnings, "production environment is using the embedded SQLite store; configure DB_DRIVER=postgres or redis")
		}
		cfg.Debug = false
	}

	cfg.Warnings = warnings
	return cfg
}

// loadTargets reads reorder.targets from the config file, or builds one
// default target per entry of REORDER_POST_TYPES.
func loadTargets(v *viper.Viper, warnings *[]string) []models.ReorderTarget {
	var targets []models.ReorderTarget
	if v.IsSet("reorder.targets") {
		if err := v.UnmarshalKey("reorder.targets", &targets); err != nil {
			*warnings = append(*warnings, fmt.Sprintf("reorder.targets ignored: %v", err))
			targets = nil
		}
	}
	if len(targets) == 0 {
		types := strings.TrimSpace(v.GetString("reorder_post_types"))
		if types == "" {
			types = "post"
		}
		for _, pt := range strings.Split(types, ",") {
			if pt = strings.TrimSpace(pt); pt != "" {
				targets = append(targets, models.ReorderTarget{PostType: pt})
			}
		}
	}
	for i := range targets {
		targets[i] = targets[i].WithDefaults()
	}
	return targets
}

// mergeEnvFile merges a dotenv file into v when it exists.
func mergeEnvFile(v *viper.Viper, filename string) {
	if _, err := os.Stat(filename); err != nil {
		return // 文件不存在，静默返回
	}
	ev := viper.New()
	ev.SetConfigFile(filename)
	ev.SetConfigType("env")
	if err := ev.ReadInConfig(); err != nil {
		return
	}
	_ = v.MergeConfigMap(ev.AllSettings())
}

// Cached config (initialized once per cold start)
var (
	cachedConfig *Config
	configOnce   sync.Once
)

// GetCached returns the process-wide cached Config.
// On serverless (Vercel), it initializes once per cold start and
// reuses it across warm invocations, avoiding per-request parsing.
func GetCached() *Config {
	configOnce.Do(func() {
		cachedConfig = LoadConfig()
	})
	return cachedConfig
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.JWTSecret == "" || c.JWTSecret == defaultJWTSecret {
		if c.IsProduction() {
			return fmt.Errorf("JWT_SECRET must be set in production")
		}
	}

	if c.NonceTTL <= 0 {
		return fmt.Errorf("NONCE_TTL must be positive, got %s", c.NonceTTL)
	}

	switch c.DBDriver {
	case DriverPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required when DB_DRIVER=postgres")
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required when DB_DRIVER=sqlite")
		}
	case DriverRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required when DB_DRIVER=redis")
		}
	default:
		return fmt.Errorf("unknown DB_DRIVER %q (want postgres, sqlite or redis)", c.DBDriver)
	}

	if len(c.Targets) == 0 {
		return fmt.Errorf("at least one reorder target is required")
	}
	seen := make(map[string]bool, len(c.Targets))
	for _, t := range c.Targets {
		if seen[t.PostType] {
			return fmt.Errorf("duplicate reorder target for post type %q", t.PostType)
		}
		seen[t.PostType] = true
	}

	return nil
}

// UsesDefaultSecret reports whether the built-in development secret is in use.
func (c *Config) UsesDefaultSecret() bool {
	return c.JWTSecret == defaultJWTSecret
}

// Target returns the reorder target for a post type.
func (c *Config) Target(postType string) (models.ReorderTarget, bool) {
	if postType == "" {
		postType = "post"
	}
	for _, t := range c.Targets {
		if t.PostType == postType {
			return t, true
		}
	}
	return models.ReorderTarget{}, false
}

// TargetBySlug returns the reorder target registered under a menu slug.
func (c *Config) TargetBySlug(slug string) (models.ReorderTarget, bool) {
	for _, t := range c.Targets {
		if t.MenuSlug() == slug {
			return t, true
		}
	}
	return models.ReorderTarget{}, false
}

// DatabaseConfig returns the storage settings for the database package.
func (c *Config) DatabaseConfig() database.DatabaseConfig {
	return database.DatabaseConfig{
		Driver:      c.DBDriver,
		PostgresDSN: c.PostgresDSN,
		SQLitePath:  c.SQLitePath,
		RedisAddr:   c.RedisAddr,
		RedisDB:     c.RedisDB,
		AutoMigrate: c.AutoMigrate,
		Debug:       c.Debug,
	}
}

// IsProduction 检查是否为生产环境
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsDevelopment 检查是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

package config

import (
	"testing"
	"time"

	"post-reorder-backend/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := load(newViper())

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.True(t, cfg.AutoMigrate)
	assert.Equal(t, 12*time.Hour, cfg.NonceTTL)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.True(t, cfg.UsesDefaultSecret())

	require.Len(t, cfg.Targets, 1)
	target := cfg.Targets[0]
	assert.Equal(t, "post", target.PostType)
	assert.Equal(t, "DESC", target.Order)
	assert.Equal(t, models.StatusPublish, target.PostStatus)
	assert.Equal(t, models.DefaultMaxLevels, target.MaxLevels)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("DB_DRIVER", "Redis")
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("NONCE_TTL", "30m")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("REORDER_POST_TYPES", "post, page ,product")
	t.Setenv("AUTO_MIGRATE", "false")

	cfg := load(newViper())

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DriverRedis, cfg.DBDriver)
	assert.Equal(t, "cache:6379", cfg.RedisAddr)
	assert.Equal(t, 30*time.Minute, cfg.NonceTTL)
	assert.False(t, cfg.AutoMigrate)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)

	var types []string
	for _, tgt := range cfg.Targets {
		types = append(types, tgt.PostType)
	}
	assert.Equal(t, []string{"post", "page", "product"}, types)
	require.NoError(t, cfg.Validate())

	dbCfg := cfg.DatabaseConfig()
	assert.Equal(t, "redis", dbCfg.Driver)
	assert.Equal(t, "cache:6379", dbCfg.RedisAddr)
	assert.False(t, dbCfg.AutoMigrate)
}

func TestLoadTargetsFromConfigTree(t *testing.T) {
	v := newViper()
	v.Set("reorder.targets", []map[string]interface{}{
		{"post_type": "page", "heading": "Sort pages", "order": "asc", "max_levels": 3},
		{"post_type": "product", "post_status": "private"},
	})
	cfg := load(v)

	require.Len(t, cfg.Targets, 2)
	page, ok := cfg.Target("page")
	require.True(t, ok)
	assert.Equal(t, "Sort pages", page.Heading)
	assert.Equal(t, "Sort pages", page.MenuLabel)
	assert.Equal(t, "ASC", page.Order)
	assert.Equal(t, 3, page.MaxLevels)
	assert.Equal(t, "reorder-page", page.MenuSlug())

	product, ok := cfg.TargetBySlug("reorder-product")
	require.True(t, ok)
	assert.Equal(t, models.StatusPrivate, product.PostStatus)

	_, ok = cfg.Target("post")
	assert.False(t, ok)
}

func TestProductionDisablesDebug(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("DEBUG", "true")
	cfg := load(newViper())

	assert.True(t, cfg.IsProduction())
	assert.False(t, cfg.Debug)
	assert.NotEmpty(t, cfg.Warnings, "sqlite in production is reported")
	assert.ErrorContains(t, cfg.Validate(), "JWT_SECRET")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Environment: "development",
			Port:        "3000",
			DBDriver:    DriverSQLite,
			SQLitePath:  "x.db",
			JWTSecret:   "s",
			NonceTTL:    time.Hour,
			Targets:     []models.ReorderTarget{models.ReorderTarget{}.WithDefaults()},
		}
	}
	require.NoError(t, valid().Validate())

	tests := map[string]func(c *Config){
		"no port":          func(c *Config) { c.Port = "" },
		"no ttl":           func(c *Config) { c.NonceTTL = 0 },
		"unknown driver":   func(c *Config) { c.DBDriver = "mongo" },
		"postgres w/o dsn": func(c *Config) { c.DBDriver = DriverPostgres },
		"redis w/o addr":   func(c *Config) { c.DBDriver = DriverRedis },
		"no targets":       func(c *Config) { c.Targets = nil },
		"duplicate target": func(c *Config) { c.Targets = append(c.Targets, c.Targets[0]) },
		"prod secret": func(c *Config) {
			c.Environment = "production"
			c.JWTSecret = defaultJWTSecret
		},
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

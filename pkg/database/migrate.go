package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationsFS embed.FS

// Migrate applies the embedded schema migrations for the configured driver.
// Redis is schemaless and returns immediately.
func Migrate(config DatabaseConfig) error {
	var (
		driverName string
		dir        string
		db         *sql.DB
		err        error
	)
	switch config.Driver {
	case "postgres":
		driverName, dir = "postgres", "migrations/postgres"
		db, err = sql.Open("postgres", config.PostgresDSN)
	case "sqlite", "":
		driverName, dir = "sqlite", "migrations/sqlite"
		var dsn string
		dsn, err = sqliteDSN(config.SQLitePath)
		if err == nil {
			db, err = sql.Open("sqlite", dsn)
		}
	case "redis":
		return nil
	default:
		return fmt.Errorf("migrate: unsupported driver %q", config.Driver)
	}
	if err != nil {
		return fmt.Errorf("migrate: failed to open database: %w", err)
	}

	var instance database.Driver
	if driverName == "postgres" {
		instance, err = migratepg.WithInstance(db, &migratepg.Config{})
	} else {
		instance, err = migratesqlite.WithInstance(db, &migratesqlite.Config{})
	}
	if err != nil {
		db.Close()
		return fmt.Errorf("migrate: failed to prepare %s driver: %w", driverName, err)
	}

	src, err := iofs.New(migrationsFS, dir)
	if err != nil {
		db.Close()
		return fmt.Errorf("migrate: failed to read embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, driverName, instance)
	if err != nil {
		db.Close()
		return fmt.Errorf("migrate: %w", err)
	}
	// Close releases both the source and db.
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate: failed to apply migrations: %w", err)
	}
	return nil
}

package database

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	log "github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// withMigrator opens the embedded journal migrations against databaseURL
// and closes them once fn returns.
func withMigrator(databaseURL string, fn func(m *migrate.Migrate) error) error {
	connCfg, err := pgx.ParseConfig(databaseURL)
	if err != nil {
		return fmt.Errorf("parse database url: %w", err)
	}
	driver, err := postgres.WithInstance(stdlib.OpenDB(*connCfg), &postgres.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migrator: %w", err)
	}
	defer m.Close()
	return fn(m)
}

// envURL lets the migrate subcommand run without any bot credentials.
func envURL() (string, error) {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url, nil
	}
	return "", errors.New("DATABASE_URL is required for migrations")
}

func logVersion(m *migrate.Migrate, msg string) {
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		log.Info("Journal schema is empty")
		return
	}
	log.WithFields(log.Fields{"version": version, "dirty": dirty}).Info(msg)
}

// RunMigrationsWithURL brings the journal schema at databaseURL up to date.
func RunMigrationsWithURL(databaseURL string) error {
	return withMigrator(databaseURL, func(m *migrate.Migrate) error {
		err := m.Up()
		if errors.Is(err, migrate.ErrNoChange) {
			log.Debug("Journal schema already current")
			return nil
		}
		if err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
		logVersion(m, "Migrated journal schema")
		return nil
	})
}

func MigrateUp() error {
	url, err := envURL()
	if err != nil {
		return err
	}
	return RunMigrationsWithURL(url)
}

// MigrateDown rolls back the given number of migrations.
func MigrateDown(steps string) error {
	n, err := strconv.Atoi(steps)
	if err != nil || n <= 0 {
		return fmt.Errorf("steps must be a positive integer, got %q", steps)
	}
	url, err := envURL()
	if err != nil {
		return err
	}
	return withMigrator(url, func(m *migrate.Migrate) error {
		err := m.Steps(-n)
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("Nothing to roll back")
			return nil
		}
		if err != nil {
			return fmt.Errorf("migrate down %d: %w", n, err)
		}
		logVersion(m, "Rolled back journal schema")
		return nil
	})
}

func MigrateStatus() error {
	url, err := envURL()
	if err != nil {
		return err
	}
	return withMigrator(url, func(m *migrate.Migrate) error {
		logVersion(m, "Journal schema version")
		return nil
	})
}

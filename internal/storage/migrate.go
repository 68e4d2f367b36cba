package storage

import (
	"context"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrations embed.FS

func (s *Store) gooseDialect() (string, string) {
	if s.driver == DriverPostgres {
		return "postgres", "migrations/postgres"
	}
	return "sqlite3", "migrations/sqlite"
}

// Migrate runs all pending migrations for the store's driver.
func (s *Store) Migrate(ctx context.Context) error {
	if s.db == nil {
		return ErrNotOpen
	}

	dialect, dir := s.gooseDialect()
	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{s})
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	if err := goose.UpContext(ctx, s.db, dir); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// MigrationVersion returns the current schema version.
func (s *Store) MigrationVersion(ctx context.Context) (int64, error) {
	if s.db == nil {
		return 0, ErrNotOpen
	}

	dialect, _ := s.gooseDialect()
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect(dialect); err != nil {
		return 0, fmt.Errorf("failed to set dialect: %w", err)
	}
	return goose.GetDBVersionContext(ctx, s.db)
}

// gooseLogger routes goose output to the store logger at debug level.
type gooseLogger struct{ s *Store }

func (l gooseLogger) Fatalf(format string, v ...any) {
	l.s.logger.Error(fmt.Sprintf(format, v...))
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.s.logger.Debug(fmt.Sprintf(format, v...))
}

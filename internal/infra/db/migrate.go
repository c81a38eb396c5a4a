package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

func openSQL(dsn string) (*sql.DB, error) {
	goose.SetBaseFS(migrations)
	// goose сам подставит драйвер pgx для диалекта postgres
	return goose.OpenDBWithDriver("postgres", dsn)
}

// Migrate выполняет команду goose (up, down, status, redo, version) над встроенными миграциями.
func Migrate(ctx context.Context, dsn, command string, log *slog.Logger) error {
	sqlDB, err := openSQL(dsn)
	if err != nil {
		return fmt.Errorf("open db for migrations: %w", err)
	}
	defer func() { _ = sqlDB.Close() }()

	goose.SetLogger(slogGoose{log: log})
	if err := goose.RunContext(ctx, command, sqlDB, "migrations"); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// slogGoose пишет вывод goose в общий логгер.
type slogGoose struct{ log *slog.Logger }

func (l slogGoose) Fatalf(format string, v ...any) { l.log.Error(fmt.Sprintf(format, v...)) }
func (l slogGoose) Printf(format string, v ...any) { l.log.Info(fmt.Sprintf(format, v...)) }

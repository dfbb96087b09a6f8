package engine

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/artpar/stackman/internal/core/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// =============================================================================
// Deploy History
// =============================================================================

// History records every terminal deploy outcome in a local SQLite database.
// It is an audit trail: writes are fire-and-forget from the orchestrator's
// point of view.
type History struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// OpenHistory opens the history database and runs migrations.
func OpenHistory(dsn string, logger *slog.Logger) (*History, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sqlx.Open("sqlite3", dsn+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping history database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history database: %w", err)
	}

	return &History{db: db, logger: logger.With("component", "history")}, nil
}

func runMigrations(db *sqlx.DB) error {
	driver, err := sqlite3.WithInstance(db.DB, &sqlite3.Config{NoTxWrap: true})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	migrator, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Close closes the database.
func (h *History) Close() error {
	return h.db.Close()
}

// Append stores one completed deploy run.
func (h *History) Append(ctx context.Context, run domain.DeployRun) error {
	_, err := h.db.NamedExecContext(ctx, `
		INSERT INTO deploy_runs (id, environment, strategy, success, rolled_back, outcome, started_at, finished_at)
		VALUES (:id, :environment, :strategy, :success, :rolled_back, :outcome, :started_at, :finished_at)`,
		run)
	if err != nil {
		return fmt.Errorf("append deploy run: %w", err)
	}
	h.logger.Debug("recorded deploy run", "id", run.ID, "environment", run.Environment, "success", run.Success)
	return nil
}

// List returns the most recent runs, newest first.
func (h *History) List(ctx context.Context, limit int) ([]domain.DeployRun, error) {
	if limit <= 0 {
		limit = 50
	}
	var runs []domain.DeployRun
	err := h.db.SelectContext(ctx, &runs, `
		SELECT id, environment, strategy, success, rolled_back, outcome, started_at, finished_at
		FROM deploy_runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list deploy runs: %w", err)
	}
	return runs, nil
}

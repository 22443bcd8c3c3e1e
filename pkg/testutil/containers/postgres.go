//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

// PostgresContainer wraps a testcontainers PostgreSQL instance with the
// project schema applied.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

// NewPostgresContainer starts a PostgreSQL container and runs the SQL files
// under migrations/ against it.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("trailguard"),
		tcpostgres.WithUsername("trailguard"),
		tcpostgres.WithPassword("trailguard"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open postgres connection: %v", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping postgres: %v", err)
	}

	if err := applyMigrations(ctx, db); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply migrations: %v", err)
	}

	// The container is shared across suites via the Manager singleton; Ryuk
	// reaps it after the test process exits.
	return &PostgresContainer{Container: container, DSN: dsn, DB: db}
}

// TruncateTables empties the given tables. Use between tests for isolation.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	_, err := p.DB.ExecContext(ctx,
		fmt.Sprintf("TRUNCATE TABLE %s CASCADE", strings.Join(tables, ", ")))
	return err
}

// applyMigrations runs every migrations/*.sql in filename order.
func applyMigrations(ctx context.Context, db *sql.DB) error {
	root, err := findRepoRoot()
	if err != nil {
		return err
	}

	files, err := filepath.Glob(filepath.Join(root, "migrations", "*.sql"))
	if err != nil {
		return err
	}
	sort.Strings(files)

	for _, file := range files {
		raw, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		if _, err := db.ExecContext(ctx, string(raw)); err != nil {
			return fmt.Errorf("apply migration %s: %w", filepath.Base(file), err)
		}
	}
	return nil
}

// findRepoRoot walks up from the working directory to the module root, so
// tests in nested packages locate migrations/ without hardcoded paths.
func findRepoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found above %s", dir)
		}
		dir = parent
	}
}

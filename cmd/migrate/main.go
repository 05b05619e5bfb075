package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/contractdesk/contractdesk/internal/config"
	"github.com/contractdesk/contractdesk/internal/logger"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func init() {
	time.Local = time.UTC
}

// Applies every .sql file under the migrations directory in lexicographic
// order. Files already recorded in schema_migrations are skipped, so the
// command is safe to repeat.
func main() {
	dir := flag.String("dir", "migrations", "Directory containing .sql migration files")
	dryRun := flag.Bool("dry-run", false, "Print pending migrations without executing them")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger, err := logger.NewLogger()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	db, err := sqlx.Connect("postgres", cfg.Postgres.GetDSN())
	if err != nil {
		logger.Fatalw("Failed to connect to postgres", "error", err)
	}
	defer db.Close()

	files, err := migrationFiles(*dir)
	if err != nil {
		logger.Fatalw("Failed to read migrations directory", "error", err, "dir", *dir)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		logger.Fatalw("Failed to create schema_migrations table", "error", err)
	}

	for _, file := range files {
		name := filepath.Base(file)

		var applied bool
		if err := db.Get(&applied, `SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE name = $1)`, name); err != nil {
			logger.Fatalw("Failed to check migration state", "error", err, "migration", name)
		}
		if applied {
			continue
		}

		contents, err := os.ReadFile(file)
		if err != nil {
			logger.Fatalw("Failed to read migration", "error", err, "migration", name)
		}

		if *dryRun {
			fmt.Printf("-- %s\n%s\n", name, contents)
			continue
		}

		logger.Infow("applying migration", "migration", name)
		tx, err := db.Beginx()
		if err != nil {
			logger.Fatalw("Failed to begin transaction", "error", err)
		}
		if _, err := tx.Exec(string(contents)); err != nil {
			_ = tx.Rollback()
			logger.Fatalw("Migration failed", "error", err, "migration", name)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations (name) VALUES ($1)`, name); err != nil {
			_ = tx.Rollback()
			logger.Fatalw("Failed to record migration", "error", err, "migration", name)
		}
		if err := tx.Commit(); err != nil {
			logger.Fatalw("Failed to commit migration", "error", err, "migration", name)
		}
	}

	logger.Info("migrations up to date")
}

func migrationFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

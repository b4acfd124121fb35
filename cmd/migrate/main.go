// Command migrate applies the SQL migrations in migrations/ to the database
// named by DATABASE_URL. It tracks applied versions in a schema_migrations
// table, so re-running it is safe.
//
// Usage:
//
//	migrate [-dir migrations] [up|down]
//
// "up" (the default) applies every pending *.up.sql in lexical order. "down"
// rolls back only the most recently applied version.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/lib/pq"
)

func main() {
	dir := flag.String("dir", "migrations", "directory containing *.up.sql / *.down.sql files")
	flag.Parse()

	direction := "up"
	if args := flag.Args(); len(args) > 0 {
		direction = args[0]
	}
	if direction != "up" && direction != "down" {
		slog.Error("unknown direction", "direction", direction)
		os.Exit(1)
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		slog.Error("DATABASE_URL is not set")
		os.Exit(1)
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := run(db, *dir, direction); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}
}

func run(db *sql.DB, dir, direction string) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	applied, err := appliedVersions(db)
	if err != nil {
		return err
	}

	if direction == "down" {
		return rollbackLatest(db, dir, applied)
	}
	return applyPending(db, dir, applied)
}

func appliedVersions(db *sql.DB) (map[string]bool, error) {
	rows, err := db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func applyPending(db *sql.DB, dir string, applied map[string]bool) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(files)

	for _, file := range files {
		version := strings.TrimSuffix(filepath.Base(file), ".up.sql")
		if applied[version] {
			continue
		}

		if err := applyFile(db, file, "INSERT INTO schema_migrations (version) VALUES ($1)", version); err != nil {
			return err
		}
		slog.Info("applied migration", "version", version)
	}
	return nil
}

func rollbackLatest(db *sql.DB, dir string, applied map[string]bool) error {
	versions := make([]string, 0, len(applied))
	for version := range applied {
		versions = append(versions, version)
	}
	if len(versions) == 0 {
		slog.Info("nothing to roll back")
		return nil
	}
	sort.Strings(versions)
	latest := versions[len(versions)-1]

	file := filepath.Join(dir, latest+".down.sql")
	if err := applyFile(db, file, "DELETE FROM schema_migrations WHERE version = $1", latest); err != nil {
		return err
	}
	slog.Info("rolled back migration", "version", latest)
	return nil
}

// applyFile runs one migration file and its bookkeeping statement in a single
// transaction, so a failed migration leaves no partial record.
func applyFile(db *sql.DB, file, bookkeeping, version string) error {
	contents, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read %s: %w", file, err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(string(contents)); err != nil {
		return fmt.Errorf("apply %s: %w", file, err)
	}
	if _, err := tx.Exec(bookkeeping, version); err != nil {
		return fmt.Errorf("record %s: %w", file, err)
	}
	return tx.Commit()
}

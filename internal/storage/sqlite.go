package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"leaderboard/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository stores the ledger in normalised tables. Save rewrites
// every table inside a single transaction.
type SQLiteRepository struct {
	db            *sql.DB
	schemaVersion uint
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("SQLite schema ready", "path", dbPath, "schema_version", version)

	return &SQLiteRepository{db: db, schemaVersion: version}, nil
}

// SchemaVersion returns the migration version the database was opened at.
func (r *SQLiteRepository) SchemaVersion() uint {
	return r.schemaVersion
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: ping: %w", ErrPersistence, err)
	}
	return nil
}

func (r *SQLiteRepository) Load(ctx context.Context) (*core.Ledger, error) {
	l := core.NewLedger()

	rows, err := r.db.QueryContext(ctx, `SELECT name FROM members ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("%w: query members: %w", ErrPersistence, err)
	}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("%w: scan member: %w", ErrPersistence, err)
		}
		l.Members = append(l.Members, name)
	}
	if err := closeRows(rows); err != nil {
		return nil, fmt.Errorf("%w: read members: %w", ErrPersistence, err)
	}

	rows, err = r.db.QueryContext(ctx, `SELECT week_key FROM weeks`)
	if err != nil {
		return nil, fmt.Errorf("%w: query weeks: %w", ErrPersistence, err)
	}
	for rows.Next() {
		var week string
		if err := rows.Scan(&week); err != nil {
			rows.Close()
			return nil, fmt.Errorf("%w: scan week: %w", ErrPersistence, err)
		}
		l.WeeklyData[core.WeekKey(week)] = map[string]core.ActivityCount{}
	}
	if err := closeRows(rows); err != nil {
		return nil, fmt.Errorf("%w: read weeks: %w", ErrPersistence, err)
	}

	rows, err = r.db.QueryContext(ctx, `SELECT week_key, member FROM weekly_entries`)
	if err != nil {
		return nil, fmt.Errorf("%w: query entries: %w", ErrPersistence, err)
	}
	for rows.Next() {
		var week, member string
		if err := rows.Scan(&week, &member); err != nil {
			rows.Close()
			return nil, fmt.Errorf("%w: scan entry: %w", ErrPersistence, err)
		}
		entry(l, core.WeekKey(week), member)
	}
	if err := closeRows(rows); err != nil {
		return nil, fmt.Errorf("%w: read entries: %w", ErrPersistence, err)
	}

	rows, err = r.db.QueryContext(ctx, `SELECT week_key, member, category, count FROM weekly_counts`)
	if err != nil {
		return nil, fmt.Errorf("%w: query counts: %w", ErrPersistence, err)
	}
	for rows.Next() {
		var week, member, category string
		var count int
		if err := rows.Scan(&week, &member, &category, &count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("%w: scan count: %w", ErrPersistence, err)
		}
		entry(l, core.WeekKey(week), member)[category] = count
	}
	if err := closeRows(rows); err != nil {
		return nil, fmt.Errorf("%w: read counts: %w", ErrPersistence, err)
	}

	slog.DebugContext(ctx, "Ledger loaded from SQLite",
		"members", len(l.Members),
		"weeks", len(l.WeeklyData))

	return l, nil
}

func (r *SQLiteRepository) Save(ctx context.Context, l *core.Ledger) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", ErrPersistence, err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM weekly_counts`,
		`DELETE FROM weekly_entries`,
		`DELETE FROM members`,
		`DELETE FROM weeks`,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: clear: %w", ErrPersistence, err)
		}
	}

	for i, name := range l.Members {
		if _, err := tx.ExecContext(ctx, `INSERT INTO members (position, name) VALUES (?, ?)`, i, name); err != nil {
			return fmt.Errorf("%w: insert member %q: %w", ErrPersistence, name, err)
		}
	}

	insertWeek, err := tx.PrepareContext(ctx, `INSERT INTO weeks (week_key) VALUES (?)`)
	if err != nil {
		return fmt.Errorf("%w: prepare week: %w", ErrPersistence, err)
	}
	defer insertWeek.Close()

	insertEntry, err := tx.PrepareContext(ctx, `INSERT INTO weekly_entries (week_key, member) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("%w: prepare entry: %w", ErrPersistence, err)
	}
	defer insertEntry.Close()

	insertCount, err := tx.PrepareContext(ctx, `INSERT INTO weekly_counts (week_key, member, category, count) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%w: prepare count: %w", ErrPersistence, err)
	}
	defer insertCount.Close()

	for week, entries := range l.WeeklyData {
		if _, err := insertWeek.ExecContext(ctx, string(week)); err != nil {
			return fmt.Errorf("%w: insert week %s: %w", ErrPersistence, week, err)
		}
		for member, counts := range entries {
			if _, err := insertEntry.ExecContext(ctx, string(week), member); err != nil {
				return fmt.Errorf("%w: insert entry %s/%q: %w", ErrPersistence, week, member, err)
			}
			for category, n := range counts {
				if _, err := insertCount.ExecContext(ctx, string(week), member, category, n); err != nil {
					return fmt.Errorf("%w: insert count %s/%q/%q: %w", ErrPersistence, week, member, category, err)
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrPersistence, err)
	}
	return nil
}

func entry(l *core.Ledger, week core.WeekKey, member string) core.ActivityCount {
	entries, ok := l.WeeklyData[week]
	if !ok {
		entries = map[string]core.ActivityCount{}
		l.WeeklyData[week] = entries
	}
	counts, ok := entries[member]
	if !ok {
		counts = core.ActivityCount{}
		entries[member] = counts
	}
	return counts
}

func closeRows(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	return rows.Close()
}

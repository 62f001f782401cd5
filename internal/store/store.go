// Package store persists the last-known alert set in SQLite.
//
// One row per alert id; start/end are epoch seconds or NULL. The store
// is the sole durable state of the watcher.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	logx "ctawatch/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type Config struct {
	Path        string
	BusyTimeout time.Duration // 0 means default
}

// Row is the persisted projection of an alert.
type Row struct {
	ID          string
	Start       *int64
	End         *int64
	Title       string
	Description string
	Color       string
	URL         string
}

type Store struct {
	db  *sql.DB
	log logx.Logger
}

func Open(cfg Config, log logx.Logger) (*Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if dir := filepath.Dir(cfg.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &Store{db: db, log: log}

	// Basic pragmas.
	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Debug("alert store ready", logx.String("path", cfg.Path))
	return st, nil
}

func (s *Store) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SelectAll returns the full alert set.
func (s *Store) SelectAll(ctx context.Context) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, start, "end", title, description, color, url FROM alerts`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var (
			r          Row
			start, end sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &start, &end, &r.Title, &r.Description, &r.Color, &r.URL); err != nil {
			return nil, err
		}
		if start.Valid {
			v := start.Int64
			r.Start = &v
		}
		if end.Valid {
			v := end.Int64
			r.End = &v
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) Insert(ctx context.Context, r Row) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO alerts (id, start, "end", title, description, color, url)
		 VALUES (?,?,?,?,?,?,?)`,
		r.ID, nullInt(r.Start), nullInt(r.End), r.Title, r.Description, r.Color, r.URL,
	)
	return err
}

func (s *Store) Update(ctx context.Context, r Row) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE alerts SET start = ?, "end" = ?, title = ?, description = ?, color = ?, url = ?
		 WHERE id = ?`,
		nullInt(r.Start), nullInt(r.End), r.Title, r.Description, r.Color, r.URL, r.ID,
	)
	return err
}

func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM alerts WHERE id = ?`, id)
	return err
}

// Now returns the store's own clock as epoch seconds. Reconciliation
// compares against this rather than process wall time so clock skew
// between host and database file timestamps cannot misfire the
// proximity windows.
func (s *Store) Now(ctx context.Context) (int64, error) {
	var now int64
	err := s.db.QueryRowContext(ctx,
		`SELECT CAST(strftime('%s','now') AS INTEGER)`).Scan(&now)
	return now, err
}

func nullInt(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

package store

import (
	"context"
	"database/sql"
	"embed"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/inventory/internal/core"
)

//go:embed migrations/sqlite/*.sql
var sqliteMigrations embed.FS

// MemoryPath opens a private in-process SQLite database.
const MemoryPath = ":memory:"

// SQLite stores records in a local SQLite file.
type SQLite struct {
	db *sql.DB
}

var _ core.Store = (*SQLite)(nil)

// OpenSQLite opens (creating if needed) the database at path, configures
// WAL mode and a busy timeout, and applies pending migrations.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrapf(err, "create database directory for %s", path)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open sqlite database %s", path)
	}
	// One command, one connection. This also keeps :memory: databases
	// from splitting across pool connections.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, errors.Wrapf(err, "%s on %s", pragma, path)
		}
	}

	s := NewSQLite(db)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLite wraps an open handle without migrating it.
func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

// Migrate applies pending embedded migrations.
func (s *SQLite) Migrate(ctx context.Context) error {
	return migrate(ctx, sqliteMigrations, "migrations/sqlite", s)
}

func (s *SQLite) applied(ctx context.Context, version string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = ?)", version).Scan(&exists)
	return exists, err
}

func (s *SQLite) apply(ctx context.Context, version, script string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	if _, err := tx.ExecContext(ctx, script); err != nil {
		tx.Rollback()
		return errors.Wrap(err, "execute")
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		tx.Rollback()
		return errors.Wrap(err, "record")
	}
	return errors.Wrap(tx.Commit(), "commit")
}

// Close releases the database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Insert adds a record and returns its assigned id.
func (s *SQLite) Insert(ctx context.Context, rec core.Record) (int64, error) {
	args, err := sqliteArgs(rec)
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO items
		(title, description, price, quantity, upc, category, condition, brand, platforms, attributes, status, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
	if err != nil {
		return 0, errors.Wrap(err, "insert item")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "insert item: last insert id")
	}
	return id, nil
}

// Update replaces the stored record with the given id.
func (s *SQLite) Update(ctx context.Context, id int64, rec core.Record) error {
	args, err := sqliteArgs(rec)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE items SET
		title = ?, description = ?, price = ?, quantity = ?, upc = ?, category = ?,
		condition = ?, brand = ?, platforms = ?, attributes = ?, status = ?, last_updated = ?
		WHERE id = ?`, append(args, id)...)
	if err != nil {
		return errors.Wrapf(err, "update item %d", id)
	}
	return checkAffected(res, id)
}

// ReadAll returns every record ordered by id.
func (s *SQLite) ReadAll(ctx context.Context) ([]core.Record, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+itemColumns+" FROM items ORDER BY id")
	if err != nil {
		return nil, errors.Wrap(err, "read items")
	}
	defer rows.Close()

	var out []core.Record
	for rows.Next() {
		rec, err := scanSQLite(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "read items")
	}
	return out, nil
}

// Get returns the record with the given id or core.ErrRecordNotFound.
func (s *SQLite) Get(ctx context.Context, id int64) (core.Record, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+itemColumns+" FROM items WHERE id = ?", id)
	rec, err := scanSQLite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Record{}, notFound(id)
	}
	return rec, err
}

// Delete removes the record with the given id.
func (s *SQLite) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM items WHERE id = ?", id)
	if err != nil {
		return errors.Wrapf(err, "delete item %d", id)
	}
	return checkAffected(res, id)
}

func checkAffected(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "item %d: rows affected", id)
	}
	if n == 0 {
		return notFound(id)
	}
	return nil
}

// sqliteArgs renders rec in column order, id excluded.
func sqliteArgs(rec core.Record) ([]any, error) {
	platforms, err := encodePlatforms(rec.Platforms)
	if err != nil {
		return nil, err
	}
	attrs, err := encodeAttributes(rec.Attributes)
	if err != nil {
		return nil, err
	}
	return []any{
		rec.Title, rec.Description, rec.Price.String(), rec.Quantity, rec.UPC,
		rec.Category, string(rec.Condition), rec.Brand, string(platforms), string(attrs),
		string(rec.Status), rec.LastModified.UTC().Format(time.RFC3339Nano),
	}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLite(row rowScanner) (core.Record, error) {
	var (
		rec                        core.Record
		price, condition, status   string
		platforms, attrs, modified string
	)
	err := row.Scan(&rec.ID, &rec.Title, &rec.Description, &price, &rec.Quantity, &rec.UPC,
		&rec.Category, &condition, &rec.Brand, &platforms, &attrs, &status, &modified)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Record{}, err
		}
		return core.Record{}, errors.Wrap(err, "scan item")
	}

	if rec.Price, err = decimal.NewFromString(price); err != nil {
		return core.Record{}, errors.Wrapf(err, "item %d: price %q", rec.ID, price)
	}
	if rec.Platforms, err = decodePlatforms([]byte(platforms)); err != nil {
		return core.Record{}, errors.Wrapf(err, "item %d", rec.ID)
	}
	if rec.Attributes, err = decodeAttributes([]byte(attrs)); err != nil {
		return core.Record{}, errors.Wrapf(err, "item %d", rec.ID)
	}
	if rec.LastModified, err = time.Parse(time.RFC3339Nano, modified); err != nil {
		return core.Record{}, errors.Wrapf(err, "item %d: last_updated %q", rec.ID, modified)
	}
	rec.Condition = core.Condition(condition)
	rec.Status = core.Status(status)
	return rec, nil
}

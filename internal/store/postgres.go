package store

import (
	"context"
	"embed"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/inventory/internal/core"
)

//go:embed migrations/postgres/*.sql
var postgresMigrations embed.FS

// DBTX is the query surface shared by pgxpool.Pool, pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Postgres stores records in a PostgreSQL database.
type Postgres struct {
	db    DBTX
	close func()
}

var _ core.Store = (*Postgres)(nil)

// OpenPostgres connects a pool capped at maxConns and applies pending migrations.
func OpenPostgres(ctx context.Context, dbURL string, maxConns int) (*Postgres, error) {
	poolCfg, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse database URL")
	}
	if maxConns > 0 {
		poolCfg.MaxConns = int32(maxConns)
	}
	poolCfg.MinConns = 0
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errors.Wrap(err, "create connection pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping database")
	}

	s := NewPostgres(pool)
	s.close = pool.Close
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgres wraps an existing connection without migrating it.
func NewPostgres(db DBTX) *Postgres {
	return &Postgres{db: db}
}

// Migrate applies pending embedded migrations.
func (s *Postgres) Migrate(ctx context.Context) error {
	return migrate(ctx, postgresMigrations, "migrations/postgres", s)
}

func (s *Postgres) applied(ctx context.Context, version string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)", version).Scan(&exists)
	return exists, err
}

func (s *Postgres) apply(ctx context.Context, version, script string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, script); err != nil {
		return errors.Wrap(err, "execute")
	}
	if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", version); err != nil {
		return errors.Wrap(err, "record")
	}
	return errors.Wrap(tx.Commit(ctx), "commit")
}

// Close releases the pool when this store opened it.
func (s *Postgres) Close() error {
	if s.close != nil {
		s.close()
	}
	return nil
}

// Insert adds a record and returns its assigned id.
func (s *Postgres) Insert(ctx context.Context, rec core.Record) (int64, error) {
	args, err := postgresArgs(rec)
	if err != nil {
		return 0, err
	}
	var id int64
	err = s.db.QueryRow(ctx, `INSERT INTO items
		(title, description, price, quantity, upc, category, condition, brand, platforms, attributes, status, last_updated)
		VALUES ($1, $2, $3::numeric, $4, $5, $6, $7, $8, $9, $10::jsonb, $11, $12)
		RETURNING id`, args...).Scan(&id)
	if err != nil {
		return 0, errors.Wrap(err, "insert item")
	}
	return id, nil
}

// Update replaces the stored record with the given id.
func (s *Postgres) Update(ctx context.Context, id int64, rec core.Record) error {
	args, err := postgresArgs(rec)
	if err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx, `UPDATE items SET
		title = $1, description = $2, price = $3::numeric, quantity = $4, upc = $5, category = $6,
		condition = $7, brand = $8, platforms = $9, attributes = $10::jsonb, status = $11, last_updated = $12
		WHERE id = $13`, append(args, id)...)
	if err != nil {
		return errors.Wrapf(err, "update item %d", id)
	}
	if tag.RowsAffected() == 0 {
		return notFound(id)
	}
	return nil
}

// pgSelect reads price as text so it round-trips through decimal exactly.
const pgSelect = `SELECT id, title, description, price::text, quantity, upc, category,
	condition, brand, platforms, attributes, status, last_updated FROM items`

// ReadAll returns every record ordered by id.
func (s *Postgres) ReadAll(ctx context.Context) ([]core.Record, error) {
	rows, err := s.db.Query(ctx, pgSelect+" ORDER BY id")
	if err != nil {
		return nil, errors.Wrap(err, "read items")
	}
	defer rows.Close()

	var out []core.Record
	for rows.Next() {
		rec, err := scanPostgres(rows)
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
func (s *Postgres) Get(ctx context.Context, id int64) (core.Record, error) {
	rec, err := scanPostgres(s.db.QueryRow(ctx, pgSelect+" WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Record{}, notFound(id)
	}
	return rec, err
}

// Delete removes the record with the given id.
func (s *Postgres) Delete(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, "DELETE FROM items WHERE id = $1", id)
	if err != nil {
		return errors.Wrapf(err, "delete item %d", id)
	}
	if tag.RowsAffected() == 0 {
		return notFound(id)
	}
	return nil
}

func postgresArgs(rec core.Record) ([]any, error) {
	attrs, err := encodeAttributes(rec.Attributes)
	if err != nil {
		return nil, err
	}
	platforms := rec.Platforms
	if platforms == nil {
		platforms = []string{}
	}
	return []any{
		rec.Title, rec.Description, rec.Price.String(), rec.Quantity, rec.UPC,
		rec.Category, string(rec.Condition), rec.Brand, platforms, string(attrs),
		string(rec.Status), rec.LastModified.UTC(),
	}, nil
}

func scanPostgres(row rowScanner) (core.Record, error) {
	var (
		rec                      core.Record
		price, condition, status string
		platforms                []string
		attrs                    []byte
	)
	err := row.Scan(&rec.ID, &rec.Title, &rec.Description, &price, &rec.Quantity, &rec.UPC,
		&rec.Category, &condition, &rec.Brand, &platforms, &attrs, &status, &rec.LastModified)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return core.Record{}, err
		}
		return core.Record{}, errors.Wrap(err, "scan item")
	}

	if rec.Price, err = decimal.NewFromString(price); err != nil {
		return core.Record{}, errors.Wrapf(err, "item %d: price %q", rec.ID, price)
	}
	if rec.Attributes, err = decodeAttributes(attrs); err != nil {
		return core.Record{}, errors.Wrapf(err, "item %d", rec.ID)
	}
	if len(platforms) > 0 {
		rec.Platforms = platforms
	}
	rec.Condition = core.Condition(condition)
	rec.Status = core.Status(status)
	return rec, nil
}

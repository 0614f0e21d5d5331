// Package store implements core.Gateway on PostgreSQL and in memory.
//
// Persons are kept as JSON documents keyed by their opaque ID, so the
// Postgres table mirrors a document store: one row per person with the
// validated fields in a JSONB column.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/persons/internal/core"
)

const personsTable = "persons"

// Querier is implemented by *pgxpool.Pool and by pgxmock pools in tests.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// Postgres is a core.Gateway backed by the persons table.
type Postgres struct {
	q Querier
}

var _ core.Gateway = (*Postgres)(nil)

// NewPostgres wraps a pool (or any Querier) as a gateway.
func NewPostgres(q Querier) *Postgres {
	return &Postgres{q: q}
}

// PoolConfig holds connection pool settings.
type PoolConfig struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// NewPool creates a connection pool and pings it so bad settings fail at
// startup.
func NewPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

func (s *Postgres) Create(ctx context.Context, id string, p core.Person) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode person %s: %w", id, err)
	}

	query, args, err := psql.Insert(personsTable).
		Columns("id", "doc").
		Values(id, doc).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	_, err = s.q.Exec(ctx, query, args...)
	return mapError(err, id)
}

func (s *Postgres) Get(ctx context.Context, id string) (core.Person, error) {
	query, args, err := psql.Select("doc").
		From(personsTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return core.Person{}, fmt.Errorf("build select: %w", err)
	}

	var doc []byte
	if err := s.q.QueryRow(ctx, query, args...).Scan(&doc); err != nil {
		return core.Person{}, mapError(err, id)
	}

	var p core.Person
	if err := json.Unmarshal(doc, &p); err != nil {
		return core.Person{}, fmt.Errorf("decode person %s: %w", id, err)
	}
	return p, nil
}

// UpdateFields merges fields into the stored document in one statement.
func (s *Postgres) UpdateFields(ctx context.Context, id string, fields map[string]any) error {
	patch, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode patch %s: %w", id, err)
	}

	query, args, err := psql.Update(personsTable).
		Set("doc", squirrel.Expr("doc || ?::jsonb", patch)).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := s.q.Exec(ctx, query, args...)
	if err != nil {
		return mapError(err, id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("person %s: %w", id, core.ErrNotFound)
	}
	return nil
}

func (s *Postgres) Delete(ctx context.Context, id string) error {
	query, args, err := psql.Delete(personsTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	tag, err := s.q.Exec(ctx, query, args...)
	if err != nil {
		return mapError(err, id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("person %s: %w", id, core.ErrNotFound)
	}
	return nil
}

// List returns persons in ID order.
func (s *Postgres) List(ctx context.Context, offset, limit int) ([]core.StoredPerson, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		return []core.StoredPerson{}, nil
	}

	query, args, err := psql.Select("id", "doc").
		From(personsTable).
		OrderBy("id").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list: %w", err)
	}

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list persons: %w", err)
	}
	defer rows.Close()

	out := make([]core.StoredPerson, 0, limit)
	for rows.Next() {
		var (
			id  string
			doc []byte
		)
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		sp := core.StoredPerson{ID: id}
		if err := json.Unmarshal(doc, &sp.Person); err != nil {
			return nil, fmt.Errorf("decode person %s: %w", id, err)
		}
		out = append(out, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list persons: %w", err)
	}

	return out, nil
}

func (s *Postgres) Count(ctx context.Context) (int64, error) {
	query, args, err := psql.Select("COUNT(*)").From(personsTable).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}

	var n int64
	if err := s.q.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count persons: %w", err)
	}
	return n, nil
}

func (s *Postgres) Ping(ctx context.Context) error {
	return s.q.Ping(ctx)
}

// mapError converts pgx/pgconn errors to core errors.
// Context errors pass through wrapped.
func mapError(err error, id string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("person %s: %w", id, err)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("person %s: %w", id, core.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("person %s: %w", id, core.ErrAlreadyExists)
	}

	return fmt.Errorf("person %s: %w", id, err)
}

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres implements Store on a single records table. The conditional
// update is a plain UPDATE guarded by a status predicate, so the contract
// matches the other backends without any explicit locking.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func NewPostgresPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Schema is applied out of band by migrations:
//
//	CREATE TABLE IF NOT EXISTS records (
//	    tbl    text NOT NULL,
//	    key    text NOT NULL,
//	    status text NOT NULL,
//	    doc    jsonb NOT NULL,
//	    PRIMARY KEY (tbl, key)
//	);

func (p *Postgres) Get(ctx context.Context, table, key string) (*Record, error) {
	const q = `SELECT status, doc FROM records WHERE tbl=$1 AND key=$2`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rec := Record{Key: key}
	err := p.pool.QueryRow(ctx, q, table, key).Scan(&rec.Status, &rec.Doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &rec, nil
}

func (p *Postgres) Insert(ctx context.Context, table string, rec *Record) error {
	const q = `INSERT INTO records(tbl, key, status, doc) VALUES($1,$2,$3,$4)`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := p.pool.Exec(ctx, q, table, rec.Key, rec.Status, rec.Doc)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAlreadyExists
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (p *Postgres) UpdateIfStatus(ctx context.Context, table, key, expectedStatus string, rec *Record) error {
	const q = `UPDATE records SET status=$4, doc=$5 WHERE tbl=$1 AND key=$2 AND status=$3`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tag, err := p.pool.Exec(ctx, q, table, key, expectedStatus, rec.Status, rec.Doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		// distinguish a missing row from a lost race
		var exists bool
		if err := p.pool.QueryRow(ctx, `SELECT true FROM records WHERE tbl=$1 AND key=$2`, table, key).Scan(&exists); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return ErrConflict
	}
	return nil
}

func (p *Postgres) Scan(ctx context.Context, table string) ([]*Record, error) {
	const q = `SELECT key, status, doc FROM records WHERE tbl=$1`

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := p.pool.Query(ctx, q, table)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var recs []*Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.Key, &rec.Status, &rec.Doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		recs = append(recs, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return recs, nil
}

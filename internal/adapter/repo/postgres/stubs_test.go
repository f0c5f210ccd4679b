package postgres_test

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type execCall struct {
	sql  string
	args []any
}

// rowsStub implements pgx.Rows over canned scan functions.
type rowsStub struct {
	scans []func(dest ...any) error
	i     int
	err   error
}

func (r *rowsStub) Close() {}
func (r *rowsStub) Err() error { return r.err }
func (r *rowsStub) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }
func (r *rowsStub) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *rowsStub) Next() bool {
	r.i++
	return r.i <= len(r.scans)
}
func (r *rowsStub) Scan(dest ...any) error { return r.scans[r.i-1](dest...) }
func (r *rowsStub) Values() ([]any, error) { return nil, errors.New("not supported") }
func (r *rowsStub) RawValues() [][]byte { return nil }
func (r *rowsStub) Conn() *pgx.Conn { return nil }

// txStub records Exec calls; the embedded interface panics on anything else.
type txStub struct {
	pgx.Tx
	pool       *poolStub
	committed  bool
	rolledBack bool
}

func (t *txStub) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return t.pool.Exec(ctx, sql, args...)
}

func (t *txStub) Commit(context.Context) error {
	t.committed = true
	return t.pool.commitErr
}

func (t *txStub) Rollback(context.Context) error {
	t.rolledBack = true
	return nil
}

// poolStub implements postgres.PgxPool for tests.
type poolStub struct {
	mu        sync.Mutex
	execs     []execCall
	execErrOn string
	rows      *rowsStub
	queryErr  error
	queryArgs []any
	beginErr  error
	commitErr error
	tx        *txStub
}

func (p *poolStub) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.execs = append(p.execs, execCall{sql: sql, args: args})
	if p.execErrOn != "" && strings.Contains(sql, p.execErrOn) {
		return pgconn.CommandTag{}, errors.New("exec failed")
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (p *poolStub) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row {
	return &rowsStub{}
}

func (p *poolStub) Query(_ context.Context, _ string, args ...any) (pgx.Rows, error) {
	p.queryArgs = args
	if p.queryErr != nil {
		return nil, p.queryErr
	}
	if p.rows == nil {
		return &rowsStub{}, nil
	}
	return p.rows, nil
}

func (p *poolStub) BeginTx(_ context.Context, _ pgx.TxOptions) (pgx.Tx, error) {
	if p.beginErr != nil {
		return nil, p.beginErr
	}
	p.tx = &txStub{pool: p}
	return p.tx, nil
}

package txpager

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxConn adapts *pgxpool.Conn to Conn.
type PgxConn struct {
	conn *pgxpool.Conn
}

func NewPgxConn(conn *pgxpool.Conn) *PgxConn {
	return &PgxConn{conn: conn}
}

// Exec - implements Conn.
func (c *PgxConn) Exec(ctx context.Context, sql string, args ...any) error {
	_, err := c.conn.Exec(ctx, sql, args...)
	return err
}

// Query - implements Conn.
func (c *PgxConn) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return c.conn.Query(ctx, sql, args...)
}

// Release - implements Conn. With a non-nil cause the underlying connection is
// closed first; pgxpool destroys closed connections on release.
func (c *PgxConn) Release(ctx context.Context, cause error) error {
	return releaseConn(ctx, cause, c.conn.Conn().Close, c.conn.Release)
}

// releaseConn hands a connection back with release, closing it beforehand
// when cause is non-nil. release runs even if closing fails.
func releaseConn(ctx context.Context, cause error, closeConn func(context.Context) error, release func()) error {
	var err error
	if cause != nil {
		err = closeConn(ctx)
	}

	release()

	return err
}

// PgxPool adapts *pgxpool.Pool to Pool.
type PgxPool struct {
	pool *pgxpool.Pool
}

// PgxPoolFrom wraps an existing pool.
func PgxPoolFrom(pool *pgxpool.Pool) *PgxPool {
	return &PgxPool{pool: pool}
}

// Acquire - implements Pool.
func (p *PgxPool) Acquire(ctx context.Context) (Conn[pgx.Rows], error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	return NewPgxConn(conn), nil
}

// Unwrap returns the underlying pgxpool.Pool.
func (p *PgxPool) Unwrap() *pgxpool.Pool {
	return p.pool
}

// Close closes all connections in the pool.
func (p *PgxPool) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

var (
	_ Conn[pgx.Rows] = (*PgxConn)(nil)
	_ Pool[pgx.Rows] = (*PgxPool)(nil)
)

// WrapPgx begins a transaction on an acquired pgx connection.
func WrapPgx(ctx context.Context, conn *pgxpool.Conn, opts ...TxOption) (*Transaction[pgx.Rows], error) {
	return Wrap[pgx.Rows](ctx, NewPgxConn(conn), opts...)
}

// BeginPgx acquires a connection from pool and begins a transaction on it.
// Unlike Begin, the connection is released (and destroyed) when BEGIN fails,
// since the caller never gets hold of it.
func BeginPgx(ctx context.Context, pool *pgxpool.Pool, opts ...TxOption) (*Transaction[pgx.Rows], error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, &OpError{Op: OpAcquire, Err: err}
	}

	adapted := NewPgxConn(conn)
	tx, err := Wrap[pgx.Rows](ctx, adapted, opts...)
	if err != nil {
		_ = adapted.Release(context.WithoutCancel(ctx), err)
		return nil, err
	}

	return tx, nil
}

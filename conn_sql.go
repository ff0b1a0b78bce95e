package txpager

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
)

// SQLConn adapts *sql.Conn to Conn.
type SQLConn struct {
	conn *sql.Conn
}

func NewSQLConn(conn *sql.Conn) *SQLConn {
	return &SQLConn{conn: conn}
}

// Exec - implements Conn.
func (c *SQLConn) Exec(ctx context.Context, query string, args ...any) error {
	_, err := c.conn.ExecContext(ctx, query, args...)
	return err
}

// Query - implements Conn.
func (c *SQLConn) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.conn.QueryContext(ctx, query, args...)
}

// Release - implements Conn. With a non-nil cause the driver connection is
// reported as driver.ErrBadConn, which makes database/sql close it instead of
// putting it back into the pool.
func (c *SQLConn) Release(_ context.Context, cause error) error {
	if cause == nil {
		return c.conn.Close()
	}

	err := c.conn.Raw(func(any) error {
		return driver.ErrBadConn
	})
	if errors.Is(err, driver.ErrBadConn) {
		return nil
	}

	return err
}

// SQLPool adapts *sql.DB to Pool.
type SQLPool struct {
	db *sql.DB
}

func SQLPoolFrom(db *sql.DB) *SQLPool {
	return &SQLPool{db: db}
}

// Acquire - implements Pool.
func (p *SQLPool) Acquire(ctx context.Context) (Conn[*sql.Rows], error) {
	conn, err := p.db.Conn(ctx)
	if err != nil {
		return nil, err
	}

	return NewSQLConn(conn), nil
}

var (
	_ Conn[*sql.Rows] = (*SQLConn)(nil)
	_ Pool[*sql.Rows] = (*SQLPool)(nil)
)

// WrapSQL begins a transaction on a dedicated database/sql connection.
func WrapSQL(ctx context.Context, conn *sql.Conn, opts ...TxOption) (*Transaction[*sql.Rows], error) {
	return Wrap[*sql.Rows](ctx, NewSQLConn(conn), opts...)
}

// BeginSQL takes a dedicated connection from db and begins a transaction on
// it. The connection is discarded when BEGIN fails.
func BeginSQL(ctx context.Context, db *sql.DB, opts ...TxOption) (*Transaction[*sql.Rows], error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, &OpError{Op: OpAcquire, Err: err}
	}

	adapted := NewSQLConn(conn)
	tx, err := Wrap[*sql.Rows](ctx, adapted, opts...)
	if err != nil {
		_ = adapted.Release(context.WithoutCancel(ctx), err)
		return nil, err
	}

	return tx, nil
}

package txpager

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Conn is a database connection borrowed from a pool. R is the result type of
// Query, e.g. pgx.Rows or *sql.Rows.
type Conn[R any] interface {
	// Exec runs a statement that returns no rows.
	Exec(ctx context.Context, sql string, args ...any) error
	// Query runs a statement and returns its result.
	Query(ctx context.Context, sql string, args ...any) (R, error)
	// Release gives the connection back to its pool. A non-nil cause asks the
	// pool to destroy the connection instead of recycling it.
	Release(ctx context.Context, cause error) error
}

// Pool hands out connections.
type Pool[R any] interface {
	Acquire(ctx context.Context) (Conn[R], error)
}

// State of a Transaction.
type State int

const (
	StateActive State = iota
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateCompleted:
		return "completed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Transaction owns a connection between BEGIN and the first Commit or
// Rollback. Whatever happens in Commit or Rollback, the transaction ends up
// completed and later calls to either are no-ops, so the connection is never
// committed, rolled back or released twice.
//
// A Transaction is not safe for concurrent use.
type Transaction[R any] struct {
	conn   Conn[R]
	state  State
	logger *zap.Logger
	tracer trace.Tracer
}

// Wrap issues BEGIN on conn and returns an active transaction owning it.
//
// If BEGIN fails the error is returned as an *OpError and conn is left to the
// caller: it is not released.
func Wrap[R any](ctx context.Context, conn Conn[R], opts ...TxOption) (*Transaction[R], error) {
	cfg := newTxConfig(opts)

	ctx, span := cfg.tracer.Start(ctx, "txpager.begin",
		trace.WithAttributes(attribute.String("db.operation", OpBegin)))
	defer span.End()

	if err := conn.Exec(ctx, OpBegin); err != nil {
		err = &OpError{Op: OpBegin, Err: err}
		recordSpanError(span, err)
		cfg.logger.Debug("begin transaction failed", zap.Error(err))

		return nil, err
	}

	cfg.logger.Debug("transaction started")

	return &Transaction[R]{
		conn:   conn,
		state:  StateActive,
		logger: cfg.logger,
		tracer: cfg.tracer,
	}, nil
}

// Begin acquires a connection from pool and wraps it. If BEGIN fails the
// acquired connection is not released: that is up to the caller or the pool.
func Begin[R any](ctx context.Context, pool Pool[R], opts ...TxOption) (*Transaction[R], error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, &OpError{Op: OpAcquire, Err: err}
	}

	return Wrap(ctx, conn, opts...)
}

// State returns the current state.
func (t *Transaction[R]) State() State {
	return t.state
}

// IsCompleted reports whether Commit or Rollback has run.
func (t *Transaction[R]) IsCompleted() bool {
	return t.state == StateCompleted
}

// Query forwards to the wrapped connection and returns its result unchanged.
// Must only be called while the transaction is active.
func (t *Transaction[R]) Query(ctx context.Context, sql string, args ...any) (R, error) {
	return t.conn.Query(ctx, sql, args...)
}

// QueryStatement renders a structured statement (see PagedSelect) and runs it
// like Query.
func (t *Transaction[R]) QueryStatement(ctx context.Context, statement squirrel.Sqlizer) (R, error) {
	sql, args, err := statement.ToSql()
	if err != nil {
		var zero R
		return zero, fmt.Errorf("cannot build statement: %w", err)
	}

	return t.conn.Query(ctx, sql, args...)
}

// Exec forwards a statement without a result set to the wrapped connection.
// Must only be called while the transaction is active.
func (t *Transaction[R]) Exec(ctx context.Context, sql string, args ...any) error {
	return t.conn.Exec(ctx, sql, args...)
}

// Commit commits the transaction and releases the connection. No-op if the
// transaction is already completed.
//
// If COMMIT fails the transaction is rolled back (see Rollback) and:
//   - the commit error is returned when the rollback succeeds;
//   - an *AggregateError{Err: rollback failure, Cause: commit failure} is
//     returned otherwise.
//
// Failures come back wrapped (*OpError, *AggregateError). The driver error is
// reachable with errors.Is and errors.As; do not compare with ==.
//
// Any error means the transaction state is unknown: assume it was not
// committed.
func (t *Transaction[R]) Commit(ctx context.Context) (err error) {
	if t.state == StateCompleted {
		return nil
	}
	defer t.complete()

	ctx, span := t.tracer.Start(ctx, "txpager.commit",
		trace.WithAttributes(attribute.String("db.operation", OpCommit)))
	defer func() {
		recordSpanError(span, err)
		span.End()
	}()

	commitErr := t.conn.Exec(ctx, OpCommit)
	if commitErr == nil {
		t.logger.Debug("transaction committed")
		return t.release(ctx, nil)
	}

	commitErr = &OpError{Op: OpCommit, Err: commitErr}
	t.logger.Warn("commit failed, rolling back", zap.Error(commitErr))

	rollbackErr := t.Rollback(context.WithoutCancel(ctx))
	if rollbackErr != nil {
		t.logger.Error("rollback after failed commit failed",
			zap.Error(rollbackErr),
			zap.NamedError("commit_error", commitErr),
		)

		return &AggregateError{Err: rollbackErr, Cause: commitErr}
	}

	return commitErr
}

// Rollback rolls back the transaction and releases the connection. No-op if
// the transaction is already completed.
//
// If ROLLBACK fails the connection is released with the rollback error as
// cause, so the pool destroys it, and:
//   - the rollback error is returned when the release succeeds;
//   - an *AggregateError{Err: release failure, Cause: rollback failure} is
//     returned otherwise.
func (t *Transaction[R]) Rollback(ctx context.Context) (err error) {
	if t.state == StateCompleted {
		return nil
	}
	defer t.complete()

	ctx, span := t.tracer.Start(ctx, "txpager.rollback",
		trace.WithAttributes(attribute.String("db.operation", OpRollback)))
	defer func() {
		recordSpanError(span, err)
		span.End()
	}()

	rollbackErr := t.conn.Exec(ctx, OpRollback)
	if rollbackErr == nil {
		t.logger.Debug("transaction rolled back")
		return t.release(ctx, nil)
	}

	rollbackErr = &OpError{Op: OpRollback, Err: rollbackErr}
	t.logger.Warn("rollback failed, discarding connection", zap.Error(rollbackErr))

	releaseErr := t.release(context.WithoutCancel(ctx), rollbackErr)
	if releaseErr != nil {
		t.logger.Error("release after failed rollback failed",
			zap.Error(releaseErr),
			zap.NamedError("rollback_error", rollbackErr),
		)

		return &AggregateError{Err: releaseErr, Cause: rollbackErr}
	}

	return rollbackErr
}

func (t *Transaction[R]) release(ctx context.Context, cause error) error {
	if err := t.conn.Release(ctx, cause); err != nil {
		return &OpError{Op: OpRelease, Err: err}
	}

	return nil
}

func (t *Transaction[R]) complete() {
	t.state = StateCompleted
}

func recordSpanError(span trace.Span, err error) {
	if err == nil {
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

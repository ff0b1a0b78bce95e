package txpager

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// fakeConn records every statement and release. Statements listed in failOn
// fail with the given error.
type fakeConn struct {
	queries       []string
	failOn        map[string]error
	releaseErr    error
	releaseCauses []error
}

func (c *fakeConn) Exec(_ context.Context, sql string, _ ...any) error {
	c.queries = append(c.queries, sql)
	return c.failOn[sql]
}

func (c *fakeConn) Query(_ context.Context, sql string, args ...any) (string, error) {
	c.queries = append(c.queries, sql)
	if err := c.failOn[sql]; err != nil {
		return "", err
	}

	return fmt.Sprintf("%s %v", sql, args), nil
}

func (c *fakeConn) Release(_ context.Context, cause error) error {
	c.releaseCauses = append(c.releaseCauses, cause)
	return c.releaseErr
}

type fakePool struct {
	conn       *fakeConn
	acquireErr error
	acquired   int
}

func (p *fakePool) Acquire(_ context.Context) (Conn[string], error) {
	p.acquired++
	if p.acquireErr != nil {
		return nil, p.acquireErr
	}

	return p.conn, nil
}

var (
	_ Conn[string] = (*fakeConn)(nil)
	_ Pool[string] = (*fakePool)(nil)
)

func Test_Wrap_IssuesBegin(t *testing.T) {
	conn := &fakeConn{}

	tx, err := Wrap[string](context.Background(), conn)
	require.NoError(t, err)

	require.Equal(t, []string{"BEGIN"}, conn.queries)
	require.Equal(t, StateActive, tx.State())
	require.False(t, tx.IsCompleted())
	require.Empty(t, conn.releaseCauses)
}

func Test_Wrap_BeginFails(t *testing.T) {
	beginErr := errors.New("connection refused")
	conn := &fakeConn{failOn: map[string]error{"BEGIN": beginErr}}

	tx, err := Wrap[string](context.Background(), conn)
	require.Nil(t, tx)
	require.ErrorIs(t, err, beginErr)

	var opErr *OpError
	require.ErrorAs(t, err, &opErr)
	require.Equal(t, OpBegin, opErr.Op)

	require.Empty(t, conn.releaseCauses, "connection ownership was never taken")
}

func Test_Begin(t *testing.T) {
	t.Run("acquires and begins", func(t *testing.T) {
		pool := &fakePool{conn: &fakeConn{}}

		tx, err := Begin[string](context.Background(), pool)
		require.NoError(t, err)
		require.NotNil(t, tx)
		require.Equal(t, 1, pool.acquired)
		require.Equal(t, []string{"BEGIN"}, pool.conn.queries)
	})

	t.Run("acquire fails", func(t *testing.T) {
		acquireErr := errors.New("pool exhausted")
		pool := &fakePool{acquireErr: acquireErr}

		tx, err := Begin[string](context.Background(), pool)
		require.Nil(t, tx)
		require.ErrorIs(t, err, acquireErr)

		var opErr *OpError
		require.ErrorAs(t, err, &opErr)
		require.Equal(t, OpAcquire, opErr.Op)
	})

	t.Run("begin fails, connection left to the pool", func(t *testing.T) {
		beginErr := errors.New("boom")
		pool := &fakePool{conn: &fakeConn{failOn: map[string]error{"BEGIN": beginErr}}}

		tx, err := Begin[string](context.Background(), pool)
		require.Nil(t, tx)
		require.ErrorIs(t, err, beginErr)
		require.Empty(t, pool.conn.releaseCauses)
	})
}

func Test_Transaction_Query(t *testing.T) {
	conn := &fakeConn{}
	tx, err := Wrap[string](context.Background(), conn)
	require.NoError(t, err)

	res, err := tx.Query(context.Background(), "SELECT * FROM users WHERE id = $1", 7)
	require.NoError(t, err)
	require.Equal(t, "SELECT * FROM users WHERE id = $1 [7]", res)

	err = tx.Exec(context.Background(), "UPDATE users SET name = $1", "bob")
	require.NoError(t, err)

	require.Equal(t, StateActive, tx.State(), "queries do not change state")
	require.Equal(t, []string{"BEGIN", "SELECT * FROM users WHERE id = $1", "UPDATE users SET name = $1"}, conn.queries)
}

func Test_Transaction_Query_ErrorUnchanged(t *testing.T) {
	queryErr := errors.New("syntax error")
	conn := &fakeConn{failOn: map[string]error{"SELEC 1": queryErr}}
	tx, err := Wrap[string](context.Background(), conn)
	require.NoError(t, err)

	_, err = tx.Query(context.Background(), "SELEC 1")
	require.Same(t, queryErr, err)
}

func Test_Transaction_QueryStatement(t *testing.T) {
	conn := &fakeConn{}
	tx, err := Wrap[string](context.Background(), conn)
	require.NoError(t, err)

	statement := PagedSelect(
		squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
			Select("id").
			From("users").
			OrderBy("id ASC"),
		MustPage(2, 4),
	)

	res, err := tx.QueryStatement(context.Background(), statement)
	require.NoError(t, err)
	require.Equal(t, "SELECT id FROM users ORDER BY id ASC LIMIT $1 OFFSET $2 [3 4]", res)

	_, err = tx.QueryStatement(context.Background(), squirrel.Select())
	require.Error(t, err)
	require.Len(t, conn.queries, 2, "invalid statement must not reach the connection")
}

func Test_Transaction_Commit(t *testing.T) {
	conn := &fakeConn{}
	tx, err := Wrap[string](context.Background(), conn)
	require.NoError(t, err)

	require.NoError(t, tx.Commit(context.Background()))
	require.NoError(t, tx.Commit(context.Background()))
	require.NoError(t, tx.Commit(context.Background()))
	require.NoError(t, tx.Rollback(context.Background()))

	require.Equal(t, []string{"BEGIN", "COMMIT"}, conn.queries)
	require.Equal(t, []error{nil}, conn.releaseCauses)
	require.True(t, tx.IsCompleted())
}

func Test_Transaction_Rollback(t *testing.T) {
	conn := &fakeConn{}
	tx, err := Wrap[string](context.Background(), conn)
	require.NoError(t, err)

	require.NoError(t, tx.Rollback(context.Background()))
	require.NoError(t, tx.Rollback(context.Background()))
	require.NoError(t, tx.Rollback(context.Background()))
	require.NoError(t, tx.Commit(context.Background()))

	require.Equal(t, []string{"BEGIN", "ROLLBACK"}, conn.queries)
	require.Equal(t, []error{nil}, conn.releaseCauses)
	require.Equal(t, StateCompleted, tx.State())
}

func Test_Transaction_Failures(t *testing.T) {
	commitErr := errors.New("commit failure")
	rollbackErr := errors.New("rollback failure")
	releaseErr := errors.New("release failure")

	tests := []struct {
		name        string
		description string
		conn        *fakeConn
		run         func(context.Context, *Transaction[string]) error
		wantQueries []string
		// wantReleaseCause is nil for a plain release, otherwise the error the
		// release cause must wrap.
		wantReleaseCause error
		wantAggregate    bool
		wantIs           []error
		wantNotIs        []error
	}{
		{
			name:        "commit fails, rollback succeeds",
			description: "The caller gets the original commit error, the connection is rolled back and recycled.",
			conn:        &fakeConn{failOn: map[string]error{"COMMIT": commitErr}},
			run: func(ctx context.Context, tx *Transaction[string]) error {
				return tx.Commit(ctx)
			},
			wantQueries: []string{"BEGIN", "COMMIT", "ROLLBACK"},
			wantIs:      []error{commitErr},
			wantNotIs:   []error{rollbackErr},
		},
		{
			name:        "commit fails, rollback fails",
			description: "Both causes are reported. The connection is released with the rollback error.",
			conn:        &fakeConn{failOn: map[string]error{"COMMIT": commitErr, "ROLLBACK": rollbackErr}},
			run: func(ctx context.Context, tx *Transaction[string]) error {
				return tx.Commit(ctx)
			},
			wantQueries:      []string{"BEGIN", "COMMIT", "ROLLBACK"},
			wantReleaseCause: rollbackErr,
			wantAggregate:    true,
			wantIs:           []error{commitErr, rollbackErr},
		},
		{
			name:        "commit fails, rollback fails, release fails",
			description: "Every failure reaches the caller.",
			conn: &fakeConn{
				failOn:     map[string]error{"COMMIT": commitErr, "ROLLBACK": rollbackErr},
				releaseErr: releaseErr,
			},
			run: func(ctx context.Context, tx *Transaction[string]) error {
				return tx.Commit(ctx)
			},
			wantQueries:      []string{"BEGIN", "COMMIT", "ROLLBACK"},
			wantReleaseCause: rollbackErr,
			wantAggregate:    true,
			wantIs:           []error{commitErr, rollbackErr, releaseErr},
		},
		{
			name:        "rollback fails, release succeeds",
			description: "The caller gets the rollback error, the connection is released with it.",
			conn:        &fakeConn{failOn: map[string]error{"ROLLBACK": rollbackErr}},
			run: func(ctx context.Context, tx *Transaction[string]) error {
				return tx.Rollback(ctx)
			},
			wantQueries:      []string{"BEGIN", "ROLLBACK"},
			wantReleaseCause: rollbackErr,
			wantIs:           []error{rollbackErr},
		},
		{
			name:        "rollback fails, release fails",
			description: "Both causes are reported.",
			conn: &fakeConn{
				failOn:     map[string]error{"ROLLBACK": rollbackErr},
				releaseErr: releaseErr,
			},
			run: func(ctx context.Context, tx *Transaction[string]) error {
				return tx.Rollback(ctx)
			},
			wantQueries:      []string{"BEGIN", "ROLLBACK"},
			wantReleaseCause: rollbackErr,
			wantAggregate:    true,
			wantIs:           []error{rollbackErr, releaseErr},
		},
		{
			name:        "commit succeeds, release fails",
			description: "Data is committed, no rollback is attempted, the release failure is reported.",
			conn:        &fakeConn{releaseErr: releaseErr},
			run: func(ctx context.Context, tx *Transaction[string]) error {
				return tx.Commit(ctx)
			},
			wantQueries: []string{"BEGIN", "COMMIT"},
			wantIs:      []error{releaseErr},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Logf("Test description: %s", tt.description)

			ctx := context.Background()
			tx, err := Wrap[string](ctx, tt.conn)
			require.NoError(t, err)

			err = tt.run(ctx, tx)
			require.Error(t, err)

			require.Equal(t, tt.wantQueries, tt.conn.queries)
			require.True(t, tx.IsCompleted(), "transaction must be completed on every exit path")

			require.Len(t, tt.conn.releaseCauses, 1, "connection must be released exactly once")
			if tt.wantReleaseCause == nil {
				require.NoError(t, tt.conn.releaseCauses[0])
			} else {
				require.ErrorIs(t, tt.conn.releaseCauses[0], tt.wantReleaseCause)
			}

			var aggErr *AggregateError
			require.Equal(t, tt.wantAggregate, errors.As(err, &aggErr))

			for _, target := range tt.wantIs {
				assert.ErrorIs(t, err, target)
			}
			for _, target := range tt.wantNotIs {
				assert.NotErrorIs(t, err, target)
			}

			// Completed transactions never touch the connection again.
			require.NoError(t, tx.Commit(ctx))
			require.NoError(t, tx.Rollback(ctx))
			require.Equal(t, tt.wantQueries, tt.conn.queries)
			require.Len(t, tt.conn.releaseCauses, 1)
		})
	}
}

func Test_AggregateError_Causes(t *testing.T) {
	commitErr := errors.New("commit failure")
	rollbackErr := errors.New("rollback failure")

	conn := &fakeConn{failOn: map[string]error{"COMMIT": commitErr, "ROLLBACK": rollbackErr}}
	tx, err := Wrap[string](context.Background(), conn)
	require.NoError(t, err)

	err = tx.Commit(context.Background())

	var aggErr *AggregateError
	require.ErrorAs(t, err, &aggErr)
	require.ErrorIs(t, aggErr.Err, rollbackErr)
	require.NotErrorIs(t, aggErr.Err, commitErr)
	require.ErrorIs(t, aggErr.Cause, commitErr)
	require.NotErrorIs(t, aggErr.Cause, rollbackErr)

	require.EqualError(t, err,
		"txpager: ROLLBACK failed: rollback failure (caused by: txpager: COMMIT failed: commit failure)")
}

func Test_Transaction_Logging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	conn := &fakeConn{failOn: map[string]error{"COMMIT": errors.New("commit failure")}}
	tx, err := Wrap[string](context.Background(), conn,
		WithLogger(zap.New(core)),
		WithTracer(noop.NewTracerProvider().Tracer("test")),
	)
	require.NoError(t, err)

	require.Error(t, tx.Commit(context.Background()))

	require.Equal(t, 1, logs.FilterMessage("transaction started").Len())
	require.Equal(t, 1, logs.FilterMessage("commit failed, rolling back").FilterLevelExact(zapcore.WarnLevel).Len())
	require.Equal(t, 1, logs.FilterMessage("transaction rolled back").Len())
	require.Equal(t, 0, logs.FilterLevelExact(zapcore.ErrorLevel).Len())

	for _, entry := range logs.All() {
		require.Equal(t, "txpager", entry.ContextMap()["component"])
	}
}

func Test_State_String(t *testing.T) {
	require.Equal(t, "active", StateActive.String())
	require.Equal(t, "completed", StateCompleted.String())
	require.Equal(t, "State(7)", State(7).String())
}

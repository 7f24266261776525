package shared

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

type recordingExecer struct {
	sql  []string
	args [][]any
	err  error
	tag  pgconn.CommandTag
}

func (e *recordingExecer) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	e.sql = append(e.sql, sql)
	e.args = append(e.args, args)
	return e.tag, e.err
}

func TestAuditLoggerRecord(t *testing.T) {
	db := &recordingExecer{}
	logger := NewAuditLogger(db)

	err := logger.Record(context.Background(), AuditLog{ActorID: 3, Action: "sale:posted", Entity: "sale", EntityID: "12", Meta: map[string]any{"total": "16.95"}})
	require.NoError(t, err)
	require.Len(t, db.sql, 1)
	require.Contains(t, db.sql[0], "INSERT INTO audit_logs")
	require.Equal(t, "sale:posted", db.args[0][1])

	require.Error(t, logger.Record(context.Background(), AuditLog{Action: "x"}))
}

func TestIdempotencyConflict(t *testing.T) {
	db := &recordingExecer{err: &pgconn.PgError{Code: "23505"}}
	store := NewIdempotencyStore(db)

	err := store.CheckAndInsert(context.Background(), "key-1", "sales")
	require.ErrorIs(t, err, ErrIdempotencyConflict)

	db.err = errors.New("boom")
	err = store.CheckAndInsert(context.Background(), "key-1", "sales")
	require.EqualError(t, err, "boom")

	require.Error(t, store.CheckAndInsert(context.Background(), "", "sales"))
}

func TestIdempotencyCleanup(t *testing.T) {
	db := &recordingExecer{tag: pgconn.NewCommandTag("DELETE 4")}
	store := NewIdempotencyStore(db)

	n, err := store.Cleanup(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	require.EqualValues(t, 4, n)
}

package database

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
)

type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (f *fakeTx) Commit(context.Context) error {
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(context.Context) error {
	f.rolledBack = true
	return nil
}

type fakeBeginner struct {
	tx  *fakeTx
	err error
}

func (f *fakeBeginner) Begin(context.Context) (pgx.Tx, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tx, nil
}

func TestWithTxCommits(t *testing.T) {
	db := &fakeBeginner{tx: &fakeTx{}}

	err := WithTx(context.Background(), db, func(ctx context.Context, tx pgx.Tx) error {
		return nil
	})
	require.NoError(t, err)
	require.True(t, db.tx.committed)
	require.False(t, db.tx.rolledBack)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db := &fakeBeginner{tx: &fakeTx{}}
	boom := errors.New("boom")

	err := WithTx(context.Background(), db, func(ctx context.Context, tx pgx.Tx) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.True(t, db.tx.rolledBack)
	require.False(t, db.tx.committed)
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	db := &fakeBeginner{tx: &fakeTx{}}

	require.PanicsWithValue(t, "kaboom", func() {
		_ = WithTx(context.Background(), db, func(ctx context.Context, tx pgx.Tx) error {
			panic("kaboom")
		})
	})
	require.True(t, db.tx.rolledBack)
}

func TestWithTxBeginError(t *testing.T) {
	db := &fakeBeginner{err: errors.New("no conn")}

	called := false
	err := WithTx(context.Background(), db, func(ctx context.Context, tx pgx.Tx) error {
		called = true
		return nil
	})
	require.Error(t, err)
	require.False(t, called)
}

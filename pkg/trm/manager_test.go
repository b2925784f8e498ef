package trm

import (
	"context"
	"errors"
	"testing"

	"github.com/Temutjin2k/delivery-dispatch/pkg/logger"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTx struct {
	pgx.Tx
	committed  int
	rolledBack int
}

func (f *fakeTx) Commit(context.Context) error {
	f.committed++
	return nil
}

func (f *fakeTx) Rollback(context.Context) error {
	f.rolledBack++
	return nil
}

type fakeDB struct {
	tx      *fakeTx
	begins  int
	options []pgx.TxOptions
}

func (d *fakeDB) Begin(context.Context) (pgx.Tx, error) {
	d.begins++
	return d.tx, nil
}

func (d *fakeDB) BeginTx(_ context.Context, opt pgx.TxOptions) (pgx.Tx, error) {
	d.begins++
	d.options = append(d.options, opt)
	return d.tx, nil
}

func TestManager_CommitOnSuccess(t *testing.T) {
	db := &fakeDB{tx: &fakeTx{}}
	m := New(db, logger.Nop())

	err := m.Do(context.Background(), func(ctx context.Context) error {
		tx, ok := TxFromCtx(ctx)
		require.True(t, ok)
		assert.Same(t, db.tx, tx)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, db.tx.committed)
	assert.Zero(t, db.tx.rolledBack)
}

func TestManager_RollbackOnError(t *testing.T) {
	db := &fakeDB{tx: &fakeTx{}}
	m := New(db, logger.Nop())
	boom := errors.New("boom")

	err := m.Do(context.Background(), func(context.Context) error { return boom })

	assert.ErrorIs(t, err, boom)
	assert.Zero(t, db.tx.committed)
	assert.Equal(t, 1, db.tx.rolledBack)
}

func TestManager_RollbackOnPanic(t *testing.T) {
	db := &fakeDB{tx: &fakeTx{}}
	m := New(db, logger.Nop())

	assert.Panics(t, func() {
		_ = m.Do(context.Background(), func(context.Context) error { panic("boom") })
	})
	assert.Equal(t, 1, db.tx.rolledBack)
}

func TestManager_NestedJoinsOuter(t *testing.T) {
	db := &fakeDB{tx: &fakeTx{}}
	m := New(db, logger.Nop())

	err := m.Do(context.Background(), func(ctx context.Context) error {
		return m.Do(ctx, func(context.Context) error { return nil })
	})

	require.NoError(t, err)
	assert.Equal(t, 1, db.begins)
	assert.Equal(t, 1, db.tx.committed)
}

func TestManager_ReadOnly(t *testing.T) {
	db := &fakeDB{tx: &fakeTx{}}
	m := New(db, logger.Nop())

	require.NoError(t, m.DoReadOnly(context.Background(), func(context.Context) error { return nil }))
	require.Len(t, db.options, 1)
	assert.Equal(t, pgx.ReadOnly, db.options[0].AccessMode)
}

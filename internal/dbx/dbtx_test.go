package dbx

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE entries (log_index INTEGER PRIMARY KEY, hash TEXT NOT NULL UNIQUE)`)
	require.NoError(t, err)
	return db
}

func countRows(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM entries`).Scan(&n))
	return n
}

func insertEntry(ctx context.Context, tx DBTX, hash string) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO entries (hash) VALUES (?)`, hash)
	return err
}

func TestWithTx_Commit(t *testing.T) {
	db := setupDB(t)

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		if err := insertEntry(ctx, tx, "aa"); err != nil {
			return err
		}
		return insertEntry(ctx, tx, "bb")
	})
	require.NoError(t, err)
	assert.Equal(t, 2, countRows(t, db))
}

func TestWithTx_FnErrorRollsBackAndIsReturnedAsIs(t *testing.T) {
	db := setupDB(t)
	sentinel := errors.New("duplicate receipt")

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		require.NoError(t, insertEntry(ctx, tx, "aa"))
		return sentinel
	})
	assert.Same(t, sentinel, err)
	assert.Equal(t, 0, countRows(t, db))
}

func TestWithTx_ConstraintViolationRollsBackEarlierWrites(t *testing.T) {
	db := setupDB(t)

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		require.NoError(t, insertEntry(ctx, tx, "aa"))
		return insertEntry(ctx, tx, "aa")
	})
	require.Error(t, err)
	assert.Equal(t, 0, countRows(t, db))
}

func TestWithTx_PanicRollsBackAndPropagates(t *testing.T) {
	db := setupDB(t)

	assert.PanicsWithValue(t, "kaput", func() {
		_ = WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
			require.NoError(t, insertEntry(ctx, tx, "aa"))
			panic("kaput")
		})
	})
	assert.Equal(t, 0, countRows(t, db))
}

func TestWithTx_BeginError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("connection refused")
	mock.ExpectBegin().WillReturnError(boom)

	called := false
	err = WithTx(context.Background(), db, nil, func(context.Context, DBTX) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "begin tx")
	assert.False(t, called)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_CommitError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("could not serialize access")
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO entries").WithArgs("aa").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit().WillReturnError(boom)

	err = WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		return insertEntry(ctx, tx, "aa")
	})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "commit")
	assert.NoError(t, mock.ExpectationsWereMet())
}
